package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"organic-grocery/models"
	"organic-grocery/utils"
)

// ProductController handles catalog reads and admin catalog writes.
type ProductController struct {
	Products *mongo.Collection
}

// NewProductController creates a new ProductController.
func NewProductController(client *mongo.Client, dbName string) *ProductController {
	return &ProductController{Products: client.Database(dbName).Collection("products")}
}

type productRequest struct {
	Name                string                  `json:"name" validate:"required,min=1"`
	Category            string                  `json:"category" validate:"required,oneof=milk meat organic-oils organic-powders"`
	Subcategory         string                  `json:"subcategory"`
	Description         string                  `json:"description" validate:"required,min=10"`
	Price               float64                 `json:"price" validate:"gte=0"`
	Unit                string                  `json:"unit" validate:"required,min=1"`
	AvailableQuantities []string                `json:"availableQuantities" validate:"required,min=1"`
	InStock             *bool                   `json:"inStock"`
	Image               string                  `json:"image"`
	NutritionalInfo     *models.NutritionalInfo `json:"nutritionalInfo"`
}

// GetProducts lists the catalog with optional category, search and inStock
// filters.
func (pc *ProductController) GetProducts(w http.ResponseWriter, r *http.Request) {
	query := bson.M{}
	q := r.URL.Query()

	if category := q.Get("category"); category != "" {
		query["category"] = category
	}
	if search := q.Get("search"); search != "" {
		query["$or"] = []bson.M{
			{"name": bson.M{"$regex": search, "$options": "i"}},
			{"description": bson.M{"$regex": search, "$options": "i"}},
		}
	}
	if inStock := q.Get("inStock"); inStock != "" {
		query["in_stock"] = inStock == "true"
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	cursor, err := pc.Products.Find(ctx, query, options.Find().SetSort(bson.M{"created_at": -1}))
	if err != nil {
		utils.RespondServerError(w, err)
		return
	}
	defer cursor.Close(ctx)

	products := []models.Product{}
	if err := cursor.All(ctx, &products); err != nil {
		utils.RespondServerError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, products)
}

// GetProductByID returns a single product.
func (pc *ProductController) GetProductByID(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "Invalid product ID")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var product models.Product
	if err := pc.Products.FindOne(ctx, bson.M{"_id": id}).Decode(&product); err != nil {
		utils.RespondError(w, http.StatusNotFound, "Product not found")
		return
	}

	utils.RespondJSON(w, http.StatusOK, product)
}

// CreateProduct adds a catalog entry (admin only).
func (pc *ProductController) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "Invalid input")
		return
	}
	if err := utils.Validate.Struct(req); err != nil {
		utils.RespondValidationErrors(w, err)
		return
	}

	now := time.Now()
	product := models.Product{
		Name:                req.Name,
		Category:            req.Category,
		Subcategory:         req.Subcategory,
		Description:         req.Description,
		Price:               models.Round2(req.Price),
		Unit:                req.Unit,
		AvailableQuantities: req.AvailableQuantities,
		InStock:             true,
		Image:               req.Image,
		NutritionalInfo:     req.NutritionalInfo,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if req.InStock != nil {
		product.InStock = *req.InStock
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	result, err := pc.Products.InsertOne(ctx, product)
	if err != nil {
		utils.RespondServerError(w, err)
		return
	}
	product.ID = result.InsertedID.(primitive.ObjectID)

	utils.RespondJSON(w, http.StatusCreated, product)
}

// UpdateProduct replaces a catalog entry's attributes (admin only).
func (pc *ProductController) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "Invalid product ID")
		return
	}

	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "Invalid input")
		return
	}
	if err := utils.Validate.Struct(req); err != nil {
		utils.RespondValidationErrors(w, err)
		return
	}

	set := bson.M{
		"name":                 req.Name,
		"category":             req.Category,
		"subcategory":          req.Subcategory,
		"description":          req.Description,
		"price":                models.Round2(req.Price),
		"unit":                 req.Unit,
		"available_quantities": req.AvailableQuantities,
		"image":                req.Image,
		"nutritional_info":     req.NutritionalInfo,
		"updated_at":           time.Now(),
	}
	if req.InStock != nil {
		set["in_stock"] = *req.InStock
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var product models.Product
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err = pc.Products.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&product)
	if err == mongo.ErrNoDocuments {
		utils.RespondError(w, http.StatusNotFound, "Product not found")
		return
	}
	if err != nil {
		utils.RespondServerError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, product)
}

// DeleteProduct removes a catalog entry (admin only).
func (pc *ProductController) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "Invalid product ID")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	result, err := pc.Products.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		utils.RespondServerError(w, err)
		return
	}
	if result.DeletedCount == 0 {
		utils.RespondError(w, http.StatusNotFound, "Product not found")
		return
	}

	utils.RespondMessage(w, "Product deleted successfully")
}
