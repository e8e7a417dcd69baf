package controllers

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"organic-grocery/middleware"
	"organic-grocery/models"
	"organic-grocery/utils"
)

// UserController handles profile, favorites and admin user management.
type UserController struct {
	Users    *mongo.Collection
	Products *mongo.Collection
}

// NewUserController creates a new UserController.
func NewUserController(client *mongo.Client, dbName string) *UserController {
	db := client.Database(dbName)
	return &UserController{
		Users:    db.Collection("users"),
		Products: db.Collection("products"),
	}
}

type updateProfileRequest struct {
	Name        string `json:"name" validate:"omitempty,min=2"`
	Gender      string `json:"gender" validate:"omitempty,oneof=male female other"`
	DateOfBirth string `json:"dateOfBirth" validate:"omitempty,datetime=2006-01-02"`
}

// UpdateProfile edits name, gender and date of birth.
func (uc *UserController) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "Invalid input")
		return
	}
	if err := utils.Validate.Struct(req); err != nil {
		utils.RespondValidationErrors(w, err)
		return
	}

	set := bson.M{"updated_at": time.Now()}
	if req.Name != "" {
		set["name"] = req.Name
		user.Name = req.Name
	}
	if req.Gender != "" {
		set["gender"] = req.Gender
		user.Gender = req.Gender
	}
	if req.DateOfBirth != "" {
		dob, _ := time.Parse("2006-01-02", req.DateOfBirth)
		set["date_of_birth"] = dob
		user.DateOfBirth = &dob
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	if _, err := uc.Users.UpdateOne(ctx, bson.M{"_id": user.ID}, bson.M{"$set": set}); err != nil {
		utils.RespondServerError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"id":          user.ID,
		"email":       user.Email,
		"name":        user.Name,
		"role":        user.Role,
		"gender":      user.Gender,
		"dateOfBirth": user.DateOfBirth,
	})
}

// GetFavorites returns the user's favorited products, resolved against the
// catalog.
func (uc *UserController) GetFavorites(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	products := []models.Product{}
	if len(user.Favorites) > 0 {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		cursor, err := uc.Products.Find(ctx, bson.M{"_id": bson.M{"$in": user.Favorites}})
		if err != nil {
			utils.RespondServerError(w, err)
			return
		}
		defer cursor.Close(ctx)
		if err := cursor.All(ctx, &products); err != nil {
			utils.RespondServerError(w, err)
			return
		}
	}

	utils.RespondJSON(w, http.StatusOK, products)
}

// AddFavorite adds a product to the user's favorites.
func (uc *UserController) AddFavorite(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	productID, err := primitive.ObjectIDFromHex(mux.Vars(r)["productId"])
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "Invalid product ID")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var product models.Product
	if err := uc.Products.FindOne(ctx, bson.M{"_id": productID}).Decode(&product); err != nil {
		utils.RespondError(w, http.StatusNotFound, "Product not found")
		return
	}

	if user.HasFavorite(productID) {
		utils.RespondError(w, http.StatusBadRequest, "Product already in favorites")
		return
	}

	update := bson.M{
		"$push": bson.M{"favorites": productID},
		"$set":  bson.M{"updated_at": time.Now()},
	}
	if _, err := uc.Users.UpdateOne(ctx, bson.M{"_id": user.ID}, update); err != nil {
		utils.RespondServerError(w, err)
		return
	}

	utils.RespondMessage(w, "Product added to favorites")
}

// RemoveFavorite removes a product from the user's favorites.
func (uc *UserController) RemoveFavorite(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	productID, err := primitive.ObjectIDFromHex(mux.Vars(r)["productId"])
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "Invalid product ID")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	update := bson.M{
		"$pull": bson.M{"favorites": productID},
		"$set":  bson.M{"updated_at": time.Now()},
	}
	if _, err := uc.Users.UpdateOne(ctx, bson.M{"_id": user.ID}, update); err != nil {
		utils.RespondServerError(w, err)
		return
	}

	utils.RespondMessage(w, "Product removed from favorites")
}

// GetAllUsers lists users for admins, newest first, with optional name or
// email search and pagination.
func (uc *UserController) GetAllUsers(w http.ResponseWriter, r *http.Request) {
	page, limit := parsePagination(r)
	query := bson.M{}
	if search := r.URL.Query().Get("search"); search != "" {
		query["$or"] = []bson.M{
			{"name": bson.M{"$regex": search, "$options": "i"}},
			{"email": bson.M{"$regex": search, "$options": "i"}},
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	findOpts := options.Find().
		SetSort(bson.M{"created_at": -1}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))

	cursor, err := uc.Users.Find(ctx, query, findOpts)
	if err != nil {
		utils.RespondServerError(w, err)
		return
	}
	defer cursor.Close(ctx)

	users := []models.User{}
	if err := cursor.All(ctx, &users); err != nil {
		utils.RespondServerError(w, err)
		return
	}

	total, err := uc.Users.CountDocuments(ctx, query)
	if err != nil {
		utils.RespondServerError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"users": users,
		"pagination": map[string]interface{}{
			"current":    page,
			"total":      int(math.Ceil(float64(total) / float64(limit))),
			"totalUsers": total,
		},
	})
}

type updateRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=user admin"`
}

// UpdateUserRole changes a user's role (admin only).
func (uc *UserController) UpdateUserRole(w http.ResponseWriter, r *http.Request) {
	userID, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	var req updateRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "Invalid input")
		return
	}
	if err := utils.Validate.Struct(req); err != nil {
		utils.RespondValidationErrors(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	update := bson.M{"$set": bson.M{"role": req.Role, "updated_at": time.Now()}}
	var user models.User
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err = uc.Users.FindOneAndUpdate(ctx, bson.M{"_id": userID}, update, opts).Decode(&user)
	if err == mongo.ErrNoDocuments {
		utils.RespondError(w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		utils.RespondServerError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, user)
}

func parsePagination(r *http.Request) (page, limit int) {
	page, limit = 1, 20
	if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 0 {
		page = p
	}
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 {
		limit = l
	}
	return page, limit
}
