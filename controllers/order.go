package controllers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"net/http"
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

// OrderController handles order placement and lifecycle.
type OrderController struct {
	Orders       *mongo.Collection
	Products     *mongo.Collection
	EmailService *utils.EmailService
}

// NewOrderController creates a new OrderController.
func NewOrderController(client *mongo.Client, dbName string, emailService *utils.EmailService) *OrderController {
	db := client.Database(dbName)
	return &OrderController{
		Orders:       db.Collection("orders"),
		Products:     db.Collection("products"),
		EmailService: emailService,
	}
}

type orderItemRequest struct {
	ProductID        string `json:"productId" validate:"required"`
	Quantity         int    `json:"quantity" validate:"required,min=1"`
	SelectedSize     string `json:"selectedSize" validate:"required,min=1"`
	DeliverySchedule string `json:"deliverySchedule" validate:"omitempty,oneof=morning evening both"`
	Notes            string `json:"notes"`
}

type createOrderRequest struct {
	Items             []orderItemRequest `json:"items" validate:"required,min=1,dive"`
	ShippingAddressID string             `json:"shippingAddress" validate:"required"`
	TotalAmount       float64            `json:"totalAmount" validate:"gte=0"`
	PaymentMethod     string             `json:"paymentMethod" validate:"omitempty,oneof=cod online wallet"`
	Notes             string             `json:"notes"`
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required"`
	Note   string `json:"note"`
}

// CreateOrder validates the cart against live catalog prices, reconciles
// the claimed total against the server-computed one and persists the order.
// Either everything checks out and one order is written, or nothing is.
func (oc *OrderController) CreateOrder(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "Invalid input")
		return
	}
	if err := utils.Validate.Struct(req); err != nil {
		utils.RespondValidationErrors(w, err)
		return
	}

	addressID, err := primitive.ObjectIDFromHex(req.ShippingAddressID)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "Invalid shipping address ID")
		return
	}
	shippingAddress := user.FindAddress(addressID)
	if shippingAddress == nil {
		utils.RespondError(w, http.StatusNotFound, "Shipping address not found")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	// Price every line against the live catalog.
	items := make([]models.OrderItem, 0, len(req.Items))
	serverTotal := 0.0
	for _, item := range req.Items {
		productID, err := primitive.ObjectIDFromHex(item.ProductID)
		if err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid product ID")
			return
		}

		var product models.Product
		err = oc.Products.FindOne(ctx, bson.M{"_id": productID}).Decode(&product)
		if err != nil || !product.InStock {
			name := "unknown"
			if err == nil {
				name = product.Name
			}
			utils.RespondError(w, http.StatusBadRequest, fmt.Sprintf("Product %s is not available", name))
			return
		}

		if !models.ScheduleAllowed(product.Category, item.DeliverySchedule) {
			utils.RespondError(w, http.StatusBadRequest,
				fmt.Sprintf("Delivery schedule is only available for milk products, not %s", product.Name))
			return
		}

		items = append(items, models.OrderItem{
			ProductID:        product.ID,
			ProductName:      product.Name,
			Quantity:         item.Quantity,
			SelectedSize:     item.SelectedSize,
			Price:            product.Price,
			DeliverySchedule: item.DeliverySchedule,
			Notes:            item.Notes,
		})
		serverTotal += product.Price * float64(item.Quantity)
	}
	serverTotal = models.Round2(serverTotal)

	if !models.AmountMatches(serverTotal, req.TotalAmount) {
		utils.RespondError(w, http.StatusBadRequest, "Total amount mismatch")
		return
	}

	now := time.Now()
	order := models.Order{
		OrderNumber:     models.NewOrderNumber(now),
		UserID:          user.ID,
		Items:           items,
		ShippingAddress: *shippingAddress,
		TotalAmount:     serverTotal,
		Status:          models.StatusPending,
		PaymentStatus:   models.PaymentPending,
		PaymentMethod:   req.PaymentMethod,
		Notes:           req.Notes,
		StatusHistory: []models.StatusChange{{
			Status:    models.StatusPending,
			Timestamp: now,
			Note:      "Order placed",
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}
	order.CalculateTotals()

	result, err := oc.Orders.InsertOne(ctx, order)
	if err != nil {
		utils.RespondServerError(w, err)
		return
	}
	order.ID = result.InsertedID.(primitive.ObjectID)

	// Confirmation mail is best effort; the order stands either way.
	go func(email, name string, order models.Order) {
		if err := oc.EmailService.SendOrderConfirmationEmail(email, name, order); err != nil {
			log.Printf("Failed to send order confirmation to %s: %v", email, err)
		}
	}(user.Email, user.Name, order)

	utils.RespondJSON(w, http.StatusCreated, order)
}

// GetOrders lists the caller's orders, newest first.
func (oc *OrderController) GetOrders(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.M{"created_at": -1})
	cursor, err := oc.Orders.Find(ctx, bson.M{"user_id": user.ID}, opts)
	if err != nil {
		utils.RespondServerError(w, err)
		return
	}
	defer cursor.Close(ctx)

	orders := []models.Order{}
	if err := cursor.All(ctx, &orders); err != nil {
		utils.RespondServerError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, orders)
}

// GetOrder returns one order when the caller owns it or is an admin. A
// foreign order and a missing order are indistinguishable only to a
// non-admin through the ownership check below.
func (oc *OrderController) GetOrder(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	orderID, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "Invalid order ID")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var order models.Order
	if err := oc.Orders.FindOne(ctx, bson.M{"_id": orderID}).Decode(&order); err != nil {
		utils.RespondError(w, http.StatusNotFound, "Order not found")
		return
	}

	if order.UserID != user.ID && !user.IsAdmin() {
		utils.RespondError(w, http.StatusForbidden, "Access denied")
		return
	}

	utils.RespondJSON(w, http.StatusOK, order)
}

// UpdateOrderStatus sets an order's status (admin only). Only enum
// membership is checked; any target status is reachable. The change is
// recorded in the status history with the acting admin.
func (oc *OrderController) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	admin, ok := middleware.UserFromContext(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	orderID, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "Invalid order ID")
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "Invalid input")
		return
	}
	if !models.ValidStatus(req.Status) {
		utils.RespondError(w, http.StatusBadRequest, "Invalid order status")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var order models.Order
	if err := oc.Orders.FindOne(ctx, bson.M{"_id": orderID}).Decode(&order); err != nil {
		utils.RespondError(w, http.StatusNotFound, "Order not found")
		return
	}

	order.ApplyStatus(req.Status, req.Note, admin.ID, time.Now())

	update := bson.M{"$set": bson.M{
		"status":               order.Status,
		"status_history":       order.StatusHistory,
		"actual_delivery_time": order.ActualDeliveryTime,
		"updated_at":           order.UpdatedAt,
	}}
	if _, err := oc.Orders.UpdateOne(ctx, bson.M{"_id": orderID}, update); err != nil {
		utils.RespondServerError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, order)
}

// GetAllOrders lists orders for admins with optional status filter and
// pagination, newest first.
func (oc *OrderController) GetAllOrders(w http.ResponseWriter, r *http.Request) {
	page, limit := parsePagination(r)
	query := bson.M{}
	if status := r.URL.Query().Get("status"); status != "" {
		query["status"] = status
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	findOpts := options.Find().
		SetSort(bson.M{"created_at": -1}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))

	cursor, err := oc.Orders.Find(ctx, query, findOpts)
	if err != nil {
		utils.RespondServerError(w, err)
		return
	}
	defer cursor.Close(ctx)

	orders := []models.Order{}
	if err := cursor.All(ctx, &orders); err != nil {
		utils.RespondServerError(w, err)
		return
	}

	total, err := oc.Orders.CountDocuments(ctx, query)
	if err != nil {
		utils.RespondServerError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"orders": orders,
		"pagination": map[string]interface{}{
			"current":     page,
			"total":       int(math.Ceil(float64(total) / float64(limit))),
			"totalOrders": total,
		},
	})
}
