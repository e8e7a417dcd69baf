package routes

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"organic-grocery/controllers"
	"organic-grocery/middleware"
)

// RegisterRoutes sets up all the routes for the application.
func RegisterRoutes(
	router *mux.Router,
	auth *middleware.AuthMiddleware,
	limiter *middleware.RateLimiter,
	authController *controllers.AuthController,
	userController *controllers.UserController,
	addressController *controllers.AddressController,
	productController *controllers.ProductController,
	orderController *controllers.OrderController,
) {
	// Auth routes. OTP endpoints sit behind IP-keyed rate limits.
	sendLimit := limiter.Limit("send-otp", 5, 15*time.Minute)
	verifyLimit := limiter.Limit("verify-otp", 10, 15*time.Minute)
	router.Handle("/auth/send-otp", sendLimit(http.HandlerFunc(authController.SendOTP))).Methods("POST")
	router.Handle("/auth/verify-otp", verifyLimit(http.HandlerFunc(authController.VerifyOTP))).Methods("POST")
	router.Handle("/auth/me", auth.Authenticate(http.HandlerFunc(authController.Me))).Methods("GET")
	router.HandleFunc("/auth/logout", authController.Logout).Methods("POST")

	// User routes
	users := router.PathPrefix("/users").Subrouter()
	users.Use(auth.Authenticate)
	users.HandleFunc("/profile", userController.UpdateProfile).Methods("PUT")
	users.HandleFunc("/favorites", userController.GetFavorites).Methods("GET")
	users.HandleFunc("/favorites/{productId}", userController.AddFavorite).Methods("POST")
	users.HandleFunc("/favorites/{productId}", userController.RemoveFavorite).Methods("DELETE")
	users.Handle("/admin/all", auth.RequireAdmin(http.HandlerFunc(userController.GetAllUsers))).Methods("GET")
	users.Handle("/admin/{id}/role", auth.RequireAdmin(http.HandlerFunc(userController.UpdateUserRole))).Methods("PATCH")

	// Address routes
	addresses := router.PathPrefix("/addresses").Subrouter()
	addresses.Use(auth.Authenticate)
	addresses.HandleFunc("", addressController.ListAddresses).Methods("GET")
	addresses.HandleFunc("", addressController.CreateAddress).Methods("POST")
	addresses.HandleFunc("/{id}", addressController.GetAddress).Methods("GET")
	addresses.HandleFunc("/{id}", addressController.UpdateAddress).Methods("PUT")
	addresses.HandleFunc("/{id}", addressController.DeleteAddress).Methods("DELETE")
	addresses.HandleFunc("/{id}/default", addressController.SetDefaultAddress).Methods("PATCH")

	// Product routes: public reads, admin writes
	router.HandleFunc("/products", productController.GetProducts).Methods("GET")
	router.HandleFunc("/products/{id}", productController.GetProductByID).Methods("GET")

	productsAdmin := router.PathPrefix("/products").Subrouter()
	productsAdmin.Use(auth.Authenticate)
	productsAdmin.Use(auth.RequireAdmin)
	productsAdmin.HandleFunc("", productController.CreateProduct).Methods("POST")
	productsAdmin.HandleFunc("/{id}", productController.UpdateProduct).Methods("PUT")
	productsAdmin.HandleFunc("/{id}", productController.DeleteProduct).Methods("DELETE")

	// Order routes. The admin listing registers before /{id} so mux does
	// not swallow "admin" as an order id.
	orders := router.PathPrefix("/orders").Subrouter()
	orders.Use(auth.Authenticate)
	orders.Handle("/admin/all", auth.RequireAdmin(http.HandlerFunc(orderController.GetAllOrders))).Methods("GET")
	orders.HandleFunc("", orderController.GetOrders).Methods("GET")
	orders.HandleFunc("", orderController.CreateOrder).Methods("POST")
	orders.HandleFunc("/{id}", orderController.GetOrder).Methods("GET")
	orders.Handle("/{id}/status", auth.RequireAdmin(http.HandlerFunc(orderController.UpdateOrderStatus))).Methods("PATCH")
}
