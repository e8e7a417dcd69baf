package main

import (
	"context"
	"log"
	"net/http"
	"os"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"

	"organic-grocery/config"
	"organic-grocery/controllers"
	"organic-grocery/middleware"
	"organic-grocery/routes"
	"organic-grocery/utils"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found. Proceeding with environment variables.")
	}

	cfg := config.Load()

	// Initialize EmailService
	emailService := utils.NewEmailService(cfg.PostmarkToken, cfg.EmailFrom)

	// Connect to MongoDB
	client := utils.ConnectDB(cfg.MongoURI)
	defer func() {
		if err := client.Disconnect(context.TODO()); err != nil {
			log.Fatal(err)
		}
	}()

	// Middleware
	auth := middleware.NewAuthMiddleware(client, cfg.MongoDB, cfg.JWTSecret)
	limiter := middleware.NewRateLimiter(cfg.RedisAddr)

	// Initialize controllers
	authController := controllers.NewAuthController(client, emailService, cfg)
	userController := controllers.NewUserController(client, cfg.MongoDB)
	addressController := controllers.NewAddressController(client, cfg.MongoDB)
	productController := controllers.NewProductController(client, cfg.MongoDB)
	orderController := controllers.NewOrderController(client, cfg.MongoDB, emailService)

	// Set up the router
	router := mux.NewRouter()
	routes.RegisterRoutes(router, auth, limiter,
		authController, userController, addressController, productController, orderController)

	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{cfg.FrontendURL}),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)
	handler := handlers.LoggingHandler(os.Stdout, cors(router))

	log.Printf("Server is running on port %s", cfg.Port)
	log.Fatal(http.ListenAndServe(":"+cfg.Port, handler))
}
