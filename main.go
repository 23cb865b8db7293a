package main

import (
	"log"
	"os"

	"github.com/founderhq/huddle_backend/controllers"
	"github.com/founderhq/huddle_backend/database"
	"github.com/founderhq/huddle_backend/docs"
	"github.com/founderhq/huddle_backend/middleware"
	"github.com/founderhq/huddle_backend/reaper"
	"github.com/founderhq/huddle_backend/websocket"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Huddle API
// @version         1.0
// @description     Signaling and messaging backend for FounderHQ huddles
// @host            localhost:5001
// @BasePath        /
// @schemes         http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	// Initialize database
	database.Connect()
	database.Migrate()

	// Set up Swagger info
	docs.SwaggerInfo.Title = "Huddle API"
	docs.SwaggerInfo.Description = "Signaling and messaging backend for FounderHQ huddles"
	docs.SwaggerInfo.Version = "1.0"
	docs.SwaggerInfo.Host = "localhost:" + os.Getenv("PORT")
	if docs.SwaggerInfo.Host == "localhost:" {
		docs.SwaggerInfo.Host = "localhost:5001"
	}
	docs.SwaggerInfo.BasePath = "/"
	docs.SwaggerInfo.Schemes = []string{"http"}

	// Set up router
	router := gin.Default()

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Room routes
	rooms := router.Group("/rooms")
	rooms.Use(middleware.JWTAuth())
	{
		rooms.POST("/create", controllers.CreateRoom)
		rooms.GET("/:code", controllers.GetRoom)
		rooms.POST("/:code/join", controllers.JoinRoom)
		rooms.POST("/:code/end", controllers.EndRoom)
	}

	// Messaging routes
	messages := router.Group("/messages")
	messages.Use(middleware.JWTAuth())
	{
		messages.GET("/conversations", controllers.GetConversations)
		messages.POST("/conversations", controllers.CreateConversation)
		messages.GET("/conversations/:id/messages", controllers.GetConversationMessages)
	}

	// WebSocket route (token validated before upgrade)
	router.GET("/ws", websocket.HandleConnection)

	// Background sweep of inactive rooms
	r := reaper.NewFromEnv()
	r.Start()
	defer r.Stop()

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "5001"
	}

	log.Printf("Huddle service running on port %s", port)
	log.Printf("Swagger documentation available at http://localhost:%s/swagger/index.html", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
