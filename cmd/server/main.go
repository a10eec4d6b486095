package main

import (
	"log"
	"net/http"
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/Kanata-T/exam-prep-backend/internal/config"
	"github.com/Kanata-T/exam-prep-backend/internal/handlers"
	"github.com/Kanata-T/exam-prep-backend/internal/services"
	"github.com/Kanata-T/exam-prep-backend/internal/store"
)

func main() {
	// Load .env file if it exists (must be done before reading config)
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded .env file")
	}

	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	cfg, err := config.GetConfig()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	client := store.New(cfg.StoreURL, cfg.StoreKey)

	userManager := services.NewUserManager(client)
	sessionManager := services.NewSessionManager(client)
	historyManager := services.NewHistoryManager(client)
	analyticsManager := services.NewAnalyticsManager(client)
	typeCache := services.NewTypeCache(client)

	handler := handlers.NewHandler(userManager, sessionManager, historyManager, analyticsManager, typeCache)

	r := gin.Default()

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.FrontendURL}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	r.Use(cors.New(corsConfig))

	api := r.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"status":  "healthy",
				"message": "exam-prep API is running",
			})
		})

		api.POST("/users", handler.CreateOrGetUser)
		api.PUT("/users/:id/last-active", handler.UpdateLastActive)
		api.GET("/users/:id/preferences", handler.GetPreferences)
		api.PUT("/users/:id/preferences", handler.UpdatePreferences)

		api.POST("/sessions", handler.StartSession)
		api.POST("/sessions/:id/complete", handler.CompleteSession)
		api.POST("/sessions/:id/abandon", handler.AbandonSession)
		api.POST("/sessions/:id/inputs", handler.SaveInputs)
		api.POST("/sessions/:id/scores", handler.SaveScores)
		api.POST("/sessions/:id/feedback", handler.SaveFeedback)

		api.GET("/users/:id/history", handler.GetHistory)
		api.DELETE("/users/:id/history", handler.DeleteHistory)
		api.GET("/users/:id/statistics", handler.GetStatistics)
		api.GET("/users/:id/score-trends", handler.GetScoreTrends)
		api.GET("/users/:id/category-performance", handler.GetCategoryPerformance)

		api.GET("/practice-types", handler.GetPracticeTypes)
	}

	log.Printf("Server starting on %s:%s", cfg.ServerHost, cfg.ServerPort)
	log.Printf("Store URL: %s", cfg.StoreURL)
	log.Printf("Frontend URL: %s", cfg.FrontendURL)

	if err := r.Run(cfg.ServerHost + ":" + cfg.ServerPort); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
