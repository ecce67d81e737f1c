package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"fuel-dispatch-server/cache"
	"fuel-dispatch-server/config"
	"fuel-dispatch-server/database"
	"fuel-dispatch-server/jobs"
	"fuel-dispatch-server/middleware"
	"fuel-dispatch-server/models"
	"fuel-dispatch-server/routes"
	"fuel-dispatch-server/tracking"
	"fuel-dispatch-server/utils"
	ws "fuel-dispatch-server/websocket"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	// Load configuration
	config.Load()

	// Initialize database
	if err := database.Initialize(); err != nil {
		log.Fatal("Failed to initialize database:", err)
	}

	// Optional demo fixtures for local development
	if os.Getenv("SEED_DEMO") == "true" {
		if err := seedDemoData(); err != nil {
			log.Printf("❌ Demo seed failed: %v", err)
		}
	}

	// Assignment cache and worker geo index (optional)
	store := cache.Connect(
		config.AppConfig.Redis.Addr,
		config.AppConfig.Redis.Password,
		config.AppConfig.Redis.DB,
		30*time.Minute,
	)
	defer store.Close()

	// Movement tracking registry for active fuel deliveries
	tracker := tracking.NewRegistry()
	defer tracker.StopAll()

	// Realtime hub
	hub := ws.NewHub()
	go hub.Run()

	// Worker position reports arriving over the socket flow into the same
	// pipeline as the HTTP ping endpoint
	hub.LocationSink = func(workerUserID uint, lat, lng float64, at time.Time) {
		if !utils.IsLocationValid(lat, lng) {
			return
		}
		var worker models.Worker
		if err := database.DB.Where("user_id = ?", workerUserID).First(&worker).Error; err != nil {
			return
		}
		if err := database.DB.Model(&models.Worker{}).
			Where("id = ?", worker.ID).
			Updates(map[string]interface{}{
				"current_lat":          lat,
				"current_lng":          lng,
				"last_location_update": at,
			}).Error; err != nil {
			log.Printf("❌ Failed to store socket location for worker %d: %v", worker.ID, err)
			return
		}
		tracker.ReportPosition(worker.ID, utils.Location{Latitude: lat, Longitude: lng}, at)
		store.UpdateWorkerPosition(context.Background(), worker.ID, lat, lng)
	}

	// Set Gin mode
	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	router.RedirectTrailingSlash = false
	router.RedirectFixedPath = false

	router.Use(middleware.SecurityHeadersMiddleware())
	router.Use(middleware.InputValidationMiddleware())
	router.Use(middleware.RateLimitMiddleware())
	router.Use(middleware.AuditLogMiddleware())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"http://localhost:3000", "http://localhost:8081"}
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		corsConfig.AllowOrigins = append(corsConfig.AllowOrigins, origins)
	}
	corsConfig.AllowCredentials = true
	corsConfig.AddAllowHeaders("Authorization")
	router.Use(cors.New(corsConfig))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Fuel Dispatch Server is running",
			"time":    time.Now().UTC(),
		})
	})

	// Prometheus scrape endpoint
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API routes
	routes.RegisterRoutes(router, hub, tracker, store)

	// Background jobs
	expirationJob := jobs.NewExpirationJob()
	expirationJob.Start()
	defer expirationJob.Stop()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("🚀 Server starting on port %s", port)
	if err := router.Run("0.0.0.0:" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
