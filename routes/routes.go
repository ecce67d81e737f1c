package routes

import (
	"github.com/gin-gonic/gin"

	"fuel-dispatch-server/cache"
	"fuel-dispatch-server/middleware"
	"fuel-dispatch-server/tracking"
	"fuel-dispatch-server/websocket"
)

// Shared server-level dependencies, set once at startup.
var (
	hub     *websocket.Hub
	tracker *tracking.Registry
	store   *cache.Store
)

// RegisterRoutes registers all API routes
func RegisterRoutes(router *gin.Engine, h *websocket.Hub, reg *tracking.Registry, s *cache.Store) {
	hub = h
	tracker = reg
	store = s

	apiV1 := router.Group("/api/v1")
	{
		auth := apiV1.Group("/auth")
		auth.Use(middleware.AuthRateLimitMiddleware())
		{
			auth.POST("/register", register)
			auth.POST("/login", login)
		}
		apiV1.GET("/auth/me", middleware.AuthMiddleware(), getCurrentUser)

		RegisterServiceRequestRoutes(apiV1)
		RegisterWorkerRoutes(apiV1)
		RegisterLocationRoutes(apiV1)
		RegisterPaymentRoutes(apiV1)
		RegisterStationRoutes(apiV1)
		RegisterAdminRoutes(apiV1)
		RegisterWebSocketRoutes(apiV1)
	}
}
