package routes

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"fuel-dispatch-server/database"
	"fuel-dispatch-server/middleware"
	"fuel-dispatch-server/models"
	"fuel-dispatch-server/utils"
)

// RegisterLocationRoutes registers worker position reporting routes
func RegisterLocationRoutes(router *gin.RouterGroup) {
	location := router.Group("/location")
	location.Use(middleware.AuthMiddleware(), middleware.RequireRole(models.RoleWorker))
	{
		location.POST("/update", updateLocation)
	}
}

// updateLocation persists a worker position ping and feeds it to the
// movement monitor and the geo index
func updateLocation(c *gin.Context) {
	var req models.LocationUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"message": err.Error(),
		})
		return
	}

	if !utils.IsLocationValid(*req.Latitude, *req.Longitude) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid location",
			"message": "Coordinates are out of range",
		})
		return
	}

	worker, ok := workerForUser(c)
	if !ok {
		return
	}

	now := time.Now()
	if err := database.DB.Model(&models.Worker{}).
		Where("id = ?", worker.ID).
		Updates(map[string]interface{}{
			"current_lat":          *req.Latitude,
			"current_lng":          *req.Longitude,
			"last_location_update": now,
		}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Update failed",
			"message": "Failed to store your location",
		})
		return
	}

	pos := utils.Location{Latitude: *req.Latitude, Longitude: *req.Longitude}
	tracker.ReportPosition(worker.ID, pos, now)
	store.UpdateWorkerPosition(c.Request.Context(), worker.ID, *req.Latitude, *req.Longitude)

	c.JSON(http.StatusOK, gin.H{"message": "Location updated"})
}
