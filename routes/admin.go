package routes

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"fuel-dispatch-server/database"
	"fuel-dispatch-server/middleware"
	"fuel-dispatch-server/models"
)

// RegisterAdminRoutes registers administrative routes
func RegisterAdminRoutes(router *gin.RouterGroup) {
	admin := router.Group("/admin")
	admin.Use(middleware.AuthMiddleware(), middleware.RequireRole(models.RoleAdmin))
	{
		admin.GET("/cod-settings", getCodSettings)
		admin.PUT("/cod-settings", updateCodSettings)
		admin.GET("/service-types", getServiceTypes)
		admin.PUT("/service-types/:code", updateServiceType)
		admin.POST("/stations/:id/verify", verifyStation)
		admin.POST("/workers/:id/verify", verifyWorker)
		admin.POST("/workers/:id/lock", lockWorker)
		admin.POST("/workers/:id/unlock", unlockWorker)
		admin.GET("/users/cod-flagged", listCodFlaggedUsers)
		admin.POST("/users/:id/cod-reset", resetUserCod)
		admin.POST("/users/:id/cod-suspend", suspendUserCod)
		admin.GET("/workers/nearby", getNearbyWorkers)
	}
}

// getNearbyWorkers lists workers within a radius of a point, served from
// the Redis geo index when available
func getNearbyWorkers(c *gin.Context) {
	lat, latErr := strconv.ParseFloat(c.Query("latitude"), 64)
	lng, lngErr := strconv.ParseFloat(c.Query("longitude"), 64)
	if latErr != nil || lngErr != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid location",
			"message": "latitude and longitude query parameters are required",
		})
		return
	}
	radiusKm, err := strconv.ParseFloat(c.DefaultQuery("radius_km", "10"), 64)
	if err != nil || radiusKm <= 0 {
		radiusKm = 10
	}

	if !store.Enabled() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "Geo index unavailable",
			"message": "Worker position index requires Redis",
		})
		return
	}

	members := store.WorkersNear(c.Request.Context(), lat, lng, radiusKm)
	c.JSON(http.StatusOK, gin.H{"workers": members, "radius_km": radiusKm})
}

// getCodSettings returns the platform COD policy
func getCodSettings(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"cod_settings": loadCodSettings()})
}

// updateCodSettings changes the platform COD policy
func updateCodSettings(c *gin.Context) {
	var req models.CodSettingsUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"message": err.Error(),
		})
		return
	}

	settings := loadCodSettings()
	if req.CodLimit != nil {
		settings.CodLimit = *req.CodLimit
	}
	if req.TrustThreshold != nil {
		settings.TrustThreshold = *req.TrustThreshold
	}
	if req.MaxFailures != nil {
		settings.MaxFailures = *req.MaxFailures
	}
	if req.DisableDays != nil {
		settings.DisableDays = *req.DisableDays
	}
	settings.ID = 1

	if err := database.DB.Save(&settings).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Update failed",
			"message": "Failed to persist COD settings",
		})
		return
	}

	log.Printf("✅ COD settings updated: limit=%d trust=%.1f failures=%d days=%d",
		settings.CodLimit, settings.TrustThreshold, settings.MaxFailures, settings.DisableDays)
	c.JSON(http.StatusOK, gin.H{"cod_settings": settings})
}

// getServiceTypes lists the service price table
func getServiceTypes(c *gin.Context) {
	var types []models.ServiceType
	if err := database.DB.Order("id").Find(&types).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Query failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"service_types": types})
}

// updateServiceType changes one entry of the price table
func updateServiceType(c *gin.Context) {
	kind := models.ServiceKind(c.Param("code"))
	if !kind.IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown service type"})
		return
	}

	var req struct {
		Amount int `json:"amount" binding:"required,gt=0"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"message": err.Error(),
		})
		return
	}

	result := database.DB.Model(&models.ServiceType{}).
		Where("code = ?", kind).
		Update("amount", req.Amount)
	if result.Error != nil || result.RowsAffected == 0 {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Update failed"})
		return
	}

	log.Printf("✅ Service type %s price set to %d", kind, req.Amount)
	c.JSON(http.StatusOK, gin.H{"message": "Price updated"})
}

// verifyStation marks a station verified so it becomes selectable
func verifyStation(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid station ID"})
		return
	}

	result := database.DB.Model(&models.FuelStation{}).
		Where("id = ?", id).
		Update("is_verified", true)
	if result.Error != nil || result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Station not found"})
		return
	}

	log.Printf("✅ Station %d verified", id)
	c.JSON(http.StatusOK, gin.H{"message": "Station verified"})
}

// verifyWorker marks a worker verified so they can accept jobs
func verifyWorker(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid worker ID"})
		return
	}

	result := database.DB.Model(&models.Worker{}).
		Where("id = ?", id).
		Update("is_verified", true)
	if result.Error != nil || result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Worker not found"})
		return
	}

	log.Printf("✅ Worker %d verified", id)
	c.JSON(http.StatusOK, gin.H{"message": "Worker verified"})
}

// lockWorker freezes a worker's availability
func lockWorker(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid worker ID"})
		return
	}

	var req struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&req)

	result := database.DB.Model(&models.Worker{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status_locked": true,
			"lock_reason":   req.Reason,
			"status":        models.WorkerOffline,
		})
	if result.Error != nil || result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Worker not found"})
		return
	}

	log.Printf("🛑 Worker %d locked: %s", id, req.Reason)
	c.JSON(http.StatusOK, gin.H{"message": "Worker locked"})
}

// unlockWorker releases an administrative lock
func unlockWorker(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid worker ID"})
		return
	}

	result := database.DB.Model(&models.Worker{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status_locked": false,
			"lock_reason":   "",
		})
	if result.Error != nil || result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Worker not found"})
		return
	}

	log.Printf("✅ Worker %d unlocked", id)
	c.JSON(http.StatusOK, gin.H{"message": "Worker unlocked"})
}

// resetUserCod clears a user's COD failure history
// listCodFlaggedUsers returns users that are suspended from COD or
// carry recorded COD failures
func listCodFlaggedUsers(c *gin.Context) {
	var users []models.User
	if err := database.DB.
		Where("cod_disabled = ? OR cod_failure_count > 0", true).
		Order("cod_failure_count DESC").
		Limit(200).
		Find(&users).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Query failed",
			"message": "Failed to load COD flagged users",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"users": users, "count": len(users)})
}

func resetUserCod(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	result := database.DB.Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"cod_failure_count":       0,
			"cod_disabled":            false,
			"cod_disabled_until":      nil,
			"cod_last_failure_reason": "",
		})
	if result.Error != nil || result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	log.Printf("✅ COD history reset for user %d", id)
	c.JSON(http.StatusOK, gin.H{"message": "COD history reset"})
}

// suspendUserCod disables COD for a user for the configured window
func suspendUserCod(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	var req struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&req)

	settings := loadCodSettings()
	until := time.Now().AddDate(0, 0, settings.DisableDays)

	result := database.DB.Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"cod_disabled":            true,
			"cod_disabled_until":      until,
			"cod_last_failure_reason": req.Reason,
		})
	if result.Error != nil || result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	log.Printf("🛑 COD suspended for user %d until %s", id, until.Format(time.RFC3339))
	c.JSON(http.StatusOK, gin.H{"message": "COD suspended", "until": until})
}
