package routes

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"fuel-dispatch-server/config"
	"fuel-dispatch-server/database"
	"fuel-dispatch-server/middleware"
	"fuel-dispatch-server/models"
	"fuel-dispatch-server/services"
	"fuel-dispatch-server/utils"
)

// RegisterStationRoutes registers fuel station routes
func RegisterStationRoutes(router *gin.RouterGroup) {
	stations := router.Group("/stations")
	stations.Use(middleware.AuthMiddleware())
	{
		stations.GET("/nearest", getNearestStation)

		owner := stations.Group("")
		owner.Use(middleware.RequireRole(models.RoleStation))
		{
			owner.POST("", createStation)
			owner.PUT("/stock", updateStock)
			owner.PUT("/cod-settings", updateStationCodSettings)
			owner.PUT("/open", setStationOpen)
		}
	}
}

// stationForUser loads the station profile behind the authenticated user
func stationForUser(c *gin.Context) (*models.FuelStation, bool) {
	userID := c.GetUint("user_id")
	var station models.FuelStation
	if err := database.DB.Where("user_id = ?", userID).First(&station).Error; err != nil {
		c.JSON(http.StatusForbidden, gin.H{
			"error":   "Station profile required",
			"message": "Create a station profile first",
		})
		return nil, false
	}
	return &station, true
}

// createStation registers a fuel station for the authenticated user
func createStation(c *gin.Context) {
	var req models.StationCreateRequest
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

	userID := c.GetUint("user_id")
	var existing models.FuelStation
	if err := database.DB.Where("user_id = ?", userID).First(&existing).Error; err == nil {
		c.JSON(http.StatusConflict, gin.H{
			"error":   "Station exists",
			"message": "A station is already registered for this account",
		})
		return
	}

	station := models.FuelStation{
		UserID:    userID,
		Name:      req.Name,
		Latitude:  *req.Latitude,
		Longitude: *req.Longitude,
		IsOpen:    true,
	}
	if err := database.DB.Create(&station).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Station creation failed",
			"message": "Failed to register the station",
		})
		return
	}

	log.Printf("✅ Station %d (%s) registered by user %d", station.ID, station.Name, userID)
	c.JSON(http.StatusCreated, gin.H{"station": station})
}

// updateStock sets the station's stock level for one fuel type
func updateStock(c *gin.Context) {
	var req models.StockUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"message": err.Error(),
		})
		return
	}

	station, ok := stationForUser(c)
	if !ok {
		return
	}

	stock := models.FuelStock{
		StationID:   station.ID,
		FuelType:    models.ServiceKind(req.FuelType),
		StockLitres: req.StockLitres,
	}
	// upsert on (station, fuel type)
	result := database.DB.Model(&models.FuelStock{}).
		Where("station_id = ? AND fuel_type = ?", station.ID, stock.FuelType).
		Update("stock_litres", req.StockLitres)
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Stock update failed",
			"message": "Failed to update stock",
		})
		return
	}
	if result.RowsAffected == 0 {
		if err := database.DB.Create(&stock).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "Stock update failed",
				"message": "Failed to record stock",
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"message": "Stock updated", "stock": stock})
}

// updateStationCodSettings updates the station's cash acceptance policy
func updateStationCodSettings(c *gin.Context) {
	var req models.StationCodSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"message": err.Error(),
		})
		return
	}

	station, ok := stationForUser(c)
	if !ok {
		return
	}

	updates := map[string]interface{}{}
	if req.CodEnabled != nil {
		updates["cod_enabled"] = *req.CodEnabled
	}
	if req.CodBalanceLimit != nil {
		updates["cod_balance_limit"] = *req.CodBalanceLimit
	}
	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Nothing to update"})
		return
	}

	if err := database.DB.Model(&models.FuelStation{}).
		Where("id = ?", station.ID).
		Updates(updates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Update failed",
			"message": "Failed to update COD settings",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "COD settings updated"})
}

// setStationOpen toggles the station open/closed
func setStationOpen(c *gin.Context) {
	var req struct {
		IsOpen *bool `json:"is_open" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"message": err.Error(),
		})
		return
	}

	station, ok := stationForUser(c)
	if !ok {
		return
	}

	if err := database.DB.Model(&models.FuelStation{}).
		Where("id = ?", station.ID).
		Update("is_open", *req.IsOpen).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Update failed",
			"message": "Failed to update the station",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Station updated", "is_open": *req.IsOpen})
}

// getNearestStation returns the nearest eligible station for a fuel order
func getNearestStation(c *gin.Context) {
	lat, latErr := strconv.ParseFloat(c.Query("latitude"), 64)
	lng, lngErr := strconv.ParseFloat(c.Query("longitude"), 64)
	if latErr != nil || lngErr != nil || !utils.IsLocationValid(lat, lng) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid location",
			"message": "latitude and longitude query parameters are required",
		})
		return
	}

	litres, _ := strconv.ParseFloat(c.Query("litres"), 64)
	kind := models.ServiceKind(c.DefaultQuery("fuel_type", string(models.KindPetrol)))
	if !kind.IsFuel() {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid fuel type",
			"message": "fuel_type must be petrol or diesel",
		})
		return
	}

	stations, err := loadStationsWithStock()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Station lookup failed",
			"message": "Could not load fuel stations",
		})
		return
	}

	loc := utils.Location{Latitude: lat, Longitude: lng}
	station, ok := services.SelectStation(stations, services.StationQuery{
		Location:    loc,
		FuelType:    kind,
		Litres:      litres,
		MaxRadiusKm: config.AppConfig.Dispatch.StationMaxRadiusKm,
	})
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "No station found",
			"message": "No open station with enough stock serves this location",
		})
		return
	}

	dist := utils.DistanceKm(loc, utils.Location{Latitude: station.Latitude, Longitude: station.Longitude})
	c.JSON(http.StatusOK, gin.H{
		"station":     station,
		"distance_km": dist,
	})
}
