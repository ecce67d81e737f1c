package routes

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"fuel-dispatch-server/config"
	"fuel-dispatch-server/database"
	"fuel-dispatch-server/metrics"
	"fuel-dispatch-server/middleware"
	"fuel-dispatch-server/models"
	"fuel-dispatch-server/services"
	"fuel-dispatch-server/utils"
)

// RegisterPaymentRoutes registers quote and COD eligibility routes
func RegisterPaymentRoutes(router *gin.RouterGroup) {
	payment := router.Group("/payment")
	payment.Use(middleware.AuthMiddleware())
	{
		payment.GET("/quote", getQuote)
		payment.GET("/cod-eligibility", getCodEligibility)
	}
}

// getQuote prices a prospective request without persisting anything
func getQuote(c *gin.Context) {
	kind := models.ServiceKind(c.Query("kind"))
	if !kind.IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid kind",
			"message": "kind must be one of petrol, diesel, crane, mechanic_bike, mechanic_car",
		})
		return
	}

	litres, _ := strconv.ParseFloat(c.Query("litres"), 64)
	if kind.IsFuel() && litres <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Litres required",
			"message": "Fuel quotes need litres > 0",
		})
		return
	}
	badWeather := c.Query("bad_weather") == "true"

	var serviceType models.ServiceType
	if err := database.DB.Where("code = ?", kind).First(&serviceType).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Unknown service type",
			"message": "No price configured for this service",
		})
		return
	}

	bill := services.ComputeQuote(services.QuoteInput{
		Kind:       kind,
		Litres:     litres,
		UnitPrice:  serviceType.Amount,
		Now:        time.Now(),
		BadWeather: badWeather,
	}, services.PricingParamsFromConfig())
	metrics.QuotesComputed.Inc()

	c.JSON(http.StatusOK, gin.H{"quote": bill})
}

// getCodEligibility runs the COD gate for the authenticated user at a
// location. Any infrastructure failure denies with server_error: cash
// risk fails closed.
func getCodEligibility(c *gin.Context) {
	userVal, _ := c.Get("user")
	user := userVal.(models.User)

	lat, latErr := strconv.ParseFloat(c.Query("latitude"), 64)
	lng, lngErr := strconv.ParseFloat(c.Query("longitude"), 64)
	amount, _ := strconv.Atoi(c.Query("order_amount"))
	litres, _ := strconv.ParseFloat(c.Query("litres"), 64)
	kind := models.ServiceKind(c.DefaultQuery("kind", string(models.KindPetrol)))

	var loc *utils.Location
	if latErr == nil && lngErr == nil {
		loc = &utils.Location{Latitude: lat, Longitude: lng}
	}

	stations, err := loadStationsWithStock()
	if err != nil {
		log.Printf("❌ COD eligibility: station load failed: %v", err)
		metrics.CodDenials.WithLabelValues(services.ReasonServerError).Inc()
		c.JSON(http.StatusOK, gin.H{
			"cod_allowed": false,
			"reason":      services.ReasonServerError,
		})
		return
	}

	decision := services.EvaluateCod(services.CodGateInput{
		User:        &user,
		OrderAmount: amount,
		Location:    loc,
		FuelType:    kind,
		Litres:      litres,
		Stations:    stations,
		MaxRadiusKm: config.AppConfig.Dispatch.StationMaxRadiusKm,
		Now:         time.Now(),
	}, loadCodSettings())

	if !decision.Allowed {
		metrics.CodDenials.WithLabelValues(decision.Reason).Inc()
	}

	c.JSON(http.StatusOK, decision)
}
