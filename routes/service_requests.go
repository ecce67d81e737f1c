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
	"fuel-dispatch-server/websocket"
)

// RegisterServiceRequestRoutes registers customer-facing request routes
func RegisterServiceRequestRoutes(router *gin.RouterGroup) {
	requests := router.Group("/requests")
	requests.Use(middleware.AuthMiddleware())
	{
		requests.POST("", createServiceRequest)
		requests.GET("/my", getMyRequests)
		requests.GET("/:id", getServiceRequest)
		requests.POST("/:id/cancel", cancelServiceRequest)
	}
}

// createServiceRequest quotes, gates and persists a new request, then
// announces it to role-matched workers.
func createServiceRequest(c *gin.Context) {
	var req models.ServiceRequestCreate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"message": err.Error(),
		})
		return
	}

	userVal, _ := c.Get("user")
	user := userVal.(models.User)

	kind := models.ServiceKind(req.Kind)
	if kind.IsFuel() && req.Litres <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Litres required",
			"message": "Fuel requests must specify litres",
		})
		return
	}

	if !utils.IsLocationValid(*req.LocationLat, *req.LocationLng) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid location",
			"message": "Coordinates are out of range",
		})
		return
	}

	var serviceType models.ServiceType
	if err := database.DB.Where("code = ?", kind).First(&serviceType).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Unknown service type",
			"message": "No price configured for this service",
		})
		return
	}

	now := time.Now()
	bill := services.ComputeQuote(services.QuoteInput{
		Kind:       kind,
		Litres:     req.Litres,
		UnitPrice:  serviceType.Amount,
		Now:        now,
		BadWeather: req.BadWeather,
	}, services.PricingParamsFromConfig())
	metrics.QuotesComputed.Inc()

	loc := utils.Location{Latitude: *req.LocationLat, Longitude: *req.LocationLng}
	paymentMethod := models.PaymentOnline
	if req.PaymentMethod == string(models.PaymentCOD) {
		paymentMethod = models.PaymentCOD
	}

	// Fuel orders need a reachable station before we take the request;
	// COD orders additionally pass the eligibility gate and reserve their
	// amount against the station's COD balance.
	var codStationID *uint
	if kind.IsFuel() {
		stations, err := loadStationsWithStock()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "Station lookup failed",
				"message": "Could not check fuel station coverage",
			})
			return
		}

		if paymentMethod == models.PaymentCOD {
			settings := loadCodSettings()
			decision := services.EvaluateCod(services.CodGateInput{
				User:        &user,
				OrderAmount: bill.Total,
				Location:    &loc,
				FuelType:    kind,
				Litres:      req.Litres,
				Stations:    stations,
				MaxRadiusKm: config.AppConfig.Dispatch.StationMaxRadiusKm,
				Now:         now,
			}, settings)
			if !decision.Allowed {
				metrics.CodDenials.WithLabelValues(decision.Reason).Inc()
				c.JSON(http.StatusForbidden, gin.H{
					"error":       "COD not available",
					"cod_allowed": false,
					"reason":      decision.Reason,
				})
				return
			}

			// hold the amount now so concurrent COD orders cannot
			// jointly exceed the station's balance limit
			reserved, err := services.ReserveCodBalance(database.DB, decision.StationID, bill.Total)
			if err != nil || !reserved {
				if err != nil {
					log.Printf("❌ COD reservation failed for station %d: %v", decision.StationID, err)
				}
				metrics.CodDenials.WithLabelValues(services.ReasonStationNoCod).Inc()
				c.JSON(http.StatusForbidden, gin.H{
					"error":       "COD not available",
					"cod_allowed": false,
					"reason":      services.ReasonStationNoCod,
				})
				return
			}
			codStationID = &decision.StationID
		} else {
			_, ok := services.SelectStation(stations, services.StationQuery{
				Location:    loc,
				FuelType:    kind,
				Litres:      req.Litres,
				MaxRadiusKm: config.AppConfig.Dispatch.StationMaxRadiusKm,
			})
			if !ok {
				c.JSON(http.StatusUnprocessableEntity, gin.H{
					"error":   "No fuel station available",
					"message": "No open station with enough stock serves this location",
				})
				return
			}
		}
	}

	if err := database.DB.Create(&bill).Error; err != nil {
		if codStationID != nil {
			services.ReleaseCodBalance(database.DB, *codStationID, bill.Total)
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Bill creation failed",
			"message": "Failed to persist the quote",
		})
		return
	}

	expiresAt := now.Add(time.Duration(config.AppConfig.Dispatch.RequestExpiryMin) * time.Minute)
	request := models.ServiceRequest{
		UserID:        user.ID,
		Kind:          kind,
		Litres:        req.Litres,
		VehicleNumber: req.VehicleNumber,
		PhoneNumber:   req.PhoneNumber,
		LocationLat:   req.LocationLat,
		LocationLng:   req.LocationLng,
		Status:        models.StatusPending,
		PaymentMethod: paymentMethod,
		CodStationID:  codStationID,
		BillID:        &bill.ID,
		ExpiresAt:     &expiresAt,
	}

	if err := database.DB.Create(&request).Error; err != nil {
		if codStationID != nil {
			services.ReleaseCodBalance(database.DB, *codStationID, bill.Total)
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Request creation failed",
			"message": "Failed to create the service request",
		})
		return
	}
	request.Bill = &bill

	metrics.RequestsCreated.WithLabelValues(string(kind), string(paymentMethod)).Inc()
	log.Printf("✅ Request %d created: %s for user %d, total %d", request.ID, kind, user.ID, bill.Total)

	if hub != nil {
		hub.BroadcastNewServiceRequest(string(models.RoleForKind(kind)), request)
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Service request created",
		"request": request,
		"bill":    bill,
	})
}

// getMyRequests lists the authenticated user's requests, newest first
func getMyRequests(c *gin.Context) {
	userID := c.GetUint("user_id")

	var requests []models.ServiceRequest
	if err := database.DB.Preload("Bill").Preload("AssignedWorker").Preload("AssignedStation").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(50).
		Find(&requests).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Query failed",
			"message": "Failed to load your requests",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"requests": requests})
}

// getServiceRequest returns one request, visible to its requester or the
// assigned worker
func getServiceRequest(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request ID"})
		return
	}
	userID := c.GetUint("user_id")

	var request models.ServiceRequest
	if err := database.DB.Preload("Bill").Preload("AssignedWorker").Preload("AssignedStation").
		First(&request, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Request not found"})
		return
	}

	if request.UserID != userID && !isAssignedWorker(&request, userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not your request"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"request": request})
}

// cancelServiceRequest lets the requester cancel any non-terminal request
func cancelServiceRequest(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request ID"})
		return
	}
	userID := c.GetUint("user_id")

	var request models.ServiceRequest
	if err := database.DB.Preload("Bill").First(&request, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Request not found"})
		return
	}

	if request.UserID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not your request"})
		return
	}

	if ok, reason := models.CanTransition(request.Status, models.StatusCancelled, models.ActorRequester); !ok {
		c.JSON(http.StatusConflict, gin.H{
			"error":  "Cannot cancel",
			"reason": string(reason),
		})
		return
	}

	now := time.Now()
	cancelled, err := services.CancelRequest(database.DB, request.ID, request.Status, "cancelled_by_requester")
	if err != nil || !cancelled {
		c.JSON(http.StatusConflict, gin.H{
			"error":   "Cancel failed",
			"message": "Request changed state, try again",
		})
		return
	}

	if err := services.ReleaseCodReservation(database.DB, &request); err != nil {
		log.Printf("❌ Failed to release COD reservation for request %d: %v", request.ID, err)
	}

	// free the worker if one was holding the job
	if request.AssignedWorkerID != nil {
		if err := services.ReleaseWorker(database.DB, *request.AssignedWorkerID); err != nil {
			log.Printf("❌ Failed to release worker %d: %v", *request.AssignedWorkerID, err)
		}
		tracker.Untrack(*request.AssignedWorkerID)
		store.InvalidateAssignment(c.Request.Context(), request.ID)
		metrics.ActiveMonitors.Set(float64(tracker.ActiveCount()))
		if hub != nil {
			notifyWorkerUser(*request.AssignedWorkerID, &websocket.Message{
				Type:      "request_cancelled",
				Timestamp: now,
				Data:      gin.H{"request_id": request.ID},
			})
		}
	}

	metrics.Cancellations.WithLabelValues(string(models.ActorRequester)).Inc()
	log.Printf("✅ Request %d cancelled by requester %d", request.ID, userID)

	c.JSON(http.StatusOK, gin.H{"message": "Request cancelled"})
}

// isAssignedWorker reports whether userID owns the worker profile assigned
// to the request
func isAssignedWorker(request *models.ServiceRequest, userID uint) bool {
	if request.AssignedWorkerID == nil {
		return false
	}
	var worker models.Worker
	if err := database.DB.First(&worker, *request.AssignedWorkerID).Error; err != nil {
		return false
	}
	return worker.UserID == userID
}

// notifyWorkerUser sends a hub message to the user behind a worker profile
func notifyWorkerUser(workerID uint, msg *websocket.Message) {
	var worker models.Worker
	if err := database.DB.First(&worker, workerID).Error; err != nil {
		return
	}
	hub.SendToUser(worker.UserID, msg)
}

// loadStationsWithStock loads all stations with their stock rows
func loadStationsWithStock() ([]models.FuelStation, error) {
	var stations []models.FuelStation
	err := database.DB.Preload("Stock").Find(&stations).Error
	return stations, err
}

// loadCodSettings returns the COD policy row, falling back to defaults
func loadCodSettings() models.CodSettings {
	var settings models.CodSettings
	if err := database.DB.First(&settings, 1).Error; err != nil {
		return models.DefaultCodSettings()
	}
	return settings
}
