package routes

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"fuel-dispatch-server/cache"
	"fuel-dispatch-server/config"
	"fuel-dispatch-server/database"
	"fuel-dispatch-server/metrics"
	"fuel-dispatch-server/middleware"
	"fuel-dispatch-server/models"
	"fuel-dispatch-server/services"
	"fuel-dispatch-server/tracking"
	"fuel-dispatch-server/utils"
	"fuel-dispatch-server/websocket"
)

// RegisterWorkerRoutes registers worker-facing routes
func RegisterWorkerRoutes(router *gin.RouterGroup) {
	worker := router.Group("/worker")
	worker.Use(middleware.AuthMiddleware(), middleware.RequireRole(models.RoleWorker))
	{
		worker.POST("/profile", createWorkerProfile)
		worker.PUT("/status", updateWorkerStatus)
		worker.GET("/requests", getAvailableRequests)
		worker.POST("/requests/:id/accept", acceptRequest)
		worker.POST("/requests/:id/start", startRequest)
		worker.POST("/requests/:id/complete", completeRequest)
		worker.POST("/requests/:id/cancel", workerCancelRequest)
	}
}

var errNoStation = errors.New("no eligible fuel station")

// cacheReuseMeters is how close the worker must be to the coordinate
// behind a cached station choice for the cache to count.
const cacheReuseMeters = 500

// cachedEligibleStation returns the cached station for the request when
// the worker has barely moved since the choice and the station still
// passes the selection filters. Nil means select from scratch.
func cachedEligibleStation(requestID uint, pos utils.Location, stations []models.FuelStation, query services.StationQuery) *models.FuelStation {
	cached, ok := store.GetAssignment(context.Background(), requestID)
	if !ok {
		return nil
	}
	anchor := utils.Location{Latitude: cached.WorkerLat, Longitude: cached.WorkerLng}
	if utils.DistanceMeters(pos, anchor) > cacheReuseMeters {
		return nil
	}
	for i := range stations {
		if stations[i].ID != cached.StationID {
			continue
		}
		only := stations[i : i+1]
		if s, ok := services.SelectStation(only, query); ok {
			return s
		}
		return nil
	}
	return nil
}

// discountOwnReservation subtracts the request's own COD hold from the
// reserved station's balance in the loaded snapshot, so selection does
// not count the order against itself.
func discountOwnReservation(stations []models.FuelStation, reservedID *uint, amount int) {
	if reservedID == nil || amount == 0 {
		return
	}
	for i := range stations {
		if stations[i].ID == *reservedID {
			stations[i].CodBalance -= amount
			if stations[i].CodBalance < 0 {
				stations[i].CodBalance = 0
			}
			return
		}
	}
}

// moveCodReservation shifts a COD hold to a newly selected station. The
// new station is reserved before the old hold is released, so the hold is
// never lost; on failure the reservation stays where it was. Returns the
// station now holding the hold.
func moveCodReservation(requestID uint, reservedID *uint, newStationID uint, amount int) *uint {
	if amount == 0 || (reservedID != nil && *reservedID == newStationID) {
		return reservedID
	}
	ok, err := services.ReserveCodBalance(database.DB, newStationID, amount)
	if err != nil || !ok {
		log.Printf("⚠️ Could not move COD hold for request %d to station %d", requestID, newStationID)
		return reservedID
	}
	if reservedID != nil {
		if err := services.ReleaseCodBalance(database.DB, *reservedID, amount); err != nil {
			log.Printf("❌ Failed to release COD hold on station %d: %v", *reservedID, err)
		}
	}
	if err := database.DB.Model(&models.ServiceRequest{}).
		Where("id = ?", requestID).
		Update("cod_station_id", newStationID).Error; err != nil {
		log.Printf("❌ Failed to persist COD hold move for request %d: %v", requestID, err)
	}
	id := newStationID
	return &id
}

// storeAssignment builds the cache record for a station choice
func storeAssignment(stationID uint, pos utils.Location) cache.CachedAssignment {
	return cache.CachedAssignment{
		StationID:  stationID,
		WorkerLat:  pos.Latitude,
		WorkerLng:  pos.Longitude,
		AssignedAt: time.Now(),
	}
}

// workerForUser loads the worker profile behind the authenticated user
func workerForUser(c *gin.Context) (*models.Worker, bool) {
	userID := c.GetUint("user_id")
	var worker models.Worker
	if err := database.DB.Where("user_id = ?", userID).First(&worker).Error; err != nil {
		c.JSON(http.StatusForbidden, gin.H{
			"error":   "Worker profile required",
			"message": "Create a worker profile first",
		})
		return nil, false
	}
	return &worker, true
}

// createWorkerProfile creates the worker profile for the authenticated user
func createWorkerProfile(c *gin.Context) {
	var req models.WorkerProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"message": err.Error(),
		})
		return
	}

	userID := c.GetUint("user_id")

	var existing models.Worker
	if err := database.DB.Where("user_id = ?", userID).First(&existing).Error; err == nil {
		c.JSON(http.StatusConflict, gin.H{
			"error":   "Profile exists",
			"message": "Worker profile already created",
		})
		return
	}

	worker := models.Worker{
		UserID:           userID,
		Role:             models.WorkerRole(req.Role),
		Status:           models.WorkerOffline,
		BasePay:          req.BasePay,
		PerKmRate:        req.PerKmRate,
		MinGuarantee:     req.MinGuarantee,
		FloaterCashLimit: req.FloaterCashLimit,
	}
	if err := database.DB.Create(&worker).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Profile creation failed",
			"message": "Failed to create worker profile",
		})
		return
	}

	log.Printf("✅ Worker profile %d created for user %d (%s)", worker.ID, userID, worker.Role)
	c.JSON(http.StatusCreated, gin.H{"worker": worker})
}

// updateWorkerStatus flips the worker between Available and Offline
func updateWorkerStatus(c *gin.Context) {
	var req models.WorkerStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"message": err.Error(),
		})
		return
	}

	worker, ok := workerForUser(c)
	if !ok {
		return
	}

	if worker.StatusLocked {
		c.JSON(http.StatusForbidden, gin.H{
			"error":   "Status locked",
			"message": "An administrator has locked your status",
			"reason":  worker.LockReason,
		})
		return
	}

	status := models.WorkerStatus(req.Status)
	if status != models.WorkerAvailable && status != models.WorkerOffline {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid status",
			"message": "Status must be Available or Offline",
		})
		return
	}
	if worker.Status == models.WorkerBusy {
		c.JSON(http.StatusConflict, gin.H{
			"error":   "Worker busy",
			"message": "Finish or cancel the active job first",
		})
		return
	}

	result := database.DB.Model(&models.Worker{}).
		Where("id = ? AND version = ?", worker.ID, worker.Version).
		Updates(map[string]interface{}{
			"status":  status,
			"version": worker.Version + 1,
		})
	if result.Error != nil || result.RowsAffected == 0 {
		c.JSON(http.StatusConflict, gin.H{
			"error":   "Status update failed",
			"message": "Worker state changed, try again",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Status updated", "status": status})
}

// getAvailableRequests lists pending requests the worker's role can take,
// decorated with distance and ETA when the worker has a known position
func getAvailableRequests(c *gin.Context) {
	worker, ok := workerForUser(c)
	if !ok {
		return
	}

	var pending []models.ServiceRequest
	if err := database.DB.Preload("Bill").
		Where("status = ?", models.StatusPending).
		Order("created_at ASC").
		Limit(100).
		Find(&pending).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Query failed",
			"message": "Failed to load pending requests",
		})
		return
	}

	visible := services.VisibleRequests(worker, pending)

	type decorated struct {
		models.ServiceRequest
		DistanceKm *float64 `json:"distance_km,omitempty"`
		EtaMinutes *int     `json:"eta_minutes,omitempty"`
	}

	out := make([]decorated, 0, len(visible))
	for _, r := range visible {
		d := decorated{ServiceRequest: r}
		if worker.HasLocation() && r.HasLocation() {
			workerLoc := utils.Location{Latitude: *worker.CurrentLat, Longitude: *worker.CurrentLng}
			requestLoc := utils.Location{Latitude: *r.LocationLat, Longitude: *r.LocationLng}
			km := utils.DistanceKm(workerLoc, requestLoc)
			eta := int(utils.CalculateETA(workerLoc, requestLoc, 30).Minutes())
			d.DistanceKm = &km
			d.EtaMinutes = &eta
		}
		out = append(out, d)
	}

	c.JSON(http.StatusOK, gin.H{"requests": out})
}

// acceptRequest claims a pending request for the worker. Fuel requests get
// a source station selected and movement tracking started.
func acceptRequest(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request ID"})
		return
	}

	worker, ok := workerForUser(c)
	if !ok {
		return
	}

	result, err := services.AcceptRequest(database.DB, worker.ID, uint(id))
	if err != nil {
		if err == services.ErrRoleMismatch {
			c.JSON(http.StatusForbidden, gin.H{
				"error":   "Role mismatch",
				"message": "This request needs a different worker role",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Accept failed",
			"message": "Could not process the accept",
		})
		return
	}

	switch result.Outcome {
	case services.AcceptForbidden:
		metrics.AcceptsForbidden.WithLabelValues(string(result.Reason)).Inc()
		c.JSON(http.StatusForbidden, gin.H{
			"error":  "Cannot accept",
			"reason": string(result.Reason),
		})
		return
	case services.AcceptConflict:
		metrics.AcceptConflicts.Inc()
		c.JSON(http.StatusConflict, gin.H{
			"error":   "Already taken",
			"message": "Another worker claimed this request first",
		})
		return
	}

	request := result.Request
	metrics.AcceptsTotal.Inc()
	log.Printf("✅ Worker %d accepted request %d", worker.ID, request.ID)

	// source station selection for fuel deliveries; anchored at the
	// worker's position, falling back to the delivery point
	if request.Kind.IsFuel() {
		anchor := acceptAnchor(worker, request)
		if err := assignStation(request, worker, anchor, models.TriggerInitial); err != nil {
			log.Printf("⚠️ Station assignment failed for request %d: %v", request.ID, err)
		} else {
			startTracking(request, worker, anchor)
		}
	}

	if hub != nil {
		hub.SendToUser(request.UserID, &websocket.Message{
			Type:      "request_accepted",
			Timestamp: time.Now().UTC(),
			Data:      gin.H{"request_id": request.ID, "worker_id": worker.ID},
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Request accepted",
		"request": request,
	})
}

// acceptAnchor picks the coordinate station selection starts from
func acceptAnchor(worker *models.Worker, request *models.ServiceRequest) utils.Location {
	if worker.HasLocation() && utils.IsLocationRecent(worker.LastLocationUpdate) {
		return utils.Location{Latitude: *worker.CurrentLat, Longitude: *worker.CurrentLng}
	}
	return utils.Location{Latitude: *request.LocationLat, Longitude: *request.LocationLng}
}

// assignStation selects and persists the source station for a fuel request
// and appends the assignment event. A cached choice made within 500m of
// the current position is reused when the station is still eligible.
func assignStation(request *models.ServiceRequest, worker *models.Worker, pos utils.Location, trigger models.AssignmentTrigger) error {
	stations, err := loadStationsWithStock()
	if err != nil {
		return err
	}

	query := services.StationQuery{
		Location:    pos,
		FuelType:    request.Kind,
		Litres:      request.Litres,
		MaxRadiusKm: config.AppConfig.Dispatch.StationMaxRadiusKm,
	}
	if request.PaymentMethod == models.PaymentCOD {
		query.COD = true
		if request.Bill != nil {
			query.OrderAmount = request.Bill.Total
			discountOwnReservation(stations, request.CodStationID, request.Bill.Total)
		}
	}

	station := cachedEligibleStation(request.ID, pos, stations, query)
	if station == nil {
		selected, ok := services.SelectStation(stations, query)
		if !ok {
			return errNoStation
		}
		station = selected
	}

	if err := database.DB.Model(&models.ServiceRequest{}).
		Where("id = ?", request.ID).
		Update("assigned_station_id", station.ID).Error; err != nil {
		return err
	}
	request.AssignedStationID = &station.ID

	if query.COD && request.Bill != nil {
		request.CodStationID = moveCodReservation(request.ID, request.CodStationID, station.ID, request.Bill.Total)
	}

	event := models.AssignmentEvent{
		ServiceRequestID: request.ID,
		StationID:        station.ID,
		WorkerID:         worker.ID,
		WorkerLat:        pos.Latitude,
		WorkerLng:        pos.Longitude,
		Trigger:          trigger,
	}
	if err := database.DB.Create(&event).Error; err != nil {
		log.Printf("⚠️ Failed to record assignment event for request %d: %v", request.ID, err)
	}

	store.SetAssignment(context.Background(), request.ID, storeAssignment(station.ID, pos))
	return nil
}

// startTracking begins movement monitoring for an assigned fuel delivery
func startTracking(request *models.ServiceRequest, worker *models.Worker, anchor utils.Location) {
	if request.AssignedStationID == nil {
		return
	}

	requestID := request.ID
	workerID := worker.ID
	kind := request.Kind
	litres := request.Litres
	cod := request.PaymentMethod == models.PaymentCOD
	orderAmount := 0
	if request.Bill != nil {
		orderAmount = request.Bill.Total
	}
	// the monitor goroutine runs selector and onChange sequentially, so
	// the hold location can live in a shared variable
	codStation := request.CodStationID

	selector := func(pos utils.Location) (uint, bool, error) {
		stations, err := loadStationsWithStock()
		if err != nil {
			return 0, false, err
		}
		if cod {
			discountOwnReservation(stations, codStation, orderAmount)
		}
		station, ok := services.SelectStation(stations, services.StationQuery{
			Location:    pos,
			FuelType:    kind,
			Litres:      litres,
			COD:         cod,
			OrderAmount: orderAmount,
			MaxRadiusKm: config.AppConfig.Dispatch.StationMaxRadiusKm,
		})
		if !ok {
			return 0, false, nil
		}
		return station.ID, true, nil
	}

	onChange := func(reqID, oldStationID, newStationID uint, pos utils.Location, trigger string) {
		if err := database.DB.Model(&models.ServiceRequest{}).
			Where("id = ?", reqID).
			Update("assigned_station_id", newStationID).Error; err != nil {
			log.Printf("❌ Failed to persist reassignment for request %d: %v", reqID, err)
			return
		}
		if cod {
			codStation = moveCodReservation(reqID, codStation, newStationID, orderAmount)
		}
		event := models.AssignmentEvent{
			ServiceRequestID: reqID,
			StationID:        newStationID,
			WorkerID:         workerID,
			WorkerLat:        pos.Latitude,
			WorkerLng:        pos.Longitude,
			Trigger:          models.AssignmentTrigger(trigger),
		}
		if err := database.DB.Create(&event).Error; err != nil {
			log.Printf("⚠️ Failed to record reassignment event for request %d: %v", reqID, err)
		}
		store.SetAssignment(context.Background(), reqID, storeAssignment(newStationID, pos))
		metrics.Reassignments.WithLabelValues(trigger).Inc()
	}

	cfg := tracking.Config{
		DistanceThresholdKm: config.AppConfig.Dispatch.DistanceThresholdKm,
		TimeThreshold:       time.Duration(config.AppConfig.Dispatch.TimeThresholdMin) * time.Minute,
		ReassignCooldown:    time.Duration(config.AppConfig.Dispatch.ReassignCooldownMin) * time.Minute,
	}
	monitor := tracking.NewMonitor(requestID, workerID, *request.AssignedStationID, anchor, time.Now(), cfg, selector, onChange)
	tracker.Track(monitor)
	metrics.ActiveMonitors.Set(float64(tracker.ActiveCount()))
}

// startRequest moves an assigned request to In Progress
func startRequest(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request ID"})
		return
	}

	worker, ok := workerForUser(c)
	if !ok {
		return
	}

	var request models.ServiceRequest
	if err := database.DB.First(&request, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Request not found"})
		return
	}
	if request.AssignedWorkerID == nil || *request.AssignedWorkerID != worker.ID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not your request"})
		return
	}

	if ok, reason := models.CanTransition(request.Status, models.StatusInProgress, models.ActorWorker); !ok {
		c.JSON(http.StatusConflict, gin.H{"error": "Cannot start", "reason": string(reason)})
		return
	}

	now := time.Now()
	result := database.DB.Model(&models.ServiceRequest{}).
		Where("id = ? AND status = ?", request.ID, models.StatusAssigned).
		Updates(map[string]interface{}{
			"status":     models.StatusInProgress,
			"started_at": now,
		})
	if result.Error != nil || result.RowsAffected == 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Request changed state, try again"})
		return
	}

	log.Printf("✅ Worker %d started request %d", worker.ID, request.ID)
	if hub != nil {
		hub.SendToUser(request.UserID, &websocket.Message{
			Type:      "request_started",
			Timestamp: now,
			Data:      gin.H{"request_id": request.ID},
		})
	}

	c.JSON(http.StatusOK, gin.H{"message": "Request started"})
}

// CompleteRequestBody carries the worker's position at completion.
// Pointers so a legitimate 0 coordinate still passes "required".
type CompleteRequestBody struct {
	Latitude  *float64 `json:"latitude" binding:"required"`
	Longitude *float64 `json:"longitude" binding:"required"`
}

// completeRequest finishes an in-progress job: proximity gate, settlement,
// trust update and worker release
func completeRequest(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request ID"})
		return
	}

	var body CompleteRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Position required",
			"message": "Completion needs your current coordinates",
		})
		return
	}

	worker, ok := workerForUser(c)
	if !ok {
		return
	}

	var request models.ServiceRequest
	if err := database.DB.Preload("Bill").First(&request, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Request not found"})
		return
	}
	if request.AssignedWorkerID == nil || *request.AssignedWorkerID != worker.ID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not your request"})
		return
	}

	if ok, reason := models.CanTransition(request.Status, models.StatusCompleted, models.ActorWorker); !ok {
		c.JSON(http.StatusConflict, gin.H{"error": "Cannot complete", "reason": string(reason)})
		return
	}

	// the worker must be at the breakdown point
	if request.HasLocation() {
		meters := utils.DistanceMeters(
			utils.Location{Latitude: *body.Latitude, Longitude: *body.Longitude},
			utils.Location{Latitude: *request.LocationLat, Longitude: *request.LocationLng},
		)
		if meters > config.AppConfig.Dispatch.CompletionProximityM {
			c.JSON(http.StatusConflict, gin.H{
				"error":           "Too far from delivery point",
				"message":         "Move closer to the customer to complete the job",
				"distance_meters": int(meters),
				"required_meters": int(config.AppConfig.Dispatch.CompletionProximityM),
			})
			return
		}
	}

	now := time.Now()
	result := database.DB.Model(&models.ServiceRequest{}).
		Where("id = ? AND status = ?", request.ID, models.StatusInProgress).
		Updates(map[string]interface{}{
			"status":       models.StatusCompleted,
			"completed_at": now,
		})
	if result.Error != nil || result.RowsAffected == 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Request changed state, try again"})
		return
	}

	settlement := writeSettlement(&request, worker, *body.Latitude, *body.Longitude)

	if request.PaymentMethod == models.PaymentCOD {
		recordCodSuccess(&request)
	}

	if err := services.ReleaseWorker(database.DB, worker.ID); err != nil {
		log.Printf("❌ Failed to release worker %d: %v", worker.ID, err)
	}
	database.DB.Model(&models.Worker{}).Where("id = ?", worker.ID).
		Update("completed_jobs", worker.CompletedJobs+1)

	tracker.Untrack(worker.ID)
	store.InvalidateAssignment(c.Request.Context(), request.ID)
	metrics.ActiveMonitors.Set(float64(tracker.ActiveCount()))
	metrics.Completions.WithLabelValues(string(request.Kind)).Inc()

	log.Printf("✅ Worker %d completed request %d, payout %d", worker.ID, request.ID, settlement.WorkerPayout)

	if hub != nil {
		hub.SendToUser(request.UserID, &websocket.Message{
			Type:      "request_completed",
			Timestamp: now,
			Data:      gin.H{"request_id": request.ID},
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    "Request completed",
		"settlement": settlement,
	})
}

// writeSettlement computes and persists the realized payout record
func writeSettlement(request *models.ServiceRequest, worker *models.Worker, lat, lng float64) *models.Settlement {
	distanceKm := 0.0
	if request.Kind.IsFuel() && request.AssignedStationID != nil {
		var station models.FuelStation
		if err := database.DB.First(&station, *request.AssignedStationID).Error; err == nil {
			distanceKm = utils.DistanceKm(
				utils.Location{Latitude: station.Latitude, Longitude: station.Longitude},
				utils.Location{Latitude: lat, Longitude: lng},
			)
		}
	}

	basePay, perKm, minGuarantee := worker.PayConfig(
		config.AppConfig.Payout.BasePay,
		config.AppConfig.Payout.PerKmRate,
		config.AppConfig.Payout.MinGuarantee,
	)
	workerPayout := services.RealizedPayout(request.Kind, distanceKm, basePay, perKm, minGuarantee)

	total := 0
	stationPayout := 0
	if request.Bill != nil {
		total = request.Bill.Total
		stationPayout = request.Bill.EstimatedStationPayout
	}

	settlement := models.Settlement{
		ServiceRequestID: request.ID,
		WorkerID:         worker.ID,
		StationID:        request.AssignedStationID,
		DistanceKm:       distanceKm,
		WorkerPayout:     workerPayout,
		StationPayout:    stationPayout,
		PlatformMargin:   total - stationPayout - workerPayout,
		CollectedCash:    request.PaymentMethod == models.PaymentCOD,
	}
	if err := database.DB.Create(&settlement).Error; err != nil {
		log.Printf("❌ Failed to write settlement for request %d: %v", request.ID, err)
	}
	return &settlement
}

// recordCodSuccess updates the trust profile after a successful cash
// collection. The station's COD balance already carries the hold taken at
// order creation; only a hold sitting on a station other than the one
// that served the order needs to move.
func recordCodSuccess(request *models.ServiceRequest) {
	if err := database.DB.Model(&models.User{}).
		Where("id = ?", request.UserID).
		Updates(map[string]interface{}{
			"cod_success_count": gorm.Expr("cod_success_count + 1"),
			"trust_score":       gorm.Expr("LEAST(trust_score + 2, 100)"),
		}).Error; err != nil {
		log.Printf("❌ Failed to update trust profile for user %d: %v", request.UserID, err)
	}

	if request.Bill == nil || request.AssignedStationID == nil {
		return
	}
	served := *request.AssignedStationID
	total := request.Bill.Total

	if request.CodStationID == nil {
		// no hold exists; count the collected cash now
		if err := database.DB.Model(&models.FuelStation{}).
			Where("id = ?", served).
			Update("cod_balance", gorm.Expr("cod_balance + ?", total)).Error; err != nil {
			log.Printf("❌ Failed to update COD balance for station %d: %v", served, err)
		}
		return
	}

	if *request.CodStationID != served {
		if err := services.ReleaseCodBalance(database.DB, *request.CodStationID, total); err != nil {
			log.Printf("❌ Failed to release COD hold on station %d: %v", *request.CodStationID, err)
		}
		if err := database.DB.Model(&models.FuelStation{}).
			Where("id = ?", served).
			Update("cod_balance", gorm.Expr("cod_balance + ?", total)).Error; err != nil {
			log.Printf("❌ Failed to update COD balance for station %d: %v", served, err)
		}
	}
}

// workerCancelRequest lets the worker back out before travel has started
func workerCancelRequest(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request ID"})
		return
	}

	worker, ok := workerForUser(c)
	if !ok {
		return
	}

	var request models.ServiceRequest
	if err := database.DB.First(&request, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Request not found"})
		return
	}
	if request.AssignedWorkerID == nil || *request.AssignedWorkerID != worker.ID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not your request"})
		return
	}

	if ok, reason := models.CanTransition(request.Status, models.StatusCancelled, models.ActorWorker); !ok {
		c.JSON(http.StatusConflict, gin.H{"error": "Cannot cancel", "reason": string(reason)})
		return
	}

	now := time.Now()
	// the request goes back to the pool rather than dying: the customer
	// still needs service
	result := database.DB.Model(&models.ServiceRequest{}).
		Where("id = ? AND status = ?", request.ID, models.StatusAssigned).
		Updates(map[string]interface{}{
			"status":              models.StatusPending,
			"assigned_worker_id":  nil,
			"assigned_station_id": nil,
			"assigned_at":         nil,
		})
	if result.Error != nil || result.RowsAffected == 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Request changed state, try again"})
		return
	}

	if err := services.ReleaseWorker(database.DB, worker.ID); err != nil {
		log.Printf("❌ Failed to release worker %d: %v", worker.ID, err)
	}
	tracker.Untrack(worker.ID)
	store.InvalidateAssignment(c.Request.Context(), request.ID)
	metrics.ActiveMonitors.Set(float64(tracker.ActiveCount()))
	metrics.Cancellations.WithLabelValues(string(models.ActorWorker)).Inc()

	log.Printf("⚠️ Worker %d dropped request %d back to pending", worker.ID, request.ID)

	if hub != nil {
		hub.BroadcastNewServiceRequest(string(models.RoleForKind(request.Kind)), request)
		hub.SendToUser(request.UserID, &websocket.Message{
			Type:      "request_back_to_pending",
			Timestamp: now,
			Data:      gin.H{"request_id": request.ID},
		})
	}

	c.JSON(http.StatusOK, gin.H{"message": "Request released back to pending"})
}
