package jobs

import (
	"log"
	"time"

	"fuel-dispatch-server/database"
	"fuel-dispatch-server/metrics"
	"fuel-dispatch-server/models"
	"fuel-dispatch-server/services"
)

// ExpirationJob cancels pending requests that nobody accepted in time and
// lifts COD suspensions whose window has passed.
type ExpirationJob struct {
	stopChan chan bool
}

// NewExpirationJob creates a new expiration job
func NewExpirationJob() *ExpirationJob {
	return &ExpirationJob{
		stopChan: make(chan bool),
	}
}

// Start begins the expiration job
func (j *ExpirationJob) Start() {
	go j.run()
	log.Println("🚀 Expiration job started")
}

// Stop stops the expiration job
func (j *ExpirationJob) Stop() {
	j.stopChan <- true
	log.Println("🛑 Expiration job stopped")
}

func (j *ExpirationJob) run() {
	ticker := time.NewTicker(30 * time.Second) // Check every 30 seconds
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			j.checkExpiredRequests()
			j.liftExpiredCodSuspensions()
		case <-j.stopChan:
			return
		}
	}
}

// checkExpiredRequests cancels pending requests past their expiry
func (j *ExpirationJob) checkExpiredRequests() {
	var expired []models.ServiceRequest

	err := database.DB.Preload("Bill").
		Where("status = ? AND expires_at IS NOT NULL AND expires_at <= ?",
			models.StatusPending, time.Now()).Find(&expired).Error
	if err != nil {
		log.Printf("❌ Error checking expired requests: %v", err)
		return
	}

	if len(expired) == 0 {
		return
	}

	log.Printf("⏰ Found %d expired service requests", len(expired))

	for _, request := range expired {
		j.expireRequest(request)
	}
}

// expireRequest cancels one pending request. The status guard keeps a
// request that was accepted between the query and the update untouched.
func (j *ExpirationJob) expireRequest(request models.ServiceRequest) {
	cancelled, err := services.CancelRequest(database.DB, request.ID, models.StatusPending, "expired")
	if err != nil {
		log.Printf("❌ Failed to expire request %d: %v", request.ID, err)
		return
	}
	if !cancelled {
		return // accepted in the meantime
	}

	if err := services.ReleaseCodReservation(database.DB, &request); err != nil {
		log.Printf("❌ Failed to release COD reservation for request %d: %v", request.ID, err)
	}

	metrics.ExpiredRequests.Inc()
	log.Printf("✅ Request %d expired and cancelled", request.ID)
}

// liftExpiredCodSuspensions re-enables COD for users whose disable window
// has passed.
func (j *ExpirationJob) liftExpiredCodSuspensions() {
	result := database.DB.Model(&models.User{}).
		Where("cod_disabled = ? AND cod_disabled_until IS NOT NULL AND cod_disabled_until <= ?",
			true, time.Now()).
		Updates(map[string]interface{}{
			"cod_disabled":       false,
			"cod_disabled_until": nil,
			"cod_failure_count":  0,
		})
	if result.Error != nil {
		log.Printf("❌ Error lifting COD suspensions: %v", result.Error)
		return
	}
	if result.RowsAffected > 0 {
		log.Printf("✅ Lifted COD suspension for %d users", result.RowsAffected)
	}
}
