package services

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"fuel-dispatch-server/models"
)

// AcceptOutcome classifies an accept attempt
type AcceptOutcome int

const (
	AcceptOK AcceptOutcome = iota
	// AcceptConflict means another worker claimed the request first
	AcceptConflict
	// AcceptForbidden means the worker failed a precondition
	AcceptForbidden
)

// ForbiddenReason explains a rejected accept precondition
type ForbiddenReason string

const (
	ForbiddenOffline    ForbiddenReason = "offline"
	ForbiddenBusy       ForbiddenReason = "busy"
	ForbiddenUnverified ForbiddenReason = "unverified"
	ForbiddenLocked     ForbiddenReason = "locked"
)

// AcceptResult is the outcome of one accept attempt.
type AcceptResult struct {
	Outcome AcceptOutcome
	Reason  ForbiddenReason
	Request *models.ServiceRequest
}

// ErrRoleMismatch is returned when a worker tries to accept a request
// outside their declared role. Matching never shows such requests, so
// hitting this means the caller bypassed visibility.
var ErrRoleMismatch = errors.New("request kind does not match worker role")

// CanSee reports whether a pending request is visible to a worker:
// the request kind must map to the worker's declared role.
func CanSee(worker *models.Worker, request *models.ServiceRequest) bool {
	return models.RoleForKind(request.Kind) == worker.Role
}

// EligibleForWork checks a worker's accept preconditions. activeCount is
// the worker's number of requests currently in Assigned/In Progress.
func EligibleForWork(worker *models.Worker, activeCount int64) (bool, ForbiddenReason) {
	if worker.StatusLocked {
		return false, ForbiddenLocked
	}
	if !worker.IsVerified {
		return false, ForbiddenUnverified
	}
	if worker.Status == models.WorkerOffline {
		return false, ForbiddenOffline
	}
	if worker.Status == models.WorkerBusy || activeCount > 0 {
		return false, ForbiddenBusy
	}
	return true, ""
}

// VisibleRequests filters a pending set down to what the worker may see.
func VisibleRequests(worker *models.Worker, pending []models.ServiceRequest) []models.ServiceRequest {
	out := make([]models.ServiceRequest, 0, len(pending))
	for i := range pending {
		if pending[i].Status == models.StatusPending && CanSee(worker, &pending[i]) {
			out = append(out, pending[i])
		}
	}
	return out
}

// AcceptRequest performs the race-safe claim of a pending request by a
// worker. The request claim and the worker's flip to Busy commit as one
// transaction: a conditional update guards the request (still Pending,
// still unassigned) and an optimistic version token guards the worker, so
// two concurrent accepts can never both win and a worker can never hold
// two active jobs. On a lost race the transaction rolls back leaving the
// worker untouched.
func AcceptRequest(db *gorm.DB, workerID, requestID uint) (AcceptResult, error) {
	var result AcceptResult

	err := db.Transaction(func(tx *gorm.DB) error {
		var worker models.Worker
		if err := tx.First(&worker, workerID).Error; err != nil {
			return err
		}

		var activeCount int64
		if err := tx.Model(&models.ServiceRequest{}).
			Where("assigned_worker_id = ? AND status IN (?, ?)",
				worker.ID, models.StatusAssigned, models.StatusInProgress).
			Count(&activeCount).Error; err != nil {
			return err
		}

		if ok, reason := EligibleForWork(&worker, activeCount); !ok {
			result = AcceptResult{Outcome: AcceptForbidden, Reason: reason}
			return nil
		}

		var request models.ServiceRequest
		if err := tx.Preload("Bill").First(&request, requestID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				result = AcceptResult{Outcome: AcceptConflict}
				return nil
			}
			return err
		}

		if !CanSee(&worker, &request) {
			return ErrRoleMismatch
		}

		now := time.Now()
		claim := tx.Model(&models.ServiceRequest{}).
			Where("id = ? AND status = ? AND assigned_worker_id IS NULL", request.ID, models.StatusPending).
			Updates(map[string]interface{}{
				"status":             models.StatusAssigned,
				"assigned_worker_id": worker.ID,
				"assigned_at":        now,
			})
		if claim.Error != nil {
			return claim.Error
		}
		if claim.RowsAffected == 0 {
			result = AcceptResult{Outcome: AcceptConflict}
			return nil
		}

		flip := tx.Model(&models.Worker{}).
			Where("id = ? AND version = ?", worker.ID, worker.Version).
			Updates(map[string]interface{}{
				"status":  models.WorkerBusy,
				"version": worker.Version + 1,
			})
		if flip.Error != nil {
			return flip.Error
		}
		if flip.RowsAffected == 0 {
			// worker row changed underneath us; abort so the claim
			// rolls back and the request stays Pending
			return gorm.ErrInvalidTransaction
		}

		request.Status = models.StatusAssigned
		request.AssignedWorkerID = &worker.ID
		request.AssignedAt = &now
		result = AcceptResult{Outcome: AcceptOK, Request: &request}
		return nil
	})

	if err != nil {
		if errors.Is(err, gorm.ErrInvalidTransaction) {
			return AcceptResult{Outcome: AcceptConflict}, nil
		}
		return AcceptResult{}, err
	}
	return result, nil
}

// CancelRequest terminally cancels a request, clearing any worker and
// station assignment so a cancelled row never reads as held. The status
// guard loses gracefully against a concurrent transition; the caller
// checks the returned flag.
func CancelRequest(db *gorm.DB, requestID uint, expect models.RequestStatus, reason string) (bool, error) {
	result := db.Model(&models.ServiceRequest{}).
		Where("id = ? AND status = ?", requestID, expect).
		Updates(map[string]interface{}{
			"status":              models.StatusCancelled,
			"cancelled_at":        time.Now(),
			"cancel_reason":       reason,
			"assigned_worker_id":  nil,
			"assigned_station_id": nil,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ReleaseWorker flips a worker back to Available and bumps the version
// token, used when their job completes or is cancelled.
func ReleaseWorker(db *gorm.DB, workerID uint) error {
	return db.Model(&models.Worker{}).
		Where("id = ?", workerID).
		Updates(map[string]interface{}{
			"status":  models.WorkerAvailable,
			"version": gorm.Expr("version + 1"),
		}).Error
}
