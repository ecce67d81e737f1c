package models

import (
	"time"

	"gorm.io/gorm"
)

// WorkerRole represents the category of jobs a worker can take
type WorkerRole string

const (
	RoleDelivery     WorkerRole = "Delivery"
	RoleCrane        WorkerRole = "Crane"
	RoleMechanicBike WorkerRole = "Mechanic Bike"
	RoleMechanicCar  WorkerRole = "Mechanic Car"
)

// WorkerStatus represents a worker's availability
type WorkerStatus string

const (
	WorkerAvailable WorkerStatus = "Available"
	WorkerBusy      WorkerStatus = "Busy"
	WorkerOffline   WorkerStatus = "Offline"
)

// Worker represents a field worker's professional profile
type Worker struct {
	ID     uint       `json:"id" gorm:"primaryKey"`
	UserID uint       `json:"user_id" gorm:"uniqueIndex;not null"`
	Role   WorkerRole `json:"role" gorm:"type:varchar(30);not null"`

	Status WorkerStatus `json:"status" gorm:"type:varchar(20);not null;default:'Offline'"`
	// StatusLocked is settable only by an admin; a locked worker cannot
	// change their own status.
	StatusLocked bool   `json:"status_locked" gorm:"default:false"`
	LockReason   string `json:"lock_reason" gorm:"size:100"`
	IsVerified   bool   `json:"is_verified" gorm:"default:false"`

	CurrentLat         *float64   `json:"current_lat" gorm:"type:decimal(10,8)"`
	CurrentLng         *float64   `json:"current_lng" gorm:"type:decimal(11,8)"`
	LastLocationUpdate *time.Time `json:"last_location_update"`

	// Payout overrides; zero means "use the system default"
	BasePay      int `json:"base_pay" gorm:"default:0"`
	PerKmRate    int `json:"per_km_rate" gorm:"default:0"`
	MinGuarantee int `json:"min_guarantee" gorm:"default:0"`

	// Floater cash: COD collections the worker is currently holding
	FloaterCash      int `json:"floater_cash" gorm:"default:0"`
	FloaterCashLimit int `json:"floater_cash_limit" gorm:"default:2000"`

	CompletedJobs int     `json:"completed_jobs" gorm:"default:0"`
	Rating        float64 `json:"rating" gorm:"type:decimal(3,2);default:0"`

	// Version is the optimistic-concurrency token guarding the
	// one-active-task-per-worker invariant.
	Version int `json:"-" gorm:"default:0;not null"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`

	User User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

// HasLocation reports whether the worker has a known coordinate.
func (w *Worker) HasLocation() bool {
	return w.CurrentLat != nil && w.CurrentLng != nil
}

// PayConfig resolves the worker's payout parameters against system defaults.
func (w *Worker) PayConfig(defBasePay, defPerKm, defMinGuarantee int) (basePay, perKm, minGuarantee int) {
	basePay, perKm, minGuarantee = defBasePay, defPerKm, defMinGuarantee
	if w.BasePay > 0 {
		basePay = w.BasePay
	}
	if w.PerKmRate > 0 {
		perKm = w.PerKmRate
	}
	if w.MinGuarantee > 0 {
		minGuarantee = w.MinGuarantee
	}
	return
}

// GetWorkerRoles returns all declared worker roles
func GetWorkerRoles() []WorkerRole {
	return []WorkerRole{RoleDelivery, RoleCrane, RoleMechanicBike, RoleMechanicCar}
}

// WorkerProfileRequest represents the request structure for creating a worker profile
type WorkerProfileRequest struct {
	Role             string `json:"role" binding:"required,oneof=Delivery Crane 'Mechanic Bike' 'Mechanic Car'"`
	BasePay          int    `json:"base_pay"`
	PerKmRate        int    `json:"per_km_rate"`
	MinGuarantee     int    `json:"min_guarantee"`
	FloaterCashLimit int    `json:"floater_cash_limit"`
}

// WorkerStatusRequest represents a worker's own availability change
type WorkerStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=Available Busy Offline"`
}

// LocationUpdateRequest represents a worker's location ping. Pointers so
// a legitimate 0 coordinate still passes "required".
type LocationUpdateRequest struct {
	Latitude  *float64 `json:"latitude" binding:"required"`
	Longitude *float64 `json:"longitude" binding:"required"`
}
