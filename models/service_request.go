package models

import (
	"time"

	"gorm.io/gorm"
)

// ServiceKind represents the requested service type
type ServiceKind string

const (
	KindPetrol       ServiceKind = "petrol"
	KindDiesel       ServiceKind = "diesel"
	KindCrane        ServiceKind = "crane"
	KindMechanicBike ServiceKind = "mechanic_bike"
	KindMechanicCar  ServiceKind = "mechanic_car"
)

// IsFuel reports whether the kind is a fuel delivery.
func (k ServiceKind) IsFuel() bool {
	return k == KindPetrol || k == KindDiesel
}

// IsValid reports whether the kind is one of the known service kinds.
func (k ServiceKind) IsValid() bool {
	switch k {
	case KindPetrol, KindDiesel, KindCrane, KindMechanicBike, KindMechanicCar:
		return true
	}
	return false
}

// RoleForKind maps a request kind to the worker role allowed to take it.
func RoleForKind(kind ServiceKind) WorkerRole {
	switch kind {
	case KindPetrol, KindDiesel:
		return RoleDelivery
	case KindCrane:
		return RoleCrane
	case KindMechanicBike:
		return RoleMechanicBike
	case KindMechanicCar:
		return RoleMechanicCar
	}
	return ""
}

// RequestStatus represents the current status of a service request
type RequestStatus string

const (
	StatusPending    RequestStatus = "Pending"
	StatusAssigned   RequestStatus = "Assigned"
	StatusInProgress RequestStatus = "In Progress"
	StatusCompleted  RequestStatus = "Completed"
	StatusCancelled  RequestStatus = "Cancelled"
)

// IsTerminal reports whether the status permits no further transitions.
func (s RequestStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// IsActive reports whether a worker currently holds the request.
func (s RequestStatus) IsActive() bool {
	return s == StatusAssigned || s == StatusInProgress
}

// Actor identifies who is driving a status transition
type Actor string

const (
	ActorRequester Actor = "requester"
	ActorWorker    Actor = "worker"
	ActorSystem    Actor = "system"
)

// PaymentMethod represents how the request is settled
type PaymentMethod string

const (
	PaymentOnline PaymentMethod = "online"
	PaymentCOD    PaymentMethod = "cod"
)

// ServiceRequest represents an on-demand roadside/fuel-delivery request
type ServiceRequest struct {
	ID     uint        `json:"id" gorm:"primaryKey"`
	UserID uint        `json:"user_id" gorm:"not null;index"`
	Kind   ServiceKind `json:"kind" gorm:"type:varchar(30);not null"`
	// Litres is set for fuel kinds only
	Litres float64 `json:"litres" gorm:"type:decimal(6,2);default:0"`

	VehicleNumber string `json:"vehicle_number" gorm:"size:50"`
	PhoneNumber   string `json:"phone_number" gorm:"size:20"`

	LocationLat *float64 `json:"location_lat" gorm:"type:decimal(10,8)"`
	LocationLng *float64 `json:"location_lng" gorm:"type:decimal(11,8)"`

	Status            RequestStatus `json:"status" gorm:"type:varchar(20);not null;default:'Pending';index"`
	AssignedWorkerID  *uint         `json:"assigned_worker_id" gorm:"index"`
	AssignedWorker    *Worker       `json:"assigned_worker,omitempty" gorm:"foreignKey:AssignedWorkerID"`
	AssignedStationID *uint         `json:"assigned_station_id"`
	AssignedStation   *FuelStation  `json:"assigned_station,omitempty" gorm:"foreignKey:AssignedStationID"`

	PaymentMethod PaymentMethod `json:"payment_method" gorm:"type:varchar(20);not null;default:'online'"`

	// CodStationID is the station whose COD balance holds this order's
	// reservation; set at creation for COD orders and kept in step with
	// station reassignment.
	CodStationID *uint `json:"cod_station_id,omitempty"`

	BillID *uint `json:"bill_id"`
	Bill   *Bill `json:"bill,omitempty" gorm:"foreignKey:BillID"`

	CancelReason string `json:"cancel_reason,omitempty" gorm:"size:100"`

	ExpiresAt   *time.Time `json:"expires_at"`
	AssignedAt  *time.Time `json:"assigned_at"`
	StartedAt   *time.Time `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`
	CancelledAt *time.Time `json:"cancelled_at"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`

	User User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

// HasLocation reports whether the request carries a delivery coordinate.
func (r *ServiceRequest) HasLocation() bool {
	return r.LocationLat != nil && r.LocationLng != nil
}

// TransitionError explains a rejected status transition
type TransitionError string

const (
	TransitionIllegal       TransitionError = "illegal_transition"
	TransitionWrongActor    TransitionError = "wrong_actor"
	TransitionTerminalState TransitionError = "terminal_state"
)

// CanTransition validates a lifecycle transition for the given actor.
// Proximity gating for completion is enforced separately by the caller;
// this checks the state graph and actor permissions only.
func CanTransition(from, to RequestStatus, actor Actor) (bool, TransitionError) {
	if from.IsTerminal() {
		return false, TransitionTerminalState
	}

	switch to {
	case StatusAssigned:
		// only worker-matching acceptance drives Pending -> Assigned
		if from == StatusPending && actor == ActorWorker {
			return true, ""
		}
	case StatusInProgress:
		if from == StatusAssigned && actor == ActorWorker {
			return true, ""
		}
	case StatusCompleted:
		if from == StatusInProgress && actor == ActorWorker {
			return true, ""
		}
	case StatusCancelled:
		switch actor {
		case ActorRequester, ActorSystem:
			// requester may cancel any non-terminal request
			return true, ""
		case ActorWorker:
			// once travel has started the worker may no longer cancel
			if from == StatusPending || from == StatusAssigned {
				return true, ""
			}
			return false, TransitionWrongActor
		}
	}
	return false, TransitionIllegal
}

// ServiceRequestCreate represents the request structure for creating a service request
type ServiceRequestCreate struct {
	Kind          string  `json:"kind" binding:"required,oneof=petrol diesel crane mechanic_bike mechanic_car"`
	Litres        float64 `json:"litres" binding:"omitempty,gt=0"`
	VehicleNumber string  `json:"vehicle_number" binding:"required"`
	PhoneNumber   string  `json:"phone_number" binding:"required"`
	// pointers so a legitimate 0 coordinate still passes "required"
	LocationLat *float64 `json:"location_lat" binding:"required"`
	LocationLng *float64 `json:"location_lng" binding:"required"`
	PaymentMethod string  `json:"payment_method" binding:"omitempty,oneof=online cod"`
	BadWeather    bool    `json:"bad_weather"`
}
