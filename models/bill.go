package models

import (
	"time"
)

// BillFormulaVersion is stamped on every bill so historical rows stay
// readable when the pricing formula changes.
const BillFormulaVersion = 1

// Bill is the immutable, itemized quote attached to a service request at
// creation. Re-quoting creates a new row; existing rows are never mutated.
// The pricing inputs are stored alongside the output so any bill can be
// re-derived for audit.
type Bill struct {
	ID uint `json:"id" gorm:"primaryKey"`

	// BaseCost is the fuel cost for fuel kinds, or the flat service fee
	// for non-fuel kinds.
	BaseCost            int    `json:"base_cost" gorm:"not null"`
	DeliveryFee         int    `json:"delivery_fee" gorm:"default:0"`
	SmallOrderSurcharge int    `json:"small_order_surcharge" gorm:"default:0"`
	PlatformFee         int    `json:"platform_fee" gorm:"default:0"`
	SurgeFee            int    `json:"surge_fee" gorm:"default:0"`
	SurgeReasons        string `json:"surge_reasons" gorm:"size:200"`
	Total               int    `json:"total" gorm:"not null"`

	EstimatedWorkerPayout  int `json:"estimated_worker_payout" gorm:"not null"`
	EstimatedStationPayout int `json:"estimated_station_payout" gorm:"default:0"`

	// Pricing inputs, for audit re-derivation
	Kind           ServiceKind `json:"kind" gorm:"type:varchar(30);not null"`
	Litres         float64     `json:"litres" gorm:"type:decimal(6,2);default:0"`
	UnitPrice      int         `json:"unit_price" gorm:"not null"`
	QuotedHour     int         `json:"quoted_hour" gorm:"not null"`
	NightApplied   bool        `json:"night_applied" gorm:"default:false"`
	WeatherApplied bool        `json:"weather_applied" gorm:"default:false"`
	FormulaVersion int         `json:"formula_version" gorm:"not null"`

	CreatedAt time.Time `json:"created_at"`
}

// Settlement is the realized payout record written once at job completion.
type Settlement struct {
	ID               uint  `json:"id" gorm:"primaryKey"`
	ServiceRequestID uint  `json:"service_request_id" gorm:"uniqueIndex;not null"`
	WorkerID         uint  `json:"worker_id" gorm:"not null;index"`
	StationID        *uint `json:"station_id"`

	DistanceKm    float64 `json:"distance_km" gorm:"type:decimal(7,3);default:0"`
	WorkerPayout  int     `json:"worker_payout" gorm:"not null"`
	StationPayout int     `json:"station_payout" gorm:"default:0"`
	// PlatformMargin = customer total - station payout - worker payout
	PlatformMargin int `json:"platform_margin" gorm:"not null"`

	CollectedCash bool      `json:"collected_cash" gorm:"default:false"`
	CreatedAt     time.Time `json:"created_at"`
}

// AssignmentTrigger explains why a fuel-station (re)assignment happened
type AssignmentTrigger string

const (
	TriggerInitial AssignmentTrigger = "initial"
	TriggerMoved   AssignmentTrigger = "moved"
	TriggerElapsed AssignmentTrigger = "elapsed"
)

// AssignmentEvent is the append-only audit record of each fuel-station
// (re)assignment for a request. The latest event's coordinate/timestamp is
// the anchor the reassignment monitor measures drift against.
type AssignmentEvent struct {
	ID               uint              `json:"id" gorm:"primaryKey"`
	ServiceRequestID uint              `json:"service_request_id" gorm:"not null;index"`
	StationID        uint              `json:"station_id" gorm:"not null"`
	WorkerID         uint              `json:"worker_id" gorm:"not null"`
	WorkerLat        float64           `json:"worker_lat" gorm:"type:decimal(10,8)"`
	WorkerLng        float64           `json:"worker_lng" gorm:"type:decimal(11,8)"`
	Trigger          AssignmentTrigger `json:"trigger" gorm:"type:varchar(20);not null"`
	CreatedAt        time.Time         `json:"created_at"`
}
