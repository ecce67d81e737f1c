package models

import "time"

// ServiceType is the per-kind price table: price per litre for fuel kinds,
// flat service fee for the rest. Admin-editable.
type ServiceType struct {
	ID    uint        `json:"id" gorm:"primaryKey"`
	Code  ServiceKind `json:"code" gorm:"type:varchar(30);uniqueIndex;not null"`
	Label string      `json:"label" gorm:"size:100;not null"`
	// Amount is the price per litre (fuel) or the flat fee (non-fuel)
	Amount    int       `json:"amount" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DefaultServiceTypes returns the seed price table.
func DefaultServiceTypes() []ServiceType {
	return []ServiceType{
		{Code: KindPetrol, Label: "Petrol", Amount: 100},
		{Code: KindDiesel, Label: "Diesel", Amount: 95},
		{Code: KindCrane, Label: "Crane", Amount: 1500},
		{Code: KindMechanicBike, Label: "Mechanic (Bike)", Amount: 500},
		{Code: KindMechanicCar, Label: "Mechanic (Car)", Amount: 1200},
	}
}

// CodSettings is the singleton row of system-wide COD gate knobs.
type CodSettings struct {
	ID             uint      `json:"id" gorm:"primaryKey;check:id = 1"`
	CodLimit       int       `json:"cod_limit" gorm:"default:500"`
	TrustThreshold float64   `json:"trust_threshold" gorm:"type:decimal(5,2);default:50"`
	MaxFailures    int       `json:"max_failures" gorm:"default:3"`
	DisableDays    int       `json:"disable_days" gorm:"default:7"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// DefaultCodSettings returns the seed COD configuration.
func DefaultCodSettings() CodSettings {
	return CodSettings{ID: 1, CodLimit: 500, TrustThreshold: 50, MaxFailures: 3, DisableDays: 7}
}

// CodSettingsUpdate represents the admin COD settings payload
type CodSettingsUpdate struct {
	CodLimit       *int     `json:"cod_limit"`
	TrustThreshold *float64 `json:"trust_threshold"`
	MaxFailures    *int     `json:"max_failures"`
	DisableDays    *int     `json:"disable_days"`
}
