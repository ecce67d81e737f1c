package models

import (
	"time"

	"gorm.io/gorm"
)

// FuelStation represents a resupply point workers collect fuel from
type FuelStation struct {
	ID     uint   `json:"id" gorm:"primaryKey"`
	UserID uint   `json:"user_id" gorm:"uniqueIndex;not null"`
	Name   string `json:"name" gorm:"size:200;not null"`

	Latitude  float64 `json:"latitude" gorm:"type:decimal(10,8);not null"`
	Longitude float64 `json:"longitude" gorm:"type:decimal(11,8);not null"`

	IsOpen     bool `json:"is_open" gorm:"default:true"`
	IsVerified bool `json:"is_verified" gorm:"default:false"`

	// COD policy: outstanding balance must stay within the limit for new
	// COD orders to be accepted against this station.
	CodEnabled      bool `json:"cod_enabled" gorm:"default:true"`
	CodBalance      int  `json:"cod_balance" gorm:"default:0"`
	CodBalanceLimit int  `json:"cod_balance_limit" gorm:"default:5000"`

	Stock []FuelStock `json:"stock,omitempty" gorm:"foreignKey:StationID"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// FuelStock represents a station's stock level for one fuel type
type FuelStock struct {
	ID          uint        `json:"id" gorm:"primaryKey"`
	StationID   uint        `json:"station_id" gorm:"not null;uniqueIndex:idx_station_fuel"`
	FuelType    ServiceKind `json:"fuel_type" gorm:"type:varchar(30);not null;uniqueIndex:idx_station_fuel"`
	StockLitres float64     `json:"stock_litres" gorm:"type:decimal(10,2);default:0"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// StockFor returns the station's stock level for a fuel kind. Stock rows
// must be preloaded.
func (s *FuelStation) StockFor(kind ServiceKind) float64 {
	for _, row := range s.Stock {
		if row.FuelType == kind {
			return row.StockLitres
		}
	}
	return 0
}

// CodHeadroomFor reports whether accepting amount against this station
// keeps its outstanding COD balance within the configured limit.
func (s *FuelStation) CodHeadroomFor(amount int) bool {
	return s.CodBalance+amount <= s.CodBalanceLimit
}

// StationCreateRequest represents the fuel-station signup payload.
// Pointers so a legitimate 0 coordinate still passes "required".
type StationCreateRequest struct {
	Name      string   `json:"name" binding:"required"`
	Latitude  *float64 `json:"latitude" binding:"required"`
	Longitude *float64 `json:"longitude" binding:"required"`
}

// StockUpdateRequest represents a station's stock level update
type StockUpdateRequest struct {
	FuelType    string  `json:"fuel_type" binding:"required,oneof=petrol diesel"`
	StockLitres float64 `json:"stock_litres" binding:"min=0"`
}

// StationCodSettingsRequest represents a station's COD policy update
type StationCodSettingsRequest struct {
	CodEnabled      *bool `json:"cod_enabled"`
	CodBalanceLimit *int  `json:"cod_balance_limit"`
}
