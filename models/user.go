package models

import (
	"time"

	"gorm.io/gorm"
)

type UserRole string

const (
	RoleCustomer UserRole = "customer"
	RoleWorker   UserRole = "worker"
	RoleStation  UserRole = "station"
	RoleAdmin    UserRole = "admin"
)

type User struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	FullName     string    `json:"full_name" gorm:"size:255;not null"`
	PhoneNumber  string    `json:"phone_number" gorm:"size:20;uniqueIndex;not null"`
	PasswordHash string    `json:"-" gorm:"size:255;not null"` // Hidden from JSON
	Role         UserRole  `json:"role" gorm:"type:varchar(20);not null;default:'customer';check:role IN ('customer','worker','station','admin')"`
	IsActive     bool      `json:"is_active" gorm:"default:true"`

	// COD trust profile
	TrustScore           float64    `json:"trust_score" gorm:"type:decimal(5,2);default:50"`
	CodSuccessCount      int        `json:"cod_success_count" gorm:"default:0"`
	CodFailureCount      int        `json:"cod_failure_count" gorm:"default:0"`
	CodLastFailureReason string     `json:"cod_last_failure_reason" gorm:"size:200"`
	CodDisabled          bool       `json:"cod_disabled" gorm:"default:false"`
	CodDisabledUntil     *time.Time `json:"cod_disabled_until"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for the User model
func (User) TableName() string {
	return "users"
}

// BeforeCreate is a GORM hook that runs before creating a user
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.Role == "" {
		u.Role = RoleCustomer
	}
	if u.TrustScore == 0 {
		u.TrustScore = 50
	}
	return nil
}

// IsWorker checks if the user is a worker
func (u *User) IsWorker() bool {
	return u.Role == RoleWorker
}

// IsAdmin checks if the user is an admin
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// IsCustomer checks if the user is a customer
func (u *User) IsCustomer() bool {
	return u.Role == RoleCustomer
}

// IsStation checks if the user operates a fuel station
func (u *User) IsStation() bool {
	return u.Role == RoleStation
}

// RegisterRequest represents the request structure for user registration
type RegisterRequest struct {
	FullName    string `json:"full_name" binding:"required"`
	PhoneNumber string `json:"phone_number" binding:"required"`
	Password    string `json:"password" binding:"required,min=8"`
	Role        string `json:"role" binding:"omitempty,oneof=customer worker station"`
}

// LoginRequest represents the request structure for user login
type LoginRequest struct {
	PhoneNumber string `json:"phone_number" binding:"required"`
	Password    string `json:"password" binding:"required"`
}
