package config

import (
	"os"
	"strconv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Redis    RedisConfig
	Dispatch DispatchConfig
	Pricing  PricingConfig
	Payout   PayoutConfig
}

type ServerConfig struct {
	Port    string
	GinMode string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

type JWTConfig struct {
	Secret      string
	ExpiryHours int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// DispatchConfig holds the thresholds driving fuel-station reassignment
// and request completion.
type DispatchConfig struct {
	DistanceThresholdKm  float64
	TimeThresholdMin     int
	ReassignCooldownMin  int
	CompletionProximityM float64
	StationMaxRadiusKm   float64
	RequestExpiryMin     int
}

// PricingConfig holds the customer-bill formula knobs.
type PricingConfig struct {
	BaseDeliveryFee     int
	SmallOrderSurcharge int
	SmallOrderLitres    float64
	PlatformFeePct      float64
	MarginFloor         int
}

// PayoutConfig holds the system-wide worker payout defaults. Individual
// workers can carry per-row overrides.
type PayoutConfig struct {
	BasePay      int
	PerKmRate    int
	MinGuarantee int
}

var AppConfig *Config

func Load() {
	AppConfig = &Config{
		Server: ServerConfig{
			Port:    getEnv("PORT", "8080"),
			GinMode: getEnv("GIN_MODE", "debug"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "password"),
			Name:     getEnv("DB_NAME", "fuel_dispatch_db"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		JWT: JWTConfig{
			Secret:      getEnv("JWT_SECRET", "your-super-secret-jwt-key-change-this-in-production"),
			ExpiryHours: getEnvAsInt("JWT_EXPIRY_HOURS", 24),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Dispatch: DispatchConfig{
			DistanceThresholdKm:  getEnvAsFloat("DISTANCE_THRESHOLD_KM", 0.5),
			TimeThresholdMin:     getEnvAsInt("TIME_THRESHOLD_MIN", 10),
			ReassignCooldownMin:  getEnvAsInt("REASSIGN_COOLDOWN_MIN", 1),
			CompletionProximityM: getEnvAsFloat("COMPLETION_PROXIMITY_M", 100),
			StationMaxRadiusKm:   getEnvAsFloat("STATION_MAX_RADIUS_KM", 15),
			RequestExpiryMin:     getEnvAsInt("REQUEST_EXPIRY_MIN", 3),
		},
		Pricing: PricingConfig{
			BaseDeliveryFee:     getEnvAsInt("BASE_DELIVERY_FEE", 80),
			SmallOrderSurcharge: getEnvAsInt("SMALL_ORDER_SURCHARGE", 35),
			SmallOrderLitres:    getEnvAsFloat("SMALL_ORDER_LITRES", 5),
			PlatformFeePct:      getEnvAsFloat("PLATFORM_FEE_PCT", 5),
			MarginFloor:         getEnvAsInt("MARGIN_FLOOR", 15),
		},
		Payout: PayoutConfig{
			BasePay:      getEnvAsInt("BASE_PAY", 50),
			PerKmRate:    getEnvAsInt("PER_KM_RATE", 10),
			MinGuarantee: getEnvAsInt("MIN_GUARANTEE", 100),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
