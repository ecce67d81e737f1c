package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	_ "github.com/lib/pq"
)

// seedDemoData loads a handful of demo stations, stock and workers through
// a plain SQL connection. Intended for local development only; enable with
// SEED_DEMO=true.
func seedDemoData() error {
	connString := os.Getenv("DB_URL")
	if connString == "" {
		return fmt.Errorf("DB_URL is required for seeding")
	}

	db, err := sql.Open("postgres", connString)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	var stationCount int
	if err := db.QueryRow("SELECT COUNT(*) FROM fuel_stations").Scan(&stationCount); err != nil {
		return fmt.Errorf("failed to count stations: %w", err)
	}
	if stationCount > 0 {
		log.Println("ℹ️ Demo data already present, skipping seed")
		return nil
	}

	stations := []struct {
		name     string
		lat, lng float64
		petrol   float64
		diesel   float64
	}{
		{"Indiranagar Fuel Point", 12.9719, 77.6412, 2000, 1500},
		{"Koramangala Energy Hub", 12.9352, 77.6245, 1800, 2200},
		{"Whitefield Fuel Depot", 12.9698, 77.7500, 2500, 2500},
		{"Jayanagar Petro Stop", 12.9250, 77.5938, 1200, 900},
	}

	for i, s := range stations {
		phone := fmt.Sprintf("+9198000001%02d", i)
		var userID int64
		err := db.QueryRow(`
			INSERT INTO users (full_name, phone_number, password_hash, role, is_active, trust_score, created_at, updated_at)
			VALUES ($1, $2, '$2a$10$seeddisabled', 'station', true, 50, NOW(), NOW())
			RETURNING id`,
			s.name+" Owner", phone).Scan(&userID)
		if err != nil {
			return fmt.Errorf("failed to seed station user %q: %w", s.name, err)
		}

		var stationID int64
		err = db.QueryRow(`
			INSERT INTO fuel_stations (user_id, name, latitude, longitude, is_open, is_verified, cod_enabled, cod_balance, cod_balance_limit, created_at, updated_at)
			VALUES ($1, $2, $3, $4, true, true, true, 0, 5000, NOW(), NOW())
			RETURNING id`,
			userID, s.name, s.lat, s.lng).Scan(&stationID)
		if err != nil {
			return fmt.Errorf("failed to seed station %q: %w", s.name, err)
		}

		for fuel, litres := range map[string]float64{"petrol": s.petrol, "diesel": s.diesel} {
			if _, err := db.Exec(`
				INSERT INTO fuel_stocks (station_id, fuel_type, stock_litres, updated_at)
				VALUES ($1, $2, $3, NOW())`,
				stationID, fuel, litres); err != nil {
				return fmt.Errorf("failed to seed stock for station %q: %w", s.name, err)
			}
		}

		log.Printf("✅ Seeded station %q (id=%d)", s.name, stationID)
	}

	workers := []struct {
		name string
		role string
	}{
		{"Demo Delivery Rider", "Delivery"},
		{"Demo Crane Operator", "Crane"},
		{"Demo Bike Mechanic", "Mechanic Bike"},
		{"Demo Car Mechanic", "Mechanic Car"},
	}

	for i, w := range workers {
		phone := fmt.Sprintf("+9198000002%02d", i)
		var userID int64
		err := db.QueryRow(`
			INSERT INTO users (full_name, phone_number, password_hash, role, is_active, trust_score, created_at, updated_at)
			VALUES ($1, $2, '$2a$10$seeddisabled', 'worker', true, 50, NOW(), NOW())
			RETURNING id`,
			w.name, phone).Scan(&userID)
		if err != nil {
			return fmt.Errorf("failed to seed worker user %q: %w", w.name, err)
		}

		if _, err := db.Exec(`
			INSERT INTO workers (user_id, role, status, is_verified, version, created_at, updated_at)
			VALUES ($1, $2, 'Offline', true, 0, NOW(), NOW())`,
			userID, w.role); err != nil {
			return fmt.Errorf("failed to seed worker %q: %w", w.name, err)
		}

		log.Printf("✅ Seeded worker %q", w.name)
	}

	log.Println("✅ Demo data seeded")
	return nil
}
