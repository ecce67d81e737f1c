package services

import (
	"sync"
	"testing"

	"fuel-dispatch-server/models"
)

func TestReserveCodBalanceConcurrentHonorsLimit(t *testing.T) {
	db := acceptTestDB(t)

	station := &models.FuelStation{
		UserID:          9001,
		Name:            "reserve-test",
		Latitude:        12.97,
		Longitude:       77.59,
		CodEnabled:      true,
		CodBalanceLimit: 500,
	}
	if err := db.Create(station).Error; err != nil {
		t.Fatal(err)
	}

	// five 200-rupee holds against a 500 limit: at most two may land
	const racers = 5
	const amount = 200
	var wg sync.WaitGroup
	oks := make([]bool, racers)
	errs := make([]error, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			oks[i], errs[i] = ReserveCodBalance(db, station.ID, amount)
		}(i)
	}
	wg.Wait()

	wins := 0
	for i := range oks {
		if errs[i] != nil {
			t.Fatalf("racer %d: %v", i, errs[i])
		}
		if oks[i] {
			wins++
		}
	}
	if wins != 2 {
		t.Fatalf("reservations landed = %d, want 2", wins)
	}

	var stored models.FuelStation
	if err := db.First(&stored, station.ID).Error; err != nil {
		t.Fatal(err)
	}
	if stored.CodBalance != wins*amount {
		t.Fatalf("cod_balance = %d, want %d", stored.CodBalance, wins*amount)
	}
	if stored.CodBalance > stored.CodBalanceLimit {
		t.Fatalf("balance %d exceeds limit %d", stored.CodBalance, stored.CodBalanceLimit)
	}
}

func TestReserveCodBalanceRespectsDisabledStation(t *testing.T) {
	db := acceptTestDB(t)

	station := &models.FuelStation{
		UserID:          9002,
		Name:            "reserve-disabled",
		Latitude:        12.97,
		Longitude:       77.59,
		CodBalanceLimit: 5000,
	}
	if err := db.Create(station).Error; err != nil {
		t.Fatal(err)
	}
	// the column default is true, so flip it explicitly
	if err := db.Model(station).Update("cod_enabled", false).Error; err != nil {
		t.Fatal(err)
	}

	ok, err := ReserveCodBalance(db, station.ID, 100)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("reservation landed on a COD-disabled station")
	}
}

func TestReleaseCodBalanceFloorsAtZero(t *testing.T) {
	db := acceptTestDB(t)

	station := &models.FuelStation{
		UserID:          9003,
		Name:            "release-test",
		Latitude:        12.97,
		Longitude:       77.59,
		CodEnabled:      true,
		CodBalance:      150,
		CodBalanceLimit: 5000,
	}
	if err := db.Create(station).Error; err != nil {
		t.Fatal(err)
	}

	if err := ReleaseCodBalance(db, station.ID, 100); err != nil {
		t.Fatal(err)
	}
	if err := ReleaseCodBalance(db, station.ID, 100); err != nil {
		t.Fatal(err)
	}

	var stored models.FuelStation
	if err := db.First(&stored, station.ID).Error; err != nil {
		t.Fatal(err)
	}
	if stored.CodBalance != 0 {
		t.Fatalf("cod_balance = %d, want 0", stored.CodBalance)
	}
}
