package services

import (
	"fmt"
	"os"
	"sync"
	"testing"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"fuel-dispatch-server/models"
)

func worker(role models.WorkerRole, status models.WorkerStatus) *models.Worker {
	return &models.Worker{
		Role:       role,
		Status:     status,
		IsVerified: true,
	}
}

func pendingRequest(kind models.ServiceKind) *models.ServiceRequest {
	return &models.ServiceRequest{Kind: kind, Status: models.StatusPending}
}

func TestCanSeeRoleMatch(t *testing.T) {
	cases := []struct {
		role models.WorkerRole
		kind models.ServiceKind
		want bool
	}{
		{models.RoleDelivery, models.KindPetrol, true},
		{models.RoleDelivery, models.KindDiesel, true},
		{models.RoleDelivery, models.KindCrane, false},
		{models.RoleCrane, models.KindCrane, true},
		{models.RoleCrane, models.KindPetrol, false},
		{models.RoleMechanicBike, models.KindMechanicBike, true},
		{models.RoleMechanicBike, models.KindMechanicCar, false},
		{models.RoleMechanicCar, models.KindMechanicCar, true},
	}
	for _, c := range cases {
		got := CanSee(worker(c.role, models.WorkerAvailable), pendingRequest(c.kind))
		if got != c.want {
			t.Errorf("CanSee(%s, %s) = %v, want %v", c.role, c.kind, got, c.want)
		}
	}
}

func TestEligibleForWork(t *testing.T) {
	cases := []struct {
		name       string
		mutate     func(*models.Worker)
		active     int64
		wantOK     bool
		wantReason ForbiddenReason
	}{
		{"available and verified", func(w *models.Worker) {}, 0, true, ""},
		{"offline", func(w *models.Worker) { w.Status = models.WorkerOffline }, 0, false, ForbiddenOffline},
		{"busy status", func(w *models.Worker) { w.Status = models.WorkerBusy }, 0, false, ForbiddenBusy},
		{"busy by active job", func(w *models.Worker) {}, 1, false, ForbiddenBusy},
		{"unverified", func(w *models.Worker) { w.IsVerified = false }, 0, false, ForbiddenUnverified},
		{"locked", func(w *models.Worker) { w.StatusLocked = true }, 0, false, ForbiddenLocked},
		{"locked wins over offline", func(w *models.Worker) {
			w.StatusLocked = true
			w.Status = models.WorkerOffline
		}, 0, false, ForbiddenLocked},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			w := worker(models.RoleDelivery, models.WorkerAvailable)
			c.mutate(w)
			ok, reason := EligibleForWork(w, c.active)
			if ok != c.wantOK || reason != c.wantReason {
				t.Errorf("got (%v, %q), want (%v, %q)", ok, reason, c.wantOK, c.wantReason)
			}
		})
	}
}

func TestVisibleRequestsFilters(t *testing.T) {
	pending := []models.ServiceRequest{
		{Kind: models.KindPetrol, Status: models.StatusPending},
		{Kind: models.KindDiesel, Status: models.StatusPending},
		{Kind: models.KindCrane, Status: models.StatusPending},
		{Kind: models.KindPetrol, Status: models.StatusAssigned},
	}
	got := VisibleRequests(worker(models.RoleDelivery, models.WorkerAvailable), pending)
	if len(got) != 2 {
		t.Fatalf("expected 2 visible requests, got %d", len(got))
	}
	for _, r := range got {
		if !r.Kind.IsFuel() || r.Status != models.StatusPending {
			t.Errorf("unexpected visible request: kind=%s status=%s", r.Kind, r.Status)
		}
	}
}

// acceptTestDB opens the database named by FUEL_DISPATCH_TEST_DSN. The
// concurrency tests need a real database for row-level locking, so they
// skip when the variable is unset.
func acceptTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("FUEL_DISPATCH_TEST_DSN")
	if dsn == "" {
		t.Skip("FUEL_DISPATCH_TEST_DSN not set")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Worker{}, &models.FuelStation{},
		&models.Bill{}, &models.ServiceRequest{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		db.Exec("DELETE FROM service_requests")
		db.Exec("DELETE FROM bills")
		db.Exec("DELETE FROM fuel_stations")
		db.Exec("DELETE FROM workers")
		db.Exec("DELETE FROM users")
	})
	return db
}

func seedWorker(t *testing.T, db *gorm.DB, i int) *models.Worker {
	t.Helper()
	u := &models.User{
		FullName:     fmt.Sprintf("accept-test-%d", i),
		PhoneNumber:  fmt.Sprintf("+91900000%04d", i),
		PasswordHash: "x",
		Role:         models.RoleWorker,
	}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	w := &models.Worker{
		UserID:     u.ID,
		Role:       models.RoleDelivery,
		Status:     models.WorkerAvailable,
		IsVerified: true,
	}
	if err := db.Create(w).Error; err != nil {
		t.Fatalf("seed worker: %v", err)
	}
	return w
}

func seedCustomer(t *testing.T, db *gorm.DB, i int) *models.User {
	t.Helper()
	u := &models.User{
		FullName:     fmt.Sprintf("customer-test-%d", i),
		PhoneNumber:  fmt.Sprintf("+91910000%04d", i),
		PasswordHash: "x",
		Role:         models.RoleCustomer,
	}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("seed customer: %v", err)
	}
	return u
}

func TestAcceptRequestConcurrent(t *testing.T) {
	db := acceptTestDB(t)

	customer := seedCustomer(t, db, 1)
	req := &models.ServiceRequest{
		UserID: customer.ID,
		Kind:   models.KindPetrol,
		Status: models.StatusPending,
		Litres: 5,
	}
	if err := db.Create(req).Error; err != nil {
		t.Fatalf("seed request: %v", err)
	}

	const racers = 8
	workers := make([]*models.Worker, racers)
	for i := range workers {
		workers[i] = seedWorker(t, db, i)
	}

	var wg sync.WaitGroup
	results := make([]AcceptResult, racers)
	errs := make([]error, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = AcceptRequest(db, workers[i].ID, req.ID)
		}(i)
	}
	wg.Wait()

	wins := 0
	for i := range results {
		if errs[i] != nil {
			t.Fatalf("racer %d: %v", i, errs[i])
		}
		if results[i].Outcome == AcceptOK {
			wins++
		} else if results[i].Outcome != AcceptConflict {
			t.Errorf("racer %d: unexpected outcome %v reason %q", i, results[i].Outcome, results[i].Reason)
		}
	}
	if wins != 1 {
		t.Fatalf("expected exactly one winning accept, got %d", wins)
	}

	var stored models.ServiceRequest
	if err := db.First(&stored, req.ID).Error; err != nil {
		t.Fatalf("reload request: %v", err)
	}
	if stored.Status != models.StatusAssigned || stored.AssignedWorkerID == nil {
		t.Fatalf("request not claimed: status=%s worker=%v", stored.Status, stored.AssignedWorkerID)
	}

	var winner models.Worker
	if err := db.First(&winner, *stored.AssignedWorkerID).Error; err != nil {
		t.Fatalf("reload winner: %v", err)
	}
	if winner.Status != models.WorkerBusy {
		t.Fatalf("winning worker not flipped to busy, got %s", winner.Status)
	}
}

func TestAcceptRequestSecondJobRejected(t *testing.T) {
	db := acceptTestDB(t)

	w := seedWorker(t, db, 100)
	customer := seedCustomer(t, db, 100)
	first := &models.ServiceRequest{UserID: customer.ID, Kind: models.KindPetrol, Status: models.StatusPending, Litres: 5}
	second := &models.ServiceRequest{UserID: customer.ID, Kind: models.KindPetrol, Status: models.StatusPending, Litres: 8}
	if err := db.Create(first).Error; err != nil {
		t.Fatal(err)
	}
	if err := db.Create(second).Error; err != nil {
		t.Fatal(err)
	}

	res, err := AcceptRequest(db, w.ID, first.ID)
	if err != nil || res.Outcome != AcceptOK {
		t.Fatalf("first accept: outcome=%v err=%v", res.Outcome, err)
	}

	res, err = AcceptRequest(db, w.ID, second.ID)
	if err != nil {
		t.Fatal(err)
	}
	if res.Outcome != AcceptForbidden || res.Reason != ForbiddenBusy {
		t.Fatalf("second accept: got outcome=%v reason=%q, want forbidden busy", res.Outcome, res.Reason)
	}

	if err := ReleaseWorker(db, w.ID); err != nil {
		t.Fatalf("release: %v", err)
	}
	var reloaded models.Worker
	if err := db.First(&reloaded, w.ID).Error; err != nil {
		t.Fatal(err)
	}
	if reloaded.Status != models.WorkerAvailable {
		t.Fatalf("release did not flip worker back, got %s", reloaded.Status)
	}
}

func TestAcceptRequestCarriesBill(t *testing.T) {
	db := acceptTestDB(t)

	w := seedWorker(t, db, 200)
	bill := &models.Bill{
		BaseCost:       575,
		Total:          725,
		Kind:           models.KindPetrol,
		Litres:         5,
		UnitPrice:      115,
		FormulaVersion: models.BillFormulaVersion,
	}
	if err := db.Create(bill).Error; err != nil {
		t.Fatal(err)
	}
	req := &models.ServiceRequest{
		UserID:        seedCustomer(t, db, 200).ID,
		Kind:          models.KindPetrol,
		Status:        models.StatusPending,
		Litres:        5,
		PaymentMethod: models.PaymentCOD,
		BillID:        &bill.ID,
	}
	if err := db.Create(req).Error; err != nil {
		t.Fatal(err)
	}

	res, err := AcceptRequest(db, w.ID, req.ID)
	if err != nil || res.Outcome != AcceptOK {
		t.Fatalf("accept: outcome=%v err=%v", res.Outcome, err)
	}

	// station selection after accept reads the order amount off the bill
	if res.Request.Bill == nil {
		t.Fatal("accepted request carries no bill")
	}
	if res.Request.Bill.Total != 725 {
		t.Fatalf("bill total = %d, want 725", res.Request.Bill.Total)
	}
}

func TestCancelRequestClearsAssignment(t *testing.T) {
	db := acceptTestDB(t)

	w := seedWorker(t, db, 300)
	station := &models.FuelStation{UserID: w.UserID + 1000, Name: "cancel-test", Latitude: 12.97, Longitude: 77.59}
	if err := db.Create(station).Error; err != nil {
		t.Fatal(err)
	}
	req := &models.ServiceRequest{
		UserID: seedCustomer(t, db, 300).ID,
		Kind:   models.KindPetrol,
		Status: models.StatusPending,
		Litres: 5,
	}
	if err := db.Create(req).Error; err != nil {
		t.Fatal(err)
	}

	res, err := AcceptRequest(db, w.ID, req.ID)
	if err != nil || res.Outcome != AcceptOK {
		t.Fatalf("accept: outcome=%v err=%v", res.Outcome, err)
	}
	if err := db.Model(&models.ServiceRequest{}).
		Where("id = ?", req.ID).
		Update("assigned_station_id", station.ID).Error; err != nil {
		t.Fatal(err)
	}

	cancelled, err := CancelRequest(db, req.ID, models.StatusAssigned, "cancelled_by_requester")
	if err != nil || !cancelled {
		t.Fatalf("cancel: cancelled=%v err=%v", cancelled, err)
	}

	var stored models.ServiceRequest
	if err := db.First(&stored, req.ID).Error; err != nil {
		t.Fatal(err)
	}
	if stored.Status != models.StatusCancelled {
		t.Fatalf("status = %s, want Cancelled", stored.Status)
	}
	if stored.AssignedWorkerID != nil || stored.AssignedStationID != nil {
		t.Fatalf("cancelled request still holds assignment: worker=%v station=%v",
			stored.AssignedWorkerID, stored.AssignedStationID)
	}
	if stored.CancelReason != "cancelled_by_requester" {
		t.Fatalf("cancel_reason = %q", stored.CancelReason)
	}

	// losing the status guard must not cancel
	again, err := CancelRequest(db, req.ID, models.StatusAssigned, "cancelled_by_requester")
	if err != nil {
		t.Fatal(err)
	}
	if again {
		t.Fatal("cancel succeeded against a non-matching status")
	}
}
