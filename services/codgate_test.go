package services

import (
	"testing"
	"time"

	"fuel-dispatch-server/models"
	"fuel-dispatch-server/utils"
)

func gateSettings() models.CodSettings {
	return models.DefaultCodSettings()
}

func trustedUser(id uint) *models.User {
	return &models.User{ID: id, TrustScore: 75}
}

func gateInput(user *models.User) CodGateInput {
	return CodGateInput{
		User:        user,
		OrderAmount: 400,
		Location:    &utils.Location{Latitude: 12.97, Longitude: 77.60},
		FuelType:    models.KindPetrol,
		Litres:      3,
		Stations:    []models.FuelStation{station(1, 12.98, 77.60, 100)},
		Now:         time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC),
	}
}

func TestCodGateAllowsTrustedUser(t *testing.T) {
	d := EvaluateCod(gateInput(trustedUser(9)), gateSettings())
	if !d.Allowed {
		t.Fatalf("expected allow, got deny: %s", d.Reason)
	}
	if d.StationID != 1 {
		t.Fatalf("expected selected station attached, got %d", d.StationID)
	}
}

func TestCodGateDenialReasons(t *testing.T) {
	now := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	future := now.Add(48 * time.Hour)
	past := now.Add(-48 * time.Hour)

	cases := []struct {
		name   string
		mutate func(*CodGateInput)
		want   string
	}{
		{"nil user", func(in *CodGateInput) { in.User = nil }, ReasonInvalidUser},
		{"zero user id", func(in *CodGateInput) { in.User = trustedUser(0) }, ReasonInvalidUser},
		{"disabled flag", func(in *CodGateInput) { in.User.CodDisabled = true }, ReasonCodDisabled},
		{"disabled until future", func(in *CodGateInput) { in.User.CodDisabledUntil = &future }, ReasonCodDisabledUntil},
		{"fail limit", func(in *CodGateInput) { in.User.CodFailureCount = 3 }, ReasonCodFailLimit},
		{"trust low", func(in *CodGateInput) { in.User.TrustScore = 20 }, ReasonTrustScoreLow},
		{"no location", func(in *CodGateInput) { in.Location = nil }, ReasonLocationNotSupported},
		{"bad location", func(in *CodGateInput) { in.Location = &utils.Location{Latitude: 99, Longitude: 0} }, ReasonLocationNotSupported},
		{"no station", func(in *CodGateInput) { in.Stations = nil }, ReasonStationNotFound},
		{"station refuses cod", func(in *CodGateInput) { in.Stations[0].CodEnabled = false }, ReasonStationNoCod},
		{"station balance maxed", func(in *CodGateInput) {
			in.Stations[0].CodBalance = 4800
			in.Stations[0].CodBalanceLimit = 5000
		}, ReasonStationNoCod},
		{"amount too high", func(in *CodGateInput) { in.OrderAmount = 501 }, ReasonOrderAmountTooHigh},
	}

	for _, c := range cases {
		in := gateInput(trustedUser(9))
		in.Now = now
		c.mutate(&in)
		d := EvaluateCod(in, gateSettings())
		if d.Allowed {
			t.Fatalf("%s: expected deny", c.name)
		}
		if d.Reason != c.want {
			t.Fatalf("%s: want %s, got %s", c.name, c.want, d.Reason)
		}
	}

	// an expired disable window no longer denies
	in := gateInput(trustedUser(9))
	in.Now = now
	in.User.CodDisabledUntil = &past
	in.User.CodDisabled = true // flag with expiry defers to the window
	if d := EvaluateCod(in, gateSettings()); !d.Allowed {
		t.Fatalf("expired disable window should allow, got %s", d.Reason)
	}
}

func TestCodGateFailLimitWinsOverTrustAndAmount(t *testing.T) {
	in := gateInput(trustedUser(9))
	in.User.CodFailureCount = 3
	in.User.TrustScore = 100 // high trust does not rescue
	in.OrderAmount = 1       // tiny amount does not rescue

	d := EvaluateCod(in, gateSettings())
	if d.Allowed || d.Reason != ReasonCodFailLimit {
		t.Fatalf("want cod_fail_limit regardless of trust/amount, got %+v", d)
	}
}

func TestCodGateCheckOrdering(t *testing.T) {
	// multiple failing conditions: the earlier check in the order wins
	in := gateInput(trustedUser(9))
	in.User.CodDisabled = true
	in.User.CodFailureCount = 10
	in.User.TrustScore = 0
	in.OrderAmount = 10000
	in.Stations = nil

	d := EvaluateCod(in, gateSettings())
	if d.Reason != ReasonCodDisabled {
		t.Fatalf("disabled flag must short-circuit first, got %s", d.Reason)
	}

	in.User.CodDisabled = false
	d = EvaluateCod(in, gateSettings())
	if d.Reason != ReasonCodFailLimit {
		t.Fatalf("fail limit before trust score, got %s", d.Reason)
	}

	in.User.CodFailureCount = 0
	d = EvaluateCod(in, gateSettings())
	if d.Reason != ReasonTrustScoreLow {
		t.Fatalf("trust score before station lookup, got %s", d.Reason)
	}

	in.User.TrustScore = 90
	d = EvaluateCod(in, gateSettings())
	if d.Reason != ReasonStationNotFound {
		t.Fatalf("station lookup before amount check, got %s", d.Reason)
	}
}

func TestCodGateIsTotal(t *testing.T) {
	// sweep a grid of inputs; every combination must yield exactly one
	// well-formed decision
	users := []*models.User{
		nil,
		trustedUser(0),
		trustedUser(1),
		{ID: 2, TrustScore: 10},
		{ID: 3, TrustScore: 80, CodDisabled: true},
		{ID: 4, TrustScore: 80, CodFailureCount: 5},
	}
	locations := []*utils.Location{
		nil,
		{Latitude: 12.97, Longitude: 77.60},
		{Latitude: 200, Longitude: 0},
	}
	stationSets := [][]models.FuelStation{
		nil,
		{station(1, 12.98, 77.60, 100)},
		{station(1, 12.98, 77.60, 0)},
	}
	amounts := []int{0, 400, 9999}

	for _, u := range users {
		for _, loc := range locations {
			for _, set := range stationSets {
				for _, amt := range amounts {
					in := CodGateInput{
						User:        u,
						OrderAmount: amt,
						Location:    loc,
						FuelType:    models.KindPetrol,
						Litres:      3,
						Stations:    set,
						Now:         time.Now(),
					}
					d := EvaluateCod(in, gateSettings())
					if d.Allowed && d.StationID == 0 {
						t.Fatal("allow must carry a station id")
					}
					if !d.Allowed && d.Reason == "" {
						t.Fatal("deny must carry a reason")
					}
				}
			}
		}
	}
}
