package models

import (
	"testing"

	"github.com/gin-gonic/gin/binding"
)

func TestCanTransitionHappyPath(t *testing.T) {
	steps := []struct {
		from, to RequestStatus
		actor    Actor
	}{
		{StatusPending, StatusAssigned, ActorWorker},
		{StatusAssigned, StatusInProgress, ActorWorker},
		{StatusInProgress, StatusCompleted, ActorWorker},
	}
	for _, s := range steps {
		ok, reason := CanTransition(s.from, s.to, s.actor)
		if !ok {
			t.Fatalf("%s -> %s by %s rejected: %s", s.from, s.to, s.actor, reason)
		}
	}
}

func TestCanTransitionRejectsIllegalEdges(t *testing.T) {
	cases := []struct {
		from, to RequestStatus
		actor    Actor
		want     TransitionError
	}{
		{StatusPending, StatusInProgress, ActorWorker, TransitionIllegal},
		{StatusPending, StatusCompleted, ActorWorker, TransitionIllegal},
		{StatusAssigned, StatusCompleted, ActorWorker, TransitionIllegal},
		{StatusCompleted, StatusCancelled, ActorRequester, TransitionTerminalState},
		{StatusCancelled, StatusAssigned, ActorWorker, TransitionTerminalState},
		{StatusPending, StatusAssigned, ActorRequester, TransitionIllegal},
		{StatusAssigned, StatusInProgress, ActorRequester, TransitionIllegal},
	}
	for _, c := range cases {
		ok, reason := CanTransition(c.from, c.to, c.actor)
		if ok {
			t.Fatalf("%s -> %s by %s should be rejected", c.from, c.to, c.actor)
		}
		if reason != c.want {
			t.Fatalf("%s -> %s by %s: want %s, got %s", c.from, c.to, c.actor, c.want, reason)
		}
	}
}

func TestWorkerCannotCancelInProgress(t *testing.T) {
	ok, reason := CanTransition(StatusInProgress, StatusCancelled, ActorWorker)
	if ok {
		t.Fatal("worker cancel of an in-progress job must be rejected")
	}
	if reason != TransitionWrongActor {
		t.Fatalf("want %s, got %s", TransitionWrongActor, reason)
	}

	// the requester can still cancel unconditionally
	if ok, _ := CanTransition(StatusInProgress, StatusCancelled, ActorRequester); !ok {
		t.Fatal("requester cancel of an in-progress job must be allowed")
	}
}

func TestWorkerCanCancelBeforeTravel(t *testing.T) {
	for _, from := range []RequestStatus{StatusPending, StatusAssigned} {
		if ok, _ := CanTransition(from, StatusCancelled, ActorWorker); !ok {
			t.Fatalf("worker cancel from %s must be allowed", from)
		}
	}
}

func TestRoleForKind(t *testing.T) {
	cases := map[ServiceKind]WorkerRole{
		KindPetrol:       RoleDelivery,
		KindDiesel:       RoleDelivery,
		KindCrane:        RoleCrane,
		KindMechanicBike: RoleMechanicBike,
		KindMechanicCar:  RoleMechanicCar,
	}
	for kind, want := range cases {
		if got := RoleForKind(kind); got != want {
			t.Fatalf("RoleForKind(%s) = %s, want %s", kind, got, want)
		}
	}
	if RoleForKind("unknown") != "" {
		t.Fatal("unknown kind should map to empty role")
	}
}

func TestKindPredicates(t *testing.T) {
	if !KindPetrol.IsFuel() || !KindDiesel.IsFuel() {
		t.Fatal("petrol and diesel are fuel kinds")
	}
	if KindCrane.IsFuel() {
		t.Fatal("crane is not a fuel kind")
	}
	if !KindMechanicCar.IsValid() || ServiceKind("jetpack").IsValid() {
		t.Fatal("kind validity broken")
	}
}

func TestServiceRequestCreateBindsZeroCoordinates(t *testing.T) {
	// a breakdown on the equator or prime meridian is a real coordinate
	body := []byte(`{
		"kind": "petrol",
		"litres": 5,
		"vehicle_number": "KA01AB1234",
		"phone_number": "+919000000001",
		"location_lat": 0,
		"location_lng": 0
	}`)

	var req ServiceRequestCreate
	if err := binding.JSON.BindBody(body, &req); err != nil {
		t.Fatalf("zero coordinates rejected: %v", err)
	}
	if req.LocationLat == nil || *req.LocationLat != 0 {
		t.Errorf("location_lat = %v, want 0", req.LocationLat)
	}
	if req.LocationLng == nil || *req.LocationLng != 0 {
		t.Errorf("location_lng = %v, want 0", req.LocationLng)
	}
}

func TestServiceRequestCreateRequiresCoordinates(t *testing.T) {
	body := []byte(`{
		"kind": "petrol",
		"litres": 5,
		"vehicle_number": "KA01AB1234",
		"phone_number": "+919000000001"
	}`)

	var req ServiceRequestCreate
	if err := binding.JSON.BindBody(body, &req); err == nil {
		t.Fatal("missing coordinates accepted")
	}
}
