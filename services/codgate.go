package services

import (
	"time"

	"fuel-dispatch-server/models"
	"fuel-dispatch-server/utils"
)

// COD denial reason codes, surfaced verbatim to the caller.
const (
	ReasonInvalidUser          = "invalid_user"
	ReasonCodDisabled          = "cod_disabled"
	ReasonCodDisabledUntil     = "cod_disabled_until"
	ReasonCodFailLimit         = "cod_fail_limit"
	ReasonTrustScoreLow        = "trust_score_low"
	ReasonLocationNotSupported = "location_not_supported"
	ReasonStationNotFound      = "fuel_station_not_found"
	ReasonStationNoCod         = "fuel_station_no_cod"
	ReasonOrderAmountTooHigh   = "order_amount_too_high"
	ReasonServerError          = "server_error"
)

// CodDecision is the COD gate outcome: either allowed with the selected
// station attached, or denied with a reason code.
type CodDecision struct {
	Allowed   bool   `json:"cod_allowed"`
	Reason    string `json:"reason,omitempty"`
	StationID uint   `json:"fuel_station_id,omitempty"`
}

func deny(reason string) CodDecision {
	return CodDecision{Allowed: false, Reason: reason}
}

// CodGateInput carries everything the gate evaluates. Stations must be
// loaded (with stock) by the caller; the gate itself does no I/O.
type CodGateInput struct {
	User        *models.User
	OrderAmount int
	Location    *utils.Location
	FuelType    models.ServiceKind
	Litres      float64
	Stations    []models.FuelStation
	MaxRadiusKm float64
	Now         time.Time
}

// EvaluateCod runs the ordered COD eligibility checks; the first failing
// check wins. It is a total function over loaded data: every input yields
// exactly one decision and it never panics. Infra failures are the caller's
// concern and map to server_error (fail closed).
func EvaluateCod(in CodGateInput, settings models.CodSettings) CodDecision {
	if in.User == nil || in.User.ID == 0 {
		return deny(ReasonInvalidUser)
	}
	user := in.User

	if user.CodDisabled && user.CodDisabledUntil == nil {
		return deny(ReasonCodDisabled)
	}
	if user.CodDisabledUntil != nil && user.CodDisabledUntil.After(in.Now) {
		return deny(ReasonCodDisabledUntil)
	}
	if user.CodFailureCount >= settings.MaxFailures {
		return deny(ReasonCodFailLimit)
	}
	if user.TrustScore < settings.TrustThreshold {
		return deny(ReasonTrustScoreLow)
	}
	if in.Location == nil || !utils.IsLocationValid(in.Location.Latitude, in.Location.Longitude) {
		return deny(ReasonLocationNotSupported)
	}

	// nearest candidate regardless of COD policy, so "no station at all"
	// and "nearest station refuses COD" stay distinct reasons
	candidate, ok := SelectStation(in.Stations, StationQuery{
		Location:    *in.Location,
		FuelType:    in.FuelType,
		Litres:      in.Litres,
		MaxRadiusKm: in.MaxRadiusKm,
	})
	if !ok {
		return deny(ReasonStationNotFound)
	}
	if !candidate.CodEnabled || !candidate.CodHeadroomFor(in.OrderAmount) {
		return deny(ReasonStationNoCod)
	}

	if in.OrderAmount > settings.CodLimit {
		return deny(ReasonOrderAmountTooHigh)
	}

	return CodDecision{Allowed: true, StationID: candidate.ID}
}
