package services

import (
	"math"
	"strings"
	"time"

	"fuel-dispatch-server/config"
	"fuel-dispatch-server/models"
)

// Surge reason strings surfaced on customer bills
const (
	SurgeReasonNight   = "Night delivery"
	SurgeReasonWeather = "Rainy weather"
)

// QuoteInput carries everything the pricing formula depends on. Storing it
// with the output makes any bill re-derivable for audit.
type QuoteInput struct {
	Kind models.ServiceKind
	// Litres is used for fuel kinds only
	Litres float64
	// UnitPrice is the price per litre for fuel kinds, the flat service
	// fee otherwise (from the service_types table)
	UnitPrice  int
	Now        time.Time
	BadWeather bool
}

// PricingParams are the formula knobs, resolved from config with system
// defaults.
type PricingParams struct {
	BaseDeliveryFee     int
	SmallOrderSurcharge int
	SmallOrderLitres    float64
	PlatformFeePct      float64
	MarginFloor         int

	BasePay      int
	PerKmRate    int
	MinGuarantee int
}

// DefaultPricingParams returns the system defaults.
func DefaultPricingParams() PricingParams {
	return PricingParams{
		BaseDeliveryFee:     80,
		SmallOrderSurcharge: 35,
		SmallOrderLitres:    5,
		PlatformFeePct:      5,
		MarginFloor:         15,
		BasePay:             50,
		PerKmRate:           10,
		MinGuarantee:        100,
	}
}

// PricingParamsFromConfig resolves the formula knobs from the loaded app
// config, falling back to defaults when config is not loaded (tests).
func PricingParamsFromConfig() PricingParams {
	if config.AppConfig == nil {
		return DefaultPricingParams()
	}
	return PricingParams{
		BaseDeliveryFee:     config.AppConfig.Pricing.BaseDeliveryFee,
		SmallOrderSurcharge: config.AppConfig.Pricing.SmallOrderSurcharge,
		SmallOrderLitres:    config.AppConfig.Pricing.SmallOrderLitres,
		PlatformFeePct:      config.AppConfig.Pricing.PlatformFeePct,
		MarginFloor:         config.AppConfig.Pricing.MarginFloor,
		BasePay:             config.AppConfig.Payout.BasePay,
		PerKmRate:           config.AppConfig.Payout.PerKmRate,
		MinGuarantee:        config.AppConfig.Payout.MinGuarantee,
	}
}

// IsNightHour reports whether a local hour falls in the night surge window
// (9 PM to 6 AM).
func IsNightHour(hour int) bool {
	return hour >= 21 || hour < 6
}

// ComputeQuote prices a service request. It is pure: the same input always
// produces the same Bill, and it is the single authority for both the
// customer-facing quote and the settlement-side estimate.
func ComputeQuote(in QuoteInput, p PricingParams) models.Bill {
	hour := in.Now.Hour()
	night := IsNightHour(hour)

	bill := models.Bill{
		Kind:           in.Kind,
		Litres:         in.Litres,
		UnitPrice:      in.UnitPrice,
		QuotedHour:     hour,
		NightApplied:   night,
		WeatherApplied: in.BadWeather,
		FormulaVersion: models.BillFormulaVersion,
	}

	if in.Kind.IsFuel() {
		fuelCost := round(in.Litres * float64(in.UnitPrice))
		deliveryFee := p.BaseDeliveryFee
		smallOrder := 0
		if in.Litres < p.SmallOrderLitres {
			smallOrder = p.SmallOrderSurcharge
		}
		platformFee := round(float64(fuelCost) * p.PlatformFeePct / 100)

		// surge fractions apply to the base delivery fee, before any
		// margin-protection bump
		surgeFee, reasons := surgeOn(deliveryFee, night, in.BadWeather)

		// quote-time payout estimate assumes a 2 km trip; the realized
		// payout at settlement uses actual distance
		estPayout := p.BasePay + p.PerKmRate*2 + round(float64(surgeFee)*0.5)
		if estPayout < p.MinGuarantee {
			estPayout = p.MinGuarantee
		}

		// margin protection: the fee lines must cover the worker estimate
		// plus the platform floor, whatever the quoted payout is
		targetRevenue := estPayout + p.MarginFloor
		revenue := deliveryFee + platformFee + surgeFee + smallOrder
		if revenue < targetRevenue {
			deliveryFee += targetRevenue - revenue
		}

		bill.BaseCost = fuelCost
		bill.DeliveryFee = deliveryFee
		bill.SmallOrderSurcharge = smallOrder
		bill.PlatformFee = platformFee
		bill.SurgeFee = surgeFee
		bill.SurgeReasons = strings.Join(reasons, ", ")
		bill.Total = fuelCost + deliveryFee + smallOrder + platformFee + surgeFee
		bill.EstimatedWorkerPayout = estPayout
		bill.EstimatedStationPayout = fuelCost
		return bill
	}

	// non-fuel kinds: flat service fee, surge as a fraction of that fee,
	// no platform fee line (the provider collects residual charges)
	baseFee := in.UnitPrice
	surgeFee, reasons := surgeOn(baseFee, night, in.BadWeather)

	bill.BaseCost = baseFee
	bill.SurgeFee = surgeFee
	bill.SurgeReasons = strings.Join(reasons, ", ")
	bill.Total = baseFee + surgeFee
	bill.EstimatedWorkerPayout = p.BasePay + round(float64(surgeFee)*0.5)
	return bill
}

// surgeOn computes the additive surge on a fee base: 50% for night hours,
// 30% more for adverse weather, each with its reason string.
func surgeOn(feeBase int, night, badWeather bool) (int, []string) {
	surge := 0
	var reasons []string
	if night {
		surge += round(float64(feeBase) * 0.5)
		reasons = append(reasons, SurgeReasonNight)
	}
	if badWeather {
		surge += round(float64(feeBase) * 0.3)
		reasons = append(reasons, SurgeReasonWeather)
	}
	return surge, reasons
}

// RealizedPayout computes the worker payout at job completion from actual
// travelled distance. Fuel jobs pay base + per-km with a minimum guarantee;
// non-fuel jobs pay the flat base only.
func RealizedPayout(kind models.ServiceKind, distanceKm float64, basePay, perKmRate, minGuarantee int) int {
	if !kind.IsFuel() {
		return basePay
	}
	payout := round(float64(basePay) + float64(perKmRate)*distanceKm)
	if payout < minGuarantee {
		payout = minGuarantee
	}
	return payout
}

func round(v float64) int {
	return int(math.Round(v))
}
