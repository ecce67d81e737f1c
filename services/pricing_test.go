package services

import (
	"strings"
	"testing"
	"time"

	"fuel-dispatch-server/models"
)

func dayTime(t *testing.T) time.Time {
	t.Helper()
	return time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
}

func nightTime(t *testing.T) time.Time {
	t.Helper()
	return time.Date(2025, 3, 10, 23, 0, 0, 0, time.UTC)
}

func TestQuoteSmallPetrolOrderDaytime(t *testing.T) {
	p := DefaultPricingParams()
	bill := ComputeQuote(QuoteInput{
		Kind:      models.KindPetrol,
		Litres:    3,
		UnitPrice: 100,
		Now:       dayTime(t),
	}, p)

	if bill.BaseCost != 300 {
		t.Fatalf("fuel cost: want 300, got %d", bill.BaseCost)
	}
	if bill.SmallOrderSurcharge != 35 {
		t.Fatalf("small order surcharge: want 35, got %d", bill.SmallOrderSurcharge)
	}
	if bill.PlatformFee != 15 {
		t.Fatalf("platform fee: want 15, got %d", bill.PlatformFee)
	}
	if bill.SurgeFee != 0 {
		t.Fatalf("surge fee: want 0, got %d", bill.SurgeFee)
	}
	// estimate: max(100, 50+20+0) = 100; target revenue 115;
	// 80+15+0+35 = 130 >= 115, so no bump
	if bill.DeliveryFee != 80 {
		t.Fatalf("delivery fee: want 80, got %d", bill.DeliveryFee)
	}
	if bill.EstimatedWorkerPayout != 100 {
		t.Fatalf("estimated payout: want 100, got %d", bill.EstimatedWorkerPayout)
	}
	if bill.Total != 300+80+35+15 {
		t.Fatalf("total: want %d, got %d", 300+80+35+15, bill.Total)
	}
}

func TestQuoteComponentsSumToTotal(t *testing.T) {
	p := DefaultPricingParams()
	inputs := []QuoteInput{
		{Kind: models.KindPetrol, Litres: 3, UnitPrice: 100, Now: dayTime(t)},
		{Kind: models.KindPetrol, Litres: 3, UnitPrice: 100, Now: nightTime(t), BadWeather: true},
		{Kind: models.KindDiesel, Litres: 20, UnitPrice: 95, Now: dayTime(t)},
		{Kind: models.KindDiesel, Litres: 4.5, UnitPrice: 95, Now: nightTime(t)},
		{Kind: models.KindCrane, UnitPrice: 1500, Now: nightTime(t), BadWeather: true},
		{Kind: models.KindMechanicBike, UnitPrice: 500, Now: dayTime(t)},
	}
	for _, in := range inputs {
		bill := ComputeQuote(in, p)
		sum := bill.BaseCost + bill.DeliveryFee + bill.SmallOrderSurcharge + bill.PlatformFee + bill.SurgeFee
		if bill.Total != sum {
			t.Fatalf("%s: total %d != component sum %d", in.Kind, bill.Total, sum)
		}
	}
}

func TestQuoteMarginInvariant(t *testing.T) {
	p := DefaultPricingParams()
	inputs := []QuoteInput{
		{Kind: models.KindPetrol, Litres: 1, UnitPrice: 100, Now: dayTime(t)},
		{Kind: models.KindPetrol, Litres: 3, UnitPrice: 100, Now: nightTime(t), BadWeather: true},
		{Kind: models.KindDiesel, Litres: 50, UnitPrice: 95, Now: nightTime(t)},
		{Kind: models.KindDiesel, Litres: 10, UnitPrice: 95, Now: dayTime(t), BadWeather: true},
	}
	for _, in := range inputs {
		bill := ComputeQuote(in, p)
		revenue := bill.DeliveryFee + bill.PlatformFee + bill.SurgeFee + bill.SmallOrderSurcharge
		if revenue < bill.EstimatedWorkerPayout+p.MarginFloor {
			t.Fatalf("%s litres=%v: revenue %d below worker estimate %d + floor %d",
				in.Kind, in.Litres, revenue, bill.EstimatedWorkerPayout, p.MarginFloor)
		}
	}
}

func TestQuoteMarginBumpRaisesDeliveryFeeOnly(t *testing.T) {
	p := DefaultPricingParams()
	// night surge inflates the payout estimate; a large order drops the
	// surcharge, so the delivery fee must absorb the shortfall
	bill := ComputeQuote(QuoteInput{
		Kind:      models.KindPetrol,
		Litres:    10,
		UnitPrice: 10, // tiny fuel cost keeps the platform fee low
		Now:       nightTime(t),
		BadWeather: true,
	}, p)

	// surge = round(80*0.5) + round(80*0.3) = 40 + 24 = 64
	if bill.SurgeFee != 64 {
		t.Fatalf("surge: want 64, got %d", bill.SurgeFee)
	}
	// estimate = max(100, 50+20+32) = 102, target = 117
	if bill.EstimatedWorkerPayout != 102 {
		t.Fatalf("estimate: want 102, got %d", bill.EstimatedWorkerPayout)
	}
	// platform fee = round(100*0.05) = 5; revenue pre-bump = 80+5+64 = 149 >= 117
	if bill.DeliveryFee != 80 {
		t.Fatalf("no bump expected, delivery fee got %d", bill.DeliveryFee)
	}

	// force a shortfall with a raised margin floor
	p.MarginFloor = 60
	bill = ComputeQuote(QuoteInput{
		Kind:      models.KindPetrol,
		Litres:    10,
		UnitPrice: 10,
		Now:       nightTime(t),
		BadWeather: true,
	}, p)
	// target = 102+60 = 162, revenue pre-bump 149, shortfall 13
	if bill.DeliveryFee != 93 {
		t.Fatalf("bumped delivery fee: want 93, got %d", bill.DeliveryFee)
	}
	if bill.PlatformFee != 5 {
		t.Fatalf("platform fee must not float with the bump, got %d", bill.PlatformFee)
	}
}

func TestQuoteSurgeReasons(t *testing.T) {
	p := DefaultPricingParams()

	bill := ComputeQuote(QuoteInput{Kind: models.KindPetrol, Litres: 10, UnitPrice: 100, Now: nightTime(t)}, p)
	if bill.SurgeReasons != SurgeReasonNight {
		t.Fatalf("want night reason only, got %q", bill.SurgeReasons)
	}

	bill = ComputeQuote(QuoteInput{Kind: models.KindPetrol, Litres: 10, UnitPrice: 100, Now: nightTime(t), BadWeather: true}, p)
	if !strings.Contains(bill.SurgeReasons, SurgeReasonNight) || !strings.Contains(bill.SurgeReasons, SurgeReasonWeather) {
		t.Fatalf("want both reasons, got %q", bill.SurgeReasons)
	}

	bill = ComputeQuote(QuoteInput{Kind: models.KindPetrol, Litres: 10, UnitPrice: 100, Now: dayTime(t)}, p)
	if bill.SurgeReasons != "" {
		t.Fatalf("want no reasons, got %q", bill.SurgeReasons)
	}
}

func TestQuoteNonFuel(t *testing.T) {
	p := DefaultPricingParams()

	bill := ComputeQuote(QuoteInput{Kind: models.KindCrane, UnitPrice: 1500, Now: dayTime(t)}, p)
	if bill.BaseCost != 1500 || bill.Total != 1500 {
		t.Fatalf("flat fee day quote: base %d total %d", bill.BaseCost, bill.Total)
	}
	if bill.DeliveryFee != 0 || bill.PlatformFee != 0 || bill.SmallOrderSurcharge != 0 {
		t.Fatal("non-fuel bills carry no delivery/platform/surcharge lines")
	}
	if bill.EstimatedWorkerPayout != p.BasePay {
		t.Fatalf("flat payout: want %d, got %d", p.BasePay, bill.EstimatedWorkerPayout)
	}

	// surge on the flat fee at night: round(1500*0.5) = 750
	bill = ComputeQuote(QuoteInput{Kind: models.KindCrane, UnitPrice: 1500, Now: nightTime(t)}, p)
	if bill.SurgeFee != 750 {
		t.Fatalf("night surge on flat fee: want 750, got %d", bill.SurgeFee)
	}
	if bill.Total != 2250 {
		t.Fatalf("total: want 2250, got %d", bill.Total)
	}
	if bill.EstimatedWorkerPayout != p.BasePay+375 {
		t.Fatalf("payout with surge share: want %d, got %d", p.BasePay+375, bill.EstimatedWorkerPayout)
	}
}

func TestQuoteDeterministic(t *testing.T) {
	p := DefaultPricingParams()
	in := QuoteInput{Kind: models.KindPetrol, Litres: 3, UnitPrice: 100, Now: nightTime(t), BadWeather: true}
	a := ComputeQuote(in, p)
	b := ComputeQuote(in, p)
	if a != b {
		t.Fatalf("same input must produce identical bills: %+v vs %+v", a, b)
	}
}

func TestIsNightHour(t *testing.T) {
	for _, h := range []int{21, 22, 23, 0, 3, 5} {
		if !IsNightHour(h) {
			t.Fatalf("hour %d should be night", h)
		}
	}
	for _, h := range []int{6, 9, 12, 18, 20} {
		if IsNightHour(h) {
			t.Fatalf("hour %d should be day", h)
		}
	}
}

func TestRealizedPayout(t *testing.T) {
	// short fuel trip hits the minimum guarantee
	if got := RealizedPayout(models.KindPetrol, 2, 50, 10, 100); got != 100 {
		t.Fatalf("short trip: want 100, got %d", got)
	}
	// long trip pays base + per-km
	if got := RealizedPayout(models.KindDiesel, 12, 50, 10, 100); got != 170 {
		t.Fatalf("long trip: want 170, got %d", got)
	}
	// fractional distance rounds
	if got := RealizedPayout(models.KindPetrol, 7.25, 50, 10, 100); got != 123 {
		t.Fatalf("fractional trip: want 123, got %d", got)
	}
	// non-fuel jobs pay the flat base regardless of distance
	if got := RealizedPayout(models.KindCrane, 40, 50, 10, 100); got != 50 {
		t.Fatalf("non-fuel: want 50, got %d", got)
	}
	// per-worker overrides flow through
	if got := RealizedPayout(models.KindPetrol, 10, 60, 12, 150); got != 180 {
		t.Fatalf("override trip: want 180, got %d", got)
	}
}
