package services

import (
	"fuel-dispatch-server/models"
	"fuel-dispatch-server/utils"
)

// StationQuery describes one fuel-station selection.
type StationQuery struct {
	Location utils.Location
	FuelType models.ServiceKind
	Litres   float64
	// COD restricts candidates to stations that accept cash orders and
	// still have balance headroom for OrderAmount.
	COD         bool
	OrderAmount int
	// MaxRadiusKm bounds the search; zero means unlimited.
	MaxRadiusKm float64
}

// SelectStation picks the nearest eligible station from the loaded set:
// open, verified, enough stock of the requested fuel, and (for COD orders)
// COD-enabled with balance headroom. Ties on distance break toward the
// lower station ID so selection is deterministic.
func SelectStation(stations []models.FuelStation, q StationQuery) (*models.FuelStation, bool) {
	var best *models.FuelStation
	var bestDist float64

	for i := range stations {
		s := &stations[i]
		if !s.IsOpen || !s.IsVerified {
			continue
		}
		if s.StockFor(q.FuelType) < q.Litres {
			continue
		}
		if q.COD && (!s.CodEnabled || !s.CodHeadroomFor(q.OrderAmount)) {
			continue
		}

		dist := utils.DistanceKm(q.Location, utils.Location{Latitude: s.Latitude, Longitude: s.Longitude})
		if q.MaxRadiusKm > 0 && dist > q.MaxRadiusKm {
			continue
		}

		if best == nil || dist < bestDist || (dist == bestDist && s.ID < best.ID) {
			best = s
			bestDist = dist
		}
	}

	return best, best != nil
}
