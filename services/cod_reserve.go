package services

import (
	"gorm.io/gorm"

	"fuel-dispatch-server/models"
)

// ReserveCodBalance reserves amount against a station's outstanding COD
// balance. The headroom check and the increment run as one conditional
// update, so concurrent orders can never jointly push the station past
// its limit. Returns false when the station has no headroom left.
func ReserveCodBalance(db *gorm.DB, stationID uint, amount int) (bool, error) {
	result := db.Model(&models.FuelStation{}).
		Where("id = ? AND cod_enabled = ? AND cod_balance + ? <= cod_balance_limit",
			stationID, true, amount).
		Update("cod_balance", gorm.Expr("cod_balance + ?", amount))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ReleaseCodBalance returns a reserved amount to a station's headroom.
func ReleaseCodBalance(db *gorm.DB, stationID uint, amount int) error {
	return db.Model(&models.FuelStation{}).
		Where("id = ?", stationID).
		Update("cod_balance", gorm.Expr("GREATEST(cod_balance - ?, 0)", amount)).Error
}

// ReleaseCodReservation gives back the COD amount a request holds, if any.
// The request's bill must be loaded.
func ReleaseCodReservation(db *gorm.DB, request *models.ServiceRequest) error {
	if request.CodStationID == nil || request.Bill == nil {
		return nil
	}
	return ReleaseCodBalance(db, *request.CodStationID, request.Bill.Total)
}
