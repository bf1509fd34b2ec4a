package anomaly

import "waterguard-backend/internal/models"

// Threshold table for single-reading anomaly classification.
const (
	PHMin        = 6.5
	PHMax        = 8.5
	TurbidityMax = 5.0 // NTU
	TDSMax       = 500 // ppm
	WaterTempMax = 35  // °C
)

// Anomaly classification tags.
const (
	TagHighTurbidity   = "high_turbidity"
	TagHighTDS         = "high_tds"
	TagPHOutOfRange    = "ph_out_of_range"
	TagHighTemperature = "high_temperature"
)

// Check classifies a single reading. When multiple thresholds are
// violated the most severe single tag wins, in the fixed priority
// order turbidity > tds > ph > temperature. Total over all readings.
func Check(r *models.SensorReading) (bool, string) {
	if r.TurbidityNTU > TurbidityMax {
		return true, TagHighTurbidity
	}
	if r.TDSPPM > TDSMax {
		return true, TagHighTDS
	}
	if r.PH < PHMin || r.PH > PHMax {
		return true, TagPHOutOfRange
	}
	if r.WaterTempC > WaterTempMax {
		return true, TagHighTemperature
	}
	return false, ""
}

// QualityStatus grades a reading after anomaly classification.
func QualityStatus(r *models.SensorReading, anomalous bool) models.QualityStatus {
	if anomalous {
		if r.TurbidityNTU > 8 || r.PH < 6.0 || r.PH > 9.0 {
			return models.QualityCritical
		}
		return models.QualityUnsafe
	}

	marginal := (r.PH >= 6.5 && r.PH <= 6.7) ||
		(r.PH >= 8.3 && r.PH <= 8.5) ||
		(r.TurbidityNTU >= 3.5 && r.TurbidityNTU <= 5.0) ||
		(r.TDSPPM >= 450 && r.TDSPPM <= 500)
	if marginal {
		return models.QualityMarginal
	}
	return models.QualitySafe
}
