package models

import (
	"encoding/json"
	"time"
)

// Quantity identifies one of the tracked physical quantities.
type Quantity string

const (
	QuantityPH        Quantity = "ph"
	QuantityTurbidity Quantity = "turbidity"
	QuantityTDS       Quantity = "tds"
	QuantityWaterTemp Quantity = "water_temp"
	QuantityAirTemp   Quantity = "air_temp"
	QuantityHumidity  Quantity = "humidity"
	QuantityFlowRate  Quantity = "flow_rate"
)

// Quantities lists all tracked quantities in canonical order.
var Quantities = []Quantity{
	QuantityPH,
	QuantityTurbidity,
	QuantityTDS,
	QuantityWaterTemp,
	QuantityAirTemp,
	QuantityHumidity,
	QuantityFlowRate,
}

// QualityStatus summarizes a single reading's water quality.
type QualityStatus string

const (
	QualitySafe     QualityStatus = "safe"
	QualityMarginal QualityStatus = "marginal"
	QualityUnsafe   QualityStatus = "unsafe"
	QualityCritical QualityStatus = "critical"
)

// SensorReading is one water-quality measurement from a device.
// Readings are immutable once produced; consumers receive copies.
type SensorReading struct {
	Timestamp      time.Time     `json:"timestamp"`
	DeviceID       string        `json:"device_id"`
	VillageID      string        `json:"village_id"`
	PH             float64       `json:"ph_level"`
	TurbidityNTU   float64       `json:"turbidity_ntu"`
	TDSPPM         float64       `json:"tds_ppm"`
	WaterTempC     float64       `json:"water_temp_celsius"`
	AirTempC       float64       `json:"air_temp_celsius"`
	HumidityPct    float64       `json:"humidity_percent"`
	FlowRateLPM    float64       `json:"flow_rate_lpm"`
	IsLiveHardware bool          `json:"is_live_hardware"`
	AnomalyFlag    bool          `json:"anomaly_detected"`
	AnomalyType    string        `json:"anomaly_type,omitempty"`
	Quality        QualityStatus `json:"quality_status"`

	// Stale is set when the device is offline and the last known reading
	// is being re-served. Age is the time since that reading was taken.
	Stale bool          `json:"stale,omitempty"`
	Age   time.Duration `json:"age_seconds,omitempty"`
}

// MarshalJSON converts Age to seconds so the wire field matches its
// name. Durations otherwise marshal as nanoseconds.
func (r SensorReading) MarshalJSON() ([]byte, error) {
	type plain SensorReading
	return json.Marshal(struct {
		plain
		Age float64 `json:"age_seconds,omitempty"`
	}{plain(r), r.Age.Seconds()})
}

// Value returns the reading's value for the given quantity.
func (r *SensorReading) Value(q Quantity) float64 {
	switch q {
	case QuantityPH:
		return r.PH
	case QuantityTurbidity:
		return r.TurbidityNTU
	case QuantityTDS:
		return r.TDSPPM
	case QuantityWaterTemp:
		return r.WaterTempC
	case QuantityAirTemp:
		return r.AirTempC
	case QuantityHumidity:
		return r.HumidityPct
	case QuantityFlowRate:
		return r.FlowRateLPM
	}
	return 0
}

// SetValue stores a value for the given quantity.
func (r *SensorReading) SetValue(q Quantity, v float64) {
	switch q {
	case QuantityPH:
		r.PH = v
	case QuantityTurbidity:
		r.TurbidityNTU = v
	case QuantityTDS:
		r.TDSPPM = v
	case QuantityWaterTemp:
		r.WaterTempC = v
	case QuantityAirTemp:
		r.AirTempC = v
	case QuantityHumidity:
		r.HumidityPct = v
	case QuantityFlowRate:
		r.FlowRateLPM = v
	}
}

// DeviceStatus is the on-demand health summary for a device.
type DeviceStatus struct {
	DeviceID        string        `json:"device_id"`
	VillageID       string        `json:"village_id"`
	IsOnline        bool          `json:"is_online"`
	IsLiveHardware  bool          `json:"is_live_hardware"`
	BufferOccupancy int           `json:"buffer_occupancy"`
	BufferCapacity  int           `json:"buffer_capacity"`
	LastReadingAt   time.Time     `json:"last_reading_at"`
	LastReadingAge  time.Duration `json:"last_reading_age_seconds"`
	ReadingsToday   int           `json:"readings_today"`
	AnomaliesToday  int           `json:"anomalies_today"`
}

// MarshalJSON converts LastReadingAge to seconds so the wire field
// matches its name.
func (s DeviceStatus) MarshalJSON() ([]byte, error) {
	type plain DeviceStatus
	return json.Marshal(struct {
		plain
		LastReadingAge float64 `json:"last_reading_age_seconds"`
	}{plain(s), s.LastReadingAge.Seconds()})
}

// CalibrationResult reports the outcome of a calibration request.
type CalibrationResult struct {
	DeviceID     string    `json:"device_id"`
	Quantity     Quantity  `json:"quantity"`
	Offset       float64   `json:"offset"`
	Slope        float64   `json:"slope"`
	CalibratedAt time.Time `json:"calibrated_at"`
	Success      bool      `json:"success"`
	Message      string    `json:"message"`
}
