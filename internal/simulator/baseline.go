package simulator

import (
	"fmt"
	"sync"
	"time"

	"waterguard-backend/internal/models"
)

// QuantityParams holds the simulation parameters for one quantity.
type QuantityParams struct {
	NoiseStd   float64 // std dev of per-tick Gaussian noise
	DriftStd   float64 // std dev of each drift step
	DriftClamp float64 // |drift| never exceeds this
	Min, Max   float64 // physical clamp for produced values
	MaxOffset  float64 // largest calibration offset accepted
}

var quantityParams = map[models.Quantity]QuantityParams{
	models.QuantityPH:        {NoiseStd: 0.05, DriftStd: 0.02, DriftClamp: 0.3, Min: 5.0, Max: 10.0, MaxOffset: 1.0},
	models.QuantityTurbidity: {NoiseStd: 0.1, DriftStd: 0.05, DriftClamp: 0.5, Min: 0, Max: 50.0, MaxOffset: 2.0},
	models.QuantityTDS:       {NoiseStd: 5, DriftStd: 2, DriftClamp: 20, Min: 0, Max: 2000, MaxOffset: 50},
	models.QuantityWaterTemp: {NoiseStd: 0.3, DriftStd: 0.1, DriftClamp: 2, Min: 15, Max: 40, MaxOffset: 3},
	models.QuantityAirTemp:   {NoiseStd: 0.5, DriftStd: 0.1, DriftClamp: 2, Min: 20, Max: 45, MaxOffset: 3},
	models.QuantityHumidity:  {NoiseStd: 2, DriftStd: 0.5, DriftClamp: 5, Min: 30, Max: 100, MaxOffset: 10},
	models.QuantityFlowRate:  {NoiseStd: 0.3, DriftStd: 0.1, DriftClamp: 2, Min: 0, Max: 100, MaxOffset: 5},
}

// Params returns the simulation parameters for a quantity.
func Params(q models.Quantity) QuantityParams {
	return quantityParams[q]
}

// Calibration adjusts a device's produced values for one quantity.
// Applied as value*Slope + Offset from the moment it is set; readings
// already in history are never rewritten.
type Calibration struct {
	Offset float64
	Slope  float64
}

// Trend scripts a monotonic approach toward an unsafe value, emulating
// a developing contamination event on one quantity.
type Trend struct {
	Quantity models.Quantity
	StepPer  float64 // added per tick, cumulative
	Limit    float64 // trend contribution stops growing here
}

// DeviceBaseline is the simulated physical state of one device. Owned
// by the BaselineStore; mutated only through the Simulator tick and
// the calibration API.
type DeviceBaseline struct {
	DeviceID  string
	VillageID string
	Online    bool
	Trend     *Trend

	baseline    map[models.Quantity]float64
	drift       map[models.Quantity]float64
	calibration map[models.Quantity]Calibration

	tickCount      int
	trendTicks     int
	readingsToday  int
	anomaliesToday int
	lastReading    *models.SensorReading
	lastUpdated    time.Time
}

// DeviceConfig seeds one device into the store.
type DeviceConfig struct {
	DeviceID  string
	VillageID string
	Online    bool
	Baseline  map[models.Quantity]float64
	Trend     *Trend
}

// DefaultDevices mirrors the deployed pilot units: one healthy, one
// with a progressive turbidity trend, one offline.
func DefaultDevices() []DeviceConfig {
	return []DeviceConfig{
		{
			DeviceID: "RPI5-UNIT-001", VillageID: "MH_SHP", Online: true,
			Baseline: map[models.Quantity]float64{
				models.QuantityPH: 7.2, models.QuantityTurbidity: 1.1, models.QuantityTDS: 312,
				models.QuantityWaterTemp: 26.5, models.QuantityAirTemp: 31.0,
				models.QuantityHumidity: 65, models.QuantityFlowRate: 12.5,
			},
		},
		{
			DeviceID: "RPI5-UNIT-002", VillageID: "MH_DHA", Online: true,
			Baseline: map[models.Quantity]float64{
				models.QuantityPH: 6.8, models.QuantityTurbidity: 4.2, models.QuantityTDS: 478,
				models.QuantityWaterTemp: 28.1, models.QuantityAirTemp: 33.2,
				models.QuantityHumidity: 72, models.QuantityFlowRate: 10.8,
			},
			Trend: &Trend{Quantity: models.QuantityTurbidity, StepPer: 0.15, Limit: 10.0},
		},
		{
			DeviceID: "RPI5-UNIT-003", VillageID: "UP_BAH", Online: false,
			Baseline: map[models.Quantity]float64{
				models.QuantityPH: 7.0, models.QuantityTurbidity: 2.5, models.QuantityTDS: 390,
				models.QuantityWaterTemp: 27.0, models.QuantityAirTemp: 32.5,
				models.QuantityHumidity: 68, models.QuantityFlowRate: 11.2,
			},
		},
	}
}

// BaselineStore is the arena of per-device baselines. The simulation
// tick is the single writer of baseline state; everything else reads
// snapshots through the accessors.
type BaselineStore struct {
	mu      sync.RWMutex
	devices map[string]*DeviceBaseline
	order   []string
}

// NewBaselineStore seeds a store from device configs.
func NewBaselineStore(configs []DeviceConfig) *BaselineStore {
	s := &BaselineStore{devices: make(map[string]*DeviceBaseline)}
	for _, cfg := range configs {
		base := make(map[models.Quantity]float64, len(cfg.Baseline))
		for q, v := range cfg.Baseline {
			base[q] = v
		}
		s.devices[cfg.DeviceID] = &DeviceBaseline{
			DeviceID:    cfg.DeviceID,
			VillageID:   cfg.VillageID,
			Online:      cfg.Online,
			Trend:       cfg.Trend,
			baseline:    base,
			drift:       make(map[models.Quantity]float64),
			calibration: make(map[models.Quantity]Calibration),
		}
		s.order = append(s.order, cfg.DeviceID)
	}
	return s
}

// DeviceIDs returns all device ids in seed order.
func (s *BaselineStore) DeviceIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// SetOnline flips a device's online flag.
func (s *BaselineStore) SetOnline(deviceID string, online bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.devices[deviceID]
	if !ok {
		return fmt.Errorf("unknown device: %s", deviceID)
	}
	d.Online = online
	return nil
}

// ApplyCalibration validates and stores a calibration for one quantity.
// Out-of-range inputs are rejected without mutating device state.
func (s *BaselineStore) ApplyCalibration(deviceID string, q models.Quantity, offset, slope float64) (models.CalibrationResult, error) {
	result := models.CalibrationResult{
		DeviceID: deviceID,
		Quantity: q,
		Offset:   offset,
		Slope:    slope,
	}

	params, ok := quantityParams[q]
	if !ok {
		return result, fmt.Errorf("unknown quantity: %s", q)
	}
	if slope < 0.5 || slope > 2.0 {
		return result, fmt.Errorf("calibration slope %.3f outside [0.5, 2.0]", slope)
	}
	if offset < -params.MaxOffset || offset > params.MaxOffset {
		return result, fmt.Errorf("calibration offset %.3f outside ±%.3f for %s", offset, params.MaxOffset, q)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.devices[deviceID]
	if !ok {
		return result, fmt.Errorf("unknown device: %s", deviceID)
	}
	d.calibration[q] = Calibration{Offset: offset, Slope: slope}

	result.CalibratedAt = time.Now()
	result.Success = true
	result.Message = fmt.Sprintf("calibration applied to %s/%s", deviceID, q)
	return result, nil
}

// Status builds the on-demand device summary. Buffer occupancy is
// filled in by the caller that owns the ring.
func (s *BaselineStore) Status(deviceID string, now time.Time) (models.DeviceStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.devices[deviceID]
	if !ok {
		return models.DeviceStatus{}, fmt.Errorf("unknown device: %s", deviceID)
	}
	status := models.DeviceStatus{
		DeviceID:       d.DeviceID,
		VillageID:      d.VillageID,
		IsOnline:       d.Online,
		ReadingsToday:  d.readingsToday,
		AnomaliesToday: d.anomaliesToday,
	}
	if d.lastReading != nil {
		status.LastReadingAt = d.lastUpdated
		status.LastReadingAge = now.Sub(d.lastUpdated)
	}
	return status, nil
}
