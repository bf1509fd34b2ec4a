package simulator

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"waterguard-backend/internal/anomaly"
	"waterguard-backend/internal/models"
)

// Simulator advances device baselines and produces readings without
// real hardware. It is the single writer of baseline state: Tick must
// be called from one goroutine.
type Simulator struct {
	store      *BaselineStore
	rng        *rand.Rand
	driftEvery int // apply a drift step every N ticks

	// Now is the clock used for timestamps and diurnal/seasonal
	// modulation. Overridable in tests.
	Now func() time.Time
}

// New creates a simulator over the given store. The seed makes a run
// reproducible.
func New(store *BaselineStore, seed int64) *Simulator {
	return &Simulator{
		store:      store,
		rng:        rand.New(rand.NewSource(seed)),
		driftEvery: 10,
		Now:        time.Now,
	}
}

// seasonalMultiplier returns per-concern multipliers by calendar month.
// Monsoon months scale turbidity and contamination-adjacent values up.
func seasonalMultiplier(month time.Month) (turbidity, tds, temp float64) {
	switch {
	case month >= time.June && month <= time.September: // monsoon
		return 1.8, 1.2, 0.95
	case month >= time.March && month <= time.May: // summer
		return 1.1, 1.15, 1.1
	case month >= time.November || month <= time.February: // winter
		return 0.9, 0.95, 0.85
	default: // post-monsoon
		return 1.0, 1.0, 1.0
	}
}

// diurnalFactors returns time-of-day modulation: water temperature
// peaks at 14:00 and troughs at 02:00; turbidity rises with evening
// usage.
func diurnalFactors(hour int) (temp, turbidity float64) {
	temp = 1.0 + 0.15*math.Sin(float64(hour-5)*math.Pi/12)
	turbidity = 1.0
	if hour >= 18 {
		turbidity = 1.15
	}
	return temp, turbidity
}

// Tick produces the next reading for a device. Offline devices re-serve
// their last known reading flagged stale with its age; the original
// timestamp is preserved, never refreshed.
func (s *Simulator) Tick(deviceID string) (*models.SensorReading, error) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	d, ok := s.store.devices[deviceID]
	if !ok {
		return nil, fmt.Errorf("unknown device: %s", deviceID)
	}

	now := s.Now()

	if !d.Online {
		if d.lastReading == nil {
			return nil, fmt.Errorf("device %s offline with no prior reading", deviceID)
		}
		stale := *d.lastReading
		stale.Stale = true
		stale.Age = now.Sub(d.lastUpdated)
		return &stale, nil
	}

	d.tickCount++
	if d.tickCount%s.driftEvery == 0 {
		s.stepDrift(d)
	}

	seasonTurb, seasonTDS, seasonTemp := seasonalMultiplier(now.Month())
	diurnalTemp, diurnalTurb := diurnalFactors(now.Hour())

	trendAdd := 0.0
	if d.Trend != nil {
		d.trendTicks++
		trendAdd = math.Min(float64(d.trendTicks)*d.Trend.StepPer, d.Trend.Limit)
	}

	reading := &models.SensorReading{
		Timestamp: now,
		DeviceID:  d.DeviceID,
		VillageID: d.VillageID,
	}

	for _, q := range models.Quantities {
		base := d.baseline[q]
		switch q {
		case models.QuantityTurbidity:
			base = base*seasonTurb*diurnalTurb + d.drift[q]
		case models.QuantityTDS:
			base = base*seasonTDS + d.drift[q]
		case models.QuantityWaterTemp:
			base = base*seasonTemp*diurnalTemp + d.drift[q]
		case models.QuantityAirTemp:
			base = base*seasonTemp + d.drift[q]
		default:
			base = base + d.drift[q]
		}

		if d.Trend != nil && d.Trend.Quantity == q {
			base += trendAdd
		}

		params := quantityParams[q]
		value := base + s.rng.NormFloat64()*params.NoiseStd

		if cal, ok := d.calibration[q]; ok {
			value = value*cal.Slope + cal.Offset
		}

		value = math.Max(params.Min, math.Min(params.Max, value))
		reading.SetValue(q, value)
	}

	flagged, tag := anomaly.Check(reading)
	reading.AnomalyFlag = flagged
	reading.AnomalyType = tag
	reading.Quality = anomaly.QualityStatus(reading, flagged)

	d.lastReading = reading
	d.lastUpdated = now
	d.readingsToday++
	if flagged {
		d.anomaliesToday++
	}

	return reading, nil
}

// stepDrift nudges each quantity's drift accumulator by a small signed
// random step, clamped so the baseline cannot run away. Caller holds
// the store lock.
func (s *Simulator) stepDrift(d *DeviceBaseline) {
	for _, q := range models.Quantities {
		params := quantityParams[q]
		drift := d.drift[q] + s.rng.NormFloat64()*params.DriftStd
		d.drift[q] = math.Max(-params.DriftClamp, math.Min(params.DriftClamp, drift))
	}
}
