package features

import (
	"math"
	"sort"
	"time"

	"waterguard-backend/internal/models"
)

// Per-quantity rolling statistics feature names, canonical order.
const (
	FeatPHMean        = "ph_mean"
	FeatPHVar         = "ph_var"
	FeatTurbidityMean = "turbidity_mean"
	FeatTurbidityVar  = "turbidity_var"
	FeatTDSMean       = "tds_mean"
	FeatTDSVar        = "tds_var"
	FeatWaterTempMean = "water_temp_mean"
	FeatWaterTempVar  = "water_temp_var"
	FeatAirTempMean   = "air_temp_mean"
	FeatAirTempVar    = "air_temp_var"
	FeatHumidityMean  = "humidity_mean"
	FeatHumidityVar   = "humidity_var"
	FeatFlowRateMean  = "flow_rate_mean"
	FeatFlowRateVar   = "flow_rate_var"
	FeatLag1Cases     = "lag_1_cases"
	FeatLag3Cases     = "lag_3_cases"
	FeatLag7Cases     = "lag_7_cases"
	FeatWQI           = "water_quality_index"
	FeatSpatialRisk   = "spatial_risk"
	FeatSeasonal      = "seasonal_multiplier"
	FeatPopulation    = "population_thousands"
)

// Names is the fixed feature order. Every vector carries exactly these
// entries; model coefficients are keyed by them.
var Names = []string{
	FeatPHMean, FeatPHVar,
	FeatTurbidityMean, FeatTurbidityVar,
	FeatTDSMean, FeatTDSVar,
	FeatWaterTempMean, FeatWaterTempVar,
	FeatAirTempMean, FeatAirTempVar,
	FeatHumidityMean, FeatHumidityVar,
	FeatFlowRateMean, FeatFlowRateVar,
	FeatLag1Cases, FeatLag3Cases, FeatLag7Cases,
	FeatWQI, FeatSpatialRisk, FeatSeasonal, FeatPopulation,
}

var quantityFeatNames = map[models.Quantity][2]string{
	models.QuantityPH:        {FeatPHMean, FeatPHVar},
	models.QuantityTurbidity: {FeatTurbidityMean, FeatTurbidityVar},
	models.QuantityTDS:       {FeatTDSMean, FeatTDSVar},
	models.QuantityWaterTemp: {FeatWaterTempMean, FeatWaterTempVar},
	models.QuantityAirTemp:   {FeatAirTempMean, FeatAirTempVar},
	models.QuantityHumidity:  {FeatHumidityMean, FeatHumidityVar},
	models.QuantityFlowRate:  {FeatFlowRateMean, FeatFlowRateVar},
}

// Vector is a derived, ephemeral feature vector for one village.
// Recomputable from its inputs; never persisted as authoritative state.
type Vector struct {
	VillageID     string
	Values        map[string]float64
	SampleCount   int
	LowConfidence bool
	Stale         bool
}

// Get returns a feature value, 0 for unknown names.
func (v Vector) Get(name string) float64 {
	return v.Values[name]
}

// Builder turns ring snapshots plus static village attributes into
// fixed-shape feature vectors. Deterministic and side-effect-free.
type Builder struct {
	window     int // nominal rolling window, in readings
	minSamples int // below this the vector is flagged low-confidence
	neighbors  int // k nearest villages for the spatial term
	cases      *CaseStore
}

// NewBuilder constructs a feature builder over the given case history.
func NewBuilder(cases *CaseStore) *Builder {
	return &Builder{window: 7, minSamples: 3, neighbors: 3, cases: cases}
}

// Build computes the feature vector for a village from the most recent
// readings (oldest first). A short or empty buffer degrades gracefully:
// whatever history exists is used and the vector is flagged
// low-confidence. Stale readings count toward staleness, not freshness.
func (b *Builder) Build(village models.Village, readings []models.SensorReading, now time.Time) Vector {
	if len(readings) > b.window {
		readings = readings[len(readings)-b.window:]
	}

	vec := Vector{
		VillageID:   village.ID,
		Values:      make(map[string]float64, len(Names)),
		SampleCount: len(readings),
	}

	fresh := 0
	for _, r := range readings {
		if !r.Stale {
			fresh++
		}
	}
	vec.Stale = len(readings) > 0 && fresh == 0
	vec.LowConfidence = fresh < b.minSamples

	for _, q := range models.Quantities {
		mean, variance := rollingStats(readings, q)
		names := quantityFeatNames[q]
		vec.Values[names[0]] = mean
		vec.Values[names[1]] = variance
	}

	vec.Values[FeatLag1Cases] = b.cases.Lag(village.ID, 1)
	vec.Values[FeatLag3Cases] = b.cases.Lag(village.ID, 3)
	vec.Values[FeatLag7Cases] = b.cases.Lag(village.ID, 7)

	vec.Values[FeatWQI] = WaterQualityIndex(
		vec.Values[FeatPHMean],
		vec.Values[FeatTurbidityMean],
		vec.Values[FeatTDSMean],
	)
	vec.Values[FeatSpatialRisk] = b.spatialRisk(village)
	vec.Values[FeatSeasonal] = SeasonalRisk(now.Month())
	vec.Values[FeatPopulation] = float64(village.Population) / 1000

	return vec
}

// rollingStats computes mean and population variance of a quantity over
// the snapshot. Empty snapshots yield neutral defaults rather than an
// error (cold start).
func rollingStats(readings []models.SensorReading, q models.Quantity) (float64, float64) {
	if len(readings) == 0 {
		return coldStartDefault(q), 0
	}
	sum := 0.0
	for _, r := range readings {
		sum += r.Value(q)
	}
	mean := sum / float64(len(readings))

	variance := 0.0
	for _, r := range readings {
		d := r.Value(q) - mean
		variance += d * d
	}
	variance /= float64(len(readings))
	return mean, variance
}

// coldStartDefault is the neutral value assumed for a quantity when no
// history exists at all.
func coldStartDefault(q models.Quantity) float64 {
	switch q {
	case models.QuantityPH:
		return 7.0
	case models.QuantityTurbidity:
		return 2.0
	case models.QuantityTDS:
		return 350
	case models.QuantityWaterTemp:
		return 26
	case models.QuantityAirTemp:
		return 30
	case models.QuantityHumidity:
		return 65
	case models.QuantityFlowRate:
		return 11
	}
	return 0
}

// WaterQualityIndex is a composite index on [0, 100], monotonically
// decreasing in pH deviation from neutral, turbidity, and TDS excess.
func WaterQualityIndex(ph, turbidity, tds float64) float64 {
	phDev := math.Abs(ph - 7.0)
	tdsExcess := math.Max(0, tds-300)
	wqi := 100 - phDev*12 - turbidity*4 - tdsExcess*0.08
	return math.Max(0, math.Min(100, wqi))
}

// SeasonalRisk is the contamination-risk multiplier per calendar month.
func SeasonalRisk(month time.Month) float64 {
	switch {
	case month >= time.June && month <= time.September:
		return 1.8
	case month >= time.March && month <= time.May:
		return 1.3
	case month >= time.November || month <= time.February:
		return 0.7
	default:
		return 1.1
	}
}

// spatialRisk averages the recent case rate of the k nearest villages
// by geographic distance.
func (b *Builder) spatialRisk(village models.Village) float64 {
	type distVillage struct {
		dist float64
		id   string
	}
	others := make([]distVillage, 0, len(models.Villages))
	for _, v := range models.Villages {
		if v.ID == village.ID {
			continue
		}
		others = append(others, distVillage{haversineKm(village.Lat, village.Lon, v.Lat, v.Lon), v.ID})
	}
	sort.Slice(others, func(i, j int) bool {
		if others[i].dist != others[j].dist {
			return others[i].dist < others[j].dist
		}
		return others[i].id < others[j].id
	})

	k := b.neighbors
	if k > len(others) {
		k = len(others)
	}
	if k == 0 {
		return 0
	}
	sum := 0.0
	for _, n := range others[:k] {
		sum += b.cases.RecentRate(n.id, 7)
	}
	return sum / float64(k)
}

// haversineKm is the great-circle distance between two coordinates.
func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadiusKm = 6371.0
	rad := math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLon := (lon2 - lon1) * rad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}
