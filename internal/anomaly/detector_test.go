package anomaly

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"waterguard-backend/internal/models"
)

func clean() *models.SensorReading {
	return &models.SensorReading{
		PH:           7.2,
		TurbidityNTU: 1.5,
		TDSPPM:       320,
		WaterTempC:   26,
	}
}

func TestCheckCleanReading(t *testing.T) {
	flagged, tag := Check(clean())
	assert.False(t, flagged)
	assert.Empty(t, tag)
}

func TestCheckBoundaryValuesAreNotAnomalous(t *testing.T) {
	r := clean()
	r.PH = 6.5
	flagged, _ := Check(r)
	assert.False(t, flagged)

	r.PH = 8.5
	flagged, _ = Check(r)
	assert.False(t, flagged)

	r = clean()
	r.TurbidityNTU = 5.0
	flagged, _ = Check(r)
	assert.False(t, flagged)

	r = clean()
	r.TDSPPM = 500
	flagged, _ = Check(r)
	assert.False(t, flagged)

	r = clean()
	r.WaterTempC = 35
	flagged, _ = Check(r)
	assert.False(t, flagged)
}

func TestCheckSingleViolations(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*models.SensorReading)
		wantTag string
	}{
		{"turbidity above limit", func(r *models.SensorReading) { r.TurbidityNTU = 5.1 }, TagHighTurbidity},
		{"tds above limit", func(r *models.SensorReading) { r.TDSPPM = 501 }, TagHighTDS},
		{"ph below range", func(r *models.SensorReading) { r.PH = 6.4 }, TagPHOutOfRange},
		{"ph above range", func(r *models.SensorReading) { r.PH = 8.6 }, TagPHOutOfRange},
		{"water too warm", func(r *models.SensorReading) { r.WaterTempC = 35.5 }, TagHighTemperature},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := clean()
			tt.mutate(r)
			flagged, tag := Check(r)
			assert.True(t, flagged)
			assert.Equal(t, tt.wantTag, tag)
		})
	}
}

func TestCheckPriorityOrder(t *testing.T) {
	// Everything violated at once: turbidity wins
	r := &models.SensorReading{PH: 5.0, TurbidityNTU: 12, TDSPPM: 900, WaterTempC: 40}
	flagged, tag := Check(r)
	assert.True(t, flagged)
	assert.Equal(t, TagHighTurbidity, tag)

	// Without turbidity, tds wins over ph and temperature
	r.TurbidityNTU = 1
	_, tag = Check(r)
	assert.Equal(t, TagHighTDS, tag)

	// Without tds, ph wins over temperature
	r.TDSPPM = 300
	_, tag = Check(r)
	assert.Equal(t, TagPHOutOfRange, tag)
}

func TestQualityStatusGrading(t *testing.T) {
	r := clean()
	assert.Equal(t, models.QualitySafe, QualityStatus(r, false))

	r.PH = 6.6
	assert.Equal(t, models.QualityMarginal, QualityStatus(r, false))

	r = clean()
	r.TurbidityNTU = 4.0
	assert.Equal(t, models.QualityMarginal, QualityStatus(r, false))

	r = clean()
	r.TurbidityNTU = 6.0
	assert.Equal(t, models.QualityUnsafe, QualityStatus(r, true))

	r.TurbidityNTU = 9.0
	assert.Equal(t, models.QualityCritical, QualityStatus(r, true))

	r = clean()
	r.PH = 5.5
	assert.Equal(t, models.QualityCritical, QualityStatus(r, true))
}
