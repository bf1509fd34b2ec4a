package ml

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"waterguard-backend/internal/models"
)

func TestBandForScore(t *testing.T) {
	tests := []struct {
		score float64
		want  models.AlertLevel
	}{
		{0, models.LevelBaseline},
		{34.9, models.LevelBaseline},
		{35, models.LevelLow},
		{55, models.LevelLow},
		{55.1, models.LevelMedium},
		{75, models.LevelMedium},
		{75.1, models.LevelHigh},
		{90, models.LevelHigh},
		{90.1, models.LevelCritical},
		{100, models.LevelCritical},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, BandForScore(tt.score), "score %.1f", tt.score)
	}
}

func TestHysteresisHoldsOneStepUpInsideMargin(t *testing.T) {
	// 56 bands to medium but does not clear 55+3
	got := ApplyHysteresis(56, models.LevelLow, BandForScore(56), 3.0)
	assert.Equal(t, models.LevelLow, got)

	// 58 clears the boundary plus margin
	got = ApplyHysteresis(58, models.LevelLow, BandForScore(58), 3.0)
	assert.Equal(t, models.LevelMedium, got)
}

func TestHysteresisHoldsOneStepDownInsideMargin(t *testing.T) {
	// 54 bands to low but does not clear 55-3
	got := ApplyHysteresis(54, models.LevelMedium, BandForScore(54), 3.0)
	assert.Equal(t, models.LevelMedium, got)

	got = ApplyHysteresis(52, models.LevelMedium, BandForScore(52), 3.0)
	assert.Equal(t, models.LevelLow, got)
}

func TestHysteresisPassesMultiStepJumps(t *testing.T) {
	got := ApplyHysteresis(80, models.LevelBaseline, BandForScore(80), 3.0)
	assert.Equal(t, models.LevelHigh, got)

	got = ApplyHysteresis(10, models.LevelCritical, BandForScore(10), 3.0)
	assert.Equal(t, models.LevelBaseline, got)
}

func TestHysteresisSuppressesBoundaryFlapping(t *testing.T) {
	level := models.LevelLow
	for i, score := range []float64{54, 57, 54, 57, 54, 57} {
		level = ApplyHysteresis(score, level, BandForScore(score), 3.0)
		assert.Equal(t, models.LevelLow, level, "oscillation step %d", i)
	}
}
