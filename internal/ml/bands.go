package ml

import "waterguard-backend/internal/models"

// DefaultHysteresisMargin is the extra score distance a risk score must
// clear past a band boundary before an adjacent level change is
// accepted.
const DefaultHysteresisMargin = 3.0

// Band boundaries: a level's floor is the score above which it applies.
var bandFloors = map[models.AlertLevel]float64{
	models.LevelBaseline: 0,
	models.LevelLow:      35,
	models.LevelMedium:   55,
	models.LevelHigh:     75,
	models.LevelCritical: 90,
}

// BandForScore maps a risk score to its alert level:
// <35 baseline, 35-55 low, 56-75 medium, 76-90 high, >90 critical.
func BandForScore(score float64) models.AlertLevel {
	switch {
	case score < bandFloors[models.LevelLow]:
		return models.LevelBaseline
	case score <= bandFloors[models.LevelMedium]:
		return models.LevelLow
	case score <= bandFloors[models.LevelHigh]:
		return models.LevelMedium
	case score <= bandFloors[models.LevelCritical]:
		return models.LevelHigh
	default:
		return models.LevelCritical
	}
}

// ApplyHysteresis suppresses flapping between adjacent levels: when the
// banded level differs from the previous level by exactly one step, the
// change is accepted only once the score clears the shared boundary by
// the margin. Multi-step jumps are accepted as-is.
func ApplyHysteresis(score float64, prev, banded models.AlertLevel, margin float64) models.AlertLevel {
	if banded == prev {
		return prev
	}
	diff := int(banded) - int(prev)
	if diff > 1 || diff < -1 {
		return banded
	}
	if diff == 1 {
		if score >= bandFloors[banded]+margin {
			return banded
		}
		return prev
	}
	// one step down: the shared boundary is the previous level's floor
	if score <= bandFloors[prev]-margin {
		return banded
	}
	return prev
}
