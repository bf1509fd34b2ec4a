package ml

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"waterguard-backend/internal/features"
	"waterguard-backend/internal/models"
)

// LinearModel is a regression over named features.
type LinearModel struct {
	Coefficients map[string]float64 `json:"coefficients"`
	Intercept    float64            `json:"intercept"`
}

// Score evaluates the model on a feature vector.
func (m *LinearModel) Score(vec features.Vector) float64 {
	score := m.Intercept
	for name, coef := range m.Coefficients {
		score += coef * vec.Get(name)
	}
	return score
}

// ClassModel is one class's linear score within a softmax classifier.
type ClassModel struct {
	Class        string             `json:"class"`
	Coefficients map[string]float64 `json:"coefficients"`
	Intercept    float64            `json:"intercept"`
}

// MetaClassModel is one alert level's linear score in the meta-model.
// Coefficients are keyed by meta-feature names: "risk_score" (0-1
// scaled), "p_<disease>" and "p_<level>".
type MetaClassModel struct {
	Level        string             `json:"level"`
	Coefficients map[string]float64 `json:"coefficients"`
	Intercept    float64            `json:"intercept"`
}

// Bundle holds the trained ensemble: three base estimators and the
// meta-model, plus per-feature baseline means used for attribution.
type Bundle struct {
	Disease      []ClassModel       `json:"disease_model"`
	Risk         LinearModel        `json:"risk_model"`
	Alert        []ClassModel       `json:"alert_model"`
	Meta         []MetaClassModel   `json:"meta_model"`
	FeatureMeans map[string]float64 `json:"feature_means"`
	Version      string             `json:"version"`
}

// LoadBundle reads a model bundle from a JSON file.
func LoadBundle(path string) (*Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model file: %w", err)
	}
	var b Bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("failed to unmarshal model bundle: %w", err)
	}
	log.Printf("Loaded model bundle %s from %s", b.Version, path)
	return &b, nil
}

// WriteBundle writes a bundle to disk as indented JSON.
func WriteBundle(path string, b *Bundle) error {
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal model bundle: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write model file: %w", err)
	}
	return nil
}

// DefaultBundle returns the built-in calibrated ensemble. The meta-model
// levels are piecewise-linear scores whose pairwise crossovers sit on
// the band boundaries, so its argmax agrees with the band table away
// from boundaries.
func DefaultBundle() *Bundle {
	return &Bundle{
		Version: "v1.0.0",
		Disease: []ClassModel{
			{Class: string(models.DiseaseCholera), Intercept: 0.5, Coefficients: map[string]float64{
				features.FeatWQI: -0.04, features.FeatTurbidityMean: 0.25,
			}},
			{Class: string(models.DiseaseTyphoid), Intercept: -5.0, Coefficients: map[string]float64{
				features.FeatTDSMean: 0.012, features.FeatHumidityMean: 0.01,
			}},
			{Class: string(models.DiseaseDysentery), Intercept: -0.8, Coefficients: map[string]float64{
				features.FeatTurbidityMean: 0.15, features.FeatWQI: -0.02,
			}},
			{Class: string(models.DiseaseHepatitisA), Intercept: -2.0, Coefficients: map[string]float64{
				features.FeatSeasonal: 0.8, features.FeatWQI: -0.015,
			}},
			{Class: string(models.DiseaseRotavirus), Intercept: -2.2, Coefficients: map[string]float64{
				features.FeatLag1Cases: 0.3, features.FeatWQI: -0.01,
			}},
			{Class: string(models.DiseaseNone), Intercept: -1.5, Coefficients: map[string]float64{
				features.FeatWQI: 0.06,
			}},
		},
		Risk: LinearModel{
			Intercept: 90,
			Coefficients: map[string]float64{
				features.FeatWQI:           -0.9,
				features.FeatTurbidityMean: 2.0,
				features.FeatLag1Cases:     0.8,
				features.FeatLag3Cases:     0.3,
				features.FeatLag7Cases:     0.2,
				features.FeatSpatialRisk:   2.0,
				features.FeatSeasonal:      3.0,
			},
		},
		Alert: []ClassModel{
			{Class: models.LevelBaseline.String(), Intercept: 2.0, Coefficients: map[string]float64{
				features.FeatTurbidityMean: -0.5,
			}},
			{Class: models.LevelLow.String(), Intercept: 0, Coefficients: map[string]float64{
				features.FeatTurbidityMean: 0.2,
			}},
			{Class: models.LevelMedium.String(), Intercept: -2.0, Coefficients: map[string]float64{
				features.FeatTurbidityMean: 0.5,
			}},
			{Class: models.LevelHigh.String(), Intercept: -4.5, Coefficients: map[string]float64{
				features.FeatTurbidityMean: 0.8,
			}},
			{Class: models.LevelCritical.String(), Intercept: -7.5, Coefficients: map[string]float64{
				features.FeatTurbidityMean: 1.1,
			}},
		},
		Meta: defaultMetaModel(),
		FeatureMeans: map[string]float64{
			features.FeatPHMean:        7.0,
			features.FeatTurbidityMean: 2.0,
			features.FeatTDSMean:       350,
			features.FeatWaterTempMean: 26,
			features.FeatAirTempMean:   30,
			features.FeatHumidityMean:  65,
			features.FeatFlowRateMean:  11,
			features.FeatLag1Cases:     2,
			features.FeatLag3Cases:     2,
			features.FeatLag7Cases:     2,
			features.FeatWQI:           75,
			features.FeatSpatialRisk:   1,
			features.FeatSeasonal:      1.1,
			features.FeatPopulation:    25,
		},
	}
}

// defaultMetaModel builds the ordered level scorer. Slopes rise by 10
// per level over the 0-1 scaled risk score; intercepts are chosen so
// consecutive lines cross exactly at the band boundaries.
func defaultMetaModel() []MetaClassModel {
	slopes := []float64{0, 10, 20, 30, 40}
	intercepts := []float64{0, -3.5, -9.05, -16.6, -25.65}
	levels := []models.AlertLevel{
		models.LevelBaseline, models.LevelLow, models.LevelMedium, models.LevelHigh, models.LevelCritical,
	}
	out := make([]MetaClassModel, len(levels))
	for i, l := range levels {
		coefs := map[string]float64{
			"risk_score":      slopes[i],
			"p_" + l.String(): 0.5,
		}
		if l == models.LevelBaseline {
			coefs["p_"+string(models.DiseaseNone)] = 0.3
		}
		out[i] = MetaClassModel{
			Level:        l.String(),
			Intercept:    intercepts[i],
			Coefficients: coefs,
		}
	}
	return out
}
