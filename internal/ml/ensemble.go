package ml

import (
	"math"
	"sort"
	"time"

	"waterguard-backend/internal/features"
	"waterguard-backend/internal/models"
)

// Predictor runs the stacked ensemble. With no bundle loaded it falls
// back to deterministic threshold scoring of the composite water
// quality index; it never fails a prediction request.
type Predictor struct {
	bundle *Bundle
	margin float64

	// Now supplies prediction timestamps. Overridable in tests.
	Now func() time.Time
}

// NewPredictor wraps a model bundle. A nil bundle selects the
// deterministic fallback path.
func NewPredictor(bundle *Bundle, hysteresisMargin float64) *Predictor {
	if hysteresisMargin <= 0 {
		hysteresisMargin = DefaultHysteresisMargin
	}
	return &Predictor{bundle: bundle, margin: hysteresisMargin, Now: time.Now}
}

// ModelLoaded reports whether a trained bundle is available.
func (p *Predictor) ModelLoaded() bool {
	return p.bundle != nil
}

// Predict produces the Prediction for a village from its feature
// vector. prevLevel is the village's last reported level, used for
// hysteresis. Deterministic: identical inputs yield identical output.
func (p *Predictor) Predict(village models.Village, vec features.Vector, prevLevel models.AlertLevel) *models.Prediction {
	if p.bundle == nil {
		return p.fallbackPredict(village, vec, prevLevel)
	}

	diseaseProbs := softmaxClasses(p.bundle.Disease, vec)
	risk := clampScore(p.bundle.Risk.Score(vec))
	alertProbs := softmaxClasses(p.bundle.Alert, vec)

	metaProbs := p.metaProbs(diseaseProbs, risk, alertProbs)

	banded := BandForScore(risk)
	applied := ApplyHysteresis(risk, prevLevel, banded, p.margin)

	level := argmaxLevel(metaProbs)
	// The meta-model is authoritative only within the band implied by
	// the score (plus the hysteresis grace window).
	if level != applied {
		level = applied
	}

	confidence := math.Max(0, math.Min(100, metaProbs[level.String()]*100))

	return &models.Prediction{
		VillageID:        village.ID,
		VillageName:      village.Name,
		RiskScore:        round1(risk),
		Level:            level,
		Disease:          argmaxDisease(diseaseProbs),
		Confidence:       round1(confidence),
		TopRiskFactors:   p.topRiskFactors(vec),
		Trend:            trendForScore(risk),
		Actions:          RecommendedActions(level),
		ModelUnavailable: false,
		LowConfidence:    vec.LowConfidence,
		Timestamp:        p.Now(),
	}
}

// fallbackPredict applies the band table to a score derived from the
// water quality index alone, flagged model_unavailable.
func (p *Predictor) fallbackPredict(village models.Village, vec features.Vector, prevLevel models.AlertLevel) *models.Prediction {
	wqi := vec.Get(features.FeatWQI)
	risk := clampScore(100 - wqi)

	banded := BandForScore(risk)
	level := ApplyHysteresis(risk, prevLevel, banded, p.margin)

	disease := models.DiseaseNone
	if level >= models.LevelHigh {
		// without a classifier, attribute high turbidity events to the
		// dominant water-borne pathogen for the region
		disease = models.DiseaseCholera
	}

	return &models.Prediction{
		VillageID:        village.ID,
		VillageName:      village.Name,
		RiskScore:        round1(risk),
		Level:            level,
		Disease:          disease,
		Confidence:       50,
		TopRiskFactors:   fallbackRiskFactors(vec),
		Trend:            trendForScore(risk),
		Actions:          RecommendedActions(level),
		ModelUnavailable: true,
		LowConfidence:    vec.LowConfidence,
		Timestamp:        p.Now(),
	}
}

// metaProbs evaluates the meta-model over the base outputs.
func (p *Predictor) metaProbs(diseaseProbs map[string]float64, risk float64, alertProbs map[string]float64) map[string]float64 {
	meta := make(map[string]float64, len(diseaseProbs)+len(alertProbs)+1)
	meta["risk_score"] = risk / 100
	for class, prob := range diseaseProbs {
		meta["p_"+class] = prob
	}
	for class, prob := range alertProbs {
		meta["p_"+class] = prob
	}

	scores := make([]float64, len(p.bundle.Meta))
	for i, m := range p.bundle.Meta {
		s := m.Intercept
		for name, coef := range m.Coefficients {
			s += coef * meta[name]
		}
		scores[i] = s
	}
	probs := softmax(scores)

	out := make(map[string]float64, len(probs))
	for i, m := range p.bundle.Meta {
		out[m.Level] = probs[i]
	}
	return out
}

type contribution struct {
	name  string
	value float64
}

// topRiskFactors ranks per-feature contributions w_i*(x_i - mean_i)
// from the risk regressor. Deterministic: ties break on feature order.
func (p *Predictor) topRiskFactors(vec features.Vector) []models.RiskFactor {
	contribs := make([]contribution, 0, len(features.Names))
	for _, name := range features.Names {
		coef, ok := p.bundle.Risk.Coefficients[name]
		if !ok {
			continue
		}
		c := coef * (vec.Get(name) - p.bundle.FeatureMeans[name])
		contribs = append(contribs, contribution{name, c})
	}
	sort.SliceStable(contribs, func(i, j int) bool {
		return math.Abs(contribs[i].value) > math.Abs(contribs[j].value)
	})

	return toRiskFactors(contribs[:min(3, len(contribs))])
}

// fallbackRiskFactors decomposes the water quality index into its three
// inputs when no trained model is available.
func fallbackRiskFactors(vec features.Vector) []models.RiskFactor {
	contribs := []contribution{
		{features.FeatTurbidityMean, vec.Get(features.FeatTurbidityMean) * 4},
		{features.FeatPHMean, math.Abs(vec.Get(features.FeatPHMean)-7.0) * 12},
		{features.FeatTDSMean, math.Max(0, vec.Get(features.FeatTDSMean)-300) * 0.08},
	}
	sort.SliceStable(contribs, func(i, j int) bool {
		return math.Abs(contribs[i].value) > math.Abs(contribs[j].value)
	})
	return toRiskFactors(contribs)
}

func toRiskFactors(contribs []contribution) []models.RiskFactor {
	out := make([]models.RiskFactor, 0, len(contribs))
	for _, c := range contribs {
		direction := "increases_risk"
		if c.value < 0 {
			direction = "decreases_risk"
		}
		out = append(out, models.RiskFactor{
			Feature:      c.name,
			Contribution: round2(c.value),
			Direction:    direction,
		})
	}
	return out
}

// softmaxClasses scores each class model and normalizes.
func softmaxClasses(classes []ClassModel, vec features.Vector) map[string]float64 {
	scores := make([]float64, len(classes))
	for i, c := range classes {
		s := c.Intercept
		for name, coef := range c.Coefficients {
			s += coef * vec.Get(name)
		}
		scores[i] = s
	}
	probs := softmax(scores)
	out := make(map[string]float64, len(classes))
	for i, c := range classes {
		out[c.Class] = probs[i]
	}
	return out
}

func softmax(scores []float64) []float64 {
	maxScore := math.Inf(-1)
	for _, s := range scores {
		if s > maxScore {
			maxScore = s
		}
	}
	sum := 0.0
	out := make([]float64, len(scores))
	for i, s := range scores {
		out[i] = math.Exp(s - maxScore)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

func argmaxDisease(probs map[string]float64) models.Disease {
	best := models.DiseaseNone
	bestProb := -1.0
	for _, d := range models.Diseases {
		if p := probs[string(d)]; p > bestProb {
			best, bestProb = d, p
		}
	}
	return best
}

func argmaxLevel(probs map[string]float64) models.AlertLevel {
	best := models.LevelBaseline
	bestProb := -1.0
	for _, l := range []models.AlertLevel{
		models.LevelBaseline, models.LevelLow, models.LevelMedium, models.LevelHigh, models.LevelCritical,
	} {
		if p := probs[l.String()]; p > bestProb {
			best, bestProb = l, p
		}
	}
	return best
}

func trendForScore(risk float64) string {
	switch {
	case risk >= 70:
		return "worsening"
	case risk <= 30:
		return "improving"
	default:
		return "stable"
	}
}

func clampScore(s float64) float64 {
	return math.Max(0, math.Min(100, s))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
