package models

import "time"

// AlertLevel is the ordered severity enumeration.
type AlertLevel int

const (
	LevelBaseline AlertLevel = iota
	LevelLow
	LevelMedium
	LevelHigh
	LevelCritical
)

var levelNames = map[AlertLevel]string{
	LevelBaseline: "baseline",
	LevelLow:      "low",
	LevelMedium:   "medium",
	LevelHigh:     "high",
	LevelCritical: "critical",
}

func (l AlertLevel) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return "unknown"
}

// MarshalJSON serializes the level as its lowercase name.
func (l AlertLevel) MarshalJSON() ([]byte, error) {
	return []byte(`"` + l.String() + `"`), nil
}

// ParseAlertLevel maps a name back to its level. Unknown names map to baseline.
func ParseAlertLevel(name string) AlertLevel {
	for level, n := range levelNames {
		if n == name {
			return level
		}
	}
	return LevelBaseline
}

// Disease is a predicted water-borne disease category.
type Disease string

const (
	DiseaseCholera    Disease = "cholera"
	DiseaseTyphoid    Disease = "typhoid"
	DiseaseDysentery  Disease = "dysentery"
	DiseaseHepatitisA Disease = "hepatitis_a"
	DiseaseRotavirus  Disease = "rotavirus"
	DiseaseNone       Disease = "none"
)

// Diseases lists all categories in the classifier's output order.
var Diseases = []Disease{
	DiseaseCholera,
	DiseaseTyphoid,
	DiseaseDysentery,
	DiseaseHepatitisA,
	DiseaseRotavirus,
	DiseaseNone,
}

// RiskFactor is one entry of a prediction's feature attribution list.
type RiskFactor struct {
	Feature      string  `json:"feature"`
	Contribution float64 `json:"contribution"`
	Direction    string  `json:"direction"` // "increases_risk" or "decreases_risk"
}

// Prediction is the ensemble output for a village. Immutable; a new
// cycle supersedes the previous Prediction rather than mutating it.
type Prediction struct {
	VillageID        string       `json:"village_id"`
	VillageName      string       `json:"village_name"`
	RiskScore        float64      `json:"risk_score"` // 0-100
	Level            AlertLevel   `json:"alert_level"`
	Disease          Disease      `json:"predicted_disease"`
	Confidence       float64      `json:"confidence_percent"` // 0-100
	TopRiskFactors   []RiskFactor `json:"top_risk_factors"`   // always length 3
	Trend            string       `json:"trend"`              // improving / stable / worsening
	Actions          []string     `json:"recommended_actions"`
	ModelUnavailable bool         `json:"model_unavailable"`
	LowConfidence    bool         `json:"low_confidence"`
	Timestamp        time.Time    `json:"timestamp"`
}
