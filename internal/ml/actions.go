package ml

import "waterguard-backend/internal/models"

var actionsByLevel = map[models.AlertLevel][]string{
	models.LevelCritical: {
		"IMMEDIATE: deploy emergency medical team to village",
		"URGENT: chlorinate all water sources (2-3 ppm)",
		"Distribute 500+ ORS packets door-to-door",
		"Establish temporary medical camp within 24 hours",
		"Issue public health advisory via local channels",
		"Send water samples for lab testing immediately",
	},
	models.LevelHigh: {
		"Deploy health workers for door-to-door survey",
		"Chlorinate main water sources (1-2 ppm)",
		"Distribute 200 ORS packets to high-risk households",
		"Conduct water quality testing (pH, turbidity, coliform)",
		"Community awareness session on water safety",
	},
	models.LevelMedium: {
		"Increase surveillance - daily symptom monitoring",
		"Test chlorine levels in water sources",
		"Pre-position 100 ORS packets at health center",
		"Weekly health worker visits",
	},
	models.LevelLow: {
		"Continue routine monitoring",
		"Monthly water quality checks",
		"Distribute hygiene education materials",
	},
	models.LevelBaseline: {
		"Maintain current monitoring protocols",
		"Routine health education programs",
	},
}

// RecommendedActions returns the response checklist for an alert level.
func RecommendedActions(level models.AlertLevel) []string {
	if actions, ok := actionsByLevel[level]; ok {
		return actions
	}
	return actionsByLevel[models.LevelBaseline]
}
