package models

import "time"

// ResourceEstimate is the response resource plan attached to an alert.
type ResourceEstimate struct {
	ORSPackets      int `json:"ors_packets"`
	MedicalStaff    int `json:"medical_staff"`
	WaterTestKits   int `json:"water_testing_kits"`
	ChlorineTablets int `json:"chlorine_tablets"`
	EstimatedCost   int `json:"estimated_cost_inr"`
}

// LevelChange records one in-place level transition on an open alert.
type LevelChange struct {
	Level     AlertLevel `json:"level"`
	RiskScore float64    `json:"risk_score"`
	At        time.Time  `json:"at"`
}

// Alert is a lifecycle-managed incident record. Created once per
// contiguous episode, escalated/de-escalated in place, marked resolved
// and never deleted.
type Alert struct {
	AlertID       string     `json:"alert_id"`
	CreatedAt     time.Time  `json:"created_at"`
	VillageID     string     `json:"village_id"`
	VillageName   string     `json:"village_name"`
	Level         AlertLevel `json:"alert_level"`
	PeakLevel     AlertLevel `json:"peak_level"`
	RiskScore     float64    `json:"risk_score"`
	TriggerReason string     `json:"trigger_reason"`
	Disease       Disease    `json:"predicted_disease"`

	TriggeredBySensor    bool   `json:"triggered_by_sensor"`
	SensorDeviceID       string `json:"sensor_device_id,omitempty"`
	SensorReadingSummary string `json:"sensor_reading_summary,omitempty"`

	Actions   []string         `json:"recommended_actions"`
	Resources ResourceEstimate `json:"resources_required"`

	Acknowledged   bool      `json:"acknowledged"`
	AcknowledgedAt time.Time `json:"acknowledged_at,omitempty"`
	AcknowledgedBy string    `json:"acknowledged_by,omitempty"`
	Notes          string    `json:"notes,omitempty"`

	Resolved   bool      `json:"resolved"`
	ResolvedAt time.Time `json:"resolved_at,omitempty"`

	History []LevelChange `json:"level_history"`
}

// Open reports whether the alert is still an open incident.
func (a *Alert) Open() bool {
	return a != nil && !a.Resolved
}
