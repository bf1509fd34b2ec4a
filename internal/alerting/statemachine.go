package alerting

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"waterguard-backend/internal/models"
)

// Transition is the outcome of applying a prediction to a village's
// alert state.
type Transition string

const (
	TransitionNone        Transition = "none"
	TransitionCreated     Transition = "created"
	TransitionEscalated   Transition = "escalated"
	TransitionDeescalated Transition = "deescalated"
	TransitionResolved    Transition = "resolved"
	TransitionDiscarded   Transition = "discarded"
)

// Trigger carries sensor provenance for an alert transition.
type Trigger struct {
	BySensor       bool
	DeviceID       string
	ReadingSummary string
	AnomalyType    string
}

type villageState struct {
	open        *models.Alert
	lastApplied time.Time
	lastLevel   models.AlertLevel
}

// StateMachine owns alert lifecycle state per village. It is the single
// writer of Alert records and serializes concurrent predictions for the
// same village; out-of-timestamp-order predictions are discarded.
// Invariant: at most one open alert per village.
type StateMachine struct {
	mu     sync.Mutex
	states map[string]*villageState
	alerts []*models.Alert // complete audit trail, never deleted
	byID   map[string]*models.Alert
}

// NewStateMachine returns an empty state machine; every village starts
// implicitly at "no open alert".
func NewStateMachine() *StateMachine {
	return &StateMachine{
		states: make(map[string]*villageState),
		byID:   make(map[string]*models.Alert),
	}
}

// LastLevel returns the village's last applied alert level, used as the
// hysteresis reference for the next prediction cycle.
func (m *StateMachine) LastLevel(villageID string) models.AlertLevel {
	m.mu.Lock()
	defer m.mu.Unlock()
	if st, ok := m.states[villageID]; ok {
		return st.lastLevel
	}
	return models.LevelBaseline
}

// OpenAlert returns the village's open alert, if any.
func (m *StateMachine) OpenAlert(villageID string) (*models.Alert, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.states[villageID]
	if !ok || !st.open.Open() {
		return nil, false
	}
	return st.open, true
}

// Alerts returns the full audit trail, oldest first.
func (m *StateMachine) Alerts() []*models.Alert {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.Alert, len(m.alerts))
	copy(out, m.alerts)
	return out
}

// Apply maps a new prediction onto the village's alert lifecycle and
// returns the affected alert (nil when nothing changed) plus the
// transition taken.
func (m *StateMachine) Apply(pred *models.Prediction, trigger Trigger) (*models.Alert, Transition) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.states[pred.VillageID]
	if !ok {
		st = &villageState{}
		m.states[pred.VillageID] = st
	}

	// Ordering is enforced, not ignored: a prediction older than the
	// last applied one must not overwrite newer state.
	if !st.lastApplied.IsZero() && !pred.Timestamp.After(st.lastApplied) {
		log.Printf("Discarding out-of-order prediction for %s (ts=%s, last=%s)",
			pred.VillageID, pred.Timestamp.Format(time.RFC3339), st.lastApplied.Format(time.RFC3339))
		return nil, TransitionDiscarded
	}
	st.lastApplied = pred.Timestamp
	st.lastLevel = pred.Level

	open := st.open
	if !open.Open() {
		if pred.Level >= models.LevelLow {
			alert := m.createLocked(pred, trigger)
			st.open = alert
			return alert, TransitionCreated
		}
		return nil, TransitionNone
	}

	switch {
	case pred.Level > open.Level:
		open.Level = pred.Level
		open.RiskScore = pred.RiskScore
		open.TriggerReason = triggerReason(pred, trigger)
		open.Disease = pred.Disease
		open.Actions = pred.Actions
		open.Resources = EstimateResources(pred.Level, pred.RiskScore, populationOf(pred.VillageID))
		if pred.Level > open.PeakLevel {
			open.PeakLevel = pred.Level
		}
		open.History = append(open.History, models.LevelChange{Level: pred.Level, RiskScore: pred.RiskScore, At: pred.Timestamp})
		log.Printf("Alert %s escalated to %s for %s (risk: %.1f)", open.AlertID, pred.Level, pred.VillageName, pred.RiskScore)
		return open, TransitionEscalated

	case pred.Level == models.LevelBaseline:
		open.Resolved = true
		open.ResolvedAt = pred.Timestamp
		open.History = append(open.History, models.LevelChange{Level: pred.Level, RiskScore: pred.RiskScore, At: pred.Timestamp})
		log.Printf("Alert %s resolved for %s (risk back to %.1f)", open.AlertID, pred.VillageName, pred.RiskScore)
		resolved := open
		st.open = nil
		return resolved, TransitionResolved

	case pred.Level < open.Level:
		open.Level = pred.Level
		open.RiskScore = pred.RiskScore
		open.History = append(open.History, models.LevelChange{Level: pred.Level, RiskScore: pred.RiskScore, At: pred.Timestamp})
		log.Printf("Alert %s de-escalated to %s for %s (risk: %.1f)", open.AlertID, pred.Level, pred.VillageName, pred.RiskScore)
		return open, TransitionDeescalated

	default:
		// same level: record the newer score, no lifecycle change
		open.RiskScore = pred.RiskScore
		return nil, TransitionNone
	}
}

// Acknowledge marks an alert acknowledged without changing its level or
// open/closed state. External action, never driven by predictions.
func (m *StateMachine) Acknowledge(alertID, by, notes string) (*models.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	alert, ok := m.byID[alertID]
	if !ok {
		return nil, fmt.Errorf("unknown alert: %s", alertID)
	}
	alert.Acknowledged = true
	alert.AcknowledgedAt = time.Now()
	alert.AcknowledgedBy = by
	alert.Notes = notes
	log.Printf("Alert %s acknowledged by %s", alertID, by)
	return alert, nil
}

// createLocked builds a new open alert from a qualifying prediction.
// Caller holds the lock.
func (m *StateMachine) createLocked(pred *models.Prediction, trigger Trigger) *models.Alert {
	alert := &models.Alert{
		AlertID:              uuid.New().String(),
		CreatedAt:            pred.Timestamp,
		VillageID:            pred.VillageID,
		VillageName:          pred.VillageName,
		Level:                pred.Level,
		PeakLevel:            pred.Level,
		RiskScore:            pred.RiskScore,
		TriggerReason:        triggerReason(pred, trigger),
		Disease:              pred.Disease,
		TriggeredBySensor:    trigger.BySensor,
		SensorDeviceID:       trigger.DeviceID,
		SensorReadingSummary: trigger.ReadingSummary,
		Actions:              pred.Actions,
		Resources:            EstimateResources(pred.Level, pred.RiskScore, populationOf(pred.VillageID)),
		History:              []models.LevelChange{{Level: pred.Level, RiskScore: pred.RiskScore, At: pred.Timestamp}},
	}
	m.alerts = append(m.alerts, alert)
	m.byID[alert.AlertID] = alert
	log.Printf("Alert created: %s for %s (risk: %.1f)", pred.Level, pred.VillageName, pred.RiskScore)
	return alert
}

// triggerReason composes the human-readable cause from the dominant
// attribution entry and, when sensor-triggered, the anomaly tag.
func triggerReason(pred *models.Prediction, trigger Trigger) string {
	reason := ""
	if trigger.BySensor && trigger.AnomalyType != "" {
		reason = fmt.Sprintf("Sensor anomaly detected: %s. ", trigger.AnomalyType)
	}
	if len(pred.TopRiskFactors) > 0 {
		top := pred.TopRiskFactors[0]
		reason += fmt.Sprintf("Dominant factor: %s (%s, %.2f)", top.Feature, top.Direction, top.Contribution)
	} else {
		reason += fmt.Sprintf("Risk score %.1f classified %s", pred.RiskScore, pred.Level)
	}
	return reason
}

func populationOf(villageID string) int {
	if v, ok := models.VillageByID(villageID); ok {
		return v.Population
	}
	return 20000
}

// EstimateResources sizes the response plan. Monotonically increasing
// in both risk score and village population.
func EstimateResources(level models.AlertLevel, risk float64, population int) models.ResourceEstimate {
	var base models.ResourceEstimate
	switch level {
	case models.LevelCritical:
		base = models.ResourceEstimate{ORSPackets: 500, MedicalStaff: 8, WaterTestKits: 20, ChlorineTablets: 1000, EstimatedCost: 45000}
	case models.LevelHigh:
		base = models.ResourceEstimate{ORSPackets: 200, MedicalStaff: 4, WaterTestKits: 10, ChlorineTablets: 500, EstimatedCost: 22000}
	case models.LevelMedium:
		base = models.ResourceEstimate{ORSPackets: 100, MedicalStaff: 2, WaterTestKits: 5, ChlorineTablets: 250, EstimatedCost: 12000}
	default:
		base = models.ResourceEstimate{ORSPackets: 50, MedicalStaff: 1, WaterTestKits: 2, ChlorineTablets: 100, EstimatedCost: 5000}
	}

	r := int(risk)
	base.ORSPackets += r * population / 50000
	base.MedicalStaff += population / 20000
	base.WaterTestKits += population / 10000
	base.ChlorineTablets += r * population / 25000
	base.EstimatedCost += r * population / 1000
	return base
}
