package alerting

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"waterguard-backend/internal/models"
)

var t0 = time.Date(2026, 7, 14, 12, 0, 0, 0, time.UTC)

func predAt(minute int, level models.AlertLevel, risk float64) *models.Prediction {
	return &models.Prediction{
		VillageID:   "MH_SHP",
		VillageName: "Shirpur",
		RiskScore:   risk,
		Level:       level,
		Disease:     models.DiseaseCholera,
		Actions:     []string{"Chlorinate main water sources (1-2 ppm)"},
		Timestamp:   t0.Add(time.Duration(minute) * time.Minute),
	}
}

func TestBaselinePredictionCreatesNothing(t *testing.T) {
	m := NewStateMachine()

	alert, transition := m.Apply(predAt(0, models.LevelBaseline, 12), Trigger{})
	assert.Nil(t, alert)
	assert.Equal(t, TransitionNone, transition)

	_, open := m.OpenAlert("MH_SHP")
	assert.False(t, open)
	assert.Empty(t, m.Alerts())
}

func TestCreateOnFirstElevatedLevel(t *testing.T) {
	m := NewStateMachine()

	trigger := Trigger{BySensor: true, DeviceID: "RPI5-UNIT-001", AnomalyType: "high_turbidity"}
	alert, transition := m.Apply(predAt(0, models.LevelMedium, 60), trigger)

	require.NotNil(t, alert)
	assert.Equal(t, TransitionCreated, transition)
	assert.NotEmpty(t, alert.AlertID)
	assert.Equal(t, models.LevelMedium, alert.Level)
	assert.Equal(t, models.LevelMedium, alert.PeakLevel)
	assert.Equal(t, t0, alert.CreatedAt)
	assert.True(t, alert.TriggeredBySensor)
	assert.Contains(t, alert.TriggerReason, "high_turbidity")
	assert.False(t, alert.Resolved)
	require.Len(t, alert.History, 1)

	open, ok := m.OpenAlert("MH_SHP")
	require.True(t, ok)
	assert.Equal(t, alert.AlertID, open.AlertID)
	assert.Equal(t, models.LevelMedium, m.LastLevel("MH_SHP"))
}

func TestAtMostOneOpenAlertPerVillage(t *testing.T) {
	m := NewStateMachine()

	first, _ := m.Apply(predAt(0, models.LevelMedium, 60), Trigger{})
	second, transition := m.Apply(predAt(1, models.LevelHigh, 80), Trigger{})

	assert.Equal(t, TransitionEscalated, transition)
	assert.Equal(t, first.AlertID, second.AlertID, "escalation reuses the open alert")
	assert.Len(t, m.Alerts(), 1)
}

func TestEscalationUpdatesInPlace(t *testing.T) {
	m := NewStateMachine()

	m.Apply(predAt(0, models.LevelLow, 40), Trigger{})
	alert, transition := m.Apply(predAt(1, models.LevelCritical, 95), Trigger{})

	require.Equal(t, TransitionEscalated, transition)
	assert.Equal(t, models.LevelCritical, alert.Level)
	assert.Equal(t, models.LevelCritical, alert.PeakLevel)
	assert.Equal(t, 95.0, alert.RiskScore)
	require.Len(t, alert.History, 2)
	assert.Equal(t, models.LevelCritical, alert.History[1].Level)
}

func TestDeescalationKeepsPeakLevel(t *testing.T) {
	m := NewStateMachine()

	m.Apply(predAt(0, models.LevelHigh, 80), Trigger{})
	alert, transition := m.Apply(predAt(1, models.LevelLow, 40), Trigger{})

	require.Equal(t, TransitionDeescalated, transition)
	assert.Equal(t, models.LevelLow, alert.Level)
	assert.Equal(t, models.LevelHigh, alert.PeakLevel, "peak is never lowered")
	assert.False(t, alert.Resolved)
}

func TestResolveOnReturnToBaseline(t *testing.T) {
	m := NewStateMachine()

	m.Apply(predAt(0, models.LevelMedium, 60), Trigger{})
	alert, transition := m.Apply(predAt(5, models.LevelBaseline, 20), Trigger{})

	require.Equal(t, TransitionResolved, transition)
	assert.True(t, alert.Resolved)
	assert.Equal(t, t0.Add(5*time.Minute), alert.ResolvedAt)

	_, open := m.OpenAlert("MH_SHP")
	assert.False(t, open)

	// Resolved alerts stay in the audit trail
	assert.Len(t, m.Alerts(), 1)

	// The next episode opens a fresh alert
	fresh, transition := m.Apply(predAt(6, models.LevelMedium, 58), Trigger{})
	assert.Equal(t, TransitionCreated, transition)
	assert.NotEqual(t, alert.AlertID, fresh.AlertID)
	assert.Len(t, m.Alerts(), 2)
}

func TestSameLevelUpdatesScoreOnly(t *testing.T) {
	m := NewStateMachine()

	created, _ := m.Apply(predAt(0, models.LevelMedium, 60), Trigger{})
	alert, transition := m.Apply(predAt(1, models.LevelMedium, 64), Trigger{})

	assert.Nil(t, alert)
	assert.Equal(t, TransitionNone, transition)
	assert.Equal(t, 64.0, created.RiskScore)
	assert.Len(t, created.History, 1, "no level change, no history entry")
}

func TestOutOfOrderPredictionIsDiscarded(t *testing.T) {
	m := NewStateMachine()

	m.Apply(predAt(10, models.LevelMedium, 60), Trigger{})

	// An older prediction must not resolve or mutate newer state
	alert, transition := m.Apply(predAt(5, models.LevelBaseline, 10), Trigger{})
	assert.Nil(t, alert)
	assert.Equal(t, TransitionDiscarded, transition)

	open, ok := m.OpenAlert("MH_SHP")
	require.True(t, ok)
	assert.Equal(t, models.LevelMedium, open.Level)
	assert.Equal(t, models.LevelMedium, m.LastLevel("MH_SHP"))

	// Equal timestamp is also stale
	_, transition = m.Apply(predAt(10, models.LevelHigh, 80), Trigger{})
	assert.Equal(t, TransitionDiscarded, transition)
}

func TestAcknowledge(t *testing.T) {
	m := NewStateMachine()

	created, _ := m.Apply(predAt(0, models.LevelHigh, 80), Trigger{})

	alert, err := m.Acknowledge(created.AlertID, "dr.patel", "team dispatched")
	require.NoError(t, err)
	assert.True(t, alert.Acknowledged)
	assert.Equal(t, "dr.patel", alert.AcknowledgedBy)
	assert.Equal(t, "team dispatched", alert.Notes)
	assert.Equal(t, models.LevelHigh, alert.Level, "acknowledgement does not change level")
	assert.False(t, alert.Resolved)

	_, err = m.Acknowledge("no-such-id", "x", "")
	assert.Error(t, err)
}

func TestVillagesAreIndependent(t *testing.T) {
	m := NewStateMachine()

	m.Apply(predAt(0, models.LevelHigh, 80), Trigger{})

	other := predAt(0, models.LevelCritical, 95)
	other.VillageID = "UP_BAH"
	other.VillageName = "Bahraich"
	_, transition := m.Apply(other, Trigger{})

	assert.Equal(t, TransitionCreated, transition)
	assert.Len(t, m.Alerts(), 2)
	assert.Equal(t, models.LevelHigh, m.LastLevel("MH_SHP"))
	assert.Equal(t, models.LevelCritical, m.LastLevel("UP_BAH"))
}

func TestEstimateResourcesMonotone(t *testing.T) {
	// Higher risk never shrinks the plan at fixed level and population
	low := EstimateResources(models.LevelHigh, 76, 28000)
	high := EstimateResources(models.LevelHigh, 89, 28000)
	assert.GreaterOrEqual(t, high.ORSPackets, low.ORSPackets)
	assert.GreaterOrEqual(t, high.ChlorineTablets, low.ChlorineTablets)
	assert.GreaterOrEqual(t, high.EstimatedCost, low.EstimatedCost)

	// Larger population never shrinks the plan
	small := EstimateResources(models.LevelCritical, 95, 12000)
	big := EstimateResources(models.LevelCritical, 95, 62000)
	assert.GreaterOrEqual(t, big.ORSPackets, small.ORSPackets)
	assert.GreaterOrEqual(t, big.MedicalStaff, small.MedicalStaff)
	assert.GreaterOrEqual(t, big.WaterTestKits, small.WaterTestKits)
	assert.GreaterOrEqual(t, big.EstimatedCost, small.EstimatedCost)

	// Severity raises the base plan
	medium := EstimateResources(models.LevelMedium, 60, 28000)
	critical := EstimateResources(models.LevelCritical, 95, 28000)
	assert.Greater(t, critical.ORSPackets, medium.ORSPackets)
	assert.Greater(t, critical.MedicalStaff, medium.MedicalStaff)
}
