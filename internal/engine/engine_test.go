package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"waterguard-backend/internal/alerting"
	"waterguard-backend/internal/broadcast"
	"waterguard-backend/internal/features"
	"waterguard-backend/internal/ingest"
	"waterguard-backend/internal/ml"
	"waterguard-backend/internal/models"
)

// scriptedSource serves queued readings per device, re-serving the
// last one when the queue runs dry.
type scriptedSource struct {
	mu    sync.Mutex
	order []string
	queue map[string][]models.SensorReading
	last  map[string]models.SensorReading
}

var _ ingest.Source = (*scriptedSource)(nil)

func newScriptedSource(deviceIDs ...string) *scriptedSource {
	return &scriptedSource{
		order: deviceIDs,
		queue: make(map[string][]models.SensorReading),
		last:  make(map[string]models.SensorReading),
	}
}

func (s *scriptedSource) push(deviceID string, readings ...models.SensorReading) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue[deviceID] = append(s.queue[deviceID], readings...)
}

func (s *scriptedSource) Read(deviceID string) (*models.SensorReading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := s.queue[deviceID]
	if len(q) == 0 {
		r := s.last[deviceID]
		return &r, nil
	}
	r := q[0]
	s.queue[deviceID] = q[1:]
	s.last[deviceID] = r
	return &r, nil
}

func (s *scriptedSource) DeviceIDs() []string { return s.order }
func (s *scriptedSource) Close()              {}

type capturedEvent struct {
	event   broadcast.EventType
	payload interface{}
}

type captureSink struct {
	mu     sync.Mutex
	events []capturedEvent
}

func (c *captureSink) Publish(event broadcast.EventType, payload interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, capturedEvent{event, payload})
}

func (c *captureSink) ofType(event broadcast.EventType) []capturedEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []capturedEvent
	for _, e := range c.events {
		if e.event == event {
			out = append(out, e)
		}
	}
	return out
}

type memStore struct {
	mu          sync.Mutex
	readings    int
	predictions int
	alerts      []models.Alert
}

func (s *memStore) SaveReading(*models.SensorReading) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readings++
	return nil
}

func (s *memStore) SavePrediction(string, *models.Prediction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.predictions++
	return nil
}

func (s *memStore) UpsertAlert(a *models.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = append(s.alerts, *a)
	return nil
}

var engineStart = time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)

func newTestEngine(source ingest.Source, sink broadcast.Sink, store Store) *Engine {
	villageIDs := make([]string, 0, len(models.Villages))
	for _, v := range models.Villages {
		villageIDs = append(villageIDs, v.ID)
	}
	builder := features.NewBuilder(features.NewSeededCaseStore(42, villageIDs))
	predictor := ml.NewPredictor(ml.DefaultBundle(), ml.DefaultHysteresisMargin)
	predictor.Now = func() time.Time { return engineStart }

	eng := New(Config{
		SensorInterval:     5 * time.Second,
		PredictionInterval: 30 * time.Second,
		RingCapacity:       50,
	}, source, nil, builder, predictor, alerting.NewStateMachine(), sink, store)
	eng.Now = func() time.Time { return engineStart }
	return eng
}

func cleanReading(n int) models.SensorReading {
	return models.SensorReading{
		Timestamp:    engineStart.Add(time.Duration(n) * 5 * time.Second),
		DeviceID:     "RPI5-UNIT-001",
		VillageID:    "MH_SHP",
		PH:           7.2,
		TurbidityNTU: 1.1,
		TDSPPM:       312,
		WaterTempC:   26.5,
		AirTempC:     31,
		HumidityPct:  65,
		FlowRateLPM:  12.5,
		Quality:      models.QualitySafe,
	}
}

func contaminatedReading(n int) models.SensorReading {
	r := cleanReading(n)
	r.PH = 6.0
	r.TurbidityNTU = 12
	r.TDSPPM = 400
	r.AnomalyFlag = true
	r.AnomalyType = "high_turbidity"
	r.Quality = models.QualityCritical
	return r
}

func runCycles(eng *Engine, source *scriptedSource, gen func(int) models.SensorReading, from, count int) {
	for i := 0; i < count; i++ {
		source.push("RPI5-UNIT-001", gen(from+i))
		eng.RunSensorCycle()
	}
}

func (e *Engine) advanceClock(d time.Duration) {
	prev := e.now()
	e.Now = func() time.Time { return prev.Add(d) }
}

func TestSensorCycleBuffersAndPublishes(t *testing.T) {
	source := newScriptedSource("RPI5-UNIT-001")
	sink := &captureSink{}
	store := &memStore{}
	eng := newTestEngine(source, sink, store)

	runCycles(eng, source, cleanReading, 0, 3)

	assert.Len(t, sink.ofType(broadcast.EventSensorUpdate), 3)
	assert.Equal(t, 3, store.readings)
	all := eng.Readings("RPI5-UNIT-001", 0)
	assert.Len(t, all, 3)

	// A positive limit returns only the newest readings
	last2 := eng.Readings("RPI5-UNIT-001", 2)
	require.Len(t, last2, 2)
	assert.Equal(t, all[1:], last2)

	status, err := eng.DeviceStatus("RPI5-UNIT-001")
	require.NoError(t, err)
	assert.Equal(t, "MH_SHP", status.VillageID)
	assert.Equal(t, 3, status.BufferOccupancy)
	assert.Equal(t, 50, status.BufferCapacity)
	assert.True(t, status.IsOnline)
}

func TestContaminationEventLifecycle(t *testing.T) {
	source := newScriptedSource("RPI5-UNIT-001")
	sink := &captureSink{}
	store := &memStore{}
	eng := newTestEngine(source, sink, store)

	// Phase 1: clean water, no alert
	runCycles(eng, source, cleanReading, 0, 7)
	eng.RunPredictionCycle()

	preds := sink.ofType(broadcast.EventPredictionUpdate)
	require.Len(t, preds, 1)
	first := preds[0].payload.(*models.Prediction)
	assert.Equal(t, models.LevelBaseline, first.Level)
	assert.Empty(t, sink.ofType(broadcast.EventAlertCreated))

	// Phase 2: contamination floods the rolling window
	runCycles(eng, source, contaminatedReading, 7, 7)
	eng.advanceClock(30 * time.Second)
	eng.RunPredictionCycle()

	created := sink.ofType(broadcast.EventAlertCreated)
	require.Len(t, created, 1)
	alert := created[0].payload.(*models.Alert)
	assert.GreaterOrEqual(t, alert.Level, models.LevelHigh)
	assert.Equal(t, models.DiseaseCholera, alert.Disease)
	assert.True(t, alert.TriggeredBySensor)
	assert.Equal(t, "RPI5-UNIT-001", alert.SensorDeviceID)
	assert.Contains(t, alert.TriggerReason, "high_turbidity")
	assert.Greater(t, alert.Resources.ORSPackets, 0)
	assert.NotEmpty(t, alert.Actions)

	open, ok := eng.OpenAlert("MH_SHP")
	require.True(t, ok)
	assert.Equal(t, alert.AlertID, open.AlertID)

	// Phase 3: clean water returns, the alert resolves
	runCycles(eng, source, cleanReading, 14, 7)
	eng.advanceClock(30 * time.Second)
	eng.RunPredictionCycle()

	resolved := sink.ofType(broadcast.EventAlertResolved)
	require.Len(t, resolved, 1)
	assert.True(t, resolved[0].payload.(*models.Alert).Resolved)

	_, ok = eng.OpenAlert("MH_SHP")
	assert.False(t, ok)

	// Audit trail retains the whole episode, persistence saw every step
	assert.Len(t, eng.Alerts(), 1)
	assert.Equal(t, 3, store.predictions)
	assert.GreaterOrEqual(t, len(store.alerts), 2, "created and resolved rows persisted")
}

func TestPredictionCycleSkipsVillagesWithoutReadings(t *testing.T) {
	source := newScriptedSource("RPI5-UNIT-001")
	sink := &captureSink{}
	eng := newTestEngine(source, sink, nil)

	eng.RunPredictionCycle()
	assert.Empty(t, sink.ofType(broadcast.EventPredictionUpdate))
}

func TestStalePredictionTimestampsDiscarded(t *testing.T) {
	source := newScriptedSource("RPI5-UNIT-001")
	sink := &captureSink{}
	eng := newTestEngine(source, sink, nil)

	runCycles(eng, source, cleanReading, 0, 3)
	eng.RunPredictionCycle()
	// Same clock: the second cycle's prediction is not newer and must
	// leave alert state untouched
	eng.RunPredictionCycle()

	assert.Len(t, sink.ofType(broadcast.EventPredictionUpdate), 2)
	assert.Empty(t, sink.ofType(broadcast.EventAlertCreated))
	assert.Empty(t, eng.Alerts())
}

func TestAcknowledgePersists(t *testing.T) {
	source := newScriptedSource("RPI5-UNIT-001")
	sink := &captureSink{}
	store := &memStore{}
	eng := newTestEngine(source, sink, store)

	runCycles(eng, source, contaminatedReading, 0, 7)
	eng.RunPredictionCycle()

	open, ok := eng.OpenAlert("MH_SHP")
	require.True(t, ok)

	acked, err := eng.Acknowledge(open.AlertID, "dr.patel", "team en route")
	require.NoError(t, err)
	assert.True(t, acked.Acknowledged)
	assert.GreaterOrEqual(t, len(store.alerts), 2, "create and acknowledge both persisted")

	_, err = eng.Acknowledge("missing", "x", "")
	assert.Error(t, err)
}
