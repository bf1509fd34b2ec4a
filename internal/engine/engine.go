package engine

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"waterguard-backend/internal/alerting"
	"waterguard-backend/internal/broadcast"
	"waterguard-backend/internal/features"
	"waterguard-backend/internal/history"
	"waterguard-backend/internal/ingest"
	"waterguard-backend/internal/ml"
	"waterguard-backend/internal/models"
	"waterguard-backend/internal/simulator"
)

// Store is the persistence surface the engine writes to. A nil Store
// disables persistence.
type Store interface {
	SaveReading(reading *models.SensorReading) error
	SavePrediction(villageID string, pred *models.Prediction) error
	UpsertAlert(alert *models.Alert) error
}

// Config holds the engine's timing knobs.
type Config struct {
	SensorInterval     time.Duration
	PredictionInterval time.Duration
	RingCapacity       int
}

// Engine drives the sensing and prediction loops: the fast loop polls
// the source and buffers readings, the slow loop featurizes each
// village's recent history, runs the ensemble and feeds the alert
// state machine.
type Engine struct {
	cfg       Config
	source    ingest.Source
	baselines *simulator.BaselineStore // nil in hardware mode
	builder   *features.Builder
	predictor *ml.Predictor
	alerts    *alerting.StateMachine
	sink      broadcast.Sink
	store     Store

	mu            sync.RWMutex
	rings         map[string]*history.Ring // keyed by device id
	deviceVillage map[string]string

	// Now is injectable for tests
	Now func() time.Time
}

// New assembles an engine. baselines may be nil when the source is
// hardware-backed.
func New(cfg Config, source ingest.Source, baselines *simulator.BaselineStore, builder *features.Builder, predictor *ml.Predictor, alerts *alerting.StateMachine, sink broadcast.Sink, store Store) *Engine {
	return &Engine{
		cfg:           cfg,
		source:        source,
		baselines:     baselines,
		builder:       builder,
		predictor:     predictor,
		alerts:        alerts,
		sink:          sink,
		store:         store,
		rings:         make(map[string]*history.Ring),
		deviceVillage: make(map[string]string),
	}
}

// Run blocks until the context is cancelled, driving both loops.
func (e *Engine) Run(ctx context.Context) {
	sensorTicker := time.NewTicker(e.cfg.SensorInterval)
	predictionTicker := time.NewTicker(e.cfg.PredictionInterval)
	defer sensorTicker.Stop()
	defer predictionTicker.Stop()

	log.Printf("Engine started: sensor every %s, predictions every %s",
		e.cfg.SensorInterval, e.cfg.PredictionInterval)

	for {
		select {
		case <-ctx.Done():
			log.Println("Engine stopped")
			return
		case <-sensorTicker.C:
			e.RunSensorCycle()
		case <-predictionTicker.C:
			e.RunPredictionCycle()
		}
	}
}

// RunSensorCycle polls every device once, buffering and publishing
// each reading.
func (e *Engine) RunSensorCycle() {
	for _, deviceID := range e.source.DeviceIDs() {
		reading, err := e.source.Read(deviceID)
		if err != nil {
			log.Printf("Error reading device %s: %v", deviceID, err)
			continue
		}
		e.ingestReading(reading)
	}
}

func (e *Engine) ingestReading(reading *models.SensorReading) {
	e.mu.Lock()
	ring, ok := e.rings[reading.DeviceID]
	if !ok {
		r, err := history.NewRing(e.cfg.RingCapacity)
		if err != nil {
			e.mu.Unlock()
			log.Printf("Error creating buffer for device %s: %v", reading.DeviceID, err)
			return
		}
		ring = r
		e.rings[reading.DeviceID] = ring
	}
	e.deviceVillage[reading.DeviceID] = reading.VillageID
	e.mu.Unlock()

	ring.Append(*reading)

	if e.sink != nil {
		e.sink.Publish(broadcast.EventSensorUpdate, reading)
	}
	if e.store != nil {
		if err := e.store.SaveReading(reading); err != nil {
			log.Printf("Error saving reading from %s: %v", reading.DeviceID, err)
		}
	}
}

// RunPredictionCycle featurizes every village with buffered readings
// and applies the resulting prediction to its alert state.
func (e *Engine) RunPredictionCycle() {
	now := e.now()

	byVillage := e.villageDevices()
	villageIDs := make([]string, 0, len(byVillage))
	for id := range byVillage {
		villageIDs = append(villageIDs, id)
	}
	sort.Strings(villageIDs)

	for _, villageID := range villageIDs {
		deviceID := byVillage[villageID]
		village, ok := models.VillageByID(villageID)
		if !ok {
			log.Printf("Unknown village %s for device %s, skipping", villageID, deviceID)
			continue
		}

		e.mu.RLock()
		ring := e.rings[deviceID]
		e.mu.RUnlock()
		if ring == nil || ring.Len() == 0 {
			continue
		}

		readings := ring.Snapshot()
		vec := e.builder.Build(village, readings, now)

		prevLevel := e.alerts.LastLevel(villageID)
		pred := e.predictor.Predict(village, vec, prevLevel)
		pred.Timestamp = now

		alert, transition := e.alerts.Apply(pred, triggerFromReadings(deviceID, readings))

		if e.sink != nil {
			e.sink.Publish(broadcast.EventPredictionUpdate, pred)
			if event, ok := eventForTransition(transition); ok {
				e.sink.Publish(event, alert)
			}
		}
		if e.store != nil {
			if err := e.store.SavePrediction(villageID, pred); err != nil {
				log.Printf("Error saving prediction for %s: %v", villageID, err)
			}
			if alert != nil && transition != alerting.TransitionNone {
				if err := e.store.UpsertAlert(alert); err != nil {
					log.Printf("Error saving alert %s: %v", alert.AlertID, err)
				}
			}
		}

		if transition != alerting.TransitionNone && transition != alerting.TransitionDiscarded {
			log.Printf("Village %s: risk %.1f level %s, alert %s",
				villageID, pred.RiskScore, pred.Level, transition)
		}
	}
}

// DeviceStatus reports buffer occupancy plus, in mock mode, the
// simulator's per-device counters.
func (e *Engine) DeviceStatus(deviceID string) (models.DeviceStatus, error) {
	var status models.DeviceStatus
	if e.baselines != nil {
		s, err := e.baselines.Status(deviceID, e.now())
		if err != nil {
			return models.DeviceStatus{}, err
		}
		status = s
	} else {
		status.DeviceID = deviceID
		status.IsLiveHardware = true
	}

	e.mu.RLock()
	ring := e.rings[deviceID]
	village := e.deviceVillage[deviceID]
	e.mu.RUnlock()

	if status.VillageID == "" {
		status.VillageID = village
	}
	if ring != nil {
		status.BufferOccupancy = ring.Len()
		status.BufferCapacity = ring.Capacity()
		if latest, ok := ring.Latest(); ok {
			status.LastReadingAt = latest.Timestamp
			status.LastReadingAge = e.now().Sub(latest.Timestamp)
			if e.baselines == nil {
				status.IsOnline = !latest.Stale
			}
		}
	}

	return status, nil
}

// Readings returns a copy of the buffered history for a device,
// newest last. A limit of 0 or less returns the full buffer.
func (e *Engine) Readings(deviceID string, limit int) []models.SensorReading {
	e.mu.RLock()
	ring := e.rings[deviceID]
	e.mu.RUnlock()
	if ring == nil {
		return nil
	}
	if limit <= 0 {
		return ring.Snapshot()
	}
	return ring.Recent(limit)
}

// Alerts exposes the state machine's audit log.
func (e *Engine) Alerts() []*models.Alert {
	return e.alerts.Alerts()
}

// OpenAlert returns the open alert for a village, if any.
func (e *Engine) OpenAlert(villageID string) (*models.Alert, bool) {
	return e.alerts.OpenAlert(villageID)
}

// Acknowledge marks an open alert as acknowledged and persists the
// change.
func (e *Engine) Acknowledge(alertID, by, notes string) (*models.Alert, error) {
	alert, err := e.alerts.Acknowledge(alertID, by, notes)
	if err != nil {
		return nil, err
	}
	if e.store != nil {
		if err := e.store.UpsertAlert(alert); err != nil {
			log.Printf("Error saving acknowledged alert %s: %v", alertID, err)
		}
	}
	return alert, nil
}

func (e *Engine) villageDevices() map[string]string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make(map[string]string, len(e.deviceVillage))
	for device, village := range e.deviceVillage {
		out[village] = device
	}
	return out
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// triggerFromReadings derives sensor provenance from the most recent
// anomalous reading, falling back to the latest reading.
func triggerFromReadings(deviceID string, readings []models.SensorReading) alerting.Trigger {
	if len(readings) == 0 {
		return alerting.Trigger{}
	}
	latest := readings[len(readings)-1]
	for i := len(readings) - 1; i >= 0; i-- {
		if readings[i].AnomalyFlag {
			latest = readings[i]
			break
		}
	}
	return alerting.Trigger{
		BySensor:       latest.AnomalyFlag,
		DeviceID:       deviceID,
		ReadingSummary: summarizeReading(&latest),
		AnomalyType:    latest.AnomalyType,
	}
}

func summarizeReading(r *models.SensorReading) string {
	return fmt.Sprintf("pH %.2f, turbidity %.2f NTU, TDS %.0f ppm", r.PH, r.TurbidityNTU, r.TDSPPM)
}

func eventForTransition(t alerting.Transition) (broadcast.EventType, bool) {
	switch t {
	case alerting.TransitionCreated:
		return broadcast.EventAlertCreated, true
	case alerting.TransitionEscalated:
		return broadcast.EventAlertEscalated, true
	case alerting.TransitionDeescalated:
		return broadcast.EventAlertDeescalated, true
	case alerting.TransitionResolved:
		return broadcast.EventAlertResolved, true
	}
	return "", false
}
