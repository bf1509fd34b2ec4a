package ingest

import (
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"waterguard-backend/internal/anomaly"
	"waterguard-backend/internal/models"
)

// HardwareSource receives readings pushed by real field devices over
// MQTT and serves the latest one per device. Devices publish JSON
// payloads on <topic pattern> with their id in the topic, e.g.
// sensor/RPI5-UNIT-001/reading.
type HardwareSource struct {
	client     mqtt.Client
	topic      string
	staleAfter time.Duration

	mu     sync.RWMutex
	latest map[string]*models.SensorReading
}

// HardwareConfig holds broker settings for the hardware source.
type HardwareConfig struct {
	Broker     string
	ClientID   string
	Username   string
	Password   string
	Topic      string // e.g. "sensor/+/reading"
	StaleAfter time.Duration
}

// NewHardwareSource connects and subscribes to the reading topic.
func NewHardwareSource(cfg HardwareConfig) (*HardwareSource, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetAutoReconnect(true)
	opts.SetKeepAlive(60 * time.Second)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	s := &HardwareSource{
		client:     client,
		topic:      cfg.Topic,
		staleAfter: cfg.StaleAfter,
		latest:     make(map[string]*models.SensorReading),
	}
	if token := client.Subscribe(cfg.Topic, 1, s.handleMessage); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", cfg.Topic, token.Error())
	}
	log.Printf("Subscribed to hardware readings on %s", cfg.Topic)
	return s, nil
}

// readingPayload is the wire format devices publish.
type readingPayload struct {
	VillageID string  `json:"village_id"`
	PH        float64 `json:"ph_level"`
	Turbidity float64 `json:"turbidity_ntu"`
	TDS       float64 `json:"tds_ppm"`
	WaterTemp float64 `json:"water_temp_celsius"`
	AirTemp   float64 `json:"air_temp_celsius"`
	Humidity  float64 `json:"humidity_percent"`
	FlowRate  float64 `json:"flow_rate_lpm"`
	Timestamp string  `json:"timestamp"`
}

func (s *HardwareSource) handleMessage(client mqtt.Client, msg mqtt.Message) {
	var payload readingPayload
	if err := json.Unmarshal(msg.Payload(), &payload); err != nil {
		log.Printf("Error unmarshaling hardware reading: %v", err)
		return
	}

	deviceID := extractDeviceID(msg.Topic())
	if deviceID == "" {
		log.Printf("Could not extract device ID from topic: %s", msg.Topic())
		return
	}

	timestamp, err := time.Parse(time.RFC3339, payload.Timestamp)
	if err != nil {
		timestamp = time.Now()
	}

	reading := &models.SensorReading{
		Timestamp:      timestamp,
		DeviceID:       deviceID,
		VillageID:      payload.VillageID,
		PH:             payload.PH,
		TurbidityNTU:   payload.Turbidity,
		TDSPPM:         payload.TDS,
		WaterTempC:     payload.WaterTemp,
		AirTempC:       payload.AirTemp,
		HumidityPct:    payload.Humidity,
		FlowRateLPM:    payload.FlowRate,
		IsLiveHardware: true,
	}
	flagged, tag := anomaly.Check(reading)
	reading.AnomalyFlag = flagged
	reading.AnomalyType = tag
	reading.Quality = anomaly.QualityStatus(reading, flagged)

	s.mu.Lock()
	s.latest[deviceID] = reading
	s.mu.Unlock()
}

// Read serves the latest received reading. Readings older than the
// staleness threshold are flagged stale with their age; the original
// timestamp is preserved.
func (s *HardwareSource) Read(deviceID string) (*models.SensorReading, error) {
	s.mu.RLock()
	reading, ok := s.latest[deviceID]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no reading received yet from device %s", deviceID)
	}

	out := *reading
	if age := time.Since(out.Timestamp); age > s.staleAfter {
		out.Stale = true
		out.Age = age
	}
	return &out, nil
}

func (s *HardwareSource) DeviceIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.latest))
	for id := range s.latest {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (s *HardwareSource) Close() {
	s.client.Disconnect(250)
}

// extractDeviceID pulls the device id from a sensor/{device_id}/reading
// topic.
func extractDeviceID(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) >= 3 {
		return parts[1]
	}
	return ""
}
