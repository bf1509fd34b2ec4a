package broadcast

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTSink publishes events to an MQTT broker, one topic per event
// type: <prefix>/<event_type>.
type MQTTSink struct {
	client      mqtt.Client
	topicPrefix string
}

// MQTTSinkConfig holds broker settings for the event publisher.
type MQTTSinkConfig struct {
	Broker      string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string // e.g. "waterguard/events"
}

// NewMQTTSink connects to the broker and returns the sink.
func NewMQTTSink(cfg MQTTSinkConfig) (*MQTTSink, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetAutoReconnect(true)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}
	log.Println("Connected to MQTT broker:", cfg.Broker)

	return &MQTTSink{client: client, topicPrefix: cfg.TopicPrefix}, nil
}

// Publish implements Sink. Fire-and-forget: publish errors are logged,
// never surfaced to the tick loop.
func (s *MQTTSink) Publish(event EventType, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Error marshalling %s payload: %v", event, err)
		return
	}
	topic := fmt.Sprintf("%s/%s", s.topicPrefix, event)
	token := s.client.Publish(topic, 0, false, data)
	go func() {
		if token.Wait() && token.Error() != nil {
			log.Printf("Error publishing %s to %s: %v", event, topic, token.Error())
		}
	}()
}

// Close disconnects from the broker.
func (s *MQTTSink) Close() {
	s.client.Disconnect(250)
}
