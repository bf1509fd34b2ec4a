package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Sensor source: "mock" runs the built-in simulator, "hardware"
	// consumes readings from field devices over MQTT
	SensorMode string

	// Simulation / pipeline timing
	SimInterval        time.Duration
	PredictionInterval time.Duration
	StaleThreshold     time.Duration
	SimSeed            int64

	// Reading history buffer per device
	RingCapacity int

	// Alerting
	HysteresisMargin float64

	// MQTT Configuration
	MQTTEnabled     bool
	MQTTBroker      string
	MQTTClientID    string
	MQTTUsername    string
	MQTTPassword    string
	MQTTTopicPrefix string
	MQTTTopicSensor string

	// ClickHouse Configuration
	ClickHouseEnabled bool
	ClickHouseAddr    string
	ClickHouseDB      string
	ClickHouseUser    string
	ClickHousePass    string

	// WebSocket server
	ListenAddr string

	// ML Model Configuration
	ModelPath string
}

func Load() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	return &Config{
		SensorMode: getEnv("SENSOR_MODE", "mock"),

		SimInterval:        getEnvDuration("SIM_INTERVAL", 5*time.Second),
		PredictionInterval: getEnvDuration("PREDICTION_INTERVAL", 30*time.Second),
		StaleThreshold:     getEnvDuration("STALE_THRESHOLD", 2*time.Minute),
		SimSeed:            int64(getEnvInt("SIM_SEED", 42)),

		RingCapacity: getEnvInt("RING_CAPACITY", 500),

		HysteresisMargin: getEnvFloat("HYSTERESIS_MARGIN", 3.0),

		// MQTT Configuration
		MQTTEnabled:     getEnvBool("MQTT_ENABLED", false),
		MQTTBroker:      getEnv("MQTT_BROKER", "tcp://localhost:1883"),
		MQTTClientID:    getEnv("MQTT_CLIENT_ID", "waterguard-backend"),
		MQTTUsername:    getEnv("MQTT_USERNAME", ""),
		MQTTPassword:    getEnv("MQTT_PASSWORD", ""),
		MQTTTopicPrefix: getEnv("MQTT_TOPIC_PREFIX", "waterguard/events"),
		MQTTTopicSensor: getEnv("MQTT_TOPIC_SENSOR", "sensor/+/reading"),

		// ClickHouse Configuration
		ClickHouseEnabled: getEnvBool("CLICKHOUSE_ENABLED", false),
		ClickHouseAddr:    getEnv("CLICKHOUSE_ADDR", "localhost:9000"),
		ClickHouseDB:      getEnv("CLICKHOUSE_DB", "waterguard"),
		ClickHouseUser:    getEnv("CLICKHOUSE_USER", "default"),
		ClickHousePass:    getEnv("CLICKHOUSE_PASS", ""),

		ListenAddr: getEnv("LISTEN_ADDR", ":8080"),

		// ML Model Configuration
		ModelPath: getEnv("MODEL_PATH", "./model/ensemble_bundle.json"),
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Warning: failed to parse %s as int, using default: %v", key, err)
		return defaultValue
	}
	return intValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	floatValue, err := strconv.ParseFloat(value, 64)
	if err != nil {
		log.Printf("Warning: failed to parse %s as float, using default: %v", key, err)
		return defaultValue
	}
	return floatValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		log.Printf("Warning: failed to parse %s as bool, using default: %v", key, err)
		return defaultValue
	}
	return boolValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("Warning: failed to parse %s as duration, using default: %v", key, err)
		return defaultValue
	}
	return d
}
