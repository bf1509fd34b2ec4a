package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"waterguard-backend/internal/alerting"
	"waterguard-backend/internal/broadcast"
	"waterguard-backend/internal/database"
	"waterguard-backend/internal/engine"
	"waterguard-backend/internal/features"
	"waterguard-backend/internal/ingest"
	"waterguard-backend/internal/ml"
	"waterguard-backend/internal/models"
	"waterguard-backend/internal/simulator"
	"waterguard-backend/pkg/config"
)

func main() {
	log.Println("Starting WaterGuard Backend Service...")

	// Load configuration
	cfg := config.Load()

	// Initialize ClickHouse database (optional)
	var store engine.Store
	if cfg.ClickHouseEnabled {
		db, err := database.NewClickHouseDB(
			cfg.ClickHouseAddr,
			cfg.ClickHouseDB,
			cfg.ClickHouseUser,
			cfg.ClickHousePass,
		)
		if err != nil {
			log.Fatalf("Failed to initialize ClickHouse: %v", err)
		}
		defer db.Close()
		store = db
	} else {
		log.Println("ClickHouse persistence disabled")
	}

	// WebSocket hub for live dashboard clients
	hub := broadcast.NewHub()
	go hub.Run()

	// Compose the broadcast fan-out: hub always, MQTT when enabled,
	// buffered so slow consumers never stall the engine
	sinks := broadcast.MultiSink{hub}
	if cfg.MQTTEnabled {
		mqttSink, err := broadcast.NewMQTTSink(broadcast.MQTTSinkConfig{
			Broker:      cfg.MQTTBroker,
			ClientID:    cfg.MQTTClientID,
			Username:    cfg.MQTTUsername,
			Password:    cfg.MQTTPassword,
			TopicPrefix: cfg.MQTTTopicPrefix,
		})
		if err != nil {
			log.Fatalf("Failed to initialize MQTT sink: %v", err)
		}
		defer mqttSink.Close()
		sinks = append(sinks, mqttSink)
	}
	asyncSink := broadcast.NewAsyncSink(sinks, 256)
	defer asyncSink.Close()

	// Sensor source: built-in simulator or live hardware over MQTT
	var (
		source    ingest.Source
		baselines *simulator.BaselineStore
	)
	switch cfg.SensorMode {
	case "hardware":
		hw, err := ingest.NewHardwareSource(ingest.HardwareConfig{
			Broker:     cfg.MQTTBroker,
			ClientID:   cfg.MQTTClientID + "-ingest",
			Username:   cfg.MQTTUsername,
			Password:   cfg.MQTTPassword,
			Topic:      cfg.MQTTTopicSensor,
			StaleAfter: cfg.StaleThreshold,
		})
		if err != nil {
			log.Fatalf("Failed to initialize hardware source: %v", err)
		}
		source = hw
		log.Printf("Sensor mode: hardware (topic %s)", cfg.MQTTTopicSensor)
	default:
		baselines = simulator.NewBaselineStore(simulator.DefaultDevices())
		sim := simulator.New(baselines, cfg.SimSeed)
		source = ingest.NewSimulatedSource(sim, baselines)
		log.Printf("Sensor mode: mock (seed %d)", cfg.SimSeed)
	}
	defer source.Close()

	// ML ensemble: load the bundle from disk, fall back to the built-in
	// coefficients when the file is missing
	bundle, err := ml.LoadBundle(cfg.ModelPath)
	if err != nil {
		log.Printf("Model bundle not loaded (%v), using built-in coefficients", err)
		bundle = ml.DefaultBundle()
	}
	predictor := ml.NewPredictor(bundle, cfg.HysteresisMargin)

	// Case history and feature builder
	villageIDs := make([]string, 0, len(models.Villages))
	for _, v := range models.Villages {
		villageIDs = append(villageIDs, v.ID)
	}
	cases := features.NewSeededCaseStore(cfg.SimSeed, villageIDs)
	builder := features.NewBuilder(cases)

	// Alert state machine
	alerts := alerting.NewStateMachine()

	eng := engine.New(engine.Config{
		SensorInterval:     cfg.SimInterval,
		PredictionInterval: cfg.PredictionInterval,
		RingCapacity:       cfg.RingCapacity,
	}, source, baselines, builder, predictor, alerts, asyncSink, store)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	engDone := make(chan struct{})
	go func() {
		eng.Run(ctx)
		close(engDone)
	}()

	// WebSocket endpoint for live updates
	http.HandleFunc("/ws/live", hub.ServeWS)
	server := &http.Server{Addr: cfg.ListenAddr}
	go func() {
		log.Printf("WebSocket server listening on %s", cfg.ListenAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("WebSocket server failed: %v", err)
		}
	}()

	log.Println("WaterGuard Backend Service is running. Press Ctrl+C to exit.")

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down gracefully...")
	cancel()
	// Let an in-flight engine cycle finish before the sinks close
	<-engDone
	if err := server.Shutdown(context.Background()); err != nil {
		log.Printf("Error shutting down WebSocket server: %v", err)
	}
}
