package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"waterguard-backend/internal/models"
)

type ClickHouseDB struct {
	conn driver.Conn
}

// NewClickHouseDB creates a new ClickHouse database connection
func NewClickHouseDB(addr, database, username, password string) (*ClickHouseDB, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: database,
			Username: username,
			Password: password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout: 5 * time.Second,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})

	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	log.Printf("Connected to ClickHouse at %s", addr)

	db := &ClickHouseDB{conn: conn}

	// Initialize schema
	if err := db.InitSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

// InitSchema creates the necessary tables if they don't exist
func (db *ClickHouseDB) InitSchema() error {
	ctx := context.Background()

	tables := AllTables()
	for _, tableSQL := range tables {
		if err := db.conn.Exec(ctx, tableSQL); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	log.Println("Database schema initialized successfully")
	return nil
}

// SaveReading saves a sensor reading to the database
func (db *ClickHouseDB) SaveReading(reading *models.SensorReading) error {
	ctx := context.Background()

	query := `
		INSERT INTO sensor_readings (
			timestamp, device_id, village_id,
			ph_level, turbidity_ntu, tds_ppm,
			water_temp_celsius, air_temp_celsius, humidity_percent, flow_rate_lpm,
			is_live_hardware, anomaly_flag, anomaly_type, quality_status
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	err := db.conn.Exec(ctx, query,
		reading.Timestamp,
		reading.DeviceID,
		reading.VillageID,
		reading.PH,
		reading.TurbidityNTU,
		reading.TDSPPM,
		reading.WaterTempC,
		reading.AirTempC,
		reading.HumidityPct,
		reading.FlowRateLPM,
		reading.IsLiveHardware,
		reading.AnomalyFlag,
		reading.AnomalyType,
		string(reading.Quality),
	)

	if err != nil {
		return fmt.Errorf("failed to insert sensor reading: %w", err)
	}

	return nil
}

// SavePrediction saves a prediction result to the database
func (db *ClickHouseDB) SavePrediction(villageID string, pred *models.Prediction) error {
	ctx := context.Background()

	factorsJSON, err := json.Marshal(pred.TopRiskFactors)
	if err != nil {
		factorsJSON = []byte("[]")
	}

	query := `
		INSERT INTO predictions (
			timestamp, village_id, risk_score, alert_level, disease,
			confidence, trend, risk_factors, model_unavailable, low_confidence
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	err = db.conn.Exec(ctx, query,
		pred.Timestamp,
		villageID,
		pred.RiskScore,
		pred.Level.String(),
		string(pred.Disease),
		pred.Confidence,
		pred.Trend,
		string(factorsJSON),
		pred.ModelUnavailable,
		pred.LowConfidence,
	)

	if err != nil {
		return fmt.Errorf("failed to insert prediction: %w", err)
	}

	return nil
}

// UpsertAlert inserts or updates an alert row. The ReplacingMergeTree
// engine collapses rows on alert_id, keeping the newest updated_at.
func (db *ClickHouseDB) UpsertAlert(alert *models.Alert) error {
	ctx := context.Background()

	resourcesJSON, err := json.Marshal(alert.Resources)
	if err != nil {
		resourcesJSON = []byte("{}")
	}

	var resolvedAt *time.Time
	if alert.Resolved {
		resolvedAt = &alert.ResolvedAt
	}

	query := `
		INSERT INTO alerts (
			alert_id, village_id, created_at, updated_at,
			level, peak_level, risk_score, disease, trigger_reason,
			acknowledged, acknowledged_by, resolved, resolved_at, resources
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	err = db.conn.Exec(ctx, query,
		alert.AlertID,
		alert.VillageID,
		alert.CreatedAt,
		time.Now(),
		alert.Level.String(),
		alert.PeakLevel.String(),
		alert.RiskScore,
		string(alert.Disease),
		alert.TriggerReason,
		alert.Acknowledged,
		alert.AcknowledgedBy,
		alert.Resolved,
		resolvedAt,
		string(resourcesJSON),
	)

	if err != nil {
		return fmt.Errorf("failed to upsert alert: %w", err)
	}

	return nil
}

// SaveCalibration records a calibration attempt and its outcome
func (db *ClickHouseDB) SaveCalibration(deviceID string, result *models.CalibrationResult) error {
	ctx := context.Background()

	query := `
		INSERT INTO device_calibrations (timestamp, device_id, quantity, offset, slope, success, message)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	err := db.conn.Exec(ctx, query,
		result.CalibratedAt,
		deviceID,
		string(result.Quantity),
		result.Offset,
		result.Slope,
		result.Success,
		result.Message,
	)

	if err != nil {
		return fmt.Errorf("failed to insert calibration record: %w", err)
	}

	return nil
}

// RecentReadings returns the most recent readings for a village,
// newest first.
func (db *ClickHouseDB) RecentReadings(villageID string, limit int) ([]models.SensorReading, error) {
	ctx := context.Background()

	query := `
		SELECT
			timestamp, device_id, village_id,
			ph_level, turbidity_ntu, tds_ppm,
			water_temp_celsius, air_temp_celsius, humidity_percent, flow_rate_lpm,
			is_live_hardware, anomaly_flag, anomaly_type, quality_status
		FROM sensor_readings
		WHERE village_id = ?
		ORDER BY timestamp DESC
		LIMIT ?
	`

	rows, err := db.conn.Query(ctx, query, villageID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent readings: %w", err)
	}
	defer rows.Close()

	var readings []models.SensorReading
	for rows.Next() {
		var r models.SensorReading
		var quality string
		if err := rows.Scan(
			&r.Timestamp, &r.DeviceID, &r.VillageID,
			&r.PH, &r.TurbidityNTU, &r.TDSPPM,
			&r.WaterTempC, &r.AirTempC, &r.HumidityPct, &r.FlowRateLPM,
			&r.IsLiveHardware, &r.AnomalyFlag, &r.AnomalyType, &quality,
		); err != nil {
			return nil, fmt.Errorf("failed to scan reading row: %w", err)
		}
		r.Quality = models.QualityStatus(quality)
		readings = append(readings, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read sensor reading rows: %w", err)
	}

	return readings, nil
}

// LatestPrediction returns the most recent prediction for a village,
// or nil when none has been recorded.
func (db *ClickHouseDB) LatestPrediction(villageID string) (*models.Prediction, error) {
	ctx := context.Background()

	query := `
		SELECT timestamp, risk_score, alert_level, disease, confidence, trend, model_unavailable, low_confidence
		FROM predictions
		WHERE village_id = ?
		ORDER BY timestamp DESC
		LIMIT 1
	`

	var (
		pred    models.Prediction
		level   string
		disease string
	)
	row := db.conn.QueryRow(ctx, query, villageID)
	err := row.Scan(
		&pred.Timestamp, &pred.RiskScore, &level, &disease,
		&pred.Confidence, &pred.Trend, &pred.ModelUnavailable, &pred.LowConfidence,
	)
	if errors.Is(err, sql.ErrNoRows) {
		// No prediction recorded yet
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest prediction: %w", err)
	}

	pred.Level = models.ParseAlertLevel(level)
	pred.Disease = models.Disease(disease)
	pred.VillageID = villageID

	return &pred, nil
}

// AlertsByVillage returns alert rows for a village, newest first
func (db *ClickHouseDB) AlertsByVillage(villageID string, limit int) ([]models.Alert, error) {
	ctx := context.Background()

	query := `
		SELECT alert_id, village_id, created_at, level, peak_level, risk_score,
			disease, trigger_reason, acknowledged, acknowledged_by, resolved
		FROM alerts FINAL
		WHERE village_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := db.conn.Query(ctx, query, villageID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	return scanAlerts(rows)
}

// OpenAlerts returns all currently unresolved alerts
func (db *ClickHouseDB) OpenAlerts() ([]models.Alert, error) {
	ctx := context.Background()

	query := `
		SELECT alert_id, village_id, created_at, level, peak_level, risk_score,
			disease, trigger_reason, acknowledged, acknowledged_by, resolved
		FROM alerts FINAL
		WHERE resolved = false
		ORDER BY created_at DESC
	`

	rows, err := db.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query open alerts: %w", err)
	}
	defer rows.Close()

	return scanAlerts(rows)
}

func scanAlerts(rows driver.Rows) ([]models.Alert, error) {
	var alerts []models.Alert
	for rows.Next() {
		var (
			a       models.Alert
			level   string
			peak    string
			disease string
		)
		if err := rows.Scan(
			&a.AlertID, &a.VillageID, &a.CreatedAt, &level, &peak, &a.RiskScore,
			&disease, &a.TriggerReason, &a.Acknowledged, &a.AcknowledgedBy, &a.Resolved,
		); err != nil {
			return nil, fmt.Errorf("failed to scan alert row: %w", err)
		}

		a.Level = models.ParseAlertLevel(level)
		a.PeakLevel = models.ParseAlertLevel(peak)
		a.Disease = models.Disease(disease)

		alerts = append(alerts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read alert rows: %w", err)
	}

	return alerts, nil
}

// Close closes the ClickHouse connection
func (db *ClickHouseDB) Close() error {
	if db.conn != nil {
		if err := db.conn.Close(); err != nil {
			return fmt.Errorf("failed to close ClickHouse connection: %w", err)
		}
		log.Println("ClickHouse connection closed")
	}
	return nil
}
