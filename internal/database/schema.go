package database

// SQL schemas for all ClickHouse tables

const (
	// SensorReadingsTableSQL creates the sensor_readings table
	SensorReadingsTableSQL = `
		CREATE TABLE IF NOT EXISTS sensor_readings (
			timestamp DateTime64(3),
			device_id String,
			village_id String,
			ph_level Float64,
			turbidity_ntu Float64,
			tds_ppm Float64,
			water_temp_celsius Float64,
			air_temp_celsius Float64,
			humidity_percent Float64,
			flow_rate_lpm Float64,
			is_live_hardware Bool,
			anomaly_flag Bool,
			anomaly_type String,
			quality_status String
		) ENGINE = MergeTree()
		ORDER BY (village_id, device_id, timestamp)
		PARTITION BY toYYYYMM(timestamp)
	`

	// PredictionsTableSQL creates the predictions table
	PredictionsTableSQL = `
		CREATE TABLE IF NOT EXISTS predictions (
			timestamp DateTime64(3),
			village_id String,
			risk_score Float64,
			alert_level String,
			disease String,
			confidence Float64,
			trend String,
			risk_factors String,
			model_unavailable Bool,
			low_confidence Bool
		) ENGINE = MergeTree()
		ORDER BY (village_id, timestamp)
		PARTITION BY toYYYYMM(timestamp)
	`

	// AlertsTableSQL creates the alerts table. ReplacingMergeTree keeps
	// the latest row per alert id as the alert moves through its
	// lifecycle.
	AlertsTableSQL = `
		CREATE TABLE IF NOT EXISTS alerts (
			alert_id String,
			village_id String,
			created_at DateTime64(3),
			updated_at DateTime64(3),
			level String,
			peak_level String,
			risk_score Float64,
			disease String,
			trigger_reason String,
			acknowledged Bool,
			acknowledged_by String,
			resolved Bool,
			resolved_at Nullable(DateTime64(3)),
			resources String
		) ENGINE = ReplacingMergeTree(updated_at)
		ORDER BY alert_id
	`

	// CalibrationsTableSQL creates the device_calibrations table
	CalibrationsTableSQL = `
		CREATE TABLE IF NOT EXISTS device_calibrations (
			timestamp DateTime64(3),
			device_id String,
			quantity String,
			offset Float64,
			slope Float64,
			success Bool,
			message String
		) ENGINE = MergeTree()
		ORDER BY (device_id, timestamp)
		PARTITION BY toYYYYMM(timestamp)
	`
)

// AllTables returns all table creation SQL statements
func AllTables() []string {
	return []string{
		SensorReadingsTableSQL,
		PredictionsTableSQL,
		AlertsTableSQL,
		CalibrationsTableSQL,
	}
}
