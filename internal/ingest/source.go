package ingest

import "waterguard-backend/internal/models"

// Source produces sensor readings, either simulated or from real
// hardware. Selected by configuration at startup; consumers never know
// which variant they are talking to.
type Source interface {
	// Read produces the current reading for a device. Offline or silent
	// devices yield the last known reading flagged stale, never a
	// fabricated fresh one.
	Read(deviceID string) (*models.SensorReading, error)

	// DeviceIDs lists the devices this source covers, in stable order.
	DeviceIDs() []string

	Close()
}
