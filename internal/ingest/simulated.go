package ingest

import (
	"waterguard-backend/internal/models"
	"waterguard-backend/internal/simulator"
)

// SimulatedSource adapts the stream simulator to the Source interface.
// Each Read advances the device's simulated state by one tick.
type SimulatedSource struct {
	sim   *simulator.Simulator
	store *simulator.BaselineStore
}

// NewSimulatedSource wraps a simulator and its baseline store.
func NewSimulatedSource(sim *simulator.Simulator, store *simulator.BaselineStore) *SimulatedSource {
	return &SimulatedSource{sim: sim, store: store}
}

func (s *SimulatedSource) Read(deviceID string) (*models.SensorReading, error) {
	return s.sim.Tick(deviceID)
}

func (s *SimulatedSource) DeviceIDs() []string {
	return s.store.DeviceIDs()
}

func (s *SimulatedSource) Close() {}
