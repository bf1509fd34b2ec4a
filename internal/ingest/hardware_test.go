package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractDeviceID(t *testing.T) {
	assert.Equal(t, "RPI5-UNIT-001", extractDeviceID("sensor/RPI5-UNIT-001/reading"))
	assert.Equal(t, "abc", extractDeviceID("sensor/abc/reading/extra"))
	assert.Empty(t, extractDeviceID("sensor/reading"))
	assert.Empty(t, extractDeviceID(""))
}
