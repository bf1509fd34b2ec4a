package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAlertLevelOrdering(t *testing.T) {
	assert.True(t, LevelBaseline < LevelLow)
	assert.True(t, LevelLow < LevelMedium)
	assert.True(t, LevelMedium < LevelHigh)
	assert.True(t, LevelHigh < LevelCritical)
}

func TestAlertLevelRoundTrip(t *testing.T) {
	for _, l := range []AlertLevel{LevelBaseline, LevelLow, LevelMedium, LevelHigh, LevelCritical} {
		assert.Equal(t, l, ParseAlertLevel(l.String()))
	}
	assert.Equal(t, LevelBaseline, ParseAlertLevel("garbage"))

	data, err := json.Marshal(LevelHigh)
	assert.NoError(t, err)
	assert.Equal(t, `"high"`, string(data))
}

func TestAlertOpen(t *testing.T) {
	var nilAlert *Alert
	assert.False(t, nilAlert.Open())

	a := &Alert{}
	assert.True(t, a.Open())
	a.Resolved = true
	assert.False(t, a.Open())
}

func TestVillageRegistry(t *testing.T) {
	assert.Len(t, Villages, 15)

	v, ok := VillageByID("MH_SHP")
	assert.True(t, ok)
	assert.Equal(t, "Shirpur", v.Name)
	assert.Equal(t, 28000, v.Population)

	_, ok = VillageByID("XX_NOPE")
	assert.False(t, ok)
}
