package slots

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZoneForOffset(t *testing.T) {
	loc, err := ZoneForOffset(-120)
	require.NoError(t, err)
	name, offset := time.Date(2026, 10, 16, 0, 0, 0, 0, loc).Zone()
	assert.Equal(t, "UTC+02:00", name)
	assert.Equal(t, 7200, offset)

	loc, err = ZoneForOffset(300)
	require.NoError(t, err)
	name, offset = time.Date(2026, 10, 16, 0, 0, 0, 0, loc).Zone()
	assert.Equal(t, "UTC-05:00", name)
	assert.Equal(t, -18000, offset)

	_, err = ZoneForOffset(15 * 60)
	assert.Error(t, err)
}

func TestCombineVisit_PlainValues(t *testing.T) {
	visit, err := CombineVisit("2026-10-16", "14:30", -120)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 10, 16, 12, 30, 0, 0, time.UTC), visit.UTC())
	assert.Equal(t, 14, visit.Hour())
}

func TestCombineVisit_ISOTimestamps(t *testing.T) {
	// A date picker at UTC+2 serialises local midnight as the previous UTC day.
	visit, err := CombineVisit("2026-10-15T22:00:00.000Z", "2026-10-16T07:45:00.000Z", -120)
	require.NoError(t, err)
	assert.Equal(t, 16, visit.Day())
	assert.Equal(t, 9, visit.Hour())
	assert.Equal(t, 45, visit.Minute())
}

func TestCombineVisit_Errors(t *testing.T) {
	_, err := CombineVisit("", "10:00", 0)
	assert.Error(t, err)
	_, err = CombineVisit("2026-10-16", "", 0)
	assert.Error(t, err)
	_, err = CombineVisit("16/10/2026", "10:00", 0)
	assert.Error(t, err)
	_, err = CombineVisit("2026-10-16", "10am", 0)
	assert.Error(t, err)
	_, err = CombineVisit("2026-10-16", "10:00", 10000)
	assert.Error(t, err)
}
