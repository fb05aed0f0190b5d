package openhours

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		raw     string
		want    TimeOfDay
		wantErr bool
	}{
		{"09:00", 9 * 60, false},
		{"09:07:30", 9*60 + 7, false},
		{"23:59:59", 23*60 + 59, false},
		{"00:00:00", 0, false},
		{"24:00", 0, true},
		{"9", 0, true},
		{"09:7", 0, true},
		{"ab:cd", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseTimeOfDay(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDayIDFor(t *testing.T) {
	assert.Equal(t, 1, DayIDFor(time.Monday))
	assert.Equal(t, 6, DayIDFor(time.Saturday))
	assert.Equal(t, 7, DayIDFor(time.Sunday))
	assert.Equal(t, "Sunday", DayName(7))
	assert.Equal(t, "Monday", DayName(1))
	assert.Equal(t, "", DayName(0))
}

func TestRecordWindowOvernight(t *testing.T) {
	rec := Record{DayID: 1, Start: MustTimeOfDay("22:00"), End: MustTimeOfDay("02:00")}
	date := time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC)

	start, end := rec.Window(date)

	assert.True(t, rec.Overnight())
	assert.Equal(t, time.Date(2026, 10, 12, 22, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2026, 10, 13, 2, 0, 0, 0, time.UTC), end)
	assert.Equal(t, 4*time.Hour, rec.Duration())
}

func TestWeekOpenOn(t *testing.T) {
	week := Week{
		{DayID: 1, Start: MustTimeOfDay("09:00"), End: MustTimeOfDay("12:00")},
		{DayID: 1, Start: MustTimeOfDay("13:00"), End: MustTimeOfDay("17:00")},
		{DayID: 2, IsClosed: true},
	}

	assert.Len(t, week.OpenOn(1), 2)
	assert.Empty(t, week.OpenOn(2))
	assert.Len(t, week.ForDay(2), 1)
	assert.Empty(t, week.OpenOn(3))
	assert.True(t, week.OpenAnyDay())
	assert.False(t, Week{{DayID: 4, IsClosed: true}}.OpenAnyDay())
}

func TestRecordValidate(t *testing.T) {
	assert.ErrorIs(t, Record{DayID: 0}.Validate(), ErrInvalidDay)
	assert.ErrorIs(t, Record{DayID: 8}.Validate(), ErrInvalidDay)
	assert.ErrorIs(t, Record{DayID: 3, Start: 600, End: 600}.Validate(), ErrEmptyWindow)
	assert.NoError(t, Record{DayID: 3, IsClosed: true}.Validate())
}

func TestWeekFromWire(t *testing.T) {
	payload := `[
		{"day_id": 1, "is_closed": "0", "start_time": "09:00:00", "end_time": "17:30:00"},
		{"day_id": "7", "is_closed": "1", "start_time": "", "end_time": ""}
	]`
	var records []WireRecord
	require.NoError(t, json.Unmarshal([]byte(payload), &records))

	week, err := WeekFromWire(records)
	require.NoError(t, err)
	require.Len(t, week, 2)

	assert.Equal(t, Record{DayID: 1, Start: 540, End: 1050}, week[0])
	assert.Equal(t, Record{DayID: 7, IsClosed: true}, week[1])

	wire := week.ToWire()
	assert.Equal(t, "0", wire[0].IsClosed)
	assert.Equal(t, "09:00:00", wire[0].StartTime)
	assert.Equal(t, "17:30:00", wire[0].EndTime)
	assert.Equal(t, "1", wire[1].IsClosed)
}

func TestFromWireRejectsBadFlag(t *testing.T) {
	_, err := FromWire(WireRecord{DayID: 1, IsClosed: "maybe", StartTime: "09:00:00", EndTime: "10:00:00"})
	assert.Error(t, err)

	_, err = FromWire(WireRecord{DayID: 1, IsClosed: "0", StartTime: "9am", EndTime: "10:00:00"})
	assert.Error(t, err)
}
