package slots

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codr1/marketplace/internal/openhours"
)

// 2026-10-12 is a Monday.
func at(day, hour, min int) time.Time {
	return time.Date(2026, 10, day, hour, min, 0, 0, time.UTC)
}

func window(dayID int, start, end string) openhours.Record {
	return openhours.Record{
		DayID: dayID,
		Start: openhours.MustTimeOfDay(start),
		End:   openhours.MustTimeOfDay(end),
	}
}

func resolverAt(now time.Time, opts ...Option) *Resolver {
	return NewResolver(append([]Option{WithClock(FixedClock(now))}, opts...)...)
}

func TestIsValidTime_ClosedDay(t *testing.T) {
	week := openhours.Week{
		{DayID: 1, IsClosed: true, Start: openhours.MustTimeOfDay("09:00"), End: openhours.MustTimeOfDay("17:00")},
		window(2, "09:00", "17:00"),
	}
	r := resolverAt(at(11, 12, 0))

	for minute := 0; minute < 24*60; minute += 5 {
		candidate := at(12, 0, 0).Add(time.Duration(minute) * time.Minute)
		assert.False(t, r.IsValidTime(candidate, week), "monday %s should be closed", candidate.Format("15:04"))
	}
}

func TestIsValidTime_NoRecordsForDay(t *testing.T) {
	week := openhours.Week{window(2, "09:00", "17:00")}
	r := resolverAt(at(11, 12, 0))

	assert.False(t, r.IsValidTime(at(12, 10, 0), week))
	assert.True(t, r.IsValidTime(at(13, 10, 0), week))
}

func TestIsValidTime_Overnight(t *testing.T) {
	week := openhours.Week{window(1, "22:00", "02:00")}
	r := resolverAt(at(12, 6, 0))

	assert.True(t, r.IsValidTime(at(12, 23, 30), week))
	assert.True(t, r.IsValidTime(at(12, 22, 0), week))
	assert.False(t, r.IsValidTime(at(12, 3, 0), week))
	assert.False(t, r.IsValidTime(at(12, 21, 59), week))
}

func TestIsValidTime_EndIsExclusive(t *testing.T) {
	week := openhours.Week{window(1, "09:00", "17:00")}
	r := resolverAt(at(11, 12, 0))

	assert.True(t, r.IsValidTime(at(12, 9, 0), week))
	assert.True(t, r.IsValidTime(at(12, 16, 59), week))
	assert.False(t, r.IsValidTime(at(12, 17, 0), week))
}

func TestIsValidTime_PastTimeToday(t *testing.T) {
	week := openhours.Week{window(1, "08:00", "18:00")}
	r := resolverAt(at(12, 10, 0))

	assert.False(t, r.IsValidTime(at(12, 9, 0), week))
	assert.True(t, r.IsValidTime(at(12, 10, 0), week))
	assert.True(t, r.IsValidTime(at(12, 11, 0), week))
}

func TestResolve_ValidCandidateUnchanged(t *testing.T) {
	week := openhours.Week{window(1, "09:00", "17:00")}
	r := resolverAt(at(11, 12, 0))

	result, err := r.Resolve(at(12, 10, 7), week)
	require.NoError(t, err)
	assert.False(t, result.Adjusted)
	assert.Equal(t, at(12, 10, 7), result.Slot)
	assert.Empty(t, result.Message())
}

func TestResolve_RoundsUpToQuarterHour(t *testing.T) {
	r := resolverAt(at(11, 12, 0))

	result, err := r.Resolve(at(12, 8, 0), openhours.Week{window(1, "09:07", "17:00")})
	require.NoError(t, err)
	assert.True(t, result.Adjusted)
	assert.Equal(t, at(12, 9, 15), result.Slot)
	assert.Equal(t, "2026-10-12", result.Date())
	assert.Equal(t, "09:15", result.Time())

	result, err = r.Resolve(at(12, 8, 0), openhours.Week{window(1, "09:00", "17:00")})
	require.NoError(t, err)
	assert.Equal(t, at(12, 9, 0), result.Slot)
}

func TestResolve_RoundingRollsHour(t *testing.T) {
	r := resolverAt(at(11, 12, 0))

	result, err := r.Resolve(at(12, 8, 0), openhours.Week{window(1, "09:50", "12:00")})
	require.NoError(t, err)
	assert.Equal(t, at(12, 10, 0), result.Slot)
}

func TestResolve_TodayClampsToNow(t *testing.T) {
	week := openhours.Week{window(1, "08:00", "18:00")}

	result, err := resolverAt(at(12, 10, 0)).Resolve(at(12, 7, 0), week)
	require.NoError(t, err)
	assert.Equal(t, at(12, 10, 0), result.Slot)

	now := time.Date(2026, 10, 12, 10, 5, 30, 0, time.UTC)
	result, err = resolverAt(now).Resolve(at(12, 7, 0), week)
	require.NoError(t, err)
	assert.False(t, result.Slot.Before(now))
	assert.Equal(t, at(12, 10, 15), result.Slot)
}

func TestResolve_AfterClosingMovesToNextDay(t *testing.T) {
	week := openhours.Week{
		window(1, "09:00", "17:00"),
		window(2, "10:30", "17:00"),
	}
	r := resolverAt(at(11, 12, 0))

	result, err := r.Resolve(at(12, 18, 0), week)
	require.NoError(t, err)
	assert.Equal(t, at(13, 10, 30), result.Slot)
	assert.Contains(t, result.Message(), "Tue, 13 Oct at 10:30")
}

func TestResolve_GapBetweenWindows(t *testing.T) {
	week := openhours.Week{
		window(1, "09:00", "12:00"),
		window(1, "13:00", "17:00"),
	}
	r := resolverAt(at(11, 12, 0))

	result, err := r.Resolve(at(12, 12, 30), week)
	require.NoError(t, err)
	assert.Equal(t, at(12, 13, 0), result.Slot)
}

func TestResolve_WindowTooShortAfterRounding(t *testing.T) {
	week := openhours.Week{
		window(1, "09:00", "09:10"),
		window(2, "09:00", "17:00"),
	}
	r := resolverAt(time.Date(2026, 10, 12, 9, 5, 0, 0, time.UTC))

	result, err := r.Resolve(at(12, 9, 0), week)
	require.NoError(t, err)
	assert.Equal(t, at(13, 9, 0), result.Slot)
}

func TestResolve_OvernightWindowSuggestion(t *testing.T) {
	week := openhours.Week{window(1, "22:00", "02:00")}
	r := resolverAt(at(12, 6, 0))

	result, err := r.Resolve(at(12, 3, 0), week)
	require.NoError(t, err)
	assert.Equal(t, at(12, 22, 0), result.Slot)
}

func TestResolve_NoSchedule(t *testing.T) {
	r := resolverAt(at(11, 12, 0))

	_, err := r.Resolve(at(12, 10, 0), nil)
	assert.ErrorIs(t, err, ErrNoSchedule)
	assert.Contains(t, Message(err), "cannot be booked")
}

func TestResolve_SearchBound(t *testing.T) {
	closed := openhours.Week{}
	for day := openhours.MinDayID; day <= openhours.MaxDayID; day++ {
		closed = append(closed, openhours.Record{DayID: day, IsClosed: true})
	}
	r := resolverAt(at(11, 12, 0))

	_, err := r.Resolve(at(12, 10, 0), closed)
	assert.ErrorIs(t, err, ErrNoSlot)
	assert.Contains(t, Message(err), "different day")

	thursdayOnly := openhours.Week{window(4, "09:00", "17:00")}

	_, err = resolverAt(at(11, 12, 0), WithSearchDays(2)).Resolve(at(12, 10, 0), thursdayOnly)
	assert.ErrorIs(t, err, ErrNoSlot)

	result, err := r.Resolve(at(12, 10, 0), thursdayOnly)
	require.NoError(t, err)
	assert.Equal(t, at(15, 9, 0), result.Slot)
}

func TestResolve_ReachesNextSameWeekday(t *testing.T) {
	mondayOnly := openhours.Week{window(1, "09:00", "17:00")}
	r := resolverAt(at(12, 12, 0))

	result, err := r.Resolve(at(12, 18, 0), mondayOnly)
	require.NoError(t, err)
	assert.True(t, result.Adjusted)
	assert.Equal(t, at(19, 9, 0), result.Slot)
}

func TestIsValidTime_PreviousDayOvernight(t *testing.T) {
	week := openhours.Week{window(1, "22:00", "02:00")}
	r := resolverAt(at(13, 0, 30))

	assert.True(t, r.IsValidTime(at(13, 1, 0), week))
	assert.False(t, r.IsValidTime(at(13, 0, 15), week), "before now")
	assert.False(t, r.IsValidTime(at(13, 2, 0), week))
	assert.False(t, r.IsValidTime(at(14, 1, 0), week), "wednesday has no carry-over")
}

func TestResolve_PreviousDayOvernight(t *testing.T) {
	week := openhours.Week{window(1, "22:00", "02:00")}
	r := resolverAt(at(13, 0, 30))

	result, err := r.Resolve(at(13, 1, 0), week)
	require.NoError(t, err)
	assert.False(t, result.Adjusted)
	assert.Equal(t, at(13, 1, 0), result.Slot)

	result, err = r.Resolve(at(13, 0, 0), week)
	require.NoError(t, err)
	assert.True(t, result.Adjusted)
	assert.Equal(t, at(13, 0, 30), result.Slot)

	result, err = r.Resolve(at(13, 3, 0), week)
	require.NoError(t, err)
	assert.Equal(t, at(19, 22, 0), result.Slot)
}

func TestResolveIn_ShopZone(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	week := openhours.Week{
		window(1, "09:00", "17:00"),
		window(5, "09:00", "17:00"),
	}
	r := resolverAt(at(16, 10, 0))

	// Monday 10:00 in the shop is Monday 01:00 UTC.
	result, err := r.ResolveIn(at(19, 1, 0), week, tokyo)
	require.NoError(t, err)
	assert.False(t, result.Adjusted)
	assert.Equal(t, time.UTC, result.Slot.Location())

	// Friday 23:00 in the shop moves to Monday 09:00 there, Sunday 00:00 UTC.
	result, err = r.ResolveIn(at(16, 14, 0), week, tokyo)
	require.NoError(t, err)
	assert.True(t, result.Adjusted)
	assert.Equal(t, "2026-10-18", result.Date())
	assert.Equal(t, "00:00", result.Time())
	assert.Equal(t, at(16, 14, 0), result.Requested)
}

func TestResolve_SearchStartsFromNowForPastCandidates(t *testing.T) {
	week := openhours.Week{window(3, "09:00", "17:00")}
	r := resolverAt(at(13, 12, 0))

	result, err := r.Resolve(at(5, 10, 0), week)
	require.NoError(t, err)
	assert.Equal(t, at(14, 9, 0), result.Slot)
}

func TestResolve_Idempotent(t *testing.T) {
	week := openhours.Week{window(1, "09:07", "17:00"), window(3, "08:00", "12:00")}
	r := resolverAt(at(12, 10, 2))

	first, err := r.Resolve(at(12, 18, 0), week)
	require.NoError(t, err)
	second, err := r.Resolve(at(12, 18, 0), week)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestRoundUp(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{"on boundary", at(12, 9, 0), at(12, 9, 0)},
		{"inside quarter", at(12, 9, 7), at(12, 9, 15)},
		{"hour roll", at(12, 9, 52), at(12, 10, 0)},
		{"seconds count", time.Date(2026, 10, 12, 9, 15, 1, 0, time.UTC), at(12, 9, 30)},
		{"day roll", at(12, 23, 50), at(13, 0, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RoundUp(tt.in, DefaultStep))
		})
	}
}
