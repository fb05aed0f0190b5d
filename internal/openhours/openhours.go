// Package openhours models a shop's weekly opening-hours schedule.
package openhours

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	MinDayID = 1 // Monday
	MaxDayID = 7 // Sunday

	minutesPerDay = 24 * 60
)

var (
	ErrInvalidDay  = errors.New("day_id must be between 1 and 7")
	ErrInvalidTime = errors.New("time must be in HH:MM or HH:MM:SS format")
	ErrEmptyWindow = errors.New("start_time and end_time must differ")
)

// TimeOfDay is a wall-clock time stored as minutes after midnight.
type TimeOfDay int

// ParseTimeOfDay accepts "HH:MM" and "HH:MM:SS". Seconds are dropped.
func ParseTimeOfDay(raw string) (TimeOfDay, error) {
	raw = strings.TrimSpace(raw)
	parts := strings.Split(raw, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, ErrInvalidTime
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, ErrInvalidTime
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 || len(parts[1]) != 2 {
		return 0, ErrInvalidTime
	}
	if len(parts) == 3 {
		second, err := strconv.Atoi(parts[2])
		if err != nil || second < 0 || second > 59 {
			return 0, ErrInvalidTime
		}
	}
	return TimeOfDay(hour*60 + minute), nil
}

// MustTimeOfDay is ParseTimeOfDay for literals known to be valid.
func MustTimeOfDay(raw string) TimeOfDay {
	t, err := ParseTimeOfDay(raw)
	if err != nil {
		panic(fmt.Sprintf("openhours: invalid time of day %q", raw))
	}
	return t
}

func (t TimeOfDay) Hour() int   { return int(t) / 60 }
func (t TimeOfDay) Minute() int { return int(t) % 60 }

// String formats as HH:MM.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// WireString formats as HH:MM:SS.
func (t TimeOfDay) WireString() string {
	return t.String() + ":00"
}

// On returns the instant at this wall-clock time on the calendar day of date.
func (t TimeOfDay) On(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), 0, 0, date.Location())
}

// Record is one opening window for a weekday.
type Record struct {
	DayID    int
	IsClosed bool
	Start    TimeOfDay
	End      TimeOfDay
}

// Overnight reports whether the window ends on the following calendar day.
func (r Record) Overnight() bool {
	return r.End < r.Start
}

// Window returns the absolute [start, end) interval of the record on date.
func (r Record) Window(date time.Time) (time.Time, time.Time) {
	start := r.Start.On(date)
	end := r.End.On(date)
	if r.Overnight() {
		end = r.End.On(date.AddDate(0, 0, 1))
	}
	return start, end
}

// Duration is the length of the window.
func (r Record) Duration() time.Duration {
	minutes := int(r.End - r.Start)
	if r.Overnight() {
		minutes += minutesPerDay
	}
	return time.Duration(minutes) * time.Minute
}

func (r Record) Validate() error {
	if r.DayID < MinDayID || r.DayID > MaxDayID {
		return ErrInvalidDay
	}
	if !r.IsClosed && r.Start == r.End {
		return ErrEmptyWindow
	}
	return nil
}

// DayIDFor maps a Go weekday onto the 1=Monday..7=Sunday numbering.
func DayIDFor(weekday time.Weekday) int {
	if weekday == time.Sunday {
		return 7
	}
	return int(weekday)
}

// DayName returns the English name for a day id.
func DayName(dayID int) string {
	if dayID < MinDayID || dayID > MaxDayID {
		return ""
	}
	return time.Weekday(dayID % 7).String()
}

// Week is the full set of records for a shop. A day may have several records.
type Week []Record

func (w Week) IsEmpty() bool {
	return len(w) == 0
}

// ForDay returns every record for dayID, closed ones included.
func (w Week) ForDay(dayID int) []Record {
	var out []Record
	for _, r := range w {
		if r.DayID == dayID {
			out = append(out, r)
		}
	}
	return out
}

// OpenOn returns the open records for dayID. It is empty when the day has no
// records or every record is marked closed.
func (w Week) OpenOn(dayID int) []Record {
	var out []Record
	for _, r := range w {
		if r.DayID == dayID && !r.IsClosed {
			out = append(out, r)
		}
	}
	return out
}

// OpenAnyDay reports whether at least one open record exists.
func (w Week) OpenAnyDay() bool {
	for _, r := range w {
		if !r.IsClosed {
			return true
		}
	}
	return false
}

func (w Week) Validate() error {
	for i, r := range w {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
	}
	return nil
}

// Sorted returns a copy ordered by day then start time.
func (w Week) Sorted() Week {
	out := make(Week, len(w))
	copy(out, w)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DayID != out[j].DayID {
			return out[i].DayID < out[j].DayID
		}
		return out[i].Start < out[j].Start
	})
	return out
}
