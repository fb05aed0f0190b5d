// Package slots decides whether a requested visit falls inside a shop's opening
// hours and, when it does not, finds the nearest bookable slot after it.
package slots

import (
	"errors"
	"fmt"
	"time"

	"github.com/codr1/marketplace/internal/openhours"
)

const (
	DefaultStep       = 15 * time.Minute
	DefaultSearchDays = 7
)

var (
	// ErrNoSchedule means the shop has no opening-hours data at all.
	ErrNoSchedule = errors.New("no opening hours for shop")
	// ErrNoSlot means nothing is open within the search bound.
	ErrNoSlot = errors.New("no available slots")
)

// Clock interface for testing time-dependent behavior.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// FixedClock always returns the same instant.
type FixedClock time.Time

func (c FixedClock) Now() time.Time { return time.Time(c) }

// Result is the outcome of a resolution. When Adjusted is false, Slot equals
// Requested.
type Result struct {
	Requested time.Time
	Slot      time.Time
	Adjusted  bool
}

// Date formats the slot's calendar date as YYYY-MM-DD.
func (r Result) Date() string { return r.Slot.Format("2006-01-02") }

// Time formats the slot's wall-clock time as HH:MM.
func (r Result) Time() string { return r.Slot.Format("15:04") }

// Message is the informational text shown next to the booking form, empty when
// the requested slot was accepted as is.
func (r Result) Message() string {
	if !r.Adjusted {
		return ""
	}
	return fmt.Sprintf("The selected time is outside opening hours. The nearest available slot is %s.",
		r.Slot.Format("Mon, 2 Jan at 15:04"))
}

// Message returns the user-facing text for a resolution error.
func Message(err error) string {
	switch {
	case errors.Is(err, ErrNoSchedule):
		return "This shop has not published opening hours, so it cannot be booked."
	case errors.Is(err, ErrNoSlot):
		return "There are no available slots in the coming days. Please choose a different day."
	case err != nil:
		return "The requested slot could not be checked."
	default:
		return ""
	}
}

// Resolver holds the rounding step and forward search bound.
type Resolver struct {
	clock      Clock
	step       time.Duration
	searchDays int
}

type Option func(*Resolver)

func WithClock(c Clock) Option {
	return func(r *Resolver) {
		if c != nil {
			r.clock = c
		}
	}
}

func WithStep(step time.Duration) Option {
	return func(r *Resolver) {
		if step >= time.Minute {
			r.step = step
		}
	}
}

func WithSearchDays(days int) Option {
	return func(r *Resolver) {
		if days > 0 {
			r.searchDays = days
		}
	}
}

func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		clock:      realClock{},
		step:       DefaultStep,
		searchDays: DefaultSearchDays,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// IsValidTime reports whether t lies inside [start, end) of an open window
// covering t's calendar day: the records for t's weekday plus any overnight
// record of the previous weekday that runs past midnight. Window starts in the
// past are clamped to now, so nothing before the current instant is ever valid.
func (r *Resolver) IsValidTime(t time.Time, week openhours.Week) bool {
	now := r.clock.Now().In(t.Location())
	for _, w := range windowsOn(t, week) {
		start := w.start
		if start.Before(now) {
			start = now
		}
		if !t.Before(start) && t.Before(w.end) {
			return true
		}
	}
	return false
}

// Resolve returns the candidate unchanged when it is bookable. Otherwise it
// walks forward one calendar day at a time from the later of candidate and now,
// covering that day plus searchDays further days, and returns the earliest
// step-aligned instant inside an open window. Wall-clock comparisons happen in
// the candidate's zone.
func (r *Resolver) Resolve(candidate time.Time, week openhours.Week) (Result, error) {
	if week.IsEmpty() {
		return Result{Requested: candidate}, ErrNoSchedule
	}
	if r.IsValidTime(candidate, week) {
		return Result{Requested: candidate, Slot: candidate}, nil
	}

	lower := candidate
	if now := r.clock.Now().In(candidate.Location()); now.After(lower) {
		lower = now
	}
	day := midnight(lower)

	for i := 0; i <= r.searchDays; i++ {
		date := day.AddDate(0, 0, i)
		if slot, ok := r.earliestOn(date, week, lower); ok {
			return Result{Requested: candidate, Slot: slot, Adjusted: true}, nil
		}
	}
	return Result{Requested: candidate}, ErrNoSlot
}

// ResolveIn resolves candidate against hours kept in the shop's zone loc and
// reports the result back in candidate's own zone. A nil loc behaves like
// Resolve.
func (r *Resolver) ResolveIn(candidate time.Time, week openhours.Week, loc *time.Location) (Result, error) {
	if loc == nil {
		return r.Resolve(candidate, week)
	}
	result, err := r.Resolve(candidate.In(loc), week)
	result.Requested = candidate
	if !result.Slot.IsZero() {
		result.Slot = result.Slot.In(candidate.Location())
	}
	return result, err
}

func (r *Resolver) earliestOn(date time.Time, week openhours.Week, lower time.Time) (time.Time, bool) {
	var best time.Time
	found := false
	for _, w := range windowsOn(date, week) {
		start := w.start
		if start.Before(lower) {
			start = lower
		}
		slot := RoundUp(start, r.step)
		if !slot.Before(w.end) {
			continue
		}
		if !found || slot.Before(best) {
			best = slot
			found = true
		}
	}
	return best, found
}

type span struct {
	start, end time.Time
}

// windowsOn lists the absolute windows that can cover date: its own weekday's
// records and the previous weekday's overnight records.
func windowsOn(date time.Time, week openhours.Week) []span {
	var out []span
	for _, rec := range week.OpenOn(openhours.DayIDFor(date.Weekday())) {
		start, end := rec.Window(date)
		out = append(out, span{start, end})
	}
	prev := date.AddDate(0, 0, -1)
	for _, rec := range week.OpenOn(openhours.DayIDFor(prev.Weekday())) {
		if !rec.Overnight() {
			continue
		}
		start, end := rec.Window(prev)
		out = append(out, span{start, end})
	}
	return out
}

// RoundUp moves t forward to the next step boundary counted from local
// midnight. Times already on a boundary are returned unchanged; overflow rolls
// the hour (and day) forward.
func RoundUp(t time.Time, step time.Duration) time.Time {
	stepMinutes := int(step / time.Minute)
	if stepMinutes <= 0 {
		return t
	}
	minutes := t.Hour()*60 + t.Minute()
	if t.Second() > 0 || t.Nanosecond() > 0 {
		minutes++
	}
	if rem := minutes % stepMinutes; rem != 0 {
		minutes += stepMinutes - rem
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, minutes, 0, 0, t.Location())
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
