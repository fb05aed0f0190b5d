package slots

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // shop zones resolve without system zoneinfo
)

const maxOffsetMinutes = 14 * 60

// ZoneForOffset builds a fixed zone from a browser-style offset: minutes to add
// to local time to get UTC, so UTC+02:00 arrives as -120.
func ZoneForOffset(offsetMinutes int) (*time.Location, error) {
	if offsetMinutes < -maxOffsetMinutes || offsetMinutes > maxOffsetMinutes {
		return nil, fmt.Errorf("timezone_offset must be between %d and %d", -maxOffsetMinutes, maxOffsetMinutes)
	}
	seconds := -offsetMinutes * 60
	sign := "+"
	abs := -offsetMinutes
	if abs < 0 {
		sign = "-"
		abs = -abs
	}
	name := fmt.Sprintf("UTC%s%02d:%02d", sign, abs/60, abs%60)
	return time.FixedZone(name, seconds), nil
}

// ShopLocation loads a shop's IANA zone. Unknown or empty names fall back to
// UTC.
func ShopLocation(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// CombineVisit merges a visit date and a visit time into one instant in the
// client's zone. Either part may be a plain value ("2026-10-16", "14:30") or a
// full ISO-8601 timestamp, in which case it is first converted into the client
// zone and only the relevant component is kept.
func CombineVisit(visitDate, visitTime string, offsetMinutes int) (time.Time, error) {
	loc, err := ZoneForOffset(offsetMinutes)
	if err != nil {
		return time.Time{}, err
	}

	date, err := parseVisitDate(visitDate, loc)
	if err != nil {
		return time.Time{}, err
	}
	hour, minute, err := parseVisitTime(visitTime, loc)
	if err != nil {
		return time.Time{}, err
	}

	return time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, loc), nil
}

func parseVisitDate(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("visit_date is required")
	}
	if parsed, err := time.ParseInLocation("2006-01-02", raw, loc); err == nil {
		return parsed, nil
	}
	if parsed, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return parsed.In(loc), nil
	}
	return time.Time{}, fmt.Errorf("visit_date must be an ISO-8601 date")
}

func parseVisitTime(raw string, loc *time.Location) (int, int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, 0, fmt.Errorf("visit_time is required")
	}
	for _, layout := range []string{"15:04", "15:04:05"} {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed.Hour(), parsed.Minute(), nil
		}
	}
	if parsed, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		local := parsed.In(loc)
		return local.Hour(), local.Minute(), nil
	}
	return 0, 0, fmt.Errorf("visit_time must be an ISO-8601 time")
}
