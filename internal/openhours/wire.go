package openhours

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// FlexInt decodes a JSON number or a numeric string.
type FlexInt int

func (f *FlexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return fmt.Errorf("invalid integer %q", s)
		}
		*f = FlexInt(v)
		return nil
	}
	var v int
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = FlexInt(v)
	return nil
}

// WireRecord is the REST representation of a Record. is_closed travels as
// "0"/"1" and times as HH:MM:SS.
type WireRecord struct {
	DayID     FlexInt `json:"day_id"`
	IsClosed  string  `json:"is_closed"`
	StartTime string  `json:"start_time"`
	EndTime   string  `json:"end_time"`
}

func (r Record) ToWire() WireRecord {
	closed := "0"
	if r.IsClosed {
		closed = "1"
	}
	return WireRecord{
		DayID:     FlexInt(r.DayID),
		IsClosed:  closed,
		StartTime: r.Start.WireString(),
		EndTime:   r.End.WireString(),
	}
}

// FromWire converts a wire record. Closed records may carry empty times.
func FromWire(w WireRecord) (Record, error) {
	rec := Record{DayID: int(w.DayID)}

	switch strings.ToLower(strings.TrimSpace(w.IsClosed)) {
	case "", "0", "false":
		rec.IsClosed = false
	case "1", "true":
		rec.IsClosed = true
	default:
		return Record{}, fmt.Errorf("is_closed must be \"0\" or \"1\"")
	}

	if rec.IsClosed && strings.TrimSpace(w.StartTime) == "" && strings.TrimSpace(w.EndTime) == "" {
		return rec, rec.Validate()
	}

	start, err := ParseTimeOfDay(w.StartTime)
	if err != nil {
		return Record{}, fmt.Errorf("start_time: %w", err)
	}
	end, err := ParseTimeOfDay(w.EndTime)
	if err != nil {
		return Record{}, fmt.Errorf("end_time: %w", err)
	}
	rec.Start = start
	rec.End = end
	return rec, rec.Validate()
}

func (w Week) ToWire() []WireRecord {
	out := make([]WireRecord, 0, len(w))
	for _, r := range w.Sorted() {
		out = append(out, r.ToWire())
	}
	return out
}

func WeekFromWire(records []WireRecord) (Week, error) {
	week := make(Week, 0, len(records))
	for i, w := range records {
		rec, err := FromWire(w)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		week = append(week, rec)
	}
	return week, nil
}
