package core

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"
)

// Layouts accepted for record timestamps, most precise first. Only the
// first carries a zone; the others are wall-clock times on the report
// calendar.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

const floatingLayout = "2006-01-02T15:04:05.999999999"

// ParseTimestamp parses s using the register layouts. An empty string
// yields the zero Timestamp.
func ParseTimestamp(s string) (Timestamp, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Timestamp{}, nil
	}
	for i, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Timestamp{Time: t, floating: i > 0}, nil
		}
	}
	return Timestamp{}, ErrInvalidDate
}

// FormatTimestamp is the inverse of ParseTimestamp. Zone-less times stay
// zone-less.
func FormatTimestamp(t Timestamp) string {
	switch {
	case t.IsZero():
		return ""
	case t.floating:
		return t.Time.Format(floatingLayout)
	default:
		return t.UTC().Format(time.RFC3339Nano)
	}
}

// UnmarshalJSON accepts a timestamp string or a number of Unix
// milliseconds. Anything unreadable decodes to the zero Timestamp.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	*t = Timestamp{}
	data = bytes.TrimSpace(data)
	if isNull(data) {
		return nil
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil
	}
	switch x := v.(type) {
	case float64:
		if ms := finite(x); ms != 0 {
			*t = Timestamp{Time: time.UnixMilli(int64(ms)).UTC()}
		}
	case string:
		ts, err := ParseTimestamp(x)
		if err != nil {
			slog.Debug("Unreadable record timestamp", "value", x)
			return nil
		}
		*t = ts
	default:
		slog.Debug("Unreadable record timestamp", "value", string(data))
	}
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(FormatTimestamp(t))
}

// Amounts and areas come from free-form registers: anything that is not
// a readable number counts as zero.

func (m *Money) UnmarshalJSON(data []byte) error {
	*m = NewMoney(lenientNumber(data))
	return nil
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatInt(m.Dong, 10)), nil
}

func (a *SquareMeters) UnmarshalJSON(data []byte) error {
	*a = SquareMeters(lenientNumber(data))
	return nil
}

func lenientNumber(data []byte) float64 {
	data = bytes.TrimSpace(data)
	if isNull(data) {
		return 0
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return 0
	}
	switch n := v.(type) {
	case float64:
		return finite(n)
	case string:
		return ParseNumber(n)
	default:
		return 0
	}
}

// ParseNumber reads a decimal number, returning 0 when s is empty or
// not a number.
func ParseNumber(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return finite(f)
}

func finite(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func isNull(data []byte) bool {
	return len(data) == 0 || string(data) == "null"
}
