package core

import (
	"strings"
	"time"
)

// StatusAll disables status filtering.
const StatusAll StatusFilter = "all"

const dateLayout = "2006-01-02"

// StatusFilter selects records by status: all, Active or Inactive.
type StatusFilter string

// ParseStatusFilter accepts "all", "Active" or "Inactive"; empty means all.
func ParseStatusFilter(s string) (StatusFilter, error) {
	switch strings.TrimSpace(s) {
	case "", string(StatusAll):
		return StatusAll, nil
	case string(StatusActive):
		return StatusFilter(StatusActive), nil
	case string(StatusInactive):
		return StatusFilter(StatusInactive), nil
	default:
		return "", ErrInvalidStatus
	}
}

// Allows reports whether a record with status st passes the selector.
func (f StatusFilter) Allows(st Status) bool {
	return f == "" || f == StatusAll || Status(f) == st
}

// Filter restricts records to an effective-date window and a status.
// Zero bounds are unconstrained. End is the last instant of the end day.
// Zone-less record times are read in Location.
type Filter struct {
	Start    time.Time
	End      time.Time
	Status   StatusFilter
	Location *time.Location
}

// NewFilter builds a Filter from calendar dates (YYYY-MM-DD, may be empty)
// interpreted in loc. The end date covers the whole day through 23:59:59.999.
func NewFilter(start, end, status string, loc *time.Location) (Filter, error) {
	if loc == nil {
		loc = time.Local
	}
	st, err := ParseStatusFilter(status)
	if err != nil {
		return Filter{}, err
	}
	f := Filter{Status: st, Location: loc}

	if s := strings.TrimSpace(start); s != "" {
		d, err := time.ParseInLocation(dateLayout, s, loc)
		if err != nil {
			return Filter{}, ErrInvalidDate
		}
		f.Start = d
	}
	if s := strings.TrimSpace(end); s != "" {
		d, err := time.ParseInLocation(dateLayout, s, loc)
		if err != nil {
			return Filter{}, ErrInvalidDate
		}
		f.End = EndOfDay(d)
	}
	return f, nil
}

// EndOfDay returns 23:59:59.999 of t's calendar day in t's location.
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), t.Location())
}

// Match reports whether r passes the filter.
func (f Filter) Match(r Record) bool {
	if !f.Status.Allows(r.RecordStatus()) {
		return false
	}
	at := r.EffectiveDate().Resolve(f.Location)
	if !f.Start.IsZero() && at.Before(f.Start) {
		return false
	}
	if !f.End.IsZero() && at.After(f.End) {
		return false
	}
	return true
}

// IsZero reports whether the filter lets every record through.
func (f Filter) IsZero() bool {
	return f.Start.IsZero() && f.End.IsZero() && (f.Status == "" || f.Status == StatusAll)
}

// Key identifies the filter for caching.
func (f Filter) Key() string {
	var b strings.Builder
	if !f.Start.IsZero() {
		b.WriteString(f.Start.UTC().Format(time.RFC3339Nano))
	}
	b.WriteByte('|')
	if !f.End.IsZero() {
		b.WriteString(f.End.UTC().Format(time.RFC3339Nano))
	}
	b.WriteByte('|')
	if f.Status == "" {
		b.WriteString(string(StatusAll))
	} else {
		b.WriteString(string(f.Status))
	}
	return b.String()
}

// Apply returns the records of items that pass f, in their original order.
func Apply[T Record](items []T, f Filter) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if f.Match(it) {
			out = append(out, it)
		}
	}
	return out
}
