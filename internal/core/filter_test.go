package core

import (
	"errors"
	"testing"
	"time"
)

func day(y int, m time.Month, d int) Timestamp {
	return At(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}

func mustFilter(t *testing.T, start, end, status string) Filter {
	t.Helper()
	f, err := NewFilter(start, end, status, time.UTC)
	if err != nil {
		t.Fatalf("NewFilter(%q, %q, %q): %v", start, end, status, err)
	}
	return f
}

func TestFilterDateRangeExamples(t *testing.T) {
	records := []HouseRecord{{Meta: Meta{Status: StatusActive, CreatedAt: day(2024, 1, 5)}}}

	got := Apply(records, mustFilter(t, "2024-01-01", "2024-01-10", "all"))
	if len(got) != 1 {
		t.Fatalf("expected record inside range to be included, got %d", len(got))
	}

	got = Apply(records, mustFilter(t, "2024-01-01", "2024-01-04", "all"))
	if len(got) != 0 {
		t.Fatalf("expected record after end date to be excluded, got %d", len(got))
	}
}

func TestFilterEndDateCoversWholeDay(t *testing.T) {
	f := mustFilter(t, "", "2024-01-10", "")
	cases := []struct {
		at   time.Time
		want bool
	}{
		{time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), true},
		{time.Date(2024, 1, 10, 12, 30, 0, 0, time.UTC), true},
		{time.Date(2024, 1, 10, 23, 59, 59, int(999*time.Millisecond), time.UTC), true},
		{time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC), false},
	}
	for _, tc := range cases {
		r := HouseRecord{Meta: Meta{Status: StatusActive, CreatedAt: At(tc.at)}}
		if got := f.Match(r); got != tc.want {
			t.Errorf("Match(%s) = %v, want %v", tc.at, got, tc.want)
		}
	}
}

func TestFilterStartIsInclusive(t *testing.T) {
	f := mustFilter(t, "2024-01-05", "", "")
	if !f.Match(HouseRecord{Meta: Meta{CreatedAt: day(2024, 1, 5)}}) {
		t.Fatal("record at start midnight should match")
	}
	if f.Match(HouseRecord{Meta: Meta{CreatedAt: At(time.Date(2024, 1, 4, 23, 59, 59, 0, time.UTC))}}) {
		t.Fatal("record before start should not match")
	}
}

func TestFilterUsesUpdateTimeWhenPresent(t *testing.T) {
	f := mustFilter(t, "2024-02-01", "2024-02-29", "")

	updated := LandRecord{Meta: Meta{CreatedAt: day(2023, 6, 1), UpdatedAt: day(2024, 2, 10)}}
	if !f.Match(updated) {
		t.Fatal("record updated inside range should match even if created before it")
	}

	staleUpdate := LandRecord{Meta: Meta{CreatedAt: day(2024, 2, 10), UpdatedAt: day(2024, 3, 2)}}
	if f.Match(staleUpdate) {
		t.Fatal("update time must take precedence over creation time")
	}

	neverUpdated := LandRecord{Meta: Meta{CreatedAt: day(2024, 2, 10)}}
	if !f.Match(neverUpdated) {
		t.Fatal("record without update time should filter on creation time")
	}
}

func TestFilterStatus(t *testing.T) {
	active := GeneralRecord{Meta: Meta{Status: StatusActive, CreatedAt: day(2024, 1, 1)}}
	inactive := GeneralRecord{Meta: Meta{Status: StatusInactive, CreatedAt: day(2024, 1, 1)}}
	unknown := GeneralRecord{Meta: Meta{Status: "", CreatedAt: day(2024, 1, 1)}}

	all := mustFilter(t, "", "", "all")
	for _, r := range []GeneralRecord{active, inactive, unknown} {
		if !all.Match(r) {
			t.Fatalf("status all must never exclude, rejected %q", r.Status)
		}
	}

	onlyActive := mustFilter(t, "", "", "Active")
	if !onlyActive.Match(active) || onlyActive.Match(inactive) || onlyActive.Match(unknown) {
		t.Fatal("Active selector should keep only active records")
	}

	onlyInactive := mustFilter(t, "", "", "Inactive")
	if onlyInactive.Match(active) || !onlyInactive.Match(inactive) {
		t.Fatal("Inactive selector should keep only inactive records")
	}
}

func TestNewFilterErrors(t *testing.T) {
	cases := []struct {
		start, end, status string
		want               error
	}{
		{"2024-13-01", "", "", ErrInvalidDate},
		{"", "10/01/2024", "", ErrInvalidDate},
		{"", "", "active", ErrInvalidStatus},
		{"", "", "deleted", ErrInvalidStatus},
	}
	for _, tc := range cases {
		_, err := NewFilter(tc.start, tc.end, tc.status, time.UTC)
		if !errors.Is(err, tc.want) {
			t.Errorf("NewFilter(%q, %q, %q) err = %v, want %v", tc.start, tc.end, tc.status, err, tc.want)
		}
	}
}

func TestNewFilterUsesLocation(t *testing.T) {
	loc := time.FixedZone("ICT", 7*3600)
	f, err := NewFilter("2024-01-05", "2024-01-05", "", loc)
	if err != nil {
		t.Fatalf("NewFilter: %v", err)
	}
	// 2024-01-04 18:00 UTC is 2024-01-05 01:00 in ICT.
	r := HouseRecord{Meta: Meta{CreatedAt: At(time.Date(2024, 1, 4, 18, 0, 0, 0, time.UTC))}}
	if !f.Match(r) {
		t.Fatal("bounds should be interpreted in the configured location")
	}
}

func TestFilterIsZeroAndKey(t *testing.T) {
	if !(Filter{}).IsZero() || !mustFilter(t, "", "", "all").IsZero() {
		t.Fatal("empty filter should be zero")
	}
	f := mustFilter(t, "2024-01-01", "", "")
	if f.IsZero() {
		t.Fatal("filter with start date is not zero")
	}
	if f.Key() == (Filter{}).Key() {
		t.Fatal("different filters must have different keys")
	}
	if (Filter{}).Key() != (Filter{Status: StatusAll}).Key() {
		t.Fatal("empty status and all must share a key")
	}
}

func TestFilterReadsZonelessRecordsOnReportCalendar(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*3600)
	f, err := NewFilter("2024-01-05", "2024-01-05", "", loc)
	if err != nil {
		t.Fatal(err)
	}

	dateOnly, _ := ParseTimestamp("2024-01-05")
	late, _ := ParseTimestamp("2024-01-05 23:30:00")
	zoned, _ := ParseTimestamp("2024-01-05T00:00:00Z")

	cases := []struct {
		name string
		at   Timestamp
		want bool
	}{
		{"date only", dateOnly, true},
		{"late local time", late, true},
		{"UTC midnight is the previous local day", zoned, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := HouseRecord{Meta: Meta{Status: StatusActive, CreatedAt: tc.at}}
			if got := f.Match(r); got != tc.want {
				t.Errorf("Match = %v, want %v", got, tc.want)
			}
		})
	}
}
