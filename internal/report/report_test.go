package report

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"thongke/internal/core"
)

func sampleStats() core.Stats {
	return core.Stats{
		House:   core.HouseStats{Total: 12, Active: 9},
		Land:    core.LandStats{Total: 3, Area: 1250.5},
		General: core.GeneralStats{Total: 4, Central: 1},
		Merit:   core.BudgetStats{Total: 2, Budget: core.Money{Dong: 3_500_000}},
		Medal:   core.BudgetStats{Total: 1, Budget: core.Money{Dong: 300_000}},
		Policy:  core.BudgetStats{Total: 0},
		Social:  core.BudgetStats{Total: 5, Budget: core.Money{Dong: 900}},
	}
}

func TestFormatterGrouping(t *testing.T) {
	vi := NewFormatter("vi")
	if got := vi.Int(1234567); got != "1.234.567" {
		t.Errorf("vi Int = %q", got)
	}
	en := NewFormatter("en")
	if got := en.Money(core.Money{Dong: 1234567}); got != "1,234,567" {
		t.Errorf("en Money = %q", got)
	}
	if got := en.Area(1250.5); got != "1,250.5" {
		t.Errorf("en Area = %q", got)
	}
	if got := en.Int(42); got != "42" {
		t.Errorf("en Int = %q", got)
	}
}

func TestNewFormatterFallsBack(t *testing.T) {
	for _, loc := range []string{"", "not a tag!"} {
		if got := NewFormatter(loc).Int(1000); got != NewFormatter(DefaultLocale).Int(1000) {
			t.Errorf("locale %q: got %q", loc, got)
		}
	}
	var zero Formatter
	if got := zero.Int(7); got != "7" {
		t.Errorf("zero Formatter Int = %q", got)
	}
}

func TestBuildTable(t *testing.T) {
	tbl := BuildTable(sampleStats(), NewFormatter("en"))
	if len(tbl.Rows) != len(core.Categories) {
		t.Fatalf("expected %d rows, got %d", len(core.Categories), len(tbl.Rows))
	}
	for i, c := range core.Categories {
		if tbl.Rows[i].Category != c {
			t.Errorf("row %d category = %s, want %s", i, tbl.Rows[i].Category, c)
		}
		if tbl.Rows[i].Count != sampleStats().Count(c) {
			t.Errorf("row %d count = %d", i, tbl.Rows[i].Count)
		}
	}

	want := []Row{
		{core.CategoryHouse, "Số nhà", 12, "9 đang dùng", "-"},
		{core.CategoryLand, "Đất công", 3, "-", "1,250.5 m2"},
		{core.CategoryGeneral, "Tướng lĩnh", 4, "1 diện TW", "-"},
		{core.CategoryMerit, "Người có công", 2, "-", "3,500,000 VNĐ"},
		{core.CategoryMedal, "Huân chương KC", 1, "-", "300,000 VNĐ"},
		{core.CategoryPolicy, "Đối tượng chính sách", 0, "-", "0 VNĐ"},
		{core.CategorySocial, "Bảo trợ xã hội", 5, "-", "900 VNĐ"},
	}
	for i := range want {
		if tbl.Rows[i] != want[i] {
			t.Errorf("row %d = %+v, want %+v", i, tbl.Rows[i], want[i])
		}
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, BuildTable(sampleStats(), NewFormatter("en"))); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	out := buf.String()

	if !strings.HasPrefix(out, ByteOrderMark) {
		t.Fatal("csv must start with a byte-order mark")
	}
	body := strings.TrimPrefix(out, ByteOrderMark)
	if !strings.HasSuffix(body, "\r\n") {
		t.Fatal("csv must end with CRLF")
	}
	lines := strings.Split(strings.TrimSuffix(body, "\r\n"), "\r\n")
	if len(lines) != 8 {
		t.Fatalf("expected 8 lines, got %d: %q", len(lines), lines)
	}
	if lines[0] != "PHÂN HỆ,TỔNG SỐ HỒ SƠ,TRẠNG THÁI/CHI TIẾT,KINH PHÍ/DIỆN TÍCH" {
		t.Errorf("header = %q", lines[0])
	}
	if lines[1] != "Số nhà,12,9 đang dùng,-" {
		t.Errorf("house line = %q", lines[1])
	}
	if lines[2] != `Đất công,3,-,"1,250.5 m2"` {
		t.Errorf("grouped values containing commas must be quoted, got %q", lines[2])
	}

	records, err := csv.NewReader(strings.NewReader(body)).ReadAll()
	if err != nil {
		t.Fatalf("csv does not parse back: %v", err)
	}
	if records[4][3] != "3,500,000 VNĐ" {
		t.Errorf("merit total = %q", records[4][3])
	}
}

func TestFilename(t *testing.T) {
	loc := time.FixedZone("ICT", 7*3600)
	now := time.Date(2024, 3, 1, 2, 0, 0, 0, loc)
	if got := Filename(now); got != "Bao_cao_thong_ke_2024-02-29.csv" {
		t.Fatalf("Filename = %q", got)
	}
}
