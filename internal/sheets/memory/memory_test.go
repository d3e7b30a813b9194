package memory

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"thongke/internal/core"
	"thongke/internal/report"
)

func TestNewFromFilesSeedsCollections(t *testing.T) {
	dir := t.TempDir()
	mustWrite := func(name, content string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	mustWrite(HousesFile, `[{"id":"h1","Status":"Active","CreatedAt":"2024-01-05"},{"id":"h2","Status":"Inactive","CreatedAt":"2024-01-06"}]`)
	mustWrite(LandsFile, `[{"id":"l1","Status":"Active","CreatedAt":"2024-01-05","Dientich":250}]`)
	mustWrite(MeritsFile, `[{"id":"m1","Status":"Active","CreatedAt":"2024-01-05","SoTien":"1200000"}]`)

	s, err := NewFromFiles(dir)
	if err != nil {
		t.Fatalf("NewFromFiles: %v", err)
	}
	ds, err := s.ReadDataset(context.Background())
	if err != nil {
		t.Fatalf("ReadDataset: %v", err)
	}
	if len(ds.Houses) != 2 || len(ds.Lands) != 1 || len(ds.Merits) != 1 {
		t.Fatalf("unexpected dataset sizes: %+v", ds)
	}
	if len(ds.Generals) != 0 || len(ds.Socials) != 0 {
		t.Fatal("missing seed files should leave collections empty")
	}
	if ds.Lands[0].Area != 250 || ds.Merits[0].Amount.Dong != 1_200_000 {
		t.Fatalf("numeric fields not decoded: %+v %+v", ds.Lands[0], ds.Merits[0])
	}
}

func TestNewFromFilesRejectsBrokenJSON(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, PoliciesFile), []byte(`{not json`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFromFiles(dir); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestReadDatasetReturnsCopy(t *testing.T) {
	s := New(core.Dataset{Houses: []core.HouseRecord{{Meta: core.Meta{ID: "h1", Status: core.StatusActive}}}})
	ds, _ := s.ReadDataset(context.Background())
	ds.Houses[0].Status = core.StatusInactive

	again, _ := s.ReadDataset(context.Background())
	if again.Houses[0].Status != core.StatusActive {
		t.Fatal("callers must not be able to mutate the store")
	}
}

func TestWriteReport(t *testing.T) {
	s := New(core.Dataset{})
	ref, err := s.WriteReport(context.Background(), "Bao_cao_thong_ke_2024-01-10.csv", report.Table{})
	if err != nil || ref != "mem:1" {
		t.Fatalf("unexpected write: ref=%q err=%v", ref, err)
	}
	if got := s.Reports(); len(got) != 1 || got[0].Name != "Bao_cao_thong_ke_2024-01-10.csv" {
		t.Fatalf("unexpected reports: %+v", got)
	}
}

func TestNewFromFilesKeepsRecordsWithUnreadableDates(t *testing.T) {
	dir := t.TempDir()
	raw := `[{"id":"h1","Status":"Active","CreatedAt":"2024-01-05"},` +
		`{"id":"h2","Status":"Active","CreatedAt":"05/01/2024"},` +
		`{"id":"h3","Status":"Inactive","CreatedAt":1704412800000}]`
	if err := os.WriteFile(filepath.Join(dir, HousesFile), []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := NewFromFiles(dir)
	if err != nil {
		t.Fatalf("NewFromFiles: %v", err)
	}
	ds, _ := s.ReadDataset(context.Background())
	if len(ds.Houses) != 3 {
		t.Fatalf("expected 3 houses, got %d", len(ds.Houses))
	}
	if !ds.Houses[1].CreatedAt.IsZero() {
		t.Errorf("unreadable date should decode to zero, got %v", ds.Houses[1].CreatedAt)
	}
	if ds.Houses[2].CreatedAt.IsZero() {
		t.Error("epoch milliseconds should decode")
	}
}
