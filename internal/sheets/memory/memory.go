package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"thongke/internal/core"
	"thongke/internal/report"
)

// Seed file names under the data directory, one JSON array per register.
const (
	HousesFile   = "houses.json"
	LandsFile    = "lands.json"
	GeneralsFile = "generals.json"
	MeritsFile   = "merits.json"
	MedalsFile   = "medals.json"
	PoliciesFile = "policies.json"
	SocialsFile  = "socials.json"
)

// SavedReport is a table kept by the store's ReportWriter.
type SavedReport struct {
	Name  string
	Table report.Table
}

type Store struct {
	mu      sync.Mutex
	data    core.Dataset
	reports []SavedReport
}

func New(ds core.Dataset) *Store {
	return &Store{data: ds}
}

// NewFromFiles seeds a store from the JSON files in base. Missing files
// leave their collection empty; unreadable ones are reported.
func NewFromFiles(base string) (*Store, error) {
	var ds core.Dataset
	files := []struct {
		name string
		dst  any
	}{
		{HousesFile, &ds.Houses},
		{LandsFile, &ds.Lands},
		{GeneralsFile, &ds.Generals},
		{MeritsFile, &ds.Merits},
		{MedalsFile, &ds.Medals},
		{PoliciesFile, &ds.Policies},
		{SocialsFile, &ds.Socials},
	}
	for _, f := range files {
		if err := readJSON(filepath.Join(base, f.name), f.dst); err != nil {
			return nil, err
		}
	}
	slog.Info("Memory store seeded", "data_directory", base, "records", ds.Len())
	return New(ds), nil
}

// ReadDataset returns a copy of the stored collections.
func (s *Store) ReadDataset(_ context.Context) (core.Dataset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return core.Dataset{
		Houses:   slices.Clone(s.data.Houses),
		Lands:    slices.Clone(s.data.Lands),
		Generals: slices.Clone(s.data.Generals),
		Merits:   slices.Clone(s.data.Merits),
		Medals:   slices.Clone(s.data.Medals),
		Policies: slices.Clone(s.data.Policies),
		Socials:  slices.Clone(s.data.Socials),
	}, nil
}

// WriteReport keeps the table and returns a synthetic reference.
func (s *Store) WriteReport(_ context.Context, name string, t report.Table) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, SavedReport{Name: name, Table: t})
	return fmt.Sprintf("mem:%d", len(s.reports)), nil
}

// Reports returns the tables written so far, oldest first.
func (s *Store) Reports() []SavedReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.reports)
}

func readJSON(path string, dst any) error {
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
