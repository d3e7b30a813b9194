package sheets

import (
	"context"

	"thongke/internal/core"
	"thongke/internal/report"
)

// Ports for outbound adapters.
type (
	// DatasetReader loads the seven record collections the dashboard
	// reports on. Implementations return read-only snapshots.
	DatasetReader interface {
		ReadDataset(ctx context.Context) (core.Dataset, error)
	}

	// ReportWriter stores an exported summary table under a name and
	// returns a reference to where it was written.
	ReportWriter interface {
		WriteReport(ctx context.Context, name string, t report.Table) (ref string, err error)
	}
)
