package worker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"thongke/internal/core"
	"thongke/internal/services"
)

// Source tags events published by the scheduled job.
const Source = "worker"

// Exporter produces a report for a filter. services.ReportService
// implements it.
type Exporter interface {
	Export(ctx context.Context, f core.Filter, source string) (services.Export, error)
}

type Options struct {
	Schedule string
	Dir      string
	Location *time.Location
	Timeout  time.Duration
}

// ReportWorker writes the unfiltered report to Dir on a cron schedule.
type ReportWorker struct {
	exporter Exporter
	opts     Options
	cron     *cron.Cron

	mu      sync.Mutex
	lastRun time.Time
	lastErr error
}

func NewReportWorker(exporter Exporter, opts Options) (*ReportWorker, error) {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 2 * time.Minute
	}
	if opts.Dir == "" {
		return nil, fmt.Errorf("export directory is required")
	}

	logger := cronLogger{}
	w := &ReportWorker{
		exporter: exporter,
		opts:     opts,
		cron: cron.New(
			cron.WithLocation(opts.Location),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
	}
	if _, err := w.cron.AddFunc(opts.Schedule, w.runScheduled); err != nil {
		return nil, fmt.Errorf("schedule report %q: %w", opts.Schedule, err)
	}
	return w, nil
}

// Start runs the schedule in the background.
func (w *ReportWorker) Start() {
	slog.Info("Starting report scheduler",
		"component", "worker",
		"schedule", w.opts.Schedule,
		"timezone", w.opts.Location.String(),
		"export_dir", w.opts.Dir)
	w.cron.Start()
}

// Stop halts the schedule and waits for a running job until ctx is done.
func (w *ReportWorker) Stop(ctx context.Context) error {
	done := w.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Next returns the next scheduled run.
func (w *ReportWorker) Next() time.Time {
	entries := w.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// LastRun returns when the job last finished and its error.
func (w *ReportWorker) LastRun() (time.Time, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastRun, w.lastErr
}

func (w *ReportWorker) runScheduled() {
	ctx, cancel := context.WithTimeout(context.Background(), w.opts.Timeout)
	defer cancel()

	if _, err := w.RunOnce(ctx); err != nil {
		slog.ErrorContext(ctx, "Scheduled report failed", "component", "worker", "error", err)
	}
}

// RunOnce exports the unfiltered report and writes it to the export
// directory, returning the file path.
func (w *ReportWorker) RunOnce(ctx context.Context) (string, error) {
	path, err := w.run(ctx)

	w.mu.Lock()
	w.lastRun, w.lastErr = time.Now(), err
	w.mu.Unlock()
	return path, err
}

func (w *ReportWorker) run(ctx context.Context) (string, error) {
	exp, err := w.exporter.Export(ctx, core.Filter{Status: core.StatusAll}, Source)
	if err != nil {
		return "", fmt.Errorf("export report: %w", err)
	}
	if err := os.MkdirAll(w.opts.Dir, 0755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}

	path := filepath.Join(w.opts.Dir, exp.Filename)
	if err := writeFileAtomic(path, exp.CSV); err != nil {
		return "", err
	}
	slog.InfoContext(ctx, "Scheduled report written",
		"component", "worker",
		"path", path,
		"records", exp.Stats.Records(),
		"benefits_total", exp.Stats.BenefitsTotal().Dong)
	return path, nil
}

// writeFileAtomic replaces path so readers never see a partial report.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".report-*.csv")
	if err != nil {
		return fmt.Errorf("create temp report: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close report: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename report: %w", err)
	}
	return nil
}

// cronLogger routes cron's own messages to slog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	slog.Debug("cron: "+msg, append([]any{"component", "worker"}, keysAndValues...)...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	slog.Error("cron: "+msg, append([]any{"component", "worker", "error", err}, keysAndValues...)...)
}
