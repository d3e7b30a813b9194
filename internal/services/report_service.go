package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"thongke/internal/amqp"
	"thongke/internal/cache"
	"thongke/internal/core"
	"thongke/internal/report"
	"thongke/internal/sheets"
)

// EventPublisher announces exported reports. amqp.Client implements it.
type EventPublisher interface {
	PublishReportExported(ctx context.Context, msg *amqp.ReportExportedMessage) error
}

// Snapshot is the aggregate of one filter at one point in time.
type Snapshot struct {
	Filter      core.Filter
	Stats       core.Stats
	GeneratedAt time.Time
}

// Export is a generated CSV report.
type Export struct {
	Snapshot
	Filename string
	Table    report.Table
	CSV      []byte
}

type Options struct {
	CacheSize      int
	CacheTTL       time.Duration
	DatasetTimeout time.Duration
	Location       *time.Location
	Locale         string
	// Publisher and Sink are optional.
	Publisher EventPublisher
	Sink      sheets.ReportWriter
	// SinkWorkers bounds the sheet writes in flight; exports beyond it
	// are not forwarded.
	SinkWorkers int
	SinkTimeout time.Duration
	Now         func() time.Time
}

// ReportService loads the record collections, aggregates them per filter
// and produces the exported report. Results are cached per filter.
type ReportService struct {
	reader    sheets.DatasetReader
	publisher EventPublisher
	sink      sheets.ReportWriter
	cache     *cache.LRUCache[Snapshot]
	loads     singleflight.Group
	format    report.Formatter
	loc       *time.Location
	timeout   time.Duration
	now       func() time.Time

	sinkSlots   chan struct{}
	sinkTimeout time.Duration
	forwards    sync.WaitGroup
}

func NewReportService(reader sheets.DatasetReader, opts Options) *ReportService {
	if opts.CacheSize <= 0 {
		opts.CacheSize = 128
	}
	if opts.DatasetTimeout <= 0 {
		opts.DatasetTimeout = 10 * time.Second
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.SinkWorkers <= 0 {
		opts.SinkWorkers = 2
	}
	if opts.SinkTimeout <= 0 {
		opts.SinkTimeout = 30 * time.Second
	}
	return &ReportService{
		reader:    reader,
		publisher: opts.Publisher,
		sink:      opts.Sink,
		cache:     cache.NewLRUCache[Snapshot](opts.CacheSize, opts.CacheTTL),
		format:    report.NewFormatter(opts.Locale),
		loc:       opts.Location,
		timeout:   opts.DatasetTimeout,
		now:       opts.Now,

		sinkSlots:   make(chan struct{}, opts.SinkWorkers),
		sinkTimeout: opts.SinkTimeout,
	}
}

// Cache exposes the stats cache so it can be registered for cleanup.
func (s *ReportService) Cache() *cache.LRUCache[Snapshot] { return s.cache }

func (s *ReportService) Formatter() report.Formatter { return s.format }

func (s *ReportService) Location() *time.Location { return s.loc }

// ParseFilter builds a filter from query values, reading dates in the
// report location.
func (s *ReportService) ParseFilter(start, end, status string) (core.Filter, error) {
	return core.NewFilter(start, end, status, s.loc)
}

// Stats returns the aggregates for f, from cache when fresh. Concurrent
// misses for the same filter share one dataset load.
func (s *ReportService) Stats(ctx context.Context, f core.Filter) (Snapshot, error) {
	key := f.Key()
	if snap, ok := s.cache.Get(key); ok {
		return snap, nil
	}

	v, err, shared := s.loads.Do(key, func() (any, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()

		start := time.Now()
		ds, err := s.reader.ReadDataset(loadCtx)
		if err != nil {
			return Snapshot{}, fmt.Errorf("read dataset: %w", err)
		}
		snap := Snapshot{
			Filter:      f,
			Stats:       core.Aggregate(ds, f),
			GeneratedAt: s.now(),
		}
		s.cache.Set(key, snap)
		slog.DebugContext(ctx, "Stats aggregated",
			"filter", key,
			"records", ds.Len(),
			"matched", snap.Stats.Records(),
			"duration_ms", time.Since(start).Milliseconds())
		return snap, nil
	})
	if err != nil {
		return Snapshot{}, err
	}
	if shared {
		slog.DebugContext(ctx, "Stats load shared", "filter", key)
	}
	return v.(Snapshot), nil
}

// Export builds the CSV report for f, then announces it and forwards the
// table to the sheet sink. Failures of either integration are logged and
// never fail the export.
func (s *ReportService) Export(ctx context.Context, f core.Filter, source string) (Export, error) {
	snap, err := s.Stats(ctx, f)
	if err != nil {
		return Export{}, err
	}

	exp := Export{
		Snapshot: snap,
		Filename: report.Filename(s.now()),
		Table:    report.BuildTable(snap.Stats, s.format),
	}
	var buf bytes.Buffer
	if err := report.WriteCSV(&buf, exp.Table); err != nil {
		return Export{}, fmt.Errorf("encode report: %w", err)
	}
	exp.CSV = buf.Bytes()

	s.publish(ctx, exp, source)
	s.forward(ctx, exp)
	return exp, nil
}

func (s *ReportService) publish(ctx context.Context, exp Export, source string) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishReportExported(ctx, NewExportedMessage(exp, source)); err != nil {
		slog.ErrorContext(ctx, "Failed to publish report event",
			"filename", exp.Filename, "error", err)
	}
}

// forward writes the table to the sheet sink in the background.
func (s *ReportService) forward(ctx context.Context, exp Export) {
	if s.sink == nil {
		return
	}
	name := SheetName(exp)
	select {
	case s.sinkSlots <- struct{}{}:
	default:
		slog.WarnContext(ctx, "Sheet sink busy, report not forwarded", "sheet", name)
		return
	}

	s.forwards.Add(1)
	go func() {
		defer s.forwards.Done()
		defer func() { <-s.sinkSlots }()

		wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.sinkTimeout)
		defer cancel()
		ref, err := s.sink.WriteReport(wctx, name, exp.Table)
		if err != nil {
			slog.ErrorContext(wctx, "Failed to write report to sheet",
				"sheet", name, "error", err)
			return
		}
		slog.InfoContext(wctx, "Report written to sheet", "sheet", name, "sheets_ref", ref)
	}()
}

// Drain waits for background sheet writes to finish or ctx to end.
func (s *ReportService) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.forwards.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SheetName names the sheet tab of an export: the file name for the
// unfiltered report, followed by the filter bounds and status otherwise.
func SheetName(exp Export) string {
	name := strings.TrimSuffix(exp.Filename, ".csv")
	if exp.Filter.IsZero() {
		return name
	}
	p := filterPayload(exp.Filter)
	parts := []string{name}
	for _, v := range []string{p.Start, p.End} {
		if v == "" {
			v = "_"
		}
		parts = append(parts, v)
	}
	return strings.Join(append(parts, p.Status), "_")
}

// NewExportedMessage describes exp for the report.exported event.
func NewExportedMessage(exp Export, source string) *amqp.ReportExportedMessage {
	msg := &amqp.ReportExportedMessage{
		Filename:      exp.Filename,
		Source:        source,
		Filter:        filterPayload(exp.Filter),
		BenefitsTotal: exp.Stats.BenefitsTotal().Dong,
		GeneratedAt:   exp.GeneratedAt.UTC(),
	}
	for _, r := range exp.Table.Rows {
		msg.Rows = append(msg.Rows, amqp.RowPayload{
			Category: string(r.Category),
			Count:    r.Count,
			Detail:   r.Detail,
			Total:    r.Total,
		})
	}
	return msg
}

func filterPayload(f core.Filter) amqp.FilterPayload {
	p := amqp.FilterPayload{Status: string(f.Status)}
	if p.Status == "" {
		p.Status = string(core.StatusAll)
	}
	if !f.Start.IsZero() {
		p.Start = f.Start.Format("2006-01-02")
	}
	if !f.End.IsZero() {
		p.End = f.End.Format("2006-01-02")
	}
	return p
}

// Invalidate drops every cached aggregate, e.g. after the records changed.
func (s *ReportService) Invalidate() {
	s.cache.Purge()
}

// Close releases the publisher and the record source when they hold
// connections.
func (s *ReportService) Close() error {
	s.forwards.Wait()
	var errs []error
	if c, ok := s.publisher.(io.Closer); ok && c != nil {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}
	if c, ok := s.reader.(io.Closer); ok && c != nil {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("record source: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close report service: %v", errs)
	}
	return nil
}
