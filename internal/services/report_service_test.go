package services

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"thongke/internal/amqp"
	"thongke/internal/core"
	"thongke/internal/report"
	"thongke/internal/sheets/memory"
)

type countingReader struct {
	mu    sync.Mutex
	ds    core.Dataset
	err   error
	calls int
	block bool
}

func (r *countingReader) ReadDataset(ctx context.Context) (core.Dataset, error) {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	if r.block {
		<-ctx.Done()
		return core.Dataset{}, ctx.Err()
	}
	return r.ds, r.err
}

func (r *countingReader) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

type fakePublisher struct {
	msgs   []*amqp.ReportExportedMessage
	err    error
	closed bool
}

func (p *fakePublisher) PublishReportExported(_ context.Context, msg *amqp.ReportExportedMessage) error {
	p.msgs = append(p.msgs, msg)
	return p.err
}

func (p *fakePublisher) Close() error {
	p.closed = true
	return nil
}

type failingSink struct{}

func (failingSink) WriteReport(context.Context, string, report.Table) (string, error) {
	return "", errors.New("quota exceeded")
}

func at(s string) core.Timestamp {
	ts, err := core.ParseTimestamp(s)
	if err != nil {
		panic(err)
	}
	return ts
}

func testDataset() core.Dataset {
	return core.Dataset{
		Houses: []core.HouseRecord{
			{Meta: core.Meta{ID: "h1", Status: core.StatusActive, CreatedAt: at("2024-01-05T03:00:00Z")}},
			{Meta: core.Meta{ID: "h2", Status: core.StatusInactive, CreatedAt: at("2023-06-01T03:00:00Z")}},
		},
		Lands: []core.LandRecord{
			{Meta: core.Meta{ID: "l1", Status: core.StatusActive, CreatedAt: at("2024-01-06T03:00:00Z")}, Area: 1250.5},
		},
		Generals: []core.GeneralRecord{
			{Meta: core.Meta{ID: "g1", Status: core.StatusActive, CreatedAt: at("2024-01-07T03:00:00Z")}, Tier: core.TierCentral},
		},
		Merits: []core.MeritRecord{
			{Meta: core.Meta{ID: "m1", Status: core.StatusActive, CreatedAt: at("2024-01-08T03:00:00Z")}, Amount: core.Money{Dong: 1_500_000}},
		},
		Socials: []core.SocialRecord{
			{Meta: core.Meta{ID: "s1", Status: core.StatusActive, CreatedAt: at("2024-01-09T03:00:00Z")}, Amount: core.Money{Dong: 2_000_000}},
		},
	}
}

func fixedNow() time.Time { return time.Date(2024, 1, 10, 11, 0, 0, 0, time.UTC) }

func newTestService(r *countingReader, opts Options) *ReportService {
	if opts.Location == nil {
		opts.Location, _ = time.LoadLocation("Asia/Ho_Chi_Minh")
	}
	opts.Now = fixedNow
	if opts.CacheTTL == 0 {
		opts.CacheTTL = time.Minute
	}
	return NewReportService(r, opts)
}

func TestStatsCachesPerFilter(t *testing.T) {
	r := &countingReader{ds: testDataset()}
	s := newTestService(r, Options{})
	ctx := context.Background()

	all := core.Filter{}
	snap, err := s.Stats(ctx, all)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if snap.Stats.House.Total != 2 || snap.Stats.BenefitsTotal().Dong != 3_500_000 {
		t.Fatalf("unexpected stats: %+v", snap.Stats)
	}
	if !snap.GeneratedAt.Equal(fixedNow()) {
		t.Errorf("GeneratedAt = %v", snap.GeneratedAt)
	}

	if _, err := s.Stats(ctx, core.Filter{Status: core.StatusAll}); err != nil {
		t.Fatal(err)
	}
	if r.Calls() != 1 {
		t.Fatalf("empty and 'all' status should share a cache entry, got %d loads", r.Calls())
	}

	jan, err := s.ParseFilter("2024-01-01", "2024-01-31", "Active")
	if err != nil {
		t.Fatal(err)
	}
	snap, err = s.Stats(ctx, jan)
	if err != nil {
		t.Fatal(err)
	}
	if r.Calls() != 2 {
		t.Fatalf("a new filter should load the dataset, got %d loads", r.Calls())
	}
	if snap.Stats.House.Total != 1 || snap.Stats.House.Active != 1 {
		t.Errorf("January filter: %+v", snap.Stats.House)
	}

	s.Invalidate()
	if _, err := s.Stats(ctx, all); err != nil {
		t.Fatal(err)
	}
	if r.Calls() != 3 {
		t.Fatalf("Invalidate should force a reload, got %d loads", r.Calls())
	}
}

func TestStatsErrorsAreNotCached(t *testing.T) {
	r := &countingReader{err: errors.New("disk on fire")}
	s := newTestService(r, Options{})

	if _, err := s.Stats(context.Background(), core.Filter{}); err == nil || !strings.Contains(err.Error(), "disk on fire") {
		t.Fatalf("expected wrapped reader error, got %v", err)
	}
	r.err = nil
	r.ds = testDataset()
	if _, err := s.Stats(context.Background(), core.Filter{}); err != nil {
		t.Fatalf("second attempt: %v", err)
	}
}

func TestStatsDatasetTimeout(t *testing.T) {
	r := &countingReader{block: true}
	s := newTestService(r, Options{DatasetTimeout: 10 * time.Millisecond})

	_, err := s.Stats(context.Background(), core.Filter{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestExport(t *testing.T) {
	pub := &fakePublisher{}
	sink := memory.New(core.Dataset{})
	s := newTestService(&countingReader{ds: testDataset()}, Options{Publisher: pub, Sink: sink})

	f, _ := s.ParseFilter("2024-01-01", "2024-01-10", "")
	exp, err := s.Export(context.Background(), f, "http")
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	if exp.Filename != "Bao_cao_thong_ke_2024-01-10.csv" {
		t.Errorf("Filename = %q", exp.Filename)
	}
	if !bytes.HasPrefix(exp.CSV, []byte(report.ByteOrderMark)) {
		t.Error("CSV must start with a byte-order mark")
	}
	if got := strings.Count(string(exp.CSV), "\r\n"); got != 8 {
		t.Errorf("expected 8 CRLF-terminated lines, got %d", got)
	}
	if !strings.Contains(string(exp.CSV), "Bảo trợ xã hội,1,-,2.000.000 VNĐ") {
		t.Errorf("social row missing:\n%s", exp.CSV)
	}

	if len(pub.msgs) != 1 {
		t.Fatalf("expected one event, got %d", len(pub.msgs))
	}
	msg := pub.msgs[0]
	if msg.Filename != exp.Filename || msg.Source != "http" || len(msg.Rows) != 7 {
		t.Errorf("unexpected event: %+v", msg)
	}
	if msg.BenefitsTotal != 3_500_000 {
		t.Errorf("event benefits total = %d", msg.BenefitsTotal)
	}
	if msg.Filter != (amqp.FilterPayload{Start: "2024-01-01", End: "2024-01-10", Status: "all"}) {
		t.Errorf("event filter = %+v", msg.Filter)
	}

	if err := s.Drain(context.Background()); err != nil {
		t.Fatal(err)
	}
	saved := sink.Reports()
	want := "Bao_cao_thong_ke_2024-01-10 2024-01-01~2024-01-10 all"
	if len(saved) != 1 || saved[0].Name != want || len(saved[0].Table.Rows) != 7 {
		t.Errorf("sink received %+v", saved)
	}
}

func TestExportSurvivesIntegrationFailures(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	s := newTestService(&countingReader{ds: testDataset()}, Options{Publisher: pub, Sink: failingSink{}})

	exp, err := s.Export(context.Background(), core.Filter{}, "worker")
	if err != nil {
		t.Fatalf("integration failures must not fail the export: %v", err)
	}
	if len(exp.CSV) == 0 {
		t.Fatal("expected CSV body")
	}
}

func TestExportPropagatesLoadFailure(t *testing.T) {
	pub := &fakePublisher{}
	s := newTestService(&countingReader{err: errors.New("gone")}, Options{Publisher: pub})

	if _, err := s.Export(context.Background(), core.Filter{}, "http"); err == nil {
		t.Fatal("expected error")
	}
	if len(pub.msgs) != 0 {
		t.Error("no event should be published for a failed export")
	}
}

func TestClose(t *testing.T) {
	pub := &fakePublisher{}
	s := newTestService(&countingReader{}, Options{Publisher: pub})
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if !pub.closed {
		t.Error("publisher should be closed")
	}

	if err := NewReportService(&countingReader{}, Options{}).Close(); err != nil {
		t.Fatalf("Close without integrations: %v", err)
	}
}

func TestSheetName(t *testing.T) {
	fromJan, _ := core.NewFilter("2024-01-01", "", "Active", time.UTC)
	cases := []struct {
		name   string
		filter core.Filter
		want   string
	}{
		{"unfiltered", core.Filter{Status: core.StatusAll}, "Bao_cao_thong_ke_2024-01-10"},
		{"open end", fromJan, "Bao_cao_thong_ke_2024-01-10 2024-01-01~ Active"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			exp := Export{Snapshot: Snapshot{Filter: tc.filter}, Filename: "Bao_cao_thong_ke_2024-01-10.csv"}
			if got := SheetName(exp); got != tc.want {
				t.Errorf("SheetName = %q, want %q", got, tc.want)
			}
		})
	}
}

// blockingSink holds every write until release is closed.
type blockingSink struct {
	mu      sync.Mutex
	started chan struct{}
	release chan struct{}
	names   []string
}

func (b *blockingSink) WriteReport(ctx context.Context, name string, _ report.Table) (string, error) {
	b.started <- struct{}{}
	select {
	case <-b.release:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.names = append(b.names, name)
	return "ok", nil
}

func TestExportDoesNotWaitForSheetSink(t *testing.T) {
	sink := &blockingSink{started: make(chan struct{}, 4), release: make(chan struct{})}
	s := newTestService(&countingReader{ds: testDataset()}, Options{Sink: sink, SinkWorkers: 1})

	for i := 0; i < 3; i++ {
		if _, err := s.Export(context.Background(), core.Filter{}, "http"); err != nil {
			t.Fatalf("Export %d: %v", i, err)
		}
	}
	<-sink.started

	close(sink.release)
	if err := s.Drain(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(sink.names) != 1 {
		t.Errorf("expected one forwarded report while the sink was busy, got %d", len(sink.names))
	}
}

func TestDrainHonoursContext(t *testing.T) {
	sink := &blockingSink{started: make(chan struct{}, 1), release: make(chan struct{})}
	s := newTestService(&countingReader{ds: testDataset()}, Options{Sink: sink, SinkTimeout: time.Minute})
	if _, err := s.Export(context.Background(), core.Filter{}, "http"); err != nil {
		t.Fatal(err)
	}
	<-sink.started

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := s.Drain(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Drain = %v, want deadline exceeded", err)
	}
	close(sink.release)
	if err := s.Drain(context.Background()); err != nil {
		t.Fatal(err)
	}
}
