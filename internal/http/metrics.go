package http

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"thongke/internal/cache"
	"thongke/internal/services"
)

// cacheReporter is implemented by services.ReportService.
type cacheReporter interface {
	Cache() *cache.LRUCache[services.Snapshot]
}

// metricsHandler serves the trace, rate-limit, detector and stats cache
// counters. Values are read from their owners at scrape time.
func (s *Server) metricsHandler() http.Handler {
	counter := func(name, help string, value func() int64) prometheus.Collector {
		return prometheus.NewCounterFunc(prometheus.CounterOpts{Name: name, Help: help},
			func() float64 { return float64(value()) })
	}
	gauge := func(name, help string, value func() int64) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{Name: name, Help: help},
			func() float64 { return float64(value()) })
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		counter("http_requests_total", "Total number of HTTP requests",
			func() int64 { return s.tracer.GetMetrics().TotalRequests }),
		counter("http_server_errors_total", "Responses with a 5xx status",
			func() int64 { return s.tracer.GetMetrics().ServerErrors }),
		gauge("http_request_duration_ms_avg", "Average request duration in milliseconds",
			func() int64 { return s.tracer.GetMetrics().AverageMs }),
		counter("export_rate_limited_total", "Export requests rejected by the rate limiter",
			func() int64 { return s.limiter.GetMetrics().Rejections }),
		gauge("export_rate_limit_clients", "Clients tracked by the rate limiter",
			func() int64 { return s.limiter.GetMetrics().ClientCount }),
		counter("suspicious_requests_total", "Requests rejected as suspicious",
			s.detector.SuspiciousCount),
	)
	if cr, ok := s.reports.(cacheReporter); ok {
		c := cr.Cache()
		reg.MustRegister(
			counter("stats_cache_hits_total", "Stats cache hits",
				func() int64 { return int64(c.Counters().Hits) }),
			counter("stats_cache_misses_total", "Stats cache misses",
				func() int64 { return int64(c.Counters().Misses) }),
			gauge("stats_cache_entries", "Stats cache entries",
				func() int64 { return int64(c.Size()) }),
		)
	}

	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		ErrorLog: slog.NewLogLogger(s.logger.Handler(), slog.LevelError),
	})
}
