package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"thongke/internal/cache"
	"thongke/internal/cli"
	apphttp "thongke/internal/http"
	applog "thongke/internal/log"
	"thongke/internal/middleware/ratelimit"
	"thongke/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), applog.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger.Logger)

	res := cli.InitBackend(context.Background(), logger.WithComponent(applog.ComponentBackend).Logger, cfg)

	reports := services.NewReportService(res.Reader, services.Options{
		CacheSize:      cfg.CacheSize,
		CacheTTL:       cfg.CacheTTL,
		DatasetTimeout: cfg.DatasetTimeout,
		Location:       cfg.Location(),
		Locale:         cfg.ReportLocale,
		Publisher:      res.Publisher,
		Sink:           res.Sink,
	})

	caches := cache.NewManager()
	caches.Register("stats", reports.Cache())
	caches.Start(context.Background(), time.Minute)

	srv := apphttp.NewServer(apphttp.Options{
		Addr:    ":" + cfg.Port,
		Reports: reports,
		Ready:   res.Ready,
		ExportLimit: ratelimit.Config{
			Requests: cfg.ExportRateLimit,
			Window:   cfg.ExportRateWindow,
		},
		Logger:         logger,
		RequestTimeout: cfg.DatasetTimeout + 5*time.Second,
	})

	ctx, done := cli.GracefulShutdown(logger.Logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		caches.Stop()
		if err := reports.Drain(ctx); err != nil {
			logger.Warn("Sheet writes still running at shutdown", applog.FieldError, err)
		}
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", applog.FieldError, err)
		}
	})

	logger.Info("Starting thongke server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"amqp_enabled", res.Publisher != nil,
		"sheets_enabled", res.Sink != nil,
		"timezone", cfg.Location().String())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
