package main

import (
	"context"
	"flag"
	"os"
	"time"

	"thongke/internal/cli"
	applog "thongke/internal/log"
	"thongke/internal/services"
	"thongke/internal/worker"
)

func main() {
	once := flag.Bool("once", false, "write one report and exit")
	flag.Parse()

	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), applog.ComponentWorker)
	cfg := cli.LoadAndValidateConfig(logger.Logger)

	res := cli.InitBackend(context.Background(), logger.WithComponent(applog.ComponentBackend).Logger, cfg)
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", applog.FieldError, err)
		}
	}()

	// A scheduled run reads the records once, so nothing is cached.
	reports := services.NewReportService(res.Reader, services.Options{
		CacheSize:      1,
		CacheTTL:       time.Nanosecond,
		DatasetTimeout: cfg.DatasetTimeout,
		Location:       cfg.Location(),
		Locale:         cfg.ReportLocale,
		Publisher:      res.Publisher,
		Sink:           res.Sink,
	})

	w, err := worker.NewReportWorker(reports, worker.Options{
		Schedule: cfg.ReportSchedule,
		Dir:      cfg.ExportDir,
		Location: cfg.Location(),
	})
	if err != nil {
		logger.Error("Failed to create report worker", applog.FieldError, err)
		os.Exit(1)
	}

	if *once {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		path, err := w.RunOnce(ctx)
		if err != nil {
			logger.Error("Report run failed", applog.FieldError, err)
			os.Exit(1)
		}
		logger.Info("Report written", "path", path)
		if err := reports.Drain(ctx); err != nil {
			logger.Warn("Sheet write did not finish", applog.FieldError, err)
		}
		return
	}

	ctx, done := cli.GracefulShutdown(logger.Logger, 2*time.Minute, func(ctx context.Context) {
		if err := w.Stop(ctx); err != nil {
			logger.Warn("Report job still running at shutdown", applog.FieldError, err)
		}
		if err := reports.Drain(ctx); err != nil {
			logger.Warn("Sheet writes still running at shutdown", applog.FieldError, err)
		}
	})

	w.Start()
	logger.Info("Report worker started", "next_run", w.Next().Format(time.RFC3339))
	cli.WaitForShutdown(ctx, done)
	logger.Info("Report worker stopped")
}
