package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"thongke/internal/amqp"
	gsheet "thongke/internal/sheets/google"
	"thongke/internal/sheets/memory"
	"thongke/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

// CreateBackend builds the record source and the optional integrations.
// An unreachable broker or spreadsheet is logged and the integration left
// disabled; only record source failures are returned.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		res *BackendResult
		err error
	)
	switch config.Type {
	case SQLiteBackend:
		res, err = f.createSQLiteBackend(ctx, config)
	case MemoryBackend:
		res, err = f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	cleanups := []CleanupFunc{res.Cleanup}
	if client := f.createAMQPClient(config); client != nil {
		res.Publisher = client
		cleanups = append(cleanups, client.Close)
	}
	if sink := f.createSheetsSink(ctx, config); sink != nil {
		res.Sink = sink
	}
	res.Cleanup = joinCleanups(cleanups)
	return res, nil
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	if config.DataDirectory != "" {
		if err := seedIfEmpty(ctx, repo, config.DataDirectory); err != nil {
			f.logger.Warn("Failed to seed SQLite database", "error", err, "data_directory", config.DataDirectory)
		}
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	return &BackendResult{
		Reader:  repo,
		Ready:   repo.Ping,
		Cleanup: repo.Close,
	}, nil
}

// seedIfEmpty imports the JSON seed files into a database with no records.
func seedIfEmpty(ctx context.Context, repo *storage.SQLiteRepository, dir string) error {
	current, err := repo.ReadDataset(ctx)
	if err != nil {
		return err
	}
	if current.Len() > 0 {
		return nil
	}
	seed, err := memory.NewFromFiles(dir)
	if err != nil {
		return err
	}
	ds, err := seed.ReadDataset(ctx)
	if err != nil || ds.Len() == 0 {
		return err
	}
	return repo.ImportDataset(ctx, ds)
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	dataDir := config.DataDirectory
	if dataDir == "" {
		dataDir = "data"
	}
	store, err := memory.NewFromFiles(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load memory backend: %w", err)
	}

	f.logger.Info("Initialized memory backend", "data_directory", dataDir)
	return &BackendResult{
		Reader: store,
		Ready:  func(context.Context) error { return nil },
	}, nil
}

func (f *DefaultFactory) createAMQPClient(config Config) *amqp.Client {
	if config.AMQPURL == "" {
		return nil
	}
	client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPRoutingKey)
	if err != nil {
		f.logger.Warn("Failed to initialize AMQP client, continuing without report events", "error", err)
		return nil
	}
	f.logger.Info("Initialized AMQP client",
		"exchange", config.AMQPExchange,
		"routing_key", config.AMQPRoutingKey)
	return client
}

func (f *DefaultFactory) createSheetsSink(ctx context.Context, config Config) *gsheet.Client {
	if config.GoogleSpreadsheetID == "" {
		return nil
	}
	client, err := gsheet.New(ctx, gsheet.Options{
		SpreadsheetID:   config.GoogleSpreadsheetID,
		CredentialsJSON: config.GoogleCredentialsJSON,
		CredentialsFile: config.GoogleCredentialsFile,
	})
	if err != nil {
		f.logger.Warn("Failed to initialize Google Sheets sink, continuing without it", "error", err)
		return nil
	}
	f.logger.Info("Initialized Google Sheets sink", "spreadsheet_id", config.GoogleSpreadsheetID)
	return client
}

func joinCleanups(fns []CleanupFunc) CleanupFunc {
	return func() error {
		var errs []error
		for i := len(fns) - 1; i >= 0; i-- {
			if fns[i] == nil {
				continue
			}
			if err := fns[i](); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
}
