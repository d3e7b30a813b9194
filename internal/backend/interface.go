package backend

import (
	"context"

	"thongke/internal/services"
	"thongke/internal/sheets"
)

// CleanupFunc releases the resources held by a backend.
type CleanupFunc func() error

// BackendResult is the wired record source plus its optional integrations.
type BackendResult struct {
	Reader sheets.DatasetReader
	// Sink and Publisher are nil when the integration is disabled.
	Sink      sheets.ReportWriter
	Publisher services.EventPublisher
	// Ready reports whether the record source can serve requests.
	Ready   func(ctx context.Context) error
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// Memory seed directory; for sqlite it seeds an empty database.
	DataDirectory string
	SQLiteDBPath  string

	AMQPURL        string
	AMQPExchange   string
	AMQPRoutingKey string

	GoogleSpreadsheetID   string
	GoogleCredentialsFile string
	GoogleCredentialsJSON string
}

// BackendType represents the type of record source
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
