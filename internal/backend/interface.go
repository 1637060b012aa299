package backend

import (
	"context"

	"artis/internal/core"
	"artis/internal/refdata"
	"artis/internal/services"
)

// Lister returns the latest stored submissions, newest first.
type Lister interface {
	ListRecentSubmissions(ctx context.Context, limit int) ([]core.Submission, error)
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// Result contains everything a backend provides to the HTTP server. Lookup
// is always set; Lister and Cleanup may be nil depending on the backend.
type Result struct {
	Service *services.CalculationService
	Lookup  refdata.Lookup
	Lister  Lister
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type Type

	// SQLite specific
	SQLiteDBPath string
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Memory backend specific
	DataDirectory string
}

// Type represents the kind of backend
type Type string

const (
	SQLiteBackend Type = "sqlite"
	MemoryBackend Type = "memory"
)

// String implements fmt.Stringer
func (t Type) String() string {
	return string(t)
}

// IsValid returns true if the backend type is valid
func (t Type) IsValid() bool {
	switch t {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
