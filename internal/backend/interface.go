package backend

import (
	"context"

	"familybudget/internal/amqp"
	"familybudget/internal/gateway"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult bundles the document store with the optional change
// transport wired to it.
type BackendResult struct {
	Store gateway.Gateway

	// Feed delivers change events to a session. Nil when the store has no
	// subscription primitive and AMQP is disabled.
	Feed gateway.ChangeFeed

	// Publisher forwards change events written by this process. Nil when
	// AMQP is disabled.
	Publisher gateway.ChangePublisher

	// AMQP is the broker client, nil when disabled.
	AMQP *amqp.Client

	Cleanup CleanupFunc
}

// Close runs the cleanup function, if any.
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Optional change transport
	AMQPURL      string
	AMQPExchange string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
