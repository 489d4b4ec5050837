package pipevine

import (
	"database/sql"
	"log/slog"
)

// Bundle wires together a StateManager and an ordered message queue so
// status messages produced around state transitions reach a single sink
// in order.
type Bundle struct {
	Manager  StateManager
	Messages *MessageQueue
}

// NewInMemoryBundle constructs a non-durable Manager + MessageQueue
// combo, best suited for development and tests.
func NewInMemoryBundle(appName string) *Bundle {
	return &Bundle{
		Manager:  NewInMemoryManager(appName),
		Messages: NewMessageQueue(nil),
	}
}

// NewSQLiteBundle constructs a durable Manager + MessageQueue combo.
// Pipeline records are persisted in the provided *sql.DB; the message
// queue itself is in-process, matching its delivery-ordering contract.
//
// Typical usage:
//
//	db, _ := sql.Open("sqlite", "file:pipevine.db?_journal=WAL")
//	bundle, err := pipevine.NewSQLiteBundle(db, "myapp", nil)
//	// initialize pipelines on bundle.Manager
//	// queue status messages via bundle.Messages
func NewSQLiteBundle(db *sql.DB, appName string, logger *slog.Logger) (*Bundle, error) {
	m, err := NewSQLiteManager(db, appName)
	if err != nil {
		return nil, err
	}

	return &Bundle{
		Manager:  m,
		Messages: NewMessageQueue(logger),
	}, nil
}

// Close stops the bundle's message queue consumer after any in-flight
// delivery completes.
func (b *Bundle) Close() {
	b.Messages.Close()
}
