// Package history keeps a local ledger of generation jobs and their terminal
// outcomes. The ledger is diagnostic: writes must never fail a generation
// call, and callers are expected to log and continue on error.
package history

import (
	"context"
	"time"
)

// Record is one orchestration call and its terminal outcome.
type Record struct {
	ID             string
	JobID          string
	Prompt         string
	GenerationType string
	Status         string
	OutputPath     string
	Warnings       int
	ElapsedMS      int64
	CreatedAt      time.Time
}

// Store persists and lists job records.
type Store interface {
	// Append inserts one record.
	Append(ctx context.Context, rec Record) error
	// Recent returns up to limit records, newest first.
	Recent(ctx context.Context, limit int) ([]Record, error)
	// Close releases the underlying storage.
	Close() error
}
