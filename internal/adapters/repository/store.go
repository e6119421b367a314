// Package repository keeps session records for lookup and summary stats.
package repository

import (
	"context"

	"github.com/okian/motionplay/internal/domain/model"
)

// Stats summarises the stored records.
type Stats struct {
	Total   int            `json:"total"`
	ByState map[string]int `json:"by_state"`
	ByKind  map[string]int `json:"by_kind"`
	Stars   [4]int         `json:"stars"` // completed sessions per star rating
	Coins   int            `json:"coins"`
}

// Store provides read/write access to session records.
type Store interface {
	// Put inserts or replaces the record with r.ID.
	Put(ctx context.Context, r model.SessionRecord) error

	// Get returns the record for id.
	// Returns ErrNotFound if the id is unknown.
	Get(ctx context.Context, id string) (model.SessionRecord, error)

	// List returns up to limit records, most recently inserted first.
	List(ctx context.Context, limit int) ([]model.SessionRecord, error)

	// Count returns the number of stored records.
	Count(ctx context.Context) int

	// Stats summarises the stored records.
	Stats(ctx context.Context) Stats
}
