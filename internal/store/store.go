// Package store persists normalized listings and serves the read-only
// aggregate queries over them.
package store

import (
	"context"

	"jobfeed/sync-service/internal/model"
)

// Store is the persistence contract the orchestrator drives. Rows are
// keyed by (source, external_id); nothing is ever deleted — staleness is
// expressed by flipping is_active.
type Store interface {
	// SaveListings upserts every listing, refreshing fetched_at and
	// forcing is_active=true. Each record has its own failure boundary:
	// a failed upsert is logged and skipped, never aborting the batch.
	// Returns the count of successful upserts.
	SaveListings(ctx context.Context, listings []model.Listing) int

	// DeactivateStale flips is_active=false on every active row whose
	// fetched_at is older than now minus olderThanHours, in one bulk
	// update. Returns the number of rows deactivated.
	DeactivateStale(ctx context.Context, olderThanHours int) (int64, error)

	// Stats aggregates the persisted store. Pure query, safe to call
	// concurrently with syncs.
	Stats(ctx context.Context) (*model.ListingStats, error)

	// ActiveListings returns active rows, most recently fetched first.
	ActiveListings(ctx context.Context, limit int) ([]model.StoredListing, error)
}
