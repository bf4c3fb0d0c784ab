// Package syncer orchestrates one sync pass: fan out to the provider
// adapters, persist the combined batch, sweep stale rows, and report a
// single structured result. Sync never panics to its caller.
package syncer

import (
	"context"
	"fmt"
	"log"
	"time"

	"jobfeed/sync-service/internal/events"
	"jobfeed/sync-service/internal/model"
	"jobfeed/sync-service/internal/provider"
	"jobfeed/sync-service/internal/store"
)

// Options configures a Syncer.
type Options struct {
	Region          string
	StaleAfterHours int
	ExcludeKeywords []string

	// Events is optional. When nil, result publication and the
	// per-source cooldown guard are disabled.
	Events *events.Publisher
}

// Syncer coordinates the adapters and the store for one bounded unit of
// work per Sync call. It holds no mutable state between calls; serializing
// concurrent invocations is the caller's responsibility.
type Syncer struct {
	adapters []provider.Adapter
	store    store.Store
	opts     Options
}

// New returns a Syncer over the given adapters and store.
func New(st store.Store, adapters []provider.Adapter, opts Options) *Syncer {
	if opts.StaleAfterHours < 1 {
		opts.StaleAfterHours = 72
	}
	return &Syncer{adapters: adapters, store: st, opts: opts}
}

// Sync runs one pass for the selected source(s) and returns the outcome.
// Success is false whenever anything went wrong, but data may still have
// been ingested — callers inspect JobsSaved and Errors, not just Success.
func (s *Syncer) Sync(ctx context.Context, opts model.SyncOptions) model.SyncResult {
	start := time.Now()

	res := s.run(ctx, opts)
	res.Success = len(res.Errors) == 0
	res.DurationMs = time.Since(start).Milliseconds()

	log.Printf("[syncer] sync source=%s found=%d saved=%d errors=%d duration=%dms",
		res.Source, res.JobsFound, res.JobsSaved, len(res.Errors), res.DurationMs)

	if s.opts.Events != nil {
		s.opts.Events.PublishSyncCompleted(ctx, res)
	}
	return res
}

// run holds the fallible body of Sync behind a recover boundary: a bug
// anywhere past adapter selection becomes a failed result, not a panic.
func (s *Syncer) run(ctx context.Context, opts model.SyncOptions) (res model.SyncResult) {
	res = model.SyncResult{Source: opts.Source, Errors: []string{}}
	defer func() {
		if r := recover(); r != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("fatal: %v", r))
		}
	}()

	selected, err := s.selectAdapters(opts.Source)
	if err != nil {
		res.Errors = append(res.Errors, err.Error())
		return res
	}

	if s.opts.Events != nil && !opts.Force && s.opts.Events.RecentlySynced(ctx, opts.Source) {
		log.Printf("[syncer] source %s synced within cooldown — skipping (pass force to override)", opts.Source)
		return res
	}

	var batch []model.Listing
	for _, a := range selected {
		listings, err := fetchFrom(ctx, a, s.opts.Region)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", a.Source(), err))
		}
		batch = append(batch, listings...)
	}

	// jobsFound counts raw fetched records; fan-out overlap within one
	// provider is resolved by the store's upsert key, not here.
	res.JobsFound = len(batch)

	kept, dropped := filterListings(batch, s.opts.ExcludeKeywords)
	if dropped > 0 {
		log.Printf("[syncer] excluded %d listing(s) matching configured keywords", dropped)
	}

	res.JobsSaved = s.store.SaveListings(ctx, kept)

	// The sweep runs even when nothing was fetched so postings that
	// silently vanished upstream still age out.
	deactivated, err := s.store.DeactivateStale(ctx, s.opts.StaleAfterHours)
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("stale sweep: %v", err))
	} else if deactivated > 0 {
		log.Printf("[syncer] deactivated %d stale listing(s)", deactivated)
	}

	if s.opts.Events != nil {
		s.opts.Events.MarkSynced(ctx, opts.Source)
	}
	return res
}

// selectAdapters resolves the source option to the adapters to run.
func (s *Syncer) selectAdapters(source string) ([]provider.Adapter, error) {
	if source == "" || source == model.SourceAll {
		return s.adapters, nil
	}
	for _, a := range s.adapters {
		if string(a.Source()) == source {
			return []provider.Adapter{a}, nil
		}
	}
	return nil, fmt.Errorf("unknown source %q", source)
}

// fetchFrom isolates a single adapter call. Adapters are contracted not
// to panic, but a violation must not take down the run.
func fetchFrom(ctx context.Context, a provider.Adapter, region string) (listings []model.Listing, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return a.FetchAll(ctx, region)
}
