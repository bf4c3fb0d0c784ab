package syncer

import (
	"context"
	"strings"
	"testing"
	"time"

	"jobfeed/sync-service/internal/model"
	"jobfeed/sync-service/internal/provider"
)

// ── Test doubles ───────────────────────────────────────────────────────────

type fakeAdapter struct {
	source   model.Source
	listings []model.Listing
	err      error
	panicMsg string
	calls    int
}

func (f *fakeAdapter) Source() model.Source { return f.source }

func (f *fakeAdapter) FetchAll(ctx context.Context, region string) ([]model.Listing, error) {
	f.calls++
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	return f.listings, f.err
}

type storedRow struct {
	listing   model.Listing
	fetchedAt time.Time
	active    bool
}

// memStore mirrors the store contract with an adjustable clock so
// staleness scenarios can be driven without a database.
type memStore struct {
	now      time.Time
	rows     map[string]*storedRow
	failKeys map[string]bool
}

func newMemStore() *memStore {
	return &memStore{
		now:      time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		rows:     map[string]*storedRow{},
		failKeys: map[string]bool{},
	}
}

func rowKey(source model.Source, externalID string) string {
	return string(source) + "|" + externalID
}

func (m *memStore) SaveListings(ctx context.Context, listings []model.Listing) int {
	saved := 0
	for _, l := range listings {
		k := rowKey(l.Source, l.ExternalID)
		if m.failKeys[k] {
			continue
		}
		m.rows[k] = &storedRow{listing: l, fetchedAt: m.now, active: true}
		saved++
	}
	return saved
}

func (m *memStore) DeactivateStale(ctx context.Context, olderThanHours int) (int64, error) {
	cutoff := m.now.Add(-time.Duration(olderThanHours) * time.Hour)
	var n int64
	for _, r := range m.rows {
		if r.active && r.fetchedAt.Before(cutoff) {
			r.active = false
			n++
		}
	}
	return n, nil
}

func (m *memStore) Stats(ctx context.Context) (*model.ListingStats, error) {
	stats := &model.ListingStats{
		JobsByType:     map[string]int64{},
		JobsByWorkMode: map[string]int64{},
		JobsBySource:   map[string]int64{},
	}
	for _, r := range m.rows {
		stats.TotalJobs++
		if r.active {
			stats.ActiveJobs++
			stats.JobsBySource[string(r.listing.Source)]++
		}
	}
	return stats, nil
}

func (m *memStore) ActiveListings(ctx context.Context, limit int) ([]model.StoredListing, error) {
	var out []model.StoredListing
	for _, r := range m.rows {
		if r.active {
			out = append(out, model.StoredListing{Listing: r.listing, FetchedAt: r.fetchedAt, IsActive: true})
		}
	}
	return out, nil
}

func listing(source model.Source, id string) model.Listing {
	return model.Listing{
		ExternalID:  id,
		Source:      source,
		Title:       "Engineer " + id,
		JobType:     model.JobTypeFullTime,
		ExternalURL: "https://example.com/" + id,
	}
}

func listings(source model.Source, ids ...string) []model.Listing {
	out := make([]model.Listing, 0, len(ids))
	for _, id := range ids {
		out = append(out, listing(source, id))
	}
	return out
}

func newSyncer(st *memStore, adapters ...provider.Adapter) *Syncer {
	return New(st, adapters, Options{Region: "Testville", StaleAfterHours: 72})
}

// ── Scenarios ──────────────────────────────────────────────────────────────

func TestSync_TwoSourcesDisjointIDs(t *testing.T) {
	st := newMemStore()
	a := &fakeAdapter{source: model.SourceJSearch, listings: listings(model.SourceJSearch, "a1", "a2", "a3")}
	b := &fakeAdapter{source: model.SourceUSAJobs, listings: listings(model.SourceUSAJobs, "b1", "b2", "b3")}

	res := newSyncer(st, a, b).Sync(context.Background(), model.SyncOptions{Source: model.SourceAll})

	if !res.Success {
		t.Fatalf("expected success, errors: %v", res.Errors)
	}
	if res.JobsFound != 6 || res.JobsSaved != 6 {
		t.Errorf("found/saved = %d/%d, want 6/6", res.JobsFound, res.JobsSaved)
	}
	if len(res.Errors) != 0 {
		t.Errorf("expected no errors, got %v", res.Errors)
	}
	if len(st.rows) != 6 {
		t.Errorf("expected 6 stored rows, got %d", len(st.rows))
	}
}

func TestSync_AdapterFailureIsolated(t *testing.T) {
	st := newMemStore()
	a := &fakeAdapter{source: model.SourceJSearch, listings: listings(model.SourceJSearch, "a1", "a2")}
	b := &fakeAdapter{source: model.SourceUSAJobs, err: context.DeadlineExceeded}

	res := newSyncer(st, a, b).Sync(context.Background(), model.SyncOptions{Source: model.SourceAll})

	if res.Success {
		t.Error("a failed adapter must flip success to false")
	}
	if res.JobsFound != 2 || res.JobsSaved != 2 {
		t.Errorf("found/saved = %d/%d, want 2/2 from the healthy adapter", res.JobsFound, res.JobsSaved)
	}
	if len(res.Errors) != 1 || !strings.Contains(res.Errors[0], "usajobs") {
		t.Errorf("expected exactly one error naming usajobs, got %v", res.Errors)
	}
}

func TestSync_AdapterPanicRecovered(t *testing.T) {
	st := newMemStore()
	a := &fakeAdapter{source: model.SourceJSearch, panicMsg: "nil map write"}
	b := &fakeAdapter{source: model.SourceUSAJobs, listings: listings(model.SourceUSAJobs, "b1")}

	res := newSyncer(st, a, b).Sync(context.Background(), model.SyncOptions{Source: model.SourceAll})

	if res.Success {
		t.Error("a panicking adapter must flip success to false")
	}
	if res.JobsSaved != 1 {
		t.Errorf("saved = %d, want 1 from the healthy adapter", res.JobsSaved)
	}
	if len(res.Errors) != 1 || !strings.Contains(res.Errors[0], "jsearch") {
		t.Errorf("expected one error naming jsearch, got %v", res.Errors)
	}
	if b.calls != 1 {
		t.Error("remaining adapters must still run after a panic")
	}
}

func TestSync_PartialResultsWithError(t *testing.T) {
	st := newMemStore()
	a := &fakeAdapter{
		source:   model.SourceJSearch,
		listings: listings(model.SourceJSearch, "a1", "a2"),
		err:      context.DeadlineExceeded, // one sub-query failed, two records survived
	}

	res := newSyncer(st, a).Sync(context.Background(), model.SyncOptions{Source: string(model.SourceJSearch)})

	if res.Success {
		t.Error("sub-query failure must flip success to false")
	}
	if res.JobsFound != 2 || res.JobsSaved != 2 {
		t.Errorf("partial results must still be ingested, found/saved = %d/%d", res.JobsFound, res.JobsSaved)
	}
}

func TestSync_UnknownSource(t *testing.T) {
	st := newMemStore()
	a := &fakeAdapter{source: model.SourceJSearch, listings: listings(model.SourceJSearch, "a1")}

	res := newSyncer(st, a).Sync(context.Background(), model.SyncOptions{Source: "monster"})

	if res.Success {
		t.Error("unknown source must fail")
	}
	if len(res.Errors) != 1 || !strings.Contains(res.Errors[0], "monster") {
		t.Errorf("expected one error naming the bad source, got %v", res.Errors)
	}
	if a.calls != 0 {
		t.Error("no adapter should run for an unknown source")
	}
	if len(st.rows) != 0 {
		t.Error("store must be untouched")
	}
}

func TestSync_SourceFilter(t *testing.T) {
	st := newMemStore()
	a := &fakeAdapter{source: model.SourceJSearch, listings: listings(model.SourceJSearch, "a1")}
	b := &fakeAdapter{source: model.SourceUSAJobs, listings: listings(model.SourceUSAJobs, "b1")}

	res := newSyncer(st, a, b).Sync(context.Background(), model.SyncOptions{Source: string(model.SourceUSAJobs)})

	if !res.Success {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	if a.calls != 0 || b.calls != 1 {
		t.Errorf("adapter calls = %d/%d, want 0/1", a.calls, b.calls)
	}
	if res.JobsFound != 1 {
		t.Errorf("found = %d, want 1", res.JobsFound)
	}
}

func TestSync_IdempotentUpsert(t *testing.T) {
	st := newMemStore()
	a := &fakeAdapter{source: model.SourceJSearch, listings: listings(model.SourceJSearch, "a1", "a2")}
	s := newSyncer(st, a)

	first := s.Sync(context.Background(), model.SyncOptions{Source: model.SourceAll})
	firstFetch := st.rows[rowKey(model.SourceJSearch, "a1")].fetchedAt

	st.now = st.now.Add(1 * time.Hour)
	second := s.Sync(context.Background(), model.SyncOptions{Source: model.SourceAll})

	if first.JobsSaved != 2 || second.JobsSaved != 2 {
		t.Errorf("saved = %d/%d, want 2/2", first.JobsSaved, second.JobsSaved)
	}
	if len(st.rows) != 2 {
		t.Fatalf("identical batch twice must keep one row per id, got %d rows", len(st.rows))
	}
	if !st.rows[rowKey(model.SourceJSearch, "a1")].fetchedAt.After(firstFetch) {
		t.Error("second pass must refresh fetchedAt")
	}
}

func TestSync_SweepRunsWithoutIngestion(t *testing.T) {
	st := newMemStore()
	// Stale row, fetched 96h before the store clock.
	st.rows[rowKey(model.SourceJSearch, "old")] = &storedRow{
		listing:   listing(model.SourceJSearch, "old"),
		fetchedAt: st.now.Add(-96 * time.Hour),
		active:    true,
	}
	// Fresh row, one hour old: within threshold, must be untouched.
	st.rows[rowKey(model.SourceJSearch, "fresh")] = &storedRow{
		listing:   listing(model.SourceJSearch, "fresh"),
		fetchedAt: st.now.Add(-1 * time.Hour),
		active:    true,
	}

	// Every adapter contributes nothing; the sweep must still run.
	a := &fakeAdapter{source: model.SourceJSearch}
	res := newSyncer(st, a).Sync(context.Background(), model.SyncOptions{Source: model.SourceAll})

	if !res.Success {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	if st.rows[rowKey(model.SourceJSearch, "old")].active {
		t.Error("stale row must be deactivated even when nothing was fetched")
	}
	if !st.rows[rowKey(model.SourceJSearch, "fresh")].active {
		t.Error("row within threshold must be untouched")
	}
}

func TestSync_ReappearanceReactivates(t *testing.T) {
	st := newMemStore()
	a := &fakeAdapter{source: model.SourceJSearch, listings: listings(model.SourceJSearch, "X")}
	s := newSyncer(st, a)

	// T0: listing (jsearch, "X") is fetched.
	s.Sync(context.Background(), model.SyncOptions{Source: model.SourceAll})

	// T0+96h: the listing has vanished upstream; the sweep flips it.
	st.now = st.now.Add(96 * time.Hour)
	a.listings = nil
	s.Sync(context.Background(), model.SyncOptions{Source: model.SourceAll})

	if st.rows[rowKey(model.SourceJSearch, "X")].active {
		t.Fatal("row should be inactive after the sweep")
	}

	// T0+100h: it reappears in a fresh fetch.
	st.now = st.now.Add(4 * time.Hour)
	a.listings = listings(model.SourceJSearch, "X")
	s.Sync(context.Background(), model.SyncOptions{Source: model.SourceAll})

	if len(st.rows) != 1 {
		t.Fatalf("reappearance must not create a second row, got %d", len(st.rows))
	}
	row := st.rows[rowKey(model.SourceJSearch, "X")]
	if !row.active {
		t.Error("reappearance must reset isActive to true")
	}
	if !row.fetchedAt.Equal(st.now) {
		t.Errorf("reappearance must refresh fetchedAt, got %v want %v", row.fetchedAt, st.now)
	}
}

func TestSync_PerRecordFailureExcludedFromCount(t *testing.T) {
	st := newMemStore()
	st.failKeys[rowKey(model.SourceJSearch, "a2")] = true
	a := &fakeAdapter{source: model.SourceJSearch, listings: listings(model.SourceJSearch, "a1", "a2", "a3")}

	res := newSyncer(st, a).Sync(context.Background(), model.SyncOptions{Source: model.SourceAll})

	// Per-record persistence failures are logged, not accumulated.
	if !res.Success {
		t.Errorf("per-record failure must not flip success, errors: %v", res.Errors)
	}
	if res.JobsFound != 3 || res.JobsSaved != 2 {
		t.Errorf("found/saved = %d/%d, want 3/2", res.JobsFound, res.JobsSaved)
	}
}

func TestSync_ExclusionFilter(t *testing.T) {
	st := newMemStore()
	bad := listing(model.SourceJSearch, "a2")
	bad.Title = "Crypto MLM Evangelist"
	a := &fakeAdapter{source: model.SourceJSearch, listings: append(listings(model.SourceJSearch, "a1"), bad)}

	s := New(st, []provider.Adapter{a}, Options{StaleAfterHours: 72, ExcludeKeywords: []string{"mlm"}})
	res := s.Sync(context.Background(), model.SyncOptions{Source: model.SourceAll})

	if !res.Success {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	if res.JobsFound != 2 {
		t.Errorf("jobsFound counts raw fetched records, got %d want 2", res.JobsFound)
	}
	if res.JobsSaved != 1 {
		t.Errorf("excluded listing must not be saved, saved = %d want 1", res.JobsSaved)
	}
	if _, ok := st.rows[rowKey(model.SourceJSearch, "a2")]; ok {
		t.Error("excluded listing found in store")
	}
}

func TestSync_DurationAndSourceEcho(t *testing.T) {
	st := newMemStore()
	a := &fakeAdapter{source: model.SourceJSearch}

	res := newSyncer(st, a).Sync(context.Background(), model.SyncOptions{Source: model.SourceAll})

	if res.Source != model.SourceAll {
		t.Errorf("result must echo the requested source, got %q", res.Source)
	}
	if res.DurationMs < 0 {
		t.Errorf("duration must be non-negative, got %d", res.DurationMs)
	}
	if res.Errors == nil {
		t.Error("errors must be an empty slice, not nil")
	}
}
