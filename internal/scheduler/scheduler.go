// Package scheduler wires up the cron trigger that periodically runs a
// full sync. It sits outside the sync core: the Syncer itself knows
// nothing about scheduling.
package scheduler

import (
	"context"
	"fmt"
	"log"

	"github.com/robfig/cron/v3"

	"jobfeed/sync-service/internal/model"
	"jobfeed/sync-service/internal/syncer"
)

// Scheduler wraps robfig/cron around the Syncer.
type Scheduler struct {
	cron   *cron.Cron
	syncer *syncer.Syncer
	spec   string // cron spec, e.g. "@every 6h"
}

// New creates a Scheduler that fires every intervalHours hours.
func New(s *syncer.Syncer, intervalHours int) *Scheduler {
	return &Scheduler{
		cron:   cron.New(cron.WithLogger(cron.DefaultLogger)),
		syncer: s,
		spec:   fmt.Sprintf("@every %dh", intervalHours),
	}
}

// Start registers the job and starts the scheduler. Also runs one sync
// immediately so the store is populated without waiting for the first tick.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		s.runSync(ctx)
	})
	if err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}

	s.cron.Start()
	log.Printf("[scheduler] Cron started — spec: %s", s.spec)

	// Populate immediately on startup (non-blocking)
	go s.runSync(ctx)

	return nil
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	log.Println("[scheduler] Cron stopped")
}

// runSync performs one full sync pass and logs the outcome.
func (s *Scheduler) runSync(ctx context.Context) {
	log.Println("[scheduler] Sync cycle started")

	res := s.syncer.Sync(ctx, model.SyncOptions{Source: model.SourceAll})
	if !res.Success {
		for _, e := range res.Errors {
			log.Printf("[scheduler] Sync error: %s", e)
		}
	}

	log.Printf("[scheduler] Sync cycle complete — found=%d saved=%d", res.JobsFound, res.JobsSaved)
}
