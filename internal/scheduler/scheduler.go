package scheduler

import (
	"context"
	"fmt"
	"log"

	"github.com/robfig/cron/v3"
)

// Refresher re-scrapes the listings sources.
type Refresher interface {
	Refresh(ctx context.Context)
}

// Pruner drops idle sessions and reports how many went.
type Pruner interface {
	Prune() int
}

// Scheduler runs the background maintenance jobs: the daily listings
// refresh and periodic session pruning.
type Scheduler struct {
	cron     *cron.Cron
	listings Refresher
	sessions Pruner
	ctx      context.Context
}

// New creates a scheduler. ctx is passed to refresh jobs so in-flight
// scrapes stop on shutdown.
func New(ctx context.Context, listings Refresher, sessions Pruner) *Scheduler {
	return &Scheduler{
		cron:     cron.New(cron.WithSeconds()),
		listings: listings,
		sessions: sessions,
		ctx:      ctx,
	}
}

// Register adds the maintenance jobs. refreshCron is a
// seconds-granularity spec ("0 0 6 * * *" runs daily at 06:00).
func (s *Scheduler) Register(refreshCron string) error {
	if _, err := s.cron.AddFunc(refreshCron, s.refreshListings); err != nil {
		return fmt.Errorf("register listings refresh: %w", err)
	}
	// Session prune: every 10 minutes
	if _, err := s.cron.AddFunc("0 */10 * * * *", s.pruneSessions); err != nil {
		return fmt.Errorf("register session prune: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	log.Println("[SCHED] scheduler started")
}

// Stop stops the cron scheduler gracefully.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	log.Println("[SCHED] scheduler stopped")
}

// RunRefreshNow executes the listings refresh immediately (for warmup
// on serve start).
func (s *Scheduler) RunRefreshNow() {
	s.refreshListings()
}

func (s *Scheduler) refreshListings() {
	log.Println("[SCHED] running listings refresh")
	s.listings.Refresh(s.ctx)
}

func (s *Scheduler) pruneSessions() {
	s.sessions.Prune()
}
