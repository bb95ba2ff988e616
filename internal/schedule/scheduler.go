package schedule

import (
	"context"
	"log"
	"time"

	syncusecase "github.com/Ct1869/omni-inbox-dash-sub000/internal/sync/usecase"
	watchusecase "github.com/Ct1869/omni-inbox-dash-sub000/internal/watch/usecase"
	webhookusecase "github.com/Ct1869/omni-inbox-dash-sub000/internal/webhook/usecase"
)

const (
	queueInterval   = 1 * time.Minute
	renewalInterval = 1 * time.Hour
	cleanupInterval = 5 * time.Minute
)

// Scheduler runs the background loops: queue draining, watch renewal and the
// stale-job watchdog. Each loop is an independent ticker so a slow drain pass
// cannot starve renewals.
type Scheduler struct {
	processor   *webhookusecase.Processor
	renewer     *watchusecase.Renewer
	syncService *syncusecase.SyncService
	stopChan    chan struct{}
}

// NewScheduler creates a new Scheduler
func NewScheduler(
	processor *webhookusecase.Processor,
	renewer *watchusecase.Renewer,
	syncService *syncusecase.SyncService,
) *Scheduler {
	return &Scheduler{
		processor:   processor,
		renewer:     renewer,
		syncService: syncService,
		stopChan:    make(chan struct{}),
	}
}

// Start launches the background loops
func (s *Scheduler) Start() {
	log.Printf("[Scheduler] starting (queue: %s, renewal: %s, cleanup: %s)", queueInterval, renewalInterval, cleanupInterval)

	go s.loop(queueInterval, s.drainQueue)
	go s.loop(renewalInterval, s.renewWatches)
	go s.loop(cleanupInterval, s.cleanup)
}

// Stop gracefully stops all loops
func (s *Scheduler) Stop() {
	close(s.stopChan)
}

func (s *Scheduler) loop(interval time.Duration, fn func()) {
	// Run immediately on start
	fn()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			fn()
		case <-s.stopChan:
			return
		}
	}
}

func (s *Scheduler) drainQueue() {
	stats, err := s.processor.ProcessQueue(context.Background())
	if err != nil {
		log.Printf("[Scheduler] queue drain failed: %v", err)
		return
	}
	if stats.Processed > 0 {
		log.Printf("[Scheduler] queue drain: %d processed, %d succeeded, %d failed", stats.Processed, stats.Succeeded, stats.Failed)
	}
}

func (s *Scheduler) renewWatches() {
	stats, err := s.renewer.RenewExpiring(context.Background())
	if err != nil {
		log.Printf("[Scheduler] watch renewal failed: %v", err)
		return
	}
	if stats.Renewed > 0 || stats.Failed > 0 {
		log.Printf("[Scheduler] watch renewal: %d renewed, %d failed", stats.Renewed, stats.Failed)
	}
}

func (s *Scheduler) cleanup() {
	if _, err := s.syncService.CleanupStuckJobs(); err != nil {
		log.Printf("[Scheduler] job watchdog failed: %v", err)
	}
	if _, err := s.processor.ReclaimStale(); err != nil {
		log.Printf("[Scheduler] queue watchdog failed: %v", err)
	}
}
