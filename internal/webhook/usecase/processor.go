package usecase

import (
	"context"
	"fmt"
	"log"
	"time"

	mailrepo "github.com/Ct1869/omni-inbox-dash-sub000/internal/mail/repository"
	syncusecase "github.com/Ct1869/omni-inbox-dash-sub000/internal/sync/usecase"
	"github.com/Ct1869/omni-inbox-dash-sub000/pkg/backoff"
)

const (
	defaultBatchSize = 10
	maxAttempts      = 3
	retryBase        = time.Minute
	// Items run sequentially with a small gap to respect provider limits
	interItemDelay = 500 * time.Millisecond
	// A webhook signals "something changed", so a bounded incremental pull
	// is enough; the next notification covers the rest
	webhookSyncLimit = 50
)

// SyncFunc is the sync path a drained queue item triggers
type SyncFunc func(ctx context.Context, accountID string, maxMessages int, pageToken string) (*syncusecase.Result, error)

// Stats summarizes one processor run
type Stats struct {
	Processed int `json:"processed"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// Processor drains the webhook queue on a schedule. Failures go back to
// pending with exponential re-eligibility (2^retry_count minutes) until the
// attempt cap, then park as failed for operator inspection.
type Processor struct {
	queue          mailrepo.WebhookQueueRepository
	sync           SyncFunc
	batchSize      int
	staleThreshold time.Duration
	now            func() time.Time
	sleep          func(ctx context.Context, d time.Duration)
}

// NewProcessor creates a new Processor
func NewProcessor(queue mailrepo.WebhookQueueRepository, sync SyncFunc, staleThreshold time.Duration) *Processor {
	return &Processor{
		queue:          queue,
		sync:           sync,
		batchSize:      defaultBatchSize,
		staleThreshold: staleThreshold,
		now:            time.Now,
		sleep:          sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

// ProcessQueue runs one drain pass over due pending items.
func (p *Processor) ProcessQueue(ctx context.Context) (*Stats, error) {
	items, err := p.queue.DueBatch(p.batchSize, p.now())
	if err != nil {
		return nil, fmt.Errorf("select due items: %w", err)
	}

	stats := &Stats{}
	for idx, item := range items {
		if err := p.queue.MarkProcessing(item.ID); err != nil {
			log.Printf("[Queue] failed to claim item %s: %v", item.ID, err)
			continue
		}
		stats.Processed++

		_, err := p.sync(ctx, item.AccountID, webhookSyncLimit, "")
		if err != nil {
			stats.Failed++
			p.handleFailure(item.ID, item.RetryCount, err)
		} else {
			stats.Succeeded++
			if err := p.queue.MarkCompleted(item.ID, p.now()); err != nil {
				log.Printf("[Queue] failed to complete item %s: %v", item.ID, err)
			}
		}

		if idx < len(items)-1 {
			p.sleep(ctx, interItemDelay)
		}
	}
	return stats, nil
}

func (p *Processor) handleFailure(itemID string, previousRetries int, cause error) {
	retryCount := previousRetries + 1
	if retryCount >= maxAttempts {
		log.Printf("[Queue] item %s exhausted %d attempts: %v", itemID, retryCount, cause)
		if err := p.queue.MarkFailed(itemID, cause.Error(), p.now()); err != nil {
			log.Printf("[Queue] failed to park item %s: %v", itemID, err)
		}
		return
	}

	nextRetry := p.now().Add(backoff.Delay(retryCount, retryBase))
	log.Printf("[Queue] item %s failed (attempt %d), retrying at %s: %v", itemID, retryCount, nextRetry.Format(time.RFC3339), cause)
	if err := p.queue.Requeue(itemID, retryCount, nextRetry, cause.Error()); err != nil {
		log.Printf("[Queue] failed to requeue item %s: %v", itemID, err)
	}
}

// ReclaimStale force-fails items stuck in processing past the stale
// threshold, mirroring the sync-job watchdog. A crash mid-batch otherwise
// parks items in processing forever.
func (p *Processor) ReclaimStale() (int64, error) {
	now := p.now()
	cleaned, err := p.queue.FailStale(now.Add(-p.staleThreshold), now)
	if err != nil {
		return 0, err
	}
	if cleaned > 0 {
		log.Printf("[Queue] watchdog failed %d stuck items", cleaned)
	}
	return cleaned, nil
}
