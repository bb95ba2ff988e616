package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	accountrepo "github.com/Ct1869/omni-inbox-dash-sub000/internal/account/repository"
	accountusecase "github.com/Ct1869/omni-inbox-dash-sub000/internal/account/usecase"
	mailrepo "github.com/Ct1869/omni-inbox-dash-sub000/internal/mail/repository"
	mailusecase "github.com/Ct1869/omni-inbox-dash-sub000/internal/mail/usecase"
	"github.com/Ct1869/omni-inbox-dash-sub000/internal/provider"
)

const (
	// Progress is checkpointed to the job row every this many messages
	checkpointInterval = 50
	defaultPageSize    = 100
)

// ErrAlreadySyncing is returned when another processing job holds the
// account. Callers treat it as "skip", not as a failure.
var ErrAlreadySyncing = errors.New("a sync is already in progress for this account")

// ErrSyncTimeout is returned when a run exceeds its wall-clock ceiling. The
// check is cooperative: it fires between pages, not inside a blocked call.
var ErrSyncTimeout = errors.New("sync timed out")

// Result is the outcome of one sync run
type Result struct {
	Synced        int    `json:"synced"`
	HasMore       bool   `json:"hasMore"`
	NextPageToken string `json:"nextPageToken,omitempty"`
}

// SyncService drives the sync-job lifecycle: open a job, page through the
// provider, reconcile into the cache, close the job.
type SyncService struct {
	accounts   accountrepo.AccountRepository
	jobs       mailrepo.SyncJobRepository
	tokens     accountusecase.TokenStore
	reconciler *mailusecase.Reconciler
	adapters   map[string]provider.Adapter

	jobTimeout     time.Duration
	staleThreshold time.Duration
	pageSize       int64
	now            func() time.Time
}

// NewSyncService creates a new SyncService
func NewSyncService(
	accounts accountrepo.AccountRepository,
	jobs mailrepo.SyncJobRepository,
	tokens accountusecase.TokenStore,
	reconciler *mailusecase.Reconciler,
	adapters map[string]provider.Adapter,
	jobTimeout time.Duration,
	staleThreshold time.Duration,
) *SyncService {
	return &SyncService{
		accounts:       accounts,
		jobs:           jobs,
		tokens:         tokens,
		reconciler:     reconciler,
		adapters:       adapters,
		jobTimeout:     jobTimeout,
		staleThreshold: staleThreshold,
		pageSize:       defaultPageSize,
		now:            time.Now,
	}
}

// Sync runs one bounded sync for the account. maxMessages of 0 means no cap;
// pageToken resumes a previous partial run.
func (s *SyncService) Sync(ctx context.Context, accountID string, maxMessages int, pageToken string) (*Result, error) {
	account, err := s.accounts.FindByID(accountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, fmt.Errorf("account %s not found", accountID)
	}
	if !account.Active {
		return nil, fmt.Errorf("account %s is deactivated: %w", account.Email, accountusecase.ErrAuthExpired)
	}

	adapter, ok := s.adapters[account.Provider]
	if !ok {
		return nil, fmt.Errorf("no adapter registered for provider %q", account.Provider)
	}

	// Token first: a revoked account must not leave a job row behind
	token, err := s.tokens.ValidAccessToken(ctx, account)
	if err != nil {
		return nil, err
	}

	// Courtesy fast path; the database index below is the real guard
	if existing, err := s.jobs.FindProcessing(accountID); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, ErrAlreadySyncing
	}

	start := s.now()
	job, err := s.jobs.Create(accountID, start, start.Add(s.jobTimeout))
	if err != nil {
		if errors.Is(err, mailrepo.ErrDuplicateJob) {
			return nil, ErrAlreadySyncing
		}
		return nil, err
	}

	log.Printf("[Sync] started job %s for %s (%s)", job.ID, account.Email, account.Provider)

	synced := 0
	lastCheckpoint := 0
	deadline := start.Add(s.jobTimeout)
	nextPageToken := pageToken
	hasMore := false

	for {
		if s.now().After(deadline) {
			msg := fmt.Sprintf("sync exceeded %s ceiling after %d messages", s.jobTimeout, synced)
			s.failJob(job.ID, msg)
			return nil, fmt.Errorf("%s: %w", msg, ErrSyncTimeout)
		}

		page, err := adapter.FetchPage(ctx, token, nextPageToken, s.pageSize)
		if err != nil {
			s.failJob(job.ID, err.Error())
			return nil, fmt.Errorf("fetch page: %w", err)
		}

		for _, msg := range page.Messages {
			if err := s.reconciler.Upsert(accountID, msg); err != nil {
				// Isolated upsert failures must not abort the run
				log.Printf("[Sync] job %s: skipping message %s: %v", job.ID, msg.ProviderMessageID, err)
				continue
			}
			synced++
			if synced-lastCheckpoint >= checkpointInterval {
				if err := s.jobs.Checkpoint(job.ID, synced); err != nil {
					log.Printf("[Sync] job %s: checkpoint failed: %v", job.ID, err)
				}
				lastCheckpoint = synced
			}
		}

		nextPageToken = page.NextPageToken
		if nextPageToken == "" {
			break
		}
		if maxMessages > 0 && synced >= maxMessages {
			hasMore = true
			break
		}
	}

	if err := s.reconciler.FinishBatch(accountID); err != nil {
		s.failJob(job.ID, err.Error())
		return nil, fmt.Errorf("finish batch: %w", err)
	}

	if err := s.jobs.Complete(job.ID, synced, s.now()); err != nil {
		return nil, err
	}

	log.Printf("[Sync] job %s completed: %d messages", job.ID, synced)

	result := &Result{Synced: synced, HasMore: hasMore}
	if hasMore {
		result.NextPageToken = nextPageToken
	}
	return result, nil
}

func (s *SyncService) failJob(jobID, msg string) {
	if err := s.jobs.Fail(jobID, msg, s.now()); err != nil {
		log.Printf("[Sync] failed to mark job %s failed: %v", jobID, err)
	}
}

// CleanupStuckJobs force-fails processing jobs whose updated_at is older than
// the stale threshold. Recovers from workers that crashed before writing a
// terminal status.
func (s *SyncService) CleanupStuckJobs() (int64, error) {
	now := s.now()
	cleaned, err := s.jobs.FailStale(now.Add(-s.staleThreshold), now)
	if err != nil {
		return 0, err
	}
	if cleaned > 0 {
		log.Printf("[Sync] watchdog failed %d stuck jobs", cleaned)
	}
	return cleaned, nil
}
