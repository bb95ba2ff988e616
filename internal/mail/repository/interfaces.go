package repository

import (
	"time"

	maildomain "github.com/Ct1869/omni-inbox-dash-sub000/internal/mail/domain"
)

// MessageRepository defines persistence operations for the message cache
type MessageRepository interface {
	// Upsert inserts or updates keyed on (account_id, provider_message_id).
	// Provider-sourced fields are overwritten; local-only fields survive.
	Upsert(msg *maildomain.CachedMessage) error
	FindByProviderID(accountID, providerMessageID string) (*maildomain.CachedMessage, error)
	CountByAccount(accountID string) (int64, error)
	CountUnread(accountID string) (int64, error)
	SetRead(accountID string, providerMessageIDs []string, read bool) error
	SetStarred(accountID string, providerMessageIDs []string, starred bool) error
	DeleteByProviderIDs(accountID string, providerMessageIDs []string) error
}

// SyncJobRepository defines persistence operations for sync jobs
type SyncJobRepository interface {
	// Create inserts a job already in processing state. Returns
	// ErrDuplicateJob when another processing job exists for the account.
	Create(accountID string, startedAt, timeoutAt time.Time) (*maildomain.SyncJob, error)
	FindByID(id string) (*maildomain.SyncJob, error)
	FindProcessing(accountID string) (*maildomain.SyncJob, error)
	// Checkpoint bumps messages_synced and updated_at on a live job
	Checkpoint(id string, messagesSynced int) error
	Complete(id string, messagesSynced int, at time.Time) error
	Fail(id string, errorMessage string, at time.Time) error
	// FailStale force-fails processing jobs whose updated_at is older than
	// cutoff and returns how many were swept
	FailStale(cutoff time.Time, at time.Time) (int64, error)
}

// WebhookQueueRepository defines persistence operations for the webhook queue
type WebhookQueueRepository interface {
	Enqueue(item *maildomain.WebhookQueueItem) error
	FindByID(id string) (*maildomain.WebhookQueueItem, error)
	// DueBatch returns up to limit pending items whose next_retry_at is null
	// or due, oldest first
	DueBatch(limit int, now time.Time) ([]maildomain.WebhookQueueItem, error)
	MarkProcessing(id string) error
	MarkCompleted(id string, at time.Time) error
	// Requeue parks a failed item as pending with the bumped retry count and
	// its next eligibility time
	Requeue(id string, retryCount int, nextRetryAt time.Time, errorMessage string) error
	MarkFailed(id string, errorMessage string, at time.Time) error
	// FailStale sweeps items stuck in processing past cutoff, mirroring the
	// sync-job watchdog
	FailStale(cutoff time.Time, at time.Time) (int64, error)
}

// WatchRegistrationRepository defines persistence operations for push registrations
type WatchRegistrationRepository interface {
	Upsert(reg *maildomain.WatchRegistration) error
	FindActiveByAccount(accountID string) (*maildomain.WatchRegistration, error)
	FindBySubscriptionID(subscriptionID string) (*maildomain.WatchRegistration, error)
	// FindExpiringActive returns active registrations expiring before deadline
	FindExpiringActive(deadline time.Time) ([]maildomain.WatchRegistration, error)
	UpdateRenewal(id, subscriptionID string, expiration time.Time) error
	UpdateCursor(id, historyID string) error
	Deactivate(id string) error
	DeactivateByAccount(accountID string) error
}
