package domain

import "time"

type SyncJobStatus string

const (
	JobPending    SyncJobStatus = "pending"
	JobProcessing SyncJobStatus = "processing"
	JobCompleted  SyncJobStatus = "completed"
	JobFailed     SyncJobStatus = "failed"
)

// SyncJob is one bounded attempt to pull messages for an account. Transitions
// are monotonic: a completed or failed job never goes back to processing.
// The partial unique index keeps at most one processing job per account, so
// duplicate creation fails at the database instead of a check-then-insert.
type SyncJob struct {
	ID             string        `json:"id" gorm:"primaryKey"`
	AccountID      string        `json:"account_id" gorm:"index;uniqueIndex:idx_one_processing_job,where:status = 'processing';not null"`
	Status         SyncJobStatus `json:"status" gorm:"index"`
	StartedAt      time.Time     `json:"started_at"`
	CompletedAt    *time.Time    `json:"completed_at"`
	TimeoutAt      time.Time     `json:"timeout_at"`
	MessagesSynced int           `json:"messages_synced"`
	ErrorMessage   string        `json:"error_message"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at" gorm:"index"`
}
