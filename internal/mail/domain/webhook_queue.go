package domain

import "time"

type QueueItemStatus string

const (
	QueuePending    QueueItemStatus = "pending"
	QueueProcessing QueueItemStatus = "processing"
	QueueCompleted  QueueItemStatus = "completed"
	QueueFailed     QueueItemStatus = "failed"
)

// WebhookQueueItem is a durable record of one inbound push notification.
// Ingress inserts it as pending; the processor drains it with scheduled
// re-eligibility via NextRetryAt rather than live timers.
type WebhookQueueItem struct {
	ID           string          `json:"id" gorm:"primaryKey"`
	AccountID    string          `json:"account_id" gorm:"index;not null"`
	Provider     string          `json:"provider"`
	ChangeType   string          `json:"change_type"`
	HistoryID    string          `json:"history_id"`
	Status       QueueItemStatus `json:"status" gorm:"index"`
	RetryCount   int             `json:"retry_count"`
	NextRetryAt  *time.Time      `json:"next_retry_at" gorm:"index"`
	ErrorMessage string          `json:"error_message"`
	ProcessedAt  *time.Time      `json:"processed_at"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at" gorm:"index"`
}
