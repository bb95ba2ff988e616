package repository

import (
	"time"

	maildomain "github.com/Ct1869/omni-inbox-dash-sub000/internal/mail/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// webhookQueueRepository implements WebhookQueueRepository interface
type webhookQueueRepository struct {
	db *gorm.DB
}

// NewWebhookQueueRepository creates a new instance of webhookQueueRepository
func NewWebhookQueueRepository(db *gorm.DB) WebhookQueueRepository {
	return &webhookQueueRepository{
		db: db,
	}
}

func (r *webhookQueueRepository) Enqueue(item *maildomain.WebhookQueueItem) error {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	if item.Status == "" {
		item.Status = maildomain.QueuePending
	}
	return r.db.Create(item).Error
}

func (r *webhookQueueRepository) FindByID(id string) (*maildomain.WebhookQueueItem, error) {
	var item maildomain.WebhookQueueItem
	err := r.db.Where("id = ?", id).First(&item).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

func (r *webhookQueueRepository) DueBatch(limit int, now time.Time) ([]maildomain.WebhookQueueItem, error) {
	var items []maildomain.WebhookQueueItem
	err := r.db.
		Where("status = ? AND (next_retry_at IS NULL OR next_retry_at <= ?)", maildomain.QueuePending, now).
		Order("created_at ASC").
		Limit(limit).
		Find(&items).Error
	return items, err
}

func (r *webhookQueueRepository) MarkProcessing(id string) error {
	return r.db.Model(&maildomain.WebhookQueueItem{}).
		Where("id = ? AND status = ?", id, maildomain.QueuePending).
		Update("status", maildomain.QueueProcessing).Error
}

func (r *webhookQueueRepository) MarkCompleted(id string, at time.Time) error {
	return r.db.Model(&maildomain.WebhookQueueItem{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":       maildomain.QueueCompleted,
			"processed_at": at,
		}).Error
}

func (r *webhookQueueRepository) Requeue(id string, retryCount int, nextRetryAt time.Time, errorMessage string) error {
	return r.db.Model(&maildomain.WebhookQueueItem{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        maildomain.QueuePending,
			"retry_count":   retryCount,
			"next_retry_at": nextRetryAt,
			"error_message": errorMessage,
		}).Error
}

func (r *webhookQueueRepository) MarkFailed(id string, errorMessage string, at time.Time) error {
	return r.db.Model(&maildomain.WebhookQueueItem{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        maildomain.QueueFailed,
			"error_message": errorMessage,
			"processed_at":  at,
		}).Error
}

func (r *webhookQueueRepository) FailStale(cutoff time.Time, at time.Time) (int64, error) {
	result := r.db.Model(&maildomain.WebhookQueueItem{}).
		Where("status = ? AND updated_at < ?", maildomain.QueueProcessing, cutoff).
		Updates(map[string]interface{}{
			"status":        maildomain.QueueFailed,
			"error_message": "queue item stuck in processing: worker did not report completion",
			"processed_at":  at,
		})
	return result.RowsAffected, result.Error
}
