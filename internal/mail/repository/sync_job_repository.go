package repository

import (
	"errors"
	"time"

	maildomain "github.com/Ct1869/omni-inbox-dash-sub000/internal/mail/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrDuplicateJob is returned when the partial unique index rejects a second
// processing job for the same account.
var ErrDuplicateJob = errors.New("a sync job is already processing for this account")

// syncJobRepository implements SyncJobRepository interface
type syncJobRepository struct {
	db *gorm.DB
}

// NewSyncJobRepository creates a new instance of syncJobRepository
func NewSyncJobRepository(db *gorm.DB) SyncJobRepository {
	return &syncJobRepository{
		db: db,
	}
}

func (r *syncJobRepository) Create(accountID string, startedAt, timeoutAt time.Time) (*maildomain.SyncJob, error) {
	job := &maildomain.SyncJob{
		ID:        uuid.New().String(),
		AccountID: accountID,
		Status:    maildomain.JobProcessing,
		StartedAt: startedAt,
		TimeoutAt: timeoutAt,
	}
	if err := r.db.Create(job).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateJob
		}
		return nil, err
	}
	return job, nil
}

func (r *syncJobRepository) FindByID(id string) (*maildomain.SyncJob, error) {
	var job maildomain.SyncJob
	err := r.db.Where("id = ?", id).First(&job).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &job, nil
}

func (r *syncJobRepository) FindProcessing(accountID string) (*maildomain.SyncJob, error) {
	var job maildomain.SyncJob
	err := r.db.Where("account_id = ? AND status = ?", accountID, maildomain.JobProcessing).First(&job).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &job, nil
}

func (r *syncJobRepository) Checkpoint(id string, messagesSynced int) error {
	return r.db.Model(&maildomain.SyncJob{}).
		Where("id = ? AND status = ?", id, maildomain.JobProcessing).
		Update("messages_synced", messagesSynced).Error
}

func (r *syncJobRepository) Complete(id string, messagesSynced int, at time.Time) error {
	// Guarded on status so a watchdog-failed job cannot be resurrected
	return r.db.Model(&maildomain.SyncJob{}).
		Where("id = ? AND status = ?", id, maildomain.JobProcessing).
		Updates(map[string]interface{}{
			"status":          maildomain.JobCompleted,
			"messages_synced": messagesSynced,
			"completed_at":    at,
		}).Error
}

func (r *syncJobRepository) Fail(id string, errorMessage string, at time.Time) error {
	return r.db.Model(&maildomain.SyncJob{}).
		Where("id = ? AND status = ?", id, maildomain.JobProcessing).
		Updates(map[string]interface{}{
			"status":        maildomain.JobFailed,
			"error_message": errorMessage,
			"completed_at":  at,
		}).Error
}

func (r *syncJobRepository) FailStale(cutoff time.Time, at time.Time) (int64, error) {
	result := r.db.Model(&maildomain.SyncJob{}).
		Where("status = ? AND updated_at < ?", maildomain.JobProcessing, cutoff).
		Updates(map[string]interface{}{
			"status":        maildomain.JobFailed,
			"error_message": "sync job timed out: worker did not report completion",
			"completed_at":  at,
		})
	return result.RowsAffected, result.Error
}
