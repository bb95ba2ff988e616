package repository

import (
	"time"

	maildomain "github.com/Ct1869/omni-inbox-dash-sub000/internal/mail/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// watchRepository implements WatchRegistrationRepository interface
type watchRepository struct {
	db *gorm.DB
}

// NewWatchRegistrationRepository creates a new instance of watchRepository
func NewWatchRegistrationRepository(db *gorm.DB) WatchRegistrationRepository {
	return &watchRepository{
		db: db,
	}
}

func (r *watchRepository) Upsert(reg *maildomain.WatchRegistration) error {
	existing, err := r.FindActiveByAccount(reg.AccountID)
	if err != nil {
		return err
	}
	if existing != nil {
		existing.SubscriptionID = reg.SubscriptionID
		existing.HistoryID = reg.HistoryID
		existing.Expiration = reg.Expiration
		existing.Active = true
		return r.db.Save(existing).Error
	}
	if reg.ID == "" {
		reg.ID = uuid.New().String()
	}
	reg.Active = true
	return r.db.Create(reg).Error
}

func (r *watchRepository) FindActiveByAccount(accountID string) (*maildomain.WatchRegistration, error) {
	var reg maildomain.WatchRegistration
	err := r.db.Where("account_id = ? AND active = ?", accountID, true).First(&reg).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &reg, nil
}

func (r *watchRepository) FindBySubscriptionID(subscriptionID string) (*maildomain.WatchRegistration, error) {
	var reg maildomain.WatchRegistration
	err := r.db.Where("subscription_id = ?", subscriptionID).First(&reg).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &reg, nil
}

func (r *watchRepository) FindExpiringActive(deadline time.Time) ([]maildomain.WatchRegistration, error) {
	var regs []maildomain.WatchRegistration
	err := r.db.
		Where("active = ? AND expiration <= ?", true, deadline).
		Order("expiration ASC").
		Find(&regs).Error
	return regs, err
}

func (r *watchRepository) UpdateRenewal(id, subscriptionID string, expiration time.Time) error {
	return r.db.Model(&maildomain.WatchRegistration{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"subscription_id": subscriptionID,
			"expiration":      expiration,
		}).Error
}

func (r *watchRepository) UpdateCursor(id, historyID string) error {
	return r.db.Model(&maildomain.WatchRegistration{}).
		Where("id = ?", id).
		Update("history_id", historyID).Error
}

func (r *watchRepository) Deactivate(id string) error {
	return r.db.Model(&maildomain.WatchRegistration{}).
		Where("id = ?", id).
		Update("active", false).Error
}

func (r *watchRepository) DeactivateByAccount(accountID string) error {
	return r.db.Model(&maildomain.WatchRegistration{}).
		Where("account_id = ?", accountID).
		Update("active", false).Error
}
