package repository

import (
	"time"

	accountdomain "github.com/Ct1869/omni-inbox-dash-sub000/internal/account/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// accountRepository implements AccountRepository interface
type accountRepository struct {
	db *gorm.DB
}

// NewAccountRepository creates a new instance of accountRepository
func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &accountRepository{
		db: db,
	}
}

func (r *accountRepository) Create(account *accountdomain.Account) error {
	if account.ID == "" {
		account.ID = uuid.New().String()
	}
	return r.db.Create(account).Error
}

func (r *accountRepository) FindByID(id string) (*accountdomain.Account, error) {
	var account accountdomain.Account
	err := r.db.Where("id = ?", id).First(&account).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

func (r *accountRepository) FindByEmailAndProvider(email, provider string) (*accountdomain.Account, error) {
	var account accountdomain.Account
	err := r.db.Where("email = ? AND provider = ?", email, provider).First(&account).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

func (r *accountRepository) FindActive() ([]accountdomain.Account, error) {
	var accounts []accountdomain.Account
	err := r.db.Where("active = ?", true).Find(&accounts).Error
	return accounts, err
}

func (r *accountRepository) Deactivate(id string) error {
	return r.db.Model(&accountdomain.Account{}).
		Where("id = ?", id).
		Update("active", false).Error
}

func (r *accountRepository) Reactivate(id string) error {
	return r.db.Model(&accountdomain.Account{}).
		Where("id = ?", id).
		Update("active", true).Error
}

func (r *accountRepository) UpdateSyncState(id string, unreadCount int, syncedAt time.Time) error {
	return r.db.Model(&accountdomain.Account{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"unread_count":   unreadCount,
			"last_synced_at": syncedAt,
		}).Error
}

func (r *accountRepository) UpdateUnreadCount(id string, unreadCount int) error {
	return r.db.Model(&accountdomain.Account{}).
		Where("id = ?", id).
		Update("unread_count", unreadCount).Error
}
