package repository

import (
	maildomain "github.com/Ct1869/omni-inbox-dash-sub000/internal/mail/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// messageRepository implements MessageRepository interface
type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository creates a new instance of messageRepository
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{
		db: db,
	}
}

// providerColumns are the fields the provider owns; they are overwritten on
// every upsert. id, created_at and snoozed_until deliberately stay put.
var providerColumns = []string{
	"thread_id", "sender_name", "sender_email", "subject", "snippet",
	"body_html", "body_text", "received_at", "is_read", "is_starred",
	"is_pinned", "has_attachments", "labels", "updated_at",
}

func (r *messageRepository) Upsert(msg *maildomain.CachedMessage) error {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "account_id"}, {Name: "provider_message_id"}},
		DoUpdates: clause.AssignmentColumns(providerColumns),
	}).Create(msg).Error
}

func (r *messageRepository) FindByProviderID(accountID, providerMessageID string) (*maildomain.CachedMessage, error) {
	var msg maildomain.CachedMessage
	err := r.db.Where("account_id = ? AND provider_message_id = ?", accountID, providerMessageID).First(&msg).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &msg, nil
}

func (r *messageRepository) CountByAccount(accountID string) (int64, error) {
	var count int64
	err := r.db.Model(&maildomain.CachedMessage{}).
		Where("account_id = ?", accountID).
		Count(&count).Error
	return count, err
}

func (r *messageRepository) CountUnread(accountID string) (int64, error) {
	var count int64
	err := r.db.Model(&maildomain.CachedMessage{}).
		Where("account_id = ? AND is_read = ?", accountID, false).
		Count(&count).Error
	return count, err
}

func (r *messageRepository) SetRead(accountID string, providerMessageIDs []string, read bool) error {
	return r.db.Model(&maildomain.CachedMessage{}).
		Where("account_id = ? AND provider_message_id IN ?", accountID, providerMessageIDs).
		Update("is_read", read).Error
}

func (r *messageRepository) SetStarred(accountID string, providerMessageIDs []string, starred bool) error {
	return r.db.Model(&maildomain.CachedMessage{}).
		Where("account_id = ? AND provider_message_id IN ?", accountID, providerMessageIDs).
		Update("is_starred", starred).Error
}

func (r *messageRepository) DeleteByProviderIDs(accountID string, providerMessageIDs []string) error {
	return r.db.
		Where("account_id = ? AND provider_message_id IN ?", accountID, providerMessageIDs).
		Delete(&maildomain.CachedMessage{}).Error
}
