package domain

import (
	"time"

	"gorm.io/datatypes"
)

// CachedMessage is the local copy of one provider message. Rows are upserted
// keyed on (account_id, provider_message_id); the provider is the source of
// truth for everything except SnoozedUntil, which is local-only state.
type CachedMessage struct {
	ID                string         `json:"id" gorm:"primaryKey"`
	AccountID         string         `json:"account_id" gorm:"uniqueIndex:idx_account_provider_message;not null"`
	ProviderMessageID string         `json:"provider_message_id" gorm:"uniqueIndex:idx_account_provider_message;not null"`
	ThreadID          string         `json:"thread_id" gorm:"index"`
	SenderName        string         `json:"sender_name"`
	SenderEmail       string         `json:"sender_email"`
	Subject           string         `json:"subject"`
	Snippet           string         `json:"snippet"`
	BodyHTML          string         `json:"body_html" gorm:"type:text"`
	BodyText          string         `json:"body_text" gorm:"type:text"`
	ReceivedAt        time.Time      `json:"received_at" gorm:"index"`
	IsRead            bool           `json:"is_read" gorm:"index"`
	IsStarred         bool           `json:"is_starred"`
	IsPinned          bool           `json:"is_pinned"`
	HasAttachments    bool           `json:"has_attachments"`
	Labels            datatypes.JSON `json:"labels"`
	SnoozedUntil      *time.Time     `json:"snoozed_until,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}
