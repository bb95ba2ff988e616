package domain

import "time"

// WatchRegistration is a provider-side push registration: a Gmail watch or an
// Outlook Graph subscription. It must be renewed before Expiration or push
// delivery stops. Deactivated together with the account on auth revocation.
type WatchRegistration struct {
	ID             string    `json:"id" gorm:"primaryKey"`
	AccountID      string    `json:"account_id" gorm:"index;not null"`
	Provider       string    `json:"provider"`
	SubscriptionID string    `json:"subscription_id" gorm:"index"`
	HistoryID      string    `json:"history_id"`
	Expiration     time.Time `json:"expiration" gorm:"index"`
	Active         bool      `json:"active" gorm:"index"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
