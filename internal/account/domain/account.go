package domain

import "time"

const (
	ProviderGmail   = "gmail"
	ProviderOutlook = "outlook"
)

// Account is one connected mailbox. Accounts are created on a successful
// OAuth callback and deactivated (never deleted) when the refresh token is
// revoked.
type Account struct {
	ID           string     `json:"id" gorm:"primaryKey"`
	Email        string     `json:"email" gorm:"uniqueIndex:idx_email_provider;not null"`
	Provider     string     `json:"provider" gorm:"uniqueIndex:idx_email_provider;not null"` // "gmail" or "outlook"
	Active       bool       `json:"active" gorm:"index"`
	LastSyncedAt *time.Time `json:"last_synced_at"`
	UnreadCount  int        `json:"unread_count"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// OAuthTokenSet holds the provider tokens for exactly one account. It is
// mutated in place on every refresh, never historized.
type OAuthTokenSet struct {
	ID           string    `json:"id" gorm:"primaryKey"`
	AccountID    string    `json:"account_id" gorm:"uniqueIndex;not null"`
	AccessToken  string    `json:"-"`
	RefreshToken string    `json:"-"`
	ExpiresAt    time.Time `json:"expires_at"`
	Scope        string    `json:"scope"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
