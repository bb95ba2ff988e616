package repository

import (
	"time"

	accountdomain "github.com/Ct1869/omni-inbox-dash-sub000/internal/account/domain"
)

// AccountRepository defines persistence operations for connected mailboxes
type AccountRepository interface {
	Create(account *accountdomain.Account) error
	FindByID(id string) (*accountdomain.Account, error)
	FindByEmailAndProvider(email, provider string) (*accountdomain.Account, error)
	FindActive() ([]accountdomain.Account, error)
	// Deactivate flips active to false; accounts are never deleted
	Deactivate(id string) error
	// Reactivate flips active back to true after a successful reconnect
	Reactivate(id string) error
	// UpdateSyncState stamps unread_count and last_synced_at after a batch
	UpdateSyncState(id string, unreadCount int, syncedAt time.Time) error
	// UpdateUnreadCount refreshes the unread badge without touching last_synced_at
	UpdateUnreadCount(id string, unreadCount int) error
}

// TokenRepository defines persistence operations for per-account OAuth tokens
type TokenRepository interface {
	Upsert(set *accountdomain.OAuthTokenSet) error
	FindByAccountID(accountID string) (*accountdomain.OAuthTokenSet, error)
	// UpdateTokens overwrites the token set in place after a refresh
	UpdateTokens(accountID, accessToken, refreshToken string, expiresAt time.Time) error
}
