// Package provider defines the uniform contract both mail providers are
// adapted to. An adapter is selected once per account and passed down, so no
// call site branches on the provider string.
package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	maildomain "github.com/Ct1869/omni-inbox-dash-sub000/internal/mail/domain"
)

// Page is one batch of normalized messages. FullPage tells the caller the
// provider returned as many messages as asked for, i.e. more data may exist
// even when NextPageToken is empty.
type Page struct {
	Messages      []maildomain.CachedMessage
	NextPageToken string
	FullPage      bool
}

// WatchInfo describes a live push registration on the provider side.
type WatchInfo struct {
	SubscriptionID string
	HistoryID      string
	Expiration     time.Time
}

// Adapter encapsulates one provider's pagination, field mapping and
// rate-limit behavior. All calls take a bearer access token; token refresh is
// the token store's job, not the adapter's.
type Adapter interface {
	Name() string

	// FetchPage fetches up to pageSize messages, resuming from pageToken
	// when non-empty. Transient failures and 429s are retried internally
	// with capped exponential backoff before an error is surfaced.
	FetchPage(ctx context.Context, accessToken, pageToken string, pageSize int64) (*Page, error)

	Send(ctx context.Context, accessToken, fromName, fromEmail, to, subject, body string) (string, error)
	MarkRead(ctx context.Context, accessToken string, messageIDs []string, read bool) error
	SetStarred(ctx context.Context, accessToken string, messageIDs []string, starred bool) error
	Delete(ctx context.Context, accessToken string, messageIDs []string) error

	Watch(ctx context.Context, accessToken string) (*WatchInfo, error)
	Renew(ctx context.Context, accessToken string, reg *maildomain.WatchRegistration) (*WatchInfo, error)
	Stop(ctx context.Context, accessToken string, reg *maildomain.WatchRegistration) error
}

// RateLimitError is a 429 from the provider carrying the mandated wait.
type RateLimitError struct {
	Wait time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("provider rate limited, retry after %s", e.Wait)
}

// RetryAfter reports the server-mandated wait; picked up by backoff.Retry.
func (e *RateLimitError) RetryAfter() time.Duration { return e.Wait }

// AuthError is a 401/403 signalling the token is no longer accepted.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string { return "provider rejected credentials: " + e.Err.Error() }
func (e *AuthError) Unwrap() error { return e.Err }

// IsAuthError reports whether err is (or wraps) a provider auth rejection.
func IsAuthError(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}
