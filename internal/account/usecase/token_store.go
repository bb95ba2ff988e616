package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	accountdomain "github.com/Ct1869/omni-inbox-dash-sub000/internal/account/domain"
	accountrepo "github.com/Ct1869/omni-inbox-dash-sub000/internal/account/repository"
	mailrepo "github.com/Ct1869/omni-inbox-dash-sub000/internal/mail/repository"
	"github.com/Ct1869/omni-inbox-dash-sub000/pkg/config"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/microsoft"
	gmailapi "google.golang.org/api/gmail/v1"
)

// ErrAuthExpired signals the refresh token itself was revoked. Terminal: the
// account and its watch registration are deactivated before this is returned,
// and the user must reconnect the mailbox.
var ErrAuthExpired = errors.New("account authorization expired: reconnect required")

// refreshSkew refreshes tokens slightly before their stated expiry so a
// token does not die mid-pagination.
const refreshSkew = 30 * time.Second

// TokenStore supplies valid access tokens on demand, refreshing expired ones
type TokenStore interface {
	ValidAccessToken(ctx context.Context, account *accountdomain.Account) (string, error)
}

// tokenStore implements TokenStore interface
type tokenStore struct {
	tokens   accountrepo.TokenRepository
	accounts accountrepo.AccountRepository
	watches  mailrepo.WatchRegistrationRepository
	configs  map[string]*oauth2.Config
	now      func() time.Time
}

// NewTokenStore creates a new instance of tokenStore. configs maps provider
// name to its OAuth endpoint configuration.
func NewTokenStore(
	tokens accountrepo.TokenRepository,
	accounts accountrepo.AccountRepository,
	watches mailrepo.WatchRegistrationRepository,
	configs map[string]*oauth2.Config,
) TokenStore {
	return &tokenStore{
		tokens:   tokens,
		accounts: accounts,
		watches:  watches,
		configs:  configs,
		now:      time.Now,
	}
}

// GoogleOAuthConfig builds the Gmail token-endpoint configuration
func GoogleOAuthConfig(cfg *config.Config) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{gmailapi.GmailModifyScope, gmailapi.GmailSendScope},
	}
}

// MicrosoftOAuthConfig builds the Outlook token-endpoint configuration
func MicrosoftOAuthConfig(cfg *config.Config) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.MicrosoftClientID,
		ClientSecret: cfg.MicrosoftClientSecret,
		Endpoint:     microsoft.AzureADEndpoint(cfg.MicrosoftTenant),
		Scopes:       []string{"offline_access", "Mail.ReadWrite", "Mail.Send"},
	}
}

func (s *tokenStore) ValidAccessToken(ctx context.Context, account *accountdomain.Account) (string, error) {
	set, err := s.tokens.FindByAccountID(account.ID)
	if err != nil {
		return "", err
	}
	if set == nil {
		return "", fmt.Errorf("no token set stored for account %s", account.ID)
	}

	// Cached token still valid: no provider round-trip
	if set.ExpiresAt.After(s.now().Add(refreshSkew)) {
		return set.AccessToken, nil
	}

	cfg, ok := s.configs[account.Provider]
	if !ok {
		return "", fmt.Errorf("no oauth config for provider %q", account.Provider)
	}

	src := cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: set.RefreshToken})
	tok, err := src.Token()
	if err != nil {
		if isRevocation(err) {
			// Terminal: stop syncing and stop renewing for this account
			if derr := s.accounts.Deactivate(account.ID); derr != nil {
				log.Printf("[TokenStore] failed to deactivate account %s: %v", account.ID, derr)
			}
			if derr := s.watches.DeactivateByAccount(account.ID); derr != nil {
				log.Printf("[TokenStore] failed to deactivate watches for account %s: %v", account.ID, derr)
			}
			account.Active = false
			return "", fmt.Errorf("refresh token for %s rejected: %w", account.Email, ErrAuthExpired)
		}
		return "", fmt.Errorf("token refresh failed: %w", err)
	}

	// Both writers of a concurrent refresh hold valid tokens; last write wins
	if err := s.tokens.UpdateTokens(account.ID, tok.AccessToken, tok.RefreshToken, tok.Expiry); err != nil {
		return "", fmt.Errorf("persist refreshed token: %w", err)
	}

	return tok.AccessToken, nil
}

// isRevocation reports whether a token-endpoint failure means the refresh
// token is dead, as opposed to a transient exchange failure.
func isRevocation(err error) bool {
	var rerr *oauth2.RetrieveError
	if !errors.As(err, &rerr) {
		return false
	}
	if rerr.ErrorCode == "invalid_grant" {
		return true
	}
	body := strings.ToLower(string(rerr.Body))
	return strings.Contains(body, "invalid_grant") ||
		strings.Contains(body, "expired or revoked")
}
