package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	accountrepo "github.com/Ct1869/omni-inbox-dash-sub000/internal/account/repository"
	accountusecase "github.com/Ct1869/omni-inbox-dash-sub000/internal/account/usecase"
	maildomain "github.com/Ct1869/omni-inbox-dash-sub000/internal/mail/domain"
	mailrepo "github.com/Ct1869/omni-inbox-dash-sub000/internal/mail/repository"
	"github.com/Ct1869/omni-inbox-dash-sub000/internal/provider"
)

// Registrations are renewed once they fall inside this window. Transient
// renewal failures are simply left for the next scheduled run; the window is
// the retry budget.
const renewalLeadWindow = 24 * time.Hour

// Stats summarizes one renewal sweep
type Stats struct {
	Renewed int `json:"renewed"`
	Failed  int `json:"failed"`
}

// Renewer keeps push-notification registrations alive by renewing them
// before they lapse.
type Renewer struct {
	watches  mailrepo.WatchRegistrationRepository
	accounts accountrepo.AccountRepository
	tokens   accountusecase.TokenStore
	adapters map[string]provider.Adapter
	now      func() time.Time
}

// NewRenewer creates a new Renewer
func NewRenewer(
	watches mailrepo.WatchRegistrationRepository,
	accounts accountrepo.AccountRepository,
	tokens accountusecase.TokenStore,
	adapters map[string]provider.Adapter,
) *Renewer {
	return &Renewer{
		watches:  watches,
		accounts: accounts,
		tokens:   tokens,
		adapters: adapters,
		now:      time.Now,
	}
}

// RenewExpiring renews every active registration expiring within the lead
// window. Auth revocations deactivate the registration and its account; any
// other failure leaves the registration active for the next run.
func (r *Renewer) RenewExpiring(ctx context.Context) (*Stats, error) {
	regs, err := r.watches.FindExpiringActive(r.now().Add(renewalLeadWindow))
	if err != nil {
		return nil, fmt.Errorf("select expiring registrations: %w", err)
	}

	stats := &Stats{}
	for idx := range regs {
		reg := &regs[idx]
		if err := r.renewOne(ctx, reg); err != nil {
			stats.Failed++
			log.Printf("[Renewer] registration %s (account %s): %v", reg.ID, reg.AccountID, err)
		} else {
			stats.Renewed++
		}
	}
	return stats, nil
}

func (r *Renewer) renewOne(ctx context.Context, reg *maildomain.WatchRegistration) error {
	account, err := r.accounts.FindByID(reg.AccountID)
	if err != nil {
		return err
	}
	if account == nil || !account.Active {
		// Dead account: no further renewal attempts
		if err := r.watches.Deactivate(reg.ID); err != nil {
			return err
		}
		return errors.New("owning account is inactive, registration deactivated")
	}

	token, err := r.tokens.ValidAccessToken(ctx, account)
	if err != nil {
		if errors.Is(err, accountusecase.ErrAuthExpired) {
			// Token store already deactivated the account and its watches
			return fmt.Errorf("auth revoked: %w", err)
		}
		return fmt.Errorf("token refresh: %w", err)
	}

	adapter, ok := r.adapters[account.Provider]
	if !ok {
		return fmt.Errorf("no adapter registered for provider %q", account.Provider)
	}

	info, err := adapter.Renew(ctx, token, reg)
	if err != nil {
		if provider.IsAuthError(err) {
			if derr := r.watches.Deactivate(reg.ID); derr != nil {
				log.Printf("[Renewer] failed to deactivate registration %s: %v", reg.ID, derr)
			}
			if derr := r.accounts.Deactivate(account.ID); derr != nil {
				log.Printf("[Renewer] failed to deactivate account %s: %v", account.ID, derr)
			}
			return fmt.Errorf("provider revoked access: %w", err)
		}
		// Transient: leave active, the next scheduled run retries
		return fmt.Errorf("renew call failed: %w", err)
	}

	if err := r.watches.UpdateRenewal(reg.ID, info.SubscriptionID, info.Expiration); err != nil {
		return fmt.Errorf("persist renewal: %w", err)
	}
	if info.HistoryID != "" {
		if err := r.watches.UpdateCursor(reg.ID, info.HistoryID); err != nil {
			log.Printf("[Renewer] failed to update cursor for %s: %v", reg.ID, err)
		}
	}

	log.Printf("[Renewer] renewed registration %s for %s until %s", reg.ID, account.Email, info.Expiration.Format(time.RFC3339))
	return nil
}

// Register creates (or refreshes) the push registration for one account.
func (r *Renewer) Register(ctx context.Context, accountID string) (*maildomain.WatchRegistration, error) {
	account, err := r.accounts.FindByID(accountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, fmt.Errorf("account %s not found", accountID)
	}
	if !account.Active {
		return nil, fmt.Errorf("account %s is deactivated: %w", account.Email, accountusecase.ErrAuthExpired)
	}

	token, err := r.tokens.ValidAccessToken(ctx, account)
	if err != nil {
		return nil, err
	}

	adapter, ok := r.adapters[account.Provider]
	if !ok {
		return nil, fmt.Errorf("no adapter registered for provider %q", account.Provider)
	}

	info, err := adapter.Watch(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("create watch: %w", err)
	}

	reg := &maildomain.WatchRegistration{
		AccountID:      account.ID,
		Provider:       account.Provider,
		SubscriptionID: info.SubscriptionID,
		HistoryID:      info.HistoryID,
		Expiration:     info.Expiration,
		Active:         true,
	}
	if err := r.watches.Upsert(reg); err != nil {
		return nil, fmt.Errorf("persist registration: %w", err)
	}
	return reg, nil
}
