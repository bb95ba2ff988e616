package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"

	accountrepo "github.com/Ct1869/omni-inbox-dash-sub000/internal/account/repository"
	accountusecase "github.com/Ct1869/omni-inbox-dash-sub000/internal/account/usecase"
	mailrepo "github.com/Ct1869/omni-inbox-dash-sub000/internal/mail/repository"
	"github.com/Ct1869/omni-inbox-dash-sub000/internal/provider"
)

// Bulk action names accepted over the API
const (
	ActionMarkRead   = "markRead"
	ActionMarkUnread = "markUnread"
	ActionDelete     = "delete"
	ActionStar       = "star"
)

// ErrUnknownAction is returned for a bulk action name the service does not
// support.
var ErrUnknownAction = errors.New("unknown bulk action")

// ActionService pushes user-initiated changes out to the provider and mirrors
// them into the local cache so reads stay consistent without waiting for the
// next sync.
type ActionService struct {
	accounts accountrepo.AccountRepository
	messages mailrepo.MessageRepository
	tokens   accountusecase.TokenStore
	adapters map[string]provider.Adapter
}

// NewActionService creates a new ActionService
func NewActionService(
	accounts accountrepo.AccountRepository,
	messages mailrepo.MessageRepository,
	tokens accountusecase.TokenStore,
	adapters map[string]provider.Adapter,
) *ActionService {
	return &ActionService{
		accounts: accounts,
		messages: messages,
		tokens:   tokens,
		adapters: adapters,
	}
}

func (s *ActionService) resolve(ctx context.Context, accountID string) (string, provider.Adapter, string, error) {
	account, err := s.accounts.FindByID(accountID)
	if err != nil {
		return "", nil, "", err
	}
	if account == nil {
		return "", nil, "", fmt.Errorf("account %s not found", accountID)
	}
	if !account.Active {
		return "", nil, "", fmt.Errorf("account %s is deactivated: %w", account.Email, accountusecase.ErrAuthExpired)
	}

	adapter, ok := s.adapters[account.Provider]
	if !ok {
		return "", nil, "", fmt.Errorf("no adapter registered for provider %q", account.Provider)
	}

	token, err := s.tokens.ValidAccessToken(ctx, account)
	if err != nil {
		return "", nil, "", err
	}
	return token, adapter, account.Email, nil
}

// Send sends a plain message through the account's provider and returns the
// provider-assigned message id (empty for providers that do not report one).
func (s *ActionService) Send(ctx context.Context, accountID, to, subject, body string) (string, error) {
	token, adapter, fromEmail, err := s.resolve(ctx, accountID)
	if err != nil {
		return "", err
	}

	messageID, err := adapter.Send(ctx, token, "", fromEmail, to, subject, body)
	if err != nil {
		return "", fmt.Errorf("send via %s: %w", adapter.Name(), err)
	}
	log.Printf("[Actions] sent message from %s to %s", fromEmail, to)
	return messageID, nil
}

// Bulk applies one action to a set of provider message ids. The provider call
// happens first; the cache is only updated once the provider accepted the
// change.
func (s *ActionService) Bulk(ctx context.Context, accountID string, messageIDs []string, action string) error {
	if len(messageIDs) == 0 {
		return nil
	}

	token, adapter, _, err := s.resolve(ctx, accountID)
	if err != nil {
		return err
	}

	switch action {
	case ActionMarkRead:
		if err := adapter.MarkRead(ctx, token, messageIDs, true); err != nil {
			return err
		}
		if err := s.messages.SetRead(accountID, messageIDs, true); err != nil {
			return err
		}
	case ActionMarkUnread:
		if err := adapter.MarkRead(ctx, token, messageIDs, false); err != nil {
			return err
		}
		if err := s.messages.SetRead(accountID, messageIDs, false); err != nil {
			return err
		}
	case ActionStar:
		if err := adapter.SetStarred(ctx, token, messageIDs, true); err != nil {
			return err
		}
		if err := s.messages.SetStarred(accountID, messageIDs, true); err != nil {
			return err
		}
	case ActionDelete:
		if err := adapter.Delete(ctx, token, messageIDs); err != nil {
			return err
		}
		if err := s.messages.DeleteByProviderIDs(accountID, messageIDs); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}

	// Read state changed, keep the cached unread badge honest
	if action == ActionMarkRead || action == ActionMarkUnread || action == ActionDelete {
		if err := s.refreshUnread(accountID); err != nil {
			log.Printf("[Actions] failed to refresh unread count for %s: %v", accountID, err)
		}
	}
	return nil
}

func (s *ActionService) refreshUnread(accountID string) error {
	unread, err := s.messages.CountUnread(accountID)
	if err != nil {
		return err
	}
	return s.accounts.UpdateUnreadCount(accountID, int(unread))
}
