package usecase

import (
	"errors"
	"time"

	accountrepo "github.com/Ct1869/omni-inbox-dash-sub000/internal/account/repository"
	maildomain "github.com/Ct1869/omni-inbox-dash-sub000/internal/mail/domain"
	mailrepo "github.com/Ct1869/omni-inbox-dash-sub000/internal/mail/repository"
)

// Reconciler merges freshly fetched provider messages into the local cache
// without duplication. Upserts are idempotent by (account, provider message
// id); repeated syncs of the same message never create a second row.
type Reconciler struct {
	messages mailrepo.MessageRepository
	accounts accountrepo.AccountRepository
	now      func() time.Time
}

// NewReconciler creates a new Reconciler
func NewReconciler(messages mailrepo.MessageRepository, accounts accountrepo.AccountRepository) *Reconciler {
	return &Reconciler{
		messages: messages,
		accounts: accounts,
		now:      time.Now,
	}
}

// Upsert writes one normalized message into the cache. Provider-sourced
// fields are overwritten unconditionally; local state such as snoozed_until
// is preserved on existing rows.
func (r *Reconciler) Upsert(accountID string, msg maildomain.CachedMessage) error {
	if msg.ProviderMessageID == "" {
		return errors.New("normalized message missing provider message id")
	}
	msg.AccountID = accountID
	return r.messages.Upsert(&msg)
}

// FinishBatch recomputes the account's unread count and stamps
// last_synced_at. The recount is O(n) over cached messages, which is fine
// because syncs are infrequent relative to reads.
func (r *Reconciler) FinishBatch(accountID string) error {
	unread, err := r.messages.CountUnread(accountID)
	if err != nil {
		return err
	}
	return r.accounts.UpdateSyncState(accountID, int(unread), r.now())
}
