package usecase

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"strconv"

	accountdomain "github.com/Ct1869/omni-inbox-dash-sub000/internal/account/domain"
	accountrepo "github.com/Ct1869/omni-inbox-dash-sub000/internal/account/repository"
	maildomain "github.com/Ct1869/omni-inbox-dash-sub000/internal/mail/domain"
	mailrepo "github.com/Ct1869/omni-inbox-dash-sub000/internal/mail/repository"
)

// PubSubPushEnvelope is the wrapper Google Pub/Sub wraps around a Gmail
// notification when delivering over HTTP push.
type PubSubPushEnvelope struct {
	Message struct {
		Data      string `json:"data"`
		MessageID string `json:"messageId"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

// GmailNotification is the payload inside the Pub/Sub envelope
type GmailNotification struct {
	EmailAddress string `json:"emailAddress"`
	HistoryID    uint64 `json:"historyId"`
}

// OutlookNotification is one entry of a Graph change notification batch
type OutlookNotification struct {
	SubscriptionID string `json:"subscriptionId"`
	ChangeType     string `json:"changeType"`
	Resource       string `json:"resource"`
	ClientState    string `json:"clientState"`
	ResourceData   struct {
		ID string `json:"id"`
	} `json:"resourceData"`
}

// OutlookNotificationBatch is the POST body Graph delivers
type OutlookNotificationBatch struct {
	Value []OutlookNotification `json:"value"`
}

// Ingress decodes provider push notifications and enqueues work. It never
// fetches from the provider synchronously: the HTTP response must go out
// before the provider's delivery timeout.
type Ingress struct {
	accounts    accountrepo.AccountRepository
	watches     mailrepo.WatchRegistrationRepository
	queue       mailrepo.WebhookQueueRepository
	clientState string
}

// NewIngress creates a new Ingress. clientState, when non-empty, must match
// the value echoed in Outlook notifications.
func NewIngress(
	accounts accountrepo.AccountRepository,
	watches mailrepo.WatchRegistrationRepository,
	queue mailrepo.WebhookQueueRepository,
	clientState string,
) *Ingress {
	return &Ingress{
		accounts:    accounts,
		watches:     watches,
		queue:       queue,
		clientState: clientState,
	}
}

// HandleGmailPush decodes the Pub/Sub push envelope and enqueues the
// notification. Returns whether a queue row was created; unknown or inactive
// targets are dropped without error so the caller still acks.
func (i *Ingress) HandleGmailPush(envelope *PubSubPushEnvelope) (bool, error) {
	data, err := base64.StdEncoding.DecodeString(envelope.Message.Data)
	if err != nil {
		return false, fmt.Errorf("decode pubsub data: %w", err)
	}

	var notification GmailNotification
	if err := json.Unmarshal(data, &notification); err != nil {
		return false, fmt.Errorf("unmarshal gmail notification: %w", err)
	}

	return i.EnqueueGmail(notification)
}

// EnqueueGmail resolves a Gmail notification to an active account and watch
// registration and inserts a pending queue item.
func (i *Ingress) EnqueueGmail(notification GmailNotification) (bool, error) {
	account, err := i.accounts.FindByEmailAndProvider(notification.EmailAddress, accountdomain.ProviderGmail)
	if err != nil {
		return false, err
	}
	if account == nil || !account.Active {
		log.Printf("[Ingress] dropping gmail notification for unknown or inactive mailbox %s", notification.EmailAddress)
		return false, nil
	}

	reg, err := i.watches.FindActiveByAccount(account.ID)
	if err != nil {
		return false, err
	}
	if reg == nil {
		log.Printf("[Ingress] dropping gmail notification for %s: no active watch registration", notification.EmailAddress)
		return false, nil
	}

	historyID := strconv.FormatUint(notification.HistoryID, 10)
	if err := i.watches.UpdateCursor(reg.ID, historyID); err != nil {
		log.Printf("[Ingress] failed to advance cursor for watch %s: %v", reg.ID, err)
	}

	item := &maildomain.WebhookQueueItem{
		AccountID:  account.ID,
		Provider:   accountdomain.ProviderGmail,
		ChangeType: "history_updated",
		HistoryID:  historyID,
	}
	if err := i.queue.Enqueue(item); err != nil {
		return false, fmt.Errorf("enqueue gmail notification: %w", err)
	}
	return true, nil
}

// HandleOutlookBatch enqueues each resolvable notification in a Graph batch
// and returns how many were accepted.
func (i *Ingress) HandleOutlookBatch(batch *OutlookNotificationBatch) (int, error) {
	enqueued := 0
	for _, n := range batch.Value {
		if i.clientState != "" && n.ClientState != i.clientState {
			log.Printf("[Ingress] dropping outlook notification for subscription %s: client state mismatch", n.SubscriptionID)
			continue
		}

		reg, err := i.watches.FindBySubscriptionID(n.SubscriptionID)
		if err != nil {
			return enqueued, err
		}
		if reg == nil || !reg.Active {
			log.Printf("[Ingress] dropping outlook notification for unknown subscription %s", n.SubscriptionID)
			continue
		}

		account, err := i.accounts.FindByID(reg.AccountID)
		if err != nil {
			return enqueued, err
		}
		if account == nil || !account.Active {
			log.Printf("[Ingress] dropping outlook notification for inactive account %s", reg.AccountID)
			continue
		}

		item := &maildomain.WebhookQueueItem{
			AccountID:  account.ID,
			Provider:   accountdomain.ProviderOutlook,
			ChangeType: n.ChangeType,
			HistoryID:  n.ResourceData.ID,
		}
		if err := i.queue.Enqueue(item); err != nil {
			return enqueued, fmt.Errorf("enqueue outlook notification: %w", err)
		}
		enqueued++
	}
	return enqueued, nil
}
