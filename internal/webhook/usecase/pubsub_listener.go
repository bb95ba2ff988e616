package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"
)

// PubSubListener is the pull-based alternative to HTTP push ingress: it
// subscribes to the Gmail notification topic directly and feeds the same
// webhook queue. Useful when the service is not reachable for push delivery.
type PubSubListener struct {
	client    *pubsub.Client
	ingress   *Ingress
	topicName string
	subName   string

	// Last historyId seen per mailbox, to drop the duplicate deliveries
	// Pub/Sub is allowed to make
	mu            sync.Mutex
	lastHistoryID map[string]uint64
}

// NewPubSubListener creates a new PubSubListener on projectID/topicName. The
// subscription name follows the topic-sub convention.
func NewPubSubListener(ctx context.Context, projectID, topicName, credentialsFile string, ingress *Ingress) (*PubSubListener, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create pubsub client: %w", err)
	}

	return &PubSubListener{
		client:        client,
		ingress:       ingress,
		topicName:     topicName,
		subName:       topicName + "-sub",
		lastHistoryID: make(map[string]uint64),
	}, nil
}

// Start ensures the subscription exists and blocks receiving messages until
// ctx is cancelled. Every message is acked: the durable retry state lives in
// the webhook queue, not in Pub/Sub redelivery.
func (l *PubSubListener) Start(ctx context.Context) {
	log.Printf("[PubSub] starting listener on topic %s, subscription %s", l.topicName, l.subName)

	sub := l.client.Subscription(l.subName)
	exists, err := sub.Exists(ctx)
	if err != nil {
		log.Printf("[PubSub] error checking subscription existence: %v", err)
		return
	}

	if !exists {
		topic := l.client.Topic(l.topicName)
		topicExists, err := topic.Exists(ctx)
		if err != nil {
			log.Printf("[PubSub] error checking topic existence: %v", err)
			return
		}
		if !topicExists {
			log.Printf("[PubSub] topic %s does not exist, cannot create subscription", l.topicName)
			return
		}

		sub, err = l.client.CreateSubscription(ctx, l.subName, pubsub.SubscriptionConfig{
			Topic:       topic,
			AckDeadline: 10 * time.Second,
		})
		if err != nil {
			log.Printf("[PubSub] failed to create subscription: %v", err)
			return
		}
		log.Printf("[PubSub] created subscription %s", l.subName)
	}

	err = sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		l.handleMessage(msg)
		msg.Ack()
	})
	if err != nil {
		log.Printf("[PubSub] receive loop ended: %v", err)
	}
}

func (l *PubSubListener) handleMessage(msg *pubsub.Message) {
	var notification GmailNotification
	if err := json.Unmarshal(msg.Data, &notification); err != nil {
		log.Printf("[PubSub] failed to unmarshal notification: %v", err)
		return
	}

	l.mu.Lock()
	last, seen := l.lastHistoryID[notification.EmailAddress]
	if seen && notification.HistoryID <= last {
		l.mu.Unlock()
		log.Printf("[PubSub] skipping duplicate notification for %s (historyId %d <= %d)", notification.EmailAddress, notification.HistoryID, last)
		return
	}
	l.lastHistoryID[notification.EmailAddress] = notification.HistoryID
	l.mu.Unlock()

	if _, err := l.ingress.EnqueueGmail(notification); err != nil {
		log.Printf("[PubSub] failed to enqueue notification for %s: %v", notification.EmailAddress, err)
	}
}
