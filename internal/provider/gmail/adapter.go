package gmail

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	nmail "net/mail"
	"strings"
	"time"

	maildomain "github.com/Ct1869/omni-inbox-dash-sub000/internal/mail/domain"
	"github.com/Ct1869/omni-inbox-dash-sub000/internal/provider"
	"github.com/Ct1869/omni-inbox-dash-sub000/pkg/backoff"

	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const (
	user          = "me"
	retryAttempts = 3
	retryBase     = 2 * time.Second
)

// Adapter implements provider.Adapter for Gmail
type Adapter struct {
	topicName string
	opts      []option.ClientOption
}

// NewAdapter creates a Gmail adapter publishing watch notifications to
// topicName. Extra client options are for tests (custom endpoint).
func NewAdapter(topicName string, opts ...option.ClientOption) *Adapter {
	return &Adapter{topicName: topicName, opts: opts}
}

func (a *Adapter) Name() string { return "gmail" }

func (a *Adapter) service(ctx context.Context, accessToken string) (*gmail.Service, error) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})
	opts := append([]option.ClientOption{option.WithTokenSource(ts)}, a.opts...)
	srv, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create Gmail service: %w", err)
	}
	return srv, nil
}

// FetchPage lists one page of message ids, then fetches each message in full.
// Gmail's list response carries ids only, so the secondary detail fetch is
// unavoidable.
func (a *Adapter) FetchPage(ctx context.Context, accessToken, pageToken string, pageSize int64) (*provider.Page, error) {
	srv, err := a.service(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	var listResp *gmail.ListMessagesResponse
	err = backoff.Retry(ctx, retryAttempts, retryBase, func() error {
		call := srv.Users.Messages.List(user).IncludeSpamTrash(false).MaxResults(pageSize)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		var lerr error
		listResp, lerr = call.Context(ctx).Do()
		return classify(lerr)
	})
	if err != nil {
		return nil, fmt.Errorf("unable to list messages: %w", err)
	}

	page := &provider.Page{
		NextPageToken: listResp.NextPageToken,
		FullPage:      int64(len(listResp.Messages)) >= pageSize,
	}

	for _, m := range listResp.Messages {
		var full *gmail.Message
		err = backoff.Retry(ctx, retryAttempts, retryBase, func() error {
			var gerr error
			full, gerr = srv.Users.Messages.Get(user, m.Id).Format("full").Context(ctx).Do()
			return classify(gerr)
		})
		if err != nil {
			if provider.IsAuthError(err) {
				return nil, err
			}
			// Isolated failures must not block the rest of the batch
			log.Printf("[Gmail] skipping message %s: %v", m.Id, err)
			continue
		}
		page.Messages = append(page.Messages, normalize(full))
	}

	return page, nil
}

func (a *Adapter) Send(ctx context.Context, accessToken, fromName, fromEmail, to, subject, body string) (string, error) {
	srv, err := a.service(ctx, accessToken)
	if err != nil {
		return "", err
	}

	var raw bytes.Buffer
	if fromName != "" && fromEmail != "" {
		encodedName := fmt.Sprintf("=?utf-8?B?%s?=", base64.StdEncoding.EncodeToString([]byte(fromName)))
		raw.WriteString(fmt.Sprintf("From: %s <%s>\r\n", encodedName, fromEmail))
	}
	raw.WriteString(fmt.Sprintf("To: %s\r\n", to))
	// Encode subject to handle non-ASCII characters (RFC 2047)
	encodedSubject := fmt.Sprintf("=?utf-8?B?%s?=", base64.StdEncoding.EncodeToString([]byte(subject)))
	raw.WriteString(fmt.Sprintf("Subject: %s\r\n", encodedSubject))
	raw.WriteString("MIME-Version: 1.0\r\n")
	raw.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n")
	raw.WriteString(body)

	msg := &gmail.Message{
		Raw: base64.URLEncoding.EncodeToString(raw.Bytes()),
	}

	var sent *gmail.Message
	err = backoff.Retry(ctx, retryAttempts, retryBase, func() error {
		var serr error
		sent, serr = srv.Users.Messages.Send(user, msg).Context(ctx).Do()
		return classify(serr)
	})
	if err != nil {
		return "", fmt.Errorf("unable to send message: %w", err)
	}
	return sent.Id, nil
}

func (a *Adapter) MarkRead(ctx context.Context, accessToken string, messageIDs []string, read bool) error {
	srv, err := a.service(ctx, accessToken)
	if err != nil {
		return err
	}

	modifyReq := &gmail.ModifyMessageRequest{}
	if read {
		modifyReq.RemoveLabelIds = []string{"UNREAD"}
	} else {
		modifyReq.AddLabelIds = []string{"UNREAD"}
	}

	for _, id := range messageIDs {
		err = backoff.Retry(ctx, retryAttempts, retryBase, func() error {
			_, merr := srv.Users.Messages.Modify(user, id, modifyReq).Context(ctx).Do()
			return classify(merr)
		})
		if err != nil {
			return fmt.Errorf("unable to modify message %s: %w", id, err)
		}
	}
	return nil
}

func (a *Adapter) SetStarred(ctx context.Context, accessToken string, messageIDs []string, starred bool) error {
	srv, err := a.service(ctx, accessToken)
	if err != nil {
		return err
	}

	modifyReq := &gmail.ModifyMessageRequest{}
	if starred {
		modifyReq.AddLabelIds = []string{"STARRED"}
	} else {
		modifyReq.RemoveLabelIds = []string{"STARRED"}
	}

	for _, id := range messageIDs {
		err = backoff.Retry(ctx, retryAttempts, retryBase, func() error {
			_, merr := srv.Users.Messages.Modify(user, id, modifyReq).Context(ctx).Do()
			return classify(merr)
		})
		if err != nil {
			return fmt.Errorf("unable to star message %s: %w", id, err)
		}
	}
	return nil
}

func (a *Adapter) Delete(ctx context.Context, accessToken string, messageIDs []string) error {
	srv, err := a.service(ctx, accessToken)
	if err != nil {
		return err
	}
	for _, id := range messageIDs {
		err = backoff.Retry(ctx, retryAttempts, retryBase, func() error {
			_, terr := srv.Users.Messages.Trash(user, id).Context(ctx).Do()
			return classify(terr)
		})
		if err != nil {
			return fmt.Errorf("unable to trash message %s: %w", id, err)
		}
	}
	return nil
}

// Watch registers push notifications on the configured Pub/Sub topic. Any
// existing watch is stopped first to avoid Gmail's one-client limit.
func (a *Adapter) Watch(ctx context.Context, accessToken string) (*provider.WatchInfo, error) {
	srv, err := a.service(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	_ = srv.Users.Stop(user).Context(ctx).Do()

	req := &gmail.WatchRequest{
		TopicName: a.topicName,
		LabelIds:  []string{"INBOX"},
	}

	var resp *gmail.WatchResponse
	err = backoff.Retry(ctx, retryAttempts, retryBase, func() error {
		var werr error
		resp, werr = srv.Users.Watch(user, req).Context(ctx).Do()
		return classify(werr)
	})
	if err != nil {
		return nil, fmt.Errorf("unable to watch mailbox: %w", err)
	}

	return &provider.WatchInfo{
		SubscriptionID: a.topicName,
		HistoryID:      fmt.Sprintf("%d", resp.HistoryId),
		Expiration:     time.UnixMilli(resp.Expiration),
	}, nil
}

// Renew re-issues the watch call; Gmail has no separate renewal endpoint.
func (a *Adapter) Renew(ctx context.Context, accessToken string, _ *maildomain.WatchRegistration) (*provider.WatchInfo, error) {
	return a.Watch(ctx, accessToken)
}

func (a *Adapter) Stop(ctx context.Context, accessToken string, _ *maildomain.WatchRegistration) error {
	srv, err := a.service(ctx, accessToken)
	if err != nil {
		return err
	}
	if err := srv.Users.Stop(user).Context(ctx).Do(); err != nil {
		return fmt.Errorf("unable to stop mailbox watch: %w", err)
	}
	return nil
}

// classify maps a Gmail API error onto the retry taxonomy: 429 carries its
// Retry-After, 5xx stays retryable, auth failures and other 4xx are permanent.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		// Network-level failure, retryable
		return err
	}
	switch {
	case gerr.Code == http.StatusTooManyRequests:
		return &provider.RateLimitError{Wait: retryAfterHeader(gerr.Header)}
	case gerr.Code == http.StatusUnauthorized || gerr.Code == http.StatusForbidden:
		return backoff.Permanent(&provider.AuthError{Err: gerr})
	case gerr.Code >= 500:
		return err
	default:
		return backoff.Permanent(err)
	}
}

func retryAfterHeader(h http.Header) time.Duration {
	if h == nil {
		return retryBase
	}
	if v := h.Get("Retry-After"); v != "" {
		if d, err := time.ParseDuration(v + "s"); err == nil {
			return d
		}
	}
	return retryBase
}

// normalize converts a full Gmail message into cached-message fields
func normalize(msg *gmail.Message) maildomain.CachedMessage {
	from := getHeader(msg.Payload, "From")
	senderName, senderEmail := parseAddress(from)

	htmlBody, textBody := extractBodies(msg.Payload)
	snippet := msg.Snippet
	if htmlBody == "" && textBody == "" {
		// Neither part present: fall back to the provider-supplied snippet
		textBody = snippet
	}

	labels, _ := json.Marshal(msg.LabelIds)

	return maildomain.CachedMessage{
		ProviderMessageID: msg.Id,
		ThreadID:          msg.ThreadId,
		SenderName:        senderName,
		SenderEmail:       senderEmail,
		Subject:           getHeader(msg.Payload, "Subject"),
		Snippet:           snippet,
		BodyHTML:          htmlBody,
		BodyText:          textBody,
		ReceivedAt:        time.UnixMilli(msg.InternalDate),
		IsRead:            !hasLabel(msg.LabelIds, "UNREAD"),
		IsStarred:         hasLabel(msg.LabelIds, "STARRED"),
		HasAttachments:    hasAttachments(msg.Payload),
		Labels:            labels,
	}
}

func getHeader(payload *gmail.MessagePart, name string) string {
	if payload == nil {
		return ""
	}
	for _, header := range payload.Headers {
		if strings.EqualFold(header.Name, name) {
			return header.Value
		}
	}
	return ""
}

func parseAddress(from string) (name, email string) {
	addr, err := nmail.ParseAddress(from)
	if err != nil {
		return from, from
	}
	name = addr.Name
	if name == "" {
		name = addr.Address
	}
	return name, addr.Address
}

// extractBodies walks the MIME tree recursively; the first text/html part
// found wins for HTML, the first text/plain wins for text.
func extractBodies(payload *gmail.MessagePart) (htmlBody, textBody string) {
	if payload == nil {
		return "", ""
	}

	if payload.Body != nil && payload.Body.Data != "" && len(payload.Parts) == 0 {
		if data, err := base64.URLEncoding.DecodeString(payload.Body.Data); err == nil {
			if payload.MimeType == "text/html" {
				return string(data), ""
			}
			return "", string(data)
		}
	}

	var walk func(parts []*gmail.MessagePart)
	walk = func(parts []*gmail.MessagePart) {
		for _, part := range parts {
			if part.Body != nil && part.Body.Data != "" {
				data, err := base64.URLEncoding.DecodeString(part.Body.Data)
				if err == nil {
					if part.MimeType == "text/html" && htmlBody == "" {
						htmlBody = string(data)
					} else if part.MimeType == "text/plain" && textBody == "" {
						textBody = string(data)
					}
				}
			}
			if len(part.Parts) > 0 {
				walk(part.Parts)
			}
		}
	}
	walk(payload.Parts)
	return htmlBody, textBody
}

func hasAttachments(payload *gmail.MessagePart) bool {
	if payload == nil {
		return false
	}
	var found bool
	var walk func(parts []*gmail.MessagePart)
	walk = func(parts []*gmail.MessagePart) {
		for _, part := range parts {
			if part.Filename != "" && part.Body != nil && part.Body.AttachmentId != "" {
				found = true
				return
			}
			if len(part.Parts) > 0 {
				walk(part.Parts)
			}
		}
	}
	walk(payload.Parts)
	return found
}

func hasLabel(labels []string, labelID string) bool {
	for _, label := range labels {
		if label == labelID {
			return true
		}
	}
	return false
}
