package outlook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	maildomain "github.com/Ct1869/omni-inbox-dash-sub000/internal/mail/domain"
	"github.com/Ct1869/omni-inbox-dash-sub000/internal/provider"
	"github.com/Ct1869/omni-inbox-dash-sub000/pkg/backoff"
)

const (
	defaultBaseURL = "https://graph.microsoft.com/v1.0"

	// One $select'ed list call carries everything we cache; no per-message
	// detail fetch like Gmail.
	selectFields = "id,conversationId,subject,from,bodyPreview,body,receivedDateTime,isRead,categories,hasAttachments"

	maxConcurrentRequests = 4
	minRequestInterval    = 100 * time.Millisecond
	retryAttempts         = 3
	retryBase             = 2 * time.Second

	// Graph caps message subscriptions at roughly three days
	subscriptionLifetime = 4230 * time.Minute
)

// Adapter implements provider.Adapter for Outlook via Microsoft Graph REST
type Adapter struct {
	baseURL         string
	notificationURL string
	clientState     string
	limiter         *requestLimiter
	httpClient      *http.Client
}

// NewAdapter creates an Outlook adapter. notificationURL is where Graph
// delivers subscription webhooks; clientState is echoed back in them.
func NewAdapter(notificationURL, clientState string) *Adapter {
	return &Adapter{
		baseURL:         defaultBaseURL,
		notificationURL: notificationURL,
		clientState:     clientState,
		limiter:         newRequestLimiter(maxConcurrentRequests, minRequestInterval),
		httpClient:      &http.Client{Timeout: 30 * time.Second},
	}
}

// WithBaseURL points the adapter at a different Graph endpoint (tests).
func (a *Adapter) WithBaseURL(base string) *Adapter {
	a.baseURL = strings.TrimRight(base, "/")
	return a
}

func (a *Adapter) Name() string { return "outlook" }

type graphRecipient struct {
	EmailAddress struct {
		Name    string `json:"name"`
		Address string `json:"address"`
	} `json:"emailAddress"`
}

type graphItemBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

type graphMessage struct {
	ID               string          `json:"id"`
	ConversationID   string          `json:"conversationId"`
	Subject          string          `json:"subject"`
	From             *graphRecipient `json:"from"`
	BodyPreview      string          `json:"bodyPreview"`
	Body             *graphItemBody  `json:"body"`
	ReceivedDateTime time.Time       `json:"receivedDateTime"`
	IsRead           bool            `json:"isRead"`
	Categories       []string        `json:"categories"`
	HasAttachments   bool            `json:"hasAttachments"`
}

type listMessagesResponse struct {
	Value    []graphMessage `json:"value"`
	NextLink string         `json:"@odata.nextLink"`
}

// FetchPage pulls one page of messages. The page token is either a full
// @odata.nextLink URL or a bare $skiptoken value.
func (a *Adapter) FetchPage(ctx context.Context, accessToken, pageToken string, pageSize int64) (*provider.Page, error) {
	reqURL := a.listURL(pageToken, pageSize)

	var resp listMessagesResponse
	err := backoff.Retry(ctx, retryAttempts, retryBase, func() error {
		return a.do(ctx, accessToken, http.MethodGet, reqURL, nil, &resp)
	})
	if err != nil {
		return nil, fmt.Errorf("unable to list messages: %w", err)
	}

	page := &provider.Page{
		NextPageToken: resp.NextLink,
		FullPage:      int64(len(resp.Value)) >= pageSize,
	}
	for _, m := range resp.Value {
		page.Messages = append(page.Messages, normalize(m))
	}
	return page, nil
}

func (a *Adapter) listURL(pageToken string, pageSize int64) string {
	if strings.HasPrefix(pageToken, "http://") || strings.HasPrefix(pageToken, "https://") {
		return pageToken
	}
	q := url.Values{}
	q.Set("$select", selectFields)
	q.Set("$top", strconv.FormatInt(pageSize, 10))
	q.Set("$orderby", "receivedDateTime DESC")
	if pageToken != "" {
		q.Set("$skiptoken", pageToken)
	}
	return a.baseURL + "/me/messages?" + q.Encode()
}

func (a *Adapter) Send(ctx context.Context, accessToken, fromName, fromEmail, to, subject, body string) (string, error) {
	payload := map[string]interface{}{
		"message": map[string]interface{}{
			"subject": subject,
			"body": map[string]string{
				"contentType": "HTML",
				"content":     body,
			},
			"toRecipients": []map[string]interface{}{
				{"emailAddress": map[string]string{"address": to}},
			},
		},
		"saveToSentItems": true,
	}
	err := backoff.Retry(ctx, retryAttempts, retryBase, func() error {
		return a.do(ctx, accessToken, http.MethodPost, a.baseURL+"/me/sendMail", payload, nil)
	})
	if err != nil {
		return "", fmt.Errorf("unable to send message: %w", err)
	}
	// Graph returns 202 with no body, so no provider message id to report
	return "", nil
}

func (a *Adapter) MarkRead(ctx context.Context, accessToken string, messageIDs []string, read bool) error {
	for _, id := range messageIDs {
		reqURL := a.baseURL + "/me/messages/" + url.PathEscape(id)
		err := backoff.Retry(ctx, retryAttempts, retryBase, func() error {
			return a.do(ctx, accessToken, http.MethodPatch, reqURL, map[string]bool{"isRead": read}, nil)
		})
		if err != nil {
			return fmt.Errorf("unable to modify message %s: %w", id, err)
		}
	}
	return nil
}

func (a *Adapter) SetStarred(ctx context.Context, accessToken string, messageIDs []string, starred bool) error {
	status := "notFlagged"
	if starred {
		status = "flagged"
	}
	payload := map[string]interface{}{
		"flag": map[string]string{"flagStatus": status},
	}
	for _, id := range messageIDs {
		reqURL := a.baseURL + "/me/messages/" + url.PathEscape(id)
		err := backoff.Retry(ctx, retryAttempts, retryBase, func() error {
			return a.do(ctx, accessToken, http.MethodPatch, reqURL, payload, nil)
		})
		if err != nil {
			return fmt.Errorf("unable to flag message %s: %w", id, err)
		}
	}
	return nil
}

func (a *Adapter) Delete(ctx context.Context, accessToken string, messageIDs []string) error {
	for _, id := range messageIDs {
		reqURL := a.baseURL + "/me/messages/" + url.PathEscape(id)
		err := backoff.Retry(ctx, retryAttempts, retryBase, func() error {
			return a.do(ctx, accessToken, http.MethodDelete, reqURL, nil, nil)
		})
		if err != nil {
			return fmt.Errorf("unable to delete message %s: %w", id, err)
		}
	}
	return nil
}

type subscriptionResponse struct {
	ID                 string    `json:"id"`
	ExpirationDateTime time.Time `json:"expirationDateTime"`
}

func (a *Adapter) Watch(ctx context.Context, accessToken string) (*provider.WatchInfo, error) {
	payload := map[string]interface{}{
		"changeType":         "created,updated",
		"notificationUrl":    a.notificationURL,
		"resource":           "/me/messages",
		"expirationDateTime": time.Now().Add(subscriptionLifetime).UTC().Format(time.RFC3339),
		"clientState":        a.clientState,
	}
	var resp subscriptionResponse
	err := backoff.Retry(ctx, retryAttempts, retryBase, func() error {
		return a.do(ctx, accessToken, http.MethodPost, a.baseURL+"/subscriptions", payload, &resp)
	})
	if err != nil {
		return nil, fmt.Errorf("unable to create subscription: %w", err)
	}
	return &provider.WatchInfo{
		SubscriptionID: resp.ID,
		Expiration:     resp.ExpirationDateTime,
	}, nil
}

func (a *Adapter) Renew(ctx context.Context, accessToken string, reg *maildomain.WatchRegistration) (*provider.WatchInfo, error) {
	payload := map[string]string{
		"expirationDateTime": time.Now().Add(subscriptionLifetime).UTC().Format(time.RFC3339),
	}
	reqURL := a.baseURL + "/subscriptions/" + url.PathEscape(reg.SubscriptionID)
	var resp subscriptionResponse
	err := backoff.Retry(ctx, retryAttempts, retryBase, func() error {
		return a.do(ctx, accessToken, http.MethodPatch, reqURL, payload, &resp)
	})
	if err != nil {
		return nil, fmt.Errorf("unable to renew subscription: %w", err)
	}
	info := &provider.WatchInfo{
		SubscriptionID: resp.ID,
		Expiration:     resp.ExpirationDateTime,
	}
	if info.SubscriptionID == "" {
		info.SubscriptionID = reg.SubscriptionID
	}
	return info, nil
}

func (a *Adapter) Stop(ctx context.Context, accessToken string, reg *maildomain.WatchRegistration) error {
	reqURL := a.baseURL + "/subscriptions/" + url.PathEscape(reg.SubscriptionID)
	return a.do(ctx, accessToken, http.MethodDelete, reqURL, nil, nil)
}

// do performs one rate-limited Graph request and classifies the response for
// the shared retry helper.
func (a *Adapter) do(ctx context.Context, accessToken, method, reqURL string, body, out interface{}) error {
	if err := a.limiter.acquire(ctx); err != nil {
		return backoff.Permanent(err)
	}
	defer a.limiter.release()

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return backoff.Permanent(err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
	if err != nil {
		return backoff.Permanent(err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		// Network-level failure, retryable
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return &provider.RateLimitError{Wait: parseRetryAfter(resp.Header)}
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return backoff.Permanent(&provider.AuthError{Err: fmt.Errorf("graph returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))})
	case resp.StatusCode >= 500:
		return fmt.Errorf("graph returned %d", resp.StatusCode)
	case resp.StatusCode >= 400:
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return backoff.Permanent(fmt.Errorf("graph returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data))))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return backoff.Permanent(fmt.Errorf("decode graph response: %w", err))
		}
	}
	return nil
}

func parseRetryAfter(h http.Header) time.Duration {
	if v := h.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return retryBase
}

// normalize converts a Graph message into cached-message fields. The
// starred/pinned derivation from categories is best-effort: there is no
// provider guarantee those category names exist.
func normalize(m graphMessage) maildomain.CachedMessage {
	var senderName, senderEmail string
	if m.From != nil {
		senderName = m.From.EmailAddress.Name
		senderEmail = m.From.EmailAddress.Address
		if senderName == "" {
			senderName = senderEmail
		}
	}

	var htmlBody, textBody string
	if m.Body != nil {
		if strings.EqualFold(m.Body.ContentType, "html") {
			htmlBody = m.Body.Content
		} else {
			textBody = m.Body.Content
		}
	}
	if htmlBody == "" && textBody == "" {
		textBody = m.BodyPreview
	}

	labels, _ := json.Marshal(m.Categories)

	return maildomain.CachedMessage{
		ProviderMessageID: m.ID,
		ThreadID:          m.ConversationID,
		SenderName:        senderName,
		SenderEmail:       senderEmail,
		Subject:           m.Subject,
		Snippet:           m.BodyPreview,
		BodyHTML:          htmlBody,
		BodyText:          textBody,
		ReceivedAt:        m.ReceivedDateTime,
		IsRead:            m.IsRead,
		IsStarred:         hasCategory(m.Categories, "Starred"),
		IsPinned:          hasCategory(m.Categories, "Pinned"),
		HasAttachments:    m.HasAttachments,
		Labels:            labels,
	}
}

func hasCategory(categories []string, name string) bool {
	for _, c := range categories {
		if strings.EqualFold(c, name) {
			return true
		}
	}
	return false
}
