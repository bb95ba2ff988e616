package gmail

import (
	"encoding/base64"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/Ct1869/omni-inbox-dash-sub000/internal/provider"
	"github.com/Ct1869/omni-inbox-dash-sub000/pkg/backoff"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
)

func b64(s string) string {
	return base64.URLEncoding.EncodeToString([]byte(s))
}

func TestNormalizeMultipartMessage(t *testing.T) {
	msg := &gmail.Message{
		Id:           "msg-1",
		ThreadId:     "thread-1",
		Snippet:      "Hi Bob, just checking in",
		InternalDate: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC).UnixMilli(),
		LabelIds:     []string{"INBOX", "UNREAD", "STARRED"},
		Payload: &gmail.MessagePart{
			MimeType: "multipart/alternative",
			Headers: []*gmail.MessagePartHeader{
				{Name: "From", Value: "Alice Smith <alice@example.com>"},
				{Name: "Subject", Value: "Checking in"},
			},
			Parts: []*gmail.MessagePart{
				{MimeType: "text/plain", Body: &gmail.MessagePartBody{Data: b64("plain body")}},
				{MimeType: "text/html", Body: &gmail.MessagePartBody{Data: b64("<p>html body</p>")}},
			},
		},
	}

	got := normalize(msg)
	assert.Equal(t, "msg-1", got.ProviderMessageID)
	assert.Equal(t, "thread-1", got.ThreadID)
	assert.Equal(t, "Alice Smith", got.SenderName)
	assert.Equal(t, "alice@example.com", got.SenderEmail)
	assert.Equal(t, "Checking in", got.Subject)
	assert.Equal(t, "plain body", got.BodyText)
	assert.Equal(t, "<p>html body</p>", got.BodyHTML)
	assert.False(t, got.IsRead)
	assert.True(t, got.IsStarred)
	assert.False(t, got.HasAttachments)
	assert.JSONEq(t, `["INBOX","UNREAD","STARRED"]`, string(got.Labels))
	assert.Equal(t, int64(msg.InternalDate), got.ReceivedAt.UnixMilli())
}

func TestNormalizeNestedPartsAndAttachment(t *testing.T) {
	msg := &gmail.Message{
		Id:       "msg-2",
		LabelIds: []string{"INBOX"},
		Payload: &gmail.MessagePart{
			MimeType: "multipart/mixed",
			Headers: []*gmail.MessagePartHeader{
				{Name: "From", Value: "bob@example.com"},
			},
			Parts: []*gmail.MessagePart{
				{
					MimeType: "multipart/alternative",
					Parts: []*gmail.MessagePart{
						{MimeType: "text/html", Body: &gmail.MessagePartBody{Data: b64("<p>nested</p>")}},
					},
				},
				{
					MimeType: "application/pdf",
					Filename: "report.pdf",
					Body:     &gmail.MessagePartBody{AttachmentId: "att-1"},
				},
			},
		},
	}

	got := normalize(msg)
	assert.Equal(t, "<p>nested</p>", got.BodyHTML)
	assert.True(t, got.HasAttachments)
	// No UNREAD label means read
	assert.True(t, got.IsRead)
	// Bare address: name falls back to the address itself
	assert.Equal(t, "bob@example.com", got.SenderName)
	assert.Equal(t, "bob@example.com", got.SenderEmail)
}

func TestNormalizeFallsBackToSnippet(t *testing.T) {
	msg := &gmail.Message{
		Id:      "msg-3",
		Snippet: "snippet only",
		Payload: &gmail.MessagePart{MimeType: "text/plain"},
	}

	got := normalize(msg)
	assert.Equal(t, "snippet only", got.BodyText)
	assert.Empty(t, got.BodyHTML)
}

func TestNormalizeSinglePartBody(t *testing.T) {
	msg := &gmail.Message{
		Id: "msg-4",
		Payload: &gmail.MessagePart{
			MimeType: "text/html",
			Body:     &gmail.MessagePartBody{Data: b64("<p>single part</p>")},
		},
	}

	got := normalize(msg)
	assert.Equal(t, "<p>single part</p>", got.BodyHTML)
	assert.Empty(t, got.BodyText)
}

func TestClassifyRateLimit(t *testing.T) {
	err := classify(&googleapi.Error{
		Code:   http.StatusTooManyRequests,
		Header: http.Header{"Retry-After": []string{"7"}},
	})

	var rl *provider.RateLimitError
	require.ErrorAs(t, err, &rl)
	assert.Equal(t, 7*time.Second, rl.RetryAfter())
}

func TestClassifyAuthErrorsArePermanent(t *testing.T) {
	for _, code := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		err := classify(&googleapi.Error{Code: code})
		assert.True(t, provider.IsAuthError(err))

		var perm *backoff.PermanentError
		assert.ErrorAs(t, err, &perm)
	}
}

func TestClassifyServerErrorsRetryable(t *testing.T) {
	err := classify(&googleapi.Error{Code: http.StatusBadGateway})
	var perm *backoff.PermanentError
	assert.False(t, errors.As(err, &perm))
}

func TestClassifyClientErrorsArePermanent(t *testing.T) {
	err := classify(&googleapi.Error{Code: http.StatusNotFound})
	var perm *backoff.PermanentError
	assert.ErrorAs(t, err, &perm)
	assert.False(t, provider.IsAuthError(err))
}

func TestClassifyNetworkErrorRetryable(t *testing.T) {
	cause := errors.New("connection reset")
	err := classify(cause)
	assert.Equal(t, cause, err)
}

func TestClassifyNil(t *testing.T) {
	assert.NoError(t, classify(nil))
}
