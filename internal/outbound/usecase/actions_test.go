package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	accountdomain "github.com/Ct1869/omni-inbox-dash-sub000/internal/account/domain"
	accountrepo "github.com/Ct1869/omni-inbox-dash-sub000/internal/account/repository"
	maildomain "github.com/Ct1869/omni-inbox-dash-sub000/internal/mail/domain"
	mailrepo "github.com/Ct1869/omni-inbox-dash-sub000/internal/mail/repository"
	"github.com/Ct1869/omni-inbox-dash-sub000/internal/provider"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&accountdomain.Account{},
		&maildomain.CachedMessage{},
	))
	return db
}

type stubTokens struct {
	token string
	err   error
}

func (s *stubTokens) ValidAccessToken(ctx context.Context, account *accountdomain.Account) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.token, nil
}

// actionAdapter records calls and optionally fails them
type actionAdapter struct {
	sentTo    string
	marked    []string
	starred   []string
	deleted   []string
	callErr   error
	messageID string
}

func (f *actionAdapter) Name() string { return "gmail" }
func (f *actionAdapter) FetchPage(ctx context.Context, accessToken, pageToken string, pageSize int64) (*provider.Page, error) {
	return &provider.Page{}, nil
}
func (f *actionAdapter) Send(ctx context.Context, accessToken, fromName, fromEmail, to, subject, body string) (string, error) {
	if f.callErr != nil {
		return "", f.callErr
	}
	f.sentTo = to
	return f.messageID, nil
}
func (f *actionAdapter) MarkRead(ctx context.Context, accessToken string, messageIDs []string, read bool) error {
	if f.callErr != nil {
		return f.callErr
	}
	f.marked = append(f.marked, messageIDs...)
	return nil
}
func (f *actionAdapter) SetStarred(ctx context.Context, accessToken string, messageIDs []string, starred bool) error {
	if f.callErr != nil {
		return f.callErr
	}
	f.starred = append(f.starred, messageIDs...)
	return nil
}
func (f *actionAdapter) Delete(ctx context.Context, accessToken string, messageIDs []string) error {
	if f.callErr != nil {
		return f.callErr
	}
	f.deleted = append(f.deleted, messageIDs...)
	return nil
}
func (f *actionAdapter) Watch(ctx context.Context, accessToken string) (*provider.WatchInfo, error) {
	return nil, errors.New("not implemented")
}
func (f *actionAdapter) Renew(ctx context.Context, accessToken string, reg *maildomain.WatchRegistration) (*provider.WatchInfo, error) {
	return nil, errors.New("not implemented")
}
func (f *actionAdapter) Stop(ctx context.Context, accessToken string, reg *maildomain.WatchRegistration) error {
	return nil
}

type actionsFixture struct {
	accounts accountrepo.AccountRepository
	messages mailrepo.MessageRepository
	adapter  *actionAdapter
	service  *ActionService
	account  *accountdomain.Account
}

func newActionsFixture(t *testing.T) *actionsFixture {
	t.Helper()
	db := openTestDB(t)
	f := &actionsFixture{
		accounts: accountrepo.NewAccountRepository(db),
		messages: mailrepo.NewMessageRepository(db),
		adapter:  &actionAdapter{messageID: "sent-1"},
	}
	f.service = NewActionService(f.accounts, f.messages, &stubTokens{token: "access-token"}, map[string]provider.Adapter{
		accountdomain.ProviderGmail: f.adapter,
	})

	f.account = &accountdomain.Account{
		Email:    "user@example.com",
		Provider: accountdomain.ProviderGmail,
		Active:   true,
	}
	require.NoError(t, f.accounts.Create(f.account))
	return f
}

func (f *actionsFixture) seedMessages(t *testing.T, ids ...string) {
	t.Helper()
	for _, id := range ids {
		require.NoError(t, f.messages.Upsert(&maildomain.CachedMessage{
			AccountID:         f.account.ID,
			ProviderMessageID: id,
			ReceivedAt:        time.Now(),
		}))
	}
}

func TestSendReturnsProviderMessageID(t *testing.T) {
	f := newActionsFixture(t)

	id, err := f.service.Send(context.Background(), f.account.ID, "to@example.com", "subject", "body")
	require.NoError(t, err)
	assert.Equal(t, "sent-1", id)
	assert.Equal(t, "to@example.com", f.adapter.sentTo)
}

func TestBulkMarkReadMirrorsCacheAndUnreadCount(t *testing.T) {
	f := newActionsFixture(t)
	f.seedMessages(t, "m1", "m2", "m3")

	require.NoError(t, f.service.Bulk(context.Background(), f.account.ID, []string{"m1", "m2"}, ActionMarkRead))
	assert.Equal(t, []string{"m1", "m2"}, f.adapter.marked)

	unread, err := f.messages.CountUnread(f.account.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread)

	account, err := f.accounts.FindByID(f.account.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, account.UnreadCount)
}

func TestBulkDeleteRemovesCachedRows(t *testing.T) {
	f := newActionsFixture(t)
	f.seedMessages(t, "m1", "m2")

	require.NoError(t, f.service.Bulk(context.Background(), f.account.ID, []string{"m1"}, ActionDelete))
	assert.Equal(t, []string{"m1"}, f.adapter.deleted)

	count, err := f.messages.CountByAccount(f.account.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestBulkStar(t *testing.T) {
	f := newActionsFixture(t)
	f.seedMessages(t, "m1")

	require.NoError(t, f.service.Bulk(context.Background(), f.account.ID, []string{"m1"}, ActionStar))

	got, err := f.messages.FindByProviderID(f.account.ID, "m1")
	require.NoError(t, err)
	assert.True(t, got.IsStarred)
}

func TestBulkProviderFailureLeavesCacheUntouched(t *testing.T) {
	f := newActionsFixture(t)
	f.seedMessages(t, "m1")
	f.adapter.callErr = errors.New("provider down")

	err := f.service.Bulk(context.Background(), f.account.ID, []string{"m1"}, ActionDelete)
	require.Error(t, err)

	// Cache only mirrors changes the provider accepted
	count, err := f.messages.CountByAccount(f.account.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestBulkUnknownAction(t *testing.T) {
	f := newActionsFixture(t)
	f.seedMessages(t, "m1")

	err := f.service.Bulk(context.Background(), f.account.ID, []string{"m1"}, "archive")
	assert.ErrorIs(t, err, ErrUnknownAction)
}

func TestBulkEmptyIDsIsNoOp(t *testing.T) {
	f := newActionsFixture(t)
	require.NoError(t, f.service.Bulk(context.Background(), f.account.ID, nil, ActionDelete))
}
