package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	accountdomain "github.com/Ct1869/omni-inbox-dash-sub000/internal/account/domain"
	accountrepo "github.com/Ct1869/omni-inbox-dash-sub000/internal/account/repository"
	accountusecase "github.com/Ct1869/omni-inbox-dash-sub000/internal/account/usecase"
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
		&maildomain.WatchRegistration{},
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

// renewAdapter scripts Watch/Renew outcomes
type renewAdapter struct {
	watchInfo  *provider.WatchInfo
	renewInfo  *provider.WatchInfo
	renewErr   error
	renewCalls int
}

func (f *renewAdapter) Name() string { return "gmail" }
func (f *renewAdapter) FetchPage(ctx context.Context, accessToken, pageToken string, pageSize int64) (*provider.Page, error) {
	return &provider.Page{}, nil
}
func (f *renewAdapter) Send(ctx context.Context, accessToken, fromName, fromEmail, to, subject, body string) (string, error) {
	return "", nil
}
func (f *renewAdapter) MarkRead(ctx context.Context, accessToken string, messageIDs []string, read bool) error {
	return nil
}
func (f *renewAdapter) SetStarred(ctx context.Context, accessToken string, messageIDs []string, starred bool) error {
	return nil
}
func (f *renewAdapter) Delete(ctx context.Context, accessToken string, messageIDs []string) error {
	return nil
}
func (f *renewAdapter) Watch(ctx context.Context, accessToken string) (*provider.WatchInfo, error) {
	if f.watchInfo == nil {
		return nil, errors.New("watch not scripted")
	}
	return f.watchInfo, nil
}
func (f *renewAdapter) Renew(ctx context.Context, accessToken string, reg *maildomain.WatchRegistration) (*provider.WatchInfo, error) {
	f.renewCalls++
	if f.renewErr != nil {
		return nil, f.renewErr
	}
	return f.renewInfo, nil
}
func (f *renewAdapter) Stop(ctx context.Context, accessToken string, reg *maildomain.WatchRegistration) error {
	return nil
}

type renewerFixture struct {
	accounts accountrepo.AccountRepository
	watches  mailrepo.WatchRegistrationRepository
	tokens   *stubTokens
	adapter  *renewAdapter
	renewer  *Renewer
	account  *accountdomain.Account
}

func newRenewerFixture(t *testing.T) *renewerFixture {
	t.Helper()
	db := openTestDB(t)
	f := &renewerFixture{
		accounts: accountrepo.NewAccountRepository(db),
		watches:  mailrepo.NewWatchRegistrationRepository(db),
		tokens:   &stubTokens{token: "access-token"},
		adapter:  &renewAdapter{},
	}
	f.renewer = NewRenewer(f.watches, f.accounts, f.tokens, map[string]provider.Adapter{
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

func (f *renewerFixture) addRegistration(t *testing.T, expiresIn time.Duration) *maildomain.WatchRegistration {
	t.Helper()
	reg := &maildomain.WatchRegistration{
		AccountID:      f.account.ID,
		Provider:       accountdomain.ProviderGmail,
		SubscriptionID: "sub-old",
		Expiration:     time.Now().Add(expiresIn),
		Active:         true,
	}
	require.NoError(t, f.watches.Upsert(reg))
	return reg
}

func TestRenewExpiringRefreshesRegistration(t *testing.T) {
	f := newRenewerFixture(t)
	reg := f.addRegistration(t, 2*time.Hour)

	newExpiry := time.Now().Add(7 * 24 * time.Hour)
	f.adapter.renewInfo = &provider.WatchInfo{
		SubscriptionID: "sub-new",
		HistoryID:      "999",
		Expiration:     newExpiry,
	}

	stats, err := f.renewer.RenewExpiring(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Renewed)
	assert.Zero(t, stats.Failed)

	got, err := f.watches.FindActiveByAccount(f.account.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, reg.ID, got.ID)
	assert.Equal(t, "sub-new", got.SubscriptionID)
	assert.Equal(t, "999", got.HistoryID)
	assert.WithinDuration(t, newExpiry, got.Expiration, time.Second)
}

func TestRenewExpiringSkipsDistantRegistrations(t *testing.T) {
	f := newRenewerFixture(t)
	f.addRegistration(t, 72*time.Hour)

	stats, err := f.renewer.RenewExpiring(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Renewed)
	assert.Zero(t, f.adapter.renewCalls)
}

func TestRenewExpiringTransientFailureLeavesActive(t *testing.T) {
	f := newRenewerFixture(t)
	f.addRegistration(t, 2*time.Hour)
	f.adapter.renewErr = errors.New("graph returned 503")

	stats, err := f.renewer.RenewExpiring(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Failed)

	// Still active: the next scheduled run retries
	got, err := f.watches.FindActiveByAccount(f.account.ID)
	require.NoError(t, err)
	assert.NotNil(t, got)

	account, err := f.accounts.FindByID(f.account.ID)
	require.NoError(t, err)
	assert.True(t, account.Active)
}

func TestRenewExpiringAuthErrorDeactivatesBoth(t *testing.T) {
	f := newRenewerFixture(t)
	f.addRegistration(t, 2*time.Hour)
	f.adapter.renewErr = &provider.AuthError{Err: errors.New("401")}

	stats, err := f.renewer.RenewExpiring(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Failed)

	got, err := f.watches.FindActiveByAccount(f.account.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	account, err := f.accounts.FindByID(f.account.ID)
	require.NoError(t, err)
	assert.False(t, account.Active)
}

func TestRenewExpiringRevokedTokenCountsAsFailed(t *testing.T) {
	f := newRenewerFixture(t)
	f.addRegistration(t, 2*time.Hour)
	f.tokens.err = fmt.Errorf("refresh rejected: %w", accountusecase.ErrAuthExpired)

	stats, err := f.renewer.RenewExpiring(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Failed)
	assert.Zero(t, f.adapter.renewCalls)
}

func TestRegisterCreatesRegistration(t *testing.T) {
	f := newRenewerFixture(t)
	expiry := time.Now().Add(7 * 24 * time.Hour)
	f.adapter.watchInfo = &provider.WatchInfo{
		SubscriptionID: "sub-1",
		HistoryID:      "42",
		Expiration:     expiry,
	}

	reg, err := f.renewer.Register(context.Background(), f.account.ID)
	require.NoError(t, err)
	assert.Equal(t, "sub-1", reg.SubscriptionID)
	assert.True(t, reg.Active)

	got, err := f.watches.FindActiveByAccount(f.account.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "42", got.HistoryID)
}

func TestRegisterRejectsInactiveAccount(t *testing.T) {
	f := newRenewerFixture(t)
	require.NoError(t, f.accounts.Deactivate(f.account.ID))

	_, err := f.renewer.Register(context.Background(), f.account.ID)
	assert.ErrorIs(t, err, accountusecase.ErrAuthExpired)
}
