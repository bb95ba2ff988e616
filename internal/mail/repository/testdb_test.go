package repository

import (
	"fmt"
	"testing"

	accountdomain "github.com/Ct1869/omni-inbox-dash-sub000/internal/account/domain"
	maildomain "github.com/Ct1869/omni-inbox-dash-sub000/internal/mail/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// openTestDB opens a fresh in-memory database per test. cache=shared keeps the
// database alive across the pooled connections gorm opens.
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
		&accountdomain.OAuthTokenSet{},
		&maildomain.CachedMessage{},
		&maildomain.SyncJob{},
		&maildomain.WebhookQueueItem{},
		&maildomain.WatchRegistration{},
	))
	return db
}
