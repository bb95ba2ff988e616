package repository

import (
	"time"

	accountdomain "github.com/Ct1869/omni-inbox-dash-sub000/internal/account/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// tokenRepository implements TokenRepository interface
type tokenRepository struct {
	db *gorm.DB
}

// NewTokenRepository creates a new instance of tokenRepository
func NewTokenRepository(db *gorm.DB) TokenRepository {
	return &tokenRepository{
		db: db,
	}
}

func (r *tokenRepository) Upsert(set *accountdomain.OAuthTokenSet) error {
	if set.ID == "" {
		set.ID = uuid.New().String()
	}
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "account_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"access_token", "refresh_token", "expires_at", "scope", "updated_at",
		}),
	}).Create(set).Error
}

func (r *tokenRepository) FindByAccountID(accountID string) (*accountdomain.OAuthTokenSet, error) {
	var set accountdomain.OAuthTokenSet
	err := r.db.Where("account_id = ?", accountID).First(&set).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &set, nil
}

func (r *tokenRepository) UpdateTokens(accountID, accessToken, refreshToken string, expiresAt time.Time) error {
	updates := map[string]interface{}{
		"access_token": accessToken,
		"expires_at":   expiresAt,
	}
	// Providers rotate refresh tokens only sometimes; keep the old one when
	// the refresh response omits it.
	if refreshToken != "" {
		updates["refresh_token"] = refreshToken
	}
	return r.db.Model(&accountdomain.OAuthTokenSet{}).
		Where("account_id = ?", accountID).
		Updates(updates).Error
}
