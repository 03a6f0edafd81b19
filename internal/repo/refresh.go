package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/pkg/tokens"
)

var ErrRefreshRevoked = errors.New("token expired or revoked")

func (r *GormRepo) AddRefreshToken(ctx context.Context, userID uint, refreshToken, jti string, expires time.Time) error {
	return r.db(ctx).Create(&models.RefreshToken{
		Token:     tokens.Sha256Hex(refreshToken),
		UserID:    userID,
		JTI:       jti,
		ExpiresAt: expires,
	}).Error
}

// RotateRefreshToken revokes oldJTI and stores the replacement atomically.
func (r *GormRepo) RotateRefreshToken(ctx context.Context, oldJTI string, now time.Time, next models.RefreshToken) error {
	return r.WithTx(ctx, func(tx *GormRepo) error {
		var current models.RefreshToken
		if err := tx.db(ctx).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("jti = ?", oldJTI).
			First(&current).Error; err != nil {
			return err
		}
		if current.Revoked || !current.ExpiresAt.After(now) {
			return ErrRefreshRevoked
		}
		if err := tx.db(ctx).Model(&models.RefreshToken{}).
			Where("id = ?", current.ID).
			Update("revoked", true).Error; err != nil {
			return err
		}
		return tx.db(ctx).Create(&next).Error
	})
}

func (r *GormRepo) RevokeRefreshToken(ctx context.Context, refreshToken string) error {
	return r.db(ctx).Model(&models.RefreshToken{}).
		Where("token = ?", tokens.Sha256Hex(refreshToken)).
		Update("revoked", true).Error
}

func (r *GormRepo) RevokeUserRefreshTokens(ctx context.Context, userID uint) error {
	return r.db(ctx).Model(&models.RefreshToken{}).
		Where("user_id = ? AND revoked = ?", userID, false).
		Update("revoked", true).Error
}
