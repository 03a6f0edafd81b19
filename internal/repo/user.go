package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/storefront/internal/models"
)

func (r *GormRepo) CreateUser(ctx context.Context, u *models.User) error {
	return r.db(ctx).Create(u).Error
}

func (r *GormRepo) UserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *GormRepo) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *GormRepo) ListUsers(ctx context.Context, offset, limit int) (int64, []models.User, error) {
	var total int64
	if err := r.db(ctx).Model(&models.User{}).Count(&total).Error; err != nil {
		return 0, nil, err
	}
	var users []models.User
	if err := r.db(ctx).Order("id ASC").Offset(offset).Limit(limit).Find(&users).Error; err != nil {
		return 0, nil, err
	}
	return total, users, nil
}

// FirstOrCreateByEmail loads the user with u.Email into u, or inserts u when
// there is none. created reports whether a row was inserted.
func (r *GormRepo) FirstOrCreateByEmail(ctx context.Context, u *models.User) (bool, error) {
	var existing models.User
	err := r.db(ctx).Where("email = ?", u.Email).First(&existing).Error
	if err == nil {
		*u = existing
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}
	if err := r.db(ctx).Create(u).Error; err != nil {
		return false, err
	}
	return true, nil
}

func (r *GormRepo) UpdateUserFields(ctx context.Context, id uint, fields map[string]any) error {
	return r.db(ctx).Model(&models.User{}).Where("id = ?", id).Updates(fields).Error
}

func (r *GormRepo) SetResetToken(ctx context.Context, userID uint, tokenHash string, expires time.Time) error {
	return r.UpdateUserFields(ctx, userID, map[string]any{
		"reset_token_hash":    tokenHash,
		"reset_token_expires": expires,
	})
}

// UserByResetToken finds the holder of a reset token digest and locks the row
// for the rest of the transaction. Expiry is checked by the caller.
func (r *GormRepo) UserByResetToken(ctx context.Context, tokenHash string) (*models.User, error) {
	var user models.User
	err := r.db(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("reset_token_hash = ?", tokenHash).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ConsumeResetToken sets the new password hash and clears the token in one write.
func (r *GormRepo) ConsumeResetToken(ctx context.Context, userID uint, passwordHash string) error {
	return r.UpdateUserFields(ctx, userID, map[string]any{
		"password_hash":       passwordHash,
		"reset_token_hash":    nil,
		"reset_token_expires": nil,
	})
}
