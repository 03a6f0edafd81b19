package repo

import (
	"context"

	"github.com/Skotchmaster/storefront/internal/models"
)

func (r *GormRepo) CreateContactSubmission(ctx context.Context, s *models.ContactSubmission) error {
	return r.db(ctx).Create(s).Error
}

func (r *GormRepo) ListContactSubmissions(ctx context.Context, offset, limit int) (int64, []models.ContactSubmission, error) {
	var total int64
	if err := r.db(ctx).Model(&models.ContactSubmission{}).Count(&total).Error; err != nil {
		return 0, nil, err
	}
	var items []models.ContactSubmission
	err := r.db(ctx).
		Order("submitted_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&items).Error
	return total, items, err
}
