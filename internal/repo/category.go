package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/models"
)

func (r *GormRepo) CreateCategory(ctx context.Context, c *models.Category) error {
	return r.db(ctx).Create(c).Error
}

func (r *GormRepo) SaveCategory(ctx context.Context, c *models.Category) error {
	return r.db(ctx).Omit("Products").Save(c).Error
}

func (r *GormRepo) CategoryByID(ctx context.Context, id uint) (*models.Category, error) {
	var c models.Category
	if err := r.db(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *GormRepo) ListCategories(ctx context.Context, offset, limit int) ([]models.Category, error) {
	var items []models.Category
	err := r.db(ctx).
		Preload("Products", orderByID).
		Order("id ASC").
		Offset(offset).
		Limit(limit).
		Find(&items).Error
	return items, err
}

// DeleteCategory removes the category and its products, returning the deleted
// products so their images can be cleaned up after commit.
func (r *GormRepo) DeleteCategory(ctx context.Context, id uint) ([]models.Product, error) {
	var removed []models.Product
	err := r.WithTx(ctx, func(tx *GormRepo) error {
		if _, err := tx.CategoryByID(ctx, id); err != nil {
			return err
		}
		if err := tx.db(ctx).Where("category_id = ?", id).Find(&removed).Error; err != nil {
			return err
		}
		if err := tx.db(ctx).Where("category_id = ?", id).Delete(&models.Product{}).Error; err != nil {
			return err
		}
		return tx.db(ctx).Delete(&models.Category{}, id).Error
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

func (r *GormRepo) CategorySlugTaken(ctx context.Context, slug string, excludeID uint) (bool, error) {
	return r.slugTaken(ctx, &models.Category{}, slug, excludeID)
}

func (r *GormRepo) slugTaken(ctx context.Context, model any, slug string, excludeID uint) (bool, error) {
	q := r.db(ctx).Model(model).Where("slug = ?", slug)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func orderByID(db *gorm.DB) *gorm.DB {
	return db.Order("id ASC")
}
