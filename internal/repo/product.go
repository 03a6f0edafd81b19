package repo

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/storefront/internal/models"
)

func (r *GormRepo) ProductByID(ctx context.Context, id uint) (*models.Product, error) {
	var p models.Product
	if err := r.db(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *GormRepo) ProductBySlug(ctx context.Context, slug string) (*models.Product, error) {
	var p models.Product
	if err := r.db(ctx).Where("slug = ?", slug).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *GormRepo) ListProducts(ctx context.Context, categoryID uint, offset, limit int) (int64, []models.Product, error) {
	scope := func() *gorm.DB {
		q := r.db(ctx).Model(&models.Product{})
		if categoryID != 0 {
			q = q.Where("category_id = ?", categoryID)
		}
		return q
	}

	var total int64
	if err := scope().Count(&total).Error; err != nil {
		return 0, nil, err
	}

	var items []models.Product
	if err := scope().Order("id ASC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return 0, nil, err
	}
	return total, items, nil
}

func (r *GormRepo) CreateProduct(ctx context.Context, p *models.Product) error {
	return r.db(ctx).Create(p).Error
}

// LockProduct loads one product with FOR UPDATE. Call it inside WithTx.
func (r *GormRepo) LockProduct(ctx context.Context, id uint) (*models.Product, error) {
	var p models.Product
	if err := r.db(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateProductFields writes the given columns and shifts stock by
// stockDelta on an existing row. It never inserts; a missing row, or one
// whose stock would drop below zero, yields applied == false.
func (r *GormRepo) UpdateProductFields(ctx context.Context, id uint, fields map[string]any, stockDelta int) (bool, error) {
	q := r.db(ctx).Model(&models.Product{}).Where("id = ?", id)
	if stockDelta < 0 {
		q = q.Where("stock >= ?", -stockDelta)
	}
	cols := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		cols[k] = v
	}
	cols["stock"] = gorm.Expr("stock + ?", stockDelta)
	res := q.Updates(cols)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *GormRepo) DeleteProduct(ctx context.Context, id uint) error {
	res := r.db(ctx).Delete(&models.Product{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *GormRepo) ProductSlugTaken(ctx context.Context, slug string, excludeID uint) (bool, error) {
	return r.slugTaken(ctx, &models.Product{}, slug, excludeID)
}

// AdjustStock adds delta to the product's stock. A negative delta only applies
// while enough stock remains; applied is false when the row was missing or the
// stock would have gone below zero.
func (r *GormRepo) AdjustStock(ctx context.Context, id uint, delta int) (bool, error) {
	q := r.db(ctx).Model(&models.Product{}).Where("id = ?", id)
	if delta < 0 {
		q = q.Where("stock >= ?", -delta)
	}
	res := q.Update("stock", gorm.Expr("stock + ?", delta))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// LockProducts loads the given products with FOR UPDATE, ordered by id so
// concurrent checkouts acquire row locks in the same order.
func (r *GormRepo) LockProducts(ctx context.Context, ids []uint) (map[uint]*models.Product, error) {
	var items []models.Product
	if len(ids) > 0 {
		if err := r.db(ctx).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id IN ?", ids).
			Order("id ASC").
			Find(&items).Error; err != nil {
			return nil, err
		}
	}
	out := make(map[uint]*models.Product, len(items))
	for i := range items {
		out[items[i].ID] = &items[i]
	}
	return out, nil
}

// SearchProducts matches products whose name or description contains every
// keyword, case-insensitively.
func (r *GormRepo) SearchProducts(ctx context.Context, keywords []string) ([]models.Product, error) {
	q := r.db(ctx).Model(&models.Product{})
	for _, kw := range keywords {
		pattern := "%" + escapeLike(strings.ToLower(kw)) + "%"
		q = q.Where(`(LOWER(name) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\')`, pattern, pattern)
	}
	var items []models.Product
	if err := q.Order("id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
