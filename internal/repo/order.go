package repo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/storefront/internal/models"
)

// CreateOrder inserts the header and its items.
func (r *GormRepo) CreateOrder(ctx context.Context, o *models.Order) error {
	return r.db(ctx).Omit("Customer").Create(o).Error
}

func withOrderRelations(db *gorm.DB) *gorm.DB {
	return db.Preload("Customer").Preload("Items", orderByID)
}

func (r *GormRepo) OrderByID(ctx context.Context, id uint) (*models.Order, error) {
	var o models.Order
	if err := withOrderRelations(r.db(ctx)).Where("id = ?", id).First(&o).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *GormRepo) OrderByUID(ctx context.Context, uid string) (*models.Order, error) {
	var o models.Order
	if err := withOrderRelations(r.db(ctx)).Where("order_uid = ?", uid).First(&o).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

// LockOrder loads an order with FOR UPDATE plus its items. Used inside WithTx.
func (r *GormRepo) LockOrder(ctx context.Context, where string, args ...any) (*models.Order, error) {
	var o models.Order
	if err := r.db(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where(where, args...).
		First(&o).Error; err != nil {
		return nil, err
	}
	if err := r.db(ctx).Where("order_id = ?", o.ID).Order("id ASC").Find(&o.Items).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *GormRepo) ListOrders(ctx context.Context, archived bool) ([]models.Order, error) {
	var out []models.Order
	err := r.db(ctx).
		Preload("Customer").
		Where("is_archived = ?", archived).
		Order("created_at DESC, id DESC").
		Find(&out).Error
	return out, err
}

func (r *GormRepo) ListOrdersByUser(ctx context.Context, userID uint) ([]models.Order, error) {
	var out []models.Order
	err := r.db(ctx).
		Preload("Items", orderByID).
		Where("customer_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&out).Error
	return out, err
}

// SetOrderStatus writes the status together with the derived archived flag.
func (r *GormRepo) SetOrderStatus(ctx context.Context, id uint, status models.OrderStatus) error {
	return r.db(ctx).Model(&models.Order{}).Where("id = ?", id).Updates(map[string]any{
		"status":      status,
		"is_archived": status.Terminal(),
	}).Error
}
