package models

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID                uint       `gorm:"primaryKey;autoIncrement"     json:"id"`
	Name              string     `gorm:"index;not null"               json:"name"`
	Email             string     `gorm:"uniqueIndex;not null"         json:"email"`
	PasswordHash      string     `gorm:"not null;default:''"          json:"-"`
	IsActive          bool       `gorm:"not null;default:true"        json:"is_active"`
	Role              string     `gorm:"not null;default:user"        json:"role"`
	ResetTokenHash    *string    `gorm:"uniqueIndex"                  json:"-"`
	ResetTokenExpires *time.Time `                                    json:"-"`
	CreatedAt         time.Time  `                                    json:"created_at"`
}

type RefreshToken struct {
	ID        uint      `gorm:"primaryKey"            json:"id"`
	Token     string    `gorm:"uniqueIndex;not null"  json:"-"`
	UserID    uint      `gorm:"index;not null"        json:"user_id"`
	JTI       string    `gorm:"uniqueIndex;not null"  json:"jti"`
	ExpiresAt time.Time `gorm:"not null"              json:"expires_at"`
	Revoked   bool      `gorm:"not null;default:false" json:"revoked"`
}

type Category struct {
	ID       uint      `gorm:"primaryKey;autoIncrement"                          json:"id"`
	Name     string    `gorm:"uniqueIndex;not null"                              json:"name"`
	Slug     string    `gorm:"uniqueIndex;not null"                              json:"slug"`
	Products []Product `gorm:"foreignKey:CategoryID;constraint:OnDelete:CASCADE" json:"products,omitempty"`
}

type Product struct {
	ID          uint            `gorm:"primaryKey;autoIncrement"     json:"id"`
	Name        string          `gorm:"index;not null"               json:"name"`
	Slug        string          `gorm:"uniqueIndex;not null"         json:"slug"`
	Description string          `gorm:"type:text;not null;default:''" json:"description"`
	Price       decimal.Decimal `gorm:"type:numeric(12,2);not null"  json:"price"`
	Image       string          `gorm:"not null;default:''"          json:"image"`
	Stock       int             `gorm:"not null;default:0;check:stock >= 0" json:"stock"`
	CategoryID  uint            `gorm:"index;not null"               json:"category_id"`
}

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether the status archives the order.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

type Order struct {
	ID              uint            `gorm:"primaryKey"                   json:"id"`
	OrderUID        string          `gorm:"uniqueIndex;not null"         json:"order_uid"`
	CustomerID      uint            `gorm:"index;not null"               json:"customer_id"`
	Customer        *User           `gorm:"foreignKey:CustomerID"        json:"customer,omitempty"`
	CustomerName    string          `gorm:"not null"                     json:"customer_name"`
	CustomerPhone   string          `gorm:"not null"                     json:"customer_phone"`
	CustomerAddress string          `gorm:"type:text;not null"           json:"customer_address"`
	Total           decimal.Decimal `gorm:"type:numeric(12,2);not null"  json:"total"`
	Status          OrderStatus     `gorm:"index;not null;default:pending" json:"status"`
	IsArchived      bool            `gorm:"index;not null;default:false" json:"is_archived"`
	CreatedAt       time.Time       `gorm:"index"                        json:"created_at"`
	Items           []OrderItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
}

// BeforeSave keeps IsArchived derived from Status on every full write.
func (o *Order) BeforeSave(*gorm.DB) error {
	o.IsArchived = o.Status.Terminal()
	return nil
}

type OrderItem struct {
	ID          uint            `gorm:"primaryKey"                  json:"id"`
	OrderID     uint            `gorm:"index;not null"              json:"order_id"`
	ProductID   uint            `gorm:"not null"                    json:"product_id"`
	ProductName string          `gorm:"not null"                    json:"product_name"`
	UnitPrice   decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"unit_price"`
	Qty         int             `gorm:"not null;check:qty > 0"      json:"qty"`
	Subtotal    decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"subtotal"`
}

type ContactSubmission struct {
	ID          uint      `gorm:"primaryKey"      json:"id"`
	Name        string    `gorm:"index;not null"  json:"name"`
	Email       string    `gorm:"index;not null"  json:"email"`
	Phone       *string   `                       json:"phone"`
	Message     string    `gorm:"type:text;not null" json:"message"`
	SubmittedAt time.Time `gorm:"index;autoCreateTime" json:"submitted_at"`
}

func All() []any {
	return []any{
		&User{},
		&RefreshToken{},
		&Category{},
		&Product{},
		&Order{},
		&OrderItem{},
		&ContactSubmission{},
	}
}

func Migrate(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).AutoMigrate(All()...)
}
