package transport

import (
	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/storefront/internal/models"
)

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	User        *models.User `json:"user"`
}

type GoogleLoginRequest struct {
	Token string `json:"token"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type CategoryRequest struct {
	Name *string `json:"name"`
	Slug *string `json:"slug"`
}

// ProductRequest is filled from multipart form fields.
type ProductRequest struct {
	Name        string          `form:"name"`
	Price       decimal.Decimal `form:"-"`
	Stock       int             `form:"stock"`
	Description string          `form:"description"`
	CategoryID  uint            `form:"category_id"`
}

type AddStockRequest struct {
	Amount int `json:"amount"`
}

type CheckoutItem struct {
	ProductID uint `json:"product_id"`
	Qty       int  `json:"qty"`
}

type CheckoutRequest struct {
	Items           []CheckoutItem `json:"items"`
	CustomerName    string         `json:"customer_name"`
	CustomerPhone   string         `json:"customer_phone"`
	CustomerAddress string         `json:"customer_address"`
}

type CheckoutResponse struct {
	OrderUID string             `json:"order_uid"`
	Total    decimal.Decimal    `json:"total"`
	Status   models.OrderStatus `json:"status"`
}

type OrderStatusRequest struct {
	Status string `json:"status"`
}

type ContactRequest struct {
	Name    string  `json:"name"`
	Email   string  `json:"email"`
	Phone   *string `json:"phone"`
	Message string  `json:"message"`
}

type PageMeta struct {
	Page       int   `json:"page"`
	Size       int   `json:"size"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
	HasPrev    bool  `json:"has_prev"`
	HasNext    bool  `json:"has_next"`
}

type Page[T any] struct {
	Data []T     `json:"data"`
	Meta PageMeta `json:"meta"`
}
