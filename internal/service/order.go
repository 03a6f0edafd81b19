package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/transport"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

type OrderService struct {
	Repo     *repo.GormRepo
	Notifier OrderNotifier
	Events   EventPublisher
	Now      func() time.Time
}

type orderEvent struct {
	OrderUID string             `json:"order_uid"`
	Status   models.OrderStatus `json:"status"`
	Total    decimal.Decimal    `json:"total"`
	UserID   uint               `json:"user_id"`
}

func eventOf(o *models.Order) orderEvent {
	return orderEvent{OrderUID: o.OrderUID, Status: o.Status, Total: o.Total, UserID: o.CustomerID}
}

func validateCheckout(req *transport.CheckoutRequest) error {
	if len(req.Items) == 0 {
		return fmt.Errorf("%w: order must contain at least one item", ErrValidation)
	}
	for i, it := range req.Items {
		if it.ProductID == 0 {
			return fmt.Errorf("%w: item %d: product_id required", ErrValidation, i)
		}
		if it.Qty <= 0 {
			return fmt.Errorf("%w: item %d: qty must be positive", ErrValidation, i)
		}
	}
	req.CustomerName = strings.TrimSpace(req.CustomerName)
	req.CustomerPhone = strings.TrimSpace(req.CustomerPhone)
	req.CustomerAddress = strings.TrimSpace(req.CustomerAddress)
	if req.CustomerName == "" {
		return fmt.Errorf("%w: customer_name required", ErrValidation)
	}
	if req.CustomerPhone == "" {
		return fmt.Errorf("%w: customer_phone required", ErrValidation)
	}
	if req.CustomerAddress == "" {
		return fmt.Errorf("%w: customer_address required", ErrValidation)
	}
	return nil
}

// PlaceOrder checks stock, writes the order with its items and decrements
// stock in one transaction. On any error nothing is written.
func (s *OrderService) PlaceOrder(ctx context.Context, userID uint, req transport.CheckoutRequest) (*models.Order, error) {
	l := logging.FromContext(ctx).With("svc", "order.place", "user_id", userID)

	if err := validateCheckout(&req); err != nil {
		return nil, err
	}

	// Lines for the same product are checked against stock together.
	wanted := make(map[uint]int, len(req.Items))
	for _, it := range req.Items {
		wanted[it.ProductID] += it.Qty
	}
	ids := make([]uint, 0, len(wanted))
	for id := range wanted {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	now := clock(s.Now)
	var order *models.Order

	err := s.Repo.WithTx(ctx, func(tx *repo.GormRepo) error {
		user, err := tx.UserByID(ctx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUnknownUser
			}
			return err
		}

		products, err := tx.LockProducts(ctx, ids)
		if err != nil {
			return err
		}
		for _, id := range ids {
			p, ok := products[id]
			if !ok {
				return fmt.Errorf("%w: product %d", ErrProductUnavailable, id)
			}
			if p.Stock < wanted[id] {
				return fmt.Errorf("%w: %s has %d left, %d requested", ErrInsufficientStock, p.Name, p.Stock, wanted[id])
			}
		}

		uid, err := NewOrderUID(now)
		if err != nil {
			return err
		}

		o := &models.Order{
			OrderUID:        uid,
			CustomerID:      user.ID,
			CustomerName:    req.CustomerName,
			CustomerPhone:   req.CustomerPhone,
			CustomerAddress: req.CustomerAddress,
			Status:          models.OrderStatusPending,
			CreatedAt:       now,
		}
		total := decimal.Zero
		for _, it := range req.Items {
			p := products[it.ProductID]
			sub := p.Price.Mul(decimal.NewFromInt(int64(it.Qty)))
			total = total.Add(sub)
			o.Items = append(o.Items, models.OrderItem{
				ProductID:   p.ID,
				ProductName: p.Name,
				UnitPrice:   p.Price,
				Qty:         it.Qty,
				Subtotal:    sub,
			})
		}
		o.Total = total

		if err := tx.CreateOrder(ctx, o); err != nil {
			return err
		}
		for _, id := range ids {
			ok, err := tx.AdjustStock(ctx, id, -wanted[id])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: product %d", ErrInsufficientStock, id)
			}
		}

		o.Customer = user
		order = o
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrPrecondition) {
			l.Warn("place_order_error", "status", 400, "reason", "checkout rejected", "error", err)
		} else {
			l.Error("place_order_error", "status", 500, "reason", "transaction failed", "error", err)
		}
		return nil, err
	}

	l.Info("order_placed", "order_uid", order.OrderUID, "total", order.Total.StringFixed(2))
	if s.Notifier != nil {
		s.Notifier.OrderPlaced(ctx, order)
	}
	publish(ctx, s.Events, TopicOrderEvents, order.OrderUID, "order_placed", eventOf(order), now)
	return order, nil
}

// UpdateStatus moves an order to status. Cancelling returns the stock of
// every item; a cancelled order stays cancelled.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID uint, status string) (*models.Order, error) {
	next := models.OrderStatus(strings.ToLower(strings.TrimSpace(status)))
	if !next.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, status)
	}
	return s.transition(ctx, next, false, "id = ?", orderID)
}

// CancelByCustomer cancels a pending order owned by userID.
func (s *OrderService) CancelByCustomer(ctx context.Context, userID uint, orderUID string) (*models.Order, error) {
	return s.transition(ctx, models.OrderStatusCancelled, true, "order_uid = ? AND customer_id = ?", orderUID, userID)
}

// transition locks the order matched by where and applies next. byCustomer
// restricts the change to pending orders.
func (s *OrderService) transition(ctx context.Context, next models.OrderStatus, byCustomer bool, where string, args ...any) (*models.Order, error) {
	l := logging.FromContext(ctx).With("svc", "order.transition", "status", next)

	var (
		order   *models.Order
		changed bool
	)
	err := s.Repo.WithTx(ctx, func(tx *repo.GormRepo) error {
		o, err := tx.LockOrder(ctx, where, args...)
		if err != nil {
			return storeErr(err, "order")
		}
		order = o

		if o.Status == next {
			if byCustomer {
				return fmt.Errorf("%w: order is already %s", ErrInvalidTransition, o.Status)
			}
			return nil
		}
		if o.Status == models.OrderStatusCancelled {
			return fmt.Errorf("%w: order is cancelled", ErrInvalidTransition)
		}
		if byCustomer && o.Status != models.OrderStatusPending {
			return fmt.Errorf("%w: only pending orders can be cancelled", ErrInvalidTransition)
		}

		if next == models.OrderStatusCancelled {
			for _, it := range o.Items {
				ok, err := tx.AdjustStock(ctx, it.ProductID, it.Qty)
				if err != nil {
					return err
				}
				if !ok {
					l.Info("restock_skipped", "reason", "product no longer exists", "product_id", it.ProductID)
				}
			}
		}
		if err := tx.SetOrderStatus(ctx, o.ID, next); err != nil {
			return err
		}
		changed = true
		return nil
	})
	if err != nil {
		l.Warn("order_status_error", "reason", "transition rejected", "error", err)
		return nil, err
	}

	// Reload so the caller and the notifications see the committed row with
	// its customer.
	fresh, err := s.Repo.OrderByID(ctx, order.ID)
	if err != nil {
		return nil, storeErr(err, "order")
	}
	if !changed {
		return fresh, nil
	}

	l.Info("order_status_changed", "order_uid", fresh.OrderUID)
	if s.Notifier != nil {
		switch next {
		case models.OrderStatusDelivered:
			s.Notifier.OrderDelivered(ctx, fresh)
		case models.OrderStatusCancelled:
			s.Notifier.OrderCancelled(ctx, fresh)
		}
	}
	publish(ctx, s.Events, TopicOrderEvents, fresh.OrderUID, "order_status_changed", eventOf(fresh), clock(s.Now))
	return fresh, nil
}

func (s *OrderService) GetByUID(ctx context.Context, uid string) (*models.Order, error) {
	o, err := s.Repo.OrderByUID(ctx, uid)
	return o, storeErr(err, "order")
}

func (s *OrderService) GetByID(ctx context.Context, id uint) (*models.Order, error) {
	o, err := s.Repo.OrderByID(ctx, id)
	return o, storeErr(err, "order")
}

func (s *OrderService) ListAll(ctx context.Context, archived bool) ([]models.Order, error) {
	return s.Repo.ListOrders(ctx, archived)
}

func (s *OrderService) ListForUser(ctx context.Context, userID uint) ([]models.Order, error) {
	return s.Repo.ListOrdersByUser(ctx, userID)
}
