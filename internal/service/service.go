package service

import (
	"context"
	"time"

	"github.com/Skotchmaster/storefront/internal/assets"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

const (
	TopicOrderEvents   = "order_events"
	TopicProductEvents = "product_events"
)

// EventPublisher publishes JSON domain events.
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic, key string, event any) error
}

// OrderNotifier hands order notifications to the asynchronous dispatcher.
// Implementations must not block.
type OrderNotifier interface {
	OrderPlaced(ctx context.Context, o *models.Order)
	OrderDelivered(ctx context.Context, o *models.Order)
	OrderCancelled(ctx context.Context, o *models.Order)
}

type ResetNotifier interface {
	PasswordReset(ctx context.Context, u *models.User, token string)
}

type ImageStore interface {
	Save(ctx context.Context, up assets.Upload) (string, error)
	Discard(ctx context.Context, publicPath string)
}

// ProductIndex mirrors products into a search engine.
type ProductIndex interface {
	IndexProduct(ctx context.Context, p *models.Product) error
	DeleteProduct(ctx context.Context, id uint) error
	Search(ctx context.Context, keywords []string) ([]models.Product, error)
}

type Event struct {
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Data       any       `json:"data"`
}

func publish(ctx context.Context, p EventPublisher, topic, key, typ string, data any, now time.Time) {
	if p == nil {
		return
	}
	ev := Event{Type: typ, OccurredAt: now, Data: data}
	if err := p.PublishEvent(ctx, topic, key, ev); err != nil {
		logging.FromContext(ctx).Warn("publish_event_failed", "topic", topic, "type", typ, "error", err)
	}
}

func clock(now func() time.Time) time.Time {
	if now != nil {
		return now().UTC()
	}
	return time.Now().UTC()
}
