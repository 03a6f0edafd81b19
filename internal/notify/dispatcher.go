package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultCustomerInterval = time.Second
	DefaultAdminInterval    = 10 * time.Second
	DefaultQueueSize        = 256

	sendTimeout = 30 * time.Second
)

var ErrDispatcherClosed = errors.New("notify: dispatcher closed")

type Config struct {
	ShopName    string
	FrontendURL string
	BackendURL  string
	AdminEmail  string
	From        string
	Currency    string

	CustomerInterval time.Duration
	AdminInterval    time.Duration
	QueueSize        int
}

type Dispatcher struct {
	cfg      Config
	mailer   Mailer
	renderer *Renderer
	logger   *slog.Logger
	now      func() time.Time

	mu     sync.RWMutex
	closed bool
	queues map[Class]chan Notification

	runCtx context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewDispatcher starts one worker per recipient class. Each worker waits at
// least its class interval between two sends.
func NewDispatcher(cfg Config, mailer Mailer, logger *slog.Logger) (*Dispatcher, error) {
	if cfg.ShopName == "" {
		cfg.ShopName = "The Outfit Oracle"
	}
	if cfg.Currency == "" {
		cfg.Currency = "₹"
	}
	if cfg.CustomerInterval <= 0 {
		cfg.CustomerInterval = DefaultCustomerInterval
	}
	if cfg.AdminInterval <= 0 {
		cfg.AdminInterval = DefaultAdminInterval
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}

	renderer, err := NewRenderer(cfg.ShopName)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		cfg:      cfg,
		mailer:   mailer,
		renderer: renderer,
		logger:   logger.With("svc", "notify"),
		now:      time.Now,
		queues: map[Class]chan Notification{
			ClassCustomer: make(chan Notification, cfg.QueueSize),
			ClassAdmin:    make(chan Notification, cfg.QueueSize),
		},
		runCtx: ctx,
		cancel: cancel,
	}

	intervals := map[Class]time.Duration{
		ClassCustomer: cfg.CustomerInterval,
		ClassAdmin:    cfg.AdminInterval,
	}
	for class, ch := range d.queues {
		limiter := rate.NewLimiter(rate.Every(intervals[class]), 1)
		d.wg.Add(1)
		go d.worker(class, ch, limiter)
	}
	return d, nil
}

// Enqueue hands n to its class worker without blocking. A full queue or a
// closed dispatcher drops the notification.
func (d *Dispatcher) Enqueue(n Notification) error {
	l := d.logger.With("kind", n.Kind, "to", n.To)

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		l.Error("notification_dropped", "reason", "dispatcher closed")
		return ErrDispatcherClosed
	}

	select {
	case d.queues[n.Kind.Class()] <- n:
		return nil
	default:
		l.Error("notification_dropped", "reason", "queue full")
		return errors.New("notify: queue full")
	}
}

func (d *Dispatcher) worker(class Class, ch <-chan Notification, limiter *rate.Limiter) {
	defer d.wg.Done()
	l := d.logger.With("class", class)

	for n := range ch {
		if err := limiter.Wait(d.runCtx); err != nil {
			l.Error("notification_dropped", "kind", n.Kind, "to", n.To, "reason", "shutdown", "error", err)
			continue
		}
		d.deliver(l, n)
	}
}

func (d *Dispatcher) deliver(l *slog.Logger, n Notification) {
	l = l.With("kind", n.Kind, "to", n.To)

	msg, err := d.renderer.Render(n)
	if err != nil {
		l.Error("notification_failed", "reason", "render", "error", err)
		return
	}
	msg.From = d.cfg.From

	ctx, cancel := context.WithTimeout(d.runCtx, sendTimeout)
	defer cancel()
	if err := d.mailer.Send(ctx, msg); err != nil {
		l.Error("notification_failed", "reason", "send", "error", err)
		return
	}
	l.Info("notification_sent", "subject", msg.Subject)
}

// Close stops intake and waits for queued notifications to be sent. When ctx
// ends first, whatever is still queued is dropped.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	for _, ch := range d.queues {
		close(ch)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		<-done
		return ctx.Err()
	}
}
