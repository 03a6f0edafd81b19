package service_test

import (
	"context"
	"sync"

	"github.com/Skotchmaster/storefront/internal/assets"
	"github.com/Skotchmaster/storefront/internal/models"
)

type recordedCall struct {
	Kind  string
	Order *models.Order
}

type fakeNotifier struct {
	mu     sync.Mutex
	calls  []recordedCall
	tokens map[string]string
}

func (f *fakeNotifier) record(kind string, o *models.Order) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, recordedCall{Kind: kind, Order: o})
}

func (f *fakeNotifier) OrderPlaced(_ context.Context, o *models.Order)    { f.record("placed", o) }
func (f *fakeNotifier) OrderDelivered(_ context.Context, o *models.Order) { f.record("delivered", o) }
func (f *fakeNotifier) OrderCancelled(_ context.Context, o *models.Order) { f.record("cancelled", o) }

func (f *fakeNotifier) PasswordReset(_ context.Context, u *models.User, token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tokens == nil {
		f.tokens = map[string]string{}
	}
	f.tokens[u.Email] = token
}

func (f *fakeNotifier) kinds() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.calls))
	for _, c := range f.calls {
		out = append(out, c.Kind)
	}
	return out
}

type publishedEvent struct {
	Topic, Key string
	Event      any
}

type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (f *fakePublisher) PublishEvent(_ context.Context, topic, key string, event any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, publishedEvent{Topic: topic, Key: key, Event: event})
	return nil
}

// memImages records saved and discarded paths without touching disk.
type memImages struct {
	saved     []string
	discarded []string
	failSave  error
}

func (m *memImages) Save(_ context.Context, up assets.Upload) (string, error) {
	if m.failSave != nil {
		return "", m.failSave
	}
	p := "/static/images/products/" + up.Filename
	m.saved = append(m.saved, p)
	return p, nil
}

func (m *memImages) Discard(_ context.Context, p string) {
	m.discarded = append(m.discarded, p)
}
