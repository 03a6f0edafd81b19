package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/storetest"
	"github.com/Skotchmaster/storefront/internal/transport"
)

type orderFixture struct {
	db     *gorm.DB
	svc    *service.OrderService
	notes  *fakeNotifier
	events *fakePublisher
	user   *models.User
	cat    *models.Category
}

func newOrderFixture(t *testing.T) *orderFixture {
	t.Helper()
	db := storetest.NewDB(t)
	f := &orderFixture{
		db:     db,
		notes:  &fakeNotifier{},
		events: &fakePublisher{},
		user:   storetest.CreateUser(t, db, "buyer@example.com", models.RoleUser),
		cat:    storetest.CreateCategory(t, db, "Shirts", "shirts"),
	}
	f.svc = &service.OrderService{
		Repo:     repo.New(db),
		Notifier: f.notes,
		Events:   f.events,
		Now:      func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) },
	}
	return f
}

func (f *orderFixture) stock(t *testing.T, id uint) int {
	t.Helper()
	var p models.Product
	require.NoError(t, f.db.First(&p, id).Error)
	return p.Stock
}

func (f *orderFixture) orderCount(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&models.Order{}).Count(&n).Error)
	return n
}

func checkout(items ...transport.CheckoutItem) transport.CheckoutRequest {
	return transport.CheckoutRequest{
		Items:           items,
		CustomerName:    "Ann",
		CustomerPhone:   "+1 555 0100",
		CustomerAddress: "1 Main St",
	}
}

func TestPlaceOrder_TotalsAndStock(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	shirt := storetest.CreateProduct(t, f.db, f.cat.ID, "Shirt", "shirt", "19.99", 5)
	socks := storetest.CreateProduct(t, f.db, f.cat.ID, "Socks", "socks", "2.50", 10)

	o, err := f.svc.PlaceOrder(ctx, f.user.ID, checkout(
		transport.CheckoutItem{ProductID: shirt.ID, Qty: 2},
		transport.CheckoutItem{ProductID: socks.ID, Qty: 3},
	))
	require.NoError(t, err)

	assert.Regexp(t, `^ORD-20240501-[0-9A-F]{6}$`, o.OrderUID)
	assert.Equal(t, models.OrderStatusPending, o.Status)
	assert.False(t, o.IsArchived)
	assert.True(t, decimal.RequireFromString("47.48").Equal(o.Total), o.Total.String())

	sum := decimal.Zero
	for _, it := range o.Items {
		assert.True(t, it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Qty))).Equal(it.Subtotal))
		sum = sum.Add(it.Subtotal)
	}
	assert.True(t, sum.Equal(o.Total))

	assert.Equal(t, 3, f.stock(t, shirt.ID))
	assert.Equal(t, 7, f.stock(t, socks.ID))
	assert.Equal(t, []string{"placed"}, f.notes.kinds())
	require.Len(t, f.events.events, 1)
	assert.Equal(t, service.TopicOrderEvents, f.events.events[0].Topic)
	assert.Equal(t, o.OrderUID, f.events.events[0].Key)

	stored, err := f.svc.GetByUID(ctx, o.OrderUID)
	require.NoError(t, err)
	assert.Len(t, stored.Items, 2)
	require.NotNil(t, stored.Customer)
	assert.Equal(t, f.user.Email, stored.Customer.Email)
}

func TestPlaceOrder_RejectsWithoutWriting(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	shirt := storetest.CreateProduct(t, f.db, f.cat.ID, "Shirt", "shirt", "10", 3)
	hat := storetest.CreateProduct(t, f.db, f.cat.ID, "Hat", "hat", "5", 10)

	cases := []struct {
		name string
		user uint
		req  transport.CheckoutRequest
		want error
	}{
		{"insufficient stock", f.user.ID, checkout(
			transport.CheckoutItem{ProductID: hat.ID, Qty: 1},
			transport.CheckoutItem{ProductID: shirt.ID, Qty: 4},
		), service.ErrInsufficientStock},
		{"duplicate lines summed", f.user.ID, checkout(
			transport.CheckoutItem{ProductID: shirt.ID, Qty: 2},
			transport.CheckoutItem{ProductID: shirt.ID, Qty: 2},
		), service.ErrInsufficientStock},
		{"unknown product", f.user.ID, checkout(
			transport.CheckoutItem{ProductID: hat.ID, Qty: 1},
			transport.CheckoutItem{ProductID: 9999, Qty: 1},
		), service.ErrProductUnavailable},
		{"unknown user", 4242, checkout(
			transport.CheckoutItem{ProductID: hat.ID, Qty: 1},
		), service.ErrUnknownUser},
		{"empty cart", f.user.ID, checkout(), service.ErrValidation},
		{"zero qty", f.user.ID, checkout(
			transport.CheckoutItem{ProductID: hat.ID, Qty: 0},
		), service.ErrValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.PlaceOrder(ctx, tc.user, tc.req)
			require.ErrorIs(t, err, tc.want)
			if tc.want != service.ErrValidation {
				assert.ErrorIs(t, err, service.ErrPrecondition)
			}

			assert.Equal(t, int64(0), f.orderCount(t))
			assert.Equal(t, 3, f.stock(t, shirt.ID))
			assert.Equal(t, 10, f.stock(t, hat.ID))
		})
	}
	assert.Empty(t, f.notes.kinds())
	assert.Empty(t, f.events.events)
}

func TestPlaceOrder_MissingContactFieldsAreValidation(t *testing.T) {
	f := newOrderFixture(t)
	hat := storetest.CreateProduct(t, f.db, f.cat.ID, "Hat", "hat", "5", 10)

	cases := []struct {
		name  string
		clear func(r *transport.CheckoutRequest)
	}{
		{"name", func(r *transport.CheckoutRequest) { r.CustomerName = " " }},
		{"phone", func(r *transport.CheckoutRequest) { r.CustomerPhone = "" }},
		{"address", func(r *transport.CheckoutRequest) { r.CustomerAddress = "  " }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := checkout(transport.CheckoutItem{ProductID: hat.ID, Qty: 1})
			tc.clear(&req)
			_, err := f.svc.PlaceOrder(context.Background(), f.user.ID, req)
			assert.ErrorIs(t, err, service.ErrValidation)
			assert.Equal(t, int64(0), f.orderCount(t))
			assert.Equal(t, 10, f.stock(t, hat.ID))
		})
	}
}

func TestUpdateStatus_CancelRestoresStockOnce(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	shirt := storetest.CreateProduct(t, f.db, f.cat.ID, "Shirt", "shirt", "10", 5)

	o, err := f.svc.PlaceOrder(ctx, f.user.ID, checkout(transport.CheckoutItem{ProductID: shirt.ID, Qty: 2}))
	require.NoError(t, err)
	assert.Equal(t, 3, f.stock(t, shirt.ID))

	cancelled, err := f.svc.UpdateStatus(ctx, o.ID, "cancelled")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, cancelled.Status)
	assert.True(t, cancelled.IsArchived)
	assert.Equal(t, 5, f.stock(t, shirt.ID))

	again, err := f.svc.UpdateStatus(ctx, o.ID, "cancelled")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, again.Status)
	assert.Equal(t, 5, f.stock(t, shirt.ID))

	_, err = f.svc.UpdateStatus(ctx, o.ID, "pending")
	assert.ErrorIs(t, err, service.ErrInvalidTransition)
	assert.Equal(t, 5, f.stock(t, shirt.ID))

	assert.Equal(t, []string{"placed", "cancelled"}, f.notes.kinds())
}

func TestUpdateStatus_ArchivedFollowsStatus(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	shirt := storetest.CreateProduct(t, f.db, f.cat.ID, "Shirt", "shirt", "10", 5)

	o, err := f.svc.PlaceOrder(ctx, f.user.ID, checkout(transport.CheckoutItem{ProductID: shirt.ID, Qty: 1}))
	require.NoError(t, err)

	delivered, err := f.svc.UpdateStatus(ctx, o.ID, "delivered")
	require.NoError(t, err)
	assert.True(t, delivered.IsArchived)
	assert.Equal(t, 4, f.stock(t, shirt.ID))

	reopened, err := f.svc.UpdateStatus(ctx, o.ID, "pending")
	require.NoError(t, err)
	assert.False(t, reopened.IsArchived)

	_, err = f.svc.UpdateStatus(ctx, o.ID, "shipped")
	assert.ErrorIs(t, err, service.ErrValidation)

	_, err = f.svc.UpdateStatus(ctx, 9999, "delivered")
	assert.ErrorIs(t, err, service.ErrNotFound)

	active, err := f.svc.ListAll(ctx, false)
	require.NoError(t, err)
	require.Len(t, active, 1)
	for _, o := range active {
		assert.Equal(t, o.Status.Terminal(), o.IsArchived)
	}
	assert.Equal(t, []string{"placed", "delivered"}, f.notes.kinds())
}

func TestCancelByCustomer(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	shirt := storetest.CreateProduct(t, f.db, f.cat.ID, "Shirt", "shirt", "10", 5)
	other := storetest.CreateUser(t, f.db, "other@example.com", models.RoleUser)

	o, err := f.svc.PlaceOrder(ctx, f.user.ID, checkout(transport.CheckoutItem{ProductID: shirt.ID, Qty: 2}))
	require.NoError(t, err)

	_, err = f.svc.CancelByCustomer(ctx, other.ID, o.OrderUID)
	assert.ErrorIs(t, err, service.ErrNotFound)

	got, err := f.svc.CancelByCustomer(ctx, f.user.ID, o.OrderUID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, got.Status)
	assert.Equal(t, 5, f.stock(t, shirt.ID))

	_, err = f.svc.CancelByCustomer(ctx, f.user.ID, o.OrderUID)
	assert.ErrorIs(t, err, service.ErrInvalidTransition)
	assert.Equal(t, 5, f.stock(t, shirt.ID))

	mine, err := f.svc.ListForUser(ctx, f.user.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Len(t, mine[0].Items, 1)
}

func TestCancel_SkipsDeletedProducts(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	shirt := storetest.CreateProduct(t, f.db, f.cat.ID, "Shirt", "shirt", "10", 5)
	hat := storetest.CreateProduct(t, f.db, f.cat.ID, "Hat", "hat", "5", 5)

	o, err := f.svc.PlaceOrder(ctx, f.user.ID, checkout(
		transport.CheckoutItem{ProductID: shirt.ID, Qty: 1},
		transport.CheckoutItem{ProductID: hat.ID, Qty: 1},
	))
	require.NoError(t, err)
	require.NoError(t, f.db.Delete(&models.Product{}, hat.ID).Error)

	_, err = f.svc.UpdateStatus(ctx, o.ID, "cancelled")
	require.NoError(t, err)
	assert.Equal(t, 5, f.stock(t, shirt.ID))
}
