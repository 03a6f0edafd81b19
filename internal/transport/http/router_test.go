package httpserver_test

import (
	"bytes"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/storetest"
	"github.com/Skotchmaster/storefront/internal/transport"
	"github.com/Skotchmaster/storefront/pkg/tokens"
)

func TestBannerAndHealth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, decode[transport.MessageResponse](t, rec).Message, "running")

	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/health/live", nil, "").Code)
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/health/ready", nil, "").Code)
}

func TestRegisterLoginAndMe(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/auth/register",
		transport.RegisterRequest{Name: "Ann", Email: "ann@example.com", Password: "Secret123"}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "password")

	rec = env.do(t, http.MethodPost, "/api/auth/register",
		transport.RegisterRequest{Name: "Ann", Email: "ann@example.com", Password: "Secret123"}, "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/auth/login",
		transport.LoginRequest{Email: "ann@example.com", Password: "nope-nope"}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))

	rec = env.do(t, http.MethodPost, "/api/auth/login",
		transport.LoginRequest{Email: "ann@example.com", Password: "Secret123"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[transport.LoginResponse](t, rec)
	assert.Equal(t, "bearer", resp.TokenType)
	require.NotNil(t, resp.User)
	assert.Equal(t, "ann@example.com", resp.User.Email)

	names := map[string]bool{}
	for _, ck := range rec.Result().Cookies() {
		names[ck.Name] = ck.Value != ""
	}
	assert.True(t, names[tokens.AccessCookie])
	assert.True(t, names[tokens.RefreshCookie])

	rec = env.do(t, http.MethodGet, "/api/users/me", nil, resp.AccessToken)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ann@example.com", decode[models.User](t, rec).Email)

	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodGet, "/api/users/me", nil, "").Code)
}

func TestTokenFormLogin(t *testing.T) {
	env := newTestEnv(t)
	storetest.CreateUser(t, env.DB, "form@example.com", models.RoleUser)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/token",
		bytes.NewBufferString("username=form%40example.com&password=Secret123"))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := env.doRaw(t, req, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEmpty(t, decode[transport.LoginResponse](t, rec).AccessToken)
}

func TestPasswordResetEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/auth/forgot-password",
		transport.ForgotPasswordRequest{Email: "ghost@example.com"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, decode[transport.MessageResponse](t, rec).Message, "If an account with that email exists")

	rec = env.do(t, http.MethodPost, "/api/auth/reset-password",
		transport.ResetPasswordRequest{Token: "bogus", NewPassword: "Another123"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	env := newTestEnv(t)
	userToken, _ := env.login(t, "user@example.com", models.RoleUser)
	adminToken, _ := env.login(t, "admin@example.com", models.RoleAdmin)

	name := "Shirts"
	body := transport.CategoryRequest{Name: &name}

	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodPost, "/api/categories", body, "").Code)
	assert.Equal(t, http.StatusForbidden, env.do(t, http.MethodPost, "/api/categories", body, userToken).Code)

	rec := env.do(t, http.MethodPost, "/api/categories", body, adminToken)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	cat := decode[models.Category](t, rec)
	assert.Equal(t, "shirts", cat.Slug)

	rec = env.do(t, http.MethodGet, "/api/categories", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.Category](t, rec), 1)

	rec = env.do(t, http.MethodGet, "/api/users", nil, adminToken)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[transport.Page[models.User]](t, rec)
	assert.EqualValues(t, 2, page.Meta.Total)

	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/api/categories/abc", nil, "").Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/categories/999", nil, "").Code)
}

func productMultipart(t *testing.T, fields map[string]string, withImage bool) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if withImage {
		part, err := w.CreateFormFile("image", "tee.png")
		require.NoError(t, err)
		require.NoError(t, png.Encode(part, image.NewRGBA(image.Rect(0, 0, 3, 3))))
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestCreateProductMultipart(t *testing.T) {
	env := newTestEnv(t)
	adminToken, _ := env.login(t, "admin@example.com", models.RoleAdmin)
	cat := storetest.CreateCategory(t, env.DB, "Tees", "tees")

	body, ct := productMultipart(t, map[string]string{
		"name":        "Red Tee",
		"price":       "19.99",
		"stock":       "5",
		"description": "cotton",
		"category_id": strconv.FormatUint(uint64(cat.ID), 10),
	}, true)
	req := httptest.NewRequest(http.MethodPost, "/api/products", body)
	req.Header.Set(echo.HeaderContentType, ct)
	rec := env.doRaw(t, req, adminToken)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	p := decode[models.Product](t, rec)
	assert.Equal(t, "red-tee", p.Slug)
	assert.True(t, decimal.RequireFromString("19.99").Equal(p.Price))
	require.NotEmpty(t, p.Image)

	rec = env.do(t, http.MethodGet, p.Image, nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/products/slug/red-tee", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, p.ID, decode[models.Product](t, rec).ID)

	rec = env.do(t, http.MethodGet, "/api/products?category_id="+strconv.FormatUint(uint64(cat.ID), 10), nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[transport.Page[models.Product]](t, rec)
	assert.EqualValues(t, 1, page.Meta.Total)
	assert.False(t, page.Meta.HasNext)

	bad, ct := productMultipart(t, map[string]string{"name": "X", "price": "abc", "category_id": "1"}, false)
	req = httptest.NewRequest(http.MethodPost, "/api/products", bad)
	req.Header.Set(echo.HeaderContentType, ct)
	assert.Equal(t, http.StatusBadRequest, env.doRaw(t, req, adminToken).Code)
}

func TestSearchEndpoint(t *testing.T) {
	env := newTestEnv(t)
	cat := storetest.CreateCategory(t, env.DB, "Tees", "tees")
	storetest.CreateProduct(t, env.DB, cat.ID, "Red Cotton Tee", "red-cotton-tee", "10.00", 1)
	storetest.CreateProduct(t, env.DB, cat.ID, "Blue Tee", "blue-tee", "10.00", 1)

	rec := env.do(t, http.MethodGet, "/api/products/search?query=", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/products/search?query=red+tee", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	found := decode[[]models.Product](t, rec)
	require.Len(t, found, 1)
	assert.Equal(t, "red-cotton-tee", found[0].Slug)
}

func TestCheckoutAndAdminStatusFlow(t *testing.T) {
	env := newTestEnv(t)
	userToken, _ := env.login(t, "buyer@example.com", models.RoleUser)
	adminToken, _ := env.login(t, "admin@example.com", models.RoleAdmin)
	cat := storetest.CreateCategory(t, env.DB, "Tees", "tees")
	p := storetest.CreateProduct(t, env.DB, cat.ID, "Tee", "tee", "12.50", 3)

	checkout := transport.CheckoutRequest{
		Items:           []transport.CheckoutItem{{ProductID: p.ID, Qty: 2}},
		CustomerName:    "Buyer",
		CustomerPhone:   "555-0100",
		CustomerAddress: "1 Main St",
	}

	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodPost, "/api/checkout", checkout, "").Code)

	rec := env.do(t, http.MethodPost, "/api/checkout", checkout, userToken)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	placed := decode[transport.CheckoutResponse](t, rec)
	assert.Regexp(t, `^ORD-\d{8}-[A-F0-9]{6}$`, placed.OrderUID)
	assert.True(t, decimal.RequireFromString("25").Equal(placed.Total))
	assert.Equal(t, models.OrderStatusPending, placed.Status)

	rec = env.do(t, http.MethodPost, "/api/checkout", checkout, userToken)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/users/me/orders", nil, userToken)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.Order](t, rec), 1)

	assert.Equal(t, http.StatusForbidden, env.do(t, http.MethodGet, "/api/orders", nil, userToken).Code)

	rec = env.do(t, http.MethodGet, "/api/orders/"+placed.OrderUID, nil, adminToken)
	require.Equal(t, http.StatusOK, rec.Code)
	order := decode[models.Order](t, rec)
	require.Len(t, order.Items, 1)

	rec = env.do(t, http.MethodPut, "/api/orders/"+strconv.FormatUint(uint64(order.ID), 10),
		transport.OrderStatusRequest{Status: "shipped"}, adminToken)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPut, "/api/orders/"+strconv.FormatUint(uint64(order.ID), 10),
		transport.OrderStatusRequest{Status: "cancelled"}, adminToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, decode[models.Order](t, rec).IsArchived)

	var stock models.Product
	require.NoError(t, env.DB.First(&stock, p.ID).Error)
	assert.Equal(t, 3, stock.Stock)

	rec = env.do(t, http.MethodGet, "/api/orders", nil, adminToken)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]models.Order](t, rec))

	rec = env.do(t, http.MethodGet, "/api/orders?show_archived=true", nil, adminToken)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.Order](t, rec), 1)

	rec = env.do(t, http.MethodPost, "/api/users/me/orders/"+placed.OrderUID+"/cancel", nil, userToken)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestContactEndpoints(t *testing.T) {
	env := newTestEnv(t)
	adminToken, _ := env.login(t, "admin@example.com", models.RoleAdmin)

	rec := env.do(t, http.MethodPost, "/api/contact", transport.ContactRequest{
		Name: "Visitor", Email: "visitor@example.com", Message: "Do you ship abroad?",
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/api/contact", transport.ContactRequest{
		Name: "Visitor", Email: "not-an-email", Message: "hi",
	}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodGet, "/api/contact", nil, "").Code)

	rec = env.do(t, http.MethodGet, "/api/contact", nil, adminToken)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[transport.Page[models.ContactSubmission]](t, rec)
	require.Len(t, page.Data, 1)
	assert.Nil(t, page.Data[0].Phone)
}
