package httpserver_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/assets"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/storetest"
	"github.com/Skotchmaster/storefront/internal/transport"
	httpserver "github.com/Skotchmaster/storefront/internal/transport/http"
)

type testEnv struct {
	E         *echo.Echo
	DB        *gorm.DB
	Identity  *service.IdentityService
	UploadDir string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := storetest.NewDB(t)
	r := repo.New(db)

	dir := t.TempDir()
	backend, err := assets.NewLocalBackend(dir)
	require.NoError(t, err)
	images := assets.NewManager(backend, assets.DefaultPublicPrefix, 0)

	identity := &service.IdentityService{
		Repo:          r,
		JWTSecret:     []byte("access-secret"),
		RefreshSecret: []byte("refresh-secret"),
	}
	catalog := &service.CatalogService{Repo: r, Images: images}
	orders := &service.OrderService{Repo: r}

	e := echo.New()
	httpserver.Register(e, &httpserver.Deps{
		AuthHandler:    &httpserver.AuthHTTP{Svc: identity},
		UsersHandler:   &httpserver.UsersHTTP{Identity: identity, Orders: orders},
		CatalogHandler: &httpserver.CatalogHTTP{Svc: catalog},
		OrdersHandler:  &httpserver.OrdersHTTP{Svc: orders},
		ContactHandler: &httpserver.ContactHTTP{Svc: &service.ContactService{Repo: r}},
		JWTSecret:      identity.JWTSecret,
		Refresher:      identity,
		DB:             db,
		StaticPrefix:   images.Prefix(),
		StaticDir:      dir,
	})

	return &testEnv{E: e, DB: db, Identity: identity, UploadDir: dir}
}

func (env *testEnv) do(t *testing.T, method, target string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, rd)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	env.E.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) doRaw(t *testing.T, req *http.Request, token string) *httptest.ResponseRecorder {
	t.Helper()
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	env.E.ServeHTTP(rec, req)
	return rec
}

// login creates an account with the given role and returns its access token.
func (env *testEnv) login(t *testing.T, email, role string) (string, *models.User) {
	t.Helper()

	u := storetest.CreateUser(t, env.DB, email, role)
	rec := env.do(t, http.MethodPost, "/api/auth/login", transport.LoginRequest{Email: email, Password: "Secret123"}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp transport.LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.AccessToken)
	return resp.AccessToken, u
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}
