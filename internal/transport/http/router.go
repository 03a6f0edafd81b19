package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/transport"
	pkgdb "github.com/Skotchmaster/storefront/pkg/db"
	"github.com/Skotchmaster/storefront/pkg/logging"
	middleware "github.com/Skotchmaster/storefront/pkg/middleware/auth"
)

const bannerMessage = "storefront backend is running."

type Deps struct {
	AuthHandler    *AuthHTTP
	UsersHandler   *UsersHTTP
	CatalogHandler *CatalogHTTP
	OrdersHandler  *OrdersHTTP
	ContactHandler *ContactHTTP

	JWTSecret []byte
	Refresher middleware.Refresher
	DB        *gorm.DB

	// StaticPrefix and StaticDir serve uploaded images when they live on
	// local disk. Both empty disables the route.
	StaticPrefix string
	StaticDir    string
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, transport.MessageResponse{Message: bannerMessage})
	})
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if d.DB == nil {
			return c.NoContent(http.StatusOK)
		}
		if err := pkgdb.Ping(c.Request().Context(), d.DB); err != nil {
			logging.FromContext(c.Request().Context()).Error("ready_check_failed", "status", 503, "error", err)
			return c.NoContent(http.StatusServiceUnavailable)
		}
		return c.NoContent(http.StatusOK)
	})
	if d.StaticPrefix != "" && d.StaticDir != "" {
		e.Static(d.StaticPrefix, d.StaticDir)
	}

	authMW := middleware.NewAutoRefreshMiddleware(d.JWTSecret, d.Refresher)

	auth := e.Group("/api/auth")
	auth.POST("/register", d.AuthHandler.Register)
	auth.POST("/login", d.AuthHandler.Login)
	auth.POST("/token", d.AuthHandler.Token)
	auth.POST("/refresh", d.AuthHandler.Refresh)
	auth.POST("/logout", d.AuthHandler.LogOut)
	auth.POST("/google-login", d.AuthHandler.GoogleLogin)
	auth.POST("/forgot-password", d.AuthHandler.ForgotPassword)
	auth.POST("/reset-password", d.AuthHandler.ResetPassword)

	users := e.Group("/api/users")
	users.GET("/me", d.UsersHandler.Me, authMW.RequireAuth)
	users.GET("/me/orders", d.UsersHandler.MyOrders, authMW.RequireAuth)
	users.POST("/me/orders/:uid/cancel", d.UsersHandler.CancelMyOrder, authMW.RequireAuth)
	users.GET("", d.UsersHandler.ListUsers, authMW.RequireAdmin)

	categories := e.Group("/api/categories")
	categories.GET("", d.CatalogHandler.ListCategories)
	categories.GET("/:id", d.CatalogHandler.GetCategory)
	categoriesAdmin := categories.Group("", authMW.RequireAdmin)
	categoriesAdmin.POST("", d.CatalogHandler.CreateCategory)
	categoriesAdmin.PUT("/:id", d.CatalogHandler.UpdateCategory)
	categoriesAdmin.DELETE("/:id", d.CatalogHandler.DeleteCategory)

	products := e.Group("/api/products")
	products.GET("", d.CatalogHandler.GetProducts)
	products.GET("/search", d.CatalogHandler.SearchProducts)
	products.GET("/slug/:slug", d.CatalogHandler.GetProductBySlug)
	products.GET("/:id", d.CatalogHandler.GetProduct)
	productsAdmin := products.Group("", authMW.RequireAdmin)
	productsAdmin.POST("", d.CatalogHandler.CreateProduct)
	productsAdmin.PUT("/:id", d.CatalogHandler.UpdateProduct)
	productsAdmin.POST("/:id/add_stock", d.CatalogHandler.AddStock)
	productsAdmin.DELETE("/:id", d.CatalogHandler.DeleteProduct)

	e.POST("/api/checkout", d.OrdersHandler.Checkout, authMW.RequireAuth)

	orders := e.Group("/api/orders", authMW.RequireAdmin)
	orders.GET("", d.OrdersHandler.List)
	orders.GET("/:uid", d.OrdersHandler.GetByUID)
	orders.PUT("/:id", d.OrdersHandler.UpdateStatus)

	contact := e.Group("/api/contact")
	contact.POST("", d.ContactHandler.Submit)
	contact.GET("", d.ContactHandler.List, authMW.RequireAdmin)
}
