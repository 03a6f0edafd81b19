package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/transport"
	"github.com/Skotchmaster/storefront/internal/util"
	"github.com/Skotchmaster/storefront/pkg/logging"
	middleware "github.com/Skotchmaster/storefront/pkg/middleware/auth"
)

type UsersHTTP struct {
	Identity *service.IdentityService
	Orders   *service.OrderService
}

func currentUser(c echo.Context) (uint, error) {
	id, err := middleware.UserID(c)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	return id, nil
}

func (h *UsersHTTP) Me(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users.me")

	id, err := currentUser(c)
	if err != nil {
		return err
	}
	u, err := h.Identity.UserByID(ctx, id)
	if err != nil {
		return serviceError(l, "me", err)
	}
	return c.JSON(http.StatusOK, u)
}

func (h *UsersHTTP) MyOrders(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users.my_orders")

	id, err := currentUser(c)
	if err != nil {
		return err
	}
	orders, err := h.Orders.ListForUser(ctx, id)
	if err != nil {
		return serviceError(l, "my_orders", err)
	}
	return c.JSON(http.StatusOK, orders)
}

func (h *UsersHTTP) CancelMyOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users.cancel_order")

	id, err := currentUser(c)
	if err != nil {
		return err
	}
	o, err := h.Orders.CancelByCustomer(ctx, id, c.Param("uid"))
	if err != nil {
		return serviceError(l, "cancel_order", err)
	}

	l.Info("cancel_order_success", "order_uid", o.OrderUID, "user_id", id)
	return c.JSON(http.StatusOK, o)
}

func (h *UsersHTTP) ListUsers(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users.list")

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	total, users, err := h.Identity.ListUsers(ctx, offset, limit)
	if err != nil {
		return serviceError(l, "list_users", err)
	}
	return c.JSON(http.StatusOK, transport.Page[models.User]{
		Data: users,
		Meta: util.Meta(page, offset, limit, total),
	})
}
