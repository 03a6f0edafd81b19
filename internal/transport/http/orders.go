package httpserver

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/transport"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

type OrdersHTTP struct {
	Svc *service.OrderService
}

func (h *OrdersHTTP) Checkout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "orders.checkout")

	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	var req transport.CheckoutRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "checkout", "invalid body", err)
	}

	o, err := h.Svc.PlaceOrder(ctx, userID, req)
	if err != nil {
		return serviceError(l, "checkout", err)
	}

	l.Info("checkout_success", "order_uid", o.OrderUID, "user_id", userID, "total", o.Total.StringFixed(2))
	return c.JSON(http.StatusCreated, transport.CheckoutResponse{
		OrderUID: o.OrderUID,
		Total:    o.Total,
		Status:   o.Status,
	})
}

func (h *OrdersHTTP) List(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "orders.list")

	archived := false
	if v := c.QueryParam("show_archived"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return badRequest(l, "list_orders", "show_archived must be a boolean", err)
		}
		archived = b
	}

	orders, err := h.Svc.ListAll(ctx, archived)
	if err != nil {
		return serviceError(l, "list_orders", err)
	}
	return c.JSON(http.StatusOK, orders)
}

func (h *OrdersHTTP) GetByUID(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "orders.get")

	o, err := h.Svc.GetByUID(ctx, c.Param("uid"))
	if err != nil {
		return serviceError(l, "get_order", err)
	}
	return c.JSON(http.StatusOK, o)
}

func (h *OrdersHTTP) UpdateStatus(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "orders.update_status")

	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(l, "update_order_status", err.Error(), err)
	}
	var req transport.OrderStatusRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "update_order_status", "invalid body", err)
	}

	o, err := h.Svc.UpdateStatus(ctx, id, req.Status)
	if err != nil {
		return serviceError(l, "update_order_status", err)
	}

	l.Info("update_order_status_success", "order_uid", o.OrderUID, "status", o.Status)
	return c.JSON(http.StatusOK, o)
}
