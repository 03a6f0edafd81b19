package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/transport"
	"github.com/Skotchmaster/storefront/internal/util"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

type ContactHTTP struct {
	Svc *service.ContactService
}

func (h *ContactHTTP) Submit(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "contact.submit")

	var req transport.ContactRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "contact_submit", "invalid body", err)
	}
	s, err := h.Svc.Submit(ctx, req)
	if err != nil {
		return serviceError(l, "contact_submit", err)
	}

	l.Info("contact_submit_success", "submission_id", s.ID)
	return c.JSON(http.StatusCreated, s)
}

func (h *ContactHTTP) List(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "contact.list")

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	total, items, err := h.Svc.List(ctx, offset, limit)
	if err != nil {
		return serviceError(l, "contact_list", err)
	}
	return c.JSON(http.StatusOK, transport.Page[models.ContactSubmission]{
		Data: items,
		Meta: util.Meta(page, offset, limit, total),
	})
}
