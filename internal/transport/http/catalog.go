package httpserver

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/storefront/internal/assets"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/transport"
	"github.com/Skotchmaster/storefront/internal/util"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

type CatalogHTTP struct {
	Svc *service.CatalogService
}

func (h *CatalogHTTP) ListCategories(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "category.list")

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.MaxPageSize)
	offset, limit := util.Calculate(page, size)

	items, err := h.Svc.ListCategories(ctx, offset, limit)
	if err != nil {
		return serviceError(l, "list_categories", err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *CatalogHTTP) GetCategory(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "category.get")

	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(l, "get_category", err.Error(), err)
	}
	cat, err := h.Svc.GetCategory(ctx, id)
	if err != nil {
		return serviceError(l, "get_category", err)
	}
	return c.JSON(http.StatusOK, cat)
}

func (h *CatalogHTTP) CreateCategory(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "category.create")

	var req transport.CategoryRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "create_category", "invalid body", err)
	}
	cat, err := h.Svc.CreateCategory(ctx, req)
	if err != nil {
		return serviceError(l, "create_category", err)
	}

	l.Info("create_category_success", "category_id", cat.ID)
	return c.JSON(http.StatusCreated, cat)
}

func (h *CatalogHTTP) UpdateCategory(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "category.update")

	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(l, "update_category", err.Error(), err)
	}
	var req transport.CategoryRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "update_category", "invalid body", err)
	}
	cat, err := h.Svc.UpdateCategory(ctx, id, req)
	if err != nil {
		return serviceError(l, "update_category", err)
	}
	return c.JSON(http.StatusOK, cat)
}

func (h *CatalogHTTP) DeleteCategory(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "category.delete")

	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(l, "delete_category", err.Error(), err)
	}
	if err := h.Svc.DeleteCategory(ctx, id); err != nil {
		return serviceError(l, "delete_category", err)
	}

	l.Info("delete_category_success", "category_id", id)
	return c.NoContent(http.StatusNoContent)
}

func (h *CatalogHTTP) GetProducts(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.get_products")

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	categoryID := util.ParseIntDefault(c.QueryParam("category_id"), 0)
	if categoryID < 0 {
		categoryID = 0
	}

	offset, limit := util.Calculate(page, size)

	total, items, err := h.Svc.ListProducts(ctx, uint(categoryID), offset, limit)
	if err != nil {
		return serviceError(l, "get_products", err)
	}

	return c.JSON(http.StatusOK, transport.Page[models.Product]{
		Data: items,
		Meta: util.Meta(page, offset, limit, total),
	})
}

func (h *CatalogHTTP) SearchProducts(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.search")

	items, err := h.Svc.Search(ctx, c.QueryParam("query"))
	if err != nil {
		return serviceError(l, "search_products", err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *CatalogHTTP) GetProductBySlug(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.get_by_slug")

	p, err := h.Svc.GetProductBySlug(ctx, c.Param("slug"))
	if err != nil {
		return serviceError(l, "get_product", err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *CatalogHTTP) GetProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.get_product")

	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(l, "get_product", err.Error(), err)
	}
	p, err := h.Svc.GetProduct(ctx, id)
	if err != nil {
		return serviceError(l, "get_product", err)
	}
	return c.JSON(http.StatusOK, p)
}

// productForm reads the multipart fields of a product request. The image
// part is optional.
func productForm(c echo.Context) (transport.ProductRequest, *assets.Upload, func(), error) {
	var req transport.ProductRequest
	noop := func() {}

	req.Name = c.FormValue("name")
	req.Description = c.FormValue("description")

	price, err := decimal.NewFromString(strings.TrimSpace(c.FormValue("price")))
	if err != nil {
		return req, nil, noop, errors.New("price must be a number")
	}
	req.Price = price

	if v := strings.TrimSpace(c.FormValue("stock")); v != "" {
		if req.Stock, err = strconv.Atoi(v); err != nil {
			return req, nil, noop, errors.New("stock must be an integer")
		}
	}
	cid, err := strconv.ParseUint(strings.TrimSpace(c.FormValue("category_id")), 10, 64)
	if err != nil {
		return req, nil, noop, errors.New("category_id must be an integer")
	}
	req.CategoryID = uint(cid)

	fh, err := c.FormFile("image")
	if err != nil {
		// no image part
		return req, nil, noop, nil
	}
	f, err := fh.Open()
	if err != nil {
		return req, nil, noop, errors.New("cannot read image")
	}
	up := &assets.Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Body:        f,
	}
	return req, up, func() { _ = f.Close() }, nil
}

func (h *CatalogHTTP) CreateProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.create")

	req, image, closeImage, err := productForm(c)
	if err != nil {
		return badRequest(l, "product_create", err.Error(), err)
	}
	defer closeImage()

	p, err := h.Svc.CreateProduct(ctx, req, image)
	if err != nil {
		return serviceError(l, "product_create", err)
	}

	l.Info("create_product_success", "product_id", p.ID)
	return c.JSON(http.StatusCreated, p)
}

func (h *CatalogHTTP) UpdateProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.update")

	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(l, "product_update", err.Error(), err)
	}
	req, image, closeImage, err := productForm(c)
	if err != nil {
		return badRequest(l, "product_update", err.Error(), err)
	}
	defer closeImage()

	p, err := h.Svc.UpdateProduct(ctx, id, req, image)
	if err != nil {
		return serviceError(l, "product_update", err)
	}

	l.Info("update_product_success", "product_id", p.ID)
	return c.JSON(http.StatusOK, p)
}

func (h *CatalogHTTP) AddStock(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.add_stock")

	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(l, "add_stock", err.Error(), err)
	}
	var req transport.AddStockRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "add_stock", "invalid body", err)
	}

	p, err := h.Svc.AddStock(ctx, id, req.Amount)
	if err != nil {
		return serviceError(l, "add_stock", err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *CatalogHTTP) DeleteProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.delete")

	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(l, "product_delete", err.Error(), err)
	}
	if err := h.Svc.DeleteProduct(ctx, id); err != nil {
		return serviceError(l, "product_delete", err)
	}

	l.Info("delete_product_success", "product_id", id)
	return c.NoContent(http.StatusNoContent)
}
