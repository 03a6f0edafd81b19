package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/storefront/internal/assets"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/transport"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

type CatalogService struct {
	Repo   *repo.GormRepo
	Images ImageStore
	// Index mirrors products for full-text search. When UseIndex is set,
	// Search asks it first and falls back to the database on failure.
	Index    ProductIndex
	UseIndex bool
	Events   EventPublisher
	Now      func() time.Time
}

// ---- categories ----

func (s *CatalogService) CreateCategory(ctx context.Context, req transport.CategoryRequest) (*models.Category, error) {
	l := logging.FromContext(ctx).With("svc", "catalog.create_category")

	name := ""
	if req.Name != nil {
		name = strings.TrimSpace(*req.Name)
	}
	if name == "" {
		return nil, fmt.Errorf("%w: name required", ErrValidation)
	}

	slug, err := s.categorySlug(ctx, name, req.Slug, 0)
	if err != nil {
		return nil, err
	}

	c := &models.Category{Name: name, Slug: slug}
	if err := s.Repo.CreateCategory(ctx, c); err != nil {
		l.Warn("create_category_error", "status", 409, "reason", "cannot insert category", "error", err)
		return nil, storeErr(err, "category")
	}
	return c, nil
}

// categorySlug uses an explicit slug as given (normalized) and otherwise
// derives a unique one from the name.
func (s *CatalogService) categorySlug(ctx context.Context, name string, explicit *string, excludeID uint) (string, error) {
	if explicit != nil && strings.TrimSpace(*explicit) != "" {
		slug := Slugify(*explicit)
		if slug == "" {
			return "", fmt.Errorf("%w: invalid slug", ErrValidation)
		}
		return slug, nil
	}
	return uniqueSlug(ctx, Slugify(name), "category", excludeID, s.Repo.CategorySlugTaken)
}

func (s *CatalogService) UpdateCategory(ctx context.Context, id uint, req transport.CategoryRequest) (*models.Category, error) {
	c, err := s.Repo.CategoryByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "category")
	}

	renamed := false
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name must not be empty", ErrValidation)
		}
		renamed = name != c.Name
		c.Name = name
	}
	if req.Slug != nil || renamed {
		slug, err := s.categorySlug(ctx, c.Name, req.Slug, c.ID)
		if err != nil {
			return nil, err
		}
		c.Slug = slug
	}

	if err := s.Repo.SaveCategory(ctx, c); err != nil {
		return nil, storeErr(err, "category")
	}
	return c, nil
}

func (s *CatalogService) GetCategory(ctx context.Context, id uint) (*models.Category, error) {
	c, err := s.Repo.CategoryByID(ctx, id)
	return c, storeErr(err, "category")
}

func (s *CatalogService) ListCategories(ctx context.Context, offset, limit int) ([]models.Category, error) {
	return s.Repo.ListCategories(ctx, offset, limit)
}

// DeleteCategory removes the category with all of its products.
func (s *CatalogService) DeleteCategory(ctx context.Context, id uint) error {
	removed, err := s.Repo.DeleteCategory(ctx, id)
	if err != nil {
		return storeErr(err, "category")
	}
	now := clock(s.Now)
	for i := range removed {
		s.afterProductDelete(ctx, &removed[i], now)
	}
	return nil
}

// ---- products ----

func (s *CatalogService) ListProducts(ctx context.Context, categoryID uint, offset, limit int) (int64, []models.Product, error) {
	return s.Repo.ListProducts(ctx, categoryID, offset, limit)
}

func (s *CatalogService) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	p, err := s.Repo.ProductByID(ctx, id)
	return p, storeErr(err, "product")
}

func (s *CatalogService) GetProductBySlug(ctx context.Context, slug string) (*models.Product, error) {
	p, err := s.Repo.ProductBySlug(ctx, slug)
	return p, storeErr(err, "product")
}

func validateProduct(req *transport.ProductRequest) error {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return fmt.Errorf("%w: name required", ErrValidation)
	}
	if req.Price.LessThan(decimal.Zero) {
		return fmt.Errorf("%w: price must not be negative", ErrValidation)
	}
	if req.Stock < 0 {
		return fmt.Errorf("%w: stock must not be negative", ErrValidation)
	}
	if req.CategoryID == 0 {
		return fmt.Errorf("%w: category_id required", ErrValidation)
	}
	return nil
}

func (s *CatalogService) requireCategory(ctx context.Context, id uint) error {
	if _, err := s.Repo.CategoryByID(ctx, id); err != nil {
		return storeErr(err, "category")
	}
	return nil
}

func (s *CatalogService) saveImage(ctx context.Context, up *assets.Upload) (string, error) {
	if up == nil {
		return "", nil
	}
	if s.Images == nil {
		return "", fmt.Errorf("%w: image uploads are disabled", ErrValidation)
	}
	p, err := s.Images.Save(ctx, *up)
	if err != nil {
		if errors.Is(err, assets.ErrUnsupportedImage) || errors.Is(err, assets.ErrEmptyUpload) {
			return "", fmt.Errorf("%w: %v", ErrValidation, err)
		}
		return "", err
	}
	return p, nil
}

func (s *CatalogService) discard(ctx context.Context, publicPath string) {
	if s.Images != nil && publicPath != "" {
		s.Images.Discard(ctx, publicPath)
	}
}

// CreateProduct stores the image first and removes it again if the row
// cannot be written.
func (s *CatalogService) CreateProduct(ctx context.Context, req transport.ProductRequest, image *assets.Upload) (*models.Product, error) {
	l := logging.FromContext(ctx).With("svc", "catalog.create_product")

	if err := validateProduct(&req); err != nil {
		return nil, err
	}
	if err := s.requireCategory(ctx, req.CategoryID); err != nil {
		return nil, err
	}
	slug, err := uniqueSlug(ctx, Slugify(req.Name), "product", 0, s.Repo.ProductSlugTaken)
	if err != nil {
		return nil, err
	}

	imagePath, err := s.saveImage(ctx, image)
	if err != nil {
		return nil, err
	}

	p := &models.Product{
		Name:        req.Name,
		Slug:        slug,
		Description: req.Description,
		Price:       req.Price,
		Image:       imagePath,
		Stock:       req.Stock,
		CategoryID:  req.CategoryID,
	}
	if err := s.Repo.CreateProduct(ctx, p); err != nil {
		l.Error("create_product_error", "status", 500, "reason", "cannot insert product", "error", err)
		s.discard(ctx, imagePath)
		return nil, storeErr(err, "product")
	}

	s.afterProductWrite(ctx, p, "product_created")
	return p, nil
}

// UpdateProduct replaces all editable fields. The row is locked for the
// whole update so a checkout or delete cannot interleave with it. A new image
// is written before the row; the old one is removed only once the row points
// at the new file.
func (s *CatalogService) UpdateProduct(ctx context.Context, id uint, req transport.ProductRequest, image *assets.Upload) (*models.Product, error) {
	l := logging.FromContext(ctx).With("svc", "catalog.update_product")

	if err := validateProduct(&req); err != nil {
		return nil, err
	}
	if err := s.requireCategory(ctx, req.CategoryID); err != nil {
		return nil, err
	}

	newImage, err := s.saveImage(ctx, image)
	if err != nil {
		return nil, err
	}

	var (
		updated  *models.Product
		oldImage string
	)
	err = s.Repo.WithTx(ctx, func(tx *repo.GormRepo) error {
		cur, err := tx.LockProduct(ctx, id)
		if err != nil {
			return storeErr(err, "product")
		}
		oldImage = cur.Image

		fields := map[string]any{
			"name":        req.Name,
			"price":       req.Price,
			"description": req.Description,
			"category_id": req.CategoryID,
		}
		if req.Name != cur.Name {
			slug, err := uniqueSlug(ctx, Slugify(req.Name), "product", id, tx.ProductSlugTaken)
			if err != nil {
				return err
			}
			fields["slug"] = slug
		}
		if newImage != "" {
			fields["image"] = newImage
		}

		ok, err := tx.UpdateProductFields(ctx, id, fields, req.Stock-cur.Stock)
		if err != nil {
			return storeErr(err, "product")
		}
		if !ok {
			if _, err := tx.ProductByID(ctx, id); err != nil {
				return storeErr(err, "product")
			}
			return fmt.Errorf("%w: stock changed during update", ErrConflict)
		}

		updated, err = tx.ProductByID(ctx, id)
		return storeErr(err, "product")
	})
	if err != nil {
		if !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrConflict) {
			l.Error("update_product_error", "status", 500, "reason", "cannot save product", "error", err, "product_id", id)
		}
		s.discard(ctx, newImage)
		return nil, err
	}
	if newImage != "" && oldImage != newImage {
		s.discard(ctx, oldImage)
	}

	s.afterProductWrite(ctx, updated, "product_updated")
	return updated, nil
}

func (s *CatalogService) AddStock(ctx context.Context, id uint, amount int) (*models.Product, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	ok, err := s.Repo.AdjustStock(ctx, id, amount)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: product", ErrNotFound)
	}
	p, err := s.Repo.ProductByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "product")
	}
	s.afterProductWrite(ctx, p, "product_stock_added")
	return p, nil
}

func (s *CatalogService) DeleteProduct(ctx context.Context, id uint) error {
	p, err := s.Repo.ProductByID(ctx, id)
	if err != nil {
		return storeErr(err, "product")
	}
	if err := s.Repo.DeleteProduct(ctx, id); err != nil {
		return storeErr(err, "product")
	}
	s.afterProductDelete(ctx, p, clock(s.Now))
	return nil
}

func (s *CatalogService) afterProductWrite(ctx context.Context, p *models.Product, typ string) {
	if s.Index != nil {
		if err := s.Index.IndexProduct(ctx, p); err != nil {
			logging.FromContext(ctx).Warn("index_product_failed", "product_id", p.ID, "error", err)
		}
	}
	publish(ctx, s.Events, TopicProductEvents, fmt.Sprint(p.ID), typ, p, clock(s.Now))
}

func (s *CatalogService) afterProductDelete(ctx context.Context, p *models.Product, now time.Time) {
	s.discard(ctx, p.Image)
	if s.Index != nil {
		if err := s.Index.DeleteProduct(ctx, p.ID); err != nil {
			logging.FromContext(ctx).Warn("unindex_product_failed", "product_id", p.ID, "error", err)
		}
	}
	publish(ctx, s.Events, TopicProductEvents, fmt.Sprint(p.ID), "product_deleted", map[string]uint{"id": p.ID}, now)
}

// Search returns products whose name or description contains every
// whitespace-separated keyword, ignoring case.
func (s *CatalogService) Search(ctx context.Context, query string) ([]models.Product, error) {
	keywords := strings.Fields(query)
	if len(keywords) == 0 {
		return []models.Product{}, nil
	}

	if s.UseIndex && s.Index != nil {
		items, err := s.Index.Search(ctx, keywords)
		if err == nil {
			return items, nil
		}
		logging.FromContext(ctx).Warn("index_search_failed", "reason", "falling back to database", "error", err)
	}

	items, err := s.Repo.SearchProducts(ctx, keywords)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []models.Product{}
	}
	return items, nil
}
