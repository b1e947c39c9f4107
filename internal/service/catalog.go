package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	"github.com/Skotchmaster/plugtech/internal/domain"
	"github.com/Skotchmaster/plugtech/internal/events"
	"github.com/Skotchmaster/plugtech/internal/logging"
	"github.com/Skotchmaster/plugtech/internal/models"
	"github.com/Skotchmaster/plugtech/internal/repo"
	"github.com/Skotchmaster/plugtech/internal/transport"
)

type CatalogService struct {
	Repo   *repo.GormRepo
	Events events.Publisher

	lists singleflight.Group
}

type ProductPage struct {
	Total int64
	Items []models.Product
}

// List coalesces identical concurrent calls into one query. The leader's
// context governs the shared query.
func (s *CatalogService) List(ctx context.Context, f repo.ListFilter) (int64, []models.Product, error) {
	key := fmt.Sprintf("%s|%d|%d", f.Category, f.Offset, f.Limit)

	v, err, _ := s.lists.Do(key, func() (any, error) {
		total, items, err := s.Repo.ListProducts(ctx, f)
		if err != nil {
			return nil, err
		}
		return ProductPage{Total: total, Items: items}, nil
	})
	if err != nil {
		return 0, nil, fmt.Errorf("list products: %w: %v", domain.ErrFetch, err)
	}

	page := v.(ProductPage)
	items := make([]models.Product, len(page.Items))
	copy(items, page.Items)
	return page.Total, items, nil
}

// All returns the whole catalog, newest first. Search, categories, home
// and carousel run over this list, so it is never paged.
func (s *CatalogService) All(ctx context.Context, category string) ([]models.Product, error) {
	v, err, _ := s.lists.Do("all|"+category, func() (any, error) {
		return s.Repo.AllProducts(ctx, category)
	})
	if err != nil {
		return nil, fmt.Errorf("list all products: %w: %v", domain.ErrFetch, err)
	}

	shared := v.([]models.Product)
	items := make([]models.Product, len(shared))
	copy(items, shared)
	return items, nil
}

func (s *CatalogService) Get(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	p, err := s.Repo.GetProduct(ctx, id)
	if err != nil {
		return nil, mapRepoErr("get product", err)
	}
	return p, nil
}

func (s *CatalogService) Create(ctx context.Context, req transport.CreateProductRequest) (*models.Product, error) {
	l := logging.FromContext(ctx).With("svc", "catalog.create")

	prod, err := productFromRequest(req)
	if err != nil {
		l.Warn("create_product_rejected", "status", 400, "reason", err.Error())
		return nil, err
	}

	created, err := s.Repo.CreateProduct(ctx, prod)
	if err != nil {
		l.Error("create_product_failed", "status", 502, "error", err)
		return nil, fmt.Errorf("create product: %w: %v", domain.ErrFetch, err)
	}

	s.publish(ctx, "product_created", created)
	return created, nil
}

func (s *CatalogService) Update(ctx context.Context, id uuid.UUID, req transport.PatchProductRequest) (*models.Product, error) {
	l := logging.FromContext(ctx).With("svc", "catalog.update", "id", id.String())

	// validate up front so a bad patch never opens a transaction
	if err := validatePatch(req); err != nil {
		l.Warn("update_product_rejected", "status", 400, "reason", err.Error())
		return nil, err
	}

	updated, err := s.Repo.UpdateProduct(ctx, id, func(p *models.Product) error {
		return applyPatch(p, req)
	})
	if err != nil {
		mapped := mapRepoErr("update product", err)
		if !errors.Is(mapped, domain.ErrNotFound) {
			l.Error("update_product_failed", "status", 502, "error", err)
		}
		return nil, mapped
	}

	s.publish(ctx, "product_updated", updated)
	return updated, nil
}

func (s *CatalogService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.Repo.DeleteProduct(ctx, id); err != nil {
		return mapRepoErr("delete product", err)
	}
	s.publish(ctx, "product_deleted", &models.Product{ID: id})
	return nil
}

func (s *CatalogService) publish(ctx context.Context, typ string, p *models.Product) {
	if s.Events == nil {
		return
	}
	event := map[string]any{
		"type":       typ,
		"product_id": p.ID.String(),
	}
	if typ != "product_deleted" {
		event["product"] = p
	}
	if err := s.Events.PublishEvent(ctx, events.TopicProducts, p.ID.String(), event); err != nil {
		logging.FromContext(ctx).Warn("product_event_publish_failed", "type", typ, "error", err)
	}
}

func mapRepoErr(op string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	}
	if errors.Is(err, domain.ErrValidation) {
		return err
	}
	return fmt.Errorf("%s: %w: %v", op, domain.ErrFetch, err)
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrValidation, fmt.Sprintf(format, args...))
}

// ParsePrice accepts whole shillings, written either as an integer or as a
// float with no fractional part.
func ParsePrice(n json.Number) (int64, error) {
	s := strings.TrimSpace(string(n))
	if s == "" {
		return 0, invalid("price is required")
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		if v <= 0 {
			return 0, invalid("price must be greater than 0")
		}
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, invalid("price %q is not a number", s)
	}
	if f <= 0 {
		return 0, invalid("price must be greater than 0")
	}
	if f != math.Trunc(f) || f >= math.MaxInt64 {
		return 0, invalid("price must be a whole amount")
	}
	return int64(f), nil
}

func required(field, v string) error {
	if strings.TrimSpace(v) == "" {
		return invalid("%s is required", field)
	}
	return nil
}

// validateCreate checks a new product. withFile skips the image URL check
// because an upload will supply it.
func validateCreate(req transport.CreateProductRequest, withFile bool) error {
	fields := []struct{ name, v string }{
		{"name", req.Name},
		{"processor", req.Processor},
		{"ram", req.RAM},
		{"storage", req.Storage},
		{"display", req.Display},
	}
	if !withFile {
		fields = append(fields, struct{ name, v string }{"image", req.Image})
	}
	for _, f := range fields {
		if err := required(f.name, f.v); err != nil {
			return err
		}
	}
	if !domain.IsCategory(req.Category) {
		return invalid("unknown category %q", req.Category)
	}
	if !domain.IsCondition(req.Condition) {
		return invalid("unknown condition %q", req.Condition)
	}
	_, err := ParsePrice(req.Price)
	return err
}

func productFromRequest(req transport.CreateProductRequest) (*models.Product, error) {
	if err := validateCreate(req, false); err != nil {
		return nil, err
	}
	price, _ := ParsePrice(req.Price)

	inStock := true
	if req.InStock != nil {
		inStock = *req.InStock
	}

	return &models.Product{
		Name:         strings.TrimSpace(req.Name),
		Category:     req.Category,
		Price:        price,
		Image:        strings.TrimSpace(req.Image),
		ImageVersion: 1,
		Processor:    strings.TrimSpace(req.Processor),
		RAM:          strings.TrimSpace(req.RAM),
		Storage:      strings.TrimSpace(req.Storage),
		Display:      strings.TrimSpace(req.Display),
		Condition:    req.Condition,
		InStock:      inStock,
	}, nil
}

func validatePatch(req transport.PatchProductRequest) error {
	for _, f := range []struct {
		name string
		v    *string
	}{
		{"name", req.Name},
		{"processor", req.Processor},
		{"ram", req.RAM},
		{"storage", req.Storage},
		{"display", req.Display},
		{"image", req.Image},
	} {
		if f.v != nil {
			if err := required(f.name, *f.v); err != nil {
				return err
			}
		}
	}
	if req.Category != nil && !domain.IsCategory(*req.Category) {
		return invalid("unknown category %q", *req.Category)
	}
	if req.Condition != nil && !domain.IsCondition(*req.Condition) {
		return invalid("unknown condition %q", *req.Condition)
	}
	if req.Price != nil {
		if _, err := ParsePrice(*req.Price); err != nil {
			return err
		}
	}
	return nil
}

// applyPatch assumes validatePatch passed. A changed image bumps
// image_version so clients drop the cached picture.
func applyPatch(p *models.Product, req transport.PatchProductRequest) error {
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = strings.TrimSpace(*v)
		}
	}
	set(&p.Name, req.Name)
	set(&p.Processor, req.Processor)
	set(&p.RAM, req.RAM)
	set(&p.Storage, req.Storage)
	set(&p.Display, req.Display)

	if req.Category != nil {
		p.Category = *req.Category
	}
	if req.Condition != nil {
		p.Condition = *req.Condition
	}
	if req.InStock != nil {
		p.InStock = *req.InStock
	}
	if req.Price != nil {
		price, err := ParsePrice(*req.Price)
		if err != nil {
			return err
		}
		p.Price = price
	}
	if req.Image != nil {
		img := strings.TrimSpace(*req.Image)
		if img != p.Image {
			p.Image = img
			p.ImageVersion++
		}
	}
	return nil
}
