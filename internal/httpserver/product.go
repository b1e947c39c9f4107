package httpserver

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/plugtech/internal/catalog"
	"github.com/Skotchmaster/plugtech/internal/domain"
	"github.com/Skotchmaster/plugtech/internal/logging"
	"github.com/Skotchmaster/plugtech/internal/models"
	"github.com/Skotchmaster/plugtech/internal/repo"
	"github.com/Skotchmaster/plugtech/internal/service"
	"github.com/Skotchmaster/plugtech/internal/util"
)

type ProductHTTP struct {
	Svc *service.CatalogService
}

type categoryTile struct {
	Category string `json:"category"`
	Title    string `json:"title"`
	Count    int    `json:"count"`
}

func listBody(items []models.Product, extra map[string]any) map[string]any {
	body := map[string]any{
		"data":  items,
		"count": len(items),
		"empty": len(items) == 0,
	}
	for k, v := range extra {
		body[k] = v
	}
	return body
}

func (h *ProductHTTP) GetProducts(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.get_products")

	category := c.QueryParam("category")
	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	// a category outside the closed set simply has no products
	if category != "" && !domain.IsCategory(category) {
		return c.JSON(http.StatusOK, listBody([]models.Product{}, map[string]any{"meta": util.Meta(page, limit, 0)}))
	}

	total, items, err := h.Svc.List(ctx, repo.ListFilter{Category: category, Offset: offset, Limit: limit})
	if err != nil {
		return fail(l, "get_products_failed", err)
	}

	return c.JSON(http.StatusOK, listBody(items, map[string]any{"meta": util.Meta(page, limit, total)}))
}

func (h *ProductHTTP) GetProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.get_product")

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return badRequest(l, "get_product_failed", "id is not a uuid", err)
	}

	prod, err := h.Svc.Get(ctx, id)
	if err != nil {
		return fail(l, "get_product_failed", err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"data":      prod,
		"image_url": prod.ImageURL(),
		"price":     prod.Price,
	})
}

func (h *ProductHTTP) GetCategories(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.get_categories")

	all, err := h.Svc.All(ctx, "")
	if err != nil {
		return fail(l, "get_categories_failed", err)
	}

	counts := catalog.CategoryCounts(all)
	tiles := make([]categoryTile, 0, len(domain.Categories))
	for _, cat := range domain.Categories {
		tiles = append(tiles, categoryTile{Category: cat, Title: domain.CategoryTitle(cat), Count: counts[cat]})
	}
	return c.JSON(http.StatusOK, map[string]any{"data": tiles})
}

func (h *ProductHTTP) GetCategory(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.get_category")

	category := c.Param("category")
	items := make([]models.Product, 0)
	if domain.IsCategory(category) {
		rows, err := h.Svc.All(ctx, category)
		if err != nil {
			return fail(l, "get_category_failed", err)
		}
		items = catalog.FilterByCategory(rows, category)
	}
	return c.JSON(http.StatusOK, listBody(items, map[string]any{
		"category": category,
		"title":    domain.CategoryTitle(category),
	}))
}

func (h *ProductHTTP) Search(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.search")

	q := c.QueryParam("q")
	if strings.TrimSpace(q) == "" {
		return c.JSON(http.StatusOK, listBody([]models.Product{}, map[string]any{"query": q}))
	}

	all, err := h.Svc.All(ctx, "")
	if err != nil {
		return fail(l, "search_failed", err)
	}
	return c.JSON(http.StatusOK, listBody(catalog.Search(all, q), map[string]any{"query": q}))
}

func (h *ProductHTTP) Home(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.home")

	all, err := h.Svc.All(ctx, "")
	if err != nil {
		return fail(l, "home_failed", err)
	}
	return c.JSON(http.StatusOK, catalog.BuildHome(all))
}

// Carousel is stateless: the client sends the index it shows and an action,
// and gets back the next index with the visible window.
func (h *ProductHTTP) Carousel(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.carousel")

	category := c.QueryParam("category")
	all, err := h.Svc.All(ctx, "")
	if err != nil {
		return fail(l, "carousel_failed", err)
	}
	items := all
	if category != "" {
		items = catalog.FilterByCategory(all, category)
	}

	perView := util.ParseIntDefault(c.QueryParam("per_view"), 0)
	if perView < 1 {
		perView = catalog.ItemsPerView(util.ParseIntDefault(c.QueryParam("width"), 0))
	}
	auto := c.QueryParam("auto") != "false"

	car := catalog.NewCarousel(len(items), perView, auto)
	car.ScrollTo(util.ParseIntDefault(c.QueryParam("index"), 0))

	switch action := c.QueryParam("action"); action {
	case "", "show":
	case "next":
		car.Next()
	case "prev":
		car.Prev()
	case "tick":
		car.Tick()
	default:
		return badRequest(l, "carousel_failed", "unknown action "+action, nil)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"index":       car.Index(),
		"max_index":   car.MaxIndex(),
		"per_view":    car.PerView(),
		"auto_scroll": car.Scrolls(),
		"interval_ms": catalog.AutoAdvanceInterval.Milliseconds(),
		"total":       len(items),
		"data":        car.Window(items),
	})
}
