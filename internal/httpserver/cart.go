package httpserver

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/plugtech/internal/cart"
	"github.com/Skotchmaster/plugtech/internal/checkout"
	"github.com/Skotchmaster/plugtech/internal/domain"
	"github.com/Skotchmaster/plugtech/internal/logging"
	"github.com/Skotchmaster/plugtech/internal/service"
	"github.com/Skotchmaster/plugtech/internal/tokens"
	"github.com/Skotchmaster/plugtech/internal/transport"
)

const CartCookie = "cart_session"

type CartHTTP struct {
	Carts        *cart.Manager
	Catalog      *service.CatalogService
	CookieSecure bool
	TTL          time.Duration
}

type cartBody struct {
	cart.Summary
	TotalDisplay string `json:"total_display"`
}

func cartResponse(s *cart.Store) cartBody {
	sum := s.Summary()
	return cartBody{Summary: sum, TotalDisplay: checkout.Price(sum.Total)}
}

// sessionID returns the cart session from its cookie, issuing a new one
// when the cookie is missing or malformed.
func (h *CartHTTP) sessionID(c echo.Context) string {
	if ck, err := c.Cookie(CartCookie); err == nil {
		if _, err := uuid.Parse(ck.Value); err == nil {
			return ck.Value
		}
	}
	id := uuid.NewString()
	ttl := h.TTL
	if ttl <= 0 {
		ttl = cart.DefaultTTL
	}
	c.SetCookie(tokens.CreateCookie(CartCookie, id, "/", time.Now().Add(ttl), h.CookieSecure))
	return id
}

func (h *CartHTTP) open(c echo.Context, l *slog.Logger, event string) (*cart.Store, error) {
	s, err := h.Carts.Open(c.Request().Context(), h.sessionID(c))
	if err != nil {
		return nil, fail(l, event, fmt.Errorf("%w: %v", domain.ErrFetch, err))
	}
	return s, nil
}

func persistFailed(l *slog.Logger, event string, err error) error {
	return fail(l, event, fmt.Errorf("%w: %v", domain.ErrFetch, err))
}

func (h *CartHTTP) GetCart(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "cart.get")

	s, err := h.open(c, l, "get_cart_failed")
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cartResponse(s))
}

func (h *CartHTTP) AddToCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.add")

	var req transport.AddToCartRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "add_to_cart_failed", "invalid body", err)
	}
	id, err := uuid.Parse(req.ProductID)
	if err != nil {
		return badRequest(l, "add_to_cart_failed", "product_id is not a uuid", err)
	}

	prod, err := h.Catalog.Get(ctx, id)
	if err != nil {
		return fail(l, "add_to_cart_failed", err)
	}
	if !prod.InStock {
		return badRequest(l, "add_to_cart_failed", "product is out of stock", nil)
	}

	s, err := h.open(c, l, "add_to_cart_failed")
	if err != nil {
		return err
	}
	if err := s.AddToCart(ctx, *prod); err != nil {
		return persistFailed(l, "add_to_cart_failed", err)
	}

	l.Info("add_to_cart_success", "product_id", id.String(), "session", s.Session())
	return c.JSON(http.StatusOK, cartResponse(s))
}

func (h *CartHTTP) UpdateQuantity(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.update_quantity")

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return badRequest(l, "update_quantity_failed", "id is not a uuid", err)
	}
	var req transport.UpdateQuantityRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "update_quantity_failed", "invalid body", err)
	}
	if req.Quantity == nil || *req.Quantity < 0 {
		return badRequest(l, "update_quantity_failed", "quantity must be 0 or more", nil)
	}

	s, err := h.open(c, l, "update_quantity_failed")
	if err != nil {
		return err
	}
	if err := s.UpdateQuantity(ctx, id, *req.Quantity); err != nil {
		return persistFailed(l, "update_quantity_failed", err)
	}
	return c.JSON(http.StatusOK, cartResponse(s))
}

func (h *CartHTTP) RemoveFromCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.remove")

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return badRequest(l, "remove_from_cart_failed", "id is not a uuid", err)
	}

	s, err := h.open(c, l, "remove_from_cart_failed")
	if err != nil {
		return err
	}
	if err := s.RemoveFromCart(ctx, id); err != nil {
		return persistFailed(l, "remove_from_cart_failed", err)
	}
	return c.JSON(http.StatusOK, cartResponse(s))
}

func (h *CartHTTP) ClearCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.clear")

	s, err := h.open(c, l, "clear_cart_failed")
	if err != nil {
		return err
	}
	if err := s.ClearCart(ctx); err != nil {
		return persistFailed(l, "clear_cart_failed", err)
	}
	return c.JSON(http.StatusOK, cartResponse(s))
}
