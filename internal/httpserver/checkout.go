package httpserver

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/plugtech/internal/checkout"
	"github.com/Skotchmaster/plugtech/internal/logging"
	"github.com/Skotchmaster/plugtech/internal/transport"
)

type CheckoutHTTP struct {
	Bridge  *checkout.Bridge
	Cart    *CartHTTP
	BaseURL string
}

// CartCheckout builds the WhatsApp hand-off for the whole cart. The cart
// itself is left untouched; the order is completed outside this service.
func (h *CheckoutHTTP) CartCheckout(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "checkout.cart")

	s, err := h.Cart.open(c, l, "checkout_cart_failed")
	if err != nil {
		return err
	}
	items := s.Items()
	if len(items) == 0 {
		return badRequest(l, "checkout_cart_failed", "cart is empty", nil)
	}

	msg := h.Bridge.CartMessage(items)
	l.Info("checkout_cart_success", "items", len(items), "session", s.Session())
	return c.JSON(http.StatusOK, transport.CheckoutResponse{URL: h.Bridge.Link(msg), Message: msg})
}

func (h *CheckoutHTTP) ProductCheckout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "checkout.product")

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return badRequest(l, "checkout_product_failed", "id is not a uuid", err)
	}
	prod, err := h.Cart.Catalog.Get(ctx, id)
	if err != nil {
		return fail(l, "checkout_product_failed", err)
	}

	msg := h.Bridge.ProductMessage(*prod, h.BaseURL+"/products/"+prod.ID.String())
	return c.JSON(http.StatusOK, transport.CheckoutResponse{URL: h.Bridge.Link(msg), Message: msg})
}

func (h *CheckoutHTTP) Inquiry(c echo.Context) error {
	msg := checkout.InquiryMessage()
	return c.JSON(http.StatusOK, transport.CheckoutResponse{URL: h.Bridge.Link(msg), Message: msg})
}
