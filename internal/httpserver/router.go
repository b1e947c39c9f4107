package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/plugtech/internal/logging"
	"github.com/Skotchmaster/plugtech/internal/middleware/auth"
	"github.com/Skotchmaster/plugtech/internal/middleware/csrf"
)

// Probe reports whether one backend is usable; it backs /health/ready.
type Probe func(ctx context.Context) error

type Deps struct {
	Auth     *AuthHTTP
	Products *ProductHTTP
	Cart     *CartHTTP
	Checkout *CheckoutHTTP
	Admin    *AdminHTTP
	Images   *ImageHTTP

	Sessions *auth.AutoRefresh
	CSRF     csrf.Config
	Probes   map[string]Probe
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", d.ready)

	e.GET("/images/:name", d.Images.GetImage)

	v1 := e.Group("/api/v1")

	authg := v1.Group("/auth")
	authg.POST("/register", d.Auth.Register)
	authg.POST("/login", d.Auth.Login)
	authg.POST("/refresh", d.Auth.Refresh)
	authg.POST("/logout", d.Auth.LogOut)
	authg.GET("/session", d.Auth.Session, d.Sessions.OptionalSession)
	authg.GET("/me", d.Auth.Me, d.Sessions.RequireAuth)

	v1.GET("/home", d.Products.Home)
	v1.GET("/carousel", d.Products.Carousel)
	v1.GET("/search", d.Products.Search)
	v1.GET("/categories", d.Products.GetCategories)
	v1.GET("/categories/:category", d.Products.GetCategory)

	products := v1.Group("/products")
	products.GET("", d.Products.GetProducts)
	products.GET("/:id", d.Products.GetProduct)

	cart := v1.Group("/cart")
	cart.GET("", d.Cart.GetCart)
	cart.POST("", d.Cart.AddToCart)
	cart.DELETE("", d.Cart.ClearCart)
	cart.PATCH("/items/:id", d.Cart.UpdateQuantity)
	cart.DELETE("/items/:id", d.Cart.RemoveFromCart)

	checkout := v1.Group("/checkout")
	checkout.POST("/cart", d.Checkout.CartCheckout)
	checkout.GET("/products/:id", d.Checkout.ProductCheckout)
	checkout.GET("/inquiry", d.Checkout.Inquiry)

	admin := v1.Group("/admin", d.Sessions.RequireAdmin, csrf.Middleware(d.CSRF))
	admin.GET("/products", d.Admin.ListProducts)
	admin.POST("/products", d.Admin.CreateProduct)
	admin.PATCH("/products/:id", d.Admin.UpdateProduct)
	admin.DELETE("/products/:id", d.Admin.DeleteProduct)
}

func (d *Deps) ready(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	failed := map[string]string{}
	for name, probe := range d.Probes {
		if err := probe(ctx); err != nil {
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		logging.FromContext(ctx).Warn("not_ready", "status", http.StatusServiceUnavailable, "failed", failed)
		return c.JSON(http.StatusServiceUnavailable, map[string]any{"status": "unavailable", "failed": failed})
	}
	return c.JSON(http.StatusOK, map[string]any{"status": "ok"})
}
