package httpserver

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/plugtech/internal/logging"
	"github.com/Skotchmaster/plugtech/internal/storage"
)

// ImageHTTP serves uploaded product images. Object names are content
// addressed by a fresh uuid, so responses may be cached forever.
type ImageHTTP struct {
	Store storage.ObjectStore
}

func (h *ImageHTTP) GetImage(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "image.get")

	obj, err := h.Store.Get(ctx, c.Param("name"))
	if err != nil {
		return imageErr(l, err)
	}

	c.Response().Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	return c.Blob(http.StatusOK, obj.ContentType, obj.Data)
}

func imageErr(l *slog.Logger, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	}
	l.Error("get_image_failed", "status", http.StatusBadGateway, "error", err)
	return echo.NewHTTPError(http.StatusBadGateway, "backend unavailable, try again")
}
