package httpserver

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/plugtech/internal/domain"
)

// fail logs err under event and turns it into the HTTP error for its
// domain sentinel. Client errors log at warn, backend errors at error.
func fail(l *slog.Logger, event string, err error) error {
	status, msg := http.StatusInternalServerError, "internal error"
	switch {
	case errors.Is(err, domain.ErrValidation):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrNotFound):
		status, msg = http.StatusNotFound, "not found"
	case errors.Is(err, domain.ErrAuth):
		status, msg = http.StatusUnauthorized, "authentication required"
	case errors.Is(err, domain.ErrAccessDenied):
		status, msg = http.StatusForbidden, "admin access required"
	case errors.Is(err, domain.ErrConflict):
		status, msg = http.StatusConflict, "already exists"
	case errors.Is(err, domain.ErrFetch):
		status, msg = http.StatusBadGateway, "backend unavailable, try again"
	}

	if status >= 500 {
		l.Error(event, "status", status, "error", err)
	} else {
		l.Warn(event, "status", status, "reason", msg, "error", err)
	}
	return echo.NewHTTPError(status, msg)
}

func badRequest(l *slog.Logger, event, reason string, err error) error {
	l.Warn(event, "status", http.StatusBadRequest, "reason", reason, "error", err)
	return echo.NewHTTPError(http.StatusBadRequest, reason)
}
