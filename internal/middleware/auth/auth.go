package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/plugtech/internal/domain"
	"github.com/Skotchmaster/plugtech/internal/logging"
	"github.com/Skotchmaster/plugtech/internal/service"
	"github.com/Skotchmaster/plugtech/internal/tokens"
)

const sessionKey = "session"

type Sessions interface {
	Session(accessToken string) (domain.Session, error)
	Refresh(ctx context.Context, rawRefresh string) (*service.LoginResult, error)
}

// AutoRefresh resolves the session from the access cookie and silently
// rotates an expired access token when a refresh cookie is present.
type AutoRefresh struct {
	Sessions     Sessions
	CookieSecure bool
}

// SessionFrom returns the session the middleware stored, or an anonymous
// one when none ran.
func SessionFrom(c echo.Context) domain.Session {
	if s, ok := c.Get(sessionKey).(domain.Session); ok {
		return s
	}
	return domain.Anonymous()
}

func (m *AutoRefresh) OptionalSession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		sess, _ := m.resolve(c)
		setSession(c, sess)
		return next(c)
	}
}

func (m *AutoRefresh) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		sess, err := m.resolve(c)
		if err != nil || !sess.Authenticated() {
			return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
		}
		setSession(c, sess)
		return next(c)
	}
}

// RequireAdmin answers 401 for anonymous callers and 403 for signed in
// users without the admin role.
func (m *AutoRefresh) RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		l := logging.FromContext(c.Request().Context()).With("middleware", "require_admin")

		sess, _ := m.resolve(c)
		if err := sess.RequireAdmin(); err != nil {
			if errors.Is(err, domain.ErrAccessDenied) {
				l.Warn("admin_denied", "status", 403, "user_id", sess.UserID, "role", sess.Role)
				return echo.NewHTTPError(http.StatusForbidden, "admin access required")
			}
			return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
		}
		setSession(c, sess)
		return next(c)
	}
}

func (m *AutoRefresh) resolve(c echo.Context) (domain.Session, error) {
	access := cookieValue(c, tokens.AccessCookie)
	if access != "" {
		sess, err := m.Sessions.Session(access)
		if err == nil {
			return sess, nil
		}
		if !errors.Is(err, jwt.ErrTokenExpired) {
			m.clearCookies(c)
			return domain.Anonymous(), err
		}
	}

	refresh := cookieValue(c, tokens.RefreshCookie)
	if refresh == "" {
		return domain.Anonymous(), domain.ErrAuth
	}

	res, err := m.Sessions.Refresh(c.Request().Context(), refresh)
	if err != nil {
		logging.FromContext(c.Request().Context()).Info("auto_refresh_failed", "error", err)
		m.clearCookies(c)
		return domain.Anonymous(), err
	}

	c.SetCookie(tokens.CreateCookie(tokens.AccessCookie, res.AccessToken, "/", res.AccessExp, m.CookieSecure))
	c.SetCookie(tokens.CreateCookie(tokens.RefreshCookie, res.RefreshToken, "/", res.RefreshExp, m.CookieSecure))
	return res.Session, nil
}

func (m *AutoRefresh) clearCookies(c echo.Context) {
	c.SetCookie(tokens.DeleteCookie(tokens.AccessCookie, "/", m.CookieSecure))
	c.SetCookie(tokens.DeleteCookie(tokens.RefreshCookie, "/", m.CookieSecure))
}

func setSession(c echo.Context, sess domain.Session) {
	c.Set(sessionKey, sess)
	c.Set("user_id", sess.UserID)
	c.Set("role", sess.Role)
}

func cookieValue(c echo.Context, name string) string {
	ck, err := c.Cookie(name)
	if err != nil {
		return ""
	}
	return ck.Value
}
