package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/plugtech/internal/domain"
	"github.com/Skotchmaster/plugtech/internal/logging"
	"github.com/Skotchmaster/plugtech/internal/middleware/auth"
	"github.com/Skotchmaster/plugtech/internal/service"
	"github.com/Skotchmaster/plugtech/internal/tokens"
	"github.com/Skotchmaster/plugtech/internal/transport"
)

type AuthHTTP struct {
	Svc          *service.AuthService
	CookieSecure bool
}

func (h *AuthHTTP) setCookies(c echo.Context, res *service.LoginResult) {
	c.SetCookie(tokens.CreateCookie(tokens.AccessCookie, res.AccessToken, "/", res.AccessExp, h.CookieSecure))
	c.SetCookie(tokens.CreateCookie(tokens.RefreshCookie, res.RefreshToken, "/", res.RefreshExp, h.CookieSecure))
}

func (h *AuthHTTP) clearCookies(c echo.Context) {
	c.SetCookie(tokens.DeleteCookie(tokens.AccessCookie, "/", h.CookieSecure))
	c.SetCookie(tokens.DeleteCookie(tokens.RefreshCookie, "/", h.CookieSecure))
}

func (h *AuthHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.register")

	var req transport.Credentials
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "register_failed", "invalid body", err)
	}

	user, err := h.Svc.Register(ctx, req.Email, req.Password)
	if err != nil {
		return fail(l, "register_failed", err)
	}

	l.Info("register_success", "user_id", user.ID.String())
	return c.JSON(http.StatusCreated, map[string]any{
		"id":    user.ID,
		"email": user.Email,
		"role":  domain.RoleUser,
	})
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.login")

	var req transport.Credentials
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "login_failed", "invalid body", err)
	}

	res, err := h.Svc.SignIn(ctx, req.Email, req.Password)
	if err != nil {
		return fail(l, "login_failed", err)
	}
	h.setCookies(c, res)

	l.Info("login_success", "user_id", res.Session.UserID, "role", res.Session.Role)
	return c.JSON(http.StatusOK, res.Session)
}

func (h *AuthHTTP) Refresh(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.refresh")

	ck, err := c.Cookie(tokens.RefreshCookie)
	if err != nil || ck.Value == "" {
		l.Warn("refresh_failed", "status", http.StatusUnauthorized, "reason", "no refresh cookie")
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	res, err := h.Svc.Refresh(ctx, ck.Value)
	if err != nil {
		h.clearCookies(c)
		return fail(l, "refresh_failed", err)
	}
	h.setCookies(c, res)
	return c.JSON(http.StatusOK, res.Session)
}

// LogOut revokes the refresh token when there is one and always clears
// the cookies.
func (h *AuthHTTP) LogOut(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.logout")

	if ck, err := c.Cookie(tokens.RefreshCookie); err == nil && ck.Value != "" {
		if err := h.Svc.LogOut(ctx, ck.Value); err != nil {
			l.Warn("logout_revoke_failed", "error", err)
		}
	}
	h.clearCookies(c)
	return c.NoContent(http.StatusNoContent)
}

func (h *AuthHTTP) Session(c echo.Context) error {
	return c.JSON(http.StatusOK, auth.SessionFrom(c))
}

// Me returns the account behind the session, with the role as currently
// stored rather than as carried by the token.
func (h *AuthHTTP) Me(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.me")

	acc, err := h.Svc.Account(ctx, auth.SessionFrom(c))
	if err != nil {
		return fail(l, "me_failed", err)
	}
	return c.JSON(http.StatusOK, acc)
}
