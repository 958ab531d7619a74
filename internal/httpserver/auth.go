package httpserver

import (
	"net/http"

	"github.com/Skotchmaster/movie_reviews/internal/logging"
	mwauth "github.com/Skotchmaster/movie_reviews/internal/middleware/auth"
	"github.com/Skotchmaster/movie_reviews/internal/service"
	"github.com/Skotchmaster/movie_reviews/internal/transport"
	"github.com/labstack/echo/v4"
)

type AuthHTTP struct {
	Svc          *service.AuthService
	CookieSecure bool
}

func (h *AuthHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_register")

	var req transport.RegisterRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("register_error", "status", 400, "err", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		l.Warn("register_error", "status", 400, "err", err)
		return err
	}

	u, err := h.Svc.Register(ctx, service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, transport.UserResponse{
		UserID:       u.ID,
		Username:     u.Username,
		Email:        u.Email,
		Role:         u.Role,
		Penalties:    u.Penalties,
		Transactions: u.Transactions,
	})
}

// Login accepts JSON or form-encoded credentials.
func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_login")

	var req transport.LoginRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("login_error", "status", 400, "err", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	pair, err := h.Svc.Login(ctx, req.Username, req.Password)
	if err != nil {
		return httpError(err)
	}

	h.setSessionCookies(c, pair)
	return c.JSON(http.StatusOK, tokenResponse(pair))
}

func (h *AuthHTTP) Refresh(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_refresh")

	token, err := refreshTokenFrom(c)
	if err != nil {
		l.Warn("refresh_error", "status", 400, "err", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if token == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid refresh token")
	}

	pair, err := h.Svc.Refresh(ctx, token)
	if err != nil {
		return httpError(err)
	}

	h.setSessionCookies(c, pair)
	return c.JSON(http.StatusOK, tokenResponse(pair))
}

func (h *AuthHTTP) LogOut(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_logout")

	token, err := refreshTokenFrom(c)
	if err != nil {
		l.Warn("logout_error", "status", 400, "err", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := h.Svc.LogOut(ctx, token); err != nil {
		return httpError(err)
	}

	c.SetCookie(deleteCookie(mwauth.RefreshCookie, "/", h.CookieSecure))
	c.SetCookie(deleteCookie(mwauth.AccessCookie, "/", h.CookieSecure))
	return c.JSON(http.StatusOK, transport.MessageResponse{Message: "Successfully logged out"})
}

func (h *AuthHTTP) setSessionCookies(c echo.Context, pair *service.TokenPair) {
	c.SetCookie(createCookie(mwauth.AccessCookie, pair.AccessToken, "/", pair.AccessExp, h.CookieSecure))
	c.SetCookie(createCookie(mwauth.RefreshCookie, pair.RefreshToken, "/", pair.RefreshExp, h.CookieSecure))
}

// refreshTokenFrom reads refresh_token from the body, falling back to the
// refresh cookie.
func refreshTokenFrom(c echo.Context) (string, error) {
	var req transport.TokenRequest
	if err := c.Bind(&req); err != nil {
		return "", err
	}
	if req.RefreshToken != "" {
		return req.RefreshToken, nil
	}
	if ck, err := c.Cookie(mwauth.RefreshCookie); err == nil {
		return ck.Value, nil
	}
	return "", nil
}

func tokenResponse(pair *service.TokenPair) transport.TokenResponse {
	return transport.TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    pair.TokenType,
	}
}
