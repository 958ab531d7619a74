package auth

import (
	"strings"

	"github.com/Skotchmaster/movie_reviews/internal/service"
	"github.com/labstack/echo/v4"
)

const (
	AccessCookie  = "accessToken"
	RefreshCookie = "refreshToken"

	ctxUserID    = "user_id"
	ctxRole      = "role"
	ctxPrincipal = "principal"
)

type Authenticator interface {
	Authenticate(accessToken string) (*service.Principal, error)
}

// AccessToken reads the bearer header, falling back to the access cookie.
func AccessToken(c echo.Context) string {
	if h := c.Request().Header.Get(echo.HeaderAuthorization); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if ck, err := c.Cookie(AccessCookie); err == nil {
		return ck.Value
	}
	return ""
}

func setUserContext(c echo.Context, p *service.Principal) {
	c.Set(ctxPrincipal, p)
	c.Set(ctxUserID, p.UserID)
	c.Set(ctxRole, p.Role)
}

func PrincipalFrom(c echo.Context) (*service.Principal, bool) {
	p, ok := c.Get(ctxPrincipal).(*service.Principal)
	return p, ok && p != nil
}
