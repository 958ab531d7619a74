package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Skotchmaster/movie_reviews/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAuthenticator map[string]*service.Principal

func (f fakeAuthenticator) Authenticate(token string) (*service.Principal, error) {
	if p, ok := f[token]; ok {
		return p, nil
	}
	return nil, service.ErrInvalidAccessToken
}

func okHandler(c echo.Context) error {
	p, _ := PrincipalFrom(c)
	return c.String(http.StatusOK, p.UserID+":"+c.Get("role").(string))
}

func TestAccessToken(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		header string
		cookie string
		want   string
	}{
		{name: "bearer", header: "Bearer abc", want: "abc"},
		{name: "lowercase scheme", header: "bearer abc", want: "abc"},
		{name: "other scheme", header: "Basic abc", cookie: "zzz", want: ""},
		{name: "cookie fallback", cookie: "zzz", want: "zzz"},
		{name: "nothing", want: ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set(echo.HeaderAuthorization, tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: AccessCookie, Value: tt.cookie})
			}
			c := echo.New().NewContext(req, httptest.NewRecorder())
			assert.Equal(t, tt.want, AccessToken(c))
		})
	}
}

func TestRequireAuth(t *testing.T) {
	t.Parallel()

	mw := RequireAuth(fakeAuthenticator{"good": {UserID: "u1", Role: "user"}})

	tests := []struct {
		name     string
		header   string
		wantCode int
	}{
		{name: "valid", header: "Bearer good", wantCode: http.StatusOK},
		{name: "invalid", header: "Bearer bad", wantCode: http.StatusUnauthorized},
		{name: "missing", wantCode: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set(echo.HeaderAuthorization, tt.header)
			}
			rec := httptest.NewRecorder()
			c := echo.New().NewContext(req, rec)

			err := mw(okHandler)(c)
			if tt.wantCode == http.StatusOK {
				require.NoError(t, err)
				assert.Equal(t, "u1:user", rec.Body.String())
				return
			}
			var he *echo.HTTPError
			require.True(t, errors.As(err, &he))
			assert.Equal(t, tt.wantCode, he.Code)
		})
	}
}

func TestRequireRole(t *testing.T) {
	t.Parallel()

	authn := RequireAuth(fakeAuthenticator{
		"admin": {UserID: "a1", Role: "admin"},
		"user":  {UserID: "u1", Role: "user"},
	})
	chain := authn(RequireRole("admin")(okHandler))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer admin")
	rec := httptest.NewRecorder()
	require.NoError(t, chain(echo.New().NewContext(req, rec)))
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer user")
	err := chain(echo.New().NewContext(req, httptest.NewRecorder()))
	var he *echo.HTTPError
	require.True(t, errors.As(err, &he))
	assert.Equal(t, http.StatusForbidden, he.Code)

	err = RequireRole("admin")(okHandler)(echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder()))
	require.True(t, errors.As(err, &he))
	assert.Equal(t, http.StatusUnauthorized, he.Code)
}
