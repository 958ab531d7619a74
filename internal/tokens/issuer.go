package tokens

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrWrongType      = errors.New("wrong token type")
	ErrMissingSubject = errors.New("token has no subject")
	ErrKeys           = errors.New("access and refresh keys must be non-empty and distinct")
)

// Issuer signs and verifies access/refresh pairs. Each token type has its own
// HMAC key so a leaked key of one type cannot forge the other.
type Issuer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

func NewIssuer(accessSecret, refreshSecret []byte, accessTTL, refreshTTL time.Duration) (*Issuer, error) {
	if len(accessSecret) == 0 || len(refreshSecret) == 0 || bytes.Equal(accessSecret, refreshSecret) {
		return nil, ErrKeys
	}
	if accessTTL <= 0 || refreshTTL <= 0 {
		return nil, errors.New("token ttl must be positive")
	}
	return &Issuer{
		accessSecret:  accessSecret,
		refreshSecret: refreshSecret,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}, nil
}

// WithClock replaces the time source used for issuing and validating.
func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	cp := *i
	cp.now = now
	return &cp
}

func (i *Issuer) IssueAccess(userID, role string) (string, time.Time, error) {
	now := i.now()
	exp := now.Add(i.accessTTL)
	claims := AccessClaims{
		Role: role,
		Type: TypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.accessSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}
	return signed, exp, nil
}

func (i *Issuer) IssueRefresh(userID string) (string, time.Time, error) {
	now := i.now()
	exp := now.Add(i.refreshTTL)
	claims := RefreshClaims{
		Type: TypeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.refreshSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign refresh token: %w", err)
	}
	return signed, exp, nil
}

// ParseAccess checks signature, expiry, type and subject.
func (i *Issuer) ParseAccess(token string) (*AccessClaims, error) {
	claims, err := AccessClaimsFromToken(token, i.accessSecret, i.parserOptions()...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.Type != TypeAccess {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, ErrWrongType)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, ErrMissingSubject)
	}
	return claims, nil
}

// ParseRefresh checks signature, expiry, type and subject.
func (i *Issuer) ParseRefresh(token string) (*RefreshClaims, error) {
	return i.parseRefresh(token, i.parserOptions()...)
}

// ParseRefreshIgnoringExpiry checks signature, type and subject only. Logout
// accepts expired refresh tokens.
func (i *Issuer) ParseRefreshIgnoringExpiry(token string) (*RefreshClaims, error) {
	return i.parseRefresh(token, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithoutClaimsValidation())
}

// Expired reports whether a stored refresh token is past its expiry. Tokens
// that no longer verify count as expired.
func (i *Issuer) Expired(token string) bool {
	claims, err := i.ParseRefreshIgnoringExpiry(token)
	if err != nil || claims.ExpiresAt == nil {
		return true
	}
	return !i.now().Before(claims.ExpiresAt.Time)
}

func (i *Issuer) parseRefresh(token string, opts ...jwt.ParserOption) (*RefreshClaims, error) {
	claims, err := RefreshClaimsFromToken(token, i.refreshSecret, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.Type != TypeRefresh {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, ErrWrongType)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, ErrMissingSubject)
	}
	return claims, nil
}

func (i *Issuer) parserOptions() []jwt.ParserOption {
	return []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	}
}
