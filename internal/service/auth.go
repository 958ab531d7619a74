package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/Skotchmaster/movie_reviews/internal/events"
	"github.com/Skotchmaster/movie_reviews/internal/hash"
	"github.com/Skotchmaster/movie_reviews/internal/logging"
	"github.com/Skotchmaster/movie_reviews/internal/metrics"
	"github.com/Skotchmaster/movie_reviews/internal/models"
	"github.com/Skotchmaster/movie_reviews/internal/repo"
	"github.com/Skotchmaster/movie_reviews/internal/tokens"
)

type RotationPolicy string

const (
	// RotatePerToken swaps only the presented refresh token, leaving the
	// user's other sessions alive.
	RotatePerToken RotationPolicy = "per_token"
	// RotateReplaceAll drops every stored refresh token on refresh.
	RotateReplaceAll RotationPolicy = "replace_all"
)

const TokenTypeBearer = "bearer"

var (
	usernameRe = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
	validate   = validator.New()
)

type RegisterInput struct {
	Username string
	Email    string
	Password string
	Role     string
}

type TokenPair struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	AccessExp    time.Time
	RefreshExp   time.Time
}

type Principal struct {
	UserID string
	Role   string
}

// AuthService owns the credential lifecycle. Every mutation runs
// load -> mutate -> save under mu, so concurrent logins never drop each
// other's refresh tokens.
type AuthService struct {
	Users    repo.UserStore
	Tokens   *tokens.Issuer
	Events   events.Publisher
	Rotation RotationPolicy

	mu        sync.Mutex
	dummyOnce sync.Once
	dummyHash string
	now       func() time.Time
}

func NewAuthService(users repo.UserStore, issuer *tokens.Issuer, pub events.Publisher, rotation RotationPolicy) *AuthService {
	if pub == nil {
		pub = events.Noop{}
	}
	if rotation == "" {
		rotation = RotatePerToken
	}
	return &AuthService{
		Users:    users,
		Tokens:   issuer,
		Events:   pub,
		Rotation: rotation,
		now:      time.Now,
	}
}

func validateRegistration(in *RegisterInput) error {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)

	if n := len(in.Username); n < 3 || n > 32 {
		return validationError("username must be between 3 and 32 characters")
	}
	if !usernameRe.MatchString(in.Username) {
		return validationError("username can only contain letters, numbers, and underscores")
	}
	if err := validate.Var(in.Email, "required,email"); err != nil {
		return validationError("email is not a valid address")
	}
	if err := validatePassword(in.Password); err != nil {
		return err
	}

	if in.Role == "" {
		in.Role = models.RoleUser
	}
	if !models.ValidRole(in.Role) {
		return validationError("role must be one of user, moderator, admin")
	}
	return nil
}

func validatePassword(pw string) error {
	if len([]rune(pw)) < 8 {
		return validationError("password must be at least 8 characters long")
	}
	if len(pw) > 72 {
		return validationError("password must be at most 72 bytes long")
	}
	var upper, lower, digit bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	switch {
	case !upper:
		return validationError("password must contain at least one uppercase letter")
	case !lower:
		return validationError("password must contain at least one lowercase letter")
	case !digit:
		return validationError("password must contain at least one digit")
	}
	return nil
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (_ *models.User, err error) {
	l := logging.FromContext(ctx).With("svc", "auth.register")
	defer func() { metrics.ObserveAuth("register", err) }()

	if err := validateRegistration(&in); err != nil {
		l.Warn("register_failed", "status", 400, "reason", err.Error())
		return nil, err
	}

	pwHash, err := hash.HashPassword(in.Password)
	if err != nil {
		l.Error("register_failed", "status", 500, "reason", "cannot hash the password", "err", err)
		return nil, fmt.Errorf("hash password: %w", err)
	}

	s.mu.Lock()
	users, err := s.Users.LoadAll(ctx)
	if err != nil {
		s.mu.Unlock()
		l.Error("register_failed", "status", 500, "err", err)
		return nil, fmt.Errorf("load users: %w", err)
	}

	byName, _ := repo.FindByUsername(users, in.Username)
	byEmail, _ := repo.FindByEmail(users, in.Email)
	if byName != nil || byEmail != nil {
		s.mu.Unlock()
		msg := "username already taken"
		switch {
		case byName != nil && byEmail != nil:
			msg = "username and email already taken"
		case byEmail != nil:
			msg = "email already taken"
		}
		l.Warn("register_failed", "status", 409, "reason", msg)
		return nil, fmt.Errorf("%w: %s", ErrConflict, msg)
	}

	user := models.User{
		ID:           uuid.NewString(),
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: pwHash,
		Role:         in.Role,
	}
	user.Normalize()

	if err := s.Users.SaveAll(ctx, append(users, user)); err != nil {
		s.mu.Unlock()
		l.Error("register_failed", "status", 500, "err", err)
		return nil, fmt.Errorf("save users: %w", err)
	}
	s.mu.Unlock()

	l.Info("register_success", "user_id", user.ID)
	s.publish(ctx, events.TopicUsers, user.ID, events.UserEvent{
		Type: events.UserRegistered, UserID: user.ID, Username: user.Username, Role: user.Role, At: s.now().UTC(),
	})
	return &user, nil
}

// Login verifies the password outside the lock; only the token append is
// serialized.
func (s *AuthService) Login(ctx context.Context, username, password string) (_ *TokenPair, err error) {
	l := logging.FromContext(ctx).With("svc", "auth.login")
	defer func() { metrics.ObserveAuth("login", err) }()

	if strings.TrimSpace(username) == "" || password == "" {
		l.Warn("login_failed", "status", 401, "reason", "empty credentials")
		return nil, ErrInvalidCredentials
	}

	users, err := s.Users.LoadAll(ctx)
	if err != nil {
		l.Error("login_failed", "status", 500, "err", err)
		return nil, fmt.Errorf("load users: %w", err)
	}
	found, _ := repo.FindByUsername(users, username)
	if found == nil {
		hash.CheckPassword(s.dummy(), password)
		l.Warn("login_failed", "status", 401, "reason", "unknown user")
		return nil, ErrInvalidCredentials
	}
	if !hash.CheckPassword(found.PasswordHash, password) {
		l.Warn("login_failed", "status", 401, "reason", "wrong password", "user_id", found.ID)
		return nil, ErrInvalidCredentials
	}
	userID, role := found.ID, found.Role

	pair, err := s.issuePair(userID, role)
	if err != nil {
		l.Error("login_failed", "status", 500, "err", err)
		return nil, err
	}

	err = s.mutateUser(ctx, userID, func(u *models.User) (bool, error) {
		u.RefreshTokens = append(s.pruneExpired(u.RefreshTokens), pair.RefreshToken)
		return true, nil
	})
	if err != nil {
		if errors.Is(err, errUserGone) {
			l.Warn("login_failed", "status", 401, "reason", "user removed during login")
			return nil, ErrInvalidCredentials
		}
		l.Error("login_failed", "status", 500, "err", err)
		return nil, err
	}

	l.Info("login_success", "user_id", userID)
	s.publish(ctx, events.TopicUsers, userID, events.UserEvent{
		Type: events.UserLoggedIn, UserID: userID, Role: role, At: s.now().UTC(),
	})
	return pair, nil
}

func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (_ *TokenPair, err error) {
	l := logging.FromContext(ctx).With("svc", "auth.refresh")
	defer func() { metrics.ObserveAuth("refresh", err) }()

	claims, err := s.Tokens.ParseRefresh(refreshToken)
	if err != nil {
		l.Warn("refresh_failed", "status", 401, "reason", "invalid token", "err", err)
		return nil, fmt.Errorf("%w: %w", ErrInvalidRefreshToken, err)
	}
	userID := claims.Subject

	var pair *TokenPair
	err = s.mutateUser(ctx, userID, func(u *models.User) (bool, error) {
		if !slices.Contains(u.RefreshTokens, refreshToken) {
			return false, fmt.Errorf("%w: refresh token revoked", ErrInvalidRefreshToken)
		}
		p, err := s.issuePair(u.ID, u.Role)
		if err != nil {
			return false, err
		}
		pair = p

		switch s.Rotation {
		case RotateReplaceAll:
			u.RefreshTokens = []string{p.RefreshToken}
		default:
			kept := slices.DeleteFunc(slices.Clone(u.RefreshTokens), func(t string) bool { return t == refreshToken })
			u.RefreshTokens = append(s.pruneExpired(kept), p.RefreshToken)
		}
		return true, nil
	})
	switch {
	case errors.Is(err, errUserGone):
		l.Warn("refresh_failed", "status", 401, "reason", "user not found", "user_id", userID)
		return nil, fmt.Errorf("%w: user not found", ErrInvalidRefreshToken)
	case errors.Is(err, ErrUnauthorized):
		l.Warn("refresh_failed", "status", 401, "reason", "token not in store", "user_id", userID)
		return nil, err
	case err != nil:
		l.Error("refresh_failed", "status", 500, "err", err)
		return nil, err
	}

	l.Info("refresh_success", "user_id", userID, "rotation", string(s.Rotation))
	s.publish(ctx, events.TopicUsers, userID, events.UserEvent{
		Type: events.SessionRefreshed, UserID: userID, At: s.now().UTC(),
	})
	return pair, nil
}

// LogOut revokes one refresh token. It accepts expired tokens, is a no-op for
// tokens that are already gone, and only rejects tokens that fail signature or
// type checks.
func (s *AuthService) LogOut(ctx context.Context, refreshToken string) (err error) {
	l := logging.FromContext(ctx).With("svc", "auth.logout")
	defer func() { metrics.ObserveAuth("logout", err) }()

	if refreshToken == "" {
		return nil
	}
	claims, err := s.Tokens.ParseRefreshIgnoringExpiry(refreshToken)
	if err != nil {
		l.Warn("logout_failed", "status", 401, "reason", "invalid token", "err", err)
		return fmt.Errorf("%w: %w", ErrInvalidRefreshToken, err)
	}
	userID := claims.Subject

	removed := false
	err = s.mutateUser(ctx, userID, func(u *models.User) (bool, error) {
		i := slices.Index(u.RefreshTokens, refreshToken)
		if i < 0 {
			return false, nil
		}
		u.RefreshTokens = s.pruneExpired(slices.Delete(slices.Clone(u.RefreshTokens), i, i+1))
		removed = true
		return true, nil
	})
	if err != nil && !errors.Is(err, errUserGone) {
		l.Error("logout_failed", "status", 500, "err", err)
		return err
	}

	l.Info("logout_success", "user_id", userID, "revoked", removed)
	if removed {
		s.publish(ctx, events.TopicUsers, userID, events.UserEvent{
			Type: events.UserLoggedOut, UserID: userID, At: s.now().UTC(),
		})
	}
	return nil
}

// Authenticate is a stateless check of an access token. It never reads the store.
func (s *AuthService) Authenticate(accessToken string) (*Principal, error) {
	claims, err := s.Tokens.ParseAccess(accessToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidAccessToken, err)
	}
	return &Principal{UserID: claims.Subject, Role: claims.Role}, nil
}

var errUserGone = errors.New("user not found")

// mutateUser loads the collection, applies fn to one user and saves when fn
// reports a change. The whole sequence holds s.mu.
func (s *AuthService) mutateUser(ctx context.Context, userID string, fn func(u *models.User) (bool, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.Users.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("load users: %w", err)
	}
	u, _ := repo.FindByID(users, userID)
	if u == nil {
		return errUserGone
	}

	changed, err := fn(u)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	if err := s.Users.SaveAll(ctx, users); err != nil {
		return fmt.Errorf("save users: %w", err)
	}
	return nil
}

func (s *AuthService) issuePair(userID, role string) (*TokenPair, error) {
	access, accessExp, err := s.Tokens.IssueAccess(userID, role)
	if err != nil {
		return nil, err
	}
	refresh, refreshExp, err := s.Tokens.IssueRefresh(userID)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    TokenTypeBearer,
		AccessExp:    accessExp,
		RefreshExp:   refreshExp,
	}, nil
}

func (s *AuthService) pruneExpired(toks []string) []string {
	kept := make([]string, 0, len(toks))
	for _, t := range toks {
		if !s.Tokens.Expired(t) {
			kept = append(kept, t)
		}
	}
	return kept
}

// dummy returns a valid hash so unknown usernames cost one bcrypt compare too.
func (s *AuthService) dummy() string {
	s.dummyOnce.Do(func() {
		h, err := hash.HashPassword(uuid.NewString())
		if err == nil {
			s.dummyHash = h
		}
	})
	return s.dummyHash
}

func (s *AuthService) publish(ctx context.Context, topic, key string, event any) {
	if err := s.Events.PublishEvent(ctx, topic, key, event); err != nil {
		metrics.EventPublishErrors.WithLabelValues(topic).Inc()
		logging.FromContext(ctx).Warn("event_publish_failed", "topic", topic, "err", err)
	}
}
