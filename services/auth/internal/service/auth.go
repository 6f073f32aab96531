package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/Skotchmaster/order_portal/pkg/events"
	pkg_hash "github.com/Skotchmaster/order_portal/pkg/hash"
	"github.com/Skotchmaster/order_portal/pkg/logging"
	"github.com/Skotchmaster/order_portal/pkg/tokens"
	"github.com/Skotchmaster/order_portal/pkg/validation"
	"github.com/Skotchmaster/order_portal/services/auth/internal/models"
	"github.com/Skotchmaster/order_portal/services/auth/internal/repo"
	"github.com/Skotchmaster/order_portal/services/auth/internal/transport"
)

type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	ListUsers(ctx context.Context, status string) ([]models.User, error)
	SetStatus(ctx context.Context, id uuid.UUID, status string) (*models.User, error)
	PromoteToAdmin(ctx context.Context, id uuid.UUID) error
}

type AuthService struct {
	Repo   UserStore
	Tokens *tokens.Issuer
	Events events.Publisher
	// HashPassword defaults to bcrypt at the default cost.
	HashPassword func(string) (string, error)
}

type LoginResult struct {
	*tokens.Pair
	User *models.User
}

func (h *AuthService) hash(password string) (string, error) {
	if h.HashPassword != nil {
		return h.HashPassword(password)
	}
	return pkg_hash.HashPassword(password)
}

func payloadFor(u *models.User) tokens.Payload {
	return tokens.Payload{
		UserID: u.ID.String(),
		Role:   u.Role,
		Email:  u.Email,
		Name:   u.Name,
	}
}

func (h *AuthService) Register(ctx context.Context, in transport.RegisterRequest) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "auth.register")

	in.Name = trimmed(in.Name)
	in.Email = validation.NormalizeEmail(in.Email)

	errs := validation.Errors{}
	if !validation.MinLen(in.Name, 2) {
		errs.Add("name", "must be at least 2 characters")
	}
	if !validation.IsValidEmail(in.Email) {
		errs.Add("email", "must be a valid email address")
	}
	if len(in.Password) < 8 {
		errs.Add("password", "must be at least 8 characters")
	} else if len(in.Password) > 72 {
		errs.Add("password", "must be at most 72 bytes")
	}
	if err := errs.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	if _, err := h.Repo.GetUserByEmail(ctx, in.Email); err == nil {
		l.Warn("register_error", "status", 409, "reason", "email already registered")
		return nil, ErrConflict
	} else if !errors.Is(err, repo.ErrUserNotFound) {
		return nil, err
	}

	pwHash, err := h.hash(in.Password)
	if err != nil {
		l.Error("register_error", "status", 500, "reason", "cannot hash the password", "error", err)
		return nil, err
	}

	user := &models.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: pwHash,
		Role:         models.RoleUser,
		Status:       models.StatusInactive,
	}
	if err := h.Repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repo.ErrUserAlreadyExist) {
			l.Warn("register_error", "status", 409, "reason", "email already registered")
			return nil, ErrConflict
		}
		l.Error("register_error", "status", 500, "reason", "cannot create user", "error", err)
		return nil, err
	}

	events.Emit(ctx, h.Events, events.TopicUsers, user.ID.String(), events.New("user_registered", transport.UserEvent{
		UserID: user.ID.String(),
		Email:  user.Email,
		Name:   user.Name,
		Status: user.Status,
	}))
	l.Info("register_successful", "user_id", user.ID)
	return user, nil
}

// Login checks the password before the account status, so an inactive
// account is only disclosed to someone who knows its password.
func (h *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = validation.NormalizeEmail(email)
	l := logging.FromContext(ctx).With("svc", "auth.login", "email", email)

	errs := validation.Errors{}
	if !validation.IsValidEmail(email) {
		errs.Add("email", "must be a valid email address")
	}
	if len(password) < 8 {
		errs.Add("password", "must be at least 8 characters")
	}
	if err := errs.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	user, err := h.Repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			l.Warn("login failed", "status", 401, "reason", "unknown email")
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !pkg_hash.CheckPassword(user.PasswordHash, password) {
		l.Warn("login failed", "status", 401, "reason", "wrong password")
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive() {
		l.Warn("login failed", "status", 403, "reason", "user inactive")
		return nil, ErrUserInactive
	}

	pair, err := h.Tokens.IssuePair(payloadFor(user))
	if err != nil {
		l.Error("login failed", "status", 500, "error", err)
		return nil, err
	}
	return &LoginResult{Pair: pair, User: user}, nil
}

// Refresh exchanges a refresh token for a new pair. The presented token is
// not revoked and stays usable until it expires.
func (h *AuthService) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.refresh")

	claims, err := h.Tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRefreshToken, err)
	}

	user, err := h.userBySubject(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			l.Warn("refresh failed", "status", 401, "reason", "user gone", "user_id", claims.Subject)
			return nil, ErrInvalidRefreshToken
		}
		return nil, err
	}
	if !user.IsActive() {
		l.Warn("refresh failed", "status", 403, "reason", "user inactive", "user_id", claims.Subject)
		return nil, ErrUserInactive
	}

	pair, err := h.Tokens.IssuePair(payloadFor(user))
	if err != nil {
		l.Error("refresh failed", "status", 500, "error", err)
		return nil, err
	}
	return &LoginResult{Pair: pair, User: user}, nil
}

// CurrentUser re-reads the token's subject on every call so deactivation
// takes effect before the access token expires.
func (h *AuthService) CurrentUser(ctx context.Context, claims *tokens.Claims) (*models.User, error) {
	user, err := h.userBySubject(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidAccessToken
		}
		return nil, err
	}
	if !user.IsActive() {
		return nil, ErrUserInactive
	}
	return user, nil
}

func (h *AuthService) userBySubject(ctx context.Context, subject string) (*models.User, error) {
	id, err := uuid.Parse(subject)
	if err != nil {
		return nil, ErrNotFound
	}
	user, err := h.Repo.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return user, nil
}
