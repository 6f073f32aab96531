package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/Skotchmaster/order_portal/pkg/events"
	"github.com/Skotchmaster/order_portal/pkg/logging"
	"github.com/Skotchmaster/order_portal/pkg/validation"
	"github.com/Skotchmaster/order_portal/services/auth/internal/models"
	"github.com/Skotchmaster/order_portal/services/auth/internal/repo"
	"github.com/Skotchmaster/order_portal/services/auth/internal/transport"
)

func trimmed(s string) string { return strings.TrimSpace(s) }

func (h *AuthService) ListUsers(ctx context.Context, status string) ([]models.User, error) {
	switch status {
	case "", models.StatusActive, models.StatusInactive:
	default:
		return nil, fmt.Errorf("%w: %w", ErrValidation, validation.Errors{"status": "must be active or inactive"})
	}
	return h.Repo.ListUsers(ctx, status)
}

func (h *AuthService) SetStatus(ctx context.Context, rawID, status string) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "auth.set_status")

	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, ErrInvalidID
	}
	user, err := h.Repo.SetStatus(ctx, id, status)
	if err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			return nil, ErrNotFound
		}
		l.Error("set_status_error", "status", 500, "error", err)
		return nil, err
	}

	events.Emit(ctx, h.Events, events.TopicUsers, user.ID.String(), events.New("user_status_changed", transport.UserEvent{
		UserID: user.ID.String(),
		Email:  user.Email,
		Name:   user.Name,
		Status: user.Status,
	}))
	l.Info("set_status_success", "user_id", user.ID, "new_status", status)
	return user, nil
}

type AdminAccount struct {
	Email    string
	Password string
	Name     string
}

// EnsureAdmin provisions the bootstrap administrator. An existing account with
// the same email is promoted and activated; its password is left alone.
func (h *AuthService) EnsureAdmin(ctx context.Context, admin AdminAccount) error {
	l := logging.FromContext(ctx).With("svc", "auth.ensure_admin")

	email := validation.NormalizeEmail(admin.Email)
	if email == "" || admin.Password == "" {
		l.Warn("admin_bootstrap_skipped", "reason", "ADMIN_EMAIL or ADMIN_PASSWORD not set")
		return nil
	}

	existing, err := h.Repo.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.IsAdmin() && existing.IsActive() {
			return nil
		}
		if err := h.Repo.PromoteToAdmin(ctx, existing.ID); err != nil {
			return fmt.Errorf("promote admin: %w", err)
		}
		l.Info("admin_promoted", "user_id", existing.ID)
		return nil
	case !errors.Is(err, repo.ErrUserNotFound):
		return fmt.Errorf("lookup admin: %w", err)
	}

	if len(admin.Password) < 8 {
		return fmt.Errorf("%w: ADMIN_PASSWORD must be at least 8 characters", ErrValidation)
	}
	pwHash, err := h.hash(admin.Password)
	if err != nil {
		return err
	}
	name := trimmed(admin.Name)
	if name == "" {
		name = "Administrator"
	}
	user := &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: pwHash,
		Role:         models.RoleAdmin,
		Status:       models.StatusActive,
	}
	if err := h.Repo.CreateUser(ctx, user); err != nil && !errors.Is(err, repo.ErrUserAlreadyExist) {
		return fmt.Errorf("create admin: %w", err)
	}
	l.Info("admin_created", "user_id", user.ID)
	return nil
}
