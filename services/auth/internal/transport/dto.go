package transport

import (
	"time"

	"github.com/Skotchmaster/order_portal/services/auth/internal/models"
)

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type SessionUser struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Status string `json:"status"`
}

func ToSessionUser(u *models.User) SessionUser {
	return SessionUser{
		ID:     u.ID.String(),
		Name:   u.Name,
		Email:  u.Email,
		Role:   u.Role,
		Status: u.Status,
	}
}

type SessionResponse struct {
	Token            string      `json:"token"`
	RefreshToken     string      `json:"refreshToken"`
	ExpiresAt        time.Time   `json:"expiresAt"`
	RefreshExpiresAt time.Time   `json:"refreshExpiresAt"`
	User             SessionUser `json:"user"`
}

type UserEvent struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Status string `json:"status"`
}
