package tokens

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

var (
	ErrTokenInvalid = errors.New("token invalid")
	// ErrTokenExpired is a specialisation of ErrTokenInvalid.
	ErrTokenExpired = fmt.Errorf("%w: expired", ErrTokenInvalid)
)

// Payload is the identity carried by both token kinds.
type Payload struct {
	UserID string `json:"id"`
	Role   string `json:"role"`
	Email  string `json:"email"`
	Name   string `json:"name"`
}

type Claims struct {
	Role  string `json:"role"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Type  string `json:"typ"`
	jwt.RegisteredClaims
}

func (c *Claims) Payload() Payload {
	return Payload{
		UserID: c.Subject,
		Role:   c.Role,
		Email:  c.Email,
		Name:   c.Name,
	}
}

func parse(tokenStr string, secret []byte, wantType string) (*Claims, error) {
	if tokenStr == "" || len(secret) == 0 {
		return nil, ErrTokenInvalid
	}

	var claims Claims
	tkn, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected sign method")
		}
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !tkn.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.Type != wantType {
		return nil, fmt.Errorf("%w: expected %s token, got %q", ErrTokenInvalid, wantType, claims.Type)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrTokenInvalid)
	}
	return &claims, nil
}

func AccessClaimsFromToken(tokenStr string, accessSecret []byte) (*Claims, error) {
	return parse(tokenStr, accessSecret, TypeAccess)
}

func RefreshClaimsFromToken(tokenStr string, refreshSecret []byte) (*Claims, error) {
	return parse(tokenStr, refreshSecret, TypeRefresh)
}
