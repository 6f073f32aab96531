package tokens

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	DefaultAccessTTL  = 15 * time.Minute
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

type Config struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
	// Now overrides the signing clock. Verification always uses wall time.
	Now func() time.Time
}

type Pair struct {
	AccessToken      string    `json:"token"`
	RefreshToken     string    `json:"refreshToken"`
	AccessExpiresAt  time.Time `json:"expiresAt"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}

// Issuer signs and verifies access and refresh tokens with independent keys.
// There is no revocation list: expiry is the only way a token stops working.
type Issuer struct {
	cfg Config
}

func NewIssuer(cfg Config) (*Issuer, error) {
	if len(cfg.AccessSecret) == 0 {
		return nil, errors.New("access secret is empty")
	}
	if len(cfg.RefreshSecret) == 0 {
		return nil, errors.New("refresh secret is empty")
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = DefaultAccessTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = DefaultRefreshTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Issuer{cfg: cfg}, nil
}

func (i *Issuer) AccessTTL() time.Duration  { return i.cfg.AccessTTL }
func (i *Issuer) RefreshTTL() time.Duration { return i.cfg.RefreshTTL }

func (i *Issuer) sign(p Payload, typ string, ttl time.Duration, secret []byte) (string, time.Time, error) {
	now := i.cfg.Now().UTC()
	exp := now.Add(ttl)
	claims := Claims{
		Role:  p.Role,
		Email: p.Email,
		Name:  p.Name,
		Type:  typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.UserID,
			Issuer:    i.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

func (i *Issuer) IssueAccessToken(p Payload) (string, time.Time, error) {
	return i.sign(p, TypeAccess, i.cfg.AccessTTL, i.cfg.AccessSecret)
}

func (i *Issuer) IssueRefreshToken(p Payload) (string, time.Time, error) {
	return i.sign(p, TypeRefresh, i.cfg.RefreshTTL, i.cfg.RefreshSecret)
}

func (i *Issuer) IssuePair(p Payload) (*Pair, error) {
	access, accessExp, err := i.IssueAccessToken(p)
	if err != nil {
		return nil, err
	}
	refresh, refreshExp, err := i.IssueRefreshToken(p)
	if err != nil {
		return nil, err
	}
	return &Pair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

func (i *Issuer) VerifyAccessToken(token string) (*Claims, error) {
	return AccessClaimsFromToken(token, i.cfg.AccessSecret)
}

func (i *Issuer) VerifyRefreshToken(token string) (*Claims, error) {
	return RefreshClaimsFromToken(token, i.cfg.RefreshSecret)
}
