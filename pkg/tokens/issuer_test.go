package tokens

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIssuer(t *testing.T, mutate func(*Config)) *Issuer {
	t.Helper()

	cfg := Config{
		AccessSecret:  []byte("test-access-secret"),
		RefreshSecret: []byte("test-refresh-secret"),
		Issuer:        "test",
	}
	if mutate != nil {
		mutate(&cfg)
	}
	iss, err := NewIssuer(cfg)
	require.NoError(t, err)
	return iss
}

func testPayload() Payload {
	return Payload{
		UserID: uuid.NewString(),
		Role:   "admin",
		Email:  "ada@example.com",
		Name:   "Ada",
	}
}

func TestNewIssuer_RequiresSecrets(t *testing.T) {
	t.Parallel()

	_, err := NewIssuer(Config{RefreshSecret: []byte("r")})
	require.Error(t, err)
	_, err = NewIssuer(Config{AccessSecret: []byte("a")})
	require.Error(t, err)

	iss, err := NewIssuer(Config{AccessSecret: []byte("a"), RefreshSecret: []byte("r")})
	require.NoError(t, err)
	assert.Equal(t, DefaultAccessTTL, iss.AccessTTL())
	assert.Equal(t, DefaultRefreshTTL, iss.RefreshTTL())
}

func TestIssuer_AccessToken_CarriesPayload(t *testing.T) {
	t.Parallel()

	iss := newTestIssuer(t, nil)
	p := testPayload()

	token, exp, err := iss.IssueAccessToken(p)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(DefaultAccessTTL), exp, 2*time.Second)

	claims, err := iss.VerifyAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, p, claims.Payload())
	assert.Equal(t, TypeAccess, claims.Type)
	assert.NotEmpty(t, claims.ID)
	require.NotNil(t, claims.ExpiresAt)
	assert.WithinDuration(t, exp, claims.ExpiresAt.Time, time.Second)
}

func TestIssuer_RefreshToken_ConfigurableTTL(t *testing.T) {
	t.Parallel()

	iss := newTestIssuer(t, func(c *Config) { c.RefreshTTL = 48 * time.Hour })
	p := testPayload()

	token, exp, err := iss.IssueRefreshToken(p)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(48*time.Hour), exp, 2*time.Second)

	claims, err := iss.VerifyRefreshToken(token)
	require.NoError(t, err)
	assert.Equal(t, p, claims.Payload())
	assert.Equal(t, TypeRefresh, claims.Type)
}

func TestIssuer_IssuePair_DistinctJTIs(t *testing.T) {
	t.Parallel()

	iss := newTestIssuer(t, nil)
	first, err := iss.IssuePair(testPayload())
	require.NoError(t, err)
	second, err := iss.IssuePair(testPayload())
	require.NoError(t, err)

	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)
	assert.True(t, first.RefreshExpiresAt.After(first.AccessExpiresAt))
}

func TestIssuer_Expired(t *testing.T) {
	t.Parallel()

	iss := newTestIssuer(t, func(c *Config) {
		c.Now = func() time.Time { return time.Now().Add(-time.Hour) }
		c.AccessTTL = time.Minute
	})

	token, _, err := iss.IssueAccessToken(testPayload())
	require.NoError(t, err)

	_, err = iss.VerifyAccessToken(token)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTokenExpired)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestIssuer_RejectsCrossUse(t *testing.T) {
	t.Parallel()

	shared := []byte("one-secret-for-both")
	iss := newTestIssuer(t, func(c *Config) {
		c.AccessSecret = shared
		c.RefreshSecret = shared
	})
	p := testPayload()

	access, _, err := iss.IssueAccessToken(p)
	require.NoError(t, err)
	refresh, _, err := iss.IssueRefreshToken(p)
	require.NoError(t, err)

	_, err = iss.VerifyRefreshToken(access)
	assert.ErrorIs(t, err, ErrTokenInvalid)
	_, err = iss.VerifyAccessToken(refresh)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestIssuer_SecretRotationIsIndependent(t *testing.T) {
	t.Parallel()

	p := testPayload()
	original := newTestIssuer(t, nil)
	pair, err := original.IssuePair(p)
	require.NoError(t, err)

	accessRotated := newTestIssuer(t, func(c *Config) { c.AccessSecret = []byte("rotated-access") })
	_, err = accessRotated.VerifyAccessToken(pair.AccessToken)
	assert.ErrorIs(t, err, ErrTokenInvalid)
	_, err = accessRotated.VerifyRefreshToken(pair.RefreshToken)
	assert.NoError(t, err)

	refreshRotated := newTestIssuer(t, func(c *Config) { c.RefreshSecret = []byte("rotated-refresh") })
	_, err = refreshRotated.VerifyRefreshToken(pair.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenInvalid)
	_, err = refreshRotated.VerifyAccessToken(pair.AccessToken)
	assert.NoError(t, err)
}

func TestVerify_Malformed(t *testing.T) {
	t.Parallel()

	iss := newTestIssuer(t, nil)
	token, _, err := iss.IssueAccessToken(testPayload())
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty", token: ""},
		{name: "garbage", token: "not-a-jwt"},
		{name: "tampered signature", token: tampered},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			claims, err := iss.VerifyAccessToken(tt.token)
			assert.Nil(t, claims)
			assert.ErrorIs(t, err, ErrTokenInvalid)
		})
	}
}

func TestVerify_RejectsOtherAlgorithms(t *testing.T) {
	t.Parallel()

	claims := Claims{
		Type: TypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("test-access-secret"))
	require.NoError(t, err)

	_, err = AccessClaimsFromToken(token, []byte("test-access-secret"))
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestVerify_RequiresSubject(t *testing.T) {
	t.Parallel()

	iss := newTestIssuer(t, nil)
	token, _, err := iss.IssueAccessToken(Payload{Role: "user"})
	require.NoError(t, err)

	_, err = iss.VerifyAccessToken(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}
