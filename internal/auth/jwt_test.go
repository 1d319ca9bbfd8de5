package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "session-secret-for-tests"

func newTokens(t *testing.T, opts ...TokenOption) *TokenService {
	t.Helper()
	ts, err := NewTokenService(testSecret, opts...)
	require.NoError(t, err)
	return ts
}

// sign mints a token with arbitrary claims and method, bypassing TokenService.
func sign(t *testing.T, method jwt.SigningMethod, key any, c jwt.RegisteredClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, c).SignedString(key)
	require.NoError(t, err)
	return s
}

func TestNewTokenService_SecretLength(t *testing.T) {
	_, err := NewTokenService("fifteen-chars!!")
	assert.Error(t, err)

	_, err = NewTokenService("sixteen-chars!!!")
	assert.NoError(t, err)
}

func TestTokenService_TTL(t *testing.T) {
	tests := []struct {
		name string
		opts []TokenOption
		want time.Duration
	}{
		{"default", nil, DefaultTokenTTL},
		{"configured", []TokenOption{WithTTL(2 * time.Hour)}, 2 * time.Hour},
		{"zero keeps default", []TokenOption{WithTTL(0)}, DefaultTokenTTL},
		{"negative keeps default", []TokenOption{WithTTL(-time.Hour)}, DefaultTokenTTL},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, newTokens(t, tt.opts...).TTL())
		})
	}
}

func TestGenerate_Claims(t *testing.T) {
	ts := newTokens(t, WithTTL(90*time.Minute))

	before := time.Now().Truncate(time.Second)
	signed, err := ts.Generate("d0c4kq8l0s6g00e8h2tg")
	require.NoError(t, err)

	var c jwt.RegisteredClaims
	_, err = jwt.ParseWithClaims(signed, &c, func(*jwt.Token) (any, error) { return []byte(testSecret), nil })
	require.NoError(t, err)

	assert.Equal(t, "d0c4kq8l0s6g00e8h2tg", c.Subject)
	assert.Equal(t, "music-server", c.Issuer)
	require.NotNil(t, c.ExpiresAt)
	assert.WithinDuration(t, before.Add(90*time.Minute), c.ExpiresAt.Time, 2*time.Second)
}

func TestValidate(t *testing.T) {
	ts := newTokens(t)
	now := time.Now()
	valid := jwt.RegisteredClaims{
		Subject:   "user-1",
		Issuer:    issuer,
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}

	own, err := ts.Generate("user-1")
	require.NoError(t, err)
	expired, err := ts.GenerateWithDuration("user-1", -time.Minute)
	require.NoError(t, err)

	foreignIssuer := valid
	foreignIssuer.Issuer = "someone-else"
	noExpiry := valid
	noExpiry.ExpiresAt = nil
	noSubject := valid
	noSubject.Subject = ""

	tests := []struct {
		name    string
		token   string
		wantID  string
		wantErr string
	}{
		{name: "own token", token: own, wantID: "user-1"},
		{name: "hand-signed valid token", token: sign(t, jwt.SigningMethodHS256, []byte(testSecret), valid), wantID: "user-1"},
		{name: "expired", token: expired, wantErr: "expired"},
		{name: "foreign issuer", token: sign(t, jwt.SigningMethodHS256, []byte(testSecret), foreignIssuer), wantErr: "invalid token"},
		{name: "no expiry", token: sign(t, jwt.SigningMethodHS256, []byte(testSecret), noExpiry), wantErr: "invalid token"},
		{name: "no subject", token: sign(t, jwt.SigningMethodHS256, []byte(testSecret), noSubject), wantErr: "no subject"},
		{name: "other secret", token: sign(t, jwt.SigningMethodHS256, []byte("a-different-secret-value"), valid), wantErr: "invalid token"},
		{name: "HS512 with right secret", token: sign(t, jwt.SigningMethodHS512, []byte(testSecret), valid), wantErr: "invalid token"},
		{name: "alg none", token: sign(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, valid), wantErr: "invalid token"},
		{name: "tampered signature", token: own[:len(own)-4] + "AAAA", wantErr: "invalid token"},
		{name: "empty", token: "", wantErr: "invalid token"},
		{name: "garbage", token: "not.a.jwt.token", wantErr: "invalid token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := ts.Validate(tt.token)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Empty(t, id)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, id)
		})
	}
}

func TestValidate_ErrorsAreNamespaced(t *testing.T) {
	_, err := newTokens(t).Validate("x")
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "auth: "))
}
