package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/restaurant-pos/internal/model"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	p := model.Principal{ID: 42, Username: "amina", Role: model.RoleCashier, TenantCode: "BISTRO"}
	tok, err := NewAccessToken("k", p, 15)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), tok.Exp, 5*time.Second)

	got, err := ParseAccessToken("k", tok.Token)
	require.NoError(t, err)
	assert.Equal(t, p, got)

	_, err = ParseAccessToken("other", tok.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsExpired(t *testing.T) {
	tok, err := NewAccessToken("k", model.Principal{ID: 1, Role: model.RoleSuperAdmin}, -1)
	require.NoError(t, err)
	_, err = ParseAccessToken("k", tok.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func sign(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("k"))
	require.NoError(t, err)
	return s
}

func TestParseRejectsInconsistentClaims(t *testing.T) {
	exp := time.Now().Add(time.Hour).Unix()
	cases := map[string]jwt.MapClaims{
		"super admin with tenant": {"sub": "1", "role": "super_admin", "tenant": "BISTRO", "exp": exp},
		"cashier without tenant":  {"sub": "1", "role": "cashier", "tenant": "", "exp": exp},
		"unknown role":            {"sub": "1", "role": "owner", "tenant": "BISTRO", "exp": exp},
		"bad subject":             {"sub": "abc", "role": "admin", "tenant": "BISTRO", "exp": exp},
		"no expiry":               {"sub": "1", "role": "admin", "tenant": "BISTRO"},
	}
	for name, claims := range cases {
		_, err := ParseAccessToken("k", sign(t, claims))
		assert.ErrorIs(t, err, ErrInvalidToken, name)
	}
}

func TestParseRejectsNoneAlgorithm(t *testing.T) {
	raw, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "1", "role": "super_admin", "exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = ParseAccessToken("k", raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPasswordHashing(t *testing.T) {
	h, err := HashPassword("pa55word", 4)
	require.NoError(t, err)
	assert.True(t, VerifyPassword(h, "pa55word"))
	assert.False(t, VerifyPassword(h, "pa55worD"))
	assert.False(t, VerifyPassword("not-a-hash", "pa55word"))
	assert.False(t, VerifyPassword("", ""))

	_, err = HashPassword("", 4)
	assert.ErrorIs(t, err, ErrEmptyPassword)

	h, err = HashPassword("pa55word", 99)
	require.NoError(t, err)
	cost, err := bcrypt.Cost([]byte(h))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.DefaultCost, cost)
}

func TestRandomHex(t *testing.T) {
	s, err := RandomHex(3)
	require.NoError(t, err)
	assert.Len(t, s, 6)
}
