package utils // package utils provides helper functions for token creation and hashing

import (
	"crypto/rand"  // secure random number generation
	"encoding/hex" // hex encoding for random suffixes
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iliyamo/restaurant-pos/internal/model"
)

// ErrInvalidToken is returned by ParseAccessToken for any token that fails
// signature, expiry or claim checks.
var ErrInvalidToken = errors.New("invalid token")

// AccessToken represents a signed JWT access token along with its expiry.
type AccessToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// NewAccessToken builds and signs an HS256 JWT for a principal.  Besides
// the registered sub/exp/iat claims it carries username, role and tenant;
// tenant is empty for super admins.
func NewAccessToken(secret string, p model.Principal, ttlMin int) (AccessToken, error) {
	now := time.Now().UTC()
	exp := now.Add(time.Duration(ttlMin) * time.Minute)
	claims := jwt.MapClaims{
		"sub":      strconv.FormatInt(p.ID, 10),
		"username": p.Username,
		"role":     string(p.Role),
		"tenant":   p.TenantCode,
		"exp":      exp.Unix(),
		"iat":      now.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// ParseAccessToken validates raw against secret and rebuilds the principal
// it was issued for.
func ParseAccessToken(secret, raw string) (model.Principal, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		// Reject anything but HMAC so a token cannot pick its own algorithm.
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !tok.Valid {
		return model.Principal{}, ErrInvalidToken
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return model.Principal{}, ErrInvalidToken
	}

	sub, _ := claims["sub"].(string)
	id, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return model.Principal{}, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}
	username, _ := claims["username"].(string)
	role, _ := claims["role"].(string)
	tenant, _ := claims["tenant"].(string)

	p := model.Principal{ID: id, Username: username, Role: model.Role(role), TenantCode: tenant}
	if !p.Role.Valid() {
		return model.Principal{}, fmt.Errorf("%w: bad role", ErrInvalidToken)
	}
	// Super admins never carry a tenant and tenant staff always do.
	if (p.Role == model.RoleSuperAdmin) != (p.TenantCode == "") {
		return model.Principal{}, fmt.Errorf("%w: role and tenant disagree", ErrInvalidToken)
	}
	return p, nil
}

// RandomHex returns a hex-encoded string generated from n bytes of
// cryptographically secure random data.
func RandomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
