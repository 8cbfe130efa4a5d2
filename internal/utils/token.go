package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccessToken is a signed HS256 JWT carrying the user's email and role.
// Access tokens are short-lived and presented in the Authorization header
// on protected endpoints.
type AccessToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // UTC expiration time
}

// RefreshToken is a long-lived opaque credential used to mint new access
// tokens without re-authenticating. Raw is returned to the client once;
// the database only ever holds its SHA-256 hash.
type RefreshToken struct {
	Raw string    // raw token string returned to the client
	Exp time.Time // UTC expiration time
}

// ErrTokenInvalid is returned by ParseAccessToken for any verification
// failure. Expired, malformed and badly-signed tokens are deliberately
// collapsed into one error; the distinction is only ever logged.
var ErrTokenInvalid = errors.New("invalid access token")

// NewAccessToken builds and signs an HS256 JWT with `email` and `role`
// claims plus the standard exp/iat pair. ttlMin controls the lifetime.
func NewAccessToken(secret, email, role string, ttlMin int) (AccessToken, error) {
	now := time.Now().UTC()
	exp := now.Add(time.Duration(ttlMin) * time.Minute)
	claims := jwt.MapClaims{
		"email": email,
		"role":  role,
		"exp":   exp.Unix(),
		"iat":   now.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// ParseAccessToken verifies signature and expiry and returns the email and
// role claims. Any failure yields ErrTokenInvalid.
func ParseAccessToken(secret, raw string) (email, role string, err error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		return "", "", ErrTokenInvalid
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return "", "", ErrTokenInvalid
	}
	email, _ = claims["email"].(string)
	role, _ = claims["role"].(string)
	if email == "" {
		return "", "", ErrTokenInvalid
	}
	return email, role, nil
}

// NewRefreshToken returns a 64-byte random token encoded as hex (128
// characters) and its expiry ttlDays in the future.
func NewRefreshToken(ttlDays int) (RefreshToken, error) {
	raw, err := randomHex(64)
	if err != nil {
		return RefreshToken{}, err
	}
	return RefreshToken{
		Raw: raw,
		Exp: time.Now().UTC().Add(time.Duration(ttlDays) * 24 * time.Hour),
	}, nil
}

// HashRefreshRaw returns the SHA-256 hash of a raw refresh token as a hex
// string. Only the hash is persisted, so a leaked database row cannot be
// replayed as a session.
func HashRefreshRaw(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
