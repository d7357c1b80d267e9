// Package auth issues and verifies the bearer tokens used by the API.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Config holds signing and verification parameters.
type Config struct {
	Secret string
	Issuer string
	TTL    time.Duration
}

// Claims represents the payload extracted from a JWT.
type Claims struct {
	Subject   string
	Username  string
	ExpiresAt time.Time
}

// ErrMissingToken is returned when no bearer token was supplied.
var ErrMissingToken = errors.New("missing bearer token")

// ErrInvalidToken wraps parsing/validation errors.
var ErrInvalidToken = errors.New("invalid bearer token")

const defaultTTL = 7 * 24 * time.Hour

type tokenClaims struct {
	Username string `json:"username,omitempty"`
	jwt.RegisteredClaims
}

// Issue signs an HS256 token for the user. It returns the token and its expiry.
func Issue(cfg Config, userID, username string, now time.Time) (string, time.Time, error) {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	expires := now.Add(ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	})
	signed, err := token.SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expires, nil
}

// Parse validates a JWT and returns normalized claims.
func Parse(token string, cfg Config) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrMissingToken
	}

	var claims tokenClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(cfg.Secret), nil
	}, jwt.WithIssuer(cfg.Issuer), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	return &Claims{
		Subject:   claims.Subject,
		Username:  claims.Username,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
