// internal/auth/session.go
package auth

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jason-s-yu/falseshow/internal/config"
)

var (
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey

	// tokenTTL is zero when tokens never expire.
	tokenTTL time.Duration
)

var ErrNotInitialized = errors.New("auth keys not initialized")

// Guest is the identity carried by a session token.
type Guest struct {
	UserID string
	Name   string
}

// parseTokenExpireTime reads TOKEN_EXPIRE_TIME ("never", "0", or a Go duration).
func parseTokenExpireTime() error {
	v := config.GetEnv("TOKEN_EXPIRE_TIME", "never")
	if v == "never" || v == "0" {
		tokenTTL = 0
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("failed to parse token expire time: %w", err)
	}
	tokenTTL = d
	return nil
}

// Init generates a fresh ed25519 key pair and reads the token lifetime.
func Init() error {
	var err error
	publicKey, privateKey, err = ed25519.GenerateKey(nil)
	if err != nil {
		return fmt.Errorf("failed to generate ed25519 key pair: %w", err)
	}
	return parseTokenExpireTime()
}

// CreateJWT signs a token with "sub" = userID and "name" = the display name.
func CreateJWT(userID, name string) (string, error) {
	if privateKey == nil {
		return "", ErrNotInitialized
	}
	claims := jwt.MapClaims{
		"sub":  userID,
		"name": name,
		"iat":  time.Now().Unix(),
	}
	if tokenTTL > 0 {
		claims["exp"] = time.Now().Add(tokenTTL).Unix()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	return token.SignedString(privateKey)
}

// AuthenticateJWT verifies a token and returns the guest it names.
func AuthenticateJWT(tokenString string) (Guest, error) {
	if publicKey == nil {
		return Guest{}, ErrNotInitialized
	}
	t, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return publicKey, nil
	})
	if err != nil {
		return Guest{}, fmt.Errorf("jwt parse error: %w", err)
	}
	if !t.Valid {
		return Guest{}, fmt.Errorf("invalid token")
	}

	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return Guest{}, fmt.Errorf("invalid jwt claims")
	}
	userID, ok := claims["sub"].(string)
	if !ok || userID == "" {
		return Guest{}, fmt.Errorf("missing sub in jwt")
	}
	name, _ := claims["name"].(string)
	return Guest{UserID: userID, Name: name}, nil
}
