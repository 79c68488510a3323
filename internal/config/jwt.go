package config

import (
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrTokenSession = errors.New("token was issued for another session")

type SessionClaims struct {
	SessionId string `json:"session_id"`
	jwt.RegisteredClaims
}

type JWT struct {
	secret        []byte
	signingMethod jwt.SigningMethod
	tokenLifetime time.Duration
}

func loadSecret(cfg JwtConfig) ([]byte, error) {
	if cfg.Secret != "" {
		return []byte(cfg.Secret), nil
	}
	if cfg.SecretPath != "" {
		b, err := os.ReadFile(cfg.SecretPath)
		if err != nil {
			return nil, fmt.Errorf("unable to read JWT secret: %w", err)
		}
		return []byte(strings.TrimSpace(string(b))), nil
	}
	// sessions do not outlive the process, neither do their tokens
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("unable to generate JWT secret: %w", err)
	}
	return secret, nil
}

func NewJWT(cfg JwtConfig) (*JWT, error) {
	secret, err := loadSecret(cfg)
	if err != nil {
		return nil, err
	}
	if len(secret) == 0 {
		return nil, errors.New("empty JWT secret")
	}

	j := &JWT{
		secret:        secret,
		signingMethod: jwt.SigningMethodHS256,
		tokenLifetime: cfg.TokenLifetime.Duration,
	}

	return j, nil
}

func (j *JWT) Sign(sessionId string) (string, error) {
	claims := &SessionClaims{
		SessionId: sessionId,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(time.Now()),
		},
	}
	if j.tokenLifetime > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(j.tokenLifetime))
	}
	return jwt.NewWithClaims(j.signingMethod, claims).SignedString(j.secret)
}

func (j *JWT) Parse(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&SessionClaims{},
		func(t *jwt.Token) (interface{}, error) {
			return j.secret, nil
		},
		jwt.WithValidMethods([]string{j.signingMethod.Alg()}),
	)
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*SessionClaims)
	if !ok {
		return nil, fmt.Errorf("malformed claims")
	}
	return claims, nil
}

// Authorize checks that claims grant access to sessionId.
func (c *SessionClaims) Authorize(sessionId string) error {
	if c == nil || c.SessionId != sessionId {
		return ErrTokenSession
	}
	return nil
}
