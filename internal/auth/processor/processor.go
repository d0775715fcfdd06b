package processor

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"sbt-engine/internal/observability"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrWrongPassword   = errors.New("wrong dashboard password")
	ErrExpiredToken    = errors.New("token has expired")
	ErrInvalidJWTToken = errors.New("invalid jwt token")
	ErrParseJWTToken   = errors.New("failed to parse jwt token")
)

// AuthProcessor issues and validates dashboard session tokens. The engine is
// single-merchant, so authentication is one shared password exchanged for a
// short-lived bearer token.
type AuthProcessor struct {
	jwtSecret         string
	dashboardPassword string
	logger            *observability.Logger
}

func New(jwtSecret, dashboardPassword string, logger *observability.Logger) AuthProcessor {
	return AuthProcessor{
		jwtSecret:         jwtSecret,
		dashboardPassword: dashboardPassword,
		logger:            logger,
	}
}

// Login exchanges the dashboard password for a signed session token.
func (p *AuthProcessor) Login(ctx context.Context, password string) (string, error) {
	if subtle.ConstantTimeCompare([]byte(password), []byte(p.dashboardPassword)) != 1 {
		return "", ErrWrongPassword
	}

	expirationTime := time.Now().Add(24 * time.Hour)
	claims := jwt.MapClaims{
		"sub": "merchant",
		"iss": "sbt-engine",
		"aud": "sbt-engine",
		"exp": expirationTime.Unix(),
		"iat": time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString([]byte(p.jwtSecret))
	if err != nil {
		p.logger.Error(ctx, "failed to sign token", err)
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// ValidateJWTToken parses and verifies a session token.
func (p *AuthProcessor) ValidateJWTToken(ctx context.Context, token string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	t, err := jwt.ParseWithClaims(token, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(p.jwtSecret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			p.logger.Error(ctx, "token expired", err)
			return nil, ErrExpiredToken
		}
		p.logger.Error(ctx, "failed to parse token", err)
		return nil, ErrParseJWTToken
	}
	if !t.Valid {
		return nil, ErrInvalidJWTToken
	}
	return claims, nil
}
