package utils

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"fraudshield/internal/config"
	"fraudshield/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "fraudshield-api"

// ErrSecretNotConfigured is returned when no signing secret is available.
var ErrSecretNotConfigured = errors.New("JWT_SECRET not configured")

// TokenConfig holds signing secrets and lifetimes for issued tokens.
type TokenConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// LoadTokenConfig reads JWT settings from the environment. REFRESH_SECRET falls back to
// JWT_SECRET.
func LoadTokenConfig() TokenConfig {
	access := config.GetEnv("JWT_SECRET", "")
	return TokenConfig{
		AccessSecret:  []byte(access),
		RefreshSecret: []byte(config.GetEnv("REFRESH_SECRET", access)),
		AccessTTL:     config.GetDurationEnv("JWT_ACCESS_TTL", 15*time.Minute),
		RefreshTTL:    config.GetDurationEnv("JWT_REFRESH_TTL", 7*24*time.Hour),
	}
}

func (c TokenConfig) secret(tokenType string) ([]byte, error) {
	s := c.AccessSecret
	if tokenType == models.TokenTypeRefresh {
		s = c.RefreshSecret
	}
	if len(s) == 0 {
		return nil, ErrSecretNotConfigured
	}
	return s, nil
}

// GenerateTokens generates an access token and a refresh token for the given user claims.
func GenerateTokens(cfg TokenConfig, claims *models.UserClaims) (accessToken string, refreshToken string, err error) {
	now := time.Now()

	accessToken, err = sign(cfg, models.TokenTypeAccess, claims, claims.Permissions, now, cfg.AccessTTL)
	if err != nil {
		return "", "", err
	}
	// Refresh tokens carry no permissions; they are re-derived from the role on refresh.
	refreshToken, err = sign(cfg, models.TokenTypeRefresh, claims, nil, now, cfg.RefreshTTL)
	if err != nil {
		return "", "", err
	}
	return accessToken, refreshToken, nil
}

func sign(cfg TokenConfig, tokenType string, claims *models.UserClaims, permissions []string, now time.Time, ttl time.Duration) (string, error) {
	secret, err := cfg.secret(tokenType)
	if err != nil {
		return "", err
	}
	out := models.UserClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
			Subject:   strconv.FormatUint(uint64(claims.AccountID), 10),
		},
		AccountID:    claims.AccountID,
		Email:        claims.Email,
		Role:         claims.Role,
		Permissions:  permissions,
		TokenVersion: claims.TokenVersion,
		TokenType:    tokenType,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, out).SignedString(secret)
}

// ParseToken parses and validates a JWT of the expected type.
func ParseToken(cfg TokenConfig, tokenType, tokenStr string) (*models.UserClaims, error) {
	secret, err := cfg.secret(tokenType)
	if err != nil {
		return nil, err
	}

	token, err := jwt.ParseWithClaims(tokenStr, &models.UserClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return secret, nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*models.UserClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	if claims.TokenType != tokenType {
		return nil, fmt.Errorf("expected %s token, got %q", tokenType, claims.TokenType)
	}
	return claims, nil
}
