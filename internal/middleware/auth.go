// Package middleware provides HTTP middleware components for the application.
// It includes authentication, authorization, and request instrumentation
// for the fiber web framework.
package middleware

import (
	"strings"

	apperrors "fraudshield/internal/errors"
	"fraudshield/internal/logger"
	"fraudshield/internal/models"
	"fraudshield/internal/services/auth"
	"fraudshield/internal/utils/response"

	"github.com/gofiber/fiber/v2"
)

const claimsKey = "claims"

// AuthMiddleware handles JWT token validation and account authentication.
// It extracts the JWT token from the Authorization header, validates it,
// and adds the claims to the request context.
type AuthMiddleware struct {
	authService auth.Service
}

func NewAuthMiddleware(authService auth.Service) *AuthMiddleware {
	return &AuthMiddleware{
		authService: authService,
	}
}

// Handler validates the bearer token, including its token version, and stores the claims.
func (m *AuthMiddleware) Handler(c *fiber.Ctx) error {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return response.FromError(c, apperrors.ErrInvalidToken.WithMessage("missing authorization header"))
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return response.FromError(c, apperrors.ErrInvalidToken.WithMessage("invalid authorization format"))
	}

	claims, err := m.authService.Authenticate(c.UserContext(), strings.TrimPrefix(authHeader, "Bearer "))
	if err != nil {
		logger.FromContext(c.UserContext()).Debug().Err(err).Msg("token rejected")
		return response.FromError(c, err)
	}

	c.Locals(claimsKey, claims)
	log := logger.FromContext(c.UserContext()).With().Uint("account_id", claims.AccountID).Logger()
	c.SetUserContext(logger.WithContext(c.UserContext(), log))

	return c.Next()
}

// Claims returns the authenticated claims stored by Handler.
func Claims(c *fiber.Ctx) (*models.UserClaims, bool) {
	claims, ok := c.Locals(claimsKey).(*models.UserClaims)
	return claims, ok && claims != nil
}

// HasPermission returns a middleware that checks for a specific permission.
func HasPermission(permission string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := Claims(c)
		if !ok {
			return response.Unauthorized(c)
		}

		// Admins hold every permission
		if claims.Role == models.RoleAdmin || claims.HasPermission(permission) {
			return c.Next()
		}

		logger.FromContext(c.UserContext()).Info().
			Str("permission", permission).
			Str("role", claims.Role).
			Msg("permission denied")
		return response.FromError(c, apperrors.ErrForbidden)
	}
}
