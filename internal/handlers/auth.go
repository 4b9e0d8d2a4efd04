package handlers

import (
	"fraudshield/internal/middleware"
	"fraudshield/internal/models"
	"fraudshield/internal/services/auth"
	"fraudshield/internal/utils/response"
	"fraudshield/internal/validation"

	"github.com/gofiber/fiber/v2"
)

type AuthHandler struct {
	authService auth.Service
}

func NewAuthHandler(authService auth.Service) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Login authenticates an account and returns JWT tokens
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var input struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	v := validation.New()
	v.Struct(input)
	if err := v.Err(); err != nil {
		return err
	}

	account, tokens, err := h.authService.Login(c.UserContext(), input.Email, input.Password)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"access_token":  tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
		"account": fiber.Map{
			"id":          account.ID,
			"email":       account.Email,
			"name":        account.Name,
			"role":        account.Role,
			"permissions": models.GetDefaultPermissions(account.Role),
		},
	})
}

func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var input struct {
		RefreshToken string `json:"refresh_token" validate:"required"`
	}
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	v := validation.New()
	v.Struct(input)
	if err := v.Err(); err != nil {
		return err
	}

	tokens, err := h.authService.Refresh(c.UserContext(), input.RefreshToken)
	if err != nil {
		return err
	}
	return c.JSON(tokens)
}

// Logout revokes every token issued to the caller
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	claims, ok := middleware.Claims(c)
	if !ok {
		return response.Unauthorized(c)
	}
	if err := h.authService.Logout(c.UserContext(), claims.AccountID); err != nil {
		return err
	}
	return response.Success(c, "Logged out", nil)
}
