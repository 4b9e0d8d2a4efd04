package handlers

import (
	"fraudshield/internal/middleware"
	"fraudshield/internal/services/funding"
	"fraudshield/internal/utils/response"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type FundingHandler struct {
	fundingService funding.Service
}

func NewFundingHandler(fundingService funding.Service) *FundingHandler {
	return &FundingHandler{fundingService: fundingService}
}

// TopUp charges a test card and credits the caller's balance
func (h *FundingHandler) TopUp(c *fiber.Ctx) error {
	claims, ok := middleware.Claims(c)
	if !ok {
		return response.Unauthorized(c)
	}

	var input struct {
		Amount decimal.Decimal `json:"amount"`
	}
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	result, err := h.fundingService.TopUp(c.UserContext(), claims.AccountID, input.Amount, c.Get(IdempotencyKeyHeader))
	if err != nil {
		return err
	}
	return response.Success(c, "Balance topped up", result)
}
