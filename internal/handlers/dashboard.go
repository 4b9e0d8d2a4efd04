package handlers

import (
	"fraudshield/internal/middleware"
	"fraudshield/internal/services/dashboard"
	"fraudshield/internal/utils/response"

	"github.com/gofiber/fiber/v2"
)

type DashboardHandler struct {
	dashboardService dashboard.Service
}

func NewDashboardHandler(dashboardService dashboard.Service) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService}
}

func (h *DashboardHandler) GetStats(c *fiber.Ctx) error {
	claims, ok := middleware.Claims(c)
	if !ok {
		return response.Unauthorized(c)
	}

	stats, err := h.dashboardService.GetStats(c.UserContext(), claims.AccountID)
	if err != nil {
		return err
	}
	return c.JSON(stats)
}

func (h *DashboardHandler) GetBeneficiaries(c *fiber.Ctx) error {
	claims, ok := middleware.Claims(c)
	if !ok {
		return response.Unauthorized(c)
	}

	beneficiaries, err := h.dashboardService.GetBeneficiaries(c.UserContext(), claims.AccountID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": beneficiaries})
}

func (h *DashboardHandler) GetMonthlySpending(c *fiber.Ctx) error {
	claims, ok := middleware.Claims(c)
	if !ok {
		return response.Unauthorized(c)
	}

	summary, err := h.dashboardService.GetMonthlySpending(c.UserContext(), claims.AccountID)
	if err != nil {
		return err
	}
	return c.JSON(summary)
}
