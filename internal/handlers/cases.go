package handlers

import (
	"fraudshield/internal/middleware"
	"fraudshield/internal/services/cases"
	"fraudshield/internal/utils/pagination"
	"fraudshield/internal/utils/response"

	"github.com/gofiber/fiber/v2"
)

type CaseHandler struct {
	caseService cases.Service
}

func NewCaseHandler(caseService cases.Service) *CaseHandler {
	return &CaseHandler{caseService: caseService}
}

// Report opens a fraud case for a transaction and flags it
func (h *CaseHandler) Report(c *fiber.Ctx) error {
	claims, ok := middleware.Claims(c)
	if !ok {
		return response.Unauthorized(c)
	}

	var input struct {
		Notes string `json:"notes"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&input); err != nil {
			return response.BadRequest(c, "Invalid request body")
		}
	}

	fraudCase, err := h.caseService.Report(c.UserContext(), claims.AccountID, c.Params("id"), input.Notes)
	if err != nil {
		return err
	}
	return response.Created(c, "Fraud case opened", fraudCase)
}

func (h *CaseHandler) Dispute(c *fiber.Ctx) error {
	claims, ok := middleware.Claims(c)
	if !ok {
		return response.Unauthorized(c)
	}

	var input struct {
		Reason string `json:"reason"`
	}
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	txn, err := h.caseService.Dispute(c.UserContext(), claims.AccountID, c.Params("id"), input.Reason)
	if err != nil {
		return err
	}
	return response.Success(c, "Transaction disputed", txn)
}

func (h *CaseHandler) ListForTransaction(c *fiber.Ctx) error {
	claims, ok := middleware.Claims(c)
	if !ok {
		return response.Unauthorized(c)
	}

	viewer := cases.Viewer{AccountID: claims.AccountID, Reviewer: claims.IsReviewer()}
	list, err := h.caseService.ListForTransaction(c.UserContext(), viewer, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": list})
}

// ListOwn returns the cases the caller reported
func (h *CaseHandler) ListOwn(c *fiber.Ctx) error {
	claims, ok := middleware.Claims(c)
	if !ok {
		return response.Unauthorized(c)
	}

	p := pagination.ParseFromRequest(c)
	list, total, err := h.caseService.ListForAccount(c.UserContext(), claims.AccountID, p.Limit, p.Offset)
	if err != nil {
		return err
	}
	p.Total = total
	return c.JSON(pagination.Response(p, list))
}

func (h *CaseHandler) Get(c *fiber.Ctx) error {
	claims, ok := middleware.Claims(c)
	if !ok {
		return response.Unauthorized(c)
	}

	viewer := cases.Viewer{AccountID: claims.AccountID, Reviewer: claims.IsReviewer()}
	fraudCase, err := h.caseService.Get(c.UserContext(), viewer, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fraudCase)
}

// ReviewQueue lists cases by status, oldest first
func (h *CaseHandler) ReviewQueue(c *fiber.Ctx) error {
	p := pagination.ParseFromRequest(c)
	list, total, err := h.caseService.ListByStatus(c.UserContext(), c.Query("status"), p.Limit, p.Offset)
	if err != nil {
		return err
	}
	p.Total = total
	return c.JSON(pagination.Response(p, list))
}

func (h *CaseHandler) Transition(c *fiber.Ctx) error {
	claims, ok := middleware.Claims(c)
	if !ok {
		return response.Unauthorized(c)
	}

	var input struct {
		Status string `json:"status"`
		Note   string `json:"note"`
	}
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	fraudCase, err := h.caseService.Transition(c.UserContext(), claims.AccountID, c.Params("id"), input.Status, input.Note)
	if err != nil {
		return err
	}
	return response.Success(c, "Case updated", fraudCase)
}
