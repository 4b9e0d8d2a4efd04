package handlers

import (
	"fraudshield/internal/middleware"
	"fraudshield/internal/services/transaction"
	"fraudshield/internal/utils/pagination"
	"fraudshield/internal/utils/response"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// IdempotencyKeyHeader carries the caller's idempotency key on submissions.
const IdempotencyKeyHeader = "Idempotency-Key"

type TransactionHandler struct {
	transactionService transaction.Service
}

func NewTransactionHandler(transactionService transaction.Service) *TransactionHandler {
	return &TransactionHandler{transactionService: transactionService}
}

type submitRequest struct {
	Amount         decimal.Decimal `json:"amount"`
	Merchant       string          `json:"merchant"`
	Category       string          `json:"category"`
	Location       string          `json:"location"`
	DeviceID       string          `json:"device_id"`
	NetworkOrigin  string          `json:"network_origin"`
	TransferKind   string          `json:"transfer_kind"`
	RecipientEmail string          `json:"recipient_email"`
	IdempotencyKey string          `json:"idempotency_key"`
}

// Submit scores and settles a payment or P2P transfer. The Idempotency-Key header takes
// precedence over the body field.
func (h *TransactionHandler) Submit(c *fiber.Ctx) error {
	claims, ok := middleware.Claims(c)
	if !ok {
		return response.Unauthorized(c)
	}

	var input submitRequest
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	key := c.Get(IdempotencyKeyHeader)
	if key == "" {
		key = input.IdempotencyKey
	}

	result, err := h.transactionService.Submit(c.UserContext(), claims.AccountID, transaction.Attempt{
		Amount:         input.Amount,
		Merchant:       input.Merchant,
		Category:       input.Category,
		Location:       input.Location,
		DeviceID:       input.DeviceID,
		NetworkOrigin:  input.NetworkOrigin,
		TransferKind:   input.TransferKind,
		RecipientEmail: input.RecipientEmail,
		IdempotencyKey: key,
	})
	if err != nil {
		return err
	}

	if result.Replayed {
		return c.Status(fiber.StatusOK).JSON(result)
	}
	return c.Status(fiber.StatusCreated).JSON(result)
}

func (h *TransactionHandler) List(c *fiber.Ctx) error {
	claims, ok := middleware.Claims(c)
	if !ok {
		return response.Unauthorized(c)
	}

	p := pagination.ParseFromRequest(c)
	txns, total, err := h.transactionService.List(c.UserContext(), claims.AccountID, p.Limit, p.Offset)
	if err != nil {
		return err
	}
	p.Total = total
	return c.JSON(pagination.Response(p, txns))
}

func (h *TransactionHandler) Get(c *fiber.Ctx) error {
	claims, ok := middleware.Claims(c)
	if !ok {
		return response.Unauthorized(c)
	}

	txn, err := h.transactionService.Get(c.UserContext(), claims.AccountID, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(txn)
}

// ListFailed returns the caller's recent attempts that did not settle
func (h *TransactionHandler) ListFailed(c *fiber.Ctx) error {
	claims, ok := middleware.Claims(c)
	if !ok {
		return response.Unauthorized(c)
	}

	attempts, err := h.transactionService.ListFailedAttempts(c.UserContext(), claims.AccountID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": attempts})
}
