package handler

import (
	"context"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"amlakpro/settlement-service/internal/models"
	"amlakpro/settlement-service/internal/repository"
	"amlakpro/settlement-service/internal/service"
)

const defaultListLimit = 50

type TransactionHandler struct {
	transactionRepo repository.TransactionRepository
	lifecycle       service.LifecycleService
}

func NewTransactionHandler(transactionRepo repository.TransactionRepository, lifecycle service.LifecycleService) *TransactionHandler {
	return &TransactionHandler{transactionRepo: transactionRepo, lifecycle: lifecycle}
}

// List handles GET /api/v1/transactions.
func (h *TransactionHandler) List(c *fiber.Ctx) error {
	limit := defaultListLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 500 {
			return fail(c, fiber.NewError(fiber.StatusBadRequest, "limit must be between 1 and 500"))
		}
		limit = parsed
	}

	records, err := h.transactionRepo.List(c.UserContext(), limit)
	if err != nil {
		return fail(c, err)
	}

	out := make([]transactionResponse, 0, len(records))
	for i := range records {
		out = append(out, toTransactionResponse(&records[i]))
	}
	return c.JSON(fiber.Map{"transactions": out})
}

// Get handles GET /api/v1/transactions/:id. The id parameter accepts a
// record id or, when exactly five digits, a reference number.
func (h *TransactionHandler) Get(c *fiber.Ctx) error {
	id := c.Params("id")

	var record *models.Transaction
	var err error
	if len(id) == 5 {
		record, err = h.transactionRepo.FindByReference(c.UserContext(), id)
	} else {
		record, err = h.transactionRepo.FindByID(c.UserContext(), id)
	}
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(toTransactionResponse(record))
}

// Confirm handles POST /api/v1/transactions/:id/confirm.
func (h *TransactionHandler) Confirm(c *fiber.Ctx) error {
	return h.transition(c, h.lifecycle.Confirm)
}

// Cancel handles POST /api/v1/transactions/:id/cancel.
func (h *TransactionHandler) Cancel(c *fiber.Ctx) error {
	return h.transition(c, h.lifecycle.Cancel)
}

// Deliver handles POST /api/v1/transactions/:id/deliver.
func (h *TransactionHandler) Deliver(c *fiber.Ctx) error {
	return h.transition(c, h.lifecycle.Deliver)
}

// Approve handles POST /api/v1/transactions/:id/approve.
func (h *TransactionHandler) Approve(c *fiber.Ctx) error {
	return h.transition(c, h.lifecycle.Approve)
}

func (h *TransactionHandler) transition(c *fiber.Ctx, step func(ctx context.Context, txID string, actorID uint64) (*models.Transaction, error)) error {
	actor, err := actorID(c)
	if err != nil {
		return fail(c, err)
	}

	record, err := step(c.UserContext(), c.Params("id"), actor)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(toTransactionResponse(record))
}
