package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"amlakpro/settlement-service/internal/models"
	"amlakpro/settlement-service/internal/service"
	"amlakpro/settlement-service/pkg/helpers"
)

type TransferHandler struct {
	transfers service.TransferService
	validator *helpers.CustomValidator
}

func NewTransferHandler(transfers service.TransferService, v *helpers.CustomValidator) *TransferHandler {
	return &TransferHandler{transfers: transfers, validator: v}
}

type exchangeRequest struct {
	ReferenceNumber string          `json:"reference_number" validate:"required,reference_number"`
	Kind            string          `json:"kind" validate:"required,oneof=normal reverse"`
	Amount          decimal.Decimal `json:"amount" validate:"required"`
	CounterpartyID  uint64          `json:"counterparty_id"`
	CashName        string          `json:"cash_name"`
	DestVaultID     uint64          `json:"destination_vault_id"`
	Note            string          `json:"note"`
}

// SubmitExchange handles POST /api/v1/exchanges.
func (h *TransferHandler) SubmitExchange(c *fiber.Ctx) error {
	actor, err := actorID(c)
	if err != nil {
		return fail(c, err)
	}

	var body exchangeRequest
	if err := c.BodyParser(&body); err != nil {
		return fail(c, fiber.NewError(fiber.StatusBadRequest, "invalid request body"))
	}
	body.ReferenceNumber = helpers.NormalizePersianNumbers(body.ReferenceNumber)
	if err := h.validator.Validate(body); err != nil {
		return fail(c, err)
	}

	record, err := h.transfers.SubmitExchange(c.UserContext(), service.ExchangeRequest{
		ReferenceNumber: body.ReferenceNumber,
		Kind:            models.TransactionKind(body.Kind),
		Amount:          body.Amount,
		CounterpartyID:  body.CounterpartyID,
		CashName:        body.CashName,
		DestVaultID:     body.DestVaultID,
		Note:            body.Note,
		ActorID:         actor,
	})
	if err != nil {
		return fail(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(toTransactionResponse(record))
}

type cashMovementRequest struct {
	ReferenceNumber string          `json:"reference_number" validate:"required,reference_number"`
	Direction       string          `json:"direction" validate:"required,oneof=deposit withdrawal"`
	Amount          decimal.Decimal `json:"amount" validate:"required"`
	VaultID         uint64          `json:"vault_id" validate:"required"`
	Note            string          `json:"note"`
}

// SubmitCashMovement handles POST /api/v1/cash-movements.
func (h *TransferHandler) SubmitCashMovement(c *fiber.Ctx) error {
	actor, err := actorID(c)
	if err != nil {
		return fail(c, err)
	}

	var body cashMovementRequest
	if err := c.BodyParser(&body); err != nil {
		return fail(c, fiber.NewError(fiber.StatusBadRequest, "invalid request body"))
	}
	body.ReferenceNumber = helpers.NormalizePersianNumbers(body.ReferenceNumber)
	if err := h.validator.Validate(body); err != nil {
		return fail(c, err)
	}

	record, err := h.transfers.SubmitCashMovement(c.UserContext(), service.CashMovementRequest{
		ReferenceNumber: body.ReferenceNumber,
		Direction:       models.TransactionType(body.Direction),
		Amount:          body.Amount,
		VaultID:         body.VaultID,
		Note:            body.Note,
		ActorID:         actor,
	})
	if err != nil {
		return fail(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(toTransactionResponse(record))
}
