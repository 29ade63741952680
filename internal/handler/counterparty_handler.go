package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"amlakpro/settlement-service/internal/models"
	"amlakpro/settlement-service/internal/repository"
	"amlakpro/settlement-service/internal/service"
	"amlakpro/settlement-service/pkg/helpers"
)

type CounterpartyHandler struct {
	counterpartyRepo repository.CounterpartyRepository
	ledger           service.LedgerService
	validator        *helpers.CustomValidator
}

func NewCounterpartyHandler(counterpartyRepo repository.CounterpartyRepository, ledger service.LedgerService, v *helpers.CustomValidator) *CounterpartyHandler {
	return &CounterpartyHandler{counterpartyRepo: counterpartyRepo, ledger: ledger, validator: v}
}

type counterpartyResponse struct {
	ID          uint64 `json:"id"`
	Name        string `json:"name"`
	Role        string `json:"role"`
	Mobile      string `json:"mobile,omitempty"`
	AED         string `json:"aed_balance,omitempty"`
	IRR         string `json:"irr_balance,omitempty"`
	MemberSince string `json:"member_since_jalali"`
}

func toCounterpartyResponse(cp *models.Counterparty) counterpartyResponse {
	resp := counterpartyResponse{
		ID:          cp.ID,
		Name:        cp.Name,
		Role:        string(cp.Role),
		Mobile:      cp.Mobile,
		MemberSince: helpers.FormatJalaliDate(cp.CreatedAt),
	}
	// Suppliers hold no balance; their rows stay pass-through.
	if cp.Role == models.RoleCustomer {
		resp.AED = cp.Balance(models.CurrencyAED).String()
		resp.IRR = cp.Balance(models.CurrencyIRR).String()
	}
	return resp
}

// List handles GET /api/v1/counterparties. An optional role query
// filters to customers or suppliers.
func (h *CounterpartyHandler) List(c *fiber.Ctx) error {
	role := models.Role(c.Query("role", string(models.RoleCustomer)))
	if role != models.RoleCustomer && role != models.RoleSupplier {
		return fail(c, fiber.NewError(fiber.StatusBadRequest, "role must be customer or supplier"))
	}

	parties, err := h.counterpartyRepo.ListByRole(c.UserContext(), role)
	if err != nil {
		return fail(c, err)
	}

	out := make([]counterpartyResponse, 0, len(parties))
	for i := range parties {
		out = append(out, toCounterpartyResponse(&parties[i]))
	}
	return c.JSON(fiber.Map{"counterparties": out})
}

// Get handles GET /api/v1/counterparties/:id.
func (h *CounterpartyHandler) Get(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, err)
	}

	cp, err := h.counterpartyRepo.FindByID(c.UserContext(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(toCounterpartyResponse(cp))
}

// Credit handles POST /api/v1/counterparties/:id/credit.
func (h *CounterpartyHandler) Credit(c *fiber.Ctx) error {
	return h.mutate(c, h.ledger.CreditCustomer)
}

// Debit handles POST /api/v1/counterparties/:id/debit.
func (h *CounterpartyHandler) Debit(c *fiber.Ctx) error {
	return h.mutate(c, h.ledger.DebitCustomer)
}

func (h *CounterpartyHandler) mutate(c *fiber.Ctx, op func(ctx context.Context, counterpartyID uint64, currency models.Currency, amount decimal.Decimal) error) error {
	if _, err := actorID(c); err != nil {
		return fail(c, err)
	}

	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, err)
	}

	var body balanceMutationRequest
	if err := c.BodyParser(&body); err != nil {
		return fail(c, fiber.NewError(fiber.StatusBadRequest, "invalid request body"))
	}
	if err := h.validator.Validate(body); err != nil {
		return fail(c, err)
	}

	if err := op(c.UserContext(), id, models.Currency(body.Currency), body.Amount); err != nil {
		return fail(c, err)
	}

	cp, err := h.counterpartyRepo.FindByID(c.UserContext(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(toCounterpartyResponse(cp))
}
