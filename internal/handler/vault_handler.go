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

type VaultHandler struct {
	vaultRepo repository.VaultRepository
	ledger    service.LedgerService
	validator *helpers.CustomValidator
}

func NewVaultHandler(vaultRepo repository.VaultRepository, ledger service.LedgerService, v *helpers.CustomValidator) *VaultHandler {
	return &VaultHandler{vaultRepo: vaultRepo, ledger: ledger, validator: v}
}

type vaultResponse struct {
	ID     uint64 `json:"id"`
	Name   string `json:"name"`
	IsMain bool   `json:"is_main"`
	AED    string `json:"aed_balance"`
	IRR    string `json:"irr_balance"`
	Cash   string `json:"cash_balance,omitempty"`
}

func toVaultResponse(v *models.Vault) vaultResponse {
	resp := vaultResponse{
		ID:     v.ID,
		Name:   v.Name,
		IsMain: v.IsMain,
		AED:    v.AED.String(),
		IRR:    v.IRR.String(),
	}
	// Only the main vault tracks cash, hide the column elsewhere.
	if v.IsMain {
		resp.Cash = v.Cash.String()
	}
	return resp
}

// List handles GET /api/v1/vaults.
func (h *VaultHandler) List(c *fiber.Ctx) error {
	vaults, err := h.vaultRepo.List(c.UserContext())
	if err != nil {
		return fail(c, err)
	}

	out := make([]vaultResponse, 0, len(vaults))
	for i := range vaults {
		out = append(out, toVaultResponse(&vaults[i]))
	}
	return c.JSON(fiber.Map{"vaults": out})
}

// Get handles GET /api/v1/vaults/:id.
func (h *VaultHandler) Get(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, err)
	}

	vault, err := h.vaultRepo.FindByID(c.UserContext(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(toVaultResponse(vault))
}

type balanceMutationRequest struct {
	Currency string          `json:"currency" validate:"required,oneof=AED IRR CASH"`
	Amount   decimal.Decimal `json:"amount" validate:"required"`
}

// Credit handles POST /api/v1/vaults/:id/credit.
func (h *VaultHandler) Credit(c *fiber.Ctx) error {
	return h.mutate(c, h.ledger.CreditVault)
}

// Debit handles POST /api/v1/vaults/:id/debit.
func (h *VaultHandler) Debit(c *fiber.Ctx) error {
	return h.mutate(c, h.ledger.DebitVault)
}

func (h *VaultHandler) mutate(c *fiber.Ctx, op func(ctx context.Context, vaultID uint64, currency models.Currency, amount decimal.Decimal) error) error {
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

	vault, err := h.vaultRepo.FindByID(c.UserContext(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(toVaultResponse(vault))
}
