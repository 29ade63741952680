package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"amlakpro/settlement-service/internal/models"
	"amlakpro/settlement-service/internal/service"
	"amlakpro/settlement-service/pkg/helpers"
)

type RateHandler struct {
	rates     service.RateService
	validator *helpers.CustomValidator
}

func NewRateHandler(rates service.RateService, v *helpers.CustomValidator) *RateHandler {
	return &RateHandler{rates: rates, validator: v}
}

type rateResponse struct {
	ID              uint64 `json:"id"`
	BuyRate         string `json:"buy_rate"`
	SellRate        string `json:"sell_rate"`
	CreatedAt       string `json:"created_at"`
	CreatedAtJalali string `json:"created_at_jalali"`
	CreatedBy       uint64 `json:"created_by"`
}

func toRateResponse(r *models.ExchangeRate) rateResponse {
	return rateResponse{
		ID:              r.ID,
		BuyRate:         r.BuyRate.String(),
		SellRate:        r.SellRate.String(),
		CreatedAt:       r.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		CreatedAtJalali: helpers.FormatJalaliDateTime(r.CreatedAt),
		CreatedBy:       r.CreatedBy,
	}
}

// Current handles GET /api/v1/rates/current.
func (h *RateHandler) Current(c *fiber.Ctx) error {
	rate, err := h.rates.CurrentRate(c.UserContext())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(toRateResponse(rate))
}

type updateRateRequest struct {
	BuyRate  decimal.Decimal `json:"buy_rate" validate:"required"`
	SellRate decimal.Decimal `json:"sell_rate" validate:"required"`
}

// Update handles POST /api/v1/rates.
func (h *RateHandler) Update(c *fiber.Ctx) error {
	actor, err := actorID(c)
	if err != nil {
		return fail(c, err)
	}

	var body updateRateRequest
	if err := c.BodyParser(&body); err != nil {
		return fail(c, fiber.NewError(fiber.StatusBadRequest, "invalid request body"))
	}
	if err := h.validator.Validate(body); err != nil {
		return fail(c, err)
	}

	rate, err := h.rates.UpdateRate(c.UserContext(), body.BuyRate, body.SellRate, actor)
	if err != nil {
		return fail(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(toRateResponse(rate))
}
