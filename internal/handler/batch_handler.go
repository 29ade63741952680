package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"amlakpro/settlement-service/internal/service"
	"amlakpro/settlement-service/pkg/helpers"
)

type BatchHandler struct {
	batches   service.BatchService
	validator *helpers.CustomValidator
}

func NewBatchHandler(batches service.BatchService, v *helpers.CustomValidator) *BatchHandler {
	return &BatchHandler{batches: batches, validator: v}
}

type batchSourceRequest struct {
	VaultID uint64          `json:"vault_id" validate:"required"`
	Amount  decimal.Decimal `json:"amount" validate:"required"`
}

type batchSupplierRequest struct {
	SupplierID uint64          `json:"supplier_id" validate:"required"`
	Amount     decimal.Decimal `json:"amount" validate:"required"`
	Rate       decimal.Decimal `json:"rate" validate:"required"`
}

type batchReferenceRequest struct {
	VaultID         uint64 `json:"vault_id" validate:"required"`
	SupplierID      uint64 `json:"supplier_id" validate:"required"`
	ReferenceNumber string `json:"reference_number" validate:"required,reference_number"`
}

type batchRequest struct {
	Sources    []batchSourceRequest    `json:"sources" validate:"required,min=1,dive"`
	Suppliers  []batchSupplierRequest  `json:"suppliers" validate:"required,min=1,dive"`
	References []batchReferenceRequest `json:"references" validate:"dive"`
	Note       string                  `json:"note"`
}

// SubmitBatch handles POST /api/v1/bank-batches.
func (h *BatchHandler) SubmitBatch(c *fiber.Ctx) error {
	actor, err := actorID(c)
	if err != nil {
		return fail(c, err)
	}

	var body batchRequest
	if err := c.BodyParser(&body); err != nil {
		return fail(c, fiber.NewError(fiber.StatusBadRequest, "invalid request body"))
	}
	for i := range body.References {
		body.References[i].ReferenceNumber = helpers.NormalizePersianNumbers(body.References[i].ReferenceNumber)
	}
	if err := h.validator.Validate(body); err != nil {
		return fail(c, err)
	}

	req := service.BatchRequest{
		References: make(map[service.PairKey]string, len(body.References)),
		Note:       body.Note,
		ActorID:    actor,
	}
	for _, s := range body.Sources {
		req.Sources = append(req.Sources, service.BatchSource{VaultID: s.VaultID, Amount: s.Amount})
	}
	for _, s := range body.Suppliers {
		req.Suppliers = append(req.Suppliers, service.BatchSupplier{
			SupplierID: s.SupplierID,
			Amount:     s.Amount,
			Rate:       s.Rate,
		})
	}
	for _, r := range body.References {
		key := service.PairKey{VaultID: r.VaultID, SupplierID: r.SupplierID}
		req.References[key] = r.ReferenceNumber
	}

	records, err := h.batches.SubmitBatch(c.UserContext(), req)
	if err != nil {
		return fail(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"transactions": toTransactionResponses(records),
	})
}
