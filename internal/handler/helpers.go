package handler

import (
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"amlakpro/settlement-service/internal/errs"
	"amlakpro/settlement-service/internal/models"
	"amlakpro/settlement-service/internal/service"
	"amlakpro/settlement-service/pkg/helpers"
)

// actorID reads the acting user from the X-Actor-ID header set by the
// gateway in front of this service. Every mutating endpoint requires it.
func actorID(c *fiber.Ctx) (uint64, error) {
	raw := c.Get("X-Actor-ID")
	if raw == "" {
		return 0, fiber.NewError(fiber.StatusUnauthorized, "missing X-Actor-ID header")
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, fiber.NewError(fiber.StatusUnauthorized, "invalid X-Actor-ID header")
	}
	return id, nil
}

func pathID(c *fiber.Ctx, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || id == 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

// fail maps domain errors onto HTTP statuses and renders the standard
// error envelope.
func fail(c *fiber.Ctx, err error) error {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(fiber.Map{"error": fiberErr.Message})
	}

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	var short *errs.InsufficientBalanceError
	if errors.As(err, &short) {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error":     short.Error(),
			"shortfall": short.Shortfall.String(),
		})
	}
	var under *errs.UnderAllocatedSupplierError
	if errors.As(err, &under) {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error":     under.Error(),
			"shortfall": under.Shortfall.String(),
		})
	}

	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, errs.ErrVaultNotFound),
		errors.Is(err, errs.ErrCounterpartyNotFound),
		errors.Is(err, errs.ErrTransactionNotFound),
		errors.Is(err, errs.ErrRateNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, errs.ErrDuplicateReference),
		errors.Is(err, errs.ErrInvalidTransition):
		status = fiber.StatusConflict
	case errors.Is(err, errs.ErrInsufficientTotalAllocation):
		status = fiber.StatusUnprocessableEntity
	case errors.Is(err, errs.ErrInvalidReferenceFormat),
		errors.Is(err, errs.ErrMissingOperationNumber),
		errors.Is(err, errs.ErrInvalidAmount),
		errors.Is(err, errs.ErrMissingRequiredParty),
		errors.Is(err, errs.ErrCashOnNonMainVault),
		errors.Is(err, errs.ErrSupplierHoldsNoBalance),
		errors.Is(err, service.ErrInvalidRate),
		errors.Is(err, service.ErrUnsupportedKind),
		errors.Is(err, service.ErrMissingSourceName),
		errors.Is(err, service.ErrInvalidDirection),
		errors.Is(err, service.ErrEmptyBatch),
		errors.Is(err, service.ErrNotSupplier):
		status = fiber.StatusBadRequest
	}

	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

// transactionResponse is the wire shape of one record. Timestamps are
// rendered twice, ISO for machines and Jalali for the back office.
type transactionResponse struct {
	ID              string  `json:"id"`
	ReferenceNumber string  `json:"reference_number"`
	Type            string  `json:"type"`
	Kind            string  `json:"kind"`
	Amount          string  `json:"amount"`
	SourceCurrency  string  `json:"source_currency"`
	DestCurrency    string  `json:"destination_currency"`
	Rate            *string `json:"exchange_rate,omitempty"`
	ProfitLoss      *string `json:"profit_loss,omitempty"`
	SourceType      string  `json:"source_type"`
	SourceID        uint64  `json:"source_id,omitempty"`
	SourceName      string  `json:"source_name,omitempty"`
	DestType        string  `json:"destination_type,omitempty"`
	DestID          uint64  `json:"destination_id,omitempty"`
	Status          string  `json:"status"`
	Note            string  `json:"note,omitempty"`
	CreatedAt       string  `json:"created_at"`
	CreatedAtJalali string  `json:"created_at_jalali"`
	CreatedBy       uint64  `json:"created_by"`
	ConfirmedAt     *string `json:"confirmed_at,omitempty"`
	ConfirmedBy     *uint64 `json:"confirmed_by,omitempty"`
	ApprovedAt      *string `json:"approved_at,omitempty"`
	ApprovedBy      *uint64 `json:"approved_by,omitempty"`
	CancelledAt     *string `json:"cancelled_at,omitempty"`
	CancelledBy     *uint64 `json:"cancelled_by,omitempty"`
}

func toTransactionResponse(t *models.Transaction) transactionResponse {
	resp := transactionResponse{
		ID:              t.ID,
		ReferenceNumber: t.ReferenceNumber,
		Type:            string(t.Type),
		Kind:            string(t.Kind),
		Amount:          t.Amount.String(),
		SourceCurrency:  string(t.SourceCurrency),
		DestCurrency:    string(t.DestCurrency),
		SourceType:      string(t.SourceType),
		SourceID:        t.SourceID,
		SourceName:      t.SourceName,
		DestType:        string(t.DestType),
		DestID:          t.DestID,
		Status:          string(t.Status),
		Note:            t.Note,
		CreatedAt:       t.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		CreatedAtJalali: helpers.FormatJalaliDateTime(t.CreatedAt),
		CreatedBy:       t.CreatedBy,
	}
	if t.Rate != nil {
		s := t.Rate.String()
		resp.Rate = &s
	}
	if t.ProfitLoss != nil {
		s := t.ProfitLoss.String()
		resp.ProfitLoss = &s
	}
	if t.ConfirmedAt != nil {
		s := t.ConfirmedAt.Format("2006-01-02T15:04:05Z07:00")
		resp.ConfirmedAt = &s
	}
	resp.ConfirmedBy = t.ConfirmedBy
	if t.ApprovedAt != nil {
		s := t.ApprovedAt.Format("2006-01-02T15:04:05Z07:00")
		resp.ApprovedAt = &s
	}
	resp.ApprovedBy = t.ApprovedBy
	if t.CancelledAt != nil {
		s := t.CancelledAt.Format("2006-01-02T15:04:05Z07:00")
		resp.CancelledAt = &s
	}
	resp.CancelledBy = t.CancelledBy
	return resp
}

func toTransactionResponses(records []*models.Transaction) []transactionResponse {
	out := make([]transactionResponse, 0, len(records))
	for _, t := range records {
		out = append(out, toTransactionResponse(t))
	}
	return out
}
