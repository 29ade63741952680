package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"amlakpro/settlement-service/internal/errs"
	"amlakpro/settlement-service/internal/models"
	"amlakpro/settlement-service/internal/repository"
	"amlakpro/settlement-service/pkg/helpers"
	"amlakpro/settlement-service/pkg/logger"
	"amlakpro/settlement-service/pkg/metrics"
)

var (
	ErrEmptyBatch  = errors.New("batch requires at least one source and one supplier")
	ErrNotSupplier = errors.New("destination counterparty is not a supplier")
)

// allocationEpsilon is the tolerance on covered supplier totals.
var allocationEpsilon = decimal.NewFromFloat(0.01)

// BatchSource earmarks toman held on one vault for the batch.
type BatchSource struct {
	VaultID uint64
	Amount  decimal.Decimal
}

// BatchSupplier is one destination with its requested amount and the
// rate agreed for it. In single-supplier mode the one entry carries the
// shared rate.
type BatchSupplier struct {
	SupplierID uint64
	Amount     decimal.Decimal
	Rate       decimal.Decimal
}

// PairKey addresses the reference number assigned to one
// (source vault, supplier) allocation line.
type PairKey struct {
	VaultID    uint64
	SupplierID uint64
}

// BatchRequest is a bank-mediated transfer from one or more vaults to
// one or more suppliers. References must name every pair the allocation
// will actually produce.
type BatchRequest struct {
	Sources    []BatchSource
	Suppliers  []BatchSupplier
	References map[PairKey]string
	Note       string
	ActorID    uint64
}

// AllocationLine is one planned (vault, supplier) movement.
type AllocationLine struct {
	VaultID    uint64
	SupplierID uint64
	Amount     decimal.Decimal
	Rate       decimal.Decimal
	Reference  string
}

type BatchService interface {
	SubmitBatch(ctx context.Context, req BatchRequest) ([]*models.Transaction, error)
}

type batchService struct {
	transactionRepo  repository.TransactionRepository
	vaultRepo        repository.VaultRepository
	counterpartyRepo repository.CounterpartyRepository
	channel          ConfirmationChannel
	log              *logger.Logger
	metrics          *metrics.Metrics
}

func NewBatchService(
	transactionRepo repository.TransactionRepository,
	vaultRepo repository.VaultRepository,
	counterpartyRepo repository.CounterpartyRepository,
	channel ConfirmationChannel,
	log *logger.Logger,
	m *metrics.Metrics,
) BatchService {
	return &batchService{
		transactionRepo:  transactionRepo,
		vaultRepo:        vaultRepo,
		counterpartyRepo: counterpartyRepo,
		channel:          channel,
		log:              log,
		metrics:          m,
	}
}

func (s *batchService) SubmitBatch(ctx context.Context, req BatchRequest) ([]*models.Transaction, error) {
	started := time.Now()

	records, suppliers, err := s.submitBatch(ctx, req)
	if err != nil {
		s.metrics.ObserveOperation("submit_batch", "error", started)
		return nil, err
	}
	s.metrics.ObserveOperation("submit_batch", "ok", started)

	// Confirmation dispatch is fire-and-forget: the batch is committed
	// and a delivery failure must never roll it back.
	go s.notifySuppliers(records, suppliers)

	return records, nil
}

func (s *batchService) submitBatch(ctx context.Context, req BatchRequest) ([]*models.Transaction, map[uint64]*models.Counterparty, error) {
	if len(req.Sources) == 0 || len(req.Suppliers) == 0 {
		return nil, nil, ErrEmptyBatch
	}
	for _, src := range req.Sources {
		if !src.Amount.IsPositive() {
			return nil, nil, errs.ErrInvalidAmount
		}
	}
	for _, sup := range req.Suppliers {
		if !sup.Amount.IsPositive() || !sup.Rate.IsPositive() {
			return nil, nil, errs.ErrInvalidAmount
		}
	}

	suppliers := make(map[uint64]*models.Counterparty, len(req.Suppliers))
	for _, sup := range req.Suppliers {
		cp, err := s.counterpartyRepo.FindByID(ctx, sup.SupplierID)
		if err != nil {
			return nil, nil, err
		}
		if cp.Role != models.RoleSupplier {
			return nil, nil, ErrNotSupplier
		}
		suppliers[sup.SupplierID] = cp
	}

	vaults := make(map[uint64]*models.Vault, len(req.Sources))
	// Every source must hold its earmark before anything mutates.
	for _, src := range req.Sources {
		vault, err := s.vaultRepo.FindByID(ctx, src.VaultID)
		if err != nil {
			return nil, nil, err
		}
		vaults[src.VaultID] = vault
		if vault.IRR.LessThan(src.Amount) {
			return nil, nil, &errs.InsufficientBalanceError{
				Entity:    "vault",
				EntityID:  src.VaultID,
				Currency:  string(models.CurrencyIRR),
				Shortfall: src.Amount.Sub(vault.IRR),
			}
		}
	}

	if len(req.Suppliers) > 1 {
		sourceTotal := decimal.Zero
		for _, src := range req.Sources {
			sourceTotal = sourceTotal.Add(src.Amount)
		}
		supplierTotal := decimal.Zero
		for _, sup := range req.Suppliers {
			supplierTotal = supplierTotal.Add(sup.Amount)
		}
		if supplierTotal.GreaterThan(sourceTotal) {
			return nil, nil, errs.ErrInsufficientTotalAllocation
		}
	}

	lines, err := planAllocation(req.Sources, req.Suppliers)
	if err != nil {
		return nil, nil, err
	}

	// Attach and vet the caller-assigned reference numbers before any
	// debit: the whole batch fails with zero partial commit.
	seen := make(map[string]bool, len(lines))
	for i := range lines {
		reference, ok := req.References[PairKey{VaultID: lines[i].VaultID, SupplierID: lines[i].SupplierID}]
		if !ok || reference == "" {
			return nil, nil, errs.ErrMissingOperationNumber
		}
		if !helpers.ValidReferenceNumber(reference) {
			return nil, nil, errs.ErrInvalidReferenceFormat
		}
		if seen[reference] {
			return nil, nil, errs.ErrDuplicateReference
		}
		seen[reference] = true

		exists, err := s.transactionRepo.ReferenceExists(ctx, reference)
		if err != nil {
			return nil, nil, err
		}
		if exists {
			return nil, nil, errs.ErrDuplicateReference
		}
		lines[i].Reference = reference
	}

	now := time.Now()
	batch := make([]repository.BatchLine, 0, len(lines))
	records := make([]*models.Transaction, 0, len(lines))
	for _, line := range lines {
		rate := line.Rate
		note := fmt.Sprintf("funded by vault %s", vaults[line.VaultID].Name)
		if req.Note != "" {
			note = note + "; " + req.Note
		}
		record := &models.Transaction{
			ID:              uuid.New().String(),
			ReferenceNumber: line.Reference,
			Type:            models.TypeTransfer,
			Kind:            models.KindBank,
			Amount:          line.Amount,
			SourceCurrency:  models.CurrencyIRR,
			DestCurrency:    models.CurrencyAED,
			Rate:            &rate,
			SourceType:      models.PartyVault,
			SourceID:        line.VaultID,
			DestType:        models.PartyCounterparty,
			DestID:          line.SupplierID,
			Status:          models.StatusPending,
			Note:            note,
			CreatedAt:       now,
			CreatedBy:       req.ActorID,
		}
		records = append(records, record)
		batch = append(batch, repository.BatchLine{
			Record: record,
			Debit: repository.BalanceEffect{
				Vault:    true,
				EntityID: line.VaultID,
				Currency: models.CurrencyIRR,
				Amount:   line.Amount,
				Debit:    true,
			},
		})
	}

	if err := s.transactionRepo.CreateBatch(ctx, batch); err != nil {
		return nil, nil, err
	}

	s.log.WithActorID(req.ActorID).
		WithField("lines", len(records)).
		Info("bank batch committed")
	return records, suppliers, nil
}

// planAllocation walks suppliers in caller order, drawing from each
// source's remaining earmark in caller order until the supplier is
// covered. The order is the caller's, deliberately: the operator decides
// which vault funds which supplier first.
func planAllocation(sources []BatchSource, suppliers []BatchSupplier) ([]AllocationLine, error) {
	remaining := make([]decimal.Decimal, len(sources))
	for i, src := range sources {
		remaining[i] = src.Amount
	}

	var lines []AllocationLine
	for _, sup := range suppliers {
		need := sup.Amount
		for i := range sources {
			if !need.GreaterThan(allocationEpsilon) {
				break
			}
			if !remaining[i].IsPositive() {
				continue
			}
			draw := decimal.Min(need, remaining[i])
			remaining[i] = remaining[i].Sub(draw)
			need = need.Sub(draw)
			lines = append(lines, AllocationLine{
				VaultID:    sources[i].VaultID,
				SupplierID: sup.SupplierID,
				Amount:     draw,
				Rate:       sup.Rate,
			})
		}
		if need.GreaterThan(allocationEpsilon) {
			return nil, &errs.UnderAllocatedSupplierError{
				SupplierID: sup.SupplierID,
				Shortfall:  need,
			}
		}
	}

	return lines, nil
}

func (s *batchService) notifySuppliers(records []*models.Transaction, suppliers map[uint64]*models.Counterparty) {
	// One message per supplier with its aggregated amount.
	totals := make(map[uint64]decimal.Decimal)
	rates := make(map[uint64]decimal.Decimal)
	var order []uint64
	for _, record := range records {
		if _, ok := totals[record.DestID]; !ok {
			order = append(order, record.DestID)
		}
		totals[record.DestID] = totals[record.DestID].Add(record.Amount)
		if record.Rate != nil {
			rates[record.DestID] = *record.Rate
		}
	}

	for _, supplierID := range order {
		supplier := suppliers[supplierID]
		if supplier == nil {
			continue
		}
		_, err := s.channel.SendConfirmation(context.Background(), ConfirmationPayload{
			Mobile:       supplier.Mobile,
			SupplierName: supplier.Name,
			Amount:       totals[supplierID],
			Rate:         rates[supplierID],
		})
		if err != nil {
			s.metrics.NotificationsSent.WithLabelValues("error").Inc()
			s.log.WithField("supplier_id", supplierID).
				WithError(err).
				Warn("supplier confirmation failed")
			continue
		}
		s.metrics.NotificationsSent.WithLabelValues("ok").Inc()
	}
}
