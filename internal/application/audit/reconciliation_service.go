package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/warestock/backend/internal/domain/inventory"
	"github.com/warestock/backend/internal/domain/shared"
)

// Tolerance is the absolute variance below which quantities are considered
// equal. Movements and projections are stored with four decimal places, so
// anything under 1e-4 is rounding noise.
var Tolerance = decimal.New(1, -4)

// replayPageSize bounds how many projection rows a replay loads per query
const replayPageSize = 500

// Discrepancy is one projection row whose quantity does not match the
// replayed ledger.
type Discrepancy struct {
	ProductID          uuid.UUID       `json:"product_id"`
	WarehouseID        uuid.UUID       `json:"warehouse_id"`
	SystemQuantity     decimal.Decimal `json:"system_quantity"`
	CalculatedQuantity decimal.Decimal `json:"calculated_quantity"`
	Variance           decimal.Decimal `json:"variance"`
}

// ReplayReport is the outcome of a full ledger replay
type ReplayReport struct {
	CheckedAt     time.Time     `json:"checked_at"`
	PairsChecked  int           `json:"pairs_checked"`
	Discrepancies []Discrepancy `json:"discrepancies"`
}

// Clean reports whether the replay found no discrepancies
func (r *ReplayReport) Clean() bool {
	return len(r.Discrepancies) == 0
}

// ItemVerification is the point-in-time check result for one adjustment item
type ItemVerification struct {
	ProductID        uuid.UUID       `json:"product_id"`
	FrozenActual     decimal.Decimal `json:"frozen_actual"`
	NetAfterPost     decimal.Decimal `json:"net_after_post"`
	ExpectedQuantity decimal.Decimal `json:"expected_quantity"`
	CurrentQuantity  decimal.Decimal `json:"current_quantity"`
	Variance         decimal.Decimal `json:"variance"`
	Matches          bool            `json:"matches"`
}

// AdjustmentVerification is the outcome of verifying one posted adjustment
type AdjustmentVerification struct {
	AdjustmentNumber string             `json:"adjustment_number"`
	PostedAt         time.Time          `json:"posted_at"`
	CheckedAt        time.Time          `json:"checked_at"`
	Items            []ItemVerification `json:"items"`
}

// Clean reports whether every item matched
func (v *AdjustmentVerification) Clean() bool {
	for _, item := range v.Items {
		if !item.Matches {
			return false
		}
	}
	return true
}

// ReconciliationService replays the movement ledger against the inventory
// projection and verifies posted adjustments against the live state. It is
// strictly read-only: discrepancies are reported, never corrected.
type ReconciliationService struct {
	inventoryRepo  inventory.InventoryRepository
	movementRepo   inventory.StockMovementRepository
	adjustmentRepo inventory.AdjustmentRepository
	logger         *zap.Logger
}

// NewReconciliationService creates a new ReconciliationService
func NewReconciliationService(
	inventoryRepo inventory.InventoryRepository,
	movementRepo inventory.StockMovementRepository,
	adjustmentRepo inventory.AdjustmentRepository,
	logger *zap.Logger,
) *ReconciliationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReconciliationService{
		inventoryRepo:  inventoryRepo,
		movementRepo:   movementRepo,
		adjustmentRepo: adjustmentRepo,
		logger:         logger,
	}
}

// ReplayAll recomputes every projection from the ledger and reports rows
// whose stored quantity differs from the replayed sum by more than the
// tolerance.
func (s *ReconciliationService) ReplayAll(ctx context.Context) (*ReplayReport, error) {
	report := &ReplayReport{CheckedAt: time.Now()}

	filter := shared.DefaultFilter()
	filter.PageSize = replayPageSize
	filter.OrderBy = "created_at"
	filter.OrderDir = "asc"

	for page := 1; ; page++ {
		filter.Page = page
		rows, err := s.inventoryRepo.FindAll(ctx, filter)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			break
		}
		for i := range rows {
			inv := &rows[i]
			calculated, err := s.movementRepo.SumSignedQuantity(ctx, inv.ProductID, inv.WarehouseID, nil, "")
			if err != nil {
				return nil, err
			}
			report.PairsChecked++
			variance := inv.Quantity.Sub(calculated)
			if variance.Abs().GreaterThan(Tolerance) {
				report.Discrepancies = append(report.Discrepancies, Discrepancy{
					ProductID:          inv.ProductID,
					WarehouseID:        inv.WarehouseID,
					SystemQuantity:     inv.Quantity,
					CalculatedQuantity: calculated,
					Variance:           variance,
				})
			}
		}
		if len(rows) < replayPageSize {
			break
		}
	}

	if !report.Clean() {
		s.logger.Warn("ledger replay found discrepancies",
			zap.Int("pairs_checked", report.PairsChecked),
			zap.Int("discrepancies", len(report.Discrepancies)))
	} else {
		s.logger.Info("ledger replay clean", zap.Int("pairs_checked", report.PairsChecked))
	}
	return report, nil
}

// VerifyAdjustment checks a posted adjustment against the live projection.
// For each item the expected quantity is the frozen actual quantity plus the
// net of all movements strictly after the posting time, excluding movements
// written by the adjustment itself.
func (s *ReconciliationService) VerifyAdjustment(ctx context.Context, id uuid.UUID) (*AdjustmentVerification, error) {
	adj, err := s.adjustmentRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !adj.IsPosted() || adj.PostedAt == nil {
		return nil, shared.NewDomainError("INVALID_STATE",
			"Adjustment "+adj.AdjustmentNumber+" is not posted, nothing to verify")
	}

	result := &AdjustmentVerification{
		AdjustmentNumber: adj.AdjustmentNumber,
		PostedAt:         *adj.PostedAt,
		CheckedAt:        time.Now(),
	}
	for _, item := range adj.Items {
		if item.ActualQuantity == nil {
			return nil, shared.NewDomainError("SNAPSHOT_MISSING",
				"Adjustment "+adj.AdjustmentNumber+" has items without frozen snapshots")
		}
		netAfter, err := s.movementRepo.SumSignedQuantity(ctx, item.ProductID, adj.WarehouseID, adj.PostedAt, adj.AdjustmentNumber)
		if err != nil {
			return nil, err
		}

		current := decimal.Zero
		inv, err := s.inventoryRepo.FindByProductAndWarehouse(ctx, item.ProductID, adj.WarehouseID)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return nil, err
		}
		if inv != nil {
			current = inv.Quantity
		}

		expected := item.ActualQuantity.Add(netAfter)
		variance := current.Sub(expected)
		result.Items = append(result.Items, ItemVerification{
			ProductID:        item.ProductID,
			FrozenActual:     *item.ActualQuantity,
			NetAfterPost:     netAfter,
			ExpectedQuantity: expected,
			CurrentQuantity:  current,
			Variance:         variance,
			Matches:          variance.Abs().LessThanOrEqual(Tolerance),
		})
	}

	if !result.Clean() {
		s.logger.Warn("adjustment verification mismatch",
			zap.String("number", adj.AdjustmentNumber))
	}
	return result, nil
}
