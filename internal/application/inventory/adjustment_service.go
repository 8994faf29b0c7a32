package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/warestock/backend/internal/domain/catalog"
	"github.com/warestock/backend/internal/domain/inventory"
	"github.com/warestock/backend/internal/domain/shared"
)

// AdjustmentService drives the inventory adjustment workflow: drafts are
// created and edited freely, posting freezes the counted quantities and
// writes the ledger exactly once, reversal posts a compensating adjustment
// derived from the frozen snapshot.
type AdjustmentService struct {
	scope          TransactionScope
	adjustmentRepo inventory.AdjustmentRepository
	activity       shared.ActivityRecorder
	logger         *zap.Logger
	validate       *validator.Validate
}

// NewAdjustmentService creates a new AdjustmentService
func NewAdjustmentService(
	scope TransactionScope,
	adjustmentRepo inventory.AdjustmentRepository,
	activity shared.ActivityRecorder,
	logger *zap.Logger,
) *AdjustmentService {
	if activity == nil {
		activity = shared.NoOpActivityRecorder{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdjustmentService{
		scope:          scope,
		adjustmentRepo: adjustmentRepo,
		activity:       activity,
		logger:         logger,
		validate:       validator.New(),
	}
}

// Create creates a draft adjustment. The adjustment number is generated
// inside the creating transaction so concurrent creates cannot collide.
func (s *AdjustmentService) Create(ctx context.Context, req CreateAdjustmentRequest) (*AdjustmentResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, shared.NewValidationError("invalid create adjustment request: %v", err)
	}

	var adj *inventory.InventoryAdjustment
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		items := toDomainItems(req.Items)
		if err := s.validateItemsAgainstCatalog(ctx, repos, items); err != nil {
			return err
		}

		number, err := repos.AdjustmentRepo().NextAdjustmentNumber(ctx, time.Now())
		if err != nil {
			return err
		}
		adj, err = inventory.NewInventoryAdjustment(number, req.WarehouseID, req.Reason, req.AdjustmentDate, items)
		if err != nil {
			return err
		}
		adj.BranchID = req.BranchID
		adj.ReferenceNumber = req.ReferenceNumber
		adj.CreatedByID = req.CreatedByID
		return repos.AdjustmentRepo().Save(ctx, adj)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("adjustment created",
		zap.String("number", adj.AdjustmentNumber),
		zap.String("warehouse_id", adj.WarehouseID.String()),
		zap.Int("items", len(adj.Items)))
	s.recordActivity(ctx, "adjustment.create", adj, req.CreatedByID)

	resp := ToAdjustmentResponse(adj)
	return &resp, nil
}

// Update rewrites a draft adjustment. Items are replaced wholesale; posted
// and cancelled adjustments reject the update.
func (s *AdjustmentService) Update(ctx context.Context, id uuid.UUID, req UpdateAdjustmentRequest) (*AdjustmentResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, shared.NewValidationError("invalid update adjustment request: %v", err)
	}

	var adj *inventory.InventoryAdjustment
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		adj, err = repos.AdjustmentRepo().FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		items := toDomainItems(req.Items)
		if err := s.validateItemsAgainstCatalog(ctx, repos, items); err != nil {
			return err
		}
		if err := adj.Update(req.Reason, req.ReferenceNumber, req.AdjustmentDate, items); err != nil {
			return err
		}
		return repos.AdjustmentRepo().Save(ctx, adj)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("adjustment updated", zap.String("number", adj.AdjustmentNumber))
	s.recordActivity(ctx, "adjustment.update", adj, nil)

	resp := ToAdjustmentResponse(adj)
	return &resp, nil
}

// Cancel cancels a draft adjustment with no ledger effect
func (s *AdjustmentService) Cancel(ctx context.Context, id uuid.UUID) (*AdjustmentResponse, error) {
	var adj *inventory.InventoryAdjustment
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		adj, err = repos.AdjustmentRepo().FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := adj.Cancel(); err != nil {
			return err
		}
		return repos.AdjustmentRepo().Save(ctx, adj)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("adjustment cancelled", zap.String("number", adj.AdjustmentNumber))
	s.recordActivity(ctx, "adjustment.cancel", adj, nil)

	resp := ToAdjustmentResponse(adj)
	return &resp, nil
}

// Post applies a draft adjustment to the ledger exactly once. The adjustment
// row itself is read under a lock, so a concurrent post of the same draft
// blocks until the first commits and then fails the state check. Projections
// are locked in one batch, counted quantities are frozen on the items, and
// every resulting movement is tagged with the adjustment number.
func (s *AdjustmentService) Post(ctx context.Context, id uuid.UUID, postedBy *uuid.UUID) (*AdjustmentResponse, error) {
	var adj *inventory.InventoryAdjustment
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		adj, err = repos.AdjustmentRepo().FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		return s.postLocked(ctx, repos, adj, postedBy)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("adjustment posted",
		zap.String("number", adj.AdjustmentNumber),
		zap.Int("items", len(adj.Items)))
	s.recordActivity(ctx, "adjustment.post", adj, postedBy)

	resp := ToAdjustmentResponse(adj)
	return &resp, nil
}

// Copy clones an adjustment into a fresh draft with a new number. Snapshots
// and posting metadata never carry over, and the ledger is untouched.
func (s *AdjustmentService) Copy(ctx context.Context, id uuid.UUID, createdBy *uuid.UUID) (*AdjustmentResponse, error) {
	var draft *inventory.InventoryAdjustment
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		original, err := repos.AdjustmentRepo().FindByID(ctx, id)
		if err != nil {
			return err
		}
		number, err := repos.AdjustmentRepo().NextAdjustmentNumber(ctx, time.Now())
		if err != nil {
			return err
		}
		draft, err = original.CopyAsDraft(number)
		if err != nil {
			return err
		}
		draft.CreatedByID = createdBy
		return repos.AdjustmentRepo().Save(ctx, draft)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("adjustment copied", zap.String("number", draft.AdjustmentNumber))
	s.recordActivity(ctx, "adjustment.copy", draft, createdBy)

	resp := ToAdjustmentResponse(draft)
	return &resp, nil
}

// Reverse derives a compensating adjustment from a posted adjustment's
// frozen snapshot and posts it immediately. The reversal references the
// original adjustment number and restores every affected projection to its
// pre-adjustment quantity, provided no later movements intervened.
func (s *AdjustmentService) Reverse(ctx context.Context, id uuid.UUID, postedBy *uuid.UUID) (*AdjustmentResponse, error) {
	var reversal *inventory.InventoryAdjustment
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		original, err := repos.AdjustmentRepo().FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		items, err := original.ReversalItems(func(productID uuid.UUID) (string, error) {
			product, err := repos.ProductRepo().FindByID(ctx, productID)
			if err != nil {
				return "", err
			}
			return product.BaseUOM, nil
		})
		if err != nil {
			return err
		}

		number, err := repos.AdjustmentRepo().NextAdjustmentNumber(ctx, time.Now())
		if err != nil {
			return err
		}
		reversal, err = inventory.NewInventoryAdjustment(number, original.WarehouseID,
			"Reversal of "+original.AdjustmentNumber, time.Now(), items)
		if err != nil {
			return err
		}
		reversal.BranchID = original.BranchID
		reversal.ReferenceNumber = original.AdjustmentNumber
		reversal.CreatedByID = postedBy
		return s.postLocked(ctx, repos, reversal, postedBy)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("adjustment reversed",
		zap.String("number", reversal.AdjustmentNumber),
		zap.String("reverses", reversal.ReferenceNumber))
	s.recordActivity(ctx, "adjustment.reverse", reversal, postedBy)

	resp := ToAdjustmentResponse(reversal)
	return &resp, nil
}

// FindByID returns one adjustment with its items
func (s *AdjustmentService) FindByID(ctx context.Context, id uuid.UUID) (*AdjustmentResponse, error) {
	adj, err := s.adjustmentRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToAdjustmentResponse(adj)
	return &resp, nil
}

// FindAll returns a page of adjustments matching the filter
func (s *AdjustmentService) FindAll(ctx context.Context, filter AdjustmentListFilter) (*shared.Paginated[AdjustmentResponse], error) {
	if err := s.validate.Struct(filter); err != nil {
		return nil, shared.NewValidationError("invalid adjustment filter: %v", err)
	}

	domainFilter := inventory.AdjustmentFilter{
		Filter:      shared.DefaultFilter(),
		WarehouseID: filter.WarehouseID,
		BranchID:    filter.BranchID,
		StartDate:   filter.StartDate,
		EndDate:     filter.EndDate,
	}
	domainFilter.Search = filter.Search
	if filter.Page > 0 {
		domainFilter.Page = filter.Page
	}
	if filter.PageSize > 0 {
		domainFilter.PageSize = filter.PageSize
	}
	if filter.OrderBy != "" {
		domainFilter.OrderBy = filter.OrderBy
	}
	if filter.OrderDir != "" {
		domainFilter.OrderDir = filter.OrderDir
	}
	if filter.Status != "" {
		status := inventory.AdjustmentStatus(filter.Status)
		domainFilter.Status = &status
	}

	rows, err := s.adjustmentRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, err
	}
	total, err := s.adjustmentRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, err
	}

	items := make([]AdjustmentResponse, 0, len(rows))
	for i := range rows {
		items = append(items, ToAdjustmentResponse(&rows[i]))
	}
	page := shared.NewPaginated(items, total, domainFilter.Page, domainFilter.PageSize)
	return &page, nil
}

// postLocked freezes snapshots and applies the adjustment inside the
// caller's transaction. The adjustment must still be a draft.
func (s *AdjustmentService) postLocked(ctx context.Context, repos TransactionalRepositories, adj *inventory.InventoryAdjustment, postedBy *uuid.UUID) error {
	if !adj.IsDraft() {
		return shared.NewDomainError("INVALID_STATE",
			"Cannot post adjustment "+adj.AdjustmentNumber+" in status "+string(adj.Status))
	}

	productIDs := make([]uuid.UUID, 0, len(adj.Items))
	for _, item := range adj.Items {
		productIDs = append(productIDs, item.ProductID)
	}
	products, err := repos.ProductRepo().FindByIDs(ctx, productIDs)
	if err != nil {
		return err
	}
	productByID := make(map[uuid.UUID]*catalog.Product, len(products))
	for i := range products {
		productByID[products[i].ID] = &products[i]
	}

	locked, err := repos.InventoryRepo().FindByProductsAndWarehouseForUpdate(ctx, productIDs, adj.WarehouseID)
	if err != nil {
		return err
	}
	currentByProduct := make(map[uuid.UUID]decimal.Decimal, len(locked))
	for i := range locked {
		currentByProduct[locked[i].ProductID] = locked[i].Quantity
	}

	deltas := make([]StockDelta, 0, len(adj.Items))
	for i := range adj.Items {
		item := &adj.Items[i]
		product, ok := productByID[item.ProductID]
		if !ok {
			return shared.NewDomainError("NOT_FOUND", "Product "+item.ProductID.String()+" not found")
		}
		baseQty, err := product.ConvertToBase(item.Quantity, item.UOM)
		if err != nil {
			return err
		}
		current := currentByProduct[item.ProductID]

		var delta decimal.Decimal
		if item.Type == inventory.AdjustmentItemAbsolute {
			delta = baseQty.Sub(current)
		} else {
			delta = baseQty
		}
		actual := current.Add(delta)
		if err := item.FreezeSnapshot(current, actual); err != nil {
			return err
		}
		// later items for the same product start from this item's result
		currentByProduct[item.ProductID] = actual
		deltas = append(deltas, StockDelta{ProductID: item.ProductID, Delta: delta})
	}

	if _, err := applyStockDeltas(ctx, repos, adj.WarehouseID, deltas, adj.Reason, adj.AdjustmentNumber, postedBy); err != nil {
		return err
	}
	if err := adj.MarkPosted(postedBy, time.Now()); err != nil {
		return err
	}
	return repos.AdjustmentRepo().Save(ctx, adj)
}

// validateItemsAgainstCatalog checks that every item's product exists and
// its UOM resolves before a draft is stored
func (s *AdjustmentService) validateItemsAgainstCatalog(ctx context.Context, repos TransactionalRepositories, items []inventory.InventoryAdjustmentItem) error {
	for i := range items {
		if err := items[i].Validate(); err != nil {
			return err
		}
		product, err := repos.ProductRepo().FindByID(ctx, items[i].ProductID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return shared.NewDomainError("NOT_FOUND", "Product "+items[i].ProductID.String()+" not found")
			}
			return err
		}
		if _, err := product.ResolveUOM(items[i].UOM); err != nil {
			return err
		}
	}
	return nil
}

// recordActivity writes an activity entry without affecting the operation
func (s *AdjustmentService) recordActivity(ctx context.Context, action string, adj *inventory.InventoryAdjustment, actorID *uuid.UUID) {
	entry := shared.ActivityEntry{
		Action:     action,
		EntityType: "inventory_adjustment",
		EntityID:   adj.ID.String(),
		Details: map[string]interface{}{
			"adjustment_number": adj.AdjustmentNumber,
			"status":            string(adj.Status),
		},
	}
	if actorID != nil {
		entry.ActorID = actorID.String()
	}
	s.activity.Record(ctx, entry)
}
