package inventory

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/warestock/backend/internal/domain/catalog"
	"github.com/warestock/backend/internal/domain/inventory"
	"github.com/warestock/backend/internal/domain/shared"
)

// InventoryService owns all ledger-mediated stock operations. Every mutation
// runs in a single transaction: the ledger append and the projection write
// commit together or not at all. The projection is never written without a
// matching ledger entry.
type InventoryService struct {
	scope         TransactionScope
	inventoryRepo inventory.InventoryRepository
	movementRepo  inventory.StockMovementRepository
	productRepo   catalog.ProductRepository
	activity      shared.ActivityRecorder
	logger        *zap.Logger
	validate      *validator.Validate
}

// NewInventoryService creates a new InventoryService
func NewInventoryService(
	scope TransactionScope,
	inventoryRepo inventory.InventoryRepository,
	movementRepo inventory.StockMovementRepository,
	productRepo catalog.ProductRepository,
	activity shared.ActivityRecorder,
	logger *zap.Logger,
) *InventoryService {
	if activity == nil {
		activity = shared.NoOpActivityRecorder{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InventoryService{
		scope:         scope,
		inventoryRepo: inventoryRepo,
		movementRepo:  movementRepo,
		productRepo:   productRepo,
		activity:      activity,
		logger:        logger,
		validate:      validator.New(),
	}
}

// AddStock receives stock into a warehouse at a cost. The quantity and unit
// cost arrive in the request's UOM and are converted to base units; the
// product's moving-average cost is recomputed in the same transaction.
func (s *InventoryService) AddStock(ctx context.Context, req AddStockRequest) (*MovementResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, shared.NewValidationError("invalid add stock request: %v", err)
	}
	if !req.Quantity.IsPositive() {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if !req.UnitCost.IsPositive() {
		return nil, shared.NewDomainError("INVALID_COST", "Unit cost must be positive")
	}

	var movement *inventory.StockMovement
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		product, err := repos.ProductRepo().FindByID(ctx, req.ProductID)
		if err != nil {
			return err
		}
		baseQty, err := product.ConvertToBase(req.Quantity, req.UOM)
		if err != nil {
			return err
		}
		baseCost, err := product.ConvertUnitCostToBase(req.UnitCost, req.UOM)
		if err != nil {
			return err
		}

		// cost basis is the product's stock across all warehouses, read
		// before this receipt is applied
		totalStock, err := repos.InventoryRepo().SumQuantityByProduct(ctx, req.ProductID)
		if err != nil {
			return err
		}

		inv, err := lockOrCreateProjection(ctx, repos, req.ProductID, req.WarehouseID)
		if err != nil {
			return err
		}

		movement, err = inventory.NewStockMovement(
			req.ProductID, req.WarehouseID,
			inventory.MovementTypeIn, inventory.DirectionIncrease,
			baseQty, req.Reason,
		)
		if err != nil {
			return err
		}
		if req.Reference != "" {
			movement.WithReference(inventory.ReferenceTypeReceiving, req.Reference)
		}
		if req.OperatorID != nil {
			movement.WithCreatedBy(*req.OperatorID)
		}
		if err := repos.MovementRepo().Create(ctx, movement); err != nil {
			return err
		}

		inv.Apply(baseQty)
		if err := repos.InventoryRepo().Save(ctx, inv); err != nil {
			return err
		}

		newAverage := inventory.ApplyCostedReceipt(totalStock, baseQty, baseCost, product.AverageCostPrice)
		if err := product.SetAverageCostPrice(newAverage); err != nil {
			return err
		}
		return repos.ProductRepo().Save(ctx, product)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("stock added",
		zap.String("product_id", req.ProductID.String()),
		zap.String("warehouse_id", req.WarehouseID.String()),
		zap.String("quantity", req.Quantity.String()),
		zap.String("uom", req.UOM))
	s.recordActivity(ctx, "stock.add", movement.ID.String(), req.OperatorID, map[string]interface{}{
		"product_id": req.ProductID.String(),
		"quantity":   req.Quantity.String(),
		"uom":        req.UOM,
	})

	resp := ToMovementResponse(movement)
	return &resp, nil
}

// DeductStock removes stock from a warehouse. Fails with an insufficient
// stock error, leaving all state untouched, when the warehouse cannot cover
// the requested quantity.
func (s *InventoryService) DeductStock(ctx context.Context, req DeductStockRequest) (*MovementResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, shared.NewValidationError("invalid deduct stock request: %v", err)
	}
	if !req.Quantity.IsPositive() {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}

	var movement *inventory.StockMovement
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		product, err := repos.ProductRepo().FindByID(ctx, req.ProductID)
		if err != nil {
			return err
		}
		baseQty, err := product.ConvertToBase(req.Quantity, req.UOM)
		if err != nil {
			return err
		}

		inv, err := repos.InventoryRepo().FindByProductAndWarehouseForUpdate(ctx, req.ProductID, req.WarehouseID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return shared.NewInsufficientStockError(product.Name, decimal.Zero, baseQty)
			}
			return err
		}
		if !inv.HasAtLeast(baseQty) {
			return shared.NewInsufficientStockError(product.Name, inv.Quantity, baseQty)
		}

		movement, err = inventory.NewStockMovement(
			req.ProductID, req.WarehouseID,
			inventory.MovementTypeOut, inventory.DirectionDecrease,
			baseQty, req.Reason,
		)
		if err != nil {
			return err
		}
		if req.Reference != "" {
			movement.WithReference(inventory.ReferenceTypeSale, req.Reference)
		}
		if req.OperatorID != nil {
			movement.WithCreatedBy(*req.OperatorID)
		}
		if err := repos.MovementRepo().Create(ctx, movement); err != nil {
			return err
		}

		inv.Apply(baseQty.Neg())
		return repos.InventoryRepo().Save(ctx, inv)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("stock deducted",
		zap.String("product_id", req.ProductID.String()),
		zap.String("warehouse_id", req.WarehouseID.String()),
		zap.String("quantity", req.Quantity.String()))
	s.recordActivity(ctx, "stock.deduct", movement.ID.String(), req.OperatorID, map[string]interface{}{
		"product_id": req.ProductID.String(),
		"quantity":   req.Quantity.String(),
	})

	resp := ToMovementResponse(movement)
	return &resp, nil
}

// TransferStock moves stock between two warehouses as one atomic pair of
// ledger entries. Either both sides commit or neither does.
func (s *InventoryService) TransferStock(ctx context.Context, req TransferStockRequest) ([]MovementResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, shared.NewValidationError("invalid transfer request: %v", err)
	}
	if !req.Quantity.IsPositive() {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if req.FromWarehouseID == req.ToWarehouseID {
		return nil, shared.NewDomainError("SAME_WAREHOUSE", "Source and destination warehouses must differ")
	}

	transferRef := uuid.New().String()
	var out, in *inventory.StockMovement
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		product, err := repos.ProductRepo().FindByID(ctx, req.ProductID)
		if err != nil {
			return err
		}
		baseQty, err := product.ConvertToBase(req.Quantity, req.UOM)
		if err != nil {
			return err
		}

		source, err := repos.InventoryRepo().FindByProductAndWarehouseForUpdate(ctx, req.ProductID, req.FromWarehouseID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return shared.NewInsufficientStockError(product.Name, decimal.Zero, baseQty)
			}
			return err
		}
		if !source.HasAtLeast(baseQty) {
			return shared.NewInsufficientStockError(product.Name, source.Quantity, baseQty)
		}
		dest, err := lockOrCreateProjection(ctx, repos, req.ProductID, req.ToWarehouseID)
		if err != nil {
			return err
		}

		out, err = inventory.NewStockMovement(
			req.ProductID, req.FromWarehouseID,
			inventory.MovementTypeTransfer, inventory.DirectionDecrease,
			baseQty, req.Reason,
		)
		if err != nil {
			return err
		}
		in, err = inventory.NewStockMovement(
			req.ProductID, req.ToWarehouseID,
			inventory.MovementTypeTransfer, inventory.DirectionIncrease,
			baseQty, req.Reason,
		)
		if err != nil {
			return err
		}
		out.WithReference(inventory.ReferenceTypeTransfer, transferRef)
		in.WithReference(inventory.ReferenceTypeTransfer, transferRef)
		if req.OperatorID != nil {
			out.WithCreatedBy(*req.OperatorID)
			in.WithCreatedBy(*req.OperatorID)
		}
		if err := repos.MovementRepo().CreateBatch(ctx, []*inventory.StockMovement{out, in}); err != nil {
			return err
		}

		source.Apply(baseQty.Neg())
		if err := repos.InventoryRepo().Save(ctx, source); err != nil {
			return err
		}
		dest.Apply(baseQty)
		return repos.InventoryRepo().Save(ctx, dest)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("stock transferred",
		zap.String("product_id", req.ProductID.String()),
		zap.String("from", req.FromWarehouseID.String()),
		zap.String("to", req.ToWarehouseID.String()),
		zap.String("quantity", req.Quantity.String()))
	s.recordActivity(ctx, "stock.transfer", transferRef, req.OperatorID, map[string]interface{}{
		"product_id": req.ProductID.String(),
		"quantity":   req.Quantity.String(),
	})

	return []MovementResponse{ToMovementResponse(out), ToMovementResponse(in)}, nil
}

// AdjustStock sets a product's stock in one warehouse to a counted quantity.
// The ledger records the signed difference as an ADJUSTMENT entry; a count
// matching the projection writes nothing.
func (s *InventoryService) AdjustStock(ctx context.Context, req AdjustStockRequest) (*StockLevelResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, shared.NewValidationError("invalid adjust stock request: %v", err)
	}
	if req.ActualQuantity.IsNegative() {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Actual quantity cannot be negative")
	}

	var result *inventory.Inventory
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		if _, err := repos.ProductRepo().FindByID(ctx, req.ProductID); err != nil {
			return err
		}
		inv, err := lockOrCreateProjection(ctx, repos, req.ProductID, req.WarehouseID)
		if err != nil {
			return err
		}

		delta := req.ActualQuantity.Sub(inv.Quantity)
		if delta.IsZero() {
			result = inv
			return nil
		}

		direction := inventory.DirectionIncrease
		if delta.IsNegative() {
			direction = inventory.DirectionDecrease
		}
		movement, err := inventory.NewStockMovement(
			req.ProductID, req.WarehouseID,
			inventory.MovementTypeAdjustment, direction,
			delta.Abs(), req.Reason,
		)
		if err != nil {
			return err
		}
		if req.OperatorID != nil {
			movement.WithCreatedBy(*req.OperatorID)
		}
		if err := repos.MovementRepo().Create(ctx, movement); err != nil {
			return err
		}

		inv.Apply(delta)
		if err := repos.InventoryRepo().Save(ctx, inv); err != nil {
			return err
		}
		result = inv
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("stock adjusted",
		zap.String("product_id", req.ProductID.String()),
		zap.String("warehouse_id", req.WarehouseID.String()),
		zap.String("actual_quantity", req.ActualQuantity.String()))
	s.recordActivity(ctx, "stock.adjust", req.ProductID.String(), req.OperatorID, map[string]interface{}{
		"warehouse_id":    req.WarehouseID.String(),
		"actual_quantity": req.ActualQuantity.String(),
		"reason":          req.Reason,
	})

	resp := ToStockLevelResponse(result)
	return &resp, nil
}

// GetStockLevel returns the projection for a product-warehouse pair.
// A missing row reads as zero.
func (s *InventoryService) GetStockLevel(ctx context.Context, productID, warehouseID uuid.UUID) (*StockLevelResponse, error) {
	inv, err := s.inventoryRepo.FindByProductAndWarehouse(ctx, productID, warehouseID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return &StockLevelResponse{ProductID: productID, WarehouseID: warehouseID, Quantity: decimal.Zero}, nil
		}
		return nil, err
	}
	resp := ToStockLevelResponse(inv)
	return &resp, nil
}

// GetTotalStock returns a product's stock summed across all warehouses
func (s *InventoryService) GetTotalStock(ctx context.Context, productID uuid.UUID) (decimal.Decimal, error) {
	return s.inventoryRepo.SumQuantityByProduct(ctx, productID)
}

// ListInventory returns projection rows matching the filter
func (s *InventoryService) ListInventory(ctx context.Context, filter shared.Filter) ([]StockLevelResponse, error) {
	rows, err := s.inventoryRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]StockLevelResponse, 0, len(rows))
	for i := range rows {
		out = append(out, ToStockLevelResponse(&rows[i]))
	}
	return out, nil
}

// ListMovements returns ledger entries matching the filter
func (s *InventoryService) ListMovements(ctx context.Context, filter MovementListFilter) ([]MovementResponse, error) {
	if err := s.validate.Struct(filter); err != nil {
		return nil, shared.NewValidationError("invalid movement filter: %v", err)
	}
	mf := inventory.MovementFilter{
		Filter:      shared.DefaultFilter(),
		ProductID:   filter.ProductID,
		WarehouseID: filter.WarehouseID,
		ReferenceID: filter.ReferenceID,
		StartDate:   filter.StartDate,
		EndDate:     filter.EndDate,
	}
	if filter.Page > 0 {
		mf.Page = filter.Page
	}
	if filter.PageSize > 0 {
		mf.PageSize = filter.PageSize
	}
	if filter.Type != "" {
		t := inventory.MovementType(filter.Type)
		mf.Type = &t
	}
	rows, err := s.movementRepo.FindAll(ctx, mf)
	if err != nil {
		return nil, err
	}
	out := make([]MovementResponse, 0, len(rows))
	for i := range rows {
		out = append(out, ToMovementResponse(&rows[i]))
	}
	return out, nil
}

// lockOrCreateProjection reads a projection row under a row lock, creating an
// empty row first when the pair has never moved stock.
func lockOrCreateProjection(ctx context.Context, repos TransactionalRepositories, productID, warehouseID uuid.UUID) (*inventory.Inventory, error) {
	inv, err := repos.InventoryRepo().FindByProductAndWarehouseForUpdate(ctx, productID, warehouseID)
	if err == nil {
		return inv, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}
	inv = inventory.NewInventory(productID, warehouseID)
	if err := repos.InventoryRepo().Save(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// applyStockDeltas applies signed base-unit deltas against one warehouse as
// ADJUSTMENT ledger entries inside the caller's transaction. All projection
// rows are locked in one batch read before any write. Negative deltas that
// the projection cannot cover fail the whole batch.
func applyStockDeltas(
	ctx context.Context,
	repos TransactionalRepositories,
	warehouseID uuid.UUID,
	deltas []StockDelta,
	reason string,
	referenceID string,
	operatorID *uuid.UUID,
) ([]*inventory.StockMovement, error) {
	productIDs := make([]uuid.UUID, 0, len(deltas))
	for _, d := range deltas {
		productIDs = append(productIDs, d.ProductID)
	}
	locked, err := repos.InventoryRepo().FindByProductsAndWarehouseForUpdate(ctx, productIDs, warehouseID)
	if err != nil {
		return nil, err
	}
	byProduct := make(map[uuid.UUID]*inventory.Inventory, len(locked))
	for i := range locked {
		byProduct[locked[i].ProductID] = &locked[i]
	}

	movements := make([]*inventory.StockMovement, 0, len(deltas))
	for _, d := range deltas {
		if d.Delta.IsZero() {
			continue
		}
		inv, ok := byProduct[d.ProductID]
		if !ok {
			inv = inventory.NewInventory(d.ProductID, warehouseID)
			if err := repos.InventoryRepo().Save(ctx, inv); err != nil {
				return nil, err
			}
			byProduct[d.ProductID] = inv
		}
		if d.Delta.IsNegative() && !inv.HasAtLeast(d.Delta.Neg()) {
			product, perr := repos.ProductRepo().FindByID(ctx, d.ProductID)
			name := d.ProductID.String()
			if perr == nil {
				name = product.Name
			}
			return nil, shared.NewInsufficientStockError(name, inv.Quantity, d.Delta.Neg())
		}

		direction := inventory.DirectionIncrease
		if d.Delta.IsNegative() {
			direction = inventory.DirectionDecrease
		}
		movement, err := inventory.NewStockMovement(
			d.ProductID, warehouseID,
			inventory.MovementTypeAdjustment, direction,
			d.Delta.Abs(), reason,
		)
		if err != nil {
			return nil, err
		}
		movement.WithReference(inventory.ReferenceTypeAdjustment, referenceID)
		if operatorID != nil {
			movement.WithCreatedBy(*operatorID)
		}
		movements = append(movements, movement)

		inv.Apply(d.Delta)
		if err := repos.InventoryRepo().Save(ctx, inv); err != nil {
			return nil, err
		}
	}
	if len(movements) > 0 {
		if err := repos.MovementRepo().CreateBatch(ctx, movements); err != nil {
			return nil, err
		}
	}
	return movements, nil
}

// recordActivity writes an activity entry without affecting the operation
func (s *InventoryService) recordActivity(ctx context.Context, action, entityID string, actorID *uuid.UUID, details map[string]interface{}) {
	entry := shared.ActivityEntry{
		Action:     action,
		EntityType: "inventory",
		EntityID:   entityID,
		Details:    details,
	}
	if actorID != nil {
		entry.ActorID = actorID.String()
	}
	s.activity.Record(ctx, entry)
}
