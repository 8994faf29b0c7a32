package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warestock/backend/internal/domain/shared"
)

// InventoryRepository defines the interface for inventory projection persistence
type InventoryRepository interface {
	// FindByID finds a projection row by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Inventory, error)

	// FindByProductAndWarehouse finds the projection for a product-warehouse pair
	FindByProductAndWarehouse(ctx context.Context, productID, warehouseID uuid.UUID) (*Inventory, error)

	// FindByProductAndWarehouseForUpdate reads the projection with a row lock.
	// Only meaningful inside a transaction.
	FindByProductAndWarehouseForUpdate(ctx context.Context, productID, warehouseID uuid.UUID) (*Inventory, error)

	// FindByProductsAndWarehouseForUpdate locks all projection rows of the
	// given products in one warehouse in a single query
	FindByProductsAndWarehouseForUpdate(ctx context.Context, productIDs []uuid.UUID, warehouseID uuid.UUID) ([]Inventory, error)

	// FindByProduct finds projections for a product across all warehouses
	FindByProduct(ctx context.Context, productID uuid.UUID) ([]Inventory, error)

	// FindAll finds all projection rows matching the filter
	FindAll(ctx context.Context, filter shared.Filter) ([]Inventory, error)

	// SumQuantityByProduct sums the product's stock across all warehouses
	SumQuantityByProduct(ctx context.Context, productID uuid.UUID) (decimal.Decimal, error)

	// Save creates or updates a projection row
	Save(ctx context.Context, inv *Inventory) error

	// Count counts projection rows matching the filter
	Count(ctx context.Context, filter shared.Filter) (int64, error)
}

// StockMovementRepository defines the interface for the append-only ledger.
// There is deliberately no update or delete operation.
type StockMovementRepository interface {
	// FindByID finds a movement by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*StockMovement, error)

	// FindAll finds movements matching the filter
	FindAll(ctx context.Context, filter MovementFilter) ([]StockMovement, error)

	// FindByProductAndWarehouse finds all movements for a product-warehouse
	// pair ordered by creation time
	FindByProductAndWarehouse(ctx context.Context, productID, warehouseID uuid.UUID) ([]StockMovement, error)

	// FindByReference finds movements tagged with a source document
	FindByReference(ctx context.Context, refType ReferenceType, refID string) ([]StockMovement, error)

	// Create appends a movement to the ledger
	Create(ctx context.Context, movement *StockMovement) error

	// CreateBatch appends multiple movements to the ledger
	CreateBatch(ctx context.Context, movements []*StockMovement) error

	// SumSignedQuantity sums signed quantities for a product-warehouse pair,
	// optionally restricted to movements strictly after a point in time and
	// excluding a reference ID
	SumSignedQuantity(ctx context.Context, productID, warehouseID uuid.UUID, after *time.Time, excludeRefID string) (decimal.Decimal, error)

	// Count counts movements matching the filter
	Count(ctx context.Context, filter MovementFilter) (int64, error)
}

// MovementFilter extends shared.Filter with ledger-specific filters
type MovementFilter struct {
	shared.Filter
	ProductID   *uuid.UUID
	WarehouseID *uuid.UUID
	Type        *MovementType
	Direction   *MovementDirection
	ReferenceID string
	StartDate   *time.Time
	EndDate     *time.Time
}

// AdjustmentRepository defines the interface for inventory adjustment persistence
type AdjustmentRepository interface {
	// FindByID finds an adjustment with its items by ID
	FindByID(ctx context.Context, id uuid.UUID) (*InventoryAdjustment, error)

	// FindByIDForUpdate reads an adjustment with its items under a row lock
	// so concurrent status transitions serialize. Only meaningful inside a
	// transaction.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*InventoryAdjustment, error)

	// FindByNumber finds an adjustment by its adjustment number
	FindByNumber(ctx context.Context, number string) (*InventoryAdjustment, error)

	// FindAll finds adjustments matching the filter
	FindAll(ctx context.Context, filter AdjustmentFilter) ([]InventoryAdjustment, error)

	// Save creates or updates an adjustment together with its items.
	// Replaced items are removed from storage.
	Save(ctx context.Context, adjustment *InventoryAdjustment) error

	// Count counts adjustments matching the filter
	Count(ctx context.Context, filter AdjustmentFilter) (int64, error)

	// NextAdjustmentNumber generates the next number in the ADJ-YYYYMMDD-NNNN
	// sequence for the given date. Must be called inside the creating
	// transaction so concurrent creates cannot collide.
	NextAdjustmentNumber(ctx context.Context, date time.Time) (string, error)
}

// AdjustmentFilter extends shared.Filter with adjustment-specific filters
type AdjustmentFilter struct {
	shared.Filter
	WarehouseID *uuid.UUID
	BranchID    *uuid.UUID
	Status      *AdjustmentStatus
	StartDate   *time.Time
	EndDate     *time.Time
}
