package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warestock/backend/internal/domain/inventory"
)

// AddStockRequest represents a costed stock receipt. Quantity and UnitCost
// are expressed in the given UOM and converted to base units before hitting
// the ledger.
type AddStockRequest struct {
	ProductID   uuid.UUID       `json:"product_id" validate:"required"`
	WarehouseID uuid.UUID       `json:"warehouse_id" validate:"required"`
	Quantity    decimal.Decimal `json:"quantity" validate:"required"`
	UOM         string          `json:"uom" validate:"required"`
	UnitCost    decimal.Decimal `json:"unit_cost" validate:"required"`
	Reason      string          `json:"reason" validate:"omitempty,max=500"`
	Reference   string          `json:"reference"`
	OperatorID  *uuid.UUID      `json:"operator_id"`
}

// DeductStockRequest represents a stock deduction
type DeductStockRequest struct {
	ProductID   uuid.UUID       `json:"product_id" validate:"required"`
	WarehouseID uuid.UUID       `json:"warehouse_id" validate:"required"`
	Quantity    decimal.Decimal `json:"quantity" validate:"required"`
	UOM         string          `json:"uom" validate:"required"`
	Reason      string          `json:"reason" validate:"omitempty,max=500"`
	Reference   string          `json:"reference"`
	OperatorID  *uuid.UUID      `json:"operator_id"`
}

// TransferStockRequest represents a transfer between two warehouses
type TransferStockRequest struct {
	ProductID       uuid.UUID       `json:"product_id" validate:"required"`
	FromWarehouseID uuid.UUID       `json:"from_warehouse_id" validate:"required"`
	ToWarehouseID   uuid.UUID       `json:"to_warehouse_id" validate:"required"`
	Quantity        decimal.Decimal `json:"quantity" validate:"required"`
	UOM             string          `json:"uom" validate:"required"`
	Reason          string          `json:"reason" validate:"omitempty,max=500"`
	OperatorID      *uuid.UUID      `json:"operator_id"`
}

// AdjustStockRequest sets a product's stock in one warehouse to a counted
// quantity, in base units. The ledger records the signed difference.
type AdjustStockRequest struct {
	ProductID      uuid.UUID       `json:"product_id" validate:"required"`
	WarehouseID    uuid.UUID       `json:"warehouse_id" validate:"required"`
	ActualQuantity decimal.Decimal `json:"actual_quantity"`
	Reason         string          `json:"reason" validate:"required,min=1,max=500"`
	OperatorID     *uuid.UUID      `json:"operator_id"`
}

// StockDelta is one line of a batch mutation: a signed change in base units
// applied to a product's projection.
type StockDelta struct {
	ProductID uuid.UUID
	Delta     decimal.Decimal
}

// AdjustmentItemRequest represents one line of an adjustment
type AdjustmentItemRequest struct {
	ProductID uuid.UUID       `json:"product_id" validate:"required"`
	Type      string          `json:"type" validate:"required,oneof=RELATIVE ABSOLUTE"`
	Quantity  decimal.Decimal `json:"quantity"`
	UOM       string          `json:"uom" validate:"required"`
}

// CreateAdjustmentRequest represents a request to create a draft adjustment
type CreateAdjustmentRequest struct {
	WarehouseID     uuid.UUID               `json:"warehouse_id" validate:"required"`
	BranchID        *uuid.UUID              `json:"branch_id"`
	Reason          string                  `json:"reason" validate:"required,min=1,max=500"`
	ReferenceNumber string                  `json:"reference_number" validate:"omitempty,max=100"`
	AdjustmentDate  time.Time               `json:"adjustment_date"`
	CreatedByID     *uuid.UUID              `json:"created_by_id"`
	Items           []AdjustmentItemRequest `json:"items" validate:"required,min=1,dive"`
}

// UpdateAdjustmentRequest rewrites a draft adjustment. Items replace the
// existing lines wholesale.
type UpdateAdjustmentRequest struct {
	Reason          string                  `json:"reason" validate:"required,min=1,max=500"`
	ReferenceNumber string                  `json:"reference_number" validate:"omitempty,max=100"`
	AdjustmentDate  time.Time               `json:"adjustment_date"`
	Items           []AdjustmentItemRequest `json:"items" validate:"required,min=1,dive"`
}

// AdjustmentListFilter represents filter options for adjustment lists
type AdjustmentListFilter struct {
	WarehouseID *uuid.UUID `json:"warehouse_id"`
	BranchID    *uuid.UUID `json:"branch_id"`
	Status      string     `json:"status" validate:"omitempty,oneof=DRAFT POSTED CANCELLED"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
	Search      string     `json:"search"`
	Page        int        `json:"page" validate:"omitempty,min=1"`
	PageSize    int        `json:"page_size" validate:"omitempty,min=1,max=100"`
	OrderBy     string     `json:"order_by"`
	OrderDir    string     `json:"order_dir" validate:"omitempty,oneof=asc desc"`
}

// MovementListFilter represents filter options for ledger reads
type MovementListFilter struct {
	ProductID   *uuid.UUID `json:"product_id"`
	WarehouseID *uuid.UUID `json:"warehouse_id"`
	Type        string     `json:"type" validate:"omitempty,oneof=IN OUT ADJUSTMENT TRANSFER"`
	ReferenceID string     `json:"reference_id"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
	Page        int        `json:"page" validate:"omitempty,min=1"`
	PageSize    int        `json:"page_size" validate:"omitempty,min=1,max=100"`
}

// StockLevelResponse represents the projection for one product-warehouse pair
type StockLevelResponse struct {
	ProductID   uuid.UUID       `json:"product_id"`
	WarehouseID uuid.UUID       `json:"warehouse_id"`
	Quantity    decimal.Decimal `json:"quantity"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// MovementResponse represents a ledger entry in responses
type MovementResponse struct {
	ID             uuid.UUID       `json:"id"`
	ProductID      uuid.UUID       `json:"product_id"`
	WarehouseID    uuid.UUID       `json:"warehouse_id"`
	Type           string          `json:"type"`
	Direction      string          `json:"direction"`
	Quantity       decimal.Decimal `json:"quantity"`
	SignedQuantity decimal.Decimal `json:"signed_quantity"`
	Reason         string          `json:"reason,omitempty"`
	ReferenceID    string          `json:"reference_id,omitempty"`
	ReferenceType  string          `json:"reference_type,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// AdjustmentItemResponse represents an adjustment line in responses
type AdjustmentItemResponse struct {
	ID             uuid.UUID        `json:"id"`
	ProductID      uuid.UUID        `json:"product_id"`
	Type           string           `json:"type"`
	Quantity       decimal.Decimal  `json:"quantity"`
	UOM            string           `json:"uom"`
	SystemQuantity *decimal.Decimal `json:"system_quantity,omitempty"`
	ActualQuantity *decimal.Decimal `json:"actual_quantity,omitempty"`
}

// AdjustmentResponse represents an adjustment in responses
type AdjustmentResponse struct {
	ID               uuid.UUID                `json:"id"`
	AdjustmentNumber string                   `json:"adjustment_number"`
	WarehouseID      uuid.UUID                `json:"warehouse_id"`
	BranchID         *uuid.UUID               `json:"branch_id,omitempty"`
	Status           string                   `json:"status"`
	Reason           string                   `json:"reason"`
	ReferenceNumber  string                   `json:"reference_number,omitempty"`
	AdjustmentDate   time.Time                `json:"adjustment_date"`
	CreatedByID      *uuid.UUID               `json:"created_by_id,omitempty"`
	PostedByID       *uuid.UUID               `json:"posted_by_id,omitempty"`
	PostedAt         *time.Time               `json:"posted_at,omitempty"`
	Items            []AdjustmentItemResponse `json:"items"`
	CreatedAt        time.Time                `json:"created_at"`
	UpdatedAt        time.Time                `json:"updated_at"`
}

// ToMovementResponse converts a ledger entry to its response DTO
func ToMovementResponse(m *inventory.StockMovement) MovementResponse {
	return MovementResponse{
		ID:             m.ID,
		ProductID:      m.ProductID,
		WarehouseID:    m.WarehouseID,
		Type:           string(m.Type),
		Direction:      string(m.Direction),
		Quantity:       m.Quantity,
		SignedQuantity: m.SignedQuantity(),
		Reason:         m.Reason,
		ReferenceID:    m.ReferenceID,
		ReferenceType:  string(m.ReferenceType),
		CreatedAt:      m.CreatedAt,
	}
}

// ToStockLevelResponse converts a projection row to its response DTO
func ToStockLevelResponse(inv *inventory.Inventory) StockLevelResponse {
	return StockLevelResponse{
		ProductID:   inv.ProductID,
		WarehouseID: inv.WarehouseID,
		Quantity:    inv.Quantity,
		UpdatedAt:   inv.UpdatedAt,
	}
}

// ToAdjustmentResponse converts an adjustment aggregate to its response DTO
func ToAdjustmentResponse(adj *inventory.InventoryAdjustment) AdjustmentResponse {
	items := make([]AdjustmentItemResponse, 0, len(adj.Items))
	for _, item := range adj.Items {
		items = append(items, AdjustmentItemResponse{
			ID:             item.ID,
			ProductID:      item.ProductID,
			Type:           string(item.Type),
			Quantity:       item.Quantity,
			UOM:            item.UOM,
			SystemQuantity: item.SystemQuantity,
			ActualQuantity: item.ActualQuantity,
		})
	}
	return AdjustmentResponse{
		ID:               adj.ID,
		AdjustmentNumber: adj.AdjustmentNumber,
		WarehouseID:      adj.WarehouseID,
		BranchID:         adj.BranchID,
		Status:           string(adj.Status),
		Reason:           adj.Reason,
		ReferenceNumber:  adj.ReferenceNumber,
		AdjustmentDate:   adj.AdjustmentDate,
		CreatedByID:      adj.CreatedByID,
		PostedByID:       adj.PostedByID,
		PostedAt:         adj.PostedAt,
		Items:            items,
		CreatedAt:        adj.CreatedAt,
		UpdatedAt:        adj.UpdatedAt,
	}
}

// toDomainItems converts request lines to domain items
func toDomainItems(reqs []AdjustmentItemRequest) []inventory.InventoryAdjustmentItem {
	items := make([]inventory.InventoryAdjustmentItem, 0, len(reqs))
	for _, r := range reqs {
		items = append(items, inventory.InventoryAdjustmentItem{
			ProductID: r.ProductID,
			Type:      inventory.AdjustmentItemType(r.Type),
			Quantity:  r.Quantity,
			UOM:       r.UOM,
		})
	}
	return items
}
