package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warestock/backend/internal/domain/shared"
)

// Inventory is the stock projection for one product in one warehouse.
// It is a derived view of the stock movement ledger: at any point the
// quantity must equal the signed sum of all movements for the same
// (product, warehouse) pair. It is never mutated directly; every change
// goes through a ledger-mediated operation.
type Inventory struct {
	shared.BaseEntity
	ProductID   uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_inventory_product_warehouse,priority:1"`
	WarehouseID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_inventory_product_warehouse,priority:2"`
	Quantity    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"` // base UOM, may be negative only transiently in audits
}

// TableName returns the table name for GORM
func (Inventory) TableName() string {
	return "inventories"
}

// NewInventory creates an empty projection row for a product-warehouse pair
func NewInventory(productID, warehouseID uuid.UUID) *Inventory {
	return &Inventory{
		BaseEntity:  shared.NewBaseEntity(),
		ProductID:   productID,
		WarehouseID: warehouseID,
		Quantity:    decimal.Zero,
	}
}

// Apply moves the projection by a signed delta
func (i *Inventory) Apply(delta decimal.Decimal) {
	i.Quantity = i.Quantity.Add(delta)
	i.UpdatedAt = time.Now()
}

// HasAtLeast reports whether the projection can cover a deduction
func (i *Inventory) HasAtLeast(quantity decimal.Decimal) bool {
	return i.Quantity.GreaterThanOrEqual(quantity)
}
