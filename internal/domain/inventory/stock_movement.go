package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warestock/backend/internal/domain/shared"
)

// MovementType classifies a stock movement
type MovementType string

const (
	MovementTypeIn         MovementType = "IN"
	MovementTypeOut        MovementType = "OUT"
	MovementTypeAdjustment MovementType = "ADJUSTMENT"
	MovementTypeTransfer   MovementType = "TRANSFER"
)

// IsValid checks if the movement type is valid
func (t MovementType) IsValid() bool {
	switch t {
	case MovementTypeIn, MovementTypeOut, MovementTypeAdjustment, MovementTypeTransfer:
		return true
	default:
		return false
	}
}

// MovementDirection tells which way a movement moves the projection.
// Direction is always explicit on the row; it is never inferred from the
// movement type or reason text.
type MovementDirection string

const (
	DirectionIncrease MovementDirection = "INCREASE"
	DirectionDecrease MovementDirection = "DECREASE"
)

// IsValid checks if the direction is valid
func (d MovementDirection) IsValid() bool {
	return d == DirectionIncrease || d == DirectionDecrease
}

// ReferenceType tags the source document of a movement
type ReferenceType string

const (
	ReferenceTypeAdjustment ReferenceType = "ADJUSTMENT"
	ReferenceTypeTransfer   ReferenceType = "TRANSFER"
	ReferenceTypeReceiving  ReferenceType = "RECEIVING"
	ReferenceTypeSale       ReferenceType = "SALE"
	ReferenceTypeManual     ReferenceType = "MANUAL"
)

// StockMovement is one append-only ledger entry. Movements are immutable
// once written: no update or delete path exists. Quantity is always a
// positive magnitude in base UOM; the sign comes from Direction.
type StockMovement struct {
	ID            uuid.UUID         `gorm:"type:uuid;primaryKey"`
	ProductID     uuid.UUID         `gorm:"type:uuid;not null;index:idx_movement_product_warehouse,priority:1"`
	WarehouseID   uuid.UUID         `gorm:"type:uuid;not null;index:idx_movement_product_warehouse,priority:2"`
	Type          MovementType      `gorm:"type:varchar(20);not null;index"`
	Direction     MovementDirection `gorm:"type:varchar(10);not null"`
	Quantity      decimal.Decimal   `gorm:"type:decimal(18,4);not null"`
	Reason        string            `gorm:"type:varchar(500)"`
	ReferenceID   string            `gorm:"type:varchar(100);index"`
	ReferenceType ReferenceType     `gorm:"type:varchar(20)"`
	CreatedByID   *uuid.UUID        `gorm:"type:uuid"`
	CreatedAt     time.Time         `gorm:"not null;autoCreateTime;index"`
}

// TableName returns the table name for GORM
func (StockMovement) TableName() string {
	return "stock_movements"
}

// NewStockMovement creates a ledger entry. Quantity must be positive;
// callers express decreases through the direction, not the sign.
func NewStockMovement(
	productID, warehouseID uuid.UUID,
	movementType MovementType,
	direction MovementDirection,
	quantity decimal.Decimal,
	reason string,
) (*StockMovement, error) {
	if !movementType.IsValid() {
		return nil, shared.NewDomainError("INVALID_MOVEMENT_TYPE", "Invalid movement type: "+string(movementType))
	}
	if !direction.IsValid() {
		return nil, shared.NewDomainError("INVALID_DIRECTION", "Invalid movement direction: "+string(direction))
	}
	if !quantity.IsPositive() {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Movement quantity must be positive")
	}

	return &StockMovement{
		ID:          uuid.New(),
		ProductID:   productID,
		WarehouseID: warehouseID,
		Type:        movementType,
		Direction:   direction,
		Quantity:    quantity,
		Reason:      reason,
		CreatedAt:   time.Now(),
	}, nil
}

// WithReference tags the movement with its source document
func (m *StockMovement) WithReference(refType ReferenceType, refID string) *StockMovement {
	m.ReferenceType = refType
	m.ReferenceID = refID
	return m
}

// WithCreatedBy records the acting user
func (m *StockMovement) WithCreatedBy(userID uuid.UUID) *StockMovement {
	m.CreatedByID = &userID
	return m
}

// SignedQuantity returns the quantity with direction applied: positive for
// INCREASE, negative for DECREASE. Replaying signed quantities over an empty
// projection reproduces the projection exactly.
func (m *StockMovement) SignedQuantity() decimal.Decimal {
	if m.Direction == DirectionDecrease {
		return m.Quantity.Neg()
	}
	return m.Quantity
}

// IsIncrease returns true if the movement increases stock
func (m *StockMovement) IsIncrease() bool {
	return m.Direction == DirectionIncrease
}
