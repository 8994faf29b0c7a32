package inventory

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warestock/backend/internal/domain/shared"
)

// AdjustmentStatus represents the lifecycle state of an inventory adjustment
type AdjustmentStatus string

const (
	AdjustmentStatusDraft     AdjustmentStatus = "DRAFT"
	AdjustmentStatusPosted    AdjustmentStatus = "POSTED"
	AdjustmentStatusCancelled AdjustmentStatus = "CANCELLED"
)

// IsValid checks if the status is valid
func (s AdjustmentStatus) IsValid() bool {
	switch s {
	case AdjustmentStatusDraft, AdjustmentStatusPosted, AdjustmentStatusCancelled:
		return true
	default:
		return false
	}
}

// CanTransitionTo checks if transitioning to the target status is allowed.
// POSTED and CANCELLED are terminal.
func (s AdjustmentStatus) CanTransitionTo(target AdjustmentStatus) bool {
	switch s {
	case AdjustmentStatusDraft:
		return target == AdjustmentStatusPosted || target == AdjustmentStatusCancelled
	case AdjustmentStatusPosted, AdjustmentStatusCancelled:
		return false
	default:
		return false
	}
}

// AdjustmentItemType distinguishes how an item's quantity is interpreted
type AdjustmentItemType string

const (
	// AdjustmentItemRelative applies a signed delta to the projection
	AdjustmentItemRelative AdjustmentItemType = "RELATIVE"
	// AdjustmentItemAbsolute sets the projection to a counted target quantity
	AdjustmentItemAbsolute AdjustmentItemType = "ABSOLUTE"
)

// IsValid checks if the item type is valid
func (t AdjustmentItemType) IsValid() bool {
	return t == AdjustmentItemRelative || t == AdjustmentItemAbsolute
}

// InventoryAdjustmentItem is one line of an adjustment. For RELATIVE items
// Quantity is a signed delta in the item's UOM; for ABSOLUTE items it is the
// counted target quantity. SystemQuantity and ActualQuantity are frozen in
// base units exactly once, at posting time, and never rewritten afterwards.
type InventoryAdjustmentItem struct {
	ID             uuid.UUID          `gorm:"type:uuid;primaryKey"`
	AdjustmentID   uuid.UUID          `gorm:"type:uuid;not null;index"`
	ProductID      uuid.UUID          `gorm:"type:uuid;not null;index"`
	Type           AdjustmentItemType `gorm:"type:varchar(10);not null"`
	Quantity       decimal.Decimal    `gorm:"type:decimal(18,4);not null"`
	UOM            string             `gorm:"type:varchar(20);not null"`
	SystemQuantity *decimal.Decimal   `gorm:"type:decimal(18,4)"`
	ActualQuantity *decimal.Decimal   `gorm:"type:decimal(18,4)"`
	CreatedAt      time.Time          `gorm:"not null;autoCreateTime"`
	UpdatedAt      time.Time          `gorm:"not null;autoUpdateTime"`
}

// TableName returns the table name for GORM
func (InventoryAdjustmentItem) TableName() string {
	return "inventory_adjustment_items"
}

// Validate checks the item's own invariants
func (item *InventoryAdjustmentItem) Validate() error {
	if !item.Type.IsValid() {
		return shared.NewDomainError("INVALID_ITEM_TYPE", "Invalid adjustment item type: "+string(item.Type))
	}
	if strings.TrimSpace(item.UOM) == "" {
		return shared.NewDomainError("INVALID_UOM", "Adjustment item UOM is required")
	}
	switch item.Type {
	case AdjustmentItemRelative:
		if item.Quantity.IsZero() {
			return shared.NewDomainError("INVALID_QUANTITY", "Relative adjustment quantity cannot be zero")
		}
	case AdjustmentItemAbsolute:
		if item.Quantity.IsNegative() {
			return shared.NewDomainError("INVALID_QUANTITY", "Absolute adjustment quantity cannot be negative")
		}
	}
	return nil
}

// FreezeSnapshot records the pre-adjustment system quantity and the resulting
// actual quantity, both in base units. A frozen item is never rewritten.
func (item *InventoryAdjustmentItem) FreezeSnapshot(system, actual decimal.Decimal) error {
	if item.SystemQuantity != nil || item.ActualQuantity != nil {
		return shared.NewDomainError("SNAPSHOT_FROZEN", "Adjustment item snapshot is already frozen")
	}
	s := system
	a := actual
	item.SystemQuantity = &s
	item.ActualQuantity = &a
	item.UpdatedAt = time.Now()
	return nil
}

// InventoryAdjustment is the aggregate root for the adjustment workflow.
// It moves DRAFT -> POSTED or DRAFT -> CANCELLED; both end states are final.
type InventoryAdjustment struct {
	shared.BaseEntity
	AdjustmentNumber string                    `gorm:"type:varchar(50);not null;uniqueIndex"`
	WarehouseID      uuid.UUID                 `gorm:"type:uuid;not null;index"`
	BranchID         *uuid.UUID                `gorm:"type:uuid;index"`
	Status           AdjustmentStatus          `gorm:"type:varchar(20);not null;default:'DRAFT';index"`
	Reason           string                    `gorm:"type:varchar(500);not null"`
	ReferenceNumber  string                    `gorm:"type:varchar(100)"`
	AdjustmentDate   time.Time                 `gorm:"not null"`
	CreatedByID      *uuid.UUID                `gorm:"type:uuid"`
	PostedByID       *uuid.UUID                `gorm:"type:uuid"`
	PostedAt         *time.Time                `gorm:""`
	Items            []InventoryAdjustmentItem `gorm:"foreignKey:AdjustmentID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (InventoryAdjustment) TableName() string {
	return "inventory_adjustments"
}

// NewInventoryAdjustment creates a draft adjustment. The adjustment number is
// assigned by the caller inside the creating transaction.
func NewInventoryAdjustment(
	adjustmentNumber string,
	warehouseID uuid.UUID,
	reason string,
	adjustmentDate time.Time,
	items []InventoryAdjustmentItem,
) (*InventoryAdjustment, error) {
	if adjustmentNumber == "" {
		return nil, shared.NewDomainError("INVALID_NUMBER", "Adjustment number is required")
	}
	if strings.TrimSpace(reason) == "" {
		return nil, shared.NewDomainError("INVALID_REASON", "Adjustment reason is required")
	}
	if len(items) == 0 {
		return nil, shared.NewDomainError("EMPTY_ADJUSTMENT", "Adjustment must have at least one item")
	}
	if adjustmentDate.IsZero() {
		adjustmentDate = time.Now()
	}

	adj := &InventoryAdjustment{
		BaseEntity:       shared.NewBaseEntity(),
		AdjustmentNumber: adjustmentNumber,
		WarehouseID:      warehouseID,
		Status:           AdjustmentStatusDraft,
		Reason:           reason,
		AdjustmentDate:   adjustmentDate,
	}
	if err := adj.replaceItems(items); err != nil {
		return nil, err
	}
	return adj, nil
}

// replaceItems validates and attaches items, clearing any snapshots so a
// draft never carries frozen values.
func (a *InventoryAdjustment) replaceItems(items []InventoryAdjustmentItem) error {
	attached := make([]InventoryAdjustmentItem, 0, len(items))
	for _, item := range items {
		if item.ID == uuid.Nil {
			item.ID = uuid.New()
		}
		item.AdjustmentID = a.ID
		item.SystemQuantity = nil
		item.ActualQuantity = nil
		if err := item.Validate(); err != nil {
			return err
		}
		attached = append(attached, item)
	}
	a.Items = attached
	return nil
}

// IsDraft returns true while the adjustment is editable
func (a *InventoryAdjustment) IsDraft() bool {
	return a.Status == AdjustmentStatusDraft
}

// IsPosted returns true once the adjustment hit the ledger
func (a *InventoryAdjustment) IsPosted() bool {
	return a.Status == AdjustmentStatusPosted
}

// Update rewrites the draft's header fields and wholesale-replaces its items
func (a *InventoryAdjustment) Update(reason, referenceNumber string, adjustmentDate time.Time, items []InventoryAdjustmentItem) error {
	if !a.IsDraft() {
		return shared.NewDomainError("INVALID_STATE", "Only draft adjustments can be updated")
	}
	if strings.TrimSpace(reason) == "" {
		return shared.NewDomainError("INVALID_REASON", "Adjustment reason is required")
	}
	if len(items) == 0 {
		return shared.NewDomainError("EMPTY_ADJUSTMENT", "Adjustment must have at least one item")
	}
	if err := a.replaceItems(items); err != nil {
		return err
	}
	a.Reason = reason
	a.ReferenceNumber = referenceNumber
	if !adjustmentDate.IsZero() {
		a.AdjustmentDate = adjustmentDate
	}
	a.UpdatedAt = time.Now()
	return nil
}

// MarkPosted transitions the adjustment to POSTED. Items must be frozen by
// the caller before the transition.
func (a *InventoryAdjustment) MarkPosted(postedBy *uuid.UUID, postedAt time.Time) error {
	if !a.Status.CanTransitionTo(AdjustmentStatusPosted) {
		return shared.NewDomainError("INVALID_STATE",
			"Cannot post adjustment "+a.AdjustmentNumber+" in status "+string(a.Status))
	}
	for i := range a.Items {
		if a.Items[i].SystemQuantity == nil || a.Items[i].ActualQuantity == nil {
			return shared.NewDomainError("SNAPSHOT_MISSING",
				"Adjustment "+a.AdjustmentNumber+" has items without frozen snapshots")
		}
	}
	a.Status = AdjustmentStatusPosted
	a.PostedByID = postedBy
	a.PostedAt = &postedAt
	a.UpdatedAt = time.Now()
	return nil
}

// Cancel transitions a draft to CANCELLED without any ledger effect
func (a *InventoryAdjustment) Cancel() error {
	if !a.Status.CanTransitionTo(AdjustmentStatusCancelled) {
		return shared.NewDomainError("INVALID_STATE",
			"Cannot cancel adjustment "+a.AdjustmentNumber+" in status "+string(a.Status))
	}
	a.Status = AdjustmentStatusCancelled
	a.UpdatedAt = time.Now()
	return nil
}

// CopyAsDraft creates a fresh draft with the same warehouse and items.
// Snapshots and posting metadata do not carry over.
func (a *InventoryAdjustment) CopyAsDraft(newNumber string) (*InventoryAdjustment, error) {
	items := make([]InventoryAdjustmentItem, 0, len(a.Items))
	for _, item := range a.Items {
		items = append(items, InventoryAdjustmentItem{
			ProductID: item.ProductID,
			Type:      item.Type,
			Quantity:  item.Quantity,
			UOM:       item.UOM,
		})
	}
	draft, err := NewInventoryAdjustment(newNumber, a.WarehouseID,
		"Copy of "+a.AdjustmentNumber+": "+a.Reason, time.Now(), items)
	if err != nil {
		return nil, err
	}
	draft.BranchID = a.BranchID
	return draft, nil
}

// ReversalItems derives the inverse deltas of a posted adjustment from its
// frozen snapshots. All derived items are RELATIVE and expressed in base
// units, regardless of the original item's type and UOM.
func (a *InventoryAdjustment) ReversalItems(baseUOMFor func(productID uuid.UUID) (string, error)) ([]InventoryAdjustmentItem, error) {
	if !a.IsPosted() {
		return nil, shared.NewDomainError("INVALID_STATE",
			"Only posted adjustments can be reversed, "+a.AdjustmentNumber+" is "+string(a.Status))
	}
	items := make([]InventoryAdjustmentItem, 0, len(a.Items))
	for _, item := range a.Items {
		if item.SystemQuantity == nil || item.ActualQuantity == nil {
			return nil, shared.NewDomainError("SNAPSHOT_MISSING",
				"Adjustment "+a.AdjustmentNumber+" has items without frozen snapshots")
		}
		// applied delta in base units = actual - system, for both item types
		delta := item.ActualQuantity.Sub(*item.SystemQuantity)
		if delta.IsZero() {
			continue
		}
		baseUOM, err := baseUOMFor(item.ProductID)
		if err != nil {
			return nil, err
		}
		items = append(items, InventoryAdjustmentItem{
			ProductID: item.ProductID,
			Type:      AdjustmentItemRelative,
			Quantity:  delta.Neg(),
			UOM:       baseUOM,
		})
	}
	if len(items) == 0 {
		return nil, shared.NewDomainError("EMPTY_ADJUSTMENT",
			"Adjustment "+a.AdjustmentNumber+" had no net effect to reverse")
	}
	return items, nil
}
