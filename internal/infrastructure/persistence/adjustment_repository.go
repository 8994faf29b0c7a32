package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/warestock/backend/internal/domain/inventory"
	"github.com/warestock/backend/internal/domain/shared"
)

// GormAdjustmentRepository implements AdjustmentRepository using GORM
type GormAdjustmentRepository struct {
	db *gorm.DB
}

// NewGormAdjustmentRepository creates a new GormAdjustmentRepository
func NewGormAdjustmentRepository(db *gorm.DB) *GormAdjustmentRepository {
	return &GormAdjustmentRepository{db: db}
}

// FindByID finds an adjustment with its items
func (r *GormAdjustmentRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.InventoryAdjustment, error) {
	var adj inventory.InventoryAdjustment
	if err := r.db.WithContext(ctx).
		Preload("Items").
		First(&adj, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &adj, nil
}

// FindByIDForUpdate reads an adjustment with its items under a row lock so
// concurrent posts of the same adjustment serialize on the header row.
// Only meaningful inside a transaction.
func (r *GormAdjustmentRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*inventory.InventoryAdjustment, error) {
	var adj inventory.InventoryAdjustment
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Items").
		First(&adj, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &adj, nil
}

// FindByNumber finds an adjustment by its adjustment number
func (r *GormAdjustmentRepository) FindByNumber(ctx context.Context, number string) (*inventory.InventoryAdjustment, error) {
	var adj inventory.InventoryAdjustment
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("adjustment_number = ?", number).
		First(&adj).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &adj, nil
}

// FindAll finds adjustments matching the filter, items included
func (r *GormAdjustmentRepository) FindAll(ctx context.Context, filter inventory.AdjustmentFilter) ([]inventory.InventoryAdjustment, error) {
	var adjustments []inventory.InventoryAdjustment
	query := r.applyAdjustmentFilter(r.db.WithContext(ctx).Model(&inventory.InventoryAdjustment{}), filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}
	query = applyOrdering(query, filter.Filter, AdjustmentSortFields)

	if err := query.Preload("Items").Find(&adjustments).Error; err != nil {
		return nil, err
	}
	return adjustments, nil
}

// Save persists an adjustment and replaces its items wholesale: stored items
// absent from the aggregate are deleted, the rest are upserted.
func (r *GormAdjustmentRepository) Save(ctx context.Context, adj *inventory.InventoryAdjustment) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Items").Save(adj).Error; err != nil {
			return err
		}

		keep := make([]uuid.UUID, 0, len(adj.Items))
		for i := range adj.Items {
			keep = append(keep, adj.Items[i].ID)
		}
		stale := tx.Where("adjustment_id = ?", adj.ID)
		if len(keep) > 0 {
			stale = stale.Where("id NOT IN ?", keep)
		}
		if err := stale.Delete(&inventory.InventoryAdjustmentItem{}).Error; err != nil {
			return err
		}

		for i := range adj.Items {
			adj.Items[i].AdjustmentID = adj.ID
			if err := tx.Save(&adj.Items[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Count counts adjustments matching the filter
func (r *GormAdjustmentRepository) Count(ctx context.Context, filter inventory.AdjustmentFilter) (int64, error) {
	var count int64
	query := r.applyAdjustmentFilter(r.db.WithContext(ctx).Model(&inventory.InventoryAdjustment{}), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// NextAdjustmentNumber generates the next number in the ADJ-YYYYMMDD-NNNN
// sequence for the given date. Call inside the creating transaction so
// concurrent creates cannot take the same number.
func (r *GormAdjustmentRepository) NextAdjustmentNumber(ctx context.Context, date time.Time) (string, error) {
	prefix := fmt.Sprintf("ADJ-%s-", date.Format("20060102"))

	var maxNumber string
	err := r.db.WithContext(ctx).Model(&inventory.InventoryAdjustment{}).
		Select("adjustment_number").
		Where("adjustment_number LIKE ?", prefix+"%").
		Order("adjustment_number DESC").
		Limit(1).
		Pluck("adjustment_number", &maxNumber).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}

	var seq int
	if maxNumber != "" {
		parts := strings.Split(maxNumber, "-")
		if len(parts) >= 3 {
			if _, err := fmt.Sscanf(parts[len(parts)-1], "%04d", &seq); err != nil {
				seq = 0
			}
		}
	}
	return fmt.Sprintf("%s%04d", prefix, seq+1), nil
}

// applyAdjustmentFilter applies the typed filter fields to the query
func (r *GormAdjustmentRepository) applyAdjustmentFilter(query *gorm.DB, filter inventory.AdjustmentFilter) *gorm.DB {
	if filter.WarehouseID != nil {
		query = query.Where("warehouse_id = ?", *filter.WarehouseID)
	}
	if filter.BranchID != nil {
		query = query.Where("branch_id = ?", *filter.BranchID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.StartDate != nil {
		query = query.Where("adjustment_date >= ?", *filter.StartDate)
	}
	if filter.EndDate != nil {
		query = query.Where("adjustment_date <= ?", *filter.EndDate)
	}
	if filter.Search != "" {
		needle := "%" + filter.Search + "%"
		query = query.Where(
			"adjustment_number ILIKE ? OR reason ILIKE ? OR reference_number ILIKE ?",
			needle, needle, needle,
		)
	}
	return query
}

// Ensure GormAdjustmentRepository implements AdjustmentRepository
var _ inventory.AdjustmentRepository = (*GormAdjustmentRepository)(nil)
