// Package testutil provides in-memory repository implementations for
// service-level tests. Reads and writes copy values so tests cannot alias
// repository state, and the transaction scope restores a snapshot on error
// to mirror database rollback.
package testutil

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	appinv "github.com/warestock/backend/internal/application/inventory"
	"github.com/warestock/backend/internal/domain/catalog"
	"github.com/warestock/backend/internal/domain/inventory"
	"github.com/warestock/backend/internal/domain/shared"
)

// MemProductRepository is an in-memory catalog.ProductRepository
type MemProductRepository struct {
	mu       sync.Mutex
	products map[uuid.UUID]catalog.Product
}

// NewMemProductRepository creates an empty product repository
func NewMemProductRepository() *MemProductRepository {
	return &MemProductRepository{products: make(map[uuid.UUID]catalog.Product)}
}

func cloneProduct(p catalog.Product) catalog.Product {
	out := p
	out.AlternateUOMs = append([]catalog.AlternateUOM(nil), p.AlternateUOMs...)
	return out
}

// Seed stores a product directly
func (r *MemProductRepository) Seed(p *catalog.Product) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.products[p.ID] = cloneProduct(*p)
}

// FindByID implements catalog.ProductRepository
func (r *MemProductRepository) FindByID(_ context.Context, id uuid.UUID) (*catalog.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	out := cloneProduct(p)
	return &out, nil
}

// FindBySKU implements catalog.ProductRepository
func (r *MemProductRepository) FindBySKU(_ context.Context, sku string) (*catalog.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.products {
		if p.SKU == sku {
			out := cloneProduct(p)
			return &out, nil
		}
	}
	return nil, shared.ErrNotFound
}

// FindByIDs implements catalog.ProductRepository
func (r *MemProductRepository) FindByIDs(_ context.Context, ids []uuid.UUID) ([]catalog.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]catalog.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := r.products[id]; ok {
			out = append(out, cloneProduct(p))
		}
	}
	return out, nil
}

// FindAll implements catalog.ProductRepository
func (r *MemProductRepository) FindAll(_ context.Context, _ shared.Filter) ([]catalog.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]catalog.Product, 0, len(r.products))
	for _, p := range r.products {
		out = append(out, cloneProduct(p))
	}
	return out, nil
}

// Save implements catalog.ProductRepository
func (r *MemProductRepository) Save(_ context.Context, product *catalog.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.products[product.ID] = cloneProduct(*product)
	return nil
}

// Delete implements catalog.ProductRepository
func (r *MemProductRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.products[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.products, id)
	return nil
}

// Count implements catalog.ProductRepository
func (r *MemProductRepository) Count(_ context.Context, _ shared.Filter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.products)), nil
}

func (r *MemProductRepository) snapshot() map[uuid.UUID]catalog.Product {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[uuid.UUID]catalog.Product, len(r.products))
	for k, v := range r.products {
		out[k] = cloneProduct(v)
	}
	return out
}

func (r *MemProductRepository) restore(state map[uuid.UUID]catalog.Product) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.products = state
}

// MemInventoryRepository is an in-memory inventory.InventoryRepository
type MemInventoryRepository struct {
	mu   sync.Mutex
	rows map[uuid.UUID]inventory.Inventory
}

// NewMemInventoryRepository creates an empty projection repository
func NewMemInventoryRepository() *MemInventoryRepository {
	return &MemInventoryRepository{rows: make(map[uuid.UUID]inventory.Inventory)}
}

// FindByID implements inventory.InventoryRepository
func (r *MemInventoryRepository) FindByID(_ context.Context, id uuid.UUID) (*inventory.Inventory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	out := row
	return &out, nil
}

// FindByProductAndWarehouse implements inventory.InventoryRepository
func (r *MemInventoryRepository) FindByProductAndWarehouse(_ context.Context, productID, warehouseID uuid.UUID) (*inventory.Inventory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.ProductID == productID && row.WarehouseID == warehouseID {
			out := row
			return &out, nil
		}
	}
	return nil, shared.ErrNotFound
}

// FindByProductAndWarehouseForUpdate behaves like the plain read in memory
func (r *MemInventoryRepository) FindByProductAndWarehouseForUpdate(ctx context.Context, productID, warehouseID uuid.UUID) (*inventory.Inventory, error) {
	return r.FindByProductAndWarehouse(ctx, productID, warehouseID)
}

// FindByProductsAndWarehouseForUpdate implements inventory.InventoryRepository
func (r *MemInventoryRepository) FindByProductsAndWarehouseForUpdate(_ context.Context, productIDs []uuid.UUID, warehouseID uuid.UUID) ([]inventory.Inventory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	wanted := make(map[uuid.UUID]bool, len(productIDs))
	for _, id := range productIDs {
		wanted[id] = true
	}
	var out []inventory.Inventory
	for _, row := range r.rows {
		if row.WarehouseID == warehouseID && wanted[row.ProductID] {
			out = append(out, row)
		}
	}
	return out, nil
}

// FindByProduct implements inventory.InventoryRepository
func (r *MemInventoryRepository) FindByProduct(_ context.Context, productID uuid.UUID) ([]inventory.Inventory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []inventory.Inventory
	for _, row := range r.rows {
		if row.ProductID == productID {
			out = append(out, row)
		}
	}
	return out, nil
}

// FindAll implements inventory.InventoryRepository. Pagination follows the
// filter so replay loops terminate.
func (r *MemInventoryRepository) FindAll(_ context.Context, filter shared.Filter) ([]inventory.Inventory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := make([]inventory.Inventory, 0, len(r.rows))
	for _, row := range r.rows {
		all = append(all, row)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })

	offset := filter.Offset()
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + filter.PageSize
	if filter.PageSize < 1 || end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

// SumQuantityByProduct implements inventory.InventoryRepository
func (r *MemInventoryRepository) SumQuantityByProduct(_ context.Context, productID uuid.UUID) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sum := decimal.Zero
	for _, row := range r.rows {
		if row.ProductID == productID {
			sum = sum.Add(row.Quantity)
		}
	}
	return sum, nil
}

// Save implements inventory.InventoryRepository
func (r *MemInventoryRepository) Save(_ context.Context, inv *inventory.Inventory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[inv.ID] = *inv
	return nil
}

// Count implements inventory.InventoryRepository
func (r *MemInventoryRepository) Count(_ context.Context, _ shared.Filter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.rows)), nil
}

func (r *MemInventoryRepository) snapshot() map[uuid.UUID]inventory.Inventory {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[uuid.UUID]inventory.Inventory, len(r.rows))
	for k, v := range r.rows {
		out[k] = v
	}
	return out
}

func (r *MemInventoryRepository) restore(state map[uuid.UUID]inventory.Inventory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = state
}

// MemMovementRepository is an in-memory append-only ledger
type MemMovementRepository struct {
	mu        sync.Mutex
	movements []inventory.StockMovement
}

// NewMemMovementRepository creates an empty ledger
func NewMemMovementRepository() *MemMovementRepository {
	return &MemMovementRepository{}
}

// All returns a copy of every ledger entry in insertion order
func (r *MemMovementRepository) All() []inventory.StockMovement {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]inventory.StockMovement(nil), r.movements...)
}

// FindByID implements inventory.StockMovementRepository
func (r *MemMovementRepository) FindByID(_ context.Context, id uuid.UUID) (*inventory.StockMovement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.movements {
		if m.ID == id {
			out := m
			return &out, nil
		}
	}
	return nil, shared.ErrNotFound
}

// FindAll implements inventory.StockMovementRepository
func (r *MemMovementRepository) FindAll(_ context.Context, filter inventory.MovementFilter) ([]inventory.StockMovement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []inventory.StockMovement
	for _, m := range r.movements {
		if filter.ProductID != nil && m.ProductID != *filter.ProductID {
			continue
		}
		if filter.WarehouseID != nil && m.WarehouseID != *filter.WarehouseID {
			continue
		}
		if filter.Type != nil && m.Type != *filter.Type {
			continue
		}
		if filter.Direction != nil && m.Direction != *filter.Direction {
			continue
		}
		if filter.ReferenceID != "" && m.ReferenceID != filter.ReferenceID {
			continue
		}
		if filter.StartDate != nil && m.CreatedAt.Before(*filter.StartDate) {
			continue
		}
		if filter.EndDate != nil && m.CreatedAt.After(*filter.EndDate) {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

// FindByProductAndWarehouse implements inventory.StockMovementRepository
func (r *MemMovementRepository) FindByProductAndWarehouse(_ context.Context, productID, warehouseID uuid.UUID) ([]inventory.StockMovement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []inventory.StockMovement
	for _, m := range r.movements {
		if m.ProductID == productID && m.WarehouseID == warehouseID {
			out = append(out, m)
		}
	}
	return out, nil
}

// FindByReference implements inventory.StockMovementRepository
func (r *MemMovementRepository) FindByReference(_ context.Context, refType inventory.ReferenceType, refID string) ([]inventory.StockMovement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []inventory.StockMovement
	for _, m := range r.movements {
		if m.ReferenceType == refType && m.ReferenceID == refID {
			out = append(out, m)
		}
	}
	return out, nil
}

// Create implements inventory.StockMovementRepository
func (r *MemMovementRepository) Create(_ context.Context, movement *inventory.StockMovement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.movements = append(r.movements, *movement)
	return nil
}

// CreateBatch implements inventory.StockMovementRepository
func (r *MemMovementRepository) CreateBatch(_ context.Context, movements []*inventory.StockMovement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range movements {
		r.movements = append(r.movements, *m)
	}
	return nil
}

// SumSignedQuantity implements inventory.StockMovementRepository
func (r *MemMovementRepository) SumSignedQuantity(_ context.Context, productID, warehouseID uuid.UUID, after *time.Time, excludeRefID string) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sum := decimal.Zero
	for i := range r.movements {
		m := &r.movements[i]
		if m.ProductID != productID || m.WarehouseID != warehouseID {
			continue
		}
		if after != nil && !m.CreatedAt.After(*after) {
			continue
		}
		if excludeRefID != "" && m.ReferenceID == excludeRefID {
			continue
		}
		sum = sum.Add(m.SignedQuantity())
	}
	return sum, nil
}

// Count implements inventory.StockMovementRepository
func (r *MemMovementRepository) Count(ctx context.Context, filter inventory.MovementFilter) (int64, error) {
	rows, err := r.FindAll(ctx, filter)
	if err != nil {
		return 0, err
	}
	return int64(len(rows)), nil
}

func (r *MemMovementRepository) snapshot() []inventory.StockMovement {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]inventory.StockMovement(nil), r.movements...)
}

func (r *MemMovementRepository) restore(state []inventory.StockMovement) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.movements = state
}

// MemAdjustmentRepository is an in-memory inventory.AdjustmentRepository
type MemAdjustmentRepository struct {
	mu          sync.Mutex
	adjustments map[uuid.UUID]inventory.InventoryAdjustment
}

// NewMemAdjustmentRepository creates an empty adjustment repository
func NewMemAdjustmentRepository() *MemAdjustmentRepository {
	return &MemAdjustmentRepository{adjustments: make(map[uuid.UUID]inventory.InventoryAdjustment)}
}

func cloneAdjustment(a inventory.InventoryAdjustment) inventory.InventoryAdjustment {
	out := a
	out.Items = make([]inventory.InventoryAdjustmentItem, len(a.Items))
	for i, item := range a.Items {
		clone := item
		if item.SystemQuantity != nil {
			v := *item.SystemQuantity
			clone.SystemQuantity = &v
		}
		if item.ActualQuantity != nil {
			v := *item.ActualQuantity
			clone.ActualQuantity = &v
		}
		out.Items[i] = clone
	}
	if a.PostedAt != nil {
		v := *a.PostedAt
		out.PostedAt = &v
	}
	return out
}

// FindByID implements inventory.AdjustmentRepository
func (r *MemAdjustmentRepository) FindByID(_ context.Context, id uuid.UUID) (*inventory.InventoryAdjustment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.adjustments[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	out := cloneAdjustment(a)
	return &out, nil
}

// FindByIDForUpdate behaves like the plain read in memory
func (r *MemAdjustmentRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*inventory.InventoryAdjustment, error) {
	return r.FindByID(ctx, id)
}

// FindByNumber implements inventory.AdjustmentRepository
func (r *MemAdjustmentRepository) FindByNumber(_ context.Context, number string) (*inventory.InventoryAdjustment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.adjustments {
		if a.AdjustmentNumber == number {
			out := cloneAdjustment(a)
			return &out, nil
		}
	}
	return nil, shared.ErrNotFound
}

// FindAll implements inventory.AdjustmentRepository
func (r *MemAdjustmentRepository) FindAll(_ context.Context, filter inventory.AdjustmentFilter) ([]inventory.InventoryAdjustment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []inventory.InventoryAdjustment
	for _, a := range r.adjustments {
		if !matchesAdjustmentFilter(&a, filter) {
			continue
		}
		out = append(out, cloneAdjustment(a))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func matchesAdjustmentFilter(a *inventory.InventoryAdjustment, filter inventory.AdjustmentFilter) bool {
	if filter.WarehouseID != nil && a.WarehouseID != *filter.WarehouseID {
		return false
	}
	if filter.BranchID != nil && (a.BranchID == nil || *a.BranchID != *filter.BranchID) {
		return false
	}
	if filter.Status != nil && a.Status != *filter.Status {
		return false
	}
	if filter.StartDate != nil && a.AdjustmentDate.Before(*filter.StartDate) {
		return false
	}
	if filter.EndDate != nil && a.AdjustmentDate.After(*filter.EndDate) {
		return false
	}
	if filter.Search != "" {
		needle := strings.ToLower(filter.Search)
		if !strings.Contains(strings.ToLower(a.AdjustmentNumber), needle) &&
			!strings.Contains(strings.ToLower(a.Reason), needle) &&
			!strings.Contains(strings.ToLower(a.ReferenceNumber), needle) {
			return false
		}
	}
	return true
}

// Save implements inventory.AdjustmentRepository
func (r *MemAdjustmentRepository) Save(_ context.Context, adjustment *inventory.InventoryAdjustment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adjustments[adjustment.ID] = cloneAdjustment(*adjustment)
	return nil
}

// Count implements inventory.AdjustmentRepository
func (r *MemAdjustmentRepository) Count(ctx context.Context, filter inventory.AdjustmentFilter) (int64, error) {
	rows, err := r.FindAll(ctx, filter)
	if err != nil {
		return 0, err
	}
	return int64(len(rows)), nil
}

// NextAdjustmentNumber implements inventory.AdjustmentRepository
func (r *MemAdjustmentRepository) NextAdjustmentNumber(_ context.Context, date time.Time) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	prefix := "ADJ-" + date.Format("20060102") + "-"
	count := 0
	for _, a := range r.adjustments {
		if strings.HasPrefix(a.AdjustmentNumber, prefix) {
			count++
		}
	}
	return fmt.Sprintf("%s%04d", prefix, count+1), nil
}

func (r *MemAdjustmentRepository) snapshot() map[uuid.UUID]inventory.InventoryAdjustment {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[uuid.UUID]inventory.InventoryAdjustment, len(r.adjustments))
	for k, v := range r.adjustments {
		out[k] = cloneAdjustment(v)
	}
	return out
}

func (r *MemAdjustmentRepository) restore(state map[uuid.UUID]inventory.InventoryAdjustment) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adjustments = state
}

// MemStores bundles the in-memory repositories behind a transaction scope
// whose Execute restores the pre-transaction state when the function fails,
// mirroring database rollback.
type MemStores struct {
	Products    *MemProductRepository
	Inventories *MemInventoryRepository
	Movements   *MemMovementRepository
	Adjustments *MemAdjustmentRepository
}

// NewMemStores creates the full in-memory repository set
func NewMemStores() *MemStores {
	return &MemStores{
		Products:    NewMemProductRepository(),
		Inventories: NewMemInventoryRepository(),
		Movements:   NewMemMovementRepository(),
		Adjustments: NewMemAdjustmentRepository(),
	}
}

// Execute implements appinv.TransactionScope with snapshot rollback
func (s *MemStores) Execute(_ context.Context, fn func(repos appinv.TransactionalRepositories) error) error {
	products := s.Products.snapshot()
	inventories := s.Inventories.snapshot()
	movements := s.Movements.snapshot()
	adjustments := s.Adjustments.snapshot()

	if err := fn(s); err != nil {
		s.Products.restore(products)
		s.Inventories.restore(inventories)
		s.Movements.restore(movements)
		s.Adjustments.restore(adjustments)
		return err
	}
	return nil
}

// InventoryRepo implements appinv.TransactionalRepositories
func (s *MemStores) InventoryRepo() inventory.InventoryRepository { return s.Inventories }

// MovementRepo implements appinv.TransactionalRepositories
func (s *MemStores) MovementRepo() inventory.StockMovementRepository { return s.Movements }

// AdjustmentRepo implements appinv.TransactionalRepositories
func (s *MemStores) AdjustmentRepo() inventory.AdjustmentRepository { return s.Adjustments }

// ProductRepo implements appinv.TransactionalRepositories
func (s *MemStores) ProductRepo() catalog.ProductRepository { return s.Products }

var _ appinv.TransactionScope = (*MemStores)(nil)
var _ appinv.TransactionalRepositories = (*MemStores)(nil)
