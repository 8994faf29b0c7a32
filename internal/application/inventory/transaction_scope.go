package inventory

import (
	"context"

	"github.com/warestock/backend/internal/domain/catalog"
	"github.com/warestock/backend/internal/domain/inventory"
)

// TransactionScope provides transactional access to the inventory repositories.
// When a function is executed within a transaction scope, all repository
// operations are part of the same database transaction and commit or roll
// back atomically.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	// If the function succeeds, the transaction is committed.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to the repositories within one
// transaction. All repositories returned share the same underlying database
// transaction.
//
// Aggregate boundary notes:
//   - InventoryRepo: projection rows. Locking reads go through here.
//   - MovementRepo: append-only ledger. No update path exists at any layer.
//   - AdjustmentRepo: InventoryAdjustment aggregate with its items; items are
//     persisted through the aggregate root, replaced wholesale on update.
//   - ProductRepo: read access for UOM resolution and the average cost
//     write-back on costed receipts.
type TransactionalRepositories interface {
	// InventoryRepo returns the projection repository scoped to the current transaction
	InventoryRepo() inventory.InventoryRepository
	// MovementRepo returns the ledger repository scoped to the current transaction
	MovementRepo() inventory.StockMovementRepository
	// AdjustmentRepo returns the adjustment repository scoped to the current transaction
	AdjustmentRepo() inventory.AdjustmentRepository
	// ProductRepo returns the product repository scoped to the current transaction
	ProductRepo() catalog.ProductRepository
}

// NoOpTransactionScope is a transaction scope that doesn't actually use
// transactions. Useful for tests with in-memory repositories.
type NoOpTransactionScope struct {
	inventoryRepo  inventory.InventoryRepository
	movementRepo   inventory.StockMovementRepository
	adjustmentRepo inventory.AdjustmentRepository
	productRepo    catalog.ProductRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(
	inventoryRepo inventory.InventoryRepository,
	movementRepo inventory.StockMovementRepository,
	adjustmentRepo inventory.AdjustmentRepository,
	productRepo catalog.ProductRepository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		inventoryRepo:  inventoryRepo,
		movementRepo:   movementRepo,
		adjustmentRepo: adjustmentRepo,
		productRepo:    productRepo,
	}
}

// Execute runs the function without a real transaction.
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// InventoryRepo returns the projection repository.
func (s *NoOpTransactionScope) InventoryRepo() inventory.InventoryRepository {
	return s.inventoryRepo
}

// MovementRepo returns the ledger repository.
func (s *NoOpTransactionScope) MovementRepo() inventory.StockMovementRepository {
	return s.movementRepo
}

// AdjustmentRepo returns the adjustment repository.
func (s *NoOpTransactionScope) AdjustmentRepo() inventory.AdjustmentRepository {
	return s.adjustmentRepo
}

// ProductRepo returns the product repository.
func (s *NoOpTransactionScope) ProductRepo() catalog.ProductRepository {
	return s.productRepo
}

// Ensure NoOpTransactionScope implements both interfaces
var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
