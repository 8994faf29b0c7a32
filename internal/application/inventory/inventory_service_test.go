package inventory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appinv "github.com/warestock/backend/internal/application/inventory"
	"github.com/warestock/backend/internal/domain/catalog"
	"github.com/warestock/backend/internal/domain/inventory"
	"github.com/warestock/backend/internal/domain/shared"
	"github.com/warestock/backend/internal/testutil"
)

type stockEnv struct {
	stores  *testutil.MemStores
	service *appinv.InventoryService
	product *catalog.Product
}

// newStockEnv seeds a bottled product sold by the case of 24
func newStockEnv(t *testing.T) *stockEnv {
	t.Helper()
	stores := testutil.NewMemStores()

	product, err := catalog.NewProduct("SKU-001", "Sparkling Water", "bottle")
	require.NoError(t, err)
	require.NoError(t, product.AddAlternateUOM("case", decimal.NewFromInt(24), decimal.Zero))
	stores.Products.Seed(product)

	service := appinv.NewInventoryService(stores, stores.Inventories, stores.Movements, stores.Products, nil, nil)
	return &stockEnv{stores: stores, service: service, product: product}
}

func (e *stockEnv) stockLevel(t *testing.T, warehouseID uuid.UUID) decimal.Decimal {
	t.Helper()
	level, err := e.service.GetStockLevel(context.Background(), e.product.ID, warehouseID)
	require.NoError(t, err)
	return level.Quantity
}

func TestInventoryServiceAddStock(t *testing.T) {
	ctx := context.Background()

	t.Run("first receipt converts to base units and sets average cost", func(t *testing.T) {
		env := newStockEnv(t)
		warehouseID := uuid.New()

		resp, err := env.service.AddStock(ctx, appinv.AddStockRequest{
			ProductID:   env.product.ID,
			WarehouseID: warehouseID,
			Quantity:    decimal.NewFromInt(10),
			UOM:         "case",
			UnitCost:    decimal.NewFromInt(240),
		})
		require.NoError(t, err)

		assert.Equal(t, "IN", resp.Type)
		assert.Equal(t, "INCREASE", resp.Direction)
		assert.True(t, resp.Quantity.Equal(decimal.NewFromInt(240)), "10 cases of 24 are 240 bottles")
		assert.True(t, env.stockLevel(t, warehouseID).Equal(decimal.NewFromInt(240)))

		stored, err := env.stores.Products.FindByID(ctx, env.product.ID)
		require.NoError(t, err)
		assert.True(t, stored.AverageCostPrice.Equal(decimal.NewFromInt(10)),
			"240 per case is 10 per bottle, got %s", stored.AverageCostPrice)
	})

	t.Run("second receipt blends cost against stock in all warehouses", func(t *testing.T) {
		env := newStockEnv(t)
		warehouseA := uuid.New()
		warehouseB := uuid.New()

		_, err := env.service.AddStock(ctx, appinv.AddStockRequest{
			ProductID:   env.product.ID,
			WarehouseID: warehouseA,
			Quantity:    decimal.NewFromInt(100),
			UOM:         "bottle",
			UnitCost:    decimal.NewFromInt(8),
		})
		require.NoError(t, err)

		_, err = env.service.AddStock(ctx, appinv.AddStockRequest{
			ProductID:   env.product.ID,
			WarehouseID: warehouseB,
			Quantity:    decimal.NewFromInt(50),
			UOM:         "bottle",
			UnitCost:    decimal.NewFromInt(12),
		})
		require.NoError(t, err)

		stored, err := env.stores.Products.FindByID(ctx, env.product.ID)
		require.NoError(t, err)
		// (8*100 + 12*50) / 150
		assert.True(t, stored.AverageCostPrice.Equal(decimal.NewFromFloat(9.3333)),
			"expected 9.3333, got %s", stored.AverageCostPrice)

		total, err := env.service.GetTotalStock(ctx, env.product.ID)
		require.NoError(t, err)
		assert.True(t, total.Equal(decimal.NewFromInt(150)))
	})

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		env := newStockEnv(t)
		_, err := env.service.AddStock(ctx, appinv.AddStockRequest{
			ProductID:   env.product.ID,
			WarehouseID: uuid.New(),
			Quantity:    decimal.NewFromInt(-5),
			UOM:         "bottle",
			UnitCost:    decimal.NewFromInt(1),
		})
		require.Error(t, err)
		assert.Empty(t, env.stores.Movements.All())
	})

	t.Run("rejects negative unit cost", func(t *testing.T) {
		env := newStockEnv(t)
		_, err := env.service.AddStock(ctx, appinv.AddStockRequest{
			ProductID:   env.product.ID,
			WarehouseID: uuid.New(),
			Quantity:    decimal.NewFromInt(5),
			UOM:         "bottle",
			UnitCost:    decimal.NewFromInt(-1),
		})
		require.Error(t, err)
	})

	t.Run("rejects zero unit cost and keeps the average intact", func(t *testing.T) {
		env := newStockEnv(t)
		warehouseID := uuid.New()

		_, err := env.service.AddStock(ctx, appinv.AddStockRequest{
			ProductID:   env.product.ID,
			WarehouseID: warehouseID,
			Quantity:    decimal.NewFromInt(100),
			UOM:         "bottle",
			UnitCost:    decimal.NewFromInt(10),
		})
		require.NoError(t, err)

		_, err = env.service.AddStock(ctx, appinv.AddStockRequest{
			ProductID:   env.product.ID,
			WarehouseID: warehouseID,
			Quantity:    decimal.NewFromInt(100),
			UOM:         "bottle",
			UnitCost:    decimal.Zero,
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, shared.NewDomainError("INVALID_COST", "")))

		stored, err := env.stores.Products.FindByID(ctx, env.product.ID)
		require.NoError(t, err)
		assert.True(t, stored.AverageCostPrice.Equal(decimal.NewFromInt(10)),
			"a free receipt must not drag the average down, got %s", stored.AverageCostPrice)
		assert.Len(t, env.stores.Movements.All(), 1, "only the first receipt reaches the ledger")
		assert.True(t, env.stockLevel(t, warehouseID).Equal(decimal.NewFromInt(100)))
	})

	t.Run("unknown product leaves no trace", func(t *testing.T) {
		env := newStockEnv(t)
		_, err := env.service.AddStock(ctx, appinv.AddStockRequest{
			ProductID:   uuid.New(),
			WarehouseID: uuid.New(),
			Quantity:    decimal.NewFromInt(5),
			UOM:         "bottle",
			UnitCost:    decimal.NewFromInt(1),
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, shared.ErrNotFound))
		assert.Empty(t, env.stores.Movements.All())
	})

	t.Run("unknown UOM is rejected", func(t *testing.T) {
		env := newStockEnv(t)
		_, err := env.service.AddStock(ctx, appinv.AddStockRequest{
			ProductID:   env.product.ID,
			WarehouseID: uuid.New(),
			Quantity:    decimal.NewFromInt(5),
			UOM:         "pallet",
			UnitCost:    decimal.NewFromInt(1),
		})
		require.Error(t, err)
		assert.Empty(t, env.stores.Movements.All())
	})
}

func TestInventoryServiceDeductStock(t *testing.T) {
	ctx := context.Background()

	t.Run("add then deduct restores the projection", func(t *testing.T) {
		env := newStockEnv(t)
		warehouseID := uuid.New()

		_, err := env.service.AddStock(ctx, appinv.AddStockRequest{
			ProductID:   env.product.ID,
			WarehouseID: warehouseID,
			Quantity:    decimal.NewFromInt(50),
			UOM:         "bottle",
			UnitCost:    decimal.NewFromInt(2),
		})
		require.NoError(t, err)

		resp, err := env.service.DeductStock(ctx, appinv.DeductStockRequest{
			ProductID:   env.product.ID,
			WarehouseID: warehouseID,
			Quantity:    decimal.NewFromInt(50),
			UOM:         "bottle",
		})
		require.NoError(t, err)

		assert.Equal(t, "OUT", resp.Type)
		assert.True(t, resp.SignedQuantity.Equal(decimal.NewFromInt(-50)))
		assert.True(t, env.stockLevel(t, warehouseID).IsZero())
		assert.Len(t, env.stores.Movements.All(), 2, "both ledger entries survive")
	})

	t.Run("insufficient stock reports available and requested and changes nothing", func(t *testing.T) {
		env := newStockEnv(t)
		warehouseID := uuid.New()

		_, err := env.service.AddStock(ctx, appinv.AddStockRequest{
			ProductID:   env.product.ID,
			WarehouseID: warehouseID,
			Quantity:    decimal.NewFromInt(10),
			UOM:         "bottle",
			UnitCost:    decimal.NewFromInt(1),
		})
		require.NoError(t, err)
		before := env.stores.Movements.All()

		_, err = env.service.DeductStock(ctx, appinv.DeductStockRequest{
			ProductID:   env.product.ID,
			WarehouseID: warehouseID,
			Quantity:    decimal.NewFromInt(1),
			UOM:         "case",
		})
		require.Error(t, err)

		var insufficient *shared.InsufficientStockError
		require.True(t, errors.As(err, &insufficient))
		assert.Equal(t, "Sparkling Water", insufficient.ProductName)
		assert.True(t, insufficient.Available.Equal(decimal.NewFromInt(10)))
		assert.True(t, insufficient.Requested.Equal(decimal.NewFromInt(24)))

		assert.True(t, env.stockLevel(t, warehouseID).Equal(decimal.NewFromInt(10)))
		assert.Equal(t, len(before), len(env.stores.Movements.All()))
	})

	t.Run("missing projection reads as zero available", func(t *testing.T) {
		env := newStockEnv(t)

		_, err := env.service.DeductStock(ctx, appinv.DeductStockRequest{
			ProductID:   env.product.ID,
			WarehouseID: uuid.New(),
			Quantity:    decimal.NewFromInt(1),
			UOM:         "bottle",
		})
		var insufficient *shared.InsufficientStockError
		require.True(t, errors.As(err, &insufficient))
		assert.True(t, insufficient.Available.IsZero())
	})
}

func TestInventoryServiceTransferStock(t *testing.T) {
	ctx := context.Background()

	t.Run("moves stock atomically between warehouses", func(t *testing.T) {
		env := newStockEnv(t)
		source := uuid.New()
		dest := uuid.New()

		_, err := env.service.AddStock(ctx, appinv.AddStockRequest{
			ProductID:   env.product.ID,
			WarehouseID: source,
			Quantity:    decimal.NewFromInt(48),
			UOM:         "bottle",
			UnitCost:    decimal.NewFromInt(1),
		})
		require.NoError(t, err)

		moves, err := env.service.TransferStock(ctx, appinv.TransferStockRequest{
			ProductID:       env.product.ID,
			FromWarehouseID: source,
			ToWarehouseID:   dest,
			Quantity:        decimal.NewFromInt(1),
			UOM:             "case",
		})
		require.NoError(t, err)
		require.Len(t, moves, 2)

		assert.Equal(t, "DECREASE", moves[0].Direction)
		assert.Equal(t, "INCREASE", moves[1].Direction)
		assert.Equal(t, moves[0].ReferenceID, moves[1].ReferenceID, "both sides share one reference")
		assert.True(t, env.stockLevel(t, source).Equal(decimal.NewFromInt(24)))
		assert.True(t, env.stockLevel(t, dest).Equal(decimal.NewFromInt(24)))
	})

	t.Run("rejects transfer to the same warehouse", func(t *testing.T) {
		env := newStockEnv(t)
		warehouseID := uuid.New()
		_, err := env.service.TransferStock(ctx, appinv.TransferStockRequest{
			ProductID:       env.product.ID,
			FromWarehouseID: warehouseID,
			ToWarehouseID:   warehouseID,
			Quantity:        decimal.NewFromInt(1),
			UOM:             "bottle",
		})
		require.Error(t, err)
	})

	t.Run("insufficient source leaves both warehouses untouched", func(t *testing.T) {
		env := newStockEnv(t)
		source := uuid.New()
		dest := uuid.New()

		_, err := env.service.AddStock(ctx, appinv.AddStockRequest{
			ProductID:   env.product.ID,
			WarehouseID: source,
			Quantity:    decimal.NewFromInt(5),
			UOM:         "bottle",
			UnitCost:    decimal.NewFromInt(1),
		})
		require.NoError(t, err)

		_, err = env.service.TransferStock(ctx, appinv.TransferStockRequest{
			ProductID:       env.product.ID,
			FromWarehouseID: source,
			ToWarehouseID:   dest,
			Quantity:        decimal.NewFromInt(10),
			UOM:             "bottle",
		})
		var insufficient *shared.InsufficientStockError
		require.True(t, errors.As(err, &insufficient))
		assert.True(t, env.stockLevel(t, source).Equal(decimal.NewFromInt(5)))
		assert.True(t, env.stockLevel(t, dest).IsZero())
	})
}

func TestInventoryServiceAdjustStock(t *testing.T) {
	ctx := context.Background()

	t.Run("records the signed difference as an adjustment entry", func(t *testing.T) {
		env := newStockEnv(t)
		warehouseID := uuid.New()

		_, err := env.service.AddStock(ctx, appinv.AddStockRequest{
			ProductID:   env.product.ID,
			WarehouseID: warehouseID,
			Quantity:    decimal.NewFromInt(80),
			UOM:         "bottle",
			UnitCost:    decimal.NewFromInt(1),
		})
		require.NoError(t, err)

		level, err := env.service.AdjustStock(ctx, appinv.AdjustStockRequest{
			ProductID:      env.product.ID,
			WarehouseID:    warehouseID,
			ActualQuantity: decimal.NewFromInt(75),
			Reason:         "cycle count",
		})
		require.NoError(t, err)
		assert.True(t, level.Quantity.Equal(decimal.NewFromInt(75)))

		movements := env.stores.Movements.All()
		require.Len(t, movements, 2)
		last := movements[len(movements)-1]
		assert.Equal(t, inventory.MovementTypeAdjustment, last.Type)
		assert.Equal(t, inventory.DirectionDecrease, last.Direction)
		assert.True(t, last.Quantity.Equal(decimal.NewFromInt(5)), "magnitude stays positive")
	})

	t.Run("count matching the projection writes nothing", func(t *testing.T) {
		env := newStockEnv(t)
		warehouseID := uuid.New()

		_, err := env.service.AddStock(ctx, appinv.AddStockRequest{
			ProductID:   env.product.ID,
			WarehouseID: warehouseID,
			Quantity:    decimal.NewFromInt(30),
			UOM:         "bottle",
			UnitCost:    decimal.NewFromInt(1),
		})
		require.NoError(t, err)

		level, err := env.service.AdjustStock(ctx, appinv.AdjustStockRequest{
			ProductID:      env.product.ID,
			WarehouseID:    warehouseID,
			ActualQuantity: decimal.NewFromInt(30),
			Reason:         "cycle count",
		})
		require.NoError(t, err)
		assert.True(t, level.Quantity.Equal(decimal.NewFromInt(30)))
		assert.Len(t, env.stores.Movements.All(), 1, "no adjustment entry for a zero delta")
	})

	t.Run("rejects negative counted quantity", func(t *testing.T) {
		env := newStockEnv(t)
		_, err := env.service.AdjustStock(ctx, appinv.AdjustStockRequest{
			ProductID:      env.product.ID,
			WarehouseID:    uuid.New(),
			ActualQuantity: decimal.NewFromInt(-1),
			Reason:         "cycle count",
		})
		require.Error(t, err)
	})
}

func TestInventoryServiceQueries(t *testing.T) {
	ctx := context.Background()

	t.Run("missing projection reads as zero", func(t *testing.T) {
		env := newStockEnv(t)
		level, err := env.service.GetStockLevel(ctx, env.product.ID, uuid.New())
		require.NoError(t, err)
		assert.True(t, level.Quantity.IsZero())
	})

	t.Run("movement list filters by type", func(t *testing.T) {
		env := newStockEnv(t)
		warehouseID := uuid.New()

		_, err := env.service.AddStock(ctx, appinv.AddStockRequest{
			ProductID:   env.product.ID,
			WarehouseID: warehouseID,
			Quantity:    decimal.NewFromInt(10),
			UOM:         "bottle",
			UnitCost:    decimal.NewFromInt(1),
		})
		require.NoError(t, err)
		_, err = env.service.DeductStock(ctx, appinv.DeductStockRequest{
			ProductID:   env.product.ID,
			WarehouseID: warehouseID,
			Quantity:    decimal.NewFromInt(3),
			UOM:         "bottle",
		})
		require.NoError(t, err)

		out, err := env.service.ListMovements(ctx, appinv.MovementListFilter{Type: "OUT"})
		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.True(t, out[0].SignedQuantity.Equal(decimal.NewFromInt(-3)))
	})
}
