package persistence

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/warestock/backend/internal/domain/shared"
)

// newMockGormDB creates a GORM DB backed by a mocked SQL connection
func newMockGormDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return gormDB, mock, mockDB
}

func newMockInventoryRepository(t *testing.T) (*GormInventoryRepository, sqlmock.Sqlmock, *sql.DB) {
	gormDB, mock, mockDB := newMockGormDB(t)
	return NewGormInventoryRepository(gormDB), mock, mockDB
}

func TestGormInventoryRepository_FindByProductAndWarehouse(t *testing.T) {
	t.Run("finds existing projection row", func(t *testing.T) {
		repo, mock, mockDB := newMockInventoryRepository(t)
		defer mockDB.Close()

		id := uuid.New()
		productID := uuid.New()
		warehouseID := uuid.New()

		rows := sqlmock.NewRows([]string{"id", "product_id", "warehouse_id", "quantity"}).
			AddRow(id, productID, warehouseID, decimal.NewFromInt(100))

		mock.ExpectQuery(`SELECT \* FROM "inventories" WHERE product_id = \$1 AND warehouse_id = \$2`).
			WithArgs(productID, warehouseID, 1).
			WillReturnRows(rows)

		inv, err := repo.FindByProductAndWarehouse(context.Background(), productID, warehouseID)

		require.NoError(t, err)
		assert.Equal(t, id, inv.ID)
		assert.Equal(t, productID, inv.ProductID)
		assert.True(t, inv.Quantity.Equal(decimal.NewFromInt(100)))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns ErrNotFound for missing pair", func(t *testing.T) {
		repo, mock, mockDB := newMockInventoryRepository(t)
		defer mockDB.Close()

		productID := uuid.New()
		warehouseID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "inventories" WHERE product_id = \$1 AND warehouse_id = \$2`).
			WithArgs(productID, warehouseID, 1).
			WillReturnError(gorm.ErrRecordNotFound)

		inv, err := repo.FindByProductAndWarehouse(context.Background(), productID, warehouseID)

		assert.Nil(t, inv)
		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormInventoryRepository_FindByProductAndWarehouseForUpdate(t *testing.T) {
	t.Run("locks the row", func(t *testing.T) {
		repo, mock, mockDB := newMockInventoryRepository(t)
		defer mockDB.Close()

		id := uuid.New()
		productID := uuid.New()
		warehouseID := uuid.New()

		rows := sqlmock.NewRows([]string{"id", "product_id", "warehouse_id", "quantity"}).
			AddRow(id, productID, warehouseID, decimal.NewFromInt(25))

		mock.ExpectQuery(`SELECT \* FROM "inventories" WHERE product_id = \$1 AND warehouse_id = \$2.*FOR UPDATE`).
			WithArgs(productID, warehouseID, 1).
			WillReturnRows(rows)

		inv, err := repo.FindByProductAndWarehouseForUpdate(context.Background(), productID, warehouseID)

		require.NoError(t, err)
		assert.Equal(t, id, inv.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormInventoryRepository_FindByProductsAndWarehouseForUpdate(t *testing.T) {
	t.Run("empty input skips the query", func(t *testing.T) {
		repo, mock, mockDB := newMockInventoryRepository(t)
		defer mockDB.Close()

		rows, err := repo.FindByProductsAndWarehouseForUpdate(context.Background(), nil, uuid.New())

		require.NoError(t, err)
		assert.Empty(t, rows)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("locks rows ordered by product", func(t *testing.T) {
		repo, mock, mockDB := newMockInventoryRepository(t)
		defer mockDB.Close()

		warehouseID := uuid.New()
		productA := uuid.New()
		productB := uuid.New()

		rows := sqlmock.NewRows([]string{"id", "product_id", "warehouse_id", "quantity"}).
			AddRow(uuid.New(), productA, warehouseID, decimal.NewFromInt(5)).
			AddRow(uuid.New(), productB, warehouseID, decimal.NewFromInt(7))

		mock.ExpectQuery(`SELECT \* FROM "inventories" WHERE warehouse_id = \$1 AND product_id IN \(\$2,\$3\) ORDER BY product_id FOR UPDATE`).
			WithArgs(warehouseID, productA, productB).
			WillReturnRows(rows)

		result, err := repo.FindByProductsAndWarehouseForUpdate(context.Background(), []uuid.UUID{productA, productB}, warehouseID)

		require.NoError(t, err)
		assert.Len(t, result, 2)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormInventoryRepository_SumQuantityByProduct(t *testing.T) {
	t.Run("sums across warehouses", func(t *testing.T) {
		repo, mock, mockDB := newMockInventoryRepository(t)
		defer mockDB.Close()

		productID := uuid.New()

		mock.ExpectQuery(`SELECT COALESCE\(SUM\(quantity\), 0\) as total FROM "inventories" WHERE product_id = \$1`).
			WithArgs(productID).
			WillReturnRows(sqlmock.NewRows([]string{"total"}).AddRow("150.0000"))

		total, err := repo.SumQuantityByProduct(context.Background(), productID)

		require.NoError(t, err)
		assert.True(t, total.Equal(decimal.NewFromInt(150)))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty product sums to zero", func(t *testing.T) {
		repo, mock, mockDB := newMockInventoryRepository(t)
		defer mockDB.Close()

		productID := uuid.New()

		mock.ExpectQuery(`SELECT COALESCE\(SUM\(quantity\), 0\) as total FROM "inventories" WHERE product_id = \$1`).
			WithArgs(productID).
			WillReturnRows(sqlmock.NewRows([]string{"total"}).AddRow("0"))

		total, err := repo.SumQuantityByProduct(context.Background(), productID)

		require.NoError(t, err)
		assert.True(t, total.IsZero())
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormInventoryRepository_FindAll(t *testing.T) {
	t.Run("applies warehouse filter and whitelist ordering", func(t *testing.T) {
		repo, mock, mockDB := newMockInventoryRepository(t)
		defer mockDB.Close()

		warehouseID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "inventories" WHERE warehouse_id = \$1 ORDER BY quantity ASC LIMIT \$2`).
			WithArgs(warehouseID, 10).
			WillReturnRows(sqlmock.NewRows([]string{"id", "product_id", "warehouse_id", "quantity"}))

		_, err := repo.FindAll(context.Background(), shared.Filter{
			Page:     1,
			PageSize: 10,
			OrderBy:  "quantity",
			OrderDir: "asc",
			Filters:  map[string]interface{}{"warehouse_id": warehouseID},
		})

		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown sort field falls back to created_at", func(t *testing.T) {
		repo, mock, mockDB := newMockInventoryRepository(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT \* FROM "inventories" ORDER BY created_at DESC`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "product_id", "warehouse_id", "quantity"}))

		_, err := repo.FindAll(context.Background(), shared.Filter{
			OrderBy:  "quantity; DROP TABLE inventories;--",
			OrderDir: "bogus",
		})

		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
