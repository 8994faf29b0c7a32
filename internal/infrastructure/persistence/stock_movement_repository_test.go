package persistence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warestock/backend/internal/domain/inventory"
	"github.com/warestock/backend/internal/domain/shared"
)

func newMockMovementRepository(t *testing.T) (*GormStockMovementRepository, sqlmock.Sqlmock, *sql.DB) {
	gormDB, mock, mockDB := newMockGormDB(t)
	return NewGormStockMovementRepository(gormDB), mock, mockDB
}

func TestGormStockMovementRepository_SumSignedQuantity(t *testing.T) {
	productID := uuid.New()
	warehouseID := uuid.New()

	t.Run("signs quantities by direction", func(t *testing.T) {
		repo, mock, mockDB := newMockMovementRepository(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT COALESCE\(SUM\(CASE WHEN direction = \$1 THEN quantity ELSE -quantity END\), 0\) as total FROM "stock_movements" WHERE product_id = \$2 AND warehouse_id = \$3`).
			WithArgs(inventory.DirectionIncrease, productID, warehouseID).
			WillReturnRows(sqlmock.NewRows([]string{"total"}).AddRow("80.0000"))

		total, err := repo.SumSignedQuantity(context.Background(), productID, warehouseID, nil, "")

		require.NoError(t, err)
		assert.True(t, total.Equal(decimal.NewFromInt(80)))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("applies cutoff and reference exclusion", func(t *testing.T) {
		repo, mock, mockDB := newMockMovementRepository(t)
		defer mockDB.Close()

		after := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)

		mock.ExpectQuery(`SELECT COALESCE\(SUM\(CASE WHEN direction = \$1 THEN quantity ELSE -quantity END\), 0\) as total FROM "stock_movements" WHERE product_id = \$2 AND warehouse_id = \$3 AND created_at > \$4 AND reference_id <> \$5`).
			WithArgs(inventory.DirectionIncrease, productID, warehouseID, after, "ADJ-20260828-0001").
			WillReturnRows(sqlmock.NewRows([]string{"total"}).AddRow("30"))

		total, err := repo.SumSignedQuantity(context.Background(), productID, warehouseID, &after, "ADJ-20260828-0001")

		require.NoError(t, err)
		assert.True(t, total.Equal(decimal.NewFromInt(30)))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormStockMovementRepository_CreateBatch(t *testing.T) {
	t.Run("empty batch writes nothing", func(t *testing.T) {
		repo, mock, mockDB := newMockMovementRepository(t)
		defer mockDB.Close()

		err := repo.CreateBatch(context.Background(), nil)

		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormStockMovementRepository_FindByReference(t *testing.T) {
	t.Run("orders entries oldest first", func(t *testing.T) {
		repo, mock, mockDB := newMockMovementRepository(t)
		defer mockDB.Close()

		rows := sqlmock.NewRows([]string{"id", "product_id", "warehouse_id", "type", "direction", "quantity", "reference_type", "reference_id"}).
			AddRow(uuid.New(), uuid.New(), uuid.New(), inventory.MovementTypeAdjustment, inventory.DirectionIncrease, decimal.NewFromInt(20), inventory.ReferenceTypeAdjustment, "ADJ-20260828-0001")

		mock.ExpectQuery(`SELECT \* FROM "stock_movements" WHERE reference_type = \$1 AND reference_id = \$2 ORDER BY created_at ASC`).
			WithArgs(inventory.ReferenceTypeAdjustment, "ADJ-20260828-0001").
			WillReturnRows(rows)

		movements, err := repo.FindByReference(context.Background(), inventory.ReferenceTypeAdjustment, "ADJ-20260828-0001")

		require.NoError(t, err)
		require.Len(t, movements, 1)
		assert.Equal(t, inventory.DirectionIncrease, movements[0].Direction)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormStockMovementRepository_FindAll(t *testing.T) {
	t.Run("applies typed filters", func(t *testing.T) {
		repo, mock, mockDB := newMockMovementRepository(t)
		defer mockDB.Close()

		productID := uuid.New()
		movementType := inventory.MovementTypeOut

		mock.ExpectQuery(`SELECT \* FROM "stock_movements" WHERE product_id = \$1 AND type = \$2 ORDER BY created_at DESC LIMIT \$3`).
			WithArgs(productID, movementType, 20).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err := repo.FindAll(context.Background(), inventory.MovementFilter{
			Filter:    shared.Filter{Page: 1, PageSize: 20},
			ProductID: &productID,
			Type:      &movementType,
		})

		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
