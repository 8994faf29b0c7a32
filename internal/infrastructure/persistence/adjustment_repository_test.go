package persistence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/warestock/backend/internal/domain/inventory"
	"github.com/warestock/backend/internal/domain/shared"
)

func newMockAdjustmentRepository(t *testing.T) (*GormAdjustmentRepository, sqlmock.Sqlmock, *sql.DB) {
	gormDB, mock, mockDB := newMockGormDB(t)
	return NewGormAdjustmentRepository(gormDB), mock, mockDB
}

func TestGormAdjustmentRepository_NextAdjustmentNumber(t *testing.T) {
	date := time.Date(2026, 8, 28, 15, 30, 0, 0, time.UTC)

	t.Run("starts at 0001 when the day has no adjustments", func(t *testing.T) {
		repo, mock, mockDB := newMockAdjustmentRepository(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT "?adjustment_number"? FROM "inventory_adjustments" WHERE adjustment_number LIKE \$1 ORDER BY adjustment_number DESC LIMIT \$2`).
			WithArgs("ADJ-20260828-%", 1).
			WillReturnRows(sqlmock.NewRows([]string{"adjustment_number"}))

		number, err := repo.NextAdjustmentNumber(context.Background(), date)

		require.NoError(t, err)
		assert.Equal(t, "ADJ-20260828-0001", number)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("increments the highest existing sequence", func(t *testing.T) {
		repo, mock, mockDB := newMockAdjustmentRepository(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT "?adjustment_number"? FROM "inventory_adjustments" WHERE adjustment_number LIKE \$1 ORDER BY adjustment_number DESC LIMIT \$2`).
			WithArgs("ADJ-20260828-%", 1).
			WillReturnRows(sqlmock.NewRows([]string{"adjustment_number"}).AddRow("ADJ-20260828-0042"))

		number, err := repo.NextAdjustmentNumber(context.Background(), date)

		require.NoError(t, err)
		assert.Equal(t, "ADJ-20260828-0043", number)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormAdjustmentRepository_FindByIDForUpdate(t *testing.T) {
	t.Run("locks the adjustment row", func(t *testing.T) {
		repo, mock, mockDB := newMockAdjustmentRepository(t)
		defer mockDB.Close()

		id := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "inventory_adjustments" WHERE id = \$1.*FOR UPDATE`).
			WithArgs(id, 1).
			WillReturnRows(sqlmock.NewRows([]string{"id", "adjustment_number", "status"}).
				AddRow(id, "ADJ-20260828-0001", "DRAFT"))
		mock.ExpectQuery(`SELECT \* FROM "inventory_adjustment_items" WHERE "inventory_adjustment_items"\."adjustment_id" = \$1`).
			WithArgs(id).
			WillReturnRows(sqlmock.NewRows([]string{"id", "adjustment_id"}))

		adj, err := repo.FindByIDForUpdate(context.Background(), id)

		require.NoError(t, err)
		assert.Equal(t, inventory.AdjustmentStatusDraft, adj.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns ErrNotFound for unknown id", func(t *testing.T) {
		repo, mock, mockDB := newMockAdjustmentRepository(t)
		defer mockDB.Close()

		id := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "inventory_adjustments" WHERE id = \$1.*FOR UPDATE`).
			WithArgs(id, 1).
			WillReturnError(gorm.ErrRecordNotFound)

		adj, err := repo.FindByIDForUpdate(context.Background(), id)

		assert.Nil(t, adj)
		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormAdjustmentRepository_FindByNumber(t *testing.T) {
	t.Run("returns ErrNotFound for unknown number", func(t *testing.T) {
		repo, mock, mockDB := newMockAdjustmentRepository(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT \* FROM "inventory_adjustments" WHERE adjustment_number = \$1`).
			WithArgs("ADJ-20260828-9999", 1).
			WillReturnError(gorm.ErrRecordNotFound)

		adj, err := repo.FindByNumber(context.Background(), "ADJ-20260828-9999")

		assert.Nil(t, adj)
		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormAdjustmentRepository_Count(t *testing.T) {
	t.Run("counts with search applied", func(t *testing.T) {
		repo, mock, mockDB := newMockAdjustmentRepository(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT count\(\*\) FROM "inventory_adjustments" WHERE \(?adjustment_number ILIKE \$1 OR reason ILIKE \$2 OR reference_number ILIKE \$3\)?`).
			WithArgs("%cycle%", "%cycle%", "%cycle%").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

		count, err := repo.Count(context.Background(), inventory.AdjustmentFilter{
			Filter: shared.Filter{Search: "cycle"},
		})

		require.NoError(t, err)
		assert.Equal(t, int64(3), count)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
