package stockrepo_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mouralws/internal/domain"
	apperror "mouralws/internal/errors"
	"mouralws/internal/pkg/logger"
	"mouralws/internal/repository/stockrepo"
)

var stockCols = []string{"id", "variant_id", "warehouse_id", "quantity", "version", "created_at", "updated_at"}

func newRepo(t *testing.T) (*stockrepo.StockRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return stockrepo.NewStockRepository(db, time.Second, logger.Nop()), mock
}

func TestUpdateStockLevel_AppliesDeltaWithVersion(t *testing.T) {
	repo, mock := newRepo(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM stock_levels .* FOR UPDATE`).
		WithArgs("v-1", "w-1").
		WillReturnRows(sqlmock.NewRows(stockCols).AddRow("s-1", "v-1", "w-1", 10, 3, now, now))
	mock.ExpectExec(`UPDATE stock_levels`).
		WithArgs(7, 4, sqlmock.AnyArg(), "v-1", "w-1", 3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	sl, err := repo.UpdateStockLevel(context.Background(), domain.StockAdjustmentRequest{VariantID: "v-1", WarehouseID: "w-1", Delta: -3})
	require.NoError(t, err)
	assert.Equal(t, 7, sl.Quantity)
	assert.Equal(t, 4, sl.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStockLevel_StaleVersionIsConflict(t *testing.T) {
	repo, mock := newRepo(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM stock_levels .* FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows(stockCols).AddRow("s-1", "v-1", "w-1", 10, 3, now, now))
	mock.ExpectExec(`UPDATE stock_levels`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := repo.UpdateStockLevel(context.Background(), domain.StockAdjustmentRequest{VariantID: "v-1", WarehouseID: "w-1", Delta: 1})
	assert.True(t, apperror.IsConflict(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStockLevel_NegativeResultIsValidation(t *testing.T) {
	repo, mock := newRepo(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM stock_levels .* FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows(stockCols).AddRow("s-1", "v-1", "w-1", 2, 1, now, now))
	mock.ExpectRollback()

	_, err := repo.UpdateStockLevel(context.Background(), domain.StockAdjustmentRequest{VariantID: "v-1", WarehouseID: "w-1", Delta: -5})
	assert.IsType(t, &apperror.ValidationError{}, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStockLevel_CreatesMissingLevel(t *testing.T) {
	repo, mock := newRepo(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM stock_levels .* FOR UPDATE`).WillReturnRows(sqlmock.NewRows(stockCols))
	mock.ExpectQuery(`INSERT INTO stock_levels`).
		WithArgs(sqlmock.AnyArg(), "v-1", "w-1", 4, 1, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(stockCols).AddRow("s-9", "v-1", "w-1", 4, 1, now, now))
	mock.ExpectCommit()

	sl, err := repo.UpdateStockLevel(context.Background(), domain.StockAdjustmentRequest{VariantID: "v-1", WarehouseID: "w-1", Delta: 4})
	require.NoError(t, err)
	assert.Equal(t, "s-9", sl.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetStockLevel_NotFound(t *testing.T) {
	repo, mock := newRepo(t)
	mock.ExpectQuery(`FROM stock_levels`).WillReturnRows(sqlmock.NewRows(stockCols))

	_, err := repo.GetStockLevel(context.Background(), "v-1", "w-1")
	assert.True(t, apperror.IsNotFound(err))
}
