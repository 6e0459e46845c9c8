package warehouserepo_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mouralws/internal/domain"
	apperror "mouralws/internal/errors"
	"mouralws/internal/pkg/logger"
	"mouralws/internal/repository/warehouserepo"
)

var whCols = []string{"id", "company_id", "name", "created_at", "updated_at"}

func newRepo(t *testing.T) (*warehouserepo.WarehouseRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return warehouserepo.NewWarehouseRepository(db, time.Second, logger.Nop()), mock
}

func TestCreateWarehouse(t *testing.T) {
	repo, mock := newRepo(t)
	now := time.Now()
	mock.ExpectQuery(`INSERT INTO warehouses`).
		WithArgs(sqlmock.AnyArg(), "co-1", "CD Recife", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(whCols).AddRow("w-1", "co-1", "CD Recife", now, now))

	w, err := repo.CreateWarehouse(context.Background(), domain.Warehouse{CompanyID: "co-1", Name: "CD Recife"})
	require.NoError(t, err)
	assert.Equal(t, "w-1", w.ID)
}

func TestCreateWarehouse_DuplicateNameIsConflict(t *testing.T) {
	repo, mock := newRepo(t)
	mock.ExpectQuery(`INSERT INTO warehouses`).WillReturnError(&pq.Error{Code: "23505"})

	_, err := repo.CreateWarehouse(context.Background(), domain.Warehouse{CompanyID: "co-1", Name: "CD Recife"})
	assert.True(t, apperror.IsConflict(err))
}

func TestGetWarehouseByID_OtherCompanyIsNotFound(t *testing.T) {
	repo, mock := newRepo(t)
	mock.ExpectQuery(`FROM warehouses\s+WHERE id = \$1 AND company_id = \$2`).
		WithArgs("w-1", "co-2").
		WillReturnRows(sqlmock.NewRows(whCols))

	_, err := repo.GetWarehouseByID(context.Background(), "co-2", "w-1")
	assert.True(t, apperror.IsNotFound(err))
}

func TestDeleteWarehouse_Missing(t *testing.T) {
	repo, mock := newRepo(t)
	mock.ExpectExec(`DELETE FROM warehouses`).WithArgs("w-1", "co-1").WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.DeleteWarehouse(context.Background(), "co-1", "w-1")
	assert.True(t, apperror.IsNotFound(err))
}
