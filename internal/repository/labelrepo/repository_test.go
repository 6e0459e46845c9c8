package labelrepo_test

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
	"mouralws/internal/repository/labelrepo"
)

var labelCols = []string{"id", "batch_id", "company_id", "variant_id", "code", "status", "used_at", "used_ref", "created_at"}

func newRepo(t *testing.T) (*labelrepo.LabelRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return labelrepo.NewLabelRepository(db, time.Second, logger.Nop()), mock
}

func TestConsume_AvailableLabel(t *testing.T) {
	repo, mock := newRepo(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE labels`).
		WithArgs("LWS-1", "co-1", "recebimento:r-1", domain.LabelUsed, sqlmock.AnyArg(), domain.LabelAvailable).
		WillReturnRows(sqlmock.NewRows(labelCols).AddRow("l-1", "b-1", "co-1", "v-1", "LWS-1", "USADO", now, "recebimento:r-1", now))
	mock.ExpectCommit()

	l, err := repo.Consume(context.Background(), "co-1", "LWS-1", "recebimento:r-1")
	require.NoError(t, err)
	assert.Equal(t, domain.LabelUsed, l.Status)
	require.NotNil(t, l.UsedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConsume_UsedLabelIsConflict(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE labels`).WillReturnRows(sqlmock.NewRows(labelCols))
	mock.ExpectQuery(`SELECT status, used_ref FROM labels`).
		WithArgs("LWS-1", "co-1").
		WillReturnRows(sqlmock.NewRows([]string{"status", "used_ref"}).AddRow("USADO", "recebimento:r-0"))
	mock.ExpectRollback()

	_, err := repo.Consume(context.Background(), "co-1", "LWS-1", "recebimento:r-1")
	assert.True(t, apperror.IsConflict(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConsume_UnknownLabelIsNotFound(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE labels`).WillReturnRows(sqlmock.NewRows(labelCols))
	mock.ExpectQuery(`SELECT status, used_ref FROM labels`).WillReturnRows(sqlmock.NewRows([]string{"status", "used_ref"}))
	mock.ExpectRollback()

	_, err := repo.Consume(context.Background(), "co-1", "LWS-x", "ref")
	assert.True(t, apperror.IsNotFound(err))
}

func TestResolve_JoinsVariant(t *testing.T) {
	repo, mock := newRepo(t)
	now := time.Now()
	cols := append(append([]string{}, labelCols...), "vid", "pid", "pname", "sku", "attr", "val", "barcode", "vcreated")

	mock.ExpectQuery(`FROM labels l\s+JOIN variants v`).
		WithArgs("LWS-1").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(
			"l-1", "b-1", "co-1", "v-1", "LWS-1", "DISPONIVEL", nil, "", now,
			"v-1", "p-1", "Bateria 60Ah", "M60", "Polaridade", "Direita", "789", now))

	res, err := repo.Resolve(context.Background(), "LWS-1")
	require.NoError(t, err)
	assert.Equal(t, "co-1", res.Label.CompanyID)
	assert.Nil(t, res.Label.UsedAt)
	assert.Equal(t, "Bateria 60Ah - Polaridade: Direita", res.Variant.Label())
}
