package userrepo_test

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
	"mouralws/internal/repository/userrepo"
)

func newRepo(t *testing.T) (*userrepo.UserRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return userrepo.NewUserRepository(db, time.Second, logger.Nop()), mock
}

func TestSave_NormalizesEmail(t *testing.T) {
	repo, mock := newRepo(t)
	mock.ExpectExec(`INSERT INTO users`).
		WithArgs(sqlmock.AnyArg(), "co-1", "Ana", "ana@moura.com", "hash", domain.RoleOperator, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	u, err := repo.Save(context.Background(), domain.User{
		CompanyID: "co-1", Name: "Ana", Email: "  Ana@Moura.com ", PasswordHash: "hash", Role: domain.RoleOperator,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "ana@moura.com", u.Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSave_DuplicateEmailIsConflict(t *testing.T) {
	repo, mock := newRepo(t)
	mock.ExpectExec(`INSERT INTO users`).WillReturnError(&pq.Error{Code: "23505", Constraint: "users_email_key"})

	_, err := repo.Save(context.Background(), domain.User{CompanyID: "co-1", Email: "ana@moura.com"})
	assert.True(t, apperror.IsConflict(err))
}

func TestFindByEmail(t *testing.T) {
	repo, mock := newRepo(t)
	now := time.Now()
	cols := []string{"id", "company_id", "name", "email", "password_hash", "role", "created_at", "updated_at"}
	mock.ExpectQuery(`FROM users\s+WHERE email = \$1`).
		WithArgs("ana@moura.com").
		WillReturnRows(sqlmock.NewRows(cols).AddRow("u-1", "co-1", "Ana", "ana@moura.com", "hash", "admin", now, now))

	u, err := repo.FindByEmail(context.Background(), "ANA@moura.com")
	require.NoError(t, err)
	assert.Equal(t, "u-1", u.ID)
	assert.Equal(t, domain.RoleAdmin, u.Role)
}

func TestFindByEmail_NotFound(t *testing.T) {
	repo, mock := newRepo(t)
	mock.ExpectQuery(`FROM users`).WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.FindByEmail(context.Background(), "x@y.com")
	assert.True(t, apperror.IsNotFound(err))
}

func TestCountByCompany(t *testing.T) {
	repo, mock := newRepo(t)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM users WHERE company_id = \$1`).
		WithArgs("co-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	n, err := repo.CountByCompany(context.Background(), "co-1")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}
