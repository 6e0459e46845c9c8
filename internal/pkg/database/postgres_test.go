package database_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mouralws/internal/pkg/database"
)

func TestConfigure_AppliesPoolLimits(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	database.Configure(db, database.DefaultPool)

	assert.Equal(t, database.DefaultPool.MaxOpenConns, db.Stats().MaxOpenConnections)
}

func TestIsUniqueViolation(t *testing.T) {
	dup := &pq.Error{Code: "23505", Constraint: "users_email_key"}

	assert.True(t, database.IsUniqueViolation(dup, ""))
	assert.True(t, database.IsUniqueViolation(fmt.Errorf("insert: %w", dup), "users_email_key"))
	assert.False(t, database.IsUniqueViolation(dup, "uq_counts_open_warehouse"))
	assert.False(t, database.IsUniqueViolation(&pq.Error{Code: "23503"}, ""))
	assert.False(t, database.IsUniqueViolation(errors.New("boom"), ""))
}
