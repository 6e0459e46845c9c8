package productrepo_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperror "mouralws/internal/errors"
	"mouralws/internal/pkg/cache"
	"mouralws/internal/pkg/logger"
	"mouralws/internal/repository/productrepo"
)

var (
	productCols = []string{"id", "company_id", "sku", "name", "description", "price", "is_active", "created_at", "updated_at"}
	variantCols = []string{"id", "product_id", "sku", "attribute", "value", "barcode", "price_diff", "created_at"}
	summaryCols = []string{"id", "product_id", "name", "sku", "attribute", "value", "barcode", "created_at"}
)

func newRepo(t *testing.T) (*productrepo.ProductRepository, sqlmock.Sqlmock, *miniredis.Miniredis) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mr := miniredis.RunT(t)
	client := cache.NewFromRedis(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	return productrepo.NewProductRepository(db, client, time.Second, time.Minute, logger.Nop()), mock, mr
}

func TestFindByID_CacheAside(t *testing.T) {
	repo, mock, mr := newRepo(t)
	now := time.Now().UTC().Truncate(time.Second)

	mock.ExpectQuery(`SELECT .* FROM products\s+WHERE id = \$1 AND company_id = \$2`).
		WithArgs("p-1", "co-1").
		WillReturnRows(sqlmock.NewRows(productCols).AddRow("p-1", "co-1", "BAT-60", "Bateria 60Ah", "", "499.90", true, now, now))
	mock.ExpectQuery(`SELECT .* FROM variants\s+WHERE product_id IN \(\$1\)`).
		WithArgs("p-1").
		WillReturnRows(sqlmock.NewRows(variantCols).AddRow("v-1", "p-1", "BAT-60-PRETA", "Cor", "Preta", "789100", "0", now))

	first, err := repo.FindByID(context.Background(), "co-1", "p-1")
	require.NoError(t, err)
	assert.True(t, first.Price.Equal(decimal.RequireFromString("499.90")))
	require.Len(t, first.Variants, 1)
	assert.True(t, mr.Exists("product:co-1:p-1"))

	// segunda leitura sai do cache, sem novas consultas
	second, err := repo.FindByID(context.Background(), "co-1", "p-1")
	require.NoError(t, err)
	assert.Equal(t, first.Name, second.Name)
	assert.Equal(t, "BAT-60-PRETA", second.Variants[0].SKU)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByID_NotFound(t *testing.T) {
	repo, mock, mr := newRepo(t)
	mock.ExpectQuery(`SELECT .* FROM products`).WillReturnRows(sqlmock.NewRows(productCols))

	_, err := repo.FindByID(context.Background(), "co-1", "p-x")
	assert.True(t, apperror.IsNotFound(err))
	assert.False(t, mr.Exists("product:co-1:p-x"))
}

func TestFindVariantByCode(t *testing.T) {
	repo, mock, _ := newRepo(t)
	now := time.Now()

	mock.ExpectQuery(`FROM variants v\s+JOIN products p .* v.barcode = \$2 OR v.sku = \$2`).
		WithArgs("co-1", "789100").
		WillReturnRows(sqlmock.NewRows(summaryCols).AddRow("v-1", "p-1", "Bateria 60Ah", "BAT-60-PRETA", "Cor", "Preta", "789100", now))

	v, err := repo.FindVariantByCode(context.Background(), "co-1", "789100")
	require.NoError(t, err)
	assert.Equal(t, "v-1", v.VariantID)
	assert.Equal(t, "Bateria 60Ah - Cor: Preta", v.Label())
}

func TestFindVariantByCode_Unknown(t *testing.T) {
	repo, mock, _ := newRepo(t)
	mock.ExpectQuery(`FROM variants v`).WillReturnRows(sqlmock.NewRows(summaryCols))

	_, err := repo.FindVariantByCode(context.Background(), "co-1", "000")
	assert.True(t, apperror.IsNotFound(err))
}
