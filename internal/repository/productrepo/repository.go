package productrepo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"mouralws/internal/domain"
	"mouralws/internal/errors"
	"mouralws/internal/pkg/cache"
	"mouralws/internal/pkg/database"
	"mouralws/internal/pkg/logger"
	"mouralws/internal/pkg/pagination"
)

// ProductRepository acessa produtos e variantes no PostgreSQL, com cache-aside no Redis
// para a leitura por ID.
type ProductRepository struct {
	DB        *sql.DB      // Conexão principal com o banco de dados (PostgreSQL)
	Cache     cache.Client // Cliente para operações de cache (Redis)
	DBTimeout time.Duration
	CacheTTL  time.Duration
	logger    logger.Logger
}

// NewProductRepository cria e retorna uma nova instância do Repositório.
func NewProductRepository(db *sql.DB, cacheClient cache.Client, dbTimeout, cacheTTL time.Duration, logger logger.Logger) *ProductRepository {
	return &ProductRepository{
		DB:        db,
		Cache:     cacheClient,
		DBTimeout: dbTimeout,
		CacheTTL:  cacheTTL,
		logger:    logger,
	}
}

// VariantSummaryColumns são as colunas lidas por ScanVariantSummary. As consultas devem
// usar os aliases v (variants) e p (products).
const VariantSummaryColumns = `v.id, v.product_id, p.name, v.sku, v.attribute, v.value, v.barcode, v.created_at`

// RowScanner é satisfeito por *sql.Row e *sql.Rows.
type RowScanner interface {
	Scan(dest ...interface{}) error
}

// ScanVariantSummary lê as colunas de VariantSummaryColumns seguidas de extra.
func ScanVariantSummary(row RowScanner, extra ...interface{}) (domain.VariantSummary, error) {
	var v domain.VariantSummary
	dest := []interface{}{&v.VariantID, &v.ProductID, &v.ProductName, &v.SKU, &v.Attribute, &v.Value, &v.Barcode, &v.CreatedAt}
	err := row.Scan(append(dest, extra...)...)
	return v, err
}

// Save persiste um novo Produto e suas Variantes em uma transação.
func (r *ProductRepository) Save(ctx context.Context, product domain.Product, variants []domain.Variant) (domain.Product, error) {
	r.logger.Debug("Iniciando Save de produto no repositório.", map[string]interface{}{"sku": product.SKU, "variants": len(variants)})

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	tx, err := r.DB.BeginTx(ctxTimeout, nil)
	if err != nil {
		r.logger.Error("Falha ao iniciar transação de produto.", err)
		return domain.Product{}, errors.NewDBError("Falha ao iniciar transação", err)
	}
	defer tx.Rollback()

	const productSQL = `
        INSERT INTO products (id, company_id, sku, name, description, price, is_active, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err = tx.ExecContext(ctxTimeout, productSQL,
		product.ID,
		product.CompanyID,
		product.SKU,
		product.Name,
		product.Description,
		product.Price,
		product.IsActive,
		product.CreatedAt,
		product.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err, "") {
			r.logger.Warn("SKU de produto duplicado.", map[string]interface{}{"sku": product.SKU})
			return domain.Product{}, errors.NewConflictError(fmt.Sprintf("Já existe um produto com o SKU '%s'.", product.SKU))
		}
		r.logger.Error("Falha ao inserir produto no DB.", err)
		return domain.Product{}, errors.NewDBError("Falha ao inserir produto", err)
	}

	const variantSQL = `
        INSERT INTO variants (id, product_id, sku, attribute, value, barcode, price_diff, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	for _, v := range variants {
		_, err = tx.ExecContext(ctxTimeout, variantSQL,
			v.ID,
			v.ProductID,
			v.SKU,
			v.Attribute,
			v.Value,
			v.Barcode,
			v.PriceDiff,
			v.CreatedAt,
		)
		if err != nil {
			r.logger.Error("Falha ao inserir variante no DB.", err)
			return domain.Product{}, errors.NewDBError("Falha ao inserir variantes", err)
		}
	}

	if err = tx.Commit(); err != nil {
		r.logger.Error("Falha ao commitar transação de produto.", err)
		return domain.Product{}, errors.NewDBError("Falha ao commitar transação", err)
	}

	product.Variants = variants
	r.logger.Info("Produto salvo com sucesso.", map[string]interface{}{"product_id": product.ID, "sku": product.SKU})
	return product, nil
}

// Define a chave de cache para produtos.
const productCacheKey = "product:%s:%s"

// FindByID busca um produto (com variantes) pelo ID, utilizando a estratégia Cache-Aside.
func (r *ProductRepository) FindByID(ctx context.Context, companyID, id string) (domain.Product, error) {
	ctxGo, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	key := fmt.Sprintf(productCacheKey, companyID, id)
	var product domain.Product

	// --- Cache-Aside (READ) ---
	cachedData, err := r.Cache.Get(ctxGo, key)
	if err == nil {
		if json.Unmarshal([]byte(cachedData), &product) == nil {
			r.logger.Debug("Produto servido do cache.", map[string]interface{}{"product_id": id})
			return product, nil
		}
		r.logger.Warn("Falha ao desserializar produto do cache.", map[string]interface{}{"key": key})
	} else if err != cache.ErrCacheMiss {
		// Erro real de cache (ex: conexão perdida): seguimos para o DB.
		r.logger.Warn("Falha ao ler do cache Redis.", map[string]interface{}{"key": key, "error": err.Error()})
	}

	productSQL := `
		SELECT id, company_id, sku, name, description, price, is_active, created_at, updated_at
		FROM products
		WHERE id = $1 AND company_id = $2`

	err = r.DB.QueryRowContext(ctxGo, productSQL, id, companyID).Scan(
		&product.ID,
		&product.CompanyID,
		&product.SKU,
		&product.Name,
		&product.Description,
		&product.Price,
		&product.IsActive,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return domain.Product{}, errors.NewNotFoundError(fmt.Sprintf("Produto com ID %s não existe na base de dados.", id))
	}
	if err != nil {
		r.logger.Error("Falha ao buscar produto no DB.", err)
		return domain.Product{}, errors.NewDBError("Falha ao buscar produto no DB", err)
	}

	variants, err := r.variantsOf(ctxGo, []string{product.ID})
	if err != nil {
		return domain.Product{}, err
	}
	product.Variants = variants[product.ID]
	if product.Variants == nil {
		product.Variants = []domain.Variant{}
	}

	// --- Cache-Aside (WRITE) ---
	if productJSON, marshalErr := json.Marshal(product); marshalErr == nil {
		if err := r.Cache.Set(ctxGo, key, productJSON, r.CacheTTL); err != nil {
			r.logger.Warn("Falha ao gravar produto no cache.", map[string]interface{}{"key": key, "error": err.Error()})
		}
	}

	return product, nil
}

// List lista produtos da empresa em ordem decrescente de criação (cursor).
// Devolve até page.FetchLimit() linhas para que o chamador detecte a próxima página.
func (r *ProductRepository) List(ctx context.Context, companyID string, filter domain.ProductFilter, page pagination.Page) ([]domain.Product, error) {
	r.logger.Debug("Listando produtos no repositório.", map[string]interface{}{"company_id": companyID, "limit": page.Limit})

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	conds := []string{"company_id = $1"}
	args := []interface{}{companyID}
	if filter.Name != "" {
		args = append(args, "%"+filter.Name+"%")
		conds = append(conds, fmt.Sprintf("name ILIKE $%d", len(args)))
	}
	if filter.SKU != "" {
		args = append(args, filter.SKU)
		conds = append(conds, fmt.Sprintf("sku = $%d", len(args)))
	}
	if filter.ActiveOnly {
		conds = append(conds, "is_active")
	}
	cursorSQL, cursorArgs := page.Where("created_at", "id", len(args)+1)
	conds = append(conds, cursorSQL)
	args = append(args, cursorArgs...)
	args = append(args, page.FetchLimit())

	query := fmt.Sprintf(`
        SELECT id, company_id, sku, name, description, price, is_active, created_at, updated_at
        FROM products
        WHERE %s
        ORDER BY created_at DESC, id DESC
        LIMIT $%d`, strings.Join(conds, " AND "), len(args))

	rows, err := r.DB.QueryContext(ctxTimeout, query, args...)
	if err != nil {
		r.logger.Error("Falha ao listar produtos.", err)
		return nil, errors.NewDBError("Falha ao listar produtos", err)
	}
	defer rows.Close()

	var products []domain.Product
	var ids []string
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.CompanyID, &p.SKU, &p.Name, &p.Description, &p.Price, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
			r.logger.Error("Falha ao mapear produto.", err)
			return nil, errors.NewDBError("Falha ao mapear produtos do DB", err)
		}
		products = append(products, p)
		ids = append(ids, p.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewDBError("Erro após iteração de produtos", err)
	}

	if len(ids) > 0 {
		variants, err := r.variantsOf(ctxTimeout, ids)
		if err != nil {
			return nil, err
		}
		for i := range products {
			products[i].Variants = variants[products[i].ID]
			if products[i].Variants == nil {
				products[i].Variants = []domain.Variant{}
			}
		}
	}
	return products, nil
}

func (r *ProductRepository) variantsOf(ctx context.Context, productIDs []string) (map[string][]domain.Variant, error) {
	placeholders := make([]string, len(productIDs))
	args := make([]interface{}, len(productIDs))
	for i, id := range productIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	query := fmt.Sprintf(`
        SELECT id, product_id, sku, attribute, value, barcode, price_diff, created_at
        FROM variants
        WHERE product_id IN (%s)
        ORDER BY created_at, id`, strings.Join(placeholders, ", "))

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Falha ao buscar variantes.", err)
		return nil, errors.NewDBError("Falha ao buscar variantes", err)
	}
	defer rows.Close()

	out := make(map[string][]domain.Variant, len(productIDs))
	for rows.Next() {
		var v domain.Variant
		if err := rows.Scan(&v.ID, &v.ProductID, &v.SKU, &v.Attribute, &v.Value, &v.Barcode, &v.PriceDiff, &v.CreatedAt); err != nil {
			return nil, errors.NewDBError("Falha ao mapear variantes", err)
		}
		out[v.ProductID] = append(out[v.ProductID], v)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewDBError("Erro após iteração de variantes", err)
	}
	return out, nil
}

// SearchVariants busca variantes por código de barras, SKU ou nome do produto.
func (r *ProductRepository) SearchVariants(ctx context.Context, companyID, q string, page pagination.Page) ([]domain.VariantSummary, error) {
	r.logger.Debug("Buscando variantes no repositório.", map[string]interface{}{"company_id": companyID, "q": q})

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	args := []interface{}{companyID}
	conds := []string{"p.company_id = $1"}
	if q = strings.TrimSpace(q); q != "" {
		args = append(args, q, "%"+q+"%")
		conds = append(conds, fmt.Sprintf("(v.barcode = $%d OR v.sku = $%d OR p.name ILIKE $%d)", len(args)-1, len(args)-1, len(args)))
	}
	cursorSQL, cursorArgs := page.Where("v.created_at", "v.id", len(args)+1)
	conds = append(conds, cursorSQL)
	args = append(args, cursorArgs...)
	args = append(args, page.FetchLimit())

	query := fmt.Sprintf(`
        SELECT %s
        FROM variants v
        JOIN products p ON p.id = v.product_id
        WHERE %s
        ORDER BY v.created_at DESC, v.id DESC
        LIMIT $%d`, VariantSummaryColumns, strings.Join(conds, " AND "), len(args))

	rows, err := r.DB.QueryContext(ctxTimeout, query, args...)
	if err != nil {
		r.logger.Error("Falha ao buscar variantes.", err)
		return nil, errors.NewDBError("Falha ao buscar variantes", err)
	}
	defer rows.Close()

	var out []domain.VariantSummary
	for rows.Next() {
		v, err := ScanVariantSummary(rows)
		if err != nil {
			return nil, errors.NewDBError("Falha ao mapear variantes", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewDBError("Erro após iteração de variantes", err)
	}
	return out, nil
}

// FindVariant busca uma variante da empresa pelo ID.
func (r *ProductRepository) FindVariant(ctx context.Context, companyID, variantID string) (domain.VariantSummary, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := `
        SELECT ` + VariantSummaryColumns + `
        FROM variants v
        JOIN products p ON p.id = v.product_id
        WHERE v.id = $1 AND p.company_id = $2`

	v, err := ScanVariantSummary(r.DB.QueryRowContext(ctxTimeout, query, variantID, companyID))
	if err == sql.ErrNoRows {
		return domain.VariantSummary{}, errors.NewNotFoundError(fmt.Sprintf("Variante com ID %s não encontrada.", variantID))
	}
	if err != nil {
		r.logger.Error("Falha ao buscar variante no DB.", err)
		return domain.VariantSummary{}, errors.NewDBError("Falha ao buscar variante", err)
	}
	return v, nil
}

// FindVariantByCode resolve um código lido (código de barras ou SKU) para a variante.
// Código de barras tem precedência sobre SKU.
func (r *ProductRepository) FindVariantByCode(ctx context.Context, companyID, code string) (domain.VariantSummary, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := `
        SELECT ` + VariantSummaryColumns + `
        FROM variants v
        JOIN products p ON p.id = v.product_id
        WHERE p.company_id = $1 AND (v.barcode = $2 OR v.sku = $2)
        ORDER BY (v.barcode = $2) DESC, v.created_at
        LIMIT 1`

	v, err := ScanVariantSummary(r.DB.QueryRowContext(ctxTimeout, query, companyID, code))
	if err == sql.ErrNoRows {
		return domain.VariantSummary{}, errors.NewNotFoundError(fmt.Sprintf("Nenhuma variante com código '%s'.", code))
	}
	if err != nil {
		r.logger.Error("Falha ao resolver código de variante.", err)
		return domain.VariantSummary{}, errors.NewDBError("Falha ao resolver código", err)
	}
	return v, nil
}
