package countrepo

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"mouralws/internal/domain"
	"mouralws/internal/errors"
	"mouralws/internal/pkg/database"
	"mouralws/internal/pkg/logger"
	"mouralws/internal/pkg/pagination"
	"mouralws/internal/repository/productrepo"
	"mouralws/internal/repository/stockrepo"
)

// openCountIndex garante no máximo uma contagem ABERTA por armazém.
const openCountIndex = "uq_counts_open_warehouse"

// CountRepository persiste contagens (counts) e seus itens (count_items).
type CountRepository struct {
	DB        *sql.DB
	DBTimeout time.Duration
	logger    logger.Logger
}

// NewCountRepository cria o repositório de contagens.
func NewCountRepository(db *sql.DB, dbTimeout time.Duration, logger logger.Logger) *CountRepository {
	return &CountRepository{DB: db, DBTimeout: dbTimeout, logger: logger}
}

const countColumns = `id, company_id, warehouse_id, status, opened_by, created_at, closed_at`

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func scanCount(row interface{ Scan(...interface{}) error }) (domain.Count, error) {
	var c domain.Count
	var closedAt sql.NullTime
	err := row.Scan(&c.ID, &c.CompanyID, &c.WarehouseID, &c.Status, &c.OpenedBy, &c.CreatedAt, &closedAt)
	if closedAt.Valid {
		c.ClosedAt = &closedAt.Time
	}
	return c, err
}

// Open insere uma contagem ABERTA. Outra contagem aberta no armazém devolve ConflictError.
func (r *CountRepository) Open(ctx context.Context, count domain.Count) (domain.Count, error) {
	r.logger.Debug("Abrindo contagem no repositório.", map[string]interface{}{"warehouse_id": count.WarehouseID})

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	_, err := r.DB.ExecContext(ctxTimeout, `
        INSERT INTO counts (`+countColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, NULL)`,
		count.ID, count.CompanyID, count.WarehouseID, count.Status, count.OpenedBy, count.CreatedAt)
	if err != nil {
		if database.IsUniqueViolation(err, openCountIndex) {
			r.logger.Warn("Já existe contagem aberta no armazém.", map[string]interface{}{"warehouse_id": count.WarehouseID})
			return domain.Count{}, errors.NewConflictError("Já existe uma contagem aberta para este armazém.")
		}
		r.logger.Error("Falha ao inserir contagem no DB.", err)
		return domain.Count{}, errors.NewDBError("Falha ao abrir contagem", err)
	}

	r.logger.Info("Contagem aberta.", map[string]interface{}{"count_id": count.ID, "warehouse_id": count.WarehouseID})
	return count, nil
}

// FindByID busca uma contagem da empresa.
func (r *CountRepository) FindByID(ctx context.Context, companyID, id string) (domain.Count, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	c, err := scanCount(r.DB.QueryRowContext(ctxTimeout,
		`SELECT `+countColumns+` FROM counts WHERE id = $1 AND company_id = $2`, id, companyID))
	if err == sql.ErrNoRows {
		return domain.Count{}, errors.NewNotFoundError(fmt.Sprintf("Contagem %s não encontrada.", id))
	}
	if err != nil {
		r.logger.Error("Falha ao buscar contagem no DB.", err)
		return domain.Count{}, errors.NewDBError("Falha ao buscar contagem", err)
	}
	return c, nil
}

// List lista as contagens da empresa (cursor), com filtro opcional de status e armazém.
func (r *CountRepository) List(ctx context.Context, companyID string, filter domain.CountFilter, page pagination.Page) ([]domain.Count, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	conds := []string{"company_id = $1"}
	args := []interface{}{companyID}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.WarehouseID != "" {
		args = append(args, filter.WarehouseID)
		conds = append(conds, fmt.Sprintf("warehouse_id = $%d", len(args)))
	}
	cursorSQL, cursorArgs := page.Where("created_at", "id", len(args)+1)
	conds = append(conds, cursorSQL)
	args = append(args, cursorArgs...)
	args = append(args, page.FetchLimit())

	query := fmt.Sprintf(`
        SELECT %s FROM counts
        WHERE %s
        ORDER BY created_at DESC, id DESC
        LIMIT $%d`, countColumns, strings.Join(conds, " AND "), len(args))

	rows, err := r.DB.QueryContext(ctxTimeout, query, args...)
	if err != nil {
		r.logger.Error("Falha ao listar contagens.", err)
		return nil, errors.NewDBError("Falha ao listar contagens", err)
	}
	defer rows.Close()

	var out []domain.Count
	for rows.Next() {
		c, err := scanCount(rows)
		if err != nil {
			return nil, errors.NewDBError("Falha ao mapear contagens", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewDBError("Erro após iteração de contagens", err)
	}
	return out, nil
}

// lockOpen trava a contagem na transação e exige status ABERTA.
func lockOpen(ctx context.Context, tx *sql.Tx, companyID, countID string) (domain.Count, error) {
	c, err := scanCount(tx.QueryRowContext(ctx,
		`SELECT `+countColumns+` FROM counts WHERE id = $1 AND company_id = $2 FOR UPDATE`, countID, companyID))
	if err == sql.ErrNoRows {
		return domain.Count{}, errors.NewNotFoundError(fmt.Sprintf("Contagem %s não encontrada.", countID))
	}
	if err != nil {
		return domain.Count{}, errors.NewDBError("Falha ao buscar contagem", err)
	}
	if c.Status != domain.CountOpen {
		return domain.Count{}, errors.NewConflictError("A contagem já está fechada.")
	}
	return c, nil
}

// AddQuantity soma qty ao item da variante (criando-o se preciso) e devolve o total contado.
func (r *CountRepository) AddQuantity(ctx context.Context, companyID, countID, variantID string, qty int) (domain.CountItem, error) {
	r.logger.Debug("Registrando leitura na contagem.", map[string]interface{}{"count_id": countID, "variant_id": variantID, "quantity": qty})

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	tx, err := r.DB.BeginTx(ctxTimeout, nil)
	if err != nil {
		return domain.CountItem{}, errors.NewDBError("Falha ao iniciar transação", err)
	}
	defer tx.Rollback()

	if _, err := lockOpen(ctxTimeout, tx, companyID, countID); err != nil {
		return domain.CountItem{}, err
	}

	item := domain.CountItem{CountID: countID}
	item.Variant.VariantID = variantID
	err = tx.QueryRowContext(ctxTimeout, `
        INSERT INTO count_items (count_id, variant_id, quantity, updated_at)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (count_id, variant_id)
        DO UPDATE SET quantity = count_items.quantity + EXCLUDED.quantity, updated_at = EXCLUDED.updated_at
        RETURNING quantity, updated_at`,
		countID, variantID, qty, time.Now().UTC()).Scan(&item.Quantity, &item.UpdatedAt)
	if err != nil {
		r.logger.Error("Falha ao registrar item da contagem.", err)
		return domain.CountItem{}, errors.NewDBError("Falha ao registrar leitura", err)
	}

	if err := tx.Commit(); err != nil {
		return domain.CountItem{}, errors.NewDBError("Falha ao commitar transação", err)
	}
	return item, nil
}

// Items lista os itens contados com a descrição da variante.
func (r *CountRepository) Items(ctx context.Context, countID string) ([]domain.CountItem, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	rows, err := r.DB.QueryContext(ctxTimeout, `
        SELECT `+productrepo.VariantSummaryColumns+`, ci.quantity, ci.updated_at
        FROM count_items ci
        JOIN variants v ON v.id = ci.variant_id
        JOIN products p ON p.id = v.product_id
        WHERE ci.count_id = $1
        ORDER BY p.name, v.sku`, countID)
	if err != nil {
		r.logger.Error("Falha ao listar itens da contagem.", err)
		return nil, errors.NewDBError("Falha ao listar itens", err)
	}
	defer rows.Close()

	items := []domain.CountItem{}
	for rows.Next() {
		item := domain.CountItem{CountID: countID}
		v, err := productrepo.ScanVariantSummary(rows, &item.Quantity, &item.UpdatedAt)
		if err != nil {
			return nil, errors.NewDBError("Falha ao mapear itens", err)
		}
		item.Variant = v
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewDBError("Erro após iteração de itens", err)
	}
	return items, nil
}

// Compare confronta o contado com o estoque do armazém. Inclui as variantes contadas e as
// variantes com saldo no armazém que não foram contadas (contado = 0).
// Contagem FECHADA devolve a comparação gravada no fechamento, não o estoque atual.
func (r *CountRepository) Compare(ctx context.Context, count domain.Count) ([]domain.CountDivergence, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()
	if count.Status == domain.CountClosed {
		return closedComparison(ctxTimeout, r.DB, count.ID)
	}
	return compare(ctxTimeout, r.DB, count)
}

func compare(ctx context.Context, q queryer, count domain.Count) ([]domain.CountDivergence, error) {
	rows, err := q.QueryContext(ctx, `
        SELECT `+productrepo.VariantSummaryColumns+`, COALESCE(ci.quantity, 0), COALESCE(sl.quantity, 0)
        FROM (
            SELECT variant_id FROM count_items WHERE count_id = $1
            UNION
            SELECT variant_id FROM stock_levels WHERE warehouse_id = $2 AND quantity > 0
        ) ids
        JOIN variants v ON v.id = ids.variant_id
        JOIN products p ON p.id = v.product_id
        LEFT JOIN count_items ci ON ci.count_id = $1 AND ci.variant_id = ids.variant_id
        LEFT JOIN stock_levels sl ON sl.warehouse_id = $2 AND sl.variant_id = ids.variant_id
        ORDER BY p.name, v.sku`, count.ID, count.WarehouseID)
	if err != nil {
		return nil, errors.NewDBError("Falha ao comparar contagem com estoque", err)
	}
	return scanComparison(rows)
}

func closedComparison(ctx context.Context, q queryer, countID string) ([]domain.CountDivergence, error) {
	rows, err := q.QueryContext(ctx, `
        SELECT `+productrepo.VariantSummaryColumns+`, cr.counted, cr.system_quantity
        FROM count_results cr
        JOIN variants v ON v.id = cr.variant_id
        JOIN products p ON p.id = v.product_id
        WHERE cr.count_id = $1
        ORDER BY p.name, v.sku`, countID)
	if err != nil {
		return nil, errors.NewDBError("Falha ao ler o resultado da contagem", err)
	}
	return scanComparison(rows)
}

func scanComparison(rows *sql.Rows) ([]domain.CountDivergence, error) {
	defer rows.Close()

	out := []domain.CountDivergence{}
	for rows.Next() {
		var d domain.CountDivergence
		v, err := productrepo.ScanVariantSummary(rows, &d.Counted, &d.SystemQuantity)
		if err != nil {
			return nil, errors.NewDBError("Falha ao mapear comparação", err)
		}
		d.Variant = v
		d.Difference = d.Counted - d.SystemQuantity
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewDBError("Erro após iteração da comparação", err)
	}
	return out, nil
}

// Close fecha a contagem (ABERTA → FECHADA) e devolve a comparação completa com o estoque.
// A comparação é gravada em count_results antes de qualquer ajuste. Com adjust, o estoque de
// cada variante divergente passa a ser o contado, na mesma transação.
func (r *CountRepository) Close(ctx context.Context, companyID, countID string, adjust bool) (domain.Count, []domain.CountDivergence, error) {
	r.logger.Debug("Fechando contagem no repositório.", map[string]interface{}{"count_id": countID, "adjust_stock": adjust})

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	tx, err := r.DB.BeginTx(ctxTimeout, nil)
	if err != nil {
		return domain.Count{}, nil, errors.NewDBError("Falha ao iniciar transação", err)
	}
	defer tx.Rollback()

	count, err := lockOpen(ctxTimeout, tx, companyID, countID)
	if err != nil {
		return domain.Count{}, nil, err
	}

	rows, err := compare(ctxTimeout, tx, count)
	if err != nil {
		r.logger.Error("Falha ao comparar contagem.", err)
		return domain.Count{}, nil, err
	}

	for _, d := range rows {
		if _, err := tx.ExecContext(ctxTimeout, `
            INSERT INTO count_results (count_id, variant_id, counted, system_quantity)
            VALUES ($1, $2, $3, $4)`, countID, d.Variant.VariantID, d.Counted, d.SystemQuantity); err != nil {
			r.logger.Error("Falha ao gravar resultado da contagem.", err)
			return domain.Count{}, nil, errors.NewDBError("Falha ao gravar resultado da contagem", err)
		}
	}

	if adjust {
		for _, d := range rows {
			if d.Difference == 0 {
				continue
			}
			if _, err := stockrepo.SetInTx(ctxTimeout, tx, d.Variant.VariantID, count.WarehouseID, d.Counted); err != nil {
				r.logger.Warn("Falha ao ajustar estoque no fechamento.", map[string]interface{}{"variant_id": d.Variant.VariantID, "error": err.Error()})
				return domain.Count{}, nil, err
			}
		}
	}

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctxTimeout, `UPDATE counts SET status = $2, closed_at = $3 WHERE id = $1`,
		countID, domain.CountClosed, now); err != nil {
		r.logger.Error("Falha ao fechar contagem.", err)
		return domain.Count{}, nil, errors.NewDBError("Falha ao fechar contagem", err)
	}

	if err := tx.Commit(); err != nil {
		return domain.Count{}, nil, errors.NewDBError("Falha ao commitar transação", err)
	}

	count.Status = domain.CountClosed
	count.ClosedAt = &now
	r.logger.Info("Contagem fechada.", map[string]interface{}{"count_id": countID, "variants": len(rows), "adjust_stock": adjust})
	return count, rows, nil
}
