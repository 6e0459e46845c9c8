package receivingrepo

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"mouralws/internal/domain"
	"mouralws/internal/errors"
	"mouralws/internal/pkg/logger"
	"mouralws/internal/pkg/pagination"
	"mouralws/internal/repository/labelrepo"
	"mouralws/internal/repository/productrepo"
	"mouralws/internal/repository/stockrepo"
)

// RefPrefix compõe a referência gravada na etiqueta consumida ("recebimento:<id>").
const RefPrefix = "recebimento:"

// ReceivingRepository persiste recebimentos e seus itens.
type ReceivingRepository struct {
	DB        *sql.DB
	DBTimeout time.Duration
	logger    logger.Logger
}

// NewReceivingRepository cria o repositório de recebimentos.
func NewReceivingRepository(db *sql.DB, dbTimeout time.Duration, logger logger.Logger) *ReceivingRepository {
	return &ReceivingRepository{DB: db, DBTimeout: dbTimeout, logger: logger}
}

const receivingColumns = `id, company_id, warehouse_id, supplier, invoice_number, status, reason, created_by, created_at, decided_at`

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

func scanReceiving(row interface{ Scan(...interface{}) error }) (domain.Receiving, error) {
	var r domain.Receiving
	var decidedAt sql.NullTime
	err := row.Scan(&r.ID, &r.CompanyID, &r.WarehouseID, &r.Supplier, &r.InvoiceNumber, &r.Status, &r.Reason, &r.CreatedBy, &r.CreatedAt, &decidedAt)
	if decidedAt.Valid {
		r.DecidedAt = &decidedAt.Time
	}
	return r, err
}

// Create insere o recebimento ABERTO com os itens esperados (recebido = 0).
func (r *ReceivingRepository) Create(ctx context.Context, rec domain.Receiving, expected map[string]int) (domain.Receiving, error) {
	r.logger.Debug("Criando recebimento no repositório.", map[string]interface{}{"warehouse_id": rec.WarehouseID, "items": len(expected)})

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	tx, err := r.DB.BeginTx(ctxTimeout, nil)
	if err != nil {
		return domain.Receiving{}, errors.NewDBError("Falha ao iniciar transação", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctxTimeout, `
        INSERT INTO receivings (`+receivingColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULL)`,
		rec.ID, rec.CompanyID, rec.WarehouseID, rec.Supplier, rec.InvoiceNumber, rec.Status, rec.Reason, rec.CreatedBy, rec.CreatedAt)
	if err != nil {
		r.logger.Error("Falha ao inserir recebimento.", err)
		return domain.Receiving{}, errors.NewDBError("Falha ao criar recebimento", err)
	}

	for variantID, qty := range expected {
		if _, err := tx.ExecContext(ctxTimeout,
			`INSERT INTO receiving_items (receiving_id, variant_id, expected, received) VALUES ($1, $2, $3, 0)`,
			rec.ID, variantID, qty); err != nil {
			r.logger.Error("Falha ao inserir item do recebimento.", err)
			return domain.Receiving{}, errors.NewDBError("Falha ao inserir itens do recebimento", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.Receiving{}, errors.NewDBError("Falha ao commitar transação", err)
	}

	r.logger.Info("Recebimento criado.", map[string]interface{}{"receiving_id": rec.ID})
	return rec, nil
}

// FindByID busca o recebimento da empresa com seus itens.
func (r *ReceivingRepository) FindByID(ctx context.Context, companyID, id string) (domain.Receiving, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	rec, err := scanReceiving(r.DB.QueryRowContext(ctxTimeout,
		`SELECT `+receivingColumns+` FROM receivings WHERE id = $1 AND company_id = $2`, id, companyID))
	if err == sql.ErrNoRows {
		return domain.Receiving{}, errors.NewNotFoundError(fmt.Sprintf("Recebimento %s não encontrado.", id))
	}
	if err != nil {
		r.logger.Error("Falha ao buscar recebimento.", err)
		return domain.Receiving{}, errors.NewDBError("Falha ao buscar recebimento", err)
	}

	rec.Items, err = items(ctxTimeout, r.DB, id)
	if err != nil {
		r.logger.Error("Falha ao buscar itens do recebimento.", err)
		return domain.Receiving{}, err
	}
	return rec, nil
}

func items(ctx context.Context, q queryer, receivingID string) ([]domain.ReceivingItem, error) {
	rows, err := q.QueryContext(ctx, `
        SELECT `+productrepo.VariantSummaryColumns+`, ri.expected, ri.received
        FROM receiving_items ri
        JOIN variants v ON v.id = ri.variant_id
        JOIN products p ON p.id = v.product_id
        WHERE ri.receiving_id = $1
        ORDER BY p.name, v.sku`, receivingID)
	if err != nil {
		return nil, errors.NewDBError("Falha ao listar itens do recebimento", err)
	}
	defer rows.Close()

	out := []domain.ReceivingItem{}
	for rows.Next() {
		var it domain.ReceivingItem
		v, err := productrepo.ScanVariantSummary(rows, &it.Expected, &it.Received)
		if err != nil {
			return nil, errors.NewDBError("Falha ao mapear itens do recebimento", err)
		}
		it.Variant = v
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewDBError("Erro após iteração de itens", err)
	}
	return out, nil
}

// List lista os recebimentos da empresa (sem itens), com filtro opcional de status.
func (r *ReceivingRepository) List(ctx context.Context, companyID string, filter domain.ReceivingFilter, page pagination.Page) ([]domain.Receiving, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	conds := []string{"company_id = $1"}
	args := []interface{}{companyID}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	cursorSQL, cursorArgs := page.Where("created_at", "id", len(args)+1)
	conds = append(conds, cursorSQL)
	args = append(args, cursorArgs...)
	args = append(args, page.FetchLimit())

	query := fmt.Sprintf(`
        SELECT %s FROM receivings
        WHERE %s
        ORDER BY created_at DESC, id DESC
        LIMIT $%d`, receivingColumns, strings.Join(conds, " AND "), len(args))

	rows, err := r.DB.QueryContext(ctxTimeout, query, args...)
	if err != nil {
		r.logger.Error("Falha ao listar recebimentos.", err)
		return nil, errors.NewDBError("Falha ao listar recebimentos", err)
	}
	defer rows.Close()

	var out []domain.Receiving
	for rows.Next() {
		rec, err := scanReceiving(rows)
		if err != nil {
			return nil, errors.NewDBError("Falha ao mapear recebimentos", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewDBError("Erro após iteração de recebimentos", err)
	}
	return out, nil
}

func lockOpen(ctx context.Context, tx *sql.Tx, companyID, id string) (domain.Receiving, error) {
	rec, err := scanReceiving(tx.QueryRowContext(ctx,
		`SELECT `+receivingColumns+` FROM receivings WHERE id = $1 AND company_id = $2 FOR UPDATE`, id, companyID))
	if err == sql.ErrNoRows {
		return domain.Receiving{}, errors.NewNotFoundError(fmt.Sprintf("Recebimento %s não encontrado.", id))
	}
	if err != nil {
		return domain.Receiving{}, errors.NewDBError("Falha ao buscar recebimento", err)
	}
	if rec.Status != domain.ReceivingOpen {
		return domain.Receiving{}, errors.NewConflictError(fmt.Sprintf("Recebimento já decidido (%s).", rec.Status))
	}
	return rec, nil
}

// RegisterLabelRead consome a etiqueta lida e soma uma unidade ao item da sua variante.
// Variante fora da nota entra com esperado = 0.
func (r *ReceivingRepository) RegisterLabelRead(ctx context.Context, companyID, receivingID, code string) (domain.Label, domain.ReceivingItem, error) {
	r.logger.Debug("Registrando leitura no recebimento.", map[string]interface{}{"receiving_id": receivingID, "code": code})

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	tx, err := r.DB.BeginTx(ctxTimeout, nil)
	if err != nil {
		return domain.Label{}, domain.ReceivingItem{}, errors.NewDBError("Falha ao iniciar transação", err)
	}
	defer tx.Rollback()

	if _, err := lockOpen(ctxTimeout, tx, companyID, receivingID); err != nil {
		return domain.Label{}, domain.ReceivingItem{}, err
	}

	label, err := labelrepo.ConsumeInTx(ctxTimeout, tx, companyID, code, RefPrefix+receivingID, time.Now().UTC())
	if err != nil {
		r.logger.Warn("Etiqueta recusada no recebimento.", map[string]interface{}{"code": code, "error": err.Error()})
		return domain.Label{}, domain.ReceivingItem{}, err
	}

	var item domain.ReceivingItem
	item.Variant.VariantID = label.VariantID
	err = tx.QueryRowContext(ctxTimeout, `
        INSERT INTO receiving_items (receiving_id, variant_id, expected, received)
        VALUES ($1, $2, 0, 1)
        ON CONFLICT (receiving_id, variant_id)
        DO UPDATE SET received = receiving_items.received + 1
        RETURNING expected, received`, receivingID, label.VariantID).Scan(&item.Expected, &item.Received)
	if err != nil {
		r.logger.Error("Falha ao atualizar item do recebimento.", err)
		return domain.Label{}, domain.ReceivingItem{}, errors.NewDBError("Falha ao registrar leitura", err)
	}

	if err := tx.Commit(); err != nil {
		return domain.Label{}, domain.ReceivingItem{}, errors.NewDBError("Falha ao commitar transação", err)
	}

	r.logger.Info("Leitura registrada no recebimento.", map[string]interface{}{"receiving_id": receivingID, "variant_id": label.VariantID, "received": item.Received})
	return label, item, nil
}

// Approve aprova o recebimento e soma o recebido ao estoque do armazém, tudo na mesma
// transação. Itens divergentes sem allowDivergence devolvem ConflictError.
func (r *ReceivingRepository) Approve(ctx context.Context, companyID, id string, allowDivergence bool) (domain.Receiving, error) {
	r.logger.Debug("Aprovando recebimento no repositório.", map[string]interface{}{"receiving_id": id, "allow_divergence": allowDivergence})

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	tx, err := r.DB.BeginTx(ctxTimeout, nil)
	if err != nil {
		return domain.Receiving{}, errors.NewDBError("Falha ao iniciar transação", err)
	}
	defer tx.Rollback()

	rec, err := lockOpen(ctxTimeout, tx, companyID, id)
	if err != nil {
		return domain.Receiving{}, err
	}
	rec.Items, err = items(ctxTimeout, tx, id)
	if err != nil {
		return domain.Receiving{}, err
	}

	if div := rec.Divergences(); len(div) > 0 && !allowDivergence {
		r.logger.Warn("Aprovação recusada por divergência.", map[string]interface{}{"receiving_id": id, "divergent_items": len(div)})
		return domain.Receiving{}, errors.NewConflictError(fmt.Sprintf("Recebimento possui %d item(ns) divergente(s).", len(div)))
	}

	for _, it := range rec.Items {
		if it.Received == 0 {
			continue
		}
		if _, err := stockrepo.AddInTx(ctxTimeout, tx, it.Variant.VariantID, rec.WarehouseID, it.Received); err != nil {
			r.logger.Warn("Falha ao lançar estoque do recebimento.", map[string]interface{}{"variant_id": it.Variant.VariantID, "error": err.Error()})
			return domain.Receiving{}, err
		}
	}

	if err := r.decide(ctxTimeout, tx, &rec, domain.ReceivingApproved, ""); err != nil {
		return domain.Receiving{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Receiving{}, errors.NewDBError("Falha ao commitar transação", err)
	}

	r.logger.Info("Recebimento aprovado.", map[string]interface{}{"receiving_id": id})
	return rec, nil
}

// Reject reprova o recebimento com o motivo informado. O estoque não é alterado.
func (r *ReceivingRepository) Reject(ctx context.Context, companyID, id, reason string) (domain.Receiving, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	tx, err := r.DB.BeginTx(ctxTimeout, nil)
	if err != nil {
		return domain.Receiving{}, errors.NewDBError("Falha ao iniciar transação", err)
	}
	defer tx.Rollback()

	rec, err := lockOpen(ctxTimeout, tx, companyID, id)
	if err != nil {
		return domain.Receiving{}, err
	}
	if err := r.decide(ctxTimeout, tx, &rec, domain.ReceivingRejected, reason); err != nil {
		return domain.Receiving{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Receiving{}, errors.NewDBError("Falha ao commitar transação", err)
	}

	r.logger.Info("Recebimento reprovado.", map[string]interface{}{"receiving_id": id})
	return rec, nil
}

func (r *ReceivingRepository) decide(ctx context.Context, tx *sql.Tx, rec *domain.Receiving, status domain.ReceivingStatus, reason string) error {
	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx, `UPDATE receivings SET status = $2, reason = $3, decided_at = $4 WHERE id = $1`,
		rec.ID, status, reason, now); err != nil {
		r.logger.Error("Falha ao gravar decisão do recebimento.", err)
		return errors.NewDBError("Falha ao atualizar recebimento", err)
	}
	rec.Status = status
	rec.Reason = reason
	rec.DecidedAt = &now
	return nil
}
