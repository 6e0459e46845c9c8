package labelrepo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"mouralws/internal/domain"
	"mouralws/internal/errors"
	"mouralws/internal/pkg/logger"
	"mouralws/internal/pkg/pagination"
	"mouralws/internal/repository/productrepo"
)

// LabelRepository persiste lotes (label_batches) e etiquetas (labels).
type LabelRepository struct {
	DB        *sql.DB
	DBTimeout time.Duration
	logger    logger.Logger
}

// NewLabelRepository cria o repositório de etiquetas.
func NewLabelRepository(db *sql.DB, dbTimeout time.Duration, logger logger.Logger) *LabelRepository {
	return &LabelRepository{DB: db, DBTimeout: dbTimeout, logger: logger}
}

const (
	batchColumns = `id, company_id, variant_id, quantity, status, created_by, created_at, printed_at`
	labelColumns = `l.id, l.batch_id, l.company_id, l.variant_id, l.code, l.status, l.used_at, l.used_ref, l.created_at`
)

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanBatch(row scanner) (domain.LabelBatch, error) {
	var b domain.LabelBatch
	var printedAt sql.NullTime
	err := row.Scan(&b.ID, &b.CompanyID, &b.VariantID, &b.Quantity, &b.Status, &b.CreatedBy, &b.CreatedAt, &printedAt)
	if printedAt.Valid {
		b.PrintedAt = &printedAt.Time
	}
	return b, err
}

func labelDest(l *domain.Label, usedAt *sql.NullTime) []interface{} {
	return []interface{}{&l.ID, &l.BatchID, &l.CompanyID, &l.VariantID, &l.Code, &l.Status, usedAt, &l.UsedRef, &l.CreatedAt}
}

func scanLabel(row scanner) (domain.Label, error) {
	var l domain.Label
	var usedAt sql.NullTime
	err := row.Scan(labelDest(&l, &usedAt)...)
	if usedAt.Valid {
		l.UsedAt = &usedAt.Time
	}
	return l, err
}

// CreateBatch insere o lote e todas as suas etiquetas em uma única transação.
// As etiquetas são gravadas com COPY.
func (r *LabelRepository) CreateBatch(ctx context.Context, batch domain.LabelBatch, labels []domain.Label) (domain.LabelBatch, error) {
	r.logger.Debug("Iniciando criação de lote de etiquetas.", map[string]interface{}{"variant_id": batch.VariantID, "quantity": batch.Quantity})

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	tx, err := r.DB.BeginTx(ctxTimeout, nil)
	if err != nil {
		r.logger.Error("Falha ao iniciar transação de lote.", err)
		return domain.LabelBatch{}, errors.NewDBError("Falha ao iniciar transação", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctxTimeout, `
        INSERT INTO label_batches (`+batchColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, NULL)`,
		batch.ID, batch.CompanyID, batch.VariantID, batch.Quantity, batch.Status, batch.CreatedBy, batch.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Falha ao inserir lote no DB.", err)
		return domain.LabelBatch{}, errors.NewDBError("Falha ao inserir lote", err)
	}

	stmt, err := tx.PrepareContext(ctxTimeout, pq.CopyIn("labels",
		"id", "batch_id", "company_id", "variant_id", "code", "status", "used_ref", "created_at"))
	if err != nil {
		r.logger.Error("Falha ao preparar COPY de etiquetas.", err)
		return domain.LabelBatch{}, errors.NewDBError("Falha ao preparar inserção de etiquetas", err)
	}
	for _, l := range labels {
		if _, err := stmt.ExecContext(ctxTimeout, l.ID, l.BatchID, l.CompanyID, l.VariantID, l.Code, string(l.Status), l.UsedRef, l.CreatedAt); err != nil {
			stmt.Close()
			r.logger.Error("Falha ao copiar etiqueta.", err)
			return domain.LabelBatch{}, errors.NewDBError("Falha ao inserir etiquetas", err)
		}
	}
	if _, err := stmt.ExecContext(ctxTimeout); err != nil {
		stmt.Close()
		r.logger.Error("Falha ao finalizar COPY de etiquetas.", err)
		return domain.LabelBatch{}, errors.NewDBError("Falha ao inserir etiquetas", err)
	}
	if err := stmt.Close(); err != nil {
		return domain.LabelBatch{}, errors.NewDBError("Falha ao inserir etiquetas", err)
	}

	if err := tx.Commit(); err != nil {
		r.logger.Error("Falha ao commitar lote.", err)
		return domain.LabelBatch{}, errors.NewDBError("Falha ao commitar transação", err)
	}

	r.logger.Info("Lote de etiquetas criado.", map[string]interface{}{"batch_id": batch.ID, "quantity": len(labels)})
	return batch, nil
}

// FindBatch busca um lote da empresa.
func (r *LabelRepository) FindBatch(ctx context.Context, companyID, id string) (domain.LabelBatch, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	b, err := scanBatch(r.DB.QueryRowContext(ctxTimeout,
		`SELECT `+batchColumns+` FROM label_batches WHERE id = $1 AND company_id = $2`, id, companyID))
	if err == sql.ErrNoRows {
		return domain.LabelBatch{}, errors.NewNotFoundError(fmt.Sprintf("Lote %s não encontrado.", id))
	}
	if err != nil {
		r.logger.Error("Falha ao buscar lote no DB.", err)
		return domain.LabelBatch{}, errors.NewDBError("Falha ao buscar lote", err)
	}
	return b, nil
}

// ListBatches lista os lotes da empresa (cursor).
func (r *LabelRepository) ListBatches(ctx context.Context, companyID string, page pagination.Page) ([]domain.LabelBatch, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	cursorSQL, cursorArgs := page.Where("created_at", "id", 2)
	args := append([]interface{}{companyID}, cursorArgs...)
	args = append(args, page.FetchLimit())
	query := fmt.Sprintf(`
        SELECT %s FROM label_batches
        WHERE company_id = $1 AND %s
        ORDER BY created_at DESC, id DESC
        LIMIT $%d`, batchColumns, cursorSQL, len(args))

	rows, err := r.DB.QueryContext(ctxTimeout, query, args...)
	if err != nil {
		r.logger.Error("Falha ao listar lotes.", err)
		return nil, errors.NewDBError("Falha ao listar lotes", err)
	}
	defer rows.Close()

	var out []domain.LabelBatch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, errors.NewDBError("Falha ao mapear lotes", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewDBError("Erro após iteração de lotes", err)
	}
	return out, nil
}

// ListLabels lista as etiquetas de um lote. page.Limit <= 0 devolve todas (impressão).
func (r *LabelRepository) ListLabels(ctx context.Context, companyID, batchID string, page pagination.Page) ([]domain.Label, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	cursorSQL, cursorArgs := page.Where("l.created_at", "l.id", 3)
	args := append([]interface{}{batchID, companyID}, cursorArgs...)
	limitSQL := ""
	if page.Limit > 0 {
		args = append(args, page.FetchLimit())
		limitSQL = fmt.Sprintf("LIMIT $%d", len(args))
	}
	query := fmt.Sprintf(`
        SELECT %s FROM labels l
        WHERE l.batch_id = $1 AND l.company_id = $2 AND %s
        ORDER BY l.created_at DESC, l.id DESC
        %s`, labelColumns, cursorSQL, limitSQL)

	rows, err := r.DB.QueryContext(ctxTimeout, query, args...)
	if err != nil {
		r.logger.Error("Falha ao listar etiquetas.", err)
		return nil, errors.NewDBError("Falha ao listar etiquetas", err)
	}
	defer rows.Close()

	var out []domain.Label
	for rows.Next() {
		l, err := scanLabel(rows)
		if err != nil {
			return nil, errors.NewDBError("Falha ao mapear etiquetas", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewDBError("Erro após iteração de etiquetas", err)
	}
	return out, nil
}

// MarkPrinted passa o lote para IMPRESSO. Repetir a chamada mantém a data da primeira impressão.
func (r *LabelRepository) MarkPrinted(ctx context.Context, companyID, batchID string, at time.Time) (domain.LabelBatch, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	b, err := scanBatch(r.DB.QueryRowContext(ctxTimeout, `
        UPDATE label_batches
        SET status = $3, printed_at = COALESCE(printed_at, $4)
        WHERE id = $1 AND company_id = $2
        RETURNING `+batchColumns, batchID, companyID, domain.BatchPrinted, at))
	if err == sql.ErrNoRows {
		return domain.LabelBatch{}, errors.NewNotFoundError(fmt.Sprintf("Lote %s não encontrado.", batchID))
	}
	if err != nil {
		r.logger.Error("Falha ao marcar lote como impresso.", err)
		return domain.LabelBatch{}, errors.NewDBError("Falha ao atualizar lote", err)
	}
	return b, nil
}

// Resolve busca a etiqueta pelo código, com a descrição da variante.
func (r *LabelRepository) Resolve(ctx context.Context, code string) (domain.ResolvedLabel, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := `
        SELECT ` + labelColumns + `, ` + productrepo.VariantSummaryColumns + `
        FROM labels l
        JOIN variants v ON v.id = l.variant_id
        JOIN products p ON p.id = v.product_id
        WHERE l.code = $1`

	var res domain.ResolvedLabel
	var usedAt sql.NullTime
	v, err := productrepo.ScanVariantSummary(rowShift{r.DB.QueryRowContext(ctxTimeout, query, code), labelDest(&res.Label, &usedAt)})
	if err == sql.ErrNoRows {
		return domain.ResolvedLabel{}, errors.NewNotFoundError(fmt.Sprintf("Etiqueta '%s' não encontrada.", code))
	}
	if err != nil {
		r.logger.Error("Falha ao resolver etiqueta.", err)
		return domain.ResolvedLabel{}, errors.NewDBError("Falha ao resolver etiqueta", err)
	}
	if usedAt.Valid {
		res.Label.UsedAt = &usedAt.Time
	}
	res.Variant = v
	return res, nil
}

// rowShift antepõe destinos fixos aos destinos de quem chama Scan.
type rowShift struct {
	row    scanner
	before []interface{}
}

func (s rowShift) Scan(dest ...interface{}) error {
	return s.row.Scan(append(append([]interface{}{}, s.before...), dest...)...)
}

// Consume marca a etiqueta como USADO com a referência informada.
func (r *LabelRepository) Consume(ctx context.Context, companyID, code, ref string) (domain.Label, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	tx, err := r.DB.BeginTx(ctxTimeout, nil)
	if err != nil {
		return domain.Label{}, errors.NewDBError("Falha ao iniciar transação", err)
	}
	defer tx.Rollback()

	l, err := ConsumeInTx(ctxTimeout, tx, companyID, code, ref, time.Now().UTC())
	if err != nil {
		return domain.Label{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Label{}, errors.NewDBError("Falha ao commitar transação", err)
	}
	r.logger.Info("Etiqueta consumida.", map[string]interface{}{"code": code, "ref": ref})
	return l, nil
}

// ConsumeInTx faz a transição DISPONIVEL → USADO dentro de uma transação existente.
// Etiqueta inexistente (ou de outra empresa) devolve NotFoundError; já usada, ConflictError.
func ConsumeInTx(ctx context.Context, tx *sql.Tx, companyID, code, ref string, at time.Time) (domain.Label, error) {
	l, err := scanLabel(tx.QueryRowContext(ctx, `
        UPDATE labels l
        SET status = $4, used_at = $5, used_ref = $3
        WHERE l.code = $1 AND l.company_id = $2 AND l.status = $6
        RETURNING `+labelColumns,
		code, companyID, ref, domain.LabelUsed, at, domain.LabelAvailable))
	if err == nil {
		return l, nil
	}
	if err != sql.ErrNoRows {
		return domain.Label{}, errors.NewDBError("Falha ao consumir etiqueta", err)
	}

	var status domain.LabelStatus
	var usedRef string
	err = tx.QueryRowContext(ctx, `SELECT status, used_ref FROM labels WHERE code = $1 AND company_id = $2`, code, companyID).Scan(&status, &usedRef)
	if err == sql.ErrNoRows {
		return domain.Label{}, errors.NewNotFoundError(fmt.Sprintf("Etiqueta '%s' não encontrada.", code))
	}
	if err != nil {
		return domain.Label{}, errors.NewDBError("Falha ao consultar etiqueta", err)
	}
	return domain.Label{}, errors.NewConflictError(fmt.Sprintf("Etiqueta '%s' já foi utilizada (%s).", code, usedRef))
}
