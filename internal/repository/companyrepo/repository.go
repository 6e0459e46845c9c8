package companyrepo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"mouralws/internal/domain"
	"mouralws/internal/errors"
	"mouralws/internal/pkg/database"
	"mouralws/internal/pkg/logger"
	"mouralws/internal/pkg/pagination"
	"mouralws/internal/repository/userrepo"
)

// CompanyRepository persiste empresas (tenants).
type CompanyRepository struct {
	DB        *sql.DB
	DBTimeout time.Duration
	logger    logger.Logger
}

// NewCompanyRepository cria o repositório de empresas.
func NewCompanyRepository(db *sql.DB, dbTimeout time.Duration, logger logger.Logger) *CompanyRepository {
	return &CompanyRepository{DB: db, DBTimeout: dbTimeout, logger: logger}
}

const companyColumns = `id, name, cnpj, plan, active, created_at, updated_at`

func scanCompany(row interface{ Scan(...interface{}) error }) (domain.Company, error) {
	var c domain.Company
	err := row.Scan(&c.ID, &c.Name, &c.CNPJ, &c.Plan, &c.Active, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// Create insere a empresa e seu primeiro administrador na mesma transação.
func (r *CompanyRepository) Create(ctx context.Context, company domain.Company, admin domain.User) (domain.Company, domain.User, error) {
	r.logger.Debug("Iniciando criação de empresa no repositório.", map[string]interface{}{"cnpj": company.CNPJ})

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	tx, err := r.DB.BeginTx(ctxTimeout, nil)
	if err != nil {
		r.logger.Error("Falha ao iniciar transação de empresa.", err)
		return domain.Company{}, domain.User{}, errors.NewDBError("Falha ao iniciar transação", err)
	}
	defer tx.Rollback()

	query := `
        INSERT INTO companies (` + companyColumns + `)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err = tx.ExecContext(ctxTimeout, query,
		company.ID, company.Name, company.CNPJ, company.Plan, company.Active, company.CreatedAt, company.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err, "") {
			return domain.Company{}, domain.User{}, errors.NewConflictError(fmt.Sprintf("Já existe uma empresa com o CNPJ %s.", company.CNPJ))
		}
		r.logger.Error("Falha ao inserir empresa no DB.", err)
		return domain.Company{}, domain.User{}, errors.NewDBError("Falha ao inserir empresa", err)
	}

	admin.CompanyID = company.ID
	admin, err = userrepo.SaveInTx(ctxTimeout, tx, admin)
	if err != nil {
		r.logger.Warn("Falha ao criar administrador da empresa.", map[string]interface{}{"error": err.Error()})
		return domain.Company{}, domain.User{}, err
	}

	if err := tx.Commit(); err != nil {
		r.logger.Error("Falha ao commitar criação de empresa.", err)
		return domain.Company{}, domain.User{}, errors.NewDBError("Falha ao commitar transação", err)
	}

	r.logger.Info("Empresa criada com sucesso.", map[string]interface{}{"company_id": company.ID, "plan": string(company.Plan)})
	return company, admin, nil
}

// FindByID busca uma empresa pelo ID.
func (r *CompanyRepository) FindByID(ctx context.Context, id string) (domain.Company, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	c, err := scanCompany(r.DB.QueryRowContext(ctxTimeout, `SELECT `+companyColumns+` FROM companies WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return domain.Company{}, errors.NewNotFoundError(fmt.Sprintf("Empresa com ID %s não encontrada.", id))
	}
	if err != nil {
		r.logger.Error("Falha ao buscar empresa no DB.", err)
		return domain.Company{}, errors.NewDBError("Falha ao buscar empresa", err)
	}
	return c, nil
}

// List lista as empresas em ordem decrescente de criação (cursor).
func (r *CompanyRepository) List(ctx context.Context, page pagination.Page) ([]domain.Company, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	cursorSQL, args := page.Where("created_at", "id", 1)
	args = append(args, page.FetchLimit())
	query := fmt.Sprintf(`
        SELECT %s FROM companies
        WHERE %s
        ORDER BY created_at DESC, id DESC
        LIMIT $%d`, companyColumns, cursorSQL, len(args))

	rows, err := r.DB.QueryContext(ctxTimeout, query, args...)
	if err != nil {
		r.logger.Error("Falha ao listar empresas.", err)
		return nil, errors.NewDBError("Falha ao listar empresas", err)
	}
	defer rows.Close()

	var out []domain.Company
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, errors.NewDBError("Falha ao mapear empresas", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewDBError("Erro após iteração de empresas", err)
	}
	return out, nil
}

// Usage devolve o consumo atual da empresa.
func (r *CompanyRepository) Usage(ctx context.Context, id string) (domain.CompanyUsage, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := `
        SELECT
            (SELECT COUNT(*) FROM users WHERE company_id = $1),
            (SELECT COUNT(*) FROM warehouses WHERE company_id = $1)`

	var u domain.CompanyUsage
	if err := r.DB.QueryRowContext(ctxTimeout, query, id).Scan(&u.Users, &u.Warehouses); err != nil {
		r.logger.Error("Falha ao calcular uso da empresa.", err)
		return domain.CompanyUsage{}, errors.NewDBError("Falha ao calcular uso da empresa", err)
	}
	return u, nil
}

// UpdatePlan troca o plano da empresa.
func (r *CompanyRepository) UpdatePlan(ctx context.Context, id string, plan domain.Plan) (domain.Company, error) {
	return r.update(ctx, id, `plan = $2`, plan)
}

// SetActive ativa ou desativa a empresa.
func (r *CompanyRepository) SetActive(ctx context.Context, id string, active bool) (domain.Company, error) {
	return r.update(ctx, id, `active = $2`, active)
}

func (r *CompanyRepository) update(ctx context.Context, id, set string, value interface{}) (domain.Company, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := `UPDATE companies SET ` + set + `, updated_at = $3 WHERE id = $1 RETURNING ` + companyColumns
	c, err := scanCompany(r.DB.QueryRowContext(ctxTimeout, query, id, value, time.Now().UTC()))
	if err == sql.ErrNoRows {
		return domain.Company{}, errors.NewNotFoundError(fmt.Sprintf("Empresa com ID %s não encontrada.", id))
	}
	if err != nil {
		r.logger.Error("Falha ao atualizar empresa no DB.", err)
		return domain.Company{}, errors.NewDBError("Falha ao atualizar empresa", err)
	}
	r.logger.Info("Empresa atualizada.", map[string]interface{}{"company_id": id, "plan": string(c.Plan), "active": c.Active})
	return c, nil
}
