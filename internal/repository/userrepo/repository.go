package userrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"mouralws/internal/domain"
	apperror "mouralws/internal/errors"
	"mouralws/internal/pkg/database"
	"mouralws/internal/pkg/logger"
)

// UserRepository persiste usuários (tabela users).
type UserRepository struct {
	DB        *sql.DB
	DBTimeout time.Duration
	logger    logger.Logger
}

// NewUserRepository cria uma nova instância do UserRepository, injetando o DB.
func NewUserRepository(db *sql.DB, dbTimeout time.Duration, logger logger.Logger) *UserRepository {
	return &UserRepository{
		DB:        db,
		DBTimeout: dbTimeout,
		logger:    logger,
	}
}

const insertSQL = `
    INSERT INTO users (id, company_id, name, email, password_hash, role, created_at, updated_at)
    VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

// Save insere um novo usuário no banco de dados. E-mail duplicado devolve ConflictError.
func (r *UserRepository) Save(ctx context.Context, user domain.User) (domain.User, error) {
	r.logger.Debug("Iniciando Save de usuário no repositório.", map[string]interface{}{"email": user.Email})

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	user, err := insertUser(ctxTimeout, r.DB, user)
	if err != nil {
		if apperror.IsConflict(err) {
			r.logger.Warn("E-mail de usuário já cadastrado.", map[string]interface{}{"email": user.Email})
		} else {
			r.logger.Error("Falha ao inserir usuário no DB.", err)
		}
		return domain.User{}, err
	}

	r.logger.Info("Usuário salvo com sucesso no repositório.", map[string]interface{}{"user_id": user.ID, "email": user.Email})
	return user, nil
}

// execer é satisfeito por *sql.DB e *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// SaveInTx insere o usuário dentro de uma transação existente (criação de empresa).
func SaveInTx(ctx context.Context, tx *sql.Tx, user domain.User) (domain.User, error) {
	return insertUser(ctx, tx, user)
}

func insertUser(ctx context.Context, db execer, user domain.User) (domain.User, error) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.UpdatedAt = user.CreatedAt
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))

	_, err := db.ExecContext(ctx, insertSQL,
		user.ID,
		user.CompanyID,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Role,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err, "") {
			return domain.User{}, apperror.NewConflictError(fmt.Sprintf("O email '%s' já está em uso.", user.Email))
		}
		return domain.User{}, apperror.NewDBError("Falha ao inserir usuário", err)
	}
	return user, nil
}

// FindByEmail busca um usuário pelo endereço de e-mail.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	r.logger.Debug("Iniciando FindByEmail de usuário no repositório.", map[string]interface{}{"email_attempt": email})

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := `
        SELECT id, company_id, name, email, password_hash, role, created_at, updated_at
        FROM users
        WHERE email = $1`

	var user domain.User
	err := r.DB.QueryRowContext(ctxTimeout, query, strings.ToLower(strings.TrimSpace(email))).Scan(
		&user.ID,
		&user.CompanyID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.logger.Info("Usuário não encontrado no DB por email.", map[string]interface{}{"email": email})
			return domain.User{}, apperror.NewNotFoundError(fmt.Sprintf("Usuário com email '%s' não encontrado", email))
		}
		r.logger.Error("Falha ao buscar usuário por email no DB.", err)
		return domain.User{}, apperror.NewDBError("Falha ao buscar usuário por email", err)
	}

	r.logger.Info("Usuário encontrado no repositório por email.", map[string]interface{}{"user_id": user.ID})
	return user, nil
}

// CountByCompany conta os usuários da empresa (limite do plano).
func (r *UserRepository) CountByCompany(ctx context.Context, companyID string) (int, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	var n int
	if err := r.DB.QueryRowContext(ctxTimeout, `SELECT COUNT(*) FROM users WHERE company_id = $1`, companyID).Scan(&n); err != nil {
		r.logger.Error("Falha ao contar usuários.", err)
		return 0, apperror.NewDBError("Falha ao contar usuários", err)
	}
	return n, nil
}
