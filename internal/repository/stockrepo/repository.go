package stockrepo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"mouralws/internal/domain"
	"mouralws/internal/errors"
	"mouralws/internal/pkg/logger"
)

// StockRepository acessa os níveis de estoque (variante × armazém).
type StockRepository struct {
	DB        *sql.DB
	DBTimeout time.Duration
	logger    logger.Logger
}

// NewStockRepository cria e retorna uma nova instância do Repositório de Estoque.
func NewStockRepository(db *sql.DB, dbTimeout time.Duration, logger logger.Logger) *StockRepository {
	return &StockRepository{
		DB:        db,
		DBTimeout: dbTimeout,
		logger:    logger,
	}
}

// GetStockLevel busca o nível de estoque para uma variante em um armazém.
func (r *StockRepository) GetStockLevel(ctx context.Context, variantID, warehouseID string) (domain.StockLevel, error) {
	r.logger.Debug("Buscando nível de estoque no repositório.", map[string]interface{}{"variant_id": variantID, "warehouse_id": warehouseID})

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := `
        SELECT id, variant_id, warehouse_id, quantity, version, created_at, updated_at
        FROM stock_levels
        WHERE variant_id = $1 AND warehouse_id = $2`

	var sl domain.StockLevel
	err := r.DB.QueryRowContext(ctxTimeout, query, variantID, warehouseID).Scan(
		&sl.ID, &sl.VariantID, &sl.WarehouseID, &sl.Quantity, &sl.Version, &sl.CreatedAt, &sl.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		r.logger.Info("Nível de estoque não encontrado.", map[string]interface{}{"variant_id": variantID, "warehouse_id": warehouseID})
		return domain.StockLevel{}, errors.NewNotFoundError(fmt.Sprintf("Estoque para variante %s no armazém %s não encontrado.", variantID, warehouseID))
	}
	if err != nil {
		r.logger.Error("Falha ao buscar nível de estoque no DB.", err)
		return domain.StockLevel{}, errors.NewDBError("Falha ao buscar nível de estoque", err)
	}

	r.logger.Debug("Nível de estoque encontrado.", map[string]interface{}{"variant_id": variantID, "warehouse_id": warehouseID, "quantity": sl.Quantity, "version": sl.Version})
	return sl, nil
}

// UpdateStockLevel aplica um ajuste ao estoque, utilizando transação e controle de concorrência otimista (OCC).
func (r *StockRepository) UpdateStockLevel(ctx context.Context, adjustment domain.StockAdjustmentRequest) (domain.StockLevel, error) {
	r.logger.Debug("Iniciando atualização de estoque no repositório.", map[string]interface{}{
		"variant_id":   adjustment.VariantID,
		"warehouse_id": adjustment.WarehouseID,
		"delta":        adjustment.Delta,
	})

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	tx, err := r.DB.BeginTx(ctxTimeout, nil)
	if err != nil {
		r.logger.Error("Falha ao iniciar transação para atualização de estoque.", err)
		return domain.StockLevel{}, errors.NewDBError("Falha ao iniciar transação", err)
	}
	defer tx.Rollback()

	sl, err := AddInTx(ctxTimeout, tx, adjustment.VariantID, adjustment.WarehouseID, adjustment.Delta)
	if err != nil {
		r.logger.Warn("Ajuste de estoque recusado.", map[string]interface{}{
			"variant_id":   adjustment.VariantID,
			"warehouse_id": adjustment.WarehouseID,
			"delta":        adjustment.Delta,
			"error":        err.Error(),
		})
		return domain.StockLevel{}, err
	}

	if commitErr := tx.Commit(); commitErr != nil {
		r.logger.Error("Falha ao commitar transação de atualização de estoque.", commitErr)
		return domain.StockLevel{}, errors.NewDBError("Falha ao commitar transação", commitErr)
	}

	r.logger.Info("Nível de estoque atualizado com sucesso.", map[string]interface{}{
		"variant_id":   adjustment.VariantID,
		"warehouse_id": adjustment.WarehouseID,
		"new_quantity": sl.Quantity,
		"new_version":  sl.Version,
	})
	return sl, nil
}

// AddInTx soma delta ao estoque dentro da transação informada. Sem registro prévio, cria o
// nível com quantidade delta. O UPDATE checa a versão lida (OCC); registro modificado por
// outra transação devolve ConflictError e quantidade negativa devolve ValidationError.
func AddInTx(ctx context.Context, tx *sql.Tx, variantID, warehouseID string, delta int) (domain.StockLevel, error) {
	var current domain.StockLevel
	querySelect := `
        SELECT id, variant_id, warehouse_id, quantity, version, created_at, updated_at
        FROM stock_levels
        WHERE variant_id = $1 AND warehouse_id = $2 FOR UPDATE`

	err := tx.QueryRowContext(ctx, querySelect, variantID, warehouseID).Scan(
		&current.ID, &current.VariantID, &current.WarehouseID, &current.Quantity,
		&current.Version, &current.CreatedAt, &current.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		if delta < 0 {
			return domain.StockLevel{}, errors.NewValidationError("Não é possível criar estoque com quantidade negativa.")
		}
		return insertLevel(ctx, tx, variantID, warehouseID, delta)
	}
	if err != nil {
		return domain.StockLevel{}, errors.NewDBError("Falha ao buscar estoque para atualização", err)
	}

	newQuantity := current.Quantity + delta
	if newQuantity < 0 {
		return domain.StockLevel{}, errors.NewValidationError("Ajuste resultaria em quantidade de estoque negativa.")
	}
	return updateLevel(ctx, tx, current, newQuantity)
}

// SetInTx fixa a quantidade (fechamento de contagem), com a mesma checagem de versão de AddInTx.
func SetInTx(ctx context.Context, tx *sql.Tx, variantID, warehouseID string, quantity int) (domain.StockLevel, error) {
	if quantity < 0 {
		return domain.StockLevel{}, errors.NewValidationError("Quantidade de estoque não pode ser negativa.")
	}

	var current domain.StockLevel
	querySelect := `
        SELECT id, variant_id, warehouse_id, quantity, version, created_at, updated_at
        FROM stock_levels
        WHERE variant_id = $1 AND warehouse_id = $2 FOR UPDATE`

	err := tx.QueryRowContext(ctx, querySelect, variantID, warehouseID).Scan(
		&current.ID, &current.VariantID, &current.WarehouseID, &current.Quantity,
		&current.Version, &current.CreatedAt, &current.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return insertLevel(ctx, tx, variantID, warehouseID, quantity)
	}
	if err != nil {
		return domain.StockLevel{}, errors.NewDBError("Falha ao buscar estoque para atualização", err)
	}
	if current.Quantity == quantity {
		return current, nil
	}
	return updateLevel(ctx, tx, current, quantity)
}

func insertLevel(ctx context.Context, tx *sql.Tx, variantID, warehouseID string, quantity int) (domain.StockLevel, error) {
	queryInsert := `
        INSERT INTO stock_levels (id, variant_id, warehouse_id, quantity, version, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id, variant_id, warehouse_id, quantity, version, created_at, updated_at`

	now := time.Now().UTC()
	var sl domain.StockLevel
	err := tx.QueryRowContext(ctx, queryInsert,
		uuid.NewString(), variantID, warehouseID, quantity, 1, now, now,
	).Scan(&sl.ID, &sl.VariantID, &sl.WarehouseID, &sl.Quantity, &sl.Version, &sl.CreatedAt, &sl.UpdatedAt)
	if err != nil {
		return domain.StockLevel{}, errors.NewDBError("Falha ao inserir novo nível de estoque", err)
	}
	return sl, nil
}

func updateLevel(ctx context.Context, tx *sql.Tx, current domain.StockLevel, newQuantity int) (domain.StockLevel, error) {
	queryUpdate := `
        UPDATE stock_levels
        SET quantity = $1, version = $2, updated_at = $3
        WHERE variant_id = $4 AND warehouse_id = $5 AND version = $6`

	now := time.Now().UTC()
	result, err := tx.ExecContext(ctx, queryUpdate,
		newQuantity,
		current.Version+1, // Incrementa a versão
		now,
		current.VariantID,
		current.WarehouseID,
		current.Version, // Checa a versão antiga para OCC
	)
	if err != nil {
		return domain.StockLevel{}, errors.NewDBError("Falha ao atualizar estoque", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return domain.StockLevel{}, errors.NewDBError("Falha ao verificar linhas afetadas", err)
	}
	if rowsAffected == 0 {
		return domain.StockLevel{}, errors.NewConflictError("O estoque foi modificado por outra operação. Tente novamente.")
	}

	current.Quantity = newQuantity
	current.Version++
	current.UpdatedAt = now
	return current, nil
}
