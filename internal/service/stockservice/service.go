package stockservice

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"mouralws/internal/domain"
	apperror "mouralws/internal/errors"
	"mouralws/internal/pkg/logger"
)

// StockRepository define o contrato que o Serviço de Estoque espera da camada de Persistência.
type StockRepository interface {
	GetStockLevel(ctx context.Context, variantID, warehouseID string) (domain.StockLevel, error)
	UpdateStockLevel(ctx context.Context, adjustment domain.StockAdjustmentRequest) (domain.StockLevel, error)
}

// WarehouseReader confirma que o armazém pertence à empresa do ator.
type WarehouseReader interface {
	GetWarehouseByID(ctx context.Context, companyID, id string) (domain.Warehouse, error)
}

// VariantReader confirma que a variante pertence à empresa do ator.
type VariantReader interface {
	FindVariant(ctx context.Context, companyID, variantID string) (domain.VariantSummary, error)
}

// Service implementa os ajustes manuais e consultas de estoque.
type Service struct {
	repo       StockRepository
	warehouses WarehouseReader
	variants   VariantReader
	logger     logger.Logger
}

// NewService cria e retorna uma nova instância do Serviço de Estoque.
func NewService(repo StockRepository, warehouses WarehouseReader, variants VariantReader, logger logger.Logger) *Service {
	return &Service{repo: repo, warehouses: warehouses, variants: variants, logger: logger}
}

// AdjustStock aplica um ajuste ao nível de estoque de uma variante em um armazém.
func (s *Service) AdjustStock(ctx context.Context, actor domain.Actor, adjustment domain.StockAdjustmentRequest) (domain.StockLevel, error) {
	s.logger.Debug("Iniciando ajuste de estoque no serviço.", map[string]interface{}{
		"variant_id":   adjustment.VariantID,
		"warehouse_id": adjustment.WarehouseID,
		"delta":        adjustment.Delta,
	})

	if adjustment.Delta == 0 {
		return domain.StockLevel{}, apperror.NewValidationError("O ajuste de estoque (delta) não pode ser zero.")
	}
	if err := s.checkOwnership(ctx, actor, adjustment.VariantID, adjustment.WarehouseID); err != nil {
		return domain.StockLevel{}, err
	}

	stockLevel, err := s.repo.UpdateStockLevel(ctx, adjustment)
	if err != nil {
		s.logger.Error("Falha ao ajustar estoque no repositório.", err)
		var conflictErr *apperror.ConflictError
		if errors.As(err, &conflictErr) {
			return domain.StockLevel{}, apperror.NewConflictError(fmt.Sprintf("Falha de concorrência: %s", conflictErr.Msg))
		}
		var validationErr *apperror.ValidationError
		if errors.As(err, &validationErr) {
			return domain.StockLevel{}, apperror.NewValidationError(fmt.Sprintf("Validação do estoque: %s", validationErr.Msg))
		}
		return domain.StockLevel{}, apperror.NewInternalError("Falha interna ao ajustar estoque.", err)
	}

	s.logger.Info("Estoque ajustado com sucesso.", map[string]interface{}{
		"variant_id":   stockLevel.VariantID,
		"warehouse_id": stockLevel.WarehouseID,
		"new_quantity": stockLevel.Quantity,
		"new_version":  stockLevel.Version,
	})
	return stockLevel, nil
}

// GetStock devolve o nível de estoque de uma variante em um armazém.
func (s *Service) GetStock(ctx context.Context, actor domain.Actor, variantID, warehouseID string) (domain.StockLevel, error) {
	if _, err := uuid.Parse(variantID); err != nil {
		return domain.StockLevel{}, apperror.NewValidationError("variant_id deve ser um UUID válido.")
	}
	if _, err := uuid.Parse(warehouseID); err != nil {
		return domain.StockLevel{}, apperror.NewValidationError("warehouse_id deve ser um UUID válido.")
	}
	if err := s.checkOwnership(ctx, actor, variantID, warehouseID); err != nil {
		return domain.StockLevel{}, err
	}
	level, err := s.repo.GetStockLevel(ctx, variantID, warehouseID)
	if err != nil {
		return domain.StockLevel{}, apperror.Passthrough(err, "Falha interna ao consultar estoque.")
	}
	return level, nil
}

func (s *Service) checkOwnership(ctx context.Context, actor domain.Actor, variantID, warehouseID string) error {
	if _, err := s.warehouses.GetWarehouseByID(ctx, actor.CompanyID, warehouseID); err != nil {
		return apperror.Passthrough(err, "Falha interna ao consultar armazém.")
	}
	if _, err := s.variants.FindVariant(ctx, actor.CompanyID, variantID); err != nil {
		return apperror.Passthrough(err, "Falha interna ao consultar variante.")
	}
	return nil
}
