package warehouseservice

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"mouralws/internal/domain"
	apperror "mouralws/internal/errors"
	"mouralws/internal/pkg/logger"
)

// WarehouseRepository define o contrato que o Serviço de Armazéns espera da camada de Persistência.
type WarehouseRepository interface {
	CreateWarehouse(ctx context.Context, warehouse domain.Warehouse) (domain.Warehouse, error)
	GetWarehouseByID(ctx context.Context, companyID, id string) (domain.Warehouse, error)
	GetAllWarehouses(ctx context.Context, companyID string) ([]domain.Warehouse, error)
	CountByCompany(ctx context.Context, companyID string) (int, error)
	UpdateWarehouse(ctx context.Context, warehouse domain.Warehouse) (domain.Warehouse, error)
	DeleteWarehouse(ctx context.Context, companyID, id string) error
}

// CompanyReader fornece o plano da empresa para o limite de armazéns.
type CompanyReader interface {
	FindByID(ctx context.Context, id string) (domain.Company, error)
}

// Service implementa as regras de armazéns.
type Service struct {
	repo      WarehouseRepository
	companies CompanyReader
	logger    logger.Logger
}

// NewService cria e retorna uma nova instância do Serviço de Armazéns.
func NewService(repo WarehouseRepository, companies CompanyReader, logger logger.Logger) *Service {
	return &Service{repo: repo, companies: companies, logger: logger}
}

// CreateWarehouse cria um novo armazém na empresa do ator, respeitando o limite do plano.
func (s *Service) CreateWarehouse(ctx context.Context, actor domain.Actor, warehouse domain.Warehouse) (domain.Warehouse, error) {
	s.logger.Debug("Iniciando criação de armazém no serviço.", map[string]interface{}{"name": warehouse.Name, "company_id": actor.CompanyID})

	warehouse.Name = strings.TrimSpace(warehouse.Name)
	if err := s.validateWarehouseName(warehouse.Name); err != nil {
		s.logger.Warn("Falha na validação do nome do armazém.", map[string]interface{}{"name": warehouse.Name, "error": err.Error()})
		return domain.Warehouse{}, err
	}

	company, err := s.companies.FindByID(ctx, actor.CompanyID)
	if err != nil {
		return domain.Warehouse{}, apperror.Passthrough(err, "Falha interna ao consultar empresa.")
	}
	limits, _ := company.Plan.Limits()
	current, err := s.repo.CountByCompany(ctx, actor.CompanyID)
	if err != nil {
		return domain.Warehouse{}, apperror.NewInternalError("Falha interna ao contar armazéns.", err)
	}
	if !domain.Allows(current, limits.MaxWarehouses) {
		s.logger.Warn("Limite de armazéns do plano atingido.", map[string]interface{}{"company_id": actor.CompanyID, "plan": string(company.Plan), "current": current})
		return domain.Warehouse{}, apperror.NewConflictError(fmt.Sprintf("O plano %s permite no máximo %d armazém(ns).", company.Plan, limits.MaxWarehouses))
	}

	warehouse.ID = ""
	warehouse.CompanyID = actor.CompanyID
	createdWarehouse, err := s.repo.CreateWarehouse(ctx, warehouse)
	if err != nil {
		s.logger.Error("Falha ao criar armazém no repositório.", err)
		return domain.Warehouse{}, apperror.Passthrough(err, "Falha interna ao criar armazém.")
	}

	s.logger.Info("Armazém criado com sucesso.", map[string]interface{}{"id": createdWarehouse.ID, "name": createdWarehouse.Name})
	return createdWarehouse, nil
}

// GetWarehouseByID busca um armazém da empresa do ator.
func (s *Service) GetWarehouseByID(ctx context.Context, actor domain.Actor, id string) (domain.Warehouse, error) {
	if _, err := uuid.Parse(id); err != nil {
		s.logger.Warn("ID de armazém inválido fornecido.", map[string]interface{}{"id": id, "error": err.Error()})
		return domain.Warehouse{}, apperror.NewValidationError("O ID do armazém deve ser um UUID válido.")
	}

	warehouse, err := s.repo.GetWarehouseByID(ctx, actor.CompanyID, id)
	if err != nil {
		return domain.Warehouse{}, err // Erros do repositório já são NotFoundError ou DBError
	}
	return warehouse, nil
}

// GetAllWarehouses busca todos os armazéns da empresa.
func (s *Service) GetAllWarehouses(ctx context.Context, actor domain.Actor) ([]domain.Warehouse, error) {
	warehouses, err := s.repo.GetAllWarehouses(ctx, actor.CompanyID)
	if err != nil {
		s.logger.Error("Falha ao buscar todos os armazéns no repositório.", err)
		return nil, apperror.NewInternalError("Falha interna ao buscar armazéns.", err)
	}
	return warehouses, nil
}

// UpdateWarehouse renomeia um armazém existente.
func (s *Service) UpdateWarehouse(ctx context.Context, actor domain.Actor, warehouse domain.Warehouse) (domain.Warehouse, error) {
	s.logger.Debug("Iniciando atualização de armazém no serviço.", map[string]interface{}{"id": warehouse.ID, "name": warehouse.Name})

	if _, err := uuid.Parse(warehouse.ID); err != nil {
		return domain.Warehouse{}, apperror.NewValidationError("O ID do armazém deve ser um UUID válido.")
	}
	warehouse.Name = strings.TrimSpace(warehouse.Name)
	if err := s.validateWarehouseName(warehouse.Name); err != nil {
		return domain.Warehouse{}, err
	}

	warehouse.CompanyID = actor.CompanyID
	updatedWarehouse, err := s.repo.UpdateWarehouse(ctx, warehouse)
	if err != nil {
		s.logger.Error("Falha ao atualizar armazém no repositório.", err)
		return domain.Warehouse{}, err
	}

	s.logger.Info("Armazém atualizado com sucesso.", map[string]interface{}{"id": updatedWarehouse.ID, "name": updatedWarehouse.Name})
	return updatedWarehouse, nil
}

// DeleteWarehouse remove um armazém.
func (s *Service) DeleteWarehouse(ctx context.Context, actor domain.Actor, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperror.NewValidationError("O ID do armazém deve ser um UUID válido.")
	}

	if err := s.repo.DeleteWarehouse(ctx, actor.CompanyID, id); err != nil {
		s.logger.Error("Falha ao deletar armazém no repositório.", err)
		return err
	}

	s.logger.Info("Armazém deletado com sucesso.", map[string]interface{}{"id": id})
	return nil
}

// validateWarehouseName é uma função auxiliar para validar o nome do armazém.
func (s *Service) validateWarehouseName(name string) error {
	if name == "" {
		return apperror.NewValidationError("O nome do armazém não pode ser vazio.")
	}
	if len(name) < 3 || len(name) > 100 {
		return apperror.NewValidationError("O nome do armazém deve ter entre 3 e 100 caracteres.")
	}
	return nil
}
