// Package companyservice administra as empresas (tenants) e seus planos.
// Todas as operações exigem o papel superadmin.
package companyservice

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"mouralws/internal/domain"
	apperror "mouralws/internal/errors"
	"mouralws/internal/pkg/logger"
	"mouralws/internal/pkg/pagination"
	"mouralws/internal/service/userservice"
)

// CompanyRepository é o contrato de persistência de empresas.
type CompanyRepository interface {
	Create(ctx context.Context, company domain.Company, admin domain.User) (domain.Company, domain.User, error)
	FindByID(ctx context.Context, id string) (domain.Company, error)
	List(ctx context.Context, page pagination.Page) ([]domain.Company, error)
	Usage(ctx context.Context, id string) (domain.CompanyUsage, error)
	UpdatePlan(ctx context.Context, id string, plan domain.Plan) (domain.Company, error)
	SetActive(ctx context.Context, id string, active bool) (domain.Company, error)
}

type Service struct {
	repo   CompanyRepository
	logger logger.Logger
}

func NewService(repo CompanyRepository, logger logger.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func requireSuperAdmin(actor domain.Actor) error {
	if actor.Role != domain.RoleSuperAdmin {
		return apperror.NewForbiddenError("Operação restrita à administração da plataforma.")
	}
	return nil
}

// Create cria a empresa junto com seu primeiro administrador.
func (s *Service) Create(ctx context.Context, actor domain.Actor, req domain.CreateCompanyRequest) (domain.Company, domain.User, error) {
	if err := requireSuperAdmin(actor); err != nil {
		return domain.Company{}, domain.User{}, err
	}
	if _, ok := req.Plan.Limits(); !ok {
		return domain.Company{}, domain.User{}, apperror.NewValidationError(fmt.Sprintf("Plano desconhecido: '%s'.", req.Plan))
	}

	now := time.Now().UTC()
	company := domain.Company{
		ID:        uuid.New().String(),
		Name:      strings.TrimSpace(req.Name),
		CNPJ:      req.CNPJ,
		Plan:      req.Plan,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	req.Admin.Role = domain.RoleAdmin
	admin, err := userservice.NewUser(company.ID, req.Admin)
	if err != nil {
		return domain.Company{}, domain.User{}, err
	}

	company, admin, err = s.repo.Create(ctx, company, admin)
	if err != nil {
		return domain.Company{}, domain.User{}, apperror.Passthrough(err, "Falha interna ao criar empresa.")
	}

	s.logger.Info("Empresa criada.", map[string]interface{}{"company_id": company.ID, "plan": string(company.Plan), "admin_id": admin.ID})
	return company, admin, nil
}

func (s *Service) Get(ctx context.Context, actor domain.Actor, id string) (domain.Company, error) {
	if err := requireSuperAdmin(actor); err != nil {
		return domain.Company{}, err
	}
	if err := validateID(id); err != nil {
		return domain.Company{}, err
	}
	company, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return domain.Company{}, apperror.Passthrough(err, "Falha interna ao consultar empresa.")
	}
	return company, nil
}

func (s *Service) List(ctx context.Context, actor domain.Actor, page pagination.Page) (pagination.Result[domain.Company], error) {
	if err := requireSuperAdmin(actor); err != nil {
		return pagination.Result[domain.Company]{}, err
	}
	rows, err := s.repo.List(ctx, page)
	if err != nil {
		return pagination.Result[domain.Company]{}, apperror.Passthrough(err, "Falha interna ao listar empresas.")
	}
	return pagination.Build(rows, page, func(c domain.Company) pagination.Cursor {
		return pagination.Cursor{CreatedAt: c.CreatedAt, ID: c.ID}
	}), nil
}

// ChangePlan troca o plano. Um downgrade só é aceito se o uso atual couber nos novos limites.
func (s *Service) ChangePlan(ctx context.Context, actor domain.Actor, id string, plan domain.Plan) (domain.Company, error) {
	if err := requireSuperAdmin(actor); err != nil {
		return domain.Company{}, err
	}
	if err := validateID(id); err != nil {
		return domain.Company{}, err
	}
	limits, ok := plan.Limits()
	if !ok {
		return domain.Company{}, apperror.NewValidationError(fmt.Sprintf("Plano desconhecido: '%s'.", plan))
	}

	usage, err := s.repo.Usage(ctx, id)
	if err != nil {
		return domain.Company{}, apperror.Passthrough(err, "Falha interna ao consultar uso da empresa.")
	}
	if !domain.Fits(usage.Users, limits.MaxUsers) || !domain.Fits(usage.Warehouses, limits.MaxWarehouses) {
		s.logger.Warn("Troca de plano recusada por excesso de uso.", map[string]interface{}{
			"company_id": id, "plan": string(plan), "users": usage.Users, "warehouses": usage.Warehouses,
		})
		return domain.Company{}, apperror.NewConflictError(fmt.Sprintf(
			"O uso atual (%d usuários, %d armazéns) excede os limites do plano %s.", usage.Users, usage.Warehouses, plan))
	}

	company, err := s.repo.UpdatePlan(ctx, id, plan)
	if err != nil {
		return domain.Company{}, apperror.Passthrough(err, "Falha interna ao trocar plano.")
	}
	s.logger.Info("Plano da empresa alterado.", map[string]interface{}{"company_id": id, "plan": string(plan)})
	return company, nil
}

// SetActive ativa ou suspende a empresa; usuários de empresa inativa não conseguem autenticar.
func (s *Service) SetActive(ctx context.Context, actor domain.Actor, id string, active bool) (domain.Company, error) {
	if err := requireSuperAdmin(actor); err != nil {
		return domain.Company{}, err
	}
	if err := validateID(id); err != nil {
		return domain.Company{}, err
	}
	company, err := s.repo.SetActive(ctx, id, active)
	if err != nil {
		return domain.Company{}, apperror.Passthrough(err, "Falha interna ao alterar situação da empresa.")
	}
	s.logger.Info("Situação da empresa alterada.", map[string]interface{}{"company_id": id, "active": active})
	return company, nil
}

func validateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperror.NewValidationError("O ID da empresa deve ser um UUID válido.")
	}
	return nil
}
