package productservice

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"mouralws/internal/domain"
	apperror "mouralws/internal/errors"
	"mouralws/internal/pkg/logger"
	"mouralws/internal/pkg/pagination"
)

// ProductRepository define o contrato (interface) que este Serviço espera
// da camada de Persistência (DB, Cache).
type ProductRepository interface {
	Save(ctx context.Context, product domain.Product, variants []domain.Variant) (domain.Product, error)
	FindByID(ctx context.Context, companyID, id string) (domain.Product, error)
	List(ctx context.Context, companyID string, filter domain.ProductFilter, page pagination.Page) ([]domain.Product, error)
	SearchVariants(ctx context.Context, companyID, q string, page pagination.Page) ([]domain.VariantSummary, error)
}

// Service implementa o catálogo de produtos.
type Service struct {
	repo   ProductRepository
	logger logger.Logger
}

// NewService cria e retorna uma nova instância do Serviço de Produto.
func NewService(repo ProductRepository, logger logger.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// CreateProduct valida e persiste um produto com suas variantes na empresa do ator.
func (s *Service) CreateProduct(ctx context.Context, actor domain.Actor, product domain.Product, variants []domain.Variant) (domain.Product, error) {
	product.Name = strings.TrimSpace(product.Name)
	product.SKU = strings.ToUpper(strings.TrimSpace(product.SKU))

	if product.Name == "" || product.SKU == "" {
		return domain.Product{}, apperror.NewValidationError("Nome e SKU são obrigatórios para o produto.")
	}
	if !product.Price.GreaterThan(decimal.Zero) {
		return domain.Product{}, apperror.NewValidationError("O preço do produto deve ser positivo.")
	}

	product.ID = uuid.New().String()
	product.CompanyID = actor.CompanyID
	product.IsActive = true
	now := time.Now().UTC()
	product.CreatedAt = now
	product.UpdatedAt = now

	seen := make(map[string]bool, len(variants))
	for i := range variants {
		v := &variants[i]
		v.Attribute = strings.TrimSpace(v.Attribute)
		v.Value = strings.TrimSpace(v.Value)
		if v.Attribute == "" || v.Value == "" {
			return domain.Product{}, apperror.NewValidationError(fmt.Sprintf("Variante %d requer Atributo e Valor.", i+1))
		}
		v.ID = uuid.New().String()
		v.ProductID = product.ID
		v.CreatedAt = now
		v.Barcode = strings.TrimSpace(v.Barcode)
		v.SKU = strings.ToUpper(strings.TrimSpace(v.SKU))
		if v.SKU == "" {
			v.SKU = product.SKU + "-" + strings.ToUpper(strings.ReplaceAll(v.Value, " ", ""))
		}
		if seen[v.SKU] {
			return domain.Product{}, apperror.NewValidationError(fmt.Sprintf("SKU de variante repetido: '%s'.", v.SKU))
		}
		seen[v.SKU] = true
	}

	created, err := s.repo.Save(ctx, product, variants)
	if err != nil {
		s.logger.Error("Falha ao salvar produto no repositório.", err)
		return domain.Product{}, apperror.Passthrough(err, "Falha interna ao salvar produto.")
	}

	s.logger.Info("Produto criado com sucesso.", map[string]interface{}{"id": created.ID, "sku": created.SKU, "variants": len(variants)})
	return created, nil
}

// GetProductByID busca um produto da empresa do ator.
func (s *Service) GetProductByID(ctx context.Context, actor domain.Actor, id string) (domain.Product, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.Product{}, apperror.NewValidationError("O ID do produto deve ser um UUID válido.")
	}

	product, err := s.repo.FindByID(ctx, actor.CompanyID, id)
	if err != nil {
		if apperror.IsNotFound(err) {
			return domain.Product{}, apperror.NewNotFoundError(fmt.Sprintf("Produto com ID %s não foi encontrado.", id))
		}
		return domain.Product{}, err
	}
	return product, nil
}

// ListProducts devolve uma página de produtos.
func (s *Service) ListProducts(ctx context.Context, actor domain.Actor, filter domain.ProductFilter, page pagination.Page) (pagination.Result[domain.Product], error) {
	rows, err := s.repo.List(ctx, actor.CompanyID, filter, page)
	if err != nil {
		return pagination.Result[domain.Product]{}, apperror.Passthrough(err, "Falha interna ao listar produtos.")
	}
	return pagination.Build(rows, page, func(p domain.Product) pagination.Cursor {
		return pagination.Cursor{CreatedAt: p.CreatedAt, ID: p.ID}
	}), nil
}

// SearchVariants busca variantes por código de barras, SKU ou nome do produto.
func (s *Service) SearchVariants(ctx context.Context, actor domain.Actor, q string, page pagination.Page) (pagination.Result[domain.VariantSummary], error) {
	q = strings.TrimSpace(q)
	if len(q) < 2 {
		return pagination.Result[domain.VariantSummary]{}, apperror.NewValidationError("A busca requer ao menos 2 caracteres.")
	}
	rows, err := s.repo.SearchVariants(ctx, actor.CompanyID, q, page)
	if err != nil {
		return pagination.Result[domain.VariantSummary]{}, apperror.Passthrough(err, "Falha interna ao buscar variantes.")
	}
	return pagination.Build(rows, page, func(v domain.VariantSummary) pagination.Cursor {
		return pagination.Cursor{CreatedAt: v.CreatedAt, ID: v.VariantID}
	}), nil
}
