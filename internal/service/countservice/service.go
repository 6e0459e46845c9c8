// Package countservice conduz as contagens (inventários físicos) de armazém:
// abertura, leituras de QR/código de barras, fechamento com divergências e exportação.
package countservice

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"mouralws/internal/domain"
	apperror "mouralws/internal/errors"
	"mouralws/internal/pkg/logger"
	"mouralws/internal/pkg/pagination"
	"mouralws/internal/report"
)

// CountRepository é o contrato de persistência das contagens.
type CountRepository interface {
	Open(ctx context.Context, count domain.Count) (domain.Count, error)
	FindByID(ctx context.Context, companyID, id string) (domain.Count, error)
	List(ctx context.Context, companyID string, filter domain.CountFilter, page pagination.Page) ([]domain.Count, error)
	AddQuantity(ctx context.Context, companyID, countID, variantID string, qty int) (domain.CountItem, error)
	Items(ctx context.Context, countID string) ([]domain.CountItem, error)
	Compare(ctx context.Context, count domain.Count) ([]domain.CountDivergence, error)
	Close(ctx context.Context, companyID, countID string, adjust bool) (domain.Count, []domain.CountDivergence, error)
}

// WarehouseReader confirma o armazém dentro da empresa.
type WarehouseReader interface {
	GetWarehouseByID(ctx context.Context, companyID, id string) (domain.Warehouse, error)
}

// VariantFinder resolve código de barras ou SKU para uma variante.
type VariantFinder interface {
	FindVariantByCode(ctx context.Context, companyID, code string) (domain.VariantSummary, error)
}

// LabelResolver resolve códigos de etiqueta (LWS-...).
type LabelResolver interface {
	Resolve(ctx context.Context, actor domain.Actor, code string) (domain.ResolvedLabel, error)
}

type Service struct {
	repo       CountRepository
	warehouses WarehouseReader
	variants   VariantFinder
	labels     LabelResolver
	logger     logger.Logger
}

func NewService(repo CountRepository, warehouses WarehouseReader, variants VariantFinder, labels LabelResolver, logger logger.Logger) *Service {
	return &Service{repo: repo, warehouses: warehouses, variants: variants, labels: labels, logger: logger}
}

// Open abre uma contagem no armazém. Só pode haver uma contagem aberta por armazém.
func (s *Service) Open(ctx context.Context, actor domain.Actor, req domain.OpenCountRequest) (domain.Count, error) {
	if _, err := s.warehouses.GetWarehouseByID(ctx, actor.CompanyID, req.WarehouseID); err != nil {
		return domain.Count{}, apperror.Passthrough(err, "Falha interna ao consultar armazém.")
	}

	count := domain.Count{
		ID:          uuid.New().String(),
		CompanyID:   actor.CompanyID,
		WarehouseID: req.WarehouseID,
		Status:      domain.CountOpen,
		OpenedBy:    actor.UserID,
		CreatedAt:   time.Now().UTC(),
	}
	opened, err := s.repo.Open(ctx, count)
	if err != nil {
		return domain.Count{}, apperror.Passthrough(err, "Falha interna ao abrir contagem.")
	}
	return opened, nil
}

// ResolveVariant traduz o código lido em variante: etiqueta do sistema, depois código de barras ou SKU.
func (s *Service) ResolveVariant(ctx context.Context, actor domain.Actor, code string) (domain.VariantSummary, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return domain.VariantSummary{}, apperror.NewValidationError("O código lido não pode ser vazio.")
	}
	if strings.HasPrefix(code, domain.LabelCodePrefix) {
		resolved, err := s.labels.Resolve(ctx, actor, code)
		if err != nil {
			return domain.VariantSummary{}, err
		}
		return resolved.Variant, nil
	}
	v, err := s.variants.FindVariantByCode(ctx, actor.CompanyID, code)
	if err != nil {
		if apperror.IsNotFound(err) {
			return domain.VariantSummary{}, apperror.NewNotFoundError(fmt.Sprintf("Nenhuma variante corresponde ao código '%s'.", code))
		}
		return domain.VariantSummary{}, apperror.Passthrough(err, "Falha interna ao resolver código.")
	}
	return v, nil
}

// RegisterRead soma a leitura ao item da variante. Quantidade ausente vale 1.
func (s *Service) RegisterRead(ctx context.Context, actor domain.Actor, countID string, req domain.ScanReadRequest) (domain.CountItem, error) {
	qty := req.Quantity
	if qty == 0 {
		qty = 1
	}
	if qty < 0 {
		return domain.CountItem{}, apperror.NewValidationError("A quantidade deve ser positiva.")
	}

	count, err := s.Get(ctx, actor, countID)
	if err != nil {
		return domain.CountItem{}, err
	}
	if count.Status != domain.CountOpen {
		return domain.CountItem{}, apperror.NewConflictError("A contagem já está fechada.")
	}

	variant, err := s.ResolveVariant(ctx, actor, req.Code)
	if err != nil {
		s.logger.Warn("Leitura de contagem não resolvida.", map[string]interface{}{"count_id": countID, "code": req.Code})
		return domain.CountItem{}, err
	}

	item, err := s.repo.AddQuantity(ctx, actor.CompanyID, countID, variant.VariantID, qty)
	if err != nil {
		return domain.CountItem{}, apperror.Passthrough(err, "Falha interna ao registrar leitura.")
	}
	item.Variant = variant

	s.logger.Debug("Leitura registrada na contagem.", map[string]interface{}{"count_id": countID, "variant_id": variant.VariantID, "total": item.Quantity})
	return item, nil
}

// Close fecha a contagem e devolve apenas as variantes com diferença.
func (s *Service) Close(ctx context.Context, actor domain.Actor, countID string, req domain.CloseCountRequest) (domain.CountCloseResult, error) {
	if req.AdjustStock && !actor.IsAdmin() {
		return domain.CountCloseResult{}, apperror.NewForbiddenError("Apenas administradores ajustam o estoque pela contagem.")
	}
	if _, err := uuid.Parse(countID); err != nil {
		return domain.CountCloseResult{}, apperror.NewValidationError("O ID da contagem deve ser um UUID válido.")
	}
	count, rows, err := s.repo.Close(ctx, actor.CompanyID, countID, req.AdjustStock)
	if err != nil {
		return domain.CountCloseResult{}, apperror.Passthrough(err, "Falha interna ao fechar contagem.")
	}

	divergences := make([]domain.CountDivergence, 0, len(rows))
	for _, d := range rows {
		if d.Difference != 0 {
			divergences = append(divergences, d)
		}
	}

	s.logger.Info("Contagem fechada.", map[string]interface{}{"count_id": countID, "divergences": len(divergences), "adjust_stock": req.AdjustStock})
	return domain.CountCloseResult{Count: count, Divergences: divergences, StockAdjusted: req.AdjustStock}, nil
}

func (s *Service) Get(ctx context.Context, actor domain.Actor, id string) (domain.Count, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.Count{}, apperror.NewValidationError("O ID da contagem deve ser um UUID válido.")
	}
	count, err := s.repo.FindByID(ctx, actor.CompanyID, id)
	if err != nil {
		return domain.Count{}, apperror.Passthrough(err, "Falha interna ao consultar contagem.")
	}
	return count, nil
}

func (s *Service) List(ctx context.Context, actor domain.Actor, filter domain.CountFilter, page pagination.Page) (pagination.Result[domain.Count], error) {
	if filter.Status != "" && filter.Status != domain.CountOpen && filter.Status != domain.CountClosed {
		return pagination.Result[domain.Count]{}, apperror.NewValidationError(fmt.Sprintf("Status de contagem inválido: '%s'.", filter.Status))
	}
	if filter.WarehouseID != "" {
		if _, err := uuid.Parse(filter.WarehouseID); err != nil {
			return pagination.Result[domain.Count]{}, apperror.NewValidationError("O filtro warehouse_id deve ser um UUID válido.")
		}
	}
	rows, err := s.repo.List(ctx, actor.CompanyID, filter, page)
	if err != nil {
		return pagination.Result[domain.Count]{}, apperror.Passthrough(err, "Falha interna ao listar contagens.")
	}
	return pagination.Build(rows, page, func(c domain.Count) pagination.Cursor {
		return pagination.Cursor{CreatedAt: c.CreatedAt, ID: c.ID}
	}), nil
}

// Items devolve o que já foi contado.
func (s *Service) Items(ctx context.Context, actor domain.Actor, id string) ([]domain.CountItem, error) {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, err
	}
	items, err := s.repo.Items(ctx, id)
	if err != nil {
		return nil, apperror.Passthrough(err, "Falha interna ao listar itens da contagem.")
	}
	return items, nil
}

// ExportXLSX escreve a planilha de conferência (contado x sistema) da contagem. Para contagem
// fechada o "sistema" é o saldo registrado no fechamento.
func (s *Service) ExportXLSX(ctx context.Context, actor domain.Actor, id string, w io.Writer) error {
	count, err := s.Get(ctx, actor, id)
	if err != nil {
		return err
	}
	rows, err := s.repo.Compare(ctx, count)
	if err != nil {
		return apperror.Passthrough(err, "Falha interna ao comparar contagem.")
	}
	if err := report.WriteCount(w, count, rows); err != nil {
		s.logger.Error("Falha ao gerar planilha da contagem.", err)
		return apperror.NewInternalError("Falha ao gerar planilha da contagem.", err)
	}
	return nil
}
