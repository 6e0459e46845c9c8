// Package receivingservice conduz a conferência de recebimentos por leitura de etiquetas.
package receivingservice

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
)

// ReceivingRepository é o contrato de persistência dos recebimentos.
type ReceivingRepository interface {
	Create(ctx context.Context, rec domain.Receiving, expected map[string]int) (domain.Receiving, error)
	FindByID(ctx context.Context, companyID, id string) (domain.Receiving, error)
	List(ctx context.Context, companyID string, filter domain.ReceivingFilter, page pagination.Page) ([]domain.Receiving, error)
	RegisterLabelRead(ctx context.Context, companyID, receivingID, code string) (domain.Label, domain.ReceivingItem, error)
	Approve(ctx context.Context, companyID, id string, allowDivergence bool) (domain.Receiving, error)
	Reject(ctx context.Context, companyID, id, reason string) (domain.Receiving, error)
}

type WarehouseReader interface {
	GetWarehouseByID(ctx context.Context, companyID, id string) (domain.Warehouse, error)
}

type VariantReader interface {
	FindVariant(ctx context.Context, companyID, variantID string) (domain.VariantSummary, error)
}

// LabelNotifier é avisado quando uma etiqueta é consumida fora do serviço de etiquetas.
type LabelNotifier interface {
	Consumed(ctx context.Context, code string)
}

type Service struct {
	repo       ReceivingRepository
	warehouses WarehouseReader
	variants   VariantReader
	labels     LabelNotifier
	logger     logger.Logger
}

func NewService(repo ReceivingRepository, warehouses WarehouseReader, variants VariantReader, labels LabelNotifier, logger logger.Logger) *Service {
	return &Service{repo: repo, warehouses: warehouses, variants: variants, labels: labels, logger: logger}
}

// Create abre um recebimento com os itens da nota. Linhas repetidas da mesma variante são somadas.
func (s *Service) Create(ctx context.Context, actor domain.Actor, req domain.CreateReceivingRequest) (domain.Receiving, error) {
	req.Supplier = strings.TrimSpace(req.Supplier)
	req.InvoiceNumber = strings.TrimSpace(req.InvoiceNumber)
	if req.Supplier == "" || req.InvoiceNumber == "" {
		return domain.Receiving{}, apperror.NewValidationError("Fornecedor e número da nota são obrigatórios.")
	}
	if len(req.Items) == 0 {
		return domain.Receiving{}, apperror.NewValidationError("O recebimento precisa de ao menos um item.")
	}

	if _, err := s.warehouses.GetWarehouseByID(ctx, actor.CompanyID, req.WarehouseID); err != nil {
		return domain.Receiving{}, apperror.Passthrough(err, "Falha interna ao consultar armazém.")
	}

	expected := make(map[string]int, len(req.Items))
	for i, it := range req.Items {
		if it.Quantity < 1 {
			return domain.Receiving{}, apperror.NewValidationError(fmt.Sprintf("Item %d: a quantidade esperada deve ser positiva.", i+1))
		}
		if _, seen := expected[it.VariantID]; !seen {
			if _, err := s.variants.FindVariant(ctx, actor.CompanyID, it.VariantID); err != nil {
				return domain.Receiving{}, apperror.Passthrough(err, "Falha interna ao consultar variante.")
			}
		}
		expected[it.VariantID] += it.Quantity
	}

	rec := domain.Receiving{
		ID:            uuid.New().String(),
		CompanyID:     actor.CompanyID,
		WarehouseID:   req.WarehouseID,
		Supplier:      req.Supplier,
		InvoiceNumber: req.InvoiceNumber,
		Status:        domain.ReceivingOpen,
		CreatedBy:     actor.UserID,
		CreatedAt:     time.Now().UTC(),
	}
	created, err := s.repo.Create(ctx, rec, expected)
	if err != nil {
		return domain.Receiving{}, apperror.Passthrough(err, "Falha interna ao criar recebimento.")
	}
	s.logger.Info("Recebimento aberto.", map[string]interface{}{"receiving_id": created.ID, "invoice": created.InvoiceNumber, "variants": len(expected)})
	return created, nil
}

// RegisterRead consome a etiqueta lida e soma uma unidade à sua variante.
func (s *Service) RegisterRead(ctx context.Context, actor domain.Actor, receivingID, code string) (domain.ReceivingReadResult, error) {
	code = strings.TrimSpace(code)
	if !strings.HasPrefix(code, domain.LabelCodePrefix) {
		return domain.ReceivingReadResult{}, apperror.NewValidationError("Recebimentos aceitam apenas etiquetas do sistema.")
	}
	if _, err := uuid.Parse(receivingID); err != nil {
		return domain.ReceivingReadResult{}, apperror.NewValidationError("O ID do recebimento deve ser um UUID válido.")
	}

	label, item, err := s.repo.RegisterLabelRead(ctx, actor.CompanyID, receivingID, code)
	if err != nil {
		return domain.ReceivingReadResult{}, apperror.Passthrough(err, "Falha interna ao registrar leitura.")
	}
	s.labels.Consumed(ctx, code)

	variant, err := s.variants.FindVariant(ctx, actor.CompanyID, label.VariantID)
	if err != nil {
		// A leitura já foi gravada; segue com o ID da variante apenas.
		s.logger.Warn("Falha ao descrever variante da leitura.", map[string]interface{}{"variant_id": label.VariantID, "error": err.Error()})
		variant = domain.VariantSummary{VariantID: label.VariantID}
	}
	item.Variant = variant

	return domain.ReceivingReadResult{
		Label: domain.ResolvedLabel{Label: label, Variant: variant},
		Item:  item,
	}, nil
}

// Approve aprova o recebimento e credita o estoque. Divergências exigem allowDivergence.
func (s *Service) Approve(ctx context.Context, actor domain.Actor, id string, req domain.ApproveReceivingRequest) (domain.Receiving, error) {
	if !actor.IsAdmin() {
		return domain.Receiving{}, apperror.NewForbiddenError("Apenas administradores aprovam recebimentos.")
	}
	if _, err := uuid.Parse(id); err != nil {
		return domain.Receiving{}, apperror.NewValidationError("O ID do recebimento deve ser um UUID válido.")
	}
	rec, err := s.repo.Approve(ctx, actor.CompanyID, id, req.AllowDivergence)
	if err != nil {
		return domain.Receiving{}, apperror.Passthrough(err, "Falha interna ao aprovar recebimento.")
	}
	s.logger.Info("Recebimento aprovado.", map[string]interface{}{"receiving_id": id, "allow_divergence": req.AllowDivergence})
	return rec, nil
}

// Reject reprova o recebimento com motivo.
func (s *Service) Reject(ctx context.Context, actor domain.Actor, id string, req domain.RejectReceivingRequest) (domain.Receiving, error) {
	if !actor.IsAdmin() {
		return domain.Receiving{}, apperror.NewForbiddenError("Apenas administradores reprovam recebimentos.")
	}
	if _, err := uuid.Parse(id); err != nil {
		return domain.Receiving{}, apperror.NewValidationError("O ID do recebimento deve ser um UUID válido.")
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return domain.Receiving{}, apperror.NewValidationError("O motivo da reprovação é obrigatório.")
	}
	rec, err := s.repo.Reject(ctx, actor.CompanyID, id, reason)
	if err != nil {
		return domain.Receiving{}, apperror.Passthrough(err, "Falha interna ao reprovar recebimento.")
	}
	s.logger.Info("Recebimento reprovado.", map[string]interface{}{"receiving_id": id})
	return rec, nil
}

func (s *Service) Get(ctx context.Context, actor domain.Actor, id string) (domain.Receiving, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.Receiving{}, apperror.NewValidationError("O ID do recebimento deve ser um UUID válido.")
	}
	rec, err := s.repo.FindByID(ctx, actor.CompanyID, id)
	if err != nil {
		return domain.Receiving{}, apperror.Passthrough(err, "Falha interna ao consultar recebimento.")
	}
	return rec, nil
}

func (s *Service) List(ctx context.Context, actor domain.Actor, filter domain.ReceivingFilter, page pagination.Page) (pagination.Result[domain.Receiving], error) {
	switch filter.Status {
	case "", domain.ReceivingOpen, domain.ReceivingApproved, domain.ReceivingRejected:
	default:
		return pagination.Result[domain.Receiving]{}, apperror.NewValidationError(fmt.Sprintf("Status de recebimento inválido: '%s'.", filter.Status))
	}
	rows, err := s.repo.List(ctx, actor.CompanyID, filter, page)
	if err != nil {
		return pagination.Result[domain.Receiving]{}, apperror.Passthrough(err, "Falha interna ao listar recebimentos.")
	}
	return pagination.Build(rows, page, func(r domain.Receiving) pagination.Cursor {
		return pagination.Cursor{CreatedAt: r.CreatedAt, ID: r.ID}
	}), nil
}
