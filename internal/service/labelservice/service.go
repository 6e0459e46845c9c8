// Package labelservice gera lotes de etiquetas QR, imprime as folhas em PDF e
// resolve/consome os códigos lidos pelos leitores.
package labelservice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"mouralws/internal/domain"
	apperror "mouralws/internal/errors"
	"mouralws/internal/labelsheet"
	"mouralws/internal/pkg/cache"
	"mouralws/internal/pkg/logger"
	"mouralws/internal/pkg/pagination"
)

// LabelRepository é o contrato de persistência de lotes e etiquetas.
type LabelRepository interface {
	CreateBatch(ctx context.Context, batch domain.LabelBatch, labels []domain.Label) (domain.LabelBatch, error)
	FindBatch(ctx context.Context, companyID, id string) (domain.LabelBatch, error)
	ListBatches(ctx context.Context, companyID string, page pagination.Page) ([]domain.LabelBatch, error)
	ListLabels(ctx context.Context, companyID, batchID string, page pagination.Page) ([]domain.Label, error)
	MarkPrinted(ctx context.Context, companyID, batchID string, at time.Time) (domain.LabelBatch, error)
	Resolve(ctx context.Context, code string) (domain.ResolvedLabel, error)
	Consume(ctx context.Context, companyID, code, ref string) (domain.Label, error)
}

// VariantReader busca a variante dentro da empresa.
type VariantReader interface {
	FindVariant(ctx context.Context, companyID, variantID string) (domain.VariantSummary, error)
}

type Service struct {
	repo     LabelRepository
	variants VariantReader
	cache    cache.Client
	cacheTTL time.Duration
	metrics  *Metrics
	logger   logger.Logger
	now      func() time.Time
}

func NewService(repo LabelRepository, variants VariantReader, cacheClient cache.Client, cacheTTL time.Duration, metrics *Metrics, logger logger.Logger) *Service {
	return &Service{
		repo:     repo,
		variants: variants,
		cache:    cacheClient,
		cacheTTL: cacheTTL,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
	}
}

// CacheKey é a chave Redis da etiqueta resolvida.
func CacheKey(code string) string {
	return "label:" + code
}

// NewCode gera o payload gravado no QR de uma etiqueta.
func NewCode() string {
	return domain.LabelCodePrefix + uuid.New().String()
}

// IsLabelCode informa se o texto lido tem o formato de etiqueta do sistema.
func IsLabelCode(code string) bool {
	return strings.HasPrefix(code, domain.LabelCodePrefix)
}

// CreateBatch gera um lote com quantity etiquetas para a variante.
func (s *Service) CreateBatch(ctx context.Context, actor domain.Actor, req domain.CreateLabelBatchRequest) (domain.LabelBatch, error) {
	if req.Quantity < 1 || req.Quantity > domain.MaxBatchQuantity {
		return domain.LabelBatch{}, apperror.NewValidationError(fmt.Sprintf("A quantidade deve estar entre 1 e %d.", domain.MaxBatchQuantity))
	}
	if _, err := s.variants.FindVariant(ctx, actor.CompanyID, req.VariantID); err != nil {
		return domain.LabelBatch{}, apperror.Passthrough(err, "Falha interna ao consultar variante.")
	}

	now := s.now().UTC()
	batch := domain.LabelBatch{
		ID:        uuid.New().String(),
		CompanyID: actor.CompanyID,
		VariantID: req.VariantID,
		Quantity:  req.Quantity,
		Status:    domain.BatchGenerated,
		CreatedBy: actor.UserID,
		CreatedAt: now,
	}
	labels := make([]domain.Label, req.Quantity)
	for i := range labels {
		labels[i] = domain.Label{
			ID:        uuid.New().String(),
			BatchID:   batch.ID,
			CompanyID: actor.CompanyID,
			VariantID: req.VariantID,
			Code:      NewCode(),
			Status:    domain.LabelAvailable,
			CreatedAt: now,
		}
	}

	created, err := s.repo.CreateBatch(ctx, batch, labels)
	if err != nil {
		return domain.LabelBatch{}, apperror.Passthrough(err, "Falha interna ao gerar lote de etiquetas.")
	}
	s.metrics.generated(len(labels))
	s.logger.Info("Lote de etiquetas gerado.", map[string]interface{}{"batch_id": created.ID, "variant_id": created.VariantID, "quantity": created.Quantity})
	return created, nil
}

func (s *Service) GetBatch(ctx context.Context, actor domain.Actor, id string) (domain.LabelBatch, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.LabelBatch{}, apperror.NewValidationError("O ID do lote deve ser um UUID válido.")
	}
	batch, err := s.repo.FindBatch(ctx, actor.CompanyID, id)
	if err != nil {
		return domain.LabelBatch{}, apperror.Passthrough(err, "Falha interna ao consultar lote.")
	}
	return batch, nil
}

func (s *Service) ListBatches(ctx context.Context, actor domain.Actor, page pagination.Page) (pagination.Result[domain.LabelBatch], error) {
	rows, err := s.repo.ListBatches(ctx, actor.CompanyID, page)
	if err != nil {
		return pagination.Result[domain.LabelBatch]{}, apperror.Passthrough(err, "Falha interna ao listar lotes.")
	}
	return pagination.Build(rows, page, func(b domain.LabelBatch) pagination.Cursor {
		return pagination.Cursor{CreatedAt: b.CreatedAt, ID: b.ID}
	}), nil
}

func (s *Service) ListLabels(ctx context.Context, actor domain.Actor, batchID string, page pagination.Page) (pagination.Result[domain.Label], error) {
	if _, err := s.GetBatch(ctx, actor, batchID); err != nil {
		return pagination.Result[domain.Label]{}, err
	}
	rows, err := s.repo.ListLabels(ctx, actor.CompanyID, batchID, page)
	if err != nil {
		return pagination.Result[domain.Label]{}, apperror.Passthrough(err, "Falha interna ao listar etiquetas.")
	}
	return pagination.Build(rows, page, func(l domain.Label) pagination.Cursor {
		return pagination.Cursor{CreatedAt: l.CreatedAt, ID: l.ID}
	}), nil
}

// RenderBatchPDF monta a folha A4 do lote e marca o lote como impresso.
// Reimprimir um lote já impresso é permitido.
func (s *Service) RenderBatchPDF(ctx context.Context, actor domain.Actor, batchID string) ([]byte, error) {
	batch, err := s.GetBatch(ctx, actor, batchID)
	if err != nil {
		return nil, err
	}
	variant, err := s.variants.FindVariant(ctx, actor.CompanyID, batch.VariantID)
	if err != nil {
		return nil, apperror.Passthrough(err, "Falha interna ao consultar variante.")
	}
	labels, err := s.repo.ListLabels(ctx, actor.CompanyID, batch.ID, pagination.Page{})
	if err != nil {
		return nil, apperror.Passthrough(err, "Falha interna ao listar etiquetas.")
	}

	var buf bytes.Buffer
	if err := labelsheet.Render(&buf, batch, variant, labels); err != nil {
		s.logger.Error("Falha ao gerar PDF de etiquetas.", err)
		return nil, apperror.NewInternalError("Falha ao gerar PDF de etiquetas.", err)
	}

	if _, err := s.repo.MarkPrinted(ctx, actor.CompanyID, batch.ID, s.now().UTC()); err != nil {
		return nil, apperror.Passthrough(err, "Falha interna ao marcar lote como impresso.")
	}
	s.logger.Info("Folha de etiquetas gerada.", map[string]interface{}{"batch_id": batch.ID, "labels": len(labels), "pages": labelsheet.Pages(len(labels))})
	return buf.Bytes(), nil
}

// Resolve devolve a etiqueta e a variante do código lido, consultando o Redis antes do banco.
// Etiquetas de outra empresa são tratadas como inexistentes.
func (s *Service) Resolve(ctx context.Context, actor domain.Actor, code string) (domain.ResolvedLabel, error) {
	code = strings.TrimSpace(code)
	if !IsLabelCode(code) {
		return domain.ResolvedLabel{}, apperror.NewValidationError(fmt.Sprintf("Código '%s' não é uma etiqueta do sistema.", code))
	}

	key := CacheKey(code)
	if raw, err := s.cache.Get(ctx, key); err == nil {
		var resolved domain.ResolvedLabel
		if jsonErr := json.Unmarshal([]byte(raw), &resolved); jsonErr == nil {
			s.metrics.resolved("cache")
			return s.ownedBy(actor, resolved)
		}
		s.logger.Warn("Falha ao desserializar etiqueta do cache.", map[string]interface{}{"key": key})
	} else if err != cache.ErrCacheMiss {
		s.logger.Warn("Falha ao consultar cache de etiquetas.", map[string]interface{}{"key": key, "error": err.Error()})
	}

	resolved, err := s.repo.Resolve(ctx, code)
	if err != nil {
		return domain.ResolvedLabel{}, apperror.Passthrough(err, "Falha interna ao consultar etiqueta.")
	}
	s.metrics.resolved("db")

	if raw, err := json.Marshal(resolved); err == nil {
		if err := s.cache.Set(ctx, key, raw, s.cacheTTL); err != nil {
			s.logger.Warn("Falha ao gravar etiqueta no cache.", map[string]interface{}{"key": key, "error": err.Error()})
		}
	}
	return s.ownedBy(actor, resolved)
}

func (s *Service) ownedBy(actor domain.Actor, resolved domain.ResolvedLabel) (domain.ResolvedLabel, error) {
	if resolved.Label.CompanyID != actor.CompanyID {
		return domain.ResolvedLabel{}, apperror.NewNotFoundError(fmt.Sprintf("Etiqueta '%s' não encontrada.", resolved.Label.Code))
	}
	return resolved, nil
}

// Consume marca a etiqueta como usada com a referência informada.
func (s *Service) Consume(ctx context.Context, actor domain.Actor, code, ref string) (domain.Label, error) {
	code = strings.TrimSpace(code)
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return domain.Label{}, apperror.NewValidationError("A referência de uso é obrigatória.")
	}
	label, err := s.repo.Consume(ctx, actor.CompanyID, code, ref)
	if err != nil {
		return domain.Label{}, apperror.Passthrough(err, "Falha interna ao consumir etiqueta.")
	}
	s.Consumed(ctx, code)
	return label, nil
}

// Consumed invalida o cache da etiqueta e conta o consumo. Também é chamado quando
// o consumo acontece dentro da transação de outro fluxo (recebimento).
func (s *Service) Consumed(ctx context.Context, code string) {
	s.metrics.consumed()
	if err := s.cache.Delete(ctx, CacheKey(code)); err != nil {
		s.logger.Warn("Falha ao invalidar etiqueta no cache.", map[string]interface{}{"code": code, "error": err.Error()})
	}
}
