package label

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"mouralws/internal/api/respond"
	"mouralws/internal/domain"
	"mouralws/internal/pkg/logger"
	"mouralws/internal/pkg/pagination"
)

// LabelService é o contrato de lotes e etiquetas.
type LabelService interface {
	CreateBatch(ctx context.Context, actor domain.Actor, req domain.CreateLabelBatchRequest) (domain.LabelBatch, error)
	GetBatch(ctx context.Context, actor domain.Actor, id string) (domain.LabelBatch, error)
	ListBatches(ctx context.Context, actor domain.Actor, page pagination.Page) (pagination.Result[domain.LabelBatch], error)
	ListLabels(ctx context.Context, actor domain.Actor, batchID string, page pagination.Page) (pagination.Result[domain.Label], error)
	RenderBatchPDF(ctx context.Context, actor domain.Actor, batchID string) ([]byte, error)
	Resolve(ctx context.Context, actor domain.Actor, code string) (domain.ResolvedLabel, error)
	Consume(ctx context.Context, actor domain.Actor, code, ref string) (domain.Label, error)
}

// ConsumeRequest marca uma etiqueta como usada.
type ConsumeRequest struct {
	Code string `json:"code" validate:"required,max=128"`
	Ref  string `json:"ref" validate:"required,max=120"`
}

type Handler struct {
	Service LabelService
	Logger  logger.Logger
	Limits  pagination.Limits
}

func NewHandler(svc LabelService, log logger.Logger, limits pagination.Limits) *Handler {
	return &Handler{Service: svc, Logger: log, Limits: limits}
}

func (h *Handler) handleServiceResponse(w http.ResponseWriter, r *http.Request, data interface{}, err error, successStatus int) {
	respond.ServiceResponse(h.Logger, w, r, data, err, successStatus)
}

// CreateBatchHandler lida com POST /v1/labels/batches.
// @Summary Gera um lote de etiquetas QR para uma variante
// @Tags labels
// @Accept json
// @Produce json
// @Param batch body domain.CreateLabelBatchRequest true "Variante e quantidade (1 a 1000)"
// @Success 201 {object} domain.LabelBatch
// @Security ApiKeyAuth
// @Router /labels/batches [post]
func (h *Handler) CreateBatchHandler(w http.ResponseWriter, r *http.Request) {
	actor, err := respond.Actor(r)
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}
	var req domain.CreateLabelBatchRequest
	if err := respond.DecodeJSON(r, &req); err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}

	batch, err := h.Service.CreateBatch(r.Context(), actor, req)
	h.handleServiceResponse(w, r, batch, err, http.StatusCreated)
}

// @Summary Lista lotes de etiquetas
// @Tags labels
// @Produce json
// @Success 200 {object} pagination.Result[domain.LabelBatch]
// @Security ApiKeyAuth
// @Router /labels/batches [get]
func (h *Handler) ListBatchesHandler(w http.ResponseWriter, r *http.Request) {
	actor, err := respond.Actor(r)
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}
	page, err := respond.Page(r, h.Limits)
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}

	result, err := h.Service.ListBatches(r.Context(), actor, page)
	h.handleServiceResponse(w, r, result, err, http.StatusOK)
}

// @Summary Obtém um lote
// @Tags labels
// @Produce json
// @Param id path string true "ID do lote"
// @Success 200 {object} domain.LabelBatch
// @Security ApiKeyAuth
// @Router /labels/batches/{id} [get]
func (h *Handler) GetBatchHandler(w http.ResponseWriter, r *http.Request) {
	actor, err := respond.Actor(r)
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}

	batch, err := h.Service.GetBatch(r.Context(), actor, r.PathValue("id"))
	h.handleServiceResponse(w, r, batch, err, http.StatusOK)
}

// @Summary Lista as etiquetas de um lote
// @Tags labels
// @Produce json
// @Param id path string true "ID do lote"
// @Success 200 {object} pagination.Result[domain.Label]
// @Security ApiKeyAuth
// @Router /labels/batches/{id}/labels [get]
func (h *Handler) ListLabelsHandler(w http.ResponseWriter, r *http.Request) {
	actor, err := respond.Actor(r)
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}
	page, err := respond.Page(r, h.Limits)
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}

	result, err := h.Service.ListLabels(r.Context(), actor, r.PathValue("id"), page)
	h.handleServiceResponse(w, r, result, err, http.StatusOK)
}

// BatchPDFHandler lida com GET /v1/labels/batches/{id}/pdf.
// @Summary Folha A4 de etiquetas do lote (marca o lote como impresso)
// @Tags labels
// @Produce application/pdf
// @Param id path string true "ID do lote"
// @Success 200 {file} binary
// @Security ApiKeyAuth
// @Router /labels/batches/{id}/pdf [get]
func (h *Handler) BatchPDFHandler(w http.ResponseWriter, r *http.Request) {
	actor, err := respond.Actor(r)
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}

	id := r.PathValue("id")
	pdf, err := h.Service.RenderBatchPDF(r.Context(), actor, id)
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`inline; filename="etiquetas-%s.pdf"`, id))
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(pdf); err != nil {
		h.Logger.Error("Falha ao enviar PDF de etiquetas.", err)
	}
}

// ResolveHandler lida com GET /v1/labels/resolve?code=.
// @Summary Resolve o código de uma etiqueta lida
// @Tags labels
// @Produce json
// @Param code query string true "Conteúdo do QR (LWS-...)"
// @Success 200 {object} domain.ResolvedLabel
// @Failure 404 {object} domain.ErrorResponse "Etiqueta não encontrada"
// @Security ApiKeyAuth
// @Router /labels/resolve [get]
func (h *Handler) ResolveHandler(w http.ResponseWriter, r *http.Request) {
	actor, err := respond.Actor(r)
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}

	resolved, err := h.Service.Resolve(r.Context(), actor, r.URL.Query().Get("code"))
	h.handleServiceResponse(w, r, resolved, err, http.StatusOK)
}

// ConsumeHandler lida com POST /v1/labels/consume.
// @Summary Marca uma etiqueta como usada
// @Tags labels
// @Accept json
// @Produce json
// @Param body body ConsumeRequest true "Código e referência de uso"
// @Success 200 {object} domain.Label
// @Failure 409 {object} domain.ErrorResponse "Etiqueta já utilizada"
// @Security ApiKeyAuth
// @Router /labels/consume [post]
func (h *Handler) ConsumeHandler(w http.ResponseWriter, r *http.Request) {
	actor, err := respond.Actor(r)
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}
	var req ConsumeRequest
	if err := respond.DecodeJSON(r, &req); err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}

	label, err := h.Service.Consume(r.Context(), actor, req.Code, req.Ref)
	h.handleServiceResponse(w, r, label, err, http.StatusOK)
}
