package receiving

import (
	"context"
	"net/http"

	"mouralws/internal/api/respond"
	"mouralws/internal/domain"
	"mouralws/internal/pkg/logger"
	"mouralws/internal/pkg/pagination"
)

type ReceivingService interface {
	Create(ctx context.Context, actor domain.Actor, req domain.CreateReceivingRequest) (domain.Receiving, error)
	RegisterRead(ctx context.Context, actor domain.Actor, receivingID, code string) (domain.ReceivingReadResult, error)
	Approve(ctx context.Context, actor domain.Actor, id string, req domain.ApproveReceivingRequest) (domain.Receiving, error)
	Reject(ctx context.Context, actor domain.Actor, id string, req domain.RejectReceivingRequest) (domain.Receiving, error)
	Get(ctx context.Context, actor domain.Actor, id string) (domain.Receiving, error)
	List(ctx context.Context, actor domain.Actor, filter domain.ReceivingFilter, page pagination.Page) (pagination.Result[domain.Receiving], error)
}

// ReadRequest carrega o código de etiqueta lido na doca.
type ReadRequest struct {
	Code string `json:"code" validate:"required,max=128"`
}

type Handler struct {
	Service ReceivingService
	Logger  logger.Logger
	Limits  pagination.Limits
}

func NewHandler(svc ReceivingService, log logger.Logger, limits pagination.Limits) *Handler {
	return &Handler{Service: svc, Logger: log, Limits: limits}
}

func (h *Handler) handleServiceResponse(w http.ResponseWriter, r *http.Request, data interface{}, err error, successStatus int) {
	respond.ServiceResponse(h.Logger, w, r, data, err, successStatus)
}

// CreateHandler lida com POST /v1/receivings.
// @Summary Abre um recebimento com os itens esperados da nota
// @Tags receivings
// @Accept json
// @Produce json
// @Param body body domain.CreateReceivingRequest true "Fornecedor, nota e itens"
// @Success 201 {object} domain.Receiving
// @Security ApiKeyAuth
// @Router /receivings [post]
func (h *Handler) CreateHandler(w http.ResponseWriter, r *http.Request) {
	actor, err := respond.Actor(r)
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}
	var req domain.CreateReceivingRequest
	if err := respond.DecodeJSON(r, &req); err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}

	rec, err := h.Service.Create(r.Context(), actor, req)
	h.handleServiceResponse(w, r, rec, err, http.StatusCreated)
}

// @Summary Lista recebimentos
// @Tags receivings
// @Produce json
// @Param status query string false "PENDENTE, APROVADO ou REPROVADO"
// @Success 200 {object} pagination.Result[domain.Receiving]
// @Security ApiKeyAuth
// @Router /receivings [get]
func (h *Handler) ListHandler(w http.ResponseWriter, r *http.Request) {
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

	filter := domain.ReceivingFilter{Status: domain.ReceivingStatus(r.URL.Query().Get("status"))}
	result, err := h.Service.List(r.Context(), actor, filter, page)
	h.handleServiceResponse(w, r, result, err, http.StatusOK)
}

// @Summary Obtém um recebimento com seus itens
// @Tags receivings
// @Produce json
// @Param id path string true "ID do recebimento"
// @Success 200 {object} domain.Receiving
// @Security ApiKeyAuth
// @Router /receivings/{id} [get]
func (h *Handler) GetHandler(w http.ResponseWriter, r *http.Request) {
	actor, err := respond.Actor(r)
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}

	rec, err := h.Service.Get(r.Context(), actor, r.PathValue("id"))
	h.handleServiceResponse(w, r, rec, err, http.StatusOK)
}

// ReadHandler lida com POST /v1/receivings/{id}/reads.
// @Summary Registra a leitura de uma etiqueta no recebimento
// @Tags receivings
// @Accept json
// @Produce json
// @Param id path string true "ID do recebimento"
// @Param body body ReadRequest true "Código da etiqueta"
// @Success 200 {object} domain.ReceivingReadResult
// @Failure 409 {object} domain.ErrorResponse "Etiqueta já utilizada ou recebimento finalizado"
// @Security ApiKeyAuth
// @Router /receivings/{id}/reads [post]
func (h *Handler) ReadHandler(w http.ResponseWriter, r *http.Request) {
	actor, err := respond.Actor(r)
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}
	var req ReadRequest
	if err := respond.DecodeJSON(r, &req); err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}

	result, err := h.Service.RegisterRead(r.Context(), actor, r.PathValue("id"), req.Code)
	h.handleServiceResponse(w, r, result, err, http.StatusOK)
}

// @Summary Aprova o recebimento e credita o estoque
// @Tags receivings
// @Accept json
// @Produce json
// @Param id path string true "ID do recebimento"
// @Param body body domain.ApproveReceivingRequest false "Aceitar divergências"
// @Success 200 {object} domain.Receiving
// @Security ApiKeyAuth
// @Router /receivings/{id}/approve [post]
func (h *Handler) ApproveHandler(w http.ResponseWriter, r *http.Request) {
	actor, err := respond.Actor(r)
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}
	var req domain.ApproveReceivingRequest
	if r.ContentLength != 0 {
		if err := respond.DecodeJSON(r, &req); err != nil {
			h.handleServiceResponse(w, r, nil, err, http.StatusOK)
			return
		}
	}

	rec, err := h.Service.Approve(r.Context(), actor, r.PathValue("id"), req)
	h.handleServiceResponse(w, r, rec, err, http.StatusOK)
}

// @Summary Reprova o recebimento
// @Tags receivings
// @Accept json
// @Produce json
// @Param id path string true "ID do recebimento"
// @Param body body domain.RejectReceivingRequest true "Motivo"
// @Success 200 {object} domain.Receiving
// @Security ApiKeyAuth
// @Router /receivings/{id}/reject [post]
func (h *Handler) RejectHandler(w http.ResponseWriter, r *http.Request) {
	actor, err := respond.Actor(r)
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}
	var req domain.RejectReceivingRequest
	if err := respond.DecodeJSON(r, &req); err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}

	rec, err := h.Service.Reject(r.Context(), actor, r.PathValue("id"), req)
	h.handleServiceResponse(w, r, rec, err, http.StatusOK)
}
