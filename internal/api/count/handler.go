package count

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"mouralws/internal/api/respond"
	"mouralws/internal/domain"
	"mouralws/internal/pkg/logger"
	"mouralws/internal/pkg/pagination"
)

// CountService é o contrato das contagens.
type CountService interface {
	Open(ctx context.Context, actor domain.Actor, req domain.OpenCountRequest) (domain.Count, error)
	RegisterRead(ctx context.Context, actor domain.Actor, countID string, req domain.ScanReadRequest) (domain.CountItem, error)
	Close(ctx context.Context, actor domain.Actor, countID string, req domain.CloseCountRequest) (domain.CountCloseResult, error)
	Get(ctx context.Context, actor domain.Actor, id string) (domain.Count, error)
	List(ctx context.Context, actor domain.Actor, filter domain.CountFilter, page pagination.Page) (pagination.Result[domain.Count], error)
	Items(ctx context.Context, actor domain.Actor, id string) ([]domain.CountItem, error)
	ExportXLSX(ctx context.Context, actor domain.Actor, id string, w io.Writer) error
}

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type Handler struct {
	Service CountService
	Logger  logger.Logger
	Limits  pagination.Limits
}

func NewHandler(svc CountService, log logger.Logger, limits pagination.Limits) *Handler {
	return &Handler{Service: svc, Logger: log, Limits: limits}
}

func (h *Handler) handleServiceResponse(w http.ResponseWriter, r *http.Request, data interface{}, err error, successStatus int) {
	respond.ServiceResponse(h.Logger, w, r, data, err, successStatus)
}

// OpenHandler lida com POST /v1/counts.
// @Summary Abre uma contagem em um armazém
// @Tags counts
// @Accept json
// @Produce json
// @Param body body domain.OpenCountRequest true "Armazém"
// @Success 201 {object} domain.Count
// @Failure 409 {object} domain.ErrorResponse "Já existe contagem aberta"
// @Security ApiKeyAuth
// @Router /counts [post]
func (h *Handler) OpenHandler(w http.ResponseWriter, r *http.Request) {
	actor, err := respond.Actor(r)
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}
	var req domain.OpenCountRequest
	if err := respond.DecodeJSON(r, &req); err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}

	count, err := h.Service.Open(r.Context(), actor, req)
	h.handleServiceResponse(w, r, count, err, http.StatusCreated)
}

// @Summary Lista contagens
// @Tags counts
// @Produce json
// @Param status query string false "ABERTA ou FECHADA"
// @Param warehouse_id query string false "Armazém"
// @Success 200 {object} pagination.Result[domain.Count]
// @Security ApiKeyAuth
// @Router /counts [get]
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

	q := r.URL.Query()
	filter := domain.CountFilter{Status: domain.CountStatus(q.Get("status")), WarehouseID: q.Get("warehouse_id")}
	result, err := h.Service.List(r.Context(), actor, filter, page)
	h.handleServiceResponse(w, r, result, err, http.StatusOK)
}

// @Summary Obtém uma contagem
// @Tags counts
// @Produce json
// @Param id path string true "ID da contagem"
// @Success 200 {object} domain.Count
// @Security ApiKeyAuth
// @Router /counts/{id} [get]
func (h *Handler) GetHandler(w http.ResponseWriter, r *http.Request) {
	actor, err := respond.Actor(r)
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}

	count, err := h.Service.Get(r.Context(), actor, r.PathValue("id"))
	h.handleServiceResponse(w, r, count, err, http.StatusOK)
}

// ReadHandler lida com POST /v1/counts/{id}/reads.
// @Summary Registra a leitura de um código na contagem
// @Tags counts
// @Accept json
// @Produce json
// @Param id path string true "ID da contagem"
// @Param read body domain.ScanReadRequest true "Código lido e quantidade (padrão 1)"
// @Success 200 {object} domain.CountItem
// @Failure 404 {object} domain.ErrorResponse "Código não corresponde a nenhuma variante"
// @Failure 409 {object} domain.ErrorResponse "Contagem fechada"
// @Security ApiKeyAuth
// @Router /counts/{id}/reads [post]
func (h *Handler) ReadHandler(w http.ResponseWriter, r *http.Request) {
	actor, err := respond.Actor(r)
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}
	var req domain.ScanReadRequest
	if err := respond.DecodeJSON(r, &req); err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}

	item, err := h.Service.RegisterRead(r.Context(), actor, r.PathValue("id"), req)
	h.handleServiceResponse(w, r, item, err, http.StatusOK)
}

// CloseHandler lida com POST /v1/counts/{id}/close.
// @Summary Fecha a contagem e devolve as divergências
// @Tags counts
// @Accept json
// @Produce json
// @Param id path string true "ID da contagem"
// @Param body body domain.CloseCountRequest false "Ajustar estoque ao contado"
// @Success 200 {object} domain.CountCloseResult
// @Security ApiKeyAuth
// @Router /counts/{id}/close [post]
func (h *Handler) CloseHandler(w http.ResponseWriter, r *http.Request) {
	actor, err := respond.Actor(r)
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}
	var req domain.CloseCountRequest
	if r.ContentLength != 0 {
		if err := respond.DecodeJSON(r, &req); err != nil {
			h.handleServiceResponse(w, r, nil, err, http.StatusOK)
			return
		}
	}

	result, err := h.Service.Close(r.Context(), actor, r.PathValue("id"), req)
	h.handleServiceResponse(w, r, result, err, http.StatusOK)
}

// @Summary Itens contados
// @Tags counts
// @Produce json
// @Param id path string true "ID da contagem"
// @Success 200 {array} domain.CountItem
// @Security ApiKeyAuth
// @Router /counts/{id}/items [get]
func (h *Handler) ItemsHandler(w http.ResponseWriter, r *http.Request) {
	actor, err := respond.Actor(r)
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}

	items, err := h.Service.Items(r.Context(), actor, r.PathValue("id"))
	h.handleServiceResponse(w, r, items, err, http.StatusOK)
}

// ExportHandler lida com GET /v1/counts/{id}/export.
// @Summary Planilha XLSX de conferência da contagem
// @Tags counts
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path string true "ID da contagem"
// @Success 200 {file} binary
// @Security ApiKeyAuth
// @Router /counts/{id}/export [get]
func (h *Handler) ExportHandler(w http.ResponseWriter, r *http.Request) {
	actor, err := respond.Actor(r)
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}

	id := r.PathValue("id")
	var buf bytes.Buffer
	if err := h.Service.ExportXLSX(r.Context(), actor, id, &buf); err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="contagem-%s.xlsx"`, id))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.Logger.Error("Falha ao enviar planilha da contagem.", err)
	}
}
