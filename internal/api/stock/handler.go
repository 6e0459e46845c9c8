package stock

import (
	"context"
	"net/http"

	"mouralws/internal/api/respond"
	"mouralws/internal/domain"
	"mouralws/internal/pkg/logger"
)

// StockService define o contrato que o Handler espera da camada de Serviço.
type StockService interface {
	AdjustStock(ctx context.Context, actor domain.Actor, adjustment domain.StockAdjustmentRequest) (domain.StockLevel, error)
	GetStock(ctx context.Context, actor domain.Actor, variantID, warehouseID string) (domain.StockLevel, error)
}

// Handler agrupa todos os métodos de Handler de estoque.
type Handler struct {
	Service StockService
	Logger  logger.Logger
}

// NewHandler cria uma nova instância do Handler, injetando o Service e o Logger.
func NewHandler(svc StockService, log logger.Logger) *Handler {
	return &Handler{
		Service: svc,
		Logger:  log,
	}
}

func (h *Handler) handleServiceResponse(w http.ResponseWriter, r *http.Request, data interface{}, err error, successStatus int) {
	respond.ServiceResponse(h.Logger, w, r, data, err, successStatus)
}

// AdjustStockHandler lida com a requisição POST /v1/stock/adjust.
// @Summary Ajusta o estoque de uma variante em um armazém
// @Tags stock
// @Accept json
// @Produce json
// @Param adjustment body domain.StockAdjustmentRequest true "Variante, armazém e delta"
// @Success 200 {object} domain.StockLevel
// @Failure 409 {object} domain.ErrorResponse "Conflito de versão"
// @Security ApiKeyAuth
// @Router /stock/adjust [post]
func (h *Handler) AdjustStockHandler(w http.ResponseWriter, r *http.Request) {
	actor, err := respond.Actor(r)
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}

	var adjustmentRequest domain.StockAdjustmentRequest
	if err := respond.DecodeJSON(r, &adjustmentRequest); err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}

	stockLevel, err := h.Service.AdjustStock(r.Context(), actor, adjustmentRequest)
	h.handleServiceResponse(w, r, stockLevel, err, http.StatusOK)
}

// GetStockHandler lida com a requisição GET /v1/stock?variant_id=&warehouse_id=.
// @Summary Consulta o estoque de uma variante em um armazém
// @Tags stock
// @Produce json
// @Param variant_id query string true "ID da variante"
// @Param warehouse_id query string true "ID do armazém"
// @Success 200 {object} domain.StockLevel
// @Security ApiKeyAuth
// @Router /stock [get]
func (h *Handler) GetStockHandler(w http.ResponseWriter, r *http.Request) {
	actor, err := respond.Actor(r)
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}

	q := r.URL.Query()
	level, err := h.Service.GetStock(r.Context(), actor, q.Get("variant_id"), q.Get("warehouse_id"))
	h.handleServiceResponse(w, r, level, err, http.StatusOK)
}
