package product

import (
	"context"
	"net/http"

	"mouralws/internal/api/respond"
	"mouralws/internal/domain"
	"mouralws/internal/pkg/logger"
	"mouralws/internal/pkg/pagination"
)

// ProductService define o contrato que o Handler espera da camada de Serviço.
type ProductService interface {
	CreateProduct(ctx context.Context, actor domain.Actor, p domain.Product, variants []domain.Variant) (domain.Product, error)
	GetProductByID(ctx context.Context, actor domain.Actor, id string) (domain.Product, error)
	ListProducts(ctx context.Context, actor domain.Actor, filter domain.ProductFilter, page pagination.Page) (pagination.Result[domain.Product], error)
	SearchVariants(ctx context.Context, actor domain.Actor, q string, page pagination.Page) (pagination.Result[domain.VariantSummary], error)
}

// Handler agrupa todos os métodos de Handler do produto.
type Handler struct {
	Service ProductService
	Logger  logger.Logger
	Limits  pagination.Limits
}

// NewHandler cria uma nova instância do Handler, injetando o Service e o Logger.
func NewHandler(svc ProductService, log logger.Logger, limits pagination.Limits) *Handler {
	return &Handler{
		Service: svc,
		Logger:  log,
		Limits:  limits,
	}
}

func (h *Handler) handleServiceResponse(w http.ResponseWriter, r *http.Request, data interface{}, err error, successStatus int) {
	respond.ServiceResponse(h.Logger, w, r, data, err, successStatus)
}

// CreateProductHandler lida com a requisição POST /v1/products.
// @Summary Cria um produto com variantes
// @Tags products
// @Accept json
// @Produce json
// @Param product body domain.CreateProductRequest true "Produto e variantes"
// @Success 201 {object} domain.Product
// @Failure 400 {object} domain.ErrorResponse "Payload inválido"
// @Failure 409 {object} domain.ErrorResponse "SKU já existe"
// @Security ApiKeyAuth
// @Router /products [post]
func (h *Handler) CreateProductHandler(w http.ResponseWriter, r *http.Request) {
	actor, err := respond.Actor(r)
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}

	var req domain.CreateProductRequest
	if err := respond.DecodeJSON(r, &req); err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}

	created, err := h.Service.CreateProduct(r.Context(), actor, req.Product, req.Variants)
	h.handleServiceResponse(w, r, created, err, http.StatusCreated)
}

// GetProductByIDHandler lida com a requisição GET /v1/products/{id}.
// @Summary Obtém um produto por ID
// @Tags products
// @Produce json
// @Param id path string true "ID do produto"
// @Success 200 {object} domain.Product
// @Failure 404 {object} domain.ErrorResponse "Produto não encontrado"
// @Security ApiKeyAuth
// @Router /products/{id} [get]
func (h *Handler) GetProductByIDHandler(w http.ResponseWriter, r *http.Request) {
	actor, err := respond.Actor(r)
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}

	product, err := h.Service.GetProductByID(r.Context(), actor, r.PathValue("id"))
	h.handleServiceResponse(w, r, product, err, http.StatusOK)
}

// ListProductsHandler lida com a requisição GET /v1/products?name=&sku=&active=&limit=&cursor=.
// @Summary Lista produtos
// @Tags products
// @Produce json
// @Param name query string false "Parte do nome"
// @Param sku query string false "SKU exato"
// @Param active query bool false "Somente ativos"
// @Param limit query int false "Tamanho da página"
// @Param cursor query string false "Cursor da próxima página"
// @Success 200 {object} pagination.Result[domain.Product]
// @Security ApiKeyAuth
// @Router /products [get]
func (h *Handler) ListProductsHandler(w http.ResponseWriter, r *http.Request) {
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
	filter := domain.ProductFilter{
		Name:       q.Get("name"),
		SKU:        q.Get("sku"),
		ActiveOnly: q.Get("active") == "true",
	}

	result, err := h.Service.ListProducts(r.Context(), actor, filter, page)
	h.handleServiceResponse(w, r, result, err, http.StatusOK)
}

// SearchVariantsHandler lida com a requisição GET /v1/variants/search?q=.
// @Summary Busca variantes por código de barras, SKU ou nome
// @Tags products
// @Produce json
// @Param q query string true "Termo de busca"
// @Success 200 {object} pagination.Result[domain.VariantSummary]
// @Security ApiKeyAuth
// @Router /variants/search [get]
func (h *Handler) SearchVariantsHandler(w http.ResponseWriter, r *http.Request) {
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

	result, err := h.Service.SearchVariants(r.Context(), actor, r.URL.Query().Get("q"), page)
	h.handleServiceResponse(w, r, result, err, http.StatusOK)
}
