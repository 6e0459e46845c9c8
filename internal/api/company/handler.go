package company

import (
	"context"
	"net/http"

	"mouralws/internal/api/respond"
	"mouralws/internal/domain"
	"mouralws/internal/pkg/logger"
	"mouralws/internal/pkg/pagination"
)

// CompanyService é o contrato da administração de empresas.
type CompanyService interface {
	Create(ctx context.Context, actor domain.Actor, req domain.CreateCompanyRequest) (domain.Company, domain.User, error)
	Get(ctx context.Context, actor domain.Actor, id string) (domain.Company, error)
	List(ctx context.Context, actor domain.Actor, page pagination.Page) (pagination.Result[domain.Company], error)
	ChangePlan(ctx context.Context, actor domain.Actor, id string, plan domain.Plan) (domain.Company, error)
	SetActive(ctx context.Context, actor domain.Actor, id string, active bool) (domain.Company, error)
}

// CreateCompanyResponse devolve a empresa e o administrador criados juntos.
type CreateCompanyResponse struct {
	Company domain.Company `json:"company"`
	Admin   domain.User    `json:"admin"`
}

// SetActiveRequest ativa ou suspende uma empresa.
type SetActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}

type Handler struct {
	Service CompanyService
	Logger  logger.Logger
	Limits  pagination.Limits
}

func NewHandler(svc CompanyService, log logger.Logger, limits pagination.Limits) *Handler {
	return &Handler{Service: svc, Logger: log, Limits: limits}
}

func (h *Handler) handleServiceResponse(w http.ResponseWriter, r *http.Request, data interface{}, err error, successStatus int) {
	respond.ServiceResponse(h.Logger, w, r, data, err, successStatus)
}

// CreateCompanyHandler lida com POST /v1/companies.
// @Summary Cria uma empresa com seu administrador
// @Tags companies
// @Accept json
// @Produce json
// @Param company body domain.CreateCompanyRequest true "Empresa, plano e administrador"
// @Success 201 {object} CreateCompanyResponse
// @Failure 409 {object} domain.ErrorResponse "CNPJ ou e-mail já cadastrado"
// @Security ApiKeyAuth
// @Router /companies [post]
func (h *Handler) CreateCompanyHandler(w http.ResponseWriter, r *http.Request) {
	actor, err := respond.Actor(r)
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}
	var req domain.CreateCompanyRequest
	if err := respond.DecodeJSON(r, &req); err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}

	company, admin, err := h.Service.Create(r.Context(), actor, req)
	h.handleServiceResponse(w, r, CreateCompanyResponse{Company: company, Admin: admin}, err, http.StatusCreated)
}

// @Summary Lista empresas
// @Tags companies
// @Produce json
// @Success 200 {object} pagination.Result[domain.Company]
// @Security ApiKeyAuth
// @Router /companies [get]
func (h *Handler) ListCompaniesHandler(w http.ResponseWriter, r *http.Request) {
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

	result, err := h.Service.List(r.Context(), actor, page)
	h.handleServiceResponse(w, r, result, err, http.StatusOK)
}

// @Summary Obtém uma empresa
// @Tags companies
// @Produce json
// @Param id path string true "ID da empresa"
// @Success 200 {object} domain.Company
// @Security ApiKeyAuth
// @Router /companies/{id} [get]
func (h *Handler) GetCompanyHandler(w http.ResponseWriter, r *http.Request) {
	actor, err := respond.Actor(r)
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}

	company, err := h.Service.Get(r.Context(), actor, r.PathValue("id"))
	h.handleServiceResponse(w, r, company, err, http.StatusOK)
}

// ChangePlanHandler lida com PUT /v1/companies/{id}/plan.
// @Summary Troca o plano da empresa
// @Tags companies
// @Accept json
// @Produce json
// @Param id path string true "ID da empresa"
// @Param plan body domain.ChangePlanRequest true "Novo plano"
// @Success 200 {object} domain.Company
// @Failure 409 {object} domain.ErrorResponse "Uso atual excede o novo plano"
// @Security ApiKeyAuth
// @Router /companies/{id}/plan [put]
func (h *Handler) ChangePlanHandler(w http.ResponseWriter, r *http.Request) {
	actor, err := respond.Actor(r)
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}
	var req domain.ChangePlanRequest
	if err := respond.DecodeJSON(r, &req); err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}

	company, err := h.Service.ChangePlan(r.Context(), actor, r.PathValue("id"), req.Plan)
	h.handleServiceResponse(w, r, company, err, http.StatusOK)
}

// SetActiveHandler lida com PUT /v1/companies/{id}/active.
// @Summary Ativa ou suspende a empresa
// @Tags companies
// @Accept json
// @Produce json
// @Param id path string true "ID da empresa"
// @Param body body SetActiveRequest true "Situação"
// @Success 200 {object} domain.Company
// @Security ApiKeyAuth
// @Router /companies/{id}/active [put]
func (h *Handler) SetActiveHandler(w http.ResponseWriter, r *http.Request) {
	actor, err := respond.Actor(r)
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}
	var req SetActiveRequest
	if err := respond.DecodeJSON(r, &req); err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}

	company, err := h.Service.SetActive(r.Context(), actor, r.PathValue("id"), *req.Active)
	h.handleServiceResponse(w, r, company, err, http.StatusOK)
}
