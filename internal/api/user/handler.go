package user

import (
	"context"
	"net/http"

	"mouralws/internal/api/respond"
	"mouralws/internal/domain"
	"mouralws/internal/pkg/logger"
)

// UserService define o contrato para as operações de cadastro e login.
type UserService interface {
	Register(ctx context.Context, actor domain.Actor, registration domain.UserRegistration) (domain.User, error)
	Login(ctx context.Context, email string, password string) (domain.LoginResult, error)
}

// LoginRequest representa o payload de entrada para o login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Handler agrupa todos os métodos de Handler do usuário.
type Handler struct {
	Service UserService
	Logger  logger.Logger
}

// NewHandler cria uma nova instância do Handler, injetando o Service e o Logger.
func NewHandler(svc UserService, log logger.Logger) *Handler {
	return &Handler{
		Service: svc,
		Logger:  log,
	}
}

func (h *Handler) handleServiceResponse(w http.ResponseWriter, r *http.Request, data interface{}, err error, successStatus int) {
	respond.ServiceResponse(h.Logger, w, r, data, err, successStatus)
}

// RegisterUserHandler lida com a requisição POST /v1/users.
// @Summary Cadastra um usuário na empresa do administrador
// @Description Cria o usuário com senha em bcrypt, respeitando o limite de usuários do plano.
// @Tags users
// @Accept json
// @Produce json
// @Param registration body domain.UserRegistration true "Nome, e-mail, senha e papel"
// @Success 201 {object} domain.User "Usuário criado com sucesso"
// @Failure 400 {object} domain.ErrorResponse "Payload inválido"
// @Failure 409 {object} domain.ErrorResponse "Email já cadastrado ou limite do plano"
// @Security ApiKeyAuth
// @Router /users [post]
func (h *Handler) RegisterUserHandler(w http.ResponseWriter, r *http.Request) {
	actor, err := respond.Actor(r)
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}

	var reg domain.UserRegistration
	if err := respond.DecodeJSON(r, &reg); err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}

	// PasswordHash não sai no JSON (tag "-").
	newUser, err := h.Service.Register(r.Context(), actor, reg)
	h.handleServiceResponse(w, r, newUser, err, http.StatusCreated)
}

// LoginUserHandler lida com a requisição POST /v1/auth/login.
// @Summary Autentica um usuário e retorna um JWT
// @Tags auth
// @Accept json
// @Produce json
// @Param login body LoginRequest true "Credenciais do usuário (email e senha)"
// @Success 200 {object} domain.LoginResult "Token JWT emitido"
// @Failure 401 {object} domain.ErrorResponse "Credenciais inválidas"
// @Router /auth/login [post]
func (h *Handler) LoginUserHandler(w http.ResponseWriter, r *http.Request) {
	var loginReq LoginRequest
	if err := respond.DecodeJSON(r, &loginReq); err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}

	result, err := h.Service.Login(r.Context(), loginReq.Email, loginReq.Password)
	h.handleServiceResponse(w, r, result, err, http.StatusOK)
}
