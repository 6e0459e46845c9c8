package userservice

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"mouralws/internal/domain"
	apperror "mouralws/internal/errors"
	"mouralws/internal/pkg/logger"
	"mouralws/internal/pkg/token"
)

// UserRepository é o contrato de persistência de usuários.
type UserRepository interface {
	Save(ctx context.Context, user domain.User) (domain.User, error)
	FindByEmail(ctx context.Context, email string) (domain.User, error)
	CountByCompany(ctx context.Context, companyID string) (int, error)
}

// CompanyReader fornece plano e situação da empresa.
type CompanyReader interface {
	FindByID(ctx context.Context, id string) (domain.Company, error)
}

// UserService define o serviço de lógica de negócio para a entidade User.
type UserService struct {
	UserRepo  UserRepository
	Companies CompanyReader
	TokenSvc  token.TokenService
	logger    logger.Logger
}

// NewService cria uma nova instância do UserService.
func NewService(repo UserRepository, companies CompanyReader, tokenSvc token.TokenService, logger logger.Logger) *UserService {
	return &UserService{
		UserRepo:  repo,
		Companies: companies,
		TokenSvc:  tokenSvc,
		logger:    logger,
	}
}

// HashPassword gera o hash bcrypt de uma senha.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", apperror.NewInternalError("Falha ao gerar hash da senha.", err)
	}
	return string(hashed), nil
}

// NewUser monta um usuário pronto para persistir a partir do cadastro.
func NewUser(companyID string, registration domain.UserRegistration) (domain.User, error) {
	role := registration.Role
	if role == "" {
		role = domain.RoleOperator
	}
	if role == domain.RoleSuperAdmin || !role.Valid() {
		return domain.User{}, apperror.NewValidationError(fmt.Sprintf("Papel inválido: '%s'.", role))
	}
	hash, err := HashPassword(registration.Password)
	if err != nil {
		return domain.User{}, err
	}
	now := time.Now().UTC()
	return domain.User{
		ID:           uuid.New().String(),
		CompanyID:    companyID,
		Name:         strings.TrimSpace(registration.Name),
		Email:        strings.ToLower(strings.TrimSpace(registration.Email)),
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// Register cadastra um novo usuário na empresa do administrador.
func (s *UserService) Register(ctx context.Context, actor domain.Actor, registration domain.UserRegistration) (domain.User, error) {
	if !actor.IsAdmin() {
		return domain.User{}, apperror.NewForbiddenError("Apenas administradores cadastram usuários.")
	}
	if registration.Email == "" || registration.Password == "" {
		return domain.User{}, apperror.NewValidationError("Email e senha são obrigatórios.")
	}

	company, err := s.Companies.FindByID(ctx, actor.CompanyID)
	if err != nil {
		return domain.User{}, apperror.Passthrough(err, "Falha interna ao consultar empresa.")
	}
	limits, _ := company.Plan.Limits()
	current, err := s.UserRepo.CountByCompany(ctx, actor.CompanyID)
	if err != nil {
		return domain.User{}, apperror.NewInternalError("Falha interna ao contar usuários.", err)
	}
	if !domain.Allows(current, limits.MaxUsers) {
		s.logger.Warn("Limite de usuários do plano atingido.", map[string]interface{}{"company_id": actor.CompanyID, "current": current})
		return domain.User{}, apperror.NewConflictError(fmt.Sprintf("O plano %s permite no máximo %d usuário(s).", company.Plan, limits.MaxUsers))
	}

	newUser, err := NewUser(actor.CompanyID, registration)
	if err != nil {
		return domain.User{}, err
	}

	// E-mail duplicado já chega como ConflictError do repositório.
	user, err := s.UserRepo.Save(ctx, newUser)
	if err != nil {
		return domain.User{}, apperror.Passthrough(err, "Falha interna ao salvar usuário.")
	}

	s.logger.Info("Usuário cadastrado.", map[string]interface{}{"user_id": user.ID, "company_id": user.CompanyID, "role": string(user.Role)})
	return user, nil
}

// Login autentica um usuário, verifica a senha e gera um JWT.
func (s *UserService) Login(ctx context.Context, email string, password string) (domain.LoginResult, error) {
	if email == "" || password == "" {
		return domain.LoginResult{}, apperror.NewUnauthorizedError("Email e senha são obrigatórios.")
	}

	user, err := s.UserRepo.FindByEmail(ctx, email)
	if err != nil {
		// NotFound vira Unauthorized para não revelar quais e-mails existem.
		if apperror.IsNotFound(err) {
			return domain.LoginResult{}, apperror.NewUnauthorizedError("Credenciais inválidas.")
		}
		return domain.LoginResult{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.logger.Warn("Senha incorreta no login.", map[string]interface{}{"user_id": user.ID})
		return domain.LoginResult{}, apperror.NewUnauthorizedError("Credenciais inválidas.")
	}

	if user.Role != domain.RoleSuperAdmin {
		company, err := s.Companies.FindByID(ctx, user.CompanyID)
		if err != nil {
			return domain.LoginResult{}, apperror.Passthrough(err, "Falha interna ao consultar empresa.")
		}
		if !company.Active {
			return domain.LoginResult{}, apperror.NewUnauthorizedError("Empresa inativa.")
		}
	}

	tokenString, err := s.TokenSvc.GenerateToken(token.Subject{UserID: user.ID, CompanyID: user.CompanyID, Role: string(user.Role)})
	if err != nil {
		return domain.LoginResult{}, apperror.NewInternalError("Falha ao gerar token de autenticação.", err)
	}

	return domain.LoginResult{Token: tokenString, User: user}, nil
}
