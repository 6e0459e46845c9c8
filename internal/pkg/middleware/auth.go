package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"mouralws/internal/domain"
	apperror "mouralws/internal/errors"
	"mouralws/internal/pkg/token"
)

// ContextKey é o tipo das chaves que o middleware grava no contexto.
type ContextKey int

const (
	UserClaimsKey ContextKey = iota
)

// TokenService define o contrato de validação necessário para o middleware.
type TokenService interface {
	ValidateToken(tokenString string) (*token.CustomClaims, error)
}

// writeError responde no mesmo formato JSON de erro dos handlers.
func writeError(w http.ResponseWriter, err error) {
	status, category, message := apperror.MapToHTTPStatus(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(domain.ErrorResponse{Code: status, Category: category, Message: message})
}

// NewAuthMiddleware valida o JWT do header Authorization e anexa o ator
// (usuário, empresa e papel) ao contexto da requisição.
func NewAuthMiddleware(tokenSvc TokenService) func(next http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			tokenString, found := strings.CutPrefix(authHeader, "Bearer ")
			if !found || strings.TrimSpace(tokenString) == "" {
				writeError(w, apperror.NewUnauthorizedError("Token de autorização ausente ou malformado."))
				return
			}

			claims, err := tokenSvc.ValidateToken(strings.TrimSpace(tokenString))
			if err != nil {
				writeError(w, apperror.NewUnauthorizedError("Token inválido ou expirado."))
				return
			}

			role := domain.UserRole(claims.Role)
			if !role.Valid() || claims.UserID == "" || (claims.CompanyID == "" && role != domain.RoleSuperAdmin) {
				writeError(w, apperror.NewUnauthorizedError("Token com claims incompletas."))
				return
			}

			actor := domain.Actor{UserID: claims.UserID, CompanyID: claims.CompanyID, Role: role}
			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		}
	}
}

// WithActor anexa o ator ao contexto.
func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, UserClaimsKey, actor)
}

// ActorFromContext extrai o ator anexado pelo NewAuthMiddleware.
func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(UserClaimsKey).(domain.Actor)
	return actor, ok
}

// PermissionMiddleware libera o acesso apenas aos papéis informados.
func PermissionMiddleware(requiredRoles ...domain.UserRole) func(next http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			actor, ok := ActorFromContext(r.Context())
			if !ok {
				writeError(w, apperror.NewUnauthorizedError("Autorização necessária. Token não processado."))
				return
			}

			for _, requiredRole := range requiredRoles {
				if actor.Role == requiredRole {
					next.ServeHTTP(w, r)
					return
				}
			}

			writeError(w, apperror.NewForbiddenError("Você não tem a permissão necessária."))
		}
	}
}
