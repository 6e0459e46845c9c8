package domain

import "time"

// User representa a entidade do usuário no sistema. Todo usuário pertence a uma empresa.
type User struct {
	ID           string    `json:"id"`
	CompanyID    string    `json:"company_id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         UserRole  `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UserRole é o papel do usuário no sistema.
type UserRole string

const (
	RoleSuperAdmin UserRole = "superadmin" // administração da plataforma (empresas e planos)
	RoleAdmin      UserRole = "admin"      // administrador de uma empresa
	RoleOperator   UserRole = "operator"   // operador de armazém (contagens, recebimentos)
)

// Valid informa se o papel é conhecido.
func (r UserRole) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin, RoleOperator:
		return true
	}
	return false
}

// UserRegistration é o payload de criação de usuário por um administrador.
type UserRegistration struct {
	Name     string   `json:"name" validate:"required,min=2,max=120"`
	Email    string   `json:"email" validate:"required,email"`
	Password string   `json:"password" validate:"required,min=8"`
	Role     UserRole `json:"role" validate:"omitempty,oneof=admin operator"`
}

// LoginResult é devolvido pelo login.
type LoginResult struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}
