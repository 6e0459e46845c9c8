package domain

// Actor é o usuário autenticado que executa uma operação; todo acesso a dados é
// restrito à empresa do ator.
type Actor struct {
	UserID    string
	CompanyID string
	Role      UserRole
}

// IsAdmin informa se o ator administra a empresa (ou a plataforma).
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin || a.Role == RoleSuperAdmin
}
