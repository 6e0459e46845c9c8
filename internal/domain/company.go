package domain

import "time"

// Plan é o plano contratado por uma empresa; define os limites de uso.
type Plan string

const (
	PlanBasic      Plan = "BASICO"
	PlanPro        Plan = "PRO"
	PlanEnterprise Plan = "ENTERPRISE"
)

// Unlimited marca um limite de plano sem teto.
const Unlimited = -1

// PlanLimits são os tetos de usuários e armazéns de um plano.
type PlanLimits struct {
	MaxUsers      int `json:"max_users"`
	MaxWarehouses int `json:"max_warehouses"`
}

var planLimits = map[Plan]PlanLimits{
	PlanBasic:      {MaxUsers: 3, MaxWarehouses: 1},
	PlanPro:        {MaxUsers: 15, MaxWarehouses: 5},
	PlanEnterprise: {MaxUsers: Unlimited, MaxWarehouses: Unlimited},
}

// Limits devolve os limites do plano e se o plano é conhecido.
func (p Plan) Limits() (PlanLimits, bool) {
	l, ok := planLimits[p]
	return l, ok
}

// Allows informa se o uso atual ainda comporta mais um item com o teto informado.
func Allows(current, max int) bool {
	return max == Unlimited || current < max
}

// Fits informa se o uso atual cabe no teto (usado em downgrade de plano).
func Fits(current, max int) bool {
	return max == Unlimited || current <= max
}

// Company (empresa) é o tenant do sistema.
type Company struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CNPJ      string    `json:"cnpj"`
	Plan      Plan      `json:"plan"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CompanyUsage é o consumo atual de uma empresa frente ao plano.
type CompanyUsage struct {
	Users      int `json:"users"`
	Warehouses int `json:"warehouses"`
}

// CreateCompanyRequest cria uma empresa com seu primeiro administrador.
type CreateCompanyRequest struct {
	Name  string           `json:"name" validate:"required,min=2,max=160"`
	CNPJ  string           `json:"cnpj" validate:"required,len=14,numeric"`
	Plan  Plan             `json:"plan" validate:"required,oneof=BASICO PRO ENTERPRISE"`
	Admin UserRegistration `json:"admin" validate:"required"`
}

// ChangePlanRequest troca o plano de uma empresa.
type ChangePlanRequest struct {
	Plan Plan `json:"plan" validate:"required,oneof=BASICO PRO ENTERPRISE"`
}
