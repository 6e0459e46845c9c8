package domain

import (
	"time"
)

// Warehouse representa um armazém físico ou lógico de uma empresa.
type Warehouse struct {
	ID        string    `json:"id"`
	CompanyID string    `json:"company_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
