package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product representa o item principal do catálogo.
type Product struct {
	ID          string          `json:"id"`
	CompanyID   string          `json:"company_id"`
	SKU         string          `json:"sku"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	IsActive    bool            `json:"is_active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`

	Variants []Variant `json:"variants"`
}

// Variant representa as variações de um Produto (e.g., cor, tamanho).
// Estoque, etiquetas, contagens e recebimentos são controlados por variante.
type Variant struct {
	ID        string          `json:"id"`
	ProductID string          `json:"product_id"`
	SKU       string          `json:"sku"`
	Attribute string          `json:"attribute"`
	Value     string          `json:"value"`
	Barcode   string          `json:"barcode"`
	PriceDiff decimal.Decimal `json:"price_diff"`
	CreatedAt time.Time       `json:"created_at"`
}

// VariantSummary é a variante com o nome do produto, usada em buscas, etiquetas e relatórios.
type VariantSummary struct {
	VariantID   string    `json:"variant_id"`
	ProductID   string    `json:"product_id"`
	ProductName string    `json:"product_name"`
	SKU         string    `json:"sku"`
	Attribute   string    `json:"attribute"`
	Value       string    `json:"value"`
	Barcode     string    `json:"barcode"`
	CreatedAt   time.Time `json:"created_at"`
}

// Label devolve a descrição curta da variante ("Bateria 60Ah - Cor: Preta").
func (v VariantSummary) Label() string {
	if v.Attribute == "" && v.Value == "" {
		return v.ProductName
	}
	return v.ProductName + " - " + v.Attribute + ": " + v.Value
}

// ProductFilter define os filtros de busca de produtos.
type ProductFilter struct {
	Name       string
	SKU        string
	ActiveOnly bool
}

// CreateProductRequest é o payload de criação de produto com variantes.
type CreateProductRequest struct {
	Product  Product   `json:"product"`
	Variants []Variant `json:"variants"`
}
