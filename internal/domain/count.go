package domain

import "time"

// CountStatus é o status de uma contagem de estoque.
type CountStatus string

const (
	CountOpen   CountStatus = "ABERTA"
	CountClosed CountStatus = "FECHADA"
)

// Count (contagem) é um inventário físico de um armazém.
type Count struct {
	ID          string      `json:"id"`
	CompanyID   string      `json:"company_id"`
	WarehouseID string      `json:"warehouse_id"`
	Status      CountStatus `json:"status"`
	OpenedBy    string      `json:"opened_by"`
	CreatedAt   time.Time   `json:"created_at"`
	ClosedAt    *time.Time  `json:"closed_at,omitempty"`
}

// CountItem é a quantidade contada de uma variante.
type CountItem struct {
	CountID   string         `json:"count_id"`
	Variant   VariantSummary `json:"variant"`
	Quantity  int            `json:"quantity"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// CountDivergence compara o contado com o estoque do sistema.
type CountDivergence struct {
	Variant        VariantSummary `json:"variant"`
	Counted        int            `json:"counted"`
	SystemQuantity int            `json:"system_quantity"`
	Difference     int            `json:"difference"`
}

// CountCloseResult é devolvido no fechamento.
type CountCloseResult struct {
	Count         Count             `json:"count"`
	Divergences   []CountDivergence `json:"divergences"`
	StockAdjusted bool              `json:"stock_adjusted"`
}

// OpenCountRequest abre uma contagem.
type OpenCountRequest struct {
	WarehouseID string `json:"warehouse_id" validate:"required,uuid"`
}

// ScanReadRequest registra a leitura de um código (QR de etiqueta, código de barras ou SKU).
type ScanReadRequest struct {
	Code     string `json:"code" validate:"required,max=128"`
	Quantity int    `json:"quantity" validate:"omitempty,gte=1,lte=100000"`
}

// CloseCountRequest fecha a contagem, opcionalmente ajustando o estoque.
type CloseCountRequest struct {
	AdjustStock bool `json:"adjust_stock"`
}

// CountFilter filtra a listagem de contagens.
type CountFilter struct {
	Status      CountStatus
	WarehouseID string
}
