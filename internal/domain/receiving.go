package domain

import "time"

// ReceivingStatus é o status de um recebimento.
type ReceivingStatus string

const (
	ReceivingOpen     ReceivingStatus = "ABERTO"
	ReceivingApproved ReceivingStatus = "APROVADO"
	ReceivingRejected ReceivingStatus = "REPROVADO"
)

// Receiving (recebimento) é a conferência de uma nota de entrada.
type Receiving struct {
	ID            string          `json:"id"`
	CompanyID     string          `json:"company_id"`
	WarehouseID   string          `json:"warehouse_id"`
	Supplier      string          `json:"supplier"`
	InvoiceNumber string          `json:"invoice_number"`
	Status        ReceivingStatus `json:"status"`
	Reason        string          `json:"reason,omitempty"`
	CreatedBy     string          `json:"created_by"`
	CreatedAt     time.Time       `json:"created_at"`
	DecidedAt     *time.Time      `json:"decided_at,omitempty"`
	Items         []ReceivingItem `json:"items,omitempty"`
}

// ReceivingItem é a linha esperada/recebida de uma variante.
type ReceivingItem struct {
	Variant  VariantSummary `json:"variant"`
	Expected int            `json:"expected"`
	Received int            `json:"received"`
}

// Divergent informa se o recebido difere do esperado.
func (i ReceivingItem) Divergent() bool {
	return i.Expected != i.Received
}

// Divergences filtra os itens divergentes.
func (r Receiving) Divergences() []ReceivingItem {
	out := []ReceivingItem{}
	for _, it := range r.Items {
		if it.Divergent() {
			out = append(out, it)
		}
	}
	return out
}

// ExpectedItem é uma linha da nota informada na abertura.
type ExpectedItem struct {
	VariantID string `json:"variant_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"gte=1"`
}

// CreateReceivingRequest abre um recebimento.
type CreateReceivingRequest struct {
	WarehouseID   string         `json:"warehouse_id" validate:"required,uuid"`
	Supplier      string         `json:"supplier" validate:"required,max=160"`
	InvoiceNumber string         `json:"invoice_number" validate:"required,max=60"`
	Items         []ExpectedItem `json:"items" validate:"required,min=1,dive"`
}

// ApproveReceivingRequest aprova, opcionalmente aceitando divergências.
type ApproveReceivingRequest struct {
	AllowDivergence bool `json:"allow_divergence"`
}

// RejectReceivingRequest reprova com motivo obrigatório.
type RejectReceivingRequest struct {
	Reason string `json:"reason" validate:"required,min=3,max=500"`
}

// ReceivingReadResult é devolvido a cada leitura registrada.
type ReceivingReadResult struct {
	Label ResolvedLabel `json:"label"`
	Item  ReceivingItem `json:"item"`
}

// ReceivingFilter filtra a listagem.
type ReceivingFilter struct {
	Status ReceivingStatus
}
