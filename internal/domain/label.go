package domain

import "time"

// LabelBatchStatus é o status de um lote de etiquetas.
type LabelBatchStatus string

const (
	BatchGenerated LabelBatchStatus = "GERADO"
	BatchPrinted   LabelBatchStatus = "IMPRESSO"
)

// LabelStatus é o status de uma etiqueta individual.
type LabelStatus string

const (
	LabelAvailable LabelStatus = "DISPONIVEL"
	LabelUsed      LabelStatus = "USADO"
)

// LabelCodePrefix é o prefixo do payload gravado no QR de cada etiqueta.
const LabelCodePrefix = "LWS-"

// MaxBatchQuantity é o maior lote de etiquetas gerado de uma vez.
const MaxBatchQuantity = 1000

// LabelBatch (lote) agrupa etiquetas geradas para uma variante.
type LabelBatch struct {
	ID        string           `json:"id"`
	CompanyID string           `json:"company_id"`
	VariantID string           `json:"variant_id"`
	Quantity  int              `json:"quantity"`
	Status    LabelBatchStatus `json:"status"`
	CreatedBy string           `json:"created_by"`
	CreatedAt time.Time        `json:"created_at"`
	PrintedAt *time.Time       `json:"printed_at,omitempty"`
}

// Label (etiqueta) carrega o código impresso no QR.
type Label struct {
	ID        string      `json:"id"`
	BatchID   string      `json:"batch_id"`
	CompanyID string      `json:"company_id"`
	VariantID string      `json:"variant_id"`
	Code      string      `json:"code"`
	Status    LabelStatus `json:"status"`
	UsedAt    *time.Time  `json:"used_at,omitempty"`
	UsedRef   string      `json:"used_ref,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

// ResolvedLabel é a etiqueta com a descrição da variante, devolvida na leitura de QR.
type ResolvedLabel struct {
	Label   Label          `json:"label"`
	Variant VariantSummary `json:"variant"`
}

// CreateLabelBatchRequest é o payload de geração de lote.
type CreateLabelBatchRequest struct {
	VariantID string `json:"variant_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"gte=1,lte=1000"`
}
