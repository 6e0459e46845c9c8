package domain

// ScanResult é a resposta da decodificação de um quadro enviado por um leitor.
type ScanResult struct {
	Payload   string         `json:"payload"`
	Duplicate bool           `json:"duplicate"`
	Label     *ResolvedLabel `json:"label,omitempty"`
}
