// Package report gera as planilhas exportadas pelo Moura LWS.
package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"mouralws/internal/domain"
)

const countSheet = "Contagem"

var countHeader = []interface{}{
	"SKU",
	"Produto",
	"Variante",
	"Código de barras",
	"Contado",
	"Sistema",
	"Diferença",
}

// WriteCount escreve a planilha da contagem: uma linha por variante com o contado,
// o estoque do sistema e a diferença.
func WriteCount(w io.Writer, count domain.Count, rows []domain.CountDivergence) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(f.GetActiveSheetIndex()), countSheet); err != nil {
		return fmt.Errorf("report: renomear planilha: %w", err)
	}

	meta := []interface{}{"Contagem", count.ID, "Armazém", count.WarehouseID, "Status", string(count.Status)}
	if err := f.SetSheetRow(countSheet, "A1", &meta); err != nil {
		return fmt.Errorf("report: cabeçalho da contagem: %w", err)
	}
	if err := f.SetSheetRow(countSheet, "A3", &countHeader); err != nil {
		return fmt.Errorf("report: cabeçalho: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		_ = f.SetRowStyle(countSheet, 3, 3, bold)
	}

	row := 4
	for _, d := range rows {
		line := []interface{}{
			d.Variant.SKU,
			d.Variant.ProductName,
			variantText(d.Variant),
			d.Variant.Barcode,
			d.Counted,
			d.SystemQuantity,
			d.Difference,
		}
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return fmt.Errorf("report: célula: %w", err)
		}
		if err := f.SetSheetRow(countSheet, cell, &line); err != nil {
			return fmt.Errorf("report: linha %d: %w", row, err)
		}
		row++
	}

	_ = f.SetColWidth(countSheet, "A", "A", 16)
	_ = f.SetColWidth(countSheet, "B", "C", 32)
	_ = f.SetColWidth(countSheet, "D", "D", 18)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("report: escrever xlsx: %w", err)
	}
	return nil
}

func variantText(v domain.VariantSummary) string {
	if v.Attribute == "" {
		return v.Value
	}
	return v.Attribute + ": " + v.Value
}
