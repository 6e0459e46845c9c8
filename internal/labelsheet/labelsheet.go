// Package labelsheet gera a folha A4 de etiquetas de um lote: grade 3×8, cada célula com
// o QR do código da etiqueta, a descrição da variante e o código curto legível.
package labelsheet

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/go-pdf/fpdf"
	qrcode "github.com/skip2/go-qrcode"

	"mouralws/internal/domain"
)

// Layout da folha (mm).
const (
	Columns      = 3
	Rows         = 8
	PerPage      = Columns * Rows
	pageMargin   = 8.0
	cellPadding  = 2.0
	qrSize       = 26.0
	qrPixels     = 256
	shortCodeLen = 8
)

// Render escreve o PDF do lote em w. labels vazio é erro.
func Render(w io.Writer, batch domain.LabelBatch, variant domain.VariantSummary, labels []domain.Label) error {
	pdf, err := build(batch, variant, labels)
	if err != nil {
		return err
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("labelsheet: escrever PDF: %w", err)
	}
	return nil
}

// ShortCode devolve os últimos caracteres do código, em maiúsculas, impressos abaixo do QR.
func ShortCode(code string) string {
	raw := strings.ReplaceAll(strings.TrimPrefix(code, domain.LabelCodePrefix), "-", "")
	if len(raw) > shortCodeLen {
		raw = raw[len(raw)-shortCodeLen:]
	}
	return strings.ToUpper(raw)
}

func build(batch domain.LabelBatch, variant domain.VariantSummary, labels []domain.Label) (*fpdf.Fpdf, error) {
	if len(labels) == 0 {
		return nil, fmt.Errorf("labelsheet: lote %s sem etiquetas", batch.ID)
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetTitle("Etiquetas lote "+batch.ID, true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageW, pageH := pdf.GetPageSize()
	cellW := (pageW - 2*pageMargin) / Columns
	cellH := (pageH - 2*pageMargin) / Rows
	textW := cellW - qrSize - 3*cellPadding
	description := tr(variant.Label())

	for i, label := range labels {
		slot := i % PerPage
		if slot == 0 {
			pdf.AddPage()
		}
		x := pageMargin + float64(slot%Columns)*cellW
		y := pageMargin + float64(slot/Columns)*cellH

		png, err := qrcode.Encode(label.Code, qrcode.Medium, qrPixels)
		if err != nil {
			return nil, fmt.Errorf("labelsheet: gerar QR de %s: %w", label.Code, err)
		}
		name := "qr-" + label.ID
		opts := fpdf.ImageOptions{ImageType: "PNG"}
		pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(png))
		pdf.ImageOptions(name, x+cellPadding, y+(cellH-qrSize)/2, qrSize, qrSize, false, opts, 0, "")

		// Linha de corte.
		pdf.SetDrawColor(200, 200, 200)
		pdf.Rect(x, y, cellW, cellH, "D")

		tx := x + qrSize + 2*cellPadding
		pdf.SetXY(tx, y+cellPadding+2)
		pdf.SetFont("Helvetica", "B", 7)
		pdf.MultiCell(textW, 3.2, description, "", "L", false)

		pdf.SetX(tx)
		pdf.SetFont("Helvetica", "", 6)
		pdf.CellFormat(textW, 3.5, "SKU "+tr(variant.SKU), "", 1, "L", false, 0, "")

		pdf.SetXY(tx, y+cellH-cellPadding-5)
		pdf.SetFont("Courier", "B", 9)
		pdf.CellFormat(textW, 5, ShortCode(label.Code), "", 0, "L", false, 0, "")

		if pdf.Err() {
			return nil, fmt.Errorf("labelsheet: montar folha: %w", pdf.Error())
		}
	}
	return pdf, nil
}

// Pages calcula quantas folhas um lote ocupa.
func Pages(quantity int) int {
	if quantity <= 0 {
		return 0
	}
	return (quantity + PerPage - 1) / PerPage
}
