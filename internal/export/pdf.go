package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"

	"boletos/internal/core"
)

// BuildPDF renders a landscape report with the open summary and detail table
// of every company. A failed company gets an error line followed by whatever
// it collected before the failure.
func BuildPDF(state core.AggregateState) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(tr("Dashboard de Acompanhamento de Boletos"), false)
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.Cell(0, 8, tr("Dashboard de Acompanhamento de Boletos"))
	pdf.Ln(8)
	pdf.SetFont("Arial", "", 9)
	pdf.Cell(0, 6, tr(fmt.Sprintf("Coletado em %s", state.CollectedAt.Format("02/01/2006 15:04:05"))))
	pdf.Ln(10)

	widths := []float64{28, 30, 24, 28, 30, 28, 80, 29}
	for _, res := range state.Results {
		s := core.Summarize(res.Records)

		pdf.SetFont("Arial", "B", 12)
		pdf.Cell(0, 7, tr(res.Company))
		pdf.Ln(7)
		pdf.SetFont("Arial", "", 10)

		if res.Err != nil {
			pdf.Cell(0, 6, tr(fmt.Sprintf("Erro na coleta de %s: %s", res.Company, res.Err)))
			pdf.Ln(8)
		}
		switch {
		case len(res.Records) == 0:
			pdf.Cell(0, 6, tr("Nenhum dado encontrado."))
			pdf.Ln(8)
			continue
		case s.IsEmpty():
			pdf.Cell(0, 6, tr("Nenhum boleto em aberto encontrado."))
			pdf.Ln(8)
			continue
		}

		pdf.Cell(0, 6, tr(fmt.Sprintf("Total a Receber (em aberto): %s", core.FormatBRL(s.Total))))
		pdf.Ln(5)
		pdf.Cell(0, 6, tr(fmt.Sprintf("Total de Boletos em Aberto: %d", s.Count)))
		pdf.Ln(7)

		pdf.SetFont("Arial", "B", 9)
		for i, p := range s.ByProcess {
			if i == 0 {
				pdf.CellFormat(60, 6, tr("Processo"), "1", 0, "C", false, 0, "")
				pdf.CellFormat(40, 6, tr("Valor em Aberto"), "1", 0, "C", false, 0, "")
				pdf.Ln(-1)
				pdf.SetFont("Arial", "", 9)
			}
			pdf.CellFormat(60, 6, tr(p.Code), "1", 0, "L", false, 0, "")
			pdf.CellFormat(40, 6, tr(core.FormatBRL(p.Amount)), "1", 0, "R", false, 0, "")
			pdf.Ln(-1)
		}
		pdf.Ln(4)

		pdf.SetFont("Arial", "B", 8)
		for i, h := range DetailHeader {
			pdf.CellFormat(widths[i], 6, tr(h), "1", 0, "C", false, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 8)
		for _, r := range s.Rows {
			for i, v := range DetailRow(r) {
				text, align := fmt.Sprint(v), "L"
				if amount, ok := v.(float64); ok {
					text, align = core.FormatBRL(amount), "R"
				}
				pdf.CellFormat(widths[i], 5, clip(pdf, tr(text), widths[i]), "1", 0, align, false, 0, "")
			}
			pdf.Ln(-1)
		}
		pdf.Ln(6)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// clip shortens text so that it fits a cell of width w.
func clip(pdf *gofpdf.Fpdf, text string, w float64) string {
	r := []rune(text)
	for len(r) > 0 && pdf.GetStringWidth(string(r)) > w-2 {
		r = r[:len(r)-1]
	}
	return string(r)
}
