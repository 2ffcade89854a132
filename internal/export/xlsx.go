package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"boletos/internal/core"
)

const summarySheet = "Resumo"

// BuildXLSX renders a summary sheet plus one sheet of open receivables per
// company.
func BuildXLSX(state core.AggregateState) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, fmt.Errorf("rename summary sheet: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}
	money, err := f.NewStyle(&excelize.Style{NumFmt: 4}) // #,##0.00
	if err != nil {
		return nil, fmt.Errorf("create amount style: %w", err)
	}

	_ = f.SetCellValue(summarySheet, "A1", "Boletos em Aberto")
	_ = f.SetCellValue(summarySheet, "A2", "Coletado em")
	_ = f.SetCellValue(summarySheet, "B2", state.CollectedAt.Format("02/01/2006 15:04:05"))
	header := []any{"Empresa", "Boletos em Aberto", "Total a Receber", "Situação"}
	if err := f.SetSheetRow(summarySheet, "A4", &header); err != nil {
		return nil, fmt.Errorf("write summary header: %w", err)
	}
	_ = f.SetCellStyle(summarySheet, "A4", "D4", bold)

	used := map[string]bool{strings.ToLower(summarySheet): true}
	for i, res := range state.Results {
		s := core.Summarize(res.Records)
		row := i + 5
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), res.Company)
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row), s.Count)
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("C%d", row), s.Total)
		_ = f.SetCellStyle(summarySheet, fmt.Sprintf("C%d", row), fmt.Sprintf("C%d", row), money)
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("D%d", row), Status(res))

		if err := writeCompanySheet(f, SheetName(res.Company, used), s, bold, money); err != nil {
			return nil, err
		}
	}
	_ = f.SetColWidth(summarySheet, "A", "A", 32)
	_ = f.SetColWidth(summarySheet, "B", "C", 20)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeCompanySheet(f *excelize.File, sheet string, s core.OpenSummary, bold, money int) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("create sheet %q: %w", sheet, err)
	}
	header := make([]any, len(DetailHeader))
	for i, h := range DetailHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write header of %q: %w", sheet, err)
	}
	_ = f.SetCellStyle(sheet, "A1", "H1", bold)
	for i, r := range s.Rows {
		row := DetailRow(r)
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d of %q: %w", i+2, sheet, err)
		}
		_ = f.SetCellStyle(sheet, fmt.Sprintf("D%d", i+2), fmt.Sprintf("D%d", i+2), money)
	}

	// Totals by process to the right of the table.
	_ = f.SetCellValue(sheet, "J1", "Processo")
	_ = f.SetCellValue(sheet, "K1", "Valor em Aberto")
	_ = f.SetCellStyle(sheet, "J1", "K1", bold)
	for i, p := range s.ByProcess {
		_ = f.SetCellValue(sheet, fmt.Sprintf("J%d", i+2), p.Code)
		_ = f.SetCellValue(sheet, fmt.Sprintf("K%d", i+2), p.Amount)
		_ = f.SetCellStyle(sheet, fmt.Sprintf("K%d", i+2), fmt.Sprintf("K%d", i+2), money)
	}
	return nil
}
