// Package export renders the open receivables of an AggregateState as XLSX
// and PDF documents.
package export

import (
	"strconv"
	"strings"

	"boletos/internal/core"
)

const (
	FormatXLSX = "xlsx"
	FormatPDF  = "pdf"
)

// DetailHeader is the column header of the open receivables table.
var DetailHeader = []string{
	"Número Título",
	"Número Documento",
	"Vencimento",
	"Valor",
	"Data Competência",
	"Data Pagamento",
	"Cliente",
	"Processo",
}

// DetailRow returns the cells of one receivable in DetailHeader order.
// The amount stays numeric.
func DetailRow(r core.Receivable) []any {
	paid := ""
	if r.PaymentDate != nil {
		paid = *r.PaymentDate
	}
	return []any{
		r.TitleNumber,
		r.DocumentNumber,
		r.DueDate,
		r.Amount,
		r.AccrualDate,
		paid,
		r.ClientName,
		r.ProcessCode,
	}
}

// Status describes the collection outcome of a company for reports.
func Status(res core.CompanyResult) string {
	switch {
	case res.Err != nil:
		return "Erro: " + res.Err.Error()
	case len(res.Records) == 0:
		return "Nenhum dado encontrado."
	default:
		return "OK"
	}
}

// SheetName turns a company name into a valid, unique worksheet name.
func SheetName(name string, used map[string]bool) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case '[', ']', ':', '*', '?', '/', '\\':
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
	name = strings.Trim(name, "'")
	if name == "" {
		name = "Empresa"
	}
	base := truncateRunes(name, 31)
	candidate := base
	for i := 2; used[strings.ToLower(candidate)]; i++ {
		suffix := " (" + strconv.Itoa(i) + ")"
		candidate = truncateRunes(base, 31-len([]rune(suffix))) + suffix
	}
	used[strings.ToLower(candidate)] = true
	return candidate
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
