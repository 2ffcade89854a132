package google

import (
	"boletos/internal/core"
	"boletos/internal/export"
)

// BuildRows lays out the open receivables as a header row followed by one row
// per open receivable, prefixed with the company name. Records a failed
// company collected before the failure are included.
func BuildRows(state core.AggregateState) [][]interface{} {
	header := make([]interface{}, 0, len(export.DetailHeader)+1)
	header = append(header, "Empresa")
	for _, h := range export.DetailHeader {
		header = append(header, h)
	}
	rows := [][]interface{}{header}
	for _, res := range state.Results {
		for _, r := range core.OpenReceivables(res.Records) {
			row := append([]interface{}{res.Company}, export.DetailRow(r)...)
			rows = append(rows, row)
		}
	}
	return rows
}
