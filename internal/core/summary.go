package core

import (
	"sort"

	"github.com/dustin/go-humanize"
)

// ProcessAmount is an open amount aggregated by process code.
type ProcessAmount struct {
	Code   string
	Amount float64
}

// OpenSummary is the dashboard summary of a company's open receivables.
type OpenSummary struct {
	Total     float64
	Count     int
	ByProcess []ProcessAmount
	Rows      []Receivable
}

// OpenReceivables returns the receivables without a payment date, in order.
func OpenReceivables(rs []Receivable) []Receivable {
	var open []Receivable
	for _, r := range rs {
		if r.IsOpen() {
			open = append(open, r)
		}
	}
	return open
}

// Summarize filters rs to open receivables and computes totals over them.
func Summarize(rs []Receivable) OpenSummary {
	open := OpenReceivables(rs)
	s := OpenSummary{
		Count:     len(open),
		ByProcess: GroupByProcess(open),
		Rows:      open,
	}
	for _, r := range open {
		s.Total += r.Amount
	}
	return s
}

// IsEmpty reports whether there is nothing open to show.
func (s OpenSummary) IsEmpty() bool {
	return s.Count == 0
}

// GroupByProcess sums amounts per process code, largest first.
// Ties are ordered by code.
func GroupByProcess(rs []Receivable) []ProcessAmount {
	sums := map[string]float64{}
	var order []string
	for _, r := range rs {
		if _, ok := sums[r.ProcessCode]; !ok {
			order = append(order, r.ProcessCode)
		}
		sums[r.ProcessCode] += r.Amount
	}
	out := make([]ProcessAmount, 0, len(order))
	for _, code := range order {
		out = append(out, ProcessAmount{Code: code, Amount: sums[code]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Amount != out[j].Amount {
			return out[i].Amount > out[j].Amount
		}
		return out[i].Code < out[j].Code
	})
	return out
}

// FormatBRL formats an amount the Brazilian way, e.g. "R$ 1.234,56".
func FormatBRL(v float64) string {
	return "R$ " + FormatDecimal(v)
}

// FormatDecimal formats v with "." thousands and "," decimal separators.
func FormatDecimal(v float64) string {
	s := humanize.FormatFloat("#.###,##", v)
	if s == "-0,00" {
		return "0,00"
	}
	return s
}
