package http

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"boletos/internal/core"
)

const timeLayout = "02/01/2006 15:04:05"

type (
	pageView struct {
		Title          string
		Loaded         bool
		CollectedAt    string
		Generation     uint64
		Companies      []companyView
		History        []runView
		HistoryEnabled bool
	}

	// companyView is one company section. Error is shown as a banner above
	// whatever was collected before the failure; at most one of NoData, NoOpen
	// and the metrics block is rendered.
	companyView struct {
		Name   string
		Error  string
		NoData bool
		NoOpen bool
		Total  string
		Count  int
		Bars   []barView
		Rows   []rowView
	}

	// barView is one process bar; Credit marks a negative sum.
	barView struct {
		Code   string
		Amount string
		Width  int
		Credit bool
	}

	rowView struct {
		TitleNumber    string
		DocumentNumber string
		DueDate        string
		Amount         string
		Defaulted      bool
		AccrualDate    string
		ClientName     string
		ProcessCode    string
	}

	runView struct {
		Company     string
		Generation  uint64
		Records     int
		OpenRecords int
		OpenTotal   string
		Status      string
		Failed      bool
		Duration    string
		CollectedAt string
	}
)

func newPageView(state core.AggregateState, loaded bool) pageView {
	v := pageView{
		Title:      "Dashboard de Acompanhamento de Boletos",
		Loaded:     loaded,
		Generation: state.Generation,
	}
	if !state.CollectedAt.IsZero() {
		v.CollectedAt = state.CollectedAt.Format(timeLayout)
	}
	for _, res := range state.Results {
		v.Companies = append(v.Companies, newCompanyView(res))
	}
	return v
}

func newCompanyView(res core.CompanyResult) companyView {
	v := companyView{Name: res.Company}
	if res.Err != nil {
		v.Error = errorBanner(res)
	}
	if len(res.Records) == 0 {
		v.NoData = true
		return v
	}

	s := core.Summarize(res.Records)
	if s.IsEmpty() {
		v.NoOpen = true
		return v
	}

	v.Total = core.FormatBRL(s.Total)
	v.Count = s.Count
	var max float64
	for _, p := range s.ByProcess {
		max = math.Max(max, math.Abs(p.Amount))
	}
	for _, p := range s.ByProcess {
		v.Bars = append(v.Bars, barView{
			Code:   orDash(p.Code),
			Amount: core.FormatBRL(p.Amount),
			Width:  barWidth(p.Amount, max),
			Credit: p.Amount < 0,
		})
	}
	for _, r := range s.Rows {
		v.Rows = append(v.Rows, rowView{
			TitleNumber:    r.TitleNumber,
			DocumentNumber: r.DocumentNumber,
			DueDate:        r.DueDate,
			Amount:         core.FormatBRL(r.Amount),
			Defaulted:      r.AmountDefaulted,
			AccrualDate:    r.AccrualDate,
			ClientName:     r.ClientName,
			ProcessCode:    r.ProcessCode,
		})
	}
	return v
}

// errorBanner names the company and, when the API answered, its status code.
func errorBanner(res core.CompanyResult) string {
	if code := core.StatusCode(res.Err); code != 0 {
		return fmt.Sprintf("Erro na coleta de %s: %d", res.Company, code)
	}
	return fmt.Sprintf("Erro na coleta de %s: %v", res.Company, res.Err)
}

func newRunView(r core.CollectionReport) runView {
	status := "OK"
	switch {
	case r.StatusCode != 0:
		status = "HTTP " + strconv.Itoa(r.StatusCode)
	case r.Failed():
		status = "Erro"
	}
	return runView{
		Company:     r.Company,
		Generation:  r.Generation,
		Records:     r.Records,
		OpenRecords: r.OpenRecords,
		OpenTotal:   core.FormatBRL(r.OpenTotal),
		Status:      status,
		Failed:      r.Failed(),
		Duration:    r.Duration.Round(time.Millisecond).String(),
		CollectedAt: r.CollectedAt.Local().Format(timeLayout),
	}
}
