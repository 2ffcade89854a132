package core

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func paid(s string) *string { return &s }

func TestSummarize(t *testing.T) {
	t.Run("should total only receivables without payment date", func(t *testing.T) {
		rs := []Receivable{
			{TitleNumber: "1", Amount: 100.5, ProcessCode: "A"},
			{TitleNumber: "2", Amount: 40, ProcessCode: "B", PaymentDate: paid("2024-03-01")},
			{TitleNumber: "3", Amount: 9.5, ProcessCode: "A"},
		}
		s := Summarize(rs)
		assert.Equal(t, 2, s.Count)
		assert.InDelta(t, 110.0, s.Total, 0.0001)
		assert.Equal(t, []string{"1", "3"}, []string{s.Rows[0].TitleNumber, s.Rows[1].TitleNumber})
		assert.False(t, s.IsEmpty())
	})
	t.Run("should treat empty payment date as paid", func(t *testing.T) {
		s := Summarize([]Receivable{{Amount: 10, PaymentDate: paid("")}})
		assert.True(t, s.IsEmpty())
		assert.Zero(t, s.Total)
	})
	t.Run("should report empty summary for no rows", func(t *testing.T) {
		s := Summarize(nil)
		assert.True(t, s.IsEmpty())
		assert.Empty(t, s.ByProcess)
	})
}

func TestGroupByProcess(t *testing.T) {
	t.Run("should sum per process in descending order", func(t *testing.T) {
		rs := []Receivable{
			{ProcessCode: "A", Amount: 10},
			{ProcessCode: "A", Amount: 20},
			{ProcessCode: "B", Amount: 5},
		}
		assert.Equal(t, []ProcessAmount{{"A", 30}, {"B", 5}}, GroupByProcess(rs))
	})
	t.Run("should order ties by code and keep empty codes", func(t *testing.T) {
		rs := []Receivable{
			{ProcessCode: "Z", Amount: 5},
			{ProcessCode: "", Amount: 7},
			{ProcessCode: "M", Amount: 5},
		}
		assert.Equal(t, []ProcessAmount{{"", 7}, {"M", 5}, {"Z", 5}}, GroupByProcess(rs))
	})
}

func TestFormatBRL(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{1234.56, "R$ 1.234,56"},
		{0, "R$ 0,00"},
		{1234567.891, "R$ 1.234.567,89"},
		{12.5, "R$ 12,50"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, FormatBRL(tc.in))
	}
}

func TestNewCollectionReport(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	res := CompanyResult{
		Company:  "Acme",
		Records:  []Receivable{{Amount: 10}, {Amount: 5, PaymentDate: paid("2024-04-01")}, {Amount: 2.5}},
		Err:      fmt.Errorf("page 2: %w", statusErr(500)),
		Duration: 2 * time.Second,
	}
	r := NewCollectionReport(res, 7, at)
	assert.Equal(t, "Acme", r.Company)
	assert.Equal(t, uint64(7), r.Generation)
	assert.Equal(t, 3, r.Records)
	assert.Equal(t, 2, r.OpenRecords)
	assert.InDelta(t, 12.5, r.OpenTotal, 0.0001)
	assert.Equal(t, 500, r.StatusCode)
	assert.True(t, r.Failed())
	assert.Equal(t, at, r.CollectedAt)

	ok := NewCollectionReport(CompanyResult{Company: "B"}, 1, at)
	assert.False(t, ok.Failed())
	assert.Zero(t, ok.StatusCode)
}
