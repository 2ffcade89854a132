package core

import (
	"errors"
	"strings"
	"time"
)

type (
	// Company is one billing account whose receivables are collected.
	Company struct {
		Name  string `yaml:"name" json:"name"`
		Token string `yaml:"token" json:"token"`
	}

	// Receivable is a single "conta a receber" flattened from the API payload.
	Receivable struct {
		TitleNumber    string
		DocumentNumber string
		DueDate        string
		Amount         float64
		// AmountDefaulted is set when the raw amount could not be parsed and
		// Amount was substituted with zero.
		AmountDefaulted bool
		AccrualDate     string
		// PaymentDate is nil while the receivable is open.
		PaymentDate *string
		ClientName  string
		ProcessCode string
	}

	// CompanyResult is the outcome of one collection run for a company.
	CompanyResult struct {
		Company  string
		Records  []Receivable
		Err      error
		Duration time.Duration
	}

	// AggregateState holds the datasets of every configured company.
	AggregateState struct {
		Results     []CompanyResult
		CollectedAt time.Time
		Generation  uint64
	}
)

var (
	ErrNoCompanies      = errors.New("no companies configured")
	ErrEmptyCompanyName = errors.New("empty company name")
	ErrEmptyToken       = errors.New("empty company token")
)

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var se interface{ HTTPStatus() int }
	if errors.As(err, &se) {
		return se.HTTPStatus()
	}
	return 0
}

// UnmarshalYAML accepts both "name" and the legacy "nome" key.
func (c *Company) UnmarshalYAML(unmarshal func(any) error) error {
	var raw struct {
		Name  string `yaml:"name"`
		Nome  string `yaml:"nome"`
		Token string `yaml:"token"`
	}
	if err := unmarshal(&raw); err != nil {
		return err
	}
	c.Name = raw.Name
	if c.Name == "" {
		c.Name = raw.Nome
	}
	c.Token = raw.Token
	return nil
}

func (c Company) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyCompanyName
	}
	if strings.TrimSpace(c.Token) == "" {
		return ErrEmptyToken
	}
	return nil
}

// IsOpen reports whether the receivable has not been paid yet.
func (r Receivable) IsOpen() bool {
	return r.PaymentDate == nil
}

// Datasets returns the company name to dataset mapping.
func (s AggregateState) Datasets() map[string][]Receivable {
	out := make(map[string][]Receivable, len(s.Results))
	for _, res := range s.Results {
		out[res.Company] = res.Records
	}
	return out
}

// Result returns the collection result for the named company.
func (s AggregateState) Result(company string) (CompanyResult, bool) {
	for _, res := range s.Results {
		if res.Company == company {
			return res, true
		}
	}
	return CompanyResult{}, false
}

// Failed returns the results whose collection ended with an error.
func (s AggregateState) Failed() []CompanyResult {
	var out []CompanyResult
	for _, res := range s.Results {
		if res.Err != nil {
			out = append(out, res)
		}
	}
	return out
}
