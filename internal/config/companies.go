package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"boletos/internal/core"
)

// LoadCompanies reads the configured company list. Inline COMPANIES_YAML wins
// over COMPANIES_FILE. JSON is accepted as a YAML subset.
func (c *Config) LoadCompanies() ([]core.Company, error) {
	data := []byte(c.CompaniesYAML)
	source := "COMPANIES_YAML"
	if c.CompaniesYAML == "" {
		b, err := os.ReadFile(c.CompaniesFile)
		if err != nil {
			return nil, fmt.Errorf("read companies file: %w", err)
		}
		data = b
		source = c.CompaniesFile
	}
	companies, err := ParseCompanies(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}
	return companies, nil
}

// ParseCompanies decodes a list of companies and validates every entry.
// Both a bare list and a document with a top-level "empresas" or "companies"
// key are accepted.
func ParseCompanies(data []byte) ([]core.Company, error) {
	var companies []core.Company
	if err := yaml.Unmarshal(data, &companies); err != nil {
		var doc struct {
			Empresas  []core.Company `yaml:"empresas"`
			Companies []core.Company `yaml:"companies"`
		}
		if err2 := yaml.Unmarshal(data, &doc); err2 != nil {
			return nil, fmt.Errorf("decode companies: %w", err)
		}
		companies = append(doc.Empresas, doc.Companies...)
	}
	if len(companies) == 0 {
		return nil, core.ErrNoCompanies
	}

	var errs []error
	seen := make(map[string]bool, len(companies))
	for i, co := range companies {
		if err := co.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("company #%d: %w", i+1, err))
			continue
		}
		if seen[co.Name] {
			errs = append(errs, fmt.Errorf("company #%d: duplicate name %q", i+1, co.Name))
		}
		seen[co.Name] = true
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return companies, nil
}
