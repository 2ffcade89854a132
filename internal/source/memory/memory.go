// Package memory is an in-process Collector for local development and tests.
package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode"

	"boletos/internal/core"
	"boletos/internal/source/maino"
)

// Store serves receivables per company name.
type Store struct {
	mu       sync.Mutex
	datasets map[string][]core.Receivable
	failures map[string]error
	dir      string
	calls    map[string]int
}

func New(datasets map[string][]core.Receivable) *Store {
	s := &Store{
		datasets: map[string][]core.Receivable{},
		failures: map[string]error{},
		calls:    map[string]int{},
	}
	for name, rs := range datasets {
		s.datasets[name] = append([]core.Receivable(nil), rs...)
	}
	return s
}

// NewFromFiles reads <dir>/<slug>.json on every Collect, where slug is the
// company name lower-cased with non-alphanumerics turned into "_".
//
// A fixture is a billing API page body. An optional top-level "status_code"
// other than 200 makes the collection fail with a *maino.StatusError.
// A missing fixture yields no records.
func NewFromFiles(dir string) *Store {
	s := New(nil)
	s.dir = dir
	return s
}

// Set replaces the dataset of a company.
func (s *Store) Set(company string, rs []core.Receivable) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.datasets[company] = append([]core.Receivable(nil), rs...)
}

// Fail makes the next collections of company return err; nil clears it.
func (s *Store) Fail(company string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, company)
		return
	}
	s.failures[company] = err
}

// Calls returns how many times company was collected.
func (s *Store) Calls(company string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[company]
}

func (s *Store) Collect(ctx context.Context, company core.Company) ([]core.Receivable, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.calls[company.Name]++
	failure := s.failures[company.Name]
	rs, ok := s.datasets[company.Name]
	s.mu.Unlock()

	if failure != nil {
		return nil, failure
	}
	if ok || s.dir == "" {
		return append([]core.Receivable(nil), rs...), nil
	}
	return s.readFixture(company.Name)
}

func (s *Store) readFixture(company string) ([]core.Receivable, error) {
	path := filepath.Join(s.dir, Slug(company)+".json")
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var meta struct {
		StatusCode int `json:"status_code"`
	}
	_ = json.Unmarshal(b, &meta)
	if meta.StatusCode != 0 && meta.StatusCode != 200 {
		return nil, &maino.StatusError{Company: company, StatusCode: meta.StatusCode}
	}
	rs, err := maino.DecodePage(b)
	if err != nil {
		return nil, fmt.Errorf("fixture %s: %w", path, err)
	}
	return rs, nil
}

// Slug turns a company name into a fixture file name.
func Slug(name string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
			lastUnderscore = false
			continue
		}
		if !lastUnderscore && b.Len() > 0 {
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	return strings.TrimRight(b.String(), "_")
}
