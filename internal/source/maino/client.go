// Package maino collects receivables from the Maino billing API.
package maino

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"boletos/internal/core"
	"boletos/internal/httptransport"
	"boletos/internal/metrics"
)

const (
	DefaultBaseURL  = "https://api.maino.com.br"
	DefaultPageSize = 50

	receivablesPath = "/api/v2/contas_a_recebers"
)

var ErrHTTPStatus = errors.New("unexpected HTTP status")

// StatusError reports a page request answered with a non-200 status.
type StatusError struct {
	Company    string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("collect %s: status %d", e.Company, e.StatusCode)
}

func (e *StatusError) HTTPStatus() int { return e.StatusCode }

func (e *StatusError) Is(target error) bool {
	return target == ErrHTTPStatus
}

// Options configures a Client. Zero values select the defaults.
type Options struct {
	BaseURL  string
	PageSize int
	// Timeout bounds each page request. Zero means no timeout.
	Timeout time.Duration
}

// Client pages through the receivables endpoint.
type Client struct {
	rc       *resty.Client
	baseURL  string
	pageSize int
}

// New returns a client whose requests are logged by httptransport.LoggedTransport.
func New(opts Options) *Client {
	hc := &http.Client{
		Transport: httptransport.LoggedTransport{},
		Timeout:   opts.Timeout,
	}
	return NewWithClient(hc, opts)
}

// NewWithClient returns a client on top of hc.
func NewWithClient(hc *http.Client, opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.PageSize < 1 {
		opts.PageSize = DefaultPageSize
	}
	rc := resty.NewWithClient(hc).
		SetLogger(restyLogger{}).
		SetHeader("Content-Type", "application/json")
	return &Client{
		rc:       rc,
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		pageSize: opts.PageSize,
	}
}

// Collect requests page 1, 2, ... until a page yields no records.
//
// A non-200 status, a transport failure or a body that is not a JSON object
// stops the loop; the records of earlier pages are returned with the error.
// There is no retry.
func (c *Client) Collect(ctx context.Context, company core.Company) ([]core.Receivable, error) {
	var all []core.Receivable
	for page := 1; ; page++ {
		records, err := c.fetchPage(ctx, company, page)
		if err != nil {
			metrics.ObserveCollectedRecords(company.Name, len(all))
			return all, err
		}
		if len(records) == 0 {
			break
		}
		all = append(all, records...)
	}
	metrics.ObserveCollectedRecords(company.Name, len(all))
	slog.Debug("Collected receivables", "company", company.Name, "records", len(all))
	return all, nil
}

func (c *Client) fetchPage(ctx context.Context, company core.Company, page int) ([]core.Receivable, error) {
	resp, err := c.rc.R().
		SetContext(ctx).
		SetAuthToken(company.Token).
		SetQueryParams(map[string]string{
			"page":     strconv.Itoa(page),
			"per_page": strconv.Itoa(c.pageSize),
		}).
		Get(c.baseURL + receivablesPath)
	if err != nil {
		metrics.ObservePage(company.Name, 0)
		return nil, fmt.Errorf("collect %s: page %d: %w", company.Name, page, err)
	}
	metrics.ObservePage(company.Name, resp.StatusCode())
	if resp.StatusCode() != http.StatusOK {
		return nil, &StatusError{Company: company.Name, StatusCode: resp.StatusCode()}
	}
	records, err := DecodePage(resp.Body())
	if err != nil {
		return nil, fmt.Errorf("collect %s: page %d: %w", company.Name, page, err)
	}
	return records, nil
}

// restyLogger routes resty's own messages to slog.
type restyLogger struct{}

func (restyLogger) Errorf(format string, v ...any) {
	slog.Error(fmt.Sprintf(format, v...), "component", "resty")
}

func (restyLogger) Warnf(format string, v ...any) {
	slog.Warn(fmt.Sprintf(format, v...), "component", "resty")
}

func (restyLogger) Debugf(format string, v ...any) {
	slog.Debug(fmt.Sprintf(format, v...), "component", "resty")
}
