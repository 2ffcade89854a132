// Package google writes the open receivables to a Google Sheets worksheet.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"boletos/internal/core"
	ports "boletos/internal/sheets"
)

// Config selects the target worksheet and the service account credentials.
// Credentials are taken from CredentialsJSON, then CredentialsFile, then
// GOOGLE_APPLICATION_CREDENTIALS.
type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

var _ ports.OpenReceivablesExporter = (*Client)(nil)

func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	creds, err := credentials(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewWithOptions(ctx, cfg,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope))
}

// NewWithOptions builds a client from explicit API options.
func NewWithOptions(ctx context.Context, cfg Config, opts ...goption.ClientOption) (*Client, error) {
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	name := strings.TrimSpace(cfg.SheetName)
	if name == "" {
		name = "Boletos em Aberto"
	}
	return &Client{svc: svc, spreadsheetID: cfg.SpreadsheetID, sheetName: name}, nil
}

func credentials(ctx context.Context, cfg Config) ([]byte, error) {
	inline := strings.TrimSpace(cfg.CredentialsJSON)
	file := strings.TrimSpace(cfg.CredentialsFile)
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	switch {
	case inline != "":
		slog.DebugContext(ctx, "Using inline service account credentials")
		return []byte(inline), nil
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		slog.DebugContext(ctx, "Read service account credentials", "path", file, "size", len(b))
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// ExportOpen overwrites the worksheet with the open receivables of every
// company, creating the worksheet when it does not exist.
func (c *Client) ExportOpen(ctx context.Context, state core.AggregateState) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	if err := c.ensureSheet(ctx); err != nil {
		return err
	}

	rng := quoteSheet(c.sheetName)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", c.sheetName, err)
	}

	rows := BuildRows(state)
	vr := &gsheet.ValueRange{Values: rows}
	resp, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng+"!A1", vr).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("write %s: %w", c.sheetName, err)
	}

	slog.InfoContext(ctx, "Exported open receivables to Google Sheets",
		"sheet", c.sheetName,
		"generation", state.Generation,
		"rows", len(rows)-1,
		"updated_cells", resp.UpdatedCells)
	return nil
}

func (c *Client) ensureSheet(ctx context.Context) error {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("get spreadsheet: %w", err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == c.sheetName {
			return nil
		}
	}
	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{
				Properties: &gsheet.SheetProperties{Title: c.sheetName},
			},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add sheet %s: %w", c.sheetName, err)
	}
	slog.InfoContext(ctx, "Created worksheet", "sheet", c.sheetName)
	return nil
}

func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}
