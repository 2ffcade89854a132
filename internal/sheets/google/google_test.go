package google

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"boletos/internal/core"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

func paid(s string) *string { return &s }

func testState() core.AggregateState {
	return core.AggregateState{
		Generation: 2,
		Results: []core.CompanyResult{
			{Company: "Alpha", Records: []core.Receivable{
				{TitleNumber: "1", Amount: 10.5, ProcessCode: "P1"},
				{TitleNumber: "2", Amount: 99, PaymentDate: paid("2024-01-01")},
			}},
			{Company: "Beta", Err: errors.New("collect Beta: status 500"), Records: []core.Receivable{{TitleNumber: "x"}}},
			{Company: "Gamma", Records: []core.Receivable{{TitleNumber: "3", Amount: 1}}},
		},
	}
}

func TestBuildRows(t *testing.T) {
	rows := BuildRows(testState())
	if len(rows) != 4 {
		t.Fatalf("expected header + 3 rows, got %d", len(rows))
	}
	if rows[0][0] != "Empresa" || rows[0][1] != "Número Título" || len(rows[0]) != 9 {
		t.Fatalf("unexpected header: %v", rows[0])
	}
	if rows[1][0] != "Alpha" || rows[1][1] != "1" || rows[1][4] != 10.5 {
		t.Fatalf("unexpected first row: %v", rows[1])
	}
	if rows[2][0] != "Beta" || rows[2][1] != "x" {
		t.Fatalf("records collected before a failure should be kept, got %v", rows[2])
	}
	if rows[3][0] != "Gamma" {
		t.Fatalf("unexpected last row: %v", rows[3])
	}
}

func TestBuildRows_FailedCompanyWithoutRecords(t *testing.T) {
	state := core.AggregateState{Results: []core.CompanyResult{
		{Company: "Beta", Err: errors.New("collect Beta: status 500")},
	}}
	if rows := BuildRows(state); len(rows) != 1 {
		t.Fatalf("expected header only, got %v", rows)
	}
}

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Config{})
	if err == nil || err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCredentials(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	ctx := context.Background()

	if _, err := credentials(ctx, Config{}); err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("expected missing credentials error, got %v", err)
	}

	b, err := credentials(ctx, Config{CredentialsJSON: ` {"type":"service_account"} `})
	if err != nil || string(b) != `{"type":"service_account"}` {
		t.Fatalf("unexpected inline credentials: %q %v", b, err)
	}

	path := filepath.Join(t.TempDir(), "sa.json")
	if err := os.WriteFile(path, []byte(`{"from":"file"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", path)
	b, err = credentials(ctx, Config{})
	if err != nil || string(b) != `{"from":"file"}` {
		t.Fatalf("unexpected file credentials: %q %v", b, err)
	}

	if _, err := credentials(ctx, Config{CredentialsFile: "/non/existent.json"}); err == nil {
		t.Fatal("expected read error")
	}
}

func TestQuoteSheet(t *testing.T) {
	if got := quoteSheet("Boletos d'Ouro"); got != "'Boletos d''Ouro'" {
		t.Fatalf("unexpected quoting: %s", got)
	}
}

type sheetsAPI struct {
	mu      sync.Mutex
	calls   []string
	written *gsheet.ValueRange
}

func (a *sheetsAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodGet:
		a.calls = append(a.calls, "get")
		_, _ = w.Write([]byte(`{"sheets":[{"properties":{"title":"Other"}}]}`))
	case strings.HasSuffix(r.URL.Path, ":batchUpdate"):
		a.calls = append(a.calls, "addSheet")
		_, _ = w.Write([]byte(`{}`))
	case strings.HasSuffix(r.URL.Path, ":clear"):
		a.calls = append(a.calls, "clear")
		_, _ = w.Write([]byte(`{}`))
	case r.Method == http.MethodPut:
		a.calls = append(a.calls, "update")
		var vr gsheet.ValueRange
		_ = json.NewDecoder(r.Body).Decode(&vr)
		a.written = &vr
		_, _ = w.Write([]byte(`{"updatedCells": 27}`))
	default:
		http.Error(w, "unexpected", http.StatusNotFound)
	}
}

func TestClient_ExportOpen(t *testing.T) {
	api := &sheetsAPI{}
	srv := httptest.NewServer(api)
	defer srv.Close()

	c, err := NewWithOptions(context.Background(), Config{SpreadsheetID: "sheet-id", SheetName: "Boletos"},
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("NewWithOptions: %v", err)
	}

	if err := c.ExportOpen(context.Background(), testState()); err != nil {
		t.Fatalf("ExportOpen: %v", err)
	}

	want := []string{"get", "addSheet", "clear", "update"}
	if strings.Join(api.calls, ",") != strings.Join(want, ",") {
		t.Fatalf("calls = %v, want %v", api.calls, want)
	}
	if api.written == nil || len(api.written.Values) != 4 {
		t.Fatalf("unexpected written values: %+v", api.written)
	}
}

func TestClient_ExportOpenWithoutService(t *testing.T) {
	c := &Client{spreadsheetID: "x", sheetName: "y"}
	if err := c.ExportOpen(context.Background(), core.AggregateState{}); err == nil {
		t.Fatal("expected error without service")
	}
}
