package http

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"boletos/internal/core"
	"boletos/internal/export"
	applog "boletos/internal/log"
	"boletos/internal/metrics"
)

const (
	historyLimit = 20
	readyTimeout = 2 * time.Second
)

var exportContentTypes = map[string]string{
	export.FormatXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	export.FormatPDF:  "application/pdf",
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady reports ready once templates are parsed, the first collection
// has completed and the run history database, if any, answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		http.Error(w, "templates not loaded", http.StatusServiceUnavailable)
		return
	}
	if _, loaded := s.dashboard.State(); !loaded {
		http.Error(w, "initial collection pending", http.StatusServiceUnavailable)
		return
	}
	if s.database != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()
		if err := s.database.Ping(ctx); err != nil {
			applog.FromContext(ctx).WarnContext(ctx, "Readiness database ping failed", applog.FieldError, err)
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	ctx := r.Context()
	logger := applog.FromContext(ctx)
	if s.templates == nil {
		logger.ErrorContext(ctx, "Templates not loaded", applog.FieldPath, r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	state, loaded := s.dashboard.State()
	data := newPageView(state, loaded)
	data.History = s.recentRuns(ctx)
	data.HistoryEnabled = s.history != nil

	// Render into a buffer so a template failure does not leave half a page.
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "index.html", data); err != nil {
		logger.ErrorContext(ctx, "Index template execution failed", applog.FieldError, err, "template", "index.html")
		http.Error(w, "erro ao renderizar a página", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func (s *Server) recentRuns(ctx context.Context) []runView {
	if s.history == nil {
		return nil
	}
	runs, err := s.history.RecentRuns(ctx, historyLimit)
	if err != nil {
		applog.FromContext(ctx).ErrorContext(ctx, "Failed to list collection runs", applog.FieldError, err)
		return nil
	}
	out := make([]runView, 0, len(runs))
	for _, run := range runs {
		out = append(out, newRunView(run.CollectionReport))
	}
	return out
}

// handleRefresh recollects every company and redirects back to the page.
// The collection is detached from the request so a closed tab does not cut
// it short.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := context.WithoutCancel(r.Context())
	state, err := s.dashboard.Refresh(ctx)
	if err != nil {
		applog.FromContext(ctx).WarnContext(ctx, "Refresh finished with company errors",
			applog.FieldGeneration, state.Generation,
			applog.FieldError, err)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleExport serves the open receivables of the current state in format.
// Rendered documents are cached per state generation.
func (s *Server) handleExport(format string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		logger := applog.FromContext(ctx)

		state, loaded := s.dashboard.State()
		if !loaded {
			http.Error(w, "Nenhuma coleta realizada ainda.", http.StatusServiceUnavailable)
			return
		}

		start := time.Now()
		key := format + ":" + strconv.FormatUint(state.Generation, 10)
		body, err := s.exports.GetOrLoad(key, func() ([]byte, error) {
			return render(format, state)
		})
		metrics.ObserveExport(format, metrics.Result(err), time.Since(start))
		if err != nil {
			logger.ErrorContext(ctx, "Export failed", applog.FieldFormat, format, applog.FieldError, err)
			http.Error(w, "erro ao gerar o arquivo", http.StatusInternalServerError)
			return
		}

		filename := fmt.Sprintf("boletos-em-aberto-%s.%s", state.CollectedAt.Format("20060102-1504"), format)
		w.Header().Set("Content-Type", exportContentTypes[format])
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		_, _ = w.Write(body)

		logger.InfoContext(ctx, "Export served",
			applog.FieldFormat, format,
			applog.FieldGeneration, state.Generation,
			"bytes", len(body))
	})
}

func render(format string, state core.AggregateState) ([]byte, error) {
	switch format {
	case export.FormatXLSX:
		return export.BuildXLSX(state)
	case export.FormatPDF:
		return export.BuildPDF(state)
	default:
		return nil, fmt.Errorf("unknown export format %q", format)
	}
}
