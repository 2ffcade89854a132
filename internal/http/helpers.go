package http

import (
	"math"
	"net/http"
	"strings"
)

// allow rejects requests whose method is not listed with 405 and an Allow
// header.
func allow(next http.Handler, methods ...string) http.Handler {
	allowed := strings.Join(methods, ", ")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, m := range methods {
			if r.Method == m {
				next.ServeHTTP(w, r)
				return
			}
		}
		w.Header().Set("Allow", allowed)
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})
}

// barWidth scales the magnitude of v against max, the largest magnitude in the
// chart, as a rounded percentage. Credits are drawn by size like debits.
// Non-zero values stay visible with at least 2%.
func barWidth(v, max float64) int {
	v = math.Abs(v)
	if max <= 0 || v == 0 {
		return 0
	}
	width := int(v*100/max + 0.5)
	if width < 2 {
		width = 2
	}
	if width > 100 {
		width = 100
	}
	return width
}

// orDash renders empty cells as "-".
func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
