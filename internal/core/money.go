// Package core provides the receivables domain model and amount handling.
//
// This file contains the amount normalizer used to turn the heterogeneous
// values returned by the billing API into float64.
package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
)

var ErrInvalidAmount = errors.New("invalid amount")

// NormalizeAmount converts a raw amount into a float64.
//
// Numbers are returned as is. Anything else is stringified and stripped of
// every character that is not a digit, a comma or a period. When both
// separators are present the period is treated as thousands separator and the
// comma as decimal separator; a lone comma is a decimal separator.
// Values that still cannot be parsed become 0 and a warning is logged.
//
// Examples:
//
//	NormalizeAmount("1234.56")     -> 1234.56
//	NormalizeAmount("1234,56")     -> 1234.56
//	NormalizeAmount("R$ 1.234,56") -> 1234.56
//	NormalizeAmount("abc")         -> 0
func NormalizeAmount(v any) float64 {
	f, _ := ParseAmount(v)
	return f
}

// ParseAmount is NormalizeAmount with a flag telling whether the zero value
// was substituted for an unparseable input.
func ParseAmount(v any) (value float64, defaulted bool) {
	f, err := parseAmount(v)
	if err != nil {
		slog.Warn("Failed to convert amount", "value", fmt.Sprint(v), "error", err)
		return 0, true
	}
	return f, false
}

func parseAmount(v any) (float64, error) {
	if f, ok, err := numericAmount(v); ok {
		return f, err
	}
	s := cleanAmount(fmt.Sprint(v))
	switch {
	case strings.Contains(s, ",") && strings.Contains(s, "."):
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	case strings.Contains(s, ","):
		s = strings.ReplaceAll(s, ",", ".")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %q is not finite", ErrInvalidAmount, s)
	}
	return f, nil
}

// numericAmount reports whether v is a number. Numbers that are not finite, or
// json.Number values that do not fit a float64, are rejected with
// ErrInvalidAmount instead of being reparsed as text.
func numericAmount(v any) (float64, bool, error) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int8:
		f = float64(n)
	case int16:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint8:
		f = float64(n)
	case uint16:
		f = float64(n)
	case uint32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case bool:
		if n {
			f = 1
		}
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, true, fmt.Errorf("%w: %q", ErrInvalidAmount, n.String())
		}
		f = parsed
	default:
		return 0, false, nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, true, fmt.Errorf("%w: %v is not finite", ErrInvalidAmount, f)
	}
	return f, true, nil
}

// cleanAmount keeps only ASCII digits, commas and periods.
func cleanAmount(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == ',' || r == '.' {
			return r
		}
		return -1
	}, s)
}
