package core

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
)

func TestNormalizeAmount(t *testing.T) {
	cases := []struct {
		in  any
		out float64
	}{
		{1234.56, 1234.56},
		{42, 42},
		{int64(-7), -7},
		{json.Number("99.9"), 99.9},
		{"1234.56", 1234.56},
		{"1234,56", 1234.56},
		{"1.234,56", 1234.56},
		{"1.234.567,89", 1234567.89},
		{" R$ 2.500,00 ", 2500},
		{"10", 10},
		{",5", 0.5},
		{"abc", 0},
		{"", 0},
		{"1.2.3", 0},
		{"1,234,567", 0},
		{nil, 0},
	}
	for _, tc := range cases {
		got := NormalizeAmount(tc.in)
		if got != tc.out {
			t.Fatalf("%#v expected %v, got %v", tc.in, tc.out, got)
		}
	}
}

func TestParseAmountFlagsDefaults(t *testing.T) {
	cases := []struct {
		in        any
		defaulted bool
	}{
		{0, false},
		{"0,00", false},
		{"abc", true},
		{"", true},
		{nil, true},
		{json.Number("1e400"), true},
		{json.Number("-1e400"), true},
		{json.Number("12abc"), true},
		{math.NaN(), true},
		{math.Inf(1), true},
		{float32(math.NaN()), true},
		{float32(math.Inf(-1)), true},
	}
	for _, tc := range cases {
		got, defaulted := ParseAmount(tc.in)
		if got != 0 {
			t.Fatalf("%#v expected 0, got %v", tc.in, got)
		}
		if defaulted != tc.defaulted {
			t.Fatalf("%#v expected defaulted=%v", tc.in, tc.defaulted)
		}
	}
}

func TestNormalizeAmountDropsSignFromStrings(t *testing.T) {
	// Only digits and separators survive cleaning.
	if got := NormalizeAmount("-15,00"); got != 15 {
		t.Fatalf("expected 15, got %v", got)
	}
	if got := NormalizeAmount(-15.0); got != -15 {
		t.Fatalf("expected -15, got %v", got)
	}
}

func TestParseAmountRejectsNumbersOutOfRange(t *testing.T) {
	for _, in := range []any{json.Number("1e400"), float32(math.NaN()), math.Inf(-1)} {
		if _, err := parseAmount(in); !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("%#v expected ErrInvalidAmount, got %v", in, err)
		}
	}
	if got, err := parseAmount(json.Number("1e3")); err != nil || got != 1000 {
		t.Fatalf("expected 1000, got %v %v", got, err)
	}
}
