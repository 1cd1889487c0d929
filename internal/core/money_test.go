package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"12.34", "12.34", true},
		{"12,34", "12.34", true},
		{" 7 ", "7", true},
		{"0.005", "0.005", true},
		{"", "", false},
		{"0", "", false},
		{"0,00", "", false},
		{"-12.34", "", false},
		{"+12.34", "", false},
		{"12.3.4", "", false},
		{"abc", "", false},
		{"12e3", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil {
				t.Fatalf("ParseAmount(%q): unexpected error %v", tc.in, err)
			}
			want, _ := decimal.NewFromString(tc.want)
			if !got.Equal(want) {
				t.Fatalf("ParseAmount(%q) = %s, want %s", tc.in, got, want)
			}
			continue
		}
		if err == nil {
			t.Fatalf("ParseAmount(%q): expected error, got %s", tc.in, got)
		}
	}
}

func TestValidateAmount(t *testing.T) {
	if err := ValidateAmount(decimal.NewFromInt(1)); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := ValidateAmount(decimal.Zero); err == nil {
		t.Fatal("expected error for zero")
	}
	if err := ValidateAmount(decimal.NewFromInt(-5)); err == nil {
		t.Fatal("expected error for negative")
	}
}

func TestFormatAmount(t *testing.T) {
	if got := FormatAmount(decimal.NewFromFloat(3.5)); got != "3.50" {
		t.Fatalf("FormatAmount = %q, want 3.50", got)
	}
}
