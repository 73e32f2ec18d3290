package money

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestFormat(t *testing.T) {
	cases := map[int64]string{
		0:          "0 GNF",
		999:        "999 GNF",
		4_625_000:  "4 625 000 GNF",
		-17_500:    "-17 500 GNF",
		25_000_000: "25 000 000 GNF",
	}
	for amount, want := range cases {
		if got := Format(amount); got != want {
			t.Fatalf("Format(%d) = %q, want %q", amount, got, want)
		}
	}
}

func TestRate(t *testing.T) {
	if got := Rate(decimal.RequireFromString("0.015")); got != "1,5 %" {
		t.Fatalf("unexpected rate %q", got)
	}
	if got := Rate(decimal.RequireFromString("0.18")); got != "18 %" {
		t.Fatalf("unexpected rate %q", got)
	}
}

func TestHours(t *testing.T) {
	if got := Hours(2.5); got != "2,50" {
		t.Fatalf("unexpected hours %q", got)
	}
}
