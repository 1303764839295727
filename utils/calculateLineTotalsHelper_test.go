package utils

import (
	"testing"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestCalculateLineAmountRoundsHalfAwayFromZero(t *testing.T) {
	cases := []struct {
		qty  string
		rate string
		want string
	}{
		{"1", "10", "10"},
		{"3", "3.333", "10"},     // 9.999 -> 10.00
		{"2", "0.005", "0.01"},   // 0.010 stays
		{"7", "0.1415", "0.99"},  // 0.9905 -> 0.99
		{"1.5", "2.555", "3.83"}, // 3.8325 -> 3.83
		{"100", "0.12345", "12.35"},
	}
	for _, c := range cases {
		got := CalculateLineAmount(d(c.qty), d(c.rate))
		if got.Cmp(d(c.want)) != 0 {
			t.Fatalf("CalculateLineAmount(%s, %s): expected %s, got %s", c.qty, c.rate, c.want, got)
		}
	}
}

func TestCalculateTaxAmountTakesPercent(t *testing.T) {
	got := CalculateTaxAmount(d("200"), d("5"))
	if got.Cmp(d("10")) != 0 {
		t.Fatalf("expected 10, got %s", got)
	}
	got = CalculateTaxAmount(d("99.99"), d("7.5"))
	if got.Cmp(d("7.50")) != 0 {
		t.Fatalf("expected 7.50, got %s", got)
	}
	got = CalculateTaxAmount(d("150"), decimal.Zero)
	if !got.IsZero() {
		t.Fatalf("expected zero tax, got %s", got)
	}
}

func TestAmountsEqualWithinTolerance(t *testing.T) {
	if !AmountsEqual(d("100.00"), d("100.00")) {
		t.Fatalf("identical amounts must be equal")
	}
	if !AmountsEqual(d("100.00"), d("100.01")) {
		t.Fatalf("amounts within tolerance must be equal")
	}
	if AmountsEqual(d("100.00"), d("100.02")) {
		t.Fatalf("amounts past tolerance must not be equal")
	}
	if !AmountsEqual(d("-5.005"), d("-5.01")) {
		t.Fatalf("tolerance must apply on the negative side too")
	}
}
