package models

import (
	"testing"

	"github.com/shopspring/decimal"
)

func ton(t *testing.T, s string) Money {
	t.Helper()
	m, err := MoneyFromString(s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return m
}

func TestMoneyExactArithmetic(t *testing.T) {
	a := ton(t, "10.1")
	b := ton(t, "0.3")

	// a - b + b must round-trip exactly, no float drift
	if got := a.Sub(b).Add(b); !got.Equal(a) {
		t.Errorf("a-b+b = %s, want %s", got, a)
	}

	for i := 0; i < 1000; i++ {
		a = a.Add(b)
	}
	want := ton(t, "310.1")
	if !a.Equal(want) {
		t.Errorf("repeated add drifted: got %s, want %s", a, want)
	}
}

func TestMoneyComparisons(t *testing.T) {
	low := ton(t, "1.5")
	high := ton(t, "2")

	if !low.LessThan(high) {
		t.Errorf("expected %s < %s", low, high)
	}
	if !high.GreaterThan(low) {
		t.Errorf("expected %s > %s", high, low)
	}
	if low.GreaterThan(high) || high.LessThan(low) {
		t.Errorf("comparison is not a strict order")
	}
	if !low.Equal(ton(t, "1.50")) {
		t.Errorf("1.5 != 1.50")
	}
}

func TestMoneyCurrencyMismatchPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on currency mismatch")
		}
	}()
	a := NewMoney(decimal.NewFromInt(1), "TON")
	b := NewMoney(decimal.NewFromInt(1), "USDT")
	_ = a.Sub(b)
}

func TestMoneyRatio(t *testing.T) {
	profit := ton(t, "1.2")
	floor := ton(t, "10")
	if got := profit.Ratio(floor); got != 0.12 {
		t.Errorf("ratio = %v, want 0.12", got)
	}
}

func TestMoneyDefaultCurrency(t *testing.T) {
	m := NewMoney(decimal.Zero, "")
	if m.Currency != DefaultCurrency {
		t.Errorf("currency = %s, want %s", m.Currency, DefaultCurrency)
	}
}
