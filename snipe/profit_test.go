package snipe

import (
	"testing"

	"giftsniper/models"
)

func ton(t *testing.T, s string) models.Money {
	t.Helper()
	m, err := models.MoneyFromString(s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return m
}

func TestNetProfit(t *testing.T) {
	calc := NewProfitCalculator(0.05)

	// 20 * 0.95 - 10 = 9
	got := calc.NetProfit(ton(t, "10"), ton(t, "20"))
	if !got.Equal(ton(t, "9")) {
		t.Errorf("net profit = %s, want 9 TON", got)
	}
}

func TestNetProfitNegative(t *testing.T) {
	calc := NewProfitCalculator(0.05)
	got := calc.NetProfit(ton(t, "20"), ton(t, "20"))
	if got.IsPositive() {
		t.Errorf("buying at floor must not be profitable after fees, got %s", got)
	}
}

func TestNetProfitDeterministic(t *testing.T) {
	calc := NewProfitCalculator(0.05)
	first := calc.NetProfit(ton(t, "10.13"), ton(t, "20.07"))
	for i := 0; i < 100; i++ {
		if got := calc.NetProfit(ton(t, "10.13"), ton(t, "20.07")); !got.Equal(first) {
			t.Fatalf("iteration %d drifted: %s != %s", i, got, first)
		}
	}
}

func TestNetProfitZeroFee(t *testing.T) {
	calc := NewProfitCalculator(0)
	got := calc.NetProfit(ton(t, "10"), ton(t, "15"))
	if !got.Equal(ton(t, "5")) {
		t.Errorf("net profit = %s, want 5 TON", got)
	}
}
