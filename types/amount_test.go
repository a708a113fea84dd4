package types

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestNewAmountBankersRounding(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"499.99995", "500.0000"},
		{"499.99994", "499.9999"},
		{"-499.99995", "-500.0000"},
		{"-499.99994", "-499.9999"},
		{"100.00005", "100.0000"},
		{"100.00015", "100.0002"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			d, err := decimal.NewFromString(tt.in)
			if err != nil {
				t.Fatal(err)
			}
			got := NewAmount(d).String()
			if got != tt.want {
				t.Errorf("NewAmount(%s) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseAmountRoundTrip(t *testing.T) {
	a, err := ParseAmount("123.45")
	if err != nil {
		t.Fatal(err)
	}
	if a.String() != "123.4500" {
		t.Errorf("got %s, want 123.4500", a.String())
	}
}

func TestCreditDebitDefaultConvention(t *testing.T) {
	hundred := NewAmountFromInt(100)

	debit, err := Debit(DefaultSignConvention, hundred)
	if err != nil {
		t.Fatal(err)
	}
	if !debit.Equal(NewAmountFromInt(100)) {
		t.Errorf("debit(100) = %s, want +100", debit)
	}

	credit, err := Credit(DefaultSignConvention, hundred)
	if err != nil {
		t.Fatal(err)
	}
	if !credit.Equal(NewAmountFromInt(-100)) {
		t.Errorf("credit(100) = %s, want -100", credit)
	}

	if !Sum(debit, credit).IsZero() {
		t.Errorf("credit(x) + debit(x) should be zero, got %s", Sum(debit, credit))
	}
}

func TestCreditDebitReversedConvention(t *testing.T) {
	conv := SignConvention{DebitsAreNegative: true}
	hundred := NewAmountFromInt(100)

	debit, err := Debit(conv, hundred)
	if err != nil {
		t.Fatal(err)
	}
	if !debit.Equal(NewAmountFromInt(-100)) {
		t.Errorf("debit(100) under DebitsAreNegative = %s, want -100", debit)
	}

	credit, err := Credit(conv, hundred)
	if err != nil {
		t.Fatal(err)
	}
	if !credit.Equal(NewAmountFromInt(100)) {
		t.Errorf("credit(100) under DebitsAreNegative = %s, want +100", credit)
	}

	if !Sum(debit, credit).IsZero() {
		t.Errorf("credit(x) + debit(x) should be zero, got %s", Sum(debit, credit))
	}
}

func TestCreditDebitRejectsNegativeMagnitude(t *testing.T) {
	neg := NewAmountFromInt(-5)
	if _, err := Debit(DefaultSignConvention, neg); err == nil {
		t.Error("expected error for negative magnitude")
	} else if !IsInvalidAmount(err) {
		t.Errorf("expected IsInvalidAmount(err), got %v", err)
	}
}

func TestSumEmpty(t *testing.T) {
	if !Sum().IsZero() {
		t.Error("Sum() with no args should be zero")
	}
}
