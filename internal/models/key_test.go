package models

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestDeriveKey(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		price    string
		expected JoinKey
		display  string
	}{
		{name: "trailing zero", code: "A1", price: "12.5", expected: JoinKey{"A1", 1250}, display: "A1 - 12.50"},
		{name: "two trailing zeros", code: "A1", price: "12.50", expected: JoinKey{"A1", 1250}, display: "A1 - 12.50"},
		{name: "integer price", code: "A1", price: "12", expected: JoinKey{"A1", 1200}, display: "A1 - 12.00"},
		{name: "negative zero", code: "Z", price: "-0.001", expected: JoinKey{"Z", 0}, display: "Z - 0.00"},
		{name: "negative half cent", code: "Z", price: "-0.005", expected: JoinKey{"Z", 0}, display: "Z - 0.00"},
		{name: "multi-digit code", code: "SKU-10042", price: "1999.99", expected: JoinKey{"SKU-10042", 199999}, display: "SKU-10042 - 1999.99"},
		{name: "half to even down", code: "H", price: "0.125", expected: JoinKey{"H", 12}, display: "H - 0.12"},
		{name: "half to even up", code: "H", price: "0.135", expected: JoinKey{"H", 14}, display: "H - 0.14"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := DeriveKey(tt.code, decimal.RequireFromString(tt.price))
			if key != tt.expected {
				t.Errorf("DeriveKey(%s, %s) = %+v, want %+v", tt.code, tt.price, key, tt.expected)
			}
			if key.String() != tt.display {
				t.Errorf("String() = %q, want %q", key.String(), tt.display)
			}
		})
	}
}

func TestKeySymmetry(t *testing.T) {
	cases := []struct {
		code     string
		amount   string
		quantity int64
		price    string
	}{
		{"A1", "20.00", 2, "10.00"},
		{"A1", "25", 2, "12.5"},
		{"B22", "9.99", 1, "9.990"},
		{"C", "100", 3, "33.33"},
	}

	for _, c := range cases {
		t.Run(c.code+"/"+c.price, func(t *testing.T) {
			sale := NewSaleRecord(2, nil, decimal.RequireFromString(c.amount), c.quantity, c.code)
			entry := NewPriceListEntry(2, c.code, decimal.RequireFromString(c.price), "solution", nil, nil)

			saleKey, ok := sale.Key()
			if !ok {
				t.Fatal("expected sale key to be defined")
			}
			if saleKey != entry.Key() {
				t.Errorf("keys differ: sale %+v, price list %+v", saleKey, entry.Key())
			}
			if saleKey.String() != entry.Key().String() {
				t.Errorf("display keys differ: %q vs %q", saleKey.String(), entry.Key().String())
			}
		})
	}
}

func TestJoinKeyPrice(t *testing.T) {
	key := JoinKey{Code: "A", Cents: 1050}
	if !key.Price().Equal(decimal.RequireFromString("10.50")) {
		t.Errorf("expected 10.50, got %s", key.Price())
	}
}
