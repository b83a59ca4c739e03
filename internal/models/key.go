package models

import (
	"github.com/shopspring/decimal"
)

// JoinKey is the (code, price) pair used for price-discriminated matching.
// Prices are held as integer cents so that keys compare by value and never
// depend on how a decimal happens to be rendered.
type JoinKey struct {
	Code  string
	Cents int64
}

// DeriveKey builds the join key for a code and a price. Sales and price-list
// entries go through this same function.
func DeriveKey(code string, price decimal.Decimal) JoinKey {
	return JoinKey{
		Code:  code,
		Cents: RoundMoney(price).Shift(MoneyPlaces).IntPart(),
	}
}

// Price returns the key's price as a decimal.
func (k JoinKey) Price() decimal.Decimal {
	return decimal.New(k.Cents, -MoneyPlaces)
}

// String renders "CODE - 12.50", always with two fractional digits.
func (k JoinKey) String() string {
	return k.Code + " - " + k.Price().StringFixed(MoneyPlaces)
}
