package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MoneyPlaces is the number of fractional digits kept for amounts and prices.
const MoneyPlaces = 2

// DateLayout is the display layout of calendar dates (day-month-year).
const DateLayout = "02-01-2006"

// Discipline is the lower-cased pricing label of a price-list entry.
type Discipline string

// DisciplineNotSolution marks entries that are matched on code alone.
const DisciplineNotSolution Discipline = "not solution"

// NormalizeDiscipline trims and lower-cases a raw label.
func NormalizeDiscipline(label string) Discipline {
	return Discipline(strings.ToLower(strings.TrimSpace(label)))
}

// String returns the label as stored
func (d Discipline) String() string {
	return string(d)
}

// Kind reports which join predicate applies to entries with this label.
func (d Discipline) Kind() MatchKind {
	if d == DisciplineNotSolution {
		return MatchCodeOnly
	}
	return MatchPriceDiscriminated
}

// MatchKind selects the join predicate of a pricing discipline.
type MatchKind int

const (
	// MatchPriceDiscriminated matches on code and unit price.
	MatchPriceDiscriminated MatchKind = iota
	// MatchCodeOnly matches on code and ignores price.
	MatchCodeOnly
)

// String returns the string representation of MatchKind
func (k MatchKind) String() string {
	switch k {
	case MatchPriceDiscriminated:
		return "price_discriminated"
	case MatchCodeOnly:
		return "code_only"
	default:
		return fmt.Sprintf("match_kind(%d)", int(k))
	}
}

// SaleRecord is one normalized row of the sales table.
type SaleRecord struct {
	Line      int
	OrderDate *time.Time
	Amount    decimal.Decimal
	Quantity  int64
	Code      string
	// UnitPrice is Amount/Quantity rounded to cents; invalid when Quantity <= 0.
	UnitPrice decimal.NullDecimal
}

// NewSaleRecord builds a sale from already-typed values, applying the
// canonical rounding and code casing and deriving the unit price.
func NewSaleRecord(line int, orderDate *time.Time, amount decimal.Decimal, quantity int64, code string) *SaleRecord {
	sale := &SaleRecord{
		Line:      line,
		OrderDate: orderDate,
		Amount:    RoundMoney(amount),
		Quantity:  quantity,
		Code:      strings.ToUpper(strings.TrimSpace(code)),
	}
	if quantity > 0 {
		price := sale.Amount.Div(decimal.NewFromInt(quantity))
		sale.UnitPrice = decimal.NullDecimal{Decimal: RoundMoney(price), Valid: true}
	}
	return sale
}

// HasUnitPrice reports whether the unit price is defined.
func (s *SaleRecord) HasUnitPrice() bool {
	return s.UnitPrice.Valid
}

// Key returns the (code, unit price) join key. The second result is false
// when the unit price is undefined; such a sale never matches any key.
func (s *SaleRecord) Key() (JoinKey, bool) {
	if !s.UnitPrice.Valid {
		return JoinKey{}, false
	}
	return DeriveKey(s.Code, s.UnitPrice.Decimal), true
}

// String returns a string representation of the SaleRecord
func (s *SaleRecord) String() string {
	price := "undefined"
	if s.UnitPrice.Valid {
		price = s.UnitPrice.Decimal.StringFixed(MoneyPlaces)
	}
	return fmt.Sprintf("Sale{Line: %d, Code: %s, Amount: %s, Quantity: %d, UnitPrice: %s, Date: %s}",
		s.Line, s.Code, s.Amount.StringFixed(MoneyPlaces), s.Quantity, price, FormatDate(s.OrderDate))
}

// PriceListEntry is one normalized row of the price list.
type PriceListEntry struct {
	Line       int
	Code       string
	SalePrice  decimal.Decimal
	Discipline Discipline
	// ValidFrom and ValidTo are advisory and never used for matching.
	ValidFrom *time.Time
	ValidTo   *time.Time
}

// NewPriceListEntry builds a price-list entry. The code keeps its casing.
func NewPriceListEntry(line int, code string, salePrice decimal.Decimal, label string, validFrom, validTo *time.Time) *PriceListEntry {
	return &PriceListEntry{
		Line:       line,
		Code:       strings.TrimSpace(code),
		SalePrice:  RoundMoney(salePrice),
		Discipline: NormalizeDiscipline(label),
		ValidFrom:  validFrom,
		ValidTo:    validTo,
	}
}

// Key returns the (code, sale price) join key.
func (p *PriceListEntry) Key() JoinKey {
	return DeriveKey(p.Code, p.SalePrice)
}

// String returns a string representation of the PriceListEntry
func (p *PriceListEntry) String() string {
	return fmt.Sprintf("PriceListEntry{Line: %d, Code: %s, Price: %s, Discipline: %q}",
		p.Line, p.Code, p.SalePrice.StringFixed(MoneyPlaces), p.Discipline)
}

// Stage identifies the join stage a reconciled record came from.
type Stage string

const (
	// StagePriceMatch is the code-and-price inner join.
	StagePriceMatch Stage = "price_match"
	// StageCodeMatch is the code-only join over sales not claimed by a price match.
	StageCodeMatch Stage = "code_match"
)

// ReconciledRecord pairs a sale with the price-list entry that classified it.
// It is never modified after construction.
type ReconciledRecord struct {
	Price *PriceListEntry
	Sale  *SaleRecord
	Stage Stage
}

// NewReconciledRecord creates a reconciled pairing
func NewReconciledRecord(price *PriceListEntry, sale *SaleRecord, stage Stage) *ReconciledRecord {
	return &ReconciledRecord{Price: price, Sale: sale, Stage: stage}
}

// Category is the discipline label the sale was classified under.
func (r *ReconciledRecord) Category() Discipline {
	return r.Price.Discipline
}

// Amount is the sale amount contributed to the summary.
func (r *ReconciledRecord) Amount() decimal.Decimal {
	return r.Sale.Amount
}

// OrderDate is the sale's calendar date, nil when it failed to parse.
func (r *ReconciledRecord) OrderDate() *time.Time {
	return r.Sale.OrderDate
}

// RoundMoney rounds half-to-even to cents.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(MoneyPlaces)
}

// FormatDate renders a nullable date with DateLayout, or "" when nil.
func FormatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(DateLayout)
}
