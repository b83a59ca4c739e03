package parsers

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
)

// Normalizer coerces raw table cells into typed values.
type Normalizer struct {
	layouts []string
}

// NewNormalizer creates a normalizer trying the given date layouts in order.
func NewNormalizer(layouts []string) *Normalizer {
	if len(layouts) == 0 {
		layouts = DefaultDateLayouts
	}
	return &Normalizer{layouts: layouts}
}

// Text renders a cell as trimmed text. Numeric cells are formatted without
// exponent so that codes such as 1001 survive a numeric round trip.
func (n *Normalizer) Text(value interface{}) (string, error) {
	switch v := value.(type) {
	case nil:
		return "", nil
	case float64:
		return strings.TrimSpace(decimal.NewFromFloat(v).String()), nil
	}
	s, err := cast.ToStringE(value)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(s), nil
}

// Decimal parses a numeric cell. Empty cells are an error.
func (n *Normalizer) Decimal(value interface{}) (decimal.Decimal, error) {
	switch v := value.(type) {
	case nil:
		return decimal.Zero, fmt.Errorf("empty value")
	case decimal.Decimal:
		return v, nil
	case json.Number:
		return decimal.NewFromString(v.String())
	case float64:
		return decimal.NewFromFloat(v), nil
	case float32:
		return decimal.NewFromFloat32(v), nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32:
		i, err := cast.ToInt64E(v)
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromInt(i), nil
	}

	s, err := n.Text(value)
	if err != nil {
		return decimal.Zero, err
	}
	if s == "" {
		return decimal.Zero, fmt.Errorf("empty value")
	}
	return decimal.NewFromString(s)
}

// Quantity parses a quantity cell, truncating any fractional part.
func (n *Normalizer) Quantity(value interface{}) (int64, error) {
	d, err := n.Decimal(value)
	if err != nil {
		return 0, err
	}
	return d.IntPart(), nil
}

// Date parses a date cell into a UTC calendar date. The second result is
// false when the cell is present but unparseable; empty cells give nil, true.
func (n *Normalizer) Date(value interface{}) (*time.Time, bool) {
	if t, ok := value.(time.Time); ok {
		return calendarDate(t), true
	}

	s, err := n.Text(value)
	if err != nil {
		return nil, false
	}
	if s == "" {
		return nil, true
	}

	for _, layout := range n.layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return calendarDate(t), true
		}
	}
	if t, err := cast.ToTimeE(s); err == nil {
		return calendarDate(t), true
	}
	return nil, false
}

func calendarDate(t time.Time) *time.Time {
	date := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return &date
}
