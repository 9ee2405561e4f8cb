package shared

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is an amount in minor currency units (cents).
type Money int64

// Percent is a percentage expressed in basis points; 1% is 100.
type Percent int64

const (
	// PercentHundred is 100% in basis points.
	PercentHundred Percent = 100 * 100

	// Exponent bounds keep rescaling cheap for inputs like "1e999999999".
	maxExponent = 18
	minExponent = -20
)

// maxUnits bounds parsed amounts well inside int64 cents.
var maxUnits = decimal.New(1, 16)

// ErrInvalidAmount indicates a malformed decimal amount.
var ErrInvalidAmount = errors.New("invalid decimal amount")

// NewMoney builds Money from whole units and cents, e.g. NewMoney(120, 50) is 120.50.
func NewMoney(units, cents int64) Money {
	return Money(units*100 + cents)
}

// ParseMoney parses a decimal string with at most two fractional digits.
func ParseMoney(s string) (Money, error) {
	v, err := parseFixed2(s)
	if err != nil {
		return 0, err
	}
	return Money(v), nil
}

// MustMoney is ParseMoney for literals known to be valid.
func MustMoney(s string) Money {
	m, err := ParseMoney(s)
	if err != nil {
		panic(err)
	}
	return m
}

// Mul multiplies the amount by an integer quantity.
func (m Money) Mul(qty int64) Money {
	return m * Money(qty)
}

// ApplyPercent returns the share of m for p, rounded half up to the cent.
func (m Money) ApplyPercent(p Percent) Money {
	if m <= 0 || p <= 0 {
		return 0
	}
	if p > PercentHundred {
		p = PercentHundred
	}
	share := decimal.NewFromInt(int64(m)).
		Mul(decimal.NewFromInt(int64(p))).
		Div(decimal.NewFromInt(int64(PercentHundred)))
	// Round is half away from zero, which is half up for the positive amounts here.
	return Money(share.Round(0).IntPart())
}

// Cents returns the raw minor-unit value.
func (m Money) Cents() int64 {
	return int64(m)
}

func (m Money) String() string {
	return formatFixed2(int64(m))
}

// MarshalJSON renders the amount as a JSON number with two decimals.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(formatFixed2(int64(m))), nil
}

// UnmarshalJSON accepts a JSON number or a quoted decimal string without passing through float64.
func (m *Money) UnmarshalJSON(data []byte) error {
	v, err := unmarshalFixed2(data)
	if err != nil {
		return err
	}
	*m = Money(v)
	return nil
}

// ParsePercent parses a percentage such as "10" or "12.5" into basis points.
func ParsePercent(s string) (Percent, error) {
	v, err := parseFixed2(s)
	if err != nil {
		return 0, err
	}
	return Percent(v), nil
}

// Valid reports whether p lies within [0, 100]%.
func (p Percent) Valid() bool {
	return p >= 0 && p <= PercentHundred
}

func (p Percent) String() string {
	return formatFixed2(int64(p))
}

// MarshalJSON renders the percentage as a JSON number.
func (p Percent) MarshalJSON() ([]byte, error) {
	return []byte(formatFixed2(int64(p))), nil
}

// UnmarshalJSON accepts a JSON number or quoted decimal string.
func (p *Percent) UnmarshalJSON(data []byte) error {
	v, err := unmarshalFixed2(data)
	if err != nil {
		return err
	}
	*p = Percent(v)
	return nil
}

func unmarshalFixed2(data []byte) (int64, error) {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return 0, nil
	}
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	return parseFixed2(s)
}

// parseFixed2 reads a decimal, exponent notation included, as hundredths.
// Values with a non-zero third decimal are rejected rather than rounded.
func parseFixed2(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if exp := d.Exponent(); exp > maxExponent || exp < minExponent {
		return 0, fmt.Errorf("%w: %q out of range", ErrInvalidAmount, s)
	}
	if !d.Equal(d.Round(2)) {
		return 0, fmt.Errorf("%w: more than two decimals in %q", ErrInvalidAmount, s)
	}
	if d.Abs().GreaterThanOrEqual(maxUnits) {
		return 0, fmt.Errorf("%w: %q out of range", ErrInvalidAmount, s)
	}
	return d.Shift(2).IntPart(), nil
}

func formatFixed2(v int64) string {
	return decimal.New(v, -2).StringFixed(2)
}
