package models

import (
	"bytes"
	"database/sql/driver"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Money is an amount in minor currency units (paise, cents). On the wire it
// is a decimal number of major units with at most two fraction digits.
type Money int64

const minorPerMajor = 100

// MaxPrice bounds a single menu item's price. With the per-order line and
// quantity limits, any order total stays far inside int64.
const MaxPrice Money = 10_000_000 * minorPerMajor

var errMoneyFormat = errors.New("amount must be a decimal with at most two fraction digits")

func FromMajor(units int64) Money {
	return Money(units * minorPerMajor)
}

func (m Money) Minor() int64 { return int64(m) }

func (m Money) Times(quantity int) Money {
	return m * Money(quantity)
}

func (m Money) String() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/minorPerMajor, v%minorPerMajor)
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts both 12.5 and "12.50". Floats are never involved so
// the minor-unit value is exact.
func (m *Money) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 1 && b[0] == '"' {
		unq, err := strconv.Unquote(string(b))
		if err != nil {
			return errMoneyFormat
		}
		b = []byte(unq)
	}
	v, err := ParseMoney(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	whole, frac, hasFrac := strings.Cut(s, ".")
	if whole == "" || len(whole) > 13 || !allDigits(whole) {
		return 0, errMoneyFormat
	}
	if hasFrac && (frac == "" || len(frac) > 2 || !allDigits(frac)) {
		return 0, errMoneyFormat
	}
	for len(frac) < 2 {
		frac += "0"
	}

	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, errMoneyFormat
	}
	f, _ := strconv.ParseInt(frac, 10, 64)
	v := w*minorPerMajor + f
	if neg {
		v = -v
	}
	return Money(v), nil
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Value stores Money as an integer column.
func (m Money) Value() (driver.Value, error) {
	return int64(m), nil
}

func (m *Money) Scan(src any) error {
	switch v := src.(type) {
	case int64:
		*m = Money(v)
	case []byte:
		n, err := strconv.ParseInt(string(v), 10, 64)
		if err != nil {
			return fmt.Errorf("scan money: %w", err)
		}
		*m = Money(n)
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("scan money: %w", err)
		}
		*m = Money(n)
	default:
		return fmt.Errorf("scan money: unsupported type %T", src)
	}
	return nil
}
