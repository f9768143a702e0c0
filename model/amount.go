package model

import (
	"fmt"
	"math"
	"math/bits"
	"strconv"
	"strings"
)

// AmountDecimals is the number of fractional digits carried by an Amount.
const AmountDecimals = 6

const amountScale = 1000000

// Amount is a fixed-point monetary value in base units (1 unit = 10^-6).
type Amount uint64

// ParseAmount parses a decimal string such as "0.15" into base units.
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("parseAmount: empty amount: %w", ErrValidation)
	}

	whole, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		whole, frac = s[:i], s[i+1:]
	}
	if whole == "" {
		whole = "0"
	}
	if len(frac) > AmountDecimals {
		return 0, fmt.Errorf("parseAmount: %q has more than %d decimals: %w", s, AmountDecimals, ErrValidation)
	}
	for _, r := range whole + frac {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("parseAmount: %q is not a decimal number: %w", s, ErrValidation)
		}
	}

	w, err := strconv.ParseUint(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parseAmount: %q: %v: %w", s, err, ErrValidation)
	}
	var f uint64
	if frac != "" {
		f, _ = strconv.ParseUint(frac+strings.Repeat("0", AmountDecimals-len(frac)), 10, 64)
	}

	if w > (math.MaxUint64-f)/amountScale {
		return 0, fmt.Errorf("parseAmount: %q overflows: %w", s, ErrValidation)
	}
	return Amount(w*amountScale + f), nil
}

// MustAmount is ParseAmount for literals known to be valid.
func MustAmount(s string) Amount {
	a, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

// Mul multiplies by a quantity, reporting overflow.
func (a Amount) Mul(n uint64) (Amount, bool) {
	hi, lo := bits.Mul64(uint64(a), n)
	return Amount(lo), hi == 0
}

func (a Amount) String() string {
	whole := uint64(a) / amountScale
	frac := uint64(a) % amountScale
	if frac == 0 {
		return strconv.FormatUint(whole, 10)
	}
	f := strings.TrimRight(fmt.Sprintf("%06d", frac), "0")
	return fmt.Sprintf("%d.%s", whole, f)
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(a.String())), nil
}

// UnmarshalJSON accepts both "0.15" and 0.15.
func (a *Amount) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" {
		return nil
	}
	if uq, err := strconv.Unquote(s); err == nil {
		s = uq
	}
	v, err := ParseAmount(s)
	if err != nil {
		return err
	}
	*a = v
	return nil
}
