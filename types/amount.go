package types

import (
	"database/sql/driver"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// amountExponent is the number of fractional decimal places every Amount is
// rounded to on ingestion: DECIMAL(24,4).
const amountExponent = -4

// Amount is a fixed-point signed decimal value with 4 fractional digits and
// up to 24 total digits. It backs every LedgerEntry.Amount and
// LedgerBalance.Balance. Arithmetic never uses floating point.
type Amount struct {
	d decimal.Decimal
}

// Zero is the additive identity.
var Zero = Amount{d: decimal.Zero}

// NewAmount builds an Amount from a decimal.Decimal, rounding to 4 fractional
// digits using round-half-to-even (banker's rounding), per spec.
func NewAmount(d decimal.Decimal) Amount {
	return Amount{d: d.RoundBank(4)}
}

// ParseAmount parses a decimal string and rounds it per NewAmount.
func ParseAmount(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("types: parse amount %q: %w", s, err)
	}
	return NewAmount(d), nil
}

// NewAmountFromInt builds an Amount representing a whole number of units.
func NewAmountFromInt(i int64) Amount {
	return Amount{d: decimal.NewFromInt(i)}
}

// Decimal returns the underlying decimal.Decimal value.
func (a Amount) Decimal() decimal.Decimal { return a.d }

// Add returns a + b.
func (a Amount) Add(b Amount) Amount {
	return Amount{d: a.d.Add(b.d)}
}

// Sub returns a - b.
func (a Amount) Sub(b Amount) Amount {
	return Amount{d: a.d.Sub(b.d)}
}

// Neg returns -a.
func (a Amount) Neg() Amount {
	return Amount{d: a.d.Neg()}
}

// IsZero reports whether a is exactly zero.
func (a Amount) IsZero() bool { return a.d.IsZero() }

// IsNegative reports whether a is strictly less than zero.
func (a Amount) IsNegative() bool { return a.d.IsNegative() }

// IsPositive reports whether a is strictly greater than zero.
func (a Amount) IsPositive() bool { return a.d.IsPositive() }

// Equal reports whether a and b represent the same value.
func (a Amount) Equal(b Amount) bool { return a.d.Equal(b.d) }

// Cmp compares a and b, returning -1, 0, or 1.
func (a Amount) Cmp(b Amount) int { return a.d.Cmp(b.d) }

// String renders the amount with exactly 4 fractional digits.
func (a Amount) String() string {
	return a.d.StringFixed(4)
}

// Sum adds a slice of Amounts, returning Zero for an empty slice.
func Sum(amounts ...Amount) Amount {
	total := Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

// MarshalJSON implements json.Marshaler, encoding the amount as a decimal string.
func (a Amount) MarshalJSON() ([]byte, error) {
	return a.d.MarshalJSON()
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *Amount) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return err
	}
	a.d = d.RoundBank(4)
	return nil
}

// Value implements driver.Valuer, storing the amount as DECIMAL(24,4) text.
func (a Amount) Value() (driver.Value, error) {
	return a.d.StringFixed(4), nil
}

// Scan implements sql.Scanner.
func (a *Amount) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		a.d = decimal.Zero
		return nil
	case string:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return fmt.Errorf("types: scan amount %q: %w", v, err)
		}
		a.d = d.RoundBank(4)
		return nil
	case []byte:
		d, err := decimal.NewFromString(string(v))
		if err != nil {
			return fmt.Errorf("types: scan amount %q: %w", v, err)
		}
		a.d = d.RoundBank(4)
		return nil
	case float64:
		a.d = decimal.NewFromFloat(v).RoundBank(4)
		return nil
	default:
		return fmt.Errorf("types: cannot scan %T into Amount", src)
	}
}

// SignConvention selects how Credit/Debit map non-negative magnitudes to
// signed Amounts. It is passed explicitly wherever sign matters instead of
// being read from process-wide global state.
type SignConvention struct {
	// DebitsAreNegative inverts the default convention (debits positive,
	// credits negative) when true.
	DebitsAreNegative bool
}

// DefaultSignConvention is the accounting default: debits positive, credits negative.
var DefaultSignConvention = SignConvention{DebitsAreNegative: false}

// Credit returns the signed Amount for a credit of the given non-negative
// magnitude, under the given sign convention.
func Credit(conv SignConvention, magnitude Amount) (Amount, error) {
	return signedAmount(conv, magnitude, true)
}

// Debit returns the signed Amount for a debit of the given non-negative
// magnitude, under the given sign convention.
func Debit(conv SignConvention, magnitude Amount) (Amount, error) {
	return signedAmount(conv, magnitude, false)
}

// ErrInvalidAmount is returned by Credit/Debit when given a negative
// magnitude. It is the canonical sentinel for this failure: the root
// package's ErrInvalidAmount is this same value, re-exported, so
// errors.Is(err, ledger.ErrInvalidAmount) holds regardless of which
// package's Credit/Debit produced err.
var ErrInvalidAmount = fmt.Errorf("types: amount must be non-negative")

func signedAmount(conv SignConvention, magnitude Amount, isCredit bool) (Amount, error) {
	if magnitude.IsNegative() {
		return Amount{}, ErrInvalidAmount
	}
	negate := isCredit
	if conv.DebitsAreNegative {
		negate = !isCredit
	}
	if negate {
		return magnitude.Neg(), nil
	}
	return magnitude, nil
}

// IsInvalidAmount reports whether err originated from Credit/Debit being
// given a negative magnitude.
func IsInvalidAmount(err error) bool {
	return errors.Is(err, ErrInvalidAmount)
}
