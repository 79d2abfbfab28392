package entity

import (
	"fmt"
	"strconv"
	"strings"

	errs "github.com/rica-io/payment-engine/internal/domain/error"
)

// Monetary amounts are carried as strings on the wire and as cents internally
// so no floating point ever touches a balance or a price.

// MaxDecimalPlaces defines the maximum number of decimal places allowed for amounts
const MaxDecimalPlaces = 2

// ParseAmount validates a decimal string amount and converts it to cents.
// Accepts "10", "10.5" and "10.50"; rejects negatives, malformed numbers and
// more than two decimal places.
func ParseAmount(amount string) (int64, error) {
	amount = strings.TrimSpace(amount)
	if amount == "" {
		return 0, fmt.Errorf("%w: empty value", errs.ErrInvalidAmount)
	}

	if strings.HasPrefix(amount, "-") {
		return 0, errs.ErrNegativeAmount
	}

	parts := strings.Split(amount, ".")
	if len(parts) > 2 {
		return 0, fmt.Errorf("%w: invalid number format", errs.ErrInvalidAmount)
	}

	var digits string
	if len(parts) == 1 {
		digits = parts[0] + "00"
	} else {
		switch len(parts[1]) {
		case 0:
			digits = parts[0] + "00"
		case 1:
			digits = parts[0] + parts[1] + "0"
		case 2:
			digits = parts[0] + parts[1]
		default:
			return 0, fmt.Errorf("%w: maximum %d decimal places allowed", errs.ErrInvalidAmount, MaxDecimalPlaces)
		}
	}

	cents, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", errs.ErrInvalidAmount, err.Error())
	}
	return cents, nil
}

// FormatCents converts an amount in cents to a decimal string with exactly
// two decimal places, e.g. 1015 -> "10.15", 40 -> "0.40".
func FormatCents(cents int64) string {
	negative := cents < 0
	if negative {
		cents = -cents
	}

	s := strconv.FormatInt(cents, 10)
	for len(s) < 3 {
		s = "0" + s
	}

	split := len(s) - MaxDecimalPlaces
	out := s[:split] + "." + s[split:]
	if negative {
		out = "-" + out
	}
	return out
}
