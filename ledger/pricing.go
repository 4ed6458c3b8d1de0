package ledger

import (
	"errors"
	"math"
)

var ErrInvalidPrice = errors.New("discounted price cannot exceed actual price")

// DiscountPercent derives the advertised discount from the price pair,
// rounded and clamped to [0, 100].
func DiscountPercent(actual, discounted float64) int {
	if actual <= 0 {
		return 0
	}
	pct := (actual - discounted) / actual * 100
	return int(math.Round(math.Max(0, math.Min(100, pct))))
}

// ValidatePricing is applied on every price write.
func ValidatePricing(actual, discounted float64) error {
	if actual <= 0 {
		return ErrInvalidPrice
	}
	if discounted < 0 || discounted > actual {
		return ErrInvalidPrice
	}
	return nil
}
