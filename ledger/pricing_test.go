package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDiscountPercent(t *testing.T) {
	cases := []struct {
		name       string
		actual     float64
		discounted float64
		want       int
	}{
		{"half off", 100, 50, 50},
		{"no discount", 100, 100, 0},
		{"rounds up", 100, 66.4, 34},
		{"rounds down", 100, 66.6, 33},
		{"third off", 30, 20, 33},
		{"full discount", 80, 0, 100},
		{"zero actual price", 0, 0, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DiscountPercent(tc.actual, tc.discounted))
		})
	}
}

func TestValidatePricing(t *testing.T) {
	assert.NoError(t, ValidatePricing(100, 80))
	assert.NoError(t, ValidatePricing(100, 100))
	assert.NoError(t, ValidatePricing(100, 0))

	assert.ErrorIs(t, ValidatePricing(0, 0), ErrInvalidPrice)
	assert.ErrorIs(t, ValidatePricing(-5, 0), ErrInvalidPrice)
	assert.ErrorIs(t, ValidatePricing(100, 120), ErrInvalidPrice)
	assert.ErrorIs(t, ValidatePricing(100, -1), ErrInvalidPrice)
}

func TestInsufficientStockErrorMessage(t *testing.T) {
	err := &InsufficientStockError{ProductID: "p1", Name: "Mug", Available: 2, Requested: 5}
	assert.Equal(t, "Insufficient stock for Mug. Available: 2, Requested: 5", err.Error())

	// falls back to the ID when the name is unknown
	err = &InsufficientStockError{ProductID: "p1", Available: 0, Requested: 1}
	assert.Contains(t, err.Error(), "p1")
}
