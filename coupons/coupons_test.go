package coupons

import (
	"testing"
	"time"

	"mercato/models"

	"github.com/stretchr/testify/assert"
)

func TestValid(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		coupon *models.Coupon
		want   bool
	}{
		{
			name:   "active and in date",
			coupon: &models.Coupon{Code: "SAVE10", Discount: 10, IsActive: true, ExpiryDate: now.AddDate(0, 1, 0)},
			want:   true,
		},
		{
			name:   "expires this instant",
			coupon: &models.Coupon{Code: "LAST", Discount: 5, IsActive: true, ExpiryDate: now},
			want:   true,
		},
		{
			name:   "expired yesterday",
			coupon: &models.Coupon{Code: "OLD", Discount: 5, IsActive: true, ExpiryDate: now.AddDate(0, 0, -1)},
			want:   false,
		},
		{
			name:   "deactivated",
			coupon: &models.Coupon{Code: "OFF", Discount: 5, IsActive: false, ExpiryDate: now.AddDate(0, 1, 0)},
			want:   false,
		},
		{
			name:   "nil",
			coupon: nil,
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Valid(tt.coupon, now))
		})
	}
}
