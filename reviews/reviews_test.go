package reviews

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAggregate(t *testing.T) {
	tests := []struct {
		name      string
		ratings   []int
		wantAvg   float64
		wantCount int
	}{
		{"three ratings", []int{3, 4, 5}, 4.0, 3},
		{"single rating", []int{5}, 5.0, 1},
		{"rounds to one decimal", []int{4, 4, 5}, 4.3, 3},
		{"rounds half up", []int{1, 2}, 1.5, 2},
		{"empty", nil, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			avg, count := Aggregate(tt.ratings)
			assert.Equal(t, tt.wantAvg, avg)
			assert.Equal(t, tt.wantCount, count)
		})
	}
}
