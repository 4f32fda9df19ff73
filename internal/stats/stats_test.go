package stats

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestAggregate(t *testing.T) {
	tests := []struct {
		name    string
		ratings []int
		avg     string
		count   int
	}{
		{"no reviews", nil, "0", 0},
		{"single review", []int{4}, "4", 1},
		{"exact mean", []int{5, 4}, "4.5", 2},
		{"rounds up", []int{5, 5, 4}, "4.7", 3},
		{"rounds down", []int{4, 4, 5}, "4.3", 3},
		{"all minimum", []int{1, 1, 1}, "1", 3},
		{"all maximum", []int{5, 5, 5, 5}, "5", 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Aggregate(tt.ratings)
			assert.True(t, got.AverageRating.Equal(decimal.RequireFromString(tt.avg)),
				"expected average %s, got %s", tt.avg, got.AverageRating)
			assert.Equal(t, tt.count, got.ReviewCount)
		})
	}
}

// TestProperty_AggregateBounds verifies that *for any* non-empty rating set,
// the aggregate stays within the rating scale, counts every chain exactly
// once, and carries at most one decimal place.
func TestProperty_AggregateBounds(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		ratings := rapid.SliceOfN(rapid.IntRange(1, 5), 1, 50).Draw(rt, "ratings")

		got := Aggregate(ratings)

		if got.ReviewCount != len(ratings) {
			t.Fatalf("PROPERTY VIOLATION: Expected count %d, got %d", len(ratings), got.ReviewCount)
		}
		if got.AverageRating.LessThan(decimal.NewFromInt(1)) || got.AverageRating.GreaterThan(decimal.NewFromInt(5)) {
			t.Fatalf("PROPERTY VIOLATION: average %s outside rating scale", got.AverageRating)
		}
		if !got.AverageRating.Equal(got.AverageRating.Round(1)) {
			t.Fatalf("PROPERTY VIOLATION: average %s carries more than one decimal place", got.AverageRating)
		}

		min, max := ratings[0], ratings[0]
		for _, r := range ratings {
			if r < min {
				min = r
			}
			if r > max {
				max = r
			}
		}
		// Rounding to one decimal cannot push the mean past the extremes
		if got.AverageRating.LessThan(decimal.NewFromInt(int64(min)).Sub(decimal.NewFromFloat(0.05))) ||
			got.AverageRating.GreaterThan(decimal.NewFromInt(int64(max)).Add(decimal.NewFromFloat(0.05))) {
			t.Fatalf("PROPERTY VIOLATION: average %s outside observed ratings [%d, %d]",
				got.AverageRating, min, max)
		}
	})
}

// TestProperty_AggregateDeterministic verifies that recomputing from the
// same counted set always yields the same aggregate.
func TestProperty_AggregateDeterministic(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		ratings := rapid.SliceOfN(rapid.IntRange(1, 5), 0, 30).Draw(rt, "ratings")

		first := Aggregate(ratings)
		second := Aggregate(ratings)

		if !first.AverageRating.Equal(second.AverageRating) || first.ReviewCount != second.ReviewCount {
			t.Fatalf("PROPERTY VIOLATION: Aggregate not deterministic: %v vs %v", first, second)
		}
	})
}
