package review

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/trustrail/trustrail/internal/models"
)

func makeUpdate(parentID uuid.UUID, number int, createdAt time.Time) models.Review {
	return models.Review{
		ID:             uuid.New(),
		ParentReviewID: &parentID,
		UpdateNumber:   number,
		IsUpdate:       true,
		Rating:         3,
		CreatedAt:      createdAt,
	}
}

func TestChain_LatestWithoutUpdates(t *testing.T) {
	original := &models.Review{ID: uuid.New(), UpdateNumber: 0, Rating: 4}
	chain := &Chain{Original: original}

	assert.Equal(t, original, chain.Latest())
	assert.Equal(t, 1, chain.NextUpdateNumber())
}

func TestChain_LatestEmpty(t *testing.T) {
	chain := &Chain{}
	assert.Nil(t, chain.Latest())
	assert.Equal(t, 1, chain.NextUpdateNumber())
}

// TestProperty_LatestIsMaxUpdateNumber verifies that *for any* set of
// updates, Latest returns the one with the highest update number,
// regardless of creation timestamps.
func TestProperty_LatestIsMaxUpdateNumber(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		parentID := uuid.New()
		original := &models.Review{ID: parentID, UpdateNumber: 0}

		count := rapid.IntRange(1, 10).Draw(rt, "count")
		numbers := rapid.SliceOfNDistinct(rapid.IntRange(1, 1000), count, count, rapid.ID[int]).Draw(rt, "numbers")

		maxNumber := 0
		updates := make([]models.Review, 0, count)
		for _, n := range numbers {
			// Timestamps deliberately unrelated to numbering: a later
			// revision may carry an earlier clock reading.
			createdAt := time.Unix(int64(rapid.IntRange(0, 1_000_000).Draw(rt, "ts")), 0)
			updates = append(updates, makeUpdate(parentID, n, createdAt))
			if n > maxNumber {
				maxNumber = n
			}
		}

		chain := &Chain{Original: original, Updates: updates}

		latest := chain.Latest()
		if latest.UpdateNumber != maxNumber {
			t.Fatalf("PROPERTY VIOLATION: Latest returned update_number %d, expected max %d",
				latest.UpdateNumber, maxNumber)
		}

		if chain.NextUpdateNumber() != maxNumber+1 {
			t.Fatalf("PROPERTY VIOLATION: NextUpdateNumber returned %d, expected %d",
				chain.NextUpdateNumber(), maxNumber+1)
		}
	})
}

// TestProperty_SortByUpdateNumberOrders verifies that sorting a shuffled
// chain always yields strictly ascending update numbers.
func TestProperty_SortByUpdateNumberOrders(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		parentID := uuid.New()
		count := rapid.IntRange(0, 10).Draw(rt, "count")
		numbers := rapid.SliceOfNDistinct(rapid.IntRange(1, 1000), count, count, rapid.ID[int]).Draw(rt, "numbers")

		updates := make([]models.Review, 0, count)
		for _, n := range numbers {
			updates = append(updates, makeUpdate(parentID, n, time.Now()))
		}

		sortByUpdateNumber(updates)

		for i := 1; i < len(updates); i++ {
			if updates[i-1].UpdateNumber >= updates[i].UpdateNumber {
				t.Fatalf("PROPERTY VIOLATION: updates not strictly ascending at index %d: %d >= %d",
					i, updates[i-1].UpdateNumber, updates[i].UpdateNumber)
			}
		}
	})
}
