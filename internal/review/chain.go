package review

import (
	"sort"

	"github.com/trustrail/trustrail/internal/models"
)

// Chain is one user's review history for one business: the original review
// plus every update chained onto it, ordered by update number ascending.
type Chain struct {
	Original *models.Review  `json:"original"`
	Updates  []models.Review `json:"updates"`
}

// Latest returns the review representing the user's current opinion: the
// update with the highest update number, or the original if no updates
// exist. Ordering decisions use update_number, never created_at, so clock
// skew between writers cannot reorder a chain.
func (c *Chain) Latest() *models.Review {
	if len(c.Updates) == 0 {
		return c.Original
	}
	latest := &c.Updates[0]
	for i := range c.Updates {
		if c.Updates[i].UpdateNumber > latest.UpdateNumber {
			latest = &c.Updates[i]
		}
	}
	return latest
}

// NextUpdateNumber returns the update number the next revision of this
// chain must carry: one past the current maximum, starting at 1.
func (c *Chain) NextUpdateNumber() int {
	max := 0
	for i := range c.Updates {
		if c.Updates[i].UpdateNumber > max {
			max = c.Updates[i].UpdateNumber
		}
	}
	return max + 1
}

// sortByUpdateNumber orders updates ascending by update number
func sortByUpdateNumber(updates []models.Review) {
	sort.Slice(updates, func(i, j int) bool {
		return updates[i].UpdateNumber < updates[j].UpdateNumber
	})
}

// sortByCreatedAt orders updates ascending by creation time, for display
// in profile views.
func sortByCreatedAt(updates []models.Review) {
	sort.Slice(updates, func(i, j int) bool {
		return updates[i].CreatedAt.Before(updates[j].CreatedAt)
	})
}
