// Package stats owns the derived average_rating and review_count columns on
// businesses. Aggregates are always re-derived fresh from the counted set
// (the latest review of every chain, active businesses only) rather than
// patched incrementally, so repeated recomputes can never drift.
package stats

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/trustrail/trustrail/internal/cache"
	"github.com/trustrail/trustrail/internal/models"
	"github.com/trustrail/trustrail/internal/monitoring"
)

// ErrBusinessNotFound is returned when the business does not exist
var ErrBusinessNotFound = errors.New("business not found")

// BusinessStats is the derived aggregate for one business
type BusinessStats struct {
	AverageRating decimal.Decimal `json:"average_rating"`
	ReviewCount   int             `json:"review_count"`
}

// Service recomputes and serves business aggregates
type Service struct {
	db    *pgxpool.Pool
	cache *cache.Redis
}

// NewService creates a new stats service. The cache is optional; without it
// every read derives from the database.
func NewService(db *pgxpool.Pool, c *cache.Redis) *Service {
	return &Service{db: db, cache: c}
}

// Aggregate reduces the counted ratings to the displayed aggregate: the
// mean rounded to one decimal, zero when no chains exist.
func Aggregate(ratings []int) BusinessStats {
	if len(ratings) == 0 {
		return BusinessStats{AverageRating: decimal.Zero, ReviewCount: 0}
	}

	sum := decimal.Zero
	for _, r := range ratings {
		sum = sum.Add(decimal.NewFromInt(int64(r)))
	}
	avg := sum.Div(decimal.NewFromInt(int64(len(ratings)))).Round(1)
	return BusinessStats{AverageRating: avg, ReviewCount: len(ratings)}
}

// Recompute derives a business's aggregate from scratch and writes the
// denormalized columns and the cache. Safe to call repeatedly; an inactive
// business always recomputes to zero regardless of its raw rows.
func (s *Service) Recompute(ctx context.Context, businessID uuid.UUID) error {
	start := time.Now()

	var status models.BusinessStatus
	err := s.db.QueryRow(ctx, `SELECT status FROM businesses WHERE id = $1`, businessID).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrBusinessNotFound
		}
		return fmt.Errorf("failed to get business status: %w", err)
	}

	var stats BusinessStats
	if status == models.BusinessStatusActive {
		ratings, err := s.countedRatings(ctx, businessID)
		if err != nil {
			return err
		}
		stats = Aggregate(ratings)
	} else {
		stats = Aggregate(nil)
	}

	_, err = s.db.Exec(ctx, `
		UPDATE businesses SET
			average_rating = $1, review_count = $2, updated_at = NOW()
		WHERE id = $3
	`, stats.AverageRating, stats.ReviewCount, businessID)
	if err != nil {
		return fmt.Errorf("failed to write aggregate: %w", err)
	}

	s.writeCache(ctx, businessID, &stats)
	monitoring.RecordStatsRecompute(time.Since(start))
	return nil
}

// Get returns a business's aggregate, cache-first
func (s *Service) Get(ctx context.Context, businessID uuid.UUID) (*BusinessStats, error) {
	if s.cache != nil {
		cached, err := s.cache.GetBusinessStats(ctx, businessID.String())
		if err == nil {
			avg, perr := decimal.NewFromString(cached.AverageRating)
			if perr == nil {
				return &BusinessStats{AverageRating: avg, ReviewCount: cached.ReviewCount}, nil
			}
		} else if !errors.Is(err, cache.ErrCacheMiss) {
			log.Warn().Err(err).Msg("Stats cache read failed, falling back to database")
		}
	}

	var stats BusinessStats
	err := s.db.QueryRow(ctx, `
		SELECT average_rating, review_count FROM businesses WHERE id = $1
	`, businessID).Scan(&stats.AverageRating, &stats.ReviewCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBusinessNotFound
		}
		return nil, fmt.Errorf("failed to read aggregate: %w", err)
	}

	s.writeCache(ctx, businessID, &stats)
	return &stats, nil
}

// ReconcileAll re-derives every active business's aggregate. Used as a
// periodic reconciliation pass to pick up any recompute that was deferred
// by a transient failure.
func (s *Service) ReconcileAll(ctx context.Context) error {
	rows, err := s.db.Query(ctx, `SELECT id FROM businesses WHERE status = $1`, models.BusinessStatusActive)
	if err != nil {
		return fmt.Errorf("failed to list businesses: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return fmt.Errorf("failed to scan business id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate businesses: %w", err)
	}

	var failed int
	for _, id := range ids {
		if err := s.Recompute(ctx, id); err != nil {
			failed++
			log.Error().Err(err).Str("business_id", id.String()).Msg("Reconcile recompute failed")
		}
	}

	log.Info().Int("total", len(ids)).Int("failed", failed).Msg("Stats reconciliation pass completed")
	if failed > 0 {
		return fmt.Errorf("reconciliation failed for %d of %d businesses", failed, len(ids))
	}
	return nil
}

// countedRatings returns the rating of the latest review in every chain on
// the business. One row per user: updates replace their original in the
// counted set, they never add to it.
func (s *Service) countedRatings(ctx context.Context, businessID uuid.UUID) ([]int, error) {
	rows, err := s.db.Query(ctx, `
		SELECT DISTINCT ON (user_id) rating
		FROM reviews
		WHERE business_id = $1
		ORDER BY user_id, update_number DESC
	`, businessID)
	if err != nil {
		return nil, fmt.Errorf("failed to query counted ratings: %w", err)
	}
	defer rows.Close()

	var ratings []int
	for rows.Next() {
		var rating int
		if err := rows.Scan(&rating); err != nil {
			return nil, fmt.Errorf("failed to scan rating: %w", err)
		}
		ratings = append(ratings, rating)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ratings: %w", err)
	}
	return ratings, nil
}

func (s *Service) writeCache(ctx context.Context, businessID uuid.UUID, stats *BusinessStats) {
	if s.cache == nil {
		return
	}
	err := s.cache.SetBusinessStats(ctx, businessID.String(), &cache.BusinessStats{
		AverageRating: stats.AverageRating.StringFixed(1),
		ReviewCount:   stats.ReviewCount,
	})
	if err != nil {
		log.Warn().Err(err).Str("business_id", businessID.String()).Msg("Stats cache write failed")
	}
}
