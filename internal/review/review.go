// Package review owns the creation and chaining of reviews: one original
// review per (user, business) pair, with later revisions appended as
// updates carrying strictly increasing update numbers.
package review

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/trustrail/trustrail/internal/logging"
	"github.com/trustrail/trustrail/internal/models"
	"github.com/trustrail/trustrail/internal/monitoring"
)

// Service errors
var (
	ErrReviewNotFound       = errors.New("review not found")
	ErrBusinessNotFound     = errors.New("business not found")
	ErrDuplicateOriginal    = errors.New("an original review already exists for this user and business")
	ErrNoOriginal           = errors.New("no original review exists for this user and business")
	ErrInvalidRating        = errors.New("rating must be between 1 and 5")
	ErrEmptyContent         = errors.New("review content must not be empty")
	ErrBusinessInactive     = errors.New("business is inactive and cannot receive reviews")
	ErrUpdateNumberConflict = errors.New("concurrent update submission, please try again")
)

// uniqueViolation is the Postgres error code for unique constraint violations
const uniqueViolation = "23505"

// Constraint names from migrations/0001_init.up.sql
const (
	constraintOneOriginal  = "reviews_one_original_per_user_business"
	constraintUpdateNumber = "reviews_chain_update_number_key"
)

// maxUpdateRetries bounds the retry loop for the benign update-number race.
// Validation errors are never retried.
const maxUpdateRetries = 3

// Recomputer recomputes a business's derived rating stats. Failures are
// logged and deferred to the next trigger; they never roll back a review
// write.
type Recomputer interface {
	Recompute(ctx context.Context, businessID uuid.UUID) error
}

// Service handles review chain operations
type Service struct {
	db    *pgxpool.Pool
	stats Recomputer
}

// NewService creates a new review service
func NewService(db *pgxpool.Pool, stats Recomputer) *Service {
	return &Service{db: db, stats: stats}
}

// SubmitReviewRequest carries a member's review submission, original or
// update. Proof fields are optional; when ProofURL is set the review enters
// the proof-pending state immediately.
type SubmitReviewRequest struct {
	Rating      int     `json:"rating" binding:"required,min=1,max=5"`
	Title       *string `json:"title,omitempty"`
	Content     string  `json:"content" binding:"required"`
	ProofURL    *string `json:"proof_url,omitempty"`
	ProofRemark *string `json:"proof_remark,omitempty"`
}

// UserReviews groups one user's chains by business for profile views
type UserReviews struct {
	BusinessID   uuid.UUID `json:"business_id"`
	BusinessName string    `json:"business_name"`
	Chain        Chain     `json:"chain"`
}

const reviewColumns = `id, user_id, business_id, rating, title, content, user_badge,
	parent_review_id, update_number, is_update, proof_status, proof_url,
	proof_remark, proof_verified_by, proof_verified_at, proof_rejection_reason,
	is_verified, custom_verification_tag, upvotes, downvotes, created_at, updated_at`

func scanReview(row pgx.Row) (*models.Review, error) {
	var r models.Review
	err := row.Scan(
		&r.ID, &r.UserID, &r.BusinessID, &r.Rating, &r.Title, &r.Content,
		&r.UserBadge, &r.ParentReviewID, &r.UpdateNumber, &r.IsUpdate,
		&r.ProofStatus, &r.ProofURL, &r.ProofRemark, &r.ProofVerifiedBy,
		&r.ProofVerifiedAt, &r.ProofRejectionReason, &r.IsVerified,
		&r.CustomVerificationTag, &r.Upvotes, &r.Downvotes,
		&r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func validateSubmission(req *SubmitReviewRequest) error {
	if req.Rating < 1 || req.Rating > 5 {
		return ErrInvalidRating
	}
	if strings.TrimSpace(req.Content) == "" {
		return ErrEmptyContent
	}
	return nil
}

// proofStatusFor returns the initial proof state for a submission
func proofStatusFor(req *SubmitReviewRequest) models.ProofStatus {
	if req.ProofURL != nil && *req.ProofURL != "" {
		return models.ProofStatusPending
	}
	return models.ProofStatusNone
}

// CreateOriginal creates the first review in a (user, business) chain.
// Returns ErrDuplicateOriginal when a chain already exists; the caller must
// use the update path instead.
func (s *Service) CreateOriginal(ctx context.Context, userID, businessID uuid.UUID, req *SubmitReviewRequest) (*models.Review, error) {
	if err := validateSubmission(req); err != nil {
		return nil, err
	}

	if err := s.checkBusinessActive(ctx, businessID); err != nil {
		return nil, err
	}

	badgeSnapshot, err := s.badgeSnapshotFor(ctx, userID)
	if err != nil {
		return nil, err
	}

	created, err := scanReview(s.db.QueryRow(ctx, `
		INSERT INTO reviews (
			user_id, business_id, rating, title, content, user_badge,
			parent_review_id, update_number, is_update, proof_status,
			proof_url, proof_remark
		) VALUES ($1, $2, $3, $4, $5, $6, NULL, 0, FALSE, $7, $8, $9)
		RETURNING `+reviewColumns,
		userID, businessID, req.Rating, req.Title, req.Content, badgeSnapshot,
		proofStatusFor(req), req.ProofURL, req.ProofRemark,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == constraintOneOriginal {
			return nil, ErrDuplicateOriginal
		}
		return nil, fmt.Errorf("failed to create review: %w", err)
	}

	monitoring.RecordReviewCreated(false)
	logging.LogReviewCreated(created.ID.String(), userID.String(), businessID.String(), false, 0)
	s.triggerRecompute(ctx, businessID)
	return created, nil
}

// CreateUpdate appends a revision to an existing chain. The update number
// is assigned as max+1 inside a transaction; a concurrent writer assigning
// the same number trips the (parent_review_id, update_number) unique
// constraint and the assignment is retried up to maxUpdateRetries times.
func (s *Service) CreateUpdate(ctx context.Context, userID, businessID uuid.UUID, req *SubmitReviewRequest) (*models.Review, error) {
	if err := validateSubmission(req); err != nil {
		return nil, err
	}

	if err := s.checkBusinessActive(ctx, businessID); err != nil {
		return nil, err
	}

	badgeSnapshot, err := s.badgeSnapshotFor(ctx, userID)
	if err != nil {
		return nil, err
	}

	var created *models.Review
	for attempt := 0; attempt < maxUpdateRetries; attempt++ {
		created, err = s.insertUpdate(ctx, userID, businessID, badgeSnapshot, req)
		if err == nil {
			break
		}
		if !errors.Is(err, ErrUpdateNumberConflict) {
			return nil, err
		}
		monitoring.RecordUpdateNumberConflict()
	}
	if err != nil {
		return nil, err
	}

	monitoring.RecordReviewCreated(true)
	logging.LogReviewCreated(created.ID.String(), userID.String(), businessID.String(), true, created.UpdateNumber)
	s.triggerRecompute(ctx, businessID)
	return created, nil
}

// insertUpdate performs one transactional max+1 assignment and insert
func (s *Service) insertUpdate(ctx context.Context, userID, businessID uuid.UUID, badgeSnapshot string, req *SubmitReviewRequest) (*models.Review, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var originalID uuid.UUID
	err = tx.QueryRow(ctx, `
		SELECT id FROM reviews
		WHERE user_id = $1 AND business_id = $2 AND parent_review_id IS NULL
	`, userID, businessID).Scan(&originalID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoOriginal
		}
		return nil, fmt.Errorf("failed to find original review: %w", err)
	}

	var nextNumber int
	err = tx.QueryRow(ctx, `
		SELECT COALESCE(MAX(update_number), 0) + 1 FROM reviews
		WHERE parent_review_id = $1
	`, originalID).Scan(&nextNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to compute update number: %w", err)
	}

	created, err := scanReview(tx.QueryRow(ctx, `
		INSERT INTO reviews (
			user_id, business_id, rating, title, content, user_badge,
			parent_review_id, update_number, is_update, proof_status,
			proof_url, proof_remark
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, TRUE, $9, $10, $11)
		RETURNING `+reviewColumns,
		userID, businessID, req.Rating, req.Title, req.Content, badgeSnapshot,
		originalID, nextNumber, proofStatusFor(req), req.ProofURL, req.ProofRemark,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == constraintUpdateNumber {
			return nil, ErrUpdateNumberConflict
		}
		return nil, fmt.Errorf("failed to create update review: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return created, nil
}

// GetByID retrieves a single review
func (s *Service) GetByID(ctx context.Context, reviewID uuid.UUID) (*models.Review, error) {
	r, err := scanReview(s.db.QueryRow(ctx, `
		SELECT `+reviewColumns+` FROM reviews WHERE id = $1
	`, reviewID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrReviewNotFound
		}
		return nil, fmt.Errorf("failed to get review: %w", err)
	}
	return r, nil
}

// GetChain retrieves one user's review chain for one business. The original
// is nil when the user has never reviewed the business.
func (s *Service) GetChain(ctx context.Context, userID, businessID uuid.UUID) (*Chain, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+reviewColumns+` FROM reviews
		WHERE user_id = $1 AND business_id = $2
		ORDER BY update_number ASC
	`, userID, businessID)
	if err != nil {
		return nil, fmt.Errorf("failed to query chain: %w", err)
	}
	defer rows.Close()

	chain := &Chain{}
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		if r.IsOriginal() {
			chain.Original = r
		} else {
			chain.Updates = append(chain.Updates, *r)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate chain: %w", err)
	}

	sortByUpdateNumber(chain.Updates)
	return chain, nil
}

// ListForBusiness returns the latest review of every chain on a business,
// newest chains first. This is the set directory pages render.
func (s *Service) ListForBusiness(ctx context.Context, businessID uuid.UUID) ([]models.Review, error) {
	rows, err := s.db.Query(ctx, `
		SELECT DISTINCT ON (user_id) `+reviewColumns+` FROM reviews
		WHERE business_id = $1
		ORDER BY user_id, update_number DESC
	`, businessID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	defer rows.Close()

	var reviews []models.Review
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		reviews = append(reviews, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reviews: %w", err)
	}
	return reviews, nil
}

// ListUserReviews returns all of a user's chains grouped by business.
// Updates are ordered by created_at for display; latest-in-chain decisions
// elsewhere always use update_number.
func (s *Service) ListUserReviews(ctx context.Context, userID uuid.UUID) ([]UserReviews, error) {
	rows, err := s.db.Query(ctx, `
		SELECT r.id, r.user_id, r.business_id, r.rating, r.title, r.content,
			r.user_badge, r.parent_review_id, r.update_number, r.is_update,
			r.proof_status, r.proof_url, r.proof_remark, r.proof_verified_by,
			r.proof_verified_at, r.proof_rejection_reason, r.is_verified,
			r.custom_verification_tag, r.upvotes, r.downvotes, r.created_at,
			r.updated_at, b.name
		FROM reviews r
		JOIN businesses b ON b.id = r.business_id
		WHERE r.user_id = $1
		ORDER BY r.business_id, r.update_number ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user reviews: %w", err)
	}
	defer rows.Close()

	grouped := make(map[uuid.UUID]*UserReviews)
	var order []uuid.UUID
	for rows.Next() {
		var r models.Review
		var businessName string
		err := rows.Scan(
			&r.ID, &r.UserID, &r.BusinessID, &r.Rating, &r.Title, &r.Content,
			&r.UserBadge, &r.ParentReviewID, &r.UpdateNumber, &r.IsUpdate,
			&r.ProofStatus, &r.ProofURL, &r.ProofRemark, &r.ProofVerifiedBy,
			&r.ProofVerifiedAt, &r.ProofRejectionReason, &r.IsVerified,
			&r.CustomVerificationTag, &r.Upvotes, &r.Downvotes,
			&r.CreatedAt, &r.UpdatedAt, &businessName,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}

		group, ok := grouped[r.BusinessID]
		if !ok {
			group = &UserReviews{BusinessID: r.BusinessID, BusinessName: businessName}
			grouped[r.BusinessID] = group
			order = append(order, r.BusinessID)
		}
		if r.IsOriginal() {
			group.Chain.Original = &r
		} else {
			group.Chain.Updates = append(group.Chain.Updates, r)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate user reviews: %w", err)
	}

	result := make([]UserReviews, 0, len(order))
	for _, businessID := range order {
		group := grouped[businessID]
		sortByCreatedAt(group.Chain.Updates)
		result = append(result, *group)
	}
	return result, nil
}

// Vote increments a review's upvote or downvote counter
func (s *Service) Vote(ctx context.Context, reviewID uuid.UUID, up bool) (*models.Review, error) {
	column := "downvotes"
	if up {
		column = "upvotes"
	}

	r, err := scanReview(s.db.QueryRow(ctx, `
		UPDATE reviews SET `+column+` = `+column+` + 1, updated_at = NOW()
		WHERE id = $1
		RETURNING `+reviewColumns,
		reviewID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrReviewNotFound
		}
		return nil, fmt.Errorf("failed to record vote: %w", err)
	}
	return r, nil
}

// checkBusinessActive rejects submissions against inactive businesses
func (s *Service) checkBusinessActive(ctx context.Context, businessID uuid.UUID) error {
	var status models.BusinessStatus
	err := s.db.QueryRow(ctx, `SELECT status FROM businesses WHERE id = $1`, businessID).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrBusinessNotFound
		}
		return fmt.Errorf("failed to check business status: %w", err)
	}
	if status != models.BusinessStatusActive {
		return ErrBusinessInactive
	}
	return nil
}

// badgeSnapshotFor returns the static badge snapshot to store on a new
// review, derived from the submitter's current identity status.
func (s *Service) badgeSnapshotFor(ctx context.Context, userID uuid.UUID) (string, error) {
	var status models.IdentityStatus
	err := s.db.QueryRow(ctx, `SELECT identity_status FROM users WHERE id = $1`, userID).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("failed to snapshot badge: user %s not found", userID)
		}
		return "", fmt.Errorf("failed to snapshot badge: %w", err)
	}
	if status == models.IdentityVerified {
		return models.BadgeVerifiedUser, nil
	}
	return models.BadgeUnverifiedUser, nil
}

// triggerRecompute refreshes the business's derived stats. The review write
// has already committed; a recompute failure only defers the refresh to the
// next trigger, so it is logged and swallowed.
func (s *Service) triggerRecompute(ctx context.Context, businessID uuid.UUID) {
	if s.stats == nil {
		return
	}
	if err := s.stats.Recompute(ctx, businessID); err != nil {
		log.Error().
			Err(err).
			Str("business_id", businessID.String()).
			Msg("Stats recompute failed, deferring to next trigger")
	}
}
