// Package verification governs the two independent admin-driven
// verification lifecycles: proof-of-experience per review and identity per
// user. These operations are the only mutation path for the proof_* and
// identity columns.
package verification

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/trustrail/trustrail/internal/logging"
	"github.com/trustrail/trustrail/internal/models"
	"github.com/trustrail/trustrail/internal/monitoring"
)

// Service errors
var (
	ErrReviewNotFound        = errors.New("review not found")
	ErrUserNotFound          = errors.New("user not found")
	ErrProofAlreadySubmitted = errors.New("proof has already been submitted for this review")
	ErrProofNotSubmitted     = errors.New("no proof has been submitted for this review")
	ErrIllegalTransition     = errors.New("illegal proof state transition")
	ErrMissingReason         = errors.New("a rejection reason is required")
)

// Service handles verification state transitions
type Service struct {
	db *pgxpool.Pool
}

// NewService creates a new verification service
func NewService(db *pgxpool.Pool) *Service {
	return &Service{db: db}
}

// SubmitProof attaches proof to a review that has none yet, putting it into
// the pending state for admin decision.
func (s *Service) SubmitProof(ctx context.Context, reviewID uuid.UUID, proofURL string, remark *string) error {
	status, err := s.proofStatus(ctx, reviewID)
	if err != nil {
		return err
	}
	if !CanSubmitProof(status) {
		return ErrProofAlreadySubmitted
	}

	_, err = s.db.Exec(ctx, `
		UPDATE reviews SET
			proof_status = $1, proof_url = $2, proof_remark = $3, updated_at = NOW()
		WHERE id = $4
	`, models.ProofStatusPending, proofURL, remark, reviewID)
	if err != nil {
		return fmt.Errorf("failed to submit proof: %w", err)
	}

	logging.LogProofEvent(reviewID.String(), "", "submitted")
	return nil
}

// ApproveProof marks a review's proof as approved. Re-review from rejected
// is allowed as a correction; the decision stamp is overwritten and any
// rejection reason cleared.
func (s *Service) ApproveProof(ctx context.Context, reviewID, adminID uuid.UUID) error {
	status, err := s.proofStatus(ctx, reviewID)
	if err != nil {
		return err
	}
	if status == models.ProofStatusNone {
		return ErrProofNotSubmitted
	}
	if !CanApproveProof(status) {
		return fmt.Errorf("%w: cannot approve from %s", ErrIllegalTransition, status)
	}

	_, err = s.db.Exec(ctx, `
		UPDATE reviews SET
			proof_status = $1, proof_verified_by = $2, proof_verified_at = NOW(),
			proof_rejection_reason = NULL, updated_at = NOW()
		WHERE id = $3
	`, models.ProofStatusApproved, adminID, reviewID)
	if err != nil {
		return fmt.Errorf("failed to approve proof: %w", err)
	}

	monitoring.RecordProofDecision("approved")
	logging.LogProofEvent(reviewID.String(), adminID.String(), "approved")
	return nil
}

// RejectProof marks a review's proof as rejected with a mandatory reason.
// Re-review from approved is allowed as a correction.
func (s *Service) RejectProof(ctx context.Context, reviewID, adminID uuid.UUID, reason string) error {
	if strings.TrimSpace(reason) == "" {
		return ErrMissingReason
	}

	status, err := s.proofStatus(ctx, reviewID)
	if err != nil {
		return err
	}
	if status == models.ProofStatusNone {
		return ErrProofNotSubmitted
	}
	if !CanRejectProof(status) {
		return fmt.Errorf("%w: cannot reject from %s", ErrIllegalTransition, status)
	}

	_, err = s.db.Exec(ctx, `
		UPDATE reviews SET
			proof_status = $1, proof_verified_by = $2, proof_verified_at = NOW(),
			proof_rejection_reason = $3, updated_at = NOW()
		WHERE id = $4
	`, models.ProofStatusRejected, adminID, reason, reviewID)
	if err != nil {
		return fmt.Errorf("failed to reject proof: %w", err)
	}

	monitoring.RecordProofDecision("rejected")
	logging.LogProofEvent(reviewID.String(), adminID.String(), "rejected")
	return nil
}

// ApproveIdentity marks a user's identity as verified
func (s *Service) ApproveIdentity(ctx context.Context, userID, adminID uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE users SET identity_status = $1, updated_at = NOW()
		WHERE id = $2
	`, models.IdentityVerified, userID)
	if err != nil {
		return fmt.Errorf("failed to approve identity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	monitoring.RecordIdentityDecision("approved")
	logging.LogIdentityEvent(userID.String(), adminID.String(), "approved")
	return nil
}

// RejectIdentity marks a user's identity as unverified and clears every
// identity-input field. The reset is deliberately destructive: the user
// must resubmit their documents from scratch.
func (s *Service) RejectIdentity(ctx context.Context, userID, adminID uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE users SET
			identity_status = $1, legal_name = NULL, document_number = NULL,
			verified_mobile = NULL, updated_at = NOW()
		WHERE id = $2
	`, models.IdentityUnverified, userID)
	if err != nil {
		return fmt.Errorf("failed to reject identity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	monitoring.RecordIdentityDecision("rejected")
	logging.LogIdentityEvent(userID.String(), adminID.String(), "rejected")
	return nil
}

// SubmitIdentity records a user's identity-input fields for review.
// Identity stays unverified until an admin approves.
func (s *Service) SubmitIdentity(ctx context.Context, userID uuid.UUID, legalName, documentNumber, mobile string) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE users SET
			legal_name = $1, document_number = $2, verified_mobile = $3, updated_at = NOW()
		WHERE id = $4
	`, legalName, documentNumber, mobile, userID)
	if err != nil {
		return fmt.Errorf("failed to submit identity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// VerifyReview is the admin "verify & tag" action: it marks the review as a
// verified review and optionally assigns a custom verification tag. The tag
// only surfaces in badges once proof is approved.
func (s *Service) VerifyReview(ctx context.Context, reviewID, adminID uuid.UUID, tag *string) error {
	res, err := s.db.Exec(ctx, `
		UPDATE reviews SET
			is_verified = TRUE, custom_verification_tag = $1, updated_at = NOW()
		WHERE id = $2
	`, tag, reviewID)
	if err != nil {
		return fmt.Errorf("failed to verify review: %w", err)
	}
	if res.RowsAffected() == 0 {
		return ErrReviewNotFound
	}

	logging.LogProofEvent(reviewID.String(), adminID.String(), "tagged")
	return nil
}

// UnverifyReview clears the verified-review flag and custom tag
func (s *Service) UnverifyReview(ctx context.Context, reviewID, adminID uuid.UUID) error {
	res, err := s.db.Exec(ctx, `
		UPDATE reviews SET
			is_verified = FALSE, custom_verification_tag = NULL, updated_at = NOW()
		WHERE id = $1
	`, reviewID)
	if err != nil {
		return fmt.Errorf("failed to unverify review: %w", err)
	}
	if res.RowsAffected() == 0 {
		return ErrReviewNotFound
	}

	logging.LogProofEvent(reviewID.String(), adminID.String(), "untagged")
	return nil
}

// PendingProofs lists reviews awaiting a proof decision, oldest first, for
// the admin verification queue.
func (s *Service) PendingProofs(ctx context.Context, limit int) ([]models.Review, error) {
	if limit < 1 || limit > 100 {
		limit = 50
	}

	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, business_id, rating, title, content, user_badge,
			parent_review_id, update_number, is_update, proof_status, proof_url,
			proof_remark, proof_verified_by, proof_verified_at,
			proof_rejection_reason, is_verified, custom_verification_tag,
			upvotes, downvotes, created_at, updated_at
		FROM reviews
		WHERE proof_status = $1
		ORDER BY created_at ASC
		LIMIT $2
	`, models.ProofStatusPending, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending proofs: %w", err)
	}
	defer rows.Close()

	var reviews []models.Review
	for rows.Next() {
		var r models.Review
		err := rows.Scan(
			&r.ID, &r.UserID, &r.BusinessID, &r.Rating, &r.Title, &r.Content,
			&r.UserBadge, &r.ParentReviewID, &r.UpdateNumber, &r.IsUpdate,
			&r.ProofStatus, &r.ProofURL, &r.ProofRemark, &r.ProofVerifiedBy,
			&r.ProofVerifiedAt, &r.ProofRejectionReason, &r.IsVerified,
			&r.CustomVerificationTag, &r.Upvotes, &r.Downvotes,
			&r.CreatedAt, &r.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		reviews = append(reviews, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate pending proofs: %w", err)
	}
	return reviews, nil
}

func (s *Service) proofStatus(ctx context.Context, reviewID uuid.UUID) (models.ProofStatus, error) {
	var status models.ProofStatus
	err := s.db.QueryRow(ctx, `SELECT proof_status FROM reviews WHERE id = $1`, reviewID).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrReviewNotFound
		}
		return "", fmt.Errorf("failed to get proof status: %w", err)
	}
	return status, nil
}
