package review

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/trustrail/trustrail/internal/models"
)

// BusinessReview is a directory-facing review row: the latest review of one
// chain together with the owner state badge resolution needs.
type BusinessReview struct {
	models.Review
	OwnerDisplayName      string `json:"owner_display_name"`
	OwnerIdentityVerified bool   `json:"owner_identity_verified"`
}

// ListForBusinessWithOwners returns the latest review of every chain on a
// business joined with each owner's display name and identity status, ready
// for badge resolution.
func (s *Service) ListForBusinessWithOwners(ctx context.Context, businessID uuid.UUID) ([]BusinessReview, error) {
	rows, err := s.db.Query(ctx, `
		SELECT DISTINCT ON (r.user_id) r.id, r.user_id, r.business_id, r.rating,
			r.title, r.content, r.user_badge, r.parent_review_id, r.update_number,
			r.is_update, r.proof_status, r.proof_url, r.proof_remark,
			r.proof_verified_by, r.proof_verified_at, r.proof_rejection_reason,
			r.is_verified, r.custom_verification_tag, r.upvotes, r.downvotes,
			r.created_at, r.updated_at,
			u.pseudonym, u.display_pref, u.legal_name, u.identity_status
		FROM reviews r
		JOIN users u ON u.id = r.user_id
		WHERE r.business_id = $1
		ORDER BY r.user_id, r.update_number DESC
	`, businessID)
	if err != nil {
		return nil, fmt.Errorf("failed to list business reviews: %w", err)
	}
	defer rows.Close()

	var reviews []BusinessReview
	for rows.Next() {
		var br BusinessReview
		var pseudonym, legalName *string
		var displayPref models.DisplayNamePreference
		var identityStatus models.IdentityStatus
		err := rows.Scan(
			&br.ID, &br.UserID, &br.BusinessID, &br.Rating, &br.Title, &br.Content,
			&br.UserBadge, &br.ParentReviewID, &br.UpdateNumber, &br.IsUpdate,
			&br.ProofStatus, &br.ProofURL, &br.ProofRemark, &br.ProofVerifiedBy,
			&br.ProofVerifiedAt, &br.ProofRejectionReason, &br.IsVerified,
			&br.CustomVerificationTag, &br.Upvotes, &br.Downvotes,
			&br.CreatedAt, &br.UpdatedAt,
			&pseudonym, &displayPref, &legalName, &identityStatus,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan business review: %w", err)
		}

		br.OwnerIdentityVerified = identityStatus == models.IdentityVerified
		br.OwnerDisplayName = displayName(displayPref, pseudonym, legalName)
		reviews = append(reviews, br)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate business reviews: %w", err)
	}
	return reviews, nil
}

// displayName applies the owner's display-name preference, falling back to
// an anonymous label when the preferred field was never set.
func displayName(pref models.DisplayNamePreference, pseudonym, legalName *string) string {
	if pref == models.DisplayFullName && legalName != nil && *legalName != "" {
		return *legalName
	}
	if pseudonym != nil && *pseudonym != "" {
		return *pseudonym
	}
	return "Anonymous"
}
