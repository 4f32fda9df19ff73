// Package badge derives the user-facing trust badge for a review.
//
// Resolution is pure and deterministic: the same review and identity state
// always produce the same badge. The persisted user_badge column is only a
// static fallback; once proof has been submitted, proof state takes over.
package badge

import (
	"github.com/trustrail/trustrail/internal/models"
)

// Category classifies a badge for display purposes
type Category string

const (
	CategoryVerifiedStrong Category = "verified-strong"
	CategoryVerifiedBasic  Category = "verified-basic"
	CategoryPending        Category = "pending"
	CategoryRejected       Category = "rejected"
	CategoryUnverified     Category = "unverified"
)

// Badge labels derived from proof state
const (
	LabelProofPending  = "Proof Submitted - Under Verification"
	LabelProofRejected = "Proof Rejected - Unverified User"
)

// Badge is the trust label shown alongside a review
type Badge struct {
	Label    string   `json:"label"`
	Category Category `json:"category"`
}

// Resolve maps a review and its owner's identity-verification status to the
// badge shown to end users.
//
// The precedence is load-bearing: proof state always overrides the static
// badge snapshot once proof has been submitted, and a custom admin tag
// overrides the generic badge only after approval, never before.
func Resolve(review *models.Review, identityVerified bool) Badge {
	if !review.ProofProvided() {
		return snapshotBadge(review, identityVerified)
	}

	switch review.ProofStatus {
	case models.ProofStatusPending:
		return Badge{Label: LabelProofPending, Category: CategoryPending}
	case models.ProofStatusApproved:
		label := snapshotLabel(review, identityVerified)
		if review.CustomVerificationTag != nil && *review.CustomVerificationTag != "" {
			label = *review.CustomVerificationTag
		}
		return Badge{Label: label, Category: CategoryVerifiedStrong}
	default:
		return Badge{Label: LabelProofRejected, Category: CategoryRejected}
	}
}

// snapshotBadge resolves the no-proof branch from the stored badge snapshot
func snapshotBadge(review *models.Review, identityVerified bool) Badge {
	label := snapshotLabel(review, identityVerified)
	if label == models.BadgeUnverifiedUser {
		return Badge{Label: label, Category: CategoryUnverified}
	}
	return Badge{Label: label, Category: CategoryVerifiedBasic}
}

// snapshotLabel returns the stored user_badge snapshot, falling back on the
// owner's current identity status when the snapshot is missing.
func snapshotLabel(review *models.Review, identityVerified bool) string {
	if review.UserBadge != "" {
		return review.UserBadge
	}
	if identityVerified {
		return models.BadgeVerifiedUser
	}
	return models.BadgeUnverifiedUser
}
