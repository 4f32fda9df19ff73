package models

import (
	"time"

	"github.com/google/uuid"
)

// ProofStatus represents the proof-of-experience verification state of a
// review. An explicit enum rather than a nullable boolean, so "no proof"
// and "pending decision" stay distinct states.
type ProofStatus string

const (
	ProofStatusNone     ProofStatus = "none"
	ProofStatusPending  ProofStatus = "pending"
	ProofStatusApproved ProofStatus = "approved"
	ProofStatusRejected ProofStatus = "rejected"
)

// Review represents a single rating + written review of a business.
//
// Reviews form chains: the first review a user writes for a business is the
// original (ParentReviewID nil, UpdateNumber 0); every later revision is an
// update pointing at the original with a strictly increasing UpdateNumber.
type Review struct {
	ID                    uuid.UUID   `json:"id" db:"id"`
	UserID                uuid.UUID   `json:"user_id" db:"user_id"`
	BusinessID            uuid.UUID   `json:"business_id" db:"business_id"`
	Rating                int         `json:"rating" db:"rating"`
	Title                 *string     `json:"title,omitempty" db:"title"`
	Content               string      `json:"content" db:"content"`
	UserBadge             string      `json:"user_badge" db:"user_badge"`
	ParentReviewID        *uuid.UUID  `json:"parent_review_id,omitempty" db:"parent_review_id"`
	UpdateNumber          int         `json:"update_number" db:"update_number"`
	IsUpdate              bool        `json:"is_update" db:"is_update"`
	ProofStatus           ProofStatus `json:"proof_status" db:"proof_status"`
	ProofURL              *string     `json:"proof_url,omitempty" db:"proof_url"`
	ProofRemark           *string     `json:"proof_remark,omitempty" db:"proof_remark"`
	ProofVerifiedBy       *uuid.UUID  `json:"proof_verified_by,omitempty" db:"proof_verified_by"`
	ProofVerifiedAt       *time.Time  `json:"proof_verified_at,omitempty" db:"proof_verified_at"`
	ProofRejectionReason  *string     `json:"proof_rejection_reason,omitempty" db:"proof_rejection_reason"`
	IsVerified            bool        `json:"is_verified" db:"is_verified"`
	CustomVerificationTag *string     `json:"custom_verification_tag,omitempty" db:"custom_verification_tag"`
	Upvotes               int         `json:"upvotes" db:"upvotes"`
	Downvotes             int         `json:"downvotes" db:"downvotes"`
	CreatedAt             time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt             time.Time   `json:"updated_at" db:"updated_at"`
}

// IsOriginal reports whether this review starts a chain
func (r *Review) IsOriginal() bool {
	return r.ParentReviewID == nil
}

// ProofProvided reports whether the user attached proof to this review
func (r *Review) ProofProvided() bool {
	return r.ProofStatus != ProofStatusNone
}

// Known user badge snapshots stored on reviews at submission time
const (
	BadgeVerifiedGraduate = "Verified Graduate"
	BadgeVerifiedEmployee = "Verified Employee"
	BadgeVerifiedUser     = "Verified User"
	BadgeUnverifiedUser   = "Unverified User"
)
