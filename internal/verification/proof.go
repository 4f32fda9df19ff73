package verification

import "github.com/trustrail/trustrail/internal/models"

// Proof lifecycle transitions. Submission is only legal before any decision
// exists; approve and reject move out of pending, and either decision may
// later be corrected by re-review into the other.

// CanSubmitProof reports whether proof may be attached to a review in the
// given state.
func CanSubmitProof(status models.ProofStatus) bool {
	return status == models.ProofStatusNone
}

// CanApproveProof reports whether an admin may approve proof in the given
// state. Rejected is allowed as a re-review correction.
func CanApproveProof(status models.ProofStatus) bool {
	return status == models.ProofStatusPending || status == models.ProofStatusRejected
}

// CanRejectProof reports whether an admin may reject proof in the given
// state. Approved is allowed as a re-review correction.
func CanRejectProof(status models.ProofStatus) bool {
	return status == models.ProofStatusPending || status == models.ProofStatusApproved
}
