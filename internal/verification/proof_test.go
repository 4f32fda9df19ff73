package verification

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/trustrail/trustrail/internal/models"
)

func TestProofTransitions(t *testing.T) {
	// Submission is only possible before any proof exists
	assert.True(t, CanSubmitProof(models.ProofStatusNone))
	assert.False(t, CanSubmitProof(models.ProofStatusPending))
	assert.False(t, CanSubmitProof(models.ProofStatusApproved))
	assert.False(t, CanSubmitProof(models.ProofStatusRejected))

	// A pending proof can be decided either way
	assert.True(t, CanApproveProof(models.ProofStatusPending))
	assert.True(t, CanRejectProof(models.ProofStatusPending))

	// A decided proof can be corrected to the opposite decision only
	assert.True(t, CanApproveProof(models.ProofStatusRejected))
	assert.False(t, CanApproveProof(models.ProofStatusApproved))
	assert.True(t, CanRejectProof(models.ProofStatusApproved))
	assert.False(t, CanRejectProof(models.ProofStatusRejected))

	// Nothing can be decided before submission
	assert.False(t, CanApproveProof(models.ProofStatusNone))
	assert.False(t, CanRejectProof(models.ProofStatusNone))
}

// TestProperty_DecisionsRequireSubmission verifies that *for any* proof
// state, a decision is only reachable after submission, and no state allows
// repeating the decision already in place.
func TestProperty_DecisionsRequireSubmission(t *testing.T) {
	states := []models.ProofStatus{
		models.ProofStatusNone,
		models.ProofStatusPending,
		models.ProofStatusApproved,
		models.ProofStatusRejected,
	}

	rapid.Check(t, func(rt *rapid.T) {
		status := rapid.SampledFrom(states).Draw(rt, "status")

		if status == models.ProofStatusNone && (CanApproveProof(status) || CanRejectProof(status)) {
			t.Fatalf("PROPERTY VIOLATION: decision allowed without submission")
		}
		if CanApproveProof(status) && status == models.ProofStatusApproved {
			t.Fatalf("PROPERTY VIOLATION: re-approval of an approved proof allowed")
		}
		if CanRejectProof(status) && status == models.ProofStatusRejected {
			t.Fatalf("PROPERTY VIOLATION: re-rejection of a rejected proof allowed")
		}
		if CanSubmitProof(status) != (status == models.ProofStatusNone) {
			t.Fatalf("PROPERTY VIOLATION: submission allowed from %s", status)
		}
	})
}
