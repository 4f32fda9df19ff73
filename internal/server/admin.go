package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/trustrail/trustrail/internal/business"
	apierrors "github.com/trustrail/trustrail/internal/errors"
	"github.com/trustrail/trustrail/internal/middleware"
	"github.com/trustrail/trustrail/internal/models"
)

// handlePendingProofs returns the admin verification queue, oldest first
func (s *APIServer) handlePendingProofs(c *gin.Context) {
	limit := intQuery(c, "limit", 50)

	reviews, err := s.verifyService.PendingProofs(c.Request.Context(), limit)
	if err != nil {
		respondError(c, apierrors.ErrInternalServerError)
		return
	}

	c.JSON(http.StatusOK, gin.H{"reviews": reviews})
}

// handleApproveProof approves a review's proof
func (s *APIServer) handleApproveProof(c *gin.Context) {
	reviewID, ok := parseIDParam(c)
	if !ok {
		return
	}
	adminID := middleware.GetUserIDFromContext(c)
	if adminID == uuid.Nil {
		respondError(c, apierrors.ErrInvalidCredentialsError)
		return
	}

	if err := s.verifyService.ApproveProof(c.Request.Context(), reviewID, adminID); err != nil {
		respondVerificationError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Proof approved"})
}

// rejectProofRequest carries the mandatory rejection reason
type rejectProofRequest struct {
	Reason string `json:"reason"`
}

// handleRejectProof rejects a review's proof with a reason
func (s *APIServer) handleRejectProof(c *gin.Context) {
	reviewID, ok := parseIDParam(c)
	if !ok {
		return
	}
	adminID := middleware.GetUserIDFromContext(c)
	if adminID == uuid.Nil {
		respondError(c, apierrors.ErrInvalidCredentialsError)
		return
	}

	var req rejectProofRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apierrors.NewValidationError(err.Error()))
		return
	}

	if err := s.verifyService.RejectProof(c.Request.Context(), reviewID, adminID, req.Reason); err != nil {
		respondVerificationError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Proof rejected"})
}

// verifyReviewRequest carries the optional custom verification tag
type verifyReviewRequest struct {
	Tag *string `json:"tag,omitempty"`
}

// handleVerifyReview is the admin verify & tag action
func (s *APIServer) handleVerifyReview(c *gin.Context) {
	reviewID, ok := parseIDParam(c)
	if !ok {
		return
	}
	adminID := middleware.GetUserIDFromContext(c)
	if adminID == uuid.Nil {
		respondError(c, apierrors.ErrInvalidCredentialsError)
		return
	}

	var req verifyReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apierrors.NewValidationError(err.Error()))
		return
	}

	if err := s.verifyService.VerifyReview(c.Request.Context(), reviewID, adminID, req.Tag); err != nil {
		respondVerificationError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Review verified"})
}

// handleUnverifyReview clears the verified flag and custom tag
func (s *APIServer) handleUnverifyReview(c *gin.Context) {
	reviewID, ok := parseIDParam(c)
	if !ok {
		return
	}
	adminID := middleware.GetUserIDFromContext(c)
	if adminID == uuid.Nil {
		respondError(c, apierrors.ErrInvalidCredentialsError)
		return
	}

	if err := s.verifyService.UnverifyReview(c.Request.Context(), reviewID, adminID); err != nil {
		respondVerificationError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Review verification cleared"})
}

// handleApproveIdentity marks a user's identity as verified
func (s *APIServer) handleApproveIdentity(c *gin.Context) {
	userID, ok := parseIDParam(c)
	if !ok {
		return
	}
	adminID := middleware.GetUserIDFromContext(c)
	if adminID == uuid.Nil {
		respondError(c, apierrors.ErrInvalidCredentialsError)
		return
	}

	if err := s.verifyService.ApproveIdentity(c.Request.Context(), userID, adminID); err != nil {
		respondVerificationError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Identity approved"})
}

// handleRejectIdentity marks a user as unverified and clears their
// submitted identity fields.
func (s *APIServer) handleRejectIdentity(c *gin.Context) {
	userID, ok := parseIDParam(c)
	if !ok {
		return
	}
	adminID := middleware.GetUserIDFromContext(c)
	if adminID == uuid.Nil {
		respondError(c, apierrors.ErrInvalidCredentialsError)
		return
	}

	if err := s.verifyService.RejectIdentity(c.Request.Context(), userID, adminID); err != nil {
		respondVerificationError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Identity rejected and submitted fields cleared"})
}

// setStatusRequest carries a business status change
type setStatusRequest struct {
	Status models.BusinessStatus `json:"status" binding:"required,oneof=active inactive"`
}

// handleSetBusinessStatus activates or deactivates a listing
func (s *APIServer) handleSetBusinessStatus(c *gin.Context) {
	businessID, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req setStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apierrors.NewValidationError(err.Error()))
		return
	}

	b, err := s.businessService.SetStatus(c.Request.Context(), businessID, req.Status)
	if err != nil {
		if errors.Is(err, business.ErrBusinessNotFound) {
			respondError(c, apierrors.ErrBusinessNotFoundError)
		} else {
			respondError(c, apierrors.ErrInternalServerError)
		}
		return
	}

	c.JSON(http.StatusOK, b)
}

// setTrustLevelRequest carries a trust tier change
type setTrustLevelRequest struct {
	TrustLevel models.TrustLevel `json:"trust_level" binding:"required"`
}

// handleSetTrustLevel assigns the admin-controlled trust tier
func (s *APIServer) handleSetTrustLevel(c *gin.Context) {
	businessID, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req setTrustLevelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apierrors.NewValidationError(err.Error()))
		return
	}

	b, err := s.businessService.SetTrustLevel(c.Request.Context(), businessID, req.TrustLevel)
	if err != nil {
		switch {
		case errors.Is(err, business.ErrBusinessNotFound):
			respondError(c, apierrors.ErrBusinessNotFoundError)
		case errors.Is(err, business.ErrInvalidTrustLevel):
			respondError(c, apierrors.NewValidationError("trust_level must be basic, verified or trusted_partner"))
		default:
			respondError(c, apierrors.ErrInternalServerError)
		}
		return
	}

	c.JSON(http.StatusOK, b)
}

// handleReconcileStats triggers a full aggregate reconciliation pass
func (s *APIServer) handleReconcileStats(c *gin.Context) {
	if err := s.statsService.ReconcileAll(c.Request.Context()); err != nil {
		respondError(c, apierrors.ErrInternalServerError)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Stats reconciliation completed"})
}
