package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/trustrail/trustrail/internal/badge"
	"github.com/trustrail/trustrail/internal/business"
	"github.com/trustrail/trustrail/internal/cache"
	"github.com/trustrail/trustrail/internal/config"
	apierrors "github.com/trustrail/trustrail/internal/errors"
	"github.com/trustrail/trustrail/internal/logging"
	"github.com/trustrail/trustrail/internal/middleware"
	"github.com/trustrail/trustrail/internal/models"
	"github.com/trustrail/trustrail/internal/monitoring"
	"github.com/trustrail/trustrail/internal/review"
	"github.com/trustrail/trustrail/internal/stats"
	"github.com/trustrail/trustrail/internal/verification"
)

// APIServer represents the main API server
type APIServer struct {
	config           *config.Config
	router           *gin.Engine
	db               *pgxpool.Pool
	reviewService    *review.Service
	verifyService    *verification.Service
	statsService     *stats.Service
	businessService  *business.Service
	jwtAuthenticator *middleware.JWTAuthenticator
}

// NewAPIServer creates a new API server instance
func NewAPIServer(cfg *config.Config, db *pgxpool.Pool, redisCache *cache.Redis) *APIServer {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.CORS(cfg.CORS.AllowedOrigins))
	router.Use(monitoring.MetricsMiddleware())
	router.Use(logging.RequestLogger())

	statsService := stats.NewService(db, redisCache)

	srv := &APIServer{
		config:           cfg,
		router:           router,
		db:               db,
		reviewService:    review.NewService(db, statsService),
		verifyService:    verification.NewService(db),
		statsService:     statsService,
		businessService:  business.NewService(db, statsService),
		jwtAuthenticator: middleware.NewJWTAuthenticator(&cfg.JWT),
	}

	srv.setupRoutes()
	return srv
}

// Router returns the gin router
func (s *APIServer) Router() http.Handler {
	return s.router
}

// setupRoutes configures all API routes
func (s *APIServer) setupRoutes() {
	s.router.GET("/health", s.healthCheck)

	v1 := s.router.Group("/api/v1")
	{
		// Directory routes (public)
		businesses := v1.Group("/businesses")
		{
			businesses.GET("/", s.handleListBusinesses)
			businesses.GET("/:id", s.handleGetBusiness)
			businesses.GET("/:id/reviews", s.handleListBusinessReviews)
			businesses.GET("/:id/stats", s.handleGetBusinessStats)
		}

		// Member routes (any authenticated user)
		authed := v1.Group("")
		authed.Use(s.jwtAuthenticator.JWTAuth())
		{
			authed.POST("/businesses/:id/reviews", s.handleCreateOriginalReview)
			authed.POST("/businesses/:id/reviews/updates", s.handleCreateUpdateReview)
			authed.GET("/businesses/:id/reviews/mine", s.handleGetOwnChain)
			authed.GET("/me/reviews", s.handleListOwnReviews)
			authed.PUT("/me/identity", s.handleSubmitIdentity)
			authed.POST("/reviews/:id/proof", s.handleSubmitProof)
			authed.POST("/reviews/:id/vote", s.handleVoteReview)
		}

		// Business-owner routes
		owners := v1.Group("")
		owners.Use(s.jwtAuthenticator.JWTAuth())
		owners.Use(middleware.RequireRole(models.UserRoleBusiness, models.UserRoleAdmin))
		{
			owners.POST("/businesses", s.handleRegisterBusiness)
			owners.POST("/businesses/:id/claim", s.handleClaimBusiness)
		}

		// Admin routes
		admin := v1.Group("/admin")
		admin.Use(s.jwtAuthenticator.JWTAuth())
		admin.Use(middleware.RequireAdmin())
		{
			admin.GET("/verification/proofs", s.handlePendingProofs)
			admin.POST("/reviews/:id/proof/approve", s.handleApproveProof)
			admin.POST("/reviews/:id/proof/reject", s.handleRejectProof)
			admin.POST("/reviews/:id/verify", s.handleVerifyReview)
			admin.POST("/reviews/:id/unverify", s.handleUnverifyReview)
			admin.POST("/users/:id/identity/approve", s.handleApproveIdentity)
			admin.POST("/users/:id/identity/reject", s.handleRejectIdentity)
			admin.PUT("/businesses/:id/status", s.handleSetBusinessStatus)
			admin.PUT("/businesses/:id/trust-level", s.handleSetTrustLevel)
			admin.POST("/stats/reconcile", s.handleReconcileStats)
		}
	}
}

// Health check handler
func (s *APIServer) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "api",
	})
}

// reviewView is a review decorated with its resolved trust badge
type reviewView struct {
	review.BusinessReview
	Badge badge.Badge `json:"badge"`
}

// handleListBusinessReviews returns the latest review of every chain on a
// business, each with its resolved badge.
func (s *APIServer) handleListBusinessReviews(c *gin.Context) {
	businessID, ok := parseIDParam(c)
	if !ok {
		return
	}

	reviews, err := s.reviewService.ListForBusinessWithOwners(c.Request.Context(), businessID)
	if err != nil {
		respondError(c, apierrors.ErrInternalServerError)
		return
	}

	views := make([]reviewView, 0, len(reviews))
	for _, r := range reviews {
		views = append(views, reviewView{
			BusinessReview: r,
			Badge:          badge.Resolve(&r.Review, r.OwnerIdentityVerified),
		})
	}

	c.JSON(http.StatusOK, gin.H{"reviews": views})
}

// handleCreateOriginalReview handles a user's first review of a business
func (s *APIServer) handleCreateOriginalReview(c *gin.Context) {
	businessID, ok := parseIDParam(c)
	if !ok {
		return
	}
	userID := middleware.GetUserIDFromContext(c)
	if userID == uuid.Nil {
		respondError(c, apierrors.ErrInvalidCredentialsError)
		return
	}

	var req review.SubmitReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apierrors.NewValidationError(err.Error()))
		return
	}

	created, err := s.reviewService.CreateOriginal(c.Request.Context(), userID, businessID, &req)
	if err != nil {
		respondReviewError(c, err)
		return
	}

	c.JSON(http.StatusCreated, created)
}

// handleCreateUpdateReview handles a revision to an existing chain
func (s *APIServer) handleCreateUpdateReview(c *gin.Context) {
	businessID, ok := parseIDParam(c)
	if !ok {
		return
	}
	userID := middleware.GetUserIDFromContext(c)
	if userID == uuid.Nil {
		respondError(c, apierrors.ErrInvalidCredentialsError)
		return
	}

	var req review.SubmitReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apierrors.NewValidationError(err.Error()))
		return
	}

	created, err := s.reviewService.CreateUpdate(c.Request.Context(), userID, businessID, &req)
	if err != nil {
		respondReviewError(c, err)
		return
	}

	c.JSON(http.StatusCreated, created)
}

// handleGetOwnChain returns the caller's full review chain for a business
func (s *APIServer) handleGetOwnChain(c *gin.Context) {
	businessID, ok := parseIDParam(c)
	if !ok {
		return
	}
	userID := middleware.GetUserIDFromContext(c)
	if userID == uuid.Nil {
		respondError(c, apierrors.ErrInvalidCredentialsError)
		return
	}

	chain, err := s.reviewService.GetChain(c.Request.Context(), userID, businessID)
	if err != nil {
		respondError(c, apierrors.ErrInternalServerError)
		return
	}

	c.JSON(http.StatusOK, chain)
}

// handleListOwnReviews returns the caller's chains grouped by business
func (s *APIServer) handleListOwnReviews(c *gin.Context) {
	userID := middleware.GetUserIDFromContext(c)
	if userID == uuid.Nil {
		respondError(c, apierrors.ErrInvalidCredentialsError)
		return
	}

	grouped, err := s.reviewService.ListUserReviews(c.Request.Context(), userID)
	if err != nil {
		respondError(c, apierrors.ErrInternalServerError)
		return
	}

	c.JSON(http.StatusOK, gin.H{"reviews": grouped})
}

// submitProofRequest carries a proof attachment for an existing review
type submitProofRequest struct {
	ProofURL    string  `json:"proof_url" binding:"required"`
	ProofRemark *string `json:"proof_remark,omitempty"`
}

// handleSubmitProof attaches proof to the caller's review
func (s *APIServer) handleSubmitProof(c *gin.Context) {
	reviewID, ok := parseIDParam(c)
	if !ok {
		return
	}
	userID := middleware.GetUserIDFromContext(c)
	if userID == uuid.Nil {
		respondError(c, apierrors.ErrInvalidCredentialsError)
		return
	}

	var req submitProofRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apierrors.NewValidationError(err.Error()))
		return
	}

	// Only the review owner may attach proof
	r, err := s.reviewService.GetByID(c.Request.Context(), reviewID)
	if err != nil {
		if errors.Is(err, review.ErrReviewNotFound) {
			respondError(c, apierrors.ErrReviewNotFoundError)
		} else {
			respondError(c, apierrors.ErrInternalServerError)
		}
		return
	}
	if r.UserID != userID {
		respondError(c, apierrors.ErrForbiddenError)
		return
	}

	err = s.verifyService.SubmitProof(c.Request.Context(), reviewID, req.ProofURL, req.ProofRemark)
	if err != nil {
		respondVerificationError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Proof submitted for verification"})
}

// voteRequest carries an upvote/downvote
type voteRequest struct {
	Up bool `json:"up"`
}

// handleVoteReview records an upvote or downvote on a review
func (s *APIServer) handleVoteReview(c *gin.Context) {
	reviewID, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req voteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apierrors.NewValidationError(err.Error()))
		return
	}

	r, err := s.reviewService.Vote(c.Request.Context(), reviewID, req.Up)
	if err != nil {
		if errors.Is(err, review.ErrReviewNotFound) {
			respondError(c, apierrors.ErrReviewNotFoundError)
		} else {
			respondError(c, apierrors.ErrInternalServerError)
		}
		return
	}

	monitoring.RecordReviewVote(req.Up)
	c.JSON(http.StatusOK, r)
}

// submitIdentityRequest carries a user's identity-input fields
type submitIdentityRequest struct {
	LegalName      string `json:"legal_name" binding:"required"`
	DocumentNumber string `json:"document_number" binding:"required"`
	Mobile         string `json:"mobile" binding:"required"`
}

// handleSubmitIdentity records the caller's identity fields for admin review
func (s *APIServer) handleSubmitIdentity(c *gin.Context) {
	userID := middleware.GetUserIDFromContext(c)
	if userID == uuid.Nil {
		respondError(c, apierrors.ErrInvalidCredentialsError)
		return
	}

	var req submitIdentityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apierrors.NewValidationError(err.Error()))
		return
	}

	err := s.verifyService.SubmitIdentity(c.Request.Context(), userID, req.LegalName, req.DocumentNumber, req.Mobile)
	if err != nil {
		respondVerificationError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Identity submitted for verification"})
}

// handleListBusinesses returns a directory page of active businesses
func (s *APIServer) handleListBusinesses(c *gin.Context) {
	page := intQuery(c, "page", 1)
	pageSize := intQuery(c, "page_size", 20)

	resp, err := s.businessService.List(c.Request.Context(), page, pageSize)
	if err != nil {
		respondError(c, apierrors.ErrInternalServerError)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// handleGetBusiness returns a single listing
func (s *APIServer) handleGetBusiness(c *gin.Context) {
	businessID, ok := parseIDParam(c)
	if !ok {
		return
	}

	b, err := s.businessService.GetByID(c.Request.Context(), businessID)
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

// handleGetBusinessStats returns the derived aggregate, cache-first
func (s *APIServer) handleGetBusinessStats(c *gin.Context) {
	businessID, ok := parseIDParam(c)
	if !ok {
		return
	}

	result, err := s.statsService.Get(c.Request.Context(), businessID)
	if err != nil {
		if errors.Is(err, stats.ErrBusinessNotFound) {
			respondError(c, apierrors.ErrBusinessNotFoundError)
		} else {
			respondError(c, apierrors.ErrInternalServerError)
		}
		return
	}

	c.JSON(http.StatusOK, result)
}

// handleRegisterBusiness creates a new directory listing
func (s *APIServer) handleRegisterBusiness(c *gin.Context) {
	var req business.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apierrors.NewValidationError(err.Error()))
		return
	}

	b, err := s.businessService.Register(c.Request.Context(), &req)
	if err != nil {
		respondError(c, apierrors.ErrInternalServerError)
		return
	}

	c.JSON(http.StatusCreated, b)
}

// handleClaimBusiness marks a listing as claimed by its owner
func (s *APIServer) handleClaimBusiness(c *gin.Context) {
	businessID, ok := parseIDParam(c)
	if !ok {
		return
	}

	b, err := s.businessService.Claim(c.Request.Context(), businessID)
	if err != nil {
		switch {
		case errors.Is(err, business.ErrBusinessNotFound):
			respondError(c, apierrors.ErrBusinessNotFoundError)
		case errors.Is(err, business.ErrAlreadyClaimed):
			respondError(c, apierrors.NewInvalidRequestError("Business has already been claimed"))
		default:
			respondError(c, apierrors.ErrInternalServerError)
		}
		return
	}

	c.JSON(http.StatusOK, b)
}

// parseIDParam parses the :id path parameter, responding with a validation
// error on failure.
func parseIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, apierrors.NewInvalidRequestError("Invalid id"))
		return uuid.Nil, false
	}
	return id, true
}

func intQuery(c *gin.Context, key string, defaultValue int) int {
	value, err := strconv.Atoi(c.Query(key))
	if err != nil || value < 1 {
		return defaultValue
	}
	return value
}

// respondReviewError maps review service errors to API errors
func respondReviewError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, review.ErrDuplicateOriginal):
		respondError(c, apierrors.ErrDuplicateOriginalError)
	case errors.Is(err, review.ErrNoOriginal):
		respondError(c, apierrors.ErrNoOriginalError)
	case errors.Is(err, review.ErrInvalidRating), errors.Is(err, review.ErrEmptyContent):
		respondError(c, apierrors.NewValidationError(err.Error()))
	case errors.Is(err, review.ErrBusinessInactive):
		respondError(c, apierrors.ErrBusinessInactiveError)
	case errors.Is(err, review.ErrBusinessNotFound):
		respondError(c, apierrors.ErrBusinessNotFoundError)
	case errors.Is(err, review.ErrReviewNotFound):
		respondError(c, apierrors.ErrReviewNotFoundError)
	case errors.Is(err, review.ErrUpdateNumberConflict):
		respondError(c, apierrors.ErrUpdateConflictError)
	default:
		respondError(c, apierrors.ErrInternalServerError)
	}
}

// respondVerificationError maps verification service errors to API errors
func respondVerificationError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, verification.ErrReviewNotFound):
		respondError(c, apierrors.ErrReviewNotFoundError)
	case errors.Is(err, verification.ErrUserNotFound):
		respondError(c, apierrors.ErrUserNotFoundError)
	case errors.Is(err, verification.ErrMissingReason):
		respondError(c, apierrors.ErrMissingReasonError)
	case errors.Is(err, verification.ErrProofAlreadySubmitted):
		respondError(c, apierrors.NewInvalidRequestError("Proof has already been submitted for this review"))
	case errors.Is(err, verification.ErrProofNotSubmitted):
		respondError(c, apierrors.NewInvalidRequestError("No proof has been submitted for this review"))
	case errors.Is(err, verification.ErrIllegalTransition):
		respondError(c, apierrors.NewInvalidRequestError(err.Error()))
	default:
		respondError(c, apierrors.ErrInternalServerError)
	}
}

// respondError sends a standardized error response
func respondError(c *gin.Context, err *apierrors.APIError) {
	requestID, _ := c.Get("request_id")
	reqIDStr, _ := requestID.(string)

	response := apierrors.NewErrorResponse(
		err,
		reqIDStr,
		reqIDStr,
		c.Request.URL.Path,
		c.Request.Method,
	)

	c.JSON(err.HTTPStatus, response)
}
