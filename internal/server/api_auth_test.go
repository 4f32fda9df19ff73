package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/trustrail/trustrail/internal/config"
	"github.com/trustrail/trustrail/internal/middleware"
	"github.com/trustrail/trustrail/internal/review"
	"github.com/trustrail/trustrail/internal/verification"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testJWTSecret = "test-secret-key-for-jwt-testing-32chars"

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Env: "test"},
		JWT: config.JWTConfig{
			Secret:             testJWTSecret,
			Issuer:             "trustrail",
			AccessTokenExpiry:  15 * time.Minute,
			RefreshTokenExpiry: 7 * 24 * time.Hour,
		},
		CORS: config.CORSConfig{AllowedOrigins: []string{"*"}},
	}
}

// Helper function to create a test JWT token
func createTestJWTToken(userID, role string) string {
	now := time.Now()
	claims := &middleware.Claims{
		UserID: userID,
		Role:   role,
		Email:  "test@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "access",
			Issuer:    "trustrail",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(15 * time.Minute)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, _ := token.SignedString([]byte(testJWTSecret))
	return tokenString
}

// TestRouteAuthorization_Checkpoint verifies that every route group enforces
// the expected authentication and role requirements. No request here reaches
// a service, so the server runs without a database.
func TestRouteAuthorization_Checkpoint(t *testing.T) {
	srv := NewAPIServer(testConfig(), nil, nil)
	router := srv.Router()

	memberToken := createTestJWTToken(uuid.New().String(), "member")
	businessToken := createTestJWTToken(uuid.New().String(), "business")
	adminToken := createTestJWTToken(uuid.New().String(), "admin")

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"health is public", "GET", "/health", "", http.StatusOK},
		{"review submission requires auth", "POST", "/api/v1/businesses/" + uuid.NewString() + "/reviews", "", http.StatusUnauthorized},
		{"own chain requires auth", "GET", "/api/v1/businesses/" + uuid.NewString() + "/reviews/mine", "", http.StatusUnauthorized},
		{"identity submission requires auth", "PUT", "/api/v1/me/identity", "", http.StatusUnauthorized},
		{"business registration denies members", "POST", "/api/v1/businesses", memberToken, http.StatusForbidden},
		{"claim denies members", "POST", "/api/v1/businesses/" + uuid.NewString() + "/claim", memberToken, http.StatusForbidden},
		{"admin queue requires auth", "GET", "/api/v1/admin/verification/proofs", "", http.StatusUnauthorized},
		{"admin queue denies members", "GET", "/api/v1/admin/verification/proofs", memberToken, http.StatusForbidden},
		{"admin queue denies business owners", "GET", "/api/v1/admin/verification/proofs", businessToken, http.StatusForbidden},
		{"proof approval denies members", "POST", "/api/v1/admin/reviews/" + uuid.NewString() + "/proof/approve", memberToken, http.StatusForbidden},
		// Malformed IDs fail before any service call
		{"admin route rejects malformed id", "POST", "/api/v1/admin/reviews/not-a-uuid/proof/approve", adminToken, http.StatusBadRequest},
		{"vote rejects malformed id", "POST", "/api/v1/reviews/not-a-uuid/vote", memberToken, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if w.Code != tt.want {
				t.Errorf("%s %s: expected status %d, got %d (body: %s)",
					tt.method, tt.path, tt.want, w.Code, w.Body.String())
			}
		})
	}
}

func TestRespondReviewError_Mapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"duplicate original", review.ErrDuplicateOriginal, http.StatusBadRequest},
		{"no original", review.ErrNoOriginal, http.StatusBadRequest},
		{"inactive business", review.ErrBusinessInactive, http.StatusBadRequest},
		{"invalid rating", review.ErrInvalidRating, http.StatusBadRequest},
		{"review not found", review.ErrReviewNotFound, http.StatusNotFound},
		{"business not found", review.ErrBusinessNotFound, http.StatusNotFound},
		{"update conflict", review.ErrUpdateNumberConflict, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest("POST", "/test", nil)

			respondReviewError(c, tt.err)

			if w.Code != tt.want {
				t.Errorf("Expected status %d for %v, got %d", tt.want, tt.err, w.Code)
			}
		})
	}
}

func TestRespondVerificationError_Mapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"missing reason", verification.ErrMissingReason, http.StatusBadRequest},
		{"proof already submitted", verification.ErrProofAlreadySubmitted, http.StatusBadRequest},
		{"proof not submitted", verification.ErrProofNotSubmitted, http.StatusBadRequest},
		{"review not found", verification.ErrReviewNotFound, http.StatusNotFound},
		{"user not found", verification.ErrUserNotFound, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest("POST", "/test", nil)

			respondVerificationError(c, tt.err)

			if w.Code != tt.want {
				t.Errorf("Expected status %d for %v, got %d", tt.want, tt.err, w.Code)
			}
		})
	}
}
