package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/trustrail/trustrail/internal/config"
	"github.com/trustrail/trustrail/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testJWTConfig(secret string) *config.JWTConfig {
	return &config.JWTConfig{
		Secret:             secret,
		Issuer:             "trustrail",
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: 7 * 24 * time.Hour,
	}
}

// Helper function to create a test JWT token
func createTestToken(secret, userID, role, email, subject string, expiry time.Duration) string {
	now := time.Now()
	claims := &Claims{
		UserID: userID,
		Role:   role,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    "trustrail",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, _ := token.SignedString([]byte(secret))
	return tokenString
}

func TestJWTAuth_ValidToken(t *testing.T) {
	secret := "test-secret-key-for-jwt-testing"
	authenticator := NewJWTAuthenticator(testJWTConfig(secret))

	userID := uuid.New()
	token := createTestToken(secret, userID.String(), "member", "member@example.com", "access", 15*time.Minute)

	router := gin.New()
	router.Use(authenticator.JWTAuth())
	router.GET("/protected", func(c *gin.Context) {
		gotID := GetUserIDFromContext(c)
		if gotID != userID {
			t.Errorf("Expected user ID %s, got %s", userID, gotID)
		}
		if GetRoleFromContext(c) != models.UserRoleMember {
			t.Errorf("Expected role member, got %s", GetRoleFromContext(c))
		}
		c.JSON(http.StatusOK, gin.H{"message": "success"})
	})

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
}

func TestJWTAuth_MissingToken(t *testing.T) {
	authenticator := NewJWTAuthenticator(testJWTConfig("test-secret"))

	router := gin.New()
	router.Use(authenticator.JWTAuth())
	router.GET("/protected", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "success"})
	})

	req := httptest.NewRequest("GET", "/protected", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", w.Code)
	}
}

func TestJWTAuth_InvalidToken(t *testing.T) {
	authenticator := NewJWTAuthenticator(testJWTConfig("test-secret"))

	router := gin.New()
	router.Use(authenticator.JWTAuth())
	router.GET("/protected", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "success"})
	})

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer invalid-token")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", w.Code)
	}
}

func TestJWTAuth_ExpiredToken(t *testing.T) {
	secret := "test-secret"
	authenticator := NewJWTAuthenticator(testJWTConfig(secret))

	token := createTestToken(secret, uuid.New().String(), "member", "member@example.com", "access", -1*time.Hour)

	router := gin.New()
	router.Use(authenticator.JWTAuth())
	router.GET("/protected", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "success"})
	})

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", w.Code)
	}
}

func TestJWTAuth_RefreshTokenRejected(t *testing.T) {
	secret := "test-secret"
	authenticator := NewJWTAuthenticator(testJWTConfig(secret))

	// A refresh token must not pass access-token validation
	token := createTestToken(secret, uuid.New().String(), "member", "member@example.com", "refresh", 7*24*time.Hour)

	router := gin.New()
	router.Use(authenticator.JWTAuth())
	router.GET("/protected", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "success"})
	})

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", w.Code)
	}
}

func TestRequireRole_AllowedRole(t *testing.T) {
	secret := "test-secret"
	authenticator := NewJWTAuthenticator(testJWTConfig(secret))
	token := createTestToken(secret, uuid.New().String(), "business", "owner@example.com", "access", 15*time.Minute)

	router := gin.New()
	router.Use(authenticator.JWTAuth())
	router.Use(RequireRole(models.UserRoleBusiness))
	router.GET("/business-only", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "success"})
	})

	req := httptest.NewRequest("GET", "/business-only", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
}

func TestRequireRole_DeniedRole(t *testing.T) {
	secret := "test-secret"
	authenticator := NewJWTAuthenticator(testJWTConfig(secret))
	token := createTestToken(secret, uuid.New().String(), "member", "member@example.com", "access", 15*time.Minute)

	router := gin.New()
	router.Use(authenticator.JWTAuth())
	router.Use(RequireRole(models.UserRoleBusiness)) // Requires business, but user is member
	router.GET("/business-only", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "success"})
	})

	req := httptest.NewRequest("GET", "/business-only", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("Expected status 403, got %d", w.Code)
	}
}

func TestRequireRole_MultipleAllowedRoles(t *testing.T) {
	secret := "test-secret"
	authenticator := NewJWTAuthenticator(testJWTConfig(secret))
	token := createTestToken(secret, uuid.New().String(), "business", "owner@example.com", "access", 15*time.Minute)

	router := gin.New()
	router.Use(authenticator.JWTAuth())
	router.Use(RequireRole(models.UserRoleBusiness, models.UserRoleAdmin))
	router.GET("/owners", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "success"})
	})

	req := httptest.NewRequest("GET", "/owners", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
}

func TestRequireAdmin(t *testing.T) {
	secret := "test-secret"
	authenticator := NewJWTAuthenticator(testJWTConfig(secret))

	adminToken := createTestToken(secret, uuid.New().String(), "admin", "admin@example.com", "access", 15*time.Minute)

	router := gin.New()
	router.Use(authenticator.JWTAuth())
	router.Use(RequireAdmin())
	router.GET("/admin-only", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "success"})
	})

	req := httptest.NewRequest("GET", "/admin-only", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	memberToken := createTestToken(secret, uuid.New().String(), "member", "member@example.com", "access", 15*time.Minute)

	req2 := httptest.NewRequest("GET", "/admin-only", nil)
	req2.Header.Set("Authorization", "Bearer "+memberToken)
	w2 := httptest.NewRecorder()

	router.ServeHTTP(w2, req2)

	if w2.Code != http.StatusForbidden {
		t.Errorf("Expected status 403, got %d", w2.Code)
	}
}

func TestGetUserIDFromContext_Malformed(t *testing.T) {
	secret := "test-secret"
	authenticator := NewJWTAuthenticator(testJWTConfig(secret))

	// A token whose user_id is not a UUID must resolve to uuid.Nil
	token := createTestToken(secret, "not-a-uuid", "member", "member@example.com", "access", 15*time.Minute)

	router := gin.New()
	router.Use(authenticator.JWTAuth())
	router.GET("/test", func(c *gin.Context) {
		if got := GetUserIDFromContext(c); got != uuid.Nil {
			t.Errorf("Expected uuid.Nil for malformed user id, got %s", got)
		}
		c.JSON(http.StatusOK, gin.H{})
	})

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)
}

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		name       string
		authHeader string
		wantToken  string
		wantErr    bool
	}{
		{
			name:       "valid bearer token",
			authHeader: "Bearer abc123",
			wantToken:  "abc123",
			wantErr:    false,
		},
		{
			name:       "missing bearer prefix",
			authHeader: "abc123",
			wantToken:  "",
			wantErr:    true,
		},
		{
			name:       "empty header",
			authHeader: "",
			wantToken:  "",
			wantErr:    true,
		},
		{
			name:       "only bearer prefix",
			authHeader: "Bearer ",
			wantToken:  "",
			wantErr:    false,
		},
		{
			name:       "wrong prefix",
			authHeader: "Basic abc123",
			wantToken:  "",
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := extractBearerToken(tt.authHeader)
			if (err != nil) != tt.wantErr {
				t.Errorf("extractBearerToken() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if token != tt.wantToken {
				t.Errorf("extractBearerToken() = %v, want %v", token, tt.wantToken)
			}
		})
	}
}

func TestProperty_RequestID_GeneratedWhenMissing(t *testing.T) {
	router := gin.New()
	router.Use(RequestID())
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{})
	})

	req := httptest.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	// Property: Request ID should be generated
	requestID := w.Header().Get("X-Request-ID")
	if requestID == "" {
		t.Fatal("PROPERTY VIOLATION: Request ID should be generated when not provided")
	}

	// Property: Request ID should be a valid UUID format
	if len(requestID) != 36 {
		t.Fatalf("PROPERTY VIOLATION: Request ID should be UUID format, got length %d", len(requestID))
	}
}

func TestProperty_RequestID_PropagatedFromHeader(t *testing.T) {
	router := gin.New()
	router.Use(RequestID())
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{})
	})

	expectedRequestID := "test-request-id-12345"
	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("X-Request-ID", expectedRequestID)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	// Property: Request ID should be propagated from header
	requestID := w.Header().Get("X-Request-ID")
	if requestID != expectedRequestID {
		t.Fatalf("PROPERTY VIOLATION: Request ID should be propagated, expected %s, got %s",
			expectedRequestID, requestID)
	}
}
