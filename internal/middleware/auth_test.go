package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"schoolpay/internal/pkg/jwt"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestJWTAuth_ValidToken(t *testing.T) {
	secret := "test-secret-123"
	jwtService := jwt.New(secret, 1*time.Hour)
	validToken, _ := jwtService.GenerateToken(42, "school", "SCH001")

	router := gin.New()
	router.Use(JWTAuth(jwtService))

	router.GET("/protected", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user_id":   c.GetInt64("user_id"),
			"role":      c.GetString("role"),
			"school_id": c.GetString("school_id"),
		})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+validToken)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "42")
	assert.Contains(t, w.Body.String(), "SCH001")
}

func TestJWTAuth_InvalidToken(t *testing.T) {
	jwtService := jwt.New("wrong-secret", 1*time.Hour)

	router := gin.New()
	router.Use(JWTAuth(jwtService))

	router.GET("/protected", func(c *gin.Context) {
		t.Fatal("This handler should not be reached")
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer invalid-jwt-here")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_TOKEN")
}

func TestJWTAuth_NoToken(t *testing.T) {
	jwtService := jwt.New("secret", 1*time.Hour)

	router := gin.New()
	router.Use(JWTAuth(jwtService))

	router.GET("/protected", func(c *gin.Context) {
		t.Fatal("Should not reach here")
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/protected", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "AUTH_HEADER_MISSING")
}

func TestJWTAuth_WrongFormat(t *testing.T) {
	jwtService := jwt.New("secret", 1*time.Hour)

	router := gin.New()
	router.Use(JWTAuth(jwtService))

	router.GET("/protected", func(c *gin.Context) {
		t.Fatal("Should not reach here")
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Basic dGVzdA==")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_AUTH_FORMAT")
}

func TestAdminOnly(t *testing.T) {
	router := gin.New()
	router.Use(func(c *gin.Context) { c.Set("role", "school") })
	router.Use(AdminOnly())

	router.GET("/admin", func(c *gin.Context) {
		t.Fatal("Should not reach here")
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/admin", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}
