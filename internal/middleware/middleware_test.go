package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aleks2005vk/cheap-gasoline/internal/model"
	"github.com/aleks2005vk/cheap-gasoline/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func init() { gin.SetMode(gin.TestMode) }

func signToken(t *testing.T, secret string, userID uint, role string, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"email":   "u@example.com",
		"role":    role,
		"exp":     exp.Unix(),
		"iat":     time.Now().Unix(),
	})
	s, err := tok.SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func serve(r *gin.Engine, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTAuth(t *testing.T) {
	r := gin.New()
	r.GET("/me", JWTAuth(testSecret), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": GetClaims(c).UserID})
	})
	future := time.Now().Add(time.Hour)

	w := serve(r, http.MethodGet, "/me", signToken(t, testSecret, 7, model.RoleUser, future))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":7}`, w.Body.String())

	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/me", signToken(t, "other", 7, model.RoleUser, future)).Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/me", signToken(t, testSecret, 7, model.RoleUser, time.Now().Add(-time.Hour))).Code)
	assert.Equal(t, http.StatusForbidden, serve(r, http.MethodGet, "/me", signToken(t, testSecret, 7, model.RoleBanned, future)).Code)
}

func TestOptionalJWTAuth(t *testing.T) {
	r := gin.New()
	r.GET("/who", OptionalJWTAuth(testSecret), func(c *gin.Context) {
		if id := UserID(c); id != nil {
			c.String(http.StatusOK, "user")
			return
		}
		c.String(http.StatusOK, "anonymous")
	})

	assert.Equal(t, "anonymous", serve(r, http.MethodGet, "/who", "").Body.String())
	assert.Equal(t, "anonymous", serve(r, http.MethodGet, "/who", "garbage").Body.String())
	assert.Equal(t, "user", serve(r, http.MethodGet, "/who", signToken(t, testSecret, 1, model.RoleUser, time.Now().Add(time.Hour))).Body.String())
}

func TestRequireRole(t *testing.T) {
	r := gin.New()
	r.POST("/admin", JWTAuth(testSecret), RequireRole(model.RoleAdmin, model.RoleSuperadmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	future := time.Now().Add(time.Hour)

	assert.Equal(t, http.StatusForbidden, serve(r, http.MethodPost, "/admin", signToken(t, testSecret, 1, model.RoleUser, future)).Code)
	assert.Equal(t, http.StatusNoContent, serve(r, http.MethodPost, "/admin", signToken(t, testSecret, 1, model.RoleSuperadmin, future)).Code)
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(RequestIDKey)) })

	w := serve(r, http.MethodGet, "/", "")
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
	assert.Equal(t, w.Header().Get(RequestIDHeader), w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Body.String())
}

func TestClientIP(t *testing.T) {
	r := gin.New()
	r.Use(ClientIP())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, service.ClientIP(c.Request.Context())) })

	w := serve(r, http.MethodGet, "/", "")
	assert.Equal(t, "192.0.2.1", w.Body.String())
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS("https://map.example.ge"))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://map.example.ge")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "https://map.example.ge", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRecoveryAndErrorHandler(t *testing.T) {
	r := gin.New()
	r.Use(Recovery(), ErrorHandler())
	r.GET("/panic", func(*gin.Context) { panic("boom") })
	r.GET("/err", func(c *gin.Context) { _ = c.Error(assert.AnError) })

	w := serve(r, http.MethodGet, "/panic", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"detail":"internal server error"}`, w.Body.String())

	w = serve(r, http.MethodGet, "/err", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), assert.AnError.Error())
}

func TestFixedWindow(t *testing.T) {
	w := newFixedWindow(2, time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return now }

	ok, _ := w.allow("1.1.1.1")
	assert.True(t, ok)
	ok, _ = w.allow("1.1.1.1")
	assert.True(t, ok)
	ok, _ = w.allow("1.1.1.1")
	assert.False(t, ok)
	ok, _ = w.allow("2.2.2.2")
	assert.True(t, ok, "limits are per key")

	now = now.Add(61 * time.Second)
	ok, _ = w.allow("1.1.1.1")
	assert.True(t, ok, "new window")

	now = now.Add(10 * time.Minute)
	w.allow("3.3.3.3")
	assert.Len(t, w.entries, 1, "expired keys purged")
}

func TestRateLimiter_Returns429(t *testing.T) {
	r := gin.New()
	r.Use(RateLimiter(1, time.Minute))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/", "").Code)
	w := serve(r, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}
