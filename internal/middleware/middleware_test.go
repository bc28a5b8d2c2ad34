package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"hrportal_backend/internal/auth"
	"hrportal_backend/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(tokens *auth.TokenManager, guards ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestIDMiddleware())
	handlers := append([]gin.HandlerFunc{AuthMiddleware(tokens)}, guards...)
	handlers = append(handlers, func(c *gin.Context) {
		c.JSON(http.StatusOK, GetIdentity(c))
	})
	r.GET("/me", handlers...)
	return r
}

func request(t *testing.T, r http.Handler, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func tokenFor(t *testing.T, tokens *auth.TokenManager, role models.UserRole) string {
	t.Helper()
	token, err := tokens.Generate(auth.Identity{UserID: "u-1", Role: role, Name: "Ann"})
	require.NoError(t, err)
	return token
}

func TestAuthMiddleware(t *testing.T) {
	tokens := auth.NewTokenManager("secret", time.Hour)
	r := newRouter(tokens)

	rec := request(t, r, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = request(t, r, "garbage")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_TOKEN")

	rec = request(t, r, tokenFor(t, tokens, models.UserRoleCandidate))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"userId":"u-1","userRole":"candidate","userName":"Ann"}`, rec.Body.String())
}

func TestRoleGuards(t *testing.T) {
	tokens := auth.NewTokenManager("secret", time.Hour)

	cases := []struct {
		name  string
		guard gin.HandlerFunc
		role  models.UserRole
		want  int
	}{
		{"staff allows recruiter", RequireStaff(), models.UserRoleRecruiter, http.StatusOK},
		{"staff rejects candidate", RequireStaff(), models.UserRoleCandidate, http.StatusForbidden},
		{"bulk for hr manager", RequirePermission(auth.PermNotificationsBulk), models.UserRoleHRManager, http.StatusOK},
		{"bulk not for interviewer", RequirePermission(auth.PermNotificationsBulk), models.UserRoleInterviewer, http.StatusForbidden},
		{"roles match", RequireRoles(models.UserRoleAdmin), models.UserRoleAdmin, http.StatusOK},
		{"roles mismatch", RequireRoles(models.UserRoleAdmin), models.UserRoleHRManager, http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newRouter(tokens, tc.guard)
			rec := request(t, r, tokenFor(t, tokens, tc.role))
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestRequestID_PassesThrough(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestIDMiddleware(), LoggingMiddleware())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))
}

func TestCORSMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORSMiddleware([]string{"https://hr.example.com"}))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://hr.example.com")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, "https://hr.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
