package middleware_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/jwalitptl/dental-api/internal/middleware"
	"github.com/jwalitptl/dental-api/internal/model"
	apperr "github.com/jwalitptl/dental-api/pkg/errors"
)

type stubAuthenticator map[string]model.Actor

func (s stubAuthenticator) Authenticate(token string) (model.Actor, error) {
	actor, ok := s[token]
	if !ok {
		return model.Actor{}, apperr.Unauthorized(errors.New("unknown token"))
	}
	return actor, nil
}

func init() {
	gin.SetMode(gin.TestMode)
}

func TestAuthMiddleware(t *testing.T) {
	auth := middleware.NewAuthMiddleware(stubAuthenticator{
		"admin":   {UserID: uuid.New(), Role: model.RoleAdmin},
		"patient": {UserID: uuid.New(), Role: model.RolePatient},
	})

	r := gin.New()
	r.Use(auth.Authenticate())
	r.GET("/any", func(c *gin.Context) {
		actor, ok := middleware.ActorFrom(c)
		assert.True(t, ok)
		c.String(http.StatusOK, string(actor.Role))
	})
	r.GET("/admin", auth.RequireRole(model.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	cases := []struct {
		path, header string
		want         int
	}{
		{"/any", "", http.StatusUnauthorized},
		{"/any", "Token admin", http.StatusUnauthorized},
		{"/any", "Bearer nope", http.StatusUnauthorized},
		{"/any", "Bearer patient", http.StatusOK},
		{"/admin", "Bearer patient", http.StatusForbidden},
		{"/admin", "bearer admin", http.StatusNoContent},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, tc.path, nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, tc.want, w.Code, "%s with %q", tc.path, tc.header)
	}
}

func TestRateLimiter_PerClient(t *testing.T) {
	rl := middleware.NewRateLimiter(middleware.RateLimiterConfig{Rate: 0.001, Burst: 2})
	r := gin.New()
	r.Use(rl.RateLimit())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	do := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = ip + ":1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, do("10.0.0.1"))
	assert.Equal(t, http.StatusOK, do("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, do("10.0.0.1"))
	assert.Equal(t, http.StatusOK, do("10.0.0.2"))
}

func TestRequestIDAndRecovery(t *testing.T) {
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Recovery())
	r.GET("/boom", func(c *gin.Context) { panic("kaboom") })

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	req.Header.Set(middleware.HeaderXRequestID, "req-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "req-123", w.Header().Get(middleware.HeaderXRequestID))
	assert.Contains(t, w.Body.String(), "internal server error")
	assert.NotContains(t, w.Body.String(), "kaboom")
}

func TestBodyLimit(t *testing.T) {
	r := gin.New()
	r.Use(middleware.BodyLimit(8))
	r.POST("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodPost, "/", http.NoBody)
	req.ContentLength = 64
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}
