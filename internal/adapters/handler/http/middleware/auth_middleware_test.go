package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/comitanigiacomo/kanso-wellness-engine/internal/core/domain"
	"github.com/comitanigiacomo/kanso-wellness-engine/internal/core/services"
)

type MockUserRepo struct {
	mock.Mock
}

func (m *MockUserRepo) Create(ctx context.Context, user *domain.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepo) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

const (
	testSecret = "test-secret-middleware"
	testIssuer = "test-issuer"
)

func echoUserRouter(tokens *services.TokenService) *gin.Engine {
	router := gin.New()
	router.Use(AuthMiddleware(tokens))
	echo := func(c *gin.Context) {
		userID, ok := GetUserID(c)
		if !ok {
			c.String(http.StatusInternalServerError, "no user in context")
			return
		}
		c.String(http.StatusOK, userID)
	}
	router.GET("/stats/summary", echo)
	router.GET("/timer/events", echo)
	router.GET("/timer", echo)
	return router
}

func TestAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	repo := new(MockUserRepo)
	repo.On("GetByID", mock.Anything, "user-123").Return(&domain.User{ID: "user-123"}, nil)
	repo.On("GetByID", mock.Anything, "deleted-user").Return(nil, domain.ErrUserNotFound)

	tokens := services.NewTokenService(testSecret, testIssuer, time.Hour, repo)
	router := echoUserRouter(tokens)

	valid, err := tokens.GenerateToken("user-123")
	require.NoError(t, err)
	forged, err := services.NewTokenService("wrong-secret", testIssuer, time.Hour, repo).GenerateToken("user-123")
	require.NoError(t, err)
	expired, err := services.NewTokenService(testSecret, testIssuer, -time.Second, repo).GenerateToken("user-123")
	require.NoError(t, err)
	orphan, err := tokens.GenerateToken("deleted-user")
	require.NoError(t, err)

	tests := []struct {
		name     string
		path     string
		header   string
		wantCode int
		wantBody string
	}{
		{"Valid bearer token", "/stats/summary", "Bearer " + valid, http.StatusOK, "user-123"},
		{"Missing header", "/stats/summary", "", http.StatusUnauthorized, "authorization header required"},
		{"Scheme only", "/stats/summary", "Bearer", http.StatusUnauthorized, "invalid authorization header format"},
		{"Empty token", "/stats/summary", "Bearer ", http.StatusUnauthorized, "invalid authorization header format"},
		{"Wrong scheme", "/stats/summary", "Token " + valid, http.StatusUnauthorized, "invalid authorization header format"},
		{"Glued scheme", "/stats/summary", "Bearer" + valid, http.StatusUnauthorized, "invalid authorization header format"},
		{"Forged signature", "/stats/summary", "Bearer " + forged, http.StatusUnauthorized, "invalid or expired token"},
		{"Expired token", "/stats/summary", "Bearer " + expired, http.StatusUnauthorized, "invalid or expired token"},
		{"User no longer exists", "/stats/summary", "Bearer " + orphan, http.StatusUnauthorized, "invalid or expired token"},
		{"Stream accepts access_token", "/timer/events?access_token=" + valid, "", http.StatusOK, "user-123"},
		{"Other routes ignore access_token", "/timer?access_token=" + valid, "", http.StatusUnauthorized, "authorization header required"},
		{"Header wins over access_token", "/timer/events?access_token=" + valid, "Bearer " + forged, http.StatusUnauthorized, "invalid or expired token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantCode, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantBody)
		})
	}
}
