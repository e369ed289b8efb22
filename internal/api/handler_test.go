package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/naka-gawa/github-fork-stats/internal/domain"
	apperrors "github.com/naka-gawa/github-fork-stats/internal/errors"
)

type mockService struct {
	mock.Mock
}

func (m *mockService) GetRepoSummary(ctx context.Context, repoURL, token string) (*domain.RepoSummary, error) {
	args := m.Called(ctx, repoURL, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RepoSummary), args.Error(1)
}

func (m *mockService) GetRepoDetail(ctx context.Context, owner, repo, token string) (*domain.RepoDetail, error) {
	args := m.Called(ctx, owner, repo, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RepoDetail), args.Error(1)
}

func (m *mockService) GetForkDetails(ctx context.Context, owner, repo, token string) (*domain.ForkDetails, error) {
	args := m.Called(ctx, owner, repo, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ForkDetails), args.Error(1)
}

func setupRouter(service, detailed Service) *gin.Engine {
	return setupRouterWithTimeout(service, detailed, time.Minute)
}

func setupRouterWithTimeout(service, detailed Service, timeout time.Duration) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	entry := logrus.NewEntry(logger)
	return SetupRoutes(NewHandler(service, detailed, entry), entry, timeout)
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func perform(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealthCheck(t *testing.T) {
	router := setupRouter(new(mockService), nil)

	w := perform(router, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRequestID_ReusesCallerID(t *testing.T) {
	router := setupRouter(new(mockService), nil)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")

	w := perform(router, req)

	assert.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))
}

func TestGetRepoSummary(t *testing.T) {
	const repoURL = "https://github.com/facebook/react"
	summary := &domain.RepoSummary{
		Repository: domain.RepositoryIdentifier{Owner: "facebook", Name: "react"},
		ForksCount: 1,
		Forks:      []domain.ForkSummary{{ID: 1, FullName: "alice/react", CommitCount: 3, CommitCountSource: domain.CountSourceCompare}},
	}

	testCases := []struct {
		name           string
		target         string
		headers        map[string]string
		setup          func(plain, detailed *mockService)
		expectedStatus int
		expectedCode   string
	}{
		{
			name:   "happy path with bearer token",
			target: "/api/v1/summary?url=" + repoURL,
			headers: map[string]string{
				"Authorization": "Bearer tok",
			},
			setup: func(plain, _ *mockService) {
				plain.On("GetRepoSummary", mock.Anything, repoURL, "tok").Return(summary, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:   "details use the detailed service and the token header",
			target: "/api/v1/summary?details=true&url=" + repoURL,
			headers: map[string]string{
				"X-GitHub-Token": "tok2",
			},
			setup: func(_, detailed *mockService) {
				detailed.On("GetRepoSummary", mock.Anything, repoURL, "tok2").Return(summary, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "missing url",
			target:         "/api/v1/summary",
			setup:          func(_, _ *mockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "BAD_REQUEST",
		},
		{
			name:   "invalid url",
			target: "/api/v1/summary?url=https://gitlab.com/a/b",
			setup: func(plain, _ *mockService) {
				plain.On("GetRepoSummary", mock.Anything, "https://gitlab.com/a/b", "").Return(nil, apperrors.NewInvalidURLError("Please enter a GitHub repository URL."))
			},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "INVALID_URL",
		},
		{
			name:   "rate limited",
			target: "/api/v1/summary?url=" + repoURL,
			setup: func(plain, _ *mockService) {
				plain.On("GetRepoSummary", mock.Anything, repoURL, "").Return(nil, apperrors.NewRateLimitedError(time.Unix(1700000000, 0)))
			},
			expectedStatus: http.StatusTooManyRequests,
			expectedCode:   "RATE_LIMITED",
		},
		{
			name:   "upstream failure",
			target: "/api/v1/summary?url=" + repoURL,
			setup: func(plain, _ *mockService) {
				plain.On("GetRepoSummary", mock.Anything, repoURL, "").Return(nil, apperrors.NewUpstreamError(500, "Internal Server Error", ""))
			},
			expectedStatus: http.StatusBadGateway,
			expectedCode:   "UPSTREAM",
		},
		{
			name:   "unclassified error",
			target: "/api/v1/summary?url=" + repoURL,
			setup: func(plain, _ *mockService) {
				plain.On("GetRepoSummary", mock.Anything, repoURL, "").Return(nil, errors.New("boom"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedCode:   "INTERNAL_ERROR",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			plain, detailed := new(mockService), new(mockService)
			tc.setup(plain, detailed)
			router := setupRouter(plain, detailed)

			req := httptest.NewRequest(http.MethodGet, tc.target, nil)
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}
			w := perform(router, req)

			assert.Equal(t, tc.expectedStatus, w.Code)
			plain.AssertExpectations(t)
			detailed.AssertExpectations(t)

			if tc.expectedCode != "" {
				var body errorBody
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
				assert.Equal(t, tc.expectedCode, body.Error.Code)
				assert.NotEmpty(t, body.Error.Message)
				return
			}

			var body struct {
				Data domain.RepoSummary `json:"data"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, "alice/react", body.Data.Forks[0].FullName)
			assert.Equal(t, domain.CountSourceCompare, body.Data.Forks[0].CommitCountSource)
		})
	}
}

func TestGetRepoSummary_RateLimitResetHeader(t *testing.T) {
	plain := new(mockService)
	plain.On("GetRepoSummary", mock.Anything, "https://github.com/a/b", "").Return(nil, apperrors.NewRateLimitedError(time.Unix(1700000000, 0)))
	router := setupRouter(plain, nil)

	w := perform(router, httptest.NewRequest(http.MethodGet, "/api/v1/summary?url=https://github.com/a/b", nil))

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1700000000", w.Header().Get("X-RateLimit-Reset"))
}

func TestGetRepoDetail(t *testing.T) {
	testCases := []struct {
		name           string
		err            error
		expectedStatus int
	}{
		{name: "happy path", expectedStatus: http.StatusOK},
		{name: "unauthorized", err: apperrors.NewUnauthorizedError("bad token"), expectedStatus: http.StatusUnauthorized},
		{name: "stats unavailable", err: apperrors.NewStatsUnavailableError("repos/facebook/react/stats/contributors", 6), expectedStatus: http.StatusServiceUnavailable},
		{name: "not found", err: apperrors.NewNotFoundError("repository facebook/react"), expectedStatus: http.StatusNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			service := new(mockService)
			if tc.err != nil {
				service.On("GetRepoDetail", mock.Anything, "facebook", "react", "tok").Return(nil, tc.err)
			} else {
				service.On("GetRepoDetail", mock.Anything, "facebook", "react", "tok").Return(&domain.RepoDetail{TotalCommits: 12, StatsUnavailable: false}, nil)
			}
			router := setupRouter(service, nil)

			req := httptest.NewRequest(http.MethodGet, "/api/v1/repos/facebook/react/detail", nil)
			req.Header.Set("Authorization", "token tok")
			w := perform(router, req)

			assert.Equal(t, tc.expectedStatus, w.Code)
			service.AssertExpectations(t)
			if tc.err == nil {
				var body struct {
					Data domain.RepoDetail `json:"data"`
				}
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
				assert.Equal(t, 12, body.Data.TotalCommits)
			}
		})
	}
}

func TestGetForkDetails(t *testing.T) {
	service := new(mockService)
	service.On("GetForkDetails", mock.Anything, "alice", "react", "").Return(&domain.ForkDetails{
		CommitCount:    5,
		TopContributor: &domain.ContributorRef{Name: "alice", Commits: 5},
		LinesAdded:     100,
	}, nil)
	router := setupRouter(service, nil)

	w := perform(router, httptest.NewRequest(http.MethodGet, "/api/v1/repos/alice/react/fork-details", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":{"commitCount":5,"topContributor":{"name":"alice","avatarUrl":"","commits":5},"linesAdded":100}}`, w.Body.String())
}

func TestTokenFrom(t *testing.T) {
	gin.SetMode(gin.TestMode)
	testCases := []struct {
		name     string
		headers  map[string]string
		expected string
	}{
		{name: "bearer", headers: map[string]string{"Authorization": "Bearer abc"}, expected: "abc"},
		{name: "token scheme", headers: map[string]string{"Authorization": "token abc"}, expected: "abc"},
		{name: "github header", headers: map[string]string{"X-GitHub-Token": "xyz"}, expected: "xyz"},
		{name: "unknown scheme falls back", headers: map[string]string{"Authorization": "Basic zzz", "X-GitHub-Token": "xyz"}, expected: "xyz"},
		{name: "none", headers: map[string]string{}, expected: ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tc.headers {
				c.Request.Header.Set(k, v)
			}
			assert.Equal(t, tc.expected, tokenFrom(c))
		})
	}
}

func TestCORS_Preflight(t *testing.T) {
	router := setupRouter(new(mockService), nil)

	w := perform(router, httptest.NewRequest(http.MethodOptions, "/api/v1/summary", nil))

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

// blockingService never answers on its own; it returns once the request context is done.
type blockingService struct{}

func (blockingService) GetRepoSummary(ctx context.Context, _, _ string) (*domain.RepoSummary, error) {
	<-ctx.Done()
	return nil, fmt.Errorf("failed to list forks: %w", ctx.Err())
}

func (blockingService) GetRepoDetail(ctx context.Context, _, _, _ string) (*domain.RepoDetail, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (blockingService) GetForkDetails(ctx context.Context, _, _, _ string) (*domain.ForkDetails, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestRequestDeadline(t *testing.T) {
	router := setupRouterWithTimeout(blockingService{}, nil, 20*time.Millisecond)

	for _, target := range []string{
		"/api/v1/summary?url=https://github.com/facebook/react",
		"/api/v1/repos/facebook/react/detail",
		"/api/v1/repos/facebook/react/fork-details",
	} {
		t.Run(target, func(t *testing.T) {
			start := time.Now()
			w := perform(router, httptest.NewRequest(http.MethodGet, target, nil))

			assert.Less(t, time.Since(start), 5*time.Second)
			assert.Equal(t, http.StatusGatewayTimeout, w.Code)
			var body errorBody
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, "TIMEOUT", body.Error.Code)
		})
	}
}
