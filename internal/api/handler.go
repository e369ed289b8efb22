// Package api exposes the fork statistics over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/naka-gawa/github-fork-stats/internal/domain"
	apperrors "github.com/naka-gawa/github-fork-stats/internal/errors"
)

// Service is the aggregation layer the handler serves.
type Service interface {
	GetRepoSummary(ctx context.Context, repoURL, token string) (*domain.RepoSummary, error)
	GetRepoDetail(ctx context.Context, owner, repo, token string) (*domain.RepoDetail, error)
	GetForkDetails(ctx context.Context, owner, repo, token string) (*domain.ForkDetails, error)
}

// Handler handles API requests
type Handler struct {
	service  Service
	detailed Service
	logger   *logrus.Entry
}

// NewHandler creates a new API handler. detailed serves summaries requested with
// details=true; when nil, service is used for those too.
func NewHandler(service, detailed Service, logger *logrus.Entry) *Handler {
	if detailed == nil {
		detailed = service
	}
	return &Handler{
		service:  service,
		detailed: detailed,
		logger:   logger.WithField("component", "api"),
	}
}

// HealthCheck returns the health status of the API
// GET /health
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// GetRepoSummary returns the forks and recent committers of a repository
// GET /api/v1/summary?url=https://github.com/owner/repo
func (h *Handler) GetRepoSummary(c *gin.Context) {
	repoURL := c.Query("url")
	if repoURL == "" {
		respondError(c, apperrors.NewBadRequestError("query parameter 'url' is required"))
		return
	}

	service := h.service
	if details, _ := strconv.ParseBool(c.Query("details")); details {
		service = h.detailed
	}

	summary, err := service.GetRepoSummary(c.Request.Context(), repoURL, tokenFrom(c))
	if err != nil {
		h.logError(c, err)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": summary,
	})
}

// GetRepoDetail returns contributor stats and commit activity of a repository
// GET /api/v1/repos/:owner/:repo/detail
func (h *Handler) GetRepoDetail(c *gin.Context) {
	owner := c.Param("owner")
	repo := c.Param("repo")

	detail, err := h.service.GetRepoDetail(c.Request.Context(), owner, repo, tokenFrom(c))
	if err != nil {
		h.logError(c, err)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": detail,
	})
}

// GetForkDetails returns a fork's commit count, top contributor and lines added
// GET /api/v1/repos/:owner/:repo/fork-details
func (h *Handler) GetForkDetails(c *gin.Context) {
	owner := c.Param("owner")
	repo := c.Param("repo")

	details, err := h.service.GetForkDetails(c.Request.Context(), owner, repo, tokenFrom(c))
	if err != nil {
		h.logError(c, err)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": details,
	})
}

func (h *Handler) logError(c *gin.Context, err error) {
	h.logger.WithFields(logrus.Fields{
		"request_id": c.GetString(requestIDKey),
		"path":       c.FullPath(),
		"code":       apperrors.CodeOf(err),
		"error":      err,
	}).Warn("Request failed")
}

// tokenFrom reads the caller's GitHub token from "Authorization: Bearer <t>",
// "Authorization: token <t>" or "X-GitHub-Token". Empty means the server default.
func tokenFrom(c *gin.Context) string {
	if auth := c.GetHeader("Authorization"); auth != "" {
		scheme, value, ok := strings.Cut(auth, " ")
		if ok && (strings.EqualFold(scheme, "Bearer") || strings.EqualFold(scheme, "token")) {
			return strings.TrimSpace(value)
		}
	}
	return strings.TrimSpace(c.GetHeader("X-GitHub-Token"))
}

func statusOf(code apperrors.ErrCode) int {
	switch code {
	case apperrors.ErrCodeInvalidURL, apperrors.ErrCodeBadRequest:
		return http.StatusBadRequest
	case apperrors.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case apperrors.ErrCodeNotFound:
		return http.StatusNotFound
	case apperrors.ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case apperrors.ErrCodeUpstream:
		return http.StatusBadGateway
	case apperrors.ErrCodeStatsUnavailable:
		return http.StatusServiceUnavailable
	case apperrors.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func respondError(c *gin.Context, err error) {
	if errors.Is(err, context.DeadlineExceeded) && apperrors.CodeOf(err) == "" {
		err = apperrors.NewTimeoutError(err)
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		if appErr.Code == apperrors.ErrCodeRateLimited && !appErr.ResetAt.IsZero() {
			c.Header("X-RateLimit-Reset", strconv.FormatInt(appErr.ResetAt.Unix(), 10))
		}
		c.JSON(statusOf(appErr.Code), gin.H{
			"error": gin.H{
				"code":    appErr.Code,
				"message": appErr.Message,
			},
		})
		return
	}

	c.JSON(http.StatusInternalServerError, gin.H{
		"error": gin.H{
			"code":    apperrors.ErrCodeInternal,
			"message": err.Error(),
		},
	})
}
