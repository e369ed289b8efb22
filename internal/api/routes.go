package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// SetupRoutes sets up the API routes. requestTimeout bounds every /api/v1 request.
func SetupRoutes(handler *Handler, logger *logrus.Entry, requestTimeout time.Duration) *gin.Engine {
	router := gin.New()

	// Middleware
	router.Use(RequestID())
	router.Use(Recovery())
	router.Use(CORS())
	router.Use(Logger(logger.WithField("component", "http")))

	// Health check
	router.GET("/health", handler.HealthCheck)

	// API v1
	v1 := router.Group("/api/v1", Deadline(requestTimeout))
	{
		v1.GET("/summary", handler.GetRepoSummary)

		repos := v1.Group("/repos/:owner/:repo")
		{
			repos.GET("/detail", handler.GetRepoDetail)
			repos.GET("/fork-details", handler.GetForkDetails)
		}
	}

	return router
}
