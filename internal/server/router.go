package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/apphubhq/apphub/internal/apps"
	"github.com/apphubhq/apphub/internal/feedback"
	"github.com/apphubhq/apphub/internal/insights"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var (
	errMissingAppsService     = errors.New("apps service dependency required")
	errMissingFeedbackService = errors.New("feedback service dependency required")
	errMissingInsightsService = errors.New("insights service dependency required")
)

// Dependencies wires the services the HTTP layer exposes.
type Dependencies struct {
	AppsService     *apps.Service
	FeedbackService *feedback.Service
	InsightsService *insights.Service
	CORSOrigins     []string
	Clock           func() time.Time
	Logger          *zap.Logger
}

// NewHTTPHandler assembles the gin router for the REST contract. Routes are
// registered under both /api and /api/v1 because deployed clients use either
// prefix.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.AppsService == nil {
		return nil, errMissingAppsService
	}
	if deps.FeedbackService == nil {
		return nil, errMissingFeedbackService
	}
	if deps.InsightsService == nil {
		return nil, errMissingInsightsService
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	origins := deps.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	handler := &httpHandler{
		appsService:     deps.AppsService,
		feedbackService: deps.FeedbackService,
		insightsService: deps.InsightsService,
		clock:           clock,
		logger:          logger,
	}

	for _, prefix := range []string{"/api", "/api/v1"} {
		group := router.Group(prefix)
		group.GET("/health", handler.handleHealth)

		group.GET("/apps", handler.handleListApps)
		group.GET("/apps/:id", handler.handleGetApp)
		group.POST("/apps", handler.handleCreateApp)
		group.PUT("/apps/:id", handler.handleUpdateApp)
		group.DELETE("/apps/:id", handler.handleDeleteApp)

		group.GET("/feedback", handler.handleListFeedback)
		group.GET("/feedback/:id", handler.handleGetFeedback)
		group.POST("/feedback", handler.handleCreateFeedback)
		group.PUT("/feedback/:id", handler.handleUpdateFeedback)
		group.POST("/feedback/:id/vote", handler.handleVoteFeedback)
		group.DELETE("/feedback/:id", handler.handleDeleteFeedback)

		group.GET("/ai-insights", handler.handleListInsights)
		group.GET("/ai-insights/:id", handler.handleGetInsight)
		group.POST("/ai-insights", handler.handleCreateInsight)
		group.DELETE("/ai-insights/:id", handler.handleDeleteInsight)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Route not found"})
	})

	return router, nil
}

type httpHandler struct {
	appsService     *apps.Service
	feedbackService *feedback.Service
	insightsService *insights.Service
	clock           func() time.Time
	logger          *zap.Logger
}

func (h *httpHandler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": h.clock().UTC().Format(time.RFC3339),
	})
}
