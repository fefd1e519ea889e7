package server

import (
	"errors"
	"net/http"

	"github.com/apphubhq/apphub/internal/insights"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type insightPayload struct {
	ID                  string   `json:"id"`
	AppID               string   `json:"appId"`
	Summary             string   `json:"summary"`
	Suggestions         []string `json:"suggestions"`
	TechnicalChallenges []string `json:"technicalChallenges"`
	CreatedAt           int64    `json:"createdAt"`
	UpdatedAt           int64    `json:"updatedAt"`
}

func toInsightPayload(record insights.Insight) insightPayload {
	payload := insightPayload{
		ID:                  record.ID,
		AppID:               record.AppID,
		Summary:             record.Summary,
		Suggestions:         record.Suggestions,
		TechnicalChallenges: record.TechnicalChallenges,
		CreatedAt:           record.CreatedAtMs,
		UpdatedAt:           record.UpdatedAtMs,
	}
	if payload.Suggestions == nil {
		payload.Suggestions = []string{}
	}
	if payload.TechnicalChallenges == nil {
		payload.TechnicalChallenges = []string{}
	}
	return payload
}

type createInsightRequest struct {
	ID                  string   `json:"id"`
	AppID               string   `json:"appId"`
	Summary             string   `json:"summary"`
	Suggestions         []string `json:"suggestions"`
	TechnicalChallenges []string `json:"technicalChallenges"`
}

func (h *httpHandler) handleListInsights(c *gin.Context) {
	records, err := h.insightsService.List(c.Request.Context(), c.Query("appId"))
	if err != nil {
		h.logger.Error("failed to list insights", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch AI insights"})
		return
	}

	payloads := make([]insightPayload, 0, len(records))
	for _, record := range records {
		payloads = append(payloads, toInsightPayload(record))
	}
	c.JSON(http.StatusOK, payloads)
}

func (h *httpHandler) handleGetInsight(c *gin.Context) {
	record, err := h.insightsService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, insights.ErrInsightNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "AI insight not found"})
			return
		}
		h.logger.Error("failed to fetch insight", zap.Error(err), zap.String("insight_id", c.Param("id")))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch AI insight"})
		return
	}

	c.JSON(http.StatusOK, toInsightPayload(record))
}

func (h *httpHandler) handleCreateInsight(c *gin.Context) {
	var request createInsightRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	record, err := h.insightsService.Create(c.Request.Context(), insights.Draft{
		ID:                  request.ID,
		AppID:               request.AppID,
		Summary:             request.Summary,
		Suggestions:         request.Suggestions,
		TechnicalChallenges: request.TechnicalChallenges,
	})
	if err != nil {
		switch {
		case errors.Is(err, insights.ErrAppNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "App not found"})
		case errors.Is(err, insights.ErrDuplicateID):
			c.JSON(http.StatusConflict, gin.H{"error": "AI insight with this ID already exists"})
		case errors.Is(err, insights.ErrInvalidAppRef), errors.Is(err, insights.ErrInvalidSummary):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields: appId and summary"})
		default:
			h.logger.Error("failed to create insight", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create AI insight"})
		}
		return
	}

	c.JSON(http.StatusCreated, toInsightPayload(record))
}

func (h *httpHandler) handleDeleteInsight(c *gin.Context) {
	if err := h.insightsService.Delete(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, insights.ErrInsightNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "AI insight not found"})
			return
		}
		h.logger.Error("failed to delete insight", zap.Error(err), zap.String("insight_id", c.Param("id")))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete AI insight"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "AI insight deleted successfully", "id": c.Param("id")})
}
