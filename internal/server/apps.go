package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/apphubhq/apphub/internal/apps"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// appPayload is the camelCase wire form of an application record.
type appPayload struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	GithubURL    string          `json:"githubUrl,omitempty"`
	DemoURL      string          `json:"demoUrl,omitempty"`
	TechStack    []string        `json:"techStack"`
	CreatedAt    int64           `json:"createdAt"`
	ThumbnailURL string          `json:"thumbnailUrl,omitempty"`
	ImageURL     string          `json:"imageUrl,omitempty"`
	AIInsights   json.RawMessage `json:"aiInsights,omitempty"`
}

func toAppPayload(record apps.App) appPayload {
	payload := appPayload{
		ID:           record.ID,
		Name:         record.Name,
		Description:  record.Description,
		GithubURL:    record.GithubURL,
		DemoURL:      record.DemoURL,
		TechStack:    record.TechStack,
		CreatedAt:    record.CreatedAtMs,
		ThumbnailURL: record.ThumbnailURL,
		ImageURL:     record.ImageURL,
	}
	if payload.TechStack == nil {
		payload.TechStack = []string{}
	}
	if record.AIInsights != "" {
		payload.AIInsights = json.RawMessage(record.AIInsights)
	}
	return payload
}

type createAppRequest struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	GithubURL    string          `json:"githubUrl"`
	DemoURL      string          `json:"demoUrl"`
	TechStack    []string        `json:"techStack"`
	CreatedAt    int64           `json:"createdAt"`
	ThumbnailURL string          `json:"thumbnailUrl"`
	ImageURL     string          `json:"imageUrl"`
	AIInsights   json.RawMessage `json:"aiInsights"`
}

type updateAppRequest struct {
	Name         *string          `json:"name"`
	Description  *string          `json:"description"`
	GithubURL    *string          `json:"githubUrl"`
	DemoURL      *string          `json:"demoUrl"`
	TechStack    *[]string        `json:"techStack"`
	ThumbnailURL *string          `json:"thumbnailUrl"`
	ImageURL     *string          `json:"imageUrl"`
	AIInsights   *json.RawMessage `json:"aiInsights"`
}

func (h *httpHandler) handleListApps(c *gin.Context) {
	query := apps.Query{
		Search:    c.Query("search"),
		TechStack: c.QueryArray("techStack"),
	}

	records, err := h.appsService.List(c.Request.Context(), query)
	if err != nil {
		h.logger.Error("failed to list apps", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch apps"})
		return
	}

	payloads := make([]appPayload, 0, len(records))
	for _, record := range records {
		payloads = append(payloads, toAppPayload(record))
	}
	c.JSON(http.StatusOK, payloads)
}

func (h *httpHandler) handleGetApp(c *gin.Context) {
	id, err := apps.NewAppID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid app id"})
		return
	}

	record, err := h.appsService.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, apps.ErrAppNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "App not found"})
			return
		}
		h.logger.Error("failed to fetch app", zap.Error(err), zap.String("app_id", id.String()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch app"})
		return
	}

	c.JSON(http.StatusOK, toAppPayload(record))
}

func (h *httpHandler) handleCreateApp(c *gin.Context) {
	var request createAppRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	draft := apps.Draft{
		ID:           request.ID,
		Name:         request.Name,
		Description:  request.Description,
		GithubURL:    request.GithubURL,
		DemoURL:      request.DemoURL,
		TechStack:    request.TechStack,
		CreatedAtMs:  request.CreatedAt,
		ThumbnailURL: request.ThumbnailURL,
		ImageURL:     request.ImageURL,
		AIInsights:   string(request.AIInsights),
	}

	record, err := h.appsService.Create(c.Request.Context(), draft)
	if err != nil {
		switch {
		case errors.Is(err, apps.ErrDuplicateID):
			c.JSON(http.StatusConflict, gin.H{"error": "App with this ID already exists"})
		case errors.Is(err, apps.ErrInvalidName),
			errors.Is(err, apps.ErrInvalidDescription),
			errors.Is(err, apps.ErrInvalidTechStack):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
		default:
			h.logger.Error("failed to create app", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create app"})
		}
		return
	}

	c.JSON(http.StatusCreated, toAppPayload(record))
}

func (h *httpHandler) handleUpdateApp(c *gin.Context) {
	id, err := apps.NewAppID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid app id"})
		return
	}

	var request updateAppRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	patch := apps.Patch{
		Name:         request.Name,
		Description:  request.Description,
		GithubURL:    request.GithubURL,
		DemoURL:      request.DemoURL,
		TechStack:    request.TechStack,
		ThumbnailURL: request.ThumbnailURL,
		ImageURL:     request.ImageURL,
	}
	if request.AIInsights != nil {
		raw := string(*request.AIInsights)
		patch.AIInsights = &raw
	}

	record, err := h.appsService.Update(c.Request.Context(), id, patch)
	if err != nil {
		if errors.Is(err, apps.ErrAppNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "App not found"})
			return
		}
		h.logger.Error("failed to update app", zap.Error(err), zap.String("app_id", id.String()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update app"})
		return
	}

	c.JSON(http.StatusOK, toAppPayload(record))
}

func (h *httpHandler) handleDeleteApp(c *gin.Context) {
	id, err := apps.NewAppID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid app id"})
		return
	}

	if err := h.appsService.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, apps.ErrAppNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "App not found"})
			return
		}
		h.logger.Error("failed to delete app", zap.Error(err), zap.String("app_id", id.String()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete app"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "App deleted successfully", "id": id.String()})
}
