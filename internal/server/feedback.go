package server

import (
	"errors"
	"net/http"

	"github.com/apphubhq/apphub/internal/feedback"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// feedbackPayload is the camelCase wire form of a feedback record.
type feedbackPayload struct {
	ID          string `json:"id"`
	AppID       string `json:"appId"`
	Type        string `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description"`
	CreatedAt   int64  `json:"createdAt"`
	Votes       int64  `json:"votes"`
	Status      string `json:"status"`
	Author      string `json:"author"`
}

func toFeedbackPayload(record feedback.Feedback) feedbackPayload {
	return feedbackPayload{
		ID:          record.ID,
		AppID:       record.AppID,
		Type:        string(record.Type),
		Title:       record.Title,
		Description: record.Description,
		CreatedAt:   record.CreatedAtMs,
		Votes:       record.Votes,
		Status:      string(record.Status),
		Author:      record.Author,
	}
}

type createFeedbackRequest struct {
	ID          string `json:"id"`
	AppID       string `json:"appId"`
	Type        string `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description"`
	CreatedAt   int64  `json:"createdAt"`
	Votes       int64  `json:"votes"`
	Status      string `json:"status"`
	Author      string `json:"author"`
}

type updateFeedbackRequest struct {
	Type        *string `json:"type"`
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Votes       *int64  `json:"votes"`
	Status      *string `json:"status"`
}

type voteRequest struct {
	Increment *int64 `json:"increment"`
}

func (h *httpHandler) handleListFeedback(c *gin.Context) {
	query := feedback.Query{AppID: c.Query("appId")}
	if raw := c.Query("status"); raw != "" {
		status, err := feedback.ParseStatus(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid feedback status"})
			return
		}
		query.Status = status
	}
	if raw := c.Query("type"); raw != "" {
		feedbackType, err := feedback.ParseType(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid feedback type"})
			return
		}
		query.Type = feedbackType
	}

	records, err := h.feedbackService.List(c.Request.Context(), query)
	if err != nil {
		h.logger.Error("failed to list feedback", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch feedback"})
		return
	}

	payloads := make([]feedbackPayload, 0, len(records))
	for _, record := range records {
		payloads = append(payloads, toFeedbackPayload(record))
	}
	c.JSON(http.StatusOK, payloads)
}

func (h *httpHandler) handleGetFeedback(c *gin.Context) {
	id, err := feedback.NewFeedbackID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid feedback id"})
		return
	}

	record, err := h.feedbackService.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, feedback.ErrFeedbackNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Feedback not found"})
			return
		}
		h.logger.Error("failed to fetch feedback", zap.Error(err), zap.String("feedback_id", id.String()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch feedback"})
		return
	}

	c.JSON(http.StatusOK, toFeedbackPayload(record))
}

func (h *httpHandler) handleCreateFeedback(c *gin.Context) {
	var request createFeedbackRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	draft := feedback.Draft{
		ID:          request.ID,
		AppID:       request.AppID,
		Type:        feedback.Type(request.Type),
		Title:       request.Title,
		Description: request.Description,
		CreatedAtMs: request.CreatedAt,
		Votes:       request.Votes,
		Status:      feedback.Status(request.Status),
		Author:      request.Author,
	}

	record, err := h.feedbackService.Create(c.Request.Context(), draft)
	if err != nil {
		switch {
		case errors.Is(err, feedback.ErrAppNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "App not found"})
		case errors.Is(err, feedback.ErrDuplicateID):
			c.JSON(http.StatusConflict, gin.H{"error": "Feedback with this ID already exists"})
		case errors.Is(err, feedback.ErrInvalidType):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid feedback type"})
		case errors.Is(err, feedback.ErrInvalidStatus):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid feedback status"})
		case errors.Is(err, feedback.ErrInvalidTitle),
			errors.Is(err, feedback.ErrInvalidDescription),
			errors.Is(err, feedback.ErrInvalidAppRef):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
		default:
			h.logger.Error("failed to create feedback", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create feedback"})
		}
		return
	}

	c.JSON(http.StatusCreated, toFeedbackPayload(record))
}

func (h *httpHandler) handleUpdateFeedback(c *gin.Context) {
	id, err := feedback.NewFeedbackID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid feedback id"})
		return
	}

	var request updateFeedbackRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	patch := feedback.Patch{
		Title:       request.Title,
		Description: request.Description,
		Votes:       request.Votes,
	}
	if request.Type != nil {
		feedbackType := feedback.Type(*request.Type)
		patch.Type = &feedbackType
	}
	if request.Status != nil {
		status := feedback.Status(*request.Status)
		patch.Status = &status
	}

	record, err := h.feedbackService.Update(c.Request.Context(), id, patch)
	if err != nil {
		switch {
		case errors.Is(err, feedback.ErrFeedbackNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Feedback not found"})
		case errors.Is(err, feedback.ErrInvalidType):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid feedback type"})
		case errors.Is(err, feedback.ErrInvalidStatus):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid feedback status"})
		default:
			h.logger.Error("failed to update feedback", zap.Error(err), zap.String("feedback_id", id.String()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update feedback"})
		}
		return
	}

	c.JSON(http.StatusOK, toFeedbackPayload(record))
}

func (h *httpHandler) handleVoteFeedback(c *gin.Context) {
	id, err := feedback.NewFeedbackID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid feedback id"})
		return
	}

	increment := int64(1)
	var request voteRequest
	if c.Request.Body != nil && c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&request); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		if request.Increment != nil {
			increment = *request.Increment
		}
	}

	record, err := h.feedbackService.Vote(c.Request.Context(), id, increment)
	if err != nil {
		if errors.Is(err, feedback.ErrFeedbackNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Feedback not found"})
			return
		}
		h.logger.Error("failed to vote feedback", zap.Error(err), zap.String("feedback_id", id.String()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to vote feedback"})
		return
	}

	c.JSON(http.StatusOK, toFeedbackPayload(record))
}

func (h *httpHandler) handleDeleteFeedback(c *gin.Context) {
	id, err := feedback.NewFeedbackID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid feedback id"})
		return
	}

	if err := h.feedbackService.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, feedback.ErrFeedbackNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Feedback not found"})
			return
		}
		h.logger.Error("failed to delete feedback", zap.Error(err), zap.String("feedback_id", id.String()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete feedback"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Feedback deleted successfully", "id": id.String()})
}
