package rest

import "encoding/json"

// App is the wire form of an application record as served by the API.
type App struct {
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

// AppDraft carries the fields a client supplies when creating an app. ID and
// CreatedAt may be left zero for the server to assign.
type AppDraft struct {
	ID           string          `json:"id,omitempty"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	GithubURL    string          `json:"githubUrl,omitempty"`
	DemoURL      string          `json:"demoUrl,omitempty"`
	TechStack    []string        `json:"techStack"`
	CreatedAt    int64           `json:"createdAt,omitempty"`
	ThumbnailURL string          `json:"thumbnailUrl,omitempty"`
	ImageURL     string          `json:"imageUrl,omitempty"`
	AIInsights   json.RawMessage `json:"aiInsights,omitempty"`
}

// AppPatch is a partial update; nil fields are omitted from the request so
// the server preserves the stored values.
type AppPatch struct {
	Name         *string          `json:"name,omitempty"`
	Description  *string          `json:"description,omitempty"`
	GithubURL    *string          `json:"githubUrl,omitempty"`
	DemoURL      *string          `json:"demoUrl,omitempty"`
	TechStack    *[]string        `json:"techStack,omitempty"`
	ThumbnailURL *string          `json:"thumbnailUrl,omitempty"`
	ImageURL     *string          `json:"imageUrl,omitempty"`
	AIInsights   *json.RawMessage `json:"aiInsights,omitempty"`
}

// Feedback is the wire form of a feedback record as served by the API.
type Feedback struct {
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

// FeedbackDraft carries the fields a client supplies when creating feedback.
// The server assigns id, timestamp, zero votes, OPEN status, and an anonymous
// author where omitted.
type FeedbackDraft struct {
	ID          string `json:"id,omitempty"`
	AppID       string `json:"appId"`
	Type        string `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description"`
	CreatedAt   int64  `json:"createdAt,omitempty"`
	Author      string `json:"author,omitempty"`
}

// FeedbackPatch is a partial update to a feedback record.
type FeedbackPatch struct {
	Type        *string `json:"type,omitempty"`
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Votes       *int64  `json:"votes,omitempty"`
	Status      *string `json:"status,omitempty"`
}

// AppsQuery narrows ListApps results.
type AppsQuery struct {
	Search    string
	TechStack []string
}

// FeedbackQuery narrows ListFeedback results.
type FeedbackQuery struct {
	AppID  string
	Status string
	Type   string
}

// DeleteResult is the body returned by delete endpoints.
type DeleteResult struct {
	Message string `json:"message"`
	ID      string `json:"id"`
}

// Health is the body returned by the health endpoint.
type Health struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}
