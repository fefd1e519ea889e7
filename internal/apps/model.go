package apps

import (
	"errors"
	"fmt"
	"strings"
)

const maxIdentifierLength = 190

var (
	// ErrInvalidAppID indicates that an application identifier is empty or exceeds storage bounds.
	ErrInvalidAppID = errors.New("apps: invalid app id")
	// ErrInvalidName indicates that an application name is empty.
	ErrInvalidName = errors.New("apps: invalid name")
	// ErrInvalidDescription indicates that an application description is empty.
	ErrInvalidDescription = errors.New("apps: invalid description")
	// ErrInvalidTechStack indicates that the tech stack is empty or contains blank entries.
	ErrInvalidTechStack = errors.New("apps: invalid tech stack")
)

// AppID represents a validated application identifier.
type AppID string

// NewAppID validates raw input and returns an AppID.
func NewAppID(rawInput string) (AppID, error) {
	trimmed := strings.TrimSpace(rawInput)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidAppID)
	}
	if len(trimmed) > maxIdentifierLength {
		return "", fmt.Errorf("%w: exceeds %d characters", ErrInvalidAppID, maxIdentifierLength)
	}
	return AppID(trimmed), nil
}

// String returns the underlying string identifier.
func (id AppID) String() string {
	return string(id)
}

// App models a registered application with its display metadata.
//
// ThumbnailURL and ImageURL are legacy twins: older clients wrote one or the
// other, so both columns persist and normalization at the service boundary
// keeps them resolving to the same value.
type App struct {
	ID           string          `gorm:"column:id;primaryKey;size:190;not null"`
	Name         string          `gorm:"column:name;size:320;not null"`
	Description  string          `gorm:"column:description;type:text;not null"`
	GithubURL    string          `gorm:"column:github_url;size:512"`
	DemoURL      string          `gorm:"column:demo_url;size:512"`
	TechStack    TechStackColumn `gorm:"column:tech_stack;type:text;not null"`
	CreatedAtMs  int64           `gorm:"column:created_at_ms;not null;index:idx_apps_created,sort:desc"`
	ThumbnailURL string          `gorm:"column:thumbnail_url;size:512"`
	ImageURL     string          `gorm:"column:image_url;size:512"`
	AIInsights   string          `gorm:"column:ai_insights;type:text"`
}

// TableName provides the explicit table binding for GORM.
func (App) TableName() string {
	return "apps"
}

// Draft carries the caller-supplied fields for creating an application.
// ID and CreatedAtMs are optional; the service assigns them when absent.
type Draft struct {
	ID           string
	Name         string
	Description  string
	GithubURL    string
	DemoURL      string
	TechStack    []string
	CreatedAtMs  int64
	ThumbnailURL string
	ImageURL     string
	AIInsights   string
}

// Patch carries a partial update; nil fields leave the stored value untouched.
type Patch struct {
	Name         *string
	Description  *string
	GithubURL    *string
	DemoURL      *string
	TechStack    *[]string
	ThumbnailURL *string
	ImageURL     *string
	AIInsights   *string
}

// Query narrows List results.
type Query struct {
	// Search matches case-insensitively against name or description.
	Search string
	// TechStack matches apps whose stack intersects the given set.
	TechStack []string
}

func validateDraft(draft Draft) error {
	if strings.TrimSpace(draft.Name) == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidName)
	}
	if strings.TrimSpace(draft.Description) == "" {
		return fmt.Errorf("%w: empty description", ErrInvalidDescription)
	}
	if len(draft.TechStack) == 0 {
		return fmt.Errorf("%w: empty", ErrInvalidTechStack)
	}
	for _, entry := range draft.TechStack {
		if strings.TrimSpace(entry) == "" {
			return fmt.Errorf("%w: blank entry", ErrInvalidTechStack)
		}
	}
	return nil
}

// normalizeImageURLs resolves the legacy thumbnail/image pair to one value.
func normalizeImageURLs(thumbnailURL, imageURL string) (string, string) {
	resolved := imageURL
	if resolved == "" {
		resolved = thumbnailURL
	}
	return resolved, resolved
}
