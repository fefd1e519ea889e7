package feedback

import (
	"errors"
	"fmt"
	"strings"
)

const maxIdentifierLength = 190

// DefaultAuthor is recorded when a submitter leaves the author field blank.
const DefaultAuthor = "Anonymous"

var (
	// ErrInvalidFeedbackID indicates that a feedback identifier is empty or exceeds storage bounds.
	ErrInvalidFeedbackID = errors.New("feedback: invalid feedback id")
	// ErrInvalidType indicates a value outside the feedback type enumeration.
	ErrInvalidType = errors.New("feedback: invalid type")
	// ErrInvalidStatus indicates a value outside the feedback status enumeration.
	ErrInvalidStatus = errors.New("feedback: invalid status")
	// ErrInvalidTitle indicates that a feedback title is empty.
	ErrInvalidTitle = errors.New("feedback: invalid title")
	// ErrInvalidDescription indicates that a feedback description is empty.
	ErrInvalidDescription = errors.New("feedback: invalid description")
	// ErrInvalidAppRef indicates that the referenced application identifier is empty.
	ErrInvalidAppRef = errors.New("feedback: invalid app reference")
)

// Type enumerates the feedback categories.
type Type string

const (
	TypeBug         Type = "BUG"
	TypeFeature     Type = "FEATURE"
	TypeImprovement Type = "IMPROVEMENT"
	TypeOther       Type = "OTHER"
)

// ParseType validates raw input against the type enumeration.
func ParseType(rawInput string) (Type, error) {
	switch Type(strings.ToUpper(strings.TrimSpace(rawInput))) {
	case TypeBug:
		return TypeBug, nil
	case TypeFeature:
		return TypeFeature, nil
	case TypeImprovement:
		return TypeImprovement, nil
	case TypeOther:
		return TypeOther, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidType, rawInput)
	}
}

// Status enumerates the feedback lifecycle states.
type Status string

const (
	StatusOpen       Status = "OPEN"
	StatusInProgress Status = "IN_PROGRESS"
	StatusResolved   Status = "RESOLVED"
)

// ParseStatus validates raw input against the status enumeration.
func ParseStatus(rawInput string) (Status, error) {
	switch Status(strings.ToUpper(strings.TrimSpace(rawInput))) {
	case StatusOpen:
		return StatusOpen, nil
	case StatusInProgress:
		return StatusInProgress, nil
	case StatusResolved:
		return StatusResolved, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, rawInput)
	}
}

// FeedbackID represents a validated feedback identifier.
type FeedbackID string

// NewFeedbackID validates raw input and returns a FeedbackID.
func NewFeedbackID(rawInput string) (FeedbackID, error) {
	trimmed := strings.TrimSpace(rawInput)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidFeedbackID)
	}
	if len(trimmed) > maxIdentifierLength {
		return "", fmt.Errorf("%w: exceeds %d characters", ErrInvalidFeedbackID, maxIdentifierLength)
	}
	return FeedbackID(trimmed), nil
}

// String returns the underlying string identifier.
func (id FeedbackID) String() string {
	return string(id)
}

// Feedback models a single piece of structured feedback attached to an app.
type Feedback struct {
	ID          string `gorm:"column:id;primaryKey;size:190;not null"`
	AppID       string `gorm:"column:app_id;size:190;not null;index:idx_feedback_app"`
	Type        Type   `gorm:"column:type;size:32;not null"`
	Title       string `gorm:"column:title;size:320;not null"`
	Description string `gorm:"column:description;type:text;not null"`
	CreatedAtMs int64  `gorm:"column:created_at_ms;not null;index:idx_feedback_created,sort:desc"`
	Votes       int64  `gorm:"column:votes;not null;default:0"`
	Status      Status `gorm:"column:status;size:32;not null;default:'OPEN'"`
	Author      string `gorm:"column:author;size:320;not null"`
}

// TableName provides the explicit table binding for GORM.
func (Feedback) TableName() string {
	return "feedback"
}

// Draft carries caller-supplied fields for creating feedback. ID, timestamp,
// vote count, status, and author all have service-assigned defaults.
type Draft struct {
	ID          string
	AppID       string
	Type        Type
	Title       string
	Description string
	CreatedAtMs int64
	Votes       int64
	Status      Status
	Author      string
}

// Patch carries a partial update; nil fields leave the stored value untouched.
type Patch struct {
	Type        *Type
	Title       *string
	Description *string
	Votes       *int64
	Status      *Status
}

// Query narrows List results.
type Query struct {
	AppID  string
	Status Status
	Type   Type
}

func validateDraft(draft Draft) error {
	if strings.TrimSpace(draft.AppID) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidAppRef)
	}
	if _, err := ParseType(string(draft.Type)); err != nil {
		return err
	}
	if draft.Status != "" {
		if _, err := ParseStatus(string(draft.Status)); err != nil {
			return err
		}
	}
	if strings.TrimSpace(draft.Title) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidTitle)
	}
	if strings.TrimSpace(draft.Description) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidDescription)
	}
	return nil
}
