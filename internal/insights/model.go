package insights

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidInsightID = errors.New("insights: invalid insight id")
	ErrInvalidAppRef    = errors.New("insights: invalid app reference")
	ErrInvalidSummary   = errors.New("insights: invalid summary")
)

// StringList stores a list of short texts as a JSON text column.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		l = StringList{}
	}
	encoded, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(encoded), nil
}

func (l *StringList) Scan(value any) error {
	switch typed := value.(type) {
	case nil:
		*l = StringList{}
		return nil
	case string:
		return l.decode([]byte(typed))
	case []byte:
		return l.decode(typed)
	default:
		return fmt.Errorf("insights: unsupported list column type %T", value)
	}
}

func (l *StringList) decode(raw []byte) error {
	if len(raw) == 0 {
		*l = StringList{}
		return nil
	}
	var entries []string
	if err := json.Unmarshal(raw, &entries); err != nil {
		return fmt.Errorf("insights: malformed list column: %w", err)
	}
	*l = StringList(entries)
	return nil
}

// Insight is a stored AI review of an application: a prose summary plus
// suggestion and challenge bullet lists. Generation happens elsewhere; this
// package only persists the result.
type Insight struct {
	ID                  string     `gorm:"column:id;primaryKey;size:190;not null"`
	AppID               string     `gorm:"column:app_id;size:190;not null;index:idx_insights_app"`
	Summary             string     `gorm:"column:summary;type:text;not null"`
	Suggestions         StringList `gorm:"column:suggestions;type:text"`
	TechnicalChallenges StringList `gorm:"column:technical_challenges;type:text"`
	CreatedAtMs         int64      `gorm:"column:created_at_ms;not null"`
	UpdatedAtMs         int64      `gorm:"column:updated_at_ms;not null"`
}

func (Insight) TableName() string {
	return "ai_insights"
}

// Draft carries caller-supplied fields for storing an insight.
type Draft struct {
	ID                  string
	AppID               string
	Summary             string
	Suggestions         []string
	TechnicalChallenges []string
}

func validateDraft(draft Draft) error {
	if strings.TrimSpace(draft.AppID) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidAppRef)
	}
	if strings.TrimSpace(draft.Summary) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidSummary)
	}
	return nil
}
