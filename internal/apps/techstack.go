package apps

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// TechStackColumn stores an ordered list of technology names as a JSON text
// column so the same model works on both Postgres and SQLite.
type TechStackColumn []string

// Value implements driver.Valuer.
func (ts TechStackColumn) Value() (driver.Value, error) {
	if ts == nil {
		ts = TechStackColumn{}
	}
	encoded, err := json.Marshal([]string(ts))
	if err != nil {
		return nil, err
	}
	return string(encoded), nil
}

// Scan implements sql.Scanner.
func (ts *TechStackColumn) Scan(value any) error {
	switch typed := value.(type) {
	case nil:
		*ts = TechStackColumn{}
		return nil
	case string:
		return ts.decode([]byte(typed))
	case []byte:
		return ts.decode(typed)
	default:
		return fmt.Errorf("apps: unsupported tech stack column type %T", value)
	}
}

func (ts *TechStackColumn) decode(raw []byte) error {
	if len(raw) == 0 {
		*ts = TechStackColumn{}
		return nil
	}
	var entries []string
	if err := json.Unmarshal(raw, &entries); err != nil {
		return fmt.Errorf("apps: malformed tech stack column: %w", err)
	}
	*ts = TechStackColumn(entries)
	return nil
}

// Intersects reports whether any entry of the stack appears in the filter
// set, compared case-insensitively.
func (ts TechStackColumn) Intersects(filter []string) bool {
	if len(filter) == 0 {
		return true
	}
	wanted := make(map[string]struct{}, len(filter))
	for _, entry := range filter {
		wanted[strings.ToLower(strings.TrimSpace(entry))] = struct{}{}
	}
	for _, entry := range ts {
		if _, ok := wanted[strings.ToLower(entry)]; ok {
			return true
		}
	}
	return false
}
