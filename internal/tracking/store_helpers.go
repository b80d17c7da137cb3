package tracking

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func marshalMetadata(meta Metadata) (any, error) {
	if len(meta) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}
	return string(raw), nil
}

func unmarshalMetadata(raw sql.NullString) Metadata {
	if !raw.Valid || raw.String == "" {
		return nil
	}
	var meta Metadata
	if err := json.Unmarshal([]byte(raw.String), &meta); err != nil {
		// Malformed stored metadata is preserved verbatim rather than lost.
		return Metadata{"_raw": raw.String}
	}
	return meta
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

// timeLayout is fixed-width (no trimmed fractional zeros) so stored
// timestamps compare correctly as strings in SQL.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(value time.Time) string {
	return value.UTC().Format(timeLayout)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
