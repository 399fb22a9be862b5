package entity

import (
	"fmt"
	"strings"
	"time"
)

// The backend serializes timestamps as zone-less LocalDateTime strings;
// history responses and test fixtures may carry RFC 3339 instead.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
}

type Timestamp struct {
	time.Time
}

func Now() Timestamp {
	return Timestamp{Time: time.Now().UTC()}
}

func (that *Timestamp) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	if raw == "null" || raw == "" {
		return nil
	}

	for _, layout := range timestampLayouts {
		parsed, err := time.Parse(layout, raw)
		if err == nil {
			that.Time = parsed
			return nil
		}
	}

	return fmt.Errorf("unsupported timestamp format: %q", raw)
}

func (that Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(`"` + that.Format(time.RFC3339Nano) + `"`), nil
}
