package history

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bnema/limitwatch/internal/domain"
)

// ParseSince turns a window expression into the start of the query range.
// Accepted forms: relative "Nh" and "Nd" (so the 24h/7d/30d/90d presets all
// parse here), a plain date, or a full RFC 3339 timestamp.
func ParseSince(raw string, now time.Time) (time.Time, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return time.Time{}, fmt.Errorf("%w: empty time window", domain.ErrInvalidInput)
	}

	lowered := strings.ToLower(trimmed)
	if value, ok := strings.CutSuffix(lowered, "h"); ok {
		if hours, err := strconv.Atoi(value); err == nil && hours > 0 {
			return now.Add(-time.Duration(hours) * time.Hour).UTC(), nil
		}
	}
	if value, ok := strings.CutSuffix(lowered, "d"); ok {
		if days, err := strconv.Atoi(value); err == nil && days > 0 {
			return now.Add(-time.Duration(days) * 24 * time.Hour).UTC(), nil
		}
	}

	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if parsed, err := time.Parse(layout, trimmed); err == nil {
			return parsed.UTC(), nil
		}
	}

	return time.Time{}, fmt.Errorf("%w: cannot parse time window %q", domain.ErrInvalidInput, raw)
}
