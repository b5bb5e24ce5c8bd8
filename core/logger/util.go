package logger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Status maps err to a status field value: ok, cancelled or fail.
func Status(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	default:
		return "fail"
	}
}

// Took returns the time since start rounded to milliseconds.
func Took(start time.Time) time.Duration {
	return RoundMS(time.Since(start))
}

// RoundMS rounds d to milliseconds; non-positive durations become zero.
func RoundMS(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d.Round(time.Millisecond)
}

// SummarizeStrings joins at most limit values. When values are cut, the
// preview ends with "+N more" and truncated is true.
func SummarizeStrings(values []string, limit int) (preview string, truncated bool) {
	if len(values) == 0 {
		return "", false
	}
	if limit <= 0 {
		return fmt.Sprintf("+%d more", len(values)), true
	}
	if len(values) <= limit {
		return strings.Join(values, ", "), false
	}
	return fmt.Sprintf("%s, +%d more", strings.Join(values[:limit], ", "), len(values)-limit), true
}
