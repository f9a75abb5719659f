package tools

import (
	"fmt"
	"math"
	"time"
)

// formatSize renders a byte count with binary (1024-based) unit steps and
// one decimal place: 0 -> "0.0 B", 1536 -> "1.5 KB".
func formatSize(size int64) string {
	value := float64(size)
	for _, unit := range []string{"B", "KB", "MB", "GB", "TB"} {
		if math.Abs(value) < 1024.0 {
			return fmt.Sprintf("%.1f %s", value, unit)
		}
		value /= 1024.0
	}
	return fmt.Sprintf("%.1f PB", value)
}

// timestampOrNil renders a timestamp as RFC 3339, or nil when the backend
// reported none.
func timestampOrNil(ts time.Time) any {
	if ts.IsZero() {
		return nil
	}
	return ts.UTC().Format(time.RFC3339)
}
