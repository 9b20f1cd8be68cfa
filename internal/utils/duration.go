package utils

import (
	"fmt"
	"time"
)

// FormatDuration renders d the way run summaries print it:
// seconds below a minute, minutes below an hour, hours above.
func FormatDuration(d time.Duration) string {
	s := d.Seconds()
	switch {
	case s < 60:
		return fmt.Sprintf("%.2f seconds", s)
	case s < 3600:
		return fmt.Sprintf("%.2f minutes", s/60)
	default:
		return fmt.Sprintf("%.2f hours", s/3600)
	}
}
