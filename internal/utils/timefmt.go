package utils

import (
	"fmt"
	"time"
)

// FormatRemaining renders a remaining-session duration the way the
// session indicator shows it, e.g. "2h 59m".
func FormatRemaining(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	h := int(d / time.Hour)
	m := int((d % time.Hour) / time.Minute)
	return fmt.Sprintf("%dh %dm", h, m)
}
