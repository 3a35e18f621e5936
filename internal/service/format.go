package service

import (
	"fmt"
	"time"
)

var germanMonths = [...]string{
	"Januar", "Februar", "März", "April", "Mai", "Juni",
	"Juli", "August", "September", "Oktober", "November", "Dezember",
}

// FormatExpDate renders a Unix timestamp as a long German date, e.g.
// "15. März 2025", matching what the Mini App shows its users.
func FormatExpDate(ts int64) string {
	d := time.Unix(ts, 0).Local()
	return fmt.Sprintf("%d. %s %d", d.Day(), germanMonths[d.Month()-1], d.Year())
}
