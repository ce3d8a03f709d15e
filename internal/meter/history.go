package meter

import (
	"time"

	log "github.com/sirupsen/logrus"
)

// timestampLayout matches what the consumption API expects:
// YYYY-MM-DDTHH:MM:SS.mmm±HH:MM with the offset of the configured zone at
// that date, so DST transitions resolve against the named zone.
const timestampLayout = "2006-01-02T15:04:05.000-07:00"

// ResolveLocation loads the named IANA zone. An unknown or empty name falls
// back to the system local zone with a warning.
func ResolveLocation(name string) *time.Location {
	if name != "" {
		if loc, err := time.LoadLocation(name); err == nil {
			return loc
		}
		log.Warnf("timezone %q not found, falling back to system local timezone", name)
	}
	return time.Local
}

// HistoryRange computes the historyFrom/historyUntil parameters for a request
// covering daysBack days up to now: midnight at the start, 23:59:59.999 at
// the end, both expressed in loc.
func HistoryRange(now time.Time, daysBack int, loc *time.Location) (from, until string) {
	localNow := now.In(loc)
	start := localNow.AddDate(0, 0, -daysBack)
	start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, loc)
	end := time.Date(localNow.Year(), localNow.Month(), localNow.Day(), 23, 59, 59, 999000000, loc)
	return start.Format(timestampLayout), end.Format(timestampLayout)
}
