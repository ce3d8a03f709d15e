package meter

import (
	"strings"
	"testing"
	"time"
)

func TestHistoryRange(t *testing.T) {
	t.Parallel()

	brussels, err := time.LoadLocation("Europe/Brussels")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}

	tests := []struct {
		name      string
		now       time.Time
		daysBack  int
		wantFrom  string
		wantUntil string
	}{
		{
			// CET, UTC+1
			"winter",
			time.Date(2026, time.January, 15, 12, 30, 0, 0, brussels),
			7,
			"2026-01-08T00:00:00.000+01:00",
			"2026-01-15T23:59:59.999+01:00",
		},
		{
			// CEST, UTC+2
			"summer",
			time.Date(2026, time.July, 10, 8, 0, 0, 0, brussels),
			3,
			"2026-07-07T00:00:00.000+02:00",
			"2026-07-10T23:59:59.999+02:00",
		},
		{
			// Window straddles the spring DST switch: each endpoint carries
			// the offset valid at its own date.
			"across dst transition",
			time.Date(2026, time.March, 30, 12, 0, 0, 0, brussels),
			7,
			"2026-03-23T00:00:00.000+01:00",
			"2026-03-30T23:59:59.999+02:00",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			from, until := HistoryRange(tt.now, tt.daysBack, brussels)
			if from != tt.wantFrom {
				t.Errorf("from = %q, want %q", from, tt.wantFrom)
			}
			if until != tt.wantUntil {
				t.Errorf("until = %q, want %q", until, tt.wantUntil)
			}
		})
	}
}

func TestHistoryRangeConvertsToLocation(t *testing.T) {
	t.Parallel()

	brussels, err := time.LoadLocation("Europe/Brussels")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}

	// 23:30 UTC on the 15th is already the 16th in Brussels; the range must
	// be anchored on the zone-local date.
	now := time.Date(2026, time.January, 15, 23, 30, 0, 0, time.UTC)
	from, until := HistoryRange(now, 1, brussels)
	if !strings.HasPrefix(from, "2026-01-15T00:00:00.000") {
		t.Errorf("from = %q, want start of 2026-01-15 local", from)
	}
	if !strings.HasPrefix(until, "2026-01-16T23:59:59.999") {
		t.Errorf("until = %q, want end of 2026-01-16 local", until)
	}
}

func TestResolveLocationFallback(t *testing.T) {
	if loc := ResolveLocation("Not/AZone"); loc != time.Local {
		t.Errorf("unknown zone resolved to %v, want local", loc)
	}
	if loc := ResolveLocation(""); loc != time.Local {
		t.Errorf("empty zone resolved to %v, want local", loc)
	}
}
