package roster

import (
	"fmt"
	"strings"
	"time"
)

const (
	americaReportHourUTC = 12 // 4am PST / 5am PDT
	japanReportHourUTC   = 20 // 5am JST, start of daily maintenance
)

type Location struct {
	ID       string
	TimeZone string
	Cabs     []*Cab
	Ledger   Ledger

	zone         *time.Location
	lastRollover string
}

func NewLocation(id, timeZone string) (*Location, error) {
	zone, err := time.LoadLocation(timeZone)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidTimeZone, timeZone, err)
	}
	return &Location{ID: id, TimeZone: timeZone, zone: zone}, nil
}

func (l *Location) Zone() *time.Location {
	if l.zone == nil {
		return time.UTC
	}
	return l.zone
}

func (l *Location) IsAmerica() bool {
	return strings.HasPrefix(l.TimeZone, "America") || strings.Contains(l.TimeZone, "Honolulu")
}

func (l *Location) ReportHourUTC() int {
	if l.IsAmerica() {
		return americaReportHourUTC
	}
	return japanReportHourUTC
}

// RolloverDue reports whether the daily summary should go out now: inside
// the reporting hour, with something to report, and not already done today.
func (l *Location) RolloverDue(now time.Time) bool {
	utc := now.UTC()
	if utc.Hour() != l.ReportHourUTC() || l.Ledger.Len() == 0 {
		return false
	}
	return l.lastRollover != utc.Format(time.DateOnly)
}

// Rollover clears the ledger, returning the players it held.
func (l *Location) Rollover(now time.Time) []Player {
	l.lastRollover = now.UTC().Format(time.DateOnly)
	return l.Ledger.Reset()
}
