// Package calendar provides the fixed-offset calendar used to bucket metrics by day.
//
// Every date key in the service is computed at UTC+05:30, independent of the
// host timezone and of the timezone carried by the input instant.
package calendar

import (
	"errors"
	"fmt"
	"time"
)

const (
	// DateLayout is the layout of a calendar date key.
	DateLayout = "2006-01-02"

	// OffsetSeconds is the fixed UTC offset of the reporting calendar (+05:30).
	OffsetSeconds = 5*60*60 + 30*60

	offsetSuffix    = "+05:30"
	boundaryLayout  = "2006-01-02T15:04:05.000Z07:00"
	dayStartSuffix  = "T00:00:00.000" + offsetSuffix
	dayEndSuffix    = "T23:59:59.999" + offsetSuffix
	maxRangeInDays  = 3660
	defaultPresetID = PresetLast30Days
)

// Location is the fixed +05:30 zone used for all bucketing.
var Location = time.FixedZone("IST", OffsetSeconds)

// Range errors.
var (
	ErrInvalidDateKey = errors.New("invalid date key")
	ErrInvalidRange   = errors.New("invalid date range")
	ErrUnknownPreset  = errors.New("unknown range preset")
)

// DateKey returns the YYYY-MM-DD calendar date t falls on at +05:30.
func DateKey(t time.Time) string {
	return t.In(Location).Format(DateLayout)
}

// DayBoundaries returns the first and last millisecond of the +05:30 calendar
// day containing t, as absolute instants in UTC.
//
// The boundaries are derived from the date key, never from arithmetic on t.
func DayBoundaries(t time.Time) (time.Time, time.Time) {
	key := DateKey(t)
	start, _ := time.Parse(boundaryLayout, key+dayStartSuffix)
	end, _ := time.Parse(boundaryLayout, key+dayEndSuffix)
	return start.UTC(), end.UTC()
}

// BoundariesForKey is DayBoundaries for an already computed date key.
func BoundariesForKey(key string) (time.Time, time.Time, error) {
	start, err := time.Parse(boundaryLayout, key+dayStartSuffix)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDateKey, key)
	}
	end, _ := time.Parse(boundaryLayout, key+dayEndSuffix)
	return start.UTC(), end.UTC(), nil
}

// ParseDateKey parses a YYYY-MM-DD key as the start of that +05:30 day.
func ParseDateKey(key string) (time.Time, error) {
	start, _, err := BoundariesForKey(key)
	return start, err
}

// DaysInRange returns every date key between from and to inclusive.
// An inverted range yields no keys.
func DaysInRange(from, to time.Time) []string {
	first := dayStart(from)
	last := dayStart(to)
	if last.Before(first) {
		return nil
	}

	keys := make([]string, 0, int(last.Sub(first).Hours()/24)+1)
	for d := first; !d.After(last) && len(keys) < maxRangeInDays; d = d.AddDate(0, 0, 1) {
		keys = append(keys, d.Format(DateLayout))
	}
	return keys
}

// Yesterday returns the start of the +05:30 calendar day before now.
func Yesterday(now time.Time) time.Time {
	return dayStart(now).AddDate(0, 0, -1).UTC()
}

// TrailingRange returns the window of `days` calendar days ending yesterday.
func TrailingRange(now time.Time, days int) DateRange {
	if days < 1 {
		days = 1
	}
	end := dayStart(now).AddDate(0, 0, -1)
	start := end.AddDate(0, 0, -(days - 1))
	return DateRange{From: start.UTC(), To: end.UTC()}
}

// dayStart returns the start of t's +05:30 day in the fixed location.
func dayStart(t time.Time) time.Time {
	local := t.In(Location)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, Location)
}

// DateRange is an inclusive range of calendar days.
// From and To may be any instant within their first and last day.
type DateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// StartKey returns the date key of the first day.
func (r DateRange) StartKey() string {
	return DateKey(r.From)
}

// EndKey returns the date key of the last day.
func (r DateRange) EndKey() string {
	return DateKey(r.To)
}

// Bounds returns the absolute start of the first day and end of the last day.
func (r DateRange) Bounds() (time.Time, time.Time) {
	start, _ := DayBoundaries(r.From)
	_, end := DayBoundaries(r.To)
	return start, end
}

// Days returns the date keys covered by the range.
func (r DateRange) Days() []string {
	return DaysInRange(r.From, r.To)
}

// String renders the range as "from..to".
func (r DateRange) String() string {
	return r.StartKey() + ".." + r.EndKey()
}
