package calendar

import (
	"fmt"
	"strings"
	"time"
)

// Range presets accepted by dashboard queries.
const (
	PresetToday      = "today"
	PresetYesterday  = "yesterday"
	PresetLast7Days  = "last7days"
	PresetLast30Days = "last30days"
	PresetThisMonth  = "thisMonth"
	PresetLastMonth  = "lastMonth"
	PresetCustom     = "custom"
)

// ResolveRange turns a preset or an explicit start/end pair into a DateRange.
//
// Explicit dates win over the preset. An empty preset without dates falls back
// to the last 30 days.
func ResolveRange(preset, startDate, endDate string, now time.Time) (DateRange, error) {
	if startDate != "" || endDate != "" {
		return customRange(startDate, endDate, now)
	}

	today := dayStart(now)
	if preset == "" {
		preset = defaultPresetID
	}

	switch strings.ToLower(preset) {
	case strings.ToLower(PresetToday):
		return DateRange{From: today.UTC(), To: today.UTC()}, nil
	case strings.ToLower(PresetYesterday):
		y := today.AddDate(0, 0, -1)
		return DateRange{From: y.UTC(), To: y.UTC()}, nil
	case strings.ToLower(PresetLast7Days):
		return TrailingRange(now, 7), nil
	case strings.ToLower(PresetLast30Days):
		return TrailingRange(now, 30), nil
	case strings.ToLower(PresetThisMonth):
		first := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, Location)
		return DateRange{From: first.UTC(), To: today.UTC()}, nil
	case strings.ToLower(PresetLastMonth):
		firstThis := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, Location)
		firstPrev := firstThis.AddDate(0, -1, 0)
		lastPrev := firstThis.AddDate(0, 0, -1)
		return DateRange{From: firstPrev.UTC(), To: lastPrev.UTC()}, nil
	default:
		return DateRange{}, fmt.Errorf("%w: %s", ErrUnknownPreset, preset)
	}
}

func customRange(startDate, endDate string, now time.Time) (DateRange, error) {
	if endDate == "" {
		endDate = DateKey(now)
	}
	if startDate == "" {
		startDate = endDate
	}

	from, err := ParseDateKey(startDate)
	if err != nil {
		return DateRange{}, err
	}
	to, err := ParseDateKey(endDate)
	if err != nil {
		return DateRange{}, err
	}
	if to.Before(from) {
		return DateRange{}, fmt.Errorf("%w: %s is after %s", ErrInvalidRange, startDate, endDate)
	}
	if len(DaysInRange(from, to)) >= maxRangeInDays {
		return DateRange{}, fmt.Errorf("%w: range too long", ErrInvalidRange)
	}
	return DateRange{From: from, To: to}, nil
}
