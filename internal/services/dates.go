package services

import (
	"regexp"
	"time"

	"corrpulse/pkg/contracts/domain"
)

const isoDateLayout = "2006-01-02"

var isoDatePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// IsValidISODate reports whether value is a real calendar day in
// YYYY-MM-DD form.
func IsValidISODate(value string) bool {
	if !isoDatePattern.MatchString(value) {
		return false
	}
	_, err := time.Parse(isoDateLayout, value)
	return err == nil
}

// YearsBetween measures the span between two calendar days in
// fractional years, using the mean Gregorian year length.
func YearsBetween(from, to string) float64 {
	start, err := time.Parse(isoDateLayout, from)
	if err != nil {
		return 0
	}
	end, err := time.Parse(isoDateLayout, to)
	if err != nil {
		return 0
	}

	span := end.Sub(start)
	if span < 0 {
		span = -span
	}
	return span.Hours() / (365.25 * 24)
}

// RangeFromPreset resolves a preset into a concrete from/to pair
// anchored at today (UTC). Unknown presets resolve to one month.
func RangeFromPreset(preset domain.DatePreset) (from, to string) {
	now := time.Now().UTC()
	end := now

	var start time.Time
	switch preset {
	case domain.Preset1M:
		start = now.AddDate(0, -1, 0)
	case domain.Preset3M:
		start = now.AddDate(0, -3, 0)
	case domain.Preset6M:
		start = now.AddDate(0, -6, 0)
	case domain.Preset1Y:
		start = now.AddDate(-1, 0, 0)
	case domain.Preset3Y:
		start = now.AddDate(-3, 0, 0)
	case domain.Preset5Y:
		start = now.AddDate(-5, 0, 0)
	default:
		start = now.AddDate(0, -1, 0)
	}

	return start.Format(isoDateLayout), end.Format(isoDateLayout)
}
