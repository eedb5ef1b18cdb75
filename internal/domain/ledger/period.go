package ledger

import (
	"fmt"
	"strings"
	"time"
)

// Granularity selects how transactions are bucketed into periods.
type Granularity string

// Supported granularities.
const (
	Weekly    Granularity = "weekly"
	BiWeekly  Granularity = "bi-weekly"
	Monthly   Granularity = "monthly"
	Quarterly Granularity = "quarterly"
)

// Granularities lists every supported granularity in display order.
var Granularities = []Granularity{Weekly, BiWeekly, Monthly, Quarterly}

// epochMonday starts the week that contains 1970-01-01.
var epochMonday = time.Date(1969, time.December, 29, 0, 0, 0, 0, time.UTC)

// ParseGranularity validates a period name.
func ParseGranularity(s string) (Granularity, error) {
	g := Granularity(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Granularities {
		if g == known {
			return g, nil
		}
	}
	return "", fmt.Errorf("%w: %q (choose from weekly, bi-weekly, monthly, quarterly)", ErrUnsupportedPeriod, s)
}

// ParseGranularities validates a comma separated list of period names.
func ParseGranularities(s string) ([]Granularity, error) {
	var out []Granularity
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		g, err := ParseGranularity(part)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: empty period list", ErrUnsupportedPeriod)
	}
	return out, nil
}

// periodKey returns a label that sorts chronologically.
func (g Granularity) periodKey(t time.Time) string {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	switch g {
	case Weekly:
		start := weekStart(day)
		return start.Format(time.DateOnly) + "/" + start.AddDate(0, 0, 6).Format(time.DateOnly)
	case BiWeekly:
		week := int(weekStart(day).Sub(epochMonday).Hours() / 24 / 7)
		pair := floorDiv(week, 2)
		return epochMonday.AddDate(0, 0, pair*14).Format(time.DateOnly)
	case Monthly:
		return day.Format("2006-01")
	case Quarterly:
		return fmt.Sprintf("%dQ%d", day.Year(), (int(day.Month())-1)/3+1)
	}
	return ""
}

// weekStart returns the Monday on or before day.
func weekStart(day time.Time) time.Time {
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
