package capture

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Date expressions default to 09:00 local time so a bare date lands at
// the start of a working day rather than midnight.
const defaultHour = 9

// ResolveDate resolves a date expression the way inline due:/defer:
// tokens do. Front-ends use it for field edits that accept the same
// expressions as capture.
func (p *Parser) ResolveDate(spec string) (time.Time, error) {
	return p.parseDateSpec(spec)
}

// parseDateSpec resolves a date expression against the reference clock.
// Accepted forms: now, today, tomorrow, weekday names (next occurrence,
// never today), +Nd/+Nw/+Nm offsets, RFC 3339, YYYY-MM-DD, and HH:MM.
func (p *Parser) parseDateSpec(spec string) (time.Time, error) {
	trimmed := strings.TrimSpace(spec)
	if trimmed == "" {
		return time.Time{}, fmt.Errorf("date expression is empty")
	}

	now := p.clock.Now()
	loc := now.Location()
	lower := strings.ToLower(trimmed)

	switch lower {
	case "now":
		return now, nil
	case "today":
		return atDefaultHour(now, loc), nil
	case "tomorrow":
		return atDefaultHour(now.AddDate(0, 0, 1), loc), nil
	}

	if strings.HasPrefix(lower, "+") {
		return parseRelativeSpec(lower, now)
	}

	if weekday, ok := parseWeekday(lower); ok {
		daysAhead := (int(weekday) - int(now.Weekday()) + 7) % 7
		if daysAhead == 0 {
			daysAhead = 7
		}
		return atDefaultHour(now.AddDate(0, 0, daysAhead), loc), nil
	}

	if t, err := time.Parse(time.RFC3339, trimmed); err == nil {
		return t, nil
	}

	if t, err := time.ParseInLocation("2006-01-02", trimmed, loc); err == nil {
		return atDefaultHour(t, loc), nil
	}

	if t, err := time.Parse("15:04", trimmed); err == nil {
		return time.Date(now.Year(), now.Month(), now.Day(), t.Hour(), t.Minute(), 0, 0, loc), nil
	}

	return time.Time{}, fmt.Errorf("unrecognized date expression %q: try YYYY-MM-DD, today, tomorrow, +3d, mon", spec)
}

// parseRelativeSpec resolves "+Nd", "+Nw", or "+Nm" offsets from now.
func parseRelativeSpec(spec string, now time.Time) (time.Time, error) {
	if len(spec) < 3 {
		return time.Time{}, fmt.Errorf("relative date %q is too short", spec)
	}
	unit := spec[len(spec)-1]
	n, err := strconv.Atoi(spec[1 : len(spec)-1])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid relative offset in %q", spec)
	}
	switch unit {
	case 'd':
		return now.AddDate(0, 0, n), nil
	case 'w':
		return now.AddDate(0, 0, 7*n), nil
	case 'm':
		return now.AddDate(0, n, 0), nil
	default:
		return time.Time{}, fmt.Errorf("unsupported relative unit %q: use d, w, or m", string(unit))
	}
}

func atDefaultHour(day time.Time, loc *time.Location) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), defaultHour, 0, 0, 0, loc)
}

func parseWeekday(label string) (time.Weekday, bool) {
	switch label {
	case "mon", "monday":
		return time.Monday, true
	case "tue", "tuesday":
		return time.Tuesday, true
	case "wed", "wednesday":
		return time.Wednesday, true
	case "thu", "thursday":
		return time.Thursday, true
	case "fri", "friday":
		return time.Friday, true
	case "sat", "saturday":
		return time.Saturday, true
	case "sun", "sunday":
		return time.Sunday, true
	default:
		return 0, false
	}
}
