package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	dateRegex     = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
	relativeRegex = regexp.MustCompile(`^(\d+)\s*(day|days|week|weeks)$`)
)

// Period is a half-open report window [From, To). A zero Period means all
// time.
type Period struct {
	From time.Time
	To   time.Time
}

// IsZero reports whether the period is unbounded
func (p Period) IsZero() bool {
	return p.From.IsZero() && p.To.IsZero()
}

// String renders the period for report headers
func (p Period) String() string {
	if p.IsZero() {
		return "all time"
	}
	last := p.To.Add(-time.Second)
	if p.From.Format("02/01/2006") == last.Format("02/01/2006") {
		return p.From.Format("Mon 02/01/2006")
	}
	return fmt.Sprintf("%s to %s", p.From.Format("02/01/2006"), last.Format("02/01/2006"))
}

// ParsePeriod parses a report period relative to now
// Supported formats:
// - "", "all"
// - "today", "yesterday"
// - "week" (calendar week starting Monday), "month"
// - X days / X weeks (e.g., "7 days", "2 weeks"), counting today
// - dd/mm/yyyy (e.g., "15/12/2025")
func ParsePeriod(input string, now time.Time) (Period, error) {
	input = strings.ToLower(strings.TrimSpace(input))
	today := startOfDay(now)

	switch input {
	case "", "all":
		return Period{}, nil
	case "today":
		return Period{From: today, To: today.AddDate(0, 0, 1)}, nil
	case "yesterday":
		return Period{From: today.AddDate(0, 0, -1), To: today}, nil
	case "week":
		start := WeekStart(now)
		return Period{From: start, To: start.AddDate(0, 0, 7)}, nil
	case "month":
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		return Period{From: start, To: start.AddDate(0, 1, 0)}, nil
	}

	if day, err := parseDateFormat(input, now.Location()); err == nil {
		return Period{From: day, To: day.AddDate(0, 0, 1)}, nil
	}

	if p, err := parseRelativePeriod(input, today); err == nil {
		return p, nil
	}

	return Period{}, fmt.Errorf("invalid period %q. Use: today, yesterday, week, month, X days, X weeks, or dd/mm/yyyy", input)
}

// ParseLocalPeriod is ParsePeriod with now moved into the machine's zone, so
// "today" and "week" start at the user's midnight whatever zone the clock
// reports in.
func ParseLocalPeriod(input string, now time.Time) (Period, error) {
	return ParsePeriod(input, now.In(time.Local))
}

// WeekStart returns the start of the calendar week (Monday) for the given time
func WeekStart(t time.Time) time.Time {
	weekday := t.Weekday()
	daysFromMonday := int(weekday - time.Monday)
	if weekday == time.Sunday {
		daysFromMonday = 6 // Sunday is 6 days from Monday
	}
	return startOfDay(t.AddDate(0, 0, -daysFromMonday))
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// parseDateFormat parses dd/mm/yyyy format
func parseDateFormat(input string, loc *time.Location) (time.Time, error) {
	matches := dateRegex.FindStringSubmatch(input)
	if len(matches) != 4 {
		return time.Time{}, fmt.Errorf("invalid date format")
	}

	day, _ := strconv.Atoi(matches[1])
	month, _ := strconv.Atoi(matches[2])
	year, _ := strconv.Atoi(matches[3])

	// Validate date ranges
	if day < 1 || day > 31 {
		return time.Time{}, fmt.Errorf("day must be between 1 and 31")
	}
	if month < 1 || month > 12 {
		return time.Time{}, fmt.Errorf("month must be between 1 and 12")
	}
	if year < 2000 || year > 2100 {
		return time.Time{}, fmt.Errorf("year must be between 2000 and 2100")
	}

	date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)

	// Check if date is valid (handles leap years, etc.)
	if date.Day() != day || date.Month() != time.Month(month) || date.Year() != year {
		return time.Time{}, fmt.Errorf("invalid date")
	}
	return date, nil
}

// parseRelativePeriod parses "3 days", "2 weeks" as windows ending today
func parseRelativePeriod(input string, today time.Time) (Period, error) {
	matches := relativeRegex.FindStringSubmatch(input)
	if len(matches) != 3 {
		return Period{}, fmt.Errorf("invalid relative period format")
	}

	amount, err := strconv.Atoi(matches[1])
	if err != nil {
		return Period{}, fmt.Errorf("invalid number")
	}

	days := amount
	if strings.HasPrefix(matches[2], "week") {
		days = amount * 7
	}
	if days < 1 || days > 366 {
		return Period{}, fmt.Errorf("period must be between 1 day and 1 year")
	}

	end := today.AddDate(0, 0, 1)
	return Period{From: end.AddDate(0, 0, -days), To: end}, nil
}
