package model

import (
	"fmt"
	"strings"
	"time"
)

// Weekday is a lowercase full day name ("monday".."sunday"), the canonical
// service-day representation on the wire and in the database.
type Weekday string

const (
	Monday    Weekday = "monday"
	Tuesday   Weekday = "tuesday"
	Wednesday Weekday = "wednesday"
	Thursday  Weekday = "thursday"
	Friday    Weekday = "friday"
	Saturday  Weekday = "saturday"
	Sunday    Weekday = "sunday"
)

// AllWeekdays lists the service days in week order, Monday first.
var AllWeekdays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// dayCodes maps each weekday to its two-letter schedule-pattern code.
var dayCodes = map[Weekday]string{
	Monday:    "Mo",
	Tuesday:   "Tu",
	Wednesday: "We",
	Thursday:  "Th",
	Friday:    "Fr",
	Saturday:  "Sa",
	Sunday:    "Su",
}

// ParseWeekday parses a day name case-insensitively.
func ParseWeekday(s string) (Weekday, error) {
	d := Weekday(strings.ToLower(strings.TrimSpace(s)))
	if !d.IsValid() {
		return "", fmt.Errorf("invalid day: %q", s)
	}
	return d, nil
}

// IsValid reports whether d is one of the seven day names.
func (d Weekday) IsValid() bool {
	_, ok := dayCodes[d]
	return ok
}

// Code returns the two-letter schedule-pattern code ("Mo".."Su").
func (d Weekday) Code() string {
	return dayCodes[d]
}

// ServesOn reports whether the customer is visited on the given day.
// Single-day customers are served on their primary day; multi-day customers
// on the days whose two-letter code appears in their schedule pattern.
func (c Customer) ServesOn(day Weekday) bool {
	if c.DaysPerWeek <= 1 {
		return c.PrimaryDay == day
	}
	return strings.Contains(c.SchedulePattern, day.Code())
}

// ScheduleDays returns every day the customer is served on, in week order.
func (c Customer) ScheduleDays() []Weekday {
	var days []Weekday
	for _, d := range AllWeekdays {
		if c.ServesOn(d) {
			days = append(days, d)
		}
	}
	return days
}

// Date is a calendar date in YYYY-MM-DD form. Stored and compared as a
// string; the format sorts lexicographically in date order.
type Date string

const dateLayout = "2006-01-02"

// ParseDate validates and normalizes a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return "", fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return Date(t.Format(dateLayout)), nil
}

// Today returns the current date in the local timezone.
func Today() Date {
	return Date(time.Now().Format(dateLayout))
}

// Before reports whether d is strictly earlier than other.
func (d Date) Before(other Date) bool {
	return string(d) < string(other)
}

// AddDays returns the date n days after d (n may be negative).
func (d Date) AddDays(n int) Date {
	t, err := time.Parse(dateLayout, string(d))
	if err != nil {
		return d
	}
	return Date(t.AddDate(0, 0, n).Format(dateLayout))
}

// Weekday returns the day of week of the date.
func (d Date) Weekday() Weekday {
	t, err := time.Parse(dateLayout, string(d))
	if err != nil {
		return ""
	}
	return Weekday(strings.ToLower(t.Weekday().String()))
}

// IsZero reports whether the date is unset.
func (d Date) IsZero() bool {
	return d == ""
}
