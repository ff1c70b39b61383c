package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Date is a calendar date with no time-of-day or zone.
type Date struct {
	Year  int
	Month int
	Day   int
}

// NewDate returns a Date after validating it against the calendar.
func NewDate(year, month, day int) (Date, error) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return Date{}, fmt.Errorf("%w: %04d-%02d-%02d", ErrUnparseableDate, year, month, day)
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || int(t.Month()) != month {
		return Date{}, fmt.Errorf("%w: %04d-%02d-%02d", ErrUnparseableDate, year, month, day)
	}
	return Date{Year: year, Month: month, Day: day}, nil
}

// DateOf returns the calendar date of t in its own location.
func DateOf(t time.Time) Date {
	return Date{Year: t.Year(), Month: int(t.Month()), Day: t.Day()}
}

// String renders the canonical storage form YYYY-MM-DD.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// FormatDisplay renders DD/MM/YYYY.
func (d Date) FormatDisplay() string {
	return fmt.Sprintf("%02d/%02d/%04d", d.Day, d.Month, d.Year)
}

// Time returns midnight UTC on d.
func (d Date) Time() time.Time {
	return time.Date(d.Year, time.Month(d.Month), d.Day, 0, 0, 0, 0, time.UTC)
}

// Before reports whether d is earlier than other.
func (d Date) Before(other Date) bool {
	return d.String() < other.String()
}

// NormalizeDate converts a textual date into a Date.
//
// Anything after a 'T' or a space is dropped, '-' is treated as '/', and the
// remainder must have three numeric parts. A first part above 31 means
// year-first; otherwise the value is read day-first. Years below 100 get 2000
// added. Failure returns an error wrapping ErrUnparseableDate; it never panics.
func NormalizeDate(s string) (Date, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return Date{}, fmt.Errorf("%w: empty value", ErrUnparseableDate)
	}

	if i := strings.IndexAny(raw, "T "); i >= 0 {
		raw = raw[:i]
	}
	raw = strings.ReplaceAll(raw, "-", "/")

	parts := strings.Split(raw, "/")
	if len(parts) != 3 {
		return Date{}, fmt.Errorf("%w: %q", ErrUnparseableDate, s)
	}

	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return Date{}, fmt.Errorf("%w: %q", ErrUnparseableDate, s)
		}
		nums[i] = n
	}

	var year, month, day int
	if nums[0] > 31 {
		year, month, day = nums[0], nums[1], nums[2]
	} else {
		day, month, year = nums[0], nums[1], nums[2]
	}
	if year < 100 {
		year += 2000
	}

	d, err := NewDate(year, month, day)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrUnparseableDate, s)
	}
	return d, nil
}

// portalLayouts are the textual forms used by the planning portal.
var portalLayouts = []string{
	"Mon 02 Jan 2006",
	"Mon 2 Jan 2006",
	"Mon 02 January 2006",
	"02 Jan 2006",
	"2 Jan 2006",
	"02 January 2006",
	"2 January 2006",
}

// ParsePortalDate parses the portal's weekday-prefixed date text
// (e.g. "Wed 04 Feb 2026"), falling back to NormalizeDate for numeric forms.
func ParsePortalDate(s string) (Date, error) {
	raw := strings.Join(strings.Fields(s), " ")
	if raw == "" {
		return Date{}, fmt.Errorf("%w: empty value", ErrUnparseableDate)
	}
	for _, layout := range portalLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return DateOf(t), nil
		}
	}
	return NormalizeDate(raw)
}

// OptionalDate normalises s and returns nil on failure, so callers can
// store a missing value instead of a corrupt one.
func OptionalDate(s string) *Date {
	d, err := NormalizeDate(s)
	if err != nil {
		return nil
	}
	return &d
}
