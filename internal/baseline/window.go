package baseline

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

var ErrWindowWraps = errors.New("seasonal window must not wrap across the year boundary")

// MonthDay is a recurring calendar day, written MMDD on the command line.
type MonthDay struct {
	Month time.Month
	Day   int
}

func ParseMonthDay(mmdd string) (MonthDay, error) {
	if len(mmdd) != 4 {
		return MonthDay{}, fmt.Errorf("MMDD must be 4 digits, e.g. '0701' for 1st of July: %q", mmdd)
	}
	n, err := strconv.Atoi(mmdd)
	if err != nil || n < 0 {
		return MonthDay{}, fmt.Errorf("MMDD must be 4 digits, e.g. '0701' for 1st of July: %q", mmdd)
	}
	md := MonthDay{Month: time.Month(n / 100), Day: n % 100}
	// 2000 is a leap year, so 0229 is accepted.
	probe := time.Date(2000, md.Month, md.Day, 0, 0, 0, 0, time.UTC)
	if md.Month < time.January || md.Month > time.December || probe.Month() != md.Month || probe.Day() != md.Day {
		return MonthDay{}, fmt.Errorf("invalid month/day %q", mmdd)
	}
	return md, nil
}

func MonthDayOf(t time.Time) MonthDay {
	return MonthDay{Month: t.Month(), Day: t.Day()}
}

func (md MonthDay) Before(other MonthDay) bool {
	if md.Month != other.Month {
		return md.Month < other.Month
	}
	return md.Day < other.Day
}

// In returns the date of md in the given year. Feb 29 rolls to Mar 1 in
// non-leap years.
func (md MonthDay) In(year int) time.Time {
	return time.Date(year, md.Month, md.Day, 0, 0, 0, 0, time.UTC)
}

func (md MonthDay) String() string {
	return fmt.Sprintf("%02d%02d", int(md.Month), md.Day)
}

// Window is an inclusive recurring day-of-year range.
type Window struct {
	Start MonthDay
	End   MonthDay
}

func NewWindow(start, end string) (Window, error) {
	s, err := ParseMonthDay(start)
	if err != nil {
		return Window{}, fmt.Errorf("window start: %w", err)
	}
	e, err := ParseMonthDay(end)
	if err != nil {
		return Window{}, fmt.Errorf("window end: %w", err)
	}
	if e.Before(s) {
		return Window{}, fmt.Errorf("%s-%s: %w", s, e, ErrWindowWraps)
	}
	return Window{Start: s, End: e}, nil
}

func (w Window) Contains(t time.Time) bool {
	md := MonthDayOf(t)
	return !md.Before(w.Start) && !w.End.Before(md)
}

func (w Window) String() string {
	return fmt.Sprintf("%s-%s", w.Start, w.End)
}

// DecimalYear converts a date to year + elapsed fraction of that year, with
// 1 January at exactly year.0.
func DecimalYear(t time.Time) float64 {
	y := t.Year()
	jan1 := time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC)
	days := float64(jan1.AddDate(1, 0, 0).Sub(jan1).Hours() / 24)
	doy := float64(t.YearDay() - 1)
	return float64(y) + doy/days
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func daysBetween(a, b time.Time) int {
	d := dateOnly(a).Sub(dateOnly(b)).Hours() / 24
	if d < 0 {
		d = -d
	}
	return int(d + 0.5)
}
