package listener

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fatflowers/fastspring-cashier/pkg/types"
)

var (
	ErrUnsupportedIntervalUnit = errors.New("unsupported interval unit")
	ErrInvalidIntervalLength   = errors.New("invalid interval length")
)

// SubtractInterval moves t back by length units. Months and years never
// overflow: Mar 31 minus one month is the last day of February.
func SubtractInterval(t time.Time, unit types.IntervalUnit, length int) (time.Time, error) {
	if length <= 0 {
		return time.Time{}, fmt.Errorf("%w: %d", ErrInvalidIntervalLength, length)
	}
	switch types.IntervalUnit(strings.ToLower(string(unit))) {
	case types.IntervalUnitDay:
		return t.AddDate(0, 0, -length), nil
	case types.IntervalUnitWeek:
		return t.AddDate(0, 0, -7*length), nil
	case types.IntervalUnitMonth:
		return addMonthsSafe(t, -length), nil
	case types.IntervalUnitYear:
		return addMonthsSafe(t, -12*length), nil
	default:
		return time.Time{}, fmt.Errorf("%w: %q", ErrUnsupportedIntervalUnit, unit)
	}
}

// addMonthsSafe adds months to t, clipping the day to the end of the target month.
func addMonthsSafe(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	target := time.Date(year, month+time.Month(months), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	// day 0 of the following month is the last day of target's month.
	lastDay := time.Date(target.Year(), target.Month()+1, 0, 0, 0, 0, 0, target.Location()).Day()
	if day > lastDay {
		day = lastDay
	}
	return time.Date(target.Year(), target.Month(), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// ChargedPeriod reconstructs the billing period paid by a charge whose next
// charge is at next: it ends the day before next and spans one interval.
func ChargedPeriod(next time.Time, unit types.IntervalUnit, length int) (start, end time.Time, err error) {
	end = next.UTC().AddDate(0, 0, -1)
	back, err := SubtractInterval(end, unit, length)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return back.AddDate(0, 0, 1), end, nil
}
