package operator

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/florijnhq/florijn/internal/common"
)

// DateLayout is the wire format for date condition values.
const DateLayout = "2006-01-02"

// RangeSeparator splits the two bounds of a Between condition value.
const RangeSeparator = ".."

// EvaluateText applies a text operator to a field value. All text operators
// are case-insensitive. OpRegex is not handled here: regex programs are
// compiled once per batch by the caller (see RegexCache).
func EvaluateText(op Operator, fieldValue, condValue string) (bool, error) {
	haystack := strings.ToLower(fieldValue)
	needle := strings.ToLower(condValue)

	switch op {
	case OpContains:
		return strings.Contains(haystack, needle), nil
	case OpStartsWith:
		return strings.HasPrefix(haystack, needle), nil
	case OpEndsWith:
		return strings.HasSuffix(haystack, needle), nil
	case OpExact:
		return haystack == needle, nil
	default:
		return false, fmt.Errorf("%w: operator %q on text value", common.ErrTypeMismatch, op)
	}
}

// EvaluateAmount applies an amount operator to a transaction amount. The
// comparison basis is the absolute value of the signed amount, so a rule
// for amounts between 10 and 50 matches a -25.00 debit.
func EvaluateAmount(op Operator, amount decimal.Decimal, condValue string) (bool, error) {
	abs := amount.Abs()

	if op == OpBetween {
		minVal, maxVal, err := ParseAmountRange(condValue)
		if err != nil {
			return false, err
		}
		return abs.GreaterThanOrEqual(minVal) && abs.LessThanOrEqual(maxVal), nil
	}

	value, err := ParseAmount(condValue)
	if err != nil {
		return false, err
	}

	switch op {
	case OpEquals:
		return abs.Equal(value), nil
	case OpGreaterThan:
		return abs.GreaterThan(value), nil
	case OpLessThan:
		return abs.LessThan(value), nil
	default:
		return false, fmt.Errorf("%w: operator %q on amount value", common.ErrTypeMismatch, op)
	}
}

// EvaluateDate applies a date operator to a transaction date. Comparisons are
// calendar-date granular; Between is inclusive on both bounds.
func EvaluateDate(op Operator, date time.Time, condValue string) (bool, error) {
	day := truncateToDay(date)

	if op == OpBetween {
		start, end, err := ParseDateRange(condValue)
		if err != nil {
			return false, err
		}
		return !day.Before(start) && !day.After(end), nil
	}

	value, err := ParseDate(condValue)
	if err != nil {
		return false, err
	}

	switch op {
	case OpOn:
		return day.Equal(value), nil
	case OpBefore:
		return day.Before(value), nil
	case OpAfter:
		return day.After(value), nil
	default:
		return false, fmt.Errorf("%w: operator %q on date value", common.ErrTypeMismatch, op)
	}
}

// EvaluateEnum applies an enum operator to a closed-set field value. OpIn
// takes a comma-separated member list.
func EvaluateEnum(op Operator, fieldValue, condValue string) (bool, error) {
	have := strings.ToLower(strings.TrimSpace(fieldValue))

	switch op {
	case OpEquals:
		return have == strings.ToLower(strings.TrimSpace(condValue)), nil
	case OpIn:
		for _, member := range strings.Split(condValue, ",") {
			if have == strings.ToLower(strings.TrimSpace(member)) {
				return true, nil
			}
		}
		return false, nil
	default:
		return false, fmt.Errorf("%w: operator %q on enum value", common.ErrTypeMismatch, op)
	}
}

// ParseAmount parses a decimal condition value.
func ParseAmount(value string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: amount %q: %v", common.ErrInvalidRule, value, err)
	}
	return d, nil
}

// ParseAmountRange parses a "min..max" condition value and requires min <= max.
func ParseAmountRange(value string) (minVal, maxVal decimal.Decimal, err error) {
	low, high, ok := strings.Cut(value, RangeSeparator)
	if !ok {
		return decimal.Decimal{}, decimal.Decimal{},
			fmt.Errorf("%w: range %q must be %q-separated", common.ErrInvalidRule, value, RangeSeparator)
	}

	minVal, err = ParseAmount(low)
	if err != nil {
		return decimal.Decimal{}, decimal.Decimal{}, err
	}
	maxVal, err = ParseAmount(high)
	if err != nil {
		return decimal.Decimal{}, decimal.Decimal{}, err
	}
	if minVal.GreaterThan(maxVal) {
		return decimal.Decimal{}, decimal.Decimal{},
			fmt.Errorf("%w: range min %s exceeds max %s", common.ErrInvalidRule, minVal, maxVal)
	}
	return minVal, maxVal, nil
}

// ParseDate parses a date condition value in DateLayout.
func ParseDate(value string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q: %v", common.ErrInvalidRule, value, err)
	}
	return t, nil
}

// ParseDateRange parses a "start..end" date condition value and requires
// start <= end.
func ParseDateRange(value string) (start, end time.Time, err error) {
	low, high, ok := strings.Cut(value, RangeSeparator)
	if !ok {
		return time.Time{}, time.Time{},
			fmt.Errorf("%w: range %q must be %q-separated", common.ErrInvalidRule, value, RangeSeparator)
	}

	start, err = ParseDate(low)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err = ParseDate(high)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if start.After(end) {
		return time.Time{}, time.Time{},
			fmt.Errorf("%w: range start %s is after end %s",
				common.ErrInvalidRule, start.Format(DateLayout), end.Format(DateLayout))
	}
	return start, end, nil
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
