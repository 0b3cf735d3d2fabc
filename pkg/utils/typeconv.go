package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// dateLayouts covers the date spellings seen in filing tables and file
// names, tried in order.
var dateLayouts = []string{
	"January 2, 2006",
	"Jan 2, 2006",
	"2006-01-02",
	"01/02/2006",
	"2-Jan-2006",
	time.RFC3339,
}

// ParseDate parses a date rendered in any of the known layouts. A bare
// four-digit year is accepted as December 31 of that year.
func ParseDate(val string) (time.Time, error) {
	s := strings.TrimSpace(val)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	if y, err := strconv.Atoi(s); err == nil && y >= 1000 && y <= 9999 {
		return time.Date(y, time.December, 31, 0, 0, 0, 0, time.UTC), nil
	}
	return time.Time{}, fmt.Errorf("unable to parse date: %q", val)
}

// ParseNumber parses a financial figure: dollar signs and thousands
// separators are stripped, and accounting-style parentheses negate,
// e.g. "(271,381)" -> -271381.
func ParseNumber(val string) (float64, error) {
	s := strings.TrimSpace(val)
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, "$", "")
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		s = "-" + s[1:len(s)-1]
	}
	if s == "" {
		return 0, fmt.Errorf("empty value")
	}
	return strconv.ParseFloat(s, 64)
}

// ParseBool coerces the usual truthy/falsy spellings.
func ParseBool(val string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(val)) {
	case "true", "1", "t", "yes", "y":
		return true, nil
	case "false", "0", "f", "no", "n":
		return false, nil
	}
	return false, fmt.Errorf("cannot parse %q as bool", val)
}

// ToFloat converts the numeric types a record value may carry.
func ToFloat(val interface{}) (float64, bool) {
	switch v := val.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := ParseNumber(v)
		return f, err == nil
	default:
		return 0, false
	}
}
