package record

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// BirthdayLayouts is the fallback chain tried in order: 03/15/2020,
// 03/15/20, 03/15 and 15-Mar. Numeric fields accept one or two digits.
var BirthdayLayouts = []string{
	"1/2/2006",
	"1/2/06",
	"1/2",
	"2-Jan",
}

// ErrInvalidBirthday is returned when no layout matches.
var ErrInvalidBirthday = errors.New("invalid birthday")

// ParseBirthday parses s with the first matching layout of BirthdayLayouts.
// Only the month and day of the result are meaningful for year-less layouts.
func ParseBirthday(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range BirthdayLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidBirthday, s)
}

// BirthMonth returns the month of a birthday string.
func BirthMonth(s string) (time.Month, error) {
	t, err := ParseBirthday(s)
	if err != nil {
		return 0, err
	}
	return t.Month(), nil
}
