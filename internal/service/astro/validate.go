package astro

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/okulov/planettalk/backend/internal/model/astro"
)

// ErrValidation marks rejected birth input. Handlers map it to a
// re-prompt rather than a failure.
var ErrValidation = errors.New("invalid birth input")

const (
	dateLayout   = "02/01/2006"
	time12Layout = "3:04 PM"
	time24Layout = "15:04"
)

// ValidateDate accepts dates in DD/MM/YYYY form.
func ValidateDate(date string) bool {
	_, err := time.Parse(dateLayout, strings.TrimSpace(date))
	return err == nil
}

// ValidateTime accepts 12-hour times with a meridiem ("8:20 AM") or
// 24-hour "HH:MM" times.
func ValidateTime(timeOfDay string) bool {
	trimmed := strings.TrimSpace(timeOfDay)
	if _, err := time.Parse(time12Layout, trimmed); err == nil {
		return true
	}
	_, err := time.Parse(time24Layout, trimmed)
	return err == nil
}

// ValidatePlace accepts any non-blank place name.
func ValidatePlace(place string) bool {
	return strings.TrimSpace(place) != ""
}

// ParseBirthInput converts validated raw strings into the integer
// components the chart computer consumes. The 12-hour form is folded
// into 24-hour components.
func ParseBirthInput(input astro.BirthInput) (astro.BirthMoment, error) {
	date, err := time.Parse(dateLayout, strings.TrimSpace(input.Date))
	if err != nil {
		return astro.BirthMoment{}, fmt.Errorf("%w: date %q must match DD/MM/YYYY", ErrValidation, input.Date)
	}

	clock, err := parseTimeOfDay(input.Time)
	if err != nil {
		return astro.BirthMoment{}, err
	}

	if !ValidatePlace(input.Place) {
		return astro.BirthMoment{}, fmt.Errorf("%w: place must not be blank", ErrValidation)
	}

	return astro.BirthMoment{
		Day:    date.Day(),
		Month:  int(date.Month()),
		Year:   date.Year(),
		Hour:   clock.Hour(),
		Minute: clock.Minute(),
		City:   strings.TrimSpace(input.Place),
	}, nil
}

func parseTimeOfDay(timeOfDay string) (time.Time, error) {
	trimmed := strings.TrimSpace(timeOfDay)
	if clock, err := time.Parse(time12Layout, trimmed); err == nil {
		return clock, nil
	}
	if clock, err := time.Parse(time24Layout, trimmed); err == nil {
		return clock, nil
	}
	return time.Time{}, fmt.Errorf("%w: time %q must match HH:MM or H:MM AM/PM", ErrValidation, timeOfDay)
}
