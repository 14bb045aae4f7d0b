// Package recurrence computes the next due time for a cron style expression.
package recurrence

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// five fields: minute, hour, day of month, month, day of week. Standard cron
// semantics, including the OR rule when both day fields are restricted.
var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Validate reports whether expr is a well formed recurrence expression.
func Validate(expr string) error {
	if _, err := parser.Parse(expr); err != nil {
		return fmt.Errorf("parsing %q: %w", expr, err)
	}
	return nil
}

// Next returns the first time matching expr strictly after the given time.
func Next(expr string, after time.Time) (time.Time, error) {
	schedule, err := parser.Parse(expr)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing %q: %w", expr, err)
	}
	return schedule.Next(after), nil
}
