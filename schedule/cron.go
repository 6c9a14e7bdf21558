// Package schedule publishes ticks on a cron schedule as a PetalStream
// publisher.
package schedule

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

var (
	// ErrEmptyExpression is returned for a blank cron expression.
	ErrEmptyExpression = errors.New("schedule: cron expression is required")

	// ErrTimezonePrefix is returned for expressions carrying a CRON_TZ= or
	// TZ= prefix. Schedules always run in UTC.
	ErrTimezonePrefix = errors.New("schedule: cron expression must be UTC-only (timezone prefixes are not allowed)")
)

// parser accepts five-field expressions, an optional leading seconds field,
// and descriptors such as @hourly or @every 5s.
var parser = cron.NewParser(
	cron.SecondOptional |
		cron.Minute |
		cron.Hour |
		cron.Dom |
		cron.Month |
		cron.Dow |
		cron.Descriptor,
)

// Parse validates expr and returns its schedule.
func Parse(expr string) (cron.Schedule, error) {
	clean := strings.TrimSpace(expr)
	if clean == "" {
		return nil, ErrEmptyExpression
	}

	upper := strings.ToUpper(clean)
	if strings.Contains(upper, "CRON_TZ=") || strings.Contains(upper, "TZ=") {
		return nil, ErrTimezonePrefix
	}

	s, err := parser.Parse(clean)
	if err != nil {
		return nil, fmt.Errorf("schedule: invalid cron expression %q: %w", clean, err)
	}
	return s, nil
}

// Next returns the first activation of expr strictly after now, in UTC.
func Next(expr string, now time.Time) (time.Time, error) {
	s, err := Parse(expr)
	if err != nil {
		return time.Time{}, err
	}
	return s.Next(now.UTC()), nil
}
