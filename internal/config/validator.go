package config

import (
	"fmt"
	"regexp"
	"time"

	"github.com/robfig/cron/v3"
)

// versionPattern matches the "X.Y" schema version string every config
// document's version field must carry.
var versionPattern = regexp.MustCompile(`^\d+\.\d+$`)

// sourceIDPattern matches sources.yaml's id field: lowercase alphanumerics,
// underscore, and hyphen only.
var sourceIDPattern = regexp.MustCompile(`^[a-z0-9_-]+$`)

func validateSourceIdentifier(id string) error {
	if !sourceIDPattern.MatchString(id) {
		return fmt.Errorf("source id %q must match ^[a-z0-9_-]+$", id)
	}
	return nil
}

// ValidateCronSchedule validates a five-field cron expression using the
// robfig/cron/v3 parser.
func ValidateCronSchedule(schedule string) error {
	if schedule == "" {
		return fmt.Errorf("invalid cron schedule: cannot be empty")
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	_, err := parser.Parse(schedule)
	if err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", schedule, err)
	}

	return nil
}

// ValidateTimezone validates a timezone string by attempting to load it
// via time.LoadLocation, used for each source's configured timezone.
func ValidateTimezone(timezone string) error {
	if timezone == "" {
		return fmt.Errorf("invalid timezone: cannot be empty")
	}

	_, err := time.LoadLocation(timezone)
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", timezone, err)
	}

	return nil
}

// ValidateIntRange validates that value falls within [min, max] inclusive.
func ValidateIntRange(value, min, max int) error {
	if min > max {
		return fmt.Errorf("invalid range: min (%d) cannot be greater than max (%d)", min, max)
	}
	if value < min {
		return fmt.Errorf("value %d is below minimum %d", value, min)
	}
	if value > max {
		return fmt.Errorf("value %d exceeds maximum %d", value, max)
	}
	return nil
}

// ValidateFloatRange validates that value falls within [min, max] inclusive,
// used for the topics document's bounded scoring weights.
func ValidateFloatRange(value, min, max float64) error {
	if min > max {
		return fmt.Errorf("invalid range: min (%v) cannot be greater than max (%v)", min, max)
	}
	if value < min {
		return fmt.Errorf("value %v is below minimum %v", value, min)
	}
	if value > max {
		return fmt.Errorf("value %v exceeds maximum %v", value, max)
	}
	return nil
}

// ValidatePositiveDuration validates that a duration is strictly positive.
func ValidatePositiveDuration(duration time.Duration) error {
	if duration <= 0 {
		return fmt.Errorf("duration must be positive, got %v", duration)
	}
	return nil
}
