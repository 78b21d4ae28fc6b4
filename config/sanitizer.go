package config

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/robfig/cron/v3"
)

// Sanitizer validates the free-form strings that reach this package from
// untrusted external input: route-schedule files, webhook/mail recipient
// configuration, and job metadata supplied by the operator.
type Sanitizer struct{}

// NewSanitizer creates a new input sanitizer.
func NewSanitizer() *Sanitizer {
	return &Sanitizer{}
}

// ValidateCronExpression validates a cron expression using robfig/cron's
// parser. This correctly handles all formats: descriptors (@daily),
// @every intervals, standard cron expressions with optional seconds,
// month/day names (JAN, MON), and wraparound ranges (FRI-MON).
func (s *Sanitizer) ValidateCronExpression(expr string) error {
	// Allow triggered-only schedule keywords (no timer armed)
	if expr == "@triggered" || expr == "@manual" || expr == "@none" {
		return nil
	}

	parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(expr); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}
	return nil
}

// ValidateJobName validates job names for safety.
func (s *Sanitizer) ValidateJobName(name string) error {
	// Check length
	if len(name) == 0 || len(name) > 100 {
		return fmt.Errorf("job name must be between 1 and 100 characters")
	}

	// Allow only alphanumeric, dash, underscore
	if !regexp.MustCompile(`^[a-zA-Z0-9_-]+$`).MatchString(name) {
		return fmt.Errorf("job name can only contain letters, numbers, dashes, and underscores")
	}

	return nil
}

// ValidateEmailList validates a comma-separated list of email addresses.
func (s *Sanitizer) ValidateEmailList(emails string) error {
	if emails == "" {
		return nil
	}

	emailList := strings.Split(emails, ",")
	emailRegex := regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

	for _, email := range emailList {
		email = strings.TrimSpace(email)
		if !emailRegex.MatchString(email) {
			return fmt.Errorf("invalid email address: %s", email)
		}
	}

	return nil
}
