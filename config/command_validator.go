package config

import (
	"fmt"
	"regexp"
	"strings"
)

// CommandValidator provides security validation for the PROCESS-mode
// worker dispatch path: the route name and string arguments that end up
// on a re-exec'd worker binary's argv/stdin, and the worker binary path
// itself.
type CommandValidator struct {
	// Allowed characters in the worker binary path.
	filePathPattern *regexp.Regexp
	// Patterns that could indicate command injection attempts.
	dangerousPatterns []*regexp.Regexp
}

// NewCommandValidator creates a new command validator with security rules.
func NewCommandValidator() *CommandValidator {
	return &CommandValidator{
		// File paths: alphanumeric, underscore, hyphen, dot, forward slash
		filePathPattern: regexp.MustCompile(`^[a-zA-Z0-9_\-\./]+$`),
		dangerousPatterns: []*regexp.Regexp{
			regexp.MustCompile(`\$\(`),       // Command substitution $(...)
			regexp.MustCompile("`"),          // Backtick command substitution
			regexp.MustCompile(`\|`),         // Pipe to command
			regexp.MustCompile(`;`),          // Command separator
			regexp.MustCompile(`&{1,2}`),     // Background or AND operator
			regexp.MustCompile(`>`),          // Redirect output
			regexp.MustCompile(`<`),          // Redirect input
			regexp.MustCompile(`\.\./\.\./`), // Directory traversal attempts
			regexp.MustCompile(`\x00`),       // Null byte injection
		},
	}
}

// ValidateRouteName validates a route name before it's passed as an
// argv argument to a re-exec'd worker process. Route names are derived
// from Go function identifiers (e.g. "pkg.(*T).Handler"), so this only
// screens for shell metacharacters, not a narrow character allowlist.
func (v *CommandValidator) ValidateRouteName(name string) error {
	if name == "" {
		return fmt.Errorf("route name cannot be empty")
	}
	if len(name) > 255 {
		return fmt.Errorf("route name too long (max 255 characters)")
	}

	for _, pattern := range v.dangerousPatterns {
		if pattern.MatchString(name) {
			return fmt.Errorf("route name contains dangerous pattern: %s", name)
		}
	}
	return nil
}

// ValidateWorkerBinaryPath validates the configured worker binary path.
func (v *CommandValidator) ValidateWorkerBinaryPath(path string) error {
	if path == "" {
		return fmt.Errorf("worker binary path cannot be empty")
	}
	if len(path) > 4096 {
		return fmt.Errorf("worker binary path too long (max 4096 characters)")
	}

	path = strings.ReplaceAll(path, "//", "/")

	for _, pattern := range v.dangerousPatterns {
		if pattern.MatchString(path) {
			return fmt.Errorf("worker binary path contains dangerous pattern: %s", path)
		}
	}

	sensitivePrefix := []string{"/etc/", "/proc/", "/sys/", "/dev/"}
	for _, prefix := range sensitivePrefix {
		if strings.HasPrefix(path, prefix) {
			return fmt.Errorf("worker binary path attempts to access sensitive directory: %s", path)
		}
	}

	if !v.filePathPattern.MatchString(path) {
		return fmt.Errorf("worker binary path contains invalid characters: %s", path)
	}
	return nil
}

// ValidateJobArguments validates the string-typed job arguments that are
// marshaled onto a worker process's stdin.
func (v *CommandValidator) ValidateJobArguments(args []string) error {
	for i, arg := range args {
		if len(arg) > 4096 {
			return fmt.Errorf("argument %d too long (max 4096 characters)", i)
		}

		for _, pattern := range v.dangerousPatterns {
			if pattern.MatchString(arg) {
				return fmt.Errorf("argument %d contains dangerous pattern: %s", i, arg)
			}
		}

		if strings.Contains(arg, "\x00") {
			return fmt.Errorf("argument %d contains null byte", i)
		}
	}
	return nil
}
