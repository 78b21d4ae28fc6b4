package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// RouteSchedule is one entry in a static route-metadata file: an
// override of a registered route's cron expression, read once at boot.
// It lets an operator retune schedules without a code change.
type RouteSchedule struct {
	Name string `yaml:"name"`
	Cron string `yaml:"cron"`
}

// RouteSchedulesFile is the top-level shape of the optional YAML file
// cmd/jobberd reads at startup.
type RouteSchedulesFile struct {
	Routes []RouteSchedule `yaml:"routes"`
}

// LoadRouteSchedules reads and parses path into a name->cron map. An
// empty path is not an error: callers treat it as "no overrides".
func LoadRouteSchedules(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading route schedules file %q: %w", path, err)
	}

	var doc RouteSchedulesFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing route schedules file %q: %w", path, err)
	}

	sanitizer := NewSanitizer()
	out := make(map[string]string, len(doc.Routes))
	for _, r := range doc.Routes {
		if err := sanitizer.ValidateJobName(r.Name); err != nil {
			return nil, fmt.Errorf("route schedules file %q: %w", path, err)
		}
		if r.Cron != "" {
			if err := sanitizer.ValidateCronExpression(r.Cron); err != nil {
				return nil, fmt.Errorf("route schedules file %q: route %q: %w", path, r.Name, err)
			}
		}
		out[r.Name] = r.Cron
	}
	return out, nil
}
