package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/ini.v1"
)

// AppConfig is the file-backed configuration for the jobberd daemon, an
// INI document at the path the -config flag names. Every field is
// optional: an absent file, or an absent key within one, falls back to
// the CLI flag/environment-variable default DaemonCommand already
// carries.
type AppConfig struct {
	Name          string `ini:"name" validate:"omitempty,max=128"`
	LogLevel      string `ini:"log_level" validate:"omitempty,oneof=trace debug info notice warn warning error critical"`
	LogFormat     string `ini:"log_format" validate:"omitempty,oneof=text json zerolog"`
	WorkerBinary  string `ini:"worker_binary"`
	Durable       bool   `ini:"durable"`
	DBPath        string `ini:"db_path"`
	RoutesFile    string `ini:"routes_file"`
	EnablePprof   bool   `ini:"enable_pprof"`
	PprofAddr     string `ini:"pprof_address" validate:"omitempty,hostname_port"`
	EnableMetrics bool   `ini:"enable_metrics"`
	MetricsAddr   string `ini:"metrics_address" validate:"omitempty,hostname_port"`
	SaveFolder    string `ini:"save_folder"`
}

var appConfigValidate = validator.New()

// LoadAppConfig reads and validates the INI document at path. A blank
// path, or a path that does not exist, is not an error: it returns a
// zero-value AppConfig so every field's absence is visible to the
// caller as "not set" rather than failing the daemon's boot.
func LoadAppConfig(path string) (*AppConfig, error) {
	cfg := &AppConfig{}
	if path == "" {
		return cfg, nil
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	f, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading config file %q: %w", path, err)
	}

	if err := f.MapTo(cfg); err != nil {
		return nil, fmt.Errorf("decoding config file %q: %w", path, err)
	}

	if err := appConfigValidate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("validating config file %q: %w", path, err)
	}

	return cfg, nil
}
