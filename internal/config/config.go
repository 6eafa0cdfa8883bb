package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.yaml.in/yaml/v3"
)

// FileName is the configuration file looked up in the working directory
// and then in the home directory.
const FileName = ".ctxrestore.yml"

// Config holds all ctxrestore configuration.
type Config struct {
	ConfigDBName string   `yaml:"configdb_name" validate:"required"`
	TempDir      string   `yaml:"temp_dir"`      // empty: os temp dir
	StateDB      string   `yaml:"state_db"`      // empty: no persisted state
	MetricsFile  string   `yaml:"metrics_file"`  // node-exporter textfile target
	Exclude      Exclude  `yaml:"exclude"`
	Defaults     Defaults `yaml:"defaults"`
}

// Exclude lists tables and finding types to skip during analysis.
type Exclude struct {
	Tables   []string `yaml:"tables"`
	Findings []string `yaml:"findings"`
}

// Defaults holds default CLI flag values.
type Defaults struct {
	Format  string `yaml:"format" validate:"oneof=text json sarif"`
	Timeout string `yaml:"timeout"` // parsed as time.Duration, empty means no limit
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		ConfigDBName: "configdb",
		Defaults: Defaults{
			Format: "text",
		},
	}
}

// Load reads configuration from .ctxrestore.yml in the given directory,
// falling back to ~/.ctxrestore.yml. Returns DefaultConfig if no file found.
func Load(dir string) (Config, error) {
	cfg := DefaultConfig()

	paths := []string{filepath.Join(dir, FileName)}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, FileName))
	}

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("%s: %w", path, err)
		}
		if err := cfg.Validate(); err != nil {
			return cfg, fmt.Errorf("%s: %w", path, err)
		}
		return cfg, nil
	}

	return cfg, nil
}

// Exists reports whether dir contains a config file.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, FileName))
	return err == nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and the timeout syntax.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}
		msgs := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			switch fe.Tag() {
			case "required":
				msgs = append(msgs, fmt.Sprintf("%s is required", fe.Namespace()))
			case "oneof":
				msgs = append(msgs, fmt.Sprintf("%s must be one of: %s", fe.Namespace(), fe.Param()))
			default:
				msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
			}
		}
		return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
	}
	if c.Defaults.Timeout != "" {
		if _, err := time.ParseDuration(c.Defaults.Timeout); err != nil {
			return fmt.Errorf("invalid config: defaults.timeout: %w", err)
		}
	}
	return nil
}

// TimeoutDuration parses Defaults.Timeout. Zero means no limit.
func (c *Config) TimeoutDuration() time.Duration {
	if c.Defaults.Timeout == "" {
		return 0
	}
	d, err := time.ParseDuration(c.Defaults.Timeout)
	if err != nil {
		return 0
	}
	return d
}
