// Package config defines the runtime configuration of the Fluvius client and
// loads it from an optional YAML file. Flags and environment variables are
// resolved by the caller and take precedence over file values.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Granularity codes accepted by the measurement-history API.
const (
	GranularityQuarterHour = "3"
	GranularityDaily       = "4"
)

// Config holds all recognized options.
type Config struct {
	// Email is the Fluvius account email used for the login flow.
	Email string `yaml:"email"`
	// Password is the Fluvius account password.
	Password string `yaml:"password"`
	// EAN identifies the metering point.
	EAN string `yaml:"ean"`
	// MeterSerial is the meter serial number.
	MeterSerial string `yaml:"meter-serial"`
	// BearerToken, when set, bypasses authentication entirely.
	BearerToken string `yaml:"bearer-token"`
	// RememberMe forwards the rememberMe flag during login.
	RememberMe bool `yaml:"remember-me"`
	// DaysBack is how many days of history to request.
	DaysBack int `yaml:"days-back"`
	// Timezone is the IANA zone used to build the history range.
	Timezone string `yaml:"timezone"`
	// Granularity is the API granularity code (3=quarter-hour, 4=daily).
	Granularity string `yaml:"granularity"`
	// Output is the path the raw JSON response is written to.
	Output string `yaml:"output"`
	// ProxyURL routes all HTTP traffic through a socks5/http/https proxy.
	ProxyURL string `yaml:"proxy-url"`
	// RequestTimeout bounds each HTTP call, in seconds.
	RequestTimeout int `yaml:"request-timeout"`
	// LoggingToFile mirrors logs into a rotated file next to the output.
	LoggingToFile bool `yaml:"logging-to-file"`
	// Debug enables verbose logging.
	Debug bool `yaml:"debug"`
	// Quiet reduces log noise to warnings and errors.
	Quiet bool `yaml:"quiet"`
}

// DefaultConfig returns the built-in defaults, matching the public defaults
// of the mijn.fluvius.be consumption download.
func DefaultConfig() *Config {
	return &Config{
		DaysBack:       7,
		Timezone:       "Europe/Brussels",
		Granularity:    GranularityDaily,
		Output:         "fluvius_consumption_data.json",
		RequestTimeout: 30,
	}
}

// LoadConfig reads a YAML config file into the defaults. A missing file is
// not an error; the defaults are returned unchanged.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err = yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

// Validate checks that the resolved configuration is complete enough to run:
// the metering point must always be identified, and credentials are required
// unless an existing bearer token is supplied.
func (c *Config) Validate() error {
	if c.EAN == "" {
		return errors.New("missing ean (flag -ean or FLUVIUS_EAN)")
	}
	if c.MeterSerial == "" {
		return errors.New("missing meter serial (flag -meter-serial or FLUVIUS_METER_SERIAL)")
	}
	if c.BearerToken == "" {
		if c.Email == "" {
			return errors.New("missing email (flag -email or FLUVIUS_LOGIN)")
		}
		if c.Password == "" {
			return errors.New("missing password (flag -password or FLUVIUS_PASSWORD)")
		}
	}
	if c.Granularity != GranularityQuarterHour && c.Granularity != GranularityDaily {
		return fmt.Errorf("invalid granularity %q (3=quarter-hour, 4=daily)", c.Granularity)
	}
	if c.DaysBack < 0 {
		return fmt.Errorf("invalid days-back %d", c.DaysBack)
	}
	return nil
}
