// Package config loads daemon settings from defaults, an optional YAML file
// and MOTOR_SWITCH_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"
)

// Config is the complete daemon configuration.
type Config struct {
	Input   InputConfig   `yaml:"input"`
	GPIO    GPIOConfig    `yaml:"gpio"`
	MQTT    MQTTConfig    `yaml:"mqtt"`
	HTTP    HTTPConfig    `yaml:"http"`
	History HistoryConfig `yaml:"history"`
	Log     LogConfig     `yaml:"log"`
	EnvFile string        `yaml:"envFile"` // pi-helper network env file
}

// InputConfig selects the command stream.
type InputConfig struct {
	Device     string        `yaml:"device"` // "-" for stdin
	Baud       int           `yaml:"baud"`
	ErrorDelay time.Duration `yaml:"errorDelay"`
}

// GPIOConfig identifies the actuator line.
type GPIOConfig struct {
	Chip      string `yaml:"chip"`
	Pin       int    `yaml:"pin"`
	ActiveLow bool   `yaml:"activeLow"`
}

// MQTTConfig holds broker settings. An empty Broker disables MQTT.
type MQTTConfig struct {
	Broker    string        `yaml:"broker"`
	Heartbeat time.Duration `yaml:"heartbeat"`
}

// HTTPConfig holds the status server address. Empty disables it.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// HistoryConfig holds the command history database path. Empty disables it.
type HistoryConfig struct {
	Path string `yaml:"path"`
}

// LogConfig controls the optional rotating log file.
type LogConfig struct {
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"maxSizeMb"`
	MaxBackups int    `yaml:"maxBackups"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Input: InputConfig{
			Device:     "-",
			Baud:       115200,
			ErrorDelay: time.Second,
		},
		GPIO: GPIOConfig{
			Chip: "gpiochip0",
			Pin:  16,
		},
		MQTT: MQTTConfig{
			Broker:    "tcp://192.168.1.200:1883",
			Heartbeat: 15 * time.Minute,
		},
		HTTP: HTTPConfig{
			Addr: ":80",
		},
		Log: LogConfig{
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		EnvFile: "/run/pi-helper.env",
	}
}

// Load builds the configuration: defaults, then path (if non-empty), then
// environment overrides. The result is validated.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := LoadFile(cfg, path); err != nil {
			return nil, err
		}
	}

	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFile merges the YAML file at path into cfg. Keys absent from the
// file keep their current values.
func LoadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.UnmarshalStrict(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// Environment variable names.
const (
	EnvDevice    = "MOTOR_SWITCH_DEVICE"
	EnvBaud      = "MOTOR_SWITCH_BAUD"
	EnvPin       = "MOTOR_SWITCH_PIN"
	EnvBroker    = "MOTOR_SWITCH_BROKER"
	EnvHTTP      = "MOTOR_SWITCH_HTTP"
	EnvHistory   = "MOTOR_SWITCH_HISTORY"
	EnvHeartbeat = "MOTOR_SWITCH_HEARTBEAT"
)

// ApplyEnv overrides cfg with any MOTOR_SWITCH_* variables that are set.
// String settings may be set to empty to disable a feature.
func ApplyEnv(cfg *Config) error {
	if v, ok := os.LookupEnv(EnvDevice); ok {
		cfg.Input.Device = v
	}
	if v, ok := os.LookupEnv(EnvBroker); ok {
		cfg.MQTT.Broker = v
	}
	if v, ok := os.LookupEnv(EnvHTTP); ok {
		cfg.HTTP.Addr = v
	}
	if v, ok := os.LookupEnv(EnvHistory); ok {
		cfg.History.Path = v
	}
	if v := os.Getenv(EnvBaud); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvBaud, err)
		}
		cfg.Input.Baud = n
	}
	if v := os.Getenv(EnvPin); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvPin, err)
		}
		cfg.GPIO.Pin = n
	}
	if v := os.Getenv(EnvHeartbeat); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvHeartbeat, err)
		}
		cfg.MQTT.Heartbeat = d
	}
	return nil
}

// Validate checks settings that would otherwise fail late at runtime.
func (c *Config) Validate() error {
	var errs []error
	if c.GPIO.Chip == "" {
		errs = append(errs, errors.New("gpio.chip must not be empty"))
	}
	if c.GPIO.Pin < 0 {
		errs = append(errs, fmt.Errorf("gpio.pin must be >= 0, got %d", c.GPIO.Pin))
	}
	if c.Input.Baud <= 0 {
		errs = append(errs, fmt.Errorf("input.baud must be > 0, got %d", c.Input.Baud))
	}
	if c.Input.ErrorDelay < 0 {
		errs = append(errs, fmt.Errorf("input.errorDelay must be >= 0, got %v", c.Input.ErrorDelay))
	}
	if c.MQTT.Heartbeat < 0 {
		errs = append(errs, fmt.Errorf("mqtt.heartbeat must be >= 0, got %v", c.MQTT.Heartbeat))
	}
	return errors.Join(errs...)
}

// YAML renders cfg as a YAML document.
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}
