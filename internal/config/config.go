// Package config holds the process-wide settings of the RFID reader bridge.
//
// Settings are layered: built-in defaults, then an optional YAML file, then
// RFID_* environment variables. Command-line flags are applied last by the
// caller. The result is validated once and treated as read-only afterwards.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Config is the complete runtime configuration.
type Config struct {
	Serial SerialConfig `yaml:"serial"`
	Log    LogConfig    `yaml:"log"`
}

// SerialConfig describes the reader connection.
type SerialConfig struct {
	Port          string        `yaml:"port"`
	Baud          int           `yaml:"baud"`
	ReadTimeout   time.Duration `yaml:"read_timeout"`
	Delimiter     string        `yaml:"delimiter"`
	MaxLineLength int           `yaml:"max_line_length"`
}

// LogConfig controls diagnostics. File is optional.
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// DefaultPort returns the usual device name of a USB-serial adapter on goos.
func DefaultPort(goos string) string {
	switch goos {
	case "windows":
		return "COM3"
	case "darwin":
		return "/dev/tty.usbserial"
	default:
		return "/dev/ttyUSB0"
	}
}

// Default returns the built-in settings: 9600 baud, 1s read timeout and
// the platform's usual adapter name.
func Default() Config {
	return Config{
		Serial: SerialConfig{
			Port:          DefaultPort(runtime.GOOS),
			Baud:          9600,
			ReadTimeout:   time.Second,
			Delimiter:     "\n",
			MaxLineLength: 4096,
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty) and the environment. It does not validate.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := loadFromFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}
	if err := applyEnvOverrides(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFromFile(cfg *Config, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	// An empty file leaves the defaults untouched.
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config, lookup func(string) (string, bool)) error {
	if v, ok := lookup("RFID_PORT"); ok && v != "" {
		cfg.Serial.Port = v
	}
	if v, ok := lookup("RFID_BAUD"); ok && v != "" {
		baud, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("RFID_BAUD: %w", err)
		}
		cfg.Serial.Baud = baud
	}
	if v, ok := lookup("RFID_READ_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("RFID_READ_TIMEOUT: %w", err)
		}
		cfg.Serial.ReadTimeout = d
	}
	if v, ok := lookup("RFID_LOG_LEVEL"); ok && v != "" {
		cfg.Log.Level = v
	}
	if v, ok := lookup("RFID_LOG_FILE"); ok && v != "" {
		cfg.Log.File = v
	}
	return nil
}

// Validate reports the first setting that cannot be used.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Serial.Port) == "" {
		return fmt.Errorf("serial.port is required")
	}
	if c.Serial.Baud <= 0 {
		return fmt.Errorf("serial.baud must be > 0")
	}
	if c.Serial.ReadTimeout <= 0 {
		return fmt.Errorf("serial.read_timeout must be > 0")
	}
	if c.Serial.Delimiter == "" {
		return fmt.Errorf("serial.delimiter must not be empty")
	}
	if c.Serial.MaxLineLength <= 0 {
		return fmt.Errorf("serial.max_line_length must be > 0")
	}
	if c.Log.Level == "" {
		return fmt.Errorf("log.level is required")
	}
	if _, err := zerolog.ParseLevel(strings.ToLower(c.Log.Level)); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}
