// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package config loads the simulator's YAML configuration file.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/Thermoquad/metasim/pkg/metawatch"
	"github.com/Thermoquad/metasim/pkg/watch"
	"gopkg.in/yaml.v3"
)

// SerialConfig holds the default serial port settings
type SerialConfig struct {
	Port string `yaml:"port"`
	Baud int    `yaml:"baud"`
}

// Config is the simulator configuration. Durations are Go duration strings
// such as "10s" or "250ms".
type Config struct {
	DeviceType        uint8         `yaml:"device_type"`
	LEDTimeout        time.Duration `yaml:"led_timeout"`
	HoldThreshold     time.Duration `yaml:"hold_threshold"`
	LongHoldThreshold time.Duration `yaml:"long_hold_threshold"`
	BatteryMillivolts uint16        `yaml:"battery_millivolts"`
	BatteryCharging   bool          `yaml:"battery_charging"`
	LightLevel        uint16        `yaml:"light_level"`
	Serial            SerialConfig  `yaml:"serial"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		DeviceType:        metawatch.DeviceTypeDigital,
		LEDTimeout:        watch.DefaultLEDTimeout,
		HoldThreshold:     watch.DefaultHoldThreshold,
		LongHoldThreshold: watch.DefaultLongHoldThreshold,
		BatteryMillivolts: watch.DefaultBatteryMillivolts,
		LightLevel:        watch.DefaultLightLevel,
		Serial: SerialConfig{
			Baud: 115200,
		},
	}
}

// DefaultPath returns the per-user config file location
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "metasim", "config.yaml")
}

// Load reads path over the defaults. Fields missing from the file keep their
// default values. A missing file is an error unless optional is set.
func Load(path string, optional bool) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	f, err := os.Open(path)
	if err != nil {
		if optional && errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer f.Close()

	if err := cfg.decode(f); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse reads YAML from r over the defaults
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()
	if err := cfg.decode(r); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decode(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("invalid config: %w", err)
	}
	return c.Validate()
}

// Validate checks the values for consistency
func (c *Config) Validate() error {
	if c.DeviceType < metawatch.DeviceTypeAnalog || c.DeviceType > metawatch.DeviceTypeAnalogDev {
		return fmt.Errorf("device_type %d out of range (1-4)", c.DeviceType)
	}
	if c.LEDTimeout < 0 {
		return fmt.Errorf("led_timeout must not be negative")
	}
	if c.HoldThreshold <= 0 || c.LongHoldThreshold <= c.HoldThreshold {
		return fmt.Errorf("need 0 < hold_threshold (%v) < long_hold_threshold (%v)",
			c.HoldThreshold, c.LongHoldThreshold)
	}
	if c.Serial.Baud <= 0 {
		return fmt.Errorf("serial.baud must be positive")
	}
	return nil
}

// DeviceOptions converts the configuration to device options. Send,
// Scheduler, Observer and Logger are left for the caller.
func (c *Config) DeviceOptions() watch.Options {
	opts := watch.DefaultOptions()
	opts.DeviceType = c.DeviceType
	opts.LEDTimeout = c.LEDTimeout
	opts.HoldThreshold = c.HoldThreshold
	opts.LongHoldThreshold = c.LongHoldThreshold
	opts.Battery = metawatch.BatteryVoltage{
		PowerGood:  true,
		Charging:   c.BatteryCharging,
		Millivolts: c.BatteryMillivolts,
		Average:    c.BatteryMillivolts,
	}
	opts.LightLevel = c.LightLevel
	return opts
}
