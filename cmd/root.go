// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"

	"github.com/Thermoquad/metasim/internal/config"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	// Serial connection flags
	portName string
	baudRate int

	// WebSocket connection flags
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool

	configPath string
	logLevel   string

	// cfg is loaded before any command runs
	cfg = config.Default()
)

var rootCmd = &cobra.Command{
	Use:   "metasim",
	Short: "MetaWatch Protocol Simulator",
	Long: `Metasim - A simulated MetaWatch wrist device.

Speaks the MetaWatch serial protocol over a serial port or WebSocket bridge,
maintaining display buffers, button mappings, LED, vibration, clock and NVAL
registers the way the real watch does. Also provides sniffing, replay and
connectivity tools for the same protocol.

Connection modes:
  Serial:    --port /dev/ttyUSB0 [--baud 115200]
  WebSocket: --url ws://host/path [--username user]

Settings are read from --config, or from the per-user config file when it
exists. Flags override the file.

For WebSocket authentication, the password is read from the METASIM_PASSWORD
environment variable, or prompted interactively if not set. The --password
flag is intentionally not provided to avoid leaking credentials in shell history.`,
	Version:           "0.1.0",
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	// Serial connection flags
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial port device")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", 115200, "Baud rate (serial only)")

	// WebSocket connection flags
	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "WebSocket URL (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: user config dir/metasim/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (trace, debug, info, warn, error)")
}

// setup loads the config file, applies flag overrides and configures the
// root logger
func setup(cmd *cobra.Command, args []string) error {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return err
	}
	logrus.SetLevel(level)
	logrus.SetOutput(os.Stderr)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05.000",
	})

	path, optional := configPath, false
	if path == "" {
		path, optional = config.DefaultPath(), true
	}
	loaded, err := config.Load(path, optional)
	if err != nil {
		return err
	}
	cfg = loaded

	flags := cmd.Flags()
	if !flags.Changed("port") && cfg.Serial.Port != "" {
		portName = cfg.Serial.Port
	}
	if flags.Changed("baud") {
		cfg.Serial.Baud = baudRate
	} else {
		baudRate = cfg.Serial.Baud
	}
	if baudRate <= 0 {
		return fmt.Errorf("baud rate must be positive")
	}

	logrus.WithField("config", path).Debug("configuration loaded")
	return nil
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
