// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath string
	logLevel   string
	logFormat  string

	logger = slog.Default()
)

var rootCmd = &cobra.Command{
	Use:   "ptzbridge",
	Short: "OSC to VISCA-over-IP camera bridge",
	Long: `PTZ Bridge - Drive VISCA-over-IP cameras from an OSC control surface.

Messages addressed /<camera>/<command> are translated into VISCA commands and
sent to the camera with sequence tracking and retries. Camera 0 addresses
every camera. Device state (online, autofocus, sequence resets) is pushed back
to the control surface and, optionally, to WebSocket and MQTT clients.

The camera inventory is read from --config or the PTZBRIDGE_CONFIG
environment variable. Both YAML and JSON files are accepted.`,
	Version:       "1.0.0",
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := newLogger(os.Stderr, logLevel, logFormat)
		if err != nil {
			return err
		}
		logger = l
		slog.SetDefault(l)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (YAML or JSON)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format (text, json)")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
