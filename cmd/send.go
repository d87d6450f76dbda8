// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/ptzbridge/pkg/bridge"
	"github.com/Thermoquad/ptzbridge/pkg/telemetry"
)

var (
	sendNoReset bool
	sendTimeout time.Duration
)

var sendCmd = &cobra.Command{
	Use:   "send <path> [args...]",
	Short: "Send one command and exit",
	Long: `Dispatch a single command exactly as if it had arrived over OSC.

Examples:
  ptzbridge send /1/camera_on
  ptzbridge send /0/memory_recall 3
  ptzbridge send /2/pan_absolute_position 18 17 -45 10

The camera's sequence number is reset first unless --no-reset is given.

Exit codes:
  0 - Command completed
  1 - Command failed (no response, rejected, bad arguments)`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSend,
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().BoolVar(&sendNoReset, "no-reset", false, "Do not reset the sequence number first")
	sendCmd.Flags().DurationVar(&sendTimeout, "timeout", 30*time.Second, "Overall timeout")
}

// parseIntentArgs decodes the command line form of an intent
func parseIntentArgs(args []string) (bridge.Intent, error) {
	values := make([]float64, 0, len(args)-1)
	for _, a := range args[1:] {
		v, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return bridge.Intent{}, fmt.Errorf("%w: argument %q is not a number", bridge.ErrDecode, a)
		}
		values = append(values, v)
	}
	return bridge.ParseIntent(args[0], values)
}

func runSend(cmd *cobra.Command, args []string) error {
	in, err := parseIntentArgs(args)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	reg, err := openRegistry(cfg)
	if err != nil {
		return err
	}
	defer reg.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), sendTimeout)
	defer cancel()

	dispatcher := bridge.NewDispatcher(reg, telemetry.Noop{}, logger)

	if !sendNoReset && in.Command != "reset_sequence_number" {
		if err := reg.ResetSequence(ctx, in.DeviceID); err != nil {
			logger.Warn("sequence reset failed", "device_id", in.DeviceID, "error", err)
		}
	}

	start := time.Now()
	if err := dispatcher.Dispatch(ctx, in); err != nil {
		return err
	}
	fmt.Printf("%s: OK (%v)\n", in, time.Since(start).Round(time.Millisecond))
	return nil
}
