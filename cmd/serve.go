// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/ptzbridge/pkg/bridge"
	"github.com/Thermoquad/ptzbridge/pkg/device"
)

var (
	serveListen string
	serveNoPoll bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the bridge",
	Long: `Listen for OSC messages and drive the configured cameras.

On start-up every camera's sequence number is reset. A camera that does not
answer is reported and retried on the next command; it does not stop the
bridge. While running, every camera is polled for its focus mode and the
result is published as online_<id> and focus_auto_<id>.

Stop with Ctrl+C (SIGINT) or SIGTERM.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVarP(&serveListen, "listen", "l", "", "OSC listen address (overrides the config, e.g. :8002)")
	serveCmd.Flags().BoolVar(&serveNoPoll, "no-poll", false, "Disable the status poller")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveListen != "" {
		cfg.OSC.Listen = serveListen
	}

	reg, err := openRegistry(cfg)
	if err != nil {
		return err
	}
	defer reg.Close()

	out, err := openTelemetry(cfg)
	if err != nil {
		return err
	}
	defer out.Close()
	pub := out.Publisher()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dispatcher := bridge.NewDispatcher(reg, pub, logger)

	// Start from a known sequence on every camera
	for _, s := range reg.Sessions() {
		in := bridge.Intent{DeviceID: s.ID(), Command: "reset_sequence_number"}
		if err := dispatcher.Dispatch(ctx, in); err != nil {
			logger.Warn("initial sequence reset failed", "device_id", s.ID(), "address", s.Endpoint().String())
		}
	}

	errc := make(chan error, 2)

	if !cfg.Poll.Disabled && !serveNoPoll {
		poller := bridge.NewPoller(reg, pub, cfg.Poll.Interval.Std(), logger)
		go func() {
			if err := poller.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errc <- err
			}
		}()
	}

	osc := bridge.NewOSCHandler(dispatcher, logger)
	osc.OnSender = out.FollowSender(cfg.Telemetry.OSC.Host)
	go func() {
		errc <- osc.ListenAndServe(ctx, cfg.OSC.Listen)
	}()

	logger.Info("bridge running", "cameras", reg.Len(), "osc", cfg.OSC.Listen)

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		for _, s := range reg.Sessions() {
			logStats(s)
		}
		return nil
	case err := <-errc:
		return err
	}
}

func logStats(s *device.Session) {
	st := s.Stats()
	logger.Info("session statistics",
		"device_id", s.ID(),
		"sends", st.Sends,
		"completions", st.Completions,
		"no_responses", st.NoResponses,
		"reconnects", st.Reconnects,
		"failure_rate", st.FailureRate)
}
