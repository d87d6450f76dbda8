// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/ptzbridge/pkg/telemetry"
)

var (
	watchURL         string
	watchNoSSLVerify bool
	watchFilter      string
	watchDuration    time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print telemetry streamed by a running bridge",
	Long: `Connect to a bridge's telemetry WebSocket and print every sample.

The bridge serves telemetry when telemetry.websocket.listen is set in its
config, for example:

  ptzbridge watch --url ws://localhost:8080/telemetry --filter online_

Exit codes:
  0 - Stream ended normally (or --duration elapsed)
  1 - Stream failed
  2 - Connection error`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().StringVarP(&watchURL, "url", "u", "ws://localhost:8080/telemetry", "Telemetry WebSocket URL (ws:// or wss://)")
	watchCmd.Flags().BoolVar(&watchNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")
	watchCmd.Flags().StringVar(&watchFilter, "filter", "", "Only print keys starting with this prefix")
	watchCmd.Flags().DurationVar(&watchDuration, "duration", 0, "Stop after this long (0 = until closed)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	conn, err := OpenTelemetryStream(watchURL, watchNoSSLVerify)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	fmt.Printf("PTZ Bridge - Telemetry\n")
	fmt.Printf("Connection: %s\n", watchURL)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	if watchDuration > 0 {
		conn.SetReadDeadline(time.Now().Add(watchDuration))
	}

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				fmt.Printf("Connection closed by bridge\n")
				return nil
			}
			if watchDuration > 0 && os.IsTimeout(err) {
				return nil
			}
			return fmt.Errorf("read failed: %w", err)
		}

		if messageType != websocket.BinaryMessage {
			continue
		}

		s, err := telemetry.DecodeSample(data)
		if err != nil {
			fmt.Printf("[ERROR] %v\n", err)
			continue
		}
		if watchFilter != "" && !strings.HasPrefix(s.Key, watchFilter) {
			continue
		}
		fmt.Println(s)
	}
}
