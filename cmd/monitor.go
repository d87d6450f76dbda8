// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/ptzbridge/pkg/visca"
)

var (
	monitorListen string
	monitorReply  bool
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Display VISCA-over-IP frames received on a UDP port",
	Long: `Listen on a UDP port and decode every VISCA-over-IP frame that arrives.

Point the bridge (or any controller) at this address instead of a camera to
see exactly what it sends. With --reply the monitor answers each command and
inquiry with an acknowledgement and a completion, like a healthy camera.`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
	monitorCmd.Flags().StringVarP(&monitorListen, "listen", "l", fmt.Sprintf(":%d", visca.DefaultPort), "UDP listen address")
	monitorCmd.Flags().BoolVar(&monitorReply, "reply", false, "Answer like a camera")
}

func runMonitor(cmd *cobra.Command, args []string) error {
	conn, err := net.ListenPacket("udp", monitorListen)
	if err != nil {
		return fmt.Errorf("listen %s: %w", monitorListen, err)
	}
	defer conn.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	context.AfterFunc(ctx, func() { conn.Close() })

	fmt.Printf("PTZ Bridge - VISCA Monitor\n")
	fmt.Printf("Listening: %s\n", conn.LocalAddr())
	fmt.Printf("Press Ctrl+C to exit\n\n")

	return monitor(ctx, conn, os.Stdout, monitorReply)
}

// monitor prints every datagram read from conn until ctx is done
func monitor(ctx context.Context, conn net.PacketConn, w io.Writer, reply bool) error {
	buf := make([]byte, 1500)
	for {
		n, addr, err := conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}

		f, err := visca.Decode(buf[:n])
		if err != nil {
			fmt.Fprintf(w, "[ERROR] %s: %v\n", addr, err)
			continue
		}
		fmt.Fprintf(w, "%s  from %s\n", visca.FormatFrame(f, time.Now()), addr)

		if reply {
			for _, r := range cameraReplies(f) {
				if _, err := conn.WriteTo(visca.MustEncode(r), addr); err != nil {
					fmt.Fprintf(w, "[ERROR] reply to %s: %v\n", addr, err)
				}
			}
		}
	}
}

// cameraReplies returns what a healthy camera answers to f
func cameraReplies(f visca.Frame) []visca.Frame {
	switch f.Type {
	case visca.TypeControlCommand:
		return []visca.Frame{visca.NewFrame(visca.TypeControlReply, []byte{visca.ControlReset}, f.Sequence)}
	case visca.TypeCommand:
		return []visca.Frame{
			visca.NewFrame(visca.TypeReply, []byte{0x90, 0x41, 0xFF}, f.Sequence),
			visca.NewFrame(visca.TypeReply, []byte{0x90, 0x51, 0xFF}, f.Sequence),
		}
	case visca.TypeInquiry:
		return []visca.Frame{visca.NewFrame(visca.TypeReply, []byte{0x90, 0x50, visca.FocusModeAuto, 0xFF}, f.Sequence)}
	}
	return nil
}
