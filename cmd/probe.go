// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/ptzbridge/pkg/bridge"
	"github.com/Thermoquad/ptzbridge/pkg/telemetry"
)

var (
	probeCount int
	probeReset bool
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Poll every camera once and print its status",
	Long: `Send the focus mode inquiry to every configured camera and report
whether it answered, its focus mode, the round trip time and its sequence
number.

Exit codes:
  0 - Every camera answered every probe
  1 - One or more probes failed
  2 - Configuration error`,
	RunE: runProbe,
}

func init() {
	rootCmd.AddCommand(probeCmd)
	probeCmd.Flags().IntVar(&probeCount, "count", 1, "Number of probe rounds")
	probeCmd.Flags().BoolVar(&probeReset, "reset", false, "Reset every sequence number before probing")
}

func runProbe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(2)
	}
	reg, err := openRegistry(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(2)
	}
	defer reg.Close()

	ctx := cmd.Context()
	if probeReset {
		for _, s := range reg.Sessions() {
			if err := s.ResetSequence(ctx); err != nil {
				logger.Warn("sequence reset failed", "device_id", s.ID(), "error", err)
			}
		}
	}

	poller := bridge.NewPoller(reg, telemetry.Noop{}, 0, logger)
	styled := isTerminal(os.Stdout)

	sent, failed := 0, 0
	for i := 1; i <= probeCount; i++ {
		if probeCount > 1 {
			fmt.Printf("Round %d/%d\n", i, probeCount)
		}
		statuses := poller.PollOnce(ctx)
		renderStatuses(os.Stdout, statuses, styled)

		for _, st := range statuses {
			sent++
			if !st.Online {
				failed++
			}
		}
		if i < probeCount {
			time.Sleep(500 * time.Millisecond)
		}
	}

	if probeCount > 1 {
		fmt.Printf("\n--- Probe statistics ---\n")
		fmt.Printf("%d probes sent, %d answered, %.0f%% loss\n",
			sent, sent-failed, float64(failed)/float64(sent)*100)
	}

	if failed > 0 {
		os.Exit(1)
	}
	return nil
}

// renderStatuses prints one row per camera. Colors are only used on a
// terminal.
func renderStatuses(w io.Writer, statuses []bridge.Status, styled bool) {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	okStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	render := func(s lipgloss.Style, text string) string {
		if !styled {
			return text
		}
		return s.Render(text)
	}

	cols := []int{4, 12, 24, 8, 8, 8, 6}
	row := func(cells ...string) string {
		var b strings.Builder
		for i, c := range cells {
			b.WriteString(c)
			if i < len(cols) {
				b.WriteString(strings.Repeat(" ", max(1, cols[i]+1-lipgloss.Width(c))))
			}
		}
		return strings.TrimRight(b.String(), " ")
	}

	fmt.Fprintln(w, render(headerStyle, row("ID", "NAME", "ADDRESS", "STATE", "FOCUS", "RTT", "SEQ", "ERROR")))
	for _, st := range statuses {
		state := render(okStyle, "online")
		if !st.Online {
			state = render(errorStyle, "offline")
		}

		focus := "-"
		switch {
		case st.Online && st.Err == nil && st.FocusAuto:
			focus = "auto"
		case st.Online && st.Err == nil:
			focus = "manual"
		}

		errText := ""
		if st.Err != nil {
			errText = render(dimStyle, st.Err.Error())
		}

		fmt.Fprintln(w, row(
			st.DeviceID,
			st.Name,
			st.Address,
			state,
			focus,
			st.Latency.Round(time.Millisecond).String(),
			fmt.Sprint(st.Sequence),
			errText,
		))
	}
}
