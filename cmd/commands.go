// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/ptzbridge/pkg/bridge"
)

var commandsCmd = &cobra.Command{
	Use:   "commands",
	Short: "List the OSC commands the bridge understands",
	Long: `List every command name accepted in /<camera>/<command>, grouped by
category, with the minimum number of arguments it needs.

speed01 to speed18 are also accepted: they pick the speed used by
directional commands sent with a single argument.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		listCommands(os.Stdout, isTerminal(os.Stdout))
	},
}

func init() {
	rootCmd.AddCommand(commandsCmd)
}

func listCommands(w io.Writer, styled bool) {
	categoryStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	argStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	var last bridge.Category
	for _, e := range bridge.Commands() {
		if e.Category != last {
			if last != "" {
				fmt.Fprintln(w)
			}
			title := strings.ToUpper(string(e.Category))
			if styled {
				title = categoryStyle.Render(title)
			}
			fmt.Fprintln(w, title)
			last = e.Category
		}

		args := describeArgs(e)
		if styled && args != "" {
			args = argStyle.Render(args)
		}
		fmt.Fprintf(w, "  %-24s %s\n", e.Name, args)
	}
}

func describeArgs(e bridge.Entry) string {
	n := e.MinArgs
	for _, i := range slices.Concat(e.Speed, e.Position) {
		n = max(n, i+1)
	}
	if n == 0 {
		return ""
	}
	parts := make([]string, 0, n)
	for i := 0; i < n; i++ {
		switch {
		case slices.Contains(e.Speed, i):
			parts = append(parts, "speed")
		case slices.Contains(e.Position, i):
			parts = append(parts, "position")
		default:
			parts = append(parts, "value")
		}
	}
	return strings.Join(parts, " ")
}
