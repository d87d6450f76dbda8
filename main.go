// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// PTZ Bridge - OSC to VISCA-over-IP camera bridge
//
// Translates OSC control surface messages into VISCA commands for PTZ
// cameras and reports camera state back to the surface.

package main

import (
	"os"

	"github.com/Thermoquad/ptzbridge/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
