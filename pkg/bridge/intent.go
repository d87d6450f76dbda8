// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package bridge turns operator messages into camera commands: intents are
// decoded from OSC paths, resolved against the command table and sent
// through the device registry. The status poller lives here too.
package bridge

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors
var (
	ErrDecode         = errors.New("malformed intent")
	ErrUnknownCommand = errors.New("unknown command")
)

// Intent is one decoded request: a command for one device, or for every
// device when DeviceID is "0".
type Intent struct {
	DeviceID string
	Command  string
	Args     []float64
}

// Path returns the intent's address, /<device>/<command>
func (i Intent) Path() string {
	return "/" + i.DeviceID + "/" + i.Command
}

func (i Intent) String() string {
	return fmt.Sprintf("%s %v", i.Path(), i.Args)
}

// ParseIntent decodes a /<device>/<command> path. Anything else, including
// empty segments and extra segments, is rejected with ErrDecode.
func ParseIntent(path string, args []float64) (Intent, error) {
	if !strings.HasPrefix(path, "/") {
		return Intent{}, fmt.Errorf("%w: path %q must start with '/'", ErrDecode, path)
	}

	parts := strings.Split(path[1:], "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Intent{}, fmt.Errorf("%w: path %q is not /<device>/<command>", ErrDecode, path)
	}

	return Intent{DeviceID: parts[0], Command: parts[1], Args: args}, nil
}
