// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package device owns the per-camera protocol state: the sequence counter,
// the send lock, the transport and the retry policy. A Registry maps device
// ids to sessions and resolves the broadcast id.
package device

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/Thermoquad/ptzbridge/pkg/visca"
)

// Sentinel errors
var (
	ErrNoResponse    = errors.New("no response from device")
	ErrTransport     = errors.New("transport error")
	ErrTimeout       = errors.New("timed out waiting for reply")
	ErrRejected      = errors.New("device rejected frame")
	ErrUnknownDevice = errors.New("unknown device")
	ErrClosed        = errors.New("session closed")
)

// BroadcastID addresses every registered device.
const BroadcastID = "0"

// Endpoint describes how to reach one camera. Endpoints are loaded once at
// startup and never mutated.
type Endpoint struct {
	ID   string
	Name string
	Host string
	Port int

	// SerialPort selects the RS-232 transport instead of UDP when set
	SerialPort string
	BaudRate   int

	Calibrations visca.Calibrations
}

// Address returns host:port for the UDP transport.
func (e Endpoint) Address() string {
	port := e.Port
	if port == 0 {
		port = visca.DefaultPort
	}
	return net.JoinHostPort(e.Host, strconv.Itoa(port))
}

func (e Endpoint) String() string {
	if e.SerialPort != "" {
		return fmt.Sprintf("camera %s (serial %s)", e.ID, e.SerialPort)
	}
	return fmt.Sprintf("camera %s (%s)", e.ID, e.Address())
}

// Transport carries frames to and from one device. A transport is used by
// one session at a time and is discarded after any failed attempt.
type Transport interface {
	// Send writes one frame.
	Send(f visca.Frame) error

	// Receive blocks until a frame arrives or the deadline passes. A passed
	// deadline is reported as an error matching ErrTimeout; a datagram that
	// is not a frame is reported as visca.ErrDecode.
	Receive(deadline time.Time) (visca.Frame, error)

	// ID identifies this transport generation in logs.
	ID() string

	Close() error
}

// DialFunc opens a fresh transport to an endpoint.
type DialFunc func(ctx context.Context, ep Endpoint) (Transport, error)

// Dial opens the transport selected by the endpoint: serial when a serial
// port is configured, VISCA-over-IP otherwise.
func Dial(ctx context.Context, ep Endpoint) (Transport, error) {
	if ep.SerialPort != "" {
		return DialSerial(ep)
	}
	return DialUDP(ctx, ep)
}
