// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/hypebeast/go-osc/osc"
)

// maxDatagram bounds one OSC packet
const maxDatagram = 65535

// IntentHandler executes intents. *Dispatcher implements it.
type IntentHandler interface {
	Dispatch(ctx context.Context, in Intent) error
}

// IntentFromMessage converts an OSC message. Numeric and boolean arguments
// become floats; any other argument type is a decode error.
func IntentFromMessage(msg *osc.Message) (Intent, error) {
	args := make([]float64, 0, len(msg.Arguments))
	for i, a := range msg.Arguments {
		var v float64
		switch t := a.(type) {
		case float32:
			v = float64(t)
		case float64:
			v = t
		case int32:
			v = float64(t)
		case int64:
			v = float64(t)
		case bool:
			if t {
				v = 1
			}
		default:
			return Intent{}, fmt.Errorf("%w: %s argument %d has type %T", ErrDecode, msg.Address, i, a)
		}
		args = append(args, v)
	}
	return ParseIntent(msg.Address, args)
}

// OSCHandler turns OSC packets into intents and handles them one at a time
// in the order they arrive. It implements osc.Dispatcher.
type OSCHandler struct {
	handler IntentHandler
	log     *slog.Logger
	ctx     context.Context

	// OnSender, if set, is called with the source of every datagram before
	// it is handled, so replies can follow the control surface.
	OnSender func(addr net.Addr)
}

// NewOSCHandler creates a handler dispatching to h
func NewOSCHandler(h IntentHandler, logger *slog.Logger) *OSCHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &OSCHandler{handler: h, log: logger, ctx: context.Background()}
}

// Dispatch implements osc.Dispatcher. Bundle members are handled in order.
func (o *OSCHandler) Dispatch(packet osc.Packet) {
	switch p := packet.(type) {
	case *osc.Message:
		o.handleMessage(p)
	case *osc.Bundle:
		for _, m := range p.Messages {
			o.handleMessage(m)
		}
		for _, b := range p.Bundles {
			o.Dispatch(b)
		}
	}
}

func (o *OSCHandler) handleMessage(msg *osc.Message) {
	in, err := IntentFromMessage(msg)
	if err != nil {
		o.log.Warn("dropping osc message", "address", msg.Address, "error", err)
		return
	}
	// Failures are logged by the handler
	_ = o.handler.Dispatch(o.ctx, in)
}

// Serve reads OSC datagrams from conn until ctx is done. Packets are parsed
// and dispatched synchronously, so intents run strictly in arrival order.
func (o *OSCHandler) Serve(ctx context.Context, conn net.PacketConn) error {
	o.ctx = ctx

	stop := context.AfterFunc(ctx, func() {
		conn.SetReadDeadline(time.Now())
	})
	defer stop()

	buf := make([]byte, maxDatagram)
	for {
		n, addr, err := conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			return fmt.Errorf("osc read: %w", err)
		}

		packet, err := osc.ParsePacket(string(buf[:n]))
		if err != nil {
			o.log.Warn("dropping malformed osc packet", "from", addr, "bytes", n, "error", err)
			continue
		}

		if o.OnSender != nil {
			o.OnSender(addr)
		}
		o.Dispatch(packet)
	}
}

// ListenAndServe listens on a UDP address such as ":8002" and serves it.
func (o *OSCHandler) ListenAndServe(ctx context.Context, addr string) error {
	conn, err := net.ListenPacket("udp", addr)
	if err != nil {
		return fmt.Errorf("osc listen %s: %w", addr, err)
	}
	defer conn.Close()

	o.log.Info("listening for osc", "addr", conn.LocalAddr().String())
	return o.Serve(ctx, conn)
}
