// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package device

import (
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.bug.st/serial"

	"github.com/Thermoquad/ptzbridge/pkg/visca"
)

// DefaultBaudRate is the RS-232 VISCA default
const DefaultBaudRate = 9600

// ifClear is the broadcast IF_Clear message. Serial VISCA has no control
// frames, so a sequence reset is sent as an interface clear.
var ifClear = []byte{0x88, 0x01, 0x00, 0x01, 0xFF}

// serialPort is the part of serial.Port the transport uses
type serialPort interface {
	io.ReadWriteCloser
	SetReadTimeout(t time.Duration) error
}

// SerialTransport speaks raw VISCA over RS-232. The serial line carries no
// sequence numbers, so replies are stamped with the sequence of the frame
// that is outstanding.
type SerialTransport struct {
	port serialPort
	id   string

	outstanding uint32
	control     bool

	pending []byte
	readBuf []byte
}

// DialSerial opens the endpoint's serial port (8N1).
func DialSerial(ep Endpoint) (*SerialTransport, error) {
	baud := ep.BaudRate
	if baud == 0 {
		baud = DefaultBaudRate
	}

	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(ep.SerialPort, mode)
	if err != nil {
		return nil, fmt.Errorf("%w: open serial port %s: %v", ErrTransport, ep.SerialPort, err)
	}

	return newSerialTransport(port), nil
}

func newSerialTransport(port serialPort) *SerialTransport {
	return &SerialTransport{
		port:    port,
		id:      uuid.NewString(),
		readBuf: make([]byte, 64),
	}
}

// Send implements Transport
func (t *SerialTransport) Send(f visca.Frame) error {
	payload := f.Payload
	t.control = f.Type == visca.TypeControlCommand
	if t.control {
		if len(f.Payload) != 1 || f.Payload[0] != visca.ControlReset {
			return fmt.Errorf("control payload % X not supported on serial", f.Payload)
		}
		payload = ifClear
	}

	t.outstanding = f.Sequence
	t.pending = t.pending[:0]

	if _, err := t.port.Write(payload); err != nil {
		return fmt.Errorf("%w: serial write: %v", ErrTransport, err)
	}
	return nil
}

// Receive implements Transport. Bytes are accumulated until a VISCA
// terminator; the message is returned as a reply to the outstanding frame.
func (t *SerialTransport) Receive(deadline time.Time) (visca.Frame, error) {
	for {
		if msg, ok := t.nextMessage(); ok {
			if t.control {
				// IF_Clear comes back as an echo; report it as a reset reply
				return visca.NewFrame(visca.TypeControlReply, []byte{visca.ControlReset}, t.outstanding), nil
			}
			return visca.NewFrame(visca.TypeReply, msg, t.outstanding), nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return visca.Frame{}, ErrTimeout
		}
		if err := t.port.SetReadTimeout(remaining); err != nil {
			return visca.Frame{}, fmt.Errorf("%w: %v", ErrTransport, err)
		}

		n, err := t.port.Read(t.readBuf)
		if err != nil {
			return visca.Frame{}, fmt.Errorf("%w: serial read: %v", ErrTransport, err)
		}
		// n == 0 is a read timeout; the deadline check above decides
		t.pending = append(t.pending, t.readBuf[:n]...)
	}
}

// nextMessage pops one terminated message from the pending buffer
func (t *SerialTransport) nextMessage() ([]byte, bool) {
	for i, b := range t.pending {
		if b == 0xFF {
			msg := make([]byte, i+1)
			copy(msg, t.pending[:i+1])
			t.pending = append(t.pending[:0], t.pending[i+1:]...)
			return msg, true
		}
	}
	return nil, false
}

// ID implements Transport
func (t *SerialTransport) ID() string { return t.id }

// Close implements Transport
func (t *SerialTransport) Close() error {
	return t.port.Close()
}
