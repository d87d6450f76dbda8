// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package device

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"

	"github.com/Thermoquad/ptzbridge/pkg/visca"
)

// maxDatagram bounds one received datagram; replies are far smaller.
const maxDatagram = 1500

// UDPTransport is a connected UDP socket to one VISCA-over-IP camera.
type UDPTransport struct {
	conn net.Conn
	id   string
	buf  []byte
}

// DialUDP opens a connected UDP socket to the endpoint. Connecting filters
// out datagrams from other peers and surfaces ICMP port-unreachable as a
// read error.
func DialUDP(ctx context.Context, ep Endpoint) (*UDPTransport, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "udp", ep.Address())
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", ErrTransport, ep.Address(), err)
	}

	return &UDPTransport{
		conn: conn,
		id:   uuid.NewString(),
		buf:  make([]byte, maxDatagram),
	}, nil
}

// Send implements Transport
func (t *UDPTransport) Send(f visca.Frame) error {
	data, err := visca.Encode(f)
	if err != nil {
		return err
	}
	if _, err := t.conn.Write(data); err != nil {
		return fmt.Errorf("%w: write: %v", ErrTransport, err)
	}
	return nil
}

// Receive implements Transport
func (t *UDPTransport) Receive(deadline time.Time) (visca.Frame, error) {
	if err := t.conn.SetReadDeadline(deadline); err != nil {
		return visca.Frame{}, fmt.Errorf("%w: %v", ErrTransport, err)
	}

	n, err := t.conn.Read(t.buf)
	if err != nil {
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			return visca.Frame{}, ErrTimeout
		}
		return visca.Frame{}, fmt.Errorf("%w: read: %v", ErrTransport, err)
	}

	return visca.Decode(t.buf[:n])
}

// ID implements Transport
func (t *UDPTransport) ID() string { return t.id }

// LocalAddr returns the local socket address
func (t *UDPTransport) LocalAddr() net.Addr { return t.conn.LocalAddr() }

// Close implements Transport
func (t *UDPTransport) Close() error {
	return t.conn.Close()
}
