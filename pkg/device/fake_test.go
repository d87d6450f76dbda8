// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package device

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/Thermoquad/ptzbridge/pkg/visca"
)

var (
	ackPayload        = []byte{0x90, 0x41, 0xFF}
	completionPayload = []byte{0x90, 0x51, 0xFF}
	syntaxErrPayload  = []byte{0x90, 0x60, 0x02, 0xFF}
)

// responder decides what a fake camera answers to the n-th frame it sees
// (n counts from 1 across all transports)
type responder func(n int, f visca.Frame) []visca.Frame

func completes(_ int, f visca.Frame) []visca.Frame {
	if f.Type == visca.TypeControlCommand {
		return []visca.Frame{{Type: visca.TypeControlReply, Payload: []byte{visca.ControlReset}, Sequence: f.Sequence}}
	}
	return []visca.Frame{
		{Type: visca.TypeReply, Payload: ackPayload, Sequence: f.Sequence},
		{Type: visca.TypeReply, Payload: completionPayload, Sequence: f.Sequence},
	}
}

func silent(int, visca.Frame) []visca.Frame { return nil }

// fakeCamera is an in-memory device. Every Dial opens a new fakeTransport.
type fakeCamera struct {
	mu      sync.Mutex
	respond responder
	sent    []visca.Frame
	connIDs []string
	dials   int
	journal *journal
	id      string
}

func newFakeCamera(respond responder) *fakeCamera {
	return &fakeCamera{respond: respond}
}

func (c *fakeCamera) Dial(_ context.Context, _ Endpoint) (Transport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dials++
	return &fakeTransport{
		cam:     c,
		id:      fmt.Sprintf("fake-%d", c.dials),
		replies: make(chan visca.Frame, 16),
	}, nil
}

func (c *fakeCamera) Sent() []visca.Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]visca.Frame, len(c.sent))
	copy(out, c.sent)
	return out
}

func (c *fakeCamera) Dials() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dials
}

func (c *fakeCamera) ConnIDs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.connIDs...)
}

type fakeTransport struct {
	cam     *fakeCamera
	id      string
	replies chan visca.Frame
}

func (t *fakeTransport) Send(f visca.Frame) error {
	t.cam.mu.Lock()
	t.cam.sent = append(t.cam.sent, f)
	t.cam.connIDs = append(t.cam.connIDs, t.id)
	n := len(t.cam.sent)
	respond := t.cam.respond
	j, id := t.cam.journal, t.cam.id
	t.cam.mu.Unlock()

	if j != nil {
		j.add(id)
	}
	for _, r := range respond(n, f) {
		t.replies <- r
	}
	return nil
}

func (t *fakeTransport) Receive(deadline time.Time) (visca.Frame, error) {
	timer := time.NewTimer(time.Until(deadline))
	defer timer.Stop()
	select {
	case r := <-t.replies:
		return r, nil
	case <-timer.C:
		return visca.Frame{}, ErrTimeout
	}
}

func (t *fakeTransport) ID() string   { return t.id }
func (t *fakeTransport) Close() error { return nil }

// journal records the order frames reach devices across a registry
type journal struct {
	mu  sync.Mutex
	ids []string
}

func (j *journal) add(id string) {
	j.mu.Lock()
	j.ids = append(j.ids, id)
	j.mu.Unlock()
}

func (j *journal) IDs() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.ids...)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testSession(id string, cam *fakeCamera, ackTimeout time.Duration) *Session {
	return NewSession(Endpoint{ID: id, Host: "127.0.0.1"}, Options{
		AckTimeout: ackTimeout,
		Dial:       cam.Dial,
		Logger:     quietLogger(),
	})
}
