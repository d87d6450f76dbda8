// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bridge

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Thermoquad/ptzbridge/pkg/device"
	"github.com/Thermoquad/ptzbridge/pkg/visca"
)

// camera answers every frame like a healthy device unless silent is set.
// Inquiries are answered with inquiryReply.
type camera struct {
	id string

	mu           sync.Mutex
	silent       bool
	inquiryReply []byte
	frames       []visca.Frame
	order        *[]string
	orderMu      *sync.Mutex
}

func (c *camera) dial(_ context.Context, _ device.Endpoint) (device.Transport, error) {
	return &cameraConn{cam: c, replies: make(chan visca.Frame, 8)}, nil
}

func (c *camera) Payloads() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out [][]byte
	for _, f := range c.frames {
		if f.Type == visca.TypeCommand {
			out = append(out, f.Payload)
		}
	}
	return out
}

func (c *camera) Frames() []visca.Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]visca.Frame(nil), c.frames...)
}

type cameraConn struct {
	cam     *camera
	replies chan visca.Frame
}

func (t *cameraConn) Send(f visca.Frame) error {
	c := t.cam
	c.mu.Lock()
	c.frames = append(c.frames, f)
	silent, inq := c.silent, c.inquiryReply
	c.mu.Unlock()

	if c.order != nil {
		c.orderMu.Lock()
		*c.order = append(*c.order, c.id)
		c.orderMu.Unlock()
	}
	if silent {
		return nil
	}

	switch f.Type {
	case visca.TypeControlCommand:
		t.replies <- visca.Frame{Type: visca.TypeControlReply, Payload: []byte{visca.ControlReset}, Sequence: f.Sequence}
	case visca.TypeInquiry:
		if inq == nil {
			inq = []byte{0x90, 0x50, visca.FocusModeManual, 0xFF}
		}
		t.replies <- visca.Frame{Type: visca.TypeReply, Payload: inq, Sequence: f.Sequence}
	default:
		t.replies <- visca.Frame{Type: visca.TypeReply, Payload: []byte{0x90, 0x41, 0xFF}, Sequence: f.Sequence}
		t.replies <- visca.Frame{Type: visca.TypeReply, Payload: []byte{0x90, 0x51, 0xFF}, Sequence: f.Sequence}
	}
	return nil
}

func (t *cameraConn) Receive(deadline time.Time) (visca.Frame, error) {
	timer := time.NewTimer(time.Until(deadline))
	defer timer.Stop()
	select {
	case r := <-t.replies:
		return r, nil
	case <-timer.C:
		return visca.Frame{}, device.ErrTimeout
	}
}

func (t *cameraConn) ID() string   { return "conn-" + t.cam.id }
func (t *cameraConn) Close() error { return nil }

// rig is a registry of fake cameras "1".."n" with a recording publisher
type rig struct {
	reg     *device.Registry
	cams    map[string]*camera
	pub     *recorder
	order   []string
	orderMu sync.Mutex
}

func newRig(t *testing.T, n int) *rig {
	t.Helper()
	r := &rig{
		reg:  device.NewRegistry(quietLogger()),
		cams: make(map[string]*camera),
		pub:  &recorder{},
	}
	for i := 1; i <= n; i++ {
		id := fmt.Sprint(i)
		cam := &camera{id: id, order: &r.order, orderMu: &r.orderMu}
		r.cams[id] = cam
		require.NoError(t, r.reg.Add(r.session(id, cam, visca.DefaultCalibrations())))
	}
	t.Cleanup(func() { r.reg.Close() })
	return r
}

func (r *rig) session(id string, cam *camera, cal visca.Calibrations) *device.Session {
	return device.NewSession(device.Endpoint{ID: id, Host: "127.0.0.1", Calibrations: cal}, device.Options{
		AckTimeout:  20 * time.Millisecond,
		MaxAttempts: 2,
		Dial:        cam.dial,
		Logger:      quietLogger(),
	})
}

func (r *rig) Order() []string {
	r.orderMu.Lock()
	defer r.orderMu.Unlock()
	return append([]string(nil), r.order...)
}

type sample struct {
	Key   string
	Value float64
	Text  string
}

// recorder is a Publisher and LabelPublisher that keeps every sample
type recorder struct {
	mu      sync.Mutex
	samples []sample
}

func (r *recorder) Publish(_ context.Context, key string, value float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.samples = append(r.samples, sample{Key: key, Value: value})
	return nil
}

func (r *recorder) PublishLabel(_ context.Context, key, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.samples = append(r.samples, sample{Key: key, Text: text})
	return nil
}

func (r *recorder) Close() error { return nil }

func (r *recorder) Samples() []sample {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]sample(nil), r.samples...)
}

// Last returns the most recent sample for key
func (r *recorder) Last(key string) (sample, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.samples) - 1; i >= 0; i-- {
		if r.samples[i].Key == key {
			return r.samples[i], true
		}
	}
	return sample{}, false
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
