// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bytes"
	"context"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Thermoquad/ptzbridge/pkg/bridge"
	"github.com/Thermoquad/ptzbridge/pkg/device"
	"github.com/Thermoquad/ptzbridge/pkg/visca"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		level   string
		format  string
		wantErr bool
	}{
		{"info", "text", false},
		{"debug", "json", false},
		{"WARN", "", false},
		{"error", "JSON", false},
		{"loud", "text", true},
		{"info", "xml", true},
	}

	for _, tt := range tests {
		t.Run(tt.level+"/"+tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			l, err := newLogger(&buf, tt.level, tt.format)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			l.Error("boom", "device_id", "1")
			assert.Contains(t, buf.String(), "device_id")
		})
	}

	var buf bytes.Buffer
	l, err := newLogger(&buf, "warn", "json")
	require.NoError(t, err)
	l.Info("hidden")
	assert.Empty(t, buf.String())
}

func TestParseIntentArgs(t *testing.T) {
	in, err := parseIntentArgs([]string{"/2/pan_absolute_position", "18", "17", "-45", "10.5"})
	require.NoError(t, err)
	assert.Equal(t, "2", in.DeviceID)
	assert.Equal(t, "pan_absolute_position", in.Command)
	assert.Equal(t, []float64{18, 17, -45, 10.5}, in.Args)

	_, err = parseIntentArgs([]string{"/1/tally", "on"})
	assert.ErrorIs(t, err, bridge.ErrDecode)

	_, err = parseIntentArgs([]string{"camera_on"})
	assert.ErrorIs(t, err, bridge.ErrDecode)
}

func TestRenderStatuses(t *testing.T) {
	statuses := []bridge.Status{
		{DeviceID: "1", Name: "Stage left", Address: "192.168.50.40:52381", Online: true, FocusAuto: true, Latency: 12 * time.Millisecond, Sequence: 4},
		{DeviceID: "2", Address: "192.168.50.28:52381", Err: device.ErrNoResponse, Latency: 5 * time.Second, Sequence: 2},
	}

	var buf bytes.Buffer
	renderStatuses(&buf, statuses, false)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "ID"))
	assert.Contains(t, lines[1], "Stage left")
	assert.Contains(t, lines[1], "online")
	assert.Contains(t, lines[1], "auto")
	assert.Contains(t, lines[1], "12ms")
	assert.Contains(t, lines[2], "offline")
	assert.Contains(t, lines[2], "no response")
	assert.NotContains(t, buf.String(), "\x1b[", "no colors off a terminal")
}

func TestListCommands(t *testing.T) {
	var buf bytes.Buffer
	listCommands(&buf, false)
	out := buf.String()

	assert.Contains(t, out, "PANTILT")
	assert.Contains(t, out, "pan_absolute_position")
	assert.Contains(t, out, "speed speed position position")
	assert.Contains(t, out, "zoom_direct")
}

// syncBuffer is a bytes.Buffer safe for one writer and one reader
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestMonitor_RepliesLikeCamera(t *testing.T) {
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	out := &syncBuffer{}
	done := make(chan error, 1)
	go func() { done <- monitor(ctx, conn, out, true) }()

	// A session pointed at the monitor completes its commands
	port := conn.LocalAddr().(*net.UDPAddr).Port
	s := device.NewSession(device.Endpoint{ID: "1", Host: "127.0.0.1", Port: port}, device.Options{
		AckTimeout: 500 * time.Millisecond,
	})
	defer s.Close()

	require.NoError(t, s.ResetSequence(ctx))
	require.NoError(t, s.Command(ctx, visca.NewPanTiltHome()))
	reply, err := s.Inquire(ctx, visca.NewFocusModeInquiry())
	require.NoError(t, err)
	mode, err := visca.ParseInquiryByte(reply)
	require.NoError(t, err)
	assert.Equal(t, byte(visca.FocusModeAuto), mode)

	require.Eventually(t, func() bool {
		return strings.Count(out.String(), "from 127.0.0.1") == 3
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	conn.Close()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("monitor did not stop")
	}
}

func TestCameraReplies(t *testing.T) {
	cmd := visca.NewFrame(visca.TypeCommand, visca.NewPowerOn(), 7)
	replies := cameraReplies(cmd)
	require.Len(t, replies, 2)
	assert.Equal(t, visca.ReplyAck, replies[0].Kind())
	assert.Equal(t, visca.ReplyCompletion, replies[1].Kind())
	assert.True(t, replies[1].Acknowledges(7))

	assert.Nil(t, cameraReplies(visca.NewFrame(visca.TypeReply, []byte{0x90, 0x51, 0xFF}, 1)))
}
