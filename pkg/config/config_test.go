// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Thermoquad/ptzbridge/pkg/visca"
)

const sampleYAML = `
osc:
  listen: ":9000"
telemetry:
  osc:
    host: 192.168.50.183
  websocket:
    listen: ":8080"
session:
  ack_timeout: 500ms
  max_attempts: 3
poll:
  interval: 10s
cameras:
  - id: "1"
    name: Stage left
    host: 192.168.50.40
  - id: "2"
    host: 192.168.50.28
    port: 1259
    calibration:
      pan: {min: -170, max: 170, wire_min: 0xF670, wire_max: 0x0990}
  - id: "3"
    serial: /dev/ttyUSB0
    baud: 38400
`

func TestParse_YAML(t *testing.T) {
	cfg, err := Parse([]byte(sampleYAML), false)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.OSC.Listen)
	assert.Equal(t, "192.168.50.183", cfg.Telemetry.OSC.Host)
	assert.Equal(t, DefaultOSCReplyPort, cfg.Telemetry.OSC.Port, "default kept")
	assert.Equal(t, "/telemetry", cfg.Telemetry.WebSocket.Path, "default kept")
	assert.Equal(t, 500*time.Millisecond, cfg.Session.AckTimeout.Std())
	assert.Equal(t, 3, cfg.Session.MaxAttempts)
	assert.Equal(t, 10*time.Second, cfg.Poll.Interval.Std())

	eps := cfg.Endpoints()
	require.Len(t, eps, 3)
	assert.Equal(t, "1", eps[0].ID)
	assert.Equal(t, "Stage left", eps[0].Name)
	assert.Equal(t, "192.168.50.40:52381", eps[0].Address())
	assert.Equal(t, visca.DefaultCalibrations(), eps[0].Calibrations)

	assert.Equal(t, "192.168.50.28:1259", eps[1].Address())
	assert.Equal(t, -170.0, eps[1].Calibrations.Pan.DomainMin)
	assert.Equal(t, uint16(0xF670), eps[1].Calibrations.Pan.WireMin)
	assert.Equal(t, "pan", eps[1].Calibrations.Pan.Field)
	assert.Equal(t, visca.TiltCalibration, eps[1].Calibrations.Tilt)

	assert.Equal(t, "/dev/ttyUSB0", eps[2].SerialPort)
	assert.Equal(t, 38400, eps[2].BaudRate)

	opts := cfg.SessionOptions()
	assert.Equal(t, 500*time.Millisecond, opts.AckTimeout)
	assert.Equal(t, 3, opts.MaxAttempts)
}

func TestParse_LegacyJSON(t *testing.T) {
	legacy := `{
		"camInfo": {
			"numCamera": 3,
			"camera1": {"ip": "192.168.50.40"},
			"camera2": {"ip": "192.168.50.28"},
			"camera3": {"ip": "192.168.50.111"}
		}
	}`

	cfg, err := Parse([]byte(legacy), true)
	require.NoError(t, err)
	require.Len(t, cfg.Cameras, 3)
	assert.Equal(t, []string{"1", "2", "3"}, []string{cfg.Cameras[0].ID, cfg.Cameras[1].ID, cfg.Cameras[2].ID})
	assert.Equal(t, "192.168.50.111", cfg.Cameras[2].Host)
	assert.Nil(t, cfg.CamInfo)

	// Legacy ports
	assert.Equal(t, ":8002", cfg.OSC.Listen)
	assert.Equal(t, 9002, cfg.Telemetry.OSC.Port)
	assert.Empty(t, cfg.Telemetry.OSC.Host, "replies follow the sender")
}

func TestParse_LegacyYAML(t *testing.T) {
	cfg, err := Parse([]byte("camInfo:\n  numCamera: 1\n  camera1:\n    ip: 10.0.0.9\n"), false)
	require.NoError(t, err)
	require.Len(t, cfg.Cameras, 1)
	assert.Equal(t, "10.0.0.9", cfg.Cameras[0].Host)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"no cameras", "osc:\n  listen: ':8002'\n"},
		{"broadcast id", "cameras:\n  - id: '0'\n    host: a\n"},
		{"duplicate id", "cameras:\n  - id: '1'\n    host: a\n  - id: '1'\n    host: b\n"},
		{"slash in id", "cameras:\n  - id: 'a/b'\n    host: a\n"},
		{"no address", "cameras:\n  - id: '1'\n"},
		{"bad port", "cameras:\n  - id: '1'\n    host: a\n    port: 70000\n"},
		{"bad attempts", "session:\n  max_attempts: 0\ncameras:\n  - id: '1'\n    host: a\n"},
		{"bad duration", "session:\n  ack_timeout: soon\ncameras:\n  - id: '1'\n    host: a\n"},
		{"inverted calibration", "cameras:\n  - id: '1'\n    host: a\n    calibration:\n      zoom: {min: 100, max: 0, wire_max: 0x4000}\n"},
		{"zero wire span", "cameras:\n  - id: '1'\n    host: a\n    calibration:\n      tilt: {min: -30, max: 90, wire_min: 0x0480, wire_max: 0x0480}\n"},
		{"legacy missing camera", "camInfo:\n  numCamera: 2\n  camera1:\n    ip: a\n"},
		{"legacy and cameras", "camInfo:\n  numCamera: 0\ncameras:\n  - id: '1'\n    host: a\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc), false)
			assert.Error(t, err)
		})
	}
}

func TestParse_ZeroWireSpan(t *testing.T) {
	doc := "cameras:\n  - id: '1'\n    host: a\n    calibration:\n      focus: {min: 0, max: 100, wire_min: 0x1000, wire_max: 0x1000}\n"

	_, err := Parse([]byte(doc), false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "focus calibration wire_max must differ from wire_min")
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bridge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, cfg.Cameras, 3)

	t.Setenv(EnvConfig, path)
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Len(t, cfg.Cameras, 3)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_NoPath(t *testing.T) {
	t.Setenv(EnvConfig, "")
	_, err := Load("")
	assert.Error(t, err)
}
