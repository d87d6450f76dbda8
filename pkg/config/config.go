// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package config loads the bridge configuration: the camera inventory plus
// the OSC, telemetry, session and polling settings. Files are YAML or JSON;
// the legacy camInfo layout is accepted as well.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Thermoquad/ptzbridge/pkg/device"
	"github.com/Thermoquad/ptzbridge/pkg/visca"
)

// EnvConfig names the environment variable holding the config file path
const EnvConfig = "PTZBRIDGE_CONFIG"

// Defaults
const (
	DefaultOSCListen    = ":8002"
	DefaultOSCReplyPort = 9002
	DefaultPollInterval = 3 * time.Second
)

// Config is the complete bridge configuration
type Config struct {
	OSC       OSCConfig       `yaml:"osc" json:"osc"`
	Telemetry TelemetryConfig `yaml:"telemetry" json:"telemetry"`
	Session   SessionConfig   `yaml:"session" json:"session"`
	Poll      PollConfig      `yaml:"poll" json:"poll"`
	Cameras   []Camera        `yaml:"cameras" json:"cameras"`

	// CamInfo is the legacy inventory layout:
	// {"numCamera": N, "camera1": {"ip": ...}, ...}
	CamInfo map[string]interface{} `yaml:"camInfo,omitempty" json:"camInfo,omitempty"`
}

// OSCConfig configures OSC ingress
type OSCConfig struct {
	Listen string `yaml:"listen" json:"listen"`
}

// TelemetryConfig selects the telemetry sinks. Every configured sink
// receives every sample.
type TelemetryConfig struct {
	OSC       OSCTelemetry       `yaml:"osc" json:"osc"`
	WebSocket WebSocketTelemetry `yaml:"websocket" json:"websocket"`
	MQTT      MQTTTelemetry      `yaml:"mqtt" json:"mqtt"`
}

// OSCTelemetry sends samples back to the control surface. An empty Host
// replies to whichever address the last OSC message came from.
type OSCTelemetry struct {
	Disabled bool   `yaml:"disabled" json:"disabled"`
	Host     string `yaml:"host" json:"host"`
	Port     int    `yaml:"port" json:"port"`
	Prefix   string `yaml:"prefix" json:"prefix"`
}

// WebSocketTelemetry serves samples to WebSocket clients when Listen is set
type WebSocketTelemetry struct {
	Listen string `yaml:"listen" json:"listen"`
	Path   string `yaml:"path" json:"path"`
}

// MQTTTelemetry publishes samples to a broker when Broker is set
type MQTTTelemetry struct {
	Broker   string `yaml:"broker" json:"broker"`
	ClientID string `yaml:"client_id" json:"client_id"`
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
	Prefix   string `yaml:"prefix" json:"prefix"`
	QoS      byte   `yaml:"qos" json:"qos"`
	Retained bool   `yaml:"retained" json:"retained"`
}

// SessionConfig is the per-device retry policy
type SessionConfig struct {
	AckTimeout  Duration `yaml:"ack_timeout" json:"ack_timeout"`
	MaxAttempts int      `yaml:"max_attempts" json:"max_attempts"`
}

// PollConfig configures the status poller
type PollConfig struct {
	Disabled bool     `yaml:"disabled" json:"disabled"`
	Interval Duration `yaml:"interval" json:"interval"`
}

// Camera is one inventory entry. Serial selects RS-232 instead of UDP.
type Camera struct {
	ID          string       `yaml:"id" json:"id"`
	Name        string       `yaml:"name" json:"name"`
	Host        string       `yaml:"host" json:"host"`
	Port        int          `yaml:"port" json:"port"`
	Serial      string       `yaml:"serial" json:"serial"`
	Baud        int          `yaml:"baud" json:"baud"`
	Calibration *Calibration `yaml:"calibration,omitempty" json:"calibration,omitempty"`
}

// Calibration overrides the reference calibration per axis
type Calibration struct {
	Pan   *Axis `yaml:"pan,omitempty" json:"pan,omitempty"`
	Tilt  *Axis `yaml:"tilt,omitempty" json:"tilt,omitempty"`
	Zoom  *Axis `yaml:"zoom,omitempty" json:"zoom,omitempty"`
	Focus *Axis `yaml:"focus,omitempty" json:"focus,omitempty"`
}

// Axis is one affine mapping between a domain range and a wire range
type Axis struct {
	Min     float64 `yaml:"min" json:"min"`
	Max     float64 `yaml:"max" json:"max"`
	WireMin uint16  `yaml:"wire_min" json:"wire_min"`
	WireMax uint16  `yaml:"wire_max" json:"wire_max"`
}

// Duration is a time.Duration written as "1s", "250ms"
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	return d.parse(node.Value)
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration must be a string like \"1s\": %w", err)
	}
	return d.parse(s)
}

// MarshalJSON implements json.Marshaler
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) parse(s string) error {
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Std returns the value as a time.Duration
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		OSC: OSCConfig{Listen: DefaultOSCListen},
		Telemetry: TelemetryConfig{
			OSC:       OSCTelemetry{Port: DefaultOSCReplyPort, Prefix: "/1"},
			WebSocket: WebSocketTelemetry{Path: "/telemetry"},
			MQTT:      MQTTTelemetry{ClientID: "ptzbridge", Prefix: "ptzbridge"},
		},
		Session: SessionConfig{
			AckTimeout:  Duration(device.DefaultAckTimeout),
			MaxAttempts: device.DefaultMaxAttempts,
		},
		Poll: PollConfig{Interval: Duration(DefaultPollInterval)},
	}
}

// Load reads path, falling back to $PTZBRIDGE_CONFIG. Files ending in .json
// are parsed as JSON, anything else as YAML. Values missing from the file
// keep their defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvConfig)
	}
	if path == "" {
		return nil, fmt.Errorf("no config file given (use --config or %s)", EnvConfig)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg, err := Parse(data, strings.EqualFold(filepath.Ext(path), ".json"))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes a config document over the defaults and validates it.
func Parse(data []byte, isJSON bool) (*Config, error) {
	cfg := Default()

	var err error
	if isJSON {
		err = json.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.applyLegacy(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyLegacy turns camInfo into cameras "1".."N" ("0" is the broadcast id)
func (c *Config) applyLegacy() error {
	if c.CamInfo == nil {
		return nil
	}
	if len(c.Cameras) > 0 {
		return errors.New("camInfo and cameras are mutually exclusive")
	}

	n, err := toInt(c.CamInfo["numCamera"])
	if err != nil {
		return fmt.Errorf("camInfo.numCamera: %w", err)
	}

	for i := 1; i <= n; i++ {
		key := "camera" + strconv.Itoa(i)
		entry, ok := c.CamInfo[key].(map[string]interface{})
		if !ok {
			return fmt.Errorf("camInfo.%s missing", key)
		}
		ip, _ := entry["ip"].(string)
		c.Cameras = append(c.Cameras, Camera{ID: strconv.Itoa(i), Host: ip})
	}
	c.CamInfo = nil
	return nil
}

func toInt(v interface{}) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case float64:
		if n != float64(int(n)) {
			return 0, fmt.Errorf("not an integer: %v", n)
		}
		return int(n), nil
	case nil:
		return 0, errors.New("missing")
	}
	return 0, fmt.Errorf("unexpected type %T", v)
}

// Validate checks the inventory and settings
func (c *Config) Validate() error {
	var errs []error

	if len(c.Cameras) == 0 {
		errs = append(errs, errors.New("no cameras configured"))
	}

	seen := make(map[string]bool)
	for i, cam := range c.Cameras {
		switch {
		case cam.ID == "":
			errs = append(errs, fmt.Errorf("cameras[%d]: id is required", i))
		case cam.ID == device.BroadcastID:
			errs = append(errs, fmt.Errorf("cameras[%d]: id %q is reserved for broadcast", i, cam.ID))
		case strings.Contains(cam.ID, "/"):
			errs = append(errs, fmt.Errorf("cameras[%d]: id %q must not contain '/'", i, cam.ID))
		case seen[cam.ID]:
			errs = append(errs, fmt.Errorf("cameras[%d]: duplicate id %q", i, cam.ID))
		}
		seen[cam.ID] = true

		if cam.Host == "" && cam.Serial == "" {
			errs = append(errs, fmt.Errorf("camera %s: host or serial is required", cam.ID))
		}
		if cam.Port < 0 || cam.Port > 65535 {
			errs = append(errs, fmt.Errorf("camera %s: port %d out of range", cam.ID, cam.Port))
		}
		if cam.Calibration != nil {
			for name, a := range cam.Calibration.axes() {
				if a == nil {
					continue
				}
				if a.Max <= a.Min {
					errs = append(errs, fmt.Errorf("camera %s: %s calibration max must exceed min", cam.ID, name))
				}
				if a.WireMax == a.WireMin {
					errs = append(errs, fmt.Errorf("camera %s: %s calibration wire_max must differ from wire_min", cam.ID, name))
				}
			}
		}
	}

	if c.Session.AckTimeout <= 0 {
		errs = append(errs, errors.New("session.ack_timeout must be positive"))
	}
	if c.Session.MaxAttempts < 1 {
		errs = append(errs, errors.New("session.max_attempts must be at least 1"))
	}
	if !c.Poll.Disabled && c.Poll.Interval <= 0 {
		errs = append(errs, errors.New("poll.interval must be positive"))
	}

	return errors.Join(errs...)
}

func (cal *Calibration) axes() map[string]*Axis {
	return map[string]*Axis{"pan": cal.Pan, "tilt": cal.Tilt, "zoom": cal.Zoom, "focus": cal.Focus}
}

// Endpoints converts the inventory to device endpoints, in file order
func (c *Config) Endpoints() []device.Endpoint {
	out := make([]device.Endpoint, 0, len(c.Cameras))
	for _, cam := range c.Cameras {
		out = append(out, device.Endpoint{
			ID:           cam.ID,
			Name:         cam.Name,
			Host:         cam.Host,
			Port:         cam.Port,
			SerialPort:   cam.Serial,
			BaudRate:     cam.Baud,
			Calibrations: cam.calibrations(),
		})
	}
	return out
}

func (cam Camera) calibrations() visca.Calibrations {
	c := visca.DefaultCalibrations()
	if cam.Calibration == nil {
		return c
	}
	apply := func(dst *visca.Calibration, a *Axis) {
		if a != nil {
			dst.DomainMin, dst.DomainMax = a.Min, a.Max
			dst.WireMin, dst.WireMax = a.WireMin, a.WireMax
		}
	}
	apply(&c.Pan, cam.Calibration.Pan)
	apply(&c.Tilt, cam.Calibration.Tilt)
	apply(&c.Zoom, cam.Calibration.Zoom)
	apply(&c.Focus, cam.Calibration.Focus)
	return c
}

// SessionOptions converts the retry policy to device options
func (c *Config) SessionOptions() device.Options {
	return device.Options{
		AckTimeout:  c.Session.AckTimeout.Std(),
		MaxAttempts: c.Session.MaxAttempts,
	}
}
