// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/term"

	"github.com/Thermoquad/ptzbridge/pkg/config"
	"github.com/Thermoquad/ptzbridge/pkg/device"
	"github.com/Thermoquad/ptzbridge/pkg/telemetry"
)

// loadConfig reads the file named by --config or $PTZBRIDGE_CONFIG
func loadConfig() (*config.Config, error) {
	return config.Load(configPath)
}

// openRegistry creates one session per configured camera. Transports are
// opened lazily on the first send.
func openRegistry(cfg *config.Config) (*device.Registry, error) {
	opts := cfg.SessionOptions()
	opts.Logger = logger
	return device.NewRegistryFromEndpoints(cfg.Endpoints(), opts)
}

// sinks holds the telemetry publishers built from the config
type sinks struct {
	pub  telemetry.Multi
	osc  *telemetry.OSCPublisher
	hub  *telemetry.WebSocketHub
	http *http.Server
}

// Publisher returns every sink as one publisher with debug logging
func (s *sinks) Publisher() telemetry.Publisher {
	return telemetry.Logging{Publisher: s.pub, Logger: logger}
}

// FollowSender points OSC replies at the control surface that sent addr,
// unless a fixed host is configured.
func (s *sinks) FollowSender(fixedHost string) func(net.Addr) {
	if s.osc == nil || fixedHost != "" {
		return nil
	}
	return func(addr net.Addr) {
		if udp, ok := addr.(*net.UDPAddr); ok {
			s.osc.Retarget(udp.IP.String())
		}
	}
}

// Close shuts down the HTTP listener and every publisher
func (s *sinks) Close() error {
	var errs []error
	if s.http != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		errs = append(errs, s.http.Shutdown(ctx))
	}
	errs = append(errs, s.pub.Close())
	return errors.Join(errs...)
}

// openTelemetry builds the configured sinks. The WebSocket hub is served on
// its own listener in the background.
func openTelemetry(cfg *config.Config) (*sinks, error) {
	s := &sinks{}
	t := cfg.Telemetry

	if !t.OSC.Disabled {
		s.osc = telemetry.NewOSCPublisher(t.OSC.Host, t.OSC.Port, t.OSC.Prefix)
		s.pub = append(s.pub, s.osc)
	}

	if t.WebSocket.Listen != "" {
		s.hub = telemetry.NewWebSocketHub(logger)
		mux := http.NewServeMux()
		mux.Handle(t.WebSocket.Path, s.hub)

		ln, err := net.Listen("tcp", t.WebSocket.Listen)
		if err != nil {
			return nil, fmt.Errorf("telemetry websocket listen %s: %w", t.WebSocket.Listen, err)
		}
		s.http = &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
		go func() {
			if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("telemetry websocket server stopped", "error", err)
			}
		}()
		logger.Info("serving telemetry websocket", "addr", ln.Addr().String(), "path", t.WebSocket.Path)
		s.pub = append(s.pub, s.hub)
	}

	if t.MQTT.Broker != "" {
		m, err := telemetry.NewMQTTPublisher(telemetry.MQTTOptions{
			Broker:   t.MQTT.Broker,
			ClientID: t.MQTT.ClientID,
			Username: t.MQTT.Username,
			Password: t.MQTT.Password,
			Prefix:   t.MQTT.Prefix,
			QoS:      t.MQTT.QoS,
			Retained: t.MQTT.Retained,
			Logger:   logger,
		})
		if err != nil {
			s.Close()
			return nil, err
		}
		s.pub = append(s.pub, m)
	}

	return s, nil
}

// OpenTelemetryStream connects to a bridge's telemetry WebSocket
func OpenTelemetryStream(wsURL string, skipSSLVerify bool) (*websocket.Conn, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %v", err)
	}

	switch u.Scheme {
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("unsupported URL scheme: %s (use ws:// or wss://)", u.Scheme)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	if u.Scheme == "wss" {
		dialer.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: skipSSLVerify,
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	conn, resp, err := dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("WebSocket connection failed (HTTP %d): %v", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("WebSocket connection failed: %v", err)
	}
	return conn, nil
}

// isTerminal reports whether f is an interactive terminal
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
