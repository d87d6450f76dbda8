// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Sample is one telemetry sample as sent to WebSocket clients (CBOR map).
// Value is set for numeric samples and Text for labels.
type Sample struct {
	Key   string   `cbor:"key"`
	Value *float64 `cbor:"value,omitempty"`
	Text  string   `cbor:"text,omitempty"`
	Time  int64    `cbor:"ts"` // unix milliseconds
}

// DecodeSample decodes one binary WebSocket message
func DecodeSample(data []byte) (Sample, error) {
	var s Sample
	if err := cbor.Unmarshal(data, &s); err != nil {
		return Sample{}, fmt.Errorf("decode sample: %w", err)
	}
	return s, nil
}

func (s Sample) String() string {
	at := time.UnixMilli(s.Time).Format("15:04:05.000")
	if s.Value != nil {
		return fmt.Sprintf("[%s] %s = %g", at, s.Key, *s.Value)
	}
	return fmt.Sprintf("[%s] %s = %q", at, s.Key, s.Text)
}

const (
	wsWriteTimeout = 2 * time.Second
	wsSendBuffer   = 64
)

// wsClient is one connected listener. Its writer goroutine drains send, so
// a slow client never blocks a publisher.
type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// WebSocketHub is an http.Handler that upgrades clients and broadcasts every
// sample to them as a binary CBOR message.
type WebSocketHub struct {
	upgrader websocket.Upgrader
	log      *slog.Logger

	mu      sync.Mutex
	clients map[string]*wsClient
	closed  bool
}

// NewWebSocketHub creates an empty hub
func NewWebSocketHub(logger *slog.Logger) *WebSocketHub {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebSocketHub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		log:     logger,
		clients: make(map[string]*wsClient),
	}
}

// ServeHTTP implements http.Handler
func (h *WebSocketHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	id := uuid.NewString()
	c := &wsClient{conn: conn, send: make(chan []byte, wsSendBuffer)}
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[id] = c
	h.mu.Unlock()
	h.log.Info("telemetry client connected", "client_id", id, "remote", r.RemoteAddr)

	go func() {
		for data := range c.send {
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
				h.drop(id, "write failed", err)
				return
			}
		}
	}()

	// Clients only listen; reading detects the close
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.drop(id, "disconnected", err)
				return
			}
		}
	}()
}

// Clients returns the number of connected clients
func (h *WebSocketHub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Publish implements Publisher
func (h *WebSocketHub) Publish(_ context.Context, key string, value float64) error {
	return h.broadcast(Sample{Key: key, Value: &value, Time: time.Now().UnixMilli()})
}

// PublishLabel implements LabelPublisher
func (h *WebSocketHub) PublishLabel(_ context.Context, key, text string) error {
	return h.broadcast(Sample{Key: key, Text: text, Time: time.Now().UnixMilli()})
}

func (h *WebSocketHub) broadcast(s Sample) error {
	data, err := cbor.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode sample: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for id, c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.remove(id, "too slow", nil)
		}
	}
	return nil
}

func (h *WebSocketHub) drop(id, reason string, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.remove(id, reason, err)
}

// remove closes a client; h.mu must be held
func (h *WebSocketHub) remove(id, reason string, err error) {
	c, ok := h.clients[id]
	if !ok {
		return
	}
	delete(h.clients, id)
	close(c.send)
	c.conn.Close()
	h.log.Info("telemetry client dropped", "client_id", id, "reason", reason, "error", err)
}

// Close disconnects every client
func (h *WebSocketHub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	var errs []error
	for id, c := range h.clients {
		msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down")
		c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		close(c.send)
		if err := c.conn.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(h.clients, id)
	}
	return errors.Join(errs...)
}
