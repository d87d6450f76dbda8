// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package telemetry pushes key/value status samples (device online,
// autofocus state, sequence resets) to operator surfaces.
package telemetry

import (
	"context"
	"errors"
	"log/slog"
	"strings"
)

// Well-known keys
const (
	// SentMessageLabel carries the last handled command path
	SentMessageLabel = "SentMessageLabel"
	// MovementSpeedLabel carries the speed preset picked by speedNN
	MovementSpeedLabel = "MovementSpeedLabel"
	// ResetSequenceKey is 1 after a successful sequence reset, 0 after a failure
	ResetSequenceKey = "reset_sequence_number"
)

// OnlineKey returns the per-device reachability key
func OnlineKey(deviceID string) string { return "online_" + deviceID }

// FocusAutoKey returns the per-device autofocus key
func FocusAutoKey(deviceID string) string { return "focus_auto_" + deviceID }

// Publisher pushes one scalar sample per key.
type Publisher interface {
	Publish(ctx context.Context, key string, value float64) error
	Close() error
}

// LabelPublisher is implemented by publishers that can also carry text,
// such as the last sent command.
type LabelPublisher interface {
	PublishLabel(ctx context.Context, key, text string) error
}

// Bool converts a boolean sample to 1.0/0.0
func Bool(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// Noop discards every sample
type Noop struct{}

// Publish implements Publisher
func (Noop) Publish(context.Context, string, float64) error { return nil }

// Close implements Publisher
func (Noop) Close() error { return nil }

// Multi fans samples out to several publishers. A failing publisher does not
// stop the others; the errors are joined.
type Multi []Publisher

// Publish implements Publisher
func (m Multi) Publish(ctx context.Context, key string, value float64) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, key, value); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// PublishLabel implements LabelPublisher for the members that support it
func (m Multi) PublishLabel(ctx context.Context, key, text string) error {
	var errs []error
	for _, p := range m {
		if lp, ok := p.(LabelPublisher); ok {
			if err := lp.PublishLabel(ctx, key, text); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// Close implements Publisher
func (m Multi) Close() error {
	var errs []error
	for _, p := range m {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Logging wraps a publisher and logs every sample at debug level
type Logging struct {
	Publisher
	Logger *slog.Logger
}

// Publish implements Publisher
func (l Logging) Publish(ctx context.Context, key string, value float64) error {
	err := l.Publisher.Publish(ctx, key, value)
	l.Logger.Debug("telemetry", "key", key, "value", value, "error", err)
	return err
}

// PublishLabel implements LabelPublisher
func (l Logging) PublishLabel(ctx context.Context, key, text string) error {
	var err error
	if lp, ok := l.Publisher.(LabelPublisher); ok {
		err = lp.PublishLabel(ctx, key, text)
	}
	l.Logger.Debug("telemetry", "key", key, "text", text, "error", err)
	return err
}

// joinPath joins an address prefix and a key with exactly one slash
func joinPath(prefix, key string) string {
	prefix = strings.TrimRight(prefix, "/")
	return prefix + "/" + strings.TrimLeft(key, "/")
}
