// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/Thermoquad/ptzbridge/pkg/device"
	"github.com/Thermoquad/ptzbridge/pkg/telemetry"
)

// Devices resolves a device id (or the broadcast id) and runs fn for each
// session in turn. *device.Registry implements it.
type Devices interface {
	Fanout(ctx context.Context, id string, fn func(context.Context, *device.Session) error) error
}

// Dispatcher executes intents. Each intent is handled on its own; the only
// state kept between intents is the movement speed picked by speedNN.
type Dispatcher struct {
	devices Devices
	pub     telemetry.Publisher
	log     *slog.Logger

	mu    sync.Mutex
	speed int
}

// NewDispatcher creates a dispatcher. A nil publisher discards telemetry.
func NewDispatcher(devices Devices, pub telemetry.Publisher, logger *slog.Logger) *Dispatcher {
	if pub == nil {
		pub = telemetry.Noop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		devices: devices,
		pub:     pub,
		log:     logger,
		speed:   DefaultMovementSpeed,
	}
}

// MovementSpeed returns the speed used by single-argument directional commands
func (d *Dispatcher) MovementSpeed() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.speed
}

// Dispatch executes one intent and reports the command name on the
// SentMessageLabel. Failures are logged and returned; none of them leave
// the dispatcher unusable.
func (d *Dispatcher) Dispatch(ctx context.Context, in Intent) error {
	err := d.dispatch(ctx, in)

	switch {
	case err == nil:
		d.log.Debug("intent handled", "device_id", in.DeviceID, "command", in.Command, "args", in.Args)
	case errors.Is(err, ErrUnknownCommand):
		d.log.Warn("unknown command ignored", "device_id", in.DeviceID, "command", in.Command, "args", in.Args)
	default:
		d.log.Error("intent failed", "device_id", in.DeviceID, "command", in.Command, "args", in.Args, "error", err)
	}

	d.label(ctx, telemetry.SentMessageLabel, in.Command)
	return err
}

func (d *Dispatcher) dispatch(ctx context.Context, in Intent) error {
	entry, ok := Lookup(in.Command)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCommand, in.Command)
	}
	if len(in.Args) < entry.MinArgs {
		return fmt.Errorf("%w: %s needs %d arguments, got %d", ErrDecode, entry.Name, entry.MinArgs, len(in.Args))
	}

	switch entry.Category {
	case CategorySpeed:
		return d.setSpeed(ctx, entry.Name)
	case CategorySequence:
		return d.resetSequence(ctx, in.DeviceID)
	}

	speed := d.MovementSpeed()
	return d.devices.Fanout(ctx, in.DeviceID, func(ctx context.Context, s *device.Session) error {
		payloads, err := entry.Build(Call{Args: in.Args, Cal: s.Calibrations(), Speed: speed})
		if err != nil {
			return fmt.Errorf("%s on %s: %w", entry.Name, s.ID(), err)
		}
		for _, p := range payloads {
			if err := s.Command(ctx, p); err != nil {
				d.sendFailed(ctx, s.ID(), err)
				return fmt.Errorf("%s on %s: %w", entry.Name, s.ID(), err)
			}
		}
		return nil
	})
}

func (d *Dispatcher) setSpeed(ctx context.Context, name string) error {
	n, _ := parseSpeed(name)

	d.mu.Lock()
	d.speed = n
	d.mu.Unlock()

	d.label(ctx, telemetry.MovementSpeedLabel, strings.TrimPrefix(name, speedPrefix))
	return nil
}

func (d *Dispatcher) resetSequence(ctx context.Context, id string) error {
	err := d.devices.Fanout(ctx, id, func(ctx context.Context, s *device.Session) error {
		err := s.ResetSequence(ctx)
		d.publish(ctx, telemetry.OnlineKey(s.ID()), telemetry.Bool(err == nil))
		return err
	})
	d.publish(ctx, telemetry.ResetSequenceKey, telemetry.Bool(err == nil))
	return err
}

// sendFailed surfaces an unanswered command to the operator
func (d *Dispatcher) sendFailed(ctx context.Context, id string, err error) {
	if !errors.Is(err, device.ErrNoResponse) {
		return
	}
	d.publish(ctx, telemetry.ResetSequenceKey, 0)
	d.publish(ctx, telemetry.OnlineKey(id), 0)
}

func (d *Dispatcher) publish(ctx context.Context, key string, value float64) {
	if err := d.pub.Publish(ctx, key, value); err != nil {
		d.log.Warn("telemetry publish failed", "key", key, "error", err)
	}
}

func (d *Dispatcher) label(ctx context.Context, key, text string) {
	lp, ok := d.pub.(telemetry.LabelPublisher)
	if !ok {
		return
	}
	if err := lp.PublishLabel(ctx, key, text); err != nil {
		d.log.Warn("telemetry publish failed", "key", key, "error", err)
	}
}
