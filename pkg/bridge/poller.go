// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bridge

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Thermoquad/ptzbridge/pkg/device"
	"github.com/Thermoquad/ptzbridge/pkg/telemetry"
	"github.com/Thermoquad/ptzbridge/pkg/visca"
)

// DefaultPollInterval matches the refresh rate of the operator surface
const DefaultPollInterval = 3 * time.Second

// SessionLister lists the sessions to poll. *device.Registry implements it.
type SessionLister interface {
	Sessions() []*device.Session
}

// Status is the result of polling one device
type Status struct {
	DeviceID  string
	Name      string
	Address   string
	Online    bool
	FocusAuto bool
	FocusMode byte
	Sequence  uint32
	Latency   time.Duration
	Err       error
}

// Poller periodically asks every device for its focus mode. A reply marks
// the device online; the mode itself drives the autofocus indicator.
type Poller struct {
	devices  SessionLister
	pub      telemetry.Publisher
	interval time.Duration
	log      *slog.Logger
}

// NewPoller creates a poller. Zero interval uses DefaultPollInterval.
func NewPoller(devices SessionLister, pub telemetry.Publisher, interval time.Duration, logger *slog.Logger) *Poller {
	if pub == nil {
		pub = telemetry.Noop{}
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{devices: devices, pub: pub, interval: interval, log: logger}
}

// Run polls immediately and then every interval until ctx is done.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.PollOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.PollOnce(ctx)
		}
	}
}

// PollOnce polls every device and publishes the results. Devices are
// polled in parallel; each one still goes through its own session lock.
// The statuses are returned in registration order.
func (p *Poller) PollOnce(ctx context.Context) []Status {
	sessions := p.devices.Sessions()
	out := make([]Status, len(sessions))

	var wg sync.WaitGroup
	for i, s := range sessions {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out[i] = p.poll(ctx, s)
		}()
	}
	wg.Wait()

	for _, st := range out {
		if st.Err == nil {
			p.publish(ctx, telemetry.FocusAutoKey(st.DeviceID), telemetry.Bool(st.FocusAuto))
		}
		p.publish(ctx, telemetry.OnlineKey(st.DeviceID), telemetry.Bool(st.Online))
	}
	return out
}

func (p *Poller) poll(ctx context.Context, s *device.Session) Status {
	ep := s.Endpoint()
	st := Status{DeviceID: ep.ID, Name: ep.Name, Address: ep.String()}

	start := time.Now()
	reply, err := s.Inquire(ctx, visca.NewFocusModeInquiry())
	st.Latency = time.Since(start)
	st.Sequence = s.Sequence()
	if err != nil {
		st.Err = err
		p.log.Debug("poll failed", "device_id", ep.ID, "error", err)
		return st
	}

	st.Online = true
	mode, err := visca.ParseInquiryByte(reply)
	if err != nil {
		st.Err = err
		p.log.Warn("unexpected focus mode reply", "device_id", ep.ID, "error", err)
		return st
	}
	st.FocusMode = mode
	st.FocusAuto = mode == visca.FocusModeAuto
	return st
}

func (p *Poller) publish(ctx context.Context, key string, value float64) {
	if err := p.pub.Publish(ctx, key, value); err != nil {
		p.log.Warn("telemetry publish failed", "key", key, "error", err)
	}
}
