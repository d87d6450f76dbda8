// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package device

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Thermoquad/ptzbridge/pkg/visca"
)

// Retry policy defaults
const (
	DefaultAckTimeout  = time.Second
	DefaultMaxAttempts = 5
)

// Options configures a Session. Zero fields take the defaults.
type Options struct {
	AckTimeout  time.Duration
	MaxAttempts int
	Dial        DialFunc
	Logger      *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.AckTimeout <= 0 {
		o.AckTimeout = DefaultAckTimeout
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	if o.Dial == nil {
		o.Dial = Dial
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Session serializes all traffic to one device. The lock is held for the
// whole exchange, including retries and transport replacement, so exactly
// one frame is in flight per device and no caller can observe a stale
// transport.
type Session struct {
	ep   Endpoint
	opts Options
	log  *slog.Logger

	mu      sync.Mutex
	seq     uint32 // next sequence number to send
	tr      Transport
	dials   int
	closed  bool
	lastErr error

	statsMu sync.Mutex
	stats   Statistics
}

// NewSession creates a session for ep. No transport is opened until the
// first send.
func NewSession(ep Endpoint, opts Options) *Session {
	opts = opts.withDefaults()
	ep.Calibrations = ep.Calibrations.WithDefaults()

	return &Session{
		ep:    ep,
		opts:  opts,
		log:   opts.Logger.With("device_id", ep.ID),
		seq:   1,
		stats: *NewStatistics(),
	}
}

// ID returns the device id
func (s *Session) ID() string { return s.ep.ID }

// Endpoint returns the device endpoint
func (s *Session) Endpoint() Endpoint { return s.ep }

// Calibrations returns the device's axis calibrations
func (s *Session) Calibrations() visca.Calibrations { return s.ep.Calibrations }

// Sequence returns the sequence number the next send will use.
// It waits for any exchange in flight.
func (s *Session) Sequence() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}

// Send reserves the next sequence number and sends payload as a frame of
// type t. Unless skipAck is set it waits for the completion reply, retrying
// on a fresh transport up to MaxAttempts times. All attempts of one call
// carry the same sequence number. Exhausting the attempts returns an error
// matching ErrNoResponse.
func (s *Session) Send(ctx context.Context, t visca.PayloadType, payload []byte, skipAck bool) (visca.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return visca.Frame{}, ErrClosed
	}

	seq := s.seq
	s.seq++

	return s.exchange(ctx, visca.NewFrame(t, payload, seq), skipAck)
}

// Command sends a command payload and waits for completion.
func (s *Session) Command(ctx context.Context, payload []byte) error {
	_, err := s.Send(ctx, visca.TypeCommand, payload, false)
	return err
}

// Inquire sends an inquiry payload and returns the completion payload
// (for example 90 50 02 FF).
func (s *Session) Inquire(ctx context.Context, payload []byte) ([]byte, error) {
	reply, err := s.Send(ctx, visca.TypeInquiry, payload, false)
	if err != nil {
		return nil, err
	}
	return reply.Payload, nil
}

// ResetSequence sends the control reset frame through the same lock and
// retry path as Send, then sets the counter back to 1 whatever the outcome.
func (s *Session) ResetSequence(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	_, err := s.exchange(ctx, visca.NewFrame(visca.TypeControlCommand, visca.NewResetPayload(), 1), false)
	s.seq = 1
	s.record(outcomeReset)

	if err != nil {
		s.log.Warn("sequence reset failed", "error", err)
		return err
	}
	s.log.Info("sequence reset")
	return nil
}

// Online reports whether the most recent exchange completed.
func (s *Session) Online() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dials > 0 && s.lastErr == nil
}

// Stats returns a snapshot of the session statistics.
func (s *Session) Stats() Statistics {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	snap := s.stats
	snap.CalculateRates()
	return snap
}

// Close releases the transport. Later sends fail with ErrClosed.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	if s.tr == nil {
		return nil
	}
	err := s.tr.Close()
	s.tr = nil
	return err
}

// exchange runs the retry loop. Caller holds s.mu.
func (s *Session) exchange(ctx context.Context, f visca.Frame, skipAck bool) (visca.Frame, error) {
	s.record(outcomeSent)

	var lastErr error
	for attempt := 1; attempt <= s.opts.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			s.lastErr = err
			return visca.Frame{}, err
		}

		// A failed attempt drops the transport, so every retry runs on a
		// freshly opened one
		if s.tr == nil {
			if err := s.connect(ctx); err != nil {
				lastErr = err
				s.log.Warn("connect failed", "seq", f.Sequence, "attempt", attempt, "error", err)
				continue
			}
		}

		s.record(outcomeAttempt)
		reply, err := s.attempt(f, skipAck)
		if err == nil {
			if !skipAck {
				s.record(outcomeCompletion)
			}
			s.lastErr = nil
			return reply, nil
		}

		lastErr = err
		s.log.Warn("attempt failed",
			"seq", f.Sequence, "attempt", attempt, "conn_id", s.tr.ID(), "error", err)
		s.discard()
	}

	s.record(outcomeNoResponse)
	err := fmt.Errorf("%w: %s after %d attempts: %w", ErrNoResponse, s.ep, s.opts.MaxAttempts, lastErr)
	s.lastErr = err
	s.log.Error("no response", "seq", f.Sequence, "error", lastErr)
	return visca.Frame{}, err
}

// attempt writes the frame once and waits for its completion
func (s *Session) attempt(f visca.Frame, skipAck bool) (visca.Frame, error) {
	if err := s.tr.Send(f); err != nil {
		s.record(outcomeTransport)
		return visca.Frame{}, err
	}
	s.log.Debug("frame sent", "seq", f.Sequence, "type", visca.FormatPayloadType(f.Type), "conn_id", s.tr.ID())

	if skipAck {
		return visca.Frame{}, nil
	}

	// The completion gets its own AckTimeout once the ack arrives
	deadline := time.Now().Add(s.opts.AckTimeout)
	acked := false
	for {
		reply, err := s.tr.Receive(deadline)
		switch {
		case errors.Is(err, visca.ErrDecode):
			// Not a frame; keep waiting for the real reply
			s.record(outcomeDecode)
			s.log.Debug("ignoring datagram", "error", err)
			continue
		case errors.Is(err, ErrTimeout):
			s.record(outcomeTimeout)
			return visca.Frame{}, err
		case err != nil:
			s.record(outcomeTransport)
			return visca.Frame{}, err
		}

		if !reply.Acknowledges(f.Sequence) {
			s.record(outcomeSeqMismatch)
			return visca.Frame{}, fmt.Errorf("%w: reply sequence %d does not match %d", ErrRejected, reply.Sequence, f.Sequence)
		}

		switch kind := reply.Kind(); kind {
		case visca.ReplyAck:
			if !acked {
				acked = true
				deadline = time.Now().Add(s.opts.AckTimeout)
			}
			continue
		case visca.ReplyCompletion:
			return reply, nil
		case visca.ReplyError:
			s.record(outcomeErrorReply)
			return visca.Frame{}, fmt.Errorf("%w: %s", ErrRejected, visca.ErrorReason(reply.Payload))
		default:
			s.record(outcomeErrorReply)
			return visca.Frame{}, fmt.Errorf("%w: unexpected reply % X", ErrRejected, reply.Payload)
		}
	}
}

// connect opens a new transport. Caller holds s.mu.
func (s *Session) connect(ctx context.Context) error {
	tr, err := s.opts.Dial(ctx, s.ep)
	if err != nil {
		s.record(outcomeTransport)
		if !errors.Is(err, ErrTransport) {
			err = fmt.Errorf("%w: %v", ErrTransport, err)
		}
		return err
	}

	if s.dials > 0 {
		s.record(outcomeReconnect)
	}
	s.dials++
	s.tr = tr
	s.log.Debug("transport opened", "conn_id", tr.ID())
	return nil
}

// discard closes and forgets the current transport. Caller holds s.mu.
func (s *Session) discard() {
	if s.tr == nil {
		return
	}
	if err := s.tr.Close(); err != nil {
		s.log.Debug("transport close failed", "conn_id", s.tr.ID(), "error", err)
	}
	s.tr = nil
}

func (s *Session) record(o outcome) {
	s.statsMu.Lock()
	s.stats.Update(o)
	s.statsMu.Unlock()
}
