// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package device

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Thermoquad/ptzbridge/pkg/visca"
)

// Registry maps device ids to sessions. It is filled at startup and is
// read-only afterwards, so lookups need no locking.
type Registry struct {
	order    []string
	sessions map[string]*Session
	log      *slog.Logger
}

// NewRegistry creates an empty registry
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		sessions: make(map[string]*Session),
		log:      logger,
	}
}

// NewRegistryFromEndpoints creates one session per endpoint, in order.
func NewRegistryFromEndpoints(endpoints []Endpoint, opts Options) (*Registry, error) {
	r := NewRegistry(opts.Logger)
	for _, ep := range endpoints {
		if err := r.Add(NewSession(ep, opts)); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Add registers a session. Registration order is the broadcast order.
func (r *Registry) Add(s *Session) error {
	id := s.ID()
	if id == "" || id == BroadcastID {
		return fmt.Errorf("invalid device id %q", id)
	}
	if _, ok := r.sessions[id]; ok {
		return fmt.Errorf("duplicate device id %q", id)
	}
	r.order = append(r.order, id)
	r.sessions[id] = s
	return nil
}

// Get returns the session for a single device id
func (r *Registry) Get(id string) (*Session, error) {
	s, ok := r.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDevice, id)
	}
	return s, nil
}

// Resolve returns the session for id, or every session in registration
// order for the broadcast id.
func (r *Registry) Resolve(id string) ([]*Session, error) {
	if id == BroadcastID {
		return r.Sessions(), nil
	}
	s, err := r.Get(id)
	if err != nil {
		return nil, err
	}
	return []*Session{s}, nil
}

// Sessions returns every session in registration order
func (r *Registry) Sessions() []*Session {
	out := make([]*Session, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.sessions[id])
	}
	return out
}

// Len returns the number of registered devices
func (r *Registry) Len() int { return len(r.order) }

// Fanout runs fn for every session id resolves to, one after another. The
// result is that of the last session; earlier failures are logged only.
func (r *Registry) Fanout(ctx context.Context, id string, fn func(context.Context, *Session) error) error {
	sessions, err := r.Resolve(id)
	if err != nil {
		return err
	}

	var last error
	for i, s := range sessions {
		last = fn(ctx, s)
		if last != nil && i < len(sessions)-1 {
			r.log.Warn("broadcast send failed", "device_id", s.ID(), "error", last)
		}
	}
	return last
}

// Send sends one payload to id (or every device) and waits for completion.
func (r *Registry) Send(ctx context.Context, id string, t visca.PayloadType, payload []byte) error {
	return r.Fanout(ctx, id, func(ctx context.Context, s *Session) error {
		_, err := s.Send(ctx, t, payload, false)
		return err
	})
}

// ResetSequence resets the sequence of id (or every device).
func (r *Registry) ResetSequence(ctx context.Context, id string) error {
	return r.Fanout(ctx, id, func(ctx context.Context, s *Session) error {
		return s.ResetSequence(ctx)
	})
}

// Inquire sends an inquiry to id. For the broadcast id the last device's
// reply is returned.
func (r *Registry) Inquire(ctx context.Context, id string, payload []byte) ([]byte, error) {
	var reply []byte
	err := r.Fanout(ctx, id, func(ctx context.Context, s *Session) error {
		var err error
		reply, err = s.Inquire(ctx, payload)
		return err
	})
	return reply, err
}

// Close closes every session
func (r *Registry) Close() error {
	var errs []error
	for _, s := range r.Sessions() {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", s.ID(), err))
		}
	}
	return errors.Join(errs...)
}
