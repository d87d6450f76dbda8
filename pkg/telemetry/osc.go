// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package telemetry

import (
	"context"
	"fmt"
	"sync"

	"github.com/hypebeast/go-osc/osc"
)

// DefaultOSCPrefix is the address prefix control surfaces listen on
const DefaultOSCPrefix = "/1"

// OSCPublisher sends each sample as an OSC message <prefix>/<key> with one
// float32 argument.
type OSCPublisher struct {
	prefix string
	port   int

	mu     sync.Mutex
	host   string
	client *osc.Client
}

// NewOSCPublisher creates a publisher sending to host:port. With an empty
// host samples are dropped until Retarget names one.
func NewOSCPublisher(host string, port int, prefix string) *OSCPublisher {
	if prefix == "" {
		prefix = DefaultOSCPrefix
	}
	p := &OSCPublisher{prefix: prefix, port: port}
	p.Retarget(host)
	return p
}

// Retarget sends later samples to host, keeping the port. Control surfaces
// listen on the machine they send from, so ingress calls this with the
// sender of each message.
func (p *OSCPublisher) Retarget(host string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if host == p.host && p.client != nil {
		return
	}
	p.host = host
	p.client = nil
	if host != "" {
		p.client = osc.NewClient(host, p.port)
	}
}

// Target returns the current host, empty while idle
func (p *OSCPublisher) Target() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.host
}

func (p *OSCPublisher) send(key string, arg interface{}) error {
	p.mu.Lock()
	client := p.client
	p.mu.Unlock()

	if client == nil {
		return nil
	}
	if err := client.Send(osc.NewMessage(joinPath(p.prefix, key), arg)); err != nil {
		return fmt.Errorf("osc publish %s: %w", key, err)
	}
	return nil
}

// Publish implements Publisher
func (p *OSCPublisher) Publish(_ context.Context, key string, value float64) error {
	return p.send(key, float32(value))
}

// PublishLabel implements LabelPublisher with a string argument
func (p *OSCPublisher) PublishLabel(_ context.Context, key, text string) error {
	return p.send(key, text)
}

// Close implements Publisher. The client opens a socket per send, so there
// is nothing to release.
func (p *OSCPublisher) Close() error { return nil }
