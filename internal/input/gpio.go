// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package input

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// edgePollTimeout bounds each WaitForEdge call so the watcher notices
// context cancellation.
const edgePollTimeout = 500 * time.Millisecond

// EdgePin is the subset of gpio.PinIn used by the watcher.
type EdgePin interface {
	In(pull gpio.Pull, edge gpio.Edge) error
	WaitForEdge(timeout time.Duration) bool
	Name() string
}

// OpenPin looks up a GPIO pin by name after initializing the periph host.
func OpenPin(name string) (gpio.PinIO, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("button pin %q not found", name)
	}
	return p, nil
}

// WatchPin configures pin as a pulled-up input with falling-edge detection
// and forwards every edge to b until ctx ends. It blocks; run it on its own
// goroutine.
func WatchPin(ctx context.Context, b *Buttons, pin EdgePin, src Source, now Clock) error {
	if err := pin.In(gpio.PullUp, gpio.FallingEdge); err != nil {
		return fmt.Errorf("%s button: configure %s: %w", src, pin.Name(), err)
	}
	log.Printf("input: watching %s button on %s", src, pin.Name())

	for {
		if ctx.Err() != nil {
			return nil
		}
		if !pin.WaitForEdge(edgePollTimeout) {
			continue
		}
		if b.Edge(src, now()) {
			log.Debugf("input: %s press accepted", src)
		}
	}
}
