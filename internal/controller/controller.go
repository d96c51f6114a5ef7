// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package controller implements the datalogger's recording state machine.
//
// The controller runs on a single goroutine. It calibrates once at boot,
// mounts storage, then loops: poll buttons, sample the IMU, append the
// corrected record, sync it, update the status collaborators. Every record is
// synced before the next sample is taken because power can be cut at any
// moment while recording.
package controller

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/motion_datalogger/internal/calibration"
	"github.com/relabs-tech/motion_datalogger/internal/imu"
	"github.com/relabs-tech/motion_datalogger/internal/input"
	"github.com/relabs-tech/motion_datalogger/internal/record"
	"github.com/relabs-tech/motion_datalogger/internal/status"
	"github.com/relabs-tech/motion_datalogger/internal/storage"
)

const (
	DefaultFileName       = "datalog.csv"
	DefaultSampleInterval = 100 * time.Millisecond
	DefaultBlinkInterval  = 250 * time.Millisecond
	DefaultSavedDwell     = 2000 * time.Millisecond
	DefaultIdleInterval   = 10 * time.Millisecond
)

// EventSource yields debounced button presses. *input.Buttons implements it.
type EventSource interface {
	Poll(src input.Source) bool
}

// Options holds the controller's timing policy. Zero fields take defaults.
type Options struct {
	FileName       string
	SampleInterval time.Duration // pause after each recorded sample
	BlinkInterval  time.Duration // half period of the storage error blink
	SavedDwell     time.Duration // how long "saved" stays up
	IdleInterval   time.Duration // poll period while waiting in Ready

	Calibration calibration.Options
	Sleep       calibration.SleepFunc

	// OnTransition, if set, is called after every state change.
	OnTransition func(from, to State, ev Event)
}

func (o Options) withDefaults() Options {
	if o.FileName == "" {
		o.FileName = DefaultFileName
	}
	if o.SampleInterval == 0 {
		o.SampleInterval = DefaultSampleInterval
	}
	if o.BlinkInterval == 0 {
		o.BlinkInterval = DefaultBlinkInterval
	}
	if o.SavedDwell == 0 {
		o.SavedDwell = DefaultSavedDwell
	}
	if o.IdleInterval == 0 {
		o.IdleInterval = DefaultIdleInterval
	}
	if o.Sleep == nil {
		o.Sleep = calibration.SleepContext
	}
	return o
}

// Controller owns the session state, the bias vector and the open sink.
type Controller struct {
	storage   storage.Storage
	reader    imu.RawReader
	buttons   EventSource
	indicator status.Indicator
	beeper    status.Beeper
	opts      Options

	calibrate func(ctx context.Context) (record.BiasVector, error)

	state State
	bias  record.BiasVector
	sink  storage.Sink
	seq   uint32
	buf   []byte
}

// New returns a controller in the Init state. Call Boot (or Run) next.
func New(st storage.Storage, reader imu.RawReader, buttons EventSource, ind status.Indicator, beeper status.Beeper, opts Options) *Controller {
	c := &Controller{
		storage:   st,
		reader:    reader,
		buttons:   buttons,
		indicator: ind,
		beeper:    beeper,
		opts:      opts.withDefaults(),
		state:     Init,
		buf:       make([]byte, 0, 64),
	}
	c.calibrate = func(ctx context.Context) (record.BiasVector, error) {
		calOpts := c.opts.Calibration
		calOpts.Indicator = c.indicator
		if calOpts.Sleep == nil {
			calOpts.Sleep = c.opts.Sleep
		}
		return calibration.Calibrate(ctx, c.reader, calOpts)
	}
	return c
}

// State returns the current session state.
func (c *Controller) State() State { return c.state }

// Bias returns the bias vector computed at boot.
func (c *Controller) Bias() record.BiasVector { return c.bias }

// Sequence returns the number of records written in the current session.
func (c *Controller) Sequence() uint32 { return c.seq }

// Boot calibrates the sensor and performs the initial mount. It leaves the
// controller in Ready or StorageUnavailable.
func (c *Controller) Boot(ctx context.Context) error {
	c.indicator.Show("Initializing", "Please wait...")
	c.indicator.SetColor(status.Yellow)

	bias, err := c.calibrate(ctx)
	if err != nil {
		return fmt.Errorf("boot: %w", err)
	}
	c.bias = bias
	// presses made while calibrating have no effect
	c.discard(input.Primary, input.Secondary)

	if err := c.storage.Mount(); err != nil {
		log.WithError(err).Warn("controller: storage mount failed")
		c.apply(MountFailed)
		return nil
	}
	c.apply(MountOK)
	return nil
}

// Run boots the controller and steps it until ctx ends. An open session is
// synced and closed before Run returns.
func (c *Controller) Run(ctx context.Context) error {
	if err := c.Boot(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	log.Printf("controller: running, state=%s", c.state)

	var err error
	for ctx.Err() == nil {
		if err = c.Step(ctx); err != nil {
			break
		}
	}
	c.shutdown()

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || err == nil {
		return nil
	}
	return err
}

// Step runs one loop iteration for the current state. Storage failures are
// handled here and never returned; the only errors are from ctx.
func (c *Controller) Step(ctx context.Context) error {
	switch c.state {
	case StorageUnavailable:
		return c.stepUnavailable(ctx)
	case Ready:
		return c.stepReady(ctx)
	case Recording:
		return c.stepRecording(ctx)
	case Saved:
		if err := c.opts.Sleep(ctx, c.opts.SavedDwell); err != nil {
			return err
		}
		c.discard(input.Primary, input.Secondary)
		c.apply(DwellElapsed)
		return nil
	default:
		// Init: Boot has not run yet.
		c.discard(input.Primary, input.Secondary)
		return c.opts.Sleep(ctx, c.opts.SampleInterval)
	}
}

// discard drops presses pending on lines the current state ignores, so they
// cannot fire after a later transition.
func (c *Controller) discard(srcs ...input.Source) {
	for _, src := range srcs {
		if c.buttons.Poll(src) {
			log.WithFields(log.Fields{"button": src.String(), "state": c.state.String()}).Debug("controller: press ignored")
		}
	}
}

func (c *Controller) stepUnavailable(ctx context.Context) error {
	c.indicator.SetColor(status.Purple)
	if err := c.opts.Sleep(ctx, c.opts.BlinkInterval); err != nil {
		return err
	}
	c.indicator.SetColor(status.Off)
	if err := c.opts.Sleep(ctx, c.opts.BlinkInterval); err != nil {
		return err
	}

	c.discard(input.Primary)
	if !c.buttons.Poll(input.Secondary) {
		return nil
	}
	c.indicator.Show("Mounting SD...", "")
	c.indicator.SetColor(status.Yellow)
	if err := c.storage.Mount(); err != nil {
		log.WithError(err).Warn("controller: remount failed")
		c.apply(RemountFailed)
		c.showUnavailable()
		return nil
	}
	c.apply(RemountOK)
	return nil
}

func (c *Controller) stepReady(ctx context.Context) error {
	c.discard(input.Secondary)
	if !c.buttons.Poll(input.Primary) {
		return c.opts.Sleep(ctx, c.opts.IdleInterval)
	}

	c.beeper.Beep(status.SingleBeep)
	c.indicator.SetColor(status.Blue)
	c.indicator.Show("Starting...", "Opening file")

	sink, err := c.openSession()
	if err != nil {
		log.WithError(err).WithField("file", c.opts.FileName).Warn("controller: cannot start session")
		c.apply(OpenFailed)
		return nil
	}
	c.sink = sink
	c.apply(OpenOK)
	return nil
}

// openSession opens the target and writes the header if it is empty.
func (c *Controller) openSession() (storage.Sink, error) {
	sink, err := c.storage.Open(c.opts.FileName)
	if err != nil {
		return nil, err
	}
	size, err := sink.Size()
	if err == nil && record.HeaderNeeded(size) {
		err = sink.Write([]byte(record.Header))
	}
	if err == nil {
		err = sink.Sync()
	}
	if err != nil {
		sink.Close()
		return nil, err
	}
	return sink, nil
}

func (c *Controller) stepRecording(ctx context.Context) error {
	c.discard(input.Secondary)
	raw, err := c.reader.ReadRaw()
	if err != nil {
		// nothing reached the pipeline, so the sequence stays gap-free
		log.WithError(err).Warn("controller: sensor read failed, sample skipped")
	} else {
		c.seq++
		s := record.Correct(raw, c.bias, c.seq)
		c.buf = s.AppendCSV(c.buf[:0])
		if err := c.sink.Write(c.buf); err != nil {
			c.abort(err)
			return nil
		}
		if err := c.sink.Sync(); err != nil {
			c.abort(err)
			return nil
		}
		c.indicator.Show("Recording...", fmt.Sprintf("Samples: %d", c.seq))
	}

	if c.buttons.Poll(input.Primary) {
		c.beeper.Beep(status.DoubleBeep)
		c.indicator.SetColor(status.Blue)
		if err := c.sink.Close(); err != nil {
			log.WithError(err).Warn("controller: close after stop failed")
		}
		c.sink = nil
		log.WithField("samples", c.seq).Info("controller: session saved")
		c.apply(StopRequested)
		return nil
	}

	return c.opts.Sleep(ctx, c.opts.SampleInterval)
}

// abort ends a session whose stream can no longer be trusted.
func (c *Controller) abort(cause error) {
	log.WithError(cause).WithField("samples", c.seq).Error("controller: storage failed while recording, session aborted")
	if err := c.sink.Close(); err != nil {
		log.WithError(err).Debug("controller: close after failure")
	}
	c.sink = nil
	c.apply(WriteFailed)
}

func (c *Controller) shutdown() {
	if c.sink == nil {
		return
	}
	if err := c.sink.Close(); err != nil {
		log.WithError(err).Warn("controller: close on shutdown failed")
	}
	c.sink = nil
	log.WithField("samples", c.seq).Info("controller: session closed on shutdown")
}

// apply runs the transition for ev and the entry action of the new state.
func (c *Controller) apply(ev Event) {
	from := c.state
	to := Transition(from, ev)
	if to == from {
		return
	}
	c.state = to
	log.WithFields(log.Fields{
		"from":  from.String(),
		"to":    to.String(),
		"event": ev.String(),
	}).Info("controller: state change")

	switch to {
	case StorageUnavailable:
		c.showUnavailable()
	case Ready:
		c.indicator.Show("Waiting", "Press B1")
		c.indicator.SetColor(status.Green)
	case Recording:
		c.seq = 0
		c.indicator.Show("Recording...", "Samples: 0")
		c.indicator.SetColor(status.Red)
	case Saved:
		c.indicator.Show("Data saved!", "")
		c.indicator.SetColor(status.Green)
	}

	if c.opts.OnTransition != nil {
		c.opts.OnTransition(from, to, ev)
	}
}

func (c *Controller) showUnavailable() {
	c.indicator.Show("ERROR", "SD not detected")
	c.indicator.SetColor(status.Purple)
}
