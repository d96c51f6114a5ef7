// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package calibration estimates the per-boot bias of a stationary IMU.
//
// The device must lie still, Z axis up, for the whole window. This cannot be
// checked from the data and is not enforced.
package calibration

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/motion_datalogger/internal/imu"
	"github.com/relabs-tech/motion_datalogger/internal/record"
	"github.com/relabs-tech/motion_datalogger/internal/status"
)

const (
	DefaultSampleCount = 1000
	DefaultInterval    = 2 * time.Millisecond
	DefaultSettleDelay = 1500 * time.Millisecond

	// GravityRaw is one standard gravity in raw counts at the ±2g range.
	GravityRaw = 16384
)

// SleepFunc pauses for d or until ctx ends.
type SleepFunc func(ctx context.Context, d time.Duration) error

// SleepContext is the default SleepFunc.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Options tunes the calibration window. Zero fields take the defaults.
type Options struct {
	SampleCount uint32
	Interval    time.Duration
	SettleDelay time.Duration
	GravityRaw  int32

	Indicator status.Indicator
	Sleep     SleepFunc
}

func (o *Options) withDefaults() Options {
	out := *o
	if out.SampleCount == 0 {
		out.SampleCount = DefaultSampleCount
	}
	if out.Interval == 0 {
		out.Interval = DefaultInterval
	}
	if out.SettleDelay == 0 {
		out.SettleDelay = DefaultSettleDelay
	}
	if out.GravityRaw == 0 {
		out.GravityRaw = GravityRaw
	}
	if out.Sleep == nil {
		out.Sleep = SleepContext
	}
	return out
}

// Calibrate averages SampleCount readings taken Interval apart and returns
// the mean per axis, with one gravity removed from the Z accelerometer so a
// level device reads +1g on Z after correction. It blocks for the whole
// window. A read error or cancelled context aborts the run.
func Calibrate(ctx context.Context, reader imu.RawReader, opts Options) (record.BiasVector, error) {
	o := opts.withDefaults()

	if o.Indicator != nil {
		o.Indicator.Show("Calibrating...", "Do not move!")
		o.Indicator.SetColor(status.Orange)
	}
	log.Printf("calibration: averaging %d samples, %s apart", o.SampleCount, o.Interval)

	var accelSum, gyroSum [3]int64
	for i := uint32(0); i < o.SampleCount; i++ {
		raw, err := reader.ReadRaw()
		if err != nil {
			return record.BiasVector{}, fmt.Errorf("calibration sample %d: %w", i, err)
		}
		a, g := raw.Accel(), raw.Gyro()
		for j := 0; j < 3; j++ {
			accelSum[j] += int64(a[j])
			gyroSum[j] += int64(g[j])
		}
		if err := o.Sleep(ctx, o.Interval); err != nil {
			return record.BiasVector{}, fmt.Errorf("calibration interrupted: %w", err)
		}
	}

	bias := biasFromSums(accelSum, gyroSum, o.SampleCount, o.GravityRaw)

	log.WithFields(log.Fields{
		"accel": bias.Accel,
		"gyro":  bias.Gyro,
	}).Info("calibration: bias computed")

	if o.Indicator != nil {
		o.Indicator.Show("Calibrated!", "Ready.")
	}
	if err := o.Sleep(ctx, o.SettleDelay); err != nil {
		return record.BiasVector{}, fmt.Errorf("calibration interrupted: %w", err)
	}
	return bias, nil
}

// biasFromSums divides with truncation toward zero, as Go's / does.
func biasFromSums(accelSum, gyroSum [3]int64, n uint32, gravity int32) record.BiasVector {
	var bias record.BiasVector
	for j := 0; j < 3; j++ {
		bias.Accel[j] = int32(accelSum[j] / int64(n))
		bias.Gyro[j] = int32(gyroSum[j] / int64(n))
	}
	bias.Accel[2] -= gravity
	return bias
}
