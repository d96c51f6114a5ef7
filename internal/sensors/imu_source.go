// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/devices/v3/mpu9250"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/motion_datalogger/internal/imu"
)

// accelRanges maps the ACCEL_FS_SEL code to ±g.
var accelRanges = []int{2, 4, 8, 16}

// axisReader is the part of *mpu9250.MPU9250 used to sample accel and gyro.
type axisReader interface {
	GetAccelerationX() (int16, error)
	GetAccelerationY() (int16, error)
	GetAccelerationZ() (int16, error)
	GetRotationX() (int16, error)
	GetRotationY() (int16, error)
	GetRotationZ() (int16, error)
}

type imuSource struct {
	name string
	dev  axisReader
}

// NewIMUSource initializes an MPU9250 over SPI and returns a raw reader.
// The device's own calibration is not run: bias is estimated by the
// calibration package so it can be applied to the logged stream.
func NewIMUSource(spiDev, csPin string, accelRange byte) (imu.RawReader, error) {
	const name = "imu"
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("%s: periph host init: %w", name, err)
	}

	cs := gpioreg.ByName(csPin)
	if cs == nil {
		return nil, fmt.Errorf("%s: CS pin %q not found", name, csPin)
	}

	tr, err := mpu9250.NewSpiTransport(spiDev, cs)
	if err != nil {
		return nil, fmt.Errorf("%s: SPI transport (%s): %w", name, spiDev, err)
	}

	dev, err := mpu9250.New(tr)
	if err != nil {
		return nil, fmt.Errorf("%s: device creation: %w", name, err)
	}

	if err := dev.Init(); err != nil {
		return nil, fmt.Errorf("%s: initialization: %w", name, err)
	}

	if int(accelRange) >= len(accelRanges) {
		return nil, fmt.Errorf("%s: invalid accel range %d", name, accelRange)
	}
	if err := dev.SetAccelRange(accelRange); err != nil {
		return nil, fmt.Errorf("%s: set accel range: %w", name, err)
	}
	log.Printf("%s: accelerometer range set to %d (±%dg)", name, accelRange, accelRanges[accelRange])

	return &imuSource{name: name, dev: dev}, nil
}

// ReadRaw reads accelerometer and gyroscope counts.
func (s *imuSource) ReadRaw() (imu.RawSample, error) {
	var out imu.RawSample
	reads := []struct {
		axis string
		fn   func() (int16, error)
		dst  *int16
	}{
		{"accel X", s.dev.GetAccelerationX, &out.Ax},
		{"accel Y", s.dev.GetAccelerationY, &out.Ay},
		{"accel Z", s.dev.GetAccelerationZ, &out.Az},
		{"gyro X", s.dev.GetRotationX, &out.Gx},
		{"gyro Y", s.dev.GetRotationY, &out.Gy},
		{"gyro Z", s.dev.GetRotationZ, &out.Gz},
	}
	for _, r := range reads {
		v, err := r.fn()
		if err != nil {
			return imu.RawSample{}, fmt.Errorf("%s %s: %w", s.name, r.axis, err)
		}
		*r.dst = v
	}
	return out, nil
}
