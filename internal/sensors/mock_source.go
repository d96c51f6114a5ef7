// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"math"
	"time"

	"github.com/relabs-tech/motion_datalogger/internal/imu"
)

// Offsets the mock adds on top of a level, resting device.
const (
	mockAccelOffsetX = 120
	mockAccelOffsetY = -80
	mockGyroOffsetX  = 35
	mockGyroOffsetY  = -12
	mockGyroOffsetZ  = 7
)

type mockSource struct {
	start time.Time
	now   func() time.Time
}

// NewMockSource creates a raw reader for bench runs without hardware. It
// reports a level device at rest (1g on Z at ±2g) with fixed sensor
// offsets and a slow small wobble.
func NewMockSource() imu.RawReader {
	return &mockSource{start: time.Now(), now: time.Now}
}

func (m *mockSource) ReadRaw() (imu.RawSample, error) {
	elapsed := m.now().Sub(m.start).Seconds()
	wobble := func(amp, freq float64) int16 {
		return int16(math.Round(amp * math.Sin(elapsed*freq)))
	}

	return imu.RawSample{
		Ax: mockAccelOffsetX + wobble(20, 1.3),
		Ay: mockAccelOffsetY + wobble(20, 0.7),
		Az: 16384 + wobble(40, 0.9),
		Gx: mockGyroOffsetX + wobble(5, 2.1),
		Gy: mockGyroOffsetY + wobble(5, 1.7),
		Gz: mockGyroOffsetZ + wobble(5, 0.5),
	}, nil
}
