// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imu

// RawSample represents a single raw accel+gyro sample in sensor counts.
type RawSample struct {
	Ax int16 `json:"ax"` // accel
	Ay int16 `json:"ay"`
	Az int16 `json:"az"`

	Gx int16 `json:"gx"` // gyro
	Gy int16 `json:"gy"`
	Gz int16 `json:"gz"`
}

// Accel returns the accelerometer axes as an array (x, y, z).
func (s RawSample) Accel() [3]int16 {
	return [3]int16{s.Ax, s.Ay, s.Az}
}

// Gyro returns the gyroscope axes as an array (x, y, z).
func (s RawSample) Gyro() [3]int16 {
	return [3]int16{s.Gx, s.Gy, s.Gz}
}

// RawReader is anything that can produce a raw sample on demand.
type RawReader interface {
	ReadRaw() (RawSample, error)
}
