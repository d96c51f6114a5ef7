// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package record turns raw IMU samples into bias-corrected, numbered records
// and serializes them to the datalog CSV format.
package record

import (
	"strconv"

	"github.com/relabs-tech/motion_datalogger/internal/imu"
)

// Header is the first line of a freshly created datalog file. Analysis tools
// depend on this exact text.
const Header = "numero_amostra,accel_x,accel_y,accel_z,giro_x,giro_y,giro_z\n"

// BiasVector holds the per-axis offsets (raw counts) subtracted from every sample.
type BiasVector struct {
	Accel [3]int32 `json:"accel"`
	Gyro  [3]int32 `json:"gyro"`
}

// CorrectedSample is a raw sample minus the bias, numbered within its session.
type CorrectedSample struct {
	Seq   uint32
	Accel [3]int16
	Gyro  [3]int16
}

// Correct subtracts bias from raw. The result wraps like the sensor's 16-bit
// registers do; out-of-range values are not clamped.
func Correct(raw imu.RawSample, bias BiasVector, seq uint32) CorrectedSample {
	out := CorrectedSample{Seq: seq}
	a, g := raw.Accel(), raw.Gyro()
	for i := 0; i < 3; i++ {
		out.Accel[i] = int16(int32(a[i]) - bias.Accel[i])
		out.Gyro[i] = int16(int32(g[i]) - bias.Gyro[i])
	}
	return out
}

// AppendCSV appends the newline-terminated CSV line for s to dst.
func (s CorrectedSample) AppendCSV(dst []byte) []byte {
	dst = strconv.AppendUint(dst, uint64(s.Seq), 10)
	for _, v := range s.Accel {
		dst = append(dst, ',')
		dst = strconv.AppendInt(dst, int64(v), 10)
	}
	for _, v := range s.Gyro {
		dst = append(dst, ',')
		dst = strconv.AppendInt(dst, int64(v), 10)
	}
	return append(dst, '\n')
}

// String returns the CSV line for s, including the trailing newline.
func (s CorrectedSample) String() string {
	return string(s.AppendCSV(make([]byte, 0, 64)))
}

// HeaderNeeded reports whether a target of the given size at open time must
// receive the header. Only empty targets get one.
func HeaderNeeded(size int64) bool {
	return size == 0
}
