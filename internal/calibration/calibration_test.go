package calibration

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/motion_datalogger/internal/imu"
	"github.com/relabs-tech/motion_datalogger/internal/record"
	"github.com/relabs-tech/motion_datalogger/internal/status"
)

type sliceReader struct {
	samples []imu.RawSample
	next    int
	err     error
	failAt  int
}

func (r *sliceReader) ReadRaw() (imu.RawSample, error) {
	if r.err != nil && r.next == r.failAt {
		return imu.RawSample{}, r.err
	}
	s := r.samples[r.next%len(r.samples)]
	r.next++
	return s, nil
}

type sleepLog struct {
	calls []time.Duration
}

func (s *sleepLog) sleep(ctx context.Context, d time.Duration) error {
	s.calls = append(s.calls, d)
	return ctx.Err()
}

type recIndicator struct {
	shows  []string
	colors []status.Color
}

func (r *recIndicator) Show(h, d string)        { r.shows = append(r.shows, h+"|"+d) }
func (r *recIndicator) SetColor(c status.Color) { r.colors = append(r.colors, c) }

func TestCalibrateConstantStream(t *testing.T) {
	constant := imu.RawSample{Ax: 120, Ay: -45, Az: 16500, Gx: 13, Gy: -7, Gz: 2}
	reader := &sliceReader{samples: []imu.RawSample{constant}}
	sl := &sleepLog{}
	ind := &recIndicator{}

	bias, err := Calibrate(context.Background(), reader, Options{Indicator: ind, Sleep: sl.sleep})
	require.NoError(t, err)

	assert.Equal(t, record.BiasVector{
		Accel: [3]int32{120, -45, 16500 - GravityRaw},
		Gyro:  [3]int32{13, -7, 2},
	}, bias)
	assert.Equal(t, DefaultSampleCount, reader.next)

	require.Len(t, sl.calls, DefaultSampleCount+1)
	assert.Equal(t, DefaultInterval, sl.calls[0])
	assert.Equal(t, DefaultSettleDelay, sl.calls[DefaultSampleCount])

	assert.Equal(t, []string{"Calibrating...|Do not move!", "Calibrated!|Ready."}, ind.shows)
	assert.Equal(t, []status.Color{status.Orange}, ind.colors)
}

func TestCalibrateOrderIndependent(t *testing.T) {
	const n = 1000
	samples := make([]imu.RawSample, n)
	rng := rand.New(rand.NewSource(1))
	for i := range samples {
		samples[i] = imu.RawSample{
			Ax: int16(rng.Intn(2001) - 1000),
			Ay: int16(rng.Intn(2001) - 1000),
			Az: int16(16384 + rng.Intn(201) - 100),
			Gx: int16(rng.Intn(101) - 50),
			Gy: int16(rng.Intn(101) - 50),
			Gz: int16(rng.Intn(101) - 50),
		}
	}
	shuffled := append([]imu.RawSample(nil), samples...)
	rng.Shuffle(n, func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

	noSleep := func(context.Context, time.Duration) error { return nil }
	a, err := Calibrate(context.Background(), &sliceReader{samples: samples}, Options{SampleCount: n, Sleep: noSleep})
	require.NoError(t, err)
	b, err := Calibrate(context.Background(), &sliceReader{samples: shuffled}, Options{SampleCount: n, Sleep: noSleep})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestBiasTruncatesTowardZero(t *testing.T) {
	bias := biasFromSums([3]int64{7, -7, 0}, [3]int64{5, -5, 3}, 2, 0)
	assert.Equal(t, [3]int32{3, -3, 0}, bias.Accel)
	assert.Equal(t, [3]int32{2, -2, 1}, bias.Gyro)
}

func TestCalibrateReadError(t *testing.T) {
	boom := errors.New("spi timeout")
	reader := &sliceReader{samples: []imu.RawSample{{}}, err: boom, failAt: 3}
	noSleep := func(context.Context, time.Duration) error { return nil }

	_, err := Calibrate(context.Background(), reader, Options{SampleCount: 10, Sleep: noSleep})
	require.ErrorIs(t, err, boom)
}

func TestCalibrateCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	reader := &sliceReader{samples: []imu.RawSample{{}}}

	_, err := Calibrate(ctx, reader, Options{SampleCount: 10})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, reader.next)
}

func TestSleepContext(t *testing.T) {
	require.NoError(t, SleepContext(context.Background(), time.Millisecond))
	require.NoError(t, SleepContext(context.Background(), 0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, SleepContext(ctx, time.Hour), context.Canceled)
}
