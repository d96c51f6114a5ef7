// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/relabs-tech/motion_datalogger/internal/calibration"
	"github.com/relabs-tech/motion_datalogger/internal/config"
	"github.com/relabs-tech/motion_datalogger/internal/controller"
	"github.com/relabs-tech/motion_datalogger/internal/imu"
	"github.com/relabs-tech/motion_datalogger/internal/input"
	"github.com/relabs-tech/motion_datalogger/internal/sensors"
	"github.com/relabs-tech/motion_datalogger/internal/status"
	"github.com/relabs-tech/motion_datalogger/internal/storage"
)

const shutdownTimeout = 2 * time.Second

// outputs bundles the status backends opened for one run.
type outputs struct {
	indicator status.Multi
	beeper    status.Beeper
	hub       *status.Hub
	closers   []func()
}

func (o *outputs) close() {
	for i := len(o.closers) - 1; i >= 0; i-- {
		o.closers[i]()
	}
}

// RunDatalogger boots the logger with the global config and runs it until
// SIGINT or SIGTERM.
func RunDatalogger() error {
	cfg := config.Get()
	if cfg == nil {
		return errors.New("config not initialized")
	}
	log.SetLevel(cfg.LogLevel)
	log.Println("starting motion datalogger")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reader, err := openReader(cfg)
	if err != nil {
		return err
	}

	out, err := openOutputs(cfg)
	if err != nil {
		return err
	}
	defer out.close()

	buttons := input.NewButtons(input.DebounceWindow)
	g, gctx := errgroup.WithContext(ctx)

	if cfg.IMUMock {
		// bench mode: no GPIO, presses come from the console. The reader
		// blocks on stdin, so it runs outside the group.
		go func() {
			if err := input.WatchLines(gctx, buttons, os.Stdin, input.NewClock()); err != nil {
				log.WithError(err).Warn("input: console reader stopped")
			}
		}()
	} else if err := watchButtons(gctx, g, cfg, buttons); err != nil {
		return err
	}
	if out.hub != nil {
		g.Go(func() error { return serveStatus(gctx, cfg.WebServerPort, out.hub) })
	}

	ctrl := controller.New(
		storage.NewDir(cfg.StorageDir),
		reader,
		buttons,
		out.indicator,
		out.beeper,
		controllerOptions(cfg),
	)
	g.Go(func() error { return ctrl.Run(gctx) })

	err = g.Wait()
	log.Println("datalogger: shutting down")
	return err
}

func controllerOptions(cfg *config.Config) controller.Options {
	return controller.Options{
		FileName:       cfg.StorageFile,
		SampleInterval: cfg.SampleInterval,
		BlinkInterval:  cfg.BlinkInterval,
		SavedDwell:     cfg.SavedDwell,
		Calibration: calibration.Options{
			SampleCount: cfg.CalibrationSamples,
			Interval:    cfg.CalibrationInterval,
			SettleDelay: cfg.CalibrationSettle,
			// one g in raw counts halves with each range step
			GravityRaw: calibration.GravityRaw >> cfg.IMUAccelRange,
		},
		OnTransition: func(from, to controller.State, ev controller.Event) {
			log.WithFields(log.Fields{"from": from, "to": to, "event": ev}).Debug("datalogger: transition")
		},
	}
}

func openReader(cfg *config.Config) (imu.RawReader, error) {
	if cfg.IMUMock {
		log.Println("using mock IMU source")
		return sensors.NewMockSource(), nil
	}
	r, err := sensors.NewIMUSource(cfg.IMUSPIDevice, cfg.IMUCSPin, cfg.IMUAccelRange)
	if err != nil {
		return nil, fmt.Errorf("open IMU: %w", err)
	}
	return r, nil
}

// openOutputs builds the indicator fan-out. The log backend is always
// present; hardware and network backends are added when configured.
func openOutputs(cfg *config.Config) (*outputs, error) {
	out := &outputs{
		indicator: status.Multi{&status.LogIndicator{}},
		beeper:    status.LogBeeper{},
	}

	if cfg.DisplayEnabled {
		oled, err := status.OpenOLED(cfg.DisplayI2CBus)
		if err != nil {
			out.close()
			return nil, fmt.Errorf("open display: %w", err)
		}
		out.indicator = append(out.indicator, oled)
		out.closers = append(out.closers, func() {
			if err := oled.Close(); err != nil {
				log.WithError(err).Warn("display close")
			}
		})
	}

	if cfg.HasLED() {
		led, err := status.OpenRGBLED(cfg.LEDRedPin, cfg.LEDGreenPin, cfg.LEDBluePin)
		if err != nil {
			out.close()
			return nil, fmt.Errorf("open LED: %w", err)
		}
		out.indicator = append(out.indicator, led)
		out.closers = append(out.closers, func() { led.SetColor(status.Off) })
	}

	if len(cfg.BuzzerPins) > 0 {
		bz, err := status.OpenBuzzer(cfg.BuzzerPins...)
		if err != nil {
			out.close()
			return nil, fmt.Errorf("open buzzer: %w", err)
		}
		out.beeper = bz
	}

	if cfg.MQTTBroker != "" {
		mirror, client, err := status.ConnectMQTT(cfg.MQTTBroker, cfg.MQTTClientID, cfg.TopicStatus)
		if err != nil {
			// the mirror is optional; logging continues without it
			log.WithError(err).Warn("status: MQTT mirror disabled")
		} else {
			out.indicator = append(out.indicator, mirror)
			out.closers = append(out.closers, func() { client.Disconnect(250) })
		}
	}

	if cfg.WebServerPort > 0 {
		out.hub = status.NewHub()
		out.indicator = append(out.indicator, out.hub)
	}

	return out, nil
}

// watchButtons opens both button pins and starts one watcher per line.
func watchButtons(ctx context.Context, g *errgroup.Group, cfg *config.Config, b *input.Buttons) error {
	now := input.NewClock()
	lines := []struct {
		pin string
		src input.Source
	}{
		{cfg.ButtonPrimaryPin, input.Primary},
		{cfg.ButtonSecondaryPin, input.Secondary},
	}
	for _, l := range lines {
		pin, err := input.OpenPin(l.pin)
		if err != nil {
			return fmt.Errorf("%s button: %w", l.src, err)
		}
		src := l.src
		g.Go(func() error { return input.WatchPin(ctx, b, pin, src, now) })
	}
	return nil
}

// serveStatus runs the status page until ctx ends. A listen failure is
// logged and does not stop the logger.
func serveStatus(ctx context.Context, port int, hub *status.Hub) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           hub.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("web server listening on %s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Warn("web server stopped")
		}
		return nil
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutCtx)
	}
}
