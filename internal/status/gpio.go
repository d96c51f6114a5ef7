// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package status

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

const (
	buzzerFrequency = 5 * physic.KiloHertz
	beepDuration    = 150 * time.Millisecond
	beepGap         = 100 * time.Millisecond
)

// OutputPin is the part of gpio.PinOut used by the LED and buzzer.
type OutputPin interface {
	Out(l gpio.Level) error
	PWM(duty gpio.Duty, f physic.Frequency) error
	Name() string
}

func openOutputs(names ...string) ([]OutputPin, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}
	pins := make([]OutputPin, 0, len(names))
	for _, name := range names {
		p := gpioreg.ByName(name)
		if p == nil {
			return nil, fmt.Errorf("pin %q not found", name)
		}
		if err := p.Out(gpio.Low); err != nil {
			return nil, fmt.Errorf("pin %s: set output: %w", name, err)
		}
		pins = append(pins, p)
	}
	return pins, nil
}

// RGBLED drives a common-cathode RGB LED from three GPIO outputs.
type RGBLED struct {
	r, g, b OutputPin
}

// OpenRGBLED opens the red, green and blue pins by name.
func OpenRGBLED(red, green, blue string) (*RGBLED, error) {
	pins, err := openOutputs(red, green, blue)
	if err != nil {
		return nil, fmt.Errorf("rgb led: %w", err)
	}
	return NewRGBLED(pins[0], pins[1], pins[2]), nil
}

// NewRGBLED builds an RGBLED from already configured pins.
func NewRGBLED(r, g, b OutputPin) *RGBLED {
	return &RGBLED{r: r, g: g, b: b}
}

func (l *RGBLED) SetColor(c Color) {
	for _, ch := range []struct {
		pin OutputPin
		on  bool
	}{{l.r, c.R}, {l.g, c.G}, {l.b, c.B}} {
		if err := ch.pin.Out(gpio.Level(ch.on)); err != nil {
			log.Printf("led: %s: %v", ch.pin.Name(), err)
		}
	}
}

// Show is a no-op; the LED carries color only.
func (l *RGBLED) Show(string, string) {}

// Buzzer sounds beeps on one or more PWM-capable pins driven in parallel.
type Buzzer struct {
	pins  []OutputPin
	sleep func(time.Duration)
}

// OpenBuzzer opens the named buzzer pins.
func OpenBuzzer(names ...string) (*Buzzer, error) {
	pins, err := openOutputs(names...)
	if err != nil {
		return nil, fmt.Errorf("buzzer: %w", err)
	}
	return NewBuzzer(pins...), nil
}

// NewBuzzer builds a Buzzer from already configured pins.
func NewBuzzer(pins ...OutputPin) *Buzzer {
	return &Buzzer{pins: pins, sleep: time.Sleep}
}

func (b *Buzzer) Beep(p Pattern) {
	n := 0
	switch p {
	case SingleBeep:
		n = 1
	case DoubleBeep:
		n = 2
	}
	for i := 0; i < n; i++ {
		if i > 0 {
			b.sleep(beepGap)
		}
		b.tone()
	}
}

func (b *Buzzer) tone() {
	for _, p := range b.pins {
		if err := p.PWM(gpio.DutyHalf, buzzerFrequency); err != nil {
			log.Printf("buzzer: %s: %v", p.Name(), err)
		}
	}
	b.sleep(beepDuration)
	for _, p := range b.pins {
		if err := p.Out(gpio.Low); err != nil {
			log.Printf("buzzer: %s: %v", p.Name(), err)
		}
	}
}
