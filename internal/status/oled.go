// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package status

import (
	"fmt"
	"image"
	"image/draw"

	log "github.com/sirupsen/logrus"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"
)

const (
	oledWidth  = 128
	oledHeight = 64
	oledTitle  = "Datalogger MPU"
)

// Drawer is the part of *ssd1306.Dev the OLED indicator needs.
type Drawer interface {
	Draw(r image.Rectangle, src image.Image, sp image.Point) error
	Bounds() image.Rectangle
}

// OLED renders the status on a 128x64 SSD1306: a title line, a rule, the
// headline and the detail.
type OLED struct {
	dev  Drawer
	bus  i2c.BusCloser
	last [2]string
}

// OpenOLED initializes periph, opens the named I2C bus ("" for the default
// bus) and the SSD1306 at its default address.
func OpenOLED(busName string) (*OLED, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph: %w", err)
	}

	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("failed to open I2C bus: %w", err)
	}

	opts := ssd1306.DefaultOpts
	dev, err := ssd1306.NewI2C(bus, &opts)
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("failed to initialize display: %w", err)
	}
	log.Printf("display: initialized on bus %q", busName)

	return &OLED{dev: dev, bus: bus}, nil
}

// NewOLED wraps an already initialized display.
func NewOLED(dev Drawer) *OLED {
	return &OLED{dev: dev}
}

func (o *OLED) Show(headline, detail string) {
	if o.last == [2]string{headline, detail} {
		return
	}
	o.last = [2]string{headline, detail}

	img := renderStatus(headline, detail)
	if err := o.dev.Draw(o.dev.Bounds(), img, image.Point{}); err != nil {
		log.Printf("display: error updating display: %v", err)
	}
}

// SetColor is a no-op; the panel is monochrome.
func (o *OLED) SetColor(Color) {}

// Close releases the I2C bus if OpenOLED opened it.
func (o *OLED) Close() error {
	if o.bus == nil {
		return nil
	}
	return o.bus.Close()
}

func renderStatus(headline, detail string) *image1bit.VerticalLSB {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, oledWidth, oledHeight))

	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}

	drawer.Dot = fixed.P(0, 10)
	drawer.DrawString(oledTitle)

	draw.Draw(img, image.Rect(0, 12, oledWidth, 13), &image.Uniform{image1bit.On}, image.Point{}, draw.Src)

	drawer.Dot = fixed.P(0, 26)
	drawer.DrawString("Status:")

	drawer.Dot = fixed.P(0, 41)
	drawer.DrawString(headline)

	if detail != "" {
		drawer.Dot = fixed.P(0, 58)
		drawer.DrawString(detail)
	}

	return img
}
