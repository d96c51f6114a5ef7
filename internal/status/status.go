// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package status holds the presentational collaborators of the datalogger:
// status indicators (OLED, RGB LED, MQTT mirror, websocket hub, log) and
// audible feedback. None of them feed anything back into the controller.
package status

import (
	"time"

	log "github.com/sirupsen/logrus"
)

// Color is an RGB indicator level with each channel either on or off.
type Color struct {
	R, G, B bool

	name string // overrides the level-derived name
}

var (
	Off    = Color{}
	Red    = Color{R: true}
	Green  = Color{G: true}
	Blue   = Color{B: true}
	Yellow = Color{R: true, G: true}
	// Orange drives the same LED level as Yellow but reports its own name.
	Orange = Color{R: true, G: true, name: "orange"}
	Purple = Color{R: true, B: true}
	White  = Color{R: true, G: true, B: true}
)

func (c Color) String() string {
	if c.name != "" {
		return c.name
	}
	switch c {
	case Off:
		return "off"
	case Red:
		return "red"
	case Green:
		return "green"
	case Blue:
		return "blue"
	case Yellow:
		return "yellow"
	case Purple:
		return "purple"
	case White:
		return "white"
	default:
		return "cyan"
	}
}

// Indicator accepts status text and a color signal.
type Indicator interface {
	Show(headline, detail string)
	SetColor(c Color)
}

// Pattern is an audible feedback pattern.
type Pattern int

const (
	SingleBeep Pattern = iota + 1 // session start
	DoubleBeep                    // session stop
)

func (p Pattern) String() string {
	switch p {
	case SingleBeep:
		return "single"
	case DoubleBeep:
		return "double"
	default:
		return "none"
	}
}

// Beeper plays audible feedback patterns.
type Beeper interface {
	Beep(p Pattern)
}

// Snapshot is the current indicator state as published to remote viewers.
type Snapshot struct {
	Headline string    `json:"headline"`
	Detail   string    `json:"detail"`
	Color    string    `json:"color"`
	Time     time.Time `json:"time"`
}

// Multi fans every call out to all of its indicators in order.
type Multi []Indicator

func (m Multi) Show(headline, detail string) {
	for _, ind := range m {
		ind.Show(headline, detail)
	}
}

func (m Multi) SetColor(c Color) {
	for _, ind := range m {
		ind.SetColor(c)
	}
}

// LogIndicator writes status changes to the log. Repeated identical calls
// are suppressed so the recording loop does not flood the log.
type LogIndicator struct {
	headline, detail string
	color            Color
	colorSet         bool
}

func (l *LogIndicator) Show(headline, detail string) {
	if headline == l.headline && detail == l.detail {
		return
	}
	entry := log.WithField("detail", detail)
	if headline == l.headline {
		// detail-only updates (the sample counter) go to debug
		entry.Debugf("status: %s", headline)
	} else {
		entry.Infof("status: %s", headline)
	}
	l.headline, l.detail = headline, detail
}

func (l *LogIndicator) SetColor(c Color) {
	if l.colorSet && c == l.color {
		return
	}
	l.color, l.colorSet = c, true
	log.Debugf("status: color %s", c)
}

// LogBeeper logs beep patterns instead of sounding them.
type LogBeeper struct{}

func (LogBeeper) Beep(p Pattern) {
	log.Infof("status: %s beep", p)
}
