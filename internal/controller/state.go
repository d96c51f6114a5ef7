// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package controller

// State is the recording controller's session state.
type State int

const (
	Init State = iota
	StorageUnavailable
	Ready
	Recording
	Saved
)

var stateNames = map[State]string{
	Init:               "init",
	StorageUnavailable: "storage_unavailable",
	Ready:              "ready",
	Recording:          "recording",
	Saved:              "saved",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return "unknown"
}

// Event is the outcome of one controller step that may change the state.
type Event int

const (
	MountOK Event = iota + 1
	MountFailed
	RemountOK
	RemountFailed
	OpenOK
	OpenFailed
	StopRequested
	WriteFailed
	DwellElapsed
)

var eventNames = map[Event]string{
	MountOK:       "mount_ok",
	MountFailed:   "mount_failed",
	RemountOK:     "remount_ok",
	RemountFailed: "remount_failed",
	OpenOK:        "open_ok",
	OpenFailed:    "open_failed",
	StopRequested: "stop_requested",
	WriteFailed:   "write_failed",
	DwellElapsed:  "dwell_elapsed",
}

func (e Event) String() string {
	if n, ok := eventNames[e]; ok {
		return n
	}
	return "unknown"
}

// Transition returns the state that follows s on ev. Pairs without an entry
// in the table leave the state unchanged.
func Transition(s State, ev Event) State {
	switch s {
	case Init:
		switch ev {
		case MountOK:
			return Ready
		case MountFailed:
			return StorageUnavailable
		}
	case StorageUnavailable:
		if ev == RemountOK {
			return Ready
		}
	case Ready:
		switch ev {
		case OpenOK:
			return Recording
		case OpenFailed:
			return StorageUnavailable
		}
	case Recording:
		switch ev {
		case StopRequested:
			return Saved
		case WriteFailed:
			return StorageUnavailable
		}
	case Saved:
		if ev == DwellElapsed {
			return Ready
		}
	}
	return s
}
