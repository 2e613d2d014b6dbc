// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package watch

import (
	"time"

	"github.com/Thermoquad/metasim/pkg/metawatch"
	"github.com/sirupsen/logrus"
)

// Defaults
const (
	DefaultLEDTimeout        = 10 * time.Second
	DefaultHoldThreshold     = 200 * time.Millisecond
	DefaultLongHoldThreshold = time.Second
	DefaultBatteryMillivolts = 4000
	DefaultLightLevel        = 512
)

// Options configures a Device
type Options struct {
	// DeviceType is reported by getDeviceTypeResponse
	DeviceType uint8

	// LEDTimeout turns the LED off again after it was switched on. Zero
	// leaves it on.
	LEDTimeout time.Duration

	// Press durations above these thresholds classify as Hold and LongHold
	HoldThreshold     time.Duration
	LongHoldThreshold time.Duration

	Battery    metawatch.BatteryVoltage
	LightLevel uint16

	// Location the simulated clock is interpreted in
	Location *time.Location

	// Send receives every composed outbound frame
	Send func(frame []byte)

	// Observer is notified of state changes on the device's goroutine
	Observer func(Event)

	Scheduler Scheduler
	Logger    logrus.FieldLogger
}

// DefaultOptions returns the options of a digital watch on a full battery
func DefaultOptions() Options {
	return Options{
		DeviceType:        metawatch.DeviceTypeDigital,
		LEDTimeout:        DefaultLEDTimeout,
		HoldThreshold:     DefaultHoldThreshold,
		LongHoldThreshold: DefaultLongHoldThreshold,
		Battery: metawatch.BatteryVoltage{
			PowerGood:  true,
			Millivolts: DefaultBatteryMillivolts,
			Average:    DefaultBatteryMillivolts,
		},
		LightLevel: DefaultLightLevel,
		Location:   time.Local,
	}
}

// EventKind identifies what changed on the device
type EventKind int

// Event kinds
const (
	EventBufferChanged EventKind = iota
	EventModeChanged
	EventLEDChanged
	EventVibrationChanged
	EventNvalChanged
	EventClockChanged
	EventButtonSent
	EventReset
)

// String returns the display name of the event kind
func (k EventKind) String() string {
	switch k {
	case EventBufferChanged:
		return "BufferChanged"
	case EventModeChanged:
		return "ModeChanged"
	case EventLEDChanged:
		return "LEDChanged"
	case EventVibrationChanged:
		return "VibrationChanged"
	case EventNvalChanged:
		return "NvalChanged"
	case EventClockChanged:
		return "ClockChanged"
	case EventButtonSent:
		return "ButtonSent"
	case EventReset:
		return "Reset"
	default:
		return "Unknown"
	}
}

// Event is a state change notification for the presentation layer
type Event struct {
	Kind EventKind
	Mode metawatch.Mode
	// On is the new indicator state for LED and vibration events
	On bool
}
