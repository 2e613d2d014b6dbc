// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package metawatch implements the MetaWatch remote message protocol as seen
// from the watch side of a serial link.
//
// A frame is [0x01][len][type][options][payload...][crc lo][crc hi] where len
// counts the whole frame and the CRC covers everything before it. This
// package parses and composes frames, names message types, decodes the
// per-type payload layouts and routes frames to a Handlers implementation.
package metawatch

// Protocol framing
const (
	StartByte = 0x01

	// start + length + type + options + 2 checksum bytes
	FrameOverhead  = 6
	MaxFrameSize   = 0xFF
	MaxPayloadSize = MaxFrameSize - FrameOverhead
)

// CRC configuration
const (
	crcPolynomial = 0x1021
	crcInitial    = 0xFFFF
	crcCheck      = 0x89F6 // "123456789"
)

// MsgType is the message type byte of a frame.
type MsgType uint8

// Device info
const (
	MsgGetDeviceType         MsgType = 0x01
	MsgGetDeviceTypeResponse MsgType = 0x02
	MsgGetInfo               MsgType = 0x03
	MsgGetInfoResponse       MsgType = 0x04
	MsgLoopback              MsgType = 0x05
)

// OLED (analog watch) display
const (
	MsgWriteOLED       MsgType = 0x10
	MsgChangeOLED      MsgType = 0x12
	MsgWriteOLEDScroll MsgType = 0x13
)

// Clock and vibration
const (
	MsgAdvanceHands   MsgType = 0x20
	MsgSetVibrate     MsgType = 0x23
	MsgSetRTC         MsgType = 0x26
	MsgGetRTC         MsgType = 0x27
	MsgGetRTCResponse MsgType = 0x28
)

// NVAL, status and button events
const (
	MsgNval         MsgType = 0x30
	MsgNvalResponse MsgType = 0x31
	MsgStatusEvent  MsgType = 0x33
	MsgButtonEvent  MsgType = 0x34
	MsgGPPhone      MsgType = 0x35
	MsgGPWatch      MsgType = 0x36
)

// LCD (digital watch) display and buttons
const (
	MsgWriteLCD        MsgType = 0x40
	MsgConfigLCD       MsgType = 0x42
	MsgUpdateLCD       MsgType = 0x43
	MsgLoadLCDTemplate MsgType = 0x44
	MsgEnableButton    MsgType = 0x46
	MsgDisableButton   MsgType = 0x47
)

// Battery and light sensor
const (
	MsgBatteryConfig              MsgType = 0x53
	MsgLowBatteryWarning          MsgType = 0x54
	MsgLowBatteryBluetoothWarning MsgType = 0x55
	MsgReadBatteryVoltage         MsgType = 0x56
	MsgReadBatteryVoltageResponse MsgType = 0x57
	MsgReadLightSense             MsgType = 0x58
	MsgReadLightSenseResponse     MsgType = 0x59
)

// Undocumented commands
const (
	MsgSetLED MsgType = 0xC0
)

// DeviceType values reported by getDeviceTypeResponse
const (
	DeviceTypeAnalog     = 1
	DeviceTypeDigital    = 2
	DeviceTypeDigitalDev = 3
	DeviceTypeAnalogDev  = 4
)

// Mode is a display mode, each with its own framebuffer.
type Mode uint8

// Display modes
const (
	ModeIdle Mode = iota
	ModeApplication
	ModeNotification

	NumModes = 3
)

// String returns the display name of the mode
func (m Mode) String() string {
	switch m {
	case ModeIdle:
		return "Idle"
	case ModeApplication:
		return "Application"
	case ModeNotification:
		return "Notification"
	default:
		return "Unknown"
	}
}

// Valid reports whether m names one of the three display modes
func (m Mode) Valid() bool {
	return m < NumModes
}

// PressType classifies a button interaction by how long it was held.
type PressType uint8

// Press types
const (
	PressImmediate PressType = iota
	PressRelease
	PressHold
	PressLongHold
)

// String returns the display name of the press type
func (p PressType) String() string {
	switch p {
	case PressImmediate:
		return "Immediate"
	case PressRelease:
		return "Press and release"
	case PressHold:
		return "Hold and release"
	case PressLongHold:
		return "Long hold and release"
	default:
		return "Unknown"
	}
}

// Button ids as wired on the digital watch. Index 4 is not populated.
const (
	ButtonA    = 0
	ButtonB    = 1
	ButtonC    = 2
	ButtonD    = 3
	ButtonE    = 5
	ButtonF    = 6
	ButtonPull = 7
)

// ButtonLabels maps button ids to the letters printed on the case
var ButtonLabels = map[uint8]string{
	ButtonA:    "A",
	ButtonB:    "B",
	ButtonC:    "C",
	ButtonD:    "D",
	ButtonE:    "E",
	ButtonF:    "F",
	ButtonPull: "P",
}

// CallbackButtonEvent is the only callback kind enableButton supports.
const CallbackButtonEvent = uint8(MsgButtonEvent)

// Display geometry
const (
	DisplayWidth  = 96
	DisplayHeight = 96
	RowBytes      = DisplayWidth / 8
)

// writeLCD option bits
const (
	lcdModeMask   = 0x07
	lcdSingleLine = 4
)

// nval option operations
const (
	NvalOpInit  = 0x01
	NvalOpRead  = 0x02
	NvalOpWrite = 0x03
)

// nvalResponse status codes (carried in the option byte)
const (
	NvalStatusOK        = 0x00
	NvalStatusUnknownID = 0x01
	NvalStatusBadSize   = 0x02
)
