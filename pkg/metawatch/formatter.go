// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package metawatch

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// FormatFrame formats a frame into a human-readable string
func FormatFrame(f *Frame) string {
	timestamp := f.Timestamp().Format("15:04:05.000")

	result := fmt.Sprintf("[%s] %s (0x%02X) opts=%s len=%d\n",
		timestamp, f.Name(), uint8(f.Type()), f.Options(), f.Length())

	return result + FormatPayload(f.Type(), f.Options(), f.Payload())
}

// FormatPayload decodes the payload for known layouts and falls back to a
// hex dump. Layout errors are shown inline rather than returned.
func FormatPayload(t MsgType, options OptionBits, payload []byte) string {
	switch t {
	case MsgGetDeviceType, MsgGetRTC, MsgReadBatteryVoltage, MsgReadLightSense:
		return "  (no payload)\n"

	case MsgGetDeviceTypeResponse:
		if len(payload) >= 1 {
			return fmt.Sprintf("  Device type: %s (%d)\n", formatDeviceType(payload[0]), payload[0])
		}

	case MsgSetRTC, MsgGetRTCResponse:
		r, err := DecodeRTC(payload)
		if err != nil {
			return formatLayoutError(err, payload)
		}
		result := fmt.Sprintf("  Date: %04d-%02d-%02d, Time: %02d:%02d:%02d, Weekday: %d\n",
			r.Year, r.Month, r.Day, r.Hour, r.Minute, r.Second, r.Weekday)
		if r.HasFormat {
			result += fmt.Sprintf("  12h clock: %v, Day first: %v\n", r.Hours12, r.DayFirst)
		}
		return result

	case MsgSetLED:
		return fmt.Sprintf("  LED: %s\n", onOff(options.Bit(0)))

	case MsgSetVibrate:
		v, err := DecodeVibration(payload)
		if err != nil {
			return formatLayoutError(err, payload)
		}
		return fmt.Sprintf("  Vibrate: %s, On: %v, Off: %v, Cycles: %d\n",
			onOff(v.Action), v.On, v.Off, v.Cycles)

	case MsgWriteLCD:
		w, err := DecodeLCDWrite(options, payload)
		if err != nil {
			return formatLayoutError(err, payload)
		}
		result := fmt.Sprintf("  Mode: %s, Rows: %d\n", w.Mode, len(w.Rows))
		for _, row := range w.Rows {
			result += fmt.Sprintf("    %2d |%s|\n", row.Index, formatRow(row))
		}
		return result

	case MsgUpdateLCD:
		mode, err := DecodeUpdateLCD(options)
		if err != nil {
			return formatLayoutError(err, payload)
		}
		return fmt.Sprintf("  Activate mode: %s\n", mode)

	case MsgEnableButton:
		c, err := DecodeButtonConfig(payload)
		if err != nil {
			return formatLayoutError(err, payload)
		}
		return fmt.Sprintf("  Button: %s, Callback: 0x%02X, Data: 0x%02X\n", c.ButtonKey, c.CallbackKind, c.CallbackData)

	case MsgDisableButton:
		k, err := DecodeButtonKey(payload)
		if err != nil {
			return formatLayoutError(err, payload)
		}
		return fmt.Sprintf("  Button: %s\n", k)

	case MsgButtonEvent:
		if len(payload) >= 1 {
			return fmt.Sprintf("  Callback data: 0x%02X\n", payload[0])
		}

	case MsgNval:
		op, err := DecodeNvalOp(options, payload)
		if err != nil {
			return formatLayoutError(err, payload)
		}
		return fmt.Sprintf("  %s %s\n", formatNvalOp(op.Op), formatNvalID(op.ID)) + formatNvalValue(op)

	case MsgNvalResponse:
		if len(payload) >= 2 {
			id := binary.LittleEndian.Uint16(payload[0:2])
			result := fmt.Sprintf("  Status: %d, Register: %s\n", uint8(options), formatNvalID(id))
			if len(payload) > 3 {
				result += fmt.Sprintf("  Value: %d\n", decodeUint(payload[3:]))
			}
			return result
		}

	case MsgReadBatteryVoltageResponse:
		b, err := DecodeBatteryVoltage(payload)
		if err != nil {
			return formatLayoutError(err, payload)
		}
		return fmt.Sprintf("  Battery: %d mV (avg %d mV), Power good: %v, Charging: %v\n",
			b.Millivolts, b.Average, b.PowerGood, b.Charging)

	case MsgReadLightSenseResponse:
		if len(payload) >= 2 {
			return fmt.Sprintf("  Light level: %d\n", binary.LittleEndian.Uint16(payload))
		}
	}

	if len(payload) == 0 {
		return "  (no payload)\n"
	}
	return "  Payload: " + HexDump(payload) + "\n"
}

// HexDump renders bytes as space separated hex, 16 per line
func HexDump(data []byte) string {
	var s strings.Builder
	for i, b := range data {
		if i > 0 && i%16 == 0 {
			s.WriteString("\n           ")
		} else if i > 0 {
			s.WriteByte(' ')
		}
		fmt.Fprintf(&s, "%02X", b)
	}
	return s.String()
}

func formatLayoutError(err error, payload []byte) string {
	return fmt.Sprintf("  Layout error: %v\n  Payload: %s\n", err, HexDump(payload))
}

func formatRow(row LCDRow) string {
	var s strings.Builder
	for x := 0; x < DisplayWidth; x += 2 {
		// two pixels per character keeps rows inside 80 columns
		switch {
		case !row.White(x) && !row.White(x+1):
			s.WriteRune('█')
		case !row.White(x):
			s.WriteRune('▌')
		case !row.White(x + 1):
			s.WriteRune('▐')
		default:
			s.WriteByte(' ')
		}
	}
	return s.String()
}

func formatDeviceType(t uint8) string {
	switch t {
	case DeviceTypeAnalog:
		return "Analog"
	case DeviceTypeDigital:
		return "Digital"
	case DeviceTypeDigitalDev:
		return "Digital (dev board)"
	case DeviceTypeAnalogDev:
		return "Analog (dev board)"
	default:
		return "Unknown"
	}
}

func formatNvalOp(op uint8) string {
	switch op {
	case NvalOpInit:
		return "Init"
	case NvalOpRead:
		return "Read"
	case NvalOpWrite:
		return "Write"
	default:
		return fmt.Sprintf("Op %d", op)
	}
}

func formatNvalID(id uint16) string {
	if r, ok := LookupNval(id); ok {
		return fmt.Sprintf("%s (0x%04X)", r.Name, id)
	}
	return fmt.Sprintf("0x%04X", id)
}

func formatNvalValue(op NvalOp) string {
	if op.Op != NvalOpWrite {
		return ""
	}
	if r, ok := LookupNval(op.ID); ok {
		return fmt.Sprintf("  Value: %s\n", r.FormatValue(op.Uint()))
	}
	return fmt.Sprintf("  Value: %d\n", op.Uint())
}

func onOff(b bool) string {
	if b {
		return "On"
	}
	return "Off"
}
