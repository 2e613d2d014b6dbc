// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package metawatch

import (
	"encoding/binary"
	"fmt"
	"time"
)

//////////////////////////////////////////////////////////////
// Real time clock
//////////////////////////////////////////////////////////////

// RTC is the setRTC / getRTCResponse layout.
//
//	0-1 year (big-endian)   3 month   4 day
//	5   weekday and hour    6 minute  7 second
//	8   12 hour clock       9 day before month   (optional)
//
// Weekday and hour share offset 5 on the real device; both fields are kept.
type RTC struct {
	Year    uint16
	Month   uint8
	Day     uint8
	Weekday uint8
	Hour    uint8
	Minute  uint8
	Second  uint8

	// HasFormat is set when the optional display-format bytes are present
	HasFormat bool
	Hours12   bool
	DayFirst  bool
}

// DecodeRTC decodes a setRTC or getRTCResponse payload
func DecodeRTC(payload []byte) (RTC, error) {
	if len(payload) < 8 {
		return RTC{}, payloadTooShort(MsgSetRTC, len(payload), 8)
	}

	r := RTC{
		Year:    binary.BigEndian.Uint16(payload[0:2]),
		Month:   payload[3],
		Day:     payload[4],
		Weekday: payload[5],
		Hour:    payload[5],
		Minute:  payload[6],
		Second:  payload[7],
	}

	if len(payload) > 8 {
		r.HasFormat = true
		r.Hours12 = payload[8] != 0
		if len(payload) > 9 {
			r.DayFirst = payload[9] != 0
		}
	}

	return r, nil
}

// Encode renders the RTC payload
func (r RTC) Encode() []byte {
	out := make([]byte, 8, 10)
	binary.BigEndian.PutUint16(out[0:2], r.Year)
	out[3] = r.Month
	out[4] = r.Day
	out[5] = r.Hour
	out[6] = r.Minute
	out[7] = r.Second
	if r.HasFormat {
		out = append(out, boolByte(r.Hours12), boolByte(r.DayFirst))
	}
	return out
}

// Time converts the fields to a time in loc. Out of range fields roll over
// the way time.Date normalises them.
func (r RTC) Time(loc *time.Location) time.Time {
	return time.Date(int(r.Year), time.Month(r.Month), int(r.Day),
		int(r.Hour), int(r.Minute), int(r.Second), 0, loc)
}

// RTCFromTime builds the RTC layout for t
func RTCFromTime(t time.Time) RTC {
	return RTC{
		Year:    uint16(t.Year()),
		Month:   uint8(t.Month()),
		Day:     uint8(t.Day()),
		Weekday: uint8(t.Weekday()),
		Hour:    uint8(t.Hour()),
		Minute:  uint8(t.Minute()),
		Second:  uint8(t.Second()),
	}
}

//////////////////////////////////////////////////////////////
// Vibration
//////////////////////////////////////////////////////////////

// Vibration is the setVibrate layout:
// [action][on ms u16 LE][off ms u16 LE][cycles]
type Vibration struct {
	Action bool
	On     time.Duration
	Off    time.Duration
	Cycles uint8
}

// DecodeVibration decodes a setVibrate payload
func DecodeVibration(payload []byte) (Vibration, error) {
	if len(payload) < 6 {
		return Vibration{}, payloadTooShort(MsgSetVibrate, len(payload), 6)
	}
	return Vibration{
		Action: payload[0] != 0,
		On:     time.Duration(binary.LittleEndian.Uint16(payload[1:3])) * time.Millisecond,
		Off:    time.Duration(binary.LittleEndian.Uint16(payload[3:5])) * time.Millisecond,
		Cycles: payload[5],
	}, nil
}

// Encode renders the setVibrate payload
func (v Vibration) Encode() []byte {
	out := make([]byte, 6)
	out[0] = boolByte(v.Action)
	binary.LittleEndian.PutUint16(out[1:3], uint16(v.On/time.Millisecond))
	binary.LittleEndian.PutUint16(out[3:5], uint16(v.Off/time.Millisecond))
	out[5] = v.Cycles
	return out
}

//////////////////////////////////////////////////////////////
// Buttons
//////////////////////////////////////////////////////////////

// ButtonKey identifies one entry of the button map
type ButtonKey struct {
	Mode   Mode
	Button uint8
	Press  PressType
}

// String renders the key for logs
func (k ButtonKey) String() string {
	label, ok := ButtonLabels[k.Button]
	if !ok {
		label = fmt.Sprintf("#%d", k.Button)
	}
	return fmt.Sprintf("%s/%s/%s", k.Mode, label, k.Press)
}

// ButtonConfig is the enableButton layout:
// [mode][button][press type][callback kind][callback data]
type ButtonConfig struct {
	ButtonKey
	CallbackKind uint8
	CallbackData uint8
}

func decodeButtonKey(t MsgType, payload []byte) (ButtonKey, error) {
	k := ButtonKey{
		Mode:   Mode(payload[0]),
		Button: payload[1],
		Press:  PressType(payload[2]),
	}
	if !k.Mode.Valid() {
		return ButtonKey{}, fmt.Errorf("%s: %w: mode %d", MessageName(t), ErrInvalidMessage, payload[0])
	}
	if k.Press > PressLongHold {
		return ButtonKey{}, fmt.Errorf("%s: %w: press type %d", MessageName(t), ErrInvalidMessage, payload[2])
	}
	return k, nil
}

// DecodeButtonConfig decodes an enableButton payload. Callback kinds other
// than buttonEvent are reported as not implemented.
func DecodeButtonConfig(payload []byte) (ButtonConfig, error) {
	if len(payload) < 5 {
		return ButtonConfig{}, payloadTooShort(MsgEnableButton, len(payload), 5)
	}
	k, err := decodeButtonKey(MsgEnableButton, payload)
	if err != nil {
		return ButtonConfig{}, err
	}
	if payload[3] != CallbackButtonEvent {
		return ButtonConfig{}, notImplemented(MsgEnableButton, fmt.Sprintf("callback kind 0x%02X", payload[3]))
	}
	return ButtonConfig{
		ButtonKey:    k,
		CallbackKind: payload[3],
		CallbackData: payload[4],
	}, nil
}

// DecodeButtonKey decodes a disableButton payload: [mode][button][press type]
func DecodeButtonKey(payload []byte) (ButtonKey, error) {
	if len(payload) < 3 {
		return ButtonKey{}, payloadTooShort(MsgDisableButton, len(payload), 3)
	}
	return decodeButtonKey(MsgDisableButton, payload)
}

// Encode renders the disableButton payload
func (k ButtonKey) Encode() []byte {
	return []byte{byte(k.Mode), k.Button, byte(k.Press)}
}

// Encode renders the enableButton payload
func (c ButtonConfig) Encode() []byte {
	return append(c.ButtonKey.Encode(), c.CallbackKind, c.CallbackData)
}

//////////////////////////////////////////////////////////////
// LCD
//////////////////////////////////////////////////////////////

// LCDRow is one packed display row: bit x of the row is pixel x, least
// significant bit first. A set bit is a white pixel.
type LCDRow struct {
	Index uint8
	Data  [RowBytes]byte
}

// White reports whether pixel x of the row is white
func (r LCDRow) White(x int) bool {
	return r.Data[x/8]&(1<<(uint(x)%8)) != 0
}

// LCDWrite is the writeLCD layout. Option bits 0-2 carry the target mode;
// bit 4 set means a single row. Each row is [index][12 bytes].
type LCDWrite struct {
	Mode Mode
	Rows []LCDRow
}

// DecodeLCDWrite decodes a writeLCD frame
func DecodeLCDWrite(options OptionBits, payload []byte) (LCDWrite, error) {
	w := LCDWrite{Mode: Mode(options.Field(0, 3))}
	if !w.Mode.Valid() {
		return LCDWrite{}, fmt.Errorf("writeLCD: %w: mode %d", ErrInvalidMessage, w.Mode)
	}

	rows := 1
	if !options.Bit(lcdSingleLine) && len(payload) > 1+RowBytes {
		rows = 2
	}
	if need := rows * (1 + RowBytes); len(payload) < need {
		return LCDWrite{}, payloadTooShort(MsgWriteLCD, len(payload), need)
	}

	for i := 0; i < rows; i++ {
		off := i * (1 + RowBytes)
		row := LCDRow{Index: payload[off]}
		if int(row.Index) >= DisplayHeight {
			return LCDWrite{}, fmt.Errorf("writeLCD: %w: row %d out of range", ErrInvalidMessage, row.Index)
		}
		copy(row.Data[:], payload[off+1:off+1+RowBytes])
		w.Rows = append(w.Rows, row)
	}

	return w, nil
}

// Options returns the option byte for the write
func (w LCDWrite) Options() OptionBits {
	o := OptionBits(w.Mode) & lcdModeMask
	return o.With(lcdSingleLine, len(w.Rows) < 2)
}

// Encode renders the writeLCD payload
func (w LCDWrite) Encode() []byte {
	out := make([]byte, 0, len(w.Rows)*(1+RowBytes))
	for _, row := range w.Rows {
		out = append(out, row.Index)
		out = append(out, row.Data[:]...)
	}
	return out
}

// DecodeUpdateLCD returns the mode selected by an updateLCD option byte
func DecodeUpdateLCD(options OptionBits) (Mode, error) {
	mode := Mode(options.Field(0, 3))
	if !mode.Valid() {
		return 0, fmt.Errorf("updateLCD: %w: mode %d", ErrInvalidMessage, mode)
	}
	return mode, nil
}

//////////////////////////////////////////////////////////////
// NVAL
//////////////////////////////////////////////////////////////

// NvalOp is the nval layout. Option bits 0-1 select the operation; the
// payload is [id u16 LE][size][value, size bytes LE].
type NvalOp struct {
	Op    uint8
	ID    uint16
	Size  uint8
	Value []byte
}

// DecodeNvalOp decodes an nval frame
func DecodeNvalOp(options OptionBits, payload []byte) (NvalOp, error) {
	op := NvalOp{Op: options.Field(0, 2)}
	if op.Op == NvalOpInit {
		return op, nil
	}
	if len(payload) < 2 {
		return NvalOp{}, payloadTooShort(MsgNval, len(payload), 2)
	}
	op.ID = binary.LittleEndian.Uint16(payload[0:2])
	if len(payload) > 2 {
		op.Size = payload[2]
	}

	switch op.Op {
	case NvalOpRead:
	case NvalOpWrite:
		if len(payload) < 3+int(op.Size) {
			return NvalOp{}, payloadTooShort(MsgNval, len(payload), 3+int(op.Size))
		}
		op.Value = append([]byte(nil), payload[3:3+int(op.Size)]...)
	default:
		return NvalOp{}, notImplemented(MsgNval, fmt.Sprintf("operation %d", op.Op))
	}

	return op, nil
}

// Encode renders the nval payload
func (n NvalOp) Encode() []byte {
	if n.Op == NvalOpInit {
		return nil
	}
	out := binary.LittleEndian.AppendUint16(nil, n.ID)
	out = append(out, n.Size)
	return append(out, n.Value...)
}

// Uint returns the little-endian value carried by the operation
func (n NvalOp) Uint() int {
	return decodeUint(n.Value)
}

//////////////////////////////////////////////////////////////
// Battery and light sensor
//////////////////////////////////////////////////////////////

// BatteryVoltage is the readBatteryVoltageResponse layout:
// [power good][charging][mV u16 LE][average mV u16 LE]
type BatteryVoltage struct {
	PowerGood  bool
	Charging   bool
	Millivolts uint16
	Average    uint16
}

// DecodeBatteryVoltage decodes a readBatteryVoltageResponse payload
func DecodeBatteryVoltage(payload []byte) (BatteryVoltage, error) {
	if len(payload) < 6 {
		return BatteryVoltage{}, payloadTooShort(MsgReadBatteryVoltageResponse, len(payload), 6)
	}
	return BatteryVoltage{
		PowerGood:  payload[0] != 0,
		Charging:   payload[1] != 0,
		Millivolts: binary.LittleEndian.Uint16(payload[2:4]),
		Average:    binary.LittleEndian.Uint16(payload[4:6]),
	}, nil
}

// Encode renders the readBatteryVoltageResponse payload
func (b BatteryVoltage) Encode() []byte {
	out := []byte{boolByte(b.PowerGood), boolByte(b.Charging)}
	out = binary.LittleEndian.AppendUint16(out, b.Millivolts)
	return binary.LittleEndian.AppendUint16(out, b.Average)
}

//////////////////////////////////////////////////////////////
// Helpers
//////////////////////////////////////////////////////////////

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

// decodeUint reads up to four little-endian bytes
func decodeUint(b []byte) int {
	v := 0
	for i := len(b) - 1; i >= 0; i-- {
		v = v<<8 | int(b[i])
	}
	return v
}

// encodeUint writes v as size little-endian bytes
func encodeUint(v, size int) []byte {
	out := make([]byte, size)
	for i := range out {
		out[i] = byte(v >> (8 * i))
	}
	return out
}
