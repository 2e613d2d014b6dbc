// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package metawatch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================
// RTC Tests
// ============================================================

func TestDecodeRTC_Captured(t *testing.T) {
	r, err := DecodeRTC(literalSetRTC[4:14])
	require.NoError(t, err)

	assert.Equal(t, uint16(1010), r.Year)
	assert.Equal(t, uint8(5), r.Month)
	assert.Equal(t, uint8(2), r.Day)
	assert.Equal(t, uint8(4), r.Weekday)
	assert.Equal(t, uint8(4), r.Hour)
	assert.Equal(t, uint8(46), r.Minute)
	assert.Equal(t, uint8(60), r.Second)
	assert.True(t, r.HasFormat)
	assert.True(t, r.Hours12)
	assert.True(t, r.DayFirst)

	// second 60 rolls into the next minute
	want := time.Date(1010, time.May, 2, 4, 47, 0, 0, time.UTC)
	assert.True(t, want.Equal(r.Time(time.UTC)), "got %v", r.Time(time.UTC))
}

func TestDecodeRTC_WithoutFormat(t *testing.T) {
	r, err := DecodeRTC(literalSetRTC[4:12])
	require.NoError(t, err)
	assert.False(t, r.HasFormat)
	assert.False(t, r.Hours12)
	assert.False(t, r.DayFirst)

	r, err = DecodeRTC(literalSetRTC[4:13])
	require.NoError(t, err)
	assert.True(t, r.HasFormat)
	assert.True(t, r.Hours12)
	assert.False(t, r.DayFirst)
}

func TestDecodeRTC_Short(t *testing.T) {
	_, err := DecodeRTC(make([]byte, 7))
	assert.ErrorIs(t, err, ErrPayloadLength)
	assert.ErrorIs(t, err, ErrInvalidMessage)
}

func TestRTC_EncodeRoundTrip(t *testing.T) {
	now := time.Date(2024, time.February, 29, 23, 59, 58, 0, time.UTC)
	r := RTCFromTime(now)
	r.HasFormat = true
	r.DayFirst = true

	got, err := DecodeRTC(r.Encode())
	require.NoError(t, err)
	assert.Equal(t, r.Year, got.Year)
	assert.Equal(t, r.Month, got.Month)
	assert.Equal(t, r.Day, got.Day)
	assert.Equal(t, r.Hour, got.Hour)
	assert.Equal(t, r.Minute, got.Minute)
	assert.Equal(t, r.Second, got.Second)
	assert.False(t, got.Hours12)
	assert.True(t, got.DayFirst)
	assert.True(t, now.Equal(got.Time(time.UTC)))
}

// ============================================================
// Vibration Tests
// ============================================================

func TestVibration(t *testing.T) {
	v := Vibration{Action: true, On: 100 * time.Millisecond, Off: 200 * time.Millisecond, Cycles: 3}
	data := v.Encode()
	assert.Equal(t, []byte{0x01, 0x64, 0x00, 0xC8, 0x00, 0x03}, data)

	got, err := DecodeVibration(data)
	require.NoError(t, err)
	assert.Equal(t, v, got)

	_, err = DecodeVibration(data[:5])
	assert.ErrorIs(t, err, ErrPayloadLength)
}

// ============================================================
// Button Tests
// ============================================================

func TestDecodeButtonConfig(t *testing.T) {
	c, err := DecodeButtonConfig([]byte{0x01, ButtonB, 0x02, CallbackButtonEvent, 0x99})
	require.NoError(t, err)
	assert.Equal(t, ButtonKey{Mode: ModeApplication, Button: ButtonB, Press: PressHold}, c.ButtonKey)
	assert.Equal(t, uint8(0x99), c.CallbackData)
	assert.Equal(t, []byte{0x01, ButtonB, 0x02, CallbackButtonEvent, 0x99}, c.Encode())
}

func TestDecodeButtonConfig_Errors(t *testing.T) {
	_, err := DecodeButtonConfig([]byte{0x00, ButtonA, 0x00, 0x35, 0x01})
	assert.ErrorIs(t, err, ErrNotImplemented)

	_, err = DecodeButtonConfig([]byte{0x05, ButtonA, 0x00, CallbackButtonEvent, 0x01})
	assert.ErrorIs(t, err, ErrInvalidMessage)

	_, err = DecodeButtonConfig([]byte{0x00, ButtonA, 0x09, CallbackButtonEvent, 0x01})
	assert.ErrorIs(t, err, ErrInvalidMessage)

	_, err = DecodeButtonConfig([]byte{0x00, ButtonA, 0x00, CallbackButtonEvent})
	assert.ErrorIs(t, err, ErrPayloadLength)
}

func TestDecodeButtonKey(t *testing.T) {
	k, err := DecodeButtonKey([]byte{0x02, ButtonPull, 0x03})
	require.NoError(t, err)
	assert.Equal(t, ButtonKey{Mode: ModeNotification, Button: ButtonPull, Press: PressLongHold}, k)
	assert.Equal(t, "Notification/P/Long hold and release", k.String())
}

// ============================================================
// LCD Tests
// ============================================================

func lcdPayload(rows ...uint8) []byte {
	var out []byte
	for _, r := range rows {
		out = append(out, r)
		row := make([]byte, RowBytes)
		row[0] = 0x01 // pixel 0 white
		out = append(out, row...)
	}
	return out
}

func TestDecodeLCDWrite_TwoRows(t *testing.T) {
	w, err := DecodeLCDWrite(0x01, lcdPayload(10, 11))
	require.NoError(t, err)
	assert.Equal(t, ModeApplication, w.Mode)
	require.Len(t, w.Rows, 2)
	assert.Equal(t, uint8(10), w.Rows[0].Index)
	assert.Equal(t, uint8(11), w.Rows[1].Index)
	assert.True(t, w.Rows[0].White(0))
	assert.False(t, w.Rows[0].White(1))
	assert.Equal(t, OptionBits(0x01), w.Options())
}

func TestDecodeLCDWrite_SingleRowFlag(t *testing.T) {
	w, err := DecodeLCDWrite(0x10|0x02, lcdPayload(10, 11))
	require.NoError(t, err)
	assert.Equal(t, ModeNotification, w.Mode)
	require.Len(t, w.Rows, 1)
	assert.Equal(t, uint8(10), w.Rows[0].Index)
	assert.Equal(t, OptionBits(0x12), w.Options())
	assert.Equal(t, lcdPayload(10), w.Encode())
}

func TestDecodeLCDWrite_ShortPayloadIsOneRow(t *testing.T) {
	w, err := DecodeLCDWrite(0x00, lcdPayload(95))
	require.NoError(t, err)
	require.Len(t, w.Rows, 1)
	assert.Equal(t, uint8(95), w.Rows[0].Index)
}

func TestDecodeLCDWrite_Errors(t *testing.T) {
	_, err := DecodeLCDWrite(0x00, lcdPayload(96))
	assert.ErrorIs(t, err, ErrInvalidMessage)

	_, err = DecodeLCDWrite(0x03, lcdPayload(0))
	assert.ErrorIs(t, err, ErrInvalidMessage)

	_, err = DecodeLCDWrite(0x00, lcdPayload(0)[:5])
	assert.ErrorIs(t, err, ErrPayloadLength)

	// 20 bytes with the single row flag clear asks for a second row
	_, err = DecodeLCDWrite(0x00, lcdPayload(0, 1)[:20])
	assert.ErrorIs(t, err, ErrPayloadLength)
}

func TestDecodeUpdateLCD(t *testing.T) {
	mode, err := DecodeUpdateLCD(0x02)
	require.NoError(t, err)
	assert.Equal(t, ModeNotification, mode)

	// only the low three bits select the mode
	mode, err = DecodeUpdateLCD(0x80)
	require.NoError(t, err)
	assert.Equal(t, ModeIdle, mode)

	_, err = DecodeUpdateLCD(0x07)
	assert.ErrorIs(t, err, ErrInvalidMessage)
}

// ============================================================
// NVAL Tests
// ============================================================

func TestDecodeNvalOp(t *testing.T) {
	op, err := DecodeNvalOp(NvalOpInit, nil)
	require.NoError(t, err)
	assert.Equal(t, uint8(NvalOpInit), op.Op)

	op, err = DecodeNvalOp(NvalOpRead, []byte{0x09, 0x20, 0x01})
	require.NoError(t, err)
	assert.Equal(t, NvalTimeFormat, op.ID)
	assert.Equal(t, uint8(1), op.Size)
	assert.Nil(t, op.Value)

	op, err = DecodeNvalOp(NvalOpWrite, []byte{0x05, 0x00, 0x02, 0x2C, 0x01})
	require.NoError(t, err)
	assert.Equal(t, NvalApplicationTimeout, op.ID)
	assert.Equal(t, 300, op.Uint())
	assert.Equal(t, []byte{0x05, 0x00, 0x02, 0x2C, 0x01}, op.Encode())
}

func TestDecodeNvalOp_Errors(t *testing.T) {
	_, err := DecodeNvalOp(0, []byte{0x09, 0x20, 0x01})
	assert.ErrorIs(t, err, ErrNotImplemented)

	_, err = DecodeNvalOp(NvalOpRead, []byte{0x09})
	assert.ErrorIs(t, err, ErrPayloadLength)

	_, err = DecodeNvalOp(NvalOpWrite, []byte{0x05, 0x00, 0x02, 0x2C})
	assert.ErrorIs(t, err, ErrPayloadLength)
}

func TestNvalRegisters(t *testing.T) {
	regs := NvalRegisters()
	require.NotEmpty(t, regs)
	for i := 1; i < len(regs); i++ {
		assert.Less(t, regs[i-1].ID, regs[i].ID)
	}

	r, ok := LookupNval(NvalTimeFormat)
	require.True(t, ok)
	assert.Equal(t, "24hrs", r.FormatValue(TimeFormat24h))
	assert.Equal(t, "12hrs", r.FormatValue(r.Default))

	r, ok = LookupNval(NvalApplicationTimeout)
	require.True(t, ok)
	assert.Equal(t, 600, r.Default)
	assert.Equal(t, "42", r.FormatValue(42))

	_, ok = LookupNval(0x7777)
	assert.False(t, ok)
}

// ============================================================
// Battery Tests
// ============================================================

func TestBatteryVoltage(t *testing.T) {
	b := BatteryVoltage{PowerGood: true, Charging: false, Millivolts: 3950, Average: 3940}
	data := b.Encode()
	assert.Equal(t, []byte{0x01, 0x00, 0x6E, 0x0F, 0x64, 0x0F}, data)

	got, err := DecodeBatteryVoltage(data)
	require.NoError(t, err)
	assert.Equal(t, b, got)
}
