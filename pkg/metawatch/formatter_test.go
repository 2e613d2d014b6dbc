// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package metawatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func formatOne(t *testing.T, data []byte) string {
	t.Helper()
	frames, err := Parse(data)
	require.NoError(t, err)
	require.Len(t, frames, 1)
	return FormatFrame(frames[0])
}

func TestFormatFrame(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		contains []string
	}{
		{
			name:     "setRTC",
			data:     literalSetRTC,
			contains: []string{"setRTC (0x26)", "len=16", "Date: 1010-05-02", "Day first: true"},
		},
		{
			name:     "setLED",
			data:     NewSetLED(true),
			contains: []string{"setLED (0xC0)", "opts=0b00000001", "LED: On"},
		},
		{
			name:     "nval write",
			data:     NewNvalWrite(NvalTimeFormat, TimeFormat24h, 1),
			contains: []string{"Write Time Format (0x2009)", "Value: 24hrs"},
		},
		{
			name:     "button event",
			data:     NewButtonEvent(0x42),
			contains: []string{"buttonEvent", "Callback data: 0x42"},
		},
		{
			name:     "battery",
			data:     NewBatteryVoltageResponse(BatteryVoltage{PowerGood: true, Millivolts: 4000, Average: 3990}),
			contains: []string{"Battery: 4000 mV (avg 3990 mV)"},
		},
		{
			name:     "undocumented",
			data:     MustCompose(0x99, 0, []byte{0xDE, 0xAD}),
			contains: []string{Undocumented, "Payload: DE AD"},
		},
		{
			name:     "layout error",
			data:     MustCompose(MsgSetVibrate, 0, []byte{0x01}),
			contains: []string{"Layout error", "payload too short"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := formatOne(t, tt.data)
			for _, s := range tt.contains {
				assert.Contains(t, out, s)
			}
		})
	}
}

func TestFormatFrame_WriteLCD(t *testing.T) {
	w := LCDWrite{Mode: ModeIdle, Rows: []LCDRow{{Index: 7}}}
	for i := range w.Rows[0].Data {
		w.Rows[0].Data[i] = 0xFF
	}
	out := formatOne(t, NewWriteLCD(w))
	assert.Contains(t, out, "Mode: Idle, Rows: 1")
	assert.Contains(t, out, "     7 |")
}

func TestHexDump(t *testing.T) {
	assert.Equal(t, "", HexDump(nil))
	assert.Equal(t, "01 FF", HexDump([]byte{0x01, 0xFF}))

	long := make([]byte, 17)
	assert.Contains(t, HexDump(long), "\n")
}
