// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package metawatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// literalSetRTC is a setRTC frame captured from a phone
var literalSetRTC = []byte{
	0x01, 0x10, 0x26, 0x00, 0x03, 0xF2, 0x0C, 0x05,
	0x02, 0x04, 0x2E, 0x3C, 0x01, 0x01, 0xFE, 0x49,
}

func TestCalculateCRC_Empty(t *testing.T) {
	assert.Equal(t, uint16(crcInitial), CalculateCRC([]byte{}))
}

func TestCalculateCRC_KnownValues(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected uint16
	}{
		{
			name:     "ASCII '123456789'",
			data:     []byte("123456789"),
			expected: crcCheck,
		},
		{
			name:     "captured setRTC frame",
			data:     literalSetRTC[:len(literalSetRTC)-2],
			expected: 0x49FE,
		},
		{
			name:     "getDeviceType frame",
			data:     []byte{0x01, 0x06, 0x01, 0x00},
			expected: 0xD90B,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CalculateCRC(tt.data), "CRC mismatch")
		})
	}
}

func TestCalculateCRC_Deterministic(t *testing.T) {
	data := []byte{0x01, 0x07, 0x34, 0x00, 0x42}
	assert.Equal(t, CalculateCRC(data), CalculateCRC(data))
}

func TestCRCEngine_Incremental(t *testing.T) {
	body := literalSetRTC[:len(literalSetRTC)-2]

	e := NewCRCEngine()
	for i := 0; i < len(body); i += 3 {
		end := min(i+3, len(body))
		_, _ = e.Write(body[i:end])
	}
	assert.Equal(t, CalculateCRC(body), e.Sum16())

	e.Reset()
	assert.Equal(t, uint16(crcInitial), e.Sum16())
}
