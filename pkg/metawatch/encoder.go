// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package metawatch

import (
	"encoding/binary"
	"fmt"
)

// Compose builds a complete wire frame:
// [0x01][len][type][options][payload][crc lo][crc hi]
func Compose(msgType MsgType, options OptionBits, payload []byte) ([]byte, error) {
	if len(payload) > MaxPayloadSize {
		return nil, fmt.Errorf("payload too large: %d bytes (max %d)", len(payload), MaxPayloadSize)
	}

	frameLen := len(payload) + FrameOverhead
	out := make([]byte, 0, frameLen)
	out = append(out, StartByte, byte(frameLen), byte(msgType), byte(options))
	out = append(out, payload...)

	crc := CalculateCRC(out)
	out = binary.LittleEndian.AppendUint16(out, crc)

	return out, nil
}

// MustCompose is Compose for payloads known to fit.
// Panics on encoding error.
func MustCompose(msgType MsgType, options OptionBits, payload []byte) []byte {
	data, err := Compose(msgType, options, payload)
	if err != nil {
		panic(fmt.Sprintf("metawatch: compose error: %v", err))
	}
	return data
}
