// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package metawatch

import (
	"fmt"
	"time"
)

// OptionBits is the per-frame option byte. Its meaning depends on the
// message type: some handlers read single flags, others small sub-fields.
type OptionBits uint8

// Bit reports whether bit n (0 = least significant) is set
func (o OptionBits) Bit(n uint) bool {
	return o&(1<<n) != 0
}

// Field extracts width bits starting at bit shift
func (o OptionBits) Field(shift, width uint) uint8 {
	return uint8(o>>shift) & uint8(1<<width-1)
}

// With returns o with bit n set or cleared
func (o OptionBits) With(n uint, set bool) OptionBits {
	if set {
		return o | 1<<n
	}
	return o &^ (1 << n)
}

// String renders the option byte as binary
func (o OptionBits) String() string {
	return fmt.Sprintf("0b%08b", uint8(o))
}

// Frame is one decoded protocol message
type Frame struct {
	msgType   MsgType
	options   OptionBits
	payload   []byte
	crc       uint16
	timestamp time.Time
}

// NewFrame builds a frame for encoding. The checksum is filled in by Encode.
func NewFrame(msgType MsgType, options OptionBits, payload []byte) *Frame {
	return &Frame{
		msgType:   msgType,
		options:   options,
		payload:   payload,
		timestamp: time.Now(),
	}
}

// Type returns the message type
func (f *Frame) Type() MsgType {
	return f.msgType
}

// Name returns the catalog name of the message type
func (f *Frame) Name() string {
	return MessageName(f.msgType)
}

// Options returns the option byte
func (f *Frame) Options() OptionBits {
	return f.options
}

// Payload returns the payload bytes
func (f *Frame) Payload() []byte {
	return f.payload
}

// Length returns the total wire length of the frame
func (f *Frame) Length() int {
	return len(f.payload) + FrameOverhead
}

// CRC returns the checksum carried by a parsed frame
func (f *Frame) CRC() uint16 {
	return f.crc
}

// Timestamp returns when the frame was parsed or built
func (f *Frame) Timestamp() time.Time {
	return f.timestamp
}

// Encode composes the frame back to wire format
func (f *Frame) Encode() ([]byte, error) {
	return Compose(f.msgType, f.options, f.payload)
}
