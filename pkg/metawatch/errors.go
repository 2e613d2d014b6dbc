// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package metawatch

import (
	"errors"
	"fmt"
)

// Protocol errors. Both ErrInvalidMessage and ErrInvalidChecksum match
// ErrProtocol with errors.Is.
var (
	ErrProtocol        = errors.New("protocol error")
	ErrInvalidMessage  = fmt.Errorf("%w: invalid message", ErrProtocol)
	ErrInvalidChecksum = fmt.Errorf("%w: invalid checksum", ErrProtocol)
	ErrPayloadLength   = fmt.Errorf("%w: payload too short", ErrInvalidMessage)
)

// ErrNotImplemented matches every *NotImplementedError. It is not a
// protocol error: unknown traffic is expected and the stream carries on.
var ErrNotImplemented = errors.New("not implemented")

// ChecksumError reports a frame whose trailing checksum does not match
type ChecksumError struct {
	Want uint16 // calculated over the frame
	Got  uint16 // carried by the frame
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("%v: expected 0x%04X, got 0x%04X", ErrInvalidChecksum, e.Want, e.Got)
}

func (e *ChecksumError) Unwrap() error {
	return ErrInvalidChecksum
}

// NotImplementedError reports a message type, or a variant of one, that the
// simulator does not handle
type NotImplementedError struct {
	Type   MsgType
	Name   string
	Detail string
}

func (e *NotImplementedError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("message type %s (0x%02X) not implemented: %s", e.Name, uint8(e.Type), e.Detail)
	}
	return fmt.Sprintf("message type %s (0x%02X) not implemented", e.Name, uint8(e.Type))
}

func (e *NotImplementedError) Is(target error) bool {
	return target == ErrNotImplemented
}

func notImplemented(t MsgType, detail string) error {
	return &NotImplementedError{Type: t, Name: MessageName(t), Detail: detail}
}

func payloadTooShort(t MsgType, got, want int) error {
	return fmt.Errorf("%s: %w (%d bytes, need %d)", MessageName(t), ErrPayloadLength, got, want)
}
