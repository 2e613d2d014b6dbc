// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package metawatch

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"
)

// Parse decodes every frame in buf.
//
// A buffer longer than its declared length is treated as frames delivered
// back to back: if the byte after the first frame is another start byte the
// remainder is parsed on its own. Frames that decode are returned in wire
// order even when a later one fails; the failures are joined into err.
func Parse(buf []byte) ([]*Frame, error) {
	if len(buf) == 0 {
		return nil, fmt.Errorf("%w: empty buffer", ErrInvalidMessage)
	}
	if buf[0] != StartByte {
		return nil, fmt.Errorf("%w: doesn't start with 0x%02X (got 0x%02X)", ErrInvalidMessage, StartByte, buf[0])
	}
	if len(buf) < 2 {
		return nil, fmt.Errorf("%w: length mismatch (no length byte)", ErrInvalidMessage)
	}

	declared := int(buf[1])

	// A declared length below 2 does not cover its own header, so there is
	// no frame boundary to split at.
	var rest []*Frame
	var restErr error
	if declared >= 2 && len(buf) > declared && buf[declared] == StartByte {
		rest, restErr = Parse(buf[declared:])
		buf = buf[:declared]
	}

	frame, err := decodeFrame(buf)
	if err != nil {
		return rest, errors.Join(err, restErr)
	}

	return append([]*Frame{frame}, rest...), restErr
}

// decodeFrame decodes a buffer holding exactly one frame
func decodeFrame(buf []byte) (*Frame, error) {
	if len(buf) < 2 {
		return nil, fmt.Errorf("%w: length mismatch (no length byte)", ErrInvalidMessage)
	}
	declared := int(buf[1])
	if len(buf) != declared {
		return nil, fmt.Errorf("%w: length mismatch (declared %d, got %d)", ErrInvalidMessage, declared, len(buf))
	}
	if declared < FrameOverhead {
		return nil, fmt.Errorf("%w: length %d shorter than frame overhead", ErrInvalidMessage, declared)
	}

	body := buf[:declared-2]
	got := binary.LittleEndian.Uint16(buf[declared-2:])
	want := CalculateCRC(body)
	if got != want {
		return nil, &ChecksumError{Want: want, Got: got}
	}

	payload := make([]byte, declared-FrameOverhead)
	copy(payload, buf[4:declared-2])

	return &Frame{
		msgType:   MsgType(buf[2]),
		options:   OptionBits(buf[3]),
		payload:   payload,
		crc:       got,
		timestamp: time.Now(),
	}, nil
}
