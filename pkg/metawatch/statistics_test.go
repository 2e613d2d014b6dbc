// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package metawatch

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatistics_Classification(t *testing.T) {
	s := NewStatistics()

	s.RecordFrame(nil)
	s.RecordFrame(notImplemented(0x99, ""))
	s.RecordFrame(payloadTooShort(MsgSetRTC, 1, 8))
	s.RecordFrame(errors.New("handler failed"))
	s.RecordParseError(errors.Join(
		&ChecksumError{Want: 1, Got: 2},
		ErrInvalidMessage,
	))
	s.RecordOutbound()
	s.RecordSkipped(3)

	assert.Equal(t, uint64(6), s.TotalFrames)
	assert.Equal(t, uint64(1), s.ValidFrames)
	assert.Equal(t, uint64(1), s.NotImplemented)
	assert.Equal(t, uint64(2), s.InvalidMessages)
	assert.Equal(t, uint64(1), s.ChecksumErrors)
	assert.Equal(t, uint64(1), s.HandlerErrors)
	assert.Equal(t, uint64(1), s.OutboundFrames)
	assert.Equal(t, uint64(3), s.SkippedBytes)
	assert.Equal(t, uint64(5), s.Errors())

	out := s.String()
	assert.True(t, strings.Contains(out, "Total Frames:"))
	assert.True(t, strings.Contains(out, "Checksum:"))

	s.Reset()
	assert.Zero(t, s.TotalFrames)
	assert.Zero(t, s.Errors())
}

func TestStatistics_ParseErrorNil(t *testing.T) {
	s := NewStatistics()
	s.RecordParseError(nil)
	assert.Zero(t, s.TotalFrames)
}
