// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package metawatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStream_ByteAtATime(t *testing.T) {
	s := NewStream()
	frame := NewGetDeviceType()

	for i, b := range frame[:len(frame)-1] {
		out, skipped := s.Feed([]byte{b})
		assert.Nil(t, out, "byte %d", i)
		assert.Zero(t, skipped)
	}
	out, skipped := s.Feed(frame[len(frame)-1:])
	assert.Equal(t, frame, out)
	assert.Zero(t, skipped)
	assert.Zero(t, s.Pending())
}

func TestStream_MultipleFramesOneChunk(t *testing.T) {
	s := NewStream()
	data := append(NewGetDeviceType(), literalSetRTC...)
	partial := NewSetLED(true)
	data = append(data, partial[:3]...)

	out, _ := s.Feed(data)
	assert.Equal(t, data[:6+len(literalSetRTC)], out)
	assert.Equal(t, 3, s.Pending())

	out, _ = s.Feed(partial[3:])
	assert.Equal(t, partial, out)

	frames, err := Parse(data[:6+len(literalSetRTC)])
	require.NoError(t, err)
	assert.Len(t, frames, 2)
}

func TestStream_SkipsNoise(t *testing.T) {
	s := NewStream()
	frame := NewGetRTC()

	// 0x01 0x03 looks like a header but is shorter than any frame
	data := append([]byte{0xFF, 0x00, 0x01, 0x03}, frame...)
	out, skipped := s.Feed(data)
	assert.Equal(t, frame, out)
	assert.Equal(t, 4, skipped)
}

func TestStream_NoiseOnly(t *testing.T) {
	s := NewStream()
	out, skipped := s.Feed([]byte{0x55, 0xAA, 0x00})
	assert.Nil(t, out)
	assert.Equal(t, 3, skipped)
	assert.Zero(t, s.Pending())
}

func TestStream_Reset(t *testing.T) {
	s := NewStream()
	frame := NewGetRTC()
	s.Feed(frame[:4])
	assert.Equal(t, 4, s.Pending())

	s.Reset()
	assert.Zero(t, s.Pending())

	out, _ := s.Feed(frame)
	assert.Equal(t, frame, out)
}

func TestStream_CorruptLengthThenFrames(t *testing.T) {
	s := NewStream()
	bad := NewGetRTC()
	bad[1] = 0xF0

	out, skipped := s.Feed(bad)
	assert.Nil(t, out)
	assert.Zero(t, skipped)

	// the first good frame behind the bad header releases it
	frame := NewGetDeviceType()
	out, skipped = s.Feed(frame)
	assert.Equal(t, frame, out)
	assert.Equal(t, len(bad), skipped)
	assert.Zero(t, s.Pending())

	for i := 0; i < 10; i++ {
		out, skipped = s.Feed(frame)
		assert.Equal(t, frame, out, "frame %d", i)
		assert.Zero(t, skipped, "frame %d", i)
	}
}

func TestStream_CorruptLengthOneChunk(t *testing.T) {
	s := NewStream()
	bad := NewSetLED(true)
	bad[1] = 0x40

	good := append(NewGetDeviceType(), literalSetRTC...)
	out, skipped := s.Feed(append(bad, good...))
	assert.Equal(t, good, out)
	assert.Equal(t, len(bad), skipped)

	frames, err := Parse(out)
	require.NoError(t, err)
	assert.Len(t, frames, 2)
}

func TestStream_CorruptLengthSplitFrame(t *testing.T) {
	s := NewStream()
	bad := NewGetRTC()
	bad[1] = 0xF0
	frame := NewReadLightSense()

	out, _ := s.Feed(append(bad, frame[:3]...))
	assert.Nil(t, out)

	out, skipped := s.Feed(frame[3:])
	assert.Equal(t, frame, out)
	assert.Equal(t, len(bad), skipped)
}

func TestStream_ReleasesBadChecksum(t *testing.T) {
	s := NewStream()
	bad := NewGetRTC()
	bad[len(bad)-1] ^= 0xFF
	good := NewGetDeviceType()

	data := append(bad, good...)
	out, skipped := s.Feed(data)
	assert.Equal(t, data, out)
	assert.Zero(t, skipped)

	frames, err := Parse(out)
	assert.ErrorIs(t, err, ErrInvalidChecksum)
	require.Len(t, frames, 1)
	assert.Equal(t, MsgGetDeviceType, frames[0].Type())
}

func TestStream_FrameInsidePayloadIsKept(t *testing.T) {
	s := NewStream()
	outer := MustCompose(MsgWriteLCD, 0, NewGetDeviceType())

	out, skipped := s.Feed(outer)
	assert.Equal(t, outer, out)
	assert.Zero(t, skipped)
}
