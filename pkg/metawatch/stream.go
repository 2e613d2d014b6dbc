// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package metawatch

import (
	"bytes"
	"encoding/binary"

	"github.com/sirupsen/logrus"
)

// Stream reassembles frames from a byte stream that gives no framing
// guarantees. Chunks go in through Feed; complete frames come out as one
// contiguous buffer suitable for Parse.
//
// A header whose length byte was corrupted can claim more bytes than the
// host will ever send. Once a complete frame with a good checksum starts
// inside the span such a header claims, the header is dropped and the
// stream resynchronises on the frame behind it.
type Stream struct {
	buf []byte
	log logrus.FieldLogger
}

// NewStream creates an empty stream reassembler
func NewStream() *Stream {
	return &Stream{
		buf: make([]byte, 0, MaxFrameSize*2),
		log: discardLogger(),
	}
}

// SetLogger sets where skip and resync decisions are logged. A nil logger
// discards them.
func (s *Stream) SetLogger(log logrus.FieldLogger) {
	if log == nil {
		log = discardLogger()
	}
	s.log = log
}

// Reset drops any partially received frame
func (s *Stream) Reset() {
	s.buf = s.buf[:0]
}

// Pending returns the number of buffered bytes not yet released
func (s *Stream) Pending() int {
	return len(s.buf)
}

// Feed appends chunk and returns every complete frame now at the head of the
// buffer, back to back, or nil if no frame is complete yet. skipped counts
// bytes discarded while resynchronising.
//
// A complete frame with a bad checksum is still released so that Parse
// reports it, unless a good frame starts inside it.
func (s *Stream) Feed(chunk []byte) (frames []byte, skipped int) {
	s.buf = append(s.buf, chunk...)

	for {
		skipped += s.sync()
		if len(s.buf) < 2 {
			break
		}

		l := int(s.buf[1])
		if s.validAt(0) {
			frames = append(frames, s.buf[:l]...)
			s.drop(l)
			continue
		}
		if j := s.frameWithin(1, min(l, len(s.buf))); j > 0 {
			s.log.WithFields(logrus.Fields{
				"length": l,
				"offset": j,
			}).Debug("dropping corrupt header, frame found inside it")
			s.drop(1)
			skipped++
			continue
		}
		if l > len(s.buf) {
			break
		}

		frames = append(frames, s.buf[:l]...)
		s.drop(l)
	}

	if skipped > 0 {
		s.log.WithField("skipped", skipped).Debug("resynchronised")
	}
	return frames, skipped
}

// sync discards bytes until the buffer starts with something that can be a
// frame header
func (s *Stream) sync() int {
	skipped := 0
	for len(s.buf) > 0 {
		i := bytes.IndexByte(s.buf, StartByte)
		if i < 0 {
			skipped += len(s.buf)
			s.buf = s.buf[:0]
			return skipped
		}
		if i > 0 {
			skipped += i
			s.drop(i)
		}
		if len(s.buf) < 2 || int(s.buf[1]) >= FrameOverhead {
			return skipped
		}
		// A start byte followed by an impossible length is noise
		skipped++
		s.drop(1)
	}
	return skipped
}

// frameWithin returns the offset of the first complete, checksum-valid frame
// starting in buf[from:to], or 0 if there is none
func (s *Stream) frameWithin(from, to int) int {
	for j := from; j < to; j++ {
		k := bytes.IndexByte(s.buf[j:to], StartByte)
		if k < 0 {
			return 0
		}
		j += k
		if s.validAt(j) {
			return j
		}
	}
	return 0
}

// validAt reports whether a whole frame with a matching checksum is
// buffered at offset i
func (s *Stream) validAt(i int) bool {
	if i+1 >= len(s.buf) || s.buf[i] != StartByte {
		return false
	}
	l := int(s.buf[i+1])
	if l < FrameOverhead || i+l > len(s.buf) {
		return false
	}
	frame := s.buf[i : i+l]
	return CalculateCRC(frame[:l-2]) == binary.LittleEndian.Uint16(frame[l-2:])
}

func (s *Stream) drop(n int) {
	s.buf = append(s.buf[:0], s.buf[n:]...)
}
