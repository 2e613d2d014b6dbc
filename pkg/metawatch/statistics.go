// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package metawatch

import (
	"errors"
	"fmt"
	"time"
)

// Statistics tracks frame counts and error rates for a link
type Statistics struct {
	StartTime      time.Time
	LastUpdateTime time.Time

	// Counters
	TotalFrames     uint64
	ValidFrames     uint64
	ChecksumErrors  uint64
	InvalidMessages uint64
	NotImplemented  uint64
	HandlerErrors   uint64
	OutboundFrames  uint64
	SkippedBytes    uint64

	// Rates (calculated)
	FrameRate float64 // frames/sec
	ErrorRate float64 // errors/sec
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	now := time.Now()
	return &Statistics{
		StartTime:      now,
		LastUpdateTime: now,
	}
}

// RecordParseError counts a buffer that failed to parse. err may join
// several frame failures; each is counted.
func (s *Statistics) RecordParseError(err error) {
	for _, e := range flatten(err) {
		s.TotalFrames++
		switch {
		case errors.Is(e, ErrInvalidChecksum):
			s.ChecksumErrors++
		default:
			s.InvalidMessages++
		}
	}
	s.LastUpdateTime = time.Now()
}

// RecordFrame counts a parsed frame and the result of dispatching it
func (s *Statistics) RecordFrame(dispatchErr error) {
	s.TotalFrames++
	switch {
	case dispatchErr == nil:
		s.ValidFrames++
	case errors.Is(dispatchErr, ErrNotImplemented):
		s.NotImplemented++
	case errors.Is(dispatchErr, ErrProtocol):
		s.InvalidMessages++
	default:
		s.HandlerErrors++
	}
	s.LastUpdateTime = time.Now()
}

// RecordOutbound counts a frame queued for the host
func (s *Statistics) RecordOutbound() {
	s.OutboundFrames++
}

// RecordSkipped counts bytes dropped while resynchronising
func (s *Statistics) RecordSkipped(n int) {
	s.SkippedBytes += uint64(n)
}

// Errors returns the number of frames that were not handled cleanly
func (s *Statistics) Errors() uint64 {
	return s.ChecksumErrors + s.InvalidMessages + s.NotImplemented + s.HandlerErrors
}

// CalculateRates calculates frame and error rates
func (s *Statistics) CalculateRates() {
	elapsed := time.Since(s.StartTime).Seconds()
	if elapsed > 0 {
		s.FrameRate = float64(s.TotalFrames) / elapsed
		s.ErrorRate = float64(s.Errors()) / elapsed
	}
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	s.CalculateRates()

	var validPercent, errorPercent float64
	if s.TotalFrames > 0 {
		validPercent = float64(s.ValidFrames) * 100.0 / float64(s.TotalFrames)
		errorPercent = float64(s.Errors()) * 100.0 / float64(s.TotalFrames)
	}

	elapsed := time.Since(s.StartTime)

	result := fmt.Sprintf("=== Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Total Frames:    %8d\n", s.TotalFrames)
	result += fmt.Sprintf("Valid Frames:    %8d (%.1f%%)\n", s.ValidFrames, validPercent)
	result += fmt.Sprintf("Errors:          %8d (%.1f%%)\n", s.Errors(), errorPercent)

	if s.ChecksumErrors > 0 {
		result += fmt.Sprintf("  Checksum:         %5d\n", s.ChecksumErrors)
	}
	if s.InvalidMessages > 0 {
		result += fmt.Sprintf("  Invalid:          %5d\n", s.InvalidMessages)
	}
	if s.NotImplemented > 0 {
		result += fmt.Sprintf("  Not implemented:  %5d\n", s.NotImplemented)
	}
	if s.HandlerErrors > 0 {
		result += fmt.Sprintf("  Handler:          %5d\n", s.HandlerErrors)
	}
	if s.SkippedBytes > 0 {
		result += fmt.Sprintf("Skipped Bytes:   %8d\n", s.SkippedBytes)
	}

	result += fmt.Sprintf("Outbound Frames: %8d\n", s.OutboundFrames)
	result += fmt.Sprintf("Frame Rate:      %8.1f frames/sec\n", s.FrameRate)
	result += fmt.Sprintf("Error Rate:      %8.1f errors/sec\n", s.ErrorRate)
	result += "================================\n"

	return result
}

// Reset resets all statistics counters
func (s *Statistics) Reset() {
	*s = *NewStatistics()
}

// flatten splits an errors.Join result into its parts
func flatten(err error) []error {
	if err == nil {
		return nil
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []error
		for _, e := range joined.Unwrap() {
			out = append(out, flatten(e)...)
		}
		return out
	}
	return []error{err}
}
