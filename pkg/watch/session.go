// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package watch

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/Thermoquad/metasim/pkg/capture"
	"github.com/Thermoquad/metasim/pkg/metawatch"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	readBufferSize = 256
	queueDepth     = 64
)

// FrameHook is called on the loop goroutine for every frame crossing the
// link. err is the dispatch error of an inbound frame and always nil for
// outbound ones.
type FrameHook func(dir capture.Direction, f *metawatch.Frame, err error)

// Session connects a Device to a byte stream. Run owns three goroutines: a
// reader feeding received chunks to the loop, a writer draining the outbound
// queue one whole frame at a time, and the loop itself, which is the only
// goroutine that touches the device.
type Session struct {
	rw   io.ReadWriter
	log  logrus.FieldLogger
	dev  *Device
	disp *metawatch.Dispatcher

	stream *metawatch.Stream
	stats  *metawatch.Statistics

	inbound  chan []byte
	outbound chan []byte
	tasks    chan func()
	done     chan struct{}

	// cancelled when any of Run's goroutines stops
	runCtx context.Context

	capture *capture.Writer
	hook    FrameHook
	// frames sent since the hook last ran, so it sees requests before
	// their responses
	pendingTX [][]byte
}

// NewSession creates a session over rw. The device is built from opts with
// its Send and Scheduler replaced by the session's queue and loop.
func NewSession(rw io.ReadWriter, opts Options) *Session {
	s := &Session{
		rw:       rw,
		stream:   metawatch.NewStream(),
		stats:    metawatch.NewStatistics(),
		inbound:  make(chan []byte, queueDepth),
		outbound: make(chan []byte, queueDepth),
		tasks:    make(chan func(), queueDepth),
		done:     make(chan struct{}),
		runCtx:   context.Background(),
	}

	opts.Send = s.enqueue
	opts.Scheduler = NewLoopScheduler(s.post)
	s.dev = NewDevice(opts)
	s.log = s.dev.log
	s.stream.SetLogger(s.log)
	s.disp = metawatch.NewDispatcher(s.dev, s.log)
	return s
}

// SetCapture records every chunk to w. Call before Run.
func (s *Session) SetCapture(w *capture.Writer) {
	s.capture = w
}

// OnFrame installs a hook for decoded frames. Call before Run.
func (s *Session) OnFrame(h FrameHook) {
	s.hook = h
}

// Run serves the link until ctx is cancelled or the transport fails or
// reaches EOF. Cancellation and EOF return nil. If the transport is an
// io.Closer it is closed on the way out to unblock the reader.
func (s *Session) Run(ctx context.Context) error {
	defer close(s.done)

	g, gctx := errgroup.WithContext(ctx)
	s.runCtx = gctx

	g.Go(func() error { return s.readLoop(gctx) })
	g.Go(func() error { return s.writeLoop(gctx) })
	g.Go(func() error { return s.mainLoop(gctx) })
	g.Go(func() error {
		<-gctx.Done()
		if c, ok := s.rw.(io.Closer); ok {
			c.Close()
		}
		return nil
	})

	err := g.Wait()
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func (s *Session) readLoop(ctx context.Context) error {
	buf := make([]byte, readBufferSize)
	for {
		n, err := s.rw.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			select {
			case s.inbound <- chunk:
			case <-ctx.Done():
				return nil
			}
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, io.EOF) {
				s.log.Info("connection closed by peer")
				return io.EOF
			}
			return fmt.Errorf("read error: %w", err)
		}
	}
}

func (s *Session) writeLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case frame := <-s.outbound:
			if _, err := s.rw.Write(frame); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("write error: %w", err)
			}
			s.record(capture.Outbound, frame)
		}
	}
}

func (s *Session) mainLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case chunk := <-s.inbound:
			s.handleChunk(chunk)
		case task := <-s.tasks:
			task()
			s.flushTX()
		}
	}
}

// handleChunk runs a received chunk through reassembly, parsing and dispatch.
// Bad frames are counted and logged; none of them stops the session.
func (s *Session) handleChunk(chunk []byte) {
	s.record(capture.Inbound, chunk)
	s.log.WithField("data", hex.EncodeToString(chunk)).Debug("received")

	buf, skipped := s.stream.Feed(chunk)
	if skipped > 0 {
		s.stats.RecordSkipped(skipped)
		s.log.WithField("skipped", skipped).Warn("discarded bytes while resynchronising")
	}
	if buf == nil {
		return
	}

	frames, err := metawatch.Parse(buf)
	if err != nil {
		s.stats.RecordParseError(err)
		s.log.WithError(err).Error("failed to parse frame")
	}

	for _, f := range frames {
		err := s.disp.Dispatch(f)
		s.stats.RecordFrame(err)

		log := s.log.WithField("msg_type", f.Name())
		switch {
		case err == nil:
		case errors.Is(err, metawatch.ErrNotImplemented):
			log.WithError(err).Warn("unhandled message")
		default:
			log.WithError(err).Error("failed to handle message")
		}

		if s.hook != nil {
			s.hook(capture.Inbound, f, err)
		}
		s.flushTX()
	}
}

// enqueue hands a composed frame to the writer. It runs on the loop.
func (s *Session) enqueue(frame []byte) {
	select {
	case s.outbound <- frame:
		s.stats.RecordOutbound()
	case <-s.runCtx.Done():
		return
	}
	if s.hook != nil {
		s.pendingTX = append(s.pendingTX, frame)
	}
}

func (s *Session) flushTX() {
	for _, frame := range s.pendingTX {
		frames, err := metawatch.Parse(frame)
		if err != nil {
			continue
		}
		for _, f := range frames {
			s.hook(capture.Outbound, f, nil)
		}
	}
	s.pendingTX = nil
}

// post queues f for the loop. It may be called from any goroutine and
// drops f once the session has stopped.
func (s *Session) post(f func()) {
	select {
	case s.tasks <- f:
	case <-s.done:
	}
}

func (s *Session) record(dir capture.Direction, data []byte) {
	if s.capture == nil {
		return
	}
	if err := s.capture.Record(dir, data); err != nil {
		s.log.WithError(err).Error("capture failed")
	}
}

//////////////////////////////////////////////////////////////
// Requests from other goroutines
//////////////////////////////////////////////////////////////

// Do runs f on the loop with exclusive access to the device and waits for it
// to finish
func (s *Session) Do(ctx context.Context, f func(*Device)) error {
	finished := make(chan struct{})
	task := func() {
		defer close(finished)
		f(s.dev)
	}

	select {
	case s.tasks <- task:
	case <-s.done:
		return errors.New("session stopped")
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-finished:
		return nil
	case <-s.done:
		return errors.New("session stopped")
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Press injects a button press held for the given duration. It reports
// whether a buttonEvent was sent.
func (s *Session) Press(ctx context.Context, button uint8, held time.Duration) (bool, error) {
	var sent bool
	err := s.Do(ctx, func(d *Device) {
		sent = d.Press(button, held)
	})
	return sent, err
}

// Reset returns the device to its power-on state
func (s *Session) Reset(ctx context.Context) error {
	return s.Do(ctx, func(d *Device) {
		d.Reset()
		s.stream.Reset()
	})
}

// Snapshot copies the device state
func (s *Session) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := s.Do(ctx, func(d *Device) {
		snap = d.Snapshot()
	})
	return snap, err
}

// Stats copies the link statistics. After Run has returned it reports the
// final counters.
func (s *Session) Stats(ctx context.Context) (metawatch.Statistics, error) {
	select {
	case <-s.done:
		s.stats.CalculateRates()
		return *s.stats, nil
	default:
	}

	var stats metawatch.Statistics
	err := s.Do(ctx, func(*Device) {
		s.stats.CalculateRates()
		stats = *s.stats
	})
	return stats, err
}
