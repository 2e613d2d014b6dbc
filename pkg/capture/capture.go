// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package capture records the raw chunks crossing a simulator link so a
// session can be replayed later. A capture file is a CBOR sequence: one
// Header followed by one Record per chunk.
package capture

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Magic identifies capture files
const Magic = "metasim-capture"

// Version of the record layout
const Version = 1

// Direction of a chunk relative to the simulated watch
type Direction uint8

// Directions
const (
	Inbound  Direction = iota // host -> watch
	Outbound                  // watch -> host
)

// String returns the display name of the direction
func (d Direction) String() string {
	switch d {
	case Inbound:
		return "RX"
	case Outbound:
		return "TX"
	default:
		return "??"
	}
}

// Header opens every capture file
type Header struct {
	Magic   string    `cbor:"1,keyasint"`
	Version int       `cbor:"2,keyasint"`
	Start   time.Time `cbor:"3,keyasint"`
}

// Record is one chunk as it was read from or written to the link
type Record struct {
	Offset    time.Duration `cbor:"1,keyasint"` // since Header.Start
	Direction Direction     `cbor:"2,keyasint"`
	Data      []byte        `cbor:"3,keyasint"`
}

var encMode = func() cbor.EncMode {
	em, err := cbor.EncOptions{Time: cbor.TimeRFC3339Nano}.EncMode()
	if err != nil {
		panic(err)
	}
	return em
}()

//////////////////////////////////////////////////////////////
// Writer
//////////////////////////////////////////////////////////////

// Writer appends records to a capture. It is safe for concurrent use, since
// the session records inbound and outbound chunks from different goroutines.
type Writer struct {
	mu     sync.Mutex
	enc    *cbor.Encoder
	closer io.Closer
	start  time.Time
	now    func() time.Time
}

// NewWriter writes the header to w and returns a writer for the records
func NewWriter(w io.Writer) (*Writer, error) {
	cw := &Writer{enc: encMode.NewEncoder(w), now: time.Now}
	if c, ok := w.(io.Closer); ok {
		cw.closer = c
	}
	cw.start = cw.now()

	if err := cw.enc.Encode(Header{Magic: Magic, Version: Version, Start: cw.start}); err != nil {
		return nil, fmt.Errorf("failed to write capture header: %w", err)
	}
	return cw, nil
}

// Create creates (or truncates) a capture file at path
func Create(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	w, err := NewWriter(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return w, nil
}

// Record appends one chunk
func (w *Writer) Record(dir Direction, data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	rec := Record{
		Offset:    w.now().Sub(w.start),
		Direction: dir,
		Data:      data,
	}
	if err := w.enc.Encode(rec); err != nil {
		return fmt.Errorf("failed to write capture record: %w", err)
	}
	return nil
}

// Close closes the underlying file, if the writer owns one
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closer == nil {
		return nil
	}
	return w.closer.Close()
}

//////////////////////////////////////////////////////////////
// Reader
//////////////////////////////////////////////////////////////

// Reader iterates over the records of a capture
type Reader struct {
	Header Header

	dec    *cbor.Decoder
	closer io.Closer
}

// NewReader reads and checks the header from r
func NewReader(r io.Reader) (*Reader, error) {
	cr := &Reader{dec: cbor.NewDecoder(r)}
	if c, ok := r.(io.Closer); ok {
		cr.closer = c
	}

	if err := cr.dec.Decode(&cr.Header); err != nil {
		return nil, fmt.Errorf("failed to read capture header: %w", err)
	}
	if cr.Header.Magic != Magic {
		return nil, fmt.Errorf("not a capture file (magic %q)", cr.Header.Magic)
	}
	if cr.Header.Version != Version {
		return nil, fmt.Errorf("unsupported capture version %d", cr.Header.Version)
	}
	return cr, nil
}

// Open opens the capture file at path
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r, err := NewReader(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return r, nil
}

// Next returns the next record, or io.EOF after the last one
func (r *Reader) Next() (Record, error) {
	var rec Record
	if err := r.dec.Decode(&rec); err != nil {
		if errors.Is(err, io.EOF) {
			return Record{}, io.EOF
		}
		return Record{}, fmt.Errorf("failed to read capture record: %w", err)
	}
	return rec, nil
}

// Time returns the wall-clock time of rec
func (r *Reader) Time(rec Record) time.Time {
	return r.Header.Start.Add(rec.Offset)
}

// Close closes the underlying file, if the reader owns one
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}
