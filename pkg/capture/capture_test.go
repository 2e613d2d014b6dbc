// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package capture

import (
	"bytes"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCapture_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf)
	require.NoError(t, err)

	start := w.start
	tick := start
	w.now = func() time.Time {
		tick = tick.Add(250 * time.Millisecond)
		return tick
	}

	require.NoError(t, w.Record(Inbound, []byte{0x01, 0x06, 0x01, 0x00, 0x0B, 0xD9}))
	require.NoError(t, w.Record(Outbound, []byte{0x01, 0x07, 0x02, 0x00, 0x02, 0x5F, 0xE2}))
	require.NoError(t, w.Close())

	r, err := NewReader(&buf)
	require.NoError(t, err)
	assert.Equal(t, Magic, r.Header.Magic)
	assert.True(t, start.Equal(r.Header.Start))

	rec, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, Inbound, rec.Direction)
	assert.Equal(t, 250*time.Millisecond, rec.Offset)
	assert.Equal(t, []byte{0x01, 0x06, 0x01, 0x00, 0x0B, 0xD9}, rec.Data)

	rec, err = r.Next()
	require.NoError(t, err)
	assert.Equal(t, Outbound, rec.Direction)
	assert.True(t, start.Add(500*time.Millisecond).Equal(r.Time(rec)))

	_, err = r.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestCapture_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.cbor")

	w, err := Create(path)
	require.NoError(t, err)
	require.NoError(t, w.Record(Inbound, []byte{0xAA}))
	require.NoError(t, w.Close())

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	rec, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, []byte{0xAA}, rec.Data)
}

func TestCapture_BadHeader(t *testing.T) {
	data, err := cbor.Marshal(Header{Magic: "something-else", Version: Version})
	require.NoError(t, err)

	_, err = NewReader(bytes.NewReader(data))
	assert.Error(t, err)

	data, err = cbor.Marshal(Header{Magic: Magic, Version: Version + 1})
	require.NoError(t, err)

	_, err = NewReader(bytes.NewReader(data))
	assert.Error(t, err)

	_, err = NewReader(bytes.NewReader(nil))
	assert.Error(t, err)
}

func TestDirection_String(t *testing.T) {
	assert.Equal(t, "RX", Inbound.String())
	assert.Equal(t, "TX", Outbound.String())
}
