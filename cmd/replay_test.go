// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bytes"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/Thermoquad/metasim/pkg/capture"
	"github.com/Thermoquad/metasim/pkg/metawatch"
	"github.com/Thermoquad/metasim/pkg/watch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================
// Helpers
// ============================================================

// recording builds an in-memory capture from alternating records
func recording(t *testing.T, records ...capture.Record) *capture.Reader {
	t.Helper()
	var buf bytes.Buffer
	w, err := capture.NewWriter(&buf)
	require.NoError(t, err)
	for _, rec := range records {
		require.NoError(t, w.Record(rec.Direction, rec.Data))
	}
	r, err := capture.NewReader(&buf)
	require.NoError(t, err)
	return r
}

func rx(data []byte) capture.Record {
	return capture.Record{Direction: capture.Inbound, Data: data}
}

func tx(data []byte) capture.Record {
	return capture.Record{Direction: capture.Outbound, Data: data}
}

// ============================================================
// Replay
// ============================================================

func TestReplayMatchingResponses(t *testing.T) {
	r := recording(t,
		rx(metawatch.NewGetDeviceType()),
		tx(metawatch.NewDeviceTypeResponse(metawatch.DeviceTypeDigital)),
		rx(metawatch.NewSetLED(true)),
	)

	var out bytes.Buffer
	result, err := replayCapture(r, watch.DefaultOptions(), &out)
	require.NoError(t, err)

	assert.Equal(t, 0, result.mismatches())
	assert.Len(t, result.simulated, 1)
	assert.True(t, result.device.LED())
	assert.Equal(t, uint64(2), result.stats.ValidFrames)
	assert.Equal(t, uint64(1), result.stats.OutboundFrames)
	assert.Contains(t, out.String(), "getDeviceType")
	assert.Contains(t, out.String(), "SIM")
}

func TestReplayReportsDifferentDevice(t *testing.T) {
	r := recording(t,
		rx(metawatch.NewGetDeviceType()),
		tx(metawatch.NewDeviceTypeResponse(metawatch.DeviceTypeAnalog)),
	)

	result, err := replayCapture(r, watch.DefaultOptions(), io.Discard)
	require.NoError(t, err)
	assert.Equal(t, 1, result.mismatches())
}

func TestReplaySplitAndCorruptChunks(t *testing.T) {
	frame := metawatch.NewUpdateLCD(metawatch.ModeApplication)
	bad := metawatch.NewGetDeviceType()
	bad[len(bad)-1] ^= 0xFF

	r := recording(t,
		rx(append([]byte{0x55, 0xAA}, frame[:3]...)),
		rx(frame[3:]),
		rx(bad),
	)

	result, err := replayCapture(r, watch.DefaultOptions(), io.Discard)
	require.NoError(t, err)

	assert.Equal(t, metawatch.ModeApplication, result.device.Mode())
	assert.Equal(t, uint64(2), result.stats.SkippedBytes)
	assert.Equal(t, uint64(1), result.stats.ChecksumErrors)
	assert.Empty(t, result.simulated)
}

func TestMismatchesCountsLengthDifference(t *testing.T) {
	a := metawatch.NewButtonEvent(1)
	result := &replayResult{
		simulated: [][]byte{a, a},
		recorded:  [][]byte{a},
	}
	assert.Equal(t, 1, result.mismatches())
}

// ============================================================
// Output
// ============================================================

func TestFormatDeviceState(t *testing.T) {
	dev := watch.NewDevice(watch.DefaultOptions())
	require.NoError(t, dev.SetLED(true))
	require.NoError(t, dev.EnableButton(metawatch.ButtonConfig{
		ButtonKey:    metawatch.ButtonKey{Mode: metawatch.ModeIdle, Button: 0, Press: metawatch.PressImmediate},
		CallbackKind: metawatch.CallbackButtonEvent,
		CallbackData: 0x42,
	}))

	text := formatDeviceState(dev.Snapshot())
	assert.Contains(t, text, "Mode:      Idle")
	assert.Contains(t, text, "LED:       On")
	assert.Contains(t, text, "1 mapped")
	assert.Contains(t, text, "0x42")
	assert.NotContains(t, text, "NVAL changes")
}

func TestWritePNG(t *testing.T) {
	fb := watch.NewFramebuffer()
	path := filepath.Join(t.TempDir(), "buffer.png")
	require.NoError(t, writePNG(path, fb))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, metawatch.DisplayWidth, img.Bounds().Dx())
	assert.Equal(t, metawatch.DisplayHeight, img.Bounds().Dy())
}
