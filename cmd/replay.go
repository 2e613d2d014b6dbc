// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"image/png"
	"io"
	"os"
	"strings"

	"github.com/Thermoquad/metasim/pkg/capture"
	"github.com/Thermoquad/metasim/pkg/metawatch"
	"github.com/Thermoquad/metasim/pkg/watch"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	replayPNG   string
	replayQuiet bool
)

var replayCmd = &cobra.Command{
	Use:   "replay <capture.cbor>",
	Short: "Feed a capture file through a fresh simulated watch",
	Long: `Replay the host side of a recorded session against a new simulated watch.

Received chunks are fed in order, with virtual time advanced to each chunk's
recorded offset so LED, vibration and mode timers behave as they did live.
The simulated responses are compared to the ones in the recording and the
final device state is printed.

With --png, the active display buffer is written as a 96x96 image.`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().StringVar(&replayPNG, "png", "", "Write the final active buffer to a PNG file")
	replayCmd.Flags().BoolVarP(&replayQuiet, "quiet", "q", false, "Only print the summary")
}

// replayResult is what a replay leaves behind
type replayResult struct {
	device    *watch.Device
	stats     *metawatch.Statistics
	simulated [][]byte
	recorded  [][]byte
}

// mismatches counts response frames that differ from the recording
func (r *replayResult) mismatches() int {
	n := len(r.simulated)
	if len(r.recorded) > n {
		n = len(r.recorded)
	}
	diff := 0
	for i := 0; i < n; i++ {
		if i >= len(r.simulated) || i >= len(r.recorded) || !bytes.Equal(r.simulated[i], r.recorded[i]) {
			diff++
		}
	}
	return diff
}

func runReplay(cmd *cobra.Command, args []string) error {
	r, err := capture.Open(args[0])
	if err != nil {
		return err
	}
	defer r.Close()

	out := io.Writer(os.Stdout)
	if replayQuiet {
		out = io.Discard
	}

	fmt.Printf("Metasim - Replay\n")
	fmt.Printf("Capture: %s (recorded %s)\n\n", args[0], r.Header.Start.Format("2006-01-02 15:04:05"))

	result, err := replayCapture(r, deviceOptions(logrus.StandardLogger()), out)
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Print(formatDeviceState(result.device.Snapshot()))
	fmt.Println()
	fmt.Print(result.stats.String())

	if diff := result.mismatches(); diff > 0 {
		fmt.Printf("Responses: %d of %d differ from the recording\n", diff, len(result.recorded))
	} else {
		fmt.Printf("Responses: all %d match the recording\n", len(result.recorded))
	}

	if replayPNG != "" {
		if err := writePNG(replayPNG, result.device.Buffer(result.device.Mode())); err != nil {
			return err
		}
		fmt.Printf("Wrote %s buffer to %s\n", result.device.Mode(), replayPNG)
	}
	return nil
}

// replayCapture runs every inbound record of r through a new device on a
// virtual clock, printing frames to out
func replayCapture(r *capture.Reader, opts watch.Options, out io.Writer) (*replayResult, error) {
	sched := watch.NewManualScheduler(r.Header.Start)
	result := &replayResult{stats: metawatch.NewStatistics()}

	opts.Scheduler = sched
	opts.Send = func(frame []byte) {
		result.simulated = append(result.simulated, frame)
		result.stats.RecordOutbound()
		printFrames(out, "SIM", frame)
	}
	result.device = watch.NewDevice(opts)

	disp := metawatch.NewDispatcher(result.device, opts.Logger)
	stream := metawatch.NewStream()
	stream.SetLogger(opts.Logger)

	for {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		if wait := r.Time(rec).Sub(sched.Now()); wait > 0 {
			sched.Advance(wait)
		}

		if rec.Direction == capture.Outbound {
			// whole frames were written one per record
			result.recorded = append(result.recorded, rec.Data)
			continue
		}

		buf, skipped := stream.Feed(rec.Data)
		result.stats.RecordSkipped(skipped)
		if buf == nil {
			continue
		}

		frames, err := metawatch.Parse(buf)
		if err != nil {
			result.stats.RecordParseError(err)
			fmt.Fprintf(out, "[ERROR] %v\n", err)
		}
		for _, f := range frames {
			fmt.Fprintf(out, "RX  %s", metawatch.FormatFrame(f))
			err := disp.Dispatch(f)
			result.stats.RecordFrame(err)
			if err != nil {
				fmt.Fprintf(out, "[ERROR] %v\n", err)
			}
		}
	}

	return result, nil
}

func printFrames(out io.Writer, prefix string, data []byte) {
	frames, _ := metawatch.Parse(data)
	for _, f := range frames {
		fmt.Fprintf(out, "%-3s %s", prefix, metawatch.FormatFrame(f))
	}
}

// formatDeviceState renders a snapshot as plain text
func formatDeviceState(s watch.Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "=== Device State ===\n")
	fmt.Fprintf(&b, "Mode:      %s\n", s.Mode)
	fmt.Fprintf(&b, "LED:       %s\n", onOff(s.LED))
	fmt.Fprintf(&b, "Vibrating: %s\n", onOff(s.Vibrating))
	fmt.Fprintf(&b, "Clock:     %s\n", s.Clock.Format("2006-01-02 15:04:05"))
	if s.ModeTimeoutPending {
		fmt.Fprintf(&b, "Mode timeout pending\n")
	}

	fmt.Fprintf(&b, "Buttons:   %d mapped\n", len(s.Buttons))
	for _, c := range s.Buttons {
		fmt.Fprintf(&b, "  %s -> 0x%02X\n", c.ButtonKey, c.CallbackData)
	}

	changed := false
	for _, reg := range metawatch.NvalRegisters() {
		v, ok := s.Nval[reg.ID]
		if !ok || (reg.HasDefault && v == reg.Default) {
			continue
		}
		if !changed {
			fmt.Fprintf(&b, "NVAL changes:\n")
			changed = true
		}
		fmt.Fprintf(&b, "  %-24s %s\n", reg.Name, reg.FormatValue(v))
	}
	return b.String()
}

func writePNG(path string, fb *watch.Framebuffer) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := png.Encode(f, fb); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return f.Close()
}

func onOff(b bool) string {
	if b {
		return "On"
	}
	return "Off"
}
