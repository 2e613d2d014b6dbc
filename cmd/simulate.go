// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/Thermoquad/metasim/pkg/capture"
	"github.com/Thermoquad/metasim/pkg/metawatch"
	"github.com/Thermoquad/metasim/pkg/watch"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	capturePath string
	showFrames  bool
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run the simulated watch without a UI",
	Long: `Run the simulated watch on a serial or WebSocket connection.

Every host message is handled the way the device would handle it and state
changes are logged. With --capture, all received and sent bytes are recorded
to a CBOR file that the replay command can read back.

Statistics are printed when the simulator exits (Ctrl+C).`,
	RunE: runSimulate,
}

func init() {
	rootCmd.AddCommand(simulateCmd)
	simulateCmd.Flags().StringVar(&capturePath, "capture", "", "Record the session to a capture file")
	simulateCmd.Flags().BoolVar(&showFrames, "show-frames", false, "Print every decoded frame")
}

// deviceOptions builds device options from the loaded config
func deviceOptions(log logrus.FieldLogger) watch.Options {
	opts := cfg.DeviceOptions()
	opts.Logger = log
	return opts
}

func runSimulate(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}

	fmt.Printf("Metasim - Simulator\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	log := logrus.StandardLogger()
	opts := deviceOptions(log)
	opts.Observer = func(e watch.Event) {
		logEvent(log, e)
	}

	session := watch.NewSession(conn, opts)

	if capturePath != "" {
		w, err := capture.Create(capturePath)
		if err != nil {
			conn.Close()
			return err
		}
		defer w.Close()
		session.SetCapture(w)
		log.WithField("file", capturePath).Info("capturing session")
	}

	if showFrames {
		session.OnFrame(func(dir capture.Direction, f *metawatch.Frame, err error) {
			fmt.Printf("%s ", dir)
			fmt.Print(metawatch.FormatFrame(f))
		})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runErr := session.Run(ctx)

	stats, err := session.Stats(context.Background())
	if err == nil {
		fmt.Println()
		fmt.Print(stats.String())
	}
	if errors.Is(runErr, io.EOF) {
		return nil
	}
	return runErr
}

func logEvent(log logrus.FieldLogger, e watch.Event) {
	entry := log.WithField("event", e.Kind.String())
	switch e.Kind {
	case watch.EventModeChanged, watch.EventBufferChanged:
		entry = entry.WithField("mode", e.Mode.String())
	case watch.EventLEDChanged, watch.EventVibrationChanged:
		entry = entry.WithField("on", e.On)
	}
	entry.Info("device state changed")
}
