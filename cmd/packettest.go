// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/Thermoquad/metasim/pkg/metawatch"
	"github.com/spf13/cobra"
)

var (
	packetTestTimeout int
)

var packetTestCmd = &cobra.Command{
	Use:   "packet_test",
	Short: "Test connection by waiting for a valid MetaWatch frame",
	Long: `Wait for a valid MetaWatch frame on the connection until timeout.

This command connects to a serial port or WebSocket and waits for any valid
MetaWatch protocol frame. It ignores bytes outside frames and frames that fail
their checksum, and waits for a complete, valid frame.

Exit codes:
  0 - Frame received before timeout
  1 - Timeout reached without receiving a valid frame
  2 - Connection error

Useful for checking that a host application is talking on the link.`,
	RunE: runPacketTest,
}

func init() {
	rootCmd.AddCommand(packetTestCmd)
	packetTestCmd.Flags().IntVar(&packetTestTimeout, "timeout", 10, "Timeout in seconds to wait for a frame")
}

func runPacketTest(cmd *cobra.Command, args []string) error {
	// Open connection (serial or WebSocket)
	conn, connInfo, err := OpenConnection()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	fmt.Printf("Metasim - Packet Test\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Timeout: %d seconds\n", packetTestTimeout)
	fmt.Printf("Waiting for valid MetaWatch frame...\n\n")

	frameChan := make(chan *metawatch.Frame, 1)
	errChan := make(chan error, 1)

	// Reader goroutine
	go func() {
		frame, skipped, err := readFrame(conn, metawatch.NewStream(), nil)
		if err != nil {
			errChan <- err
			return
		}
		if skipped > 0 {
			fmt.Printf("(skipped %d invalid bytes before sync)\n", skipped)
		}
		frameChan <- frame
	}()

	// Wait for frame or timeout
	select {
	case frame := <-frameChan:
		fmt.Printf("SUCCESS: Received valid frame\n")
		fmt.Printf("  Type: %s (0x%02X)\n", frame.Name(), uint8(frame.Type()))
		fmt.Printf("  Options: %s\n", frame.Options())
		fmt.Printf("  Length: %d bytes\n", frame.Length())
		fmt.Printf("  CRC: 0x%04X\n", frame.CRC())
		os.Exit(0)

	case err := <-errChan:
		fmt.Fprintf(os.Stderr, "Read error: %v\n", err)
		os.Exit(2)

	case <-time.After(time.Duration(packetTestTimeout) * time.Second):
		fmt.Fprintf(os.Stderr, "TIMEOUT: No valid frame received within %d seconds\n", packetTestTimeout)
		os.Exit(1)
	}

	return nil
}

// readFrame reads until a frame that passes its checks and, when match is
// set, satisfies it. It returns the frame and the number of bytes and bad
// frames passed over on the way.
func readFrame(conn Connection, stream *metawatch.Stream, match func(*metawatch.Frame) bool) (*metawatch.Frame, int, error) {
	buf := make([]byte, 128)
	skipped := 0

	for {
		n, err := conn.Read(buf)

		frames, s := stream.Feed(buf[:n])
		skipped += s
		if frames != nil {
			parsed, parseErr := metawatch.Parse(frames)
			if parseErr != nil {
				skipped++
			}
			for _, f := range parsed {
				if match == nil || match(f) {
					return f, skipped, nil
				}
			}
		}

		if err != nil {
			return nil, skipped, err
		}
	}
}
