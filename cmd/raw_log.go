// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/Thermoquad/metasim/pkg/metawatch"
	"github.com/spf13/cobra"
)

var rawLogCmd = &cobra.Command{
	Use:   "raw_log",
	Short: "Display raw frame log in human-readable format",
	Long: `Continuously decode and display MetaWatch protocol frames as they arrive.

Each frame is shown with timestamp, message type, option bits and decoded
payload data. Frames that fail their checksum or layout checks are reported
and skipped.

Supports both serial and WebSocket connections.`,
	RunE: runRawLog,
}

func init() {
	rootCmd.AddCommand(rawLogCmd)
}

func runRawLog(cmd *cobra.Command, args []string) error {
	// Open connection (serial or WebSocket)
	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	fmt.Printf("Metasim - Raw Frame Log\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	stream := metawatch.NewStream()
	buf := make([]byte, 128)

	for {
		n, err := conn.Read(buf)
		if n > 0 {
			printChunk(stream, buf[:n])
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				log.Printf("Connection closed")
				return nil
			}
			return fmt.Errorf("read error: %w", err)
		}
	}
}

// printChunk feeds chunk to stream and prints whatever frames complete
func printChunk(stream *metawatch.Stream, chunk []byte) {
	frames, skipped := stream.Feed(chunk)
	if skipped > 0 {
		fmt.Printf("[SKIP] %d bytes before start of frame\n", skipped)
	}
	if frames == nil {
		return
	}

	parsed, err := metawatch.Parse(frames)
	for _, f := range parsed {
		fmt.Print(metawatch.FormatFrame(f))
	}
	if err != nil {
		fmt.Printf("[ERROR] %v\n", err)
	}
}
