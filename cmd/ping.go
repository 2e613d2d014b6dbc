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
	pingTimeout int
	pingCount   int
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Query a watch (or simulator) with getDeviceType",
	Long: `Act as the host: send getDeviceType frames and wait for getDeviceTypeResponse.

Every watch answers getDeviceType, so this tests bidirectional communication
with a real device or another metasim instance on the other end of the link.

This is useful for verifying:
  - Serial or WebSocket connection is established
  - HTTP Basic authentication works
  - The device is parsing frames and checksums
  - Bidirectional frame flow works

Exit codes:
  0 - All pings successful
  1 - One or more pings failed/timed out
  2 - Connection error`,
	RunE: runPing,
}

func init() {
	rootCmd.AddCommand(pingCmd)
	pingCmd.Flags().IntVar(&pingTimeout, "timeout", 5, "Timeout in seconds for each ping")
	pingCmd.Flags().IntVar(&pingCount, "count", 3, "Number of pings to send")
}

func runPing(cmd *cobra.Command, args []string) error {
	// Open connection (serial or WebSocket)
	conn, connInfo, err := OpenConnection()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	fmt.Printf("Metasim - Ping Test\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Timeout: %d seconds per ping\n", pingTimeout)
	fmt.Printf("Count: %d pings\n\n", pingCount)

	if pingCount <= 0 {
		return fmt.Errorf("--count must be positive")
	}

	isResponse := func(f *metawatch.Frame) bool {
		return f.Type() == metawatch.MsgGetDeviceTypeResponse && len(f.Payload()) >= 1
	}

	// One reader for the whole run so a late response is not lost to a
	// goroutine left behind by a timed out ping
	responses := make(chan *metawatch.Frame, 1)
	readErrs := make(chan error, 1)
	go func() {
		stream := metawatch.NewStream()
		for {
			frame, _, err := readFrame(conn, stream, isResponse)
			if err != nil {
				readErrs <- err
				return
			}
			responses <- frame
		}
	}()

	successCount := 0
	failCount := 0

	for i := 1; i <= pingCount; i++ {
		fmt.Printf("Ping %d/%d: ", i, pingCount)

		// Drop responses that arrived after an earlier timeout
		select {
		case <-responses:
		default:
		}

		// Send ping
		startTime := time.Now()
		if _, err := conn.Write(metawatch.NewGetDeviceType()); err != nil {
			fmt.Printf("SEND FAILED: %v\n", err)
			failCount++
			continue
		}

		// Wait for response or timeout
		select {
		case frame := <-responses:
			rtt := time.Since(startTime)
			deviceType := frame.Payload()[0]
			fmt.Printf("RESPONSE from %s watch (type %d), rtt=%v\n",
				deviceTypeName(deviceType), deviceType, rtt.Round(time.Millisecond))
			successCount++

		case err := <-readErrs:
			fmt.Printf("READ FAILED: %v\n", err)
			failCount += pingCount - i + 1
			i = pingCount

		case <-time.After(time.Duration(pingTimeout) * time.Second):
			fmt.Printf("TIMEOUT (no response in %ds)\n", pingTimeout)
			failCount++
		}

		// Small delay between pings
		if i < pingCount {
			time.Sleep(100 * time.Millisecond)
		}
	}

	// Summary
	fmt.Printf("\n--- Ping statistics ---\n")
	fmt.Printf("%d pings sent, %d responses received, %.0f%% loss\n",
		pingCount, successCount, float64(failCount)/float64(pingCount)*100)

	if failCount > 0 {
		os.Exit(1)
	}
	return nil
}

func deviceTypeName(t uint8) string {
	switch t {
	case metawatch.DeviceTypeAnalog, metawatch.DeviceTypeAnalogDev:
		return "an analog"
	case metawatch.DeviceTypeDigital, metawatch.DeviceTypeDigitalDev:
		return "a digital"
	default:
		return "an unknown"
	}
}
