// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// Metasim - MetaWatch Protocol Simulator
//
// Simulates a MetaWatch wrist device on a serial port or WebSocket link and
// provides tools for sniffing, testing and replaying the protocol.

package main

import (
	"os"

	"github.com/Thermoquad/metasim/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
