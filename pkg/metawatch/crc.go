// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package metawatch

import "github.com/sigurn/crc16"

// The watch runs CRC-CCITT over each byte with its bit order reversed, but
// does not reflect the result.
var crcParams = crc16.Params{
	Poly:   crcPolynomial,
	Init:   crcInitial,
	RefIn:  true,
	RefOut: false,
	XorOut: 0x0000,
	Check:  crcCheck,
	Name:   "CRC-16/METAWATCH",
}

var crcTable = crc16.MakeTable(crcParams)

// CalculateCRC computes the frame checksum over data
func CalculateCRC(data []byte) uint16 {
	return crc16.Checksum(data, crcTable)
}

// CRCEngine computes the checksum incrementally, for callers that see a frame
// in pieces.
type CRCEngine struct {
	crc uint16
}

// NewCRCEngine returns an engine seeded to the initial value
func NewCRCEngine() *CRCEngine {
	return &CRCEngine{crc: crc16.Init(crcTable)}
}

// Write feeds more bytes into the running checksum. It never fails.
func (e *CRCEngine) Write(p []byte) (int, error) {
	e.crc = crc16.Update(e.crc, p, crcTable)
	return len(p), nil
}

// Sum16 returns the checksum of everything written so far
func (e *CRCEngine) Sum16() uint16 {
	return crc16.Complete(e.crc, crcTable)
}

// Reset seeds the engine again
func (e *CRCEngine) Reset() {
	e.crc = crc16.Init(crcTable)
}
