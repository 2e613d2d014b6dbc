// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package metawatch

import (
	"sort"
	"strconv"
)

// ValueKind describes how an NVAL register's value is interpreted
type ValueKind int

// Value kinds
const (
	KindOpaque ValueKind = iota // no interpretation (link keys, reserved)
	KindBool
	KindInt
	KindEnum
)

// NvalRegister describes one named, typed device setting
type NvalRegister struct {
	ID   uint16
	Name string
	// Size in bytes on the wire; 0 when the device does not document it
	Size int
	// Default value; HasDefault is false for registers without one
	Default    int
	HasDefault bool
	Kind       ValueKind
	Choices    map[int]string // for KindEnum
}

// Registers the simulator treats specially
const (
	NvalIdleBufferMode      uint16 = 0x0002
	NvalIdleBufferInverted  uint16 = 0x0003
	NvalIdleTimeout         uint16 = 0x0004
	NvalApplicationTimeout  uint16 = 0x0005
	NvalNotificationTimeout uint16 = 0x0006
	NvalLowBatteryThreshold uint16 = 0x2001
	NvalBluetoothOffThresh  uint16 = 0x2002
	NvalTimeFormat          uint16 = 0x2009
	NvalDateFormat          uint16 = 0x200A
	NvalShowSeconds         uint16 = 0x200B
)

// Time and date format values
const (
	TimeFormat12h  = 0
	TimeFormat24h  = 1
	DateMonthFirst = 0
	DateDayFirst   = 1
)

func withDefault(r NvalRegister, v int) NvalRegister {
	r.Default = v
	r.HasDefault = true
	return r
}

var nvalRegisters = []NvalRegister{
	{ID: 0x0000, Name: "Reserved"},
	{ID: 0x0001, Name: "Link key"},
	withDefault(NvalRegister{ID: NvalIdleBufferMode, Name: "Idle buffer mode", Size: 1, Kind: KindEnum,
		Choices: map[int]string{0: "Reserved top", 1: "Fullscreen"}}, 0),
	withDefault(NvalRegister{ID: NvalIdleBufferInverted, Name: "Idle buffer inverted", Size: 1, Kind: KindBool}, 0),
	{ID: NvalIdleTimeout, Name: "Idle timeout", Size: 2},
	withDefault(NvalRegister{ID: NvalApplicationTimeout, Name: "Application timeout", Size: 2, Kind: KindInt}, 600),
	withDefault(NvalRegister{ID: NvalNotificationTimeout, Name: "Notification timeout", Size: 2, Kind: KindInt}, 30),
	{ID: 0x0007, Name: "Reserved timeout", Size: 2, Kind: KindInt},

	withDefault(NvalRegister{ID: 0x1001, Name: "Sniff debug", Size: 1, Kind: KindBool}, 0),
	withDefault(NvalRegister{ID: 0x1002, Name: "Battery debug", Size: 1, Kind: KindBool}, 0),
	{ID: 0x1003, Name: "Connection debug", Size: 1, Kind: KindBool},
	withDefault(NvalRegister{ID: 0x1004, Name: "Reset pin enabled", Size: 1, Kind: KindEnum,
		Choices: map[int]string{1: "Enabled", 2: "Disabled"}}, 0x02),
	{ID: 0x1005, Name: "Master reset", Size: 2},

	withDefault(NvalRegister{ID: NvalLowBatteryThreshold, Name: "Low battery threshold", Size: 2, Kind: KindInt}, 3500),
	withDefault(NvalRegister{ID: NvalBluetoothOffThresh, Name: "Bluetooth off threshold", Size: 2, Kind: KindInt}, 3300),
	withDefault(NvalRegister{ID: 0x2003, Name: "Battery sense interval", Size: 2, Kind: KindInt}, 8),
	{ID: 0x2004, Name: "Light sense interval", Size: 2, Kind: KindInt},
	withDefault(NvalRegister{ID: 0x2005, Name: "Secure simple pairing", Size: 1, Kind: KindBool}, 0),
	withDefault(NvalRegister{ID: 0x2006, Name: "Link alarm", Size: 1, Kind: KindBool}, 1),
	{ID: 0x2007, Name: "Link alarm duration", Kind: KindInt},
	withDefault(NvalRegister{ID: 0x2008, Name: "Paring mode duration", Size: 1, Kind: KindInt}, 0),
	withDefault(NvalRegister{ID: NvalTimeFormat, Name: "Time Format", Size: 1, Kind: KindEnum,
		Choices: map[int]string{TimeFormat12h: "12hrs", TimeFormat24h: "24hrs"}}, TimeFormat12h),
	withDefault(NvalRegister{ID: NvalDateFormat, Name: "Date Format", Size: 1, Kind: KindEnum,
		Choices: map[int]string{DateMonthFirst: "Month first", DateDayFirst: "Day first"}}, DateMonthFirst),
	withDefault(NvalRegister{ID: NvalShowSeconds, Name: "Show seconds", Size: 1, Kind: KindBool}, 0),
}

var nvalByID = func() map[uint16]NvalRegister {
	m := make(map[uint16]NvalRegister, len(nvalRegisters))
	for _, r := range nvalRegisters {
		m[r.ID] = r
	}
	return m
}()

// NvalRegisters returns the catalog sorted by id
func NvalRegisters() []NvalRegister {
	out := append([]NvalRegister(nil), nvalRegisters...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// LookupNval returns the register with the given id
func LookupNval(id uint16) (NvalRegister, bool) {
	r, ok := nvalByID[id]
	return r, ok
}

// FormatValue renders v the way the register's kind suggests
func (r NvalRegister) FormatValue(v int) string {
	switch r.Kind {
	case KindBool:
		if v != 0 {
			return "true"
		}
		return "false"
	case KindEnum:
		if name, ok := r.Choices[v]; ok {
			return name
		}
	}
	return strconv.Itoa(v)
}
