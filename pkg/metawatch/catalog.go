// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package metawatch

// Undocumented is the name given to any type code missing from the catalog
const Undocumented = "<undocumented>"

// MessageInfo describes one catalog entry
type MessageInfo struct {
	Name string
	// MinPayload is the shortest payload the layout can be decoded from
	MinPayload int
}

var catalog = map[MsgType]MessageInfo{
	MsgGetDeviceType:         {Name: "getDeviceType"},
	MsgGetDeviceTypeResponse: {Name: "getDeviceTypeResponse", MinPayload: 1},
	MsgGetInfo:               {Name: "getInfo"},
	MsgGetInfoResponse:       {Name: "getInfoResponse"},
	MsgLoopback:              {Name: "loopback"},

	MsgWriteOLED:       {Name: "writeOLED"},
	MsgChangeOLED:      {Name: "changeOLED"},
	MsgWriteOLEDScroll: {Name: "writeOLEDScroll"},

	MsgAdvanceHands:   {Name: "advanceHands"},
	MsgSetVibrate:     {Name: "setVibrate", MinPayload: 6},
	MsgSetRTC:         {Name: "setRTC", MinPayload: 8},
	MsgGetRTC:         {Name: "getRTC"},
	MsgGetRTCResponse: {Name: "getRTCResponse", MinPayload: 8},

	MsgNval:         {Name: "nval"},
	MsgNvalResponse: {Name: "nvalResponse", MinPayload: 2},
	MsgStatusEvent:  {Name: "statusEvent"},
	MsgButtonEvent:  {Name: "buttonEvent"},
	MsgGPPhone:      {Name: "gpPhone"},
	MsgGPWatch:      {Name: "gpWatch"},

	MsgWriteLCD:        {Name: "writeLCD", MinPayload: 1 + RowBytes},
	MsgConfigLCD:       {Name: "configLCD"},
	MsgUpdateLCD:       {Name: "updateLCD"},
	MsgLoadLCDTemplate: {Name: "loadLCDTemplate"},
	MsgEnableButton:    {Name: "enableButton", MinPayload: 5},
	MsgDisableButton:   {Name: "disableButton", MinPayload: 3},

	MsgBatteryConfig:              {Name: "batteryConfig"},
	MsgLowBatteryWarning:          {Name: "lowBatteryWarning"},
	MsgLowBatteryBluetoothWarning: {Name: "lowBatteryBluetoothWarning"},
	MsgReadBatteryVoltage:         {Name: "readBatteryVoltage"},
	MsgReadBatteryVoltageResponse: {Name: "readBatteryVoltageResponse", MinPayload: 6},
	MsgReadLightSense:             {Name: "readLightSense"},
	MsgReadLightSenseResponse:     {Name: "readLightSenseResponse", MinPayload: 2},

	MsgSetLED: {Name: "setLED"},
}

var catalogByName = func() map[string]MsgType {
	m := make(map[string]MsgType, len(catalog))
	for t, info := range catalog {
		m[info.Name] = t
	}
	return m
}()

// MessageName returns the catalog name of t, or Undocumented
func MessageName(t MsgType) string {
	if info, ok := catalog[t]; ok {
		return info.Name
	}
	return Undocumented
}

// LookupMessage returns the catalog entry for t
func LookupMessage(t MsgType) (MessageInfo, bool) {
	info, ok := catalog[t]
	return info, ok
}

// MessageType returns the type code registered under name
func MessageType(name string) (MsgType, bool) {
	t, ok := catalogByName[name]
	return t, ok
}

// String returns the catalog name of the type
func (t MsgType) String() string {
	return MessageName(t)
}

// Known reports whether t is in the catalog
func (t MsgType) Known() bool {
	_, ok := catalog[t]
	return ok
}

// checkPayload enforces the catalog's minimum payload length for t
func checkPayload(t MsgType, payload []byte) error {
	info, ok := catalog[t]
	if !ok || len(payload) >= info.MinPayload {
		return nil
	}
	return payloadTooShort(t, len(payload), info.MinPayload)
}
