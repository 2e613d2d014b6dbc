// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package metawatch

import "encoding/binary"

// Frame builder functions return wire bytes ready for the write queue.
// Payload sizes are fixed by the layouts, so none of them can fail.

//////////////////////////////////////////////////////////////
// Watch -> host
//////////////////////////////////////////////////////////////

// NewButtonEvent creates a buttonEvent frame (0x34) carrying the callback
// data registered with enableButton
func NewButtonEvent(callbackData uint8) []byte {
	return MustCompose(MsgButtonEvent, 0, []byte{callbackData})
}

// NewDeviceTypeResponse creates a getDeviceTypeResponse frame (0x02)
func NewDeviceTypeResponse(deviceType uint8) []byte {
	return MustCompose(MsgGetDeviceTypeResponse, 0, []byte{deviceType})
}

// NewRTCResponse creates a getRTCResponse frame (0x28)
func NewRTCResponse(r RTC) []byte {
	return MustCompose(MsgGetRTCResponse, 0, r.Encode())
}

// NewNvalResponse creates an nvalResponse frame (0x31). The status goes in
// the option byte. A nil value acknowledges without echoing one.
func NewNvalResponse(status uint8, id uint16, value []byte) []byte {
	payload := binary.LittleEndian.AppendUint16(nil, id)
	if value != nil {
		payload = append(payload, byte(len(value)))
		payload = append(payload, value...)
	}
	return MustCompose(MsgNvalResponse, OptionBits(status), payload)
}

// NewNvalValueResponse is NewNvalResponse for an integer register value
func NewNvalValueResponse(id uint16, value, size int) []byte {
	return NewNvalResponse(NvalStatusOK, id, encodeUint(value, size))
}

// NewBatteryVoltageResponse creates a readBatteryVoltageResponse frame (0x57)
func NewBatteryVoltageResponse(b BatteryVoltage) []byte {
	return MustCompose(MsgReadBatteryVoltageResponse, 0, b.Encode())
}

// NewLightSenseResponse creates a readLightSenseResponse frame (0x59)
func NewLightSenseResponse(level uint16) []byte {
	return MustCompose(MsgReadLightSenseResponse, 0, binary.LittleEndian.AppendUint16(nil, level))
}

//////////////////////////////////////////////////////////////
// Host -> watch
//////////////////////////////////////////////////////////////

// NewGetDeviceType creates a getDeviceType frame (0x01)
func NewGetDeviceType() []byte {
	return MustCompose(MsgGetDeviceType, 0, nil)
}

// NewGetRTC creates a getRTC frame (0x27)
func NewGetRTC() []byte {
	return MustCompose(MsgGetRTC, 0, nil)
}

// NewSetRTC creates a setRTC frame (0x26)
func NewSetRTC(r RTC) []byte {
	return MustCompose(MsgSetRTC, 0, r.Encode())
}

// NewSetLED creates the undocumented setLED frame (0xC0). The state rides in
// option bit 0.
func NewSetLED(on bool) []byte {
	return MustCompose(MsgSetLED, OptionBits(0).With(0, on), nil)
}

// NewSetVibrate creates a setVibrate frame (0x23)
func NewSetVibrate(v Vibration) []byte {
	return MustCompose(MsgSetVibrate, 0, v.Encode())
}

// NewEnableButton creates an enableButton frame (0x46)
func NewEnableButton(c ButtonConfig) []byte {
	return MustCompose(MsgEnableButton, 0, c.Encode())
}

// NewDisableButton creates a disableButton frame (0x47)
func NewDisableButton(k ButtonKey) []byte {
	return MustCompose(MsgDisableButton, 0, k.Encode())
}

// NewWriteLCD creates a writeLCD frame (0x40) for one or two rows
func NewWriteLCD(w LCDWrite) []byte {
	return MustCompose(MsgWriteLCD, w.Options(), w.Encode())
}

// NewUpdateLCD creates an updateLCD frame (0x43) activating mode
func NewUpdateLCD(mode Mode) []byte {
	return MustCompose(MsgUpdateLCD, OptionBits(mode)&lcdModeMask, nil)
}

// NewNvalInit creates an nval frame resetting every register to its default
func NewNvalInit() []byte {
	return MustCompose(MsgNval, NvalOpInit, nil)
}

// NewNvalRead creates an nval read frame for id
func NewNvalRead(id uint16, size uint8) []byte {
	op := NvalOp{Op: NvalOpRead, ID: id, Size: size}
	return MustCompose(MsgNval, OptionBits(op.Op), op.Encode())
}

// NewNvalWrite creates an nval write frame storing value in size bytes
func NewNvalWrite(id uint16, value, size int) []byte {
	op := NvalOp{Op: NvalOpWrite, ID: id, Size: uint8(size), Value: encodeUint(value, size)}
	return MustCompose(MsgNval, OptionBits(op.Op), op.Encode())
}

// NewReadBatteryVoltage creates a readBatteryVoltage frame (0x56)
func NewReadBatteryVoltage() []byte {
	return MustCompose(MsgReadBatteryVoltage, 0, nil)
}

// NewReadLightSense creates a readLightSense frame (0x58)
func NewReadLightSense() []byte {
	return MustCompose(MsgReadLightSense, 0, nil)
}
