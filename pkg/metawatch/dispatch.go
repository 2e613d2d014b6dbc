// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package metawatch

import (
	"errors"
	"io"

	"github.com/sirupsen/logrus"
)

// Handlers is implemented by whatever reacts to host messages, normally the
// simulated device. Each method receives the decoded payload.
type Handlers interface {
	GetDeviceType() error
	GetRTC() error
	SetRTC(RTC) error
	SetLED(on bool) error
	SetVibrate(Vibration) error
	WriteLCD(LCDWrite) error
	UpdateLCD(Mode) error
	EnableButton(ButtonConfig) error
	DisableButton(ButtonKey) error
	Nval(NvalOp) error
	ReadBatteryVoltage() error
	ReadLightSense() error
}

type handlerFunc func(h Handlers, f *Frame) error

// dispatchTable maps every handled message type to its decode step.
// Types missing here are reported as not implemented.
var dispatchTable = map[MsgType]handlerFunc{
	MsgGetDeviceType: func(h Handlers, f *Frame) error {
		return h.GetDeviceType()
	},
	MsgGetRTC: func(h Handlers, f *Frame) error {
		return h.GetRTC()
	},
	MsgSetRTC: func(h Handlers, f *Frame) error {
		r, err := DecodeRTC(f.Payload())
		if err != nil {
			return err
		}
		return h.SetRTC(r)
	},
	MsgSetLED: func(h Handlers, f *Frame) error {
		return h.SetLED(f.Options().Bit(0))
	},
	MsgSetVibrate: func(h Handlers, f *Frame) error {
		v, err := DecodeVibration(f.Payload())
		if err != nil {
			return err
		}
		return h.SetVibrate(v)
	},
	MsgWriteLCD: func(h Handlers, f *Frame) error {
		w, err := DecodeLCDWrite(f.Options(), f.Payload())
		if err != nil {
			return err
		}
		return h.WriteLCD(w)
	},
	MsgUpdateLCD: func(h Handlers, f *Frame) error {
		mode, err := DecodeUpdateLCD(f.Options())
		if err != nil {
			return err
		}
		return h.UpdateLCD(mode)
	},
	MsgEnableButton: func(h Handlers, f *Frame) error {
		c, err := DecodeButtonConfig(f.Payload())
		if err != nil {
			return err
		}
		return h.EnableButton(c)
	},
	MsgDisableButton: func(h Handlers, f *Frame) error {
		k, err := DecodeButtonKey(f.Payload())
		if err != nil {
			return err
		}
		return h.DisableButton(k)
	},
	MsgNval: func(h Handlers, f *Frame) error {
		op, err := DecodeNvalOp(f.Options(), f.Payload())
		if err != nil {
			return err
		}
		return h.Nval(op)
	},
	MsgReadBatteryVoltage: func(h Handlers, f *Frame) error {
		return h.ReadBatteryVoltage()
	},
	MsgReadLightSense: func(h Handlers, f *Frame) error {
		return h.ReadLightSense()
	},
}

// Dispatcher routes decoded frames to a Handlers implementation
type Dispatcher struct {
	handlers Handlers
	log      logrus.FieldLogger
}

// NewDispatcher creates a dispatcher. A nil logger discards output.
func NewDispatcher(h Handlers, log logrus.FieldLogger) *Dispatcher {
	if log == nil {
		log = discardLogger()
	}
	return &Dispatcher{handlers: h, log: log}
}

// Handles reports whether frames of type t have a handler
func (d *Dispatcher) Handles(t MsgType) bool {
	_, ok := dispatchTable[t]
	return ok
}

// Dispatch decodes f's payload and calls the matching handler. Unknown and
// unhandled types return a *NotImplementedError.
func (d *Dispatcher) Dispatch(f *Frame) error {
	fn, ok := dispatchTable[f.Type()]
	if !ok {
		return notImplemented(f.Type(), "")
	}
	if err := checkPayload(f.Type(), f.Payload()); err != nil {
		return err
	}

	d.log.WithFields(logrus.Fields{
		"msg_type": f.Name(),
		"options":  f.Options().String(),
		"len":      len(f.Payload()),
	}).Debug("dispatching frame")

	return fn(d.handlers, f)
}

// Process parses buf and dispatches every frame in it, in order. A frame
// that fails to parse or dispatch does not stop the others; all failures are
// joined into the returned error.
func (d *Dispatcher) Process(buf []byte) ([]*Frame, error) {
	frames, parseErr := Parse(buf)
	errs := []error{parseErr}
	for _, f := range frames {
		errs = append(errs, d.Dispatch(f))
	}
	return frames, errors.Join(errs...)
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
