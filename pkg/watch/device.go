// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package watch simulates the state of a MetaWatch digital watch: display
// modes and their framebuffers, the button map, vibration, the LED, the real
// time clock and the NVAL store. A Device is not safe for concurrent use;
// Session serialises everything that touches it onto one goroutine.
package watch

import (
	"io"
	"sort"
	"time"

	"github.com/Thermoquad/metasim/pkg/metawatch"
	"github.com/sirupsen/logrus"
)

type vibration struct {
	remaining int
	on        time.Duration
	off       time.Duration
}

// Device is the simulated watch. It implements metawatch.Handlers.
type Device struct {
	opts Options
	log  logrus.FieldLogger

	mode    metawatch.Mode
	buffers [metawatch.NumModes]*Framebuffer
	buttons map[metawatch.ButtonKey]metawatch.ButtonConfig
	nval    *NvalStore

	led       bool
	vibrating bool
	vib       vibration

	// clockBase was the simulated time when the scheduler read clockRef.
	// A Duration offset would overflow for hosts that set distant years.
	clockSet  bool
	clockBase time.Time
	clockRef  time.Time

	ledTimer  timerSlot
	vibTimer  timerSlot
	modeTimer timerSlot
}

var _ metawatch.Handlers = (*Device)(nil)

// NewDevice creates a device in its reset state. Without a Scheduler the
// device runs on a ManualScheduler starting now, so its timers only fire
// when that scheduler is advanced.
func NewDevice(opts Options) *Device {
	if opts.Scheduler == nil {
		opts.Scheduler = NewManualScheduler(time.Now())
	}
	if opts.Logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		opts.Logger = l
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}

	d := &Device{
		opts:      opts,
		log:       opts.Logger,
		nval:      NewNvalStore(),
		ledTimer:  timerSlot{sched: opts.Scheduler},
		vibTimer:  timerSlot{sched: opts.Scheduler},
		modeTimer: timerSlot{sched: opts.Scheduler},
	}
	for i := range d.buffers {
		d.buffers[i] = NewFramebuffer()
	}
	d.reset()
	return d
}

// Reset restores the power-on state and cancels every timer.
func (d *Device) Reset() {
	d.reset()
	d.log.Info("device reset")
	d.notify(Event{Kind: EventReset, Mode: d.mode})
}

func (d *Device) reset() {
	d.ledTimer.Cancel()
	d.vibTimer.Cancel()
	d.modeTimer.Cancel()

	d.mode = metawatch.ModeIdle
	for _, fb := range d.buffers {
		fb.Clear()
	}
	d.buttons = make(map[metawatch.ButtonKey]metawatch.ButtonConfig)
	d.nval.Reset()
	d.led = false
	d.vibrating = false
	d.vib = vibration{}
	d.clockSet = false
}

func (d *Device) send(frame []byte) {
	if d.opts.Send != nil {
		d.opts.Send(frame)
	}
}

func (d *Device) notify(e Event) {
	if d.opts.Observer != nil {
		d.opts.Observer(e)
	}
}

//////////////////////////////////////////////////////////////
// Accessors
//////////////////////////////////////////////////////////////

// Mode returns the active display mode
func (d *Device) Mode() metawatch.Mode {
	return d.mode
}

// Buffer returns a copy of the framebuffer of mode
func (d *Device) Buffer(mode metawatch.Mode) *Framebuffer {
	return d.buffers[mode].Clone()
}

// LED reports whether the LED is lit
func (d *Device) LED() bool {
	return d.led
}

// Vibrating reports whether the vibration indicator is on
func (d *Device) Vibrating() bool {
	return d.vibrating
}

// Clock returns the simulated wall-clock time
func (d *Device) Clock() time.Time {
	now := d.opts.Scheduler.Now()
	if !d.clockSet {
		return now.In(d.opts.Location)
	}
	return d.clockBase.Add(now.Sub(d.clockRef)).In(d.opts.Location)
}

// NvalValue returns the stored value of an NVAL register
func (d *Device) NvalValue(id uint16) (int, bool) {
	return d.nval.Get(id)
}

// Buttons returns the button map sorted by mode, button and press type
func (d *Device) Buttons() []metawatch.ButtonConfig {
	out := make([]metawatch.ButtonConfig, 0, len(d.buttons))
	for _, c := range d.buttons {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].ButtonKey, out[j].ButtonKey
		if a.Mode != b.Mode {
			return a.Mode < b.Mode
		}
		if a.Button != b.Button {
			return a.Button < b.Button
		}
		return a.Press < b.Press
	})
	return out
}

// ModeTimeoutPending reports whether an auto-revert to Idle is scheduled
func (d *Device) ModeTimeoutPending() bool {
	return d.modeTimer.Active()
}

// Snapshot is an immutable copy of the device state for renderers
type Snapshot struct {
	Mode               metawatch.Mode
	Buffers            [metawatch.NumModes]*Framebuffer
	LED                bool
	Vibrating          bool
	Clock              time.Time
	Nval               map[uint16]int
	Buttons            []metawatch.ButtonConfig
	ModeTimeoutPending bool
}

// Snapshot copies the current state
func (d *Device) Snapshot() Snapshot {
	s := Snapshot{
		Mode:               d.mode,
		LED:                d.led,
		Vibrating:          d.vibrating,
		Clock:              d.Clock(),
		Nval:               d.nval.Values(),
		Buttons:            d.Buttons(),
		ModeTimeoutPending: d.modeTimer.Active(),
	}
	for i, fb := range d.buffers {
		s.Buffers[i] = fb.Clone()
	}
	return s
}

//////////////////////////////////////////////////////////////
// Buttons
//////////////////////////////////////////////////////////////

// ClassifyPress turns a held duration into a press type. Durations at or
// below the hold threshold, zero included, are Immediate.
func ClassifyPress(held, hold, longHold time.Duration) metawatch.PressType {
	switch {
	case held == 0:
		return metawatch.PressImmediate
	case held > longHold:
		return metawatch.PressLongHold
	case held > hold:
		return metawatch.PressHold
	default:
		return metawatch.PressImmediate
	}
}

// Press simulates a physical press of button held for the given duration.
// It reports whether a mapping matched and a buttonEvent was sent.
func (d *Device) Press(button uint8, held time.Duration) bool {
	key := metawatch.ButtonKey{
		Mode:   d.mode,
		Button: button,
		Press:  ClassifyPress(held, d.opts.HoldThreshold, d.opts.LongHoldThreshold),
	}
	log := d.log.WithFields(logrus.Fields{
		"mode":   key.Mode.String(),
		"button": key.Button,
		"press":  key.Press.String(),
	})

	c, ok := d.buttons[key]
	if !ok {
		log.Debug("no button mapping")
		return false
	}

	log.WithField("callback", c.CallbackData).Info("button event")
	d.send(metawatch.NewButtonEvent(c.CallbackData))
	d.notify(Event{Kind: EventButtonSent, Mode: d.mode})
	return true
}

// EnableButton stores or replaces the mapping for c's key
func (d *Device) EnableButton(c metawatch.ButtonConfig) error {
	d.buttons[c.ButtonKey] = c
	d.log.WithField("button", c.ButtonKey.String()).Debug("button enabled")
	return nil
}

// DisableButton removes the mapping for k. A missing mapping is not an error.
func (d *Device) DisableButton(k metawatch.ButtonKey) error {
	if _, ok := d.buttons[k]; !ok {
		d.log.WithField("button", k.String()).Info("disable of unmapped button")
		return nil
	}
	delete(d.buttons, k)
	d.log.WithField("button", k.String()).Debug("button disabled")
	return nil
}

//////////////////////////////////////////////////////////////
// Display
//////////////////////////////////////////////////////////////

// WriteLCD draws rows into the buffer of the message's mode
func (d *Device) WriteLCD(w metawatch.LCDWrite) error {
	fb := d.buffers[w.Mode]
	for _, row := range w.Rows {
		fb.SetRow(row)
	}
	if w.Mode == d.mode {
		d.notify(Event{Kind: EventBufferChanged, Mode: w.Mode})
	}
	return nil
}

// UpdateLCD activates mode. Application and Notification revert to Idle after
// the timeout held in their NVAL register; zero disables the revert.
func (d *Device) UpdateLCD(mode metawatch.Mode) error {
	d.modeTimer.Cancel()
	d.setMode(mode)

	var reg uint16
	switch mode {
	case metawatch.ModeApplication:
		reg = metawatch.NvalApplicationTimeout
	case metawatch.ModeNotification:
		reg = metawatch.NvalNotificationTimeout
	default:
		return nil
	}

	secs, _ := d.nval.Get(reg)
	if secs <= 0 {
		return nil
	}
	d.modeTimer.Schedule(time.Duration(secs)*time.Second, func() {
		d.log.WithField("mode", mode.String()).Debug("mode timed out")
		d.setMode(metawatch.ModeIdle)
	})
	return nil
}

func (d *Device) setMode(mode metawatch.Mode) {
	d.mode = mode
	d.log.WithField("mode", mode.String()).Debug("mode changed")
	d.notify(Event{Kind: EventModeChanged, Mode: mode})
}

//////////////////////////////////////////////////////////////
// Indicators
//////////////////////////////////////////////////////////////

// SetLED lights or clears the LED. A lit LED goes out after LEDTimeout.
func (d *Device) SetLED(on bool) error {
	d.ledTimer.Cancel()
	d.setLED(on)
	if on && d.opts.LEDTimeout > 0 {
		d.ledTimer.Schedule(d.opts.LEDTimeout, func() {
			d.setLED(false)
		})
	}
	return nil
}

func (d *Device) setLED(on bool) {
	if d.led == on {
		return
	}
	d.led = on
	d.notify(Event{Kind: EventLEDChanged, Mode: d.mode, On: on})
}

// SetVibrate starts a vibration pattern, or stops the current one when the
// action byte is zero. The firmware runs two more phases than it is asked
// for, so a pattern flips the indicator Cycles+2 times and then clears it.
func (d *Device) SetVibrate(v metawatch.Vibration) error {
	d.vibTimer.Cancel()
	if !v.Action {
		d.vib = vibration{}
		d.setVibrating(false)
		return nil
	}

	d.vib = vibration{
		remaining: int(v.Cycles) + 2,
		on:        v.On,
		off:       v.Off,
	}
	d.setVibrating(false)
	d.flipVibration()
	return nil
}

func (d *Device) flipVibration() {
	if d.vib.remaining == 0 {
		d.setVibrating(false)
		return
	}
	d.vib.remaining--
	d.setVibrating(!d.vibrating)

	phase := d.vib.off
	if d.vibrating {
		phase = d.vib.on
	}
	d.vibTimer.Schedule(phase, d.flipVibration)
}

func (d *Device) setVibrating(on bool) {
	if d.vibrating == on {
		return
	}
	d.vibrating = on
	d.notify(Event{Kind: EventVibrationChanged, Mode: d.mode, On: on})
}

//////////////////////////////////////////////////////////////
// Queries
//////////////////////////////////////////////////////////////

// GetDeviceType answers with the configured device type
func (d *Device) GetDeviceType() error {
	d.send(metawatch.NewDeviceTypeResponse(d.opts.DeviceType))
	return nil
}

// ReadBatteryVoltage answers with the configured battery state
func (d *Device) ReadBatteryVoltage() error {
	d.send(metawatch.NewBatteryVoltageResponse(d.opts.Battery))
	return nil
}

// ReadLightSense answers with the configured light level
func (d *Device) ReadLightSense() error {
	d.send(metawatch.NewLightSenseResponse(d.opts.LightLevel))
	return nil
}

//////////////////////////////////////////////////////////////
// Clock
//////////////////////////////////////////////////////////////

// SetRTC moves the simulated clock to r. The optional format bytes update
// the time and date format registers.
func (d *Device) SetRTC(r metawatch.RTC) error {
	target := r.Time(d.opts.Location)
	d.clockSet = true
	d.clockBase = target
	d.clockRef = d.opts.Scheduler.Now()
	d.log.WithField("time", target.Format(time.DateTime)).Debug("clock set")
	d.notify(Event{Kind: EventClockChanged, Mode: d.mode})

	if r.HasFormat {
		timeFormat := metawatch.TimeFormat24h
		if r.Hours12 {
			timeFormat = metawatch.TimeFormat12h
		}
		dateFormat := metawatch.DateMonthFirst
		if r.DayFirst {
			dateFormat = metawatch.DateDayFirst
		}
		d.nval.Set(metawatch.NvalTimeFormat, timeFormat)
		d.nval.Set(metawatch.NvalDateFormat, dateFormat)
		d.notify(Event{Kind: EventNvalChanged, Mode: d.mode})
	}
	return nil
}

// GetRTC answers with the simulated clock and the display format registers
func (d *Device) GetRTC() error {
	r := metawatch.RTCFromTime(d.Clock())
	timeFormat, _ := d.nval.Get(metawatch.NvalTimeFormat)
	dateFormat, _ := d.nval.Get(metawatch.NvalDateFormat)
	r.HasFormat = true
	r.Hours12 = timeFormat == metawatch.TimeFormat12h
	r.DayFirst = dateFormat == metawatch.DateDayFirst

	d.send(metawatch.NewRTCResponse(r))
	return nil
}

//////////////////////////////////////////////////////////////
// NVAL
//////////////////////////////////////////////////////////////

// maxNvalSize is the widest value the store keeps
const maxNvalSize = 4

// Nval runs an init, read or write operation and answers with nvalResponse
func (d *Device) Nval(op metawatch.NvalOp) error {
	if op.Op == metawatch.NvalOpInit {
		d.nval.Reset()
		d.log.Info("nval store reset to defaults")
		d.notify(Event{Kind: EventNvalChanged, Mode: d.mode})
		d.send(metawatch.NewNvalResponse(metawatch.NvalStatusOK, 0, nil))
		return nil
	}

	log := d.log.WithField("nval", op.ID)

	reg, ok := metawatch.LookupNval(op.ID)
	if !ok {
		log.Info("nval access to unknown register")
		d.send(metawatch.NewNvalResponse(metawatch.NvalStatusUnknownID, op.ID, nil))
		return nil
	}

	size := int(op.Size)
	if size == 0 && op.Op == metawatch.NvalOpRead {
		size = reg.Size
	}
	badValue := op.Op == metawatch.NvalOpWrite && len(op.Value) != size
	if size == 0 || size > maxNvalSize || (reg.Size != 0 && size != reg.Size) || badValue {
		log.WithField("size", op.Size).Info("nval size mismatch")
		d.send(metawatch.NewNvalResponse(metawatch.NvalStatusBadSize, op.ID, nil))
		return nil
	}

	switch op.Op {
	case metawatch.NvalOpRead:
		v, _ := d.nval.Get(op.ID)
		d.send(metawatch.NewNvalValueResponse(op.ID, v, size))

	case metawatch.NvalOpWrite:
		d.nval.Set(op.ID, op.Uint())
		log.WithField("value", reg.FormatValue(op.Uint())).Debug("nval written")
		d.notify(Event{Kind: EventNvalChanged, Mode: d.mode})
		d.send(metawatch.NewNvalResponse(metawatch.NvalStatusOK, op.ID, nil))
	}
	return nil
}
