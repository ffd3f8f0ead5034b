// Package gomidi connects live MIDI input devices to the engine through the
// RtMidi driver. It needs cgo.
package gomidi

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

type (
	// RTMIDIContext receives messages from one open input device and hands
	// them to the engine as an engine.ProcessContext. Messages are collected
	// on the driver's goroutine and read on the audio thread; every message
	// that arrived before a block started is delivered in that block.
	RTMIDIContext struct {
		driver       *rtmididrv.Driver
		currentIn    drivers.In
		stop         func()
		inputDevices []RTMIDIDevice
		events       chan midi.Message
		pending      int
		dropped      atomic.Uint64
	}

	RTMIDIDevice struct {
		context *RTMIDIContext
		in      drivers.In
	}
)

var ErrNoDriver = errors.New("no MIDI driver available")

// NewContext opens the driver. If the driver cannot be opened, the context
// is still usable but has no devices.
func NewContext() *RTMIDIContext {
	m := RTMIDIContext{events: make(chan midi.Message, 1024)}
	m.driver, _ = rtmididrv.New()
	return &m
}

// InputDevices yields the input devices of the driver.
func (m *RTMIDIContext) InputDevices(yield func(RTMIDIDevice) bool) {
	if m.inputDevices == nil && m.driver != nil {
		ins, err := m.driver.Ins()
		if err != nil {
			return
		}
		for _, in := range ins {
			m.inputDevices = append(m.inputDevices, RTMIDIDevice{context: m, in: in})
		}
	}
	for _, device := range m.inputDevices {
		if !yield(device) {
			return
		}
	}
}

// Open the input device, closing the currently open one if necessary.
func (d RTMIDIDevice) Open() error {
	c := d.context
	if c.currentIn == d.in {
		return nil
	}
	if c.driver == nil {
		return ErrNoDriver
	}
	c.closeInput()
	if err := d.in.Open(); err != nil {
		return fmt.Errorf("opening MIDI input failed: %w", err)
	}
	stop, err := midi.ListenTo(d.in, c.HandleMessage)
	if err != nil {
		d.in.Close()
		return fmt.Errorf("listening to MIDI input failed: %w", err)
	}
	c.currentIn, c.stop = d.in, stop
	return nil
}

func (d RTMIDIDevice) String() string {
	return d.in.String()
}

// TryToOpenBy opens the first device whose name starts with namePrefix, or
// the first device at all if takeFirst is set.
func (c *RTMIDIContext) TryToOpenBy(namePrefix string, takeFirst bool) error {
	if namePrefix == "" && !takeFirst {
		return nil
	}
	for input := range c.InputDevices {
		if takeFirst || strings.HasPrefix(input.String(), namePrefix) {
			return input.Open()
		}
	}
	if takeFirst {
		return errors.New("could not find any MIDI input")
	}
	return fmt.Errorf("could not find a MIDI input starting with %q", namePrefix)
}

func (c *RTMIDIContext) HasDeviceOpen() bool {
	return c.currentIn != nil && c.currentIn.IsOpen()
}

// HandleMessage queues a message for the next block. If the queue is full,
// the message is dropped.
func (c *RTMIDIContext) HandleMessage(msg midi.Message, timestampms int32) {
	select {
	case c.events <- msg:
	default:
		c.dropped.Add(1)
	}
}

// NextEvent returns the messages that were queued when the block started.
// Messages arriving while the block is being processed wait for the next
// one.
func (c *RTMIDIContext) NextEvent() (midi.Message, bool) {
	if c.pending == 0 {
		c.pending = len(c.events) + 1
	}
	c.pending--
	if c.pending == 0 {
		return nil, false
	}
	return <-c.events, true
}

// Dropped returns how many messages were lost because the engine did not
// keep up.
func (c *RTMIDIContext) Dropped() uint64 {
	return c.dropped.Load()
}

func (c *RTMIDIContext) Close() {
	if c.driver == nil {
		return
	}
	c.closeInput()
	c.driver.Close()
}

func (c *RTMIDIContext) closeInput() {
	if c.stop != nil {
		c.stop()
		c.stop = nil
	}
	if c.HasDeviceOpen() {
		c.currentIn.Close()
	}
	c.currentIn = nil
}
