// Package clock implements the master-cycle scheduler that keeps the
// independently clocked chips of a console on one deterministic timeline.
//
// Every chip in a Sega console is driven from a single master oscillator
// through an integer divider (the 68000 runs at master/7, the Z80 and PSG
// at master/15). The scheduler advances the master count and hands each
// attached device the whole number of its own cycles that elapsed, carrying
// the remainder so nothing is lost to truncation. Devices run in the order
// they were attached, which fixes the order of bus traffic within a batch.
package clock

import (
	"encoding/binary"
	"errors"
)

// Device is a chip driven by the master clock.
type Device interface {
	// Run advances the device by the given number of its own cycles.
	Run(cycles int)
}

// DeviceFunc adapts an ordinary function to the Device interface.
type DeviceFunc func(cycles int)

// Run calls f(cycles).
func (f DeviceFunc) Run(cycles int) { f(cycles) }

type slot struct {
	dev     Device
	divider uint64
	rem     uint64 // master cycles not yet converted to device cycles
	cycles  uint64 // device cycles delivered since reset
}

// Clock is the master cycle counter and device scheduler.
type Clock struct {
	masterHz  int
	fps       int
	scanlines int

	// A scanline is masterHz / (fps*scanlines) master cycles, which is not
	// an integer for any supported region. lineRem carries the remainder
	// of that division between lines.
	lineDen uint64
	lineRem uint64

	cycle uint64
	slots []slot
}

// New creates a scheduler for a master oscillator of masterHz that
// produces fps frames of the given number of scanlines each second.
func New(masterHz, fps, scanlines int) *Clock {
	c := &Clock{}
	c.SetTiming(masterHz, fps, scanlines)
	return c
}

// SetTiming changes the oscillator and frame geometry. Device phase and
// counters are preserved.
func (c *Clock) SetTiming(masterHz, fps, scanlines int) {
	c.masterHz = masterHz
	c.fps = fps
	c.scanlines = scanlines
	c.lineDen = uint64(fps) * uint64(scanlines)
	c.lineRem = 0
}

// Attach registers a device that runs at masterHz/divider. Devices are
// stepped in attach order. Attach returns the device's index.
func (c *Clock) Attach(dev Device, divider int) int {
	if divider < 1 {
		divider = 1
	}
	c.slots = append(c.slots, slot{dev: dev, divider: uint64(divider)})
	return len(c.slots) - 1
}

// Advance moves the timeline forward by n master cycles, running every
// attached device for the device cycles that became due.
func (c *Clock) Advance(n int) {
	if n <= 0 {
		return
	}
	c.cycle += uint64(n)
	for i := range c.slots {
		s := &c.slots[i]
		total := s.rem + uint64(n)
		due := total / s.divider
		s.rem = total % s.divider
		if due == 0 {
			continue
		}
		s.cycles += due
		s.dev.Run(int(due))
	}
}

// LineCycles returns the master cycle count of the next scanline without
// consuming it.
func (c *Clock) LineCycles() int {
	return int((c.lineRem + uint64(c.masterHz)) / c.lineDen)
}

// StepLine advances by one scanline and returns the master cycles it
// covered.
func (c *Clock) StepLine() int {
	n := c.NextLine()
	c.Advance(n)
	return n
}

// NextLine takes one scanline off the line accumulator and returns its
// length in master cycles without advancing. The caller is expected to
// Advance through exactly that many cycles, typically in segments
// separated by mid-line events.
func (c *Clock) NextLine() int {
	total := c.lineRem + uint64(c.masterHz)
	c.lineRem = total % c.lineDen
	return int(total / c.lineDen)
}

// Due returns how many cycles device i will receive from an advance of n
// master cycles.
func (c *Clock) Due(i, n int) int {
	s := c.slots[i]
	return int((s.rem + uint64(n)) / s.divider)
}

// Cycle returns the master cycles elapsed since reset.
func (c *Clock) Cycle() uint64 {
	return c.cycle
}

// DeviceCycles returns the device cycles delivered to device i since reset.
func (c *Clock) DeviceCycles(i int) uint64 {
	return c.slots[i].cycles
}

// Devices returns the number of attached devices.
func (c *Clock) Devices() int {
	return len(c.slots)
}

// Reset rewinds the timeline to zero. Attached devices are kept.
func (c *Clock) Reset() {
	c.cycle = 0
	c.lineRem = 0
	for i := range c.slots {
		c.slots[i].rem = 0
		c.slots[i].cycles = 0
	}
}

// SerializeSize returns the number of bytes Serialize writes.
func (c *Clock) SerializeSize() int {
	return 1 + 8 + 8 + len(c.slots)*16
}

const serializeVersion = 1

// Serialize writes the scheduler state into buf.
func (c *Clock) Serialize(buf []byte) error {
	if len(buf) < c.SerializeSize() {
		return errors.New("clock: serialize buffer too small")
	}
	buf[0] = serializeVersion
	binary.LittleEndian.PutUint64(buf[1:], c.cycle)
	binary.LittleEndian.PutUint64(buf[9:], c.lineRem)
	off := 17
	for _, s := range c.slots {
		binary.LittleEndian.PutUint64(buf[off:], s.rem)
		binary.LittleEndian.PutUint64(buf[off+8:], s.cycles)
		off += 16
	}
	return nil
}

// Deserialize restores state written by Serialize. The same devices must
// already be attached.
func (c *Clock) Deserialize(buf []byte) error {
	if len(buf) < c.SerializeSize() {
		return errors.New("clock: deserialize buffer too small")
	}
	if buf[0] != serializeVersion {
		return errors.New("clock: unsupported serialize version")
	}
	lineRem := binary.LittleEndian.Uint64(buf[9:])
	if lineRem >= c.lineDen {
		return errors.New("clock: line remainder out of range")
	}
	for i := range c.slots {
		if binary.LittleEndian.Uint64(buf[17+i*16:]) >= c.slots[i].divider {
			return errors.New("clock: device remainder out of range")
		}
	}

	c.cycle = binary.LittleEndian.Uint64(buf[1:])
	c.lineRem = lineRem
	off := 17
	for i := range c.slots {
		c.slots[i].rem = binary.LittleEndian.Uint64(buf[off:])
		c.slots[i].cycles = binary.LittleEndian.Uint64(buf[off+8:])
		off += 16
	}
	return nil
}
