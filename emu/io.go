package emu

import emucore "github.com/user-none/eblitui/api"

// Genesis pad buttons in the eblitui input bitmask. Bits 0-3 are the
// d-pad (emucore.ButtonUp..ButtonRight).
const (
	ButtonA     = 4
	ButtonB     = 5
	ButtonC     = 6
	ButtonStart = 7
	ButtonX     = 8
	ButtonY     = 9
	ButtonZ     = 10
	ButtonMode  = 11
)

// sixButtonTimeoutCycles is the number of M68K cycles (~1.5ms at 7.67MHz)
// after which the 6-button state counter resets to 0. The real hardware uses
// an RC circuit, so this is approximate. The same value works for both
// NTSC and PAL since the difference is negligible (~100 cycles).
const sixButtonTimeoutCycles uint64 = 11506

// Controller is a pad plugged into one of the two front ports, together
// with the port's data and control registers.
type Controller struct {
	Connected bool // a pad is plugged in
	SixButton bool // 6-button pad, otherwise 3-button

	buttons uint32 // eblitui bitmask, 1 = pressed

	data byte // data register (output values)
	ctrl byte // control register (1=output, 0=input)

	// 6-button state machine, advanced by TH edges.
	thState    uint8
	lastTHHigh bool
	lastCycle  uint64
}

func newController(connected bool) Controller {
	return Controller{
		Connected:  connected,
		SixButton:  true,
		lastTHHigh: true, // TH pulled high at power-on
	}
}

// SetButtons replaces the pressed-button mask.
func (c *Controller) SetButtons(buttons uint32) {
	c.buttons = buttons
}

func (c *Controller) pressed(bit int) bool {
	return c.buttons&(1<<bit) != 0
}

// th returns the level of the TH pin: the data register when configured as
// an output, pulled high otherwise.
func (c *Controller) th() bool {
	if c.ctrl&0x40 != 0 {
		return c.data&0x40 != 0
	}
	return true
}

func (c *Controller) timedOut(cycle uint64) bool {
	return cycle > 0 && c.lastCycle > 0 && cycle-c.lastCycle >= sixButtonTimeoutCycles
}

func (c *Controller) writeData(cycle uint64, val byte) {
	c.data = val
	if !c.SixButton || !c.Connected {
		return
	}
	newTH := c.th()
	if newTH == c.lastTHHigh {
		return
	}
	// After a timeout TH idles high, so the first TH=1 write that follows
	// is not an edge and state 0 stays aligned with TH=1 reads.
	if c.timedOut(cycle) {
		c.thState = 0
		c.lastTHHigh = true
	}
	if newTH != c.lastTHHigh {
		c.thState = (c.thState + 1) & 0x07
		c.lastTHHigh = newTH
		c.lastCycle = cycle
	}
}

// padLine describes one multiplexed read: which button drives each of the
// six data pins, or -1 for a pin forced low, or -2 for a pin forced high.
type padLine [6]int

const (
	pinLow  = -1
	pinHigh = -2
)

// The 6-button pad cycles through eight states on TH transitions:
//
//	State 0,2,4 (TH=1): C, B, Right, Left, Down, Up
//	State 1,3   (TH=0): Start, A, 0, 0, Down, Up
//	State 5     (TH=0): Start, A, 0, 0, 0, 0  (detection: bits 3-0 all zero)
//	State 6     (TH=1): C, B, Mode, X, Y, Z    (extra buttons)
//	State 7     (TH=0): Start, A, 1, 1, 1, 1   (end marker)
//
// Lines are listed from bit 0 upward.
var (
	lineTHHigh = padLine{emucore.ButtonUp, emucore.ButtonDown, emucore.ButtonLeft, emucore.ButtonRight, ButtonB, ButtonC}
	lineTHLow  = padLine{emucore.ButtonUp, emucore.ButtonDown, pinLow, pinLow, ButtonA, ButtonStart}
	lineDetect = padLine{pinLow, pinLow, pinLow, pinLow, ButtonA, ButtonStart}
	lineExtra  = padLine{ButtonZ, ButtonY, ButtonX, ButtonMode, ButtonB, ButtonC}
	lineEnd    = padLine{pinHigh, pinHigh, pinHigh, pinHigh, ButtonA, ButtonStart}

	sixButtonLines = [8]padLine{
		lineTHHigh, lineTHLow, lineTHHigh, lineTHLow,
		lineTHHigh, lineDetect, lineExtra, lineEnd,
	}
)

func (c *Controller) lineValue(l padLine) byte {
	var v byte = 0xC0 // bits 7,6 pulled high
	for bit, src := range l {
		switch {
		case src == pinLow:
		case src == pinHigh:
			v |= 1 << bit
		case !c.pressed(src):
			v |= 1 << bit // active low
		}
	}
	return v
}

func (c *Controller) readData(cycle uint64) byte {
	if !c.Connected {
		return (c.data & c.ctrl) | (0xFF &^ c.ctrl)
	}

	var line padLine
	if c.SixButton {
		if c.timedOut(cycle) {
			c.thState = 0
			c.lastTHHigh = true
		}
		line = sixButtonLines[c.thState]
	} else if c.th() {
		line = lineTHHigh
	} else {
		line = lineTHLow
	}
	return (c.data & c.ctrl) | (c.lineValue(line) &^ c.ctrl)
}

// IO is the Genesis I/O chip: version register and two controller ports.
type IO struct {
	Ports   [2]Controller
	console ConsoleRegion
	pal     bool
}

// NewIO creates the I/O chip with a pad in each port.
func NewIO(console ConsoleRegion, pal bool) *IO {
	return &IO{
		Ports:   [2]Controller{newController(true), newController(true)},
		console: console,
		pal:     pal,
	}
}

// SetPAL updates the PAL bit of the version register.
func (io *IO) SetPAL(pal bool) {
	io.pal = pal
}

// SetConsole overrides the console identity reported to the game.
func (io *IO) SetConsole(c ConsoleRegion) {
	io.console = c
}

func (io *IO) version() byte {
	// bit 7 overseas, bit 6 PAL, bit 5 no expansion unit, bits 3-0 revision
	val := io.console.versionBits() | 0x20
	if io.pal {
		val |= 0x40
	}
	return val
}

// ReadRegister reads an I/O register by address.
// cycle is the current M68K cycle count, used for 6-button timeout detection.
func (io *IO) ReadRegister(cycle uint64, addr uint32) byte {
	switch addr & 0x1F {
	case 0x01:
		return io.version()
	case 0x03:
		return io.Ports[0].readData(cycle)
	case 0x05:
		return io.Ports[1].readData(cycle)
	case 0x09:
		return io.Ports[0].ctrl
	case 0x0B:
		return io.Ports[1].ctrl
	}
	return 0x00
}

// WriteRegister writes an I/O register by address.
func (io *IO) WriteRegister(cycle uint64, addr uint32, val byte) {
	switch addr & 0x1F {
	case 0x03:
		io.Ports[0].writeData(cycle, val)
	case 0x05:
		io.Ports[1].writeData(cycle, val)
	case 0x09:
		io.Ports[0].ctrl = val
	case 0x0B:
		io.Ports[1].ctrl = val
	}
}
