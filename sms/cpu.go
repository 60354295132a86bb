package sms

import (
	"errors"

	"github.com/user-none/go-chip-z80"
)

// CPU drives the Z80 from the master clock and keeps the VDP's H counter
// and the INT line current around every instruction.
type CPU struct {
	cpu *z80.CPU
	vdp *VDP

	// lineCycle is the position within the current scanline.
	lineCycle int
}

// NewCPU wraps a z80 core.
func NewCPU(cpu *z80.CPU, vdp *VDP) *CPU {
	return &CPU{cpu: cpu, vdp: vdp}
}

// BeginLine restarts the scanline position.
func (c *CPU) BeginLine() {
	c.lineCycle = 0
}

// UpdateIRQ drives INT from the VDP. The line is level triggered, so
// enabling an interrupt over a pending flag asserts it at once and a
// status read drops it.
func (c *CPU) UpdateIRQ() {
	c.cpu.INT(c.vdp.InterruptPending(), 0xFF)
}

// NMI pulses the non-maskable interrupt (the pause button).
func (c *CPU) NMI() {
	c.cpu.NMI()
}

// Step executes one instruction and returns its cycles.
func (c *CPU) Step() int {
	c.vdp.SetHCounter(HCounterForCycle(c.lineCycle))
	n := c.cpu.Step()
	c.lineCycle += n
	c.UpdateIRQ()
	return n
}

// Run executes for the given number of Z80 cycles. An instruction that
// overruns the budget leaves a deficit in the z80 core, which is paid
// from the next Run before anything else executes.
func (c *CPU) Run(cycles int) {
	for budget := cycles; budget > 0; {
		c.vdp.SetHCounter(HCounterForCycle(c.lineCycle))
		n := c.cpu.StepCycles(budget)
		if n <= 0 {
			break
		}
		c.lineCycle += n
		budget -= n
		c.UpdateIRQ()
	}
}

// The z80 state carries the deficit.
const cpuSerializeSize = z80.SerializeSize

// Serialize writes the Z80 registers.
func (c *CPU) Serialize(buf []byte) error {
	if len(buf) < cpuSerializeSize {
		return errors.New("cpu: serialize buffer too small")
	}
	return c.cpu.Serialize(buf)
}

// Deserialize restores state written by Serialize.
func (c *CPU) Deserialize(buf []byte) error {
	if len(buf) < cpuSerializeSize {
		return errors.New("cpu: deserialize buffer too small")
	}
	return c.cpu.Deserialize(buf)
}
