package emu

import (
	"fmt"
	"log"

	"github.com/user-none/go-chip-m68k"
	"github.com/user-none/go-chip-z80"
)

// CPUFault describes a CPU that stopped executing. The 68000 halts on a
// double bus fault or an address error; the emulator keeps producing frames
// so the host can report it.
type CPUFault struct {
	CPU    string
	PC     uint32
	Opcode uint16
	Cycle  uint64
}

func (f *CPUFault) Error() string {
	return fmt.Sprintf("%s halted at PC=%06X opcode=%04X cycle=%d", f.CPU, f.PC, f.Opcode, f.Cycle)
}

// MainCPU drives the 68000 from the master clock. It gives up its bus to
// the arbiter while a DMA or Z80 bank access stall is in progress.
type MainCPU struct {
	cpu   *m68k.CPU
	arb   *Arbiter
	fault *CPUFault

	// afterStep runs after every instruction so the VDP can raise
	// interrupts and start DMA stalls mid-scanline.
	afterStep func()

	lastRun int // cycles consumed by the last Run
}

// NewMainCPU wraps an m68k core.
func NewMainCPU(cpu *m68k.CPU, arb *Arbiter) *MainCPU {
	return &MainCPU{cpu: cpu, arb: arb}
}

// SetAfterStep installs the per-instruction hook.
func (c *MainCPU) SetAfterStep(fn func()) {
	c.afterStep = fn
}

// Step executes one instruction (or interrupt entry) and returns the cycles
// it took. A stalled CPU burns one stall cycle instead.
func (c *MainCPU) Step() int {
	if c.arb.MainStalled() {
		n := c.arb.ConsumeStall(1)
		c.cpu.AddCycles(uint64(n))
		return n
	}
	n := c.cpu.Step()
	if n == 0 {
		c.halt()
	}
	return n
}

// Run executes for the given number of 68K cycles. Instructions that run
// past the budget are paid back at the start of the next call.
func (c *MainCPU) Run(cycles int) {
	budget := cycles
	for budget > 0 {
		if c.arb.MainStalled() {
			n := c.arb.ConsumeStall(budget)
			c.cpu.AddCycles(uint64(n))
			budget -= n
			continue
		}
		consumed := c.cpu.StepCycles(budget)
		if consumed == 0 {
			c.halt()
			// A halted CPU still lets the rest of the machine run.
			c.cpu.AddCycles(uint64(budget))
			budget = 0
			break
		}
		budget -= consumed
		if c.afterStep != nil {
			c.afterStep()
		}
	}
	c.lastRun = cycles - budget
}

func (c *MainCPU) halt() {
	if c.fault != nil || !c.cpu.Halted() {
		return
	}
	regs := c.cpu.Registers()
	c.fault = &CPUFault{
		CPU:    "m68k",
		PC:     regs.PC,
		Opcode: regs.IR,
		Cycle:  c.cpu.Cycles(),
	}
	log.Printf("[emu] %v", c.fault)
}

// SetIRQ latches an interrupt at the given priority level. The CPU checks
// it against its mask before the next instruction.
func (c *MainCPU) SetIRQ(level uint8) {
	if level > 0 {
		c.cpu.RequestInterrupt(level, nil)
	}
}

// Cycles returns the 68K cycle counter.
func (c *MainCPU) Cycles() uint64 {
	return c.cpu.Cycles()
}

// Fault returns the halt diagnostic, or nil while the CPU is running.
func (c *MainCPU) Fault() *CPUFault {
	return c.fault
}

// SoundCPU drives the Z80 from the master clock. It only executes while the
// arbiter reports the Z80 bus free and the reset line released.
type SoundCPU struct {
	cpu *z80.CPU
	arb *Arbiter

	// The V-blank INT is held until the Z80 acknowledges it, seen as IFF1
	// falling while the line is asserted. This keeps INT pending through
	// bus holds and DI sections without firing twice once the handler
	// re-enables interrupts.
	intPending bool
}

// NewSoundCPU wraps a z80 core.
func NewSoundCPU(cpu *z80.CPU, arb *Arbiter) *SoundCPU {
	return &SoundCPU{cpu: cpu, arb: arb}
}

// AssertINT raises the Z80 interrupt line until acknowledged.
func (c *SoundCPU) AssertINT() {
	c.intPending = true
	c.cpu.INT(true, 0xFF)
}

// Step executes one instruction when the Z80 may run.
func (c *SoundCPU) Step() int {
	if c.arb.TakeResetPending() {
		c.cpu.Reset()
	}
	if !c.arb.SoundRunnable() {
		return 0
	}
	prevIFF1 := c.intPending && c.cpu.Registers().IFF1
	n := c.cpu.Step()
	c.checkAck(prevIFF1)
	return n
}

// Run executes for the given number of Z80 cycles. Cycles that elapse while
// the Z80 is held are dropped, as the real chip is simply stopped.
func (c *SoundCPU) Run(cycles int) {
	if c.arb.TakeResetPending() {
		c.cpu.Reset()
	}
	if !c.arb.SoundRunnable() {
		return
	}
	budget := cycles
	for budget > 0 {
		prevIFF1 := c.intPending && c.cpu.Registers().IFF1
		consumed := c.cpu.StepCycles(budget)
		if consumed == 0 {
			break
		}
		budget -= consumed
		c.checkAck(prevIFF1)
	}
}

func (c *SoundCPU) checkAck(prevIFF1 bool) {
	if prevIFF1 && !c.cpu.Registers().IFF1 {
		c.intPending = false
		c.cpu.INT(false, 0xFF)
	}
}
