package emu

import (
	"encoding/binary"

	"github.com/user-none/emsega/savestate"
)

// BusOwner identifies the master currently driving the 68K bus.
type BusOwner uint8

const (
	OwnerMain  BusOwner = iota // 68000 runs normally
	OwnerSound                 // Z80 is accessing the 68K bank window
	OwnerDMA                   // VDP is transferring from 68K memory
)

func (o BusOwner) String() string {
	switch o {
	case OwnerMain:
		return "main"
	case OwnerSound:
		return "sound"
	case OwnerDMA:
		return "dma"
	}
	return "unknown"
}

// z80BankStallCycles is how long a Z80 access to the 68K bank window
// holds the 68K off its bus, in 68K cycles.
const z80BankStallCycles = 3

// Arbiter decides which device may use the 68K bus and whether the Z80
// may run. Every bus path consults it; no other component tracks bus
// ownership.
//
// Two independent pieces of state live here:
//
//   - owner and stall: who holds the 68K bus. The VDP (DMA) and the Z80
//     (bank window access) take the bus from the 68K for a number of 68K
//     cycles given by the caller. While stall > 0 the 68K performs no
//     decode.
//   - busReq and reset: the 68K's hold on the Z80 bus ($A11100) and the
//     Z80 reset line ($A11200). The Z80 runs only when neither is
//     asserted.
//
// A Z80 request for the 68K bus that arrives while DMA owns it is latched
// and granted when the DMA stall ends.
type Arbiter struct {
	owner BusOwner
	stall int

	deferredSound int // 68K cycles owed to Z80 accesses made during DMA

	busReq       bool // 68K holds the Z80 bus
	reset        bool // Z80 reset line asserted
	resetPending bool // reset released since the Z80 last ran
}

// NewArbiter returns an arbiter in the power-on state: 68K owns its bus,
// the Z80 is held in reset.
func NewArbiter() *Arbiter {
	return &Arbiter{reset: true}
}

// Owner returns the current master of the 68K bus.
func (a *Arbiter) Owner() BusOwner {
	return a.owner
}

// MainStalled reports whether the 68K is currently held off its bus.
func (a *Arbiter) MainStalled() bool {
	return a.stall > 0
}

// StallRemaining returns the 68K cycles left before the bus returns to the 68K.
func (a *Arbiter) StallRemaining() int {
	return a.stall
}

// BeginDMA hands the 68K bus to the VDP for the given number of 68K cycles.
// A DMA started while another stall is active extends it.
func (a *Arbiter) BeginDMA(cycles int) {
	if cycles <= 0 {
		return
	}
	if a.owner == OwnerSound {
		// The Z80 access completes first; carry its remaining time over.
		a.deferredSound += a.stall
		a.stall = 0
	}
	a.owner = OwnerDMA
	a.stall += cycles
}

// RequestFromSound is called by the Z80 side before it touches the 68K bank
// window. It returns false when DMA holds the bus; the access is then
// latched and charged to the 68K once the DMA ends.
func (a *Arbiter) RequestFromSound() bool {
	if a.owner == OwnerDMA {
		a.deferredSound += z80BankStallCycles
		return false
	}
	a.owner = OwnerSound
	a.stall += z80BankStallCycles
	return true
}

// ConsumeStall burns up to budget 68K cycles of an active stall and returns
// the number consumed. When the stall runs out, ownership returns to the
// 68K, or passes to the Z80 if it made requests during a DMA.
func (a *Arbiter) ConsumeStall(budget int) int {
	if a.stall <= 0 || budget <= 0 {
		return 0
	}
	n := budget
	if n > a.stall {
		n = a.stall
	}
	a.stall -= n
	if a.stall == 0 {
		a.release()
	}
	return n
}

func (a *Arbiter) release() {
	if a.owner == OwnerDMA && a.deferredSound > 0 {
		a.owner = OwnerSound
		a.stall = a.deferredSound
		a.deferredSound = 0
		return
	}
	a.owner = OwnerMain
}

// RequestBus records a 68K request for the Z80 bus ($A11100 bit 8 set).
func (a *Arbiter) RequestBus() {
	a.busReq = true
}

// ReleaseBus hands the Z80 bus back ($A11100 bit 8 clear).
func (a *Arbiter) ReleaseBus() {
	a.busReq = false
}

// BusRequested reports whether the 68K currently holds the Z80 bus.
func (a *Arbiter) BusRequested() bool {
	return a.busReq
}

// BusGranted reports whether a 68K request for the Z80 bus has been
// granted. The Z80 stops at an instruction boundary, which the scheduler
// guarantees for every 68K access, so a request is granted immediately.
// A Z80 held in reset also releases its bus.
func (a *Arbiter) BusGranted() bool {
	return a.busReq || a.reset
}

// SetZ80Reset drives the Z80 reset line ($A11200). Releasing the line
// schedules a Z80 reset before it next runs.
func (a *Arbiter) SetZ80Reset(assert bool) {
	if a.reset && !assert {
		a.resetPending = true
	}
	a.reset = assert
}

// InReset reports whether the Z80 reset line is asserted.
func (a *Arbiter) InReset() bool {
	return a.reset
}

// TakeResetPending returns and clears the pending Z80 reset.
func (a *Arbiter) TakeResetPending() bool {
	p := a.resetPending
	a.resetPending = false
	return p
}

// SoundRunnable reports whether the Z80 may execute.
func (a *Arbiter) SoundRunnable() bool {
	return !a.reset && !a.busReq
}

// Reset returns the arbiter to its power-on state.
func (a *Arbiter) Reset() {
	*a = Arbiter{reset: true}
}

const arbiterSerializeSize = 1 + 1 + 4 + 4 + 3

func (a *Arbiter) serialize(buf []byte) {
	buf[0] = 1
	buf[1] = uint8(a.owner)
	binary.LittleEndian.PutUint32(buf[2:], uint32(a.stall))
	binary.LittleEndian.PutUint32(buf[6:], uint32(a.deferredSound))
	buf[10] = savestate.BoolByte(a.busReq)
	buf[11] = savestate.BoolByte(a.reset)
	buf[12] = savestate.BoolByte(a.resetPending)
}

func (a *Arbiter) deserialize(buf []byte) {
	a.owner = BusOwner(buf[1])
	a.stall = int(binary.LittleEndian.Uint32(buf[2:]))
	a.deferredSound = int(binary.LittleEndian.Uint32(buf[6:]))
	a.busReq = buf[10] != 0
	a.reset = buf[11] != 0
	a.resetPending = buf[12] != 0
}
