// Package sms emulates the Sega Master System and Game Gear: a Z80, the
// Mode 4 VDP, the SN76489 PSG and the cartridge mappers, stepped by the
// shared master clock.
package sms

import (
	"log"

	emucore "github.com/user-none/eblitui/api"
	"github.com/user-none/emsega/clock"
	"github.com/user-none/go-chip-sn76489"
	"github.com/user-none/go-chip-z80"
)

// Core identity reported to frontends.
const (
	Name    = "emsega"
	Version = "0.3.0"
)

var (
	_ emucore.Emulator        = (*Emulator)(nil)
	_ emucore.SaveStater      = (*Emulator)(nil)
	_ emucore.BatterySaver    = (*Emulator)(nil)
	_ emucore.MemoryInspector = (*Emulator)(nil)
	_ emucore.MemoryMapper    = (*Emulator)(nil)
)

// Flat address layout for ReadMemory: system RAM then cartridge RAM.
const (
	systemRAMStart = 0x0000
	cartRAMStart   = 0x2000
	cartRAMEnd     = cartRAMStart + cartRAMSize - 1
)

// Emulator is a Master System or Game Gear.
type Emulator struct {
	clock *clock.Clock
	cpu   *CPU
	z80   *z80.CPU
	mem   *Memory
	vdp   *VDP
	psg   *sn76489.SN76489
	io    *IO
	cart  *Cartridge
	gg    bool

	region Region
	timing RegionTiming

	startHeld bool // SMS pause edge detection
	audio     []int16
}

// NewEmulator builds a console for the given ROM image. The ROM is
// validated first; the core never starts on a load error.
func NewEmulator(rom []byte, variant Variant, region Region) (*Emulator, error) {
	cart, err := LoadROM(rom, variant)
	if err != nil {
		return nil, err
	}
	return NewEmulatorWithCartridge(cart, region), nil
}

// NewEmulatorWithCartridge builds a console for an already loaded cartridge.
func NewEmulatorWithCartridge(cart *Cartridge, region Region) *Emulator {
	gg := cart.Variant == VariantGG
	timing := GetTimingForRegion(region)

	vdp := NewVDP(gg)
	vdp.SetTotalScanlines(timing.Scanlines)
	psg := sn76489.New(timing.CPUClockHz, sampleRate, psgBufferSize, sn76489.Sega)
	mem := NewMemory(cart)
	io := NewIO(vdp, psg, gg, cart.Export)
	z80CPU := z80.New(NewBus(mem, io))

	e := &Emulator{
		cpu:    NewCPU(z80CPU, vdp),
		z80:    z80CPU,
		mem:    mem,
		vdp:    vdp,
		psg:    psg,
		io:     io,
		cart:   cart,
		gg:     gg,
		region: region,
		timing: timing,
		audio:  make([]int16, 0, 2*psgBufferSize),
	}

	e.clock = clock.New(timing.MasterClockHz, timing.FPS, timing.Scanlines)
	e.clock.Attach(e.cpu, z80Divider)
	e.clock.Attach(clock.DeviceFunc(func(n int) { e.psg.Run(n) }), z80Divider)
	return e
}

// lineEvents are the mid-line points, in master cycles, at which the VDP
// raises the frame interrupt, runs the line counter and latches CRAM.
var lineEvents = [3]int{
	VBlankInterruptCycle * z80Divider,
	LineInterruptCycle * z80Divider,
	CRAMLatchCycle * z80Divider,
}

// RunFrame executes one frame of emulation.
func (e *Emulator) RunFrame() {
	e.psg.ResetBuffer()
	for line := 0; line < e.timing.Scanlines; line++ {
		e.runLine(line)
	}
	e.mixFrame()
}

func (e *Emulator) runLine(line int) {
	active := e.vdp.ActiveHeight()
	e.vdp.SetVCounter(uint16(line))
	if line == 0 {
		e.vdp.LatchVScrollForFrame()
	}
	e.cpu.BeginLine()

	n := e.clock.NextLine()
	done := 0
	for i, at := range lineEvents {
		e.clock.Advance(at - done)
		done = at
		switch i {
		case 0:
			if line == active {
				e.vdp.SetVBlank()
				e.cpu.UpdateIRQ()
			}
		case 1:
			e.vdp.UpdateLineCounter()
			e.cpu.UpdateIRQ()
		case 2:
			e.vdp.LatchCRAM()
			e.vdp.LatchPerLineRegisters()
		}
	}
	e.clock.Advance(n - done)

	if line < active {
		e.vdp.RenderScanline()
	}
}

// SetInput sets the pressed-button mask of a player's pad. On a Master
// System the Start button is the console's pause button, which pulses NMI
// when pressed.
func (e *Emulator) SetInput(player int, buttons uint32) {
	e.io.SetPad(player, buttons)
	if e.gg || player != 0 {
		return
	}
	start := buttons&buttonStart != 0
	if start && !e.startHeld {
		e.cpu.NMI()
	}
	e.startHeld = start
}

// SetSpriteLimit enables or removes the 8 sprites per line cap.
func (e *Emulator) SetSpriteLimit(enabled bool) {
	e.vdp.SetSpriteLimit(enabled)
}

// Variant returns the emulated console.
func (e *Emulator) Variant() Variant {
	return e.cart.Variant
}

// GetFramebuffer returns the visible picture as RGBA pixels. Rows are
// GetFramebufferStride bytes apart.
func (e *Emulator) GetFramebuffer() []byte {
	return e.vdp.Viewport().Pix
}

// GetFramebufferStride returns the stride (bytes per row) of the framebuffer.
func (e *Emulator) GetFramebufferStride() int {
	return e.vdp.Viewport().Stride
}

// GetActiveHeight returns 192 or 224 on a Master System and 144 on a
// Game Gear.
func (e *Emulator) GetActiveHeight() int {
	if e.gg {
		return GGScreenHeight
	}
	return e.vdp.ActiveHeight()
}

// GetRegion returns the emulator's region setting.
func (e *Emulator) GetRegion() Region {
	return e.region
}

// GetTiming returns FPS and scanline count for the current region.
func (e *Emulator) GetTiming() emucore.Timing {
	return emucore.Timing{
		FPS:       e.timing.FPS,
		Scanlines: e.timing.Scanlines,
	}
}

// SetRegion switches NTSC/PAL timing.
func (e *Emulator) SetRegion(region Region) {
	e.region = region
	e.timing = GetTimingForRegion(region)
	e.vdp.SetTotalScanlines(e.timing.Scanlines)
	e.clock.SetTiming(e.timing.MasterClockHz, e.timing.FPS, e.timing.Scanlines)
	if err := e.retunePSG(); err != nil {
		log.Printf("[psg] retune for %d Hz failed, keeping the old clock: %v", e.timing.CPUClockHz, err)
	}
}

// retunePSG rebuilds the PSG for the region's CPU clock so a frame still
// yields 48 kHz audio. Register state carries over; on error the running
// PSG is left in place.
func (e *Emulator) retunePSG() error {
	state := make([]byte, sn76489.SerializeSize)
	if err := e.psg.Serialize(state); err != nil {
		return err
	}
	psg := sn76489.New(e.timing.CPUClockHz, sampleRate, psgBufferSize, sn76489.Sega)
	if err := psg.Deserialize(state); err != nil {
		return err
	}
	e.psg = psg
	e.io.psg = psg
	return nil
}

// SetOption applies a core option change identified by key.
func (e *Emulator) SetOption(key string, value string) {
	if key == "sprite_limit" {
		e.SetSpriteLimit(value == "true")
	}
}

// Close releases any resources held by the emulator.
func (e *Emulator) Close() {}

// HasSRAM reports whether there is cartridge RAM to persist: the database
// marks the cartridge battery backed, or the game has mapped its RAM in.
func (e *Emulator) HasSRAM() bool {
	return e.cart.Battery || e.mem.cartRAMUsed
}

// GetSRAM returns a copy of the cartridge RAM.
func (e *Emulator) GetSRAM() []byte {
	out := make([]byte, cartRAMSize)
	copy(out, e.mem.cartRAM[:])
	return out
}

// SetSRAM loads cartridge RAM from a save file.
func (e *Emulator) SetSRAM(data []byte) {
	if len(data) == 0 {
		return
	}
	copy(e.mem.cartRAM[:], data)
	e.mem.cartRAMUsed = true
}

// ReadMemory reads from a flat address into buf and returns the number
// of bytes read. System RAM is at 0x0000, cartridge RAM at 0x2000.
func (e *Emulator) ReadMemory(addr uint32, buf []byte) uint32 {
	var count uint32
	for i := range buf {
		cur := addr + uint32(i)
		switch {
		case cur < cartRAMStart:
			buf[i] = e.mem.ram[cur-systemRAMStart]
		case cur <= cartRAMEnd:
			buf[i] = e.mem.cartRAM[cur-cartRAMStart]
		default:
			return count
		}
		count++
	}
	return count
}

// MemoryMap returns a list of available memory regions with sizes.
func (e *Emulator) MemoryMap() []emucore.MemoryRegion {
	regions := []emucore.MemoryRegion{
		{Type: emucore.MemorySystemRAM, Size: systemRAMSize},
	}
	if e.HasSRAM() {
		regions = append(regions, emucore.MemoryRegion{Type: emucore.MemorySaveRAM, Size: cartRAMSize})
	}
	return regions
}

// ReadRegion returns a copy of the specified memory region.
func (e *Emulator) ReadRegion(regionType int) []byte {
	switch regionType {
	case emucore.MemorySystemRAM:
		out := make([]byte, systemRAMSize)
		copy(out, e.mem.ram[:])
		return out
	case emucore.MemorySaveRAM:
		return e.GetSRAM()
	}
	return nil
}

// WriteRegion writes data to the specified memory region.
func (e *Emulator) WriteRegion(regionType int, data []byte) {
	switch regionType {
	case emucore.MemorySystemRAM:
		copy(e.mem.ram[:], data)
	case emucore.MemorySaveRAM:
		e.SetSRAM(data)
	}
}
