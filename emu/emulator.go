package emu

import (
	"log"

	emucore "github.com/user-none/eblitui/api"
	"github.com/user-none/emsega/clock"
	"github.com/user-none/go-chip-m68k"
	"github.com/user-none/go-chip-sn76489"
	"github.com/user-none/go-chip-z80"
)

// Core identity reported to frontends.
const (
	Name    = "emsega"
	Version = "0.3.0"
)

// Compile-time interface checks.
var (
	_ emucore.Emulator        = (*Emulator)(nil)
	_ emucore.SaveStater      = (*Emulator)(nil)
	_ emucore.BatterySaver    = (*Emulator)(nil)
	_ emucore.MemoryInspector = (*Emulator)(nil)
	_ emucore.MemoryMapper    = (*Emulator)(nil)
)

// Flat address boundaries for ReadMemory.
const (
	mainRAMStart = 0x000000
	mainRAMEnd   = 0x00FFFF
	z80RAMStart  = 0x010000
	z80RAMEnd    = 0x011FFF
)

// Emulator is a complete Genesis: both CPUs, the bus and its arbiter, VDP,
// FM, PSG and pads, all stepped by one master clock.
type Emulator struct {
	clock *clock.Clock
	arb   *Arbiter
	main  *MainCPU
	sound *SoundCPU

	m68k   *m68k.CPU
	z80    *z80.CPU
	z80Mem *Z80Memory
	bus    *GenesisBus
	vdp    *VDP
	psg    *sn76489.SN76489
	ym2612 *YM2612
	io     *IO
	cart   *Cartridge

	region Region
	timing RegionTiming

	mainSlot int // clock slot of the 68K

	// lineMaster counts master cycles delivered in the current scanline;
	// it places the H counter when the line ends.
	lineMaster int
	lineCycles int // 68K cycles in the current scanline

	mixer audioMixer
}

// NewEmulator builds a Genesis for the given ROM image. The ROM is
// validated first; the core never starts on a load error.
func NewEmulator(rom []byte, region Region) (*Emulator, error) {
	cart, err := LoadROM(rom)
	if err != nil {
		return nil, err
	}
	return NewEmulatorWithCartridge(cart, region), nil
}

// NewEmulatorWithCartridge builds a Genesis for an already loaded cartridge.
func NewEmulatorWithCartridge(cart *Cartridge, region Region) *Emulator {
	timing := GetTimingForRegion(region)
	pal := region == RegionPAL

	arb := NewArbiter()
	vdp := NewVDP(pal)
	ym2612 := NewYM2612(timing.M68KClockHz, sampleRate)
	psg := sn76489.New(timing.Z80ClockHz, sampleRate, psgBufferSize, sn76489.Sega)
	psg.SetGain(psgGain)
	io := NewIO(cart.Console, pal)

	bus := NewGenesisBus(cart, vdp, io, psg, ym2612, arb)
	vdp.SetBus(bus)

	cpu := m68k.New(bus)
	bus.SetCPU(cpu)

	z80Mem := NewZ80Memory(bus)
	z80CPU := z80.New(z80Mem)

	e := &Emulator{
		arb:    arb,
		main:   NewMainCPU(cpu, arb),
		sound:  NewSoundCPU(z80CPU, arb),
		m68k:   cpu,
		z80:    z80CPU,
		z80Mem: z80Mem,
		bus:    bus,
		vdp:    vdp,
		psg:    psg,
		ym2612: ym2612,
		io:     io,
		cart:   cart,
		region: region,
		timing: timing,
		mixer:  newAudioMixer(),
	}
	e.main.SetAfterStep(e.afterMainStep)

	// Attach order is the order devices run within a batch.
	e.clock = clock.New(timing.MasterClockHz, timing.FPS, timing.Scanlines)
	e.mainSlot = e.clock.Attach(e.main, m68kDivider)
	e.clock.Attach(e.sound, z80Divider)
	e.clock.Attach(clock.DeviceFunc(func(n int) { e.lineMaster += n }), 1)
	e.clock.Attach(ym2612, m68kDivider)
	e.clock.Attach(clock.DeviceFunc(func(n int) { e.psg.Run(n) }), z80Divider)

	return e
}

// afterMainStep runs after every 68K instruction. Register writes can
// assert an interrupt that was already pending, and a 68K->VDP DMA takes
// the bus away from the 68K.
func (e *Emulator) afterMainStep() {
	if level := e.vdp.TakeAssertedInterrupt(); level > 0 {
		e.main.SetIRQ(level)
	}
	if stall := e.vdp.DMAStallCycles(); stall > 0 {
		e.arb.BeginDMA(stall)
	}
}

// RunFrame executes one frame of emulation.
func (e *Emulator) RunFrame() {
	e.psg.ResetBuffer()

	for line := 0; line < e.timing.Scanlines; line++ {
		e.beginLine(line)
		e.clock.StepLine()
		e.endLine(line)
	}

	psgBuf, n := e.psg.GetBuffer()
	e.mixer.mix(e.ym2612.GetBuffer(), psgBuf[:n])
}

// beginLine raises the scanline's interrupts and opens the VDP's
// mid-line change tracking.
func (e *Emulator) beginLine(line int) {
	e.vdp.SetHBlank(false)

	vInt, hInt := e.vdp.StartScanline(line)
	if vInt {
		e.main.SetIRQ(6)
	}
	if hInt {
		e.main.SetIRQ(4)
	}

	// The Z80 INT follows the VDP V-blank output regardless of the 68K
	// V-int enable.
	if line == e.vdp.ActiveHeight() {
		e.sound.AssertINT()
	}

	e.lineMaster = 0
	e.lineCycles = e.clock.Due(e.mainSlot, e.clock.LineCycles())
	e.vdp.BeginScanline(e.main.Cycles(), e.lineCycles)
}

// endLine places the H counter, enters HBlank and draws the line.
func (e *Emulator) endLine(line int) {
	e.vdp.UpdateHCounter(e.lineMaster/m68kDivider, e.lineCycles)
	e.vdp.SetHBlank(true)

	if line < e.vdp.ActiveHeight() {
		e.vdp.RenderScanline(line)
	}
}

// Fault returns the 68K halt diagnostic, or nil while it is running.
func (e *Emulator) Fault() *CPUFault {
	return e.main.Fault()
}

// SetInput sets the pressed-button mask of a player's pad.
func (e *Emulator) SetInput(player int, buttons uint32) {
	if player < 0 || player >= len(e.io.Ports) {
		return
	}
	e.io.Ports[player].SetButtons(buttons)
}

// SetP2Connected plugs or unplugs the player 2 pad. An empty port reads
// with all pins high.
func (e *Emulator) SetP2Connected(connected bool) {
	e.io.Ports[1].Connected = connected
}

// SetSixButton selects 6-button or 3-button pads on both ports.
func (e *Emulator) SetSixButton(enabled bool) {
	for i := range e.io.Ports {
		e.io.Ports[i].SixButton = enabled
	}
}

// SetSpriteLimit enables or removes the per-line sprite caps.
func (e *Emulator) SetSpriteLimit(enabled bool) {
	e.vdp.SetSpriteLimit(enabled)
}

// SetLadder enables or disables the YM2612 DAC ladder distortion.
func (e *Emulator) SetLadder(enabled bool) {
	e.ym2612.SetLadder(enabled)
}

// GetFramebuffer returns raw RGBA pixel data for current frame.
func (e *Emulator) GetFramebuffer() []byte {
	return e.vdp.GetFramebuffer()
}

// GetFramebufferStride returns the stride (bytes per row) of the framebuffer.
func (e *Emulator) GetFramebufferStride() int {
	return e.vdp.GetStride()
}

// GetActiveHeight returns the current active display height.
// Returns doubled height for interlace mode 2.
func (e *Emulator) GetActiveHeight() int {
	return e.vdp.RenderHeight()
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

// SetRegion switches NTSC/PAL timing. Device phase is kept.
func (e *Emulator) SetRegion(region Region) {
	e.region = region
	e.timing = GetTimingForRegion(region)
	pal := region == RegionPAL
	e.vdp.SetPAL(pal)
	e.io.SetPAL(pal)
	e.clock.SetTiming(e.timing.MasterClockHz, e.timing.FPS, e.timing.Scanlines)

	e.ym2612.SetClock(e.timing.M68KClockHz)
	if err := e.retunePSG(); err != nil {
		log.Printf("[psg] retune for %d Hz failed, keeping the old clock: %v", e.timing.Z80ClockHz, err)
	}
}

// retunePSG rebuilds the PSG at the region's Z80 clock so a frame still
// yields 48 kHz audio. Register and counter state carry over; on error
// the running PSG is left in place.
func (e *Emulator) retunePSG() error {
	state := make([]byte, sn76489.SerializeSize)
	if err := e.psg.Serialize(state); err != nil {
		return err
	}
	psg := sn76489.New(e.timing.Z80ClockHz, sampleRate, psgBufferSize, sn76489.Sega)
	if err := psg.Deserialize(state); err != nil {
		return err
	}
	psg.SetGain(psgGain)
	e.psg = psg
	e.bus.psg = psg
	return nil
}

// HasSRAM returns true if the loaded ROM declares battery-backed SRAM.
func (e *Emulator) HasSRAM() bool {
	return e.bus.HasSRAM()
}

// GetSRAM returns a copy of the current SRAM contents.
func (e *Emulator) GetSRAM() []byte {
	return e.bus.GetSRAM()
}

// SetSRAM loads SRAM contents from a save file.
func (e *Emulator) SetSRAM(data []byte) {
	e.bus.SetSRAM(data)
}

// ReadMainRAM reads a single byte from 68K main RAM.
func (e *Emulator) ReadMainRAM(addr uint16) byte {
	return e.bus.ram[addr]
}

// ReadZ80RAM reads a single byte from Z80 RAM, or 0 past its 8KB.
func (e *Emulator) ReadZ80RAM(addr uint16) byte {
	if addr >= z80RAMSize {
		return 0
	}
	return e.bus.z80RAM[addr]
}

// Close releases any resources held by the emulator.
func (e *Emulator) Close() {}

// SetOption applies a core option change identified by key.
func (e *Emulator) SetOption(key string, value string) {
	on := value == "true"
	switch key {
	case "six_button":
		e.SetSixButton(on)
	case "sprite_limit":
		e.SetSpriteLimit(on)
	case "ym2612_ladder":
		e.SetLadder(on)
	}
}

// ReadMemory reads from a flat address into buf and returns the number
// of bytes read. Main RAM is at 0x000000, Z80 RAM at 0x010000.
func (e *Emulator) ReadMemory(addr uint32, buf []byte) uint32 {
	var count uint32
	for i := range buf {
		cur := addr + uint32(i)
		switch {
		case cur <= mainRAMEnd:
			buf[i] = e.ReadMainRAM(uint16(cur - mainRAMStart))
		case cur >= z80RAMStart && cur <= z80RAMEnd:
			buf[i] = e.ReadZ80RAM(uint16(cur - z80RAMStart))
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
		{Type: emucore.MemorySystemRAM, Size: mainRAMSize},
	}
	if e.bus.HasSRAM() {
		regions = append(regions, emucore.MemoryRegion{
			Type: emucore.MemorySaveRAM,
			Size: len(e.bus.sram),
		})
	}
	return regions
}

// ReadRegion returns a copy of the specified memory region.
func (e *Emulator) ReadRegion(regionType int) []byte {
	switch regionType {
	case emucore.MemorySystemRAM:
		out := make([]byte, mainRAMSize)
		copy(out, e.bus.ram[:])
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
		copy(e.bus.ram[:], data)
	case emucore.MemorySaveRAM:
		e.SetSRAM(data)
	}
}
