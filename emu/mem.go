package emu

import (
	"github.com/user-none/go-chip-m68k"
	"github.com/user-none/go-chip-sn76489"
)

const (
	mainRAMSize = 0x10000 // 64KB main 68K RAM
	z80RAMSize  = 0x2000  // 8KB Z80 RAM
)

type (
	readFunc  func(cycle uint64, s m68k.Size, addr uint32) uint32
	writeFunc func(cycle uint64, s m68k.Size, addr uint32, value uint32)
)

// region is one entry of the 68K address decode table. A nil write
// handler ignores writes.
type region struct {
	start, end uint32
	read       readFunc
	write      writeFunc
}

// GenesisBus implements m68k.Bus with the full Genesis memory map.
//
// Address map (M68K view, 24-bit):
//
//	0x000000-0x3FFFFF  ROM (up to 4MB, read-only)
//	0x200000-0x3FFFFF  SRAM (when enabled via $A130F1, overlays ROM)
//	0xA00000-0xA0FFFF  Z80 address space (0xA00000-0xA01FFF = 8KB Z80 RAM)
//	0xA10000-0xA1001F  I/O registers
//	0xA11100-0xA11101  Z80 bus request
//	0xA11200-0xA11201  Z80 reset
//	0xA130F0-0xA130FF  SRAM control register ($A130F1)
//	0xC00000-0xDFFFFF  VDP ports, mirrored every 32 bytes
//	0xE00000-0xFFFFFF  68K main RAM (64KB, mirrored)
//
// Anything else is open bus: reads return the last value driven on the
// data bus and writes are dropped.
type GenesisBus struct {
	rom    []byte
	ram    [mainRAMSize]byte
	z80RAM [z80RAMSize]byte
	romCRC uint32

	vdp    *VDP
	io     *IO
	psg    *sn76489.SN76489
	ym2612 *YM2612
	arb    *Arbiter

	regions []region

	// Last word driven on the 68K data bus.
	openBus uint16

	// SRAM fields
	sram         []byte // Battery-backed SRAM
	sramStart    uint32 // SRAM start address from ROM header
	sramEnd      uint32 // SRAM end address from ROM header
	sramEnabled  bool   // SRAM mapped into address space (vs ROM)
	sramWritable bool   // SRAM is writable (vs read-only)

	// CPU reference for instruction-aware bus behavior (e.g., TAS write suppression)
	cpu *m68k.CPU
}

// NewGenesisBus creates the 68K bus for a validated cartridge.
func NewGenesisBus(cart *Cartridge, vdp *VDP, io *IO, psg *sn76489.SN76489, ym2612 *YM2612, arb *Arbiter) *GenesisBus {
	b := &GenesisBus{
		rom:    cart.ROM,
		romCRC: cart.CRC32,
		vdp:    vdp,
		io:     io,
		psg:    psg,
		ym2612: ym2612,
		arb:    arb,
	}
	if cart.HasSRAM() {
		b.sram = make([]byte, cart.SRAMSize())
		b.sramStart = cart.SRAMStart
		b.sramEnd = cart.SRAMEnd
		// Cartridges whose ROM ends below the SRAM window never need to
		// bank it in, and most never write $A130F1.
		if uint32(len(b.rom)) <= b.sramStart {
			b.sramEnabled = true
			b.sramWritable = true
		}
	}

	b.regions = []region{
		{0xE00000, 0xFFFFFF, b.readRAM, b.writeRAM},
		{0x000000, 0x3FFFFF, b.readCart, b.writeCart},
		{0xC00000, 0xDFFFFF, b.readVDP, b.writeVDP},
		{0xA00000, 0xA0FFFF, b.readZ80, b.writeZ80},
		{0xA10000, 0xA1001F, b.readIO, b.writeIO},
		{0xA11100, 0xA11101, b.readBusReq, b.writeBusReq},
		{0xA11200, 0xA11201, b.readZ80Reset, b.writeZ80Reset},
		{0xA130F0, 0xA130FF, b.readSRAMCtrl, b.writeSRAMCtrl},
	}
	return b
}

// SetCPU sets the CPU reference for instruction-aware bus behavior.
// Called after CPU creation due to circular construction dependency.
func (b *GenesisBus) SetCPU(cpu *m68k.CPU) {
	b.cpu = cpu
}

// mainCycle is the 68K's cycle count, the time base the VDP keeps DMA and
// H position in. Accesses from the Z80 side are stamped with it.
func (b *GenesisBus) mainCycle() uint64 {
	if b.cpu == nil {
		return 0
	}
	return b.cpu.Cycles()
}

// isTASWriteBack returns true if the current 68K instruction is TAS with a
// memory operand. On Genesis hardware, the TAS read-modify-write bus cycle
// does not complete the write-back phase because the VDP bus arbiter does
// not support RMW cycles.
func (b *GenesisBus) isTASWriteBack() bool {
	if b.cpu == nil {
		return false
	}
	ir := b.cpu.Registers().IR
	// TAS opcode: 0100 1010 11MM MRRR (0x4AC0-0x4AFF)
	// Mode 000 = data register (write goes to register, not bus)
	return ir&0xFFC0 == 0x4AC0 && ir&0x0038 != 0
}

func (b *GenesisBus) lookup(addr uint32) *region {
	for i := range b.regions {
		r := &b.regions[i]
		if addr >= r.start && addr <= r.end {
			return r
		}
	}
	return nil
}

// Read implements m68k.Bus.
func (b *GenesisBus) Read(s m68k.Size, addr uint32) uint32 {
	return b.ReadCycle(0, s, addr)
}

// ReadCycle implements m68k.CycleBus.
func (b *GenesisBus) ReadCycle(cycle uint64, s m68k.Size, addr uint32) uint32 {
	addr &= 0xFFFFFF // 24-bit address bus
	r := b.lookup(addr)
	if r == nil {
		return b.openBusValue(s, addr)
	}
	val := r.read(cycle, s, addr)
	b.latch(s, val)
	return val
}

// Write implements m68k.Bus.
func (b *GenesisBus) Write(s m68k.Size, addr uint32, value uint32) {
	b.WriteCycle(0, s, addr, value)
}

// WriteCycle implements m68k.CycleBus.
func (b *GenesisBus) WriteCycle(cycle uint64, s m68k.Size, addr uint32, value uint32) {
	// Genesis hardware: TAS memory write-back fails because the VDP bus
	// arbiter does not support read-modify-write cycles. Suppress the write.
	if b.isTASWriteBack() {
		return
	}
	b.write(cycle, s, addr, value)
}

func (b *GenesisBus) write(cycle uint64, s m68k.Size, addr uint32, value uint32) {
	addr &= 0xFFFFFF
	b.latch(s, value)
	if r := b.lookup(addr); r != nil && r.write != nil {
		r.write(cycle, s, addr, value)
	}
}

// latch records the value on the data bus. Byte accesses drive both halves
// of the 16-bit bus with the same byte.
func (b *GenesisBus) latch(s m68k.Size, value uint32) {
	switch s {
	case m68k.Byte:
		v := uint16(value & 0xFF)
		b.openBus = v<<8 | v
	default:
		b.openBus = uint16(value)
	}
}

func (b *GenesisBus) openBusValue(s m68k.Size, addr uint32) uint32 {
	switch s {
	case m68k.Byte:
		if addr&1 == 0 {
			return uint32(b.openBus >> 8)
		}
		return uint32(b.openBus & 0xFF)
	case m68k.Long:
		return uint32(b.openBus)<<16 | uint32(b.openBus)
	}
	return uint32(b.openBus)
}

// OpenBus returns the last word driven on the 68K data bus.
func (b *GenesisBus) OpenBus() uint16 {
	return b.openBus
}

// Reset clears RAM. Implements m68k.Bus.
func (b *GenesisBus) Reset() {
	b.ram = [mainRAMSize]byte{}
	b.z80RAM = [z80RAMSize]byte{}
	b.openBus = 0
}

// GetROMCRC32 returns the CRC32 of the loaded ROM.
func (b *GenesisBus) GetROMCRC32() uint32 {
	return b.romCRC
}

// ReadWord reads a 16-bit word for a 68K->VDP DMA transfer.
func (b *GenesisBus) ReadWord(addr uint32) uint16 {
	return uint16(b.ReadCycle(0, m68k.Word, addr))
}

// readBytes assembles a big-endian value of size s from a byte source.
func readBytes(s m68k.Size, at func(i uint32) byte) uint32 {
	switch s {
	case m68k.Byte:
		return uint32(at(0))
	case m68k.Word:
		return uint32(at(0))<<8 | uint32(at(1))
	case m68k.Long:
		return uint32(at(0))<<24 | uint32(at(1))<<16 | uint32(at(2))<<8 | uint32(at(3))
	}
	return 0
}

// writeBytes splits a big-endian value of size s into a byte sink.
func writeBytes(s m68k.Size, value uint32, put func(i uint32, v byte)) {
	switch s {
	case m68k.Byte:
		put(0, byte(value))
	case m68k.Word:
		put(0, byte(value>>8))
		put(1, byte(value))
	case m68k.Long:
		put(0, byte(value>>24))
		put(1, byte(value>>16))
		put(2, byte(value>>8))
		put(3, byte(value))
	}
}

// readSized returns a 2-byte register value as the appropriate size.
func readSized(s m68k.Size, hi, lo byte) uint32 {
	switch s {
	case m68k.Byte:
		return uint32(hi)
	case m68k.Word:
		return uint32(hi)<<8 | uint32(lo)
	case m68k.Long:
		return uint32(hi)<<24 | uint32(lo)<<16
	}
	return 0
}

// --- Cartridge ---

func (b *GenesisBus) inSRAM(addr uint32) bool {
	return b.sram != nil && addr >= b.sramStart && addr <= b.sramEnd
}

func (b *GenesisBus) readCart(_ uint64, s m68k.Size, addr uint32) uint32 {
	if b.sramEnabled && b.inSRAM(addr) {
		off := addr - b.sramStart
		return readBytes(s, func(i uint32) byte {
			if off+i < uint32(len(b.sram)) {
				return b.sram[off+i]
			}
			return 0
		})
	}
	// Past the end of the ROM nothing drives the bus.
	romLen := uint32(len(b.rom))
	return readBytes(s, func(i uint32) byte {
		if addr+i < romLen {
			return b.rom[addr+i]
		}
		if (addr+i)&1 == 0 {
			return byte(b.openBus >> 8)
		}
		return byte(b.openBus)
	})
}

func (b *GenesisBus) writeCart(_ uint64, s m68k.Size, addr uint32, value uint32) {
	if !b.sramWritable || !b.inSRAM(addr) {
		return // ROM is read-only
	}
	off := addr - b.sramStart
	writeBytes(s, value, func(i uint32, v byte) {
		if off+i < uint32(len(b.sram)) {
			b.sram[off+i] = v
		}
	})
}

func (b *GenesisBus) readSRAMCtrl(_ uint64, s m68k.Size, addr uint32) uint32 {
	if addr != 0xA130F1 {
		return 0
	}
	var val uint8
	if b.sramEnabled {
		val |= 0x01
	}
	if b.sramWritable {
		val |= 0x02
	}
	return uint32(val)
}

func (b *GenesisBus) writeSRAMCtrl(_ uint64, s m68k.Size, addr uint32, value uint32) {
	// Word writes to $A130F0 put the low byte on $A130F1.
	if addr != 0xA130F1 && !(addr == 0xA130F0 && s != m68k.Byte) {
		return
	}
	v := uint8(value)
	b.sramEnabled = v&0x01 != 0
	b.sramWritable = v&0x02 != 0
}

// HasSRAM returns true if the ROM declares battery-backed SRAM.
func (b *GenesisBus) HasSRAM() bool {
	return b.sram != nil
}

// GetSRAM returns a copy of the SRAM contents.
func (b *GenesisBus) GetSRAM() []byte {
	if b.sram == nil {
		return nil
	}
	out := make([]byte, len(b.sram))
	copy(out, b.sram)
	return out
}

// SetSRAM loads SRAM contents (e.g. from a save file).
func (b *GenesisBus) SetSRAM(data []byte) {
	if b.sram == nil {
		return
	}
	copy(b.sram, data)
}

// --- Main RAM ---

func (b *GenesisBus) readRAM(_ uint64, s m68k.Size, addr uint32) uint32 {
	idx := addr & 0xFFFF
	return readBytes(s, func(i uint32) byte { return b.ram[(idx+i)&0xFFFF] })
}

func (b *GenesisBus) writeRAM(_ uint64, s m68k.Size, addr uint32, value uint32) {
	idx := addr & 0xFFFF
	writeBytes(s, value, func(i uint32, v byte) { b.ram[(idx+i)&0xFFFF] = v })
}

// --- Z80 space ---

// The 68K only reaches Z80 space while it holds the Z80 bus (or the Z80 is
// in reset). Otherwise reads float and writes are lost.
func (b *GenesisBus) readZ80(_ uint64, s m68k.Size, addr uint32) uint32 {
	if !b.arb.BusGranted() {
		return b.openBusValue(s, addr)
	}
	offset := addr - 0xA00000
	switch {
	case offset < 0x4000:
		return readBytes(s, func(i uint32) byte {
			return b.z80RAM[(offset+i)&(z80RAMSize-1)]
		})
	case offset < 0x6000:
		port := uint8(offset & 0x03)
		return readBytes(s, func(i uint32) byte { return b.ym2612.ReadPort(port | uint8(i)) })
	}
	return b.openBusValue(s, addr)
}

func (b *GenesisBus) writeZ80(_ uint64, s m68k.Size, addr uint32, value uint32) {
	if !b.arb.BusGranted() {
		return
	}
	offset := addr - 0xA00000
	switch {
	case offset < 0x4000:
		writeBytes(s, value, func(i uint32, v byte) {
			b.z80RAM[(offset+i)&(z80RAMSize-1)] = v
		})
	case offset < 0x6000:
		// Games commonly use word writes to set address+data in one
		// operation (high byte = address latch, low byte = data).
		port := uint8(offset & 0x03)
		writeBytes(s, value, func(i uint32, v byte) { b.ym2612.WritePort(port|uint8(i), v) })
	}
}

// --- I/O and Z80 control ---

func (b *GenesisBus) readIO(cycle uint64, s m68k.Size, addr uint32) uint32 {
	return readBytes(s, func(i uint32) byte { return b.io.ReadRegister(cycle, addr+i) })
}

func (b *GenesisBus) writeIO(cycle uint64, s m68k.Size, addr uint32, value uint32) {
	writeBytes(s, value, func(i uint32, v byte) { b.io.WriteRegister(cycle, addr+i, v) })
}

// Bit 0 of $A11100 reads 0 once the 68K owns the Z80 bus.
func (b *GenesisBus) readBusReq(_ uint64, s m68k.Size, _ uint32) uint32 {
	if b.arb.BusRequested() {
		return readSized(s, 0x00, 0x00)
	}
	return readSized(s, 0x01, 0x00)
}

func (b *GenesisBus) writeBusReq(_ uint64, s m68k.Size, addr uint32, value uint32) {
	var req bool
	if s == m68k.Byte {
		if addr != 0xA11100 {
			return
		}
		req = value&0x01 != 0
	} else {
		req = value&0x0100 != 0
	}
	if req {
		b.arb.RequestBus()
	} else {
		b.arb.ReleaseBus()
	}
}

func (b *GenesisBus) readZ80Reset(_ uint64, s m68k.Size, _ uint32) uint32 {
	return readSized(s, 0x00, 0x00)
}

// Writing 0 to $A11200 asserts the Z80 reset line; 1 releases it.
func (b *GenesisBus) writeZ80Reset(_ uint64, s m68k.Size, addr uint32, value uint32) {
	var release bool
	if s == m68k.Byte {
		if addr != 0xA11200 {
			return
		}
		release = value&0x01 != 0
	} else {
		release = value&0x0100 != 0
	}
	b.arb.SetZ80Reset(!release)
}

// --- VDP ---

// vdpByte selects the half of a VDP word seen by a byte access:
// even addresses get the high byte, odd the low byte.
func vdpByte(addr uint32, val uint16) uint32 {
	if addr&1 == 0 {
		return uint32(val >> 8)
	}
	return uint32(val & 0xFF)
}

func (b *GenesisBus) readVDP(cycle uint64, s m68k.Size, addr uint32) uint32 {
	var read func() uint16
	switch port := addr & 0x1F; {
	case port <= 0x03:
		read = b.vdp.ReadData
	case port <= 0x07:
		read = func() uint16 { return b.vdp.ReadControl(cycle) }
	case port <= 0x0F:
		read = func() uint16 { return b.vdp.ReadHVCounterAtCycle(cycle) }
	default:
		// PSG and debug ports are write-only.
		return b.openBusValue(s, addr)
	}
	switch s {
	case m68k.Byte:
		return vdpByte(addr, read())
	case m68k.Long:
		hi := uint32(read())
		return hi<<16 | uint32(read())
	}
	return uint32(read())
}

func (b *GenesisBus) writeVDP(cycle uint64, s m68k.Size, addr uint32, value uint32) {
	var write func(uint16)
	switch port := addr & 0x1F; {
	case port <= 0x03:
		write = func(v uint16) { b.vdp.WriteData(cycle, v) }
	case port <= 0x07:
		write = func(v uint16) { b.vdp.WriteControl(cycle, v) }
	case port >= 0x10 && port < 0x18:
		// PSG write port ($C00011, but responds to $10-$17 range)
		b.psg.Write(byte(value))
		return
	default:
		return
	}
	switch s {
	case m68k.Byte:
		// A byte write puts the same byte on both halves of the bus.
		v := uint16(value & 0xFF)
		write(v<<8 | v)
	case m68k.Long:
		write(uint16(value >> 16))
		write(uint16(value))
	default:
		write(uint16(value))
	}
}
