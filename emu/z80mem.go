package emu

import "github.com/user-none/go-chip-m68k"

// Z80Memory implements z80.Bus for the Genesis Z80 address space.
//
// Genesis Z80 memory map (16-bit):
//
//	0x0000-0x1FFF  Z80 RAM (8KB)
//	0x2000-0x3FFF  Z80 RAM mirror
//	0x4000-0x5FFF  YM2612 ports
//	0x6000         Bank register (write-only, bit-by-bit)
//	0x6001-0x7EFF  Unused (open bus)
//	0x7F00-0x7F1F  VDP ports (data, control, HV counter, PSG)
//	0x7F20-0x7FFF  Reserved
//	0x8000-0xFFFF  M68K bank window (32KB via bank register)
type Z80Memory struct {
	bus          *GenesisBus
	bankRegister uint16 // 9-bit shift register for M68K bank address

	// Last byte driven on the Z80 data bus.
	openBus uint8
}

// NewZ80Memory creates a Z80Memory connected to the given GenesisBus.
func NewZ80Memory(bus *GenesisBus) *Z80Memory {
	return &Z80Memory{bus: bus, openBus: 0xFF}
}

// Fetch reads an opcode byte during an M1 cycle. On the Genesis there is
// no M1-specific behavior, so this delegates to Read.
func (m *Z80Memory) Fetch(addr uint16) uint8 {
	return m.Read(addr)
}

// Read reads a byte from the Genesis Z80 address space.
func (m *Z80Memory) Read(addr uint16) uint8 {
	var val uint8
	switch {
	case addr < 0x4000:
		val = m.bus.z80RAM[addr&0x1FFF]
	case addr < 0x6000:
		val = m.bus.ym2612.ReadPort(uint8((addr - 0x4000) & 0x03))
	case addr >= 0x7F00 && addr < 0x7F20:
		v, ok := m.readVDP(addr)
		if !ok {
			return m.openBus
		}
		val = v
	case addr < 0x8000:
		return m.openBus
	default:
		v, ok := m.readBank(addr)
		if !ok {
			return m.openBus
		}
		val = v
	}
	m.openBus = val
	return val
}

// readVDP reads the VDP ports (0x7F00-0x7F1F), which have the same layout
// as 68K $C00000-$C0001F. Even addresses return the high byte.
func (m *Z80Memory) readVDP(addr uint16) (uint8, bool) {
	var val uint16
	switch port := addr & 0x1F; {
	case port <= 0x03:
		val = m.bus.vdp.ReadData()
	case port <= 0x07:
		val = m.bus.vdp.ReadControl(m.bus.mainCycle())
	case port <= 0x0F:
		val = m.bus.vdp.ReadHVCounterAtCycle(m.bus.mainCycle())
	default:
		// PSG ($10-$17) and debug ($18-$1F) are write-only
		return 0, false
	}
	if addr&1 == 0 {
		return uint8(val >> 8), true
	}
	return uint8(val), true
}

func (m *Z80Memory) bankAddr(addr uint16) uint32 {
	return uint32(m.bankRegister)<<15 | uint32(addr&0x7FFF)
}

// readBank reads through the 68K bank window. The access takes the 68K bus;
// while a DMA holds it the read floats.
func (m *Z80Memory) readBank(addr uint16) (uint8, bool) {
	if !m.bus.arb.RequestFromSound() {
		return 0, false
	}
	return uint8(m.bus.ReadCycle(m.bus.mainCycle(), m68k.Byte, m.bankAddr(addr))), true
}

// Write writes a byte to the Genesis Z80 address space.
func (m *Z80Memory) Write(addr uint16, val uint8) {
	m.openBus = val
	switch {
	case addr < 0x4000:
		m.bus.z80RAM[addr&0x1FFF] = val
	case addr < 0x6000:
		m.bus.ym2612.WritePort(uint8((addr-0x4000)&0x03), val)
	case addr == 0x6000:
		// Bank register: shift in bit 0, 9 bits total
		m.bankRegister = (m.bankRegister >> 1) | (uint16(val&1) << 8)
	case addr >= 0x7F00 && addr < 0x7F20:
		// The Z80 byte is duplicated across both halves of the 16-bit word.
		word := uint16(val)<<8 | uint16(val)
		switch port := addr & 0x1F; {
		case port <= 0x03:
			m.bus.vdp.WriteData(m.bus.mainCycle(), word)
		case port <= 0x07:
			m.bus.vdp.WriteControl(m.bus.mainCycle(), word)
		case port >= 0x10 && port < 0x18:
			m.bus.psg.Write(val)
		}
	case addr < 0x8000:
		// Unused and reserved: ignore writes
	default:
		if m.bus.arb.RequestFromSound() {
			m.bus.write(m.bus.mainCycle(), m68k.Byte, m.bankAddr(addr), uint32(val))
		}
	}
}

// In reads from an I/O port. The Genesis Z80 has no I/O ports;
// all peripherals are memory-mapped.
func (m *Z80Memory) In(port uint16) uint8 {
	return 0xFF
}

// Out writes to an I/O port. No-op on the Genesis Z80.
func (m *Z80Memory) Out(port uint16, val uint8) {}

// OpenBus returns the last byte driven on the Z80 data bus.
func (m *Z80Memory) OpenBus() uint8 {
	return m.openBus
}
