package sms

const (
	systemRAMSize = 0x2000 // 8KB
	cartRAMSize   = 0x8000 // two 16KB pages
)

// memRegion is one entry of the Z80 address decode table. A nil write
// handler ignores writes.
type memRegion struct {
	start, end uint16
	read       func(addr uint16) uint8
	write      func(addr uint16, val uint8)
}

// Memory is the cartridge slot and system RAM behind one of the supported
// mappers.
//
// Sega mapper:
//
//	$0000-$03FF  ROM bank 0, fixed
//	$0400-$3FFF  slot 0 ($FFFD)
//	$4000-$7FFF  slot 1 ($FFFE)
//	$8000-$BFFF  slot 2 ($FFFF) or cartridge RAM ($FFFC bit 3)
//	$C000-$FFFF  8KB RAM, mirrored; $FFFC-$FFFF also latch the registers
//
// Codemasters mapper:
//
//	$0000-$3FFF  slot 0, selected by a write to $0000
//	$4000-$7FFF  slot 1, selected by a write to $4000
//	$8000-$BFFF  slot 2, selected by a write to $8000; $A000-$BFFF is
//	             8KB cartridge RAM while bit 7 of the slot 1 value is set
//	$C000-$FFFF  8KB RAM, mirrored
type Memory struct {
	rom      []uint8
	ram      [systemRAMSize]uint8
	cartRAM  [cartRAMSize]uint8
	bankSlot [3]uint8
	bankMask uint8
	mapper   MapperType

	ramControl uint8 // $FFFC, Sega mapper
	cmRAM      bool  // Codemasters on-cart RAM enabled

	// cartRAMUsed is set once the game maps cartridge RAM in. Only then is
	// there anything worth persisting.
	cartRAMUsed bool

	regions []memRegion
}

// NewMemory builds the memory map for a validated cartridge.
func NewMemory(cart *Cartridge) *Memory {
	m := &Memory{
		rom:    cart.ROM,
		mapper: cart.Mapper,
	}

	// Bank numbers wrap at the next power of two above the bank count.
	banks := (len(m.rom) + bankSize - 1) / bankSize
	pow2 := 1
	for pow2 < banks {
		pow2 <<= 1
	}
	m.bankMask = uint8(pow2 - 1)
	m.reset()

	ram := memRegion{0xC000, 0xFFFF, m.readRAM, m.writeRAM}
	if m.mapper == MapperCodemasters {
		m.regions = []memRegion{
			ram,
			{0x0000, 0x3FFF, m.slotReader(0, 0x0000), m.cmBankWriter(0, 0x0000)},
			{0x4000, 0x7FFF, m.slotReader(1, 0x4000), m.cmBankWriter(1, 0x4000)},
			{0x8000, 0xBFFF, m.readCMSlot2, m.writeCMSlot2},
		}
	} else {
		m.regions = []memRegion{
			ram,
			{0x0000, 0x03FF, m.readFixed, nil},
			{0x0400, 0x3FFF, m.slotReader(0, 0x0000), nil},
			{0x4000, 0x7FFF, m.slotReader(1, 0x4000), nil},
			{0x8000, 0xBFFF, m.readSegaSlot2, m.writeSegaSlot2},
		}
	}
	return m
}

func (m *Memory) reset() {
	m.bankSlot = [3]uint8{0, 1, 2}
	if m.mapper == MapperCodemasters {
		// Slot 2 starts on bank 0 as well.
		m.bankSlot[2] = 0
	}
	m.ramControl = 0
	m.cmRAM = false
}

func (m *Memory) lookup(addr uint16) *memRegion {
	for i := range m.regions {
		r := &m.regions[i]
		if addr >= r.start && addr <= r.end {
			return r
		}
	}
	return nil
}

// Get reads a byte through the mapper.
func (m *Memory) Get(addr uint16) uint8 {
	if r := m.lookup(addr); r != nil {
		return r.read(addr)
	}
	return 0xFF
}

// Set writes a byte through the mapper.
func (m *Memory) Set(addr uint16, val uint8) {
	if r := m.lookup(addr); r != nil && r.write != nil {
		r.write(addr, val)
	}
}

func (m *Memory) romByte(bank uint8, offset uint16) uint8 {
	romAddr := uint32(bank&m.bankMask)*bankSize + uint32(offset)
	if romAddr < uint32(len(m.rom)) {
		return m.rom[romAddr]
	}
	return 0xFF
}

func (m *Memory) slotReader(slot int, base uint16) func(uint16) uint8 {
	return func(addr uint16) uint8 {
		return m.romByte(m.bankSlot[slot], addr-base)
	}
}

func (m *Memory) readFixed(addr uint16) uint8 {
	return m.romByte(0, addr)
}

func (m *Memory) readRAM(addr uint16) uint8 {
	return m.ram[addr&(systemRAMSize-1)]
}

func (m *Memory) writeRAM(addr uint16, val uint8) {
	m.ram[addr&(systemRAMSize-1)] = val
	if m.mapper != MapperSega || addr < 0xFFFC {
		return
	}
	switch addr {
	case 0xFFFC:
		m.ramControl = val
		if val&0x08 != 0 {
			m.cartRAMUsed = true
		}
	case 0xFFFD:
		m.bankSlot[0] = val
	case 0xFFFE:
		m.bankSlot[1] = val
	case 0xFFFF:
		m.bankSlot[2] = val
	}
}

// segaCartRAM returns the cartridge RAM offset for a slot 2 address, or
// -1 while slot 2 holds ROM.
func (m *Memory) segaCartRAM(addr uint16) int {
	if m.ramControl&0x08 == 0 {
		return -1
	}
	page := int(m.ramControl>>2) & 0x01
	return page*bankSize + int(addr-0x8000)
}

func (m *Memory) readSegaSlot2(addr uint16) uint8 {
	if off := m.segaCartRAM(addr); off >= 0 {
		return m.cartRAM[off]
	}
	return m.romByte(m.bankSlot[2], addr-0x8000)
}

func (m *Memory) writeSegaSlot2(addr uint16, val uint8) {
	if off := m.segaCartRAM(addr); off >= 0 {
		m.cartRAM[off] = val
	}
}

func (m *Memory) cmBankWriter(slot int, reg uint16) func(uint16, uint8) {
	return func(addr uint16, val uint8) {
		if addr != reg {
			return
		}
		m.bankSlot[slot] = val
		if slot == 1 {
			m.cmRAM = val&0x80 != 0
			if m.cmRAM {
				m.cartRAMUsed = true
			}
		}
	}
}

func (m *Memory) readCMSlot2(addr uint16) uint8 {
	if m.cmRAM && addr >= 0xA000 {
		return m.cartRAM[addr-0xA000]
	}
	return m.romByte(m.bankSlot[2], addr-0x8000)
}

func (m *Memory) writeCMSlot2(addr uint16, val uint8) {
	switch {
	case m.cmRAM && addr >= 0xA000:
		m.cartRAM[addr-0xA000] = val
	case addr == 0x8000:
		m.bankSlot[2] = val
	}
}

// BankSlot returns the bank number mapped to slot 0-2.
func (m *Memory) BankSlot(slot int) uint8 {
	return m.bankSlot[slot]
}
