package emu

import (
	"fmt"

	"github.com/user-none/emsega/savestate"
	"github.com/user-none/go-chip-m68k"
	"github.com/user-none/go-chip-sn76489"
	"github.com/user-none/go-chip-z80"
)

// stateFormat identifies Genesis save states.
var stateFormat = savestate.Format{Magic: "eMSGGenesis", Version: 2}

const (
	// clockDevices is the number of devices NewEmulator attaches.
	clockDevices        = 5
	clockSerializeSize  = 1 + 8 + 8 + clockDevices*16
	busSerializeSize    = mainRAMSize + z80RAMSize + maxSRAMSize + 2 + 2 // ram, z80RAM, sram, flags, openBus
	z80MemSerializeSize = 2 + 1                                          // bankRegister + openBus
	soundSerializeSize  = 1                                              // intPending

	payloadSize = m68k.SerializeSize +
		z80.SerializeSize +
		busSerializeSize +
		z80MemSerializeSize +
		arbiterSerializeSize +
		clockSerializeSize +
		VDPSerializeSize +
		YM2612SerializeSize +
		sn76489.SerializeSize +
		IOSerializeSize +
		soundSerializeSize +
		mixerSerializeSize
)

// SerializeSize returns the size of a Genesis save state. SRAM always
// occupies its maximum size so every state is the same length.
func SerializeSize() int {
	return savestate.HeaderSize + payloadSize
}

// section is one fixed-size component of the payload.
type section struct {
	size int
	save func([]byte) error
	load func([]byte) error
}

func (e *Emulator) sections() []section {
	return []section{
		{m68k.SerializeSize, e.m68k.Serialize, e.m68k.Deserialize},
		{z80.SerializeSize, e.z80.Serialize, e.z80.Deserialize},
		{busSerializeSize, e.serializeBus, e.deserializeBus},
		{z80MemSerializeSize, e.serializeZ80Mem, e.deserializeZ80Mem},
		{arbiterSerializeSize, e.serializeArbiter, e.deserializeArbiter},
		{clockSerializeSize, e.clock.Serialize, e.clock.Deserialize},
		{VDPSerializeSize, e.vdp.Serialize, e.vdp.Deserialize},
		{YM2612SerializeSize, e.ym2612.Serialize, e.ym2612.Deserialize},
		{sn76489.SerializeSize, e.psg.Serialize, e.psg.Deserialize},
		{IOSerializeSize, e.io.Serialize, e.io.Deserialize},
		{soundSerializeSize, e.serializeSound, e.deserializeSound},
		{mixerSerializeSize, e.serializeMixer, e.deserializeMixer},
	}
}

// Serialize creates a save state and returns it as a byte slice.
func (e *Emulator) Serialize() ([]byte, error) {
	data := stateFormat.New(payloadSize)
	payload := savestate.Payload(data)

	off := 0
	for _, s := range e.sections() {
		if err := s.save(payload[off : off+s.size]); err != nil {
			return nil, err
		}
		off += s.size
	}

	stateFormat.Seal(data, e.bus.romCRC)
	return data, nil
}

// Deserialize restores emulator state from a save state byte slice. The
// region setting is not part of the state and is kept. A state that fails
// partway through leaves the emulator as it was.
func (e *Emulator) Deserialize(data []byte) error {
	if err := e.VerifyState(data); err != nil {
		return err
	}

	backup, err := e.Serialize()
	if err != nil {
		return err
	}
	if err := e.load(savestate.Payload(data)); err != nil {
		if rerr := e.load(savestate.Payload(backup)); rerr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rerr)
		}
		return err
	}
	return nil
}

func (e *Emulator) load(payload []byte) error {
	off := 0
	for _, s := range e.sections() {
		if err := s.load(payload[off : off+s.size]); err != nil {
			return err
		}
		off += s.size
	}
	return nil
}

// VerifyState checks if a save state is valid without loading it.
func (e *Emulator) VerifyState(data []byte) error {
	return stateFormat.Verify(data, SerializeSize(), e.bus.romCRC)
}

func (e *Emulator) serializeBus(buf []byte) error {
	w := savestate.Writer{Buf: buf}
	w.Bytes(e.bus.ram[:])
	w.Bytes(e.bus.z80RAM[:])

	var sram [maxSRAMSize]byte
	copy(sram[:], e.bus.sram)
	w.Bytes(sram[:])

	w.Bool(e.bus.sramEnabled)
	w.Bool(e.bus.sramWritable)
	w.U16(e.bus.openBus)
	return nil
}

func (e *Emulator) deserializeBus(buf []byte) error {
	r := savestate.Reader{Buf: buf}
	r.Bytes(e.bus.ram[:])
	r.Bytes(e.bus.z80RAM[:])

	var sram [maxSRAMSize]byte
	r.Bytes(sram[:])
	copy(e.bus.sram, sram[:])

	e.bus.sramEnabled = r.Bool()
	e.bus.sramWritable = r.Bool()
	e.bus.openBus = r.U16()
	return nil
}

func (e *Emulator) serializeZ80Mem(buf []byte) error {
	w := savestate.Writer{Buf: buf}
	w.U16(e.z80Mem.bankRegister)
	w.U8(e.z80Mem.openBus)
	return nil
}

func (e *Emulator) deserializeZ80Mem(buf []byte) error {
	r := savestate.Reader{Buf: buf}
	e.z80Mem.bankRegister = r.U16() & 0x1FF
	e.z80Mem.openBus = r.U8()
	return nil
}

func (e *Emulator) serializeArbiter(buf []byte) error {
	e.arb.serialize(buf)
	return nil
}

func (e *Emulator) deserializeArbiter(buf []byte) error {
	if buf[0] != 1 {
		return fmt.Errorf("unsupported arbiter state version %d", buf[0])
	}
	e.arb.deserialize(buf)
	return nil
}

func (e *Emulator) serializeSound(buf []byte) error {
	buf[0] = savestate.BoolByte(e.sound.intPending)
	return nil
}

func (e *Emulator) deserializeSound(buf []byte) error {
	e.sound.intPending = buf[0] != 0
	return nil
}

func (e *Emulator) serializeMixer(buf []byte) error {
	w := savestate.Writer{Buf: buf}
	e.mixer.serialize(&w)
	return nil
}

func (e *Emulator) deserializeMixer(buf []byte) error {
	r := savestate.Reader{Buf: buf}
	e.mixer.deserialize(&r)
	return nil
}
