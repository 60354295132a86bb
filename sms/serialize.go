package sms

import (
	"errors"
	"fmt"

	"github.com/user-none/emsega/savestate"
	"github.com/user-none/go-chip-sn76489"
)

// Save state formats. The two consoles never share states.
var (
	smsFormat = savestate.Format{Magic: "eMSGMasterSy", Version: 2}
	ggFormat  = savestate.Format{Magic: "eMSGGameGear", Version: 2}
)

const (
	clockDevices       = 2
	clockSerializeSize = 1 + 8 + 8 + clockDevices*16

	memVersion = 1
	// memSerializeSize is version(1) + ram + cartRAM + bankSlot(3) +
	// ramControl(1) + cmRAM(1) + cartRAMUsed(1).
	memSerializeSize = 1 + systemRAMSize + cartRAMSize + 3 + 1 + 1 + 1

	emuSerializeSize = 1 // startHeld

	payloadSize = cpuSerializeSize +
		memSerializeSize +
		vdpSerializeSize +
		sn76489.SerializeSize +
		ioSerializeSize +
		clockSerializeSize +
		emuSerializeSize
)

// SerializeSize returns the size of a save state for either console.
func SerializeSize() int {
	return savestate.HeaderSize + payloadSize
}

type section struct {
	size int
	save func([]byte) error
	load func([]byte) error
}

func (e *Emulator) sections() []section {
	return []section{
		{cpuSerializeSize, e.cpu.Serialize, e.cpu.Deserialize},
		{memSerializeSize, e.serializeMemory, e.deserializeMemory},
		{vdpSerializeSize, e.vdp.Serialize, e.vdp.Deserialize},
		{sn76489.SerializeSize, e.psg.Serialize, e.psg.Deserialize},
		{ioSerializeSize, e.io.Serialize, e.io.Deserialize},
		{clockSerializeSize, e.clock.Serialize, e.clock.Deserialize},
		{emuSerializeSize, e.serializeEmu, e.deserializeEmu},
	}
}

func (e *Emulator) format() savestate.Format {
	if e.gg {
		return ggFormat
	}
	return smsFormat
}

// Serialize creates a save state and returns it as a byte slice.
func (e *Emulator) Serialize() ([]byte, error) {
	f := e.format()
	data := f.New(payloadSize)
	payload := savestate.Payload(data)

	off := 0
	for _, s := range e.sections() {
		if err := s.save(payload[off : off+s.size]); err != nil {
			return nil, err
		}
		off += s.size
	}
	f.Seal(data, e.cart.CRC32)
	return data, nil
}

// Deserialize restores emulator state from a save state byte slice. The
// region setting is kept. A state that fails partway through leaves the
// emulator as it was.
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
	return e.format().Verify(data, SerializeSize(), e.cart.CRC32)
}

func (e *Emulator) serializeMemory(buf []byte) error {
	m := e.mem
	w := savestate.NewWriter(buf)
	w.U8(memVersion)
	w.Bytes(m.ram[:])
	w.Bytes(m.cartRAM[:])
	w.Bytes(m.bankSlot[:])
	w.U8(m.ramControl)
	w.Bool(m.cmRAM)
	w.Bool(m.cartRAMUsed)
	return nil
}

func (e *Emulator) deserializeMemory(buf []byte) error {
	m := e.mem
	r := savestate.NewReader(buf)
	if r.U8() != memVersion {
		return errors.New("memory: unsupported serialize version")
	}
	r.Bytes(m.ram[:])
	r.Bytes(m.cartRAM[:])
	r.Bytes(m.bankSlot[:])
	m.ramControl = r.U8()
	m.cmRAM = r.Bool()
	m.cartRAMUsed = r.Bool()
	return nil
}

func (e *Emulator) serializeEmu(buf []byte) error {
	buf[0] = savestate.BoolByte(e.startHeld)
	return nil
}

func (e *Emulator) deserializeEmu(buf []byte) error {
	e.startHeld = buf[0] != 0
	return nil
}
