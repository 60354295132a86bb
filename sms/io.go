package sms

import (
	"errors"

	emucore "github.com/user-none/eblitui/api"
	"github.com/user-none/emsega/savestate"
	"github.com/user-none/go-chip-sn76489"
)

// Bit positions of the system buttons in a SetInput mask, following the
// d-pad bits defined by emucore. Button 1 and 2 sit directly above the
// d-pad so the low six bits match the $DC pin order.
const (
	Button1ID     = emucore.ButtonRight + 1
	Button2ID     = emucore.ButtonRight + 2
	ButtonStartID = 7 // Pause on the Master System, Start on the Game Gear
)

// Button bits of a pad as delivered through SetInput.
const (
	buttonUp    = 1 << emucore.ButtonUp
	buttonDown  = 1 << emucore.ButtonDown
	buttonLeft  = 1 << emucore.ButtonLeft
	buttonRight = 1 << emucore.ButtonRight
	button1     = 1 << Button1ID
	button2     = 1 << Button2ID
	buttonStart = 1 << ButtonStartID
)

// IO decodes the Z80 port space. Only the low 8 address bits take part.
//
//	$00-$06     Game Gear only: start/nationality, serial, stereo
//	$00-$3F     memory control (even), I/O control (odd); reads float
//	$40-$7F     V counter / H counter; writes go to the PSG
//	$80-$BF     VDP data (even) / control (odd)
//	$C0-$FF     pad ports $DC (even) / $DD (odd)
type IO struct {
	vdp *VDP
	psg *sn76489.SN76489

	gg     bool
	export bool

	pad [2]uint8 // pressed buttons, active high

	memControl uint8 // $3E
	ioControl  uint8 // $3F
	stereo     uint8 // GG $06: bits 4-7 left enable, 0-3 right enable

	// Last value driven on the data bus by any memory or port cycle.
	// Bus updates it for memory traffic.
	openBus uint8
}

// NewIO wires the port space to the VDP and PSG.
func NewIO(vdp *VDP, psg *sn76489.SN76489, gg, export bool) *IO {
	return &IO{
		vdp:       vdp,
		psg:       psg,
		gg:        gg,
		export:    export,
		ioControl: 0xFF, // both TH lines inputs
		stereo:    0xFF,
		openBus:   0xFF,
	}
}

// SetPad sets the pressed-button mask of pad 0 or 1.
func (io *IO) SetPad(player int, buttons uint32) {
	if player < 0 || player > 1 {
		return
	}
	io.pad[player] = uint8(buttons)
}

// In handles a Z80 IN instruction.
func (io *IO) In(port uint8) uint8 {
	v := io.read(port)
	io.openBus = v
	return v
}

func (io *IO) read(port uint8) uint8 {
	if io.gg && port <= 0x06 {
		return io.readGG(port)
	}
	switch {
	case port < 0x40:
		return io.openBus
	case port < 0x80:
		if port&1 == 0 {
			return io.vdp.ReadVCounter()
		}
		return io.vdp.ReadHCounter()
	case port < 0xC0:
		if port&1 == 0 {
			return io.vdp.ReadData()
		}
		return io.vdp.ReadControl()
	}
	if port&1 == 0 {
		return io.portDC()
	}
	return io.portDD()
}

func (io *IO) readGG(port uint8) uint8 {
	switch port {
	case 0x00:
		// Start released, export console, bit 5 clear for NTSC.
		v := uint8(0xC0)
		if io.pad[0]&buttonStart != 0 {
			v &^= 0x80
		}
		if !io.export {
			v &^= 0x40
		}
		return v
	case 0x01, 0x03, 0x05:
		return 0x00
	case 0x02, 0x04:
		return 0xFF
	}
	return io.stereo
}

// portDC returns pad 1 and the first two lines of pad 2, active low.
func (io *IO) portDC() uint8 {
	p1 := io.pad[0] & (buttonUp | buttonDown | buttonLeft | buttonRight | button1 | button2)
	var p2 uint8
	if !io.gg {
		p2 = io.pad[1] & (buttonUp | buttonDown)
	}
	return ^(p1 | p2<<6)
}

// portDD returns the rest of pad 2, the reset button and the TH lines.
func (io *IO) portDD() uint8 {
	var low uint8
	if !io.gg {
		low = io.pad[1] >> 2 & 0x0F
	}
	v := ^low & 0x3F
	v |= io.thLevel(1, 5) << 6
	v |= io.thLevel(3, 7) << 7
	return v
}

// thLevel returns a TH pin as read back through $DD. A pin configured as
// an output reads its own level on export consoles and the inverse on
// Japanese ones, which is how games detect the nationality.
func (io *IO) thLevel(dirBit, levelBit uint) uint8 {
	if io.ioControl>>dirBit&1 != 0 {
		return 1
	}
	level := io.ioControl >> levelBit & 1
	if !io.export {
		level ^= 1
	}
	return level
}

// Out handles a Z80 OUT instruction.
func (io *IO) Out(port uint8, val uint8) {
	io.openBus = val
	if io.gg && port <= 0x06 {
		if port == 0x06 {
			io.stereo = val
		}
		return
	}
	switch {
	case port < 0x40:
		if port&1 == 0 {
			io.memControl = val
		} else {
			io.ioControl = val
		}
	case port < 0x80:
		io.psg.Write(val)
	case port < 0xC0:
		if port&1 == 0 {
			io.vdp.WriteData(val)
		} else {
			io.vdp.WriteControl(val)
		}
	}
}

// Stereo returns the Game Gear panning register.
func (io *IO) Stereo() uint8 {
	return io.stereo
}

const (
	ioSerializeVersion = 1
	ioSerializeSize    = 1 + 2 + 1 + 1 + 1 + 1 // version, pads, memControl, ioControl, stereo, openBus
)

// Serialize writes the port state into buf.
func (io *IO) Serialize(buf []byte) error {
	if len(buf) < ioSerializeSize {
		return errors.New("io: serialize buffer too small")
	}
	w := savestate.NewWriter(buf)
	w.U8(ioSerializeVersion)
	w.U8(io.pad[0])
	w.U8(io.pad[1])
	w.U8(io.memControl)
	w.U8(io.ioControl)
	w.U8(io.stereo)
	w.U8(io.openBus)
	return nil
}

// Deserialize restores state written by Serialize.
func (io *IO) Deserialize(buf []byte) error {
	if len(buf) < ioSerializeSize {
		return errors.New("io: deserialize buffer too small")
	}
	r := savestate.NewReader(buf)
	if r.U8() != ioSerializeVersion {
		return errors.New("io: unsupported serialize version")
	}
	io.pad[0] = r.U8()
	io.pad[1] = r.U8()
	io.memControl = r.U8()
	io.ioControl = r.U8()
	io.stereo = r.U8()
	io.openBus = r.U8()
	return nil
}

// Bus adapts Memory and IO into the go-chip-z80 Bus interface.
type Bus struct {
	mem *Memory
	io  *IO
}

// NewBus bridges memory and I/O.
func NewBus(mem *Memory, io *IO) *Bus {
	return &Bus{mem: mem, io: io}
}

// Every memory cycle drives the data bus, so fetches, reads and writes
// all refresh the open-bus latch seen by unmapped ports.

func (b *Bus) Fetch(addr uint16) uint8 {
	v := b.mem.Get(addr)
	b.io.openBus = v
	return v
}

func (b *Bus) Read(addr uint16) uint8 {
	v := b.mem.Get(addr)
	b.io.openBus = v
	return v
}

func (b *Bus) Write(addr uint16, val uint8) {
	b.io.openBus = val
	b.mem.Set(addr, val)
}

func (b *Bus) In(port uint16) uint8       { return b.io.In(uint8(port)) }
func (b *Bus) Out(port uint16, val uint8) { b.io.Out(uint8(port), val) }
