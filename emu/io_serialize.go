package emu

import (
	"encoding/binary"
	"errors"

	"github.com/user-none/emsega/savestate"
)

const (
	ioSerializeVersion = 2

	// controllerSerializeSize is data(1) + ctrl(1) + thState(1) +
	// lastTHHigh(1) + lastCycle(8) + connected(1) + sixButton(1)
	controllerSerializeSize = 14

	// IOSerializeSize is the total bytes needed for IO serialization:
	// version(1) + two ports.
	IOSerializeSize = 1 + 2*controllerSerializeSize
)

func (c *Controller) serialize(buf []byte) {
	buf[0] = c.data
	buf[1] = c.ctrl
	buf[2] = c.thState
	buf[3] = savestate.BoolByte(c.lastTHHigh)
	binary.LittleEndian.PutUint64(buf[4:], c.lastCycle)
	buf[12] = savestate.BoolByte(c.Connected)
	buf[13] = savestate.BoolByte(c.SixButton)
}

func (c *Controller) deserialize(buf []byte) {
	c.data = buf[0]
	c.ctrl = buf[1]
	c.thState = buf[2] & 0x07
	c.lastTHHigh = buf[3] != 0
	c.lastCycle = binary.LittleEndian.Uint64(buf[4:])
	c.Connected = buf[12] != 0
	c.SixButton = buf[13] != 0
}

// Serialize writes IO state to buf. buf must be at least IOSerializeSize bytes.
// Button state is host input and is not saved.
func (io *IO) Serialize(buf []byte) error {
	if len(buf) < IOSerializeSize {
		return errors.New("IO serialize buffer too small")
	}
	buf[0] = ioSerializeVersion
	for i := range io.Ports {
		io.Ports[i].serialize(buf[1+i*controllerSerializeSize:])
	}
	return nil
}

// Deserialize restores IO state from buf.
func (io *IO) Deserialize(buf []byte) error {
	if len(buf) < IOSerializeSize {
		return errors.New("IO deserialize buffer too small")
	}
	if buf[0] != ioSerializeVersion {
		return errors.New("unsupported IO serialize version")
	}
	for i := range io.Ports {
		io.Ports[i].deserialize(buf[1+i*controllerSerializeSize:])
	}
	return nil
}
