// Package savestate implements the envelope shared by every core's save
// states: a fixed header identifying the core, format version and ROM,
// followed by an opaque payload protected by a CRC32.
//
// Header layout (little-endian):
//
//	magic   [12]byte
//	version uint16
//	romCRC  uint32
//	dataCRC uint32 (over the payload)
package savestate

import (
	"encoding/binary"
	"errors"
	"hash/crc32"
)

// HeaderSize is the number of bytes preceding the payload.
const HeaderSize = 22 // magic(12) + version(2) + romCRC(4) + dataCRC(4)

// Verification errors. Each is distinct so callers can tell a state
// for another game from a damaged one.
var (
	ErrTooShort = errors.New("save state too short")
	ErrBadMagic = errors.New("invalid save state magic")
	ErrVersion  = errors.New("unsupported save state version")
	ErrWrongROM = errors.New("save state is for a different ROM")
	ErrCorrupt  = errors.New("save state data is corrupted")
)

// Format identifies one core's save states.
type Format struct {
	Magic   string // up to 12 bytes, zero padded
	Version uint16
}

// New allocates a state of payloadSize bytes with room for the header.
func (f Format) New(payloadSize int) []byte {
	return make([]byte, HeaderSize+payloadSize)
}

// Payload returns the portion of data after the header.
func Payload(data []byte) []byte {
	return data[HeaderSize:]
}

// Seal writes the header for a state whose payload has been filled in.
func (f Format) Seal(data []byte, romCRC uint32) {
	var magic [12]byte
	copy(magic[:], f.Magic)
	copy(data[0:12], magic[:])
	binary.LittleEndian.PutUint16(data[12:14], f.Version)
	binary.LittleEndian.PutUint32(data[14:18], romCRC)
	binary.LittleEndian.PutUint32(data[18:22], crc32.ChecksumIEEE(data[HeaderSize:]))
}

// Verify checks a state against the expected total size and ROM without
// applying it.
func (f Format) Verify(data []byte, size int, romCRC uint32) error {
	if len(data) < size || len(data) < HeaderSize {
		return ErrTooShort
	}

	var magic [12]byte
	copy(magic[:], f.Magic)
	if string(data[0:12]) != string(magic[:]) {
		return ErrBadMagic
	}

	if binary.LittleEndian.Uint16(data[12:14]) != f.Version {
		return ErrVersion
	}

	if binary.LittleEndian.Uint32(data[14:18]) != romCRC {
		return ErrWrongROM
	}

	expected := binary.LittleEndian.Uint32(data[18:22])
	if crc32.ChecksumIEEE(data[HeaderSize:]) != expected {
		return ErrCorrupt
	}

	return nil
}

// BoolByte converts a bool to 0 or 1.
func BoolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
