package sms

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
)

const (
	bankSize    = 0x4000
	minROMSize  = 0x2000
	maxROMSize  = 0x400000 // 256 banks, the reach of an 8-bit bank register
	copierBlock = 0x200
)

// ROM load errors. A *LoadError wraps one of these.
var (
	ErrROMTooSmall       = errors.New("rom too small")
	ErrBadHeader         = errors.New("bad rom header")
	ErrUnsupportedMapper = errors.New("unsupported cartridge mapper")
)

// LoadError describes why a cartridge image was rejected.
type LoadError struct {
	Err    error
	Detail string
}

func (e *LoadError) Error() string {
	if e.Detail == "" {
		return e.Err.Error()
	}
	return e.Err.Error() + ": " + e.Detail
}

func (e *LoadError) Unwrap() error { return e.Err }

func loadErr(err error, format string, args ...any) *LoadError {
	return &LoadError{Err: err, Detail: fmt.Sprintf(format, args...)}
}

// MapperType identifies the memory mapper used by the cartridge.
type MapperType int

const (
	MapperSega        MapperType = iota // $FFFC-$FFFF registers
	MapperCodemasters                   // $0000, $4000, $8000 registers
)

func (m MapperType) String() string {
	if m == MapperCodemasters {
		return "codemasters"
	}
	return "sega"
}

// romInfo is a database entry for cartridges the header cannot describe.
type romInfo struct {
	Mapper  MapperType
	Region  Region
	Battery bool
}

// romDatabase is keyed by the CRC32 of the image without a copier header.
var romDatabase = map[uint32]romInfo{
	0xa577ce46: {Mapper: MapperCodemasters, Region: RegionPAL},                // Micro Machines
	0x29822980: {Mapper: MapperCodemasters, Region: RegionPAL},                // Cosmic Spacehead
	0xb9664ae1: {Mapper: MapperCodemasters, Region: RegionPAL},                // Fantastic Dizzy
	0x8813514b: {Mapper: MapperCodemasters, Region: RegionPAL},                // Excellent Dizzy Collection
	0xea5c3a6f: {Mapper: MapperCodemasters, Region: RegionPAL},                // Dinobasher
	0xf7c524f6: {Mapper: MapperCodemasters, Region: RegionPAL},                // Micro Machines (GG)
	0x5e53c7f7: {Mapper: MapperCodemasters, Region: RegionPAL, Battery: true}, // Ernie Els Golf (GG)
}

// Cartridge is a validated Master System or Game Gear image.
type Cartridge struct {
	ROM     []byte
	CRC32   uint32
	Variant Variant
	Mapper  MapperType
	Battery bool

	// Export is false for Japanese cartridges, which see the console's
	// nationality bits inverted.
	Export bool

	// Region and KnownRegion come from the database. The header carries no
	// timing information.
	Region      Region
	KnownRegion bool
}

// LoadROM validates a cartridge image for the given console. A 512 byte
// copier header is stripped.
func LoadROM(rom []byte, variant Variant) (*Cartridge, error) {
	if len(rom)%bankSize == copierBlock {
		rom = rom[copierBlock:]
	}
	if len(rom) < minROMSize {
		return nil, loadErr(ErrROMTooSmall, "%d bytes", len(rom))
	}
	if len(rom) > maxROMSize {
		return nil, loadErr(ErrUnsupportedMapper, "%d byte image exceeds the Sega mapper", len(rom))
	}
	if len(rom)%0x400 != 0 {
		return nil, loadErr(ErrBadHeader, "%d bytes is not a whole number of kilobytes", len(rom))
	}

	cart := &Cartridge{
		ROM:     rom,
		CRC32:   crc32.ChecksumIEEE(rom),
		Variant: variant,
		Mapper:  MapperSega,
		Export:  true,
		Region:  RegionNTSC,
	}
	if hdr, ok := findHeader(rom); ok {
		cart.Export = exportRegionCode(rom[hdr+0x0F] >> 4)
	}
	if info, ok := romDatabase[cart.CRC32]; ok {
		cart.Mapper = info.Mapper
		cart.Region = info.Region
		cart.Battery = info.Battery
		cart.KnownRegion = true
	} else if hasCodemastersHeader(rom) {
		cart.Mapper = MapperCodemasters
	}
	return cart, nil
}

// findHeader returns the offset of the "TMR SEGA" header block.
func findHeader(rom []byte) (int, bool) {
	for _, off := range []int{0x7FF0, 0x3FF0, 0x1FF0} {
		if off+0x10 <= len(rom) && string(rom[off:off+8]) == "TMR SEGA" {
			return off, true
		}
	}
	return 0, false
}

// exportRegionCode reports whether a header region code belongs to a
// non-Japanese release. 3 and 5 are the Japanese SMS and GG codes.
func exportRegionCode(code byte) bool {
	return code != 3 && code != 5
}

// hasCodemastersHeader recognizes the checksum block Codemasters placed at
// $7FE0: a little-endian checksum at $7FE6 and its complement at $7FE8
// summing to $10000.
func hasCodemastersHeader(rom []byte) bool {
	if len(rom) < 0x8000 {
		return false
	}
	sum := binary.LittleEndian.Uint16(rom[0x7FE6:])
	inv := binary.LittleEndian.Uint16(rom[0x7FE8:])
	return sum != 0 && uint32(sum)+uint32(inv) == 0x10000
}

// DetectRegion returns the database region for a ROM. The bool is false
// when the ROM is unknown and NTSC is only a default.
func DetectRegion(rom []byte) (Region, bool) {
	if len(rom)%bankSize == copierBlock {
		rom = rom[copierBlock:]
	}
	if info, ok := romDatabase[crc32.ChecksumIEEE(rom)]; ok {
		return info.Region, true
	}
	return RegionNTSC, false
}
