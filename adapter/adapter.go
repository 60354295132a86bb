// Package adapter exposes the cores to eblitui frontends.
package adapter

import (
	"fmt"
	"path/filepath"
	"strings"

	emucore "github.com/user-none/eblitui/api"
	"github.com/user-none/emsega/emu"
	"github.com/user-none/emsega/sms"
)

// Compile-time interface checks.
var (
	_ emucore.CoreFactory = (*Factory)(nil)
	_ emucore.CoreFactory = (*SMSFactory)(nil)
	_ emucore.CoreFactory = (*GGFactory)(nil)
)

// Factory implements emucore.CoreFactory for the Genesis emulator.
type Factory struct{}

// SystemInfo returns system metadata for UI configuration.
func (f *Factory) SystemInfo() emucore.SystemInfo {
	return emucore.SystemInfo{
		Name:            "emsega-md",
		ConsoleName:     "Sega Genesis",
		Extensions:      []string{".md", ".bin", ".gen"},
		ScreenWidth:     emu.ScreenWidth,
		MaxScreenHeight: emu.MaxScreenHeight,
		AspectRatio:     320.0 / 224.0,
		SampleRate:      48000,
		Buttons: []emucore.Button{
			{Name: "A", ID: 4, DefaultKey: "J", DefaultPad: "X"},
			{Name: "B", ID: 5, DefaultKey: "K", DefaultPad: "A"},
			{Name: "C", ID: 6, DefaultKey: "L", DefaultPad: "B"},
			{Name: "X", ID: 8, DefaultKey: "U", DefaultPad: "L1"},
			{Name: "Y", ID: 9, DefaultKey: "I", DefaultPad: "Y"},
			{Name: "Z", ID: 10, DefaultKey: "O", DefaultPad: "R1"},
			{Name: "Start", ID: 7, DefaultKey: "Enter", DefaultPad: "Start"},
			{Name: "Mode", ID: 11, DefaultKey: "P", DefaultPad: "Select"},
		},
		Players: 2,
		CoreOptions: []emucore.CoreOption{
			{
				Key:         "six_button",
				Label:       "6-Button Controller",
				Description: "Enable 6-button controller mode",
				Type:        emucore.CoreOptionBool,
				Default:     "false",
				Category:    emucore.CoreOptionCategoryInput,
			},
			spriteLimitOption,
			{
				Key:         "ym2612_ladder",
				Label:       "YM2612 Ladder Effect",
				Description: "Emulate the DAC crossover distortion of the discrete YM2612",
				Type:        emucore.CoreOptionBool,
				Default:     "true",
				Category:    emucore.CoreOptionCategoryAudio,
			},
		},
		RDBName:         "Sega - Mega Drive - Genesis",
		ThumbnailRepo:   "Sega_-_Mega_Drive_-_Genesis",
		DataDirName:     "emsega-md",
		ConsoleID:       1,
		CoreName:        emu.Name,
		CoreVersion:     emu.Version,
		SerializeSize:   emu.SerializeSize(),
		BigEndianMemory: true,
	}
}

// CreateEmulator creates a new emulator instance with the given ROM and region.
func (f *Factory) CreateEmulator(rom []byte, region emucore.Region) (emucore.Emulator, error) {
	e, err := emu.NewEmulator(rom, region)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// DetectRegion auto-detects the region from ROM header data.
// The bool return is false since the Genesis uses header-based detection,
// not a ROM database lookup.
func (f *Factory) DetectRegion(rom []byte) (emucore.Region, bool) {
	return emu.DetectRegion(rom), false
}

var spriteLimitOption = emucore.CoreOption{
	Key:         "sprite_limit",
	Label:       "Sprite Limit",
	Description: "Drop sprites past the per-line hardware limit",
	Type:        emucore.CoreOptionBool,
	Default:     "true",
	Category:    emucore.CoreOptionCategoryVideo,
	PerGame:     true,
}

// SMSFactory implements emucore.CoreFactory for the Master System.
type SMSFactory struct{}

// SystemInfo returns system metadata for UI configuration.
func (f *SMSFactory) SystemInfo() emucore.SystemInfo {
	return emucore.SystemInfo{
		Name:            "emsega-sms",
		ConsoleName:     "Sega Master System",
		Extensions:      []string{".sms"},
		ScreenWidth:     sms.ScreenWidth,
		MaxScreenHeight: sms.MaxScreenHeight,
		AspectRatio:     4.0 / 3.0,
		SampleRate:      48000,
		Buttons: []emucore.Button{
			{Name: "1", ID: sms.Button1ID, DefaultKey: "J", DefaultPad: "A"},
			{Name: "2", ID: sms.Button2ID, DefaultKey: "K", DefaultPad: "B"},
			{Name: "Pause", ID: sms.ButtonStartID, DefaultKey: "Enter", DefaultPad: "Start"},
		},
		Players:       2,
		CoreOptions:   []emucore.CoreOption{spriteLimitOption},
		RDBName:       "Sega - Master System - Mark III",
		ThumbnailRepo: "Sega_-_Master_System_-_Mark_III",
		DataDirName:   "emsega-sms",
		ConsoleID:     2,
		CoreName:      sms.Name,
		CoreVersion:   sms.Version,
		SerializeSize: sms.SerializeSize(),
	}
}

// CreateEmulator creates a new emulator instance with the given ROM and region.
func (f *SMSFactory) CreateEmulator(rom []byte, region emucore.Region) (emucore.Emulator, error) {
	e, err := sms.NewEmulator(rom, sms.VariantSMS, region)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// DetectRegion looks the ROM up in the mapper database.
func (f *SMSFactory) DetectRegion(rom []byte) (emucore.Region, bool) {
	return sms.DetectRegion(rom)
}

// GGFactory implements emucore.CoreFactory for the Game Gear.
type GGFactory struct{}

// SystemInfo returns system metadata for UI configuration.
func (f *GGFactory) SystemInfo() emucore.SystemInfo {
	return emucore.SystemInfo{
		Name:            "emsega-gg",
		ConsoleName:     "Sega Game Gear",
		Extensions:      []string{".gg"},
		ScreenWidth:     sms.GGScreenWidth,
		MaxScreenHeight: sms.GGScreenHeight,
		AspectRatio:     10.0 / 9.0,
		SampleRate:      48000,
		Buttons: []emucore.Button{
			{Name: "1", ID: sms.Button1ID, DefaultKey: "J", DefaultPad: "A"},
			{Name: "2", ID: sms.Button2ID, DefaultKey: "K", DefaultPad: "B"},
			{Name: "Start", ID: sms.ButtonStartID, DefaultKey: "Enter", DefaultPad: "Start"},
		},
		Players:       1,
		CoreOptions:   []emucore.CoreOption{spriteLimitOption},
		RDBName:       "Sega - Game Gear",
		ThumbnailRepo: "Sega_-_Game_Gear",
		DataDirName:   "emsega-gg",
		ConsoleID:     3,
		CoreName:      sms.Name,
		CoreVersion:   sms.Version,
		SerializeSize: sms.SerializeSize(),
	}
}

// CreateEmulator creates a new emulator instance with the given ROM and region.
func (f *GGFactory) CreateEmulator(rom []byte, region emucore.Region) (emucore.Emulator, error) {
	e, err := sms.NewEmulator(rom, sms.VariantGG, region)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// DetectRegion looks the ROM up in the mapper database.
func (f *GGFactory) DetectRegion(rom []byte) (emucore.Region, bool) {
	return sms.DetectRegion(rom)
}

// Systems lists the accepted values of ForSystem.
var Systems = []string{"genesis", "sms", "gg"}

// ForSystem returns the factory for a system name. "auto" picks one from
// the ROM file extension, falling back to the Genesis.
func ForSystem(system, romPath string) (emucore.CoreFactory, error) {
	if system == "auto" {
		system = systemForExt(strings.ToLower(filepath.Ext(romPath)))
	}
	switch system {
	case "genesis", "md":
		return &Factory{}, nil
	case "sms":
		return &SMSFactory{}, nil
	case "gg":
		return &GGFactory{}, nil
	}
	return nil, fmt.Errorf("unknown system %q (use auto, %s)", system, strings.Join(Systems, ", "))
}

func systemForExt(ext string) string {
	for _, f := range []emucore.CoreFactory{&SMSFactory{}, &GGFactory{}} {
		info := f.SystemInfo()
		for _, e := range info.Extensions {
			if e == ext {
				return strings.TrimPrefix(info.Name, "emsega-")
			}
		}
	}
	return "genesis"
}
