package main

import (
	"flag"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	emucore "github.com/user-none/eblitui/api"
	"github.com/user-none/emsega/adapter"
	emubridge "github.com/user-none/emsega/bridge/ebiten"
	"github.com/user-none/emsega/cli"
)

func main() {
	romPath := flag.String("rom", "", "path to ROM file (required)")
	systemFlag := flag.String("system", "auto", "system: auto, genesis, sms, or gg")
	regionFlag := flag.String("region", "auto", "region: auto, ntsc, or pal")
	sixButton := flag.Bool("6button", true, "Genesis: enable 6-button controller (false for 3-button)")
	spriteLimit := flag.Bool("sprite-limit", true, "drop sprites past the per-line hardware limit")
	ladder := flag.Bool("ladder", true, "Genesis: emulate the YM2612 DAC ladder distortion")
	flag.Parse()

	if *romPath == "" {
		log.Fatal("ROM path is required. Usage: emsega -rom <path>")
	}

	romData, err := os.ReadFile(*romPath)
	if err != nil {
		log.Fatalf("Failed to load ROM: %v", err)
	}

	factory, err := adapter.ForSystem(*systemFlag, *romPath)
	if err != nil {
		log.Fatal(err)
	}
	info := factory.SystemInfo()

	var region emucore.Region
	switch strings.ToLower(*regionFlag) {
	case "auto":
		region, _ = factory.DetectRegion(romData)
	case "ntsc":
		region = emucore.RegionNTSC
	case "pal":
		region = emucore.RegionPAL
	default:
		log.Fatalf("Invalid region: %s (use auto, ntsc, or pal)", *regionFlag)
	}

	core, err := factory.CreateEmulator(romData, region)
	if err != nil {
		log.Fatalf("Failed to initialize emulator: %v", err)
	}
	core.SetOption("six_button", strconv.FormatBool(*sixButton))
	core.SetOption("sprite_limit", strconv.FormatBool(*spriteLimit))
	core.SetOption("ym2612_ladder", strconv.FormatBool(*ladder))

	e := emubridge.NewEmulator(core, info.ScreenWidth)

	base := strings.TrimSuffix(*romPath, filepath.Ext(*romPath))
	srmPath := base + ".srm"
	battery, _ := core.(emucore.BatterySaver)
	if battery != nil {
		if data, err := os.ReadFile(srmPath); err == nil {
			battery.SetSRAM(data)
		}
	}

	ebiten.SetWindowSize(info.ScreenWidth*2, core.GetActiveHeight()*2)
	ebiten.SetWindowTitle(info.ConsoleName + " - " + info.CoreName)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowSizeLimits(info.ScreenWidth, core.GetActiveHeight(), -1, -1)
	ebiten.SetTPS(60)

	runner := cli.NewRunner(e, info, base+".state")
	defer e.Close()

	// Save SRAM on exit, after the emulation goroutine has stopped.
	defer func() {
		if battery != nil && battery.HasSRAM() {
			if err := os.WriteFile(srmPath, battery.GetSRAM(), 0644); err != nil {
				log.Printf("Failed to write %s: %v", srmPath, err)
			}
		}
	}()
	defer runner.Close()

	if err := ebiten.RunGame(runner); err != nil {
		log.Fatal(err)
	}
}
