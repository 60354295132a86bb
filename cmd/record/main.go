// Command record runs a ROM headless and writes its audio, periodic
// screenshots and a hash of the whole run.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	emucore "github.com/user-none/eblitui/api"
	"github.com/user-none/emsega/adapter"
	"github.com/user-none/emsega/record"
)

func main() {
	romPath := flag.String("rom", "", "path to ROM file (required)")
	systemFlag := flag.String("system", "auto", "system: auto, genesis, sms, or gg")
	regionFlag := flag.String("region", "auto", "region: auto, ntsc, or pal")
	frames := flag.Int("frames", 600, "number of frames to run")
	wavPath := flag.String("wav", "", "write audio to this WAV file")
	framesDir := flag.String("frames-dir", "", "write BMP screenshots into this directory")
	every := flag.Int("every", 60, "screenshot interval in frames")
	scale := flag.Int("scale", 1, "screenshot scale factor")
	scriptPath := flag.String("script", "", "Lua script supplying input(frame)")
	hashOnly := flag.Bool("hash", false, "print only the run hash")
	flag.Parse()

	if *romPath == "" {
		log.Fatal("ROM path is required. Usage: record -rom <path> [-frames N]")
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
	defer core.Close()

	opts := record.Options{
		Frames:    *frames,
		Width:     info.ScreenWidth,
		FramesDir: *framesDir,
		Every:     *every,
		Scale:     *scale,
	}

	if *framesDir != "" {
		if err := os.MkdirAll(*framesDir, 0755); err != nil {
			log.Fatal(err)
		}
	}

	if *wavPath != "" {
		f, err := os.Create(*wavPath)
		if err != nil {
			log.Fatal(err)
		}
		defer f.Close()
		opts.WAV = f
	}

	if *scriptPath != "" {
		script, err := record.LoadScript(*scriptPath, info.Buttons)
		if err != nil {
			log.Fatal(err)
		}
		defer script.Close()
		opts.Script = script
	}

	if !*hashOnly {
		opts.Progress = record.NewProgress(os.Stderr)
	}

	res, err := record.Run(core, opts)
	if err != nil {
		log.Fatal(err)
	}

	if *hashOnly {
		fmt.Println(res.Hash)
		return
	}
	fmt.Printf("%s: %d frames, %d samples, %d screenshots\n", info.ConsoleName, res.Frames, res.Samples, res.Dumps)
	fmt.Printf("hash %s\n", res.Hash)
}
