//go:build !libretro && !ios

package main

import (
	"flag"
	"log"
	"strconv"

	"github.com/user-none/eblitui/standalone"
	"github.com/user-none/emsega/adapter"
)

func main() {
	romPath := flag.String("rom", "", "path to ROM file (opens UI if not provided)")
	systemFlag := flag.String("system", "auto", "system: auto, genesis, sms, or gg")
	regionFlag := flag.String("region", "auto", "region: auto, ntsc, or pal")
	sixButton := flag.Bool("six-button", true, "Genesis: enable 6-button controller")
	spriteLimit := flag.Bool("sprite-limit", true, "drop sprites past the per-line hardware limit")
	flag.Parse()

	system := *systemFlag
	if system == "auto" && *romPath == "" {
		system = "genesis"
	}
	factory, err := adapter.ForSystem(system, *romPath)
	if err != nil {
		log.Fatal(err)
	}

	if *romPath != "" {
		options := map[string]string{
			"six_button":   strconv.FormatBool(*sixButton),
			"sprite_limit": strconv.FormatBool(*spriteLimit),
		}
		if err := standalone.RunDirect(factory, *romPath, *regionFlag, options); err != nil {
			log.Fatal(err)
		}
		return
	}

	if err := standalone.Run(factory); err != nil {
		log.Fatal(err)
	}
}
