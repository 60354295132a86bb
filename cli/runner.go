// Package cli provides a command-line runner for the emulator.
// It handles input polling and runs the emulator in a window without the full UI.
package cli

import (
	"log"
	"os"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	emucore "github.com/user-none/eblitui/api"
	emubridge "github.com/user-none/emsega/bridge/ebiten"
	"github.com/user-none/emsega/ui"
)

// ADT buffer thresholds in bytes.
const (
	adtMinBuffer = 9600
	adtMaxBuffer = 19200
)

// Runner wraps an emulator for command-line mode.
// The emulator runs on a dedicated goroutine with audio-driven timing.
// The Ebiten thread handles input polling and rendering from the shared framebuffer.
type Runner struct {
	emulator    *emubridge.Emulator
	audioPlayer *ui.AudioPlayer
	bindings    []binding
	statePath   string

	// ADT goroutine control
	emuControl        *ui.EmuControl
	sharedInput       *ui.SharedInput
	sharedFramebuffer *ui.SharedFramebuffer
	emuDone           chan struct{}
}

// NewRunner creates a new Runner wrapping the given emulator. Keys and
// pad buttons come from the system's button list. statePath is where F5
// saves and F9 loads a state; empty disables both.
// Audio initialization failure is non-fatal; the runner will work without sound.
func NewRunner(e *emubridge.Emulator, info emucore.SystemInfo, statePath string) *Runner {
	player, err := ui.NewAudioPlayer(1.0)
	if err != nil {
		log.Printf("[cli] audio initialization failed: %v", err)
	}

	r := &Runner{
		emulator:          e,
		audioPlayer:       player,
		bindings:          bindButtons(info.Buttons),
		statePath:         statePath,
		emuControl:        ui.NewEmuControl(),
		sharedInput:       &ui.SharedInput{},
		sharedFramebuffer: ui.NewSharedFramebuffer(e.GetFramebufferStride(), info.MaxScreenHeight),
		emuDone:           make(chan struct{}),
	}

	go r.emulationLoop()

	return r
}

// Close cleans up the runner's resources.
func (r *Runner) Close() {
	r.emuControl.Stop()
	<-r.emuDone

	if r.audioPlayer != nil {
		r.audioPlayer.Close()
		r.audioPlayer = nil
	}
}

// emulationLoop runs on a dedicated goroutine with ADT.
func (r *Runner) emulationLoop() {
	defer close(r.emuDone)

	timing := r.emulator.GetTiming()
	frameTime := time.Duration(float64(time.Second) / float64(timing.FPS))
	lastFrameTime := time.Now()

	for r.emuControl.CheckPause() {
		for player, buttons := range r.sharedInput.Read() {
			r.emulator.SetInput(player, buttons)
		}

		r.emulator.RunFrame()

		if r.audioPlayer != nil {
			r.audioPlayer.QueueSamples(r.emulator.GetAudioSamples())
		}

		r.sharedFramebuffer.Update(
			r.emulator.GetFramebuffer(),
			r.emulator.GetFramebufferStride(),
			r.emulator.GetActiveHeight(),
		)

		// ADT sleep
		sleepTime := frameTime - time.Since(lastFrameTime)
		if r.audioPlayer != nil && !r.audioPlayer.Muted() {
			switch level := r.audioPlayer.GetBufferLevel(); {
			case level < adtMinBuffer:
				sleepTime = time.Duration(float64(sleepTime) * 0.9)
			case level > adtMaxBuffer:
				sleepTime = time.Duration(float64(sleepTime) * 1.1)
			}
		}
		if sleepTime > time.Millisecond {
			time.Sleep(sleepTime)
		}

		lastFrameTime = time.Now()
	}
}

// Update implements ebiten.Game.
func (r *Runner) Update() error {
	if !ebiten.IsFocused() {
		return nil
	}

	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeyF5):
		r.withPaused(r.saveState)
	case inpututil.IsKeyJustPressed(ebiten.KeyF9):
		r.withPaused(r.loadState)
	case inpututil.IsKeyJustPressed(ebiten.KeyM) && r.audioPlayer != nil:
		r.audioPlayer.SetMuted(!r.audioPlayer.Muted())
	case inpututil.IsKeyJustPressed(ebiten.KeyEscape):
		r.togglePause()
	}

	r.sharedInput.Set(0, r.pollButtons())
	return nil
}

// withPaused runs fn with the emulation goroutine parked between frames.
func (r *Runner) withPaused(fn func()) {
	if r.emuControl.IsPaused() {
		fn()
		return
	}
	r.emuControl.RequestPause()
	fn()
	r.emuControl.RequestResume()
}

func (r *Runner) togglePause() {
	if r.emuControl.IsPaused() {
		r.emuControl.RequestResume()
		return
	}
	r.emuControl.RequestPause()
}

func (r *Runner) saveState() {
	s, ok := r.emulator.Emulator.(emucore.SaveStater)
	if !ok || r.statePath == "" {
		return
	}
	data, err := s.Serialize()
	if err != nil {
		log.Printf("[cli] save state: %v", err)
		return
	}
	if err := os.WriteFile(r.statePath, data, 0644); err != nil {
		log.Printf("[cli] save state: %v", err)
		return
	}
	log.Printf("[cli] state saved to %s", r.statePath)
}

func (r *Runner) loadState() {
	s, ok := r.emulator.Emulator.(emucore.SaveStater)
	if !ok || r.statePath == "" {
		return
	}
	data, err := os.ReadFile(r.statePath)
	if err != nil {
		log.Printf("[cli] load state: %v", err)
		return
	}
	if err := s.Deserialize(data); err != nil {
		log.Printf("[cli] load state: %v", err)
		return
	}
	log.Printf("[cli] state loaded from %s", r.statePath)
}

// Draw implements ebiten.Game.
func (r *Runner) Draw(screen *ebiten.Image) {
	pixels, stride, height := r.sharedFramebuffer.Read()
	if height == 0 {
		return
	}
	r.emulator.DrawCachedFramebuffer(screen, pixels, stride, height)
}

// Layout implements ebiten.Game.
func (r *Runner) Layout(outsideWidth, outsideHeight int) (int, int) {
	return r.emulator.Layout(outsideWidth, outsideHeight)
}
