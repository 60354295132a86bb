// Package ui holds the pieces shared by the desktop frontends: oto audio
// output and the primitives that hand frames and input between the
// emulation goroutine and Ebiten.
package ui

import (
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ebitengine/oto/v3"
)

// SampleRate is the output rate of every core.
const SampleRate = 48000

// ringBufferCapacity is ~167ms at 48kHz stereo 16-bit (~32KB).
const ringBufferCapacity = 32768

// AudioPlayer plays the cores' stereo int16 output through oto, which
// pulls from a ring buffer the emulation goroutine fills.
type AudioPlayer struct {
	player     *oto.Player
	ringBuffer *AudioRingBuffer
	muted      atomic.Bool
}

var (
	otoCtx      *oto.Context
	otoInitOnce sync.Once
	otoInitErr  error
)

// ensureOtoContext creates the process-wide oto context on first use.
func ensureOtoContext() (*oto.Context, error) {
	otoInitOnce.Do(func() {
		op := &oto.NewContextOptions{
			SampleRate:   SampleRate,
			ChannelCount: 2,
			Format:       oto.FormatSignedInt16LE,
			BufferSize:   50 * time.Millisecond,
		}
		var ready chan struct{}
		otoCtx, ready, otoInitErr = oto.NewContext(op)
		if otoInitErr != nil {
			return
		}
		<-ready
	})
	return otoCtx, otoInitErr
}

// NewAudioPlayer starts playback at the given volume (0.0-1.0).
func NewAudioPlayer(volume float64) (*AudioPlayer, error) {
	ctx, err := ensureOtoContext()
	if err != nil {
		return nil, fmt.Errorf("oto audio not available: %w", err)
	}

	rb := NewAudioRingBuffer(ringBufferCapacity)
	player := ctx.NewPlayer(rb)
	player.SetBufferSize(19200)
	player.SetVolume(volume)
	player.Play()

	return &AudioPlayer{player: player, ringBuffer: rb}, nil
}

// QueueSamples hands one frame of audio to the player.
func (a *AudioPlayer) QueueSamples(samples []int16) {
	if a.muted.Load() {
		return
	}
	a.ringBuffer.Write(samples)
}

// GetBufferLevel returns the bytes of audio waiting in the ring buffer and
// inside oto. The runner paces frames on it.
func (a *AudioPlayer) GetBufferLevel() int {
	return a.ringBuffer.Buffered() + a.player.BufferedSize()
}

// SetMuted drops queued and future audio while muted.
func (a *AudioPlayer) SetMuted(muted bool) {
	a.muted.Store(muted)
	if muted {
		a.ringBuffer.Clear()
	}
}

// Muted reports whether audio is being dropped.
func (a *AudioPlayer) Muted() bool {
	return a.muted.Load()
}

// SetVolume sets the playback volume (0.0 = silent, 1.0 = full).
func (a *AudioPlayer) SetVolume(vol float64) {
	a.player.SetVolume(vol)
}

// Close stops playback and reports any overflow.
func (a *AudioPlayer) Close() {
	if n := a.ringBuffer.Dropped(); n > 0 {
		log.Printf("[audio] %d samples dropped on overflow", n)
	}
	a.ringBuffer.Close()
	a.player.Close()
}
