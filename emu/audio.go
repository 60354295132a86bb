package emu

import (
	"math"

	"github.com/user-none/emsega/savestate"
)

const (
	sampleRate    = 48000
	psgBufferSize = 1024
	psgGain       = 1898.0
	lpfCutoffHz   = 2840.0
)

// lpfAlpha is the smoothing factor of a first-order RC low-pass:
// dt / (RC + dt) with RC = 1/(2*pi*fc).
var lpfAlpha = 1.0 / (float64(sampleRate)/(2*math.Pi*lpfCutoffHz) + 1)

// mixerSerializeSize is the filter state: two float64 values.
const mixerSerializeSize = 16

// audioMixer combines the FM and PSG streams of a frame into interleaved
// stereo and runs it through the Model 1 output filter.
type audioMixer struct {
	out   []int16
	prevL float64
	prevR float64
}

func newAudioMixer() audioMixer {
	return audioMixer{out: make([]int16, 0, 2048)}
}

// mix replaces the mixer output with one frame's worth of audio. fm is
// stereo pairs, psg is mono. The shorter stream is padded with silence
// on its side.
func (m *audioMixer) mix(fm []int16, psg []float32) {
	m.out = m.out[:0]
	pairs := max(len(fm)/2, len(psg))
	for i := 0; i < pairs; i++ {
		var l, r, p int32
		if i*2+1 < len(fm) {
			l, r = int32(fm[i*2]), int32(fm[i*2+1])
		}
		if i < len(psg) {
			p = int32(psg[i])
		}
		m.out = append(m.out,
			int16(clampInt32(l+p, -32768, 32767)),
			int16(clampInt32(r+p, -32768, 32767)))
	}
	m.lowPass()
}

// lowPass applies the RC filter of the Model 1 VA3 board (fc ~= 2840 Hz).
// Filter state persists across frames.
func (m *audioMixer) lowPass() {
	for i := 0; i+1 < len(m.out); i += 2 {
		m.prevL += lpfAlpha * (float64(m.out[i]) - m.prevL)
		m.prevR += lpfAlpha * (float64(m.out[i+1]) - m.prevR)
		m.out[i] = int16(math.Round(m.prevL))
		m.out[i+1] = int16(math.Round(m.prevR))
	}
}

func (m *audioMixer) serialize(w *savestate.Writer) {
	w.U64(math.Float64bits(m.prevL))
	w.U64(math.Float64bits(m.prevR))
}

func (m *audioMixer) deserialize(r *savestate.Reader) {
	m.prevL = math.Float64frombits(r.U64())
	m.prevR = math.Float64frombits(r.U64())
}

// GetAudioSamples returns the last frame's audio as 16-bit stereo PCM at
// 48 kHz.
func (e *Emulator) GetAudioSamples() []int16 {
	return e.mixer.out
}

func clampInt32(v, lo, hi int32) int32 {
	return min(max(v, lo), hi)
}
