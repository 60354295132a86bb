package sms

const (
	sampleRate    = 48000
	psgBufferSize = 1024

	// The PSG output is mono duplicated to both speakers, attenuated by
	// half so the summed image is not twice as loud.
	outputScale = 32767 * 0.5

	// Per-channel buffers are unscaled; the chip mixes four of them at a
	// quarter each.
	channelScale = 0.25 * outputScale
)

// mixFrame converts the frame's PSG output into interleaved stereo. The
// Master System is mono; the Game Gear pans each channel through $06.
func (e *Emulator) mixFrame() {
	e.audio = e.audio[:0]
	if !e.gg {
		buf, n := e.psg.GetBuffer()
		for _, s := range buf[:n] {
			v := int16(clampSample(s * outputScale))
			e.audio = append(e.audio, v, v)
		}
		return
	}

	chans, n := e.psg.GetChannelBuffers()
	stereo := e.io.Stereo()
	for i := 0; i < n; i++ {
		var l, r float32
		for ch := 0; ch < 4; ch++ {
			s := chans[ch][i]
			if stereo&(0x10<<ch) != 0 {
				l += s
			}
			if stereo&(0x01<<ch) != 0 {
				r += s
			}
		}
		e.audio = append(e.audio,
			int16(clampSample(l*channelScale)),
			int16(clampSample(r*channelScale)))
	}
}

func clampSample(v float32) float32 {
	return min(max(v, -32768), 32767)
}

// GetAudioSamples returns the last frame's audio as 16-bit stereo PCM at
// 48 kHz.
func (e *Emulator) GetAudioSamples() []int16 {
	return e.audio
}
