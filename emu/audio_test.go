package emu

import (
	"testing"

	"github.com/user-none/emsega/savestate"
)

func TestAudioMixer_PadsShorterStream(t *testing.T) {
	m := newAudioMixer()
	m.mix([]int16{100, 200}, []float32{10, 20, 30})
	if len(m.out) != 6 {
		t.Fatalf("expected 3 pairs, got %d values", len(m.out))
	}

	m = newAudioMixer()
	m.mix([]int16{1, 2, 3, 4, 5, 6}, nil)
	if len(m.out) != 6 {
		t.Errorf("FM only: expected 3 pairs, got %d values", len(m.out))
	}
}

func TestAudioMixer_LowPassSettles(t *testing.T) {
	m := newAudioMixer()
	fm := make([]int16, 2*2000)
	for i := range fm {
		fm[i] = 10000
	}
	m.mix(fm, nil)

	if first := m.out[0]; first <= 0 || first >= 10000 {
		t.Errorf("first sample should be attenuated, got %d", first)
	}
	if last := m.out[len(m.out)-2]; last < 9990 {
		t.Errorf("step response should settle near 10000, got %d", last)
	}
}

func TestAudioMixer_FilterStateCarries(t *testing.T) {
	a := newAudioMixer()
	a.mix([]int16{8000, -8000, 8000, -8000}, nil)

	buf := make([]byte, mixerSerializeSize)
	w := savestate.Writer{Buf: buf}
	a.serialize(&w)

	b := newAudioMixer()
	r := savestate.Reader{Buf: buf}
	b.deserialize(&r)

	a.mix([]int16{0, 0}, nil)
	b.mix([]int16{0, 0}, nil)
	if a.out[0] != b.out[0] || a.out[1] != b.out[1] {
		t.Errorf("expected %v, got %v", a.out, b.out)
	}
	if a.out[0] == 0 {
		t.Error("filter memory should carry into the next frame")
	}
}

func TestAudioMixer_Clamps(t *testing.T) {
	m := newAudioMixer()
	m.prevL, m.prevR = 32767, -32768
	m.mix([]int16{32767, -32768}, []float32{30000})
	if m.out[0] != 32767 {
		t.Errorf("left: expected 32767, got %d", m.out[0])
	}
	if m.out[1] > 0 {
		t.Errorf("right: expected negative, got %d", m.out[1])
	}
}
