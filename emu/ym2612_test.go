package emu

import "testing"

func newTestYM() *YM2612 {
	return NewYM2612(NTSCTiming.M68KClockHz, sampleRate)
}

// writeReg writes a register through the port pair of the given part.
func writeReg(y *YM2612, part int, addr, val uint8) {
	port := uint8(part) << 1
	y.WritePort(port, addr)
	y.WritePort(port|1, val)
}

func TestYM2612_ComputeKeyCode(t *testing.T) {
	tests := []struct {
		fNum  uint16
		block uint8
		want  uint8
	}{
		{0x000, 0, 0},
		{0x400, 0, 2},
		{0x780, 0, 3},
		{0x380, 0, 1},
		{0x400, 4, 18},
		{0x7FF, 7, 31},
	}
	for _, tt := range tests {
		if got := computeKeyCode(tt.fNum, tt.block); got != tt.want {
			t.Errorf("fNum=0x%03X block=%d: expected %d, got %d", tt.fNum, tt.block, tt.want, got)
		}
	}
}

func TestYM2612_PhaseIncrement(t *testing.T) {
	tests := []struct {
		name string
		dt   uint8
		mul  uint8
		want uint32
	}{
		{"mul 1", 0, 1, 0x2000},
		{"mul 0 halves", 0, 0, 0x1000},
		{"mul 2", 0, 2, 0x4000},
		{"detune up", 1, 1, 0x2003},
		{"detune down", 5, 1, 0x1FFD},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := phaseIncrement(0x400<<1, 4, 18, tt.dt, tt.mul)
			if got != tt.want {
				t.Errorf("expected 0x%X, got 0x%X", tt.want, got)
			}
		})
	}
}

func TestYM2612_OperatorOutputPeak(t *testing.T) {
	if got := computeOperatorOutput(0x0FF<<10, 0); got != 8168 {
		t.Errorf("positive peak: expected 8168, got %d", got)
	}
	if got := computeOperatorOutput(0x2FF<<10, 0); got != -8168 {
		t.Errorf("negative peak: expected -8168, got %d", got)
	}
	if got := computeOperatorOutput(0x0FF<<10, 0x3FF); got != 0 {
		t.Errorf("full attenuation: expected 0, got %d", got)
	}
}

func TestYM2612_SustainLevel(t *testing.T) {
	tests := []struct {
		d1l  uint8
		want uint16
	}{
		{0, 0}, {1, 0x20}, {14, 0x1C0}, {15, 0x3E0},
	}
	for _, tt := range tests {
		if got := sustainLevel(tt.d1l); got != tt.want {
			t.Errorf("d1l=%d: expected 0x%X, got 0x%X", tt.d1l, tt.want, got)
		}
	}
}

func TestYM2612_EGIncrement(t *testing.T) {
	tests := []struct {
		name    string
		rate    uint8
		counter uint16
		want    uint8
	}{
		{"slow rate off tick", 4, 1, 0},
		{"slow rate on tick", 4, 1024, 1},
		{"fastest", 63, 5, 8},
		{"rate 48", 48, 3, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := egIncrement(tt.rate, tt.counter); got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestYM2612_AlgorithmsFeedForward(t *testing.T) {
	for i, algo := range algorithms {
		if algo.carriers&0x8 == 0 {
			t.Errorf("algorithm %d: operator 4 must be a carrier", i)
		}
		for op, m := range algo.mod {
			if m>>op != 0 {
				t.Errorf("algorithm %d: operator %d modulated by a later operator (0x%X)", i, op+1, m)
			}
		}
	}
}

func TestYM2612_OperatorSlotOrder(t *testing.T) {
	y := newTestYM()
	writeReg(y, 0, 0x34, 0x05) // second register slot is S3
	writeReg(y, 1, 0x39, 0x07) // part II, channel 5, third slot is S2
	if y.op[2].mul != 5 {
		t.Errorf("ch1 S3 mul: expected 5, got %d", y.op[2].mul)
	}
	if y.op[4*4+1].mul != 7 {
		t.Errorf("ch5 S2 mul: expected 7, got %d", y.op[4*4+1].mul)
	}
}

func TestYM2612_ChannelRegistersPartII(t *testing.T) {
	y := newTestYM()
	writeReg(y, 1, 0xB4, 0x80)
	writeReg(y, 1, 0xB0, 0x3D)
	ch := y.ch[3]
	if !ch.panL || ch.panR {
		t.Errorf("pan: expected L only, got L=%v R=%v", ch.panL, ch.panR)
	}
	if ch.algorithm != 5 || ch.feedback != 7 {
		t.Errorf("expected algorithm 5 feedback 7, got %d %d", ch.algorithm, ch.feedback)
	}
}

func TestYM2612_FrequencyLatch(t *testing.T) {
	y := newTestYM()
	writeReg(y, 0, 0xA4, 0x22) // block 4, fNum MSB 2
	if y.ch[0].fNum != 0x200 {
		t.Errorf("after MSB: expected fNum 0x200, got 0x%03X", y.ch[0].fNum)
	}
	writeReg(y, 0, 0xA0, 0x34)
	if y.ch[0].fNum != 0x234 || y.ch[0].block != 4 {
		t.Errorf("expected fNum 0x234 block 4, got 0x%03X %d", y.ch[0].fNum, y.ch[0].block)
	}
	if y.op[0].phaseInc == 0 {
		t.Error("phase increment should update on the LSB write")
	}
}

func TestYM2612_KeyOnOff(t *testing.T) {
	y := newTestYM()
	writeReg(y, 0, 0x28, 0xF1) // channel 2, all operators
	for i, op := range y.channelOps(1) {
		if !op.keyOn || op.egState != egAttack {
			t.Errorf("op %d: expected keyed on in attack, got keyOn=%v state=%d", i, op.keyOn, op.egState)
		}
	}

	writeReg(y, 0, 0x28, 0x01)
	for i, op := range y.channelOps(1) {
		if op.keyOn || op.egState != egRelease {
			t.Errorf("op %d: expected released, got keyOn=%v state=%d", i, op.keyOn, op.egState)
		}
	}
}

func TestYM2612_InstantAttack(t *testing.T) {
	y := newTestYM()
	writeReg(y, 0, 0x50, 0x1F) // S1 AR=31
	writeReg(y, 0, 0x28, 0x10)
	op := y.op[0]
	if op.egLevel != 0 || op.egState != egDecay {
		t.Errorf("expected level 0 in decay, got 0x%X state %d", op.egLevel, op.egState)
	}
}

func TestYM2612_AttackReachesZero(t *testing.T) {
	y := newTestYM()
	writeReg(y, 0, 0x50, 0x1A)
	writeReg(y, 0, 0x28, 0x10)
	for i := 0; i < 200 && y.op[0].egState == egAttack; i++ {
		y.GenerateSamples(fmCyclesPerSample * 3)
	}
	if y.op[0].egState == egAttack || y.op[0].egLevel != 0 {
		t.Errorf("expected attack to finish at 0, got 0x%X state %d", y.op[0].egLevel, y.op[0].egState)
	}
}

func TestYM2612_EnvelopeReachesSustain(t *testing.T) {
	// Key code 0 and RS 0, so every rate is scaled to 2*R. The EG ticks
	// on every third native sample.
	tests := []struct {
		name        string
		ar, d1r     uint8
		d1l         uint8
		attackTicks int // ticks from key on to zero attenuation
		sustainTick int // tick on which the level first reaches SL
	}{
		// Rate 48 decays 1 per tick: 64 ticks to 0x40.
		{"instant attack, rate 48", 31, 24, 2, 0, 64},
		// Rate 52 decays 2 per tick.
		{"instant attack, rate 52", 31, 26, 2, 0, 32},
		// Rate 56 decays 4 per tick: 248 ticks to 0x3E0.
		{"instant attack, SL 15", 31, 28, 15, 0, 248},
		// Attack rate 56 steps 1023, 767, 575 ... 2, 1, 0 in 21 ticks.
		{"rate 56 attack", 28, 28, 2, 21, 21 + 16},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			y := newTestYM()
			writeReg(y, 0, 0x50, tt.ar)
			writeReg(y, 0, 0x60, tt.d1r)
			writeReg(y, 0, 0x70, 0x00) // D2R 0 holds the sustain level
			writeReg(y, 0, 0x80, tt.d1l<<4|0x0F)
			writeReg(y, 0, 0x28, 0x10)
			op := &y.op[0]
			sl := sustainLevel(tt.d1l)

			for tick := 1; tick <= tt.sustainTick+4; tick++ {
				y.GenerateSamples(fmCyclesPerSample * 3)
				switch {
				case tick < tt.attackTicks:
					if op.egState != egAttack || op.egLevel == 0 {
						t.Fatalf("tick %d: expected attack above 0, got 0x%X state %d", tick, op.egLevel, op.egState)
					}
				case tick == tt.attackTicks:
					if op.egState != egDecay || op.egLevel != 0 {
						t.Fatalf("tick %d: expected decay from 0, got 0x%X state %d", tick, op.egLevel, op.egState)
					}
				case tick < tt.sustainTick:
					if op.egLevel >= sl {
						t.Fatalf("tick %d: level 0x%X reached SL 0x%X early", tick, op.egLevel, sl)
					}
				default:
					if op.egLevel != sl {
						t.Fatalf("tick %d: expected SL 0x%X, got 0x%X", tick, sl, op.egLevel)
					}
				}
			}
			if op.egState != egSustain {
				t.Errorf("expected the sustain phase, got state %d", op.egState)
			}
		})
	}
}

func TestYM2612_TimerA(t *testing.T) {
	y := newTestYM()
	writeReg(y, 0, 0x24, 0xFF)
	writeReg(y, 0, 0x25, 0x03)
	writeReg(y, 0, 0x27, 0x05)

	y.GenerateSamples(fmCyclesPerSample)
	if y.ReadPort(0)&0x01 == 0 {
		t.Fatal("expected timer A overflow")
	}

	writeReg(y, 0, 0x27, 0x15)
	if y.ReadPort(0)&0x01 != 0 {
		t.Error("writing $27 bit 4 should clear the overflow flag")
	}
}

func TestYM2612_TimerB(t *testing.T) {
	y := newTestYM()
	writeReg(y, 0, 0x26, 0xFF)
	writeReg(y, 0, 0x27, 0x0A)

	y.GenerateSamples(fmCyclesPerSample * 15)
	if y.ReadPort(0)&0x02 != 0 {
		t.Fatal("timer B should count every 16 samples")
	}
	y.GenerateSamples(fmCyclesPerSample)
	if y.ReadPort(0)&0x02 == 0 {
		t.Error("expected timer B overflow after 16 samples")
	}
}

func TestYM2612_TimerDisabledNoFlag(t *testing.T) {
	y := newTestYM()
	writeReg(y, 0, 0x24, 0xFF)
	writeReg(y, 0, 0x25, 0x03)
	writeReg(y, 0, 0x27, 0x01) // load without enable
	y.GenerateSamples(fmCyclesPerSample * 4)
	if y.ReadPort(0)&0x01 != 0 {
		t.Error("overflow flag set with timer A disabled")
	}
}

func TestYM2612_BusyFlag(t *testing.T) {
	y := newTestYM()
	writeReg(y, 0, 0x30, 0x01)
	if y.ReadPort(0)&0x80 == 0 {
		t.Fatal("expected busy right after a data write")
	}
	y.GenerateSamples(fmCyclesPerSample * busyDuration)
	if y.ReadPort(0)&0x80 != 0 {
		t.Error("busy should clear after the write completes")
	}
}

func TestYM2612_StatusMirrorOnOddPort(t *testing.T) {
	y := newTestYM()
	y.timerAOver = true
	y.ReadPort(0)
	if got := y.ReadPort(1); got != 0x01 {
		t.Errorf("expected mirrored status 0x01, got 0x%02X", got)
	}
	y.nativeSampleCount += statusDecayDuration
	if got := y.ReadPort(1); got != 0 {
		t.Errorf("expected decayed status 0, got 0x%02X", got)
	}
}

func TestYM2612_DACOutput(t *testing.T) {
	tests := []struct {
		name   string
		ladder bool
		want   int16
	}{
		{"linear", false, 4064},
		{"ladder", true, 4448},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			y := newTestYM()
			y.SetLadder(tt.ladder)
			writeReg(y, 0, 0x2B, 0x80)
			writeReg(y, 0, 0x2A, 0xFF)

			y.GenerateSamples(fmCyclesPerSample * 2)
			buf := y.GetBuffer()
			if len(buf) != 2 {
				t.Fatalf("expected one stereo sample, got %d values", len(buf))
			}
			if buf[0] != tt.want || buf[1] != tt.want {
				t.Errorf("expected %d/%d, got %d/%d", tt.want, tt.want, buf[0], buf[1])
			}
		})
	}
}

func TestYM2612_CSMKeysChannel3(t *testing.T) {
	y := newTestYM()
	writeReg(y, 0, 0x24, 0xFF)
	writeReg(y, 0, 0x25, 0x03)
	writeReg(y, 0, 0x27, 0x81) // CSM, timer A loaded

	y.GenerateSamples(fmCyclesPerSample)
	for i, op := range y.channelOps(2) {
		if op.egState != egAttack {
			t.Errorf("op %d: expected CSM key-on, got state %d", i, op.egState)
		}
	}
	if y.op[0].egState != egRelease {
		t.Error("CSM must only key channel 3")
	}
}

func TestYM2612_LFOAMAttenuation(t *testing.T) {
	y := newTestYM()
	writeReg(y, 0, 0x22, 0x08)
	y.stepLFO()
	if y.lfoAMOut != 126 {
		t.Fatalf("expected AM output 126 at step 0, got %d", y.lfoAMOut)
	}
	tests := []struct {
		ams  uint8
		want uint16
	}{
		{0, 0}, {1, 15}, {2, 63}, {3, 126},
	}
	for _, tt := range tests {
		if got := y.lfoAMAttenuation(tt.ams); got != tt.want {
			t.Errorf("ams %d: expected %d, got %d", tt.ams, tt.want, got)
		}
	}
}

func TestYM2612_SerializeRoundTrip(t *testing.T) {
	y := newTestYM()
	writeReg(y, 0, 0xA4, 0x22)
	writeReg(y, 0, 0xA0, 0x69)
	writeReg(y, 0, 0x50, 0x14)
	writeReg(y, 0, 0x28, 0xF0)
	writeReg(y, 0, 0x22, 0x0B)
	y.GenerateSamples(fmCyclesPerSample * 100)

	buf := make([]byte, YM2612SerializeSize)
	if err := y.Serialize(buf); err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	r := newTestYM()
	if err := r.Deserialize(buf); err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if r.op != y.op || r.ch != y.ch {
		t.Error("operator or channel state differs after round trip")
	}

	y.GetBuffer()
	y.GenerateSamples(fmCyclesPerSample * 50)
	r.GenerateSamples(fmCyclesPerSample * 50)
	a, b := y.GetBuffer(), r.GetBuffer()
	if len(a) != len(b) {
		t.Fatalf("sample count: expected %d, got %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("sample %d: expected %d, got %d", i, a[i], b[i])
		}
	}
}

func TestYM2612_PanThroughLadder(t *testing.T) {
	tests := []struct {
		name       string
		ladder     bool
		panL, panR bool
		in         int16
		wantL      int16
		wantR      int16
	}{
		{"linear both", false, true, true, 1000, 1000, 1000},
		{"linear left only", false, true, false, -500, -500, 0},
		{"ladder positive", true, true, true, 1000, 1128, 1128},
		{"ladder negative", true, true, true, -1000, -1096, -1096},
		{"ladder zero crossing", true, true, true, -1, -97, -97},
		{"ladder muted side leaks offset", true, false, true, 5000, 128, 5128},
		{"ladder muted negative", true, true, false, -5000, -5096, -128},
	}
	for _, tt := range tests {
		y := newTestYM()
		y.SetLadder(tt.ladder)
		ch := &y.ch[0]
		ch.panL, ch.panR = tt.panL, tt.panR
		l, r := y.pan(ch, tt.in)
		if l != tt.wantL || r != tt.wantR {
			t.Errorf("%s: expected %d/%d, got %d/%d", tt.name, tt.wantL, tt.wantR, l, r)
		}
	}
}
