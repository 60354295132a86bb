package emu

// timer is one of the YM2612 interval timers.
type timer struct {
	period  uint16
	counter uint16
}

// tick advances the counter and reports an overflow at limit-period.
func (t *timer) tick(limit uint16) bool {
	t.counter++
	if t.counter >= limit-t.period {
		t.counter = 0
		return true
	}
	return false
}

// stepTimers advances both timers by one sample. Timer A is 10-bit and
// counts every sample; timer B is 8-bit and counts every 16th.
func (y *YM2612) stepTimers() {
	if y.timerALoad {
		// A CSM key-on lasts one sample.
		if y.csmKeyOn {
			y.csmKeyOff()
			y.csmKeyOn = false
		}
		if y.timerA.tick(1024) {
			if y.timerAEnable {
				y.timerAOver = true
			}
			if y.ch3Mode == ch3ModeCSM {
				y.csmKeyOnAll()
				y.csmKeyOn = true
			}
		}
	}

	y.timerBSubCount++
	if y.timerBSubCount < 16 {
		return
	}
	y.timerBSubCount = 0
	if y.timerBLoad && y.timerB.tick(256) && y.timerBEnable {
		y.timerBOver = true
	}
}

// csmKeyOnAll keys on every channel 3 operator without touching the $28
// key state.
func (y *YM2612) csmKeyOnAll() {
	ops := y.channelOps(2)
	for i := range ops {
		y.startAttack(&ops[i])
	}
}

// csmKeyOff releases the channel 3 operators that $28 is not holding.
func (y *YM2612) csmKeyOff() {
	ops := y.channelOps(2)
	for i := range ops {
		if !ops[i].keyOn {
			ops[i].release()
		}
	}
}
