package emu

import (
	"testing"

	emucore "github.com/user-none/eblitui/api"
)

func TestIO_VersionRegister(t *testing.T) {
	tests := []struct {
		name    string
		console ConsoleRegion
		pal     bool
		want    byte
	}{
		{"japan", ConsoleJapan, false, 0x20},
		{"usa", ConsoleUSA, false, 0xA0},
		{"europe", ConsoleEurope, true, 0xE0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			io := NewIO(tt.console, tt.pal)
			if got := io.ReadRegister(0, 0xA10001); got != tt.want {
				t.Errorf("expected 0x%02X, got 0x%02X", tt.want, got)
			}
		})
	}
}

func TestIO_ThreeButtonRead(t *testing.T) {
	tests := []struct {
		name    string
		th      byte
		buttons uint32
		want    byte
	}{
		{"th high idle", 0x40, 0, 0xFF},
		{"th high up", 0x40, 1 << emucore.ButtonUp, 0xFE},
		{"th high c", 0x40, 1 << ButtonC, 0xDF},
		{"th low idle", 0x00, 0, 0xB3},
		{"th low a", 0x00, 1 << ButtonA, 0xA3},
		{"th low start", 0x00, 1 << ButtonStart, 0x93},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			io := NewIO(ConsoleUSA, false)
			io.Ports[0].SixButton = false
			io.Ports[0].SetButtons(tt.buttons)
			io.WriteRegister(0, 0xA10009, 0x40)
			io.WriteRegister(0, 0xA10003, tt.th)
			if got := io.ReadRegister(0, 0xA10003); got != tt.want {
				t.Errorf("expected 0x%02X, got 0x%02X", tt.want, got)
			}
		})
	}
}

// strobe toggles TH n times starting from high, one write per 10 cycles.
func strobe(io *IO, cycle uint64, n int) uint64 {
	for i := 0; i < n; i++ {
		cycle += 10
		th := byte(0x40)
		if i%2 == 0 {
			th = 0x00
		}
		io.WriteRegister(cycle, 0xA10003, th)
	}
	return cycle
}

func TestIO_SixButtonExtraButtons(t *testing.T) {
	io := NewIO(ConsoleUSA, false)
	io.Ports[0].SetButtons(1 << ButtonX)
	io.WriteRegister(100, 0xA10009, 0x40)

	// Six edges reach state 6 (TH high), which reports Z Y X Mode.
	cycle := strobe(io, 100, 6)
	if got := io.ReadRegister(cycle, 0xA10003); got != 0xFB {
		t.Errorf("state 6 read: expected 0xFB, got 0x%02X", got)
	}
}

func TestIO_SixButtonDetectState(t *testing.T) {
	io := NewIO(ConsoleUSA, false)
	io.WriteRegister(100, 0xA10009, 0x40)

	cycle := strobe(io, 100, 5)
	if got := io.ReadRegister(cycle, 0xA10003) & 0x0F; got != 0 {
		t.Errorf("detect state: expected low nibble 0, got 0x%X", got)
	}
}

func TestIO_SixButtonTimeout(t *testing.T) {
	io := NewIO(ConsoleUSA, false)
	io.Ports[0].SetButtons(1 << ButtonX)
	io.WriteRegister(100, 0xA10009, 0x40)

	cycle := strobe(io, 100, 6)
	got := io.ReadRegister(cycle+sixButtonTimeoutCycles, 0xA10003)
	if got != 0xFF {
		t.Errorf("after timeout: expected 0xFF, got 0x%02X", got)
	}
}

func TestIO_DisconnectedPortFloatsHigh(t *testing.T) {
	io := NewIO(ConsoleUSA, false)
	io.Ports[1].Connected = false
	io.Ports[1].SetButtons(0xFFFF)
	if got := io.ReadRegister(0, 0xA10005); got != 0xFF {
		t.Errorf("expected 0xFF, got 0x%02X", got)
	}
}

func TestIO_SerializeRoundTrip(t *testing.T) {
	io := NewIO(ConsoleUSA, false)
	io.WriteRegister(100, 0xA10009, 0x40)
	strobe(io, 100, 3)
	io.Ports[1].SixButton = false

	buf := make([]byte, IOSerializeSize)
	if err := io.Serialize(buf); err != nil {
		t.Fatalf("Serialize: %v", err)
	}

	restored := NewIO(ConsoleUSA, false)
	if err := restored.Deserialize(buf); err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if restored.Ports[0].thState != io.Ports[0].thState {
		t.Errorf("thState: expected %d, got %d", io.Ports[0].thState, restored.Ports[0].thState)
	}
	if restored.Ports[0].ctrl != 0x40 {
		t.Errorf("ctrl: expected 0x40, got 0x%02X", restored.Ports[0].ctrl)
	}
	if restored.Ports[1].SixButton {
		t.Error("port 2 SixButton: expected false, got true")
	}
}
