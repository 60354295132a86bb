package savestate

import (
	"errors"
	"testing"
)

var testFormat = Format{Magic: "TESTState", Version: 3}

func sealed(t *testing.T) []byte {
	t.Helper()
	data := testFormat.New(16)
	for i := range Payload(data) {
		Payload(data)[i] = byte(i * 7)
	}
	testFormat.Seal(data, 0xCAFEBABE)
	return data
}

func TestVerifyAcceptsSealedState(t *testing.T) {
	data := sealed(t)
	if err := testFormat.Verify(data, len(data), 0xCAFEBABE); err != nil {
		t.Errorf("expected valid state, got %v", err)
	}
}

func TestVerifyErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func([]byte) []byte
		romCRC uint32
		want   error
	}{
		{"too short", func(d []byte) []byte { return d[:10] }, 0xCAFEBABE, ErrTooShort},
		{"truncated payload", func(d []byte) []byte { return d[:len(d)-1] }, 0xCAFEBABE, ErrTooShort},
		{"bad magic", func(d []byte) []byte { d[0] = 'X'; return d }, 0xCAFEBABE, ErrBadMagic},
		{"newer version", func(d []byte) []byte { d[12] = 4; return d }, 0xCAFEBABE, ErrVersion},
		{"older version", func(d []byte) []byte { d[12] = 2; return d }, 0xCAFEBABE, ErrVersion},
		{"wrong rom", func(d []byte) []byte { return d }, 0x12345678, ErrWrongROM},
		{"corrupt payload", func(d []byte) []byte { d[HeaderSize+5] ^= 0xFF; return d }, 0xCAFEBABE, ErrCorrupt},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := sealed(t)
			size := len(data)
			err := testFormat.Verify(tt.mutate(data), size, tt.romCRC)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestSealPadsShortMagic(t *testing.T) {
	data := sealed(t)
	if string(data[0:9]) != "TESTState" {
		t.Errorf("magic: got %q", data[0:9])
	}
	for i := 9; i < 12; i++ {
		if data[i] != 0 {
			t.Errorf("magic padding byte %d: expected 0, got %d", i, data[i])
		}
	}
}
