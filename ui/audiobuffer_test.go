package ui

import (
	"encoding/binary"
	"io"
	"testing"
	"time"
)

func readSamples(t *testing.T, rb *AudioRingBuffer, n int) []int16 {
	t.Helper()
	p := make([]byte, n*2)
	got, err := rb.Read(p)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	out := make([]int16, got/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(p[i*2:]))
	}
	return out
}

func TestAudioRingBuffer_WriteRead(t *testing.T) {
	rb := NewAudioRingBuffer(64)
	rb.Write([]int16{1, -1, 2, -2})
	if rb.Buffered() != 8 {
		t.Errorf("expected 8 bytes buffered, got %d", rb.Buffered())
	}
	got := readSamples(t, rb, 10)
	want := []int16{1, -1, 2, -2}
	if len(got) != len(want) {
		t.Fatalf("expected %d samples, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d: expected %d, got %d", i, want[i], got[i])
		}
	}
}

func TestAudioRingBuffer_Wraps(t *testing.T) {
	rb := NewAudioRingBuffer(16) // 8 samples
	rb.Write([]int16{1, 2, 3, 4, 5, 6})
	readSamples(t, rb, 4)
	rb.Write([]int16{7, 8, 9, 10})

	got := readSamples(t, rb, 8)
	want := []int16{5, 6, 7, 8, 9, 10}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d: expected %d, got %d", i, want[i], got[i])
		}
	}
}

func TestAudioRingBuffer_OverflowDropsOldest(t *testing.T) {
	rb := NewAudioRingBuffer(16)
	rb.Write([]int16{1, 2, 3, 4, 5, 6})
	rb.Write([]int16{7, 8, 9, 10})

	if rb.Dropped() != 2 {
		t.Errorf("expected 2 dropped samples, got %d", rb.Dropped())
	}
	got := readSamples(t, rb, 8)
	if got[0] != 3 || got[len(got)-1] != 10 {
		t.Errorf("expected 3..10, got %v", got)
	}

	rb.Write(make([]int16, 20))
	if rb.Buffered() != 16 {
		t.Errorf("oversized write: expected a full buffer, got %d bytes", rb.Buffered())
	}
}

func TestAudioRingBuffer_CloseUnblocksRead(t *testing.T) {
	rb := NewAudioRingBuffer(16)
	done := make(chan error, 1)
	go func() {
		_, err := rb.Read(make([]byte, 4))
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	rb.Close()
	select {
	case err := <-done:
		if err != io.EOF {
			t.Errorf("expected io.EOF, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Read did not return after Close")
	}
}

func TestAudioRingBuffer_Clear(t *testing.T) {
	rb := NewAudioRingBuffer(16)
	rb.Write([]int16{1, 2})
	rb.Clear()
	if rb.Buffered() != 0 {
		t.Errorf("expected empty buffer, got %d bytes", rb.Buffered())
	}
}
