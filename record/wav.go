package record

import (
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	sampleRate = 48000
	channels   = 2
	bitDepth   = 16
	wavPCM     = 1
)

// wavSink streams 16-bit stereo frames into a WAV file. The header is
// patched with the final length on close.
type wavSink struct {
	enc *wav.Encoder
	buf *audio.IntBuffer
}

func newWAVSink(w io.WriteSeeker) *wavSink {
	return &wavSink{
		enc: wav.NewEncoder(w, sampleRate, bitDepth, channels, wavPCM),
		buf: &audio.IntBuffer{
			Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
			SourceBitDepth: bitDepth,
		},
	}
}

func (s *wavSink) write(samples []int16) error {
	if len(samples) == 0 {
		return nil
	}
	s.buf.Data = s.buf.Data[:0]
	for _, v := range samples {
		s.buf.Data = append(s.buf.Data, int(v))
	}
	return s.enc.Write(s.buf)
}

func (s *wavSink) close() error {
	return s.enc.Close()
}
