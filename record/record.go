// Package record runs a core headless for a fixed number of frames and
// captures what it produces: a WAV of the audio, BMP snapshots of the
// picture and a hash over both for regression comparison.
package record

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"image"
	"io"
	"path/filepath"

	emucore "github.com/user-none/eblitui/api"
)

// Options controls a recording.
type Options struct {
	Frames int // frames to run
	Width  int // visible picture width

	// WAV receives the whole recording as 16-bit stereo at 48 kHz.
	WAV io.WriteSeeker

	// FramesDir receives frame_NNNNNN.bmp every Every frames, scaled by
	// Scale.
	FramesDir string
	Every     int
	Scale     int

	// Script supplies the pad state for each frame.
	Script *Script

	// Progress, when set, is updated as frames complete.
	Progress *Progress
}

// Result summarizes a recording.
type Result struct {
	Frames  int
	Samples int    // stereo sample pairs
	Dumps   int    // BMP files written
	Hash    string // hex SHA-256 over every frame's picture and audio
}

// Run drives core for opts.Frames frames.
func Run(core emucore.Emulator, opts Options) (Result, error) {
	if opts.Frames <= 0 {
		return Result{}, errors.New("record: frame count must be positive")
	}
	if opts.Width <= 0 {
		return Result{}, errors.New("record: picture width must be positive")
	}

	var sink *wavSink
	if opts.WAV != nil {
		sink = newWAVSink(opts.WAV)
	}

	var res Result
	h := sha256.New()
	for frame := 0; frame < opts.Frames; frame++ {
		if opts.Script != nil {
			pads, err := opts.Script.Input(frame)
			if err != nil {
				return res, err
			}
			for player, buttons := range pads {
				core.SetInput(player, buttons)
			}
		}

		core.RunFrame()

		pic := picture(core, opts.Width)
		if pic == nil {
			return res, fmt.Errorf("record: frame %d: framebuffer smaller than %d pixels wide", frame, opts.Width)
		}
		samples := core.GetAudioSamples()
		hashFrame(h, pic, samples)

		if sink != nil {
			if err := sink.write(samples); err != nil {
				return res, fmt.Errorf("record: wav: %w", err)
			}
		}
		if opts.FramesDir != "" && opts.Every > 0 && frame%opts.Every == 0 {
			path := filepath.Join(opts.FramesDir, fmt.Sprintf("frame_%06d.bmp", frame))
			if err := writeBMP(path, pic, opts.Scale); err != nil {
				return res, err
			}
			res.Dumps++
		}

		res.Frames++
		res.Samples += len(samples) / 2
		if opts.Progress != nil {
			opts.Progress.Update(res.Frames, opts.Frames)
		}
	}

	if sink != nil {
		if err := sink.close(); err != nil {
			return res, fmt.Errorf("record: wav: %w", err)
		}
	}
	if opts.Progress != nil {
		opts.Progress.Done()
	}
	res.Hash = hex.EncodeToString(h.Sum(nil))
	return res, nil
}

// picture views the core's current frame as an image without copying.
func picture(core emucore.Emulator, width int) *image.RGBA {
	pix := core.GetFramebuffer()
	stride := core.GetFramebufferStride()
	height := core.GetActiveHeight()
	if stride < width*4 || height <= 0 || len(pix) < (height-1)*stride+width*4 {
		return nil
	}
	return &image.RGBA{
		Pix:    pix,
		Stride: stride,
		Rect:   image.Rect(0, 0, width, height),
	}
}

// hashFrame feeds the visible rows and the audio into h. Bytes outside
// the picture are skipped so the hash only tracks what is shown.
func hashFrame(h hash.Hash, pic *image.RGBA, samples []int16) {
	w := pic.Rect.Dx() * 4
	for y := 0; y < pic.Rect.Dy(); y++ {
		off := y * pic.Stride
		h.Write(pic.Pix[off : off+w])
	}
	var b [2]byte
	for _, s := range samples {
		binary.LittleEndian.PutUint16(b[:], uint16(s))
		h.Write(b[:])
	}
}
