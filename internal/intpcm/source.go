// SPDX-License-Identifier: EPL-2.0

// Package intpcm adapts go-audio integer PCM readers to audio.Source.
package intpcm

import (
	"errors"
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
)

// ErrBitDepth is returned for sample widths other than 8, 16, 24 or 32 bits.
var ErrBitDepth = errors.New("unsupported PCM bit depth")

// Reader is the part of the go-audio wav and aiff decoders used here.
type Reader interface {
	PCMBuffer(buf *goaudio.IntBuffer) (int, error)
}

// Source streams normalized float32 samples out of a Reader.
type Source struct {
	r          Reader
	sampleRate int
	channels   int
	bias       int
	scale      float32
	buf        *goaudio.IntBuffer
}

// New wraps r. Unsigned selects the 8-bit WAV convention where silence
// sits at 128.
func New(r Reader, sampleRate, channels, bitDepth int, unsigned bool) (*Source, error) {
	switch bitDepth {
	case 8, 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: %d", ErrBitDepth, bitDepth)
	}

	s := &Source{
		r:          r,
		sampleRate: sampleRate,
		channels:   channels,
		scale:      1 / float32(int64(1)<<(bitDepth-1)),
		buf: &goaudio.IntBuffer{
			Format:         &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
			Data:           make([]int, 4096),
			SourceBitDepth: bitDepth,
		},
	}
	if unsigned && bitDepth == 8 {
		s.bias = 128
	}
	return s, nil
}

func (s *Source) SampleRate() int { return s.sampleRate }
func (s *Source) Channels() int   { return s.channels }
func (s *Source) BufSize() int    { return cap(s.buf.Data) }
func (s *Source) Close() error    { return nil }

func (s *Source) ReadSamples(dst []float32) (int, error) {
	if len(dst) == 0 {
		return 0, nil
	}

	if cap(s.buf.Data) < len(dst) {
		s.buf.Data = make([]int, len(dst))
	}
	s.buf.Data = s.buf.Data[:len(dst)]

	n, err := s.r.PCMBuffer(s.buf)
	if n <= 0 {
		if err != nil && !errors.Is(err, io.EOF) {
			return 0, fmt.Errorf("pcm read: %w", err)
		}
		return 0, io.EOF
	}

	for i, v := range s.buf.Data[:n] {
		dst[i] = float32(v-s.bias) * s.scale
	}

	if err != nil {
		return n, fmt.Errorf("pcm read: %w", err)
	}
	return n, nil
}
