// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"fmt"

	"github.com/ik5/audmix/audio"
)

// FormatTag identifies the sample encoding of a source voice.
type FormatTag uint16

const (
	FormatPCM       FormatTag = 0x0001
	FormatMSADPCM   FormatTag = 0x0002
	FormatIEEEFloat FormatTag = 0x0003
)

func (t FormatTag) String() string {
	switch t {
	case FormatPCM:
		return "PCM"
	case FormatMSADPCM:
		return "MSADPCM"
	case FormatIEEEFloat:
		return "IEEE_FLOAT"
	}
	return fmt.Sprintf("tag(%#04x)", uint16(t))
}

// WaveFormat is the layout of the data a source voice decodes.
type WaveFormat struct {
	Tag           FormatTag
	Channels      int
	SampleRate    int
	BitsPerSample int
	// BlockAlign is the size in bytes of one frame, or of one compressed
	// block for MSADPCM.
	BlockAlign int
	// SamplesPerBlock is derived from BlockAlign for MSADPCM and ignored
	// otherwise.
	SamplesPerBlock int
}

// PCMFormat is a convenience for packed integer PCM.
func PCMFormat(channels, sampleRate, bits int) WaveFormat {
	return WaveFormat{
		Tag:           FormatPCM,
		Channels:      channels,
		SampleRate:    sampleRate,
		BitsPerSample: bits,
		BlockAlign:    channels * bits / 8,
	}
}

// FloatFormat is a convenience for packed 32-bit float samples.
func FloatFormat(channels, sampleRate int) WaveFormat {
	return WaveFormat{
		Tag:           FormatIEEEFloat,
		Channels:      channels,
		SampleRate:    sampleRate,
		BitsPerSample: 32,
		BlockAlign:    channels * 4,
	}
}

// MSADPCMFormat describes an MSADPCM stream with blockAlign byte blocks.
func MSADPCMFormat(channels, sampleRate, blockAlign int) WaveFormat {
	return WaveFormat{
		Tag:             FormatMSADPCM,
		Channels:        channels,
		SampleRate:      sampleRate,
		BitsPerSample:   4,
		BlockAlign:      blockAlign,
		SamplesPerBlock: audio.MSADPCMSamplesPerBlock(blockAlign, channels),
	}
}

func (f WaveFormat) validate() error {
	if f.Channels < 1 || f.Channels > MaxAudioChannels {
		return fmt.Errorf("%w: %d channels", ErrInvalidArgument, f.Channels)
	}
	if f.SampleRate < MinSampleRate || f.SampleRate > MaxSampleRate {
		return fmt.Errorf("%w: sample rate %d", ErrInvalidArgument, f.SampleRate)
	}
	if f.BlockAlign <= 0 {
		return fmt.Errorf("%w: block align %d", ErrInvalidArgument, f.BlockAlign)
	}
	return nil
}

// Codec decodes frames of an encoding the engine does not handle itself.
// Decode writes frames interleaved frames starting at frame offset of data
// into dst. It runs on the render thread.
type Codec interface {
	Decode(data []byte, offset, frames int, dst []float32) error
}

// CodecFactory builds a Codec for one source voice.
type CodecFactory func(format WaveFormat) (Codec, error)

// CodecFunc adapts a function to Codec.
type CodecFunc func(data []byte, offset, frames int, dst []float32) error

func (f CodecFunc) Decode(data []byte, offset, frames int, dst []float32) error {
	return f(data, offset, frames, dst)
}

// newDecoder picks the decoder for f. A PCM tag is decided by bit depth;
// a float tag with 16 bits is read as PCM16.
func newDecoder(f *WaveFormat, codecs map[FormatTag]CodecFactory) (Codec, error) {
	switch f.Tag {
	case FormatPCM:
		switch f.BitsPerSample {
		case 8, 16, 32:
			if f.BlockAlign != f.Channels*f.BitsPerSample/8 {
				return nil, fmt.Errorf("%w: block align %d for %d-bit %d channel PCM",
					ErrInvalidArgument, f.BlockAlign, f.BitsPerSample, f.Channels)
			}
		case 24:
			if f.BlockAlign < f.Channels*3 {
				return nil, fmt.Errorf("%w: block align %d for 24-bit %d channel PCM",
					ErrInvalidArgument, f.BlockAlign, f.Channels)
			}
		default:
			return nil, fmt.Errorf("%w: %d-bit PCM", ErrUnsupportedFormat, f.BitsPerSample)
		}
		return pcmCodec{format: *f}, nil

	case FormatIEEEFloat:
		if f.BitsPerSample == 16 {
			return pcmCodec{format: *f}, nil
		}
		if f.BitsPerSample != 32 || f.BlockAlign != f.Channels*4 {
			return nil, fmt.Errorf("%w: %d-bit float", ErrUnsupportedFormat, f.BitsPerSample)
		}
		return pcmCodec{format: *f}, nil

	case FormatMSADPCM:
		if f.Channels != 1 && f.Channels != 2 {
			return nil, fmt.Errorf("%w: %d channel MSADPCM", ErrUnsupportedFormat, f.Channels)
		}
		f.SamplesPerBlock = audio.MSADPCMSamplesPerBlock(f.BlockAlign, f.Channels)
		if f.SamplesPerBlock < 2 {
			return nil, fmt.Errorf("%w: MSADPCM block align %d", ErrInvalidArgument, f.BlockAlign)
		}
		return &adpcmCodec{format: *f, block: make([]int16, f.SamplesPerBlock*f.Channels)}, nil
	}

	if factory, ok := codecs[f.Tag]; ok {
		c, err := factory(*f)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrUnsupportedFormat, f.Tag, err)
		}
		return c, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, f.Tag)
}
