// SPDX-License-Identifier: EPL-2.0

package audmix

import (
	"errors"
	"fmt"
	"time"

	"github.com/ik5/audmix/audio"
	"github.com/ik5/audmix/engine"
)

var ErrEmptyClip = errors.New("clip holds no frames")

// Clip is a fully decoded stream of interleaved float32 samples.
type Clip struct {
	Name       string
	SampleRate int
	Channels   int
	Samples    []float32
}

// ReadClip drains and closes src.
func ReadClip(src audio.Source) (*Clip, error) {
	samples, err := audio.ReadAll(src)
	closeErr := src.Close()
	if err != nil {
		return nil, fmt.Errorf("reading clip: %w", err)
	}
	if closeErr != nil {
		return nil, fmt.Errorf("closing source: %w", closeErr)
	}

	return &Clip{
		SampleRate: src.SampleRate(),
		Channels:   src.Channels(),
		Samples:    samples,
	}, nil
}

func (c *Clip) Frames() int {
	if c.Channels <= 0 {
		return 0
	}
	return len(c.Samples) / c.Channels
}

func (c *Clip) Duration() time.Duration {
	if c.SampleRate <= 0 {
		return 0
	}
	return time.Duration(c.Frames()) * time.Second / time.Duration(c.SampleRate)
}

// Format is the float source voice format that plays the clip unconverted.
func (c *Clip) Format() engine.WaveFormat {
	return engine.FloatFormat(c.Channels, c.SampleRate)
}

// Buffer wraps the clip as a single end of stream buffer looping
// loopCount extra times over the whole clip.
func (c *Clip) Buffer(loopCount int) engine.Buffer {
	return engine.Buffer{
		Flags:     engine.EndOfStream,
		AudioData: audio.Float32Bytes(c.Samples),
		LoopCount: loopCount,
		Context:   c,
	}
}

// Submit queues the clip on v. The voice must have been created with a
// format matching Format.
func (c *Clip) Submit(v *engine.SourceVoice, loopCount int) error {
	if c.Frames() == 0 {
		return ErrEmptyClip
	}
	if err := v.SubmitSourceBuffer(c.Buffer(loopCount)); err != nil {
		return fmt.Errorf("submitting %q: %w", c.Name, err)
	}
	return nil
}
