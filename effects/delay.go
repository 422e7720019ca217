// SPDX-License-Identifier: EPL-2.0

package effects

import (
	"fmt"
	"math"
	"time"

	"github.com/ik5/audmix/audio"
	"github.com/ik5/audmix/engine"
	"github.com/sirupsen/logrus"
)

const (
	// MaxDelay bounds the delay line length.
	MaxDelay = 2 * time.Second

	// silenceThreshold is the level below which a decaying line counts as
	// silent.
	silenceThreshold = 1.0 / (1 << 20)
)

// Delay is a feedback echo. Each sample re-enters the line scaled by the
// feedback, and the line output is added to the dry signal scaled by wet.
// Once the input turns silent the effect keeps reporting valid output
// until the line decays, which is what lets a voice play its tail.
//
// Parameters: two float32 values, feedback then wet.
type Delay struct {
	base
	delay    time.Duration
	feedback atomicFloat32
	wet      atomicFloat32

	// line is owned by the render thread between lock and unlock.
	line     []float32
	frames   int
	pos      int
	channels int
	// lastLap and lap are the peaks written during the previous and the
	// current pass over the line. Together they bound what it holds.
	lastLap, lap float32
}

// NewDelay returns a Delay of the given length. feedback must be in [0,1)
// so the echo dies out.
func NewDelay(delay time.Duration, feedback, wet float32, opts ...Option) (*Delay, error) {
	if delay <= 0 || delay > MaxDelay {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDelay, delay)
	}
	if err := checkFeedback(feedback); err != nil {
		return nil, err
	}
	if err := checkGain(wet); err != nil {
		return nil, err
	}

	d := &Delay{
		base:  base{name: "delay", flags: engine.EffectInPlaceSupported},
		delay: delay,
	}
	d.configure(opts)
	d.feedback.Store(feedback)
	d.wet.Store(wet)

	d.log.WithFields(logrus.Fields{
		"function": "NewDelay",
		"delay":    delay,
		"feedback": feedback,
		"wet":      wet,
	}).Debug("Delay effect created")
	return d, nil
}

func checkFeedback(v float32) error {
	if !(v >= 0 && v < 1) {
		return fmt.Errorf("%w: %v", ErrInvalidFeedback, v)
	}
	return nil
}

// DelayParams encodes feedback and wet for SetEffectParameters.
func DelayParams(feedback, wet float32) []byte {
	return audio.Float32Bytes([]float32{feedback, wet})
}

// LockForProcess sizes the delay line for the sample rate and clears it.
func (d *Delay) LockForProcess(in, out engine.EffectFormat) error {
	if err := d.lockFormats(in, out, true); err != nil {
		return err
	}
	d.frames = max(1, int(math.Round(d.delay.Seconds()*float64(in.SampleRate))))
	d.channels = in.Channels
	d.line = make([]float32, d.frames*d.channels)
	d.pos = 0
	d.lastLap, d.lap = 0, 0
	return nil
}

// SetParameters ignores out of range values.
func (d *Delay) SetParameters(params []byte) {
	var v [2]float32
	n := readFloats(params, v[:])
	if n >= 1 && checkFeedback(v[0]) == nil {
		d.feedback.Store(v[0])
	}
	if n >= 2 && checkGain(v[1]) == nil {
		d.wet.Store(v[1])
	}
}

func (d *Delay) GetParameters(params []byte) {
	vals := []float32{d.feedback.Load(), d.wet.Load()}
	audio.PutFloat32s(params, vals[:min(len(params)/4, len(vals))])
}

func (d *Delay) Process(in, out *engine.ProcessBuffer, enabled bool) {
	if !enabled {
		passThrough(in, out, d.channels)
		return
	}

	fb, wet := d.feedback.Load(), d.wet.Load()
	ch := d.channels
	frames := in.ValidFrameCount

	for f := range frames {
		slot := d.line[d.pos*ch : d.pos*ch+ch]
		for c := range ch {
			i := f*ch + c
			x := in.Samples[i]
			echo := slot[c]
			v := x + fb*echo
			slot[c] = v
			out.Samples[i] = x + wet*echo
			d.lap = max(d.lap, v, -v)
		}
		d.pos++
		if d.pos == d.frames {
			d.pos = 0
			d.lastLap, d.lap = d.lap, 0
		}
	}

	out.ValidFrameCount = frames
	out.Flags = engine.BufferSilent
	if in.Flags == engine.BufferValid || max(d.lastLap, d.lap) > silenceThreshold {
		out.Flags = engine.BufferValid
	}
}
