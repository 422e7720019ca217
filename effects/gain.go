// SPDX-License-Identifier: EPL-2.0

package effects

import (
	"fmt"

	"github.com/ik5/audmix/audio"
	"github.com/ik5/audmix/engine"
	"github.com/sirupsen/logrus"
)

// MaxGain is the largest linear gain a Gain accepts (+12 dB).
const MaxGain = 4.0

// Gain multiplies every sample by a linear factor. It must run in place.
//
// Parameters: one float32, the gain.
type Gain struct {
	base
	gain    atomicFloat32
	amplify func(samples []float32, volume float32)
}

// NewGain returns a Gain at gain, which must be in [0, MaxGain].
func NewGain(gain float32, opts ...Option) (*Gain, error) {
	if err := checkGain(gain); err != nil {
		return nil, err
	}

	g := &Gain{
		base: base{
			name:  "gain",
			flags: engine.EffectInPlaceSupported | engine.EffectInPlaceRequired,
		},
		amplify: audio.DefaultKernels().Amplify,
	}
	g.configure(opts)
	g.gain.Store(gain)

	g.log.WithFields(logrus.Fields{
		"function": "NewGain",
		"gain":     gain,
	}).Debug("Gain effect created")
	return g, nil
}

func checkGain(gain float32) error {
	if !(gain >= 0 && gain <= MaxGain) {
		return fmt.Errorf("%w: %v not in [0, %v]", ErrInvalidGain, gain, MaxGain)
	}
	return nil
}

// GainParams encodes gain for SetEffectParameters.
func GainParams(gain float32) []byte {
	return audio.Float32Bytes([]float32{gain})
}

// SetGain changes the gain immediately, outside of any operation set.
func (g *Gain) SetGain(gain float32) error {
	if err := checkGain(gain); err != nil {
		return err
	}
	g.gain.Store(gain)
	return nil
}

func (g *Gain) Gain() float32 { return g.gain.Load() }

func (g *Gain) LockForProcess(in, out engine.EffectFormat) error {
	return g.lockFormats(in, out, true)
}

// SetParameters ignores values out of range.
func (g *Gain) SetParameters(params []byte) {
	var v [1]float32
	if readFloats(params, v[:]) == 1 && checkGain(v[0]) == nil {
		g.gain.Store(v[0])
	}
}

func (g *Gain) GetParameters(params []byte) {
	if len(params) >= 4 {
		audio.PutFloat32s(params, []float32{g.gain.Load()})
	}
}

func (g *Gain) Process(in, out *engine.ProcessBuffer, enabled bool) {
	inFmt, _ := g.formats()
	passThrough(in, out, inFmt.Channels)
	if !enabled || in.Flags == engine.BufferSilent {
		return
	}
	g.amplify(out.Samples[:out.ValidFrameCount*inFmt.Channels], g.gain.Load())
}
