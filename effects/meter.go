// SPDX-License-Identifier: EPL-2.0

package effects

import (
	"math"
	"slices"
	"sync"

	"github.com/ik5/audmix/audio"
	"github.com/ik5/audmix/engine"
)

// Meter measures the signal without changing it. Peak and RMS levels are
// per channel and cover the most recent processing pass.
//
// GetParameters fills the peaks as float32 values. SetParameters is a no-op.
type Meter struct {
	base

	levels sync.Mutex
	peak   []float32
	rms    []float32
	sumSq  []float64
}

func NewMeter(opts ...Option) *Meter {
	m := &Meter{base: base{name: "meter", flags: engine.EffectInPlaceSupported}}
	m.configure(opts)
	return m
}

func (m *Meter) LockForProcess(in, out engine.EffectFormat) error {
	if err := m.lockFormats(in, out, true); err != nil {
		return err
	}

	m.levels.Lock()
	m.peak = make([]float32, in.Channels)
	m.rms = make([]float32, in.Channels)
	m.sumSq = make([]float64, in.Channels)
	m.levels.Unlock()
	return nil
}

func (m *Meter) SetParameters([]byte) {}

func (m *Meter) GetParameters(params []byte) {
	m.levels.Lock()
	defer m.levels.Unlock()
	audio.PutFloat32s(params, m.peak[:min(len(params)/4, len(m.peak))])
}

// Peaks returns the absolute peak of each channel.
func (m *Meter) Peaks() []float32 {
	m.levels.Lock()
	defer m.levels.Unlock()
	return slices.Clone(m.peak)
}

// RMS returns the root mean square of each channel.
func (m *Meter) RMS() []float32 {
	m.levels.Lock()
	defer m.levels.Unlock()
	return slices.Clone(m.rms)
}

func (m *Meter) Process(in, out *engine.ProcessBuffer, enabled bool) {
	inFmt, _ := m.formats()
	ch := inFmt.Channels
	passThrough(in, out, ch)
	if !enabled {
		return
	}

	m.levels.Lock()
	defer m.levels.Unlock()

	clear(m.peak)
	clear(m.sumSq)
	frames := in.ValidFrameCount
	if in.Flags == engine.BufferValid {
		for f := range frames {
			for c := range ch {
				v := in.Samples[f*ch+c]
				m.peak[c] = max(m.peak[c], v, -v)
				m.sumSq[c] += float64(v) * float64(v)
			}
		}
	}
	for c := range ch {
		m.rms[c] = 0
		if frames > 0 {
			m.rms[c] = float32(math.Sqrt(m.sumSq[c] / float64(frames)))
		}
	}
}
