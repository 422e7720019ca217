// SPDX-License-Identifier: EPL-2.0

package effects

import (
	"fmt"
	"slices"
	"sync"

	"github.com/ik5/audmix/audio"
	"github.com/ik5/audmix/engine"
	"github.com/sirupsen/logrus"
)

// ChannelMap remixes its input to the chain position's output channel
// count. The matrix is row-major by output channel, m[out*inChannels+in].
// Without an explicit matrix the speaker defaults of audio.DefaultMatrix
// apply; a disabled ChannelMap also falls back to them.
//
// Parameters: the full matrix as float32 values.
type ChannelMap struct {
	base
	kernels *audio.Kernels

	custom []float32

	coef     sync.Mutex
	matrix   []float32
	fallback []float32
	mix      audio.MixFunc
}

// NewChannelMap returns a ChannelMap. matrix may be nil; otherwise its size
// is checked against the formats when the chain is set.
func NewChannelMap(matrix []float32, opts ...Option) *ChannelMap {
	m := &ChannelMap{
		base:    base{name: "channelmap"},
		kernels: audio.DefaultKernels(),
		custom:  slices.Clone(matrix),
	}
	m.configure(opts)

	m.log.WithFields(logrus.Fields{
		"function": "NewChannelMap",
		"custom":   matrix != nil,
		"kernels":  m.kernels.Name,
	}).Debug("Channel map effect created")
	return m
}

func (m *ChannelMap) LockForProcess(in, out engine.EffectFormat) error {
	if m.custom != nil && len(m.custom) != in.Channels*out.Channels {
		return fmt.Errorf("%w: %d values for %dx%d", ErrMatrixSize, len(m.custom), out.Channels, in.Channels)
	}
	if err := m.lockFormats(in, out, false); err != nil {
		return err
	}

	m.coef.Lock()
	defer m.coef.Unlock()
	m.fallback = audio.DefaultMatrix(in.Channels, out.Channels)
	m.matrix = m.fallback
	if m.custom != nil {
		m.matrix = slices.Clone(m.custom)
	}
	m.mix = m.kernels.Mixer(in.Channels, out.Channels)
	return nil
}

// SetParameters replaces the matrix when params holds exactly one value per
// coefficient.
func (m *ChannelMap) SetParameters(params []byte) {
	m.coef.Lock()
	defer m.coef.Unlock()
	if m.matrix == nil || len(params) != 4*len(m.matrix) {
		return
	}
	next := make([]float32, len(m.matrix))
	readFloats(params, next)
	m.matrix = next
}

func (m *ChannelMap) GetParameters(params []byte) {
	m.coef.Lock()
	defer m.coef.Unlock()
	audio.PutFloat32s(params, m.matrix[:min(len(params)/4, len(m.matrix))])
}

// Matrix returns a copy of the coefficients in use.
func (m *ChannelMap) Matrix() []float32 {
	m.coef.Lock()
	defer m.coef.Unlock()
	return slices.Clone(m.matrix)
}

func (m *ChannelMap) Process(in, out *engine.ProcessBuffer, enabled bool) {
	inFmt, outFmt := m.formats()
	frames := in.ValidFrameCount
	dst := out.Samples[:frames*outFmt.Channels]
	clear(dst)

	out.ValidFrameCount = frames
	out.Flags = in.Flags
	if in.Flags == engine.BufferSilent {
		return
	}

	m.coef.Lock()
	defer m.coef.Unlock()
	coef := m.matrix
	if !enabled {
		coef = m.fallback
	}
	m.mix(frames, inFmt.Channels, outFmt.Channels, in.Samples[:frames*inFmt.Channels], dst, coef)
}
