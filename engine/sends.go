// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"fmt"
	"math"

	"github.com/ik5/audmix/audio"
)

// SendDescriptor routes a voice's output into Output, which must be a
// submix or the master voice.
type SendDescriptor struct {
	Flags  SendFlags
	Output Voice
}

type send struct {
	flags       SendFlags
	out         *voice
	outChannels int

	// coefficients are the levels set by the caller, mix the same levels
	// scaled by the voice's volume and channel volumes. Both are
	// outChannels rows of the voice's outputChannels columns.
	coefficients []float32
	mix          []float32
	mixer        audio.MixFunc

	filter      audio.FilterParameters
	filterState []audio.FilterState
}

type sendTarget struct {
	flags SendFlags
	out   *voice
}

// resolveSends checks a send list against the graph. Nil means the master
// voice. Caller holds the engine's graph lock for reading.
func (v *voice) resolveSends(sends []SendDescriptor) ([]sendTarget, error) {
	e := v.engine
	if sends == nil {
		m := e.master.Load()
		if m == nil {
			return nil, ErrNoMasterVoice
		}
		return []sendTarget{{out: &m.voice}}, nil
	}

	targets := make([]sendTarget, 0, len(sends))
	for i, d := range sends {
		if d.Output == nil {
			return nil, fmt.Errorf("%w: send %d has no output voice", ErrInvalidArgument, i)
		}
		out := d.Output.base()
		switch {
		case out.engine != e:
			return nil, fmt.Errorf("%w: send %d targets another engine", ErrInvalidArgument, i)
		case out == v:
			return nil, fmt.Errorf("%w: send %d targets the voice itself", ErrInvalidArgument, i)
		case out.kind == kindSource:
			return nil, fmt.Errorf("%w: send %d targets a source voice", ErrInvalidArgument, i)
		case out.destroyed.Load():
			return nil, fmt.Errorf("%w: send %d: %w", ErrInvalidArgument, i, ErrVoiceDestroyed)
		case v.kind == kindSubmix && out.kind == kindSubmix &&
			out.submix.processingStage <= v.submix.processingStage:
			return nil, fmt.Errorf("%w: send %d targets stage %d from stage %d",
				ErrInvalidArgument, i, out.submix.processingStage, v.submix.processingStage)
		}
		for _, t := range targets {
			if t.out == out {
				return nil, fmt.Errorf("%w: send %d repeats an output voice", ErrInvalidArgument, i)
			}
		}
		targets = append(targets, sendTarget{flags: d.Flags, out: out})
	}
	return targets, nil
}

// outputFrequency sizes the voice's per-pass output for the rate of its
// first send. Once effects are locked to a frame count the size may not
// change. Caller holds v.sendLock.
func (v *voice) outputFrequency(targets []sendTarget) error {
	m := v.engine.master.Load()
	if m == nil {
		return ErrNoMasterVoice
	}
	masterRate := m.inputSampleRate
	outRate := masterRate
	if len(targets) > 0 {
		outRate = targets[0].out.inputSampleRate
	}
	samples := int(math.Ceil(float64(m.updateSize) * float64(outRate) / float64(masterRate)))

	switch v.kind {
	case kindSource:
		s := v.source
		if s.resampleSamples != 0 && samples != s.resampleSamples && v.effects.count() > 0 {
			return fmt.Errorf("%w: output rate %d changes the effect frame count", ErrInvalidCall, outRate)
		}
		s.resampleSamples = samples

	case kindSubmix:
		sm := v.submix
		if sm.outputSamples != 0 && samples != sm.outputSamples && v.effects.count() > 0 {
			return fmt.Errorf("%w: output rate %d changes the effect frame count", ErrInvalidCall, outRate)
		}
		sm.outputSamples = samples
		sm.resampleStep = audio.ToFixed(float64(v.inputSampleRate) / float64(outRate))

		// ceil can walk past the input a downsampling submix holds
		if (sm.resampleStep * audio.Fixed(samples)).Int() > uint64(sm.inputSamples/v.inputChannels) {
			sm.outputSamples--
		}
	}
	return nil
}

// installSends replaces v.sends with default matrices for targets. Caller
// holds v.sendLock and v.volumeLock.
func (v *voice) installSends(targets []sendTarget) {
	kernels := v.engine.kernels
	sends := make([]send, len(targets))
	for i, t := range targets {
		oc := t.out.inputChannels
		s := send{
			flags:        t.flags,
			out:          t.out,
			outChannels:  oc,
			coefficients: audio.DefaultMatrix(v.outputChannels, oc),
			mix:          make([]float32, v.outputChannels*oc),
			mixer:        kernels.Mixer(v.outputChannels, oc),
		}
		if t.flags&SendUseFilter != 0 {
			s.filter = audio.DefaultFilterParameters()
			s.filterState = make([]audio.FilterState, oc)
		}
		v.recalcMixMatrix(&s)
		sends[i] = s
	}
	v.sends = sends
}

// SetOutputVoices implements Voice. The master voice has no sends.
func (v *voice) SetOutputVoices(sends []SendDescriptor) error {
	if v.kind == kindMaster {
		return fmt.Errorf("%w: the master voice has no outputs", ErrInvalidCall)
	}

	e := v.engine
	e.graphLock.RLock()
	defer e.graphLock.RUnlock()
	v.sendLock.Lock()
	defer v.sendLock.Unlock()

	targets, err := v.resolveSends(sends)
	if err == nil {
		err = v.outputFrequency(targets)
	}
	if err != nil {
		v.logger("SetOutputVoices").WithError(err).Warn("send list rejected")
		return err
	}

	v.volumeLock.Lock()
	v.installSends(targets)
	v.volumeLock.Unlock()
	return nil
}

// findSend returns the index of the send to dest. A nil dest selects the
// only send. Caller holds v.sendLock.
func (v *voice) findSend(dest Voice) (int, error) {
	if dest == nil {
		if len(v.sends) == 1 {
			return 0, nil
		}
		return -1, fmt.Errorf("%w: nil destination with %d sends", ErrInvalidCall, len(v.sends))
	}
	d := dest.base()
	for i := range v.sends {
		if v.sends[i].out == d {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: destination is not an output of this voice", ErrInvalidCall)
}

// SetOutputMatrix sets the levels from this voice's srcChannels output
// channels into dest's dstChannels input channels. matrix is row-major by
// destination channel and is copied.
func (v *voice) SetOutputMatrix(dest Voice, srcChannels, dstChannels int, matrix []float32, operationSet uint32) error {
	v.sendLock.Lock()
	i, err := v.findSend(dest)
	var out *voice
	if err == nil {
		s := &v.sends[i]
		out = s.out
		switch {
		case srcChannels != v.outputChannels:
			err = fmt.Errorf("%w: %d source channels, voice outputs %d", ErrInvalidArgument, srcChannels, v.outputChannels)
		case dstChannels != s.outChannels:
			err = fmt.Errorf("%w: %d destination channels, destination takes %d", ErrInvalidArgument, dstChannels, s.outChannels)
		case len(matrix) < srcChannels*dstChannels:
			err = fmt.Errorf("%w: matrix has %d levels, want %d", ErrInvalidArgument, len(matrix), srcChannels*dstChannels)
		}
	}
	v.sendLock.Unlock()
	if err != nil {
		v.logger("SetOutputMatrix").WithError(err).Warn("output matrix rejected")
		return err
	}

	levels := make([]float32, srcChannels*dstChannels)
	copy(levels, matrix)
	if v.engine.deferred(operationSet) {
		v.engine.ops.enqueue(operation{
			kind:  opSetOutputMatrix,
			set:   operationSet,
			voice: v,
			dest:  out,
			apply: func() { v.applyOutputMatrix(out, levels) },
		})
		return nil
	}
	v.applyOutputMatrix(out, levels)
	return nil
}

func (v *voice) applyOutputMatrix(out *voice, levels []float32) {
	v.sendLock.Lock()
	defer v.sendLock.Unlock()
	v.volumeLock.Lock()
	defer v.volumeLock.Unlock()

	for i := range v.sends {
		s := &v.sends[i]
		if s.out == out && len(s.coefficients) == len(levels) {
			copy(s.coefficients, levels)
			v.recalcMixMatrix(s)
			return
		}
	}
}

// OutputMatrix returns a copy of the levels set for dest.
func (v *voice) OutputMatrix(dest Voice, srcChannels, dstChannels int) ([]float32, error) {
	v.sendLock.Lock()
	defer v.sendLock.Unlock()
	i, err := v.findSend(dest)
	if err != nil {
		return nil, err
	}
	s := &v.sends[i]
	if srcChannels != v.outputChannels || dstChannels != s.outChannels {
		return nil, fmt.Errorf("%w: %dx%d matrix requested, send is %dx%d",
			ErrInvalidArgument, srcChannels, dstChannels, v.outputChannels, s.outChannels)
	}

	v.volumeLock.Lock()
	defer v.volumeLock.Unlock()
	return append([]float32(nil), s.coefficients...), nil
}

// SetOutputFilterParameters sets the filter on the send to dest. Sends
// created without SendUseFilter ignore it.
func (v *voice) SetOutputFilterParameters(dest Voice, p audio.FilterParameters, operationSet uint32) error {
	if !p.Valid() {
		return fmt.Errorf("%w: filter parameters %+v", ErrInvalidArgument, p)
	}

	v.sendLock.Lock()
	i, err := v.findSend(dest)
	var out *voice
	if err == nil {
		out = v.sends[i].out
	}
	v.sendLock.Unlock()
	if err != nil {
		v.logger("SetOutputFilterParameters").WithError(err).Warn("send filter rejected")
		return err
	}

	if v.engine.deferred(operationSet) {
		v.engine.ops.enqueue(operation{
			kind:  opSetOutputFilterParameters,
			set:   operationSet,
			voice: v,
			dest:  out,
			apply: func() { v.applyOutputFilterParameters(out, p) },
		})
		return nil
	}
	v.applyOutputFilterParameters(out, p)
	return nil
}

func (v *voice) applyOutputFilterParameters(out *voice, p audio.FilterParameters) {
	v.sendLock.Lock()
	defer v.sendLock.Unlock()
	v.volumeLock.Lock()
	defer v.volumeLock.Unlock()

	for i := range v.sends {
		s := &v.sends[i]
		if s.out == out && s.flags&SendUseFilter != 0 {
			s.filter = p
			return
		}
	}
}

// OutputFilterParameters returns the filter on the send to dest.
func (v *voice) OutputFilterParameters(dest Voice) (audio.FilterParameters, error) {
	v.sendLock.Lock()
	defer v.sendLock.Unlock()
	i, err := v.findSend(dest)
	if err != nil {
		return audio.FilterParameters{}, err
	}
	s := &v.sends[i]
	if s.flags&SendUseFilter == 0 {
		return audio.FilterParameters{}, fmt.Errorf("%w: send was created without a filter", ErrInvalidCall)
	}

	v.volumeLock.Lock()
	defer v.volumeLock.Unlock()
	return s.filter, nil
}
