// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"fmt"
	"slices"
)

// EffectFlags describe what an Effect can do with its buffers.
type EffectFlags uint32

const (
	// EffectInPlaceSupported lets the host pass the same buffer as input
	// and output when the channel counts match.
	EffectInPlaceSupported EffectFlags = 1 << iota
	// EffectInPlaceRequired rejects any chain position where in-place
	// processing is impossible.
	EffectInPlaceRequired
)

// EffectProperties is what an Effect reports about itself.
type EffectProperties struct {
	Name  string
	Flags EffectFlags
}

// EffectFormat is one side of the format pair an effect is locked for.
// Samples are always interleaved float32.
type EffectFormat struct {
	Channels      int
	SampleRate    int
	MaxFrameCount int
}

// ProcessBufferFlags tell an effect, and the host after it, whether a
// buffer carries signal.
type ProcessBufferFlags uint32

const (
	BufferSilent ProcessBufferFlags = iota
	BufferValid
)

// ProcessBuffer is one side of an Effect.Process call.
type ProcessBuffer struct {
	Samples         []float32
	Flags           ProcessBufferFlags
	ValidFrameCount int
}

// Effect is a DSP unit hosted in a voice's effect chain. Process runs on
// the render thread; every other method is called from the goroutine that
// changed the chain.
type Effect interface {
	Properties() EffectProperties
	// LockForProcess fixes the formats the effect will see until
	// UnlockForProcess. A non-nil error rejects the chain.
	LockForProcess(in, out EffectFormat) error
	UnlockForProcess()
	SetParameters(params []byte)
	GetParameters(params []byte)
	// Process reads in and writes out. When the effect runs in place both
	// share Samples. Process sets out.Flags and may lower
	// out.ValidFrameCount; a disabled effect should pass its input through.
	Process(in, out *ProcessBuffer, enabled bool)
	AddRef() int
	Release() int
}

// EffectDescriptor places an Effect in a chain.
type EffectDescriptor struct {
	Effect           Effect
	InitiallyEnabled bool
	OutputChannels   int
}

// effectChain is a voice's installed chain. Guarded by the voice's
// effectLock.
type effectChain struct {
	desc    []EffectDescriptor
	enabled []bool
	inPlace []bool

	params  [][]byte
	pending []bool

	// state is the flags of the chain's last output. A silent tail lets an
	// idle source stop rendering.
	state ProcessBufferFlags
}

func (c *effectChain) count() int { return len(c.desc) }

func (c *effectChain) contains(e Effect) bool {
	return slices.ContainsFunc(c.desc, func(d EffectDescriptor) bool {
		return d.Effect == e
	})
}

// release drops the chain's references. Effects also present in keep stay
// locked for process.
func (c *effectChain) release(keep *effectChain) {
	for _, d := range c.desc {
		if keep == nil || !keep.contains(d.Effect) {
			d.Effect.UnlockForProcess()
		}
		d.Effect.Release()
	}
	*c = effectChain{}
}

// chainInput is the format the first effect of v's chain reads.
func (v *voice) chainInput() (channels, sampleRate, maxFrames int) {
	switch v.kind {
	case kindSource:
		return v.inputChannels, v.source.sampleRate(), v.source.resampleSamples
	case kindSubmix:
		return v.inputChannels, v.inputSampleRate, v.submix.outputSamples
	}
	return v.inputChannels, v.inputSampleRate, v.master.updateSize
}

// SetEffectChain replaces the voice's effect chain. The new chain is
// validated and every effect locked for its formats before the old chain
// is touched, so a rejected chain leaves the voice as it was. A chain may
// not change the voice's output channel count once the voice exists.
func (v *voice) SetEffectChain(chain []EffectDescriptor) error {
	v.sendLock.Lock()
	defer v.sendLock.Unlock()
	v.effectLock.Lock()
	defer v.effectLock.Unlock()

	if err := v.setEffectChain(chain); err != nil {
		v.logger("SetEffectChain").WithError(err).Warn("effect chain rejected")
		return err
	}
	return nil
}

func (v *voice) setEffectChain(chain []EffectDescriptor) error {
	inChannels, sampleRate, maxFrames := v.chainInput()

	if len(chain) == 0 {
		if v.outputChannels != 0 && v.outputChannels != inChannels {
			return fmt.Errorf("%w: cannot remove a chain that maps %d channels to %d",
				ErrInvalidCall, inChannels, v.outputChannels)
		}
		v.effects.release(nil)
		v.effects.state = BufferValid
		if v.outputChannels == 0 {
			v.outputChannels = inChannels
		}
		return nil
	}

	last := chain[len(chain)-1].OutputChannels
	if v.outputChannels != 0 && last != v.outputChannels {
		return fmt.Errorf("%w: chain outputs %d channels, voice outputs %d",
			ErrInvalidCall, last, v.outputChannels)
	}

	channels := inChannels
	for i, d := range chain {
		if d.Effect == nil {
			return fmt.Errorf("%w: effect %d is nil", ErrInvalidArgument, i)
		}
		if d.OutputChannels < 1 || d.OutputChannels > MaxAudioChannels {
			return fmt.Errorf("%w: effect %d outputs %d channels", ErrInvalidArgument, i, d.OutputChannels)
		}
		flags := d.Effect.Properties().Flags
		if flags&EffectInPlaceRequired != 0 &&
			(flags&EffectInPlaceSupported == 0 || channels != d.OutputChannels) {
			return fmt.Errorf("%w: effect %d must run in place but maps %d channels to %d",
				ErrUnsupportedFormat, i, channels, d.OutputChannels)
		}
		channels = d.OutputChannels
	}

	in := EffectFormat{Channels: inChannels, SampleRate: sampleRate, MaxFrameCount: maxFrames}
	for i, d := range chain {
		out := in
		out.Channels = d.OutputChannels
		if err := d.Effect.LockForProcess(in, out); err != nil {
			for _, locked := range chain[:i] {
				if !v.effects.contains(locked.Effect) {
					locked.Effect.UnlockForProcess()
				}
			}
			return fmt.Errorf("%w: effect %d: %v", ErrUnsupportedFormat, i, err)
		}
		in = out
	}

	next := effectChain{
		desc:    slices.Clone(chain),
		enabled: make([]bool, len(chain)),
		inPlace: make([]bool, len(chain)),
		params:  make([][]byte, len(chain)),
		pending: make([]bool, len(chain)),
		state:   BufferValid,
	}
	channels = inChannels
	for i, d := range chain {
		d.Effect.AddRef()
		next.enabled[i] = d.InitiallyEnabled
		next.inPlace[i] = d.Effect.Properties().Flags&EffectInPlaceSupported != 0 &&
			channels == d.OutputChannels
		channels = d.OutputChannels
	}

	v.effects.release(&next)
	v.effects = next
	if v.outputChannels != channels {
		v.outputChannels = channels
	}
	return nil
}

func (v *voice) checkEffectIndex(index int) error {
	if index < 0 || index >= v.effects.count() {
		return fmt.Errorf("%w: effect index %d of %d", ErrInvalidArgument, index, v.effects.count())
	}
	return nil
}

// EnableEffect turns on the effect at index.
func (v *voice) EnableEffect(index int, operationSet uint32) error {
	return v.setEffectEnabled(index, true, operationSet)
}

// DisableEffect bypasses the effect at index.
func (v *voice) DisableEffect(index int, operationSet uint32) error {
	return v.setEffectEnabled(index, false, operationSet)
}

func (v *voice) setEffectEnabled(index int, enabled bool, operationSet uint32) error {
	v.effectLock.Lock()
	err := v.checkEffectIndex(index)
	v.effectLock.Unlock()
	if err != nil {
		return err
	}

	kind := opEnableEffect
	if !enabled {
		kind = opDisableEffect
	}
	if v.engine.deferred(operationSet) {
		v.engine.ops.enqueue(operation{
			kind:  kind,
			set:   operationSet,
			voice: v,
			apply: func() { v.applyEffectEnabled(index, enabled) },
		})
		return nil
	}
	v.applyEffectEnabled(index, enabled)
	return nil
}

func (v *voice) applyEffectEnabled(index int, enabled bool) {
	v.effectLock.Lock()
	defer v.effectLock.Unlock()
	if index < v.effects.count() {
		v.effects.enabled[index] = enabled
	}
}

// EffectState reports whether the effect at index is enabled.
func (v *voice) EffectState(index int) (bool, error) {
	v.effectLock.Lock()
	defer v.effectLock.Unlock()
	if err := v.checkEffectIndex(index); err != nil {
		return false, err
	}
	return v.effects.enabled[index], nil
}

// SetEffectParameters hands params to the effect at index before its next
// Process call. params is copied.
func (v *voice) SetEffectParameters(index int, params []byte, operationSet uint32) error {
	v.effectLock.Lock()
	err := v.checkEffectIndex(index)
	v.effectLock.Unlock()
	if err != nil {
		return err
	}

	params = slices.Clone(params)
	if v.engine.deferred(operationSet) {
		v.engine.ops.enqueue(operation{
			kind:  opSetEffectParameters,
			set:   operationSet,
			voice: v,
			apply: func() { v.applyEffectParameters(index, params) },
		})
		return nil
	}
	v.applyEffectParameters(index, params)
	return nil
}

func (v *voice) applyEffectParameters(index int, params []byte) {
	v.effectLock.Lock()
	defer v.effectLock.Unlock()
	if index >= v.effects.count() {
		return
	}
	v.effects.params[index] = append(v.effects.params[index][:0], params...)
	v.effects.pending[index] = true
}

// EffectParameters asks the effect at index to fill params.
func (v *voice) EffectParameters(index int, params []byte) error {
	v.effectLock.Lock()
	defer v.effectLock.Unlock()
	if err := v.checkEffectIndex(index); err != nil {
		return err
	}
	v.effects.desc[index].Effect.GetParameters(params)
	return nil
}

// processEffectChain runs v's chain over frames frames of channels
// interleaved samples in buf and returns the chain's output. Out of place
// effects write into the engine's two effect caches in turn, so an effect
// never writes over its own input. Caller holds v.effectLock.
func (e *Engine) processEffectChain(v *voice, buf []float32, frames, channels int) ([]float32, int) {
	c := &v.effects

	src := ProcessBuffer{
		Samples:         buf[:frames*channels],
		Flags:           BufferSilent,
		ValidFrameCount: frames,
	}
	for _, s := range src.Samples {
		if s != 0 {
			src.Flags = BufferValid
			break
		}
	}
	dst := ProcessBuffer{
		Samples:         src.Samples,
		Flags:           BufferValid,
		ValidFrameCount: src.ValidFrameCount,
	}

	cache := -1
	for i, d := range c.desc {
		if !c.inPlace[i] {
			next := 0
			if cache == 0 {
				next = 1
			}
			n := d.OutputChannels * src.ValidFrameCount
			e.effectCache[next] = growFloats(e.effectCache[next], n)
			dst.Samples = e.effectCache[next][:n]
			clear(dst.Samples)
			cache = next
		}

		if c.pending[i] {
			d.Effect.SetParameters(c.params[i])
			c.pending[i] = false
		}

		d.Effect.Process(&src, &dst, c.enabled[i])
		src = dst
	}

	c.state = dst.Flags
	return dst.Samples, dst.ValidFrameCount
}
