// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"slices"
	"sync"
	"sync/atomic"

	"github.com/ik5/audmix/audio"
	"github.com/sirupsen/logrus"
)

type voiceKind int

const (
	kindSource voiceKind = iota
	kindSubmix
	kindMaster
)

func (k voiceKind) String() string {
	switch k {
	case kindSource:
		return "source"
	case kindSubmix:
		return "submix"
	case kindMaster:
		return "master"
	}
	return "unknown"
}

// VoiceDetails describes a voice as it was created.
type VoiceDetails struct {
	CreationFlags   VoiceFlags
	ActiveFlags     VoiceFlags
	InputChannels   int
	InputSampleRate int
}

// Voice is implemented by *SourceVoice, *SubmixVoice and *MasterVoice.
//
// Every mutating method taking an operationSet applies immediately when it
// is CommitNow or the engine is stopped. Otherwise the change is queued and
// takes effect at the start of the first render pass after
// Engine.CommitOperationSet commits its tag. Arguments are checked before
// anything is queued.
type Voice interface {
	Details() VoiceDetails

	// SetOutputVoices replaces the voice's sends. Nil sends to the master
	// voice; an empty slice silences the voice.
	SetOutputVoices(sends []SendDescriptor) error
	SetEffectChain(chain []EffectDescriptor) error
	EnableEffect(index int, operationSet uint32) error
	DisableEffect(index int, operationSet uint32) error
	EffectState(index int) (bool, error)
	SetEffectParameters(index int, params []byte, operationSet uint32) error
	EffectParameters(index int, params []byte) error

	SetFilterParameters(p audio.FilterParameters, operationSet uint32) error
	FilterParameters() audio.FilterParameters
	SetOutputFilterParameters(dest Voice, p audio.FilterParameters, operationSet uint32) error
	OutputFilterParameters(dest Voice) (audio.FilterParameters, error)

	SetVolume(volume float32, operationSet uint32) error
	Volume() float32
	SetChannelVolumes(volumes []float32, operationSet uint32) error
	ChannelVolumes() []float32
	SetOutputMatrix(dest Voice, srcChannels, dstChannels int, matrix []float32, operationSet uint32) error
	OutputMatrix(dest Voice, srcChannels, dstChannels int) ([]float32, error)

	// Destroy removes the voice from the graph. It fails with ErrVoiceInUse
	// while another voice sends to it. Destroying a source voice waits for
	// the render thread to finish with it.
	Destroy() error

	base() *voice
}

// voice holds what every kind of voice shares. Locks nest in the order
// Engine.sourceLock, sendLock, effectLock, filterLock, volumeLock,
// SourceVoice.bufferLock.
type voice struct {
	engine *Engine
	kind   voiceKind
	flags  VoiceFlags

	// exactly one is set, pointing back at the owner
	source *SourceVoice
	submix *SubmixVoice
	master *MasterVoice

	sendLock   sync.Mutex
	effectLock sync.Mutex
	filterLock sync.Mutex
	volumeLock sync.Mutex

	// sends is guarded by sendLock; the coefficients inside each send by
	// volumeLock as well.
	sends []send

	inputChannels   int
	inputSampleRate int
	// outputChannels is what the voice's own output stage writes, after
	// the effect chain. Fixed once the voice exists.
	outputChannels int

	volume        float32
	channelVolume []float32

	filter      audio.FilterParameters
	filterState []audio.FilterState

	effects effectChain

	destroyed atomic.Bool
}

func (v *voice) base() *voice { return v }

func (v *voice) logger(function string) *logrus.Entry {
	return v.engine.log.WithFields(logrus.Fields{
		"function": function,
		"voice":    v.kind.String(),
	})
}

// Details reports the voice's flags and input format.
func (v *voice) Details() VoiceDetails {
	d := VoiceDetails{
		CreationFlags:   v.flags,
		ActiveFlags:     v.flags,
		InputChannels:   v.inputChannels,
		InputSampleRate: v.inputSampleRate,
	}
	if v.kind == kindSource {
		d.InputSampleRate = v.source.sampleRate()
	}
	return d
}

// Destroy implements Voice.
func (v *voice) Destroy() error {
	return v.engine.destroyVoice(v)
}

// inputBuffer is where upstream voices mix into during a render pass.
func (v *voice) inputBuffer() []float32 {
	if v.kind == kindMaster {
		return v.master.output
	}
	return v.submix.inputCache
}

// sendsTo reports whether v has a send to dest. Takes v.sendLock.
func (v *voice) sendsTo(dest *voice) bool {
	v.sendLock.Lock()
	defer v.sendLock.Unlock()
	return slices.ContainsFunc(v.sends, func(s send) bool { return s.out == dest })
}

func ones(n int) []float32 {
	s := make([]float32, n)
	for i := range s {
		s[i] = 1
	}
	return s
}
