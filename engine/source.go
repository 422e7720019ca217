// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/ik5/audmix/audio"
	"github.com/ik5/audmix/utils"
)

const (
	sourceStopped int32 = iota
	sourcePlaying
	// sourceTails feeds silence through the filter and effects after a
	// Stop with PlayTails.
	sourceTails
)

// SourceVoice decodes submitted buffers and feeds them into the graph.
type SourceVoice struct {
	voice

	callback     VoiceCallback
	decoder      Codec
	resampler    audio.ResampleFunc
	maxFreqRatio float32

	active atomic.Int32

	// resampleSamples is the frame count the voice delivers per pass.
	// Guarded by sendLock.
	resampleSamples int

	bufferLock sync.Mutex

	format        WaveFormat
	freqRatio     float32
	decodeSamples int

	queue []bufferEntry
	// flushed buffers wait here for their OnBufferEnd
	flushed   []bufferEntry
	newBuffer bool

	curBufferOffset     int
	curBufferOffsetFrac audio.Fixed
	totalSamples        uint64
}

func (s *SourceVoice) sampleRate() int {
	s.bufferLock.Lock()
	defer s.bufferLock.Unlock()
	return s.format.SampleRate
}

// decodeFrames is the most a pass can decode at rate, at the highest
// frequency ratio the voice allows.
func (s *SourceVoice) decodeFrames(rate int, m *MasterVoice) int {
	return int(math.Ceil(
		float64(m.updateSize)*float64(s.maxFreqRatio)*float64(rate)/float64(m.inputSampleRate),
	)) + extraDecodePadding*s.format.Channels
}

func (s *SourceVoice) notify(fn func(cb VoiceCallback), held ...sync.Locker) {
	if s.callback == nil {
		return
	}
	unlocked(func() { fn(s.callback) }, held...)
}

// Start begins playback of the queued buffers.
func (s *SourceVoice) Start(operationSet uint32) error {
	if s.engine.deferred(operationSet) {
		s.engine.ops.enqueue(operation{
			kind:  opStart,
			set:   operationSet,
			voice: &s.voice,
			apply: func() { s.active.Store(sourcePlaying) },
		})
		return nil
	}
	s.active.Store(sourcePlaying)
	return nil
}

// Stop pauses playback. The buffer position is kept. With PlayTails the
// effect chain keeps running on silence until it goes quiet.
func (s *SourceVoice) Stop(flags StopFlags, operationSet uint32) error {
	state := sourceStopped
	if flags&PlayTails != 0 {
		state = sourceTails
	}

	if s.engine.deferred(operationSet) {
		s.engine.ops.enqueue(operation{
			kind:  opStop,
			set:   operationSet,
			voice: &s.voice,
			apply: func() { s.active.Store(state) },
		})
		return nil
	}
	s.active.Store(state)
	return nil
}

// ExitLoop ends looping of the current buffer after the loop pass that is
// playing. The rest of the buffer then plays out.
func (s *SourceVoice) ExitLoop(operationSet uint32) error {
	if s.engine.deferred(operationSet) {
		s.engine.ops.enqueue(operation{
			kind:  opExitLoop,
			set:   operationSet,
			voice: &s.voice,
			apply: s.exitLoop,
		})
		return nil
	}
	s.exitLoop()
	return nil
}

func (s *SourceVoice) exitLoop() {
	s.bufferLock.Lock()
	defer s.bufferLock.Unlock()
	if len(s.queue) > 0 {
		s.queue[0].LoopCount = 0
	}
}

// SubmitSourceBuffer appends b to the queue. The buffer region is checked
// and defaulted as described on Buffer.
func (s *SourceVoice) SubmitSourceBuffer(b Buffer) error {
	s.bufferLock.Lock()
	defer s.bufferLock.Unlock()

	nb, err := normalizeBuffer(b, s.format)
	if err != nil {
		s.logger("SubmitSourceBuffer").WithError(err).Warn("buffer rejected")
		return err
	}
	if len(s.queue)+len(s.flushed) >= MaxQueuedBuffers {
		return fmt.Errorf("%w: %d buffers already queued", ErrInvalidCall, MaxQueuedBuffers)
	}

	if len(s.queue) == 0 {
		s.curBufferOffset = nb.PlayBegin
		s.newBuffer = true
	}
	s.queue = append(s.queue, bufferEntry{Buffer: nb})
	return nil
}

// FlushSourceBuffers drops every queued buffer except the one being played
// while the voice runs. Dropped buffers still get OnBufferEnd on the next
// render pass.
func (s *SourceVoice) FlushSourceBuffers() error {
	s.bufferLock.Lock()
	defer s.bufferLock.Unlock()

	if s.active.Load() == sourcePlaying && len(s.queue) > 0 && !s.newBuffer {
		s.flushed = append(s.flushed, s.queue[1:]...)
		clear(s.queue[1:])
		s.queue = s.queue[:1]
		return nil
	}

	s.flushed = append(s.flushed, s.queue...)
	clear(s.queue)
	s.queue = s.queue[:0]
	s.curBufferOffset = 0
	s.curBufferOffsetFrac = 0
	s.newBuffer = false
	return nil
}

// Discontinuity marks the last queued buffer as the end of the stream.
func (s *SourceVoice) Discontinuity() error {
	s.bufferLock.Lock()
	defer s.bufferLock.Unlock()
	if n := len(s.queue); n > 0 {
		s.queue[n-1].Flags |= EndOfStream
	}
	return nil
}

// State reports the queue. NoSamplesPlayed skips the sample count.
func (s *SourceVoice) State(flags StateFlags) VoiceState {
	s.bufferLock.Lock()
	defer s.bufferLock.Unlock()

	var st VoiceState
	if flags&NoSamplesPlayed == 0 {
		st.SamplesPlayed = s.totalSamples
	}
	if len(s.queue) > 0 && !s.newBuffer {
		st.CurrentBufferContext = s.queue[0].Context
	}
	st.BuffersQueued = len(s.queue) + len(s.flushed)
	return st
}

// SetFrequencyRatio sets the playback speed and pitch as a multiple of the
// source rate, clamped to [MinFrequencyRatio, the voice's maximum]. Voices
// created with VoiceNoPitch ignore it.
func (s *SourceVoice) SetFrequencyRatio(ratio float32, operationSet uint32) error {
	if math.IsNaN(float64(ratio)) {
		return fmt.Errorf("%w: frequency ratio is NaN", ErrInvalidArgument)
	}

	if s.engine.deferred(operationSet) {
		s.engine.ops.enqueue(operation{
			kind:  opSetFrequencyRatio,
			set:   operationSet,
			voice: &s.voice,
			apply: func() { s.setFrequencyRatio(ratio) },
		})
		return nil
	}
	s.setFrequencyRatio(ratio)
	return nil
}

func (s *SourceVoice) setFrequencyRatio(ratio float32) {
	if s.flags&VoiceNoPitch != 0 {
		return
	}
	ratio = utils.Clamp(ratio, MinFrequencyRatio, s.maxFreqRatio)

	s.bufferLock.Lock()
	s.freqRatio = ratio
	s.bufferLock.Unlock()
}

// FrequencyRatio returns the current frequency ratio.
func (s *SourceVoice) FrequencyRatio() float32 {
	s.bufferLock.Lock()
	defer s.bufferLock.Unlock()
	return s.freqRatio
}

// SetSourceSampleRate reinterprets future buffers at rate. It fails while
// buffers are queued.
func (s *SourceVoice) SetSourceSampleRate(rate int) error {
	if rate < MinSampleRate || rate > MaxSampleRate {
		return fmt.Errorf("%w: sample rate %d", ErrInvalidArgument, rate)
	}
	e := s.engine
	m := e.master.Load()
	if m == nil {
		return ErrNoMasterVoice
	}

	e.sourceLock.Lock()
	defer e.sourceLock.Unlock()
	s.bufferLock.Lock()
	defer s.bufferLock.Unlock()

	if len(s.queue) > 0 {
		err := fmt.Errorf("%w: %d buffers queued", ErrInvalidCall, len(s.queue))
		s.logger("SetSourceSampleRate").WithError(err).Warn("sample rate change rejected")
		return err
	}
	s.format.SampleRate = rate
	s.decodeSamples = s.decodeFrames(rate, m)
	e.decodeCache = growFloats(e.decodeCache, (s.decodeSamples+extraDecodePadding)*s.format.Channels)
	return nil
}
