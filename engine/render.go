// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"errors"
	"sync"

	"github.com/ik5/audmix/audio"
)

// generateOutput renders one pass into out, which the caller has zeroed.
func (e *Engine) generateOutput(out []float32) {
	if !e.active.Load() {
		return
	}

	e.ops.execute()

	e.callbackLock.Lock()
	for _, cb := range e.callbacks {
		cb.OnProcessingPassStart()
	}
	e.callbackLock.Unlock()

	if m := e.master.Load(); m != nil {
		e.renderGraph(m, out)
	}

	e.callbackLock.Lock()
	for _, cb := range e.callbacks {
		cb.OnProcessingPassEnd()
	}
	e.callbackLock.Unlock()
}

func (e *Engine) renderGraph(m *MasterVoice, out []float32) {
	mv := &m.voice
	frames := m.updateSize
	if m.effectCache != nil {
		clear(m.effectCache)
		m.output = m.effectCache
	} else {
		m.output = out[:frames*mv.inputChannels]
	}

	e.sourceLock.Lock()
	for _, s := range e.sources {
		if s.destroyed.Load() {
			continue
		}
		e.processingSource = s
		e.flushPendingBuffers(s)
		if s.active.Load() != sourceStopped {
			e.mixSource(s, m)
			e.flushPendingBuffers(s)
		}
	}
	e.processingSource = nil
	e.sourceCond.Broadcast()
	e.sourceLock.Unlock()

	e.submixLock.Lock()
	for _, sm := range e.submixes {
		e.mixSubmix(sm)
	}
	e.submixLock.Unlock()

	mv.volumeLock.Lock()
	volume := mv.volume
	mv.volumeLock.Unlock()
	if volume != 1 {
		e.kernels.Amplify(m.output[:frames*mv.inputChannels], volume)
	}

	mv.effectLock.Lock()
	defer mv.effectLock.Unlock()
	if mv.effects.count() == 0 {
		return
	}
	res, n := e.processEffectChain(mv, m.output, frames, mv.inputChannels)
	oc := mv.outputChannels
	n = min(n, frames)
	if len(res) > 0 && &res[0] != &out[0] {
		copy(out[:n*oc], res[:n*oc])
	}
	if n < frames {
		clear(out[n*oc : frames*oc])
	}
}

// flushPendingBuffers delivers OnBufferEnd for flushed buffers. Caller
// holds e.sourceLock.
func (e *Engine) flushPendingBuffers(s *SourceVoice) {
	s.bufferLock.Lock()
	defer s.bufferLock.Unlock()

	for len(s.flushed) > 0 {
		entry := s.flushed[0]
		s.flushed[0] = bufferEntry{}
		s.flushed = s.flushed[1:]
		s.notify(func(cb VoiceCallback) { cb.OnBufferEnd(entry.Context) }, &e.sourceLock, &s.bufferLock)
	}
}

// mixSource renders one pass of s into its sends. Caller holds
// e.sourceLock.
func (e *Engine) mixSource(s *SourceVoice, m *MasterVoice) {
	v := &s.voice
	v.sendLock.Lock()
	defer v.sendLock.Unlock()

	outRate := m.inputSampleRate
	if len(v.sends) > 0 {
		outRate = v.sends[0].out.inputSampleRate
	}
	ch := s.format.Channels

	if s.active.Load() == sourceTails {
		if v.effects.count() > 0 && v.effects.state != BufferSilent {
			e.sendWork(v, e.silentInput(s.resampleSamples*ch), s.resampleSamples, ch)
		}
		return
	}

	s.bufferLock.Lock()
	step := audio.ToFixed(float64(s.freqRatio) * float64(s.format.SampleRate) / float64(outRate))
	toDecode := int((audio.Fixed(s.resampleSamples)*step + s.curBufferOffsetFrac + audio.FixedFractionMask).Int())
	bytes := s.bytesRequested(toDecode)
	s.bufferLock.Unlock()

	s.notify(func(cb VoiceCallback) { cb.OnVoiceProcessingPassStart(bytes) }, &e.sourceLock, &v.sendLock)

	s.bufferLock.Lock()
	if len(s.queue) == 0 {
		s.bufferLock.Unlock()
		if v.effects.count() > 0 && v.effects.state != BufferSilent {
			e.sendWork(v, e.silentInput(s.resampleSamples*ch), s.resampleSamples, ch)
			return
		}
		s.notify(func(cb VoiceCallback) { cb.OnVoiceProcessingPassEnd() }, &e.sourceLock, &v.sendLock)
		return
	}

	e.decodeCache = growFloats(e.decodeCache, (toDecode+extraDecodePadding)*ch)
	decoded := s.decodeBuffers(toDecode)

	// the frame stepped back over below was counted last pass
	if s.curBufferOffsetFrac > 0 && s.totalSamples > 0 {
		s.totalSamples--
	}

	s.notify(func(cb VoiceCallback) { cb.OnVoiceProcessingPassEnd() }, &e.sourceLock, &v.sendLock, &s.bufferLock)

	if decoded == 0 {
		s.bufferLock.Unlock()
		return
	}

	toResample := int((audio.FixedFromInt(uint64(decoded)) - s.curBufferOffsetFrac + audio.FixedFractionMask) / step)
	toResample = min(toResample+extraDecodePadding, s.resampleSamples)

	var final []float32
	offset := s.curBufferOffsetFrac
	if step == audio.FixedOne {
		final = e.decodeCache
		offset += audio.Fixed(toResample) * step
	} else {
		e.resampleCache = growFloats(e.resampleCache, s.resampleSamples*ch)
		final = e.resampleCache
		s.resampler(e.decodeCache[:(decoded+extraDecodePadding)*ch], final, &offset, step, toResample, ch)
	}

	if len(s.queue) > 0 {
		s.curBufferOffsetFrac = offset.Frac()
		// the next pass interpolates from the last frame of this one
		if s.curBufferOffsetFrac > 0 && s.curBufferOffset > 0 {
			s.curBufferOffset--
		}
	} else {
		s.curBufferOffsetFrac = 0
		s.curBufferOffset = 0
	}
	s.bufferLock.Unlock()

	e.sendWork(v, final, toResample, ch)
}

// decodeBuffers decodes toDecode frames from the head of the queue into
// the decode cache, moving through loops and buffer boundaries, and
// returns how many it got. Two frames past the window are decoded without
// advancing so the resampler can read ahead. Caller holds e.sourceLock,
// s.sendLock and s.bufferLock; all three are released around callbacks.
func (s *SourceVoice) decodeBuffers(toDecode int) int {
	e := s.engine
	held := []sync.Locker{&e.sourceLock, &s.sendLock, &s.bufferLock}
	ch := s.format.Channels
	decoded := 0

	for decoded < toDecode && len(s.queue) > 0 {
		if s.newBuffer {
			s.newBuffer = false
			ctx := s.queue[0].Context
			s.notify(func(cb VoiceCallback) { cb.OnBufferStart(ctx) }, held...)
			continue
		}

		b := &s.queue[0]
		want := toDecode - decoded
		n := max(0, min(b.end()-s.curBufferOffset, want))
		if n > 0 {
			s.decode(b, s.curBufferOffset, n, e.decodeCache[decoded*ch:(decoded+n)*ch], held)
		}
		decoded += n
		s.curBufferOffset += n
		s.totalSamples += uint64(n)

		if len(s.queue) == 0 || s.newBuffer {
			continue
		}
		b = &s.queue[0]
		if s.curBufferOffset < b.end() {
			continue
		}

		if b.LoopCount > 0 {
			s.curBufferOffset = b.LoopBegin
			if b.LoopCount < LoopInfinite {
				b.LoopCount--
			}
			ctx := b.Context
			s.notify(func(cb VoiceCallback) { cb.OnLoopEnd(ctx) }, held...)
			continue
		}

		done := *b
		if done.Flags&EndOfStream != 0 {
			s.curBufferOffsetFrac = 0
			s.totalSamples = 0
		}
		s.queue[0] = bufferEntry{}
		s.queue = s.queue[1:]
		if len(s.queue) > 0 {
			s.curBufferOffset = s.queue[0].PlayBegin
			s.newBuffer = true
		}
		s.notify(func(cb VoiceCallback) {
			cb.OnBufferEnd(done.Context)
			if done.Flags&EndOfStream != 0 {
				cb.OnStreamEnd()
			}
		}, held...)
	}

	if decoded < toDecode {
		clear(e.decodeCache[decoded*ch : toDecode*ch])
	}

	pad := e.decodeCache[decoded*ch : (decoded+extraDecodePadding)*ch]
	n := 0
	if len(s.queue) > 0 {
		b := &s.queue[0]
		n = max(0, min(b.end()-s.curBufferOffset, extraDecodePadding))
		if n > 0 {
			s.decode(b, s.curBufferOffset, n, pad[:n*ch], held)
		}
	}
	clear(pad[n*ch:])

	return decoded
}

// decode fills dst from b. A failing decoder leaves silence and reports
// the error through OnVoiceError.
func (s *SourceVoice) decode(b *bufferEntry, offset, frames int, dst []float32, held []sync.Locker) {
	err := s.decoder.Decode(b.AudioData, offset, frames, dst)
	if err == nil {
		return
	}
	if !errors.Is(err, errShortData) {
		clear(dst)
	}
	s.logger("decode").WithError(err).Error("decoding failed, rendering silence")
	ctx := b.Context
	s.notify(func(cb VoiceCallback) { cb.OnVoiceError(ctx, err) }, held...)
}

// bytesRequested is how much more data than is queued the voice needs to
// decode frames frames. Caller holds s.bufferLock.
func (s *SourceVoice) bytesRequested(frames int) int {
	for i := range s.queue {
		if frames <= 0 {
			break
		}
		b := &s.queue[i]
		cur := b.PlayBegin
		if i == 0 {
			cur = s.curBufferOffset
		}
		left := b.PlayBegin + b.PlayLength - cur
		if b.LoopCount > 0 {
			loopEnd := b.LoopBegin + b.LoopLength
			left = (loopEnd - cur) +
				b.LoopLength*(b.LoopCount-1) +
				(b.PlayBegin + b.PlayLength - b.LoopBegin)
		}
		if left >= frames {
			return 0
		}
		frames -= left
	}

	if s.format.Tag == FormatMSADPCM {
		spb := s.format.SamplesPerBlock
		return (frames + spb - 1) / spb * s.format.BlockAlign
	}
	return frames * s.format.BlockAlign
}

// mixSubmix renders one pass of sm into its sends and clears its input.
// Caller holds e.submixLock.
func (e *Engine) mixSubmix(sm *SubmixVoice) {
	v := &sm.voice
	ch := v.inputChannels

	v.sendLock.Lock()
	frames := sm.outputSamples
	final := sm.inputCache
	if sm.resampleStep != audio.FixedOne {
		e.resampleCache = growFloats(e.resampleCache, frames*ch)
		final = e.resampleCache
		var offset audio.Fixed
		sm.resampler(sm.inputCache, final, &offset, sm.resampleStep, frames, ch)
	}
	e.sendWork(v, final, frames, ch)
	v.sendLock.Unlock()

	clear(sm.inputCache)
}

// sendWork runs the filter and effect chain over frames frames of samples
// and mixes the result into every send. samples has room for the voice's
// full pass. Caller holds v.sendLock.
func (e *Engine) sendWork(v *voice, samples []float32, frames, channels int) {
	if v.flags&VoiceUseFilter != 0 {
		v.filterLock.Lock()
		audio.ApplyFilter(v.filter, v.filterState, samples, frames, channels)
		v.filterLock.Unlock()
	}

	v.effectLock.Lock()
	if v.effects.count() > 0 {
		// effects always see a whole pass
		if v.kind == kindSource && frames < v.source.resampleSamples {
			full := v.source.resampleSamples
			clear(samples[frames*channels : full*channels])
			frames = full
		}
		samples, frames = e.processEffectChain(v, samples, frames, channels)
	}
	v.effectLock.Unlock()

	if len(v.sends) == 0 {
		return
	}

	oc := v.outputChannels
	v.volumeLock.Lock()
	defer v.volumeLock.Unlock()
	for i := range v.sends {
		s := &v.sends[i]
		stream := s.out.inputBuffer()
		n := min(frames, len(stream)/s.outChannels)
		if s.flags&SendUseFilter == 0 {
			s.mixer(n, oc, s.outChannels, samples, stream, s.mix)
			continue
		}

		scratch := e.sendScratch(n * s.outChannels)
		s.mixer(n, oc, s.outChannels, samples, scratch, s.mix)
		audio.ApplyFilter(s.filter, s.filterState, scratch, n, s.outChannels)
		for j, x := range scratch {
			stream[j] += x
		}
	}
}

// silentInput zeroes n samples of the resample cache and returns the
// whole cache. Render thread only.
func (e *Engine) silentInput(n int) []float32 {
	e.resampleCache = growFloats(e.resampleCache, n)
	clear(e.resampleCache[:n])
	return e.resampleCache
}

// sendScratch returns n zeroed samples for a filtered send. Render thread
// only.
func (e *Engine) sendScratch(n int) []float32 {
	e.sendCache = growFloats(e.sendCache, n)
	buf := e.sendCache[:n]
	clear(buf)
	return buf
}
