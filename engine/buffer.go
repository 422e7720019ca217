// SPDX-License-Identifier: EPL-2.0

package engine

import "fmt"

// Buffer is one block of audio submitted to a source voice. Positions and
// lengths count frames. The engine reads AudioData in place until the
// buffer's OnBufferEnd fires, so callers must not modify it before then.
type Buffer struct {
	Flags     BufferFlags
	AudioData []byte
	// PlayBegin and PlayLength select the played region. PlayLength 0
	// plays to the end of AudioData.
	PlayBegin  int
	PlayLength int
	// LoopBegin and LoopLength select the looped region and must be zero
	// when LoopCount is zero. LoopLength 0 loops to the end of the play
	// region.
	LoopBegin  int
	LoopLength int
	// LoopCount is the number of extra passes over the loop region, up to
	// MaxLoopCount, or LoopInfinite.
	LoopCount int
	// Context is handed back in the buffer callbacks.
	Context any
}

// VoiceState is a snapshot of a source voice's queue.
type VoiceState struct {
	// CurrentBufferContext is the Context of the buffer being played, nil
	// when the head buffer has not started yet.
	CurrentBufferContext any
	// BuffersQueued counts queued buffers, including flushed ones whose
	// OnBufferEnd has not fired yet.
	BuffersQueued int
	SamplesPlayed uint64
}

type bufferEntry struct {
	Buffer
}

// end is the frame at which this pass over the buffer stops.
func (b *bufferEntry) end() int {
	if b.LoopCount > 0 {
		return b.LoopBegin + b.LoopLength
	}
	return b.PlayBegin + b.PlayLength
}

// normalizeBuffer fills in the defaults and checks the loop region,
// rounding to block boundaries for block coded formats.
func normalizeBuffer(b Buffer, f WaveFormat) (Buffer, error) {
	if b.PlayBegin < 0 || b.PlayLength < 0 || b.LoopBegin < 0 || b.LoopLength < 0 {
		return b, fmt.Errorf("%w: negative buffer region", ErrInvalidArgument)
	}
	if b.LoopCount < 0 || (b.LoopCount > MaxLoopCount && b.LoopCount != LoopInfinite) {
		return b, fmt.Errorf("%w: loop count %d", ErrInvalidArgument, b.LoopCount)
	}
	if b.LoopCount == 0 && (b.LoopBegin > 0 || b.LoopLength > 0) {
		return b, fmt.Errorf("%w: loop region set with loop count 0", ErrInvalidArgument)
	}

	if b.PlayLength == 0 {
		var total int
		if f.Tag == FormatMSADPCM {
			total = len(b.AudioData) / f.BlockAlign * f.SamplesPerBlock
		} else {
			total = len(b.AudioData) / f.BlockAlign
		}
		b.PlayLength = total - b.PlayBegin
		if b.PlayLength < 0 {
			return b, fmt.Errorf("%w: play begin %d past %d frames", ErrInvalidArgument, b.PlayBegin, total)
		}
	}

	if b.LoopCount > 0 && b.LoopLength == 0 {
		b.LoopLength = max(0, b.PlayBegin+b.PlayLength-b.LoopBegin)
	}

	if f.Tag == FormatMSADPCM {
		spb := f.SamplesPerBlock
		b.PlayBegin -= b.PlayBegin % spb
		b.PlayLength -= b.PlayLength % spb
		b.LoopBegin -= b.LoopBegin % spb
		b.LoopLength -= b.LoopLength % spb
		b.AudioData = b.AudioData[:len(b.AudioData)/f.BlockAlign*f.BlockAlign]
		if b.LoopCount > 0 && b.LoopLength == 0 {
			return b, fmt.Errorf("%w: loop shorter than one MSADPCM block", ErrInvalidArgument)
		}
	}

	// checked on the block aligned region the voice actually plays
	if b.LoopCount > 0 {
		playEnd := b.PlayBegin + b.PlayLength
		if b.LoopBegin >= playEnd {
			return b, fmt.Errorf("%w: loop begin %d not before play end %d", ErrInvalidArgument, b.LoopBegin, playEnd)
		}
		loopEnd := b.LoopBegin + b.LoopLength
		if loopEnd <= b.PlayBegin || loopEnd > playEnd {
			return b, fmt.Errorf("%w: loop end %d outside (%d, %d]", ErrInvalidArgument, loopEnd, b.PlayBegin, playEnd)
		}
	}
	return b, nil
}
