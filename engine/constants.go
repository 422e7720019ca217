// SPDX-License-Identifier: EPL-2.0

package engine

const (
	// MaxVolumeLevel bounds SetVolume in both directions.
	MaxVolumeLevel = 16777216.0

	MinFrequencyRatio     = 1.0 / 1024.0
	MaxFrequencyRatio     = 1024.0
	DefaultFrequencyRatio = 2.0

	// LoopInfinite as a buffer LoopCount repeats the loop region forever.
	LoopInfinite = 255
	MaxLoopCount = 254

	MaxQueuedBuffers = 64

	MinSampleRate    = 1000
	MaxSampleRate    = 200000
	MaxAudioChannels = 64

	// DefaultChannels and DefaultSampleRate ask the master voice to use
	// the device's preferred format.
	DefaultChannels   = 0
	DefaultSampleRate = 0
)

// Operation set tags.
const (
	// CommitNow applies a mutation immediately.
	CommitNow uint32 = 0
	// CommitAll passed to CommitOperationSet commits every pending tag.
	CommitAll uint32 = 0
)

// frames decoded past the requested window so the resampler can
// interpolate across the callback boundary.
const extraDecodePadding = 2

// VoiceFlags are passed at voice creation.
type VoiceFlags uint32

const (
	VoiceNoPitch   VoiceFlags = 0x2
	VoiceNoSRC     VoiceFlags = 0x4
	VoiceUseFilter VoiceFlags = 0x8
)

// SendFlags qualify one entry of a voice's send list.
type SendFlags uint32

const SendUseFilter SendFlags = 0x80

// BufferFlags qualify a submitted buffer.
type BufferFlags uint32

// EndOfStream marks the last buffer of a stream.
const EndOfStream BufferFlags = 0x40

// StopFlags qualify SourceVoice.Stop.
type StopFlags uint32

// PlayTails keeps feeding silence through the effect chain after Stop so
// reverbs and delays ring out.
const PlayTails StopFlags = 0x20

// StateFlags qualify SourceVoice.GetState.
type StateFlags uint32

const NoSamplesPlayed StateFlags = 0x100
