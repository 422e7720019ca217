// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"fmt"

	"github.com/ik5/audmix/audio"
	"github.com/sirupsen/logrus"
)

// Config holds what an Engine needs at construction.
type Config struct {
	// Backend opens the output device when the master voice is created.
	Backend Backend
	// Logger receives lifecycle and error events. Nil means the logrus
	// standard logger.
	Logger *logrus.Entry
	// Kernels is the sample routine table. Nil means audio.DefaultKernels().
	Kernels *audio.Kernels
	// Codecs decodes source formats the engine has no built-in decoder for.
	Codecs map[FormatTag]CodecFactory
	// DeviceIndex is the device a master voice opens unless its own config
	// names another.
	DeviceIndex int
}

// DefaultConfig returns a Config with every optional field filled in.
// Backend is still required.
func DefaultConfig() Config {
	return Config{
		Logger:  logrus.NewEntry(logrus.StandardLogger()),
		Kernels: audio.DefaultKernels(),
	}
}

// Validate reports whether c can build an Engine.
func (c Config) Validate() error {
	if c.Backend == nil {
		return fmt.Errorf("%w: config has no backend", ErrInvalidArgument)
	}
	if c.DeviceIndex < 0 {
		return fmt.Errorf("%w: device index %d", ErrInvalidArgument, c.DeviceIndex)
	}
	for tag, f := range c.Codecs {
		if f == nil {
			return fmt.Errorf("%w: nil codec for format tag %#x", ErrInvalidArgument, uint16(tag))
		}
	}
	return nil
}

// SourceVoiceConfig describes a source voice.
type SourceVoiceConfig struct {
	Format WaveFormat
	Flags  VoiceFlags
	// MaxFrequencyRatio caps SetFrequencyRatio. Zero means
	// DefaultFrequencyRatio.
	MaxFrequencyRatio float32
	Callback          VoiceCallback
	// Sends nil routes to the master voice; an empty non-nil slice means
	// no output at all.
	Sends       []SendDescriptor
	EffectChain []EffectDescriptor
}

// SubmixVoiceConfig describes a submix voice. Submixes render in
// ascending ProcessingStage order.
type SubmixVoiceConfig struct {
	InputChannels   int
	InputSampleRate int
	Flags           VoiceFlags
	ProcessingStage int
	Sends           []SendDescriptor
	EffectChain     []EffectDescriptor
}

// MasterVoiceConfig describes the master voice. Zero channels or rate
// take the device's preferred value.
type MasterVoiceConfig struct {
	InputChannels   int
	InputSampleRate int
	Flags           VoiceFlags
	// DeviceIndex overrides Config.DeviceIndex when positive.
	DeviceIndex int
	EffectChain []EffectDescriptor
}
