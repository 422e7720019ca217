// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"fmt"
	"math"
	"slices"

	"github.com/ik5/audmix/audio"
	"github.com/sirupsen/logrus"
)

// CreateSourceVoice adds a stopped source voice decoding cfg.Format. A
// master voice must exist.
func (e *Engine) CreateSourceVoice(cfg SourceVoiceConfig) (*SourceVoice, error) {
	log := e.log.WithField("function", "CreateSourceVoice")
	if e.released.Load() {
		return nil, ErrEngineReleased
	}
	m := e.master.Load()
	if m == nil {
		return nil, ErrNoMasterVoice
	}

	f := cfg.Format
	if err := f.validate(); err != nil {
		log.WithError(err).Warn("source format rejected")
		return nil, err
	}
	dec, err := newDecoder(&f, e.codecs)
	if err != nil {
		log.WithError(err).Warn("no decoder for source format")
		return nil, err
	}

	maxRatio := cfg.MaxFrequencyRatio
	if maxRatio == 0 {
		maxRatio = DefaultFrequencyRatio
	}
	if math.IsNaN(float64(maxRatio)) || maxRatio < MinFrequencyRatio || maxRatio > MaxFrequencyRatio {
		return nil, fmt.Errorf("%w: max frequency ratio %v", ErrInvalidArgument, maxRatio)
	}

	s := &SourceVoice{
		callback:     cfg.Callback,
		decoder:      dec,
		resampler:    e.kernels.Resampler(f.Channels),
		maxFreqRatio: maxRatio,
		format:       f,
		freqRatio:    1,
	}
	s.voice = voice{
		engine:          e,
		kind:            kindSource,
		flags:           cfg.Flags,
		source:          s,
		inputChannels:   f.Channels,
		inputSampleRate: f.SampleRate,
		volume:          1,
	}

	e.graphLock.RLock()
	defer e.graphLock.RUnlock()

	if err := e.initVoice(&s.voice, cfg.Sends, cfg.EffectChain); err != nil {
		log.WithError(err).Warn("source voice rejected")
		return nil, err
	}

	s.decodeSamples = s.decodeFrames(f.SampleRate, m)

	e.sourceLock.Lock()
	e.decodeCache = growFloats(e.decodeCache, (s.decodeSamples+extraDecodePadding)*f.Channels)
	e.sources = append(slices.Clip(e.sources), s)
	e.sourceLock.Unlock()

	e.AddRef()
	log.WithFields(logrus.Fields{
		"format":   f.Tag.String(),
		"channels": f.Channels,
		"rate":     f.SampleRate,
	}).Debug("source voice created")
	return s, nil
}

// CreateSubmixVoice adds a submix voice summing inputChannels at
// inputSampleRate. A master voice must exist.
func (e *Engine) CreateSubmixVoice(cfg SubmixVoiceConfig) (*SubmixVoice, error) {
	log := e.log.WithField("function", "CreateSubmixVoice")
	if e.released.Load() {
		return nil, ErrEngineReleased
	}
	m := e.master.Load()
	if m == nil {
		return nil, ErrNoMasterVoice
	}
	if cfg.InputChannels < 1 || cfg.InputChannels > MaxAudioChannels {
		return nil, fmt.Errorf("%w: %d channels", ErrInvalidArgument, cfg.InputChannels)
	}
	if cfg.InputSampleRate < MinSampleRate || cfg.InputSampleRate > MaxSampleRate {
		return nil, fmt.Errorf("%w: sample rate %d", ErrInvalidArgument, cfg.InputSampleRate)
	}

	frames := int(math.Ceil(float64(m.updateSize) * float64(cfg.InputSampleRate) / float64(m.inputSampleRate)))
	sm := &SubmixVoice{
		processingStage: cfg.ProcessingStage,
		inputSamples:    (frames + extraDecodePadding) * cfg.InputChannels,
		resampler:       e.kernels.Resampler(cfg.InputChannels),
	}
	sm.inputCache = make([]float32, sm.inputSamples)
	sm.voice = voice{
		engine:          e,
		kind:            kindSubmix,
		flags:           cfg.Flags,
		submix:          sm,
		inputChannels:   cfg.InputChannels,
		inputSampleRate: cfg.InputSampleRate,
		volume:          1,
	}

	e.graphLock.RLock()
	defer e.graphLock.RUnlock()

	if err := e.initVoice(&sm.voice, cfg.Sends, cfg.EffectChain); err != nil {
		log.WithError(err).Warn("submix voice rejected")
		return nil, err
	}

	e.submixLock.Lock()
	i := 0
	for i < len(e.submixes) && e.submixes[i].processingStage <= sm.processingStage {
		i++
	}
	e.submixes = slices.Insert(slices.Clone(e.submixes), i, sm)
	e.submixLock.Unlock()

	e.AddRef()
	log.WithFields(logrus.Fields{
		"channels": cfg.InputChannels,
		"rate":     cfg.InputSampleRate,
		"stage":    cfg.ProcessingStage,
	}).Debug("submix voice created")
	return sm, nil
}

// initVoice sizes v's output for its sends, installs its effect chain,
// channel volumes, sends and filter. Caller holds the graph lock for
// reading; v is not yet visible to anyone else.
func (e *Engine) initVoice(v *voice, sends []SendDescriptor, chain []EffectDescriptor) error {
	targets, err := v.resolveSends(sends)
	if err != nil {
		return err
	}
	if err := v.outputFrequency(targets); err != nil {
		return err
	}
	if err := v.setEffectChain(chain); err != nil {
		return err
	}
	v.channelVolume = ones(v.outputChannels)
	v.installSends(targets)
	if v.flags&VoiceUseFilter != 0 {
		v.filter = audio.DefaultFilterParameters()
		v.filterState = make([]audio.FilterState, v.inputChannels)
	}
	return nil
}

// CreateMasterVoice opens the output device and adds the master voice.
// Zero channels or rate take the device's preferred format. The device
// must accept the channel count the effect chain produces.
func (e *Engine) CreateMasterVoice(cfg MasterVoiceConfig) (*MasterVoice, error) {
	log := e.log.WithField("function", "CreateMasterVoice")
	if e.released.Load() {
		return nil, ErrEngineReleased
	}
	if e.master.Load() != nil {
		return nil, ErrMasterExists
	}

	index := e.deviceIndex
	if cfg.DeviceIndex > 0 {
		index = cfg.DeviceIndex
	}
	details, err := e.backend.DeviceDetails(index)
	if err != nil {
		return nil, fmt.Errorf("%w: device %d: %w", ErrInvalidArgument, index, err)
	}

	channels, rate := cfg.InputChannels, cfg.InputSampleRate
	if channels == DefaultChannels {
		channels = details.Channels
	}
	if rate == DefaultSampleRate {
		rate = details.SampleRate
	}
	if channels < 1 || channels > MaxAudioChannels {
		return nil, fmt.Errorf("%w: %d channels", ErrInvalidArgument, channels)
	}
	if rate < MinSampleRate || rate > MaxSampleRate {
		return nil, fmt.Errorf("%w: sample rate %d", ErrInvalidArgument, rate)
	}

	outChannels := channels
	if n := len(cfg.EffectChain); n > 0 {
		outChannels = cfg.EffectChain[n-1].OutputChannels
	}

	m := &MasterVoice{deviceIndex: index}
	m.voice = voice{
		engine:          e,
		kind:            kindMaster,
		flags:           cfg.Flags,
		master:          m,
		inputChannels:   channels,
		inputSampleRate: rate,
		volume:          1,
	}

	got, updateSize, err := e.backend.Open(index, DeviceFormat{Channels: outChannels, SampleRate: rate}, e)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrDeviceInvalidated, err)
		log.WithError(err).Error("opening output device")
		return nil, err
	}
	closeDevice := func() {
		if cerr := e.backend.Close(); cerr != nil {
			log.WithError(cerr).Warn("closing output device")
		}
	}

	m.updateSize = updateSize
	m.inputSampleRate = got.SampleRate
	if len(cfg.EffectChain) == 0 {
		m.inputChannels = got.Channels
	} else if got.Channels != outChannels {
		closeDevice()
		return nil, fmt.Errorf("%w: device opened %d channels, effect chain outputs %d",
			ErrUnsupportedFormat, got.Channels, outChannels)
	}

	if err := m.setEffectChain(cfg.EffectChain); err != nil {
		closeDevice()
		log.WithError(err).Warn("master effect chain rejected")
		return nil, err
	}
	m.channelVolume = ones(m.outputChannels)
	if m.inputChannels != m.outputChannels {
		m.effectCache = make([]float32, updateSize*m.inputChannels)
	}

	m.channelMask = defaultChannelMask(got.Channels)
	if details.ChannelMask != 0 && details.Channels == got.Channels {
		m.channelMask = details.ChannelMask
	}

	e.master.Store(m)
	e.AddRef()
	log.WithFields(logrus.Fields{
		"channels":    m.inputChannels,
		"rate":        m.inputSampleRate,
		"update_size": updateSize,
	}).Debug("master voice created")
	return m, nil
}
