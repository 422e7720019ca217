// SPDX-License-Identifier: EPL-2.0

// Package otoplayer plays an engine's output on the default sound device
// through github.com/ebitengine/oto/v3.
//
// oto pulls audio: its player reads from an io.Reader whenever the device
// wants more data. The reader here renders one engine pass per refill and
// serializes it as little-endian float32. oto supports mono and stereo
// only, so a master voice asking for more channels is granted stereo.
//
// oto allows one context per process. The first Open fixes the format;
// later opens must ask for the same one.
package otoplayer

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/ik5/audmix/engine"
	"github.com/sirupsen/logrus"
)

const (
	DefaultSampleRate = 48000
	// DefaultBufferSize is the device buffer requested from oto.
	DefaultBufferSize = 40 * time.Millisecond

	errorPoll = 100 * time.Millisecond
)

var (
	ErrNoDevice       = errors.New("oto exposes only the default device")
	ErrAlreadyOpen    = errors.New("device is already open")
	ErrNotOpen        = errors.New("device is not open")
	ErrFormatMismatch = errors.New("oto context already runs another format")
)

var (
	sharedMu     sync.Mutex
	sharedCtx    *oto.Context
	sharedFormat engine.DeviceFormat
)

// Player is an engine.Backend on the default oto output.
type Player struct {
	sampleRate int
	bufferSize time.Duration
	log        *logrus.Entry

	mu     sync.Mutex
	player *oto.Player
	stream *stream
	done   chan struct{}
	wg     sync.WaitGroup
}

// New returns a Player that prefers sampleRate, or DefaultSampleRate when
// it is zero.
func New(sampleRate int, log *logrus.Entry) *Player {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Player{sampleRate: sampleRate, bufferSize: DefaultBufferSize, log: log}
}

func (p *Player) DeviceCount() int { return 1 }

func (p *Player) DeviceDetails(index int) (engine.DeviceDetails, error) {
	if index != 0 {
		return engine.DeviceDetails{}, fmt.Errorf("%w: index %d", ErrNoDevice, index)
	}
	return engine.DeviceDetails{
		ID:          "oto-default",
		DisplayName: "Default output",
		Channels:    2,
		SampleRate:  p.sampleRate,
		ChannelMask: engine.SpeakerFrontLeft | engine.SpeakerFrontRight,
	}, nil
}

// negotiate maps a requested format onto what oto can play.
func negotiate(want engine.DeviceFormat) engine.DeviceFormat {
	got := want
	got.Channels = min(max(want.Channels, 1), 2)
	return got
}

func (p *Player) Open(index int, want engine.DeviceFormat, sink engine.DeviceSink) (engine.DeviceFormat, int, error) {
	if index != 0 {
		return engine.DeviceFormat{}, 0, fmt.Errorf("%w: index %d", ErrNoDevice, index)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.player != nil {
		return engine.DeviceFormat{}, 0, ErrAlreadyOpen
	}

	got := negotiate(want)
	ctx, err := sharedContext(got, p.bufferSize)
	if err != nil {
		return engine.DeviceFormat{}, 0, err
	}

	updateSize := max(1, got.SampleRate/100)
	p.stream = newStream(sink, got.Channels, updateSize)
	p.player = ctx.NewPlayer(p.stream)
	p.player.Play()

	p.done = make(chan struct{})
	p.wg.Add(1)
	go p.watch(p.player, sink, p.done)

	p.log.WithFields(logrus.Fields{
		"function":    "Open",
		"channels":    got.Channels,
		"sample_rate": got.SampleRate,
		"update_size": updateSize,
	}).Info("Audio device opened")
	return got, updateSize, nil
}

// sharedContext returns the process-wide oto context, creating it on first use.
func sharedContext(format engine.DeviceFormat, bufferSize time.Duration) (*oto.Context, error) {
	sharedMu.Lock()
	defer sharedMu.Unlock()

	if sharedCtx != nil {
		if sharedFormat != format {
			return nil, fmt.Errorf("%w: have %d ch at %d Hz", ErrFormatMismatch,
				sharedFormat.Channels, sharedFormat.SampleRate)
		}
		if err := sharedCtx.Resume(); err != nil {
			return nil, fmt.Errorf("resuming audio context: %w", err)
		}
		return sharedCtx, nil
	}

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   format.SampleRate,
		ChannelCount: format.Channels,
		Format:       oto.FormatFloat32LE,
		BufferSize:   bufferSize,
	})
	if err != nil {
		return nil, fmt.Errorf("opening audio context: %w", err)
	}
	<-ready

	sharedCtx, sharedFormat = ctx, format
	return ctx, nil
}

// watch forwards player errors to the sink until done closes.
func (p *Player) watch(player *oto.Player, sink engine.DeviceSink, done <-chan struct{}) {
	defer p.wg.Done()

	ticker := time.NewTicker(errorPoll)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := player.Err(); err != nil {
				sink.DeviceError(err)
				return
			}
		}
	}
}

// Close pauses playback and detaches the engine. No render pass runs once
// it returns.
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.player == nil {
		return ErrNotOpen
	}

	p.player.Pause()
	p.stream.detach()
	close(p.done)
	p.wg.Wait()
	p.player = nil
	p.stream = nil

	sharedMu.Lock()
	if sharedCtx != nil {
		if err := sharedCtx.Suspend(); err != nil {
			p.log.WithField("function", "Close").WithError(err).Warn("Suspending audio context")
		}
	}
	sharedMu.Unlock()

	p.log.WithField("function", "Close").Info("Audio device closed")
	return nil
}
