// SPDX-License-Identifier: EPL-2.0

package backend

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ik5/audmix/engine"
	"github.com/sirupsen/logrus"
)

const (
	DefaultChannels   = 2
	DefaultSampleRate = 48000

	// passesPerSecond sets the default update quantum to 10 ms.
	passesPerSecond = 100
)

// Headless is a single virtual output device that renders on demand.
type Headless struct {
	details    engine.DeviceDetails
	updateSize int
	log        *logrus.Entry

	mu     sync.Mutex
	sink   engine.DeviceSink
	format engine.DeviceFormat
	frames int
	out    []float32
	passes uint64
}

// Option configures a Headless device.
type Option func(*Headless)

// WithFormat sets the preferred channel count and sample rate reported by
// DeviceDetails.
func WithFormat(channels, sampleRate int) Option {
	return func(h *Headless) {
		h.details.Channels = channels
		h.details.SampleRate = sampleRate
	}
}

// WithUpdateSize fixes the frames per pass. Zero means a hundredth of the
// opened sample rate.
func WithUpdateSize(frames int) Option {
	return func(h *Headless) { h.updateSize = frames }
}

// WithChannelMask sets the speaker mask reported by DeviceDetails.
func WithChannelMask(mask uint32) Option {
	return func(h *Headless) { h.details.ChannelMask = mask }
}

func WithLogger(log *logrus.Entry) Option {
	return func(h *Headless) { h.log = log }
}

func NewHeadless(opts ...Option) *Headless {
	h := &Headless{
		details: engine.DeviceDetails{
			ID:          "headless",
			DisplayName: "Headless output",
			Channels:    DefaultChannels,
			SampleRate:  DefaultSampleRate,
		},
		log: logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Headless) DeviceCount() int { return 1 }

func (h *Headless) DeviceDetails(index int) (engine.DeviceDetails, error) {
	if index != 0 {
		return engine.DeviceDetails{}, fmt.Errorf("%w: index %d", ErrNoDevice, index)
	}
	return h.details, nil
}

// Open accepts any valid format as is.
func (h *Headless) Open(index int, want engine.DeviceFormat, sink engine.DeviceSink) (engine.DeviceFormat, int, error) {
	if index != 0 {
		return engine.DeviceFormat{}, 0, fmt.Errorf("%w: index %d", ErrNoDevice, index)
	}
	if want.Channels < 1 || want.SampleRate < 1 {
		return engine.DeviceFormat{}, 0, fmt.Errorf("%w: %d channels at %d Hz",
			ErrInvalidFormat, want.Channels, want.SampleRate)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.sink != nil {
		return engine.DeviceFormat{}, 0, ErrAlreadyOpen
	}

	frames := h.updateSize
	if frames <= 0 {
		frames = max(1, want.SampleRate/passesPerSecond)
	}

	h.sink = sink
	h.format = want
	h.frames = frames
	h.out = make([]float32, frames*want.Channels)
	h.passes = 0

	h.log.WithFields(logrus.Fields{
		"function":    "Open",
		"channels":    want.Channels,
		"sample_rate": want.SampleRate,
		"update_size": frames,
	}).Debug("Headless device opened")
	return want, frames, nil
}

// Close detaches the sink. A pass in progress finishes first.
func (h *Headless) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.sink == nil {
		return ErrNotOpen
	}
	h.sink = nil

	h.log.WithFields(logrus.Fields{
		"function": "Close",
		"passes":   h.passes,
	}).Debug("Headless device closed")
	return nil
}

// Format returns the open format and frames per pass.
func (h *Headless) Format() (engine.DeviceFormat, int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.sink == nil {
		return engine.DeviceFormat{}, 0, ErrNotOpen
	}
	return h.format, h.frames, nil
}

// Passes counts the render passes since Open.
func (h *Headless) Passes() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.passes
}

// Pump renders one pass. The returned slice is reused by the next pass.
func (h *Headless) Pump() ([]float32, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pumpLocked()
}

func (h *Headless) pumpLocked() ([]float32, error) {
	if h.sink == nil {
		return nil, ErrNotOpen
	}
	h.sink.RenderCallback(h.out)
	h.passes++
	return h.out, nil
}

// RenderFrames renders whole passes until at least frames frames exist and
// returns exactly frames frames of interleaved samples.
func (h *Headless) RenderFrames(frames int) ([]float32, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.sink == nil {
		return nil, ErrNotOpen
	}

	want := frames * h.format.Channels
	out := make([]float32, 0, want+len(h.out))
	for len(out) < want {
		buf, err := h.pumpLocked()
		if err != nil {
			return nil, err
		}
		out = append(out, buf...)
	}
	return out[:want], nil
}

// Run pumps one pass per update quantum of wall-clock time until ctx is
// done or the device closes. The context error is returned on
// cancellation.
func (h *Headless) Run(ctx context.Context) error {
	h.mu.Lock()
	if h.sink == nil {
		h.mu.Unlock()
		return ErrNotOpen
	}
	period := time.Duration(h.frames) * time.Second / time.Duration(h.format.SampleRate)
	h.mu.Unlock()

	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := h.Pump(); err != nil {
				return err
			}
		}
	}
}

// Fail reports err to the sink as a device failure, the way a real device
// reports being unplugged.
func (h *Headless) Fail(err error) error {
	h.mu.Lock()
	sink := h.sink
	h.mu.Unlock()
	if sink == nil {
		return ErrNotOpen
	}
	sink.DeviceError(err)
	return nil
}
