// SPDX-License-Identifier: EPL-2.0

package effects

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/ik5/audmix/audio"
	"github.com/ik5/audmix/engine"
	"github.com/sirupsen/logrus"
)

// base carries the bookkeeping every effect shares: reference count, lock
// count and the formats of the last LockForProcess.
type base struct {
	name  string
	flags engine.EffectFlags

	refs atomic.Int32

	log *logrus.Entry

	mu      sync.Mutex
	locks   int
	in, out engine.EffectFormat
}

// Option configures an effect at construction.
type Option func(*base)

// WithLogger routes the effect's log events to log. Effects otherwise log
// through the logrus standard logger.
func WithLogger(log *logrus.Entry) Option {
	return func(b *base) {
		if log != nil {
			b.log = log
		}
	}
}

func (b *base) configure(opts []Option) {
	b.log = logrus.NewEntry(logrus.StandardLogger())
	for _, opt := range opts {
		opt(b)
	}
}

func (b *base) Properties() engine.EffectProperties {
	return engine.EffectProperties{Name: b.name, Flags: b.flags}
}

func (b *base) AddRef() int  { return int(b.refs.Add(1)) }
func (b *base) Release() int { return int(b.refs.Add(-1)) }

// lockFormats validates and records a format pair. sameChannels rejects a
// pair that changes the channel count.
func (b *base) lockFormats(in, out engine.EffectFormat, sameChannels bool) error {
	var err error
	switch {
	case in.Channels < 1 || out.Channels < 1 || in.SampleRate <= 0 || in.MaxFrameCount < 0:
		err = fmt.Errorf("%w: %d->%d channels at %d Hz", ErrInvalidFormat, in.Channels, out.Channels, in.SampleRate)
	case in.SampleRate != out.SampleRate:
		err = fmt.Errorf("%w: rate %d->%d", ErrInvalidFormat, in.SampleRate, out.SampleRate)
	case sameChannels && in.Channels != out.Channels:
		err = fmt.Errorf("%w: %d->%d", ErrChannelMismatch, in.Channels, out.Channels)
	}
	if err != nil {
		b.log.WithFields(logrus.Fields{
			"function": "LockForProcess",
			"effect":   b.name,
		}).WithError(err).Warn("Effect format rejected")
		return err
	}

	b.mu.Lock()
	b.locks++
	b.in, b.out = in, out
	b.mu.Unlock()

	b.log.WithFields(logrus.Fields{
		"function":     "LockForProcess",
		"effect":       b.name,
		"in_channels":  in.Channels,
		"out_channels": out.Channels,
		"sample_rate":  in.SampleRate,
	}).Debug("Effect locked for processing")
	return nil
}

func (b *base) UnlockForProcess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.locks > 0 {
		b.locks--
	}
}

// Locked reports whether the effect is locked for at least one chain.
func (b *base) Locked() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.locks > 0
}

func (b *base) formats() (in, out engine.EffectFormat) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.in, b.out
}

// passThrough copies in to out unless they share storage.
func passThrough(in, out *engine.ProcessBuffer, channels int) {
	n := in.ValidFrameCount * channels
	if len(out.Samples) > 0 && len(in.Samples) > 0 && &out.Samples[0] != &in.Samples[0] {
		copy(out.Samples[:n], in.Samples[:n])
	}
	out.Flags = in.Flags
	out.ValidFrameCount = in.ValidFrameCount
}

// atomicFloat32 stores a float32 for lock-free reads on the render thread.
type atomicFloat32 struct{ bits atomic.Uint32 }

func (a *atomicFloat32) Load() float32   { return math.Float32frombits(a.bits.Load()) }
func (a *atomicFloat32) Store(v float32) { a.bits.Store(math.Float32bits(v)) }

// readFloats decodes up to len(dst) little-endian floats from params and
// reports how many were present.
func readFloats(params []byte, dst []float32) int {
	n := min(len(params)/4, len(dst))
	audio.ConvertF32ToF32(params, dst[:n])
	return n
}
