// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/ik5/audmix/audio"
	"github.com/ik5/audmix/internal/audiotest"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

var errNoDevice = errors.New("no such device")

// fakeBackend renders only when the test asks it to.
type fakeBackend struct {
	details    DeviceDetails
	updateSize int
	// channels overrides the channel count Open grants when non-zero.
	channels int
	openErr  error

	mu     sync.Mutex
	sink   DeviceSink
	format DeviceFormat
	opened int
	closed int
}

func (b *fakeBackend) DeviceCount() int { return 1 }

func (b *fakeBackend) DeviceDetails(index int) (DeviceDetails, error) {
	if index != 0 {
		return DeviceDetails{}, errNoDevice
	}
	return b.details, nil
}

func (b *fakeBackend) Open(_ int, want DeviceFormat, sink DeviceSink) (DeviceFormat, int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.openErr != nil {
		return DeviceFormat{}, 0, b.openErr
	}
	got := want
	if b.channels != 0 {
		got.Channels = b.channels
	}
	b.sink = sink
	b.format = got
	b.opened++
	return got, b.updateSize, nil
}

func (b *fakeBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sink = nil
	b.closed++
	return nil
}

// render runs one pass and returns what the device received.
func (b *fakeBackend) render(t *testing.T) []float32 {
	t.Helper()
	b.mu.Lock()
	sink, format := b.sink, b.format
	b.mu.Unlock()
	require.NotNil(t, sink, "device is not open")

	out := make([]float32, b.updateSize*format.Channels)
	for i := range out {
		out[i] = 99
	}
	sink.RenderCallback(out)
	return out
}

func newTestLogger() (*logrus.Entry, *test.Hook) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return logrus.NewEntry(logger), hook
}

type testRig struct {
	engine  *Engine
	backend *fakeBackend
	master  *MasterVoice
	hook    *test.Hook
}

// newRig builds an engine with a master of channels at rate rendering
// updateSize frames per pass.
func newRig(t *testing.T, channels, rate, updateSize int) *testRig {
	t.Helper()

	logger, hook := newTestLogger()
	b := &fakeBackend{
		details: DeviceDetails{
			ID:          "fake",
			DisplayName: "Fake Device",
			Channels:    channels,
			SampleRate:  rate,
		},
		updateSize: updateSize,
	}
	e, err := New(Config{
		Backend: b,
		Logger:  logger,
		Kernels: audio.ScalarKernels(),
	})
	require.NoError(t, err)

	m, err := e.CreateMasterVoice(MasterVoiceConfig{})
	require.NoError(t, err)

	return &testRig{engine: e, backend: b, master: m, hook: hook}
}

func (r *testRig) render(t *testing.T) []float32 {
	t.Helper()
	return r.backend.render(t)
}

// floatSource creates a float32 source at rate sending to the master.
func (r *testRig) floatSource(t *testing.T, channels, rate int, cb VoiceCallback) *SourceVoice {
	t.Helper()
	s, err := r.engine.CreateSourceVoice(SourceVoiceConfig{
		Format:   FloatFormat(channels, rate),
		Callback: cb,
	})
	require.NoError(t, err)
	return s
}

func floatBuffer(samples ...float32) Buffer {
	return Buffer{AudioData: audiotest.Float32Bytes(samples)}
}

func ramp(from, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(from + i)
	}
	return out
}

// recorder logs voice callbacks as strings.
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(format string, args ...any) {
	r.mu.Lock()
	r.events = append(r.events, fmt.Sprintf(format, args...))
	r.mu.Unlock()
}

// take returns the events since the last call.
func (r *recorder) take() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ev := r.events
	r.events = nil
	return ev
}

func (r *recorder) callback() *VoiceCallbackFuncs {
	return &VoiceCallbackFuncs{
		ProcessingPassStart: func(n int) { r.add("pass-start %d", n) },
		ProcessingPassEnd:   func() { r.add("pass-end") },
		StreamEnd:           func() { r.add("stream-end") },
		BufferStart:         func(ctx any) { r.add("buffer-start %v", ctx) },
		BufferEnd:           func(ctx any) { r.add("buffer-end %v", ctx) },
		LoopEnd:             func(ctx any) { r.add("loop-end %v", ctx) },
		VoiceError:          func(ctx any, err error) { r.add("error %v", ctx) },
	}
}

// gainEffect scales its input. It runs in place unless outOfPlace is set.
type gainEffect struct {
	mu         sync.Mutex
	gain       float32
	outOfPlace bool
	lockErr    error

	refs      int
	locked    int
	in, out   EffectFormat
	params    []byte
	processed int
}

func (g *gainEffect) Properties() EffectProperties {
	p := EffectProperties{Name: "gain"}
	if !g.outOfPlace {
		p.Flags = EffectInPlaceSupported
	}
	return p
}

func (g *gainEffect) LockForProcess(in, out EffectFormat) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.lockErr != nil {
		return g.lockErr
	}
	g.locked++
	g.in, g.out = in, out
	return nil
}

func (g *gainEffect) UnlockForProcess() {
	g.mu.Lock()
	g.locked--
	g.mu.Unlock()
}

func (g *gainEffect) SetParameters(params []byte) {
	g.mu.Lock()
	g.params = append([]byte(nil), params...)
	g.mu.Unlock()
}

func (g *gainEffect) GetParameters(params []byte) {
	g.mu.Lock()
	copy(params, g.params)
	g.mu.Unlock()
}

func (g *gainEffect) Process(in, out *ProcessBuffer, enabled bool) {
	g.mu.Lock()
	g.processed++
	gain := g.gain
	g.mu.Unlock()
	if !enabled {
		gain = 1
	}

	ic, oc := g.in.Channels, g.out.Channels
	frames := in.ValidFrameCount
	for f := 0; f < frames; f++ {
		for c := 0; c < oc; c++ {
			out.Samples[f*oc+c] = in.Samples[f*ic+min(c, ic-1)] * gain
		}
	}
	out.Flags = in.Flags
	out.ValidFrameCount = frames
}

func (g *gainEffect) AddRef() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.refs++
	return g.refs
}

func (g *gainEffect) Release() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.refs--
	return g.refs
}

func (g *gainEffect) state() (refs, locked, processed int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.refs, g.locked, g.processed
}

// ringEffect keeps sounding for tail passes after its input goes silent.
type ringEffect struct {
	gainEffect
	tail      int
	remaining int
}

func (r *ringEffect) Properties() EffectProperties {
	return EffectProperties{Name: "ring"}
}

func (r *ringEffect) Process(in, out *ProcessBuffer, enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.processed++

	n := in.ValidFrameCount * r.out.Channels
	switch {
	case in.Flags == BufferValid:
		r.remaining = r.tail
		copy(out.Samples[:n], in.Samples[:n])
		out.Flags = BufferValid
	case r.remaining > 0:
		r.remaining--
		for i := range out.Samples[:n] {
			out.Samples[i] = 0.125
		}
		out.Flags = BufferValid
	default:
		clear(out.Samples[:n])
		out.Flags = BufferSilent
	}
	out.ValidFrameCount = in.ValidFrameCount
}
