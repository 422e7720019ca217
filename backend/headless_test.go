// SPDX-License-Identifier: EPL-2.0

package backend

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ik5/audmix/audio"
	"github.com/ik5/audmix/engine"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// nopSink counts render calls and device errors.
type nopSink struct {
	renders int
	errs    []error
}

func (s *nopSink) RenderCallback(out []float32) {
	s.renders++
	for i := range out {
		out[i] = float32(s.renders)
	}
}

func (s *nopSink) DeviceError(err error) { s.errs = append(s.errs, err) }

func quietLogger() *logrus.Entry {
	logger, _ := test.NewNullLogger()
	return logrus.NewEntry(logger)
}

func TestHeadless_DeviceDetails(t *testing.T) {
	t.Parallel()

	h := NewHeadless(WithFormat(6, 44100), WithChannelMask(0x3F), WithLogger(quietLogger()))
	assert.Equal(t, 1, h.DeviceCount())

	d, err := h.DeviceDetails(0)
	require.NoError(t, err)
	assert.Equal(t, 6, d.Channels)
	assert.Equal(t, 44100, d.SampleRate)
	assert.Equal(t, uint32(0x3F), d.ChannelMask)
	assert.NotEmpty(t, d.DisplayName)

	_, err = h.DeviceDetails(1)
	assert.ErrorIs(t, err, ErrNoDevice)
}

func TestHeadless_Open(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		index     int
		want      engine.DeviceFormat
		opts      []Option
		wantSize  int
		wantError error
	}{
		{"default quantum", 0, engine.DeviceFormat{Channels: 2, SampleRate: 44100}, nil, 441, nil},
		{"fixed quantum", 0, engine.DeviceFormat{Channels: 1, SampleRate: 8000}, []Option{WithUpdateSize(64)}, 64, nil},
		{"tiny rate", 0, engine.DeviceFormat{Channels: 1, SampleRate: 50}, nil, 1, nil},
		{"bad index", 2, engine.DeviceFormat{Channels: 2, SampleRate: 48000}, nil, 0, ErrNoDevice},
		{"no channels", 0, engine.DeviceFormat{SampleRate: 48000}, nil, 0, ErrInvalidFormat},
		{"no rate", 0, engine.DeviceFormat{Channels: 2}, nil, 0, ErrInvalidFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := NewHeadless(append(tt.opts, WithLogger(quietLogger()))...)
			got, size, err := h.Open(tt.index, tt.want, &nopSink{})
			if tt.wantError != nil {
				require.ErrorIs(t, err, tt.wantError)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantSize, size)

			format, frames, err := h.Format()
			require.NoError(t, err)
			assert.Equal(t, tt.want, format)
			assert.Equal(t, tt.wantSize, frames)
		})
	}
}

func TestHeadless_Lifecycle(t *testing.T) {
	t.Parallel()

	h := NewHeadless(WithUpdateSize(4), WithLogger(quietLogger()))
	sink := &nopSink{}

	_, err := h.Pump()
	require.ErrorIs(t, err, ErrNotOpen)

	_, _, err = h.Open(0, engine.DeviceFormat{Channels: 2, SampleRate: 8000}, sink)
	require.NoError(t, err)

	_, _, err = h.Open(0, engine.DeviceFormat{Channels: 2, SampleRate: 8000}, sink)
	require.ErrorIs(t, err, ErrAlreadyOpen)

	out, err := h.Pump()
	require.NoError(t, err)
	assert.Len(t, out, 8)
	assert.Equal(t, float32(1), out[7])
	assert.Equal(t, uint64(1), h.Passes())

	require.NoError(t, h.Close())
	require.ErrorIs(t, h.Close(), ErrNotOpen)
	_, err = h.RenderFrames(4)
	require.ErrorIs(t, err, ErrNotOpen)
	require.ErrorIs(t, h.Fail(errors.New("gone")), ErrNotOpen)
	assert.Equal(t, 1, sink.renders)
}

func TestHeadless_RenderFrames(t *testing.T) {
	t.Parallel()

	h := NewHeadless(WithUpdateSize(4), WithLogger(quietLogger()))
	sink := &nopSink{}
	_, _, err := h.Open(0, engine.DeviceFormat{Channels: 1, SampleRate: 8000}, sink)
	require.NoError(t, err)

	out, err := h.RenderFrames(10)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 1, 1, 1, 2, 2, 2, 2, 3, 3}, out)
	assert.Equal(t, 3, sink.renders)

	out, err = h.RenderFrames(0)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestHeadless_Run(t *testing.T) {
	t.Parallel()

	h := NewHeadless(WithUpdateSize(80), WithLogger(quietLogger()))
	_, _, err := h.Open(0, engine.DeviceFormat{Channels: 1, SampleRate: 8000}, &nopSink{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()

	err = h.Run(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Positive(t, h.Passes())
}

// newEngine builds an engine on a mono 8 kHz headless device with four
// frame passes.
func newEngine(t *testing.T) (*engine.Engine, *Headless) {
	t.Helper()

	h := NewHeadless(WithFormat(1, 8000), WithUpdateSize(4), WithLogger(quietLogger()))
	e, err := engine.New(engine.Config{
		Backend: h,
		Logger:  quietLogger(),
		Kernels: audio.ScalarKernels(),
	})
	require.NoError(t, err)
	return e, h
}

func TestHeadless_DrivesEngine(t *testing.T) {
	t.Parallel()

	e, h := newEngine(t)
	_, err := e.CreateMasterVoice(engine.MasterVoiceConfig{})
	require.NoError(t, err)

	frames, rate := e.ProcessingQuantum()
	assert.Equal(t, 4, frames)
	assert.Equal(t, 8000, rate)

	src, err := e.CreateSourceVoice(engine.SourceVoiceConfig{Format: engine.FloatFormat(1, 8000)})
	require.NoError(t, err)
	require.NoError(t, src.SubmitSourceBuffer(engine.Buffer{
		AudioData: audio.Float32Bytes([]float32{0.5, 0.25, -0.5, -0.25, 0.125, 1}),
		Flags:     engine.EndOfStream,
	}))
	require.NoError(t, src.Start(engine.CommitNow))

	out, err := h.RenderFrames(8)
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0.25, -0.5, -0.25, 0.125, 1, 0, 0}, out)
	assert.Equal(t, uint64(2), h.Passes())
}

func TestHeadless_FailReachesEngineCallbacks(t *testing.T) {
	t.Parallel()

	e, h := newEngine(t)
	_, err := e.CreateMasterVoice(engine.MasterVoiceConfig{})
	require.NoError(t, err)

	var got error
	require.NoError(t, e.RegisterForCallbacks(&engine.EngineCallbackFuncs{
		CriticalError: func(err error) { got = err },
	}))

	boom := errors.New("unplugged")
	require.NoError(t, h.Fail(boom))
	require.ErrorIs(t, got, engine.ErrDeviceInvalidated)
	require.ErrorIs(t, got, boom)
}

func TestHeadless_MasterDestroyClosesDevice(t *testing.T) {
	t.Parallel()

	e, h := newEngine(t)
	m, err := e.CreateMasterVoice(engine.MasterVoiceConfig{})
	require.NoError(t, err)

	_, err = h.Pump()
	require.NoError(t, err)

	require.NoError(t, m.Destroy())
	_, err = h.Pump()
	require.ErrorIs(t, err, ErrNotOpen)
}
