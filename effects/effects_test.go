// SPDX-License-Identifier: EPL-2.0

package effects

import (
	"math"
	"testing"
	"time"

	"github.com/ik5/audmix/audio"
	"github.com/ik5/audmix/engine"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func format(channels, rate int) engine.EffectFormat {
	return engine.EffectFormat{Channels: channels, SampleRate: rate, MaxFrameCount: 64}
}

// inPlace runs e over samples in place and returns the output flags.
func inPlace(e engine.Effect, samples []float32, channels int, enabled bool) engine.ProcessBufferFlags {
	in := engine.ProcessBuffer{Samples: samples, Flags: engine.BufferValid, ValidFrameCount: len(samples) / channels}
	if allZero(samples) {
		in.Flags = engine.BufferSilent
	}
	out := in
	e.Process(&in, &out, enabled)
	return out.Flags
}

func allZero(s []float32) bool {
	for _, v := range s {
		if v != 0 {
			return false
		}
	}
	return true
}

func TestNewGain(t *testing.T) {
	t.Parallel()

	tests := []struct {
		gain    float32
		wantErr bool
	}{
		{0, false},
		{1, false},
		{MaxGain, false},
		{-0.5, true},
		{MaxGain + 1, true},
		{float32(math.NaN()), true},
	}
	for _, tt := range tests {
		g, err := NewGain(tt.gain)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrInvalidGain, "gain %v", tt.gain)
			continue
		}
		require.NoError(t, err, "gain %v", tt.gain)
		assert.Equal(t, tt.gain, g.Gain())
	}
}

func TestGain_Process(t *testing.T) {
	t.Parallel()

	g, err := NewGain(2)
	require.NoError(t, err)
	require.NoError(t, g.LockForProcess(format(2, 48000), format(2, 48000)))
	assert.True(t, g.Locked())

	samples := []float32{0.5, -0.25, 0.125, 0}
	assert.Equal(t, engine.BufferValid, inPlace(g, samples, 2, true))
	assert.Equal(t, []float32{1, -0.5, 0.25, 0}, samples)

	inPlace(g, samples, 2, false)
	assert.Equal(t, []float32{1, -0.5, 0.25, 0}, samples, "disabled gain passes through")

	silent := make([]float32, 4)
	assert.Equal(t, engine.BufferSilent, inPlace(g, silent, 2, true))

	g.UnlockForProcess()
	assert.False(t, g.Locked())
}

func TestGain_Parameters(t *testing.T) {
	t.Parallel()

	g, err := NewGain(1)
	require.NoError(t, err)

	g.SetParameters(GainParams(0.5))
	assert.Equal(t, float32(0.5), g.Gain())

	g.SetParameters(GainParams(-1))
	g.SetParameters([]byte{1, 2})
	assert.Equal(t, float32(0.5), g.Gain(), "bad parameters are ignored")

	buf := make([]byte, 4)
	g.GetParameters(buf)
	assert.Equal(t, GainParams(0.5), buf)

	require.ErrorIs(t, g.SetGain(9), ErrInvalidGain)
	require.NoError(t, g.SetGain(3))
	assert.Equal(t, float32(3), g.Gain())
}

func TestLockForProcess_Rejects(t *testing.T) {
	t.Parallel()

	g, _ := NewGain(1)
	d, _ := NewDelay(time.Millisecond, 0, 1)

	tests := []struct {
		name    string
		effect  engine.Effect
		in, out engine.EffectFormat
		want    error
	}{
		{"gain changes channels", g, format(1, 8000), format(2, 8000), ErrChannelMismatch},
		{"meter changes channels", NewMeter(), format(2, 8000), format(1, 8000), ErrChannelMismatch},
		{"delay without rate", d, format(1, 0), format(1, 0), ErrInvalidFormat},
		{"rate change", NewChannelMap(nil), format(1, 8000), format(2, 16000), ErrInvalidFormat},
		{"no channels", NewChannelMap(nil), format(0, 8000), format(2, 8000), ErrInvalidFormat},
		{"matrix size", NewChannelMap([]float32{1, 1, 1}), format(1, 8000), format(2, 8000), ErrMatrixSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorIs(t, tt.effect.LockForProcess(tt.in, tt.out), tt.want)
		})
	}
}

func TestNewDelay_Validation(t *testing.T) {
	t.Parallel()

	_, err := NewDelay(0, 0.5, 1)
	require.ErrorIs(t, err, ErrInvalidDelay)
	_, err = NewDelay(MaxDelay+time.Millisecond, 0.5, 1)
	require.ErrorIs(t, err, ErrInvalidDelay)
	_, err = NewDelay(time.Millisecond, 1, 1)
	require.ErrorIs(t, err, ErrInvalidFeedback)
	_, err = NewDelay(time.Millisecond, 0.5, -1)
	require.ErrorIs(t, err, ErrInvalidGain)
}

func TestDelay_EchoesAndDecays(t *testing.T) {
	t.Parallel()

	// two frames of delay at 1 kHz
	d, err := NewDelay(2*time.Millisecond, 0.5, 1)
	require.NoError(t, err)
	require.NoError(t, d.LockForProcess(format(1, 1000), format(1, 1000)))

	buf := []float32{1, 0, 0, 0}
	require.Equal(t, engine.BufferValid, inPlace(d, buf, 1, true))
	assert.Equal(t, []float32{1, 0, 1, 0}, buf)

	buf = make([]float32, 4)
	require.Equal(t, engine.BufferValid, inPlace(d, buf, 1, true), "tail keeps the output valid")
	assert.Equal(t, []float32{0.5, 0, 0.25, 0}, buf)

	passes := 0
	for ; passes < 20; passes++ {
		clear(buf)
		if inPlace(d, buf, 1, true) == engine.BufferSilent {
			break
		}
	}
	assert.Less(t, passes, 20, "the echo never died out")
}

func TestDelay_Parameters(t *testing.T) {
	t.Parallel()

	d, err := NewDelay(time.Millisecond, 0.25, 0.5)
	require.NoError(t, err)

	buf := make([]byte, 8)
	d.GetParameters(buf)
	assert.Equal(t, DelayParams(0.25, 0.5), buf)

	d.SetParameters(DelayParams(0.75, 2))
	d.GetParameters(buf)
	assert.Equal(t, DelayParams(0.75, 2), buf)

	d.SetParameters(DelayParams(1.5, 1))
	d.GetParameters(buf)
	assert.Equal(t, DelayParams(0.75, 1), buf, "feedback >= 1 is ignored")
}

func TestDelay_DisabledPassesThrough(t *testing.T) {
	t.Parallel()

	d, err := NewDelay(time.Millisecond, 0.5, 1)
	require.NoError(t, err)
	require.NoError(t, d.LockForProcess(format(2, 2000), format(2, 2000)))

	in := engine.ProcessBuffer{Samples: []float32{1, 2, 3, 4}, Flags: engine.BufferValid, ValidFrameCount: 2}
	out := engine.ProcessBuffer{Samples: make([]float32, 4)}
	d.Process(&in, &out, false)
	assert.Equal(t, []float32{1, 2, 3, 4}, out.Samples)
	assert.Equal(t, engine.BufferValid, out.Flags)
	assert.Equal(t, 2, out.ValidFrameCount)
}

func TestChannelMap_Process(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		matrix  []float32
		in, out int
		src     []float32
		enabled bool
		want    []float32
	}{
		{"stereo to mono averages", nil, 2, 1, []float32{1, 3, 2, 4}, true, []float32{2, 3}},
		{"mono to stereo duplicates", nil, 1, 2, []float32{0.5, -1}, true, []float32{0.5, 0.5, -1, -1}},
		{"custom matrix", []float32{1, -1}, 1, 2, []float32{0.5}, true, []float32{0.5, -0.5}},
		{"disabled uses defaults", []float32{1, -1}, 1, 2, []float32{0.5}, false, []float32{0.5, 0.5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m := NewChannelMap(tt.matrix)
			require.NoError(t, m.LockForProcess(format(tt.in, 8000), format(tt.out, 8000)))

			frames := len(tt.src) / tt.in
			in := engine.ProcessBuffer{Samples: tt.src, Flags: engine.BufferValid, ValidFrameCount: frames}
			out := engine.ProcessBuffer{Samples: []float32{9, 9, 9, 9, 9, 9}}
			m.Process(&in, &out, tt.enabled)

			assert.Equal(t, tt.want, out.Samples[:frames*tt.out])
			assert.Equal(t, frames, out.ValidFrameCount)
			assert.Equal(t, engine.BufferValid, out.Flags)
		})
	}
}

func TestChannelMap_Parameters(t *testing.T) {
	t.Parallel()

	m := NewChannelMap(nil)
	require.NoError(t, m.LockForProcess(format(2, 8000), format(1, 8000)))
	assert.Equal(t, []float32{0.5, 0.5}, m.Matrix())

	m.SetParameters(audio.Float32Bytes([]float32{1, 0, 0}))
	assert.Equal(t, []float32{0.5, 0.5}, m.Matrix(), "wrong size is ignored")

	m.SetParameters(audio.Float32Bytes([]float32{1, 0}))
	assert.Equal(t, []float32{1, 0}, m.Matrix())

	buf := make([]byte, 8)
	m.GetParameters(buf)
	assert.Equal(t, audio.Float32Bytes([]float32{1, 0}), buf)
	assert.Equal(t, engine.EffectFlags(0), m.Properties().Flags, "channel map always runs out of place")
}

func TestMeter_Levels(t *testing.T) {
	t.Parallel()

	m := NewMeter()
	require.NoError(t, m.LockForProcess(format(2, 8000), format(2, 8000)))

	samples := []float32{0.5, -1, -0.5, 1}
	assert.Equal(t, engine.BufferValid, inPlace(m, samples, 2, true))
	assert.Equal(t, []float32{0.5, -1, -0.5, 1}, samples, "meter does not touch the signal")
	assert.Equal(t, []float32{0.5, 1}, m.Peaks())
	assert.Equal(t, []float32{0.5, 1}, m.RMS())

	buf := make([]byte, 8)
	m.GetParameters(buf)
	assert.Equal(t, audio.Float32Bytes([]float32{0.5, 1}), buf)

	inPlace(m, make([]float32, 4), 2, true)
	assert.Equal(t, []float32{0, 0}, m.Peaks())
}

func TestWithLogger_RoutesEffectLogs(t *testing.T) {
	t.Parallel()

	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	log := logrus.NewEntry(logger).WithField("component", "mixer")

	g, err := NewGain(1, WithLogger(log))
	require.NoError(t, err)
	require.Len(t, hook.AllEntries(), 1)
	assert.Equal(t, "Gain effect created", hook.LastEntry().Message)
	assert.Equal(t, "mixer", hook.LastEntry().Data["component"])

	require.Error(t, g.LockForProcess(format(1, 48000), format(2, 48000)))
	require.Len(t, hook.AllEntries(), 2)
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Equal(t, "gain", hook.LastEntry().Data["effect"])

	for _, e := range []engine.Effect{
		NewMeter(WithLogger(log)),
		NewChannelMap(nil, WithLogger(log)),
	} {
		hook.Reset()
		require.NoError(t, e.LockForProcess(format(2, 48000), format(2, 48000)))
		require.Len(t, hook.AllEntries(), 1, e.Properties().Name)
		assert.Equal(t, logrus.DebugLevel, hook.LastEntry().Level)
	}

	d, err := NewDelay(time.Millisecond, 0.5, 1, WithLogger(nil))
	require.NoError(t, err)
	assert.NotNil(t, d.log)
}
