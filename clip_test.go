// SPDX-License-Identifier: EPL-2.0

package audmix

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/ik5/audmix/audio"
	"github.com/ik5/audmix/backend"
	"github.com/ik5/audmix/engine"
	"github.com/ik5/audmix/formats/wav"
	"github.com/ik5/audmix/internal/audiotest"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func writeWAV(t *testing.T, dir, name string, rate, channels int, samples []int16) string {
	t.Helper()

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	if err := wav.WriteWAV16(f, rate, channels, samples); err != nil {
		t.Fatalf("WriteWAV16() error = %v", err)
	}
	return path
}

func TestFormatOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		want string
	}{
		{"drums.wav", "wav"},
		{"/tmp/Voice.AIFF", "aiff"},
		{"a.b.ogg", "ogg"},
		{"noext", ""},
	}

	for _, tt := range tests {
		if got := FormatOf(tt.path); got != tt.want {
			t.Errorf("FormatOf(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestDefaultRegistry_Formats(t *testing.T) {
	t.Parallel()

	got := DefaultRegistry().Formats()
	want := []string{"aif", "aiff", "mp3", "oga", "ogg", "wav", "wave"}
	if !slices.Equal(got, want) {
		t.Errorf("Formats() = %v, want %v", got, want)
	}
}

func TestReadClip(t *testing.T) {
	t.Parallel()

	clip, err := ReadClip(audiotest.NewConstantSource(8000, 2, 100, 0.5))
	if err != nil {
		t.Fatalf("ReadClip() error = %v", err)
	}

	if clip.Frames() != 100 || len(clip.Samples) != 200 {
		t.Errorf("clip has %d frames, %d samples, want 100, 200", clip.Frames(), len(clip.Samples))
	}
	if d := clip.Duration(); d != 12500*time.Microsecond {
		t.Errorf("Duration() = %v, want 12.5ms", d)
	}

	f := clip.Format()
	if f.Tag != engine.FormatIEEEFloat || f.Channels != 2 || f.SampleRate != 8000 || f.BlockAlign != 8 {
		t.Errorf("Format() = %+v", f)
	}
}

func TestReadClip_InvalidSource(t *testing.T) {
	t.Parallel()

	_, err := ReadClip(audiotest.NewConstantSource(8000, 0, 10, 0))
	if !errors.Is(err, audio.ErrInvalidSourceShape) {
		t.Errorf("ReadClip() error = %v, want ErrInvalidSourceShape", err)
	}
}

func TestLoadFile(t *testing.T) {
	t.Parallel()

	path := writeWAV(t, t.TempDir(), "tone.wav", 16000, 1, []int16{0, 8192, 16384, -16384})

	clip, err := LoadFile(DefaultRegistry(), path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	if clip.Name != "tone.wav" || clip.SampleRate != 16000 || clip.Channels != 1 {
		t.Errorf("clip = %q %d Hz %d ch", clip.Name, clip.SampleRate, clip.Channels)
	}
	want := []float32{0, 0.25, 0.5, -0.5}
	if !slices.Equal(clip.Samples, want) {
		t.Errorf("Samples = %v, want %v", clip.Samples, want)
	}
}

func TestLoadFile_Errors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	unknown := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(unknown, []byte("hello"), 0o600); err != nil {
		t.Fatal(err)
	}
	garbage := filepath.Join(dir, "broken.wav")
	if err := os.WriteFile(garbage, []byte("not a riff file at all"), 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		path string
		want error
	}{
		{"missing", filepath.Join(dir, "missing.wav"), fs.ErrNotExist},
		{"unknown extension", unknown, audio.ErrUnknownFormat},
		{"not a wav", garbage, wav.ErrNotWavFile},
	}

	reg := DefaultRegistry()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := LoadFile(reg, tt.path)
			if !errors.Is(err, tt.want) {
				t.Errorf("LoadFile() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestLoadAll(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	var paths []string
	for i, name := range []string{"a.wav", "b.wav", "c.wav", "d.wav", "e.wav"} {
		paths = append(paths, writeWAV(t, dir, name, 8000, 1, audiotest.ConstantPCM16(10*(i+1), 1, 8192)))
	}

	clips, err := LoadAll(context.Background(), DefaultRegistry(), paths, 2)
	if err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}

	if len(clips) != len(paths) {
		t.Fatalf("LoadAll() returned %d clips, want %d", len(clips), len(paths))
	}
	for i, clip := range clips {
		if clip.Name != filepath.Base(paths[i]) || clip.Frames() != 10*(i+1) {
			t.Errorf("clips[%d] = %q with %d frames", i, clip.Name, clip.Frames())
		}
	}
}

func TestLoadAll_FirstErrorWins(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	paths := []string{
		writeWAV(t, dir, "ok.wav", 8000, 1, []int16{1, 2, 3}),
		filepath.Join(dir, "gone.wav"),
	}

	clips, err := LoadAll(context.Background(), DefaultRegistry(), paths, 0)
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("LoadAll() error = %v, want ErrNotExist", err)
	}
	if clips != nil {
		t.Errorf("LoadAll() clips = %v, want nil", clips)
	}
}

func TestLoadAll_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	path := writeWAV(t, t.TempDir(), "x.wav", 8000, 1, []int16{1})
	_, err := LoadAll(ctx, DefaultRegistry(), []string{path}, 1)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("LoadAll() error = %v, want context.Canceled", err)
	}
}

func TestClip_Submit(t *testing.T) {
	t.Parallel()

	logger, _ := test.NewNullLogger()
	log := logrus.NewEntry(logger)
	dev := backend.NewHeadless(backend.WithFormat(1, 1000), backend.WithUpdateSize(4), backend.WithLogger(log))
	eng, err := engine.New(engine.Config{Backend: dev, Logger: log, Kernels: audio.ScalarKernels()})
	if err != nil {
		t.Fatalf("engine.New() error = %v", err)
	}
	if _, err := eng.CreateMasterVoice(engine.MasterVoiceConfig{}); err != nil {
		t.Fatalf("CreateMasterVoice() error = %v", err)
	}

	clip := &Clip{Name: "ramp", SampleRate: 1000, Channels: 1, Samples: []float32{0.25, 0.5, -0.5, 0.125}}
	voice, err := eng.CreateSourceVoice(engine.SourceVoiceConfig{Format: clip.Format()})
	if err != nil {
		t.Fatalf("CreateSourceVoice() error = %v", err)
	}
	if err := clip.Submit(voice, 1); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if err := voice.Start(engine.CommitNow); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	out, err := dev.RenderFrames(12)
	if err != nil {
		t.Fatalf("RenderFrames() error = %v", err)
	}
	want := []float32{0.25, 0.5, -0.5, 0.125, 0.25, 0.5, -0.5, 0.125, 0, 0, 0, 0}
	if !slices.Equal(out, want) {
		t.Errorf("RenderFrames() = %v, want %v", out, want)
	}
}

func TestClip_SubmitEmpty(t *testing.T) {
	t.Parallel()

	clip := &Clip{SampleRate: 8000, Channels: 1}
	if err := clip.Submit(nil, 0); !errors.Is(err, ErrEmptyClip) {
		t.Errorf("Submit() error = %v, want ErrEmptyClip", err)
	}
}
