// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"bytes"
	"errors"
	"io"
	"testing"

	goaudio "github.com/go-audio/audio"
	gowav "github.com/go-audio/wav"
	"github.com/ik5/audmix/audio"
	"github.com/ik5/audmix/internal/audiotest"
)

// encode builds a WAV file with the go-audio encoder.
func encode(t *testing.T, depth, tag, channels int, data []int) []byte {
	t.Helper()

	var w audiotest.WriteSeekBuffer
	enc := gowav.NewEncoder(&w, 8000, depth, channels, tag)
	buf := &goaudio.IntBuffer{
		Format: &goaudio.Format{NumChannels: channels, SampleRate: 8000},
		Data:   data,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
	return w.Bytes()
}

func decodeAll(t *testing.T, r io.Reader) (audio.Source, []float32) {
	t.Helper()

	src, err := Decoder{}.Decode(r)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	samples, err := audio.ReadAll(src)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	return src, samples
}

func TestDecoder_BitDepths(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		depth int
		in    []int
		want  []float32
	}{
		{"8-bit unsigned", 8, []int{128, 0, 192, 64}, []float32{0, -1, 0.5, -0.5}},
		{"16-bit", 16, []int{0, -32768, 16384, -16384}, []float32{0, -1, 0.5, -0.5}},
		{"24-bit", 24, []int{0, -8388608, 4194304, -4194304}, []float32{0, -1, 0.5, -0.5}},
		{"32-bit", 32, []int{0, -2147483648, 1073741824, -1073741824}, []float32{0, -1, 0.5, -0.5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			src, got := decodeAll(t, bytes.NewReader(encode(t, tt.depth, formatPCM, 2, tt.in)))
			if src.SampleRate() != 8000 || src.Channels() != 2 {
				t.Fatalf("shape = %d Hz x %d", src.SampleRate(), src.Channels())
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d samples, want %d", len(got), len(tt.want))
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("sample %d = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestDecoder_NonSeekableReader(t *testing.T) {
	t.Parallel()

	data := encode(t, 16, formatPCM, 1, []int{16384, -16384})
	r := struct{ io.Reader }{bytes.NewReader(data)}

	_, got := decodeAll(t, r)
	if len(got) != 2 || got[0] != 0.5 || got[1] != -0.5 {
		t.Errorf("got %v", got)
	}
}

func TestDecoder_Rejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty", nil, ErrNotWavFile},
		{"garbage", []byte("this is not a riff file at all, not even close"), ErrNotWavFile},
		{"float payload", nil, ErrUnsupportedWavLayout},
	}
	tests[2].data = encode(t, 32, 3, 1, []int{0, 1})

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if _, err := (Decoder{}).Decode(bytes.NewReader(tt.data)); !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func BenchmarkDecoder_ReadSamples(b *testing.B) {
	var w audiotest.WriteSeekBuffer
	if err := WriteWAV16(&w, 48000, 2, audiotest.ConstantPCM16(48000, 2, 1000)); err != nil {
		b.Fatal(err)
	}
	data := w.Bytes()
	buf := make([]float32, 4096)

	b.ReportAllocs()
	for b.Loop() {
		src, err := Decoder{}.Decode(bytes.NewReader(data))
		if err != nil {
			b.Fatal(err)
		}
		for {
			if _, err := src.ReadSamples(buf); err != nil {
				break
			}
		}
	}
}
