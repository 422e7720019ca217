// SPDX-License-Identifier: EPL-2.0

package aiff

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"

	"github.com/ik5/audmix/audio"
)

// sampleRate8000 is 8000 as an 80-bit IEEE extended float.
var sampleRate8000 = [10]byte{0x40, 0x0B, 0xFA}

// buildAIFF assembles a FORM/AIFF file with a COMM and an SSND chunk.
// payload holds big-endian samples of the given width.
func buildAIFF(channels, depth int, payload []byte) []byte {
	frames := len(payload) / (channels * depth / 8)

	var comm bytes.Buffer
	binary.Write(&comm, binary.BigEndian, int16(channels))
	binary.Write(&comm, binary.BigEndian, uint32(frames))
	binary.Write(&comm, binary.BigEndian, int16(depth))
	comm.Write(sampleRate8000[:])

	var ssnd bytes.Buffer
	binary.Write(&ssnd, binary.BigEndian, uint32(0)) // offset
	binary.Write(&ssnd, binary.BigEndian, uint32(0)) // block size
	ssnd.Write(payload)

	var body bytes.Buffer
	body.WriteString("AIFF")
	body.WriteString("COMM")
	binary.Write(&body, binary.BigEndian, uint32(comm.Len()))
	body.Write(comm.Bytes())
	body.WriteString("SSND")
	binary.Write(&body, binary.BigEndian, uint32(ssnd.Len()))
	body.Write(ssnd.Bytes())

	var file bytes.Buffer
	file.WriteString("FORM")
	binary.Write(&file, binary.BigEndian, uint32(body.Len()))
	file.Write(body.Bytes())
	return file.Bytes()
}

func be16(vs ...int16) []byte {
	out := make([]byte, 2*len(vs))
	for i, v := range vs {
		binary.BigEndian.PutUint16(out[2*i:], uint16(v))
	}
	return out
}

func TestDecoder_PCM16(t *testing.T) {
	t.Parallel()

	data := buildAIFF(2, 16, be16(0, -32768, 16384, -16384))

	src, err := Decoder{}.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	if src.SampleRate() != 8000 || src.Channels() != 2 {
		t.Fatalf("shape = %d Hz x %d", src.SampleRate(), src.Channels())
	}

	got, err := audio.ReadAll(src)
	if err != nil {
		t.Fatal(err)
	}
	want := []float32{0, -1, 0.5, -0.5}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestDecoder_NonSeekableReader(t *testing.T) {
	t.Parallel()

	data := buildAIFF(1, 16, be16(8192))
	src, err := Decoder{}.Decode(struct{ io.Reader }{bytes.NewReader(data)})
	if err != nil {
		t.Fatal(err)
	}

	got, err := audio.ReadAll(src)
	if err != nil || len(got) != 1 || got[0] != 0.25 {
		t.Errorf("got %v, %v", got, err)
	}
}

func TestDecoder_Rejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty", nil, ErrNotAiffFile},
		{"wav header", []byte("RIFF\x24\x00\x00\x00WAVEfmt "), ErrNotAiffFile},
		{"8-bit", buildAIFF(1, 8, []byte{1, 2, 3, 4}), ErrUnsupportedBitDepth},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if _, err := (Decoder{}).Decode(bytes.NewReader(tt.data)); !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}
