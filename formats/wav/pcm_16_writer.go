// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	gowav "github.com/go-audio/wav"
	"github.com/ik5/audmix/utils"
)

const chunkFrames = 4096

// WriteWAV16 writes interleaved 16-bit PCM samples as a WAV file.
// The header sizes are patched on completion, so w must be seekable.
func WriteWAV16(w io.WriteSeeker, sampleRate, channels int, samples []int16) error {
	return writeChunks(w, sampleRate, channels, len(samples), func(dst []int, off int) {
		for i := range dst {
			dst[i] = int(samples[off+i])
		}
	})
}

// WriteFloat32 quantizes interleaved float samples in [-1,1] to 16 bits
// and writes them as a WAV file. Out of range samples are clipped.
func WriteFloat32(w io.WriteSeeker, sampleRate, channels int, samples []float32) error {
	return writeChunks(w, sampleRate, channels, len(samples), func(dst []int, off int) {
		for i := range dst {
			dst[i] = int(utils.Float32ToInt16(samples[off+i]))
		}
	})
}

func writeChunks(w io.WriteSeeker, sampleRate, channels, total int, fill func(dst []int, off int)) error {
	if channels <= 0 || total%channels != 0 {
		return fmt.Errorf("%w: %d samples, %d channels", ErrChannels, total, channels)
	}

	enc := gowav.NewEncoder(w, sampleRate, 16, channels, formatPCM)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           make([]int, min(total, chunkFrames*channels)),
		SourceBitDepth: 16,
	}

	for off := 0; off < total; off += len(buf.Data) {
		buf.Data = buf.Data[:min(cap(buf.Data), total-off)]
		fill(buf.Data, off)
		if err := enc.Write(buf); err != nil {
			return fmt.Errorf("writing wav data: %w", err)
		}
	}

	if total == 0 {
		// the encoder only emits its header with the first buffer
		buf.Data = buf.Data[:0]
		if err := enc.Write(buf); err != nil {
			return fmt.Errorf("writing wav data: %w", err)
		}
	}

	if err := enc.Close(); err != nil {
		return fmt.Errorf("finishing wav header: %w", err)
	}
	return nil
}
