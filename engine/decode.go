// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"fmt"

	"github.com/ik5/audmix/audio"
)

type pcmCodec struct {
	format WaveFormat
}

// Decode converts up to frames frames; frames past the end of data are
// zeroed and reported as errShortData.
func (c pcmCodec) Decode(data []byte, offset, frames int, dst []float32) error {
	ch, align := c.format.Channels, c.format.BlockAlign
	dst = dst[:frames*ch]

	start := offset * align
	n := 0
	if start < len(data) {
		n = min(frames, (len(data)-start)/align)
	}
	if n > 0 {
		src := data[start : start+n*align]
		out := dst[:n*ch]
		switch c.format.BitsPerSample {
		case 8:
			audio.ConvertU8ToF32(src, out)
		case 16:
			audio.ConvertS16ToF32(src, out)
		case 24:
			audio.ConvertS24ToF32(src, out, n, ch, align)
		case 32:
			if c.format.Tag == FormatIEEEFloat {
				audio.ConvertF32ToF32(src, out)
			} else {
				audio.ConvertS32ToF32(src, out)
			}
		default:
			panic(fmt.Sprintf("engine: no PCM decoder for %d bits", c.format.BitsPerSample))
		}
	}
	if n < frames {
		clear(dst[n*ch:])
		return fmt.Errorf("%w: wanted %d at frame %d, had %d", errShortData, frames, offset, n)
	}
	return nil
}

// adpcmCodec keeps the last decoded block so consecutive calls inside the
// same block do not decode it twice.
type adpcmCodec struct {
	format WaveFormat
	block  []int16

	cachedData  []byte
	cachedIndex int
	cached      bool
}

func (c *adpcmCodec) Decode(data []byte, offset, frames int, dst []float32) error {
	ch, spb, align := c.format.Channels, c.format.SamplesPerBlock, c.format.BlockAlign
	dst = dst[:frames*ch]

	done := 0
	for done < frames {
		idx := offset / spb
		mid := offset % spb
		start := idx * align
		if start+align > len(data) {
			clear(dst[done*ch:])
			return fmt.Errorf("%w: MSADPCM block %d past %d bytes", errShortData, idx, len(data))
		}
		if !c.cached || c.cachedIndex != idx || !sameData(c.cachedData, data) {
			if _, err := audio.DecodeMSADPCMBlock(data[start:start+align], ch, c.block); err != nil {
				c.cached = false
				clear(dst[done*ch:])
				return err
			}
			c.cached, c.cachedIndex, c.cachedData = true, idx, data
		}
		n := min(frames-done, spb-mid)
		audio.ConvertInt16ToF32(c.block[mid*ch:(mid+n)*ch], dst[done*ch:(done+n)*ch])
		done += n
		offset += n
	}
	return nil
}

func sameData(a, b []byte) bool {
	return len(a) == len(b) && (len(a) == 0 || &a[0] == &b[0])
}
