// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"encoding/binary"
	"fmt"
)

var (
	adpcmAdaptionTable = [16]int32{
		230, 230, 230, 230, 307, 409, 512, 614,
		768, 614, 512, 409, 307, 230, 230, 230,
	}
	adpcmCoeff1 = [7]int32{256, 512, 0, 192, 240, 460, 392}
	adpcmCoeff2 = [7]int32{0, -256, 0, 64, 0, -208, -232}
)

type adpcmChannel struct {
	predictor int
	delta     int16
	sample1   int16
	sample2   int16
}

func (c *adpcmChannel) nibble(n byte) int16 {
	signed := int32(n)
	if signed&0x08 != 0 {
		signed -= 0x10
	}

	v := (int32(c.sample1)*adpcmCoeff1[c.predictor] + int32(c.sample2)*adpcmCoeff2[c.predictor]) / 256
	v += signed * int32(c.delta)
	sample := int16(max(-32768, min(32767, v)))

	c.sample2 = c.sample1
	c.sample1 = sample
	c.delta = int16(adpcmAdaptionTable[n] * int32(c.delta) / 256)
	if c.delta < 16 {
		c.delta = 16
	}
	return sample
}

// MSADPCMPreambleSize is the per-channel block header length in bytes.
const MSADPCMPreambleSize = 7

// MSADPCMSamplesPerBlock returns the frames one block of blockAlign bytes
// decodes to.
func MSADPCMSamplesPerBlock(blockAlign, channels int) int {
	return ((blockAlign / channels) - 6) * 2
}

// DecodeMSADPCMBlock decodes one mono or stereo MSADPCM block into dst as
// interleaved 16-bit samples and returns the number of frames written.
func DecodeMSADPCMBlock(block []byte, channels int, dst []int16) (int, error) {
	if channels != 1 && channels != 2 {
		return 0, fmt.Errorf("%w: %d channel MSADPCM", ErrUnsupportedLayout, channels)
	}
	if len(block) < MSADPCMPreambleSize*channels {
		return 0, fmt.Errorf("%w: MSADPCM block of %d bytes", ErrShortBuffer, len(block))
	}
	frames := MSADPCMSamplesPerBlock(len(block), channels)
	if len(dst) < frames*channels {
		return 0, fmt.Errorf("%w: need %d samples", ErrShortBuffer, frames*channels)
	}

	var ch [2]adpcmChannel
	p := 0
	for c := 0; c < channels; c++ {
		ch[c].predictor = int(block[p])
		if ch[c].predictor >= len(adpcmCoeff1) {
			return 0, fmt.Errorf("%w: MSADPCM predictor %d", ErrUnsupportedLayout, ch[c].predictor)
		}
		p++
	}
	for c := 0; c < channels; c++ {
		ch[c].delta = int16(binary.LittleEndian.Uint16(block[p:]))
		p += 2
	}
	for c := 0; c < channels; c++ {
		ch[c].sample1 = int16(binary.LittleEndian.Uint16(block[p:]))
		p += 2
	}
	for c := 0; c < channels; c++ {
		ch[c].sample2 = int16(binary.LittleEndian.Uint16(block[p:]))
		p += 2
	}

	o := 0
	for c := 0; c < channels; c++ {
		dst[o] = ch[c].sample2
		o++
	}
	for c := 0; c < channels; c++ {
		dst[o] = ch[c].sample1
		o++
	}

	for ; p < len(block); p++ {
		b := block[p]
		if channels == 1 {
			dst[o] = ch[0].nibble(b >> 4)
			dst[o+1] = ch[0].nibble(b & 0x0F)
		} else {
			dst[o] = ch[0].nibble(b >> 4)
			dst[o+1] = ch[1].nibble(b & 0x0F)
		}
		o += 2
	}
	return frames, nil
}
