// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"encoding/binary"
	"math"
)

// ConvertU8ToF32 converts len(dst) unsigned 8-bit samples.
func ConvertU8ToF32(src []byte, dst []float32) {
	for i := range dst {
		dst[i] = float32(src[i])/128.0 - 1.0
	}
}

// ConvertS16ToF32 converts len(dst) little-endian signed 16-bit samples.
func ConvertS16ToF32(src []byte, dst []float32) {
	for i := range dst {
		v := int16(binary.LittleEndian.Uint16(src[2*i:]))
		dst[i] = float32(v) / 32768.0
	}
}

// ConvertInt16ToF32 is ConvertS16ToF32 for already decoded samples.
func ConvertInt16ToF32(src []int16, dst []float32) {
	for i := range dst {
		dst[i] = float32(src[i]) / 32768.0
	}
}

// ConvertS24ToF32 converts frames of packed little-endian 24-bit samples.
// Each frame is blockAlign bytes wide and holds channels samples.
func ConvertS24ToF32(src []byte, dst []float32, frames, channels, blockAlign int) {
	o := 0
	for i := 0; i < frames; i++ {
		frame := src[i*blockAlign:]
		for j := 0; j < channels; j++ {
			b := frame[j*3:]
			v := int32(uint32(b[2])<<24|uint32(b[1])<<16|uint32(b[0])<<8) >> 8
			dst[o] = float32(v) / 8388607.0
			o++
		}
	}
}

// ConvertS32ToF32 converts len(dst) little-endian signed 32-bit samples.
// Only the top 24 bits are significant.
func ConvertS32ToF32(src []byte, dst []float32) {
	for i := range dst {
		v := int32(binary.LittleEndian.Uint32(src[4*i:]))
		dst[i] = float32(v>>8) / 8388607.0
	}
}

// ConvertF32ToF32 copies len(dst) little-endian IEEE float samples.
func ConvertF32ToF32(src []byte, dst []float32) {
	for i := range dst {
		dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(src[4*i:]))
	}
}

// Float32Bytes serializes samples as little-endian IEEE floats, the layout
// ConvertF32ToF32 reads back.
func Float32Bytes(samples []float32) []byte {
	out := make([]byte, 4*len(samples))
	PutFloat32s(out, samples)
	return out
}

// PutFloat32s writes samples into dst as little-endian IEEE floats.
// dst must hold at least 4*len(samples) bytes.
func PutFloat32s(dst []byte, samples []float32) {
	for i, s := range samples {
		binary.LittleEndian.PutUint32(dst[4*i:], math.Float32bits(s))
	}
}
