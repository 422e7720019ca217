// SPDX-License-Identifier: EPL-2.0

package audiotest

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
)

// PCM8Bytes encodes samples as unsigned 8-bit PCM.
func PCM8Bytes(samples []uint8) []byte {
	out := make([]byte, len(samples))
	copy(out, samples)
	return out
}

// PCM16Bytes encodes samples as little-endian signed 16-bit PCM.
func PCM16Bytes(samples []int16) []byte {
	out := make([]byte, 2*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(s))
	}
	return out
}

// PCM24Bytes encodes samples (in the signed 24-bit range) as packed
// little-endian triplets.
func PCM24Bytes(samples []int32) []byte {
	out := make([]byte, 3*len(samples))
	for i, s := range samples {
		u := uint32(s)
		out[3*i] = byte(u)
		out[3*i+1] = byte(u >> 8)
		out[3*i+2] = byte(u >> 16)
	}
	return out
}

// PCM32Bytes encodes samples as little-endian signed 32-bit PCM.
func PCM32Bytes(samples []int32) []byte {
	out := make([]byte, 4*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint32(out[4*i:], uint32(s))
	}
	return out
}

// Float32Bytes encodes samples as little-endian IEEE floats.
func Float32Bytes(samples []float32) []byte {
	out := make([]byte, 4*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint32(out[4*i:], math.Float32bits(s))
	}
	return out
}

// ConstantPCM16 returns frames*channels copies of v.
func ConstantPCM16(frames, channels int, v int16) []int16 {
	out := make([]int16, frames*channels)
	for i := range out {
		out[i] = v
	}
	return out
}

// MonoMSADPCMBlock builds one mono block with predictor 0, the given
// starting delta and history samples, followed by payload nibble bytes.
func MonoMSADPCMBlock(delta, sample1, sample2 int16, payload ...byte) []byte {
	out := make([]byte, 7, 7+len(payload))
	out[0] = 0
	binary.LittleEndian.PutUint16(out[1:], uint16(delta))
	binary.LittleEndian.PutUint16(out[3:], uint16(sample1))
	binary.LittleEndian.PutUint16(out[5:], uint16(sample2))
	return append(out, payload...)
}

// WriteSeekBuffer is an in-memory io.WriteSeeker.
type WriteSeekBuffer struct {
	buf []byte
	pos int
}

func (w *WriteSeekBuffer) Write(p []byte) (int, error) {
	if end := w.pos + len(p); end > len(w.buf) {
		w.buf = append(w.buf, make([]byte, end-len(w.buf))...)
	}
	n := copy(w.buf[w.pos:], p)
	w.pos += n
	return n, nil
}

func (w *WriteSeekBuffer) Seek(offset int64, whence int) (int64, error) {
	var next int64
	switch whence {
	case io.SeekStart:
		next = offset
	case io.SeekCurrent:
		next = int64(w.pos) + offset
	case io.SeekEnd:
		next = int64(len(w.buf)) + offset
	default:
		return 0, errors.New("audiotest: invalid whence")
	}
	if next < 0 {
		return 0, errors.New("audiotest: negative position")
	}
	w.pos = int(next)
	return next, nil
}

// Bytes returns everything written so far.
func (w *WriteSeekBuffer) Bytes() []byte { return w.buf }
