// SPDX-License-Identifier: EPL-2.0

package audio

// ResampleFunc linearly resamples frames output frames of interleaved audio
// from src into dst. offset carries the running 32.32 position; only its
// fraction seeds the interpolation phase, and it advances by step for every
// output frame. src must hold the frames the walk touches plus one frame of
// lookahead; reads past the end of src see silence.
type ResampleFunc func(src, dst []float32, offset *Fixed, step Fixed, frames, channels int)

func sampleAt(src []float32, i int) float32 {
	if i < len(src) {
		return src[i]
	}
	return 0
}

// ResampleMono is the single channel ResampleFunc.
func ResampleMono(src, dst []float32, offset *Fixed, step Fixed, frames, _ int) {
	cur := *offset & FixedFractionMask
	pos := 0
	for i := 0; i < frames; i++ {
		a := sampleAt(src, pos)
		b := sampleAt(src, pos+1)
		dst[i] = float32(float64(a) + float64(b-a)*cur.Float64())

		*offset += step
		cur += step
		pos += int(cur >> FixedPrecision)
		cur &= FixedFractionMask
	}
}

// ResampleStereo is the two channel ResampleFunc.
func ResampleStereo(src, dst []float32, offset *Fixed, step Fixed, frames, _ int) {
	cur := *offset & FixedFractionMask
	pos := 0
	o := 0
	for i := 0; i < frames; i++ {
		t := cur.Float64()
		l0, r0 := sampleAt(src, pos), sampleAt(src, pos+1)
		l1, r1 := sampleAt(src, pos+2), sampleAt(src, pos+3)
		dst[o] = float32(float64(l0) + float64(l1-l0)*t)
		dst[o+1] = float32(float64(r0) + float64(r1-r0)*t)
		o += 2

		*offset += step
		cur += step
		pos += int(cur>>FixedPrecision) * 2
		cur &= FixedFractionMask
	}
}

// ResampleGeneric handles any channel count.
func ResampleGeneric(src, dst []float32, offset *Fixed, step Fixed, frames, channels int) {
	cur := *offset & FixedFractionMask
	pos := 0
	o := 0
	for i := 0; i < frames; i++ {
		t := cur.Float64()
		for j := 0; j < channels; j++ {
			a := sampleAt(src, pos+j)
			b := sampleAt(src, pos+j+channels)
			dst[o] = float32(float64(a) + float64(b-a)*t)
			o++
		}

		*offset += step
		cur += step
		pos += int(cur>>FixedPrecision) * channels
		cur &= FixedFractionMask
	}
}
