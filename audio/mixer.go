// SPDX-License-Identifier: EPL-2.0

package audio

// MixFunc accumulates frames frames of src (srcChans interleaved) into dst
// (dstChans interleaved). coefficients is row-major, one row per destination
// channel: coefficients[d*srcChans+s]. dst is added to, never overwritten.
type MixFunc func(frames, srcChans, dstChans int, src, dst, coefficients []float32)

// MixGeneric is the N-in, M-out MixFunc.
func MixGeneric(frames, srcChans, dstChans int, src, dst, coefficients []float32) {
	for i := 0; i < frames; i++ {
		in := src[i*srcChans : (i+1)*srcChans]
		out := dst[i*dstChans : (i+1)*dstChans]
		for co := range out {
			row := coefficients[co*srcChans : (co+1)*srcChans]
			var sample float32
			for ci, s := range in {
				sample += s * row[ci]
			}
			out[co] += sample
		}
	}
}

// mixGenericUnrolled walks four frames per iteration. Results match MixGeneric
// exactly; only the loop shape differs.
func mixGenericUnrolled(frames, srcChans, dstChans int, src, dst, coefficients []float32) {
	i := 0
	for ; i+4 <= frames; i += 4 {
		for k := 0; k < 4; k++ {
			in := src[(i+k)*srcChans : (i+k+1)*srcChans]
			out := dst[(i+k)*dstChans : (i+k+1)*dstChans]
			for co := range out {
				row := coefficients[co*srcChans : (co+1)*srcChans]
				var sample float32
				for ci, s := range in {
					sample += s * row[ci]
				}
				out[co] += sample
			}
		}
	}
	if i < frames {
		MixGeneric(frames-i, srcChans, dstChans, src[i*srcChans:], dst[i*dstChans:], coefficients)
	}
}

// Mix1in1out and the following specialized kernels ignore the channel
// arguments; the selection in Kernels.Mixer guarantees them.
func Mix1in1out(frames, _, _ int, src, dst, coefficients []float32) {
	c := coefficients[0]
	for i := 0; i < frames; i++ {
		dst[i] += src[i] * c
	}
}

func Mix1in2out(frames, _, _ int, src, dst, coefficients []float32) {
	c := coefficients[:2]
	for i := 0; i < frames; i++ {
		s := src[i]
		d := dst[i*2 : i*2+2]
		d[0] += s * c[0]
		d[1] += s * c[1]
	}
}

func Mix1in6out(frames, _, _ int, src, dst, coefficients []float32) {
	c := coefficients[:6]
	for i := 0; i < frames; i++ {
		s := src[i]
		d := dst[i*6 : i*6+6]
		d[0] += s * c[0]
		d[1] += s * c[1]
		d[2] += s * c[2]
		d[3] += s * c[3]
		d[4] += s * c[4]
		d[5] += s * c[5]
	}
}

func Mix1in8out(frames, _, _ int, src, dst, coefficients []float32) {
	c := coefficients[:8]
	for i := 0; i < frames; i++ {
		s := src[i]
		d := dst[i*8 : i*8+8]
		d[0] += s * c[0]
		d[1] += s * c[1]
		d[2] += s * c[2]
		d[3] += s * c[3]
		d[4] += s * c[4]
		d[5] += s * c[5]
		d[6] += s * c[6]
		d[7] += s * c[7]
	}
}

func Mix2in1out(frames, _, _ int, src, dst, coefficients []float32) {
	c := coefficients[:2]
	for i := 0; i < frames; i++ {
		s := src[i*2 : i*2+2]
		dst[i] += s[0]*c[0] + s[1]*c[1]
	}
}

func Mix2in2out(frames, _, _ int, src, dst, coefficients []float32) {
	c := coefficients[:4]
	for i := 0; i < frames; i++ {
		s := src[i*2 : i*2+2]
		d := dst[i*2 : i*2+2]
		d[0] += s[0]*c[0] + s[1]*c[1]
		d[1] += s[0]*c[2] + s[1]*c[3]
	}
}

func Mix2in6out(frames, _, _ int, src, dst, coefficients []float32) {
	c := coefficients[:12]
	for i := 0; i < frames; i++ {
		s := src[i*2 : i*2+2]
		d := dst[i*6 : i*6+6]
		for co := 0; co < 6; co++ {
			d[co] += s[0]*c[co*2] + s[1]*c[co*2+1]
		}
	}
}

func Mix2in8out(frames, _, _ int, src, dst, coefficients []float32) {
	c := coefficients[:16]
	for i := 0; i < frames; i++ {
		s := src[i*2 : i*2+2]
		d := dst[i*8 : i*8+8]
		for co := 0; co < 8; co++ {
			d[co] += s[0]*c[co*2] + s[1]*c[co*2+1]
		}
	}
}

// Amplify scales every sample by volume in place.
func Amplify(samples []float32, volume float32) {
	for i := range samples {
		samples[i] *= volume
	}
}
