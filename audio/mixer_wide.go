// SPDX-License-Identifier: EPL-2.0

package audio

// Four frame kernels for UnrolledKernels. Each block is viewed as a fixed
// size array so its indexes are checked once; the remainder runs through
// the scalar kernel.

const wideFrames = 4

func amplifyUnrolled(samples []float32, volume float32) {
	n := len(samples) - len(samples)%wideFrames
	for i := 0; i < n; i += wideFrames {
		s := (*[wideFrames]float32)(samples[i : i+wideFrames])
		s[0] *= volume
		s[1] *= volume
		s[2] *= volume
		s[3] *= volume
	}
	Amplify(samples[n:], volume)
}

func mix1in1outWide(frames, srcChans, dstChans int, src, dst, coefficients []float32) {
	c := coefficients[0]
	n := frames - frames%wideFrames
	for i := 0; i < n; i += wideFrames {
		s := (*[wideFrames]float32)(src[i : i+wideFrames])
		d := (*[wideFrames]float32)(dst[i : i+wideFrames])
		d[0] += s[0] * c
		d[1] += s[1] * c
		d[2] += s[2] * c
		d[3] += s[3] * c
	}
	Mix1in1out(frames-n, srcChans, dstChans, src[n:], dst[n:], coefficients)
}

func mix1in2outWide(frames, srcChans, dstChans int, src, dst, coefficients []float32) {
	c := (*[2]float32)(coefficients[:2])
	n := frames - frames%wideFrames
	for i := 0; i < n; i += wideFrames {
		s := (*[wideFrames]float32)(src[i : i+wideFrames])
		d := (*[2 * wideFrames]float32)(dst[i*2 : (i+wideFrames)*2])
		d[0] += s[0] * c[0]
		d[1] += s[0] * c[1]
		d[2] += s[1] * c[0]
		d[3] += s[1] * c[1]
		d[4] += s[2] * c[0]
		d[5] += s[2] * c[1]
		d[6] += s[3] * c[0]
		d[7] += s[3] * c[1]
	}
	Mix1in2out(frames-n, srcChans, dstChans, src[n:], dst[n*2:], coefficients)
}

func mix2in1outWide(frames, srcChans, dstChans int, src, dst, coefficients []float32) {
	c := (*[2]float32)(coefficients[:2])
	n := frames - frames%wideFrames
	for i := 0; i < n; i += wideFrames {
		s := (*[2 * wideFrames]float32)(src[i*2 : (i+wideFrames)*2])
		d := (*[wideFrames]float32)(dst[i : i+wideFrames])
		d[0] += s[0]*c[0] + s[1]*c[1]
		d[1] += s[2]*c[0] + s[3]*c[1]
		d[2] += s[4]*c[0] + s[5]*c[1]
		d[3] += s[6]*c[0] + s[7]*c[1]
	}
	Mix2in1out(frames-n, srcChans, dstChans, src[n*2:], dst[n:], coefficients)
}

func mix2in2outWide(frames, srcChans, dstChans int, src, dst, coefficients []float32) {
	c := (*[4]float32)(coefficients[:4])
	n := frames - frames%wideFrames
	for i := 0; i < n; i += wideFrames {
		s := (*[2 * wideFrames]float32)(src[i*2 : (i+wideFrames)*2])
		d := (*[2 * wideFrames]float32)(dst[i*2 : (i+wideFrames)*2])
		for f := 0; f < 2*wideFrames; f += 2 {
			l, r := s[f], s[f+1]
			d[f] += l*c[0] + r*c[1]
			d[f+1] += l*c[2] + r*c[3]
		}
	}
	Mix2in2out(frames-n, srcChans, dstChans, src[n*2:], dst[n*2:], coefficients)
}
