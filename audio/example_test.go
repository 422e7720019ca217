// SPDX-License-Identifier: EPL-2.0

package audio_test

import (
	"fmt"

	"github.com/ik5/audmix/audio"
)

// ExampleResampleMono doubles the rate of a short ramp.
func ExampleResampleMono() {
	src := []float32{0, 1, 2, 3}
	dst := make([]float32, 6)

	var offset audio.Fixed
	step := audio.ToFixed(0.5)
	audio.ResampleMono(src, dst, &offset, step, len(dst), 1)

	fmt.Println(dst)
	fmt.Println(offset.Float64())
	// Output:
	// [0 0.5 1 1.5 2 2.5]
	// 3
}

// ExampleKernels_Mixer folds a stereo frame down to mono.
func ExampleKernels_Mixer() {
	k := audio.ScalarKernels()
	coef := audio.DefaultMatrix(2, 1)

	src := []float32{0.2, 0.6}
	dst := make([]float32, 1)
	k.Mixer(2, 1)(1, 2, 1, src, dst, coef)

	fmt.Printf("%.1f\n", dst[0])
	// Output:
	// 0.4
}

func ExampleApplyFilter() {
	p := audio.DefaultFilterParameters()
	p.WetDryMix = 0

	samples := []float32{0.25, -0.25}
	audio.ApplyFilter(p, make([]audio.FilterState, 1), samples, 2, 1)

	fmt.Println(samples)
	// Output:
	// [0.25 -0.25]
}
