// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"sync"

	"golang.org/x/sys/cpu"
)

// Kernels is the dispatch table for the per-sample routines. A table never
// changes after construction; an engine holds one and every voice it owns
// shares it.
type Kernels struct {
	// Name identifies the variant, for logs.
	Name string

	ResampleMono    ResampleFunc
	ResampleStereo  ResampleFunc
	ResampleGeneric ResampleFunc

	MixGeneric MixFunc
	Amplify    func(samples []float32, volume float32)

	// mix1 and mix2 are indexed by mixSlot(dstChans).
	mix1 [4]MixFunc
	mix2 [4]MixFunc
}

var (
	defaultKernels     *Kernels
	defaultKernelsOnce sync.Once
)

// ScalarKernels returns the straightforward reference table.
func ScalarKernels() *Kernels {
	return &Kernels{
		Name:            "scalar",
		ResampleMono:    ResampleMono,
		ResampleStereo:  ResampleStereo,
		ResampleGeneric: ResampleGeneric,
		MixGeneric:      MixGeneric,
		Amplify:         Amplify,
		mix1:            [4]MixFunc{Mix1in1out, Mix1in2out, Mix1in6out, Mix1in8out},
		mix2:            [4]MixFunc{Mix2in1out, Mix2in2out, Mix2in6out, Mix2in8out},
	}
}

// UnrolledKernels returns the table for CPUs with wide vector units. The
// amplify and 1/2-in x 1/2-out kernels work on four frames at a time through
// fixed size array views, which lets the compiler drop the per-sample bounds
// checks and keep a block in registers. Output equals ScalarKernels up to
// floating point contraction.
func UnrolledKernels() *Kernels {
	k := ScalarKernels()
	k.Name = "unrolled"
	k.MixGeneric = mixGenericUnrolled
	k.Amplify = amplifyUnrolled
	k.mix1[0] = mix1in1outWide
	k.mix1[1] = mix1in2outWide
	k.mix2[0] = mix2in1outWide
	k.mix2[1] = mix2in2outWide
	return k
}

// DefaultKernels picks a table from the CPU features once per process.
func DefaultKernels() *Kernels {
	defaultKernelsOnce.Do(func() {
		if cpu.X86.HasAVX2 || cpu.ARM64.HasASIMD {
			defaultKernels = UnrolledKernels()
			return
		}
		defaultKernels = ScalarKernels()
	})
	return defaultKernels
}

func mixSlot(dstChans int) int {
	switch dstChans {
	case 1:
		return 0
	case 2:
		return 1
	case 6:
		return 2
	case 8:
		return 3
	}
	return -1
}

// Mixer returns the kernel for a srcChans to dstChans send.
func (k *Kernels) Mixer(srcChans, dstChans int) MixFunc {
	slot := mixSlot(dstChans)
	if slot >= 0 {
		switch srcChans {
		case 1:
			return k.mix1[slot]
		case 2:
			return k.mix2[slot]
		}
	}
	return k.MixGeneric
}

// Resampler returns the resampler for the given channel count.
func (k *Kernels) Resampler(channels int) ResampleFunc {
	switch channels {
	case 1:
		return k.ResampleMono
	case 2:
		return k.ResampleStereo
	}
	return k.ResampleGeneric
}
