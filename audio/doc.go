// SPDX-License-Identifier: EPL-2.0

// Package audio holds the sample-level building blocks of the mixer.
//
// Nothing here knows about voices or graphs. The engine package composes
// these pieces into a render pipeline; everything in this package is a
// plain function over interleaved float32 buffers.
//
// # Fixed Point
//
// Playback positions are tracked as 32.32 unsigned fixed point (Fixed).
// The integer part is a frame index, the fraction is the phase between two
// frames. A resampling step of FixedOne means no rate change.
//
// # Resampling
//
// ResampleMono, ResampleStereo and ResampleGeneric linearly interpolate
// between neighbouring frames and advance a caller-owned offset:
//
//	var offset audio.Fixed
//	step := audio.ToFixed(float64(srcRate) / float64(dstRate))
//	audio.ResampleStereo(src, dst, &offset, step, frames, 2)
//
// Reads past the end of src produce silence.
//
// # Mixing
//
// A MixFunc accumulates src into dst through a coefficient matrix laid
// out one row per destination channel. Kernels picks a specialized
// routine for the common 1/2 to 1/2/6/8 channel shapes and falls back to
// MixGeneric. DefaultMatrix builds the standard speaker fold-down.
//
// # Kernel Dispatch
//
// DefaultKernels inspects the CPU once and returns a shared table. Tests
// and tools can pin ScalarKernels or UnrolledKernels instead.
//
// # Decoding Helpers
//
// The Convert functions turn packed PCM of 8, 16, 24 or 32 bits and IEEE
// float into float32. DecodeMSADPCMBlock expands one MSADPCM block into
// 16-bit PCM.
//
// # Filters
//
// ApplyFilter is a per-channel state-variable filter with low, band, high
// and notch outputs and a wet/dry blend.
//
// # Sources
//
// The Source interface and Registry are the file-decoding side: the
// formats packages implement Decoder, and ReadAll drains a Source into
// memory so it can be fed to a source voice.
package audio
