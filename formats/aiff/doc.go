// SPDX-License-Identifier: EPL-2.0

// Package aiff decodes Audio Interchange File Format files through
// github.com/go-audio/aiff.
//
// Signed big-endian PCM at 16, 24 and 32 bits is supported, at any channel
// count and sample rate. Samples come out as interleaved float32 in [-1, 1].
// Readers that cannot seek are read into memory before decoding.
package aiff
