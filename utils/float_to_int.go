// SPDX-License-Identifier: EPL-2.0

package utils

import "cmp"

// Clamp limits v to [lo, hi].
func Clamp[T cmp.Ordered](v, lo, hi T) T {
	return min(max(v, lo), hi)
}

// Float32ToInt16 quantizes a [-1,1] sample, truncating toward zero.
// The scale is symmetric so -1 maps to -32767.
func Float32ToInt16(x float32) int16 {
	return int16(Clamp(x, -1, 1) * 32767.0)
}

// Int16ToFloat32 is the inverse scale of ConvertS16ToF32 in the audio
// package: -32768 maps to -1.
func Int16ToFloat32(v int16) float32 {
	return float32(v) / 32768.0
}
