// SPDX-License-Identifier: EPL-2.0

package audio

import "math"

const foldLevel = float32(math.Sqrt2 / 2)

// DefaultMatrix returns the default send levels for routing srcChans into
// dstChans, row-major by destination channel: m[d*srcChans+s].
//
// Channel order follows the WAVE speaker order (FL, FR, FC, LFE, BL, BR,
// SL, SR). The rules are:
//   - equal counts map straight through;
//   - mono feeds the front pair (or the single output) at full level;
//   - anything folded to mono is averaged;
//   - surround folded to stereo keeps the front pair, spreads the center at
//     -3 dB, drops LFE and folds rear/side pairs at -3 dB;
//   - every other pairing maps channel n to channel n.
func DefaultMatrix(srcChans, dstChans int) []float32 {
	m := make([]float32, srcChans*dstChans)
	set := func(d, s int, v float32) { m[d*srcChans+s] = v }

	switch {
	case srcChans == dstChans:
		for c := 0; c < srcChans; c++ {
			set(c, c, 1)
		}
	case dstChans == 1:
		avg := 1 / float32(srcChans)
		for s := 0; s < srcChans; s++ {
			set(0, s, avg)
		}
	case srcChans == 1:
		set(0, 0, 1)
		set(1, 0, 1)
	case dstChans == 2:
		set(0, 0, 1)
		set(1, 1, 1)
		if srcChans > 2 {
			set(0, 2, foldLevel)
			set(1, 2, foldLevel)
		}
		for s := 4; s < srcChans; s++ {
			set(s%2, s, foldLevel)
		}
	default:
		for c := 0; c < min(srcChans, dstChans); c++ {
			set(c, c, 1)
		}
	}
	return m
}
