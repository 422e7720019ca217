// SPDX-License-Identifier: EPL-2.0

package audio

// Fixed is an unsigned 32.32 fixed-point number. Resample offsets and steps
// are kept in this form so that long playback never accumulates float drift.
type Fixed uint64

const (
	FixedPrecision           = 32
	FixedOne           Fixed = 1 << FixedPrecision
	FixedFractionMask        = FixedOne - 1
)

// ToFixed converts d to fixed point, rounding to nearest.
func ToFixed(d float64) Fixed {
	return Fixed(d*float64(FixedOne) + 0.5)
}

// FixedFromInt returns n with a zero fraction.
func FixedFromInt(n uint64) Fixed {
	return Fixed(n) << FixedPrecision
}

// Float64 converts f back to floating point.
func (f Fixed) Float64() float64 {
	return float64(f>>FixedPrecision) + float64(f&FixedFractionMask)*(1.0/float64(FixedOne))
}

// Int returns the integer part of f.
func (f Fixed) Int() uint64 { return uint64(f >> FixedPrecision) }

// Frac returns the fractional part of f.
func (f Fixed) Frac() Fixed { return f & FixedFractionMask }
