// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"math"
	"testing"
)

func TestToFixed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   float64
		want Fixed
	}{
		{"zero", 0, 0},
		{"one", 1, FixedOne},
		{"half", 0.5, FixedOne / 2},
		{"two and a quarter", 2.25, 2*FixedOne + FixedOne/4},
		{"rounds to nearest", 1.0 / float64(FixedOne) * 0.6, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := ToFixed(tt.in); got != tt.want {
				t.Errorf("ToFixed(%v) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestFixed_Parts(t *testing.T) {
	t.Parallel()

	f := ToFixed(3.75)
	if f.Int() != 3 {
		t.Errorf("Int() = %d, want 3", f.Int())
	}
	if f.Frac() != ToFixed(0.75) {
		t.Errorf("Frac() = %d, want %d", f.Frac(), ToFixed(0.75))
	}
	if FixedFromInt(7) != ToFixed(7) {
		t.Errorf("FixedFromInt(7) = %d, want %d", FixedFromInt(7), ToFixed(7))
	}
}

func TestFixed_RoundTrip(t *testing.T) {
	t.Parallel()

	for _, v := range []float64{0, 0.459375, 1, 1.5, 22050.0 / 48000.0, 1024, 1.0 / 1024} {
		got := ToFixed(v).Float64()
		if math.Abs(got-v) > 1.0/float64(FixedOne) {
			t.Errorf("ToFixed(%v).Float64() = %v", v, got)
		}
	}
}
