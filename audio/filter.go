// SPDX-License-Identifier: EPL-2.0

package audio

// FilterType selects which running state of the state-variable filter is
// heard. The values double as indexes into FilterState.
type FilterType int

const (
	LowPassFilter FilterType = iota
	BandPassFilter
	HighPassFilter
	NotchFilter
)

const (
	// MaxFilterFrequency is the largest accepted FilterParameters.Frequency.
	MaxFilterFrequency = 1.0
	// MaxFilterOneOverQ is the largest accepted FilterParameters.OneOverQ.
	MaxFilterOneOverQ = 1.5
)

// FilterParameters configures a state-variable filter.
//
// Frequency is not in Hz: it is 2*sin(pi*cutoff/sampleRate).
type FilterParameters struct {
	Type      FilterType
	Frequency float32
	OneOverQ  float32
	WetDryMix float32
}

// DefaultFilterParameters is a fully open low-pass.
func DefaultFilterParameters() FilterParameters {
	return FilterParameters{
		Type:      LowPassFilter,
		Frequency: MaxFilterFrequency,
		OneOverQ:  1.0,
		WetDryMix: 1.0,
	}
}

// Valid reports whether p is inside the accepted ranges.
func (p FilterParameters) Valid() bool {
	return p.Type >= LowPassFilter && p.Type <= NotchFilter &&
		p.Frequency >= 0 && p.Frequency <= MaxFilterFrequency &&
		p.OneOverQ > 0 && p.OneOverQ <= MaxFilterOneOverQ &&
		p.WetDryMix >= 0 && p.WetDryMix <= 1
}

// FilterState is one channel's running low, band, high and notch outputs.
type FilterState [4]float32

// ApplyFilter runs the filter over frames interleaved frames in place.
// state must hold one entry per channel.
//
//	L(n) = F*B(n-1) + L(n-1)
//	H(n) = x(n) - L(n) - OneOverQ*B(n-1)
//	B(n) = F*H(n) + B(n-1)
//	N(n) = L(n) + H(n)
func ApplyFilter(p FilterParameters, state []FilterState, samples []float32, frames, channels int) {
	for j := 0; j < frames; j++ {
		for ci := 0; ci < channels; ci++ {
			st := &state[ci]
			x := samples[j*channels+ci]
			st[LowPassFilter] = st[LowPassFilter] + p.Frequency*st[BandPassFilter]
			st[HighPassFilter] = x - st[LowPassFilter] - p.OneOverQ*st[BandPassFilter]
			st[BandPassFilter] = p.Frequency*st[HighPassFilter] + st[BandPassFilter]
			st[NotchFilter] = st[HighPassFilter] + st[LowPassFilter]
			samples[j*channels+ci] = st[p.Type]*p.WetDryMix + x*(1.0-p.WetDryMix)
		}
	}
}
