// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"fmt"
	"math"

	"github.com/ik5/audmix/utils"
)

// recalcMixMatrix folds volume and channel volumes into s.mix. Caller
// holds v.volumeLock.
func (v *voice) recalcMixMatrix(s *send) {
	oc := v.outputChannels
	for d := 0; d < s.outChannels; d++ {
		for c := 0; c < oc; c++ {
			i := d*oc + c
			s.mix[i] = v.volume * v.channelVolume[c] * s.coefficients[i]
		}
	}
}

func (v *voice) recalcAllMixMatrices() {
	for i := range v.sends {
		v.recalcMixMatrix(&v.sends[i])
	}
}

// SetVolume sets the overall gain, clamped to ±MaxVolumeLevel. On the
// master voice it scales the final mix.
func (v *voice) SetVolume(volume float32, operationSet uint32) error {
	if math.IsNaN(float64(volume)) {
		return fmt.Errorf("%w: volume is NaN", ErrInvalidArgument)
	}

	if v.engine.deferred(operationSet) {
		v.engine.ops.enqueue(operation{
			kind:  opSetVolume,
			set:   operationSet,
			voice: v,
			apply: func() { v.applyVolume(volume) },
		})
		return nil
	}
	v.applyVolume(volume)
	return nil
}

func (v *voice) applyVolume(volume float32) {
	volume = utils.Clamp(volume, -MaxVolumeLevel, MaxVolumeLevel)

	v.sendLock.Lock()
	defer v.sendLock.Unlock()
	v.volumeLock.Lock()
	defer v.volumeLock.Unlock()

	v.volume = volume
	v.recalcAllMixMatrices()
}

// Volume returns the overall gain.
func (v *voice) Volume() float32 {
	v.volumeLock.Lock()
	defer v.volumeLock.Unlock()
	return v.volume
}

// SetChannelVolumes sets one gain per output channel. The master voice
// has none.
func (v *voice) SetChannelVolumes(volumes []float32, operationSet uint32) error {
	if v.kind == kindMaster {
		return fmt.Errorf("%w: the master voice has no channel volumes", ErrInvalidCall)
	}
	if len(volumes) != v.outputChannels {
		return fmt.Errorf("%w: %d channel volumes for %d channels", ErrInvalidCall, len(volumes), v.outputChannels)
	}
	for i, vol := range volumes {
		if math.IsNaN(float64(vol)) {
			return fmt.Errorf("%w: channel %d volume is NaN", ErrInvalidArgument, i)
		}
	}

	levels := append([]float32(nil), volumes...)
	if v.engine.deferred(operationSet) {
		v.engine.ops.enqueue(operation{
			kind:  opSetChannelVolumes,
			set:   operationSet,
			voice: v,
			apply: func() { v.applyChannelVolumes(levels) },
		})
		return nil
	}
	v.applyChannelVolumes(levels)
	return nil
}

func (v *voice) applyChannelVolumes(levels []float32) {
	v.sendLock.Lock()
	defer v.sendLock.Unlock()
	v.volumeLock.Lock()
	defer v.volumeLock.Unlock()

	copy(v.channelVolume, levels)
	v.recalcAllMixMatrices()
}

// ChannelVolumes returns a copy of the per-channel gains.
func (v *voice) ChannelVolumes() []float32 {
	v.volumeLock.Lock()
	defer v.volumeLock.Unlock()
	return append([]float32(nil), v.channelVolume...)
}
