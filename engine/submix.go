// SPDX-License-Identifier: EPL-2.0

package engine

import "github.com/ik5/audmix/audio"

// SubmixVoice sums the voices that send to it, then filters, processes and
// forwards the sum like any other voice.
type SubmixVoice struct {
	voice

	processingStage int

	// inputCache accumulates one pass of upstream output and is cleared
	// once the submix has rendered. Only the render thread touches it.
	inputCache   []float32
	inputSamples int

	// guarded by sendLock
	outputSamples int
	resampleStep  audio.Fixed

	resampler audio.ResampleFunc
}

// ProcessingStage returns the submix's render order key.
func (sm *SubmixVoice) ProcessingStage() int { return sm.processingStage }
