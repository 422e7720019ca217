// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"fmt"

	"github.com/ik5/audmix/audio"
)

// SetFilterParameters sets the voice filter. It does nothing on the master
// voice or on a voice created without VoiceUseFilter.
func (v *voice) SetFilterParameters(p audio.FilterParameters, operationSet uint32) error {
	if !p.Valid() {
		return fmt.Errorf("%w: filter parameters %+v", ErrInvalidArgument, p)
	}

	if v.engine.deferred(operationSet) {
		v.engine.ops.enqueue(operation{
			kind:  opSetFilterParameters,
			set:   operationSet,
			voice: v,
			apply: func() { v.applyFilterParameters(p) },
		})
		return nil
	}
	v.applyFilterParameters(p)
	return nil
}

func (v *voice) applyFilterParameters(p audio.FilterParameters) {
	if v.kind == kindMaster || v.flags&VoiceUseFilter == 0 {
		return
	}
	v.filterLock.Lock()
	v.filter = p
	v.filterLock.Unlock()
}

// FilterParameters returns the voice filter. The zero value is returned
// for voices without one.
func (v *voice) FilterParameters() audio.FilterParameters {
	if v.kind == kindMaster || v.flags&VoiceUseFilter == 0 {
		return audio.FilterParameters{}
	}
	v.filterLock.Lock()
	defer v.filterLock.Unlock()
	return v.filter
}
