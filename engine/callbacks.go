// SPDX-License-Identifier: EPL-2.0

package engine

import "sync"

// VoiceCallback receives a source voice's notifications. Every method runs
// on the render thread with the voice's locks released, so it may call
// back into the engine, including on the same voice. It must not destroy
// the voice it is called for.
type VoiceCallback interface {
	// OnVoiceProcessingPassStart reports how many more bytes of source data
	// the voice needs beyond what is queued to fill this pass.
	OnVoiceProcessingPassStart(bytesRequired int)
	OnVoiceProcessingPassEnd()
	OnStreamEnd()
	OnBufferStart(ctx any)
	OnBufferEnd(ctx any)
	OnLoopEnd(ctx any)
	OnVoiceError(ctx any, err error)
}

// VoiceCallbackFuncs implements VoiceCallback with optional funcs; nil
// fields are skipped.
type VoiceCallbackFuncs struct {
	ProcessingPassStart func(bytesRequired int)
	ProcessingPassEnd   func()
	StreamEnd           func()
	BufferStart         func(ctx any)
	BufferEnd           func(ctx any)
	LoopEnd             func(ctx any)
	VoiceError          func(ctx any, err error)
}

func (f *VoiceCallbackFuncs) OnVoiceProcessingPassStart(n int) {
	if f.ProcessingPassStart != nil {
		f.ProcessingPassStart(n)
	}
}

func (f *VoiceCallbackFuncs) OnVoiceProcessingPassEnd() {
	if f.ProcessingPassEnd != nil {
		f.ProcessingPassEnd()
	}
}

func (f *VoiceCallbackFuncs) OnStreamEnd() {
	if f.StreamEnd != nil {
		f.StreamEnd()
	}
}

func (f *VoiceCallbackFuncs) OnBufferStart(ctx any) {
	if f.BufferStart != nil {
		f.BufferStart(ctx)
	}
}

func (f *VoiceCallbackFuncs) OnBufferEnd(ctx any) {
	if f.BufferEnd != nil {
		f.BufferEnd(ctx)
	}
}

func (f *VoiceCallbackFuncs) OnLoopEnd(ctx any) {
	if f.LoopEnd != nil {
		f.LoopEnd(ctx)
	}
}

func (f *VoiceCallbackFuncs) OnVoiceError(ctx any, err error) {
	if f.VoiceError != nil {
		f.VoiceError(ctx, err)
	}
}

// EngineCallback receives engine wide notifications. The pass callbacks run
// on the render thread; they must not register or unregister callbacks.
type EngineCallback interface {
	OnProcessingPassStart()
	OnProcessingPassEnd()
	// OnCriticalError reports that the device failed. The engine produces
	// nothing until a new master voice is created.
	OnCriticalError(err error)
}

// EngineCallbackFuncs implements EngineCallback with optional funcs.
type EngineCallbackFuncs struct {
	ProcessingPassStart func()
	ProcessingPassEnd   func()
	CriticalError       func(err error)
}

func (f *EngineCallbackFuncs) OnProcessingPassStart() {
	if f.ProcessingPassStart != nil {
		f.ProcessingPassStart()
	}
}

func (f *EngineCallbackFuncs) OnProcessingPassEnd() {
	if f.ProcessingPassEnd != nil {
		f.ProcessingPassEnd()
	}
}

func (f *EngineCallbackFuncs) OnCriticalError(err error) {
	if f.CriticalError != nil {
		f.CriticalError(err)
	}
}

// unlocked runs fn with held released, newest first, and takes them back
// in their original order afterwards.
func unlocked(fn func(), held ...sync.Locker) {
	for i := len(held) - 1; i >= 0; i-- {
		held[i].Unlock()
	}
	defer func() {
		for _, l := range held {
			l.Lock()
		}
	}()
	fn()
}
