// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/ik5/audmix/audio"
	"github.com/sirupsen/logrus"
)

// EngineProcedure wraps every render pass. It must call generate(out)
// exactly once.
type EngineProcedure func(generate func(out []float32), out []float32)

// PerformanceData is a snapshot of the engine's load.
type PerformanceData struct {
	ActiveSourceVoiceCount int
	TotalSourceVoiceCount  int
	ActiveSubmixVoiceCount int
	// CurrentLatencyInSamples is an estimate of two render passes.
	CurrentLatencyInSamples int
}

// Engine owns a voice graph and renders it for a Backend.
type Engine struct {
	log         *logrus.Entry
	backend     Backend
	kernels     *audio.Kernels
	codecs      map[FormatTag]CodecFactory
	deviceIndex int

	refs     atomic.Int32
	released atomic.Bool
	active   atomic.Bool

	// graphLock orders send changes against voice destruction.
	graphLock sync.RWMutex

	// sources and submixes are replaced, never modified in place, so a
	// render pass can walk the slice it started with.
	sourceLock       sync.Mutex
	sourceCond       *sync.Cond
	sources          []*SourceVoice
	processingSource *SourceVoice
	decodeCache      []float32

	submixLock sync.Mutex
	submixes   []*SubmixVoice

	master atomic.Pointer[MasterVoice]

	// render thread scratch
	resampleCache []float32
	effectCache   [2][]float32
	sendCache     []float32

	callbackLock sync.Mutex
	callbacks    []EngineCallback

	procedure atomic.Pointer[EngineProcedure]

	ops opQueue
}

// New creates a started engine holding one reference.
func New(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	def := DefaultConfig()
	if cfg.Logger == nil {
		cfg.Logger = def.Logger
	}
	if cfg.Kernels == nil {
		cfg.Kernels = def.Kernels
	}

	e := &Engine{
		log:         cfg.Logger,
		backend:     cfg.Backend,
		kernels:     cfg.Kernels,
		codecs:      cfg.Codecs,
		deviceIndex: cfg.DeviceIndex,
	}
	e.sourceCond = sync.NewCond(&e.sourceLock)
	e.refs.Store(1)
	e.active.Store(true)

	e.log.WithFields(logrus.Fields{
		"function": "New",
		"kernels":  e.kernels.Name,
		"devices":  e.backend.DeviceCount(),
	}).Debug("engine created")
	return e, nil
}

// AddRef takes a reference and returns the new count.
func (e *Engine) AddRef() int {
	return int(e.refs.Add(1))
}

// Release drops a reference. The last one discards every queued operation
// and stops the engine for good.
func (e *Engine) Release() int {
	n := int(e.refs.Add(-1))
	if n == 0 {
		e.ops.clearAll()
		e.StopEngine()
		e.released.Store(true)
		e.log.WithField("function", "Release").Debug("engine released")
	}
	return n
}

// StartEngine lets render passes produce sound.
func (e *Engine) StartEngine() error {
	if e.released.Load() {
		return ErrEngineReleased
	}
	e.active.Store(true)
	e.log.WithField("function", "StartEngine").Debug("engine started")
	return nil
}

// StopEngine silences render passes and applies every queued operation at
// once, committed or not.
func (e *Engine) StopEngine() {
	e.active.Store(false)
	e.ops.commit(CommitAll)
	e.ops.execute()
	e.log.WithField("function", "StopEngine").Debug("engine stopped")
}

// deferred reports whether a call tagged operationSet goes to the queue.
func (e *Engine) deferred(operationSet uint32) bool {
	return operationSet != CommitNow && e.active.Load()
}

// CommitOperationSet readies the operations queued under operationSet, or
// all of them for CommitAll, for the next render pass. Committing a set
// with nothing queued does nothing.
func (e *Engine) CommitOperationSet(operationSet uint32) error {
	if e.released.Load() {
		return ErrEngineReleased
	}
	e.ops.commit(operationSet)
	return nil
}

// RegisterForCallbacks adds cb to the engine callbacks. Registering the
// same callback twice has no effect.
func (e *Engine) RegisterForCallbacks(cb EngineCallback) error {
	if cb == nil {
		return fmt.Errorf("%w: nil engine callback", ErrInvalidArgument)
	}
	e.callbackLock.Lock()
	defer e.callbackLock.Unlock()
	if !slices.Contains(e.callbacks, cb) {
		e.callbacks = append(e.callbacks, cb)
	}
	return nil
}

// UnregisterForCallbacks removes cb.
func (e *Engine) UnregisterForCallbacks(cb EngineCallback) {
	e.callbackLock.Lock()
	defer e.callbackLock.Unlock()
	e.callbacks = slices.DeleteFunc(e.callbacks, func(c EngineCallback) bool { return c == cb })
}

// PerformanceData counts the engine's voices.
func (e *Engine) PerformanceData() PerformanceData {
	var pd PerformanceData

	e.sourceLock.Lock()
	for _, s := range e.sources {
		pd.TotalSourceVoiceCount++
		if s.active.Load() != sourceStopped {
			pd.ActiveSourceVoiceCount++
		}
	}
	e.sourceLock.Unlock()

	e.submixLock.Lock()
	pd.ActiveSubmixVoiceCount = len(e.submixes)
	e.submixLock.Unlock()

	if m := e.master.Load(); m != nil {
		pd.CurrentLatencyInSamples = 2 * m.updateSize
	}
	return pd
}

// ProcessingQuantum returns the frames per render pass and the mix rate.
// Both are zero without a master voice.
func (e *Engine) ProcessingQuantum() (frames, sampleRate int) {
	m := e.master.Load()
	if m == nil {
		return 0, 0
	}
	return m.updateSize, m.inputSampleRate
}

// SetEngineProcedure installs p around every render pass. Nil removes it.
func (e *Engine) SetEngineProcedure(p EngineProcedure) {
	if p == nil {
		e.procedure.Store(nil)
		return
	}
	e.procedure.Store(&p)
}

// Master returns the master voice, or nil.
func (e *Engine) Master() *MasterVoice {
	return e.master.Load()
}

// DeviceCount reports the backend's devices.
func (e *Engine) DeviceCount() int {
	return e.backend.DeviceCount()
}

// DeviceDetails describes device index.
func (e *Engine) DeviceDetails(index int) (DeviceDetails, error) {
	return e.backend.DeviceDetails(index)
}

// RenderCallback renders one pass into out. Backends call it from their
// audio thread; out is always fully written.
func (e *Engine) RenderCallback(out []float32) {
	clear(out)
	if p := e.procedure.Load(); p != nil {
		(*p)(e.generateOutput, out)
		return
	}
	e.generateOutput(out)
}

// DeviceError reports a device failure to the engine callbacks.
func (e *Engine) DeviceError(err error) {
	err = fmt.Errorf("%w: %w", ErrDeviceInvalidated, err)
	e.log.WithField("function", "DeviceError").WithError(err).Error("output device failed")

	e.callbackLock.Lock()
	defer e.callbackLock.Unlock()
	for _, cb := range e.callbacks {
		cb.OnCriticalError(err)
	}
}

// isReferenced reports whether any voice sends to v.
func (e *Engine) isReferenced(v *voice) bool {
	e.sourceLock.Lock()
	sources := e.sources
	e.sourceLock.Unlock()
	for _, s := range sources {
		if s.sendsTo(v) {
			return true
		}
	}

	e.submixLock.Lock()
	submixes := e.submixes
	e.submixLock.Unlock()
	for _, sm := range submixes {
		if &sm.voice != v && sm.sendsTo(v) {
			return true
		}
	}
	return false
}

func (e *Engine) destroyVoice(v *voice) error {
	log := v.logger("DestroyVoice")

	e.graphLock.Lock()
	if v.destroyed.Load() {
		e.graphLock.Unlock()
		return ErrVoiceDestroyed
	}
	if v.kind != kindSource && e.isReferenced(v) {
		e.graphLock.Unlock()
		log.Warn("voice is still an output of another voice")
		return ErrVoiceInUse
	}
	v.destroyed.Store(true)
	e.graphLock.Unlock()

	e.ops.clearAllForVoice(v)

	switch v.kind {
	case kindSource:
		e.sourceLock.Lock()
		for e.processingSource == v.source {
			e.sourceCond.Wait()
		}
		e.sources = slices.DeleteFunc(slices.Clone(e.sources), func(s *SourceVoice) bool {
			return s == v.source
		})
		e.sourceLock.Unlock()

	case kindSubmix:
		e.submixLock.Lock()
		e.submixes = slices.DeleteFunc(slices.Clone(e.submixes), func(sm *SubmixVoice) bool {
			return sm == v.submix
		})
		e.submixLock.Unlock()

	case kindMaster:
		e.master.CompareAndSwap(v.master, nil)
		if err := e.backend.Close(); err != nil {
			log.WithError(err).Warn("closing output device")
		}
	}

	v.sendLock.Lock()
	v.effectLock.Lock()
	v.effects.release(nil)
	v.sends = nil
	v.effectLock.Unlock()
	v.sendLock.Unlock()

	log.Debug("voice destroyed")
	e.Release()
	return nil
}

// growFloats returns buf with at least n samples, keeping its contents.
// It never shrinks.
func growFloats(buf []float32, n int) []float32 {
	if len(buf) >= n {
		return buf
	}
	if cap(buf) >= n {
		return buf[:n]
	}
	grown := make([]float32, n)
	copy(grown, buf)
	return grown
}
