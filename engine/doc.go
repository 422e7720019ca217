// SPDX-License-Identifier: EPL-2.0

// Package engine is a real-time mixing engine built around a graph of
// voices.
//
// Source voices decode queued buffers, resample them to the rate of their
// first send and push them through an optional filter and effect chain.
// Submix voices sum what is sent to them and forward it the same way,
// ordered by processing stage. The master voice receives the final mix and
// hands it to the Backend that owns the output device.
//
// # Render passes
//
// The Backend calls Engine.RenderCallback once per update period from its
// audio thread. A pass applies committed operations, renders every source
// in creation order, every submix in stage order and finally the master's
// volume and effect chain.
//
// # Operation sets
//
// Mutators that take an operationSet tag apply immediately for CommitNow.
// Any other tag queues the change until Engine.CommitOperationSet commits
// it, and the next pass applies every committed change in call order:
//
//	src.SetVolume(0.5, 7)
//	src.Start(7)
//	e.CommitOperationSet(7) // both land in the same pass
//
// # Callbacks
//
// Voice and engine callbacks run on the render thread. The engine releases
// its locks before calling them, so they may call back in, but they must
// not destroy the voice they are called for or the master voice, and they
// must return quickly.
package engine
