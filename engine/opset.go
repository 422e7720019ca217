// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"cmp"
	"slices"
	"sync"
)

type opKind int

const (
	opEnableEffect opKind = iota
	opDisableEffect
	opSetEffectParameters
	opSetFilterParameters
	opSetOutputFilterParameters
	opSetVolume
	opSetChannelVolumes
	opSetOutputMatrix
	opStart
	opStop
	opExitLoop
	opSetFrequencyRatio
)

var opNames = [...]string{
	opEnableEffect:              "EnableEffect",
	opDisableEffect:             "DisableEffect",
	opSetEffectParameters:       "SetEffectParameters",
	opSetFilterParameters:       "SetFilterParameters",
	opSetOutputFilterParameters: "SetOutputFilterParameters",
	opSetVolume:                 "SetVolume",
	opSetChannelVolumes:         "SetChannelVolumes",
	opSetOutputMatrix:           "SetOutputMatrix",
	opStart:                     "Start",
	opStop:                      "Stop",
	opExitLoop:                  "ExitLoop",
	opSetFrequencyRatio:         "SetFrequencyRatio",
}

func (k opKind) String() string {
	if k >= 0 && int(k) < len(opNames) {
		return opNames[k]
	}
	return "unknown"
}

// operation is one deferred mutation. apply runs the immediate path with
// a payload copied when the call was made.
type operation struct {
	kind  opKind
	set   uint32
	seq   uint64
	voice *voice
	// dest is the send target of matrix and send filter changes.
	dest  *voice
	apply func()
}

// opQueue holds operations waiting for their set to be committed
// (pending) and committed operations waiting for the next render pass
// (ready). Both keep call order, whatever order the sets are committed
// in.
type opQueue struct {
	mu      sync.Mutex
	seq     uint64
	pending []operation
	ready   []operation
}

func (q *opQueue) enqueue(op operation) {
	q.mu.Lock()
	q.seq++
	op.seq = q.seq
	q.pending = append(q.pending, op)
	q.mu.Unlock()
}

// commit moves the pending operations tagged set, or all of them for
// CommitAll, to the ready list.
func (q *opQueue) commit(set uint32) {
	q.mu.Lock()
	defer q.mu.Unlock()

	merge := len(q.ready) > 0
	if set == CommitAll {
		q.ready = append(q.ready, q.pending...)
		clear(q.pending)
		q.pending = q.pending[:0]
		if merge {
			q.sortReady()
		}
		return
	}

	keep := q.pending[:0]
	for _, op := range q.pending {
		if op.set == set {
			q.ready = append(q.ready, op)
		} else {
			keep = append(keep, op)
		}
	}
	clear(q.pending[len(keep):])
	q.pending = keep
	if merge {
		q.sortReady()
	}
}

func (q *opQueue) sortReady() {
	slices.SortStableFunc(q.ready, func(a, b operation) int {
		return cmp.Compare(a.seq, b.seq)
	})
}

// execute applies the ready operations in order and drops them.
func (q *opQueue) execute() {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, op := range q.ready {
		op.apply()
	}
	clear(q.ready)
	q.ready = q.ready[:0]
}

func (q *opQueue) clearAll() {
	q.mu.Lock()
	defer q.mu.Unlock()

	clear(q.pending)
	q.pending = q.pending[:0]
	clear(q.ready)
	q.ready = q.ready[:0]
}

// clearAllForVoice drops every operation on v and every send change
// aimed at v.
func (q *opQueue) clearAllForVoice(v *voice) {
	q.mu.Lock()
	defer q.mu.Unlock()

	match := func(op operation) bool { return op.voice == v || op.dest == v }
	q.pending = slices.DeleteFunc(q.pending, match)
	q.ready = slices.DeleteFunc(q.ready, match)
}

// counts reports the queue lengths.
func (q *opQueue) counts() (pending, ready int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending), len(q.ready)
}
