// SPDX-License-Identifier: EPL-2.0

package otoplayer

import (
	"sync"

	"github.com/ik5/audmix/audio"
	"github.com/ik5/audmix/engine"
)

// stream is the io.Reader oto pulls from. Each refill renders one engine
// pass; bytes left over from a pass are served first.
type stream struct {
	mu      sync.Mutex
	sink    engine.DeviceSink
	samples []float32
	bytes   []byte
	pending []byte
}

func newStream(sink engine.DeviceSink, channels, updateSize int) *stream {
	return &stream{
		sink:    sink,
		samples: make([]float32, updateSize*channels),
		bytes:   make([]byte, 4*updateSize*channels),
	}
}

// Read never fails; a detached stream plays silence.
func (s *stream) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for n < len(p) {
		if len(s.pending) == 0 {
			s.render()
		}
		c := copy(p[n:], s.pending)
		s.pending = s.pending[c:]
		n += c
	}
	return n, nil
}

func (s *stream) render() {
	if s.sink == nil {
		clear(s.samples)
	} else {
		s.sink.RenderCallback(s.samples)
	}
	audio.PutFloat32s(s.bytes, s.samples)
	s.pending = s.bytes
}

// detach waits for a Read in progress and stops rendering.
func (s *stream) detach() {
	s.mu.Lock()
	s.sink = nil
	s.pending = nil
	s.mu.Unlock()
}
