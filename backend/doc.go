// SPDX-License-Identifier: EPL-2.0

// Package backend provides engine.Backend implementations that need no
// sound hardware.
//
// Headless renders only when asked to. Pump renders one update quantum,
// RenderFrames renders an arbitrary length for offline mixdowns, and Run
// paces passes against the wall clock for tests that want real-time
// behaviour. Device backends live in sub-packages, see otoplayer.
package backend
