// SPDX-License-Identifier: EPL-2.0

// Package vorbis decodes Ogg Vorbis streams with
// github.com/jfreymuth/oggvorbis.
//
// The stream keeps its own channel count and sample rate. Reads are
// trimmed to whole frames so a caller never sees a split frame.
package vorbis
