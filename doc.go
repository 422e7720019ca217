// SPDX-License-Identifier: EPL-2.0

// Package audmix is a real-time audio mixing engine with a voice graph of
// source, submix and master voices rendered in fixed-size passes.
//
// The engine itself lives in the engine subpackage. This package holds the
// glue most programs need around it: decoding whole files into float32
// clips and submitting them to source voices.
//
// # Quick Start
//
//	dev := backend.NewHeadless(backend.WithFormat(2, 48000))
//	eng, _ := engine.New(engine.Config{Backend: dev})
//	_, _ = eng.CreateMasterVoice(engine.MasterVoiceConfig{})
//
//	clip, _ := audmix.LoadFile(audmix.DefaultRegistry(), "drums.wav")
//	voice, _ := eng.CreateSourceVoice(engine.SourceVoiceConfig{Format: clip.Format()})
//	_ = clip.Submit(voice, 0)
//	_ = voice.Start(engine.CommitNow)
//
//	out, _ := dev.RenderFrames(48000)
//
// # Supported Formats
//
// DefaultRegistry decodes through the formats subpackages:
//   - WAV (PCM 8/16/24/32-bit) via formats/wav
//   - AIFF (PCM 16/24/32-bit) via formats/aiff
//   - MP3 via formats/mp3
//   - Ogg Vorbis via formats/vorbis
//
// # Subpackages
//
//   - audio: fixed-point resamplers, mix kernels, converters and the
//     streaming Source abstraction
//   - engine: voices, effect chains, operation sets and the render pass
//   - effects: gain, delay, channel map and meter effects
//   - backend: the headless device and, under backend/otoplayer, a
//     speaker device
package audmix
