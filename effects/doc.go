// SPDX-License-Identifier: EPL-2.0

// Package effects holds DSP units that plug into a voice's effect chain.
//
// Every type here implements engine.Effect:
//   - Gain scales samples in place;
//   - Delay is a feedback echo that keeps sounding after its input stops,
//     so a source stopped with engine.PlayTails rings out;
//   - ChannelMap changes the channel count through a mix matrix and always
//     runs out of place;
//   - Meter passes audio through untouched and records peak and RMS levels.
//
// Parameters travel through SetEffectParameters as little-endian float32
// values. Each effect documents its layout and has a helper that builds it.
package effects
