// SPDX-License-Identifier: EPL-2.0

// Package wav decodes and writes RIFF WAVE files on top of
// github.com/go-audio/wav.
//
// The decoder accepts integer PCM at 8, 16, 24 and 32 bits, any channel
// count and any sample rate, and streams it as interleaved float32 in
// [-1, 1]. 8-bit data is unsigned as the format defines it. Other format
// tags (IEEE float, compressed) are rejected with ErrUnsupportedWavLayout;
// submit such payloads to a source voice directly instead.
//
//	src, err := wav.Decoder{}.Decode(file)
//	if err != nil {
//	    return err
//	}
//	samples, err := audio.ReadAll(src)
//
// WriteWAV16 and WriteFloat32 produce 16-bit PCM files. The encoder patches
// the chunk sizes when it finishes, so the destination must be an
// io.WriteSeeker such as *os.File.
package wav
