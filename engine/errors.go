// SPDX-License-Identifier: EPL-2.0

package engine

import "errors"

var (
	// ErrInvalidArgument reports malformed input: bad buffer loop fields,
	// mismatched matrix dimensions, unknown or destroyed send targets.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrUnsupportedFormat reports a source format with no decoder, or an
	// effect that rejected its negotiated formats.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrInvalidCall reports a legal request that the voice's current state
	// does not allow.
	ErrInvalidCall = errors.New("invalid call")

	// ErrDeviceInvalidated reports that the backend could not open or keep
	// the output device.
	ErrDeviceInvalidated = errors.New("device invalidated")

	// ErrVoiceInUse is returned when destroying a voice that another voice
	// still sends to.
	ErrVoiceInUse = errors.New("voice is still an output of another voice")

	ErrNoMasterVoice  = errors.New("no master voice")
	ErrMasterExists   = errors.New("a master voice already exists")
	ErrEngineReleased = errors.New("engine released")
	ErrVoiceDestroyed = errors.New("voice destroyed")

	errShortData = errors.New("buffer holds fewer frames than requested")
)
