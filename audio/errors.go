// SPDX-License-Identifier: EPL-2.0

package audio

import "errors"

var (
	ErrInvalidDstSize     = errors.New("dst size must be multiple of channels")
	ErrShortBuffer        = errors.New("buffer too short")
	ErrUnsupportedLayout  = errors.New("unsupported sample layout")
	ErrUnknownFormat      = errors.New("no decoder registered for format")
	ErrInvalidSourceShape = errors.New("source reports invalid channels or sample rate")
)
