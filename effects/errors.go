// SPDX-License-Identifier: EPL-2.0

package effects

import "errors"

var (
	ErrInvalidGain     = errors.New("gain out of range")
	ErrInvalidDelay    = errors.New("delay out of range")
	ErrInvalidFeedback = errors.New("feedback must be in [0,1)")
	ErrChannelMismatch = errors.New("effect cannot change the channel count")
	ErrInvalidFormat   = errors.New("invalid effect format")
	ErrMatrixSize      = errors.New("matrix does not match the channel counts")
)
