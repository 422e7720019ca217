// SPDX-License-Identifier: EPL-2.0

package backend

import "errors"

var (
	ErrNoDevice      = errors.New("no such device")
	ErrNotOpen       = errors.New("device is not open")
	ErrAlreadyOpen   = errors.New("device is already open")
	ErrInvalidFormat = errors.New("invalid device format")
)
