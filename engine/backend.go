// SPDX-License-Identifier: EPL-2.0

package engine

// DeviceDetails describes an output device.
type DeviceDetails struct {
	ID          string
	DisplayName string
	// Channels and SampleRate are the device's preferred mix format,
	// used when a master voice asks for DefaultChannels or
	// DefaultSampleRate.
	Channels    int
	SampleRate  int
	ChannelMask uint32
}

// DeviceFormat is the interleaved float32 stream format of a device.
type DeviceFormat struct {
	Channels   int
	SampleRate int
}

// DeviceSink is what a Backend drives once a device is open. The Engine
// implements it.
type DeviceSink interface {
	// RenderCallback fills out, updateSize frames of the opened format.
	RenderCallback(out []float32)
	// DeviceError reports that the device stopped working.
	DeviceError(err error)
}

// Backend opens the platform audio device for the master voice.
type Backend interface {
	DeviceCount() int
	DeviceDetails(index int) (DeviceDetails, error)
	// Open starts calling sink.RenderCallback periodically. It returns the
	// format the device actually runs at, which may differ from want, and
	// the frames per callback.
	Open(index int, want DeviceFormat, sink DeviceSink) (got DeviceFormat, updateSize int, err error)
	// Close stops the callbacks; none is running once it returns.
	Close() error
}
