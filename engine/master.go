// SPDX-License-Identifier: EPL-2.0

package engine

// Speaker positions for channel masks, in WAVE order.
const (
	SpeakerFrontLeft    uint32 = 0x1
	SpeakerFrontRight   uint32 = 0x2
	SpeakerFrontCenter  uint32 = 0x4
	SpeakerLowFrequency uint32 = 0x8
	SpeakerBackLeft     uint32 = 0x10
	SpeakerBackRight    uint32 = 0x20
	SpeakerSideLeft     uint32 = 0x200
	SpeakerSideRight    uint32 = 0x400
)

// MasterVoice writes the final mix to the device. There is at most one per
// engine.
type MasterVoice struct {
	voice

	deviceIndex int
	channelMask uint32
	updateSize  int

	// effectCache holds the mix when the effect chain changes the channel
	// count, so sends never write a device sized for another layout.
	effectCache []float32
	// output is where this pass mixes into. Render thread only.
	output []float32
}

// ChannelMask returns the speaker positions of the device channels.
func (m *MasterVoice) ChannelMask() uint32 { return m.channelMask }

// UpdateSize returns the frames rendered per pass.
func (m *MasterVoice) UpdateSize() int { return m.updateSize }

func defaultChannelMask(channels int) uint32 {
	switch channels {
	case 1:
		return SpeakerFrontCenter
	case 2:
		return SpeakerFrontLeft | SpeakerFrontRight
	case 3:
		return SpeakerFrontLeft | SpeakerFrontRight | SpeakerLowFrequency
	case 4:
		return SpeakerFrontLeft | SpeakerFrontRight | SpeakerBackLeft | SpeakerBackRight
	case 5:
		return SpeakerFrontLeft | SpeakerFrontRight | SpeakerLowFrequency |
			SpeakerBackLeft | SpeakerBackRight
	case 6:
		return SpeakerFrontLeft | SpeakerFrontRight | SpeakerFrontCenter |
			SpeakerLowFrequency | SpeakerBackLeft | SpeakerBackRight
	case 8:
		return SpeakerFrontLeft | SpeakerFrontRight | SpeakerFrontCenter |
			SpeakerLowFrequency | SpeakerBackLeft | SpeakerBackRight |
			SpeakerSideLeft | SpeakerSideRight
	}
	return 0
}
