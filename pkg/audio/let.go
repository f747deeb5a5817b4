package audio

import (
	"fmt"
)

// Let is a group of one or more channels on a Device which are uniformly
// input or output. Lets are snapshots created by the Catalog.
type Let struct {
	device        *Device
	index         int
	channelOffset int
	name          string
	direction     Direction
	channels      int
	sampleRates   SampleRates
}

// LetKey is the identity of a Let. Two lets are equal iff their keys are.
type LetKey struct {
	Device    DeviceId
	Index     int
	Direction Direction
}

func (this LetKey) String() string {
	return fmt.Sprintf("%d/%v#%d", this.Device, this.Direction, this.Index)
}

func (this Let) Key() LetKey {
	return LetKey{
		Device:    this.DeviceId(),
		Index:     this.index,
		Direction: this.direction,
	}
}

func (this Let) Equals(other Let) bool {
	return this.Key() == other.Key()
}

// Device returns the device this let belongs to. The let does not own it.
func (this Let) Device() *Device {
	return this.device
}

func (this Let) DeviceId() DeviceId {
	if v := this.device; v != nil {
		return v.id
	}
	return NoDevice
}

func (this Let) ChannelOffset() int {
	return this.channelOffset
}

// Name of the let. Empty if the backend does not name it.
func (this Let) Name() string {
	return this.name
}

func (this Let) Direction() Direction {
	return this.direction
}

// Channels is never zero.
func (this Let) Channels() int {
	return this.channels
}

func (this Let) SampleRates() SampleRates {
	return this.sampleRates
}

func (this Let) CanSampleRate(rate float64) bool {
	return this.sampleRates.Contains(rate)
}

// Descriptor returns the form in which the let is passed back to the backend.
func (this Let) Descriptor() LetDescriptor {
	return LetDescriptor{
		Index:         this.index,
		ChannelOffset: this.channelOffset,
		Name:          this.name,
		Direction:     this.direction,
		Channels:      this.channels,
	}
}

func (this Let) String() string {
	var layout string
	switch this.channels {
	case 1:
		layout = "mono"
	case 2:
		layout = "stereo"
	default:
		layout = fmt.Sprintf("%d channel", this.channels)
	}
	name := this.name
	if name == "" {
		name = fmt.Sprintf("#%d", this.index)
	}
	return fmt.Sprintf("%s: %s %v", name, layout, this.direction)
}

func (this Let) MarshalText() ([]byte, error) {
	return []byte(this.String()), nil
}
